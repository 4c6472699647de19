package http

import (
	"net/http"
	"sync"

	"github.com/awantoch/scriptflow/config"
	"github.com/awantoch/scriptflow/constants"
	"github.com/awantoch/scriptflow/utils"
)

var (
	initServerless sync.Once
	initErr        error
	serverless     *Server
	serverlessMu   sync.RWMutex
)

// ServerlessHandler serves the full route set from a lazily built Server.
// Configuration comes from scriptflow.config.json, if present, and the
// environment.
func ServerlessHandler(w http.ResponseWriter, r *http.Request) {
	initServerless.Do(func() {
		cfg, err := config.LoadOrDefault(constants.ConfigFileName)
		if err != nil {
			initErr = err
			return
		}
		srv, err := NewServer(cfg)
		if err != nil {
			initErr = err
			return
		}
		serverlessMu.Lock()
		serverless = srv
		serverlessMu.Unlock()
	})

	if initErr != nil {
		utils.Error("serverless init failed: %v", initErr)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	serverlessMu.RLock()
	srv := serverless
	serverlessMu.RUnlock()
	srv.Handler().ServeHTTP(w, r)
}

// ResetServerless drops the cached server so the next request rebuilds it.
func ResetServerless() {
	serverlessMu.Lock()
	defer serverlessMu.Unlock()
	initServerless = sync.Once{}
	initErr = nil
	serverless = nil
}
