package session

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/awantoch/scriptflow/constants"
	"github.com/awantoch/scriptflow/event"
	"github.com/awantoch/scriptflow/layout"
	"github.com/awantoch/scriptflow/model"
	"github.com/awantoch/scriptflow/parser"
)

var salesGraph = &model.RawGraph{
	Nodes: []model.RawNode{
		{ID: "n1", Type: model.NodeStart, Label: "Start"},
		{ID: "n2", Type: model.NodeDecision, Label: "What does the user want?"},
		{ID: "n3", Type: model.NodeAction, Label: "transfer"},
	},
	Edges: []model.RawEdge{
		{Source: "n1", Target: "n2"},
		{Source: "n2", Target: "n3", Condition: "wants sales"},
	},
}

func TestClient_Parse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, constants.RouteParse, r.URL.Path)
		var req ParseRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "If a -> b", req.Script)
		_ = json.NewEncoder(w).Encode(salesGraph)
	}))
	defer srv.Close()

	g, err := NewClient(srv.URL+"/", srv.Client()).Parse(context.Background(), "If a -> b")
	require.NoError(t, err)
	assert.Equal(t, salesGraph, g)
}

func TestClient_ErrorDetail(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{"string detail", http.StatusBadRequest, `{"detail":"Empty script"}`, "Empty script"},
		{"structured detail", http.StatusUnprocessableEntity, `{"detail":[{"msg":"field required"}]}`, "Request failed with status code 422"},
		{"no body", http.StatusBadGateway, ``, "Request failed with status code 502"},
		{"empty detail", http.StatusInternalServerError, `{"detail":""}`, "Request failed with status code 500"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := NewClient(srv.URL, srv.Client()).Parse(context.Background(), "x")
			var apiErr *APIError
			require.True(t, errors.As(err, &apiErr))
			assert.Equal(t, tt.status, apiErr.Status)
			assert.Equal(t, tt.want, apiErr.Detail)
		})
	}
}

func TestSession_SuccessThenFailureKeepsGraph(t *testing.T) {
	calls := 0
	p := parser.Func(func(ctx context.Context, script string) (*model.RawGraph, error) {
		calls++
		if calls == 1 {
			return salesGraph, nil
		}
		return nil, &APIError{Status: 400, Detail: "Empty script"}
	})
	s := New(p)
	assert.Equal(t, Snapshot{State: Idle}, s.Snapshot())

	g, err := s.Submit(context.Background(), "If a -> b")
	require.NoError(t, err)
	assert.Equal(t, layout.Layout(salesGraph), g)
	snap := s.Snapshot()
	assert.Equal(t, Ready, snap.State)
	assert.Same(t, g, snap.Graph)
	assert.Empty(t, snap.Message)

	_, err = s.Submit(context.Background(), "")
	require.Error(t, err)
	snap = s.Snapshot()
	assert.Equal(t, Failed, snap.State)
	assert.Equal(t, "Empty script", snap.Message)
	assert.Same(t, g, snap.Graph, "previous flow stays visible after a failure")
}

func TestSession_TransportErrorMessage(t *testing.T) {
	s := New(NewClient("http://127.0.0.1:1", nil))
	_, err := s.Submit(context.Background(), "hello")
	require.Error(t, err)
	snap := s.Snapshot()
	assert.Equal(t, Failed, snap.State)
	assert.Equal(t, err.Error(), snap.Message)
	assert.Nil(t, snap.Graph)
}

func TestSession_BusyWhileRequesting(t *testing.T) {
	release := make(chan struct{})
	entered := make(chan struct{})
	p := parser.Func(func(ctx context.Context, script string) (*model.RawGraph, error) {
		close(entered)
		<-release
		return salesGraph, nil
	})
	s := New(p)

	done := make(chan error, 1)
	go func() {
		_, err := s.Submit(context.Background(), "first")
		done <- err
	}()
	<-entered
	assert.Equal(t, Requesting, s.Snapshot().State)

	_, err := s.Submit(context.Background(), "second")
	assert.True(t, errors.Is(err, ErrBusy))
	assert.Equal(t, Requesting, s.Snapshot().State)

	close(release)
	require.NoError(t, <-done)
	assert.Equal(t, Ready, s.Snapshot().State)
}

func TestSession_RetryAfterFailure(t *testing.T) {
	fail := true
	p := parser.Func(func(ctx context.Context, script string) (*model.RawGraph, error) {
		if fail {
			return nil, errors.New("network down")
		}
		return salesGraph, nil
	})
	s := New(p, WithAssigner(layout.New(layout.Options{Strategy: layout.StrategyLayered})))

	_, err := s.Submit(context.Background(), "x")
	require.Error(t, err)
	assert.Equal(t, "network down", s.Snapshot().Message)

	fail = false
	g, err := s.Submit(context.Background(), "x")
	require.NoError(t, err)
	assert.Equal(t, Ready, s.Snapshot().State)
	assert.Empty(t, s.Snapshot().Message)
	assert.Equal(t, model.Position{X: 0, Y: 100}, g.Nodes[1].Position)
}

func TestSession_PublishesTransitions(t *testing.T) {
	bus := event.NewInProcEventBus()
	defer bus.Close()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	got := make(chan any, 4)
	require.NoError(t, bus.Subscribe(ctx, constants.TopicSessionState, func(p any) { got <- p }))

	s := New(parser.Func(func(ctx context.Context, script string) (*model.RawGraph, error) {
		return salesGraph, nil
	}), WithEventBus(bus))
	_, err := s.Submit(ctx, "x")
	require.NoError(t, err)

	var states []any
	for len(states) < 2 {
		select {
		case p := <-got:
			states = append(states, p.(map[string]any)["state"])
		case <-ctx.Done():
			t.Fatal("timed out waiting for session events")
		}
	}
	assert.ElementsMatch(t, []any{"requesting", "ready"}, states)
}
