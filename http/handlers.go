package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/awantoch/scriptflow/constants"
	"github.com/awantoch/scriptflow/event"
	"github.com/awantoch/scriptflow/graph"
	"github.com/awantoch/scriptflow/graphviz"
	"github.com/awantoch/scriptflow/layout"
	"github.com/awantoch/scriptflow/model"
	"github.com/awantoch/scriptflow/parser"
	"github.com/awantoch/scriptflow/session"
	"github.com/awantoch/scriptflow/telemetry"
	"github.com/awantoch/scriptflow/utils"
)

const formatMermaid = "mermaid"

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Detail string `json:"detail"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set(constants.HeaderContentType, constants.ContentTypeJSON)
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		utils.Error("failed to encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, errorBody{Detail: detail})
}

func requirePost(w http.ResponseWriter, r *http.Request) bool {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeError(w, http.StatusMethodNotAllowed, constants.ResponseMethodNotAllowed)
		return false
	}
	return true
}

// POST /parse {script} -> RawGraph
func (s *Server) handleParse(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}
	g, ok := s.parseRequest(w, r)
	if !ok {
		return
	}
	s.publishParsed(r.Context(), g, false)
	writeJSON(w, http.StatusOK, normalize(g))
}

// POST /flow {script} -> PositionedGraph
func (s *Server) handleFlow(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}
	assigner, ok := s.assignerFromQuery(w, r)
	if !ok {
		return
	}
	g, ok := s.parseRequest(w, r)
	if !ok {
		return
	}
	pg := s.layout(assigner, g)
	s.publishParsed(r.Context(), g, true)
	writeJSON(w, http.StatusOK, pg)
}

// POST /layout?strategy= RawGraph -> PositionedGraph
func (s *Server) handleLayout(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}
	assigner, ok := s.assignerFromQuery(w, r)
	if !ok {
		return
	}
	g, ok := readGraph(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.layout(assigner, g))
}

// POST /diagram?format=mermaid|svg|png&strategy= RawGraph -> diagram
func (s *Server) handleDiagram(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}
	format := r.URL.Query().Get("format")
	if format == "" {
		format = formatMermaid
	}
	imageFormat, isImage := graphviz.ParseFormat(format)
	if format != formatMermaid && !isImage {
		writeError(w, http.StatusBadRequest, constants.ResponseUnknownFormat+": "+format)
		return
	}
	assigner, ok := s.assignerFromQuery(w, r)
	if !ok {
		return
	}
	g, ok := readGraph(w, r)
	if !ok {
		return
	}
	pg := s.layout(assigner, g)

	if !isImage {
		out, err := graph.ExportMermaid(pg)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		w.Header().Set(constants.HeaderContentType, constants.ContentTypeTextVndMermaid)
		_, _ = io.WriteString(w, out)
		return
	}

	out, err := graphviz.Render(r.Context(), pg, imageFormat)
	if err != nil {
		utils.ErrorCtx(r.Context(), "diagram render failed", "format", format, "error", err.Error())
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	contentType := constants.ContentTypeSVG
	if imageFormat == graphviz.FormatPNG {
		contentType = constants.ContentTypePNG
	}
	w.Header().Set(constants.HeaderContentType, contentType)
	_, _ = w.Write(out)
}

// parseRequest decodes {script} and runs the parser, writing the error
// response itself when it fails.
func (s *Server) parseRequest(w http.ResponseWriter, r *http.Request) (*model.RawGraph, bool) {
	var req session.ParseRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, constants.ResponseInvalidRequestBody)
		return nil, false
	}
	g, err := s.parser.Parse(r.Context(), req.Script)
	telemetry.RecordParse(err)
	switch {
	case errors.Is(err, parser.ErrEmptyScript):
		writeError(w, http.StatusBadRequest, err.Error())
		return nil, false
	case err != nil:
		utils.ErrorCtx(r.Context(), "parse failed", "error", err.Error())
		writeError(w, http.StatusInternalServerError, err.Error())
		return nil, false
	}
	utils.InfoCtx(r.Context(), "script parsed", "nodes", len(g.Nodes), "edges", len(g.Edges))
	return g, true
}

// readGraph decodes a JSON or YAML RawGraph body.
func readGraph(w http.ResponseWriter, r *http.Request) (*model.RawGraph, bool) {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, constants.ResponseInvalidRequestBody)
		return nil, false
	}
	g, err := model.DecodeGraph(data)
	if err != nil {
		writeError(w, http.StatusBadRequest, constants.ResponseInvalidRequestBody+": "+err.Error())
		return nil, false
	}
	return g, true
}

func (s *Server) assignerFromQuery(w http.ResponseWriter, r *http.Request) (*layout.Assigner, bool) {
	name := r.URL.Query().Get("strategy")
	if name == "" {
		return s.assigner, true
	}
	a, err := layout.FromConfig(s.cfg.Layout, name)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return nil, false
	}
	return a, true
}

func (s *Server) layout(a *layout.Assigner, g *model.RawGraph) *model.PositionedGraph {
	pg := a.Layout(g)
	telemetry.RecordLayout(string(a.Strategy()), len(pg.Nodes))
	return pg
}

func (s *Server) publishParsed(ctx context.Context, g *model.RawGraph, positioned bool) {
	if s.bus == nil {
		return
	}
	ev := event.FlowParsed{Nodes: len(g.Nodes), Edges: len(g.Edges), Positioned: positioned}
	ev.RequestID, _ = utils.RequestIDFromContext(ctx)
	if err := s.bus.Publish(constants.TopicFlowParsed, ev); err != nil {
		utils.WarnCtx(ctx, "failed to publish parse event", "error", err.Error())
	}
}

// normalize makes nil collections encode as [] rather than null.
func normalize(g *model.RawGraph) *model.RawGraph {
	out := *g
	if out.Nodes == nil {
		out.Nodes = []model.RawNode{}
	}
	if out.Edges == nil {
		out.Edges = []model.RawEdge{}
	}
	return &out
}
