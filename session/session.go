// Package session drives a single script-to-flow request cycle: submit a
// script, wait for the parse, then show the positioned flow or the failure.
package session

import (
	"context"
	"errors"
	"sync"

	"github.com/awantoch/scriptflow/constants"
	"github.com/awantoch/scriptflow/event"
	"github.com/awantoch/scriptflow/layout"
	"github.com/awantoch/scriptflow/model"
	"github.com/awantoch/scriptflow/parser"
	"github.com/awantoch/scriptflow/utils"
)

type State string

const (
	Idle       State = "idle"
	Requesting State = "requesting"
	Ready      State = "ready"
	Failed     State = "failed"
)

// ErrBusy is returned by Submit while a request is in flight.
var ErrBusy = errors.New("a parse request is already in flight")

// Snapshot is a consistent view of a session. Graph is the last successfully
// parsed flow and survives later failures.
type Snapshot struct {
	State   State
	Graph   *model.PositionedGraph
	Message string
}

type Session struct {
	parser   parser.Parser
	assigner *layout.Assigner
	bus      event.EventBus

	mu      sync.Mutex
	state   State
	graph   *model.PositionedGraph
	message string
}

type Option func(*Session)

// WithAssigner sets the layout used for successful parses.
func WithAssigner(a *layout.Assigner) Option {
	return func(s *Session) { s.assigner = a }
}

// WithEventBus publishes every transition on constants.TopicSessionState.
func WithEventBus(bus event.EventBus) Option {
	return func(s *Session) { s.bus = bus }
}

// New returns an idle session that parses with p. p is usually a *Client or
// a local parser.Parser.
func New(p parser.Parser, opts ...Option) *Session {
	s := &Session{parser: p, state: Idle}
	for _, opt := range opts {
		opt(s)
	}
	if s.assigner == nil {
		s.assigner = layout.New(layout.Options{})
	}
	return s
}

// Submit parses script and lays out the result. It returns ErrBusy without
// changing state if another Submit is still running. Parse failures move the
// session to Failed and are returned.
func (s *Session) Submit(ctx context.Context, script string) (*model.PositionedGraph, error) {
	s.mu.Lock()
	if s.state == Requesting {
		s.mu.Unlock()
		return nil, ErrBusy
	}
	s.state = Requesting
	s.message = ""
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.publish(ctx, snap)

	g, err := s.parser.Parse(ctx, script)

	s.mu.Lock()
	var positioned *model.PositionedGraph
	if err != nil {
		s.state = Failed
		s.message = messageFor(err)
	} else {
		positioned = s.assigner.Layout(g)
		s.graph = positioned
		s.state = Ready
	}
	snap = s.snapshotLocked()
	s.mu.Unlock()
	s.publish(ctx, snap)

	if err != nil {
		utils.WarnCtx(ctx, "parse request failed", "error", snap.Message)
		return nil, err
	}
	return positioned, nil
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() Snapshot {
	return Snapshot{State: s.state, Graph: s.graph, Message: s.message}
}

func (s *Session) publish(ctx context.Context, snap Snapshot) {
	if s.bus == nil {
		return
	}
	ev := event.SessionState{State: string(snap.State), Message: snap.Message}
	if snap.Graph != nil {
		ev.Nodes = len(snap.Graph.Nodes)
	}
	if err := s.bus.Publish(constants.TopicSessionState, ev); err != nil {
		utils.WarnCtx(ctx, "failed to publish session state", "error", err.Error())
	}
}

// messageFor picks the text shown for a failed request: the service's detail
// when there is one, otherwise the error itself.
func messageFor(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Detail != "" {
		return apiErr.Detail
	}
	return err.Error()
}
