// Package session drives one generation at a time: it opens the server-push
// channel, reacts to progress and terminal events, and hands the artifact to
// the renderer.
package session

import (
	"context"

	"github.com/couchcryptid/lightning-map/internal/domain"
	"github.com/couchcryptid/lightning-map/internal/loop"
)

// State is a session's lifecycle phase.
type State int

const (
	Idle State = iota
	Connecting
	Active
	Succeeded
	Failed
	TransportFailed
	Superseded
)

func (s State) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Active:
		return "active"
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	case TransportFailed:
		return "transport_failed"
	case Superseded:
		return "superseded"
	default:
		return "idle"
	}
}

// Terminal reports whether no further events are processed in this state.
func (s State) Terminal() bool {
	switch s {
	case Succeeded, Failed, TransportFailed, Superseded:
		return true
	default:
		return false
	}
}

// Job is what a session generates: the request plus the region it was made
// for, if any.
type Job struct {
	Request domain.GenerationRequest
	Region  *domain.Region
}

// Bounds returns the region's bounding box, or nil when no region was selected.
func (j Job) Bounds() *domain.BoundingBox {
	if j.Region == nil {
		return nil
	}
	b := j.Region.Bounds
	return &b
}

// Session is one request/response exchange over the channel.
type Session struct {
	ID  string
	Job Job

	ctx         context.Context
	state       State
	lastStatus  string
	seenStatus  bool
	sub         Closer
	renderTimer *loop.Timer
}

// State returns the lifecycle phase.
func (s *Session) State() State {
	return s.state
}

func (s *Session) close() {
	if s.sub != nil {
		s.sub.Close()
	}
}

// Outcome describes how a session ended.
type Outcome struct {
	SessionID string
	State     State
	Status    string
	Result    domain.Result
	Err       error
}
