package session

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/lightning-map/internal/domain"
	"github.com/couchcryptid/lightning-map/internal/loop"
	"github.com/couchcryptid/lightning-map/internal/observability"
	"github.com/couchcryptid/lightning-map/internal/request"
	"github.com/couchcryptid/lightning-map/internal/stream"
	"github.com/google/uuid"
)

// Status label texts.
const (
	StatusProcessing      = "Processing..."
	StatusComplete        = "complete!"
	StatusConnectionError = "connection error occurred"
	failurePrefix         = "error: "
)

// Closer closes an open channel.
type Closer interface {
	Close()
}

// Opener opens a server-push channel. deliver is called from a single
// goroutine in arrival order.
type Opener interface {
	Open(ctx context.Context, params request.Params, deliver func(stream.Update)) Closer
}

// ClientOpener adapts a stream.Client to Opener.
func ClientOpener(c *stream.Client) Opener {
	return clientOpener{c: c}
}

type clientOpener struct {
	c *stream.Client
}

func (o clientOpener) Open(ctx context.Context, params request.Params, deliver func(stream.Update)) Closer {
	return o.c.Subscribe(ctx, params, deliver)
}

// Loop is the thread the engine runs on.
type Loop interface {
	Post(fn func()) bool
	After(d time.Duration, fn func()) *loop.Timer
}

// Display is the interactive state the engine drives.
type Display interface {
	ShowLoading()
	HideLoading()
	TransitionStatus(text string)
	SetStatus(text string)
}

// Renderer displays artifacts.
type Renderer interface {
	Suppress()
	Render(ctx context.Context, res domain.Result, bounds *domain.BoundingBox) error
}

// Engine owns the current session. All methods must be called on the loop.
type Engine struct {
	loop          Loop
	opener        Opener
	display       Display
	renderer      Renderer
	completeDelay time.Duration
	logger        *slog.Logger
	metrics       *observability.Metrics

	current  *Session
	onFinish func(Outcome)
}

// NewEngine creates an idle engine. completeDelay is how long the completion
// label stays up before the artifact is rendered.
func NewEngine(l Loop, opener Opener, display Display, renderer Renderer, completeDelay time.Duration, logger *slog.Logger, metrics *observability.Metrics) *Engine {
	return &Engine{
		loop:          l,
		opener:        opener,
		display:       display,
		renderer:      renderer,
		completeDelay: completeDelay,
		logger:        logger,
		metrics:       metrics,
	}
}

// OnFinish registers fn to receive every session's outcome exactly once.
func (e *Engine) OnFinish(fn func(Outcome)) {
	e.onFinish = fn
}

// Current returns the most recent session, or nil.
func (e *Engine) Current() *Session {
	return e.current
}

// State returns the current session's state, or Idle.
func (e *Engine) State() State {
	if e.current == nil {
		return Idle
	}
	return e.current.state
}

// Busy reports whether a session is connecting, streaming, or waiting to render.
func (e *Engine) Busy() bool {
	s := e.current
	return s != nil && (!s.state.Terminal() || s.renderTimer.Pending())
}

// Start closes any previous session and opens a new one for job.
func (e *Engine) Start(ctx context.Context, job Job) *Session {
	e.supersede()

	s := &Session{ID: uuid.NewString(), Job: job, ctx: ctx, state: Connecting}
	e.current = s
	e.metrics.SessionsStarted.Inc()

	e.display.ShowLoading()
	e.renderer.Suppress()

	params := request.FromRequest(job.Request)
	e.logger.Info("session started",
		"session_id", s.ID,
		"product", params.Get(request.KeyProduct),
		"date", job.Request.Date.String(),
		"country", params.Get(request.KeyCountry),
	)

	s.sub = e.opener.Open(ctx, params, func(u stream.Update) {
		e.loop.Post(func() { e.handle(s, u) })
	})
	return s
}

// supersede closes the current session before a new one starts.
func (e *Engine) supersede() {
	s := e.current
	if s == nil {
		return
	}
	e.current = nil

	switch {
	case !s.state.Terminal():
		s.close()
		s.state = Superseded
	case s.renderTimer.Pending():
		s.renderTimer.Stop()
	default:
		return
	}
	e.logger.Info("session superseded", "session_id", s.ID)
	e.finish(s, Outcome{SessionID: s.ID, State: Superseded, Status: s.lastStatus})
}

func (e *Engine) handle(s *Session, u stream.Update) {
	if s != e.current || s.state.Terminal() {
		e.metrics.StaleEventsDropped.Inc()
		return
	}
	if u.Err != nil {
		e.transportFailed(s, u.Err)
		return
	}

	switch ev := u.Event.(type) {
	case domain.Progress:
		e.metrics.StreamEvents.WithLabelValues("progress").Inc()
		e.progress(s, ev)
	case domain.Failure:
		e.metrics.StreamEvents.WithLabelValues("failure").Inc()
		e.failed(s, ev)
	case domain.Success:
		e.metrics.StreamEvents.WithLabelValues("success").Inc()
		e.succeeded(s, ev)
	default:
		e.transportFailed(s, fmt.Errorf("unexpected event %T", u.Event))
	}
}

func (e *Engine) progress(s *Session, ev domain.Progress) {
	s.state = Active
	if s.seenStatus && ev.Status == s.lastStatus {
		return
	}
	s.seenStatus = true
	s.lastStatus = ev.Status

	text := ev.Status
	if text == "" {
		text = StatusProcessing
	}
	e.metrics.StatusTransitions.Inc()
	e.display.TransitionStatus(text)
	e.logger.Debug("session progress", "session_id", s.ID, "status", ev.Status, "progress", ev.Percent)
}

func (e *Engine) failed(s *Session, ev domain.Failure) {
	s.close()
	s.state = Failed
	s.lastStatus = ev.Status

	e.display.SetStatus(failurePrefix + ev.Status)
	e.restore(false)
	e.logger.Warn("session failed", "session_id", s.ID, "status", ev.Status)
	e.finish(s, Outcome{SessionID: s.ID, State: Failed, Status: ev.Status})
}

func (e *Engine) transportFailed(s *Session, err error) {
	s.close()
	s.state = TransportFailed

	e.display.SetStatus(StatusConnectionError)
	e.restore(false)
	e.logger.Error("session transport failure", "session_id", s.ID, "error", err)
	e.finish(s, Outcome{SessionID: s.ID, State: TransportFailed, Status: StatusConnectionError, Err: err})
}

func (e *Engine) succeeded(s *Session, ev domain.Success) {
	s.close()
	s.state = Succeeded
	s.lastStatus = ev.Status

	e.display.SetStatus(StatusComplete)
	s.renderTimer = e.loop.After(e.completeDelay, func() {
		if s != e.current {
			return
		}
		if err := e.renderer.Render(s.ctx, ev.Result, s.Job.Bounds()); err != nil {
			s.state = Failed
			e.display.SetStatus(failurePrefix + err.Error())
			e.restore(false)
			e.logger.Error("render failed", "session_id", s.ID, "error", err)
			e.finish(s, Outcome{SessionID: s.ID, State: Failed, Status: ev.Status, Err: err})
			return
		}
		e.restore(true)
		e.logger.Info("session succeeded", "session_id", s.ID, "result", domain.ResultKind(ev.Result))
		e.finish(s, Outcome{SessionID: s.ID, State: Succeeded, Status: ev.Status, Result: ev.Result})
	})
}

// restore returns the UI to its interactive state. Failed sessions leave the
// previous artifact suppressed.
func (e *Engine) restore(success bool) {
	e.display.HideLoading()
	if !success {
		e.renderer.Suppress()
	}
}

func (e *Engine) finish(s *Session, o Outcome) {
	e.metrics.SessionOutcomes.WithLabelValues(o.State.String()).Inc()
	if e.onFinish != nil {
		e.onFinish(o)
	}
}
