// Package app owns the viewer's application state and exposes the user
// commands. Every command runs on the loop, so selection, session, and
// rendering state are only ever touched from one goroutine.
package app

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/lightning-map/internal/domain"
	"github.com/couchcryptid/lightning-map/internal/loop"
	"github.com/couchcryptid/lightning-map/internal/observability"
	"github.com/couchcryptid/lightning-map/internal/region"
	"github.com/couchcryptid/lightning-map/internal/render"
	"github.com/couchcryptid/lightning-map/internal/selection"
	"github.com/couchcryptid/lightning-map/internal/session"
	"github.com/couchcryptid/lightning-map/internal/ui"
)

// ErrNotReady is returned by Submit while the trigger is disabled, which
// includes the whole time a generation is in flight.
var ErrNotReady = errors.New("select a country and a date before generating")

// ErrMapBlocked is returned by map interactions while a generation is in flight.
var ErrMapBlocked = errors.New("map is blocked while a generation is running")

// Modal transition times.
const (
	ModalEnterDelay = 10 * time.Millisecond
	ModalExitDelay  = 300 * time.Millisecond
)

// Surface is the map the viewer draws on.
type Surface interface {
	selection.Styler
	render.Map
}

// Timings are the UI delays.
type Timings struct {
	FadeDelay       time.Duration
	CompleteDelay   time.Duration
	LoaderHideDelay time.Duration
}

// DefaultTimings match the stock stylesheet transitions.
var DefaultTimings = Timings{
	FadeDelay:       150 * time.Millisecond,
	CompleteDelay:   500 * time.Millisecond,
	LoaderHideDelay: 300 * time.Millisecond,
}

// State is a copy of everything the viewer currently shows.
type State struct {
	UI         ui.Snapshot
	Selected   *domain.Region
	Date       domain.Date
	Resolution domain.Resolution
	Session    session.State
	SessionID  string
	Busy       bool
	Modal      render.ModalState
	Artifact   bool
}

// App is the viewer.
type App struct {
	loop     *loop.Loop
	regions  *region.Registry
	ui       *ui.Controller
	sel      *selection.Machine
	renderer *render.Renderer
	engine   *session.Engine
	logger   *slog.Logger

	ctx        context.Context
	date       domain.Date
	resolution domain.Resolution
	onFinish   []func(session.Outcome)
}

// New wires a viewer. The date starts at yesterday and the resolution at low.
func New(l *loop.Loop, regions *region.Registry, surface Surface, opener session.Opener, t Timings, logger *slog.Logger, metrics *observability.Metrics) *App {
	a := &App{
		loop:    l,
		regions: regions,
		logger:  logger,
		ctx:     context.Background(),
		date:    domain.Yesterday(),
	}

	a.ui = ui.NewController(l, t.FadeDelay, t.LoaderHideDelay)
	a.sel = selection.New(surface, a.ui)
	a.sel.OnChange(a.refresh)
	a.renderer = render.New(surface, render.NewModal(l, ModalEnterDelay, ModalExitDelay), l.Clock())
	a.engine = session.NewEngine(l, opener, a.ui, a.renderer, t.CompleteDelay, logger, metrics)
	a.engine.OnFinish(func(o session.Outcome) {
		for _, fn := range a.onFinish {
			fn(o)
		}
	})
	a.refresh()
	return a
}

// Run processes commands until ctx is cancelled. Sessions opened by Submit
// live at most as long as ctx.
func (a *App) Run(ctx context.Context) {
	a.ctx = ctx
	a.loop.Run(ctx)
}

// OnFinish registers fn to receive every session outcome. It runs on the
// loop and must not block. Call before Run.
func (a *App) OnFinish(fn func(session.Outcome)) {
	a.onFinish = append(a.onFinish, fn)
}

func (a *App) do(ctx context.Context, fn func() error) error {
	var err error
	if derr := a.loop.Do(ctx, func() { err = fn() }); derr != nil {
		return derr
	}
	return err
}

// refresh recomputes whether the trigger may be enabled.
func (a *App) refresh() {
	_, selected := a.sel.Selected()
	a.ui.SetValid(selected && a.date.Valid())
}

// interact resolves code for a map interaction.
func (a *App) interact(code string) (domain.Region, error) {
	if a.ui.Snapshot().MapBlocked {
		return domain.Region{}, ErrMapBlocked
	}
	r, err := a.regions.Lookup(code)
	if err != nil {
		return domain.Region{}, fmt.Errorf("lookup region: %w", err)
	}
	return r, nil
}

// Hover highlights the region with code. Hover, Unhover and Activate return
// ErrMapBlocked while a generation is in flight.
func (a *App) Hover(ctx context.Context, code string) error {
	return a.do(ctx, func() error {
		r, err := a.interact(code)
		if err != nil {
			return err
		}
		a.sel.Hover(r)
		return nil
	})
}

// Unhover removes the highlight from the region with code.
func (a *App) Unhover(ctx context.Context, code string) error {
	return a.do(ctx, func() error {
		r, err := a.interact(code)
		if err != nil {
			return err
		}
		a.sel.Unhover(r)
		return nil
	})
}

// Activate toggles the selection of the region with code.
func (a *App) Activate(ctx context.Context, code string) error {
	return a.do(ctx, func() error {
		r, err := a.interact(code)
		if err != nil {
			return err
		}
		a.sel.Activate(r)
		return nil
	})
}

// SetDate sets the requested day. The zero Date clears it.
func (a *App) SetDate(ctx context.Context, d domain.Date) error {
	return a.do(ctx, func() error {
		a.date = d
		a.refresh()
		return nil
	})
}

// SetResolution sets the requested product resolution.
func (a *App) SetResolution(ctx context.Context, r domain.Resolution) error {
	return a.do(ctx, func() error {
		a.resolution = r
		return nil
	})
}

// TogglePanel shows or hides the control panel.
func (a *App) TogglePanel(ctx context.Context) error {
	return a.do(ctx, func() error {
		a.ui.TogglePanel()
		return nil
	})
}

// Submit starts a generation for the current selection, date, and
// resolution, superseding any session in flight. It returns the new
// session's ID.
func (a *App) Submit(ctx context.Context) (string, error) {
	var id string
	err := a.do(ctx, func() error {
		if !a.ui.CanSubmit() {
			return ErrNotReady
		}
		r, _ := a.sel.Selected()
		job := session.Job{
			Request: domain.GenerationRequest{
				Resolution: a.resolution,
				Date:       a.date,
				Country:    a.sel.Code(),
			},
			Region: &r,
		}
		id = a.engine.Start(a.ctx, job).ID
		return nil
	})
	return id, err
}

// ClickModal forwards a click on the table modal.
func (a *App) ClickModal(ctx context.Context, target render.Target) error {
	return a.do(ctx, func() error {
		a.renderer.Modal().Click(target)
		return nil
	})
}

// ModalHTML renders the modal content, or "" when nothing is shown.
func (a *App) ModalHTML(ctx context.Context) (string, error) {
	var buf bytes.Buffer
	err := a.do(ctx, func() error {
		content := a.renderer.Modal().Content()
		if content == nil {
			return nil
		}
		return content.Render(ctx, &buf)
	})
	return buf.String(), err
}

// RegionLabelHTML renders the selected-region label, or "" when nothing is selected.
func (a *App) RegionLabelHTML(ctx context.Context) (string, error) {
	var buf bytes.Buffer
	err := a.do(ctx, func() error {
		return a.ui.RegionLabelMarkup().Render(ctx, &buf)
	})
	return buf.String(), err
}

// State returns a snapshot of the viewer.
func (a *App) State(ctx context.Context) (State, error) {
	var s State
	err := a.do(ctx, func() error {
		s = State{
			UI:         a.ui.Snapshot(),
			Date:       a.date,
			Resolution: a.resolution,
			Session:    a.engine.State(),
			Busy:       a.engine.Busy(),
			Modal:      a.renderer.Modal().State(),
			Artifact:   a.renderer.Overlay() != nil,
		}
		if r, ok := a.sel.Selected(); ok {
			s.Selected = &r
		}
		if cur := a.engine.Current(); cur != nil {
			s.SessionID = cur.ID
		}
		return nil
	})
	return s, err
}
