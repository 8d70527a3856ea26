// Package ui mirrors selection and session state into the interactive
// affordances the user sees: the generate trigger, the loader, the status
// label and the selected-region label.
package ui

import (
	"context"
	"io"
	"strings"
	"time"

	"github.com/a-h/templ"
	"github.com/couchcryptid/lightning-map/internal/loop"
)

// Trigger texts and hints.
const (
	TriggerIdleText    = "Generate"
	TriggerLoadingText = "Processing..."
	TriggerHint        = "Please select a country and a date first."
)

// Scheduler runs delayed callbacks on the UI thread.
type Scheduler interface {
	After(d time.Duration, fn func()) *loop.Timer
}

// Trigger is the generate button.
type Trigger struct {
	Enabled bool
	Loading bool
	Text    string
	Title   string
}

// Status is the progress label. Opacity drops to 0 while a fade is in flight.
type Status struct {
	Text        string
	Opacity     float64
	Transitions int
}

// RegionLabel shows the selected region.
type RegionLabel struct {
	Visible bool
	Flag    string
	Name    string
}

// Snapshot is a copy of everything the user can currently see.
type Snapshot struct {
	Trigger       Trigger
	Status        Status
	Region        RegionLabel
	LoaderVisible bool
	MapFaded      bool
	MapBlocked    bool
	PanelHidden   bool
}

// Controller owns the visible UI state. It is not safe for concurrent use;
// call it from the loop only.
type Controller struct {
	sched           Scheduler
	fadeDelay       time.Duration
	loaderHideDelay time.Duration

	valid       bool
	state       Snapshot
	fadeTimer   *loop.Timer
	loaderTimer *loop.Timer
}

// NewController creates a controller with the trigger disabled.
func NewController(sched Scheduler, fadeDelay, loaderHideDelay time.Duration) *Controller {
	c := &Controller{
		sched:           sched,
		fadeDelay:       fadeDelay,
		loaderHideDelay: loaderHideDelay,
	}
	c.state.Status.Opacity = 1
	c.state.Trigger.Text = TriggerIdleText
	c.syncTrigger()
	return c
}

// Snapshot returns the current visible state.
func (c *Controller) Snapshot() Snapshot {
	return c.state
}

// SetValid records whether selection and date currently allow a submission.
func (c *Controller) SetValid(valid bool) {
	c.valid = valid
	c.syncTrigger()
}

// CanSubmit reports whether the trigger is enabled.
func (c *Controller) CanSubmit() bool {
	return c.state.Trigger.Enabled
}

func (c *Controller) syncTrigger() {
	t := &c.state.Trigger
	t.Enabled = c.valid && !t.Loading
	t.Title = ""
	if !c.valid && !t.Loading {
		t.Title = TriggerHint
	}
}

// ShowLoading disables the trigger and covers the map while a session runs.
func (c *Controller) ShowLoading() {
	c.loaderTimer.Stop()
	c.state.Trigger.Loading = true
	c.state.Trigger.Text = TriggerLoadingText
	c.state.MapFaded = true
	c.state.MapBlocked = true
	c.state.LoaderVisible = true
	c.syncTrigger()
}

// HideLoading restores interactivity. The loader disappears after a short delay.
func (c *Controller) HideLoading() {
	c.state.Trigger.Loading = false
	c.state.Trigger.Text = TriggerIdleText
	c.state.MapFaded = false
	c.state.MapBlocked = false
	c.syncTrigger()

	c.loaderTimer.Stop()
	c.loaderTimer = c.sched.After(c.loaderHideDelay, func() {
		c.state.LoaderVisible = false
	})
}

// TransitionStatus fades the status label out, swaps the text, and fades it
// back in. A transition still in flight is replaced.
func (c *Controller) TransitionStatus(text string) {
	c.fadeTimer.Stop()
	c.state.Status.Opacity = 0
	c.state.Status.Transitions++
	c.fadeTimer = c.sched.After(c.fadeDelay, func() {
		c.state.Status.Text = text
		c.state.Status.Opacity = 1
	})
}

// SetStatus replaces the status text immediately, cancelling any fade.
func (c *Controller) SetStatus(text string) {
	c.fadeTimer.Stop()
	c.state.Status.Text = text
	c.state.Status.Opacity = 1
}

// ShowRegion implements selection.Label.
func (c *Controller) ShowRegion(flag, name string) {
	c.state.Region = RegionLabel{Visible: true, Flag: flag, Name: name}
}

// HideRegion implements selection.Label.
func (c *Controller) HideRegion() {
	c.state.Region = RegionLabel{}
}

// TogglePanel shows or hides the floating control panel.
func (c *Controller) TogglePanel() {
	c.state.PanelHidden = !c.state.PanelHidden
}

// RegionLabelMarkup renders the selected-region label, or nothing when hidden.
func (c *Controller) RegionLabelMarkup() templ.Component {
	label := c.state.Region
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		if !label.Visible {
			return nil
		}
		var b strings.Builder
		b.WriteString(`<span class="flag-emoji">`)
		b.WriteString(templ.EscapeString(label.Flag))
		b.WriteString(`</span> `)
		b.WriteString(templ.EscapeString(label.Name))
		_, err := io.WriteString(w, b.String())
		return err
	})
}
