package render

import (
	"time"

	"github.com/a-h/templ"
	"github.com/couchcryptid/lightning-map/internal/loop"
)

// Scheduler runs delayed callbacks on the UI thread.
type Scheduler interface {
	After(d time.Duration, fn func()) *loop.Timer
}

// ModalState is the modal's transition phase.
type ModalState int

const (
	ModalHidden ModalState = iota
	ModalEntering
	ModalOpen
	ModalLeaving
)

func (s ModalState) String() string {
	switch s {
	case ModalEntering:
		return "entering"
	case ModalOpen:
		return "open"
	case ModalLeaving:
		return "leaving"
	default:
		return "hidden"
	}
}

// Target is the element a click landed on.
type Target int

const (
	TargetBackdrop Target = iota
	TargetClose
	TargetContent
)

// Modal presents table results over the map.
type Modal struct {
	sched      Scheduler
	enterDelay time.Duration
	exitDelay  time.Duration

	state   ModalState
	content templ.Component
	timer   *loop.Timer
}

// NewModal creates a hidden modal with the given enter and exit transition times.
func NewModal(sched Scheduler, enterDelay, exitDelay time.Duration) *Modal {
	return &Modal{sched: sched, enterDelay: enterDelay, exitDelay: exitDelay}
}

// State returns the transition phase.
func (m *Modal) State() ModalState {
	return m.state
}

// Visible reports whether the modal and its backdrop are on screen.
func (m *Modal) Visible() bool {
	return m.state != ModalHidden
}

// Content returns the markup currently shown, or nil when hidden.
func (m *Modal) Content() templ.Component {
	return m.content
}

// Show displays content, replacing whatever was shown.
func (m *Modal) Show(content templ.Component) {
	m.timer.Stop()
	m.content = content
	m.state = ModalEntering
	m.timer = m.sched.After(m.enterDelay, func() {
		m.state = ModalOpen
	})
}

// Hide starts the exit transition.
func (m *Modal) Hide() {
	if m.state == ModalHidden || m.state == ModalLeaving {
		return
	}
	m.timer.Stop()
	m.state = ModalLeaving
	m.timer = m.sched.After(m.exitDelay, func() {
		m.state = ModalHidden
		m.content = nil
	})
}

// Click handles a click on target. Clicks inside the content stop there;
// the backdrop and the close control dismiss the modal. Returns whether the
// click dismissed it.
func (m *Modal) Click(target Target) bool {
	switch target {
	case TargetBackdrop, TargetClose:
		if !m.Visible() || m.state == ModalLeaving {
			return false
		}
		m.Hide()
		return true
	default:
		return false
	}
}
