// Package selection tracks the single region the user has picked on the map.
package selection

import "github.com/couchcryptid/lightning-map/internal/domain"

// Style is the visual treatment of a region outline.
type Style struct {
	Weight      float64
	Color       string
	Opacity     float64
	FillOpacity float64
}

// Outline styles for the three visual states.
var (
	DefaultStyle  = Style{}
	HoverStyle    = Style{Weight: 2, Color: "#FFFFFF", Opacity: 1, FillOpacity: 0.1}
	SelectedStyle = Style{Weight: 2.5, Color: "#38bdf8", Opacity: 1, FillOpacity: 0.15}
)

// Styler applies outline styles to rendered regions.
type Styler interface {
	SetStyle(r domain.Region, s Style)
	BringToFront(r domain.Region)
}

// Label shows the selected region to the user.
type Label interface {
	ShowRegion(flag, name string)
	HideRegion()
}

// State is the machine state.
type State int

const (
	Empty State = iota
	Selected
)

func (s State) String() string {
	if s == Selected {
		return "selected"
	}
	return "empty"
}

// Machine holds zero or one selected region. Every transition touches at most
// the previously selected region and the one being acted on.
type Machine struct {
	styler   Styler
	label    Label
	selected *domain.Region
	onChange func()
}

// New creates an empty machine.
func New(styler Styler, label Label) *Machine {
	return &Machine{styler: styler, label: label}
}

// OnChange registers fn to run after every selection change.
func (m *Machine) OnChange(fn func()) {
	m.onChange = fn
}

// State returns Empty or Selected.
func (m *Machine) State() State {
	if m.selected == nil {
		return Empty
	}
	return Selected
}

// Selected returns the selected region, if any.
func (m *Machine) Selected() (domain.Region, bool) {
	if m.selected == nil {
		return domain.Region{}, false
	}
	return *m.selected, true
}

// Code returns the selected region's code, or "" when nothing is selected.
func (m *Machine) Code() string {
	if m.selected == nil {
		return ""
	}
	return m.selected.Code
}

// IsSelected reports whether r is the selected region.
func (m *Machine) IsSelected(r domain.Region) bool {
	return m.selected != nil && same(*m.selected, r)
}

// Hover highlights r unless it is the selected region.
func (m *Machine) Hover(r domain.Region) {
	if m.IsSelected(r) {
		return
	}
	m.styler.SetStyle(r, HoverStyle)
	m.styler.BringToFront(r)
}

// Unhover reverts the highlight on r unless it is the selected region.
func (m *Machine) Unhover(r domain.Region) {
	if m.IsSelected(r) {
		return
	}
	m.styler.SetStyle(r, DefaultStyle)
}

// Activate toggles r: re-activating the selected region clears the selection,
// activating any other region replaces it.
func (m *Machine) Activate(r domain.Region) {
	if m.IsSelected(r) {
		m.styler.SetStyle(r, DefaultStyle)
		m.selected = nil
		m.label.HideRegion()
		m.changed()
		return
	}

	if m.selected != nil {
		m.styler.SetStyle(*m.selected, DefaultStyle)
	}

	m.styler.SetStyle(r, SelectedStyle)
	m.styler.BringToFront(r)
	sel := r
	m.selected = &sel
	m.label.ShowRegion(domain.FlagEmoji(r.Code), displayName(r))
	m.changed()
}

func (m *Machine) changed() {
	if m.onChange != nil {
		m.onChange()
	}
}

func same(a, b domain.Region) bool {
	return a.Code == b.Code && a.Name == b.Name
}

func displayName(r domain.Region) string {
	if r.Name == "" {
		return "Unknown"
	}
	return r.Name
}
