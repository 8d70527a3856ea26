// Package mapview is a headless map surface: it keeps region outline styles,
// image overlays, and the viewport that an interactive map would display.
package mapview

import (
	"math"
	"slices"

	"github.com/couchcryptid/lightning-map/internal/domain"
	"github.com/couchcryptid/lightning-map/internal/render"
	"github.com/couchcryptid/lightning-map/internal/selection"
)

const (
	tileSize = 256
	maxZoom  = 18
	maxLat   = 85.0511287798
)

// Viewport is the visible map area.
type Viewport struct {
	Lat  float64
	Lon  float64
	Zoom int
}

// Overlay is an image layer placed over a bounding box.
type Overlay struct {
	URL     string
	Bounds  domain.BoundingBox
	Opacity float64
}

// SetOpacity implements render.Overlay.
func (o *Overlay) SetOpacity(opacity float64) {
	o.Opacity = opacity
}

// Map implements selection.Styler and render.Map. It is not safe for
// concurrent use; call it from the loop only.
type Map struct {
	width, height int

	styles   map[domain.Region]selection.Style
	order    []domain.Region
	overlays []*Overlay
	view     Viewport
}

// New creates a map of the given pixel size showing the default bounds.
func New(width, height int, regions []domain.Region) *Map {
	m := &Map{
		width:  width,
		height: height,
		styles: make(map[domain.Region]selection.Style, len(regions)),
		order:  slices.Clone(regions),
	}
	for _, r := range regions {
		m.styles[r] = selection.DefaultStyle
	}
	m.FitBounds(domain.DefaultBounds, 0)
	return m
}

// SetStyle implements selection.Styler.
func (m *Map) SetStyle(r domain.Region, s selection.Style) {
	if _, ok := m.styles[r]; !ok {
		m.order = append(m.order, r)
	}
	m.styles[r] = s
}

// BringToFront implements selection.Styler.
func (m *Map) BringToFront(r domain.Region) {
	i := slices.Index(m.order, r)
	if i < 0 {
		return
	}
	m.order = append(slices.Delete(m.order, i, i+1), r)
}

// Style returns the outline style of r.
func (m *Map) Style(r domain.Region) selection.Style {
	return m.styles[r]
}

// Front returns the region drawn on top, if any.
func (m *Map) Front() (domain.Region, bool) {
	if len(m.order) == 0 {
		return domain.Region{}, false
	}
	return m.order[len(m.order)-1], true
}

// AddImageOverlay implements render.Map.
func (m *Map) AddImageOverlay(url string, bounds domain.BoundingBox, opacity float64) render.Overlay {
	o := &Overlay{URL: url, Bounds: bounds, Opacity: opacity}
	m.overlays = append(m.overlays, o)
	return o
}

// RemoveOverlay implements render.Map.
func (m *Map) RemoveOverlay(o render.Overlay) {
	m.overlays = slices.DeleteFunc(m.overlays, func(x *Overlay) bool {
		return render.Overlay(x) == o
	})
}

// Overlays returns copies of the overlays in draw order.
func (m *Map) Overlays() []Overlay {
	out := make([]Overlay, len(m.overlays))
	for i, o := range m.overlays {
		out[i] = *o
	}
	return out
}

// View returns the current viewport.
func (m *Map) View() Viewport {
	return m.view
}

// FitBounds implements render.Map: it picks the largest whole zoom at which
// bounds fit inside the map with padding pixels on every side, and centres
// the view on them.
func (m *Map) FitBounds(bounds domain.BoundingBox, padding int) {
	x0, y0 := project(bounds.North, bounds.West)
	x1, y1 := project(bounds.South, bounds.East)

	w := float64(m.width - 2*padding)
	h := float64(m.height - 2*padding)
	dx, dy := math.Abs(x1-x0), math.Abs(y1-y0)

	zoom := maxZoom
	if w > 0 && h > 0 && (dx > 0 || dy > 0) {
		scale := math.Inf(1)
		if dx > 0 {
			scale = w / dx
		}
		if dy > 0 {
			scale = math.Min(scale, h/dy)
		}
		zoom = int(math.Floor(math.Log2(scale)))
	}
	zoom = max(0, min(zoom, maxZoom))

	lat, lon := unproject((x0+x1)/2, (y0+y1)/2)
	m.view = Viewport{Lat: lat, Lon: lon, Zoom: zoom}
}

// project converts WGS-84 to Web Mercator pixels at zoom 0.
func project(lat, lon float64) (float64, float64) {
	lat = math.Max(-maxLat, math.Min(maxLat, lat))
	phi := lat * math.Pi / 180
	x := (lon + 180) / 360 * tileSize
	y := (1 - math.Log(math.Tan(phi)+1/math.Cos(phi))/math.Pi) / 2 * tileSize
	return x, y
}

func unproject(x, y float64) (float64, float64) {
	lon := x/tileSize*360 - 180
	n := math.Pi * (1 - 2*y/tileSize)
	lat := 180 / math.Pi * math.Atan(math.Sinh(n))
	return lat, lon
}
