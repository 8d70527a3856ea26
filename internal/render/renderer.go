// Package render displays the artifact of a successful generation: an image
// overlay on the map or a table in a modal.
package render

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/couchcryptid/lightning-map/internal/domain"
	"github.com/jonboulle/clockwork"
)

// Overlay placement.
const (
	OverlayOpacity = 0.8
	FitPadding     = 50 // pixels on every side
)

// Overlay is a displayed image layer.
type Overlay interface {
	SetOpacity(opacity float64)
}

// Map is the map surface the renderer draws on.
type Map interface {
	AddImageOverlay(url string, bounds domain.BoundingBox, opacity float64) Overlay
	RemoveOverlay(o Overlay)
	FitBounds(bounds domain.BoundingBox, padding int)
}

// Renderer owns the single displayed overlay and the table modal.
type Renderer struct {
	m     Map
	modal *Modal
	clock clockwork.Clock
	layer Overlay
}

// New creates a renderer drawing on m and presenting tables in modal.
func New(m Map, modal *Modal, clock clockwork.Clock) *Renderer {
	return &Renderer{m: m, modal: modal, clock: clock}
}

// Modal returns the table modal.
func (r *Renderer) Modal() *Modal {
	return r.modal
}

// Overlay returns the displayed overlay, or nil.
func (r *Renderer) Overlay() Overlay {
	return r.layer
}

// Suppress hides the displayed overlay without removing it.
func (r *Renderer) Suppress() {
	if r.layer != nil {
		r.layer.SetOpacity(0)
	}
}

// Render displays res. bounds is the region the request was made for; nil or
// degenerate bounds fall back to the default bounds.
func (r *Renderer) Render(_ context.Context, res domain.Result, bounds *domain.BoundingBox) error {
	switch res := res.(type) {
	case domain.ImageResult:
		r.showImage(res.URL, bounds)
		return nil
	case domain.TableResult:
		r.modal.Show(Table(res.Table))
		return nil
	case domain.EmptyResult, nil:
		return nil
	default:
		return fmt.Errorf("unsupported result %T", res)
	}
}

func (r *Renderer) showImage(url string, bounds *domain.BoundingBox) {
	if r.layer != nil {
		r.m.RemoveOverlay(r.layer)
		r.layer = nil
	}

	box := domain.DefaultBounds
	if bounds != nil && !bounds.Empty() {
		box = *bounds
	}

	r.layer = r.m.AddImageOverlay(CacheBust(url, r.clock.Now().UnixMilli()), box, OverlayOpacity)
	r.m.FitBounds(box, FitPadding)
}

// CacheBust appends a t=<stamp> query parameter so a reused artifact URL is
// fetched fresh.
func CacheBust(url string, stamp int64) string {
	sep := "?"
	if strings.Contains(url, "?") {
		sep = "&"
	}
	return url + sep + "t=" + strconv.FormatInt(stamp, 10)
}
