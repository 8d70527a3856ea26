package render

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/couchcryptid/lightning-map/internal/domain"
	"github.com/couchcryptid/lightning-map/internal/loop"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- fakes ---

type fakeOverlay struct {
	url     string
	bounds  domain.BoundingBox
	opacity float64
	removed bool
}

func (o *fakeOverlay) SetOpacity(v float64) { o.opacity = v }

type fakeMap struct {
	overlays []*fakeOverlay
	fitted   []domain.BoundingBox
	padding  int
}

func (m *fakeMap) AddImageOverlay(url string, b domain.BoundingBox, opacity float64) Overlay {
	o := &fakeOverlay{url: url, bounds: b, opacity: opacity}
	m.overlays = append(m.overlays, o)
	return o
}

func (m *fakeMap) RemoveOverlay(o Overlay) { o.(*fakeOverlay).removed = true }

func (m *fakeMap) FitBounds(b domain.BoundingBox, padding int) {
	m.fitted = append(m.fitted, b)
	m.padding = padding
}

var (
	plBounds = domain.BoundingBox{South: 49, West: 14.1, North: 54.8, East: 24.1}
	epoch    = time.UnixMilli(1709251200000)
)

func newRenderer(t *testing.T) (*Renderer, *fakeMap, *clockwork.FakeClock, *loop.Loop) {
	t.Helper()
	clock := clockwork.NewFakeClockAt(epoch)
	l := loop.New(clock)
	ctx, cancel := context.WithCancel(context.Background())
	go l.Run(ctx)
	t.Cleanup(func() {
		cancel()
		<-l.Done()
	})
	m := &fakeMap{}
	return New(m, NewModal(l, 10*time.Millisecond, 300*time.Millisecond), clock), m, clock, l
}

func onLoop(t *testing.T, l *loop.Loop, fn func()) {
	t.Helper()
	require.NoError(t, l.Do(context.Background(), fn))
}

// --- image ---

func TestRender_ImageFitsRegionBounds(t *testing.T) {
	r, m, _, l := newRenderer(t)

	onLoop(t, l, func() {
		assert.NoError(t, r.Render(context.Background(), domain.ImageResult{URL: "/img/1.png"}, &plBounds))
	})

	require.Len(t, m.overlays, 1)
	o := m.overlays[0]
	assert.Equal(t, "/img/1.png?t=1709251200000", o.url)
	assert.Equal(t, plBounds, o.bounds)
	assert.Equal(t, OverlayOpacity, o.opacity)
	assert.Equal(t, []domain.BoundingBox{plBounds}, m.fitted)
	assert.Equal(t, FitPadding, m.padding)
}

func TestRender_ImageDefaultBounds(t *testing.T) {
	r, m, _, l := newRenderer(t)

	onLoop(t, l, func() {
		assert.NoError(t, r.Render(context.Background(), domain.ImageResult{URL: "/img/1.png"}, nil))
	})

	require.Len(t, m.overlays, 1)
	assert.Equal(t, domain.DefaultBounds, m.overlays[0].bounds)
}

func TestRender_ImageDegenerateBoundsUseDefault(t *testing.T) {
	r, m, _, l := newRenderer(t)
	point := domain.BoundingBox{South: 52, West: 19, North: 52, East: 19}

	onLoop(t, l, func() {
		assert.NoError(t, r.Render(context.Background(), domain.ImageResult{URL: "/img/1.png"}, &point))
	})

	require.Len(t, m.overlays, 1)
	assert.Equal(t, domain.DefaultBounds, m.overlays[0].bounds)
	assert.Equal(t, []domain.BoundingBox{domain.DefaultBounds}, m.fitted)
}

func TestRender_ReplacesPreviousOverlayWithFreshURL(t *testing.T) {
	r, m, clock, l := newRenderer(t)

	onLoop(t, l, func() {
		assert.NoError(t, r.Render(context.Background(), domain.ImageResult{URL: "/img/1.png"}, &plBounds))
	})
	clock.Advance(time.Second)
	onLoop(t, l, func() {
		assert.NoError(t, r.Render(context.Background(), domain.ImageResult{URL: "/img/1.png"}, &plBounds))
	})

	require.Len(t, m.overlays, 2)
	assert.True(t, m.overlays[0].removed)
	assert.False(t, m.overlays[1].removed)
	assert.NotEqual(t, m.overlays[0].url, m.overlays[1].url, "same artifact must not hit a stale cache")
	assert.Same(t, m.overlays[1], r.Overlay())
}

func TestSuppress(t *testing.T) {
	r, m, _, l := newRenderer(t)

	onLoop(t, l, func() {
		r.Suppress() // nothing displayed yet
		assert.NoError(t, r.Render(context.Background(), domain.ImageResult{URL: "/a.png"}, nil))
		r.Suppress()
	})

	assert.Equal(t, 0.0, m.overlays[0].opacity)
	assert.False(t, m.overlays[0].removed, "suppressed overlays stay on the map")
}

func TestCacheBust(t *testing.T) {
	assert.Equal(t, "/a.png?t=5", CacheBust("/a.png", 5))
	assert.Equal(t, "/a.png?v=2&t=5", CacheBust("/a.png?v=2", 5))
}

func TestRender_EmptyResult(t *testing.T) {
	r, m, _, l := newRenderer(t)

	onLoop(t, l, func() {
		assert.NoError(t, r.Render(context.Background(), domain.EmptyResult{}, nil))
	})
	assert.Empty(t, m.overlays)
	assert.False(t, r.Modal().Visible())
}

// --- table + modal ---

func testTable(t *testing.T) domain.Table {
	t.Helper()
	table, err := domain.DecodeTable(json.RawMessage(`[{"hour":"00","flashes":12},{"hour":"01","flashes":3}]`))
	require.NoError(t, err)
	return table
}

func TestRender_TableOpensModal(t *testing.T) {
	r, m, clock, l := newRenderer(t)

	var html bytes.Buffer
	onLoop(t, l, func() {
		assert.NoError(t, r.Render(context.Background(), domain.TableResult{Table: testTable(t)}, nil))
		assert.Equal(t, ModalEntering, r.Modal().State())
		assert.True(t, r.Modal().Visible())
		assert.NoError(t, r.Modal().Content().Render(context.Background(), &html))
	})
	assert.Empty(t, m.overlays)
	assert.Equal(t,
		`<table class="result-table"><thead><tr><th>hour</th><th>flashes</th></tr></thead>`+
			`<tbody><tr><td>00</td><td>12</td></tr><tr><td>01</td><td>3</td></tr></tbody></table>`,
		html.String())

	clock.Advance(10 * time.Millisecond)
	require.Eventually(t, func() bool {
		var s ModalState
		_ = l.Do(context.Background(), func() { s = r.Modal().State() })
		return s == ModalOpen
	}, time.Second, 5*time.Millisecond)
}

func TestModal_ClickInsideDoesNotDismiss(t *testing.T) {
	r, _, _, l := newRenderer(t)

	onLoop(t, l, func() {
		assert.NoError(t, r.Render(context.Background(), domain.TableResult{Table: testTable(t)}, nil))
		assert.False(t, r.Modal().Click(TargetContent))
		assert.True(t, r.Modal().Visible())
	})
}

func TestModal_BackdropDismisses(t *testing.T) {
	r, _, clock, l := newRenderer(t)

	onLoop(t, l, func() {
		assert.NoError(t, r.Render(context.Background(), domain.TableResult{Table: testTable(t)}, nil))
		assert.True(t, r.Modal().Click(TargetBackdrop))
		assert.Equal(t, ModalLeaving, r.Modal().State())
		assert.False(t, r.Modal().Click(TargetClose), "already leaving")
	})

	clock.Advance(300 * time.Millisecond)
	require.Eventually(t, func() bool {
		var hidden bool
		_ = l.Do(context.Background(), func() { hidden = !r.Modal().Visible() && r.Modal().Content() == nil })
		return hidden
	}, time.Second, 5*time.Millisecond)
}

func TestModal_CloseControlDismisses(t *testing.T) {
	r, _, _, l := newRenderer(t)

	onLoop(t, l, func() {
		assert.False(t, r.Modal().Click(TargetClose), "hidden modal ignores clicks")
		assert.NoError(t, r.Render(context.Background(), domain.TableResult{Table: testTable(t)}, nil))
		assert.True(t, r.Modal().Click(TargetClose))
	})
}

func TestTable_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Table(domain.Table{}).Render(context.Background(), &buf))
	assert.Equal(t, `<p class="empty-result">No data.</p>`, buf.String())
}

func TestTable_EscapesCells(t *testing.T) {
	var buf bytes.Buffer
	table := domain.Table{Columns: []string{"<b>"}, Rows: [][]any{{"a&b"}}}
	require.NoError(t, Table(table).Render(context.Background(), &buf))
	assert.Contains(t, buf.String(), "<th>&lt;b&gt;</th>")
	assert.Contains(t, buf.String(), "<td>a&amp;b</td>")
}
