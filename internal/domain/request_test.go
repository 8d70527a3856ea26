package domain

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolutionProduct(t *testing.T) {
	assert.Equal(t, "daily_hires_density", HighResolution.Product())
	assert.Equal(t, "daily_lowres_density", LowResolution.Product())
}

func TestParseResolution(t *testing.T) {
	r, err := ParseResolution("hires")
	require.NoError(t, err)
	assert.Equal(t, HighResolution, r)

	r, err = ParseResolution("")
	require.NoError(t, err)
	assert.Equal(t, LowResolution, r)

	_, err = ParseResolution("ultra")
	require.Error(t, err)
}

func TestResolutionForProduct(t *testing.T) {
	r, ok := ResolutionForProduct(ProductHiRes)
	assert.True(t, ok)
	assert.Equal(t, HighResolution, r)

	_, ok = ResolutionForProduct("weekly")
	assert.False(t, ok)
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2024-03-01")
	require.NoError(t, err)
	assert.Equal(t, Date{Year: 2024, Month: time.March, Day: 1}, d)
	assert.Equal(t, "2024-03-01", d.String())
	assert.True(t, d.Valid())

	_, err = ParseDate("2024-02-30")
	require.Error(t, err)
}

func TestDateValid(t *testing.T) {
	assert.False(t, Date{}.Valid())
	assert.False(t, Date{Year: 2023, Month: time.February, Day: 29}.Valid())
	assert.True(t, Date{Year: 2024, Month: time.February, Day: 29}.Valid())
}

func TestYesterday(t *testing.T) {
	SetClock(clockwork.NewFakeClockAt(time.Date(2024, time.March, 1, 10, 0, 0, 0, time.UTC)))
	defer SetClock(nil)

	assert.Equal(t, Date{Year: 2024, Month: time.February, Day: 29}, Yesterday())
}

func TestFlagEmoji(t *testing.T) {
	assert.Equal(t, "🇵🇱", FlagEmoji("PL"))
	assert.Equal(t, "🇵🇱", FlagEmoji("pl"))
	assert.Empty(t, FlagEmoji(""))
	assert.Empty(t, FlagEmoji("POL"))
	assert.Empty(t, FlagEmoji("-9"))
}

func TestBoundingBoxCenter(t *testing.T) {
	lat, lon := DefaultBounds.Center()
	assert.InDelta(t, 52.0, lat, 1e-9)
	assert.InDelta(t, 19.0, lon, 1e-9)
	assert.False(t, DefaultBounds.Empty())
	assert.True(t, BoundingBox{}.Empty())
}
