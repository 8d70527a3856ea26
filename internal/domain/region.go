package domain

import "strings"

// BoundingBox is an axis-aligned WGS-84 box.
type BoundingBox struct {
	South float64 `json:"south"`
	West  float64 `json:"west"`
	North float64 `json:"north"`
	East  float64 `json:"east"`
}

// DefaultBounds frames the overlay when no region is selected.
var DefaultBounds = BoundingBox{South: 48.8, West: 13.8, North: 55.2, East: 24.2}

// Center returns the midpoint of the box as (lat, lon).
func (b BoundingBox) Center() (float64, float64) {
	return (b.South + b.North) / 2, (b.West + b.East) / 2
}

// Empty reports whether the box has no area.
func (b BoundingBox) Empty() bool {
	return b.North <= b.South || b.East <= b.West
}

// Region is one selectable shape from the boundary dataset.
type Region struct {
	Code   string
	Name   string
	Bounds BoundingBox
}

// regionalIndicatorOffset maps 'A' to U+1F1E6 REGIONAL INDICATOR SYMBOL LETTER A.
const regionalIndicatorOffset = 0x1F1E6 - 'A'

// FlagEmoji builds the flag glyph for a two-letter country code. Codes that are
// not exactly two ASCII letters yield an empty string.
func FlagEmoji(code string) string {
	if len(code) != 2 {
		return ""
	}
	upper := strings.ToUpper(code)
	var b strings.Builder
	for i := 0; i < len(upper); i++ {
		c := upper[i]
		if c < 'A' || c > 'Z' {
			return ""
		}
		b.WriteRune(rune(c) + regionalIndicatorOffset)
	}
	return b.String()
}
