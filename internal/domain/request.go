package domain

import (
	"fmt"
	"strings"
	"time"
)

// Resolution selects the fidelity of a generated product.
type Resolution int

const (
	LowResolution Resolution = iota
	HighResolution
)

// Server product identifiers, one per resolution.
const (
	ProductLowRes = "daily_lowres_density"
	ProductHiRes  = "daily_hires_density"
)

// Product returns the server product identifier for the resolution.
func (r Resolution) Product() string {
	if r == HighResolution {
		return ProductHiRes
	}
	return ProductLowRes
}

func (r Resolution) String() string {
	if r == HighResolution {
		return "hires"
	}
	return "lowres"
}

// ParseResolution accepts the form values "hires" and "lowres" (case-insensitive).
// An empty string means low resolution.
func ParseResolution(s string) (Resolution, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "hires", "high":
		return HighResolution, nil
	case "", "lowres", "low":
		return LowResolution, nil
	default:
		return LowResolution, fmt.Errorf("unknown resolution %q", s)
	}
}

// ResolutionForProduct maps a server product identifier back to its resolution.
func ResolutionForProduct(product string) (Resolution, bool) {
	switch product {
	case ProductHiRes:
		return HighResolution, true
	case ProductLowRes:
		return LowResolution, true
	default:
		return LowResolution, false
	}
}

// Date is a calendar day with no time-of-day or zone.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

const dateLayout = "2006-01-02"

// ParseDate parses an ISO date such as "2024-03-01".
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return DateOf(t), nil
}

// DateOf truncates t to its calendar day in t's location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// Yesterday is the initial date offered to the user.
func Yesterday() Date {
	return DateOf(clock.Now().AddDate(0, 0, -1))
}

// IsZero reports whether the date is unset.
func (d Date) IsZero() bool {
	return d == Date{}
}

// Valid reports whether the date names a real calendar day.
func (d Date) Valid() bool {
	if d.IsZero() || d.Year < 1 || d.Year > 9999 {
		return false
	}
	return DateOf(d.Time()) == d
}

// Time returns midnight UTC of the day.
func (d Date) Time() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// GenerationRequest is one submitted generation. Country is empty when no
// region is selected, in which case the server uses its default bounding box.
type GenerationRequest struct {
	Resolution Resolution
	Date       Date
	Country    string
}
