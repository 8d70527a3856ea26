// Package region loads the selectable regions from a GeoJSON boundary dataset.
package region

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/couchcryptid/lightning-map/internal/domain"
	"github.com/paulmach/orb/geojson"
)

// Feature property names in the boundary dataset.
const (
	PropCode = "ISO3166-1-Alpha-2"
	PropName = "name"
)

// ErrNotFound is returned by Lookup for unknown codes.
var ErrNotFound = errors.New("region not found")

// Registry holds one Region per boundary feature, indexed by code.
type Registry struct {
	regions []domain.Region
	byCode  map[string]int
}

// Load reads a GeoJSON FeatureCollection from path.
func Load(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read boundaries: %w", err)
	}
	return Parse(data)
}

// Parse builds a registry from GeoJSON bytes. Features without a geometry or
// whose bounds have no area cannot be framed on the map and are skipped. Features without a usable code keep an empty code and can be
// displayed but not looked up.
func Parse(data []byte) (*Registry, error) {
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("decode boundaries: %w", err)
	}

	r := &Registry{byCode: make(map[string]int, len(fc.Features))}
	for _, f := range fc.Features {
		if f.Geometry == nil {
			continue
		}
		b := f.Geometry.Bound()
		reg := domain.Region{
			Code: normalizeCode(f.Properties.MustString(PropCode, "")),
			Name: f.Properties.MustString(PropName, "Unknown"),
			Bounds: domain.BoundingBox{
				South: b.Min.Lat(),
				West:  b.Min.Lon(),
				North: b.Max.Lat(),
				East:  b.Max.Lon(),
			},
		}
		if reg.Bounds.Empty() {
			continue
		}
		if reg.Code != "" {
			if _, dup := r.byCode[reg.Code]; dup {
				return nil, fmt.Errorf("duplicate region code %q", reg.Code)
			}
			r.byCode[reg.Code] = len(r.regions)
		}
		r.regions = append(r.regions, reg)
	}
	return r, nil
}

// New builds a registry from already loaded regions.
func New(regions ...domain.Region) *Registry {
	r := &Registry{byCode: make(map[string]int, len(regions))}
	for _, reg := range regions {
		reg.Code = normalizeCode(reg.Code)
		if reg.Code != "" {
			r.byCode[reg.Code] = len(r.regions)
		}
		r.regions = append(r.regions, reg)
	}
	return r
}

// Lookup returns the region with the given code (case-insensitive).
func (r *Registry) Lookup(code string) (domain.Region, error) {
	i, ok := r.byCode[normalizeCode(code)]
	if !ok {
		return domain.Region{}, fmt.Errorf("%w: %q", ErrNotFound, code)
	}
	return r.regions[i], nil
}

// All returns every region in dataset order.
func (r *Registry) All() []domain.Region {
	out := make([]domain.Region, len(r.regions))
	copy(out, r.regions)
	return out
}

// Codes returns the sorted list of lookup codes.
func (r *Registry) Codes() []string {
	codes := make([]string, 0, len(r.byCode))
	for c := range r.byCode {
		codes = append(codes, c)
	}
	sort.Strings(codes)
	return codes
}

// Len returns the number of regions.
func (r *Registry) Len() int {
	return len(r.regions)
}

// normalizeCode upper-cases the code and drops the dataset's "-99" placeholder.
func normalizeCode(code string) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "-99" {
		return ""
	}
	return code
}
