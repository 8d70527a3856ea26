// Package request turns the user's form choices into /stream-generate query parameters.
package request

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/couchcryptid/lightning-map/internal/domain"
)

// Query keys recognised by the generation endpoint.
const (
	KeyProduct = "product"
	KeyYear    = "year"
	KeyMonth   = "month"
	KeyDay     = "day"
	KeyCountry = "country"
)

// Param is one query key/value pair.
type Param struct {
	Key   string
	Value string
}

// Params is an ordered parameter list. Order is not meaningful to the server
// but is stable so that identical inputs encode identically.
type Params []Param

// Build maps a resolution, date and optional country code to query
// parameters. The date must be valid; country is omitted when empty.
func Build(res domain.Resolution, date domain.Date, country string) Params {
	p := Params{
		{Key: KeyProduct, Value: res.Product()},
		{Key: KeyYear, Value: pad(date.Year, 4)},
		{Key: KeyMonth, Value: pad(int(date.Month), 2)},
		{Key: KeyDay, Value: pad(date.Day, 2)},
	}
	if country != "" {
		p = append(p, Param{Key: KeyCountry, Value: country})
	}
	return p
}

// FromRequest builds parameters for a GenerationRequest.
func FromRequest(req domain.GenerationRequest) Params {
	return Build(req.Resolution, req.Date, req.Country)
}

// Get returns the value of key, or "" if absent.
func (p Params) Get(key string) string {
	for _, kv := range p {
		if kv.Key == key {
			return kv.Value
		}
	}
	return ""
}

// Encode renders the parameters as a query string in list order.
func (p Params) Encode() string {
	var b strings.Builder
	for i, kv := range p {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(kv.Key))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(kv.Value))
	}
	return b.String()
}

func pad(n, width int) string {
	s := strconv.Itoa(n)
	if len(s) >= width {
		return s
	}
	return strings.Repeat("0", width-len(s)) + s
}
