package pipeline

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/lightning-map/internal/domain"
	"github.com/couchcryptid/lightning-map/internal/request"
)

// ErrInvalidRequest marks query parameters that cannot form a generation request.
var ErrInvalidRequest = errors.New("invalid request")

// ParseRequest validates the generation query. country is optional.
func ParseRequest(q url.Values) (domain.GenerationRequest, error) {
	product := q.Get(request.KeyProduct)
	if product == "" {
		return domain.GenerationRequest{}, fmt.Errorf("%w: missing required parameters", ErrInvalidRequest)
	}
	res, ok := domain.ResolutionForProduct(product)
	if !ok {
		return domain.GenerationRequest{}, fmt.Errorf("%w: invalid product specified", ErrInvalidRequest)
	}

	year, err := intParam(q, request.KeyYear)
	if err != nil {
		return domain.GenerationRequest{}, err
	}
	month, err := intParam(q, request.KeyMonth)
	if err != nil {
		return domain.GenerationRequest{}, err
	}
	day, err := intParam(q, request.KeyDay)
	if err != nil {
		return domain.GenerationRequest{}, err
	}

	date := domain.Date{Year: year, Month: time.Month(month), Day: day}
	if !date.Valid() {
		return domain.GenerationRequest{}, fmt.Errorf("%w: day is out of range for month", ErrInvalidRequest)
	}

	return domain.GenerationRequest{
		Resolution: res,
		Date:       date,
		Country:    strings.ToUpper(strings.TrimSpace(q.Get(request.KeyCountry))),
	}, nil
}

func intParam(q url.Values, key string) (int, error) {
	s := q.Get(key)
	if s == "" {
		return 0, fmt.Errorf("%w: missing required parameters", ErrInvalidRequest)
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid literal for %s: '%s'", ErrInvalidRequest, key, s)
	}
	return n, nil
}

// InvalidFrame is the single frame answering a request that failed validation.
func InvalidFrame(err error) domain.Frame {
	return domain.Frame{Status: err.Error(), Progress: 100, Done: true, Error: true}
}
