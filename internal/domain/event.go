package domain

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"
)

// ErrMalformedEvent is returned when a stream payload cannot be turned into a StreamEvent.
var ErrMalformedEvent = errors.New("malformed stream event")

// Result type tags carried on successful terminal frames.
const (
	ResultImage = "image"
	ResultTable = "table"
)

// Frame is the JSON object carried by one stream frame. The server encodes it
// directly; clients go through DecodeEvent.
type Frame struct {
	Status   string          `json:"status"`
	Progress int             `json:"progress,omitempty"`
	Done     bool            `json:"done"`
	Error    bool            `json:"error,omitempty"`
	Type     string          `json:"type,omitempty"`
	URL      string          `json:"url,omitempty"`
	Data     json.RawMessage `json:"data,omitempty"`
}

// StreamEvent is one decoded stream frame: Progress, Failure or Success.
type StreamEvent interface {
	// StatusText is the human-readable status carried by the frame.
	StatusText() string
	// Terminal reports whether the event ends its session.
	Terminal() bool
	streamEvent()
}

// Progress is a non-terminal status update.
type Progress struct {
	Status  string
	Percent int
}

// Failure is an application-level error reported by the server.
type Failure struct {
	Status string
}

// Success is a terminal event without the error flag.
type Success struct {
	Status string
	Result Result
}

func (e Progress) StatusText() string { return e.Status }
func (e Failure) StatusText() string  { return e.Status }
func (e Success) StatusText() string  { return e.Status }

func (Progress) Terminal() bool { return false }
func (Failure) Terminal() bool  { return true }
func (Success) Terminal() bool  { return true }

func (Progress) streamEvent() {}
func (Failure) streamEvent()  {}
func (Success) streamEvent()  {}

// Result is the artifact attached to a Success: EmptyResult, ImageResult or TableResult.
type Result interface {
	resultKind() string
}

// EmptyResult is a completed generation that produced nothing to display.
type EmptyResult struct{}

// ImageResult points at a raster overlay.
type ImageResult struct {
	URL string
}

// TableResult carries tabular data.
type TableResult struct {
	Table Table
}

func (EmptyResult) resultKind() string { return "" }
func (ImageResult) resultKind() string { return ResultImage }
func (TableResult) resultKind() string { return ResultTable }

// ResultKind returns the wire type tag of r, or "" for an empty result.
func ResultKind(r Result) string {
	if r == nil {
		return ""
	}
	return r.resultKind()
}

// wireFrame mirrors Frame but tolerates loosely typed flags and progress values.
type wireFrame struct {
	Status   string          `json:"status"`
	Progress json.Number     `json:"progress"`
	Done     truthy          `json:"done"`
	Error    truthy          `json:"error"`
	Type     string          `json:"type"`
	URL      string          `json:"url"`
	Data     json.RawMessage `json:"data"`
}

// DecodeEvent validates a frame payload. Any truthy error flag makes the event
// a Failure regardless of done.
func DecodeEvent(payload []byte) (StreamEvent, error) {
	var w wireFrame
	if err := json.Unmarshal(payload, &w); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}

	switch {
	case bool(w.Error):
		return Failure{Status: w.Status}, nil
	case !bool(w.Done):
		return Progress{Status: w.Status, Percent: percent(w.Progress)}, nil
	}

	switch w.Type {
	case ResultImage:
		if w.URL == "" {
			return nil, fmt.Errorf("%w: image result without url", ErrMalformedEvent)
		}
		return Success{Status: w.Status, Result: ImageResult{URL: w.URL}}, nil
	case ResultTable:
		if len(w.Data) == 0 || bytes.Equal(w.Data, []byte("null")) {
			return nil, fmt.Errorf("%w: table result without data", ErrMalformedEvent)
		}
		table, err := DecodeTable(w.Data)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
		}
		return Success{Status: w.Status, Result: TableResult{Table: table}}, nil
	case "":
		return Success{Status: w.Status, Result: EmptyResult{}}, nil
	default:
		return nil, fmt.Errorf("%w: unknown result type %q", ErrMalformedEvent, w.Type)
	}
}

func percent(n json.Number) int {
	if n == "" {
		return 0
	}
	f, err := n.Float64()
	if err != nil {
		return 0
	}
	return int(f)
}

// truthy decodes JSON booleans, numbers and strings the way a loosely typed
// client would: false, 0, "", and null are false.
type truthy bool

func (t *truthy) UnmarshalJSON(b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	switch x := v.(type) {
	case nil:
		*t = false
	case bool:
		*t = truthy(x)
	case float64:
		*t = x != 0
	case string:
		*t = x != ""
	default:
		*t = true
	}
	return nil
}

// Table is tabular result data with a stable column order.
type Table struct {
	Columns []string
	Rows    [][]any
}

// DecodeTable reads a JSON array of objects. Columns appear in first-seen key
// order; cells missing from a row are nil.
func DecodeTable(raw json.RawMessage) (Table, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	if err := expectDelim(dec, '['); err != nil {
		return Table{}, err
	}

	var (
		columns []string
		index   = map[string]int{}
		records []map[string]any
	)
	for dec.More() {
		if err := expectDelim(dec, '{'); err != nil {
			return Table{}, fmt.Errorf("table row %d: %w", len(records), err)
		}
		rec := map[string]any{}
		for dec.More() {
			tok, err := dec.Token()
			if err != nil {
				return Table{}, err
			}
			key, ok := tok.(string)
			if !ok {
				return Table{}, fmt.Errorf("table row %d: unexpected key %v", len(records), tok)
			}
			var v any
			if err := dec.Decode(&v); err != nil {
				return Table{}, fmt.Errorf("table row %d column %q: %w", len(records), key, err)
			}
			if _, seen := index[key]; !seen {
				index[key] = len(columns)
				columns = append(columns, key)
			}
			rec[key] = v
		}
		if err := expectDelim(dec, '}'); err != nil {
			return Table{}, err
		}
		records = append(records, rec)
	}
	if err := expectDelim(dec, ']'); err != nil {
		return Table{}, err
	}

	rows := make([][]any, len(records))
	for i, rec := range records {
		row := make([]any, len(columns))
		for k, v := range rec {
			row[index[k]] = v
		}
		rows[i] = row
	}
	return Table{Columns: columns, Rows: rows}, nil
}

func expectDelim(dec *json.Decoder, want json.Delim) error {
	tok, err := dec.Token()
	if err == io.EOF {
		return fmt.Errorf("expected %q, got end of input", want)
	}
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != want {
		return fmt.Errorf("expected %q, got %v", want, tok)
	}
	return nil
}

// CellText renders a table cell for display.
func CellText(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case json.Number:
		return x.String()
	case bool:
		return strconv.FormatBool(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	default:
		b, err := json.Marshal(x)
		if err != nil {
			return fmt.Sprint(x)
		}
		return string(b)
	}
}

// Generation outcomes recorded by the server.
const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
	OutcomeInvalid = "invalid"
)

// GenerationRecord is the audit entry written once a server-side generation finishes.
type GenerationRecord struct {
	ID          string    `json:"id"`
	Product     string    `json:"product"`
	Country     string    `json:"country,omitempty"`
	Date        string    `json:"date"`
	Outcome     string    `json:"outcome"`
	Status      string    `json:"status"`
	URL         string    `json:"url,omitempty"`
	DurationMS  int64     `json:"duration_ms"`
	CompletedAt time.Time `json:"completed_at"`
}
