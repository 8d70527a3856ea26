// Package stream consumes the server-push channel of /stream-generate.
package stream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/couchcryptid/lightning-map/internal/domain"
	"github.com/couchcryptid/lightning-map/internal/request"
)

// DefaultPath is the generation endpoint.
const DefaultPath = "/stream-generate"

// ErrStreamEnded is reported when the channel closes before a terminal event.
var ErrStreamEnded = errors.New("stream ended before a terminal event")

// Update is one delivery from a subscription: either an event or the
// transport error that ended the channel.
type Update struct {
	Event domain.StreamEvent
	Err   error
}

// Client opens generation streams against a server.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the HTTP client. It must not have a Timeout shorter
// than a full generation; the default client has none.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		cl.httpClient = c
	}
}

// NewClient creates a stream client for the server at baseURL.
func NewClient(baseURL string, logger *slog.Logger, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{},
		logger:     logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// URL returns the stream URL for params.
func (c *Client) URL(params request.Params) string {
	return c.baseURL + DefaultPath + "?" + params.Encode()
}

// Subscription is one open channel. Close it to stop deliveries.
type Subscription struct {
	cancel context.CancelFunc
	closed atomic.Bool
	once   sync.Once
	done   chan struct{}
}

// Close stops the subscription. After Close returns no new delivery starts.
// Safe to call more than once.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.closed.Store(true)
		s.cancel()
	})
}

// Closed reports whether Close has been called.
func (s *Subscription) Closed() bool {
	return s.closed.Load()
}

// Done is closed when the reader goroutine has exited.
func (s *Subscription) Done() <-chan struct{} {
	return s.done
}

// Subscribe opens the channel in the background and calls deliver for each
// event, in arrival order, from a single goroutine. Reading stops after the
// first terminal event. A transport failure is delivered once as Update.Err.
// Nothing is delivered after Close.
func (c *Client) Subscribe(ctx context.Context, params request.Params, deliver func(Update)) *Subscription {
	ctx, cancel := context.WithCancel(ctx)
	sub := &Subscription{cancel: cancel, done: make(chan struct{})}

	go func() {
		defer close(sub.done)
		defer cancel()

		err := c.consume(ctx, params, func(ev domain.StreamEvent) bool {
			if sub.Closed() {
				return false
			}
			deliver(Update{Event: ev})
			return !ev.Terminal()
		})
		if err == nil || sub.Closed() || ctx.Err() != nil {
			return
		}
		c.logger.Warn("stream transport failure", "url", c.URL(params), "error", err)
		deliver(Update{Err: err})
	}()

	return sub
}

// consume reads events until handle returns false or the stream fails.
func (c *Client) consume(ctx context.Context, params request.Params, handle func(domain.StreamEvent) bool) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.URL(params), nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("open stream: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("stream status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if mt, _, err := mime.ParseMediaType(resp.Header.Get("Content-Type")); err != nil || mt != "text/event-stream" {
		return fmt.Errorf("unexpected content type %q", resp.Header.Get("Content-Type"))
	}

	dec := newDecoder(resp.Body)
	for {
		msg, err := dec.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return ErrStreamEnded
			}
			if errors.Is(err, io.ErrUnexpectedEOF) {
				return fmt.Errorf("%w: %v", ErrStreamEnded, err)
			}
			return fmt.Errorf("read stream: %w", err)
		}
		if msg.Event != "" && msg.Event != "message" {
			continue
		}

		ev, err := domain.DecodeEvent([]byte(msg.Data))
		if err != nil {
			return err
		}
		if !handle(ev) {
			return nil
		}
	}
}
