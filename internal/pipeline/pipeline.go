// Package pipeline is the server side of the generation stream: it resolves
// the requested region, locates the generated artifact, and emits progress
// frames until a terminal frame.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/lightning-map/internal/domain"
	"github.com/couchcryptid/lightning-map/internal/observability"
	"github.com/couchcryptid/lightning-map/internal/region"
	sharedretry "github.com/couchcryptid/storm-data-shared/retry"
	"github.com/google/uuid"
)

// DefaultRegionCode names the region used when a request carries no country.
const DefaultRegionCode = "default"

// GeneratedDir is the artifact directory below the static root.
const GeneratedDir = "generated_maps"

// Regions resolves country codes.
type Regions interface {
	Lookup(code string) (domain.Region, error)
}

// Recorder receives one audit record per finished generation.
type Recorder interface {
	Record(ctx context.Context, rec domain.GenerationRecord) error
}

// Emit writes one frame to the client.
type Emit func(domain.Frame) error

// Pipeline serves generation requests from pre-generated artifacts.
type Pipeline struct {
	regions    Regions
	store      ArtifactStore
	urlPrefix  string
	stageDelay time.Duration
	recorder   Recorder
	logger     *slog.Logger
	metrics    *observability.Metrics
	served     atomic.Int64
}

// New creates a Pipeline serving artifacts from store, publishing their URLs
// below urlPrefix. recorder may be nil.
func New(regions Regions, store ArtifactStore, urlPrefix string, stageDelay time.Duration, recorder Recorder, logger *slog.Logger, metrics *observability.Metrics) *Pipeline {
	return &Pipeline{
		regions:    regions,
		store:      store,
		urlPrefix:  urlPrefix,
		stageDelay: stageDelay,
		recorder:   recorder,
		logger:     logger,
		metrics:    metrics,
	}
}

// CheckReadiness reports whether artifacts can be served.
func (p *Pipeline) CheckReadiness(ctx context.Context) error {
	return p.store.CheckReadiness(ctx)
}

// Served returns the number of generations that reached a terminal frame.
func (p *Pipeline) Served() int64 {
	return p.served.Load()
}

// Invalid records a request rejected before streaming began.
func (p *Pipeline) Invalid(ctx context.Context, err error) domain.Frame {
	frame := InvalidFrame(err)
	p.metrics.Generations.WithLabelValues("", domain.OutcomeInvalid).Inc()
	p.record(ctx, domain.GenerationRecord{
		ID:          uuid.NewString(),
		Outcome:     domain.OutcomeInvalid,
		Status:      frame.Status,
		CompletedAt: time.Now().UTC(),
	})
	return frame
}

// Run emits frames for req until a terminal frame has been written or ctx is
// cancelled. An error is returned only when emit fails or ctx ends early.
func (p *Pipeline) Run(ctx context.Context, req domain.GenerationRequest, emit Emit) error {
	start := time.Now()
	product := req.Resolution.Product()
	p.metrics.GenerationsInFlight.Inc()
	defer p.metrics.GenerationsInFlight.Dec()

	logger := p.logger.With("product", product, "country", req.Country, "date", req.Date.String())
	logger.Info("generation started")

	final, err := p.generate(ctx, req, emit)
	if err != nil {
		logger.Warn("generation aborted", "error", err)
		return err
	}
	if err := emit(final); err != nil {
		logger.Warn("generation aborted", "error", err)
		return err
	}
	p.served.Add(1)

	outcome := domain.OutcomeSuccess
	if final.Error {
		outcome = domain.OutcomeError
	}
	elapsed := time.Since(start)
	p.metrics.Generations.WithLabelValues(product, outcome).Inc()
	p.metrics.GenerationDuration.WithLabelValues(product).Observe(elapsed.Seconds())
	logger.Info("generation finished", "outcome", outcome, "status", final.Status, "duration", elapsed)

	p.record(ctx, domain.GenerationRecord{
		ID:          uuid.NewString(),
		Product:     product,
		Country:     req.Country,
		Date:        req.Date.String(),
		Outcome:     outcome,
		Status:      final.Status,
		URL:         final.URL,
		DurationMS:  elapsed.Milliseconds(),
		CompletedAt: time.Now().UTC(),
	})
	return nil
}

// generate emits the progress frames and returns the terminal frame.
func (p *Pipeline) generate(ctx context.Context, req domain.GenerationRequest, emit Emit) (domain.Frame, error) {
	if err := p.stage(ctx, emit, "Connecting to data store...", 2); err != nil {
		return domain.Frame{}, err
	}

	code := req.Country
	if code == "" {
		code = DefaultRegionCode
	} else if _, err := p.regions.Lookup(code); err != nil {
		if !errors.Is(err, region.ErrNotFound) {
			p.logger.Error("region lookup failed", "country", code, "error", err)
			return failure("an unexpected server error occurred."), nil
		}
		return failure(fmt.Sprintf("country with ISO code '%s' not found.", code)), nil
	}

	if err := p.stage(ctx, emit, "Searching for products...", 5); err != nil {
		return domain.Frame{}, err
	}

	art, err := p.store.Find(ctx, artifactName(req.Resolution.Product(), code, req.Date))
	if errors.Is(err, ErrArtifactNotFound) {
		return failure("no satellite products found for this period."), nil
	}
	if err != nil {
		p.logger.Error("artifact lookup failed", "error", err)
		return failure("an unexpected server error occurred."), nil
	}

	if err := p.stage(ctx, emit, fmt.Sprintf("filtering data for %s...", code), 96); err != nil {
		return domain.Frame{}, err
	}

	if art.Kind == domain.ResultTable {
		data, err := os.ReadFile(art.Path)
		if err == nil {
			_, err = domain.DecodeTable(data)
		}
		if err != nil {
			p.logger.Error("table artifact unreadable", "artifact", art.File, "error", err)
			return failure("an unexpected server error occurred."), nil
		}
		return domain.Frame{Status: "data filtered.", Progress: 100, Done: true, Type: domain.ResultTable, Data: data}, nil
	}

	return domain.Frame{
		Status:   "found cached map.",
		Progress: 100,
		Done:     true,
		Type:     domain.ResultImage,
		URL:      p.urlPrefix + "/" + GeneratedDir + "/" + art.File,
	}, nil
}

// stage emits a progress frame, then waits stageDelay.
func (p *Pipeline) stage(ctx context.Context, emit Emit, status string, progress int) error {
	if err := emit(domain.Frame{Status: status, Progress: progress}); err != nil {
		return err
	}
	if !sharedretry.SleepWithContext(ctx, p.stageDelay) {
		return ctx.Err()
	}
	return nil
}

func (p *Pipeline) record(ctx context.Context, rec domain.GenerationRecord) {
	if p.recorder == nil {
		return
	}
	if err := p.recorder.Record(ctx, rec); err != nil {
		p.metrics.RecordPublishErrors.Inc()
		p.logger.Warn("publish generation record failed", "id", rec.ID, "error", err)
	}
}

func failure(status string) domain.Frame {
	return domain.Frame{Status: status, Progress: 100, Done: true, Error: true}
}

// artifactName is the file stem of a generated artifact.
func artifactName(product, code string, date domain.Date) string {
	return fmt.Sprintf("overlay_%s_%s_%s", product, code, date.String())
}
