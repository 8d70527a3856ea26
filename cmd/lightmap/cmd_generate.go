package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/couchcryptid/lightning-map/internal/adapter/mapview"
	"github.com/couchcryptid/lightning-map/internal/app"
	"github.com/couchcryptid/lightning-map/internal/domain"
	"github.com/couchcryptid/lightning-map/internal/loop"
	"github.com/couchcryptid/lightning-map/internal/observability"
	"github.com/couchcryptid/lightning-map/internal/region"
	"github.com/couchcryptid/lightning-map/internal/session"
	"github.com/couchcryptid/lightning-map/internal/stream"
	"github.com/jonboulle/clockwork"
	"github.com/spf13/cobra"
)

const (
	// connectTimeout bounds the wait for the stream's response headers, not the generation.
	connectTimeout  = 30 * time.Second
	downloadTimeout = time.Minute
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Request a density map and save the result",
	Long: `Select a region, request a generation from the server, follow its progress,
and save the artifact: overlays are downloaded, tables are written as HTML.`,
	RunE: runGenerate,
}

func init() {
	generateCmd.Flags().StringP("country", "c", "", "ISO 3166-1 alpha-2 code of the region (required)")
	generateCmd.Flags().StringP("date", "d", "", "day to generate, YYYY-MM-DD (default yesterday)")
	generateCmd.Flags().StringP("resolution", "r", "lowres", "lowres or hires")
	generateCmd.Flags().String("server", "", "server base URL (overrides SERVER_URL)")
	generateCmd.Flags().StringP("out", "o", "", "output directory (overrides OUTPUT_DIR)")
	_ = generateCmd.MarkFlagRequired("country")
	rootCmd.AddCommand(generateCmd)
}

func runGenerate(cmd *cobra.Command, args []string) error {
	country, _ := cmd.Flags().GetString("country")
	dateFlag, _ := cmd.Flags().GetString("date")
	resFlag, _ := cmd.Flags().GetString("resolution")
	serverURL, _ := cmd.Flags().GetString("server")
	if serverURL == "" {
		serverURL = cfg.ServerURL
	}
	outDir, _ := cmd.Flags().GetString("out")
	if outDir == "" {
		outDir = cfg.OutputDir
	}

	date := domain.Yesterday()
	if dateFlag != "" {
		var err error
		if date, err = domain.ParseDate(dateFlag); err != nil {
			return err
		}
	}
	res, err := domain.ParseResolution(resFlag)
	if err != nil {
		return err
	}

	regions, err := region.Load(cfg.BoundariesPath)
	if err != nil {
		return fmt.Errorf("load regions: %w", err)
	}

	l := loop.New(clockwork.NewRealClock())
	surface := mapview.New(cfg.MapWidth, cfg.MapHeight, regions.All())
	client := stream.NewClient(serverURL, logger, stream.WithHTTPClient(&http.Client{
		Transport: &http.Transport{
			Proxy:                 http.ProxyFromEnvironment,
			ResponseHeaderTimeout: connectTimeout,
		},
	}))
	timings := app.Timings{
		FadeDelay:       cfg.FadeDelay,
		CompleteDelay:   cfg.CompleteDelay,
		LoaderHideDelay: cfg.LoaderHideDelay,
	}
	viewer := app.New(l, regions, surface, session.ClientOpener(client), timings, logger, observability.NewMetrics())

	outcomes := make(chan session.Outcome, 1)
	viewer.OnFinish(func(o session.Outcome) {
		select {
		case outcomes <- o:
		default:
		}
	})

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	go viewer.Run(ctx)

	if err := viewer.SetDate(ctx, date); err != nil {
		return err
	}
	if err := viewer.SetResolution(ctx, res); err != nil {
		return err
	}
	if err := viewer.Activate(ctx, country); err != nil {
		return err
	}
	id, err := viewer.Submit(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "session %s: %s %s %s\n", id, res.Product(), country, date)

	var o session.Outcome
	select {
	case o = <-outcomes:
	case <-ctx.Done():
		return ctx.Err()
	}

	switch o.State {
	case session.Succeeded:
	case session.TransportFailed:
		return fmt.Errorf("%s: %w", session.StatusConnectionError, o.Err)
	default:
		if o.Err != nil {
			return fmt.Errorf("generation failed: %w", o.Err)
		}
		return errors.New("generation failed: " + o.Status)
	}

	switch o.Result.(type) {
	case domain.ImageResult:
		return saveOverlay(ctx, cmd, l, surface, serverURL, outDir)
	case domain.TableResult:
		label, err := viewer.RegionLabelHTML(ctx)
		if err != nil {
			return err
		}
		table, err := viewer.ModalHTML(ctx)
		if err != nil {
			return err
		}
		html := "<h2>" + label + " " + date.String() + "</h2>\n" + table
		name := fmt.Sprintf("table_%s_%s_%s.html", res.Product(), country, date)
		path := filepath.Join(outDir, name)
		if err := os.MkdirAll(outDir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
		if err := os.WriteFile(path, []byte(html), 0o644); err != nil {
			return fmt.Errorf("write table: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s\ntable written to %s\n", o.Status, path)
	default:
		fmt.Fprintf(cmd.OutOrStdout(), "%s\nno artifact to save\n", o.Status)
	}
	return nil
}

// saveOverlay downloads the displayed overlay and reports the fitted view.
func saveOverlay(ctx context.Context, cmd *cobra.Command, l *loop.Loop, surface *mapview.Map, serverURL, outDir string) error {
	var (
		overlays []mapview.Overlay
		view     mapview.Viewport
	)
	if err := l.Do(ctx, func() {
		overlays = surface.Overlays()
		view = surface.View()
	}); err != nil {
		return err
	}
	if len(overlays) == 0 {
		return errors.New("no overlay displayed")
	}
	top := overlays[len(overlays)-1]

	fetcher, err := mapview.NewFetcher(serverURL, downloadTimeout, logger)
	if err != nil {
		return err
	}
	path, err := fetcher.Download(ctx, top.URL, outDir)
	if err != nil {
		return err
	}
	b := top.Bounds
	fmt.Fprintf(cmd.OutOrStdout(), "overlay saved to %s\nbounds %.4f,%.4f,%.4f,%.4f view %.4f,%.4f z%d\n",
		path, b.South, b.West, b.North, b.East, view.Lat, view.Lon, view.Zoom)
	return nil
}
