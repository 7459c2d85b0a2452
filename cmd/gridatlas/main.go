// Package main implements the one-shot gridatlas pipeline run: fetch every
// enabled source, normalize, attribute countries, and export GeoJSON plus
// graph-import tables under the output directory.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/gridatlas/gridatlas/engine/model"
	"github.com/gridatlas/gridatlas/engine/pipeline"
	"github.com/gridatlas/gridatlas/engine/source"
	"github.com/gridatlas/gridatlas/engine/source/cordis"
	"github.com/gridatlas/gridatlas/engine/source/entsoe"
	"github.com/gridatlas/gridatlas/engine/source/gridkit"
	"github.com/gridatlas/gridatlas/engine/source/overpass"
	"github.com/gridatlas/gridatlas/engine/source/powerplants"
	"github.com/gridatlas/gridatlas/pkg/metrics"
	"github.com/gridatlas/gridatlas/pkg/natsutil"
)

func envBool(key string) bool {
	v, err := strconv.ParseBool(os.Getenv(key))
	return err == nil && v
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg := pipeline.Config{
		RunOSM:         envBool("RUN_OSM"),
		RunGridKit:     envBool("RUN_GRIDKIT"),
		RunPowerPlants: envBool("RUN_POWERPLANTS"),
		RunTSO:         envBool("RUN_TSO"),
		RunCORDIS:      envBool("RUN_CORDIS"),
	}
	flag.BoolVar(&cfg.RunOSM, "osm", cfg.RunOSM, "fetch OpenStreetMap energy infrastructure")
	flag.BoolVar(&cfg.RunGridKit, "gridkit", cfg.RunGridKit, "fetch the GridKit transmission network")
	flag.BoolVar(&cfg.RunPowerPlants, "powerplants", cfg.RunPowerPlants, "fetch the global power plant database")
	flag.BoolVar(&cfg.RunTSO, "tso", cfg.RunTSO, "fetch the ENTSO-E TSO interconnection network")
	flag.BoolVar(&cfg.RunCORDIS, "cordis", cfg.RunCORDIS, "fetch CORDIS H2020 projects")
	flag.StringVar(&cfg.OutputDir, "output", envOr("OUTPUT_DIR", "output"), "export root directory")
	flag.IntVar(&cfg.SourceConcurrency, "source-concurrency", 3, "sources fetched in parallel")
	flag.IntVar(&cfg.CategoryConcurrency, "category-concurrency", 2, "categories fetched in parallel per source")

	var (
		countries   = flag.String("countries", "", "comma-separated ISO2 codes for OSM (default all EU-27)")
		timeout     = flag.Duration("timeout", 4*time.Hour, "run-level timeout")
		httpTimeout = flag.Duration("http-timeout", 10*time.Minute, "per-request timeout")
		metricsPort = flag.Int("metrics-port", 0, "serve /metrics on this port (0 disables)")
		natsURL     = flag.String("nats", os.Getenv("NATS_URL"), "publish run events to this NATS server (empty disables)")
		entsoeToken = flag.String("entsoe-token", os.Getenv("ENTSOE_TOKEN"), "ENTSO-E Transparency Platform token")
	)
	flag.Parse()

	if err := run(cfg, *countries, *timeout, *httpTimeout, *metricsPort, *natsURL, *entsoeToken, logger); err != nil {
		logger.Error("run failed", "error", err)
		os.Exit(1)
	}
}

func run(cfg pipeline.Config, countries string, timeout, httpTimeout time.Duration,
	metricsPort int, natsURL, entsoeToken string, logger *slog.Logger) error {

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var scope []model.Country
	if countries != "" {
		for _, key := range strings.Split(countries, ",") {
			c, ok := model.LookupCountry(key)
			if !ok {
				logger.Warn("skipping unknown country", "country", key)
				continue
			}
			scope = append(scope, c)
		}
	}

	clients := []source.Client{
		overpass.New(overpass.Config{Countries: scope, Timeout: httpTimeout}),
		gridkit.New(gridkit.Config{Timeout: httpTimeout}),
		powerplants.New(powerplants.Config{Timeout: httpTimeout}),
		entsoe.New(entsoe.Config{Token: entsoeToken, Timeout: httpTimeout}),
		cordis.New(cordis.Config{Timeout: httpTimeout}),
	}

	reg := metrics.New()
	if metricsPort > 0 {
		reg.ServeAsync(metricsPort)
	}

	opts := []pipeline.Option{pipeline.WithMetrics(reg)}
	if natsURL != "" {
		nc, err := nats.Connect(natsURL, nats.Name("gridatlas"))
		if err != nil {
			return err
		}
		defer nc.Drain()
		opts = append(opts, pipeline.WithPublisher(func(ctx context.Context, subject string, v any) error {
			return natsutil.Publish(ctx, nc, subject, v)
		}))
	}

	p := pipeline.New(cfg, clients, logger, opts...)
	summary, err := p.Run(ctx)

	for _, r := range summary.Sources {
		logger.Info("source summary", "source", r.Source,
			"fetched", r.Fetched, "normalized", r.Normalized,
			"dropped", r.Dropped, "attributed", r.Attributed,
			"failed_categories", r.FailedCategories, "error", r.Error)
	}
	logger.Info("run finished", "run_id", summary.RunID,
		"succeeded", summary.Succeeded(), "duration", summary.FinishedAt.Sub(summary.StartedAt).String())
	return err
}
