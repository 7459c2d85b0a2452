package pipeline

import (
	"context"
	"errors"
	"time"

	"log/slog"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/gridatlas/gridatlas/engine/export"
	"github.com/gridatlas/gridatlas/engine/geo"
	"github.com/gridatlas/gridatlas/engine/model"
	"github.com/gridatlas/gridatlas/engine/normalize"
	"github.com/gridatlas/gridatlas/engine/source"
	"github.com/gridatlas/gridatlas/pkg/fn"
	"github.com/gridatlas/gridatlas/pkg/metrics"
	"github.com/gridatlas/gridatlas/pkg/resilience"
)

// ErrAllSourcesFailed is returned by Run when every enabled source failed or
// the run was cancelled before any source could export.
var ErrAllSourcesFailed = errors.New("pipeline: every enabled source failed")

// NATS subjects for the optional event stream.
const (
	SubjectDatasetMetadata = "gridatlas.dataset.metadata"
	SubjectRunSummary      = "gridatlas.run.summary"
)

// Publisher emits a run event; nil disables publishing.
type Publisher func(ctx context.Context, subject string, v any) error

// Pipeline wires the source clients to the normalizer, attributor, and
// export writer.
type Pipeline struct {
	cfg     Config
	clients []source.Client
	writer  *export.Writer
	attr    *geo.Attributor
	log     *slog.Logger
	reg     *metrics.Registry
	publish Publisher
	tracer  trace.Tracer
	now     func() time.Time
}

// Option configures optional pipeline collaborators.
type Option func(*Pipeline)

// WithMetrics attaches a metrics registry.
func WithMetrics(reg *metrics.Registry) Option {
	return func(p *Pipeline) { p.reg = reg }
}

// WithPublisher attaches an event publisher.
func WithPublisher(pub Publisher) Option {
	return func(p *Pipeline) { p.publish = pub }
}

// WithClock overrides the timestamp source; fixed in tests.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

// New builds a pipeline over the given clients. Clients whose source is not
// enabled in cfg are ignored, so callers can always pass the full set.
func New(cfg Config, clients []source.Client, log *slog.Logger, opts ...Option) *Pipeline {
	cfg = cfg.withDefaults()
	p := &Pipeline{
		cfg:     cfg,
		clients: clients,
		writer:  export.NewWriter(cfg.OutputDir, log),
		attr:    geo.NewAttributor(log),
		log:     log,
		reg:     metrics.New(),
		tracer:  otel.Tracer("engine/pipeline"),
		now:     time.Now,
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Run executes one full pass: all enabled sources concurrently, each source
// either completing and writing its datasets or failing as a unit.
func (p *Pipeline) Run(ctx context.Context) (Summary, error) {
	summary := Summary{RunID: uuid.NewString(), StartedAt: p.now().UTC()}

	var enabled []source.Client
	for _, c := range p.clients {
		if p.cfg.Enabled(c.Name()) {
			enabled = append(enabled, c)
		}
	}
	p.log.Info("run starting", "run_id", summary.RunID, "sources", len(enabled))

	summary.Sources = fn.ParMap(enabled, p.cfg.SourceConcurrency, func(c source.Client) SourceReport {
		return p.runSource(ctx, c)
	})
	summary.FinishedAt = p.now().UTC()

	if p.publish != nil {
		if err := p.publish(ctx, SubjectRunSummary, summary); err != nil {
			p.log.Warn("summary publish failed", "error", err)
		}
	}
	if len(enabled) > 0 && summary.Succeeded() == 0 {
		return summary, ErrAllSourcesFailed
	}
	return summary, nil
}

// categoryResult carries one category through fetch and normalize.
type categoryResult struct {
	cat   source.Category
	query string
	count int
	out   normalize.Output
	err   error
}

func (p *Pipeline) runSource(ctx context.Context, client source.Client) SourceReport {
	name := client.Name()
	ctx, span := p.tracer.Start(ctx, "pipeline.source",
		trace.WithAttributes(attribute.String("source", name)))
	defer span.End()

	started := p.now()
	report := SourceReport{Source: name}
	breaker := resilience.NewBreaker(resilience.DefaultBreakerOpts)

	results := fn.ParMap(client.Categories(), p.cfg.CategoryConcurrency, func(cat source.Category) categoryResult {
		return p.runCategory(ctx, client, breaker, cat)
	})

	for _, r := range results {
		if r.err != nil {
			report.FailedCategories = append(report.FailedCategories, r.cat.Name)
			p.log.Warn("category failed", "source", name, "category", r.cat.Name, "error", r.err)
			p.counter("categories_failed_total", name).Inc()
			continue
		}
		report.Fetched += r.count
		report.Normalized += len(r.out.Nodes) + len(r.out.Relationships)
		report.Dropped += r.out.Dropped
	}
	p.counter("records_fetched_total", name).Add(int64(report.Fetched))
	p.counter("records_dropped_total", name).Add(int64(report.Dropped))

	// A cancelled source is abandoned wholesale: nothing is written.
	if err := ctx.Err(); err != nil {
		report.Error = err.Error()
		return report
	}
	if len(report.FailedCategories) == len(results) && len(results) > 0 {
		report.Error = "all categories failed"
		return report
	}

	if err := p.exportSource(ctx, client, results, &report); err != nil {
		p.log.Error("export failed", "source", name, "error", err)
		report.Error = err.Error()
		return report
	}

	p.histogram("source_duration_seconds", name).Since(started)
	p.log.Info("source complete", "source", name,
		"fetched", report.Fetched, "normalized", report.Normalized,
		"dropped", report.Dropped, "attributed", report.Attributed,
		"failed_categories", len(report.FailedCategories))
	return report
}

func (p *Pipeline) runCategory(ctx context.Context, client source.Client, breaker *resilience.Breaker, cat source.Category) categoryResult {
	ctx, span := p.tracer.Start(ctx, "pipeline.category",
		trace.WithAttributes(attribute.String("category", cat.Name)))
	defer span.End()

	mapping, ok := normalize.MappingFor(client.Name(), cat.Name)
	if !ok {
		return categoryResult{cat: cat, err: errors.New("no mapping registered")}
	}

	fetch := fn.TracedStage("pipeline.fetch", func(ctx context.Context, cat source.Category) fn.Result[source.FetchResult] {
		var fetched source.FetchResult
		err := breaker.Call(ctx, func(ctx context.Context) error {
			var err error
			fetched, err = client.Fetch(ctx, cat)
			return err
		})
		return fn.FromPair(fetched, err)
	})
	apply := fn.TracedStage("pipeline.normalize", fn.MapStage(func(fetched source.FetchResult) categoryResult {
		return categoryResult{
			cat:   cat,
			query: fetched.Query,
			count: len(fetched.Records),
			out:   normalize.Apply(p.log, mapping, fetched.Records),
		}
	}))

	res, err := fn.Then(fetch, apply)(ctx, cat).Unwrap()
	if err != nil {
		return categoryResult{cat: cat, err: err}
	}
	return res
}

// exportSource merges the source's category outputs into one batch, adds the
// country reference nodes and LOCATED_IN edges, and writes every dataset.
func (p *Pipeline) exportSource(ctx context.Context, client source.Client, results []categoryResult, report *SourceReport) error {
	name := client.Name()

	var batch model.Batch
	for _, r := range results {
		if r.err != nil {
			continue
		}
		batch.Nodes = append(batch.Nodes, r.out.Nodes...)
		batch.Relationships = append(batch.Relationships, r.out.Relationships...)
	}
	batch.Nodes = append(batch.Nodes, model.CountryNodes()...)

	attributed := p.attr.Attribute(batch.Nodes)
	report.Attributed = len(attributed)
	p.counter("nodes_attributed_total", name).Add(int64(len(attributed)))
	batch.Relationships = append(batch.Relationships, attributed...)

	batch.Nodes = fn.DedupeBy(batch.Nodes, func(n model.Node) string { return n.ID })
	batch.Relationships = fn.DedupeBy(batch.Relationships, func(r model.Relationship) string {
		return string(r.Type) + "|" + r.SourceID + "|" + r.TargetID
	})

	retrieved := p.now().UTC().Format(time.RFC3339)

	for _, r := range results {
		if r.err != nil || r.cat.NodeType == "" || !model.GeometryRequired(r.cat.NodeType) {
			continue
		}
		path, count, err := p.writer.WriteGeoJSON(name, r.cat.Name, r.out.Nodes)
		if err != nil {
			return err
		}
		p.writeMetadata(ctx, model.DatasetMetadata{
			Scope:              "source",
			Dataset:            r.cat.Name,
			NumberOfFeatures:   count,
			RetrievalTimestamp: retrieved,
			Source:             name,
			License:            client.License(),
			Query:              r.query,
			GeoJSONFile:        p.writer.Rel(path),
		})
	}

	paths, dropped, err := p.writer.WriteTables(name, batch)
	if err != nil {
		return err
	}
	report.Dropped += dropped

	files := make([]string, len(paths))
	for i, path := range paths {
		files[i] = p.writer.Rel(path)
	}
	p.writeMetadata(ctx, model.DatasetMetadata{
		Scope:              "source",
		Dataset:            "graph",
		NumberOfFeatures:   len(batch.Nodes) + len(batch.Relationships) - dropped,
		RetrievalTimestamp: retrieved,
		Source:             name,
		License:            client.License(),
		Query:              queryDescriptor(results),
		ExportFiles:        files,
	})
	return nil
}

func (p *Pipeline) writeMetadata(ctx context.Context, md model.DatasetMetadata) {
	if _, err := p.writer.WriteMetadata(md); err != nil {
		// The dataset itself was written; a missing metadata record is a
		// warning, not a source failure.
		p.log.Warn("metadata write failed", "source", md.Source, "dataset", md.Dataset, "error", err)
		return
	}
	if p.publish != nil {
		if err := p.publish(ctx, SubjectDatasetMetadata, md); err != nil {
			p.log.Warn("metadata publish failed", "source", md.Source, "dataset", md.Dataset, "error", err)
		}
	}
}

// queryDescriptor concatenates the per-category request descriptors for the
// source-level graph dataset.
func queryDescriptor(results []categoryResult) string {
	desc := ""
	for _, r := range results {
		if r.err != nil {
			continue
		}
		if desc != "" {
			desc += "; "
		}
		desc += r.cat.Name + ": " + r.query
	}
	return desc
}

func (p *Pipeline) counter(name, sourceName string) *metrics.Counter {
	return p.reg.Counter(metrics.WithLabels(name, "source", sourceName), "")
}

func (p *Pipeline) histogram(name, sourceName string) *metrics.Histogram {
	return p.reg.Histogram(metrics.WithLabels(name, "source", sourceName), "", nil)
}
