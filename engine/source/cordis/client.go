// Package cordis fetches the CORDIS Horizon 2020 projects dump: a zip of
// semicolon-delimited project and organization CSVs.
package cordis

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gridatlas/gridatlas/engine/model"
	"github.com/gridatlas/gridatlas/engine/source"
	"github.com/gridatlas/gridatlas/pkg/fn"
)

const (
	DefaultDataURL = "https://cordis.europa.eu/data/cordis-h2020projects-csv.zip"

	projectsEntry      = "project.csv"
	organizationsEntry = "organization.csv"
)

// Categories: projects become Project nodes; each organization row becomes an
// Organization node plus its PARTICIPATED_IN edge, so one organization active
// in several projects yields one node and several edges.
var Categories = []source.Category{
	{Name: "projects", Filter: projectsEntry, NodeType: model.TypeProject},
	{Name: "organizations", Filter: organizationsEntry, NodeType: model.TypeOrganization},
}

// Config configures the CORDIS client.
type Config struct {
	DataURL string
	Timeout time.Duration
	Retry   fn.RetryOpts
}

// Client downloads the archive once and serves both categories from it.
type Client struct {
	cfg    Config
	client *http.Client

	mu      sync.Mutex
	archive []byte
}

// New creates a CORDIS client.
func New(cfg Config) *Client {
	if cfg.DataURL == "" {
		cfg.DataURL = DefaultDataURL
	}
	if cfg.Retry.MaxAttempts == 0 {
		cfg.Retry = fn.DefaultRetry
	}
	cfg.Retry.Retryable = source.Retryable
	return &Client{cfg: cfg, client: source.NewHTTPClient(cfg.Timeout)}
}

func (c *Client) Name() string                  { return "cordis" }
func (c *Client) License() string               { return "European Union Open Data License" }
func (c *Client) Categories() []source.Category { return Categories }

// Fetch returns the records of one category from the cached archive.
func (c *Client) Fetch(ctx context.Context, cat source.Category) (source.FetchResult, error) {
	entry, err := c.fetchEntry(ctx, cat.Filter)
	if err != nil {
		return source.FetchResult{}, &source.CategoryError{Source: c.Name(), Category: cat.Name, Wrapped: err}
	}
	rows, err := source.ParseCSV(entry, ';')
	if err != nil {
		return source.FetchResult{}, &source.CategoryError{Source: c.Name(), Category: cat.Name, Wrapped: err}
	}

	var records []source.Record
	switch cat.Name {
	case "projects":
		records = fn.FilterMap(rows, projectRecord)
	case "organizations":
		records = fn.FilterMap(rows, organizationRecord)
	}
	return source.FetchResult{Records: records, Query: c.cfg.DataURL + "#" + cat.Filter}, nil
}

func (c *Client) fetchEntry(ctx context.Context, name string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.archive == nil {
		result := fn.Retry(ctx, c.cfg.Retry, func(ctx context.Context) fn.Result[[]byte] {
			return fn.FromPair(source.Get(ctx, c.client, c.cfg.DataURL))
		})
		data, err := result.Unwrap()
		if err != nil {
			return nil, err
		}
		c.archive = data
	}
	return source.ZipEntry(c.archive, name)
}

func projectRecord(row map[string]string) (source.Record, bool) {
	id := row["id"]
	if id == "" {
		return source.Record{}, false
	}
	return source.Record{
		NativeID: id,
		Fields: map[string]string{
			"acronym":             row["acronym"],
			"title":               row["title"],
			"start_date":          row["startDate"],
			"end_date":            row["endDate"],
			"ec_max_contribution": row["ecMaxContribution"],
			"total_cost":          row["totalCost"],
			"topics":              row["topics"],
		},
	}, true
}

func organizationRecord(row map[string]string) (source.Record, bool) {
	id := row["organisationID"]
	if id == "" {
		return source.Record{}, false
	}
	return source.Record{
		NativeID: id,
		Fields: map[string]string{
			"name":            row["name"],
			"short_name":      row["shortName"],
			"country":         row["country"],
			"vat_number":      row["vatNumber"],
			"city":            row["city"],
			"activity_type":   row["activityType"],
			"project_id":      row["projectID"],
			"role":            row["role"],
			"ec_contribution": row["ecContribution"],
		},
	}, true
}
