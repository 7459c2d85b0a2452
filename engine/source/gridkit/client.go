// Package gridkit fetches the GridKit European high-voltage grid extract: a
// zip archive of vertex and link CSVs hosted on Zenodo.
package gridkit

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gridatlas/gridatlas/engine/model"
	"github.com/gridatlas/gridatlas/engine/source"
	"github.com/gridatlas/gridatlas/pkg/fn"
)

const (
	// DefaultDataURL keeps the upstream's spelling of "euorpe".
	DefaultDataURL = "https://zenodo.org/records/47317/files/gridkit_euorpe.zip?download=1"

	verticesEntry = "gridkit_europe-highvoltage-vertices.csv"
	linksEntry    = "gridkit_europe-highvoltage-links.csv"
)

// Categories: grid vertices become GridNode entities; links carry no nodes of
// their own and normalize into CONNECTS_TO relationships.
var Categories = []source.Category{
	{Name: "grid_nodes", Filter: verticesEntry, NodeType: model.TypeGridNode},
	{Name: "grid_links", Filter: linksEntry},
}

// Config configures the GridKit client.
type Config struct {
	DataURL string
	Timeout time.Duration
	Retry   fn.RetryOpts
}

// Client downloads the archive once per run and serves both categories from
// it. The whole dataset is one page; there is no upstream pagination.
type Client struct {
	cfg    Config
	client *http.Client

	mu      sync.Mutex
	archive []byte
}

// New creates a GridKit client.
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

func (c *Client) Name() string                  { return "gridkit" }
func (c *Client) License() string               { return "ODbL" }
func (c *Client) Categories() []source.Category { return Categories }

// Fetch returns the records of one category. Both categories share the cached
// archive so the zip is downloaded at most once per run.
func (c *Client) Fetch(ctx context.Context, cat source.Category) (source.FetchResult, error) {
	entry, err := c.fetchEntry(ctx, cat.Filter)
	if err != nil {
		return source.FetchResult{}, &source.CategoryError{Source: c.Name(), Category: cat.Name, Wrapped: err}
	}
	rows, err := source.ParseCSV(entry, ',')
	if err != nil {
		return source.FetchResult{}, &source.CategoryError{Source: c.Name(), Category: cat.Name, Wrapped: err}
	}

	var records []source.Record
	switch cat.Name {
	case "grid_nodes":
		records = fn.FilterMap(rows, vertexRecord)
	case "grid_links":
		records = fn.FilterMap(rows, linkRecord)
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

func vertexRecord(row map[string]string) (source.Record, bool) {
	id := row["v_id"]
	if id == "" {
		return source.Record{}, false
	}
	lon, errLon := strconv.ParseFloat(row["lon"], 64)
	lat, errLat := strconv.ParseFloat(row["lat"], 64)
	var geom *model.Geometry
	if errLon == nil && errLat == nil {
		geom = model.NewPoint(lon, lat)
	}
	return source.Record{
		NativeID: id,
		Fields: map[string]string{
			"typ":       row["typ"],
			"frequency": row["frequency"],
			"voltage":   row["voltage"],
			"operator":  row["operator"],
			"name":      row["name"],
		},
		Geometry: geom,
	}, true
}

func linkRecord(row map[string]string) (source.Record, bool) {
	if row["v_id_1"] == "" || row["v_id_2"] == "" {
		return source.Record{}, false
	}
	id := row["l_id"]
	if id == "" {
		id = row["v_id_1"] + "-" + row["v_id_2"]
	}
	return source.Record{
		NativeID: id,
		Fields: map[string]string{
			"v_id_1":  row["v_id_1"],
			"v_id_2":  row["v_id_2"],
			"cables":  row["cables"],
			"voltage": row["voltage"],
			"wires":   row["wires"],
		},
	}, true
}
