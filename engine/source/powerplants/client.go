// Package powerplants fetches the WRI Global Power Plant Database and keeps
// the EU extract: plants in EU-27 member states by ISO3 country code.
package powerplants

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gridatlas/gridatlas/engine/model"
	"github.com/gridatlas/gridatlas/engine/source"
	"github.com/gridatlas/gridatlas/pkg/fn"
)

const (
	DefaultDataURL = "https://datasets.wri.org/private-admin/dataset/53623dfd-3df6-4f15-a091-67457cdb571f/resource/66bcdacc-3d0e-46ad-9271-a5a76b1853d2/download/globalpowerplantdatabasev130.zip"
	csvEntry       = "global_power_plant_database.csv"
)

// Categories: the database is one flat table of plants.
var Categories = []source.Category{
	{Name: "power_plants", Filter: "country in EU-27 (ISO3)", NodeType: model.TypePowerPlant},
}

// Config configures the power-plant client.
type Config struct {
	DataURL string
	Timeout time.Duration
	Retry   fn.RetryOpts
}

// Client downloads the zipped CSV in one request; no pagination upstream.
type Client struct {
	cfg    Config
	client *http.Client
}

// New creates a power-plant database client.
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

func (c *Client) Name() string                  { return "powerplants" }
func (c *Client) License() string               { return "CC BY 4.0" }
func (c *Client) Categories() []source.Category { return Categories }

// Fetch downloads the archive and returns one record per EU plant.
func (c *Client) Fetch(ctx context.Context, cat source.Category) (source.FetchResult, error) {
	result := fn.Retry(ctx, c.cfg.Retry, func(ctx context.Context) fn.Result[[]byte] {
		return fn.FromPair(source.FetchZipEntry(ctx, c.client, c.cfg.DataURL, csvEntry))
	})
	data, err := result.Unwrap()
	if err != nil {
		return source.FetchResult{}, &source.CategoryError{Source: c.Name(), Category: cat.Name, Wrapped: err}
	}
	rows, err := source.ParseCSV(data, ',')
	if err != nil {
		return source.FetchResult{}, &source.CategoryError{Source: c.Name(), Category: cat.Name, Wrapped: err}
	}

	records := fn.FilterMap(rows, plantRecord)
	return source.FetchResult{Records: records, Query: c.cfg.DataURL + "#" + cat.Filter}, nil
}

func plantRecord(row map[string]string) (source.Record, bool) {
	if _, ok := model.LookupCountry(row["country"]); !ok {
		return source.Record{}, false
	}
	id := row["gppd_idnr"]
	if id == "" {
		return source.Record{}, false
	}

	lon, errLon := strconv.ParseFloat(row["longitude"], 64)
	lat, errLat := strconv.ParseFloat(row["latitude"], 64)
	var geom *model.Geometry
	if errLon == nil && errLat == nil {
		geom = model.NewPoint(lon, lat)
	}

	return source.Record{
		NativeID: id,
		Fields: map[string]string{
			"name":               row["name"],
			"country":            row["country"],
			"capacity_mw":        row["capacity_mw"],
			"primary_fuel":       row["primary_fuel"],
			"owner":              row["owner"],
			"commissioning_year": row["commissioning_year"],
			"source":             row["source"],
		},
		Geometry: geom,
	}, true
}
