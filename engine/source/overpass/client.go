// Package overpass fetches energy infrastructure from OpenStreetMap through
// the Overpass API, one area query per EU country per category.
package overpass

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gridatlas/gridatlas/engine/model"
	"github.com/gridatlas/gridatlas/engine/source"
	"github.com/gridatlas/gridatlas/pkg/fn"
	"golang.org/x/time/rate"
)

const DefaultBaseURL = "https://overpass-api.de/api/interpreter"

// Categories mirrors the energy-related OSM tag filters the pipeline tracks.
var Categories = []source.Category{
	{Name: "power_plants", Filter: `["power"="plant"]`, NodeType: model.TypePowerPlant},
	{Name: "wind_turbines", Filter: `["power"="generator"]["generator:source"="wind"]`, NodeType: model.TypeWindTurbine},
	{Name: "solar_farms", Filter: `["power"="generator"]["generator:source"="solar"]`, NodeType: model.TypeSolarFarm},
	{Name: "substations", Filter: `["power"="substation"]`, NodeType: model.TypeSubstation},
	{Name: "transmission_lines", Filter: `["power"="line"]`, NodeType: model.TypeTransmissionLine},
	{Name: "ev_charging_stations", Filter: `["amenity"="charging_station"]`, NodeType: model.TypeChargingStation},
}

// Config configures the Overpass client.
type Config struct {
	BaseURL   string
	Countries []model.Country // defaults to the EU-27
	Timeout   time.Duration
	// RatePerSec paces requests against the public Overpass instance.
	RatePerSec float64
	Retry      fn.RetryOpts
}

// Client issues Overpass area queries. One category is fetched as one page
// per country, sequentially in table order; records from all pages are
// concatenated. Border objects may appear on two pages and are collapsed
// downstream.
type Client struct {
	cfg     Config
	client  *http.Client
	limiter *rate.Limiter
}

// New creates an Overpass client.
func New(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if len(cfg.Countries) == 0 {
		cfg.Countries = model.EUCountries
	}
	if cfg.RatePerSec <= 0 {
		cfg.RatePerSec = 0.5
	}
	if cfg.Retry.MaxAttempts == 0 {
		cfg.Retry = fn.DefaultRetry
	}
	cfg.Retry.Retryable = source.Retryable
	return &Client{
		cfg:     cfg,
		client:  source.NewHTTPClient(cfg.Timeout),
		limiter: rate.NewLimiter(rate.Limit(cfg.RatePerSec), 1),
	}
}

func (c *Client) Name() string    { return "osm" }
func (c *Client) License() string { return "ODbL (Open Database License)" }

func (c *Client) Categories() []source.Category { return Categories }

// buildQuery assembles the Overpass QL for one country area. The provenance
// query descriptor uses the literal "{iso}" placeholder.
func buildQuery(iso, filter string) string {
	return fmt.Sprintf(`[out:json][timeout:300];
area["ISO3166-1"=%q][admin_level=2]->.searchArea;
(
  node(area.searchArea)%s;
  way(area.searchArea)%s;
  relation(area.searchArea)%s;
);
out center;`, iso, filter, filter, filter)
}

// Fetch retrieves one category across all configured countries.
func (c *Client) Fetch(ctx context.Context, cat source.Category) (source.FetchResult, error) {
	var records []source.Record
	for _, country := range c.cfg.Countries {
		page, err := c.fetchCountry(ctx, country.ISO2, cat.Filter)
		if err != nil {
			return source.FetchResult{}, &source.CategoryError{Source: c.Name(), Category: cat.Name, Wrapped: err}
		}
		records = append(records, page...)
	}
	return source.FetchResult{Records: records, Query: buildQuery("{iso}", cat.Filter)}, nil
}

type overpassResponse struct {
	Elements []element `json:"elements"`
}

type element struct {
	Type   string            `json:"type"`
	ID     int64             `json:"id"`
	Lat    float64           `json:"lat"`
	Lon    float64           `json:"lon"`
	Center *struct {
		Lat float64 `json:"lat"`
		Lon float64 `json:"lon"`
	} `json:"center"`
	Geometry []struct {
		Lat float64 `json:"lat"`
		Lon float64 `json:"lon"`
	} `json:"geometry"`
	Tags map[string]string `json:"tags"`
}

func (c *Client) fetchCountry(ctx context.Context, iso2, filter string) ([]source.Record, error) {
	query := buildQuery(iso2, filter)

	result := fn.Retry(ctx, c.cfg.Retry, func(ctx context.Context) fn.Result[*overpassResponse] {
		if err := c.limiter.Wait(ctx); err != nil {
			return fn.Err[*overpassResponse](err)
		}
		body, err := source.PostForm(ctx, c.client, c.cfg.BaseURL, url.Values{"data": {query}})
		if err != nil {
			return fn.Err[*overpassResponse](err)
		}
		var resp overpassResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			return fn.Errf[*overpassResponse]("decode overpass response: %w", err)
		}
		return fn.Ok(&resp)
	})
	resp, err := result.Unwrap()
	if err != nil {
		return nil, fmt.Errorf("country %s: %w", iso2, err)
	}

	records := make([]source.Record, 0, len(resp.Elements))
	for _, el := range resp.Elements {
		records = append(records, elementToRecord(el))
	}
	return records, nil
}

// elementToRecord flattens an Overpass element into the common record shape.
// Ways and relations carry an "out center" point; ways with a full geometry
// become LineStrings.
func elementToRecord(el element) source.Record {
	fields := make(map[string]string, len(el.Tags)+1)
	for k, v := range el.Tags {
		fields[k] = v
	}
	fields["osm_id"] = strconv.FormatInt(el.ID, 10)

	var geom *model.Geometry
	switch {
	case len(el.Geometry) >= 2:
		line := make([]model.Position, len(el.Geometry))
		for i, p := range el.Geometry {
			line[i] = model.Position{p.Lon, p.Lat}
		}
		geom = model.NewLineString(line)
	case el.Type == "node" && (el.Lat != 0 || el.Lon != 0):
		geom = model.NewPoint(el.Lon, el.Lat)
	case el.Center != nil:
		geom = model.NewPoint(el.Center.Lon, el.Center.Lat)
	}

	return source.Record{
		NativeID: el.Type + "/" + strconv.FormatInt(el.ID, 10),
		Fields:   fields,
		Geometry: geom,
	}
}

// String satisfies fmt.Stringer for log attributes.
func (c *Client) String() string {
	return "overpass(" + strings.TrimPrefix(c.cfg.BaseURL, "https://") + ")"
}
