// Package entsoe derives the European TSO interconnection network from the
// ENTSO-E Transparency Platform: a pair is connected when a physical-flow
// document exists between its two areas for the current day.
package entsoe

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/gridatlas/gridatlas/engine/model"
	"github.com/gridatlas/gridatlas/engine/source"
	"github.com/gridatlas/gridatlas/pkg/fn"
	"golang.org/x/time/rate"
)

const DefaultBaseURL = "https://web-api.tp.entsoe.eu/api"

// minFlowBody filters the near-empty acknowledgement documents the API
// returns for pairs with no flow data.
const minFlowBody = 500

var ErrMissingToken = errors.New("entsoe: security token not configured")

// Categories: the static TSO registry plus the scanned interconnections.
var Categories = []source.Category{
	{Name: "tsos", Filter: "EU member states with an ENTSO-E area code", NodeType: model.TypeTSO},
	{Name: "interconnections", Filter: "documentType=A11 physical flow, all ordered area pairs"},
}

// Config configures the ENTSO-E client.
type Config struct {
	BaseURL string
	Token   string
	Timeout time.Duration
	// RatePerSec respects the platform's request quota.
	RatePerSec float64
	Retry      fn.RetryOpts

	// Now is the clock used for the flow-document period; fixed in tests.
	Now func() time.Time
}

// Client scans ordered country pairs. The scan is the category's page
// sequence and is strictly sequential.
type Client struct {
	cfg     Config
	client  *http.Client
	limiter *rate.Limiter
}

// New creates an ENTSO-E client.
func New(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.RatePerSec <= 0 {
		cfg.RatePerSec = 2
	}
	if cfg.Retry.MaxAttempts == 0 {
		cfg.Retry = fn.DefaultRetry
	}
	cfg.Retry.Retryable = source.Retryable
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Client{
		cfg:     cfg,
		client:  source.NewHTTPClient(cfg.Timeout),
		limiter: rate.NewLimiter(rate.Limit(cfg.RatePerSec), 1),
	}
}

func (c *Client) Name() string                  { return "tso" }
func (c *Client) License() string               { return "ENTSO-E Transparency Platform terms" }
func (c *Client) Categories() []source.Category { return Categories }

// Fetch serves both categories. The TSO registry is static and needs no
// network call; interconnections require the API token.
func (c *Client) Fetch(ctx context.Context, cat source.Category) (source.FetchResult, error) {
	switch cat.Name {
	case "tsos":
		return source.FetchResult{Records: tsoRecords(), Query: cat.Filter}, nil
	case "interconnections":
		return c.fetchInterconnections(ctx, cat)
	}
	return source.FetchResult{}, &source.CategoryError{Source: c.Name(), Category: cat.Name, Wrapped: errors.New("unknown category")}
}

func tsoRecords() []source.Record {
	var records []source.Record
	for _, country := range model.EUCountries {
		if country.EIC == "" {
			continue
		}
		records = append(records, source.Record{
			NativeID: country.ISO2,
			Fields: map[string]string{
				"country":   country.ISO2,
				"name":      country.Name,
				"area_code": country.EIC,
			},
		})
	}
	return records
}

func (c *Client) fetchInterconnections(ctx context.Context, cat source.Category) (source.FetchResult, error) {
	if c.cfg.Token == "" {
		return source.FetchResult{}, &source.CategoryError{Source: c.Name(), Category: cat.Name, Wrapped: ErrMissingToken}
	}

	day := c.cfg.Now().UTC().Format("20060102")
	var records []source.Record
	for _, from := range model.EUCountries {
		if from.EIC == "" {
			continue
		}
		for _, to := range model.EUCountries {
			if to.EIC == "" || from.ISO2 == to.ISO2 {
				continue
			}
			connected, err := c.probePair(ctx, day, from.EIC, to.EIC)
			if err != nil {
				return source.FetchResult{}, &source.CategoryError{Source: c.Name(), Category: cat.Name, Wrapped: err}
			}
			if !connected {
				continue
			}
			records = append(records, source.Record{
				NativeID: from.ISO2 + "->" + to.ISO2,
				Fields: map[string]string{
					"tso_from":       from.ISO2,
					"tso_to":         to.ISO2,
					"from_area_code": from.EIC,
					"to_area_code":   to.EIC,
					"status":         "Connected",
				},
			})
		}
	}
	query := fmt.Sprintf("%s?documentType=A11&periodStart=%s0000&periodEnd=%s2300", c.cfg.BaseURL, day, day)
	return source.FetchResult{Records: records, Query: query}, nil
}

// probePair asks for the physical-flow document of one ordered pair. A
// missing document (non-200 or a short acknowledgement body) means "not
// connected", which is data, not an error.
func (c *Client) probePair(ctx context.Context, day, fromArea, toArea string) (bool, error) {
	params := url.Values{
		"securityToken": {c.cfg.Token},
		"documentType":  {"A11"},
		"in_Domain":     {fromArea},
		"out_Domain":    {toArea},
		"periodStart":   {day + "0000"},
		"periodEnd":     {day + "2300"},
	}

	result := fn.Retry(ctx, c.cfg.Retry, func(ctx context.Context) fn.Result[[]byte] {
		if err := c.limiter.Wait(ctx); err != nil {
			return fn.Err[[]byte](err)
		}
		body, err := source.Get(ctx, c.client, c.cfg.BaseURL+"?"+params.Encode())
		if err != nil {
			var he *source.HTTPError
			if errors.As(err, &he) && he.Status >= 400 && he.Status < 500 && he.Status != http.StatusTooManyRequests {
				// No document for this pair.
				return fn.Ok[[]byte](nil)
			}
			return fn.Err[[]byte](err)
		}
		return fn.Ok(body)
	})
	body, err := result.Unwrap()
	if err != nil {
		return false, fmt.Errorf("pair %s->%s: %w", fromArea, toArea, err)
	}
	return len(body) > minFlowBody, nil
}
