package overpass

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gridatlas/gridatlas/engine/model"
	"github.com/gridatlas/gridatlas/engine/source"
	"github.com/gridatlas/gridatlas/pkg/fn"
)

const sampleResponse = `{"elements":[
  {"type":"node","id":101,"lat":52.5,"lon":13.4,"tags":{"power":"generator","generator:source":"wind"}},
  {"type":"way","id":202,"center":{"lat":52.6,"lon":13.5},"tags":{"power":"plant","name":"Kraftwerk"}},
  {"type":"way","id":303,"geometry":[{"lat":52.0,"lon":13.0},{"lat":52.1,"lon":13.1},{"lat":52.2,"lon":13.2}],"tags":{"power":"line","voltage":"380000"}}
]}`

func testConfig(url string) Config {
	return Config{
		BaseURL:    url,
		Countries:  []model.Country{{Name: "Germany", ISO2: "DE", ISO3: "DEU"}},
		Timeout:    time.Second,
		RatePerSec: 1000,
		Retry:      fn.RetryOpts{MaxAttempts: 3, InitialWait: time.Millisecond, MaxWait: time.Millisecond},
	}
}

func TestFetchParsesElements(t *testing.T) {
	var queries []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		queries = append(queries, r.Form.Get("data"))
		w.Write([]byte(sampleResponse))
	}))
	defer srv.Close()

	c := New(testConfig(srv.URL))
	res, err := c.Fetch(context.Background(), Categories[1]) // wind_turbines
	require.NoError(t, err)
	require.Len(t, res.Records, 3)

	node := res.Records[0]
	assert.Equal(t, "node/101", node.NativeID)
	assert.Equal(t, "101", node.Fields["osm_id"])
	assert.Equal(t, "wind", node.Fields["generator:source"])
	require.NotNil(t, node.Geometry)
	assert.Equal(t, model.GeometryPoint, node.Geometry.Type)
	assert.Equal(t, model.Position{13.4, 52.5}, node.Geometry.Point)

	way := res.Records[1]
	assert.Equal(t, "way/202", way.NativeID)
	require.NotNil(t, way.Geometry)
	assert.Equal(t, model.Position{13.5, 52.6}, way.Geometry.Point, "out center point")

	line := res.Records[2]
	require.NotNil(t, line.Geometry)
	assert.Equal(t, model.GeometryLineString, line.Geometry.Type)
	assert.Len(t, line.Geometry.Line, 3)

	// One page per configured country, with the area pinned to its ISO code.
	require.Len(t, queries, 1)
	assert.Contains(t, queries[0], `area["ISO3166-1"="DE"]`)
	assert.Contains(t, queries[0], Categories[1].Filter)

	// The provenance descriptor keeps the placeholder, not a specific country.
	assert.Contains(t, res.Query, `area["ISO3166-1"="{iso}"]`)
}

func TestFetchRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			http.Error(w, "overloaded", http.StatusGatewayTimeout)
			return
		}
		w.Write([]byte(`{"elements":[]}`))
	}))
	defer srv.Close()

	c := New(testConfig(srv.URL))
	_, err := c.Fetch(context.Background(), Categories[0])
	require.NoError(t, err)
	assert.Equal(t, int32(3), calls.Load())
}

func TestFetchFailsCategoryOnBadRequest(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		http.Error(w, "bad query", http.StatusBadRequest)
	}))
	defer srv.Close()

	c := New(testConfig(srv.URL))
	_, err := c.Fetch(context.Background(), Categories[0])

	var catErr *source.CategoryError
	require.ErrorAs(t, err, &catErr)
	assert.Equal(t, "osm", catErr.Source)
	assert.Equal(t, "power_plants", catErr.Category)
	assert.Equal(t, int32(1), calls.Load(), "4xx must not be retried")
}

func TestFetchMalformedResponseNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.Write([]byte("<html>not json</html>"))
	}))
	defer srv.Close()

	c := New(testConfig(srv.URL))
	_, err := c.Fetch(context.Background(), Categories[0])
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestFetchConcatenatesCountryPages(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		if strings.Contains(r.Form.Get("data"), `"DE"`) {
			w.Write([]byte(`{"elements":[{"type":"node","id":1,"lat":52.5,"lon":13.4}]}`))
			return
		}
		w.Write([]byte(`{"elements":[{"type":"node","id":2,"lat":48.8,"lon":2.3}]}`))
	}))
	defer srv.Close()

	cfg := testConfig(srv.URL)
	cfg.Countries = []model.Country{
		{Name: "Germany", ISO2: "DE", ISO3: "DEU"},
		{Name: "France", ISO2: "FR", ISO3: "FRA"},
	}
	c := New(cfg)
	res, err := c.Fetch(context.Background(), Categories[3])
	require.NoError(t, err)
	require.Len(t, res.Records, 2)
	assert.Equal(t, "node/1", res.Records[0].NativeID)
	assert.Equal(t, "node/2", res.Records[1].NativeID)
}

func TestFetchCancelledContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"elements":[]}`))
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	c := New(testConfig(srv.URL))
	_, err := c.Fetch(ctx, Categories[0])
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled) || strings.Contains(err.Error(), "context canceled"))
}
