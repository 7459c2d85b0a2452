package source

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const userAgent = "gridatlas/1.0 (energy infrastructure dataset builder)"

// maxBodySize caps in-memory response bodies. The GridKit and power-plant
// archives are tens of megabytes; anything past this is an upstream anomaly.
const maxBodySize = 512 << 20

// NewHTTPClient builds the instrumented HTTP client all sources share.
func NewHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	return &http.Client{
		Timeout:   timeout,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}
}

// HTTPError is a non-2xx response. Status drives retry classification.
type HTTPError struct {
	Status int
	URL    string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("http %d from %s", e.Status, e.URL)
}

// Retryable reports whether an error is a transient network failure worth
// another attempt: timeouts and 5xx/429 responses are, upstream rejections
// (other 4xx) and malformed responses are not.
func Retryable(err error) bool {
	var he *HTTPError
	if errors.As(err, &he) {
		return he.Status == http.StatusTooManyRequests || he.Status >= 500
	}
	var ne interface{ Timeout() bool }
	if errors.As(err, &ne) {
		return ne.Timeout()
	}
	return errors.Is(err, io.ErrUnexpectedEOF)
}

// Get fetches a URL and returns the response body.
func Get(ctx context.Context, client *http.Client, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	return do(client, req)
}

// PostForm posts URL-encoded values and returns the response body. Overpass
// takes its query this way.
func PostForm(ctx context.Context, client *http.Client, rawURL string, form url.Values) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rawURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return do(client, req)
}

func do(client *http.Client, req *http.Request) ([]byte, error) {
	req.Header.Set("User-Agent", userAgent)
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, &HTTPError{Status: resp.StatusCode, URL: req.URL.String()}
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return body, nil
}

// FetchZipEntry downloads a zip archive and returns the contents of the named
// entry. Name is matched by suffix so nested paths inside the archive work.
func FetchZipEntry(ctx context.Context, client *http.Client, rawURL, name string) ([]byte, error) {
	body, err := Get(ctx, client, rawURL)
	if err != nil {
		return nil, err
	}
	return ZipEntry(body, name)
}

// ZipEntry returns the contents of the named entry from an in-memory archive.
func ZipEntry(archive []byte, name string) ([]byte, error) {
	zr, err := zip.NewReader(bytes.NewReader(archive), int64(len(archive)))
	if err != nil {
		return nil, fmt.Errorf("open zip: %w", err)
	}
	for _, f := range zr.File {
		if strings.HasSuffix(f.Name, name) {
			rc, err := f.Open()
			if err != nil {
				return nil, err
			}
			defer rc.Close()
			data, err := io.ReadAll(io.LimitReader(rc, maxBodySize))
			if err != nil {
				return nil, fmt.Errorf("read %s: %w", f.Name, err)
			}
			return data, nil
		}
	}
	return nil, fmt.Errorf("zip entry %q not found", name)
}
