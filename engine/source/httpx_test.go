package source

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "deadline exceeded" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestRetryableClassification(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"server error", &HTTPError{Status: 500}, true},
		{"bad gateway", &HTTPError{Status: 502}, true},
		{"rate limited", &HTTPError{Status: 429}, true},
		{"bad request", &HTTPError{Status: 400}, false},
		{"not found", &HTTPError{Status: 404}, false},
		{"timeout", timeoutErr{}, true},
		{"truncated body", io.ErrUnexpectedEOF, true},
		{"plain error", errors.New("parse failure"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Retryable(tt.err); got != tt.want {
				t.Fatalf("Retryable(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestGetSetsUserAgentAndReturnsBody(t *testing.T) {
	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		w.Write([]byte("payload"))
	}))
	defer srv.Close()

	body, err := Get(context.Background(), NewHTTPClient(time.Second), srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	if string(body) != "payload" {
		t.Fatalf("body = %q", body)
	}
	if gotUA != userAgent {
		t.Fatalf("user agent = %q", gotUA)
	}
}

func TestGetNon200IsHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "busy", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := Get(context.Background(), NewHTTPClient(time.Second), srv.URL)
	var he *HTTPError
	if !errors.As(err, &he) || he.Status != http.StatusServiceUnavailable {
		t.Fatalf("err = %v", err)
	}
}

func makeZip(t *testing.T, entries map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range entries {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := w.Write([]byte(content)); err != nil {
			t.Fatal(err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestZipEntryMatchesBySuffix(t *testing.T) {
	archive := makeZip(t, map[string]string{"nested/dir/data.csv": "a,b\n1,2\n"})

	data, err := ZipEntry(archive, "data.csv")
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "a,b\n1,2\n" {
		t.Fatalf("data = %q", data)
	}

	if _, err := ZipEntry(archive, "missing.csv"); err == nil {
		t.Fatal("expected error for missing entry")
	}
	if _, err := ZipEntry([]byte("not a zip"), "x"); err == nil {
		t.Fatal("expected error for malformed archive")
	}
}

func TestParseCSV(t *testing.T) {
	data := []byte("\"id\";name;value\n1;alpha;10\n2;beta\n3;gamma;30\n")
	rows, err := ParseCSV(data, ';')
	if err != nil {
		t.Fatal(err)
	}
	// The short row is skipped.
	if len(rows) != 2 {
		t.Fatalf("rows = %v", rows)
	}
	if rows[0]["id"] != "1" || rows[0]["name"] != "alpha" || rows[0]["value"] != "10" {
		t.Fatalf("row = %v", rows[0])
	}
	if rows[1]["id"] != "3" {
		t.Fatalf("row = %v", rows[1])
	}
}

func TestParseCSVEmptyInput(t *testing.T) {
	if _, err := ParseCSV(nil, ','); err == nil {
		t.Fatal("expected header error")
	}
}
