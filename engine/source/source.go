// Package source defines the contract every upstream client implements and
// the shared HTTP plumbing (timeouts, retry classification, instrumented
// transport) they are built on.
package source

import (
	"context"
	"fmt"

	"github.com/gridatlas/gridatlas/engine/model"
)

// Category is one named query scoped to one entity type within one source,
// e.g. "wind_turbines" within OSM. Filter is the declarative, source-specific
// selection expression; NodeType is the canonical type its records map to.
type Category struct {
	Name     string
	Filter   string
	NodeType model.NodeType
}

// Record is one raw upstream record: the source's native identifier, the flat
// field map the normalizer's mapping tables operate on, and the geometry when
// the upstream carries one.
type Record struct {
	NativeID string
	Fields   map[string]string
	Geometry *model.Geometry
}

// FetchResult is the outcome of one category fetch: all records across pages,
// plus the exact request descriptor used (required for dataset provenance).
type FetchResult struct {
	Records []Record
	Query   string
}

// Client is implemented once per upstream. Fetch issues the source-specific
// request for one category, pages through the result set, and returns the
// concatenated records. Fetch must not touch disk; export is a separate
// concern.
type Client interface {
	Name() string
	License() string
	Categories() []Category
	Fetch(ctx context.Context, cat Category) (FetchResult, error)
}

// CategoryError marks a category-level failure. The pipeline isolates it:
// remaining categories and sources keep running.
type CategoryError struct {
	Source   string
	Category string
	Wrapped  error
}

func (e *CategoryError) Error() string {
	return fmt.Sprintf("%s/%s: %s", e.Source, e.Category, e.Wrapped)
}

func (e *CategoryError) Unwrap() error { return e.Wrapped }
