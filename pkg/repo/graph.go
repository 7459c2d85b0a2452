// Package repo wraps the Neo4j driver with a batch-oriented graph writer:
// idempotent MERGE of node and relationship rows, the shape produced by the
// tabular exporter.
package repo

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// result is the minimal interface needed from a neo4j result.
type result interface {
	Next(ctx context.Context) bool
	Record() *neo4j.Record
}

// runner is the minimal interface needed from a neo4j session.
type runner interface {
	Run(ctx context.Context, cypher string, params map[string]any) (result, error)
	Close(ctx context.Context) error
}

// Graph is a batch writer over one Neo4j database.
type Graph struct {
	driver    neo4j.DriverWithContext
	batchSize int

	newSession func(ctx context.Context) runner // for testing
}

// GraphOption configures a Graph.
type GraphOption func(*Graph)

// WithBatchSize sets how many rows go into one UNWIND statement (default 500).
func WithBatchSize(n int) GraphOption {
	return func(g *Graph) { g.batchSize = n }
}

// NewGraph creates a graph writer on top of an open driver.
func NewGraph(driver neo4j.DriverWithContext, opts ...GraphOption) *Graph {
	g := &Graph{driver: driver, batchSize: 500}
	for _, o := range opts {
		o(g)
	}
	return g
}

// neo4jSessionAdapter adapts neo4j.SessionWithContext to the runner interface.
type neo4jSessionAdapter struct {
	sess neo4j.SessionWithContext
}

func (a *neo4jSessionAdapter) Run(ctx context.Context, cypher string, params map[string]any) (result, error) {
	return a.sess.Run(ctx, cypher, params)
}

func (a *neo4jSessionAdapter) Close(ctx context.Context) error {
	return a.sess.Close(ctx)
}

func (g *Graph) session(ctx context.Context) runner {
	if g.newSession != nil {
		return g.newSession(ctx)
	}
	return &neo4jSessionAdapter{sess: g.driver.NewSession(ctx, neo4j.SessionConfig{})}
}

// MergeNodes upserts node rows under one label, keyed by the id property.
// Returns the number of rows written.
func (g *Graph) MergeNodes(ctx context.Context, label string, rows []map[string]any) (int, error) {
	ident, err := sanitizeIdent(label)
	if err != nil {
		return 0, err
	}
	cypher := fmt.Sprintf("UNWIND $rows AS row MERGE (n:%s {id: row.id}) SET n += row", ident)
	return g.runBatches(ctx, cypher, rows)
}

// MergeRelationships upserts directed edges of one type between nodes matched
// by id. Each row needs source_id, target_id, and a props map.
func (g *Graph) MergeRelationships(ctx context.Context, relType string, rows []map[string]any) (int, error) {
	ident, err := sanitizeIdent(relType)
	if err != nil {
		return 0, err
	}
	cypher := fmt.Sprintf(
		"UNWIND $rows AS row MATCH (a {id: row.source_id}) MATCH (b {id: row.target_id}) MERGE (a)-[r:%s]->(b) SET r += row.props",
		ident)
	return g.runBatches(ctx, cypher, rows)
}

func (g *Graph) runBatches(ctx context.Context, cypher string, rows []map[string]any) (int, error) {
	sess := g.session(ctx)
	defer sess.Close(ctx)

	written := 0
	for start := 0; start < len(rows); start += g.batchSize {
		end := min(start+g.batchSize, len(rows))
		if _, err := sess.Run(ctx, cypher, map[string]any{"rows": rows[start:end]}); err != nil {
			return written, err
		}
		written += end - start
	}
	return written, nil
}

// sanitizeIdent guards label and relationship-type interpolation: identifiers
// come from export file names, not user input, but Cypher has no parameter
// slot for them.
func sanitizeIdent(s string) (string, error) {
	if s == "" {
		return "", fmt.Errorf("repo: empty identifier")
	}
	for i, r := range s {
		ok := r == '_' ||
			(r >= 'A' && r <= 'Z') || (r >= 'a' && r <= 'z') ||
			(i > 0 && r >= '0' && r <= '9')
		if !ok {
			return "", fmt.Errorf("repo: invalid identifier %q", s)
		}
	}
	return s, nil
}
