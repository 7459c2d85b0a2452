package repo

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

type fakeResult struct{}

func (fakeResult) Next(context.Context) bool { return false }
func (fakeResult) Record() *neo4j.Record     { return nil }

type fakeRunner struct {
	cypher  []string
	batches [][]map[string]any
	err     error
	closed  bool
}

func (f *fakeRunner) Run(_ context.Context, cypher string, params map[string]any) (result, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.cypher = append(f.cypher, cypher)
	rows, _ := params["rows"].([]map[string]any)
	f.batches = append(f.batches, rows)
	return fakeResult{}, nil
}

func (f *fakeRunner) Close(context.Context) error {
	f.closed = true
	return nil
}

func newFakeGraph(f *fakeRunner, batchSize int) *Graph {
	g := NewGraph(nil, WithBatchSize(batchSize))
	g.newSession = func(context.Context) runner { return f }
	return g
}

func TestMergeNodesBatches(t *testing.T) {
	f := &fakeRunner{}
	g := newFakeGraph(f, 2)

	rows := []map[string]any{
		{"id": "a"}, {"id": "b"}, {"id": "c"},
	}
	n, err := g.MergeNodes(context.Background(), "PowerPlant", rows)
	if err != nil {
		t.Fatal(err)
	}
	if n != 3 {
		t.Fatalf("written = %d, want 3", n)
	}
	if len(f.batches) != 2 || len(f.batches[0]) != 2 || len(f.batches[1]) != 1 {
		t.Fatalf("batches = %v", f.batches)
	}
	if !strings.Contains(f.cypher[0], "MERGE (n:PowerPlant {id: row.id})") {
		t.Fatalf("cypher = %q", f.cypher[0])
	}
	if !f.closed {
		t.Fatal("session not closed")
	}
}

func TestMergeRelationshipsCypher(t *testing.T) {
	f := &fakeRunner{}
	g := newFakeGraph(f, 500)

	rows := []map[string]any{{"source_id": "a", "target_id": "b", "props": map[string]any{}}}
	if _, err := g.MergeRelationships(context.Background(), "CONNECTS_TO", rows); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(f.cypher[0], "MERGE (a)-[r:CONNECTS_TO]->(b)") {
		t.Fatalf("cypher = %q", f.cypher[0])
	}
}

func TestSanitizeIdentRejectsInjection(t *testing.T) {
	for _, bad := range []string{"", "Power Plant", "X) DETACH DELETE (n", "1abc", "a-b"} {
		if _, err := sanitizeIdent(bad); err == nil {
			t.Errorf("sanitizeIdent(%q) accepted", bad)
		}
	}
	for _, good := range []string{"PowerPlant", "CONNECTS_TO", "T2", "_x"} {
		if _, err := sanitizeIdent(good); err != nil {
			t.Errorf("sanitizeIdent(%q) rejected: %v", good, err)
		}
	}
}

func TestRunBatchesPropagatesError(t *testing.T) {
	boom := errors.New("down")
	f := &fakeRunner{err: boom}
	g := newFakeGraph(f, 10)
	_, err := g.MergeNodes(context.Background(), "X", []map[string]any{{"id": "a"}})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v", err)
	}
}
