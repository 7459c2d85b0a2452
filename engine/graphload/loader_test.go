package graphload

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeGraph struct {
	nodes map[string][]map[string]any
	rels  map[string][]map[string]any
}

func newFakeGraph() *fakeGraph {
	return &fakeGraph{nodes: map[string][]map[string]any{}, rels: map[string][]map[string]any{}}
}

func (f *fakeGraph) MergeNodes(_ context.Context, label string, rows []map[string]any) (int, error) {
	f.nodes[label] = append(f.nodes[label], rows...)
	return len(rows), nil
}

func (f *fakeGraph) MergeRelationships(_ context.Context, relType string, rows []map[string]any) (int, error) {
	f.rels[relType] = append(f.rels[relType], rows...)
	return len(rows), nil
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestLoadDir(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "osm", "nodes_wind_turbine.csv"),
		"id,type,capacity,operator\n"+
			"osm:wind_turbines:node/1,WindTurbine,2.5,A\n"+
			"osm:wind_turbines:node/2,WindTurbine,,B\n")
	writeFile(t, filepath.Join(root, "osm", "rels_located_in.csv"),
		"source_id,target_id,type\n"+
			"osm:wind_turbines:node/1,country:DE,LOCATED_IN\n")

	g := newFakeGraph()
	loader := New(g, slog.New(slog.NewTextHandler(io.Discard, nil)))
	stats, err := loader.LoadDir(context.Background(), root)
	require.NoError(t, err)

	assert.Equal(t, Stats{Files: 2, Nodes: 2, Relationships: 1}, stats)

	turbines := g.nodes["WindTurbine"]
	require.Len(t, turbines, 2)
	assert.Equal(t, "osm:wind_turbines:node/1", turbines[0]["id"])
	assert.Equal(t, 2.5, turbines[0]["capacity"], "numeric cells come back as numbers")
	assert.NotContains(t, turbines[1], "capacity", "null cells are not stored")

	located := g.rels["LOCATED_IN"]
	require.Len(t, located, 1)
	assert.Equal(t, "country:DE", located[0]["target_id"])
}

func TestLoadDirEmptyRoot(t *testing.T) {
	loader := New(newFakeGraph(), slog.New(slog.NewTextHandler(io.Discard, nil)))
	stats, err := loader.LoadDir(context.Background(), t.TempDir())
	require.NoError(t, err)
	assert.Zero(t, stats.Files)
}
