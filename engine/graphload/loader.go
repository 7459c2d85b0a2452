// Package graphload bulk-imports a finished tabular export into Neo4j. It
// reads the per-source node and relationship CSVs and MERGEs them, so loading
// the same export twice leaves the graph unchanged.
package graphload

import (
	"context"
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// graphWriter is the subset of the Neo4j repository the loader needs.
type graphWriter interface {
	MergeNodes(ctx context.Context, label string, rows []map[string]any) (int, error)
	MergeRelationships(ctx context.Context, relType string, rows []map[string]any) (int, error)
}

// Stats summarizes one load.
type Stats struct {
	Files         int
	Nodes         int
	Relationships int
}

// Loader streams export files into a graph writer.
type Loader struct {
	graph graphWriter
	log   *slog.Logger
}

// New creates a loader.
func New(graph graphWriter, log *slog.Logger) *Loader {
	return &Loader{graph: graph, log: log}
}

// LoadDir imports every node and relationship table under root, which is the
// export root holding one subdirectory per source. Node files are loaded
// before relationship files so MATCH finds both endpoints.
func (l *Loader) LoadDir(ctx context.Context, root string) (Stats, error) {
	var stats Stats

	nodeFiles, err := filepath.Glob(filepath.Join(root, "*", "nodes_*.csv"))
	if err != nil {
		return stats, err
	}
	relFiles, err := filepath.Glob(filepath.Join(root, "*", "rels_*.csv"))
	if err != nil {
		return stats, err
	}

	for _, path := range nodeFiles {
		n, err := l.loadNodeFile(ctx, path)
		if err != nil {
			return stats, fmt.Errorf("graphload: %s: %w", filepath.Base(path), err)
		}
		stats.Files++
		stats.Nodes += n
		l.log.Info("loaded nodes", "file", filepath.Base(path), "count", n)
	}
	for _, path := range relFiles {
		n, err := l.loadRelFile(ctx, path)
		if err != nil {
			return stats, fmt.Errorf("graphload: %s: %w", filepath.Base(path), err)
		}
		stats.Files++
		stats.Relationships += n
		l.log.Info("loaded relationships", "file", filepath.Base(path), "count", n)
	}
	return stats, nil
}

func (l *Loader) loadNodeFile(ctx context.Context, path string) (int, error) {
	header, records, err := readTable(path)
	if err != nil || len(records) == 0 {
		return 0, err
	}

	rows := make([]map[string]any, 0, len(records))
	label := ""
	for _, rec := range records {
		row := make(map[string]any, len(header))
		for i, col := range header {
			if i >= len(rec) || rec[i] == "" {
				continue
			}
			if col == "type" {
				label = rec[i]
				continue
			}
			row[col] = cellValue(rec[i])
		}
		rows = append(rows, row)
	}
	if label == "" {
		return 0, fmt.Errorf("no type column value")
	}
	return l.graph.MergeNodes(ctx, label, rows)
}

func (l *Loader) loadRelFile(ctx context.Context, path string) (int, error) {
	header, records, err := readTable(path)
	if err != nil || len(records) == 0 {
		return 0, err
	}

	rows := make([]map[string]any, 0, len(records))
	relType := ""
	for _, rec := range records {
		props := map[string]any{}
		row := map[string]any{"props": props}
		for i, col := range header {
			if i >= len(rec) || rec[i] == "" {
				continue
			}
			switch col {
			case "source_id", "target_id":
				row[col] = rec[i]
			case "type":
				relType = rec[i]
			default:
				props[col] = cellValue(rec[i])
			}
		}
		rows = append(rows, row)
	}
	if relType == "" {
		return 0, fmt.Errorf("no type column value")
	}
	return l.graph.MergeRelationships(ctx, relType, rows)
}

func readTable(path string) ([]string, [][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	all, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, nil, err
	}
	if len(all) == 0 {
		return nil, nil, nil
	}
	header := make([]string, len(all[0]))
	for i, h := range all[0] {
		header[i] = strings.TrimSpace(h)
	}
	return header, all[1:], nil
}

// cellValue restores the scalar a CSV cell was rendered from: numbers come
// back as float64, everything else stays a string.
func cellValue(s string) any {
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return s
}
