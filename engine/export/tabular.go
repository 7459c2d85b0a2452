package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"github.com/gridatlas/gridatlas/engine/model"
	"github.com/gridatlas/gridatlas/pkg/fn"
)

// WriteTables writes one CSV per node type and one per relationship type for
// a source's batch. Relationships with an endpoint missing from the batch are
// dropped with a warning; the dropped count is returned alongside the written
// paths. Rows are sorted and columns fixed per type, so identical input
// produces byte-identical files.
func (w *Writer) WriteTables(sourceName string, batch model.Batch) ([]string, int, error) {
	present := make(map[string]bool, len(batch.Nodes))
	for _, n := range batch.Nodes {
		present[n.ID] = true
	}

	dropped := 0
	rels := make([]model.Relationship, 0, len(batch.Relationships))
	for _, r := range batch.Relationships {
		if err := model.ValidateRelationship(r, present); err != nil {
			dropped++
			w.log.Warn("dropping relationship with missing endpoint",
				"source", sourceName, "rel_type", string(r.Type),
				"from", r.SourceID, "to", r.TargetID, "error", err)
			continue
		}
		rels = append(rels, r)
	}

	var paths []string
	for _, group := range groupSorted(batch.Nodes, func(n model.Node) string { return string(n.Type) }) {
		path := w.sourcePath(sourceName, "nodes_"+snake(group.key)+".csv")
		if err := writeNodeTable(path, group.items); err != nil {
			return nil, dropped, err
		}
		paths = append(paths, path)
	}
	for _, group := range groupSorted(rels, func(r model.Relationship) string { return string(r.Type) }) {
		path := w.sourcePath(sourceName, "rels_"+strings.ToLower(group.key)+".csv")
		if err := writeRelTable(path, group.items); err != nil {
			return nil, dropped, err
		}
		paths = append(paths, path)
	}
	return paths, dropped, nil
}

type group[T any] struct {
	key   string
	items []T
}

// groupSorted partitions items by key and returns the groups in key order.
func groupSorted[T any](items []T, key func(T) string) []group[T] {
	byKey := fn.GroupBy(items, key)
	keys := make([]string, 0, len(byKey))
	for k := range byKey {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	groups := make([]group[T], 0, len(keys))
	for _, k := range keys {
		groups = append(groups, group[T]{key: k, items: byKey[k]})
	}
	return groups
}

func writeNodeTable(path string, nodes []model.Node) error {
	cols := propColumns(nodes, func(n model.Node) map[string]any { return n.Properties })
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].ID < nodes[j].ID })

	return writeAtomic(path, func(out io.Writer) error {
		cw := csv.NewWriter(out)
		if err := cw.Write(append([]string{"id", "type"}, cols...)); err != nil {
			return err
		}
		for _, n := range nodes {
			row := append([]string{n.ID, string(n.Type)}, propRow(cols, n.Properties)...)
			if err := cw.Write(row); err != nil {
				return err
			}
		}
		cw.Flush()
		return cw.Error()
	})
}

func writeRelTable(path string, rels []model.Relationship) error {
	cols := propColumns(rels, func(r model.Relationship) map[string]any { return r.Properties })
	sort.Slice(rels, func(i, j int) bool {
		if rels[i].SourceID != rels[j].SourceID {
			return rels[i].SourceID < rels[j].SourceID
		}
		return rels[i].TargetID < rels[j].TargetID
	})

	return writeAtomic(path, func(out io.Writer) error {
		cw := csv.NewWriter(out)
		if err := cw.Write(append([]string{"source_id", "target_id", "type"}, cols...)); err != nil {
			return err
		}
		for _, r := range rels {
			row := append([]string{r.SourceID, r.TargetID, string(r.Type)}, propRow(cols, r.Properties)...)
			if err := cw.Write(row); err != nil {
				return err
			}
		}
		cw.Flush()
		return cw.Error()
	})
}

// propColumns is the sorted union of property keys across a group, so every
// row of a type shares one column set.
func propColumns[T any](items []T, props func(T) map[string]any) []string {
	seen := map[string]bool{}
	for _, item := range items {
		for k := range props(item) {
			seen[k] = true
		}
	}
	cols := make([]string, 0, len(seen))
	for k := range seen {
		cols = append(cols, k)
	}
	sort.Strings(cols)
	return cols
}

func propRow(cols []string, props map[string]any) []string {
	row := make([]string, len(cols))
	for i, c := range cols {
		row[i] = cell(props[c])
	}
	return row
}

// cell renders a scalar for CSV; null becomes the empty cell.
func cell(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprint(t)
	}
}

// snake converts a CamelCase type name to snake_case for file names.
func snake(s string) string {
	var b strings.Builder
	for i, r := range s {
		if unicode.IsUpper(r) {
			if i > 0 && !unicode.IsUpper(rune(s[i-1])) {
				b.WriteByte('_')
			}
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
