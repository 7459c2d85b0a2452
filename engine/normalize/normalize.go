package normalize

import (
	"log/slog"

	"github.com/gridatlas/gridatlas/engine/model"
	"github.com/gridatlas/gridatlas/engine/source"
	"github.com/gridatlas/gridatlas/pkg/fn"
)

// Output is the normalized form of one category's records.
type Output struct {
	Nodes         []model.Node
	Relationships []model.Relationship
	// Dropped counts records rejected by validation.
	Dropped int
}

// Apply runs a mapping over raw records. Invalid records are dropped with a
// warning, never fatal. Duplicate ids across records (border objects fetched
// from two country pages, repeated CSV rows) collapse last-seen-wins, and the
// same holds for relationships keyed by (type, source, target).
func Apply(log *slog.Logger, m Mapping, records []source.Record) Output {
	var out Output
	var derived []model.Node

	for _, rec := range records {
		if m.NodeType != "" {
			node := buildNode(m, rec)
			if err := model.ValidateNode(node); err != nil {
				out.Dropped++
				log.Warn("dropping invalid record",
					"id", node.ID, "type", string(m.NodeType), "error", err)
				continue
			}
			out.Nodes = append(out.Nodes, node)
		}
		for _, dr := range m.Derived {
			if node, ok := buildDerived(dr, rec); ok {
				derived = append(derived, node)
			}
		}
		for _, rr := range m.Rels {
			if rel, ok := buildRelationship(rr, rec); ok {
				out.Relationships = append(out.Relationships, rel)
			}
		}
	}

	out.Nodes = fn.DedupeBy(append(out.Nodes, derived...), func(n model.Node) string {
		return n.ID
	})
	out.Relationships = fn.DedupeBy(out.Relationships, func(r model.Relationship) string {
		return string(r.Type) + "|" + r.SourceID + "|" + r.TargetID
	})
	return out
}

func buildNode(m Mapping, rec source.Record) model.Node {
	return model.Node{
		ID:         m.IDPrefix + rec.NativeID,
		Type:       m.NodeType,
		Geometry:   rec.Geometry,
		Properties: buildProps(m.Props, rec.Fields),
	}
}

func buildDerived(dr DerivedNodeRule, rec source.Record) (model.Node, bool) {
	key := rec.Fields[dr.KeyField]
	if key == "" {
		return model.Node{}, false
	}
	slug := slugify(key)
	if slug == "" {
		return model.Node{}, false
	}
	return model.Node{
		ID:         dr.IDPrefix + slug,
		Type:       dr.Type,
		Properties: buildProps(dr.Props, rec.Fields),
	}, true
}

func buildRelationship(rr RelRule, rec source.Record) (model.Relationship, bool) {
	for _, field := range rr.Required {
		if rec.Fields[field] == "" {
			return model.Relationship{}, false
		}
	}
	target := endpoint(rr.ToField, rec)
	if rr.ToSlug {
		target = slugify(target)
	}
	if target == "" {
		return model.Relationship{}, false
	}
	return model.Relationship{
		SourceID:   rr.FromPrefix + endpoint(rr.FromField, rec),
		TargetID:   rr.ToPrefix + target,
		Type:       rr.Type,
		Properties: buildProps(rr.Props, rec.Fields),
	}, true
}

// endpoint resolves a relationship endpoint fragment. Derived-node targets
// are slugified the same way the node ids were built.
func endpoint(field string, rec source.Record) string {
	if field == "" {
		return rec.NativeID
	}
	return rec.Fields[field]
}

// buildProps evaluates every rule so each node of a type carries the same key
// set, with nil for absent values. That keeps tabular exports rectangular.
func buildProps(rules []FieldRule, fields map[string]string) map[string]any {
	props := make(map[string]any, len(rules))
	for _, r := range rules {
		switch {
		case r.FromFields != nil:
			props[r.Key] = r.FromFields(fields)
		case r.Coerce != nil:
			props[r.Key] = r.Coerce(fields[r.From])
		default:
			props[r.Key] = AsString(fields[r.From])
		}
	}
	return props
}
