package geo

import (
	"log/slog"
	"strings"

	"github.com/gridatlas/gridatlas/engine/model"
)

// Attributor resolves the member state a node belongs to and wires the
// LOCATED_IN edge to the corresponding country node.
type Attributor struct {
	log *slog.Logger
}

// NewAttributor creates an attributor logging unresolvable nodes at debug.
func NewAttributor(log *slog.Logger) *Attributor {
	return &Attributor{log: log}
}

// Locate resolves a node's country ISO2 code. A usable country property wins
// over coordinates; otherwise the node's representative point is tested
// against the boundary of every member state in ISO2 order.
func (a *Attributor) Locate(n model.Node) (string, bool) {
	if raw, ok := n.Properties["country"].(string); ok {
		if c, ok := model.LookupCountry(strings.TrimSpace(raw)); ok {
			return c.ISO2, true
		}
	}
	if n.Geometry == nil {
		return "", false
	}
	p, ok := n.Geometry.RepresentativePoint()
	if !ok {
		return "", false
	}
	for _, c := range model.EUCountries {
		if contains(boundaries[c.ISO2], p) {
			return c.ISO2, true
		}
	}
	return "", false
}

// Attribute emits one LOCATED_IN relationship per resolvable node. Country
// nodes themselves are skipped; nodes with no resolvable country simply get
// no edge.
func (a *Attributor) Attribute(nodes []model.Node) []model.Relationship {
	var rels []model.Relationship
	for _, n := range nodes {
		if n.Type == model.TypeCountry {
			continue
		}
		iso2, ok := a.Locate(n)
		if !ok {
			a.log.Debug("country attribution miss", "id", n.ID)
			continue
		}
		rels = append(rels, model.Relationship{
			SourceID: n.ID,
			TargetID: model.CountryNodeID(iso2),
			Type:     model.RelLocatedIn,
		})
	}
	return rels
}
