package model

import "fmt"

// ValidateNode checks the invariants every exported node must satisfy: a
// non-empty deterministic id, a recognised type, and geometry present exactly
// when the type requires it.
func ValidateNode(n Node) error {
	if n.ID == "" {
		return ErrMissingID
	}
	if !ValidNodeTypes[n.Type] {
		return fmt.Errorf("%w: %q", ErrUnknownType, n.Type)
	}
	if GeometryRequired(n.Type) && n.Geometry == nil {
		return fmt.Errorf("%w for %s %s", ErrMissingGeometry, n.Type, n.ID)
	}
	if n.Geometry != nil {
		if _, ok := n.Geometry.RepresentativePoint(); !ok {
			return fmt.Errorf("%w for %s", ErrMissingGeometry, n.ID)
		}
	}
	return nil
}

// ValidateRelationship checks both endpoints of r exist in nodes, which must
// be keyed by node id. Used by the export writer to drop dangling edges.
func ValidateRelationship(r Relationship, nodes map[string]bool) error {
	if !nodes[r.SourceID] {
		return fmt.Errorf("%w: source %s", ErrDanglingEdge, r.SourceID)
	}
	if !nodes[r.TargetID] {
		return fmt.Errorf("%w: target %s", ErrDanglingEdge, r.TargetID)
	}
	return nil
}
