// Package model defines the canonical entity/relationship model shared by all
// sources, plus the EU country reference table. It acts as the validation gate
// between raw upstream records and the export writers.
package model

import (
	"encoding/json"
	"fmt"
)

// NodeType classifies a canonical entity.
type NodeType string

const (
	TypePowerPlant       NodeType = "PowerPlant"
	TypeWindTurbine      NodeType = "WindTurbine"
	TypeSolarFarm        NodeType = "SolarFarm"
	TypeSubstation       NodeType = "Substation"
	TypeTransmissionLine NodeType = "TransmissionLine"
	TypeChargingStation  NodeType = "ChargingStation"
	TypeGridNode         NodeType = "GridNode"
	TypeTSO              NodeType = "TSO"
	TypeProject          NodeType = "Project"
	TypeOrganization     NodeType = "Organization"
	TypeCountry          NodeType = "Country"
)

// ValidNodeTypes is the set of recognised node types.
var ValidNodeTypes = map[NodeType]bool{
	TypePowerPlant: true, TypeWindTurbine: true, TypeSolarFarm: true,
	TypeSubstation: true, TypeTransmissionLine: true, TypeChargingStation: true,
	TypeGridNode: true, TypeTSO: true, TypeProject: true,
	TypeOrganization: true, TypeCountry: true,
}

// GeometryRequired reports whether nodes of type t must carry a geometry.
// Relational-only types (Project, Organization, TSO, Country) never do.
func GeometryRequired(t NodeType) bool {
	switch t {
	case TypeProject, TypeOrganization, TypeTSO, TypeCountry:
		return false
	}
	return true
}

// RelType classifies a directed relationship.
type RelType string

const (
	RelLocatedIn      RelType = "LOCATED_IN"
	RelParticipatedIn RelType = "PARTICIPATED_IN"
	RelConnectsTo     RelType = "CONNECTS_TO"
	RelOwnedBy        RelType = "OWNED_BY"
)

// Position is a geographic coordinate pair in EPSG:4326, ordered lon, lat.
type Position [2]float64

func (p Position) Lon() float64 { return p[0] }
func (p Position) Lat() float64 { return p[1] }

// GeometryType is the shape of a Geometry.
type GeometryType string

const (
	GeometryPoint      GeometryType = "Point"
	GeometryLineString GeometryType = "LineString"
)

// Geometry is a Point or LineString in geographic coordinates.
type Geometry struct {
	Type  GeometryType
	Point Position   // set when Type == GeometryPoint
	Line  []Position // set when Type == GeometryLineString
}

// NewPoint builds a Point geometry from lon, lat.
func NewPoint(lon, lat float64) *Geometry {
	return &Geometry{Type: GeometryPoint, Point: Position{lon, lat}}
}

// NewLineString builds a LineString geometry. Positions are lon, lat pairs.
func NewLineString(line []Position) *Geometry {
	return &Geometry{Type: GeometryLineString, Line: line}
}

// RepresentativePoint returns the point used for country attribution: the
// point itself, or the midpoint vertex (index len/2) of a LineString. The
// midpoint-vertex rule means a cross-border line is attributed to the country
// its middle vertex falls in, which matches how transmission lines are
// conventionally assigned.
func (g *Geometry) RepresentativePoint() (Position, bool) {
	switch g.Type {
	case GeometryPoint:
		return g.Point, true
	case GeometryLineString:
		if len(g.Line) == 0 {
			return Position{}, false
		}
		return g.Line[len(g.Line)/2], true
	}
	return Position{}, false
}

// geometryJSON is the wire form of a Geometry.
type geometryJSON struct {
	Type        GeometryType    `json:"type"`
	Coordinates json.RawMessage `json:"coordinates"`
}

// MarshalJSON renders the standard {"type":...,"coordinates":...} shape.
func (g Geometry) MarshalJSON() ([]byte, error) {
	var coords any
	switch g.Type {
	case GeometryPoint:
		coords = g.Point
	case GeometryLineString:
		coords = g.Line
	default:
		return nil, fmt.Errorf("geometry: %w: %q", ErrUnknownGeometry, g.Type)
	}
	raw, err := json.Marshal(coords)
	if err != nil {
		return nil, err
	}
	return json.Marshal(geometryJSON{Type: g.Type, Coordinates: raw})
}

// UnmarshalJSON parses the standard geometry shape.
func (g *Geometry) UnmarshalJSON(data []byte) error {
	var wire geometryJSON
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	g.Type = wire.Type
	switch wire.Type {
	case GeometryPoint:
		return json.Unmarshal(wire.Coordinates, &g.Point)
	case GeometryLineString:
		return json.Unmarshal(wire.Coordinates, &g.Line)
	}
	return fmt.Errorf("geometry: %w: %q", ErrUnknownGeometry, wire.Type)
}

// Node is a typed canonical entity. Properties hold scalars only (string,
// float64, or nil); keys are fixed per type so tabular exports stay
// rectangular. IDs are deterministic: the upstream native identifier prefixed
// by source and category, never generated.
type Node struct {
	ID         string         `json:"id"`
	Type       NodeType       `json:"type"`
	Geometry   *Geometry      `json:"geometry,omitempty"`
	Properties map[string]any `json:"properties"`
}

// Relationship is a directed typed edge between two nodes of one export batch.
type Relationship struct {
	SourceID   string         `json:"source_id"`
	TargetID   string         `json:"target_id"`
	Type       RelType        `json:"type"`
	Properties map[string]any `json:"properties,omitempty"`
}

// Batch is the full set of nodes and relationships produced by one source in
// one run, merged from its categories before export.
type Batch struct {
	Nodes         []Node
	Relationships []Relationship
}

// DatasetMetadata is the provenance record written alongside each exported
// dataset. It is overwritten wholesale on every run.
type DatasetMetadata struct {
	Scope              string   `json:"scope"`
	Dataset            string   `json:"dataset"`
	NumberOfFeatures   int      `json:"number_of_features"`
	RetrievalTimestamp string   `json:"retrieval_timestamp"`
	Source             string   `json:"source"`
	License            string   `json:"license"`
	Query              string   `json:"query"`
	GeoJSONFile        string   `json:"geojson_file,omitempty"`
	ExportFiles        []string `json:"export_files,omitempty"`
}
