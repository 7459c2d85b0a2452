// Package normalize turns raw source records into canonical nodes and
// relationships. Each (source, category) pair has one declarative mapping:
// which raw fields populate which property keys, how values are coerced, and
// how ids and implied relationships are constructed. Adding a source means
// adding mappings, not control flow.
package normalize

import (
	"sort"
	"strings"

	"github.com/gridatlas/gridatlas/engine/model"
)

// FieldRule maps one raw field onto one canonical property key. Exactly one
// of From or FromFields is used; FromFields is the escape hatch for values
// derived from several raw fields.
type FieldRule struct {
	Key        string
	From       string
	Coerce     Coerce
	FromFields func(map[string]string) any
}

// RelRule describes a relationship implied by a record's own attributes.
// Empty FromField means the record's native id. The rule is skipped when any
// Required raw field is empty.
type RelRule struct {
	Type       model.RelType
	FromPrefix string
	FromField  string
	ToPrefix   string
	ToField    string
	// ToSlug slugifies the target fragment, matching derived node ids.
	ToSlug   bool
	Props    []FieldRule
	Required []string
}

// DerivedNodeRule emits a secondary node keyed by a raw field, e.g. the
// owning organization embedded in a power-plant row. Skipped when KeyField is
// empty; the key is slugified into the id.
type DerivedNodeRule struct {
	Type     model.NodeType
	IDPrefix string
	KeyField string
	Props    []FieldRule
}

// Mapping is the full normalization recipe for one category. A mapping with
// an empty NodeType emits relationships only (link categories).
type Mapping struct {
	NodeType model.NodeType
	IDPrefix string
	Props    []FieldRule
	Rels     []RelRule
	Derived  []DerivedNodeRule
}

// capacityRules is the shared value+unit pair for OSM generator output tags.
func capacityRules(field string) []FieldRule {
	return []FieldRule{
		{Key: "capacity", FromFields: CapacityValue(field)},
		{Key: "capacity_unit", FromFields: CapacityUnit(field)},
	}
}

func osmRules(rules ...FieldRule) []FieldRule {
	return append([]FieldRule{{Key: "osm_id", From: "osm_id"}}, rules...)
}

// mappings is the registry, keyed by source name then category name.
var mappings = map[string]map[string]Mapping{
	"osm": {
		"power_plants": {
			NodeType: model.TypePowerPlant,
			IDPrefix: "osm:power_plants:",
			Props: osmRules(append([]FieldRule{
				{Key: "name", From: "name"},
				{Key: "operator", From: "operator"},
				{Key: "source", From: "plant:source"},
				{Key: "method", From: "plant:method"},
			}, capacityRules("plant:output:electricity")...)...),
		},
		"wind_turbines": {
			NodeType: model.TypeWindTurbine,
			IDPrefix: "osm:wind_turbines:",
			Props: osmRules(append([]FieldRule{
				{Key: "operator", From: "operator"},
				{Key: "manufacturer", From: "manufacturer"},
				{Key: "model", From: "model"},
				{Key: "source", From: "generator:source"},
				{Key: "method", From: "generator:method"},
				{Key: "rotor_diameter", From: "rotor:diameter", Coerce: AsNumber},
			}, capacityRules("generator:output:electricity")...)...),
		},
		"solar_farms": {
			NodeType: model.TypeSolarFarm,
			IDPrefix: "osm:solar_farms:",
			Props: osmRules(append([]FieldRule{
				{Key: "operator", From: "operator"},
				{Key: "source", From: "generator:source"},
				{Key: "method", From: "generator:method"},
			}, capacityRules("generator:output:electricity")...)...),
		},
		"substations": {
			NodeType: model.TypeSubstation,
			IDPrefix: "osm:substations:",
			Props: osmRules(
				FieldRule{Key: "name", From: "name"},
				FieldRule{Key: "operator", From: "operator"},
				FieldRule{Key: "voltage", From: "voltage", Coerce: AsNumber},
			),
		},
		"transmission_lines": {
			NodeType: model.TypeTransmissionLine,
			IDPrefix: "osm:transmission_lines:",
			Props: osmRules(
				FieldRule{Key: "name", From: "name"},
				FieldRule{Key: "operator", From: "operator"},
				FieldRule{Key: "voltage", From: "voltage", Coerce: AsNumber},
				FieldRule{Key: "circuits", From: "circuits", Coerce: AsNumber},
				FieldRule{Key: "cables", From: "cables", Coerce: AsNumber},
				FieldRule{Key: "wires", From: "wires"},
				FieldRule{Key: "start_date", From: "start_date"},
			),
		},
		"ev_charging_stations": {
			NodeType: model.TypeChargingStation,
			IDPrefix: "osm:ev_charging_stations:",
			Props: osmRules(
				FieldRule{Key: "name", From: "name"},
				FieldRule{Key: "operator", From: "operator"},
				FieldRule{Key: "capacity", From: "capacity", Coerce: AsNumber},
				FieldRule{Key: "opening_hours", From: "opening_hours"},
				FieldRule{Key: "phone", From: "phone"},
				FieldRule{Key: "website", From: "website"},
				FieldRule{Key: "socket_types", FromFields: socketTypes},
			),
		},
	},
	"gridkit": {
		"grid_nodes": {
			NodeType: model.TypeGridNode,
			IDPrefix: "gridkit:node:",
			Props: []FieldRule{
				{Key: "name", From: "name"},
				{Key: "typ", From: "typ"},
				{Key: "frequency", From: "frequency", Coerce: AsNumber},
				{Key: "voltage", From: "voltage", Coerce: AsNumber},
				{Key: "operator", From: "operator"},
			},
		},
		"grid_links": {
			Rels: []RelRule{{
				Type:       model.RelConnectsTo,
				FromPrefix: "gridkit:node:", FromField: "v_id_1",
				ToPrefix: "gridkit:node:", ToField: "v_id_2",
				Props: []FieldRule{
					{Key: "cables", From: "cables", Coerce: AsNumber},
					{Key: "voltage", From: "voltage", Coerce: AsNumber},
					{Key: "wires", From: "wires", Coerce: AsNumber},
				},
				Required: []string{"v_id_1", "v_id_2"},
			}},
		},
	},
	"powerplants": {
		"power_plants": {
			NodeType: model.TypePowerPlant,
			IDPrefix: "gppd:plant:",
			Props: []FieldRule{
				{Key: "name", From: "name"},
				{Key: "country", From: "country"},
				{Key: "capacity", From: "capacity_mw", Coerce: AsNumber},
				{Key: "capacity_unit", FromFields: ConstWhen("capacity_mw", "MW")},
				{Key: "fuel_type", From: "primary_fuel"},
				{Key: "owner", From: "owner"},
				{Key: "commissioning_year", From: "commissioning_year", Coerce: AsNumber},
				{Key: "source", From: "source"},
			},
			Derived: []DerivedNodeRule{{
				Type:     model.TypeOrganization,
				IDPrefix: "gppd:org:",
				KeyField: "owner",
				Props:    []FieldRule{{Key: "name", From: "owner"}},
			}},
			Rels: []RelRule{{
				Type:       model.RelOwnedBy,
				FromPrefix: "gppd:plant:",
				ToPrefix:   "gppd:org:", ToField: "owner", ToSlug: true,
				Required: []string{"owner"},
			}},
		},
	},
	"tso": {
		"tsos": {
			NodeType: model.TypeTSO,
			IDPrefix: "entsoe:tso:",
			Props: []FieldRule{
				{Key: "name", From: "name"},
				{Key: "country", From: "country"},
				{Key: "area_code", From: "area_code"},
			},
		},
		"interconnections": {
			Rels: []RelRule{{
				Type:       model.RelConnectsTo,
				FromPrefix: "entsoe:tso:", FromField: "tso_from",
				ToPrefix: "entsoe:tso:", ToField: "tso_to",
				Props: []FieldRule{
					{Key: "status", From: "status"},
					{Key: "from_area_code", From: "from_area_code"},
					{Key: "to_area_code", From: "to_area_code"},
				},
				Required: []string{"tso_from", "tso_to"},
			}},
		},
	},
	"cordis": {
		"projects": {
			NodeType: model.TypeProject,
			IDPrefix: "cordis:project:",
			Props: []FieldRule{
				{Key: "acronym", From: "acronym"},
				{Key: "title", From: "title"},
				{Key: "start_date", From: "start_date"},
				{Key: "end_date", From: "end_date"},
				{Key: "ec_max_contribution", From: "ec_max_contribution", Coerce: AsNumber},
				{Key: "total_cost", From: "total_cost", Coerce: AsNumber},
				{Key: "topics", From: "topics"},
			},
		},
		"organizations": {
			NodeType: model.TypeOrganization,
			IDPrefix: "cordis:organization:",
			Props: []FieldRule{
				{Key: "name", From: "name"},
				{Key: "short_name", From: "short_name"},
				{Key: "country", From: "country"},
				{Key: "vat_number", From: "vat_number"},
				{Key: "city", From: "city"},
				{Key: "activity_type", From: "activity_type"},
			},
			Rels: []RelRule{{
				Type:       model.RelParticipatedIn,
				FromPrefix: "cordis:organization:",
				ToPrefix:   "cordis:project:", ToField: "project_id",
				Props: []FieldRule{
					{Key: "role", From: "role"},
					{Key: "ec_contribution", From: "ec_contribution", Coerce: AsNumber},
				},
				Required: []string{"project_id"},
			}},
		},
	},
}

// MappingFor looks up the mapping registered for a source category.
func MappingFor(sourceName, category string) (Mapping, bool) {
	m, ok := mappings[sourceName][category]
	return m, ok
}

// socketTypes aggregates the socket:* tags of a charging station into one
// semicolon-joined list, sorted for determinism.
func socketTypes(fields map[string]string) any {
	var keys []string
	for k := range fields {
		if strings.HasPrefix(k, "socket:") {
			keys = append(keys, k)
		}
	}
	if len(keys) == 0 {
		return nil
	}
	sort.Strings(keys)
	return strings.Join(keys, ";")
}
