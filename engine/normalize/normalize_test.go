package normalize

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gridatlas/gridatlas/engine/model"
	"github.com/gridatlas/gridatlas/engine/source"
)

func discard() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func TestApplyWindTurbinesKeepsMissingCapacityAsNull(t *testing.T) {
	m, ok := MappingFor("osm", "wind_turbines")
	require.True(t, ok)

	records := []source.Record{
		{NativeID: "node/1", Fields: map[string]string{"generator:output:electricity": "2.5 MW"}, Geometry: model.NewPoint(8.0, 52.0)},
		{NativeID: "node/2", Fields: map[string]string{}, Geometry: model.NewPoint(8.1, 52.1)},
		{NativeID: "node/3", Fields: map[string]string{"generator:output:electricity": "3000 kW"}, Geometry: model.NewPoint(8.2, 52.2)},
	}
	out := Apply(discard(), m, records)

	require.Len(t, out.Nodes, 3)
	assert.Zero(t, out.Dropped)
	assert.Equal(t, 2.5, out.Nodes[0].Properties["capacity"])
	assert.Equal(t, "MW", out.Nodes[0].Properties["capacity_unit"])
	assert.Nil(t, out.Nodes[1].Properties["capacity"])
	assert.Contains(t, out.Nodes[1].Properties, "capacity", "absent values must stay as explicit nulls")
	assert.Equal(t, 3000.0, out.Nodes[2].Properties["capacity"])
	assert.Equal(t, "kW", out.Nodes[2].Properties["capacity_unit"])
}

func TestApplyDropsRecordMissingGeometry(t *testing.T) {
	m, _ := MappingFor("osm", "substations")
	records := []source.Record{
		{NativeID: "way/10", Fields: map[string]string{"name": "good"}, Geometry: model.NewPoint(4.0, 50.0)},
		{NativeID: "way/11", Fields: map[string]string{"name": "no geometry"}},
	}
	out := Apply(discard(), m, records)

	require.Len(t, out.Nodes, 1)
	assert.Equal(t, 1, out.Dropped)
	assert.Equal(t, "osm:substations:way/10", out.Nodes[0].ID)
}

func TestApplyDuplicateIDLastSeenWins(t *testing.T) {
	m, _ := MappingFor("osm", "power_plants")
	records := []source.Record{
		{NativeID: "way/7", Fields: map[string]string{"name": "first page"}, Geometry: model.NewPoint(6.0, 49.5)},
		{NativeID: "way/8", Fields: map[string]string{"name": "other"}, Geometry: model.NewPoint(6.2, 49.6)},
		{NativeID: "way/7", Fields: map[string]string{"name": "second page"}, Geometry: model.NewPoint(6.0, 49.5)},
	}
	out := Apply(discard(), m, records)

	require.Len(t, out.Nodes, 2)
	assert.Equal(t, "osm:power_plants:way/7", out.Nodes[0].ID)
	assert.Equal(t, "second page", out.Nodes[0].Properties["name"])
}

func TestApplyCordisOrganizationsDeduped(t *testing.T) {
	m, ok := MappingFor("cordis", "organizations")
	require.True(t, ok)

	// One organization participating in two projects: one node, two edges.
	records := []source.Record{
		{NativeID: "999", Fields: map[string]string{
			"name": "ACME Research", "country": "DE",
			"project_id": "101", "role": "coordinator", "ec_contribution": "250000.50",
		}},
		{NativeID: "999", Fields: map[string]string{
			"name": "ACME Research", "country": "DE",
			"project_id": "202", "role": "participant", "ec_contribution": "80000",
		}},
	}
	out := Apply(discard(), m, records)

	require.Len(t, out.Nodes, 1)
	assert.Equal(t, "cordis:organization:999", out.Nodes[0].ID)
	require.Len(t, out.Relationships, 2)
	assert.Equal(t, model.RelParticipatedIn, out.Relationships[0].Type)
	assert.Equal(t, "cordis:project:101", out.Relationships[0].TargetID)
	assert.Equal(t, "coordinator", out.Relationships[0].Properties["role"])
	assert.Equal(t, 250000.50, out.Relationships[0].Properties["ec_contribution"])
	assert.Equal(t, "cordis:project:202", out.Relationships[1].TargetID)
}

func TestApplyPowerPlantsDerivesOwnerOrganization(t *testing.T) {
	m, _ := MappingFor("powerplants", "power_plants")
	records := []source.Record{
		{NativeID: "WRI100", Fields: map[string]string{
			"name": "Rheinkraftwerk", "country": "DEU", "capacity_mw": "120",
			"primary_fuel": "Hydro", "owner": "Stadtwerke Beispiel GmbH",
		}, Geometry: model.NewPoint(7.5, 49.0)},
		{NativeID: "WRI101", Fields: map[string]string{
			"name": "Nordwind", "country": "DEU", "capacity_mw": "40",
			"primary_fuel": "Wind", "owner": "Stadtwerke Beispiel GmbH",
		}, Geometry: model.NewPoint(8.5, 53.5)},
		{NativeID: "WRI102", Fields: map[string]string{
			"name": "Ownerless", "country": "DEU", "capacity_mw": "10", "primary_fuel": "Solar",
		}, Geometry: model.NewPoint(9.0, 50.0)},
	}
	out := Apply(discard(), m, records)

	// 3 plants + 1 shared owner organization.
	require.Len(t, out.Nodes, 4)
	org := out.Nodes[3]
	assert.Equal(t, "gppd:org:stadtwerke-beispiel-gmbh", org.ID)
	assert.Equal(t, model.TypeOrganization, org.Type)
	assert.Equal(t, "Stadtwerke Beispiel GmbH", org.Properties["name"])

	require.Len(t, out.Relationships, 2)
	for _, rel := range out.Relationships {
		assert.Equal(t, model.RelOwnedBy, rel.Type)
		assert.Equal(t, "gppd:org:stadtwerke-beispiel-gmbh", rel.TargetID)
	}
	assert.Equal(t, "gppd:plant:WRI100", out.Relationships[0].SourceID)
	assert.Equal(t, "MW", out.Nodes[0].Properties["capacity_unit"])
	assert.Equal(t, 120.0, out.Nodes[0].Properties["capacity"])
}

func TestApplyGridLinksEmitRelationshipsOnly(t *testing.T) {
	m, _ := MappingFor("gridkit", "grid_links")
	records := []source.Record{
		{NativeID: "l1", Fields: map[string]string{"v_id_1": "4", "v_id_2": "9", "voltage": "380000", "cables": "3"}},
		{NativeID: "l2", Fields: map[string]string{"v_id_1": "4", "v_id_2": ""}}, // dangling, skipped
		{NativeID: "l3", Fields: map[string]string{"v_id_1": "4", "v_id_2": "9", "voltage": "220000", "cables": "6"}},
	}
	out := Apply(discard(), m, records)

	assert.Empty(t, out.Nodes)
	// Same endpoints and type collapse; the later link wins.
	require.Len(t, out.Relationships, 1)
	rel := out.Relationships[0]
	assert.Equal(t, "gridkit:node:4", rel.SourceID)
	assert.Equal(t, "gridkit:node:9", rel.TargetID)
	assert.Equal(t, 220000.0, rel.Properties["voltage"])
}

func TestApplySocketTypesAggregation(t *testing.T) {
	m, _ := MappingFor("osm", "ev_charging_stations")
	records := []source.Record{
		{NativeID: "node/5", Fields: map[string]string{
			"socket:type2": "4", "socket:chademo": "1", "capacity": "4",
		}, Geometry: model.NewPoint(2.35, 48.85)},
	}
	out := Apply(discard(), m, records)

	require.Len(t, out.Nodes, 1)
	assert.Equal(t, "socket:chademo;socket:type2", out.Nodes[0].Properties["socket_types"])
	assert.Equal(t, 4.0, out.Nodes[0].Properties["capacity"])
}

func TestMappingForUnknownCategory(t *testing.T) {
	_, ok := MappingFor("osm", "pipelines")
	assert.False(t, ok)
	_, ok = MappingFor("nope", "power_plants")
	assert.False(t, ok)
}
