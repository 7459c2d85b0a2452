package model

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestValidateNode(t *testing.T) {
	tests := []struct {
		name    string
		node    Node
		wantErr error
	}{
		{"valid point node",
			Node{ID: "osm:wind_turbines:node/1", Type: TypeWindTurbine, Geometry: NewPoint(8, 52)},
			nil},
		{"valid abstract node",
			Node{ID: "cordis:project:1", Type: TypeProject},
			nil},
		{"missing id",
			Node{Type: TypeWindTurbine, Geometry: NewPoint(8, 52)},
			ErrMissingID},
		{"unknown type",
			Node{ID: "x", Type: NodeType("Pipeline"), Geometry: NewPoint(8, 52)},
			ErrUnknownType},
		{"missing required geometry",
			Node{ID: "x", Type: TypeSubstation},
			ErrMissingGeometry},
		{"empty linestring",
			Node{ID: "x", Type: TypeTransmissionLine, Geometry: NewLineString(nil)},
			ErrMissingGeometry},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateNode(tt.node)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateRelationship(t *testing.T) {
	nodes := map[string]bool{"a": true, "b": true}
	ok := Relationship{SourceID: "a", TargetID: "b", Type: RelConnectsTo}
	if err := ValidateRelationship(ok, nodes); err != nil {
		t.Fatal(err)
	}
	dangling := Relationship{SourceID: "a", TargetID: "ghost", Type: RelConnectsTo}
	if err := ValidateRelationship(dangling, nodes); !errors.Is(err, ErrDanglingEdge) {
		t.Fatalf("err = %v", err)
	}
}

func TestRepresentativePointMidpoint(t *testing.T) {
	line := NewLineString([]Position{{0, 0}, {1, 1}, {2, 2}, {3, 3}, {4, 4}})
	p, ok := line.RepresentativePoint()
	if !ok || p != (Position{2, 2}) {
		t.Fatalf("p = %v ok = %v", p, ok)
	}

	even := NewLineString([]Position{{0, 0}, {1, 1}})
	p, _ = even.RepresentativePoint()
	if p != (Position{1, 1}) {
		t.Fatalf("p = %v", p)
	}
}

func TestGeometryJSONRoundTrip(t *testing.T) {
	point := NewPoint(13.4, 52.5)
	data, err := json.Marshal(point)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `{"type":"Point","coordinates":[13.4,52.5]}` {
		t.Fatalf("json = %s", data)
	}

	var back Geometry
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatal(err)
	}
	if back.Type != GeometryPoint || back.Point != (Position{13.4, 52.5}) {
		t.Fatalf("back = %+v", back)
	}

	line := NewLineString([]Position{{1, 2}, {3, 4}})
	data, err = json.Marshal(line)
	if err != nil {
		t.Fatal(err)
	}
	var backLine Geometry
	if err := json.Unmarshal(data, &backLine); err != nil {
		t.Fatal(err)
	}
	if len(backLine.Line) != 2 || backLine.Line[1] != (Position{3, 4}) {
		t.Fatalf("backLine = %+v", backLine)
	}
}

func TestGeometryUnknownType(t *testing.T) {
	var g Geometry
	err := json.Unmarshal([]byte(`{"type":"Polygon","coordinates":[]}`), &g)
	if !errors.Is(err, ErrUnknownGeometry) {
		t.Fatalf("err = %v", err)
	}
}

func TestLookupCountry(t *testing.T) {
	tests := []struct {
		key  string
		iso2 string
		ok   bool
	}{
		{"DE", "DE", true},
		{"deu", "DE", true},
		{"Germany", "DE", true},
		{" fr ", "FR", true},
		{"GB", "", false},
		{"USA", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		c, ok := LookupCountry(tt.key)
		if ok != tt.ok || c.ISO2 != tt.iso2 {
			t.Errorf("LookupCountry(%q) = %q, %v", tt.key, c.ISO2, ok)
		}
	}
}

func TestCountryNodesDeterministic(t *testing.T) {
	a, b := CountryNodes(), CountryNodes()
	if len(a) != 27 {
		t.Fatalf("len = %d, want 27", len(a))
	}
	if a[0].ID != "country:AT" || a[26].ID != "country:SK" {
		t.Fatalf("order: %s .. %s", a[0].ID, a[26].ID)
	}
	for i := range a {
		if a[i].ID != b[i].ID {
			t.Fatal("two runs produced different country nodes")
		}
		if err := ValidateNode(a[i]); err != nil {
			t.Fatalf("%s: %v", a[i].ID, err)
		}
	}
	if a[3].Properties["eic_code"] != nil {
		t.Fatal("Cyprus has no EIC code")
	}
}
