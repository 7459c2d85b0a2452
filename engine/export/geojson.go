package export

import (
	"encoding/json"
	"io"

	"github.com/gridatlas/gridatlas/engine/model"
)

type feature struct {
	Type       string          `json:"type"`
	Geometry   *model.Geometry `json:"geometry"`
	Properties map[string]any  `json:"properties"`
}

type featureCollection struct {
	Type     string    `json:"type"`
	Features []feature `json:"features"`
}

// WriteGeoJSON writes one feature collection for a category's
// geometry-bearing nodes and returns the written path and feature count.
// Nodes without geometry (abstract entities) are not features and are simply
// absent from the collection.
func (w *Writer) WriteGeoJSON(sourceName, dataset string, nodes []model.Node) (string, int, error) {
	fc := featureCollection{Type: "FeatureCollection", Features: []feature{}}
	for _, n := range nodes {
		if n.Geometry == nil {
			continue
		}
		props := make(map[string]any, len(n.Properties)+2)
		for k, v := range n.Properties {
			props[k] = v
		}
		props["id"] = n.ID
		props["type"] = string(n.Type)
		fc.Features = append(fc.Features, feature{Type: "Feature", Geometry: n.Geometry, Properties: props})
	}

	path := w.sourcePath(sourceName, dataset+".geojson")
	err := writeAtomic(path, func(out io.Writer) error {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(fc)
	})
	if err != nil {
		return "", 0, err
	}
	return path, len(fc.Features), nil
}
