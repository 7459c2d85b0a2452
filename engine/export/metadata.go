package export

import (
	"encoding/json"
	"io"

	"github.com/gridatlas/gridatlas/engine/model"
)

// WriteMetadata writes the provenance record for one dataset. It is written
// last, after the exports it describes, so its presence implies a complete
// dataset.
func (w *Writer) WriteMetadata(md model.DatasetMetadata) (string, error) {
	path := w.sourcePath(md.Source, md.Dataset+"_metadata.json")
	err := writeAtomic(path, func(out io.Writer) error {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(md)
	})
	if err != nil {
		return "", err
	}
	return path, nil
}
