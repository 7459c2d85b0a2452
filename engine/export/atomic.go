// Package export serializes normalized batches: GeoJSON feature collections
// for geometry datasets, delimited node/relationship tables for graph import,
// and a provenance metadata record per dataset. All files are written to a
// temporary path and renamed into place, so an interrupted run never leaves a
// truncated file behind.
package export

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// writeAtomic streams content to a temp file in the target directory and
// renames it over path on success.
func writeAtomic(path string, write func(io.Writer) error) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("export: create dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-")
	if err != nil {
		return fmt.Errorf("export: create temp: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := write(tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("export: close temp: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("export: rename: %w", err)
	}
	return nil
}
