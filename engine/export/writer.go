package export

import (
	"log/slog"
	"path/filepath"
)

// Writer writes all exports of a run under one root directory, one
// subdirectory per source. Datasets are overwritten wholesale; there is no
// versioning across runs.
type Writer struct {
	root string
	log  *slog.Logger
}

// NewWriter creates a writer rooted at dir.
func NewWriter(dir string, log *slog.Logger) *Writer {
	return &Writer{root: dir, log: log}
}

func (w *Writer) sourcePath(sourceName, file string) string {
	return filepath.Join(w.root, sourceName, file)
}

// Rel reports a written path relative to the export root, for metadata and
// log lines that should not leak absolute paths.
func (w *Writer) Rel(path string) string {
	rel, err := filepath.Rel(w.root, path)
	if err != nil {
		return path
	}
	return rel
}
