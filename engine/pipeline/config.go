// Package pipeline orchestrates one run: for every enabled source, fetch each
// category, normalize, attribute countries, and export. Sources are
// independent; one failing never aborts another.
package pipeline

// Config is the immutable run configuration, built once in main from flags
// and environment toggles. Engine packages never read ambient state.
type Config struct {
	// Per-source toggles, all disabled by default.
	RunOSM         bool
	RunGridKit     bool
	RunPowerPlants bool
	RunTSO         bool
	RunCORDIS      bool

	// OutputDir is the export root; one subdirectory per source.
	OutputDir string

	// SourceConcurrency bounds how many sources run at once,
	// CategoryConcurrency how many categories run at once within a source.
	SourceConcurrency   int
	CategoryConcurrency int
}

// Enabled reports whether the named source client should run.
func (c Config) Enabled(sourceName string) bool {
	switch sourceName {
	case "osm":
		return c.RunOSM
	case "gridkit":
		return c.RunGridKit
	case "powerplants":
		return c.RunPowerPlants
	case "tso":
		return c.RunTSO
	case "cordis":
		return c.RunCORDIS
	}
	return false
}

func (c Config) withDefaults() Config {
	if c.OutputDir == "" {
		c.OutputDir = "output"
	}
	if c.SourceConcurrency <= 0 {
		c.SourceConcurrency = 3
	}
	if c.CategoryConcurrency <= 0 {
		c.CategoryConcurrency = 2
	}
	return c
}
