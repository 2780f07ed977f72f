package telemetry

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gocarina/gocsv"

	"evosim/config"
)

// OutputManager handles structured experiment output with CSV logging.
type OutputManager struct {
	dir            string
	generationFile *os.File
	roundFile      *os.File
	graveyardFile  *os.File

	generationHeaderWritten bool
	roundHeaderWritten      bool
	graveyardHeaderWritten  bool
}

// NewOutputManager creates the output directory and opens the CSV files.
// Returns nil if dir is empty (output disabled); all writes on a nil manager
// are no-ops.
func NewOutputManager(dir string) (*OutputManager, error) {
	if dir == "" {
		return nil, nil
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	om := &OutputManager{dir: dir}

	f, err := os.Create(filepath.Join(dir, "generations.csv"))
	if err != nil {
		return nil, fmt.Errorf("creating generations.csv: %w", err)
	}
	om.generationFile = f

	f, err = os.Create(filepath.Join(dir, "rounds.csv"))
	if err != nil {
		om.generationFile.Close()
		return nil, fmt.Errorf("creating rounds.csv: %w", err)
	}
	om.roundFile = f

	f, err = os.Create(filepath.Join(dir, "graveyard.csv"))
	if err != nil {
		om.generationFile.Close()
		om.roundFile.Close()
		return nil, fmt.Errorf("creating graveyard.csv: %w", err)
	}
	om.graveyardFile = f

	return om, nil
}

// WriteConfig saves the active configuration as YAML next to the CSVs.
func (om *OutputManager) WriteConfig(cfg *config.Config) error {
	if om == nil {
		return nil
	}
	return cfg.WriteYAML(filepath.Join(om.dir, "config.yaml"))
}

// WriteGeneration appends one generation record to generations.csv.
func (om *OutputManager) WriteGeneration(row GenerationRow) error {
	if om == nil {
		return nil
	}

	records := []GenerationRow{row}
	if !om.generationHeaderWritten {
		if err := gocsv.Marshal(records, om.generationFile); err != nil {
			return fmt.Errorf("writing generation stats: %w", err)
		}
		om.generationHeaderWritten = true
		return nil
	}
	if err := gocsv.MarshalWithoutHeaders(records, om.generationFile); err != nil {
		return fmt.Errorf("writing generation stats: %w", err)
	}
	return nil
}

// WriteRound appends one round summary to rounds.csv.
func (om *OutputManager) WriteRound(stats RoundStats) error {
	if om == nil {
		return nil
	}

	records := []RoundStats{stats}
	if !om.roundHeaderWritten {
		if err := gocsv.Marshal(records, om.roundFile); err != nil {
			return fmt.Errorf("writing round stats: %w", err)
		}
		om.roundHeaderWritten = true
		return nil
	}
	if err := gocsv.MarshalWithoutHeaders(records, om.roundFile); err != nil {
		return fmt.Errorf("writing round stats: %w", err)
	}
	return nil
}

// WriteGraveyard appends a generation's agent records to graveyard.csv.
func (om *OutputManager) WriteGraveyard(rows []GraveyardRow) error {
	if om == nil || len(rows) == 0 {
		return nil
	}

	if !om.graveyardHeaderWritten {
		if err := gocsv.Marshal(rows, om.graveyardFile); err != nil {
			return fmt.Errorf("writing graveyard: %w", err)
		}
		om.graveyardHeaderWritten = true
		return nil
	}
	if err := gocsv.MarshalWithoutHeaders(rows, om.graveyardFile); err != nil {
		return fmt.Errorf("writing graveyard: %w", err)
	}
	return nil
}

// Dir returns the output directory path.
func (om *OutputManager) Dir() string {
	if om == nil {
		return ""
	}
	return om.dir
}

// Close flushes and closes all output files.
func (om *OutputManager) Close() error {
	if om == nil {
		return nil
	}

	var firstErr error
	for _, f := range []*os.File{om.generationFile, om.roundFile, om.graveyardFile} {
		if f == nil {
			continue
		}
		if err := f.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
