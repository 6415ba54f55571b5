// Package output serializes run summaries to JSON, to a file or stdout.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/rumor-ml/commons.systems/remitparse/internal/pipeline"
)

// WriteOptions configures where the summary is written.
type WriteOptions struct {
	FilePath string // Output path (empty = stdout)
}

// WriteSummary serializes a run summary as JSON with 2-space indentation.
func WriteSummary(summary *pipeline.ProcessSummary, w io.Writer) error {
	if summary == nil {
		return fmt.Errorf("summary cannot be nil")
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(summary); err != nil {
		return fmt.Errorf("failed to encode summary as JSON: %w", err)
	}
	return nil
}

// WriteSummaryToFile writes the summary to a file, or stdout when no path
// is configured.
func WriteSummaryToFile(summary *pipeline.ProcessSummary, opts WriteOptions) (err error) {
	if summary == nil {
		return fmt.Errorf("summary cannot be nil")
	}

	if opts.FilePath == "" {
		return WriteSummary(summary, os.Stdout)
	}

	f, err := os.Create(opts.FilePath)
	if err != nil {
		return fmt.Errorf("failed to create output file %s: %w", opts.FilePath, err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("failed to close output file %s: %w", opts.FilePath, closeErr)
		}
	}()

	if err = WriteSummary(summary, f); err != nil {
		return fmt.Errorf("failed to write summary to %s: %w", opts.FilePath, err)
	}
	return nil
}

// LoadSummary reads a previously written summary.
func LoadSummary(filePath string) (*pipeline.ProcessSummary, error) {
	if filePath == "" {
		return nil, fmt.Errorf("file path cannot be empty")
	}

	f, err := os.Open(filePath)
	if err != nil {
		// Unwrapped so callers can distinguish a missing file.
		return nil, err
	}
	defer f.Close()

	var summary pipeline.ProcessSummary
	if err := json.NewDecoder(f).Decode(&summary); err != nil {
		return nil, fmt.Errorf("failed to decode summary JSON: %w", err)
	}
	return &summary, nil
}
