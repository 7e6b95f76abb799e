package storage

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	apperrors "xfollowers/pkg/errors"
	"xfollowers/pkg/models"
)

// Manager writes the per-target and summary export files.
type Manager struct {
	outputDir string
}

// NewManager creates a new storage manager rooted at outputDir
func NewManager(outputDir string) (*Manager, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	return &Manager{outputDir: outputDir}, nil
}

// ExportBase returns the filename stem for a target's export files:
// followers_<handle> plus an optional _<stamp> suffix. Without a stamp,
// repeated runs overwrite the same files.
func (m *Manager) ExportBase(handle, stamp string) string {
	base := "followers_" + handle
	if stamp != "" {
		base += "_" + stamp
	}
	return base
}

// WriteJSON writes the detailed per-target export and returns its path.
func (m *Manager) WriteJSON(export *models.Export, stamp string) (string, error) {
	path := filepath.Join(m.outputDir, m.ExportBase(export.Target, stamp)+".json")

	data, err := json.MarshalIndent(export, "", "  ")
	if err != nil {
		return "", apperrors.Wrap(apperrors.ErrorTypeFileWrite, path, err)
	}

	if err := m.writeAtomic(path, data); err != nil {
		return "", apperrors.Wrap(apperrors.ErrorTypeFileWrite, path, err)
	}

	return path, nil
}

// WriteCSV writes the tabular per-target export and returns its path.
// The column order is fixed by models.FollowerCSVHeader.
func (m *Manager) WriteCSV(export *models.Export, stamp string) (string, error) {
	path := filepath.Join(m.outputDir, m.ExportBase(export.Target, stamp)+".csv")

	rows := make([][]string, 0, len(export.Followers)+1)
	rows = append(rows, models.FollowerCSVHeader)
	for _, follower := range export.Followers {
		rows = append(rows, follower.CSVRow())
	}

	if err := m.writeCSVRows(path, rows); err != nil {
		return "", apperrors.Wrap(apperrors.ErrorTypeFileWrite, path, err)
	}

	return path, nil
}

// WriteSummary writes the batch summary file, one row per target in batch
// order, and returns its path.
func (m *Manager) WriteSummary(summaries []models.Summary, stamp string) (string, error) {
	name := "followers_summary"
	if stamp != "" {
		name += "_" + stamp
	}
	path := filepath.Join(m.outputDir, name+".csv")

	rows := make([][]string, 0, len(summaries)+1)
	rows = append(rows, models.SummaryCSVHeader)
	for _, summary := range summaries {
		rows = append(rows, summary.CSVRow())
	}

	if err := m.writeCSVRows(path, rows); err != nil {
		return "", apperrors.Wrap(apperrors.ErrorTypeFileWrite, path, err)
	}

	return path, nil
}

// writeCSVRows writes all rows through a csv.Writer with atomic replace
func (m *Manager) writeCSVRows(path string, rows [][]string) error {
	tempFile := path + ".tmp"
	out, err := os.Create(tempFile)
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}

	writer := csv.NewWriter(out)
	writeErr := writer.WriteAll(rows)
	closeErr := out.Close()

	if writeErr != nil {
		os.Remove(tempFile)
		return fmt.Errorf("failed to write csv data: %w", writeErr)
	}
	if closeErr != nil {
		os.Remove(tempFile)
		return fmt.Errorf("failed to close file: %w", closeErr)
	}

	if err := os.Rename(tempFile, path); err != nil {
		os.Remove(tempFile)
		return fmt.Errorf("failed to rename temporary file: %w", err)
	}

	return nil
}

// writeAtomic writes data via a temp file and atomic rename
func (m *Manager) writeAtomic(path string, data []byte) error {
	tempFile := path + ".tmp"
	if err := os.WriteFile(tempFile, data, 0644); err != nil {
		return fmt.Errorf("failed to write temporary file: %w", err)
	}

	if err := os.Rename(tempFile, path); err != nil {
		os.Remove(tempFile)
		return fmt.Errorf("failed to rename temporary file: %w", err)
	}

	return nil
}

// GetOutputDir returns the output directory path
func (m *Manager) GetOutputDir() string {
	return m.outputDir
}
