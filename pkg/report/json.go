package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// WriteJSON writes the report to path atomically.
func WriteJSON(path string, r *RunReport) error {
	if err := ensureDir(filepath.Dir(path)); err != nil {
		return fmt.Errorf("create report dir: %w", err)
	}
	return atomicWriteJSON(path, r)
}

// ReadJSON loads a report written by WriteJSON.
func ReadJSON(path string) (*RunReport, error) {
	data, err := os.ReadFile(path) //#nosec G304 -- user-provided report path
	if err != nil {
		return nil, fmt.Errorf("read report: %w", err)
	}
	var r RunReport
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("parse report %s: %w", path, err)
	}
	return &r, nil
}

// atomicWriteJSON writes to a temp file in the same directory and renames
// it over path, so readers never observe a partial file.
func atomicWriteJSON(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".report-*.tmp")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return err
	}
	return nil
}

func ensureDir(dir string) error {
	if dir == "" || dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
