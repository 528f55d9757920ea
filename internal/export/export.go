package export

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/TobiSchelling/datalens/internal/dataset"
)

// FilePrefix is prepended to the uploaded file name on download.
const FilePrefix = "filtered_"

// Serialize encodes records as a JSON array indented by two spaces, fields in
// canonical order and absent fields omitted.
func Serialize(records []dataset.Record) ([]byte, error) {
	if records == nil {
		records = []dataset.Record{}
	}
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding records: %w", err)
	}
	return data, nil
}

// FileName returns the download name for an uploaded file.
func FileName(original string) string {
	return FilePrefix + filepath.Base(original)
}

// WriteFile serializes records to path.
func WriteFile(path string, records []dataset.Record) error {
	data, err := Serialize(records)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating output directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}
