package ingest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/TobiSchelling/datalens/internal/dataset"
)

// FileSuffix is the only file name ending accepted for upload.
const FileSuffix = ".json"

var (
	ErrInvalidFileType = errors.New("invalid file type")
	ErrMalformedInput  = errors.New("malformed input")
	ErrEmptyDataset    = errors.New("empty dataset")
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// CheckFileName verifies the upload naming convention. It does not look at content.
func CheckFileName(name string) error {
	if !strings.HasSuffix(name, FileSuffix) {
		return fmt.Errorf("%w: %q does not end in %s", ErrInvalidFileType, name, FileSuffix)
	}
	return nil
}

// Normalize parses raw JSON into records. An array is used as-is, a single
// object becomes a one-element sequence. No field-level validation happens.
func Normalize(raw []byte) ([]dataset.Record, error) {
	trimmed := bytes.TrimSpace(bytes.TrimPrefix(raw, utf8BOM))
	if len(trimmed) == 0 || !json.Valid(trimmed) {
		return nil, fmt.Errorf("%w: invalid JSON", ErrMalformedInput)
	}

	var entries []json.RawMessage
	switch trimmed[0] {
	case '[':
		if err := json.Unmarshal(trimmed, &entries); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedInput, err)
		}
	case '{':
		entries = []json.RawMessage{trimmed}
	default:
		return nil, fmt.Errorf("%w: expected an object or an array of objects", ErrMalformedInput)
	}

	if len(entries) == 0 {
		return nil, fmt.Errorf("%w: no data found", ErrEmptyDataset)
	}

	records := make([]dataset.Record, len(entries))
	for i, entry := range entries {
		entry = bytes.TrimSpace(entry)
		if len(entry) == 0 || entry[0] != '{' {
			return nil, fmt.Errorf("%w: entry %d is not an object", ErrMalformedInput, i)
		}
		if err := json.Unmarshal(entry, &records[i]); err != nil {
			return nil, fmt.Errorf("%w: entry %d: %v", ErrMalformedInput, i, err)
		}
	}
	return records, nil
}

// Read checks the file name, reads r to completion and normalizes the content.
// A positive limit caps the number of bytes accepted.
func Read(ctx context.Context, name string, r io.Reader, limit int64) ([]dataset.Record, error) {
	if err := CheckFileName(name); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if limit > 0 {
		r = io.LimitReader(r, limit+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", name, err)
	}
	if limit > 0 && int64(len(data)) > limit {
		return nil, fmt.Errorf("%w: %s exceeds %d bytes", ErrMalformedInput, name, limit)
	}

	return Normalize(data)
}

// ReadFile ingests a file from disk.
func ReadFile(ctx context.Context, path string, limit int64) ([]dataset.Record, error) {
	if err := CheckFileName(path); err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	return Read(ctx, filepath.Base(path), f, limit)
}

// UserMessage converts an ingestion error into the text shown to users.
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidFileType):
		return "Invalid file type. Please upload a JSON file."
	case errors.Is(err, ErrEmptyDataset):
		return "No data found in the file."
	default:
		return "Error processing file. Please ensure your file contains valid JSON data."
	}
}
