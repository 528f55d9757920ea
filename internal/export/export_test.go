package export

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/TobiSchelling/datalens/internal/dataset"
	"github.com/TobiSchelling/datalens/internal/filter"
	"github.com/TobiSchelling/datalens/internal/ingest"
)

const sample = `[
  {"end_year": "", "intensity": 6, "sector": "Energy", "topic": "gas", "region": "Northern America",
   "published": "January, 09 2017 00:00:00", "country": "United States of America", "relevance": 2,
   "pestle": "Industries", "source": "EV", "title": "First", "likelihood": 3, "note": {"k": "v"}},
  {"intensity": 2, "sector": "Retail", "region": "Europe", "title": "Second"},
  {"sector": "Energy", "region": "Asia", "title": "Third", "likelihood": 1},
  {"sector": "Energy", "title": "Fourth", "intensity": "9"}
]`

func TestSerializeFormat(t *testing.T) {
	intensity := 6.0
	sector := "Energy"
	data, err := Serialize([]dataset.Record{{Sector: &sector, Intensity: &intensity}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "[\n  {\n    \"intensity\": 6,\n    \"sector\": \"Energy\"\n  }\n]"
	if string(data) != want {
		t.Errorf("expected\n%s\ngot\n%s", want, data)
	}
}

func TestSerializeEmpty(t *testing.T) {
	data, err := Serialize(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(data) != "[]" {
		t.Errorf("expected [], got %s", data)
	}
}

func TestSerializeOmitsMissing(t *testing.T) {
	records, err := ingest.Normalize([]byte(`[{"title":"x","region":null}]`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	data, err := Serialize(records)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Contains(string(data), "null") || strings.Contains(string(data), "region") {
		t.Errorf("expected missing fields omitted, got %s", data)
	}
}

func TestRoundTrip(t *testing.T) {
	records, err := ingest.Normalize([]byte(sample))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	view := filter.Apply(records, dataset.Criteria{Sector: []string{"Energy"}})
	if len(view) != 3 {
		t.Fatalf("expected 3 filtered records, got %d", len(view))
	}

	data, err := Serialize(view)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	again, err := ingest.Normalize(data)
	if err != nil {
		t.Fatalf("failed to re-ingest export: %v", err)
	}
	if !reflect.DeepEqual(again, view) {
		t.Errorf("expected round trip to preserve records\nbefore: %+v\nafter:  %+v", view, again)
	}
}

func TestFileName(t *testing.T) {
	if got := FileName("data.json"); got != "filtered_data.json" {
		t.Errorf("expected 'filtered_data.json', got %q", got)
	}
	if got := FileName("/tmp/in/data.json"); got != "filtered_data.json" {
		t.Errorf("expected directory stripped, got %q", got)
	}
}

func TestWriteFile(t *testing.T) {
	records, err := ingest.Normalize([]byte(sample))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	path := filepath.Join(t.TempDir(), "out", FileName("sample.json"))
	if err := WriteFile(path, records); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	again, err := ingest.ReadFile(context.Background(), path, 0)
	if err != nil {
		t.Fatalf("failed to read export: %v", err)
	}
	if len(again) != len(records) {
		t.Errorf("expected %d records, got %d", len(records), len(again))
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("expected file to exist: %v", err)
	}
}
