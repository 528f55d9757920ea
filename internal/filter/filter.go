package filter

import (
	"sort"

	"github.com/TobiSchelling/datalens/internal/dataset"
)

// Apply returns the records matching all criteria, in input order.
// Dimensions are AND-combined; values within a dimension are OR-combined.
// A record missing a restricted field never matches, and a record without
// intensity never matches an intensity range.
func Apply(records []dataset.Record, criteria dataset.Criteria) []dataset.Record {
	if criteria.IsEmpty() {
		return records
	}

	sets := make(map[dataset.Field]map[string]bool)
	for dim, allowed := range criteria.Dimensions() {
		sets[dim] = toSet(allowed)
	}

	out := make([]dataset.Record, 0, len(records))
	for i := range records {
		if matches(&records[i], sets, criteria.IntensityRange) {
			out = append(out, records[i])
		}
	}
	return out
}

func matches(r *dataset.Record, sets map[dataset.Field]map[string]bool, rng *dataset.Range) bool {
	for dim, set := range sets {
		v, ok := r.Value(dim)
		if !ok || !set[v] {
			return false
		}
	}
	if rng != nil {
		if r.Intensity == nil || !rng.Contains(*r.Intensity) {
			return false
		}
	}
	return true
}

func toSet(items []string) map[string]bool {
	set := make(map[string]bool, len(items))
	for _, item := range items {
		set[item] = true
	}
	return set
}

// Options lists the values a user can filter on.
type Options struct {
	Sectors      []string `json:"sectors"`
	Regions      []string `json:"regions"`
	Countries    []string `json:"countries"`
	MaxIntensity float64  `json:"maxIntensity"`
}

// OptionsFor collects distinct non-empty sector, region and country values,
// sorted ascending, and the largest intensity (missing counts as 0).
func OptionsFor(records []dataset.Record) Options {
	opts := Options{
		Sectors:   distinct(records, dataset.FieldSector),
		Regions:   distinct(records, dataset.FieldRegion),
		Countries: distinct(records, dataset.FieldCountry),
	}
	for i, r := range records {
		v := dataset.Number(r.Intensity)
		if i == 0 || v > opts.MaxIntensity {
			opts.MaxIntensity = v
		}
	}
	return opts
}

func distinct(records []dataset.Record, f dataset.Field) []string {
	seen := make(map[string]bool)
	values := []string{}
	for i := range records {
		v, ok := records[i].Value(f)
		if ok && v != "" && !seen[v] {
			seen[v] = true
			values = append(values, v)
		}
	}
	sort.Strings(values)
	return values
}
