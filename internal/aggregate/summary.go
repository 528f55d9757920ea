package aggregate

import "github.com/TobiSchelling/datalens/internal/dataset"

// Summary holds the headline metrics of a record sequence.
type Summary struct {
	TotalEntries  int     `json:"totalEntries"`
	UniqueSectors int     `json:"uniqueSectors"`
	UniqueRegions int     `json:"uniqueRegions"`
	AvgIntensity  float64 `json:"avgIntensity"`
}

// Summarize counts entries and distinct non-empty sectors and regions, and
// averages intensity over all records with missing intensity counted as 0.
func Summarize(records []dataset.Record) Summary {
	s := Summary{TotalEntries: len(records)}
	if len(records) == 0 {
		return s
	}

	sectors := make(map[string]struct{})
	regions := make(map[string]struct{})
	var total float64
	for i := range records {
		r := &records[i]
		if r.HasValue(dataset.FieldSector) {
			sectors[*r.Sector] = struct{}{}
		}
		if r.HasValue(dataset.FieldRegion) {
			regions[*r.Region] = struct{}{}
		}
		total += dataset.Number(r.Intensity)
	}

	s.UniqueSectors = len(sectors)
	s.UniqueRegions = len(regions)
	s.AvgIntensity = Round1(total / float64(len(records)))
	return s
}
