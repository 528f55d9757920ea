package aggregate

import "github.com/TobiSchelling/datalens/internal/dataset"

// Dashboard bundles every aggregate view of one record sequence.
type Dashboard struct {
	Summary         Summary       `json:"summary"`
	Sectors         []Count       `json:"sectors"`
	Regions         []Count       `json:"regions"`
	RegionIntensity []Average     `json:"regionIntensity"`
	Histogram       []BinCount    `json:"histogram"`
	Correlation     []Point       `json:"correlation"`
	Monthly         []MonthBucket `json:"monthly"`
	Yearly          []YearBucket  `json:"yearly"`
}

// Compute recomputes all views from scratch. Call it after every change to
// the dataset or the criteria.
func Compute(records []dataset.Record) Dashboard {
	return Dashboard{
		Summary:         Summarize(records),
		Sectors:         SectorFrequency(records),
		Regions:         RegionFrequency(records),
		RegionIntensity: RegionAverageIntensity(records),
		Histogram:       IntensityHistogram(records),
		Correlation:     Correlation(records),
		Monthly:         MonthlyTrend(records),
		Yearly:          YearlyTrend(records),
	}
}
