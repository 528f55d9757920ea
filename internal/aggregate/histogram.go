package aggregate

import (
	"math"

	"github.com/TobiSchelling/datalens/internal/dataset"
)

// Bin is a fixed, inclusive intensity interval.
type Bin struct {
	Label string
	Min   float64
	Max   float64
}

// Contains reports whether v lies in [Min, Max].
func (b Bin) Contains(v float64) bool {
	return v >= b.Min && v <= b.Max
}

// IntensityBins are the histogram buckets. They are constants, not derived
// from data; values between two bins (2.5) belong to neither.
var IntensityBins = []Bin{
	{Label: "Low (0-2)", Min: 0, Max: 2},
	{Label: "Medium (3-5)", Min: 3, Max: 5},
	{Label: "High (6-8)", Min: 6, Max: 8},
	{Label: "Very High (9+)", Min: 9, Max: math.Inf(1)},
}

// BinCount is the number of records in one histogram bin.
type BinCount struct {
	Range string `json:"range"`
	Count int    `json:"count"`
}

// IntensityHistogram counts records per intensity bin. Missing intensity
// counts as 0 and lands in the lowest bin.
func IntensityHistogram(records []dataset.Record) []BinCount {
	out := make([]BinCount, len(IntensityBins))
	for i, b := range IntensityBins {
		out[i].Range = b.Label
	}
	for i := range records {
		v := dataset.Number(records[i].Intensity)
		for j, b := range IntensityBins {
			if b.Contains(v) {
				out[j].Count++
				break
			}
		}
	}
	return out
}
