package aggregate

import (
	"sort"

	"github.com/TobiSchelling/datalens/internal/dataset"
)

// SectorLimit caps the sector distribution.
const SectorLimit = 10

// Count is the number of records sharing a category value.
type Count struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// Average is the mean intensity of a category.
type Average struct {
	Label        string  `json:"label"`
	AvgIntensity float64 `json:"avgIntensity"`
	Count        int     `json:"count"`
}

// SectorFrequency returns the ten most frequent sectors, most frequent first.
// Ties keep first-encountered order.
func SectorFrequency(records []dataset.Record) []Count {
	counts := CountBy(records, dataset.FieldSector)
	if len(counts) > SectorLimit {
		counts = counts[:SectorLimit]
	}
	return counts
}

// RegionFrequency returns every region, most frequent first.
func RegionFrequency(records []dataset.Record) []Count {
	return CountBy(records, dataset.FieldRegion)
}

// CountBy groups records by a string field. Records where the field is
// absent or empty are left out.
func CountBy(records []dataset.Record, f dataset.Field) []Count {
	index := make(map[string]int)
	counts := make([]Count, 0)
	for i := range records {
		v, ok := records[i].Value(f)
		if !ok || v == "" {
			continue
		}
		pos, seen := index[v]
		if !seen {
			pos = len(counts)
			index[v] = pos
			counts = append(counts, Count{Label: v})
		}
		counts[pos].Count++
	}

	sort.SliceStable(counts, func(i, j int) bool { return counts[i].Count > counts[j].Count })
	return counts
}

// RegionAverageIntensity averages intensity per region over records having
// both a region and a non-zero intensity. Zero or missing intensity is left
// out of numerator and denominator alike.
func RegionAverageIntensity(records []dataset.Record) []Average {
	type acc struct {
		total float64
		count int
	}
	index := make(map[string]int)
	labels := make([]string, 0)
	sums := make([]acc, 0)
	for i := range records {
		r := &records[i]
		if !r.HasValue(dataset.FieldRegion) || r.Intensity == nil || *r.Intensity == 0 {
			continue
		}
		pos, seen := index[*r.Region]
		if !seen {
			pos = len(labels)
			index[*r.Region] = pos
			labels = append(labels, *r.Region)
			sums = append(sums, acc{})
		}
		sums[pos].total += *r.Intensity
		sums[pos].count++
	}

	out := make([]Average, len(labels))
	for i, label := range labels {
		out[i] = Average{
			Label:        label,
			AvgIntensity: Round1(sums[i].total / float64(sums[i].count)),
			Count:        sums[i].count,
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].AvgIntensity > out[j].AvgIntensity })
	return out
}
