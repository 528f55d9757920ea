package aggregate

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/araddon/dateparse"

	"github.com/TobiSchelling/datalens/internal/dataset"
)

// MonthWindow is the number of most recent months kept in the monthly trend.
const MonthWindow = 12

// MonthBucket aggregates records published in one calendar month.
type MonthBucket struct {
	Month          string  `json:"month"` // YYYY-MM
	Count          int     `json:"count"`
	TotalIntensity float64 `json:"totalIntensity"`
	AvgIntensity   float64 `json:"avgIntensity"`
}

// Label formats the month for display, e.g. "Jan 2023".
// A malformed key is returned as is.
func (b MonthBucket) Label() string {
	t, err := time.Parse("2006-01", b.Month)
	if err != nil {
		return b.Month
	}
	return t.Format("Jan 2006")
}

// YearBucket aggregates records published in one calendar year.
type YearBucket struct {
	Year           int     `json:"year"`
	Count          int     `json:"count"`
	TotalIntensity float64 `json:"totalIntensity"`
	AvgIntensity   float64 `json:"avgIntensity"`
}

// Layouts dateparse does not recognise, tried first.
var publishedLayouts = []string{
	"January, 2 2006 15:04:05",
	"January, 2 2006",
	"January 2, 2006 15:04:05",
}

// ParseDate parses a publication timestamp. Calendar components are kept as
// written; values without a zone are read as UTC.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range publishedLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	t, err := dateparse.ParseIn(s, time.UTC)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// MonthlyTrend buckets records by publication month, ascending, keeping the
// latest MonthWindow months. Records without a parseable date are skipped.
func MonthlyTrend(records []dataset.Record) []MonthBucket {
	index := make(map[string]int)
	buckets := make([]MonthBucket, 0)
	for i := range records {
		r := &records[i]
		t, ok := published(r)
		if !ok {
			continue
		}
		key := fmt.Sprintf("%04d-%02d", t.Year(), int(t.Month()))
		pos, seen := index[key]
		if !seen {
			pos = len(buckets)
			index[key] = pos
			buckets = append(buckets, MonthBucket{Month: key})
		}
		b := &buckets[pos]
		b.Count++
		b.TotalIntensity += dataset.Number(r.Intensity)
		b.AvgIntensity = Round1(b.TotalIntensity / float64(b.Count))
	}

	sort.Slice(buckets, func(i, j int) bool { return buckets[i].Month < buckets[j].Month })
	if len(buckets) > MonthWindow {
		buckets = buckets[len(buckets)-MonthWindow:]
	}
	return buckets
}

// YearlyTrend buckets records by publication year, ascending, without truncation.
func YearlyTrend(records []dataset.Record) []YearBucket {
	index := make(map[int]int)
	buckets := make([]YearBucket, 0)
	for i := range records {
		r := &records[i]
		t, ok := published(r)
		if !ok {
			continue
		}
		pos, seen := index[t.Year()]
		if !seen {
			pos = len(buckets)
			index[t.Year()] = pos
			buckets = append(buckets, YearBucket{Year: t.Year()})
		}
		b := &buckets[pos]
		b.Count++
		b.TotalIntensity += dataset.Number(r.Intensity)
		b.AvgIntensity = Round1(b.TotalIntensity / float64(b.Count))
	}

	sort.Slice(buckets, func(i, j int) bool { return buckets[i].Year < buckets[j].Year })
	return buckets
}

func published(r *dataset.Record) (time.Time, bool) {
	if r.Published == nil {
		return time.Time{}, false
	}
	return ParseDate(*r.Published)
}
