package report

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/TobiSchelling/datalens/internal/aggregate"
	"github.com/TobiSchelling/datalens/internal/dataset"
)

const noEntries = "_No entries._"

var md = goldmark.New(goldmark.WithExtensions(extension.Table))

// Input is what a report is composed from.
type Input struct {
	FileName  string
	Total     int
	Criteria  dataset.Criteria
	Dashboard aggregate.Dashboard
}

// Compose builds a markdown insight report.
func Compose(in Input) string {
	d := in.Dashboard
	sections := []string{
		fmt.Sprintf("# Data Insights: %s\n\nAnalyzing %d of %d entries.", fileLabel(in.FileName), d.Summary.TotalEntries, in.Total),
		"## Active Filters\n\n" + describeCriteria(in.Criteria),
		"## Overview\n\n" + overviewTable(d.Summary),
		"## Top Sectors\n\n" + countList(d.Sectors),
		"## Entries by Region\n\n" + countList(d.Regions),
		"## Average Intensity by Region\n\n" + averageList(d.RegionIntensity),
		"## Intensity Distribution\n\n" + histogramTable(d.Histogram),
		"## Monthly Publication Trend\n\n" + monthlyTable(d.Monthly),
		"## Yearly Trend\n\n" + yearlyTable(d.Yearly),
	}
	return strings.Join(sections, "\n\n") + "\n"
}

// Render converts markdown to HTML. On failure the escaped source is returned.
func Render(text string) template.HTML {
	var buf bytes.Buffer
	if err := md.Convert([]byte(text), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(text))
	}
	return template.HTML(buf.String()) //nolint: gosec
}

func fileLabel(name string) string {
	if name == "" {
		return "no file"
	}
	return name
}

func describeCriteria(c dataset.Criteria) string {
	if c.IsEmpty() {
		return "None."
	}
	var lines []string
	for _, dim := range []struct {
		label  string
		values []string
	}{
		{"Sector", c.Sector},
		{"Region", c.Region},
		{"Country", c.Country},
	} {
		if len(dim.values) > 0 {
			lines = append(lines, fmt.Sprintf("- **%s**: %s", dim.label, strings.Join(dim.values, ", ")))
		}
	}
	if c.IntensityRange != nil {
		lines = append(lines, fmt.Sprintf("- **Intensity**: %g to %g", c.IntensityRange.Min, c.IntensityRange.Max))
	}
	return strings.Join(lines, "\n")
}

func overviewTable(s aggregate.Summary) string {
	return strings.Join([]string{
		"| Metric | Value |",
		"| --- | ---: |",
		fmt.Sprintf("| Total Entries | %d |", s.TotalEntries),
		fmt.Sprintf("| Unique Sectors | %d |", s.UniqueSectors),
		fmt.Sprintf("| Regions Covered | %d |", s.UniqueRegions),
		fmt.Sprintf("| Avg Intensity | %s |", aggregate.FormatOneDecimal(s.AvgIntensity)),
	}, "\n")
}

func countList(counts []aggregate.Count) string {
	if len(counts) == 0 {
		return noEntries
	}
	lines := make([]string, len(counts))
	for i, c := range counts {
		lines[i] = fmt.Sprintf("- **%s**: %d", c.Label, c.Count)
	}
	return strings.Join(lines, "\n")
}

func averageList(avgs []aggregate.Average) string {
	if len(avgs) == 0 {
		return noEntries
	}
	lines := make([]string, len(avgs))
	for i, a := range avgs {
		lines[i] = fmt.Sprintf("- **%s**: %s (%d entries)", a.Label, aggregate.FormatOneDecimal(a.AvgIntensity), a.Count)
	}
	return strings.Join(lines, "\n")
}

func histogramTable(bins []aggregate.BinCount) string {
	rows := []string{"| Range | Count |", "| --- | ---: |"}
	for _, b := range bins {
		rows = append(rows, fmt.Sprintf("| %s | %d |", b.Range, b.Count))
	}
	return strings.Join(rows, "\n")
}

func monthlyTable(buckets []aggregate.MonthBucket) string {
	if len(buckets) == 0 {
		return noEntries
	}
	rows := []string{"| Month | Count | Avg Intensity |", "| --- | ---: | ---: |"}
	for _, b := range buckets {
		rows = append(rows, fmt.Sprintf("| %s | %d | %s |", b.Month, b.Count, aggregate.FormatOneDecimal(b.AvgIntensity)))
	}
	return strings.Join(rows, "\n")
}

func yearlyTable(buckets []aggregate.YearBucket) string {
	if len(buckets) == 0 {
		return noEntries
	}
	rows := []string{"| Year | Count | Avg Intensity |", "| --- | ---: | ---: |"}
	for _, b := range buckets {
		rows = append(rows, fmt.Sprintf("| %d | %d | %s |", b.Year, b.Count, aggregate.FormatOneDecimal(b.AvgIntensity)))
	}
	return strings.Join(rows, "\n")
}
