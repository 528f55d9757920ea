package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/apex/log"

	"github.com/TobiSchelling/datalens/internal/aggregate"
	"github.com/TobiSchelling/datalens/internal/dataset"
	"github.com/TobiSchelling/datalens/internal/export"
	"github.com/TobiSchelling/datalens/internal/filter"
	"github.com/TobiSchelling/datalens/internal/ingest"
	"github.com/TobiSchelling/datalens/internal/report"
)

// StepResult holds the result of a single pipeline step.
type StepResult struct {
	Name    string
	Summary string
	Err     error
}

// Result holds the results of a full pipeline run.
type Result struct {
	Source    string
	Steps     []StepResult
	Total     int
	Records   []dataset.Record
	Dashboard aggregate.Dashboard
}

// Failed reports whether any step returned an error.
func (r *Result) Failed() bool {
	for _, s := range r.Steps {
		if s.Err != nil {
			return true
		}
	}
	return false
}

// Options controls a batch run.
type Options struct {
	Criteria   dataset.Criteria
	OutputPath string // filtered export, skipped when empty
	ReportPath string // markdown report, skipped when empty
	MaxBytes   int64
}

// Pipeline runs ingest -> filter -> aggregate -> export -> report over one file.
type Pipeline struct {
	opts Options
}

// New creates a new pipeline.
func New(opts Options) *Pipeline {
	return &Pipeline{opts: opts}
}

// StepCount is the number of steps in a full run.
const StepCount = 5

// Run executes the full pipeline. A failed ingest stops the run.
func (p *Pipeline) Run(ctx context.Context, path string) *Result {
	r := &Result{Source: path}

	// Step 1: Ingest
	records, step := p.runIngest(ctx, path)
	r.Steps = append(r.Steps, step)
	if step.Err != nil {
		return r
	}
	r.Total = len(records)

	// Step 2: Filter
	r.Records, step = p.runFilter(records)
	r.Steps = append(r.Steps, step)

	// Step 3: Aggregate
	r.Dashboard, step = p.runAggregate(r.Records)
	r.Steps = append(r.Steps, step)

	// Step 4: Export
	r.Steps = append(r.Steps, p.runExport(path, r.Records))

	// Step 5: Report
	r.Steps = append(r.Steps, p.runReport(path, r))

	return r
}

func (p *Pipeline) runIngest(ctx context.Context, path string) ([]dataset.Record, StepResult) {
	log.Infof("Step 1/%d: Ingesting %s...", StepCount, path)
	records, err := ingest.ReadFile(ctx, path, p.opts.MaxBytes)
	if err != nil {
		return nil, StepResult{Name: "Ingest", Err: err}
	}
	return records, StepResult{
		Name:    "Ingest",
		Summary: fmt.Sprintf("Loaded %d data entries", len(records)),
	}
}

func (p *Pipeline) runFilter(records []dataset.Record) ([]dataset.Record, StepResult) {
	log.Infof("Step 2/%d: Applying filters...", StepCount)
	filtered := filter.Apply(records, p.opts.Criteria)
	summary := fmt.Sprintf("%d of %d entries match", len(filtered), len(records))
	if p.opts.Criteria.IsEmpty() {
		summary = fmt.Sprintf("No filters set, %d entries", len(records))
	}
	return filtered, StepResult{Name: "Filter", Summary: summary}
}

func (p *Pipeline) runAggregate(records []dataset.Record) (aggregate.Dashboard, StepResult) {
	log.Infof("Step 3/%d: Computing aggregates...", StepCount)
	d := aggregate.Compute(records)
	return d, StepResult{
		Name: "Aggregate",
		Summary: fmt.Sprintf("%d sectors, %d regions, avg intensity %s, %d monthly buckets",
			d.Summary.UniqueSectors, d.Summary.UniqueRegions,
			aggregate.FormatOneDecimal(d.Summary.AvgIntensity), len(d.Monthly)),
	}
}

func (p *Pipeline) runExport(source string, records []dataset.Record) StepResult {
	if p.opts.OutputPath == "" {
		return StepResult{Name: "Export", Summary: "Skipped (no output path)"}
	}
	log.Infof("Step 4/%d: Exporting filtered entries...", StepCount)
	out := p.opts.OutputPath
	if info, err := os.Stat(out); err == nil && info.IsDir() {
		out = filepath.Join(out, export.FileName(source))
	}
	if err := export.WriteFile(out, records); err != nil {
		return StepResult{Name: "Export", Err: err}
	}
	return StepResult{
		Name:    "Export",
		Summary: fmt.Sprintf("Wrote %d entries to %s", len(records), out),
	}
}

func (p *Pipeline) runReport(source string, r *Result) StepResult {
	if p.opts.ReportPath == "" {
		return StepResult{Name: "Report", Summary: "Skipped (no report path)"}
	}
	log.Infof("Step 5/%d: Composing report...", StepCount)
	text := report.Compose(report.Input{
		FileName:  filepath.Base(source),
		Total:     r.Total,
		Criteria:  p.opts.Criteria,
		Dashboard: r.Dashboard,
	})
	if err := os.WriteFile(p.opts.ReportPath, []byte(text), 0o644); err != nil {
		return StepResult{Name: "Report", Err: fmt.Errorf("writing report: %w", err)}
	}
	return StepResult{
		Name:    "Report",
		Summary: fmt.Sprintf("Report written to %s", p.opts.ReportPath),
	}
}
