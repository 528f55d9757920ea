package aggregate

import "github.com/TobiSchelling/datalens/internal/dataset"

// Point is one record projected for an intensity/relevance scatter view.
type Point struct {
	ID         int      `json:"id"`
	Intensity  float64  `json:"intensity"`
	Relevance  float64  `json:"relevance"`
	Likelihood *float64 `json:"likelihood,omitempty"`
	Sector     string   `json:"sector,omitempty"`
}

// Correlation projects records with positive intensity and relevance, in order.
func Correlation(records []dataset.Record) []Point {
	points := make([]Point, 0)
	for i := range records {
		r := &records[i]
		if dataset.Number(r.Intensity) <= 0 || dataset.Number(r.Relevance) <= 0 {
			continue
		}
		p := Point{
			ID:        len(points),
			Intensity: *r.Intensity,
			Relevance: *r.Relevance,
			Sector:    dataset.String(r.Sector),
		}
		if r.Likelihood != nil {
			l := *r.Likelihood
			p.Likelihood = &l
		}
		points = append(points, p)
	}
	return points
}
