package dataset

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Range is a closed interval [Min, Max]. It encodes as a two-element JSON array.
type Range struct {
	Min float64
	Max float64
}

// Contains reports whether v lies within the interval, bounds included.
func (r Range) Contains(v float64) bool {
	return v >= r.Min && v <= r.Max
}

func (r Range) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]float64{r.Min, r.Max})
}

func (r *Range) UnmarshalJSON(data []byte) error {
	var bounds []float64
	if err := json.Unmarshal(data, &bounds); err != nil {
		return fmt.Errorf("intensity range: %w", err)
	}
	if len(bounds) != 2 {
		return fmt.Errorf("intensity range: expected [min, max], got %d values", len(bounds))
	}
	r.Min, r.Max = bounds[0], bounds[1]
	return nil
}

// Criteria is the set of inclusion predicates applied to a dataset.
// Values within a dimension are OR-combined, dimensions are AND-combined.
// An empty dimension imposes no restriction; a nil range likewise.
type Criteria struct {
	Sector         []string `json:"sector"`
	Region         []string `json:"region"`
	Country        []string `json:"country"`
	IntensityRange *Range   `json:"intensityRange,omitempty"`
}

// Dimensions returns the restricted string dimensions with their allowed values.
func (c Criteria) Dimensions() map[Field][]string {
	dims := make(map[Field][]string, 3)
	if len(c.Sector) > 0 {
		dims[FieldSector] = c.Sector
	}
	if len(c.Region) > 0 {
		dims[FieldRegion] = c.Region
	}
	if len(c.Country) > 0 {
		dims[FieldCountry] = c.Country
	}
	return dims
}

// IsEmpty returns true if no restriction is set.
func (c Criteria) IsEmpty() bool {
	return len(c.Sector) == 0 && len(c.Region) == 0 && len(c.Country) == 0 && c.IntensityRange == nil
}

// Clone returns a deep copy so callers can keep mutating their own slices.
func (c Criteria) Clone() Criteria {
	out := Criteria{
		Sector:  append([]string(nil), c.Sector...),
		Region:  append([]string(nil), c.Region...),
		Country: append([]string(nil), c.Country...),
	}
	if c.IntensityRange != nil {
		r := *c.IntensityRange
		out.IntensityRange = &r
	}
	return out
}

// Key returns a canonical string for the criteria. Equal restrictions in a
// different order produce the same key.
func (c Criteria) Key() string {
	var b strings.Builder
	for _, dim := range []struct {
		name   string
		values []string
	}{
		{"sector", c.Sector},
		{"region", c.Region},
		{"country", c.Country},
	} {
		values := append([]string(nil), dim.values...)
		sort.Strings(values)
		b.WriteString(dim.name)
		b.WriteByte('=')
		for i, v := range values {
			if i > 0 {
				b.WriteByte(',')
			}
			b.WriteString(strconv.Quote(v))
		}
		b.WriteByte(';')
	}
	if c.IntensityRange != nil {
		b.WriteString("intensity=")
		b.WriteString(strconv.FormatFloat(c.IntensityRange.Min, 'g', -1, 64))
		b.WriteByte(':')
		b.WriteString(strconv.FormatFloat(c.IntensityRange.Max, 'g', -1, 64))
	}
	return b.String()
}
