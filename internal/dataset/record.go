package dataset

import (
	"bytes"
	"encoding/json"
	"math"
	"sort"
	"strconv"
	"strings"
)

// Record is one entry of an uploaded dataset. Every field is optional;
// a nil pointer means the key was absent (or null) in the source JSON.
// Field order is the canonical export order.
type Record struct {
	EndYear    *string  `json:"end_year,omitempty"`
	Intensity  *float64 `json:"intensity,omitempty"`
	Sector     *string  `json:"sector,omitempty"`
	Topic      *string  `json:"topic,omitempty"`
	Insight    *string  `json:"insight,omitempty"`
	URL        *string  `json:"url,omitempty"`
	Region     *string  `json:"region,omitempty"`
	StartYear  *string  `json:"start_year,omitempty"`
	Impact     *string  `json:"impact,omitempty"`
	Added      *string  `json:"added,omitempty"`
	Published  *string  `json:"published,omitempty"`
	Country    *string  `json:"country,omitempty"`
	Relevance  *float64 `json:"relevance,omitempty"`
	Pestle     *string  `json:"pestle,omitempty"`
	Source     *string  `json:"source,omitempty"`
	Title      *string  `json:"title,omitempty"`
	Likelihood *float64 `json:"likelihood,omitempty"`

	// Extra keeps keys outside the known shape, and known keys whose value
	// could not be coerced, so they survive an export.
	Extra map[string]json.RawMessage `json:"-"`
}

// Field names a string-valued record key.
type Field string

const (
	FieldSector  Field = "sector"
	FieldRegion  Field = "region"
	FieldCountry Field = "country"
)

// plainRecord has Record's fields and tags but none of its methods.
type plainRecord Record

// Value returns the string field named by key and whether it is present.
func (r *Record) Value(f Field) (string, bool) {
	p := r.stringField(string(f))
	if p == nil || *p == nil {
		return "", false
	}
	return **p, true
}

// HasValue reports whether the field is present and non-empty.
func (r *Record) HasValue(f Field) bool {
	v, ok := r.Value(f)
	return ok && v != ""
}

func (r *Record) stringField(key string) **string {
	switch key {
	case "end_year":
		return &r.EndYear
	case "sector":
		return &r.Sector
	case "topic":
		return &r.Topic
	case "insight":
		return &r.Insight
	case "url":
		return &r.URL
	case "region":
		return &r.Region
	case "start_year":
		return &r.StartYear
	case "impact":
		return &r.Impact
	case "added":
		return &r.Added
	case "published":
		return &r.Published
	case "country":
		return &r.Country
	case "pestle":
		return &r.Pestle
	case "source":
		return &r.Source
	case "title":
		return &r.Title
	}
	return nil
}

func (r *Record) numberField(key string) **float64 {
	switch key {
	case "intensity":
		return &r.Intensity
	case "relevance":
		return &r.Relevance
	case "likelihood":
		return &r.Likelihood
	}
	return nil
}

// UnmarshalJSON decodes a JSON object leniently. Strings accept numbers and
// booleans, numbers accept numeric strings, null leaves a field absent.
func (r *Record) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}

	*r = Record{}
	for key, raw := range fields {
		raw = bytes.TrimSpace(raw)
		if isNull(raw) {
			continue
		}
		if dst := r.stringField(key); dst != nil {
			if s, ok := coerceString(raw); ok {
				*dst = &s
				continue
			}
		} else if dst := r.numberField(key); dst != nil {
			if n, ok := coerceNumber(raw); ok {
				*dst = &n
				continue
			}
		}
		var compact bytes.Buffer
		if err := json.Compact(&compact, raw); err != nil {
			return err
		}
		if r.Extra == nil {
			r.Extra = make(map[string]json.RawMessage)
		}
		r.Extra[key] = compact.Bytes()
	}
	return nil
}

// MarshalJSON encodes known fields in canonical order, followed by extra
// keys sorted by name. Absent fields are omitted.
func (r Record) MarshalJSON() ([]byte, error) {
	base, err := json.Marshal(plainRecord(r))
	if err != nil || len(r.Extra) == 0 {
		return base, err
	}

	keys := make([]string, 0, len(r.Extra))
	for k := range r.Extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var buf bytes.Buffer
	buf.Write(base[:len(base)-1])
	empty := len(base) == 2
	for _, k := range keys {
		if !empty {
			buf.WriteByte(',')
		}
		empty = false
		name, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(name)
		buf.WriteByte(':')
		if err := json.Compact(&buf, r.Extra[k]); err != nil {
			return nil, err
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func isNull(raw []byte) bool {
	return len(raw) == 0 || string(raw) == "null"
}

func coerceString(raw []byte) (string, bool) {
	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", false
		}
		return s, true
	case 't', 'f':
		return string(raw), true
	case '{', '[':
		return "", false
	}
	// number literal, kept as written
	return string(raw), true
}

func coerceNumber(raw []byte) (float64, bool) {
	text := string(raw)
	if raw[0] == '"' {
		if err := json.Unmarshal(raw, &text); err != nil {
			return 0, false
		}
		text = strings.TrimSpace(text)
	} else if raw[0] == '{' || raw[0] == '[' || raw[0] == 't' || raw[0] == 'f' {
		return 0, false
	}
	if text == "" {
		return 0, false
	}
	n, err := strconv.ParseFloat(text, 64)
	if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, false
	}
	return n, true
}

// Number returns *p, or 0 when the field is absent.
func Number(p *float64) float64 {
	if p == nil {
		return 0
	}
	return *p
}

// String returns *p, or "" when the field is absent.
func String(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
