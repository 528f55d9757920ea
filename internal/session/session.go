package session

import (
	"context"
	"errors"
	"io"

	"github.com/apex/log"

	"github.com/TobiSchelling/datalens/internal/aggregate"
	"github.com/TobiSchelling/datalens/internal/cache"
	"github.com/TobiSchelling/datalens/internal/config"
	"github.com/TobiSchelling/datalens/internal/dataset"
	"github.com/TobiSchelling/datalens/internal/export"
	"github.com/TobiSchelling/datalens/internal/filter"
	"github.com/TobiSchelling/datalens/internal/ingest"
)

// ErrNoDataset is returned when an operation needs an uploaded dataset.
var ErrNoDataset = errors.New("no dataset loaded")

// View is everything the presentation layer needs for one store generation.
type View struct {
	FileName   string              `json:"fileName"`
	Total      int                 `json:"total"`
	Criteria   dataset.Criteria    `json:"criteria"`
	Records    []dataset.Record    `json:"-"`
	Dashboard  aggregate.Dashboard `json:"dashboard"`
	Options    filter.Options      `json:"options"`
	Generation uint64              `json:"generation"`
}

// Loaded reports whether a dataset is present.
func (v *View) Loaded() bool {
	return v.Total > 0
}

// Filtered returns the number of records matching the criteria.
func (v *View) Filtered() int {
	return len(v.Records)
}

// Session owns the record store for one user of the local server.
type Session struct {
	store    *dataset.Store
	views    *cache.Cache[*View]
	maxBytes int64
}

// New creates an empty session.
func New(cfg *config.Config) *Session {
	return &Session{
		store:    dataset.NewStore(),
		views:    cache.New[*View](cfg.Cache.TTL, cfg.Cache.CleanupInterval),
		maxBytes: cfg.Upload.MaxBytes,
	}
}

// MaxBytes is the upload size limit.
func (s *Session) MaxBytes() int64 {
	return s.maxBytes
}

// Upload ingests a file and replaces the dataset. On error the current
// dataset is left untouched.
func (s *Session) Upload(ctx context.Context, name string, r io.Reader) (int, error) {
	records, err := ingest.Read(ctx, name, r, s.maxBytes)
	if err != nil {
		log.WithFields(log.Fields{"file": name, "error": err}).Warn("upload rejected")
		return 0, err
	}
	s.store.Replace(name, records)
	s.views.Flush()
	log.WithFields(log.Fields{"file": name, "records": len(records)}).Info("dataset loaded")
	return len(records), nil
}

// SetCriteria replaces the filter criteria.
func (s *Session) SetCriteria(c dataset.Criteria) {
	s.store.SetCriteria(c)
	log.WithField("criteria", c.Key()).Debug("criteria changed")
}

// ClearCriteria removes every restriction.
func (s *Session) ClearCriteria() {
	s.SetCriteria(dataset.Criteria{})
}

// Reset drops the dataset.
func (s *Session) Reset() {
	s.store.Reset()
	s.views.Flush()
	log.Info("dataset cleared")
}

// View filters and aggregates the current snapshot. Results are cached per
// generation, so any mutation forces a full recompute.
func (s *Session) View() *View {
	snap := s.store.Snapshot()
	key := cache.GenerationKey(snap.Generation)
	if v, ok := s.views.Get(key); ok {
		return v
	}

	filtered := filter.Apply(snap.Original, snap.Criteria)
	v := &View{
		FileName:   snap.FileName,
		Total:      len(snap.Original),
		Criteria:   snap.Criteria,
		Records:    filtered,
		Dashboard:  aggregate.Compute(filtered),
		Options:    filter.OptionsFor(snap.Original),
		Generation: snap.Generation,
	}
	s.views.Set(key, v)
	log.WithFields(log.Fields{"generation": snap.Generation, "filtered": len(filtered), "total": v.Total}).Debug("view computed")
	return v
}

// Export serializes the filtered records and names the download.
func (s *Session) Export() (string, []byte, error) {
	v := s.View()
	if !v.Loaded() {
		return "", nil, ErrNoDataset
	}
	data, err := export.Serialize(v.Records)
	if err != nil {
		return "", nil, err
	}
	return export.FileName(v.FileName), data, nil
}
