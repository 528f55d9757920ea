package server

import (
	"bytes"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/apex/log"

	"github.com/TobiSchelling/datalens/internal/aggregate"
	"github.com/TobiSchelling/datalens/internal/config"
	"github.com/TobiSchelling/datalens/internal/dataset"
	"github.com/TobiSchelling/datalens/internal/export"
	"github.com/TobiSchelling/datalens/internal/ingest"
	"github.com/TobiSchelling/datalens/internal/report"
	"github.com/TobiSchelling/datalens/internal/session"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static/*
var staticFS embed.FS

// countryListLimit is how many countries the filter form lists.
const countryListLimit = 20

// Server is the HTTP server for the dashboard.
type Server struct {
	sess    *session.Session
	uploads *Limiter
	pages   map[string]*template.Template
	mux     *http.ServeMux
}

// New creates a new Server. uploads may be nil for no upload rate limit.
func New(sess *session.Session, uploads *Limiter) (*Server, error) {
	funcMap := template.FuncMap{
		"oneDecimal": aggregate.FormatOneDecimal,
		"barWidth":   barWidth,
		"contains":   contains,
		"head": func(n int, items []string) []string {
			if len(items) > n {
				return items[:n]
			}
			return items
		},
		"sub": func(a, b int) int { return a - b },
		"rangeMin": func(c dataset.Criteria) string {
			if c.IntensityRange == nil {
				return ""
			}
			return strconv.FormatFloat(c.IntensityRange.Min, 'g', -1, 64)
		},
		"rangeMax": func(c dataset.Criteria) string {
			if c.IntensityRange == nil {
				return ""
			}
			return strconv.FormatFloat(c.IntensityRange.Max, 'g', -1, 64)
		},
	}

	// Parse base template first
	base, err := template.New("base.html").Funcs(funcMap).ParseFS(templateFS, "templates/base.html")
	if err != nil {
		return nil, fmt.Errorf("parsing base template: %w", err)
	}

	// For each page template, clone the base and parse the page into the clone.
	// This gives each page its own {{define "content"}} and {{define "title"}}.
	pageNames := []string{"upload.html", "dashboard.html", "report.html"}
	pages := make(map[string]*template.Template, len(pageNames))
	for _, name := range pageNames {
		clone, err := base.Clone()
		if err != nil {
			return nil, fmt.Errorf("cloning base for %s: %w", name, err)
		}
		_, err = clone.ParseFS(templateFS, "templates/"+name)
		if err != nil {
			return nil, fmt.Errorf("parsing template %s: %w", name, err)
		}
		pages[name] = clone
	}

	s := &Server{sess: sess, uploads: uploads, pages: pages, mux: http.NewServeMux()}
	s.routes()
	return s, nil
}

// Handler returns the HTTP handler for the server.
func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) routes() {
	// Static files
	staticSub, _ := fs.Sub(staticFS, "static")
	s.mux.Handle("/static/", http.StripPrefix("/static/", http.FileServer(http.FS(staticSub))))

	// Pages
	s.mux.HandleFunc("/", s.handleIndex)
	s.mux.HandleFunc("/upload", s.handleUpload)
	s.mux.HandleFunc("/filters", s.handleFilters)
	s.mux.HandleFunc("/filters/clear", s.handleClearFilters)
	s.mux.HandleFunc("/reset", s.handleReset)
	s.mux.HandleFunc("/export", s.handleExport)
	s.mux.HandleFunc("/report", s.handleReport)

	// JSON API
	s.mux.HandleFunc("/api/dashboard", s.handleAPIDashboard)
	s.mux.HandleFunc("/api/records", s.handleAPIRecords)
	s.mux.HandleFunc("/api/options", s.handleAPIOptions)
	s.mux.HandleFunc("/api/schema", s.handleAPISchema)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	view := s.sess.View()
	if !view.Loaded() {
		s.render(w, http.StatusOK, "upload.html", map[string]any{})
		return
	}
	s.render(w, http.StatusOK, "dashboard.html", dashboardData(view, ""))
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}
	if !s.uploads.Allow(r) {
		log.WithField("client", clientHost(r)).Warn("upload rate limited")
		s.renderError(w, http.StatusTooManyRequests, "Too many uploads. Please wait a moment and try again.")
		return
	}

	if limit := s.sess.MaxBytes(); limit > 0 {
		// room for the multipart envelope; ingest enforces the exact limit
		r.Body = http.MaxBytesReader(w, r.Body, limit+1<<20)
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		log.WithError(err).Warn("upload without file")
		s.renderError(w, http.StatusBadRequest, "Please choose a JSON file to upload.")
		return
	}
	defer file.Close()

	if _, err := s.sess.Upload(r.Context(), header.Filename, file); err != nil {
		s.renderError(w, http.StatusBadRequest, ingest.UserMessage(err))
		return
	}
	http.Redirect(w, r, "/", http.StatusFound)
}

// renderError shows the message on whichever page is current; the dataset
// is unchanged by a failed request.
func (s *Server) renderError(w http.ResponseWriter, status int, msg string) {
	view := s.sess.View()
	if !view.Loaded() {
		s.render(w, status, "upload.html", map[string]any{"Error": msg})
		return
	}
	s.render(w, status, "dashboard.html", dashboardData(view, msg))
}

func (s *Server) handleFilters(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}

	if isJSON(r) {
		var c dataset.Criteria
		if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		s.sess.SetCriteria(c)
		writeJSON(w, http.StatusOK, s.sess.View())
		return
	}

	c, err := criteriaFromForm(r)
	if err != nil {
		s.renderError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.sess.SetCriteria(c)
	http.Redirect(w, r, "/", http.StatusFound)
}

func (s *Server) handleClearFilters(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodPost {
		s.sess.ClearCriteria()
	}
	http.Redirect(w, r, "/", http.StatusFound)
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodPost {
		s.sess.Reset()
	}
	http.Redirect(w, r, "/", http.StatusFound)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	name, data, err := s.sess.Export()
	if errors.Is(err, session.ErrNoDataset) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		log.WithError(err).Error("export failed")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": name}))
	http.ServeContent(w, r, name, time.Time{}, bytes.NewReader(data))
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	view := s.sess.View()
	if !view.Loaded() {
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}

	text := report.Compose(report.Input{
		FileName:  view.FileName,
		Total:     view.Total,
		Criteria:  view.Criteria,
		Dashboard: view.Dashboard,
	})
	s.render(w, http.StatusOK, "report.html", map[string]any{
		"FileName": view.FileName,
		"Report":   report.Render(text),
	})
}

func (s *Server) handleAPIDashboard(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.sess.View())
}

func (s *Server) handleAPIRecords(w http.ResponseWriter, r *http.Request) {
	view := s.sess.View()
	records := view.Records
	if records == nil {
		records = []dataset.Record{}
	}
	writeJSON(w, http.StatusOK, records)
}

func (s *Server) handleAPIOptions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.sess.View().Options)
}

func (s *Server) handleAPISchema(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, ingest.Schema())
}

func (s *Server) render(w http.ResponseWriter, status int, name string, data any) {
	tmpl, ok := s.pages[name]
	if !ok {
		log.Errorf("Template %s not found", name)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := tmpl.ExecuteTemplate(w, "base.html", data); err != nil {
		log.Errorf("Error rendering template %s: %v", name, err)
	}
}

func dashboardData(view *session.View, errMsg string) map[string]any {
	return map[string]any{
		"View":          view,
		"Error":         errMsg,
		"CountryLimit":  countryListLimit,
		"MaxSector":     maxCount(view.Dashboard.Sectors),
		"MaxRegion":     maxCount(view.Dashboard.Regions),
		"MaxBin":        maxCount(binCounts(view.Dashboard.Histogram)),
		"MaxMonth":      maxMonth(view.Dashboard.Monthly),
		"ExportName":    export.FileName(view.FileName),
		"RegionAverage": view.Dashboard.RegionIntensity,
	}
}

// criteriaFromForm reads sector/region/country checkboxes and the optional
// min_intensity/max_intensity pair. A range needs both bounds.
func criteriaFromForm(r *http.Request) (dataset.Criteria, error) {
	if err := r.ParseForm(); err != nil {
		return dataset.Criteria{}, fmt.Errorf("reading filters: %w", err)
	}
	c := dataset.Criteria{
		Sector:  nonEmpty(r.PostForm["sector"]),
		Region:  nonEmpty(r.PostForm["region"]),
		Country: nonEmpty(r.PostForm["country"]),
	}

	minText := strings.TrimSpace(r.PostForm.Get("min_intensity"))
	maxText := strings.TrimSpace(r.PostForm.Get("max_intensity"))
	if minText == "" && maxText == "" {
		return c, nil
	}
	if minText == "" || maxText == "" {
		return c, fmt.Errorf("intensity range needs both a minimum and a maximum")
	}
	lo, err := strconv.ParseFloat(minText, 64)
	if err != nil {
		return c, fmt.Errorf("invalid minimum intensity %q", minText)
	}
	hi, err := strconv.ParseFloat(maxText, 64)
	if err != nil {
		return c, fmt.Errorf("invalid maximum intensity %q", maxText)
	}
	c.IntensityRange = &dataset.Range{Min: lo, Max: hi}
	return c, nil
}

func nonEmpty(values []string) []string {
	var out []string
	for _, v := range values {
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}

func isJSON(r *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mediaType == "application/json"
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		log.WithError(err).Error("encoding response")
	}
}

func contains(items []string, v string) bool {
	for _, item := range items {
		if item == v {
			return true
		}
	}
	return false
}

// barWidth scales a count to a percentage of the largest bar.
func barWidth(count, max int) int {
	if max <= 0 {
		return 0
	}
	return count * 100 / max
}

func maxCount(counts []aggregate.Count) int {
	m := 0
	for _, c := range counts {
		if c.Count > m {
			m = c.Count
		}
	}
	return m
}

func binCounts(bins []aggregate.BinCount) []aggregate.Count {
	out := make([]aggregate.Count, len(bins))
	for i, b := range bins {
		out[i] = aggregate.Count{Label: b.Range, Count: b.Count}
	}
	return out
}

func maxMonth(buckets []aggregate.MonthBucket) int {
	m := 0
	for _, b := range buckets {
		if b.Count > m {
			m = b.Count
		}
	}
	return m
}

// Serve starts the HTTP server on the configured address.
func Serve(cfg *config.Config, sess *session.Session) error {
	srv, err := New(sess, NewLimiter(cfg.Upload.RatePerSecond, cfg.Upload.Burst))
	if err != nil {
		return err
	}

	addr := cfg.Addr()
	log.Infof("Server listening on http://%s", addr)
	return http.ListenAndServe(addr, srv.Handler())
}
