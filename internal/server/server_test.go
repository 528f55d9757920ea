package server

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/TobiSchelling/datalens/internal/config"
	"github.com/TobiSchelling/datalens/internal/dataset"
	"github.com/TobiSchelling/datalens/internal/session"
)

const sample = `[
  {"sector": "Energy", "region": "Asia", "country": "India", "intensity": 6, "relevance": 3, "published": "January, 20 2017 03:51:25"},
  {"sector": "Retail", "region": "Europe", "country": "France", "intensity": 2, "published": "2017-03-02"},
  {"sector": "Energy", "region": "Europe", "intensity": 9, "title": "Grid <upgrade>"}
]`

func newTestServer(t *testing.T) (*Server, *session.Session) {
	t.Helper()
	sess := session.New(config.Default())
	srv, err := New(sess, nil)
	if err != nil {
		t.Fatalf("failed to create server: %v", err)
	}
	return srv, sess
}

func do(srv *Server, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func uploadRequest(t *testing.T, name, content string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", name)
	if err != nil {
		t.Fatalf("failed to create form file: %v", err)
	}
	fw.Write([]byte(content))
	mw.Close()

	req := httptest.NewRequest("POST", "/upload", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func loaded(t *testing.T) *Server {
	t.Helper()
	srv, _ := newTestServer(t)
	rec := do(srv, uploadRequest(t, "sample.json", sample))
	if rec.Code != http.StatusFound {
		t.Fatalf("expected 302 after upload, got %d: %s", rec.Code, rec.Body.String())
	}
	return srv
}

func TestIndexWithoutDataset(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := do(srv, httptest.NewRequest("GET", "/", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, `name="file"`) {
		t.Error("expected upload form in response body")
	}
	if !strings.Contains(body, "/api/schema") {
		t.Error("expected schema link in response body")
	}
}

func TestUnknownPath(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := do(srv, httptest.NewRequest("GET", "/nope", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

func TestUploadShowsDashboard(t *testing.T) {
	srv := loaded(t)

	rec := do(srv, httptest.NewRequest("GET", "/", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{
		"Analyzing 3 of 3 entries from sample.json",
		"Energy",
		"Very High (9+)",
		"5.7",
		"filtered_sample.json",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("expected %q in dashboard", want)
		}
	}
}

func TestUploadErrors(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
		want    string
	}{
		{"wrong extension", "data.csv", sample, "Please upload a JSON file."},
		{"empty array", "data.json", `[]`, "No data found in the file"},
		{"malformed", "data.json", `{"sector":`, "Please ensure your file contains valid JSON data."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _ := newTestServer(t)
			rec := do(srv, uploadRequest(t, tt.file, tt.content))
			if rec.Code != http.StatusBadRequest {
				t.Errorf("expected 400, got %d", rec.Code)
			}
			if !strings.Contains(rec.Body.String(), tt.want) {
				t.Errorf("expected %q in body, got %s", tt.want, rec.Body.String())
			}
		})
	}
}

func TestFailedUploadKeepsDataset(t *testing.T) {
	srv := loaded(t)

	rec := do(srv, uploadRequest(t, "other.json", `[]`))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Analyzing 3 of 3 entries from sample.json") {
		t.Error("expected previous dataset to remain")
	}
}

func TestUploadWithoutFile(t *testing.T) {
	srv, _ := newTestServer(t)
	req := httptest.NewRequest("POST", "/upload", strings.NewReader(""))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	rec := do(srv, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestFiltersForm(t *testing.T) {
	srv := loaded(t)

	form := url.Values{"sector": {"Energy"}, "min_intensity": {"0"}, "max_intensity": {"7"}}
	req := httptest.NewRequest("POST", "/filters", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := do(srv, req)
	if rec.Code != http.StatusFound {
		t.Fatalf("expected 302, got %d", rec.Code)
	}

	rec = do(srv, httptest.NewRequest("GET", "/", nil))
	body := rec.Body.String()
	if !strings.Contains(body, "Analyzing 1 of 3 entries") {
		t.Errorf("expected filtered count in dashboard, got %s", body)
	}
	if !strings.Contains(body, `value="Energy" checked`) {
		t.Error("expected Energy checkbox to be checked")
	}
}

func TestFiltersFormHalfRange(t *testing.T) {
	srv := loaded(t)

	form := url.Values{"min_intensity": {"3"}}
	req := httptest.NewRequest("POST", "/filters", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := do(srv, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "both a minimum and a maximum") {
		t.Error("expected range error in body")
	}
}

func TestFiltersJSON(t *testing.T) {
	srv := loaded(t)

	req := httptest.NewRequest("POST", "/filters", strings.NewReader(`{"region":["Europe"],"intensityRange":[5,10]}`))
	req.Header.Set("Content-Type", "application/json")
	rec := do(srv, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var view session.View
	if err := json.Unmarshal(rec.Body.Bytes(), &view); err != nil {
		t.Fatalf("failed to decode view: %v", err)
	}
	if view.Total != 3 {
		t.Errorf("expected total 3, got %d", view.Total)
	}
	if view.Dashboard.Summary.TotalEntries != 1 {
		t.Errorf("expected 1 filtered entry, got %d", view.Dashboard.Summary.TotalEntries)
	}
	if view.Criteria.IntensityRange == nil || view.Criteria.IntensityRange.Max != 10 {
		t.Errorf("expected range echoed back, got %+v", view.Criteria.IntensityRange)
	}
}

func TestFiltersJSONInvalid(t *testing.T) {
	srv := loaded(t)

	req := httptest.NewRequest("POST", "/filters", strings.NewReader(`{"intensityRange":[1]}`))
	req.Header.Set("Content-Type", "application/json")
	rec := do(srv, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestClearFilters(t *testing.T) {
	srv := loaded(t)

	req := httptest.NewRequest("POST", "/filters", strings.NewReader(`{"sector":["Retail"]}`))
	req.Header.Set("Content-Type", "application/json")
	do(srv, req)

	rec := do(srv, httptest.NewRequest("POST", "/filters/clear", nil))
	if rec.Code != http.StatusFound {
		t.Errorf("expected 302, got %d", rec.Code)
	}

	rec = do(srv, httptest.NewRequest("GET", "/", nil))
	if !strings.Contains(rec.Body.String(), "Analyzing 3 of 3 entries") {
		t.Error("expected all entries after clearing filters")
	}
}

func TestReset(t *testing.T) {
	srv := loaded(t)

	rec := do(srv, httptest.NewRequest("POST", "/reset", nil))
	if rec.Code != http.StatusFound {
		t.Errorf("expected 302, got %d", rec.Code)
	}

	rec = do(srv, httptest.NewRequest("GET", "/", nil))
	if !strings.Contains(rec.Body.String(), `name="file"`) {
		t.Error("expected upload form after reset")
	}
}

func TestExport(t *testing.T) {
	srv := loaded(t)

	req := httptest.NewRequest("POST", "/filters", strings.NewReader(`{"sector":["Energy"]}`))
	req.Header.Set("Content-Type", "application/json")
	do(srv, req)

	rec := do(srv, httptest.NewRequest("GET", "/export", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, "filtered_sample.json") {
		t.Errorf("expected export file name in Content-Disposition, got %q", cd)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected application/json, got %q", ct)
	}

	var records []dataset.Record
	if err := json.Unmarshal(rec.Body.Bytes(), &records); err != nil {
		t.Fatalf("failed to decode export: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 exported records, got %d", len(records))
	}
	if dataset.String(records[1].Title) != "Grid <upgrade>" {
		t.Errorf("expected title preserved, got %q", dataset.String(records[1].Title))
	}
	if !strings.HasPrefix(rec.Body.String(), "[\n  {") {
		t.Error("expected two-space indented output")
	}
}

func TestExportWithoutDataset(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := do(srv, httptest.NewRequest("GET", "/export", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

func TestAPIDashboard(t *testing.T) {
	srv := loaded(t)

	rec := do(srv, httptest.NewRequest("GET", "/api/dashboard", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var view session.View
	if err := json.Unmarshal(rec.Body.Bytes(), &view); err != nil {
		t.Fatalf("failed to decode view: %v", err)
	}
	if view.FileName != "sample.json" {
		t.Errorf("expected file name sample.json, got %q", view.FileName)
	}
	if len(view.Dashboard.Yearly) != 1 || view.Dashboard.Yearly[0].Year != 2017 {
		t.Errorf("expected one 2017 bucket, got %+v", view.Dashboard.Yearly)
	}
	if len(view.Dashboard.Correlation) != 1 {
		t.Errorf("expected 1 correlation point, got %d", len(view.Dashboard.Correlation))
	}
}

func TestAPIRecords(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := do(srv, httptest.NewRequest("GET", "/api/records", nil))
	if strings.TrimSpace(rec.Body.String()) != "[]" {
		t.Errorf("expected empty array without dataset, got %s", rec.Body.String())
	}

	do(srv, uploadRequest(t, "sample.json", sample))
	rec = do(srv, httptest.NewRequest("GET", "/api/records", nil))
	var records []dataset.Record
	if err := json.Unmarshal(rec.Body.Bytes(), &records); err != nil {
		t.Fatalf("failed to decode records: %v", err)
	}
	if len(records) != 3 {
		t.Errorf("expected 3 records, got %d", len(records))
	}
}

func TestAPIOptions(t *testing.T) {
	srv := loaded(t)

	rec := do(srv, httptest.NewRequest("GET", "/api/options", nil))
	var opts struct {
		Sectors      []string `json:"sectors"`
		Countries    []string `json:"countries"`
		MaxIntensity float64  `json:"maxIntensity"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &opts); err != nil {
		t.Fatalf("failed to decode options: %v", err)
	}
	if strings.Join(opts.Sectors, ",") != "Energy,Retail" {
		t.Errorf("unexpected sectors: %v", opts.Sectors)
	}
	if strings.Join(opts.Countries, ",") != "France,India" {
		t.Errorf("unexpected countries: %v", opts.Countries)
	}
	if opts.MaxIntensity != 9 {
		t.Errorf("expected max intensity 9, got %v", opts.MaxIntensity)
	}
}

func TestAPISchema(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := do(srv, httptest.NewRequest("GET", "/api/schema", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"intensity"`) {
		t.Error("expected intensity property in schema")
	}
}

func TestReport(t *testing.T) {
	srv := loaded(t)

	rec := do(srv, httptest.NewRequest("GET", "/report", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "<h1>Data Insights: sample.json</h1>") {
		t.Error("expected rendered report heading")
	}
	if !strings.Contains(body, "<table>") {
		t.Error("expected rendered tables")
	}
}

func TestReportWithoutDataset(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := do(srv, httptest.NewRequest("GET", "/report", nil))
	if rec.Code != http.StatusFound {
		t.Errorf("expected 302, got %d", rec.Code)
	}
}

func TestStaticFiles(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := do(srv, httptest.NewRequest("GET", "/static/style.css", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestUploadRateLimited(t *testing.T) {
	sess := session.New(config.Default())
	srv, err := New(sess, NewLimiter(0.001, 1))
	if err != nil {
		t.Fatalf("failed to create server: %v", err)
	}

	if rec := do(srv, uploadRequest(t, "sample.json", sample)); rec.Code != http.StatusFound {
		t.Fatalf("expected 302, got %d", rec.Code)
	}
	rec := do(srv, uploadRequest(t, "sample.json", sample))
	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("expected 429, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Too many uploads") {
		t.Error("expected rate limit message")
	}
}

func TestBarWidth(t *testing.T) {
	if got := barWidth(5, 10); got != 50 {
		t.Errorf("expected 50, got %d", got)
	}
	if got := barWidth(3, 0); got != 0 {
		t.Errorf("expected 0, got %d", got)
	}
}
