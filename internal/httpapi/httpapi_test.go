package httpapi

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

type stubRuns struct {
	last map[string]time.Time
	err  error
}

func (s stubRuns) LastSuccess(ctx context.Context, source string) (time.Time, error) {
	return s.last[source], s.err
}

func openMemDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func newTestServer(t *testing.T, db *sql.DB, runs SuccessReporter) *httptest.Server {
	t.Helper()

	staticDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(staticDir, "style.css"), []byte("body{}"), 0o600); err != nil {
		t.Fatalf("write static file: %v", err)
	}

	mux := NewMux(db, staticDir, runs, "trains", "weather")
	ts := httptest.NewServer(requestLogger(mux))

	t.Cleanup(ts.Close)
	return ts
}

func mustGetJSON[T any](t *testing.T, client *http.Client, url string, out *T) *http.Response {
	t.Helper()

	resp, err := client.Get(url)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	t.Cleanup(func() { _ = resp.Body.Close() })

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		t.Fatalf("decode json: %v", err)
	}
	return resp
}

func mustGetRaw(t *testing.T, client *http.Client, url string) *http.Response {
	t.Helper()

	resp, err := client.Get(url)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func TestHealthz(t *testing.T) {
	last := time.Date(2024, 1, 15, 2, 0, 0, 0, time.UTC)
	ts := newTestServer(t, openMemDB(t), stubRuns{last: map[string]time.Time{"trains": last}})

	var body struct {
		Status      string                `json:"status"`
		LastSuccess map[string]*time.Time `json:"lastSuccess"`
	}
	resp := mustGetJSON(t, ts.Client(), ts.URL+"/healthz", &body)

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status=%d want=%d", resp.StatusCode, http.StatusOK)
	}
	if body.Status != "ok" {
		t.Fatalf("body.status=%q want=%q", body.Status, "ok")
	}
	if got := body.LastSuccess["trains"]; got == nil || !got.Equal(last) {
		t.Errorf("lastSuccess.trains=%v want=%v", got, last)
	}
	if got, ok := body.LastSuccess["weather"]; !ok || got != nil {
		t.Errorf("lastSuccess.weather=%v present=%v want null", got, ok)
	}
}

func TestHealthz_NoRuns(t *testing.T) {
	ts := newTestServer(t, openMemDB(t), nil)

	var body map[string]any
	resp := mustGetJSON(t, ts.Client(), ts.URL+"/healthz", &body)

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status=%d want=%d", resp.StatusCode, http.StatusOK)
	}
	if _, ok := body["lastSuccess"]; ok {
		t.Errorf("lastSuccess present without a run log: %v", body)
	}
}

func TestHealthz_Failures(t *testing.T) {
	closed := openMemDB(t)
	_ = closed.Close()

	tests := []struct {
		name string
		db   *sql.DB
		runs SuccessReporter
	}{
		{name: "database closed", db: closed, runs: nil},
		{name: "run log fails", db: openMemDB(t), runs: stubRuns{err: errors.New("boom")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t, tt.db, tt.runs)

			var body map[string]any
			resp := mustGetJSON(t, ts.Client(), ts.URL+"/healthz", &body)

			if resp.StatusCode != http.StatusInternalServerError {
				t.Fatalf("status=%d want=%d", resp.StatusCode, http.StatusInternalServerError)
			}
			if _, ok := body["error"]; !ok {
				t.Fatalf("expected error field, got %v", body)
			}
		})
	}
}

func TestStatic(t *testing.T) {
	ts := newTestServer(t, openMemDB(t), nil)

	resp := mustGetRaw(t, ts.Client(), ts.URL+"/static/style.css")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status=%d want=%d", resp.StatusCode, http.StatusOK)
	}
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(b) != "body{}" {
		t.Errorf("body=%q want=%q", b, "body{}")
	}

	if resp := mustGetRaw(t, ts.Client(), ts.URL+"/static/missing.css"); resp.StatusCode != http.StatusNotFound {
		t.Errorf("missing file status=%d want=%d", resp.StatusCode, http.StatusNotFound)
	}
}

func TestRouting_UnknownRoute(t *testing.T) {
	ts := newTestServer(t, openMemDB(t), nil)

	resp := mustGetRaw(t, ts.Client(), ts.URL+"/does-not-exist")
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status=%d want=%d", resp.StatusCode, http.StatusNotFound)
	}
}

func TestRouting_WrongMethod(t *testing.T) {
	ts := newTestServer(t, openMemDB(t), nil)

	resp, err := ts.Client().Post(ts.URL+"/healthz", "text/plain", nil)
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("status=%d want=%d", resp.StatusCode, http.StatusMethodNotAllowed)
	}
}

func Test_statusRecorder(t *testing.T) {
	rec := httptest.NewRecorder()
	sr := &statusRecorder{ResponseWriter: rec, status: http.StatusOK}

	sr.WriteHeader(http.StatusTeapot)

	if sr.status != http.StatusTeapot || rec.Code != http.StatusTeapot {
		t.Fatalf("status=%d recorder=%d want=%d", sr.status, rec.Code, http.StatusTeapot)
	}
}

func Test_isPollPath(t *testing.T) {
	tests := map[string]bool{
		"/partials/trains":  true,
		"/static/style.css": true,
		"/":                 false,
		"/api/v1/trains":    false,
		"/healthz":          false,
	}
	for path, want := range tests {
		if got := isPollPath(path); got != want {
			t.Errorf("isPollPath(%q)=%v want=%v", path, got, want)
		}
	}
}
