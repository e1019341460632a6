package controller

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/602gho/mtr-isl-hfc-webpage/internal/modules/weather/render"
	"github.com/602gho/mtr-isl-hfc-webpage/internal/modules/weather/service"
	"github.com/602gho/mtr-isl-hfc-webpage/internal/modules/weather/types"
	"github.com/602gho/mtr-isl-hfc-webpage/internal/views"
)

type mockRepo struct {
	latest      []types.Reading
	latestErr   error
	readings    []types.Reading
	readingsErr error

	latestCalls   int
	readingsCalls int
	gotPlace      string
}

func (m *mockRepo) InsertReading(ctx context.Context, r types.Reading) (bool, error) {
	return true, nil
}

func (m *mockRepo) GetLatestReadings(ctx context.Context, place string, limit int) ([]types.Reading, error) {
	m.latestCalls++
	m.gotPlace = place
	return m.latest, m.latestErr
}

func (m *mockRepo) GetReadings(ctx context.Context, place string, from, to time.Time, limit int) ([]types.Reading, error) {
	m.readingsCalls++
	m.gotPlace = place
	return m.readings, m.readingsErr
}

type stubSnapshots struct{ snap service.Snapshot }

func (s stubSnapshots) Snapshot() service.Snapshot { return s.snap }

type stubRefresher struct{ queue bool }

func (s stubRefresher) Trigger() bool { return s.queue }

func sampleSnapshot() service.Snapshot {
	temp := 23.0
	return service.Snapshot{
		Current: render.CurrentView{Icon: "🌤️", Place: "京士柏", Temperature: &temp, RainfallLabel: "無降雨"},
		Forecast: render.ForecastView{
			GeneralSituation: "天氣穩定。",
			Cards:            []render.ForecastCard{{Date: "01/16", Week: "星期二", Icon: "☀️"}},
		},
	}
}

func newController(repo *mockRepo) *weatherControllerImpl {
	return NewWeatherController(stubSnapshots{snap: sampleSnapshot()}, stubRefresher{queue: true}, repo).(*weatherControllerImpl)
}

func withoutTemplates(t *testing.T) {
	t.Helper()
	t.Cleanup(views.Unload())
}

func Test_partials_notLoaded(t *testing.T) {
	withoutTemplates(t)
	ctrl := newController(&mockRepo{})
	for name, h := range map[string]http.HandlerFunc{
		"/partials/weather":  ctrl.handleCurrentPartial,
		"/partials/forecast": ctrl.handleForecastPartial,
	} {
		rec := httptest.NewRecorder()
		h(rec, httptest.NewRequest(http.MethodGet, name, nil))
		if rec.Code != http.StatusInternalServerError {
			t.Errorf("%s status = %d; want %d", name, rec.Code, http.StatusInternalServerError)
		}
		if !strings.Contains(rec.Body.String(), "failed to render") {
			t.Errorf("%s body = %q; expected error JSON", name, rec.Body.String())
		}
	}
}

func Test_handleCurrentPartial(t *testing.T) {
	if err := views.LoadTemplates(); err != nil {
		t.Fatalf("LoadTemplates: %v", err)
	}
	ctrl := newController(&mockRepo{})
	rec := httptest.NewRecorder()

	ctrl.handleCurrentPartial(rec, httptest.NewRequest(http.MethodGet, "/partials/weather", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d; want %d", rec.Code, http.StatusOK)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/html; charset=utf-8" {
		t.Errorf("Content-Type = %q", ct)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "23°C") || !strings.Contains(body, `id="weather-info"`) {
		t.Errorf("body = %q", body)
	}
}

func Test_handleForecastPartial(t *testing.T) {
	if err := views.LoadTemplates(); err != nil {
		t.Fatalf("LoadTemplates: %v", err)
	}
	ctrl := newController(&mockRepo{})
	rec := httptest.NewRecorder()

	ctrl.handleForecastPartial(rec, httptest.NewRequest(http.MethodGet, "/partials/forecast", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d; want %d", rec.Code, http.StatusOK)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "天氣穩定。") || !strings.Contains(body, "01/16 星期二") {
		t.Errorf("body = %q", body)
	}
}

func Test_handleSnapshot(t *testing.T) {
	ctrl := newController(&mockRepo{})
	rec := httptest.NewRecorder()

	ctrl.handleSnapshot(rec, httptest.NewRequest(http.MethodGet, "/api/v1/weather", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d; want %d", rec.Code, http.StatusOK)
	}
	var got service.Snapshot
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Current.Temperature == nil || *got.Current.Temperature != 23 {
		t.Errorf("current = %+v", got.Current)
	}
	if len(got.Forecast.Cards) != 1 {
		t.Errorf("forecast cards = %d; want 1", len(got.Forecast.Cards))
	}
}

func Test_handleRefresh(t *testing.T) {
	ctrl := NewWeatherController(stubSnapshots{}, stubRefresher{queue: false}, &mockRepo{}).(*weatherControllerImpl)
	rec := httptest.NewRecorder()

	ctrl.handleRefresh(rec, httptest.NewRequest(http.MethodPost, "/api/v1/weather/refresh", nil))

	if rec.Code != http.StatusAccepted {
		t.Errorf("status = %d; want %d", rec.Code, http.StatusAccepted)
	}
	if !strings.Contains(rec.Body.String(), "already queued") {
		t.Errorf("body = %q", rec.Body.String())
	}
}

func Test_handleReadings(t *testing.T) {
	t.Run("latest when no window", func(t *testing.T) {
		repo := &mockRepo{latest: []types.Reading{{Place: "京士柏", Time: time.Now(), TemperatureC: 19.5}}}
		ctrl := newController(repo)
		rec := httptest.NewRecorder()

		ctrl.handleReadings(rec, httptest.NewRequest(http.MethodGet, "/api/v1/weather/readings?place=%E4%BA%AC%E5%A3%AB%E6%9F%8F", nil))

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d; want %d", rec.Code, http.StatusOK)
		}
		if repo.latestCalls != 1 || repo.readingsCalls != 0 {
			t.Errorf("calls latest=%d readings=%d", repo.latestCalls, repo.readingsCalls)
		}
		if repo.gotPlace != "京士柏" {
			t.Errorf("place = %q", repo.gotPlace)
		}
		var body map[string]any
		if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if body["from"] != nil || body["to"] != nil {
			t.Errorf("from/to = %v/%v; want null", body["from"], body["to"])
		}
		if limit, _ := body["limit"].(float64); int(limit) != 100 {
			t.Errorf("limit = %v; want 100", body["limit"])
		}
		items, ok := body["items"].([]any)
		if !ok || len(items) != 1 {
			t.Errorf("items = %v", body["items"])
		}
	})

	t.Run("window query", func(t *testing.T) {
		repo := &mockRepo{readings: []types.Reading{}}
		ctrl := newController(repo)
		rec := httptest.NewRecorder()

		ctrl.handleReadings(rec, httptest.NewRequest(http.MethodGet, "/api/v1/weather/readings?from=2025-01-01T00:00:00Z&limit=10", nil))

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d; want %d", rec.Code, http.StatusOK)
		}
		if repo.readingsCalls != 1 || repo.latestCalls != 0 {
			t.Errorf("calls latest=%d readings=%d", repo.latestCalls, repo.readingsCalls)
		}
	})

	t.Run("since window", func(t *testing.T) {
		repo := &mockRepo{readings: []types.Reading{}}
		rec := httptest.NewRecorder()

		newController(repo).handleReadings(rec, httptest.NewRequest(http.MethodGet, "/api/v1/weather/readings?since=24h", nil))

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d; want %d", rec.Code, http.StatusOK)
		}
		if repo.readingsCalls != 1 || repo.latestCalls != 0 {
			t.Errorf("calls latest=%d readings=%d", repo.latestCalls, repo.readingsCalls)
		}
		var body map[string]any
		if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if body["from"] == nil || body["to"] == nil {
			t.Errorf("from/to = %v/%v; want both set", body["from"], body["to"])
		}
	})

	t.Run("400 on invalid query", func(t *testing.T) {
		for _, q := range []string{"from=not-a-date", "to=bad", "limit=abc", "limit=0", "since=2w", "from=2026-02-02T10:00:00Z&to=2026-02-02T09:00:00Z"} {
			rec := httptest.NewRecorder()
			newController(&mockRepo{}).handleReadings(rec, httptest.NewRequest(http.MethodGet, "/api/v1/weather/readings?"+q, nil))
			if rec.Code != http.StatusBadRequest {
				t.Errorf("%s: status = %d; want %d", q, rec.Code, http.StatusBadRequest)
			}
			var body map[string]any
			if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
				t.Fatalf("%s: decode: %v", q, err)
			}
			if _, ok := body["error"]; !ok {
				t.Errorf("%s: expected error field, got %v", q, body)
			}
			if _, ok := body["message"]; !ok {
				t.Errorf("%s: expected message field, got %v", q, body)
			}
		}
	})

	t.Run("500 when repository fails", func(t *testing.T) {
		rec := httptest.NewRecorder()
		newController(&mockRepo{latestErr: errors.New("db error")}).handleReadings(rec, httptest.NewRequest(http.MethodGet, "/api/v1/weather/readings", nil))
		if rec.Code != http.StatusInternalServerError {
			t.Errorf("status = %d; want %d", rec.Code, http.StatusInternalServerError)
		}
	})
}
