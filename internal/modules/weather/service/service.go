package service

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/602gho/mtr-isl-hfc-webpage/internal/config"
	"github.com/602gho/mtr-isl-hfc-webpage/internal/modules/weather/render"
	"github.com/602gho/mtr-isl-hfc-webpage/internal/modules/weather/repository"
	"github.com/602gho/mtr-isl-hfc-webpage/internal/modules/weather/types"
)

// Poll-run source names.
const (
	SourceCurrent  = "weather"
	SourceForecast = "forecast"
)

type Fetcher interface {
	GetJSON(ctx context.Context, baseURL string, query url.Values, out any) error
}

type RunRecorder interface {
	Record(ctx context.Context, source string, startedAt time.Time, duration time.Duration, runErr error) error
}

type Publisher interface {
	PublishJSON(topic string, v any) error
}

// Snapshot is what the API and MQTT expose for one weather pass.
type Snapshot struct {
	Current  render.CurrentView  `json:"current"`
	Forecast render.ForecastView `json:"forecast"`
}

type Service struct {
	fetcher    Fetcher
	repository repository.WeatherRepository
	runs       RunRecorder
	publisher  Publisher
	logger     *slog.Logger

	apiURL string
	lang   string
	place  string
	topic  string
	now    func() time.Time

	mu       sync.RWMutex
	current  render.CurrentView
	forecast render.ForecastView
}

// NewService wires the weather service. repository, runs and publisher may be nil.
func NewService(cfg config.Config, fetcher Fetcher, repository repository.WeatherRepository, runs RunRecorder, publisher Publisher, logger *slog.Logger) *Service {
	return &Service{
		fetcher:    fetcher,
		repository: repository,
		runs:       runs,
		publisher:  publisher,
		logger:     logger,
		apiURL:     cfg.WeatherAPIURL,
		lang:       cfg.WeatherLang,
		place:      cfg.WeatherPlace,
		topic:      cfg.MQTTTopicPrefix + "/weather",
		now:        time.Now,
		forecast:   render.ForecastView{Cards: []render.ForecastCard{}},
	}
}

func (s *Service) Current() render.CurrentView {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

func (s *Service) Forecast() render.ForecastView {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.forecast
}

func (s *Service) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{Current: s.current, Forecast: s.forecast}
}

// Refresh runs one current-conditions pass and one forecast pass. It is the poller task.
func (s *Service) Refresh(ctx context.Context) {
	if !s.refreshCurrent(ctx) {
		return
	}
	if !s.refreshForecast(ctx) {
		return
	}

	if s.publisher != nil {
		if err := s.publisher.PublishJSON(s.topic, s.Snapshot()); err != nil {
			s.logger.Warn("publish weather snapshot", "topic", s.topic, "error", err)
		}
	}
}

// refreshCurrent reports false when ctx was cancelled mid-fetch.
func (s *Service) refreshCurrent(ctx context.Context) bool {
	started := s.now()

	var resp types.CurrentResponse
	err := s.fetcher.GetJSON(ctx, s.apiURL, s.query("rhrread"), &resp)
	if err != nil && ctx.Err() != nil {
		return false
	}
	finished := s.now()

	var view render.CurrentView
	if err != nil {
		view = render.CurrentFailed(err, finished)
	} else {
		view = render.Current(resp, s.place, finished)
	}

	s.mu.Lock()
	s.current = view
	s.mu.Unlock()

	runErr := err
	if runErr == nil && view.Error != "" {
		runErr = errors.New(view.Error)
	}
	if runErr != nil {
		s.logger.Warn("weather refresh failed", "error", runErr)
	} else {
		s.logger.Debug("weather updated", "place", view.Place, "temperature", *view.Temperature)
		s.storeReading(ctx, view, finished)
	}
	s.recordRun(ctx, SourceCurrent, started, finished, runErr)
	return true
}

func (s *Service) refreshForecast(ctx context.Context) bool {
	started := s.now()

	var resp types.ForecastResponse
	err := s.fetcher.GetJSON(ctx, s.apiURL, s.query("fnd"), &resp)
	if err != nil && ctx.Err() != nil {
		return false
	}
	finished := s.now()

	var view render.ForecastView
	if err != nil {
		view = render.ForecastFailed(err, finished)
		s.logger.Warn("forecast refresh failed", "error", err)
	} else {
		view = render.Forecast(resp, finished)
	}

	s.mu.Lock()
	s.forecast = view
	s.mu.Unlock()

	s.recordRun(ctx, SourceForecast, started, finished, err)
	return true
}

func (s *Service) storeReading(ctx context.Context, view render.CurrentView, fallback time.Time) {
	if s.repository == nil {
		return
	}
	ts := fallback
	if t, err := time.Parse(time.RFC3339, view.RecordTime); err == nil {
		ts = t
	}
	rec := types.Reading{
		Place:        view.Place,
		Time:         ts,
		TemperatureC: *view.Temperature,
		HumidityPct:  view.Humidity,
		RainfallMm:   view.Rainfall,
	}
	inserted, err := s.repository.InsertReading(ctx, rec)
	if err != nil {
		s.logger.Error("store weather reading", "place", rec.Place, "error", err)
		return
	}
	if inserted {
		s.logger.Debug("stored weather reading", "place", rec.Place, "ts", ts)
	}
}

func (s *Service) recordRun(ctx context.Context, source string, started, finished time.Time, runErr error) {
	if s.runs == nil {
		return
	}
	if err := s.runs.Record(ctx, source, started, finished.Sub(started), runErr); err != nil {
		s.logger.Error("record weather run", "source", source, "error", err)
	}
}

func (s *Service) query(dataType string) url.Values {
	return url.Values{"dataType": {dataType}, "lang": {s.lang}}
}
