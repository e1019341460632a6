package service

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/602gho/mtr-isl-hfc-webpage/internal/config"
	"github.com/602gho/mtr-isl-hfc-webpage/internal/modules/trains/render"
	"github.com/602gho/mtr-isl-hfc-webpage/internal/modules/trains/types"
)

// Source is the poll-run source name for train passes.
const Source = "trains"

type Fetcher interface {
	GetJSON(ctx context.Context, baseURL string, query url.Values, out any) error
}

type RunRecorder interface {
	Record(ctx context.Context, source string, startedAt time.Time, duration time.Duration, runErr error) error
}

type Publisher interface {
	PublishJSON(topic string, v any) error
}

type Service struct {
	fetcher   Fetcher
	runs      RunRecorder
	publisher Publisher
	logger    *slog.Logger

	apiURL     string
	query      url.Values
	stationKey string
	topic      string
	loc        *time.Location
	now        func() time.Time

	mu         sync.RWMutex
	board      render.Board
	lastUpdate time.Time
}

// NewService wires a train board service. runs and publisher may be nil.
func NewService(cfg config.Config, fetcher Fetcher, runs RunRecorder, publisher Publisher, logger *slog.Logger) *Service {
	return &Service{
		fetcher:   fetcher,
		runs:      runs,
		publisher: publisher,
		logger:    logger,
		apiURL:    cfg.TrainAPIURL,
		query: url.Values{
			"line": {cfg.TrainLine},
			"sta":  {cfg.TrainStation},
			"lang": {cfg.TrainLang},
		},
		stationKey: cfg.StationKey(),
		topic:      cfg.MQTTTopicPrefix + "/trains/" + cfg.StationKey(),
		loc:        cfg.Location,
		now:        time.Now,
		board:      render.Board{StationKey: cfg.StationKey()},
	}
}

// Board returns the most recent render pass.
func (s *Service) Board() render.Board {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.board
}

// LastUpdate is when a pass last reached the station's schedule. Zero until
// the first such pass.
func (s *Service) LastUpdate() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastUpdate
}

// Refresh fetches the schedule once and replaces the board. It is the poller task.
func (s *Service) Refresh(ctx context.Context) {
	started := s.now()

	var resp types.ScheduleResponse
	err := s.fetcher.GetJSON(ctx, s.apiURL, s.query, &resp)
	if err != nil && ctx.Err() != nil {
		// shutting down; keep the last board
		return
	}
	finished := s.now()

	s.mu.Lock()
	var board render.Board
	if err != nil {
		board = render.Failed(s.board, s.stationKey, err, finished)
	} else {
		board = render.Render(resp, s.stationKey, s.loc, finished)
		if board.HasData() {
			s.lastUpdate = finished
		}
	}
	s.board = board
	s.mu.Unlock()

	runErr := err
	if runErr == nil && board.Error != "" {
		runErr = errors.New(board.Error)
	}
	if runErr != nil {
		s.logger.Warn("train refresh failed", "station", s.stationKey, "error", runErr)
	} else {
		s.logger.Debug("train board updated",
			"station", s.stationKey,
			"up", len(board.Up.Rows),
			"down", len(board.Down.Rows),
		)
	}

	if s.runs != nil {
		if err := s.runs.Record(ctx, Source, started, finished.Sub(started), runErr); err != nil {
			s.logger.Error("record train run", "error", err)
		}
	}

	if s.publisher != nil {
		if err := s.publisher.PublishJSON(s.topic, board); err != nil {
			s.logger.Warn("publish train board", "topic", s.topic, "error", err)
		}
	}
}
