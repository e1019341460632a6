package controller

import (
	"context"
	"net/http"
	"time"

	"github.com/602gho/mtr-isl-hfc-webpage/internal/modules/trains/render"
	weatherrender "github.com/602gho/mtr-isl-hfc-webpage/internal/modules/weather/render"
	"github.com/602gho/mtr-isl-hfc-webpage/internal/runs"
)

type TrainSource interface {
	Board() render.Board
	LastUpdate() time.Time
}

type WeatherSource interface {
	Current() weatherrender.CurrentView
	Forecast() weatherrender.ForecastView
}

type RunLister interface {
	List(ctx context.Context, source string, limit int) ([]runs.Run, error)
}

type Options struct {
	Title           string
	TrainInterval   time.Duration
	WeatherInterval time.Duration
	// Location is the zone of the header clock.
	Location *time.Location
}

type DashboardController interface {
	RegisterRoutes(mux *http.ServeMux)
}

type dashboardControllerImpl struct {
	trains  TrainSource
	weather WeatherSource
	runs    RunLister
	opts    Options
	now     func() time.Time
}

func NewDashboardController(trains TrainSource, weather WeatherSource, runs RunLister, opts Options) DashboardController {
	if opts.Location == nil {
		opts.Location = time.Local
	}
	return &dashboardControllerImpl{
		trains:  trains,
		weather: weather,
		runs:    runs,
		opts:    opts,
		now:     time.Now,
	}
}

func (c *dashboardControllerImpl) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /", c.handleDashboard)
	mux.HandleFunc("GET /partials/status", c.handleStatusPartial)
	mux.HandleFunc("GET /api/v1/runs", c.handleRuns)
}
