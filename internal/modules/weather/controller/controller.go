package controller

import (
	"net/http"

	"github.com/602gho/mtr-isl-hfc-webpage/internal/modules/weather/repository"
	"github.com/602gho/mtr-isl-hfc-webpage/internal/modules/weather/service"
)

// SnapshotSource is the live weather state, normally *service.Service.
type SnapshotSource interface {
	Snapshot() service.Snapshot
}

type Refresher interface {
	Trigger() bool
}

type WeatherController interface {
	RegisterRoutes(mux *http.ServeMux)
}

type weatherControllerImpl struct {
	snapshots  SnapshotSource
	refresher  Refresher
	repository repository.WeatherRepository
}

func NewWeatherController(snapshots SnapshotSource, refresher Refresher, repository repository.WeatherRepository) WeatherController {
	return &weatherControllerImpl{snapshots: snapshots, refresher: refresher, repository: repository}
}

func (c *weatherControllerImpl) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /partials/weather", c.handleCurrentPartial)
	mux.HandleFunc("GET /partials/forecast", c.handleForecastPartial)
	mux.HandleFunc("GET /api/v1/weather", c.handleSnapshot)
	mux.HandleFunc("POST /api/v1/weather/refresh", c.handleRefresh)
	mux.HandleFunc("GET /api/v1/weather/readings", c.handleReadings)
}
