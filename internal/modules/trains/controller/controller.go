package controller

import (
	"net/http"

	"github.com/602gho/mtr-isl-hfc-webpage/internal/modules/trains/render"
)

type BoardSource interface {
	Board() render.Board
}

// Refresher queues an immediate pass. It reports false when one is already queued.
type Refresher interface {
	Trigger() bool
}

type TrainsController interface {
	RegisterRoutes(mux *http.ServeMux)
}

type trainsControllerImpl struct {
	boards    BoardSource
	refresher Refresher
}

func NewTrainsController(boards BoardSource, refresher Refresher) TrainsController {
	return &trainsControllerImpl{boards: boards, refresher: refresher}
}

func (c *trainsControllerImpl) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /partials/trains", c.handleBoardPartial)
	mux.HandleFunc("GET /api/v1/trains", c.handleBoard)
	mux.HandleFunc("POST /api/v1/trains/refresh", c.handleRefresh)
}
