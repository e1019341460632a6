package controller

import (
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/602gho/mtr-isl-hfc-webpage/internal/modules/weather/types"
	"github.com/602gho/mtr-isl-hfc-webpage/internal/utils"
	"github.com/602gho/mtr-isl-hfc-webpage/internal/views"
)

func (c *weatherControllerImpl) handleCurrentPartial(w http.ResponseWriter, r *http.Request) {
	current := c.snapshots.Snapshot().Current
	err := utils.WriteHTML(w, func(out io.Writer) error {
		return views.RenderWeatherPartial(out, current)
	})
	if err != nil {
		slog.Error("weather partial render failed", "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to render")
	}
}

func (c *weatherControllerImpl) handleForecastPartial(w http.ResponseWriter, r *http.Request) {
	forecast := c.snapshots.Snapshot().Forecast
	err := utils.WriteHTML(w, func(out io.Writer) error {
		return views.RenderForecastPartial(out, forecast)
	})
	if err != nil {
		slog.Error("forecast partial render failed", "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to render")
	}
}

func (c *weatherControllerImpl) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	utils.WriteJSON(w, http.StatusOK, c.snapshots.Snapshot())
}

func (c *weatherControllerImpl) handleRefresh(w http.ResponseWriter, r *http.Request) {
	status := "queued"
	if !c.refresher.Trigger() {
		status = "already queued"
	}
	utils.WriteJSON(w, http.StatusAccepted, map[string]string{"status": status})
}

// handleReadings serves stored samples. Without a window it returns the
// newest first; with from/to or since it returns the window oldest first.
func (c *weatherControllerImpl) handleReadings(w http.ResponseWriter, r *http.Request) {
	q, err := parseReadingsQuery(r, time.Now())
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	var items []types.Reading
	if q.windowed() {
		items, err = c.repository.GetReadings(r.Context(), q.Place, q.From, q.To, q.Limit)
	} else {
		items, err = c.repository.GetLatestReadings(r.Context(), q.Place, q.Limit)
	}
	if err != nil {
		slog.Error("readings query failed", "place", q.Place, "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to load readings")
		return
	}

	utils.WriteJSON(w, http.StatusOK, map[string]any{
		"place": q.Place,
		"from":  zeroAsNullTime(q.From),
		"to":    zeroAsNullTime(q.To),
		"limit": q.Limit,
		"items": items,
	})
}
