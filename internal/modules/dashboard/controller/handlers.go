package controller

import (
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/602gho/mtr-isl-hfc-webpage/internal/modules/dashboard/status"
	"github.com/602gho/mtr-isl-hfc-webpage/internal/utils"
	"github.com/602gho/mtr-isl-hfc-webpage/internal/views"
)

const (
	defaultRunsLimit = 50
	maxRunsLimit     = 500

	// Upper bounds on how often the page re-fetches its partials.
	maxTrainsPoll  = 5 * time.Second
	maxWeatherPoll = time.Minute
)

func (c *dashboardControllerImpl) handleDashboard(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	data := &views.DashboardData{
		Title:              c.opts.Title,
		Trains:             c.trains.Board(),
		Weather:            c.weather.Current(),
		Forecast:           c.weather.Forecast(),
		Status:             c.statusData(),
		TrainsPollSeconds:  pollSeconds(c.opts.TrainInterval, maxTrainsPoll),
		WeatherPollSeconds: pollSeconds(c.opts.WeatherInterval, maxWeatherPoll),
	}
	err := utils.WriteHTML(w, func(out io.Writer) error {
		return views.RenderDashboard(out, data)
	})
	if err != nil {
		slog.Error("dashboard template render failed", "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to render page")
	}
}

func (c *dashboardControllerImpl) handleStatusPartial(w http.ResponseWriter, r *http.Request) {
	data := c.statusData()
	err := utils.WriteHTML(w, func(out io.Writer) error {
		return views.RenderStatusPartial(out, data)
	})
	if err != nil {
		slog.Error("status partial render failed", "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to render")
	}
}

func (c *dashboardControllerImpl) handleRuns(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, err := utils.ParseLimit(q, defaultRunsLimit, maxRunsLimit)
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	source := q.Get("source")

	items, err := c.runs.List(r.Context(), source, limit)
	if err != nil {
		slog.Error("list runs failed", "source", source, "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to load runs")
		return
	}
	utils.WriteJSON(w, http.StatusOK, items)
}

func (c *dashboardControllerImpl) statusData() views.StatusData {
	now := c.now()
	return views.StatusData{
		Clock:     status.FormatClock(now.In(c.opts.Location)),
		Countdown: status.RefreshCountdown(now, c.trains.LastUpdate(), c.opts.TrainInterval),
	}
}

// pollSeconds is the browser re-fetch cadence: the server interval, capped, at least 1s.
func pollSeconds(interval, ceiling time.Duration) int {
	d := min(interval, ceiling)
	return max(1, int(d/time.Second))
}
