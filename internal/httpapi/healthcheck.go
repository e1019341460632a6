package httpapi

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"time"

	"github.com/602gho/mtr-isl-hfc-webpage/internal/utils"
)

// SuccessReporter reports when a poll source last completed a successful pass.
type SuccessReporter interface {
	LastSuccess(ctx context.Context, source string) (time.Time, error)
}

type healthchecker interface {
	handleHealthz(w http.ResponseWriter, r *http.Request)
}

type healthcheckerImpl struct {
	db      *sql.DB
	runs    SuccessReporter
	sources []string
}

func NewHealthchecker(db *sql.DB, runs SuccessReporter, sources []string) healthchecker {
	return &healthcheckerImpl{db: db, runs: runs, sources: sources}
}

type healthResponse struct {
	Status      string                `json:"status"`
	LastSuccess map[string]*time.Time `json:"lastSuccess,omitempty"`
}

func (h *healthcheckerImpl) handleHealthz(w http.ResponseWriter, r *http.Request) {
	var ok int
	if err := h.db.QueryRowContext(r.Context(), `SELECT 1`).Scan(&ok); err != nil {
		slog.Error("failed to check database connectivity", "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to check database connectivity")
		return
	}

	resp := healthResponse{Status: "ok"}
	if h.runs != nil && len(h.sources) > 0 {
		resp.LastSuccess = make(map[string]*time.Time, len(h.sources))
		for _, source := range h.sources {
			t, err := h.runs.LastSuccess(r.Context(), source)
			if err != nil {
				slog.Error("failed to read last successful run", "source", source, "error", err)
				utils.WriteError(w, http.StatusInternalServerError, "failed to read poll runs")
				return
			}
			if t.IsZero() {
				resp.LastSuccess[source] = nil
				continue
			}
			resp.LastSuccess[source] = &t
		}
	}
	utils.WriteJSON(w, http.StatusOK, resp)
}

func registerHealthcheck(mux *http.ServeMux, db *sql.DB, runs SuccessReporter, sources []string) {
	healthchecker := NewHealthchecker(db, runs, sources)
	mux.HandleFunc("GET /healthz", healthchecker.handleHealthz)
}
