package controller

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/602gho/mtr-isl-hfc-webpage/internal/utils"
	"github.com/602gho/mtr-isl-hfc-webpage/internal/views"
)

func (c *trainsControllerImpl) handleBoardPartial(w http.ResponseWriter, r *http.Request) {
	board := c.boards.Board()
	err := utils.WriteHTML(w, func(out io.Writer) error {
		return views.RenderTrainsPartial(out, board)
	})
	if err != nil {
		slog.Error("trains partial render failed", "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to render")
	}
}

func (c *trainsControllerImpl) handleBoard(w http.ResponseWriter, r *http.Request) {
	utils.WriteJSON(w, http.StatusOK, c.boards.Board())
}

func (c *trainsControllerImpl) handleRefresh(w http.ResponseWriter, r *http.Request) {
	status := "queued"
	if !c.refresher.Trigger() {
		status = "already queued"
	}
	utils.WriteJSON(w, http.StatusAccepted, map[string]string{"status": status})
}
