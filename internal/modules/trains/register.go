package trains

import (
	"net/http"

	"github.com/602gho/mtr-isl-hfc-webpage/internal/modules/trains/controller"
	"github.com/602gho/mtr-isl-hfc-webpage/internal/modules/trains/service"
)

func RegisterFeature(mux *http.ServeMux, svc *service.Service, refresher controller.Refresher) {
	trainsController := controller.NewTrainsController(svc, refresher)
	trainsController.RegisterRoutes(mux)
}
