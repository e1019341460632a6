package dashboard

import (
	"net/http"

	"github.com/602gho/mtr-isl-hfc-webpage/internal/modules/dashboard/controller"
)

func RegisterFeature(mux *http.ServeMux, trains controller.TrainSource, weather controller.WeatherSource, runs controller.RunLister, opts controller.Options) {
	dashboardController := controller.NewDashboardController(trains, weather, runs, opts)
	dashboardController.RegisterRoutes(mux)
}
