package weather

import (
	"net/http"

	"github.com/602gho/mtr-isl-hfc-webpage/internal/modules/weather/controller"
	"github.com/602gho/mtr-isl-hfc-webpage/internal/modules/weather/repository"
	"github.com/602gho/mtr-isl-hfc-webpage/internal/modules/weather/service"
)

func RegisterFeature(mux *http.ServeMux, svc *service.Service, refresher controller.Refresher, weatherRepository repository.WeatherRepository) {
	weatherController := controller.NewWeatherController(svc, refresher, weatherRepository)
	weatherController.RegisterRoutes(mux)
}
