package views

import (
	"errors"
	"html/template"
	"io"
	"io/fs"

	trainrender "github.com/602gho/mtr-isl-hfc-webpage/internal/modules/trains/render"
	weatherrender "github.com/602gho/mtr-isl-hfc-webpage/internal/modules/weather/render"
)

var dashboardTmpl *template.Template

var errNotLoaded = errors.New("templates not loaded: call views.LoadTemplates during startup")

// loadTemplatesFromFS loads the page and partial templates from the given fs and dir.
// Used by LoadTemplates and by tests to simulate failure scenarios.
func loadTemplatesFromFS(fsys fs.FS, dir string) error {
	sub, err := fs.Sub(fsys, dir)
	if err != nil {
		return err
	}
	tmpl, err := template.ParseFS(sub, "*.html", "partials/*.html")
	if err != nil {
		return err
	}
	dashboardTmpl = tmpl
	return nil
}

// LoadTemplates loads embedded templates. Call during startup before
// serving requests; if it returns an error, do not start the server.
func LoadTemplates() error {
	return loadTemplatesFromFS(viewsFS, "templates")
}

// Unload drops the loaded templates and returns a func that restores them.
// Renders fail with a not-loaded error until restore or LoadTemplates runs.
// Not safe for concurrent use with rendering.
func Unload() (restore func()) {
	prev := dashboardTmpl
	dashboardTmpl = nil
	return func() { dashboardTmpl = prev }
}

// StatusData backs the clock and refresh countdown.
type StatusData struct {
	Clock     string
	Countdown string
}

type DashboardData struct {
	Title    string
	Trains   trainrender.Board
	Weather  weatherrender.CurrentView
	Forecast weatherrender.ForecastView
	Status   StatusData

	// Browser re-poll cadence for the partials, in seconds.
	TrainsPollSeconds  int
	WeatherPollSeconds int
}

func RenderDashboard(w io.Writer, data *DashboardData) error {
	if dashboardTmpl == nil {
		return errNotLoaded
	}
	return dashboardTmpl.ExecuteTemplate(w, "dashboard.html", data)
}

// RenderTrainsPartial executes only the train tables into w.
// Use for HTMX fragment refresh.
func RenderTrainsPartial(w io.Writer, board trainrender.Board) error {
	return execute(w, "trains", board)
}

func RenderWeatherPartial(w io.Writer, view weatherrender.CurrentView) error {
	return execute(w, "weather", view)
}

func RenderForecastPartial(w io.Writer, view weatherrender.ForecastView) error {
	return execute(w, "forecast", view)
}

func RenderStatusPartial(w io.Writer, data StatusData) error {
	return execute(w, "status", data)
}

func execute(w io.Writer, name string, data any) error {
	if dashboardTmpl == nil {
		return errNotLoaded
	}
	return dashboardTmpl.ExecuteTemplate(w, name, data)
}
