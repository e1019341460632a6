// Package render turns observatory payloads into the current-conditions card
// and the forecast cards.
package render

import (
	"fmt"
	"time"

	"github.com/602gho/mtr-isl-hfc-webpage/internal/modules/weather/types"
)

const (
	NoDataMessage = "無法獲取天氣資料。"
	ErrorPrefix   = "發生錯誤: "
	NoRain        = "無降雨"
	UnknownIcon   = "🌈"

	// MaxForecastCards caps the forecast strip.
	MaxForecastCards = 4
)

// forecastIcons maps observatory icon codes to glyphs.
var forecastIcons = map[int]string{
	50: "☀️",
	51: "🌤️",
	52: "⛅",
	53: "🌦️",
	54: "🌦️",
	60: "☁️",
	61: "☁️",
	62: "🌧️",
	63: "🌧️",
	64: "🌧️",
	65: "⛈️",
	70: "🌙",
	71: "🌙",
	72: "🌙",
	73: "🌙",
	74: "🌙",
	75: "🌙",
	76: "☁️",
	77: "🌙",
	80: "🌬️",
	81: "🌵",
	82: "💧",
	83: "🌫️",
	84: "🌫️",
	85: "🌫️",
	90: "🥵",
	91: "🌡️",
	92: "🍃",
	93: "🥶",
}

type CurrentView struct {
	Icon          string    `json:"icon,omitempty"`
	Place         string    `json:"place,omitempty"`
	Temperature   *float64  `json:"temperature,omitempty"`
	Humidity      *float64  `json:"humidity,omitempty"`
	Rainfall      float64   `json:"rainfall"`
	RainfallLabel string    `json:"rainfallLabel,omitempty"`
	RecordTime    string    `json:"recordTime,omitempty"`
	Error         string    `json:"error,omitempty"`
	RenderedAt    time.Time `json:"renderedAt"`
}

// HasData reports whether the card has a temperature to show.
func (v CurrentView) HasData() bool {
	return v.Temperature != nil
}

type ForecastCard struct {
	Date    string  `json:"date"`
	Week    string  `json:"week"`
	Icon    string  `json:"icon"`
	Weather string  `json:"weather,omitempty"`
	Wind    string  `json:"wind"`
	MinTemp float64 `json:"minTemp"`
	MaxTemp float64 `json:"maxTemp"`
	MinRH   float64 `json:"minRh"`
	MaxRH   float64 `json:"maxRh"`
}

type ForecastView struct {
	GeneralSituation string         `json:"generalSituation,omitempty"`
	Cards            []ForecastCard `json:"cards"`
	Error            string         `json:"error,omitempty"`
	RenderedAt       time.Time      `json:"renderedAt"`
}

// TemperatureIcon picks the card glyph for a temperature in °C.
func TemperatureIcon(c float64) string {
	switch {
	case c >= 33:
		return "🥵"
	case c >= 28:
		return "☀️"
	case c >= 22:
		return "🌤️"
	case c >= 16:
		return "⛅"
	case c >= 10:
		return "🌥️"
	default:
		return "🥶"
	}
}

// MaxRainfall is the heaviest district reading. A district's max wins over its value.
func MaxRainfall(block *types.RainfallBlock) float64 {
	if block == nil {
		return 0
	}
	var highest float64
	for _, d := range block.Data {
		v := d.Max
		if v == 0 {
			v = d.Value
		}
		if v > highest {
			highest = v
		}
	}
	return highest
}

// RainfallLabel renders the rainfall line of the card.
func RainfallLabel(mm float64) string {
	if mm > 0 {
		return fmt.Sprintf("降雨: %v 毫米", mm)
	}
	return NoRain
}

// Current builds the current-conditions card. place selects the temperature
// station; when it is empty or absent the first station is used.
func Current(resp types.CurrentResponse, place string, renderedAt time.Time) CurrentView {
	view := CurrentView{RenderedAt: renderedAt}
	if resp.Temperature == nil || len(resp.Temperature.Data) == 0 {
		view.Error = NoDataMessage
		return view
	}

	temp := resp.Temperature.Data[0]
	if place != "" {
		for _, d := range resp.Temperature.Data {
			if d.Place == place {
				temp = d
				break
			}
		}
	}
	value := temp.Value
	view.Temperature = &value
	view.Place = temp.Place
	view.Icon = TemperatureIcon(value)
	view.RecordTime = resp.Temperature.RecordTime

	if resp.Humidity != nil && len(resp.Humidity.Data) > 0 {
		h := resp.Humidity.Data[0].Value
		view.Humidity = &h
	}

	view.Rainfall = MaxRainfall(resp.Rainfall)
	view.RainfallLabel = RainfallLabel(view.Rainfall)
	return view
}

// CurrentFailed is the card shown when the fetch failed. Nothing of the
// previous card is kept.
func CurrentFailed(err error, renderedAt time.Time) CurrentView {
	return CurrentView{Error: ErrorPrefix + err.Error(), RenderedAt: renderedAt}
}

// FormatDate turns "YYYYMMDD" into "MM/DD". Other inputs are returned as-is.
func FormatDate(s string) string {
	if len(s) != 8 {
		return s
	}
	return s[4:6] + "/" + s[6:8]
}

// ForecastIcon maps an observatory icon code to a glyph.
func ForecastIcon(code int) string {
	if g, ok := forecastIcons[code]; ok {
		return g
	}
	return UnknownIcon
}

func Forecast(resp types.ForecastResponse, renderedAt time.Time) ForecastView {
	n := min(len(resp.WeatherForecast), MaxForecastCards)
	view := ForecastView{
		GeneralSituation: resp.GeneralSituation,
		Cards:            make([]ForecastCard, 0, n),
		RenderedAt:       renderedAt,
	}
	for _, day := range resp.WeatherForecast[:n] {
		view.Cards = append(view.Cards, ForecastCard{
			Date:    FormatDate(day.ForecastDate),
			Week:    day.Week,
			Icon:    ForecastIcon(day.ForecastIcon),
			Weather: day.ForecastWeather,
			Wind:    day.ForecastWind,
			MinTemp: day.ForecastMintemp.Value,
			MaxTemp: day.ForecastMaxtemp.Value,
			MinRH:   day.ForecastMinrh.Value,
			MaxRH:   day.ForecastMaxrh.Value,
		})
	}
	return view
}

func ForecastFailed(err error, renderedAt time.Time) ForecastView {
	return ForecastView{Cards: []ForecastCard{}, Error: ErrorPrefix + err.Error(), RenderedAt: renderedAt}
}
