package types

import "time"

// CurrentResponse is the dataType=rhrread payload. Blocks the board does not
// show are left undecoded.
type CurrentResponse struct {
	Rainfall    *RainfallBlock `json:"rainfall"`
	Temperature *ValueBlock    `json:"temperature"`
	Humidity    *ValueBlock    `json:"humidity"`
	Icon        []int          `json:"icon"`
	UpdateTime  string         `json:"updateTime"`
}

type ValueBlock struct {
	RecordTime string       `json:"recordTime"`
	Data       []PlaceValue `json:"data"`
}

type PlaceValue struct {
	Place string  `json:"place"`
	Value float64 `json:"value"`
	Unit  string  `json:"unit"`
}

type RainfallBlock struct {
	StartTime string     `json:"startTime"`
	EndTime   string     `json:"endTime"`
	Data      []Rainfall `json:"data"`
}

// Rainfall is one district. Value only appears on some feeds; Max is the usual field.
type Rainfall struct {
	Place string  `json:"place"`
	Max   float64 `json:"max"`
	Min   float64 `json:"min"`
	Value float64 `json:"value"`
	Unit  string  `json:"unit"`
	Main  string  `json:"main"`
}

// ForecastResponse is the dataType=fnd payload.
type ForecastResponse struct {
	GeneralSituation string        `json:"generalSituation"`
	WeatherForecast  []DayForecast `json:"weatherForecast"`
	UpdateTime       string        `json:"updateTime"`
}

type DayForecast struct {
	ForecastDate    string   `json:"forecastDate"`
	Week            string   `json:"week"`
	ForecastWind    string   `json:"forecastWind"`
	ForecastWeather string   `json:"forecastWeather"`
	ForecastMaxtemp Quantity `json:"forecastMaxtemp"`
	ForecastMintemp Quantity `json:"forecastMintemp"`
	ForecastMaxrh   Quantity `json:"forecastMaxrh"`
	ForecastMinrh   Quantity `json:"forecastMinrh"`
	ForecastIcon    int      `json:"ForecastIcon"`
	PSR             string   `json:"PSR"`
}

type Quantity struct {
	Value float64 `json:"value"`
	Unit  string  `json:"unit"`
}

// Reading is one stored current-conditions sample.
type Reading struct {
	Place        string    `json:"place"`
	Time         time.Time `json:"time"`
	TemperatureC float64   `json:"temperatureC"`
	HumidityPct  *float64  `json:"humidityPct,omitempty"`
	RainfallMm   float64   `json:"rainfallMm"`
}
