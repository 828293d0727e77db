package weather

import (
	"time"
)

// Condition represents a normalized high-level weather condition.
type Condition string

const (
	ConditionUnknown Condition = "unknown"
	ConditionClear   Condition = "clear"
	ConditionCloudy  Condition = "cloudy"
	ConditionRain    Condition = "rain"
	ConditionSnow    Condition = "snow"
	ConditionStorm   Condition = "storm"
	ConditionMist    Condition = "mist"
)

const (
	// HourlyHorizon is the number of forecast samples kept for the hourly view.
	HourlyHorizon = 24
	// MaxDailyEntries caps the daily view.
	MaxDailyEntries = 7

	DefaultForecastDays = 5
	MinForecastDays     = 1
	MaxForecastDays     = 6
)

// RawCondition is a single entry of the provider's "weather" array.
type RawCondition struct {
	Main        string `json:"main"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
}

// RawWind holds the wind block of a provider payload (m/s).
type RawWind struct {
	Speed float64 `json:"speed"`
}

// RawCurrentConditions is the provider response for current conditions (metric units).
type RawCurrentConditions struct {
	Name string `json:"name"`
	Sys  struct {
		Country string `json:"country"`
		Sunrise int64  `json:"sunrise"`
		Sunset  int64  `json:"sunset"`
	} `json:"sys"`
	Main struct {
		Temp      float64 `json:"temp"`
		FeelsLike float64 `json:"feels_like"`
		Humidity  float64 `json:"humidity"`
		Pressure  float64 `json:"pressure"`
	} `json:"main"`
	Weather    []RawCondition `json:"weather"`
	Wind       RawWind        `json:"wind"`
	Visibility float64        `json:"visibility"` // meters
	Dt         int64          `json:"dt"`
}

// RawForecastSample is one step of a forecast time series.
type RawForecastSample struct {
	Dt   int64 `json:"dt"`
	Main struct {
		Temp      float64 `json:"temp"`
		FeelsLike float64 `json:"feels_like"`
		TempMin   float64 `json:"temp_min"`
		TempMax   float64 `json:"temp_max"`
		Humidity  float64 `json:"humidity"`
		Pressure  float64 `json:"pressure"`
	} `json:"main"`
	Weather    []RawCondition `json:"weather"`
	Wind       RawWind        `json:"wind"`
	Visibility float64        `json:"visibility"`
	DtTxt      string         `json:"dt_txt"`
}

// RawForecastSeries is a chronological, fixed-interval series of samples.
type RawForecastSeries struct {
	City struct {
		Name    string `json:"name"`
		Country string `json:"country"`
		Sunrise int64  `json:"sunrise"`
		Sunset  int64  `json:"sunset"`
	} `json:"city"`
	List []RawForecastSample `json:"list"`
}

// GeoCandidate is a location search hit.
type GeoCandidate struct {
	Name    string  `json:"name"`
	Country string  `json:"country"`
	State   string  `json:"state,omitempty"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
}

// Valid reports whether the candidate can be shown to a user.
func (g GeoCandidate) Valid() bool {
	return g.Name != "" && g.Country != ""
}

// CurrentConditions is the display-ready snapshot of current weather.
// Every numeric field is a rounded integer.
type CurrentConditions struct {
	City        string `json:"city"`
	Country     string `json:"country"`
	Temperature int    `json:"temperature"`
	Main        string `json:"main"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
	Humidity    int    `json:"humidity"`
	WindSpeed   int    `json:"windSpeed"` // km/h
	FeelsLike   int    `json:"feelsLike"`
	Pressure    int    `json:"pressure"`   // hPa
	Visibility  int    `json:"visibility"` // km
	UVIndex     int    `json:"uvIndex"`
	Sunrise     string `json:"sunrise"`
	Sunset      string `json:"sunset"`
}

// HourlyEntry is one row of the hourly forecast.
type HourlyEntry struct {
	Time          string `json:"time"`
	Temperature   int    `json:"temperature"`
	Description   string `json:"description"`
	Icon          string `json:"icon"`
	Humidity      int    `json:"humidity"`
	WindSpeed     int    `json:"windSpeed"`
	Precipitation int    `json:"precipitation"`
}

// DailyEntry is one calendar day (UTC) of the daily forecast.
type DailyEntry struct {
	Date          string `json:"date"`
	Day           string `json:"day"`
	TempHigh      int    `json:"tempHigh"`
	TempLow       int    `json:"tempLow"`
	Description   string `json:"description"`
	Icon          string `json:"icon"`
	Humidity      int    `json:"humidity"`
	WindSpeed     int    `json:"windSpeed"`
	Precipitation int    `json:"precipitation"`
}

// Forecast bundles the two views derived from one forecast series.
type Forecast struct {
	Hourly []HourlyEntry `json:"hourly"`
	Daily  []DailyEntry  `json:"daily"`
}

// Widget is the persisted record for one tracked city. It is always replaced
// whole, never patched field by field.
type Widget struct {
	ID             string            `json:"id"`
	City           string            `json:"city"`
	WeatherData    CurrentConditions `json:"weatherData"`
	HourlyForecast []HourlyEntry     `json:"hourlyForecast"`
	DailyForecast  []DailyEntry      `json:"dailyForecast"`
	LastUpdated    time.Time         `json:"lastUpdated"`
	ForecastDays   int               `json:"forecastDays" validate:"min=1,max=6"`
}

// VisibleDaily returns the daily entries the widget is configured to show.
func (w Widget) VisibleDaily() []DailyEntry {
	n := w.ForecastDays
	if n <= 0 || n > len(w.DailyForecast) {
		n = len(w.DailyForecast)
	}
	return w.DailyForecast[:n]
}

// Condition returns the normalized condition of the widget's current weather.
// The icon code wins; the main category covers missing or unknown icons.
func (w Widget) Condition() Condition {
	if c := ConditionFromIcon(w.WeatherData.Icon); c != ConditionUnknown {
		return c
	}
	return ConditionFromMain(w.WeatherData.Main)
}
