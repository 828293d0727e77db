package weather

import (
	"math"
	"time"
)

const (
	timeOfDayLayout   = "03:04 PM"
	hourLabelLayout   = "3 PM"
	weekdayLayout     = "Mon"
	dateKeyLayout     = "2006-01-02"
	lastUpdatedLayout = "Mon, Jan 2 at 3:04:05 PM"
)

// Round rounds half up (toward positive infinity), so -2.5 becomes -2.
func Round(x float64) int {
	return int(math.Floor(x + 0.5))
}

// MPSToKPH converts a wind speed in m/s to a rounded km/h value.
func MPSToKPH(mps float64) int {
	return Round(mps * 3.6)
}

// MetersToKM converts a distance in meters to rounded kilometers.
func MetersToKM(m float64) int {
	return Round(m / 1000)
}

// Formatter renders timestamps for a viewer in a given timezone.
// The zero value formats in time.Local.
type Formatter struct {
	Location *time.Location
}

// NewFormatter returns a Formatter for loc, falling back to time.Local.
func NewFormatter(loc *time.Location) Formatter {
	return Formatter{Location: loc}
}

func (f Formatter) loc() *time.Location {
	if f.Location == nil {
		return time.Local
	}
	return f.Location
}

// TimeOfDay formats epoch seconds as a 12-hour "hh:mm AM" string.
func (f Formatter) TimeOfDay(epoch int64) string {
	return time.Unix(epoch, 0).In(f.loc()).Format(timeOfDayLayout)
}

// HourLabel formats epoch seconds as an hour label such as "3 PM".
func (f Formatter) HourLabel(epoch int64) string {
	return time.Unix(epoch, 0).In(f.loc()).Format(hourLabelLayout)
}

// Weekday formats a YYYY-MM-DD key as a short weekday. The key is read as UTC
// midnight and rendered in the viewer's timezone, so west of UTC the label
// names the previous day.
func (f Formatter) Weekday(dateKey string) string {
	d, err := time.Parse(dateKeyLayout, dateKey)
	if err != nil {
		return ""
	}
	return d.In(f.loc()).Format(weekdayLayout)
}

// LastUpdated formats a refresh time for display.
func (f Formatter) LastUpdated(t time.Time) string {
	return t.In(f.loc()).Format(lastUpdatedLayout)
}

// DateKey returns the UTC calendar date of epoch seconds as YYYY-MM-DD.
func DateKey(epoch int64) string {
	return time.Unix(epoch, 0).UTC().Format(dateKeyLayout)
}

func primaryCondition(items []RawCondition) RawCondition {
	if len(items) == 0 {
		return RawCondition{}
	}
	return items[0]
}

// TransformCurrent converts a raw current-conditions payload into its display form.
// UV index is not available from this endpoint and is always 0.
func TransformCurrent(raw RawCurrentConditions, f Formatter) CurrentConditions {
	cond := primaryCondition(raw.Weather)
	return CurrentConditions{
		City:        raw.Name,
		Country:     raw.Sys.Country,
		Temperature: Round(raw.Main.Temp),
		Main:        cond.Main,
		Description: cond.Description,
		Icon:        cond.Icon,
		Humidity:    Round(raw.Main.Humidity),
		WindSpeed:   MPSToKPH(raw.Wind.Speed),
		FeelsLike:   Round(raw.Main.FeelsLike),
		Pressure:    Round(raw.Main.Pressure),
		Visibility:  MetersToKM(raw.Visibility),
		UVIndex:     0,
		Sunrise:     f.TimeOfDay(raw.Sys.Sunrise),
		Sunset:      f.TimeOfDay(raw.Sys.Sunset),
	}
}

// TransformHourlySample converts one forecast sample into an hourly row.
func TransformHourlySample(s RawForecastSample, f Formatter) HourlyEntry {
	cond := primaryCondition(s.Weather)
	return HourlyEntry{
		Time:          f.HourLabel(s.Dt),
		Temperature:   Round(s.Main.Temp),
		Description:   cond.Description,
		Icon:          cond.Icon,
		Humidity:      Round(s.Main.Humidity),
		WindSpeed:     MPSToKPH(s.Wind.Speed),
		Precipitation: 0,
	}
}
