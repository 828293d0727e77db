package weather

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var seriesStart = time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)

func sample(at time.Time, temp, humidity, wind float64, desc, icon string) RawForecastSample {
	var s RawForecastSample
	s.Dt = at.Unix()
	s.DtTxt = at.Format("2006-01-02 15:04:05")
	s.Main.Temp = temp
	s.Main.Humidity = humidity
	s.Wind.Speed = wind
	if desc != "" || icon != "" {
		s.Weather = []RawCondition{{Description: desc, Icon: icon}}
	}
	return s
}

// threeHourly builds n samples three hours apart from seriesStart.
func threeHourly(n int) RawForecastSeries {
	var series RawForecastSeries
	series.City.Name = "Paris"
	for i := 0; i < n; i++ {
		at := seriesStart.Add(time.Duration(i) * 3 * time.Hour)
		series.List = append(series.List, sample(at, float64(i%8), 50, 2, fmt.Sprintf("sample %d", i), "01d"))
	}
	return series
}

func TestHourlyForecastKeepsFirst24(t *testing.T) {
	f := NewFormatter(time.UTC)
	series := threeHourly(40)

	hourly := HourlyForecast(series, f)
	require.Len(t, hourly, HourlyHorizon)
	assert.Equal(t, "12 AM", hourly[0].Time)
	assert.Equal(t, "3 AM", hourly[1].Time)
	assert.Equal(t, "sample 23", hourly[23].Description)
	for _, h := range hourly {
		assert.Equal(t, 0, h.Precipitation)
	}

	short := threeHourly(5)
	assert.Len(t, HourlyForecast(short, f), 5)
	assert.Empty(t, HourlyForecast(RawForecastSeries{}, f))
}

func TestDailyForecastCapsAtSeven(t *testing.T) {
	f := NewFormatter(time.UTC)

	daily := DailyForecast(threeHourly(40), f)
	require.Len(t, daily, 5)

	daily = DailyForecast(threeHourly(80), f)
	require.Len(t, daily, MaxDailyEntries)
	for i, d := range daily {
		assert.Equal(t, seriesStart.AddDate(0, 0, i).Format("2006-01-02"), d.Date)
	}
	assert.Equal(t, "Mon", daily[0].Day)
	assert.Equal(t, "Sun", daily[6].Day)
}

func TestDailyForecastAggregatesBucket(t *testing.T) {
	day := seriesStart
	series := RawForecastSeries{List: []RawForecastSample{
		sample(day, 18.5, 70, 4, "mist", "50d"),
		sample(day.Add(6*time.Hour), 22, 60, 3, "few clouds", "02d"),
		sample(day.Add(12*time.Hour), 25.5, 50, 2.5, "clear sky", "01d"),
		sample(day.Add(18*time.Hour), 20, 65, 5, "light rain", "10n"),
	}}

	daily := DailyForecast(series, NewFormatter(time.UTC))
	require.Len(t, daily, 1)
	assert.Equal(t, DailyEntry{
		Date:        "2024-01-15",
		Day:         "Mon",
		TempHigh:    26,
		TempLow:     19,
		Description: "clear sky",
		Icon:        "01d",
		Humidity:    61,
		WindSpeed:   13,
	}, daily[0])
}

func TestDailyForecastSingleSampleBucket(t *testing.T) {
	series := RawForecastSeries{List: []RawForecastSample{
		sample(seriesStart.Add(21*time.Hour), 7.6, 88, 1, "overcast clouds", "04n"),
	}}

	daily := DailyForecast(series, NewFormatter(time.UTC))
	require.Len(t, daily, 1)
	assert.Equal(t, 8, daily[0].TempHigh)
	assert.Equal(t, 8, daily[0].TempLow)
	assert.Equal(t, "overcast clouds", daily[0].Description)
	assert.Equal(t, 88, daily[0].Humidity)
	assert.Equal(t, 4, daily[0].WindSpeed)
}

func TestDailyForecastBucketsByUTCDate(t *testing.T) {
	// a viewer at UTC-5 still gets buckets split at UTC midnight
	f := NewFormatter(time.FixedZone("EST", -5*3600))
	series := RawForecastSeries{List: []RawForecastSample{
		sample(seriesStart.Add(18*time.Hour), 5, 50, 1, "a", "01d"),
		sample(seriesStart.Add(21*time.Hour), 4, 50, 1, "b", "01n"),
		sample(seriesStart.Add(24*time.Hour), 3, 50, 1, "c", "01n"),
		sample(seriesStart.Add(27*time.Hour), 2, 50, 1, "d", "01n"),
	}}

	daily := DailyForecast(series, f)
	require.Len(t, daily, 2)
	assert.Equal(t, "2024-01-15", daily[0].Date)
	assert.Equal(t, "2024-01-16", daily[1].Date)
	assert.Equal(t, "b", daily[0].Description)
	assert.Equal(t, "d", daily[1].Description)
	// UTC midnight of the 15th is still the 14th in EST
	assert.Equal(t, "Sun", daily[0].Day)
}

func TestRepresentativeFallsBackToFirst(t *testing.T) {
	series := RawForecastSeries{List: []RawForecastSample{
		sample(seriesStart, 1, 50, 1, "snow", "13d"),
		sample(seriesStart.Add(3*time.Hour), 2, 50, 1, "", ""),
	}}

	daily := DailyForecast(series, NewFormatter(time.UTC))
	require.Len(t, daily, 1)
	assert.Equal(t, "snow", daily[0].Description)
	assert.Equal(t, "13d", daily[0].Icon)
}

func TestBuildForecastIsDeterministic(t *testing.T) {
	f := NewFormatter(cet)
	series := threeHourly(40)

	first := BuildForecast(series, f)
	second := BuildForecast(series, f)
	assert.Equal(t, first, second)
	assert.Len(t, first.Hourly, 24)
	assert.Len(t, first.Daily, 5)
}

func TestWidgetVisibleDaily(t *testing.T) {
	w := Widget{DailyForecast: DailyForecast(threeHourly(80), NewFormatter(time.UTC)), ForecastDays: 3}
	assert.Len(t, w.VisibleDaily(), 3)

	w.ForecastDays = 6
	assert.Len(t, w.VisibleDaily(), 6)

	w.DailyForecast = w.DailyForecast[:2]
	assert.Len(t, w.VisibleDaily(), 2)
}
