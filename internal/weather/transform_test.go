package weather

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var cet = time.FixedZone("CET", 3600)

func TestRoundHalfUp(t *testing.T) {
	cases := map[float64]int{
		2.5:   3,
		2.49:  2,
		-2.5:  -2,
		-2.6:  -3,
		0:     0,
		25.5:  26,
		18.5:  19,
		11.52: 12,
	}
	for in, want := range cases {
		assert.Equal(t, want, Round(in), "Round(%v)", in)
	}
}

func TestUnitConversions(t *testing.T) {
	assert.Equal(t, 12, MPSToKPH(3.2))
	assert.Equal(t, 10, MPSToKPH(2.8))
	assert.Equal(t, 0, MPSToKPH(0))
	assert.Equal(t, 10, MetersToKM(10000))
	assert.Equal(t, 6, MetersToKM(5500))
}

func TestTransformCurrent(t *testing.T) {
	var raw RawCurrentConditions
	raw.Name = "Paris"
	raw.Sys.Country = "FR"
	raw.Sys.Sunrise = time.Date(2024, 1, 15, 6, 45, 0, 0, time.UTC).Unix()
	raw.Sys.Sunset = time.Date(2024, 1, 15, 16, 10, 0, 0, time.UTC).Unix()
	raw.Main.Temp = 12.4
	raw.Main.FeelsLike = 10.6
	raw.Main.Humidity = 81
	raw.Main.Pressure = 1012.7
	raw.Weather = []RawCondition{{Main: "Clouds", Description: "broken clouds", Icon: "04d"}, {Main: "Rain", Description: "light rain", Icon: "10d"}}
	raw.Wind.Speed = 3.2
	raw.Visibility = 9500

	got := TransformCurrent(raw, NewFormatter(cet))

	assert.Equal(t, CurrentConditions{
		City:        "Paris",
		Country:     "FR",
		Temperature: 12,
		Main:        "Clouds",
		Description: "broken clouds",
		Icon:        "04d",
		Humidity:    81,
		WindSpeed:   12,
		FeelsLike:   11,
		Pressure:    1013,
		Visibility:  10,
		UVIndex:     0,
		Sunrise:     "07:45 AM",
		Sunset:      "05:10 PM",
	}, got)
}

func TestTransformCurrentWithoutConditions(t *testing.T) {
	var raw RawCurrentConditions
	raw.Name = "Nowhere"
	raw.Main.Temp = -0.4

	got := TransformCurrent(raw, NewFormatter(time.UTC))
	assert.Equal(t, 0, got.Temperature)
	assert.Empty(t, got.Description)
	assert.Empty(t, got.Icon)
}

func TestFormatterLabels(t *testing.T) {
	f := NewFormatter(time.UTC)
	at := time.Date(2024, 1, 15, 15, 0, 0, 0, time.UTC)

	assert.Equal(t, "3 PM", f.HourLabel(at.Unix()))
	assert.Equal(t, "03:00 PM", f.TimeOfDay(at.Unix()))
	assert.Equal(t, "Mon", f.Weekday("2024-01-15"))
	assert.Equal(t, "", f.Weekday("not-a-date"))
	assert.Equal(t, "Mon, Jan 15 at 3:00:00 PM", f.LastUpdated(at))

	// the day key is UTC midnight, so a viewer west of UTC sees the day before
	est := NewFormatter(time.FixedZone("EST", -5*3600))
	assert.Equal(t, "Sun", est.Weekday("2024-01-15"))
	assert.Equal(t, "Mon", NewFormatter(cet).Weekday("2024-01-15"))
}

func TestDateKeyIsUTC(t *testing.T) {
	lateEvening := time.Date(2024, 1, 15, 23, 30, 0, 0, time.UTC).Unix()
	assert.Equal(t, "2024-01-15", DateKey(lateEvening))
	assert.Equal(t, "2024-01-16", DateKey(lateEvening+3600))
}
