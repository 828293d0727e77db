package weather

import (
	"strings"

	"github.com/i474232898/weather-widgets/internal/common"
)

// ConditionFromMain maps the provider's main category (e.g. "Clouds") to a Condition.
func ConditionFromMain(main string) Condition {
	switch main {
	case "Clear":
		return ConditionClear
	case "Clouds":
		return ConditionCloudy
	case "Rain", "Drizzle":
		return ConditionRain
	case "Snow":
		return ConditionSnow
	case "Thunderstorm":
		return ConditionStorm
	}
	if common.HasAny(main, "Mist", "Fog", "Haze", "Smoke", "Dust", "Sand", "Ash") {
		return ConditionMist
	}
	return ConditionUnknown
}

// ConditionFromIcon maps an icon code such as "10d" to a Condition.
func ConditionFromIcon(icon string) Condition {
	if len(icon) < 2 {
		return ConditionUnknown
	}
	switch icon[:2] {
	case "01":
		return ConditionClear
	case "02", "03", "04":
		return ConditionCloudy
	case "09", "10":
		return ConditionRain
	case "11":
		return ConditionStorm
	case "13":
		return ConditionSnow
	case "50":
		return ConditionMist
	default:
		return ConditionUnknown
	}
}

var iconGlyphs = map[string]string{
	"01d": "☀️", "01n": "🌙",
	"02d": "⛅", "02n": "☁️",
	"03d": "☁️", "03n": "☁️",
	"04d": "☁️", "04n": "☁️",
	"09d": "🌧️", "09n": "🌧️",
	"10d": "🌦️", "10n": "🌧️",
	"11d": "⛈️", "11n": "⛈️",
	"13d": "❄️", "13n": "❄️",
	"50d": "💨", "50n": "💨",
}

// Glyph returns an emoji for an icon code; unknown codes fall back to the sun.
func Glyph(icon string) string {
	if g, ok := iconGlyphs[icon]; ok {
		return g
	}
	return "☀️"
}

// IsNight reports whether an icon code is the night variant.
func IsNight(icon string) bool {
	return strings.HasSuffix(icon, "n")
}
