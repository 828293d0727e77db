package ui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/i474232898/weather-widgets/internal/weather"
)

var styles = NewPalette("#7D56F4", "#04B575", "#FF0000", "#FFA500", "#626262")

// Palette is a simple stylesheet built with named [lipgloss.Style] fields.
type Palette struct {
	title    lipgloss.Style
	ok       lipgloss.Style
	err      lipgloss.Style
	warn     lipgloss.Style
	help     lipgloss.Style
	selected lipgloss.Style
}

func NewPalette(t, s, e, w, h string) *Palette {
	return &Palette{
		title:    NewBold(t).MarginBottom(1),
		ok:       NewBold(s),
		err:      NewBold(e),
		warn:     NewStyle(w),
		help:     NewEm(h),
		selected: NewBold(t),
	}
}

func NewStyle(fg string) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(fg))
}

func NewBold(fg string) lipgloss.Style {
	return NewStyle(fg).Bold(true)
}

func NewEm(fg string) lipgloss.Style {
	return NewStyle(fg).Italic(true)
}

// theme is the card accent for a condition, split by day and night.
type theme struct {
	day   lipgloss.Color
	night lipgloss.Color
}

var conditionThemes = map[weather.Condition]theme{
	weather.ConditionClear:   {day: "#F9A825", night: "#3949AB"},
	weather.ConditionCloudy:  {day: "#90A4AE", night: "#455A64"},
	weather.ConditionRain:    {day: "#1E88E5", night: "#0D47A1"},
	weather.ConditionSnow:    {day: "#E0F7FA", night: "#80DEEA"},
	weather.ConditionStorm:   {day: "#8E24AA", night: "#4A148C"},
	weather.ConditionMist:    {day: "#BDBDBD", night: "#616161"},
	weather.ConditionUnknown: {day: "#7D56F4", night: "#7D56F4"},
}

// accent returns the border color for a widget's current weather.
func accent(w weather.Widget) lipgloss.Color {
	t, ok := conditionThemes[w.Condition()]
	if !ok {
		t = conditionThemes[weather.ConditionUnknown]
	}
	if weather.IsNight(w.WeatherData.Icon) {
		return t.night
	}
	return t.day
}

func cardStyle(w weather.Widget, selected bool) lipgloss.Style {
	s := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(accent(w)).
		Padding(0, 1).
		MarginBottom(1)
	if selected {
		s = s.Border(lipgloss.ThickBorder())
	}
	return s
}
