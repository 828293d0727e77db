package ui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/i474232898/weather-widgets/internal/search"
	"github.com/i474232898/weather-widgets/internal/weather"
)

type searchUpdatedMsg search.SessionState

type widgetAddedMsg struct {
	widget weather.Widget
	err    error
}

type widgetRefreshedMsg struct {
	err error
}

type widgetChangedMsg struct {
	err error
}

type reloadTickMsg time.Time

// reloadEvery re-reads the widget list so background refreshes show up.
func reloadEvery(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg { return reloadTickMsg(t) })
}

// waitForSearch blocks on the session's next state. It is re-armed after each
// delivery and yields nil once the session is closed.
func waitForSearch(updates <-chan search.SessionState) tea.Cmd {
	return func() tea.Msg {
		st, ok := <-updates
		if !ok {
			return nil
		}
		return searchUpdatedMsg(st)
	}
}
