package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/i474232898/weather-widgets/internal/cache"
	"github.com/i474232898/weather-widgets/internal/search"
	"github.com/i474232898/weather-widgets/internal/weather"
)

// Focus is the area receiving key presses.
type Focus int

const (
	SearchFocus Focus = iota
	WidgetFocus
)

const (
	// hourlyColumns is how many hourly entries a card shows.
	hourlyColumns  = 8
	reloadInterval = 30 * time.Second
)

// Model is the dashboard state.
type Model struct {
	ctx     context.Context
	service *weather.Service
	session *search.Session

	focus   Focus
	input   textinput.Model
	results search.SessionState
	cursor  int

	widgets    []weather.Widget
	selected   int
	showHourly bool

	status string
	err    error

	width  int
	height int
	help   help.Model
	keys   keyMap
}

// NewModel creates a dashboard over service, feeding keystrokes to session.
func NewModel(ctx context.Context, service *weather.Service, session *search.Session) *Model {
	in := textinput.New()
	in.Placeholder = "Search for a city..."
	in.Prompt = "🔍 "
	in.CharLimit = 64
	in.Focus()

	return &Model{
		ctx:     ctx,
		service: service,
		session: session,
		input:   in,
		widgets: service.ListWidgets(),
		help:    help.New(),
		keys:    newKeyMap(),
	}
}

// Init starts the cursor blink and listens for search results.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, waitForSearch(m.session.Updates()), reloadEvery(reloadInterval))
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.input.Width = max(msg.Width-8, 20)
		return m, nil

	case tea.KeyMsg:
		if key.Matches(msg, m.keys.quit) {
			m.session.Close()
			return m, tea.Quit
		}
		if key.Matches(msg, m.keys.focus) {
			m.toggleFocus()
			return m, nil
		}
		if m.focus == SearchFocus {
			return m.handleSearchKeys(msg)
		}
		return m.handleWidgetKeys(msg)

	case searchUpdatedMsg:
		m.results = search.SessionState(msg)
		if m.cursor >= len(m.results.Results) {
			m.cursor = max(len(m.results.Results)-1, 0)
		}
		return m, waitForSearch(m.session.Updates())

	case widgetAddedMsg:
		m.status = ""
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.err = nil
		m.reload()
		m.selectWidget(msg.widget.ID)
		return m, nil

	case widgetRefreshedMsg:
		m.status = ""
		m.err = msg.err
		m.reload()
		return m, nil

	case widgetChangedMsg:
		m.err = msg.err
		m.reload()
		return m, nil

	case reloadTickMsg:
		m.reload()
		return m, reloadEvery(reloadInterval)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) toggleFocus() {
	if m.focus == SearchFocus && len(m.widgets) > 0 {
		m.focus = WidgetFocus
		m.input.Blur()
		return
	}
	m.focus = SearchFocus
	m.input.Focus()
}

func (m *Model) handleSearchKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyUp:
		if m.cursor > 0 {
			m.cursor--
		}
		return m, nil
	case tea.KeyDown:
		if m.cursor < len(m.results.Results)-1 {
			m.cursor++
		}
		return m, nil
	case tea.KeyEnter:
		c, ok := m.session.Select(m.cursor)
		if !ok {
			return m, nil
		}
		m.input.SetValue("")
		m.cursor = 0
		m.status = fmt.Sprintf("Adding %s...", c.Name)
		return m, m.addWidget(c.Name)
	}

	before := m.input.Value()
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	if v := m.input.Value(); v != before {
		m.session.Type(v)
	}
	return m, cmd
}

func (m *Model) handleWidgetKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if len(m.widgets) == 0 {
		return m, nil
	}
	w := m.widgets[m.selected]

	switch {
	case key.Matches(msg, m.keys.up):
		if m.selected > 0 {
			m.selected--
		}
	case key.Matches(msg, m.keys.down):
		if m.selected < len(m.widgets)-1 {
			m.selected++
		}
	case key.Matches(msg, m.keys.refresh):
		m.status = fmt.Sprintf("Refreshing %s...", w.City)
		return m, m.refreshWidget(w.ID)
	case key.Matches(msg, m.keys.remove):
		return m, m.deleteWidget(w.ID)
	case key.Matches(msg, m.keys.more):
		if w.ForecastDays < weather.MaxForecastDays {
			return m, m.setForecastDays(w.ID, w.ForecastDays+1)
		}
	case key.Matches(msg, m.keys.fewer):
		if w.ForecastDays > weather.MinForecastDays {
			return m, m.setForecastDays(w.ID, w.ForecastDays-1)
		}
	case key.Matches(msg, m.keys.toggle):
		m.showHourly = !m.showHourly
	}
	return m, nil
}

func (m *Model) reload() {
	m.widgets = m.service.ListWidgets()
	if m.selected >= len(m.widgets) {
		m.selected = max(len(m.widgets)-1, 0)
	}
	if len(m.widgets) == 0 && m.focus == WidgetFocus {
		m.focus = SearchFocus
		m.input.Focus()
	}
}

func (m *Model) selectWidget(id string) {
	for i, w := range m.widgets {
		if w.ID == id {
			m.selected = i
			return
		}
	}
}

func (m *Model) addWidget(city string) tea.Cmd {
	return func() tea.Msg {
		w, err := m.service.AddWidget(m.ctx, city)
		return widgetAddedMsg{widget: w, err: err}
	}
}

func (m *Model) refreshWidget(id string) tea.Cmd {
	return func() tea.Msg {
		_, err := m.service.RefreshWidget(m.ctx, id)
		return widgetRefreshedMsg{err: err}
	}
}

func (m *Model) deleteWidget(id string) tea.Cmd {
	return func() tea.Msg {
		return widgetChangedMsg{err: m.service.DeleteWidget(id)}
	}
}

func (m *Model) setForecastDays(id string, days int) tea.Cmd {
	return func() tea.Msg {
		_, err := m.service.SetForecastDays(id, days)
		return widgetChangedMsg{err: err}
	}
}

// View renders the search box, suggestions and widget board.
func (m *Model) View() string {
	var b strings.Builder

	b.WriteString(styles.title.Render("Weather Dashboard"))
	b.WriteString("\n")
	b.WriteString(m.input.View())
	b.WriteString("\n")
	b.WriteString(m.renderSuggestions())
	b.WriteString("\n")

	if m.status != "" {
		b.WriteString(styles.warn.Render(m.status) + "\n")
	}
	if m.err != nil {
		b.WriteString(styles.err.Render(fmt.Sprintf("Error: %v", m.err)) + "\n")
	}

	if len(m.widgets) == 0 {
		b.WriteString(styles.help.Render("No cities yet. Search above to add one.") + "\n")
	}
	for i, w := range m.widgets {
		b.WriteString(m.renderWidget(w, m.focus == WidgetFocus && i == m.selected))
		b.WriteString("\n")
	}

	b.WriteString(m.help.ShortHelpView(m.helpKeys()))
	return b.String()
}

func (m *Model) helpKeys() []key.Binding {
	if m.focus == SearchFocus {
		return []key.Binding{m.keys.enter, m.keys.focus, m.keys.quit}
	}
	return []key.Binding{m.keys.up, m.keys.down, m.keys.refresh, m.keys.remove, m.keys.more, m.keys.fewer, m.keys.toggle, m.keys.focus, m.keys.quit}
}

func (m *Model) renderSuggestions() string {
	st := m.results
	if !search.Eligible(st.Query) {
		return ""
	}

	switch st.Status {
	case cache.StatusPending:
		return styles.help.Render("  Searching...")
	case cache.StatusFailed:
		return styles.err.Render("  Error loading locations")
	}
	if len(st.Results) == 0 {
		return styles.help.Render("  No locations found")
	}

	var lines []string
	for i, c := range st.Results {
		label := c.Name
		if c.State != "" {
			label += ", " + c.State
		}
		label += ", " + c.Country
		if i == m.cursor {
			lines = append(lines, styles.selected.Render("> "+label))
		} else {
			lines = append(lines, "  "+label)
		}
	}
	return strings.Join(lines, "\n")
}

func (m *Model) renderWidget(w weather.Widget, selected bool) string {
	cur := w.WeatherData
	f := m.service.Formatter()

	header := lipgloss.NewStyle().Bold(true).Foreground(accent(w)).
		Render(fmt.Sprintf("%s  %s, %s", weather.Glyph(cur.Icon), cur.City, cur.Country))
	summary := fmt.Sprintf("%d°C  %s  (feels like %d°)", cur.Temperature, cur.Description, cur.FeelsLike)
	details := fmt.Sprintf("💧 %d%%  💨 %d km/h  ⏲ %d hPa  👁 %d km", cur.Humidity, cur.WindSpeed, cur.Pressure, cur.Visibility)
	sun := fmt.Sprintf("🌅 %s  🌇 %s", cur.Sunrise, cur.Sunset)

	var forecast string
	if m.showHourly {
		forecast = renderHourly(w.HourlyForecast)
	} else {
		forecast = renderDaily(w.VisibleDaily())
	}

	footer := styles.help.Render(fmt.Sprintf("Updated %s · %d-day", f.LastUpdated(w.LastUpdated), w.ForecastDays))

	body := strings.Join([]string{header, summary, details, sun, "", forecast, footer}, "\n")
	return cardStyle(w, selected).Render(body)
}

func renderHourly(entries []weather.HourlyEntry) string {
	n := min(len(entries), hourlyColumns)
	cols := make([]string, 0, n)
	for _, h := range entries[:n] {
		cols = append(cols, lipgloss.NewStyle().Width(8).Render(
			fmt.Sprintf("%s\n%s\n%d°", h.Time, weather.Glyph(h.Icon), h.Temperature)))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, cols...)
}

func renderDaily(entries []weather.DailyEntry) string {
	rows := make([]string, 0, len(entries))
	for _, d := range entries {
		rows = append(rows, fmt.Sprintf("%-4s %s  %3d° / %3d°  %s", d.Day, weather.Glyph(d.Icon), d.TempHigh, d.TempLow, d.Description))
	}
	return strings.Join(rows, "\n")
}
