package ui

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// FrameMsg reports one dispatched message to the monitor.
type FrameMsg struct {
	ID     int
	Name   string
	Fields []any
	Labels []string // Optional field names
	At     time.Time
}

// StateMsg reports a messenger state change. Err is set for "failed".
type StateMsg struct {
	State string
	Err   error
}

// StatsMsg reports messenger counters.
type StatsMsg struct {
	BytesRead  uint64
	Frames     uint64
	Dispatched uint64
	Dropped    uint64
}

type monitorRow struct {
	id     int
	name   string
	count  int
	last   time.Time
	values string
}

// MonitorModel is a Bubble Tea model showing the latest values received
// per message id.
type MonitorModel struct {
	title    string
	endpoint string
	spinner  spinner.Model
	table    table.Model
	rows     map[int]*monitorRow
	state    string
	err      error
	stats    StatsMsg
	width    int
	height   int
	quitting bool
}

var monitorColumns = []table.Column{
	{Title: "ID", Width: 5},
	{Title: "Name", Width: 14},
	{Title: "Count", Width: 7},
	{Title: "Last", Width: 12},
	{Title: "Values", Width: 40},
}

// NewMonitorModel creates a monitor for the given endpoint description.
func NewMonitorModel(title, endpoint string) MonitorModel {
	width, height := GetTerminalSize()

	t := table.New(
		table.WithColumns(monitorColumns),
		table.WithFocused(true),
		table.WithHeight(10),
	)
	styles := table.DefaultStyles()
	styles.Header = styles.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(MutedColor).
		BorderBottom(true).
		Bold(true)
	styles.Selected = styles.Selected.
		Foreground(TextColor).
		Background(PrimaryColor)
	t.SetStyles(styles)

	m := MonitorModel{
		title:    title,
		endpoint: endpoint,
		spinner:  spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(lipgloss.NewStyle().Foreground(WarningColor))),
		table:    t,
		rows:     make(map[int]*monitorRow),
		state:    "handshaking",
	}
	m.resize(width, height)
	return m
}

// Init implements tea.Model
func (m MonitorModel) Init() tea.Cmd {
	return m.spinner.Tick
}

// Update implements tea.Model
func (m MonitorModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.quitting = true
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case FrameMsg:
		m.applyFrame(msg)
		return m, nil

	case StateMsg:
		m.state = msg.State
		m.err = msg.Err
		return m, nil

	case StatsMsg:
		m.stats = msg
		return m, nil
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m *MonitorModel) resize(width, height int) {
	m.width = clampWidth(width)
	m.height = height

	// Give the values column whatever the fixed columns leave.
	cols := make([]table.Column, len(monitorColumns))
	copy(cols, monitorColumns)
	fixed := 0
	for _, c := range cols[:len(cols)-1] {
		fixed += c.Width + 2
	}
	if w := m.width - fixed - 4; w > cols[len(cols)-1].Width {
		cols[len(cols)-1].Width = w
	}
	m.table.SetColumns(cols)

	if h := height - 8; h > 3 {
		m.table.SetHeight(h)
	}
}

func (m *MonitorModel) applyFrame(f FrameMsg) {
	row, ok := m.rows[f.ID]
	if !ok {
		row = &monitorRow{id: f.ID}
		m.rows[f.ID] = row
	}
	row.name = f.Name
	row.count++
	row.last = f.At
	row.values = FormatFields(f.Labels, f.Fields)

	ids := make([]int, 0, len(m.rows))
	for id := range m.rows {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	rows := make([]table.Row, 0, len(ids))
	for _, id := range ids {
		r := m.rows[id]
		rows = append(rows, table.Row{
			strconv.Itoa(r.id),
			r.name,
			strconv.Itoa(r.count),
			r.last.Format("15:04:05.000"),
			r.values,
		})
	}
	m.table.SetRows(rows)
}

// View implements tea.Model
func (m MonitorModel) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder

	title := HeaderTitleStyle.Render(strings.ToUpper(m.title))
	endpoint := HeaderCommandStyle.Render(m.endpoint)
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, title, endpoint))
	b.WriteString("\n\n")

	status := StateStyle(m.state).Render(m.state)
	switch m.state {
	case "handshaking":
		status = m.spinner.View() + " " + status
	case "running":
		status = StateStyle(m.state).Render(RunningMarker) + " " + status
	case "failed":
		status = StateStyle(m.state).Render(FailureMarker) + " " + status
	}
	b.WriteString("  " + status)
	if m.err != nil {
		b.WriteString("  " + ErrorMessageStyle.Render(m.err.Error()))
	}
	b.WriteString("\n\n")

	b.WriteString(m.table.View())
	b.WriteString("\n\n")

	b.WriteString(MutedStyle.Render(fmt.Sprintf("  %d bytes  %d frames  %d dispatched  %d dropped",
		m.stats.BytesRead, m.stats.Frames, m.stats.Dispatched, m.stats.Dropped)))
	b.WriteString("\n")
	b.WriteString(MutedStyle.Render("  ↑/↓ select • q quit"))
	b.WriteString("\n")
	return b.String()
}

// Rows returns the number of distinct message ids seen.
func (m MonitorModel) Rows() int {
	return len(m.rows)
}
