package ui

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatValue(t *testing.T) {
	tests := []struct {
		in   any
		want string
	}{
		{in: []byte("abc"), want: `"abc"`},
		{in: []byte{0x00, 0xff}, want: "0x00ff"},
		{in: uint8(7), want: "7"},
		{in: int16(-3), want: "-3"},
		{in: float32(1.5), want: "1.5"},
		{in: float64(0.1), want: "0.1"},
		{in: true, want: "true"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatValue(tt.in))
	}
}

func TestFormatFields(t *testing.T) {
	fields := []any{[]byte("tmp"), uint8(42)}
	assert.Equal(t, `tag="tmp" level=42`, FormatFields([]string{"tag", "level"}, fields))
	assert.Equal(t, `"tmp" 42`, FormatFields(nil, fields))
	assert.Equal(t, "", FormatFields(nil, nil))
}

func update(t *testing.T, m MonitorModel, msg tea.Msg) MonitorModel {
	t.Helper()
	next, _ := m.Update(msg)
	mm, ok := next.(MonitorModel)
	require.True(t, ok)
	return mm
}

func TestMonitorModel_Frames(t *testing.T) {
	m := NewMonitorModel("Live Monitor", "tcp 10.0.0.5:4000")
	m = update(t, m, tea.WindowSizeMsg{Width: 100, Height: 30})
	m = update(t, m, StateMsg{State: "running"})

	at := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	m = update(t, m, FrameMsg{ID: 10, Name: "position", Fields: []any{int16(1), int16(2)}, At: at})
	m = update(t, m, FrameMsg{ID: 5, Name: "sensor", Fields: []any{[]byte("tmp"), uint8(42)}, Labels: []string{"tag", "level"}, At: at})
	m = update(t, m, FrameMsg{ID: 5, Name: "sensor", Fields: []any{[]byte("tmp"), uint8(43)}, Labels: []string{"tag", "level"}, At: at})
	m = update(t, m, StatsMsg{BytesRead: 99, Frames: 3, Dispatched: 3})

	assert.Equal(t, 2, m.Rows())

	view := m.View()
	assert.Contains(t, view, "LIVE MONITOR")
	assert.Contains(t, view, "running")
	assert.Contains(t, view, "level=43")
	assert.NotContains(t, view, "level=42")
	assert.Contains(t, view, "99 bytes")
	assert.Less(t, strings.Index(view, "sensor"), strings.Index(view, "position"), "rows are ordered by id")
}

func TestMonitorModel_Failed(t *testing.T) {
	m := NewMonitorModel("Live Monitor", "serial /dev/ttyUSB0")
	m = update(t, m, StateMsg{State: "failed", Err: errors.New("Handshake Timeout: Handshake Timed Out")})

	view := m.View()
	assert.Contains(t, view, "failed")
	assert.Contains(t, view, "Handshake Timed Out")
}

func TestMonitorModel_Quit(t *testing.T) {
	m := NewMonitorModel("Live Monitor", "x")
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	require.NotNil(t, cmd)
	assert.Equal(t, "", next.View())
}

func TestConfirm(t *testing.T) {
	var out bytes.Buffer
	assert.True(t, Confirm(strings.NewReader("y\n"), &out, "Overwrite?"))
	assert.True(t, Confirm(strings.NewReader("YES\n"), &out, "Overwrite?"))
	assert.False(t, Confirm(strings.NewReader("n\n"), &out, "Overwrite?"))
	assert.False(t, Confirm(strings.NewReader(""), &out, "Overwrite?"))
	assert.Contains(t, out.String(), "Overwrite? [y/N]")
}

func TestResult_Render(t *testing.T) {
	r := NewSuccessResult("Session ended", map[string]string{"Frames": "3", "Dropped": "0"}).SetWidth(80)
	out := r.Render()
	assert.Contains(t, out, "Session ended")
	assert.Less(t, strings.Index(out, "Dropped"), strings.Index(out, "Frames"))

	f := NewFailureResult("Handshake", errors.New("no echo"), []string{"Check the baud rate"}).SetWidth(80)
	out = f.Render()
	assert.Contains(t, out, "FAILED")
	assert.Contains(t, out, "no echo")
	assert.Contains(t, out, "Check the baud rate")
}

func TestHeader_Render(t *testing.T) {
	h := NewHeader("Listen", "framelink listen", map[string]string{"Endpoint": "tcp 1.2.3.4:5", "Messages": "3"}).SetWidth(80)
	out := h.Render()
	assert.Contains(t, out, "LISTEN")
	assert.Contains(t, out, "framelink listen")
	assert.Less(t, strings.Index(out, "Endpoint"), strings.Index(out, "Messages"))
}
