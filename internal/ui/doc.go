// Package ui provides terminal UI components for the framelink CLI.
//
// This package uses Bubble Tea, Bubbles and Lipgloss. Most components follow
// a "render once" pattern: a Header before a command runs and a Result box
// when it finishes. The MonitorModel is the one interactive view; it shows
// the latest decoded values per message id and is fed from messenger
// handlers through tea.Program.Send:
//
//	p := tea.NewProgram(ui.NewMonitorModel("Live Monitor", endpoint))
//	m.Register(5, func(id int, fields []any) error {
//	    p.Send(ui.FrameMsg{ID: id, Fields: fields, At: time.Now()})
//	    return nil
//	}, "3sB")
//
// # Logging Integration
//
// This package expects logging to be controlled via the FRAMELINK_LOG_LEVEL
// environment variable. When unset or empty, zap logging is silent, allowing
// the curated UI output to be displayed cleanly.
package ui
