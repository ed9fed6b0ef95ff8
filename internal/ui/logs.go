package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/sirupsen/logrus"

	"github.com/five82/tradedeck/internal/logtail"
)

// logLevels is the cycle order of the minimum-level filter.
var logLevels = []logrus.Level{logrus.DebugLevel, logrus.InfoLevel, logrus.WarnLevel, logrus.ErrorLevel}

type logLinesMsg struct {
	lines []logtail.Line
	err   error
}

// readLogs tails the log file in the background.
func (m Model) readLogs() tea.Cmd {
	path, level := m.logPath, m.logLevel
	if path == "" {
		return nil
	}
	return func() tea.Msg {
		lines, err := logtail.Tail(path, logTailLines, level)
		return logLinesMsg{lines: lines, err: err}
	}
}

func (m *Model) handleLogLines(msg logLinesMsg) {
	m.logErr = msg.err
	if msg.err != nil {
		return
	}
	m.logLines = msg.lines
	m.updateLogViewport()
}

// updateLogViewport re-renders log lines, staying pinned to the bottom when
// the view was already there.
func (m *Model) updateLogViewport() {
	if !m.ready {
		return
	}
	follow := m.logViewport.AtBottom() || m.logViewport.TotalLineCount() == 0
	styles := m.theme.Styles()
	width := m.logViewport.Width

	var b strings.Builder
	for i, line := range m.logLines {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(levelStyle(styles, line).Render(truncate(line.Text, width)))
	}
	m.logViewport.SetContent(b.String())
	if follow {
		m.logViewport.GotoBottom()
	}
}

func levelStyle(styles Styles, line logtail.Line) lipgloss.Style {
	if !line.Parsed {
		return styles.FaintText
	}
	switch line.Level {
	case logrus.PanicLevel, logrus.FatalLevel, logrus.ErrorLevel:
		return styles.DangerText
	case logrus.WarnLevel:
		return styles.WarningText
	case logrus.DebugLevel, logrus.TraceLevel:
		return styles.MutedText
	default:
		return styles.Text
	}
}

func nextLogLevel(current logrus.Level) logrus.Level {
	for i, l := range logLevels {
		if l == current {
			return logLevels[(i+1)%len(logLevels)]
		}
	}
	return logrus.InfoLevel
}

func (m Model) handleLogsKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.CycleLevel):
		m.logLevel = nextLogLevel(m.logLevel)
		cmd := m.readLogs()
		return m, cmd
	case key.Matches(msg, m.keys.Top):
		m.logViewport.GotoTop()
		return m, nil
	case key.Matches(msg, m.keys.Bottom):
		m.logViewport.GotoBottom()
		return m, nil
	}
	var cmd tea.Cmd
	m.logViewport, cmd = m.logViewport.Update(msg)
	return m, cmd
}

func (m Model) renderLogs() string {
	styles := m.theme.Styles()
	if m.logPath == "" {
		return styles.MutedText.Render("Logging to a terminal stream; no log file to show.")
	}

	title := styles.AccentText.Bold(true).Render("Logs") + "  " +
		styles.MutedText.Render(truncateMiddle(m.logPath, 60)) + "  " +
		styles.FaintText.Render("level >= "+m.logLevel.String())
	if m.logErr != nil {
		title += "  " + styles.DangerText.Render(truncate(m.logErr.Error(), 60))
	}
	if len(m.logLines) == 0 {
		return title + "\n" + styles.MutedText.Render("No log lines yet.")
	}
	return title + "\n" + m.logViewport.View()
}
