// Copyright 2026 The Coddy Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/coddy-project/coddy/relay"
)

// sessionUpdateMsg tells the model the session's observable state
// changed and the transcript and status bar need re-rendering. Sent
// from the session's update callback via tea.Program.Send.
type sessionUpdateMsg struct{}

var (
	commandStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	infoStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("14"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	logStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("7"))
	statusStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("13")).Italic(true)

	statusBarStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("0")).
			Background(lipgloss.Color("7")).
			Padding(0, 1)
	connectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("0")).
			Background(lipgloss.Color("10")).
			Padding(0, 1)
	disconnectedStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("15")).
				Background(lipgloss.Color("9")).
				Padding(0, 1)
)

func lineStyle(category relay.Category) lipgloss.Style {
	switch category {
	case relay.CategoryCommand:
		return commandStyle
	case relay.CategoryInfo:
		return infoStyle
	case relay.CategorySuccess:
		return successStyle
	case relay.CategoryError:
		return errorStyle
	case relay.CategoryStatus:
		return statusStyle
	default:
		return logStyle
	}
}

type model struct {
	session *relay.Session

	transcript viewport.Model
	input      textinput.Model

	width  int
	height int
	ready  bool
}

func newModel(session *relay.Session) model {
	input := textinput.New()
	input.Placeholder = "type a command"
	input.Prompt = "> "
	input.Focus()

	return model{
		session: session,
		input:   input,
	}
}

func (m model) Init() tea.Cmd {
	return textinput.Blink
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyEnter:
			line := m.input.Value()
			m.input.Reset()
			// Handle returns immediately; results land in the
			// transcript asynchronously and arrive as updates.
			m.session.Handle(line)
			return m, nil
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		transcriptHeight := msg.Height - 2
		if transcriptHeight < 1 {
			transcriptHeight = 1
		}
		if !m.ready {
			m.transcript = viewport.New(msg.Width, transcriptHeight)
			m.ready = true
		} else {
			m.transcript.Width = msg.Width
			m.transcript.Height = transcriptHeight
		}
		m.refreshTranscript()
		return m, nil

	case sessionUpdateMsg:
		if m.ready {
			m.refreshTranscript()
		}
		return m, nil
	}

	var inputCmd, transcriptCmd tea.Cmd
	m.input, inputCmd = m.input.Update(msg)
	m.transcript, transcriptCmd = m.transcript.Update(msg)
	return m, tea.Batch(inputCmd, transcriptCmd)
}

// refreshTranscript re-renders the transcript into the viewport and
// follows the tail, matching a terminal's scrollback behavior.
func (m *model) refreshTranscript() {
	lines := m.session.Lines()
	rendered := make([]string, 0, len(lines))
	for _, line := range lines {
		rendered = append(rendered, lineStyle(line.Category).Render(line.Text))
	}
	m.transcript.SetContent(strings.Join(rendered, "\n"))
	m.transcript.GotoBottom()
}

func (m model) View() string {
	if !m.ready {
		return "starting..."
	}
	return m.transcript.View() + "\n" + m.statusBar() + "\n" + m.input.View()
}

// statusBar renders the connection badge, the transient status text,
// and the stored checkpoint count.
func (m model) statusBar() string {
	var badge string
	switch m.session.ConnectionState() {
	case relay.StateOpen:
		badge = connectedStyle.Render("LIVE")
	case relay.StateConnecting:
		badge = statusBarStyle.Render("CONNECTING")
	default:
		badge = disconnectedStyle.Render("OFFLINE")
	}

	status := m.session.Status()
	if checkpoints := m.session.Checkpoints(); len(checkpoints) > 0 {
		status = strings.TrimSpace(status + fmt.Sprintf("  [%d checkpoints]", len(checkpoints)))
	}

	bar := badge + " " + statusBarStyle.Render(status)
	if width := lipgloss.Width(bar); width < m.width {
		bar += strings.Repeat(" ", m.width-width)
	}
	return bar
}
