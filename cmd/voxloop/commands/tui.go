package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	dialogue "github.com/lovrenc-k/voxloop/core"
	"github.com/lovrenc-k/voxloop/core/events"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15"))
	helpStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	youStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	botStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)

	stateColors = map[string]lipgloss.Color{
		"idle":         lipgloss.Color("8"),
		"listening":    lipgloss.Color("10"),
		"transcribing": lipgloss.Color("11"),
		"thinking":     lipgloss.Color("13"),
		"speaking":     lipgloss.Color("12"),
	}
)

// dialogueEventMsg wraps orchestrator events for bubbletea.
type dialogueEventMsg struct {
	event events.Event
}

type dialogueModel struct {
	orchestrator *dialogue.Orchestrator
	events       <-chan events.Event

	viewport viewport.Model
	ready    bool

	lines []string
	// assistantOpen marks that the last line is a reply still being spoken,
	// so further sentences extend it in place.
	assistantOpen bool

	state  string
	status string

	width  int
	height int

	quitting bool
}

func newDialogueModel(orchestrator *dialogue.Orchestrator, eventCh <-chan events.Event) dialogueModel {
	return dialogueModel{
		orchestrator: orchestrator,
		events:       eventCh,
		state:        orchestrator.State().String(),
	}
}

func (m dialogueModel) Init() tea.Cmd {
	return m.waitForEvent()
}

func (m dialogueModel) waitForEvent() tea.Cmd {
	return func() tea.Msg {
		event, ok := <-m.events
		if !ok {
			return nil
		}
		return dialogueEventMsg{event: event}
	}
}

func (m dialogueModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.orchestrator.Stop()
			m.quitting = true
			return m, tea.Quit
		case "s":
			if m.orchestrator.State() == dialogue.StateIdle {
				if err := m.orchestrator.Start(context.Background()); err != nil {
					m.status = fmt.Sprintf("failed to start: %v", err)
				} else {
					m.status = ""
				}
			} else {
				m.orchestrator.Stop()
			}
		case "a":
			m.orchestrator.SetAutoListen(!m.orchestrator.AutoListen())
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.viewport = viewport.New(msg.Width, max(msg.Height-5, 1))
		m.ready = true
		m.refreshViewport()

	case dialogueEventMsg:
		m.handleEvent(msg.event)
		return m, m.waitForEvent()
	}

	return m, nil
}

func (m *dialogueModel) handleEvent(event events.Event) {
	switch event := event.(type) {
	case events.StateChanged:
		m.state = event.State

	case events.UserTranscript:
		m.assistantOpen = false
		m.lines = append(m.lines, youStyle.Render("You: ")+event.Transcript)
		m.refreshViewport()

	case events.AssistantSentence:
		if m.assistantOpen && len(m.lines) > 0 {
			m.lines[len(m.lines)-1] += " " + event.Sentence
		} else {
			m.lines = append(m.lines, botStyle.Render("Assistant: ")+event.Sentence)
			m.assistantOpen = true
		}
		m.refreshViewport()

	case events.TurnCompleted:
		if m.assistantOpen && len(m.lines) > 0 {
			m.lines[len(m.lines)-1] = botStyle.Render("Assistant: ") + event.Reply
		}
		m.assistantOpen = false
		m.status = ""
		m.refreshViewport()

	case events.TurnFailed:
		m.assistantOpen = false
		m.status = fmt.Sprintf("%s error: %s", event.Stage, event.Message)

	case events.TurnCancelled:
		m.assistantOpen = false
		m.status = "turn cancelled"
	}
}

func (m *dialogueModel) refreshViewport() {
	if !m.ready {
		return
	}
	m.viewport.SetContent(wordwrap.String(strings.Join(m.lines, "\n\n"), m.viewport.Width))
	m.viewport.GotoBottom()
}

func (m dialogueModel) View() string {
	if m.quitting {
		return "Goodbye!\n"
	}
	if !m.ready {
		return "Starting..."
	}

	color, ok := stateColors[m.state]
	if !ok {
		color = lipgloss.Color("7")
	}
	stateBadge := lipgloss.NewStyle().Foreground(color).Bold(true).Render(strings.ToUpper(m.state))

	autoListen := "off"
	if m.orchestrator.AutoListen() {
		autoListen = "on"
	}
	header := fmt.Sprintf("%s  %s  %s",
		titleStyle.Render("voxloop"),
		stateBadge,
		helpStyle.Render("auto-listen: "+autoListen),
	)

	status := ""
	if m.status != "" {
		status = statusStyle.Render(m.status)
	}

	help := helpStyle.Render("s: start/stop  ·  a: toggle auto-listen  ·  q: quit")

	return strings.Join([]string{header, m.viewport.View(), status, help}, "\n")
}
