package tui

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog/log"

	"morocco-rag/internal/models"
)

// Asker answers questions for one chat
type Asker interface {
	Ask(ctx context.Context, question string) (*models.PromptResponse, error)
}

// Loader starts the chat, it runs once when the program starts
type Loader func(ctx context.Context) (Asker, error)

type state int

const (
	stateLoading state = iota
	stateReady
	stateFailed
)

type loadedMsg struct{ asker Asker }

type loadFailedMsg struct{ err error }

type line struct {
	style lipgloss.Style
	label string
	text  string
}

type answerMsg struct {
	answer string
	err    error
}

// Model is the Bubble Tea model for the chat window
type Model struct {
	ctx      context.Context
	load     Loader
	asker    Asker
	state    state
	busy     bool
	input    textinput.Model
	viewport viewport.Model
	lines    []line
	status   string
	sized    bool
}

func New(ctx context.Context, load Loader) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Ask about traveling in Morocco and press Enter"
	ti.Focus()
	ti.CharLimit = 0
	return Model{
		ctx:      ctx,
		load:     load,
		input:    ti,
		viewport: viewport.New(0, 0),
		status:   models.UserMessageInitializing,
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.start)
}

func (m Model) start() tea.Msg {
	asker, err := m.load(m.ctx)
	if err != nil {
		return loadFailedMsg{err: err}
	}
	return loadedMsg{asker: asker}
}

func (m Model) ask(question string) tea.Cmd {
	asker, ctx := m.asker, m.ctx
	return func() tea.Msg {
		resp, err := asker.Ask(ctx, question)
		if err != nil {
			return answerMsg{err: err}
		}
		return answerMsg{answer: resp.Content}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.sized = true
		_, fh := transcriptStyle.GetFrameSize()
		_, qh := inputStyle.GetFrameSize()
		m.viewport.Width = max(20, msg.Width)
		m.viewport.Height = max(3, msg.Height-fh-qh-3)
		m.refresh()
		return m, nil

	case loadedMsg:
		m.asker = msg.asker
		m.state = stateReady
		m.status = "Ready"
		m.appendLine(assistantStyle, "Assistant: ", models.UserMessageWelcome)
		return m, nil

	case loadFailedMsg:
		log.Error().Err(msg.err).Msg("Failed to initialize chatbot")
		m.state = stateFailed
		m.status = "Press Ctrl+C to quit"
		m.appendLine(errorStyle, "", models.UserMessageInitFailed)
		return m, nil

	case answerMsg:
		m.busy = false
		m.status = "Ready"
		if msg.err != nil {
			log.Error().Err(msg.err).Msg("Error processing query")
			m.appendLine(errorStyle, "", models.UserMessageQueryFailed)
			return m, nil
		}
		m.appendLine(assistantStyle, "Assistant: ", msg.answer)
		return m, nil

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD || msg.Type == tea.KeyEsc {
			return m, tea.Quit
		}
		if msg.Type == tea.KeyEnter {
			if m.state != stateReady || m.busy {
				return m, nil
			}
			q := strings.TrimSpace(m.input.Value())
			if q == "" {
				m.status = models.UserMessageEmptyQuery
				return m, nil
			}
			m.input.Reset()
			m.busy = true
			m.status = "Thinking..."
			m.appendLine(userStyle, "You: ", q)
			return m, m.ask(q)
		}
		if msg.Type == tea.KeyPgUp || msg.Type == tea.KeyPgDown {
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) appendLine(style lipgloss.Style, label, text string) {
	m.lines = append(m.lines, line{style: style, label: label, text: text})
	m.refresh()
}

func (m *Model) refresh() {
	rendered := make([]string, len(m.lines))
	for i, l := range m.lines {
		if l.label == "" {
			rendered[i] = l.style.Render(l.text)
		} else {
			rendered[i] = l.style.Render(l.label) + l.text
		}
	}
	content := strings.Join(rendered, "\n\n")
	if m.viewport.Width > 0 {
		content = lipgloss.NewStyle().Width(m.viewport.Width).Render(content)
	}
	m.viewport.SetContent(content)
	m.viewport.GotoBottom()
}

// Transcript returns the chat so far without styling
func (m Model) Transcript() string {
	plain := make([]string, len(m.lines))
	for i, l := range m.lines {
		plain[i] = l.label + l.text
	}
	return strings.Join(plain, "\n\n")
}

func (m Model) View() string {
	if !m.sized {
		return models.UserMessageInitializing
	}
	header := headerStyle.Render("Morocco Tourism Chatbot")
	transcript := transcriptStyle.Render(m.viewport.View())
	input := inputStyle.Render(m.input.View())
	status := statusStyle.Render(m.status)
	return header + "\n" + transcript + "\n" + input + "\n" + status
}

var (
	headerStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))
	transcriptStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	inputStyle      = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	statusStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	userStyle       = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	assistantStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10"))
	errorStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
)

// Run shows the chat window until the user quits
func Run(ctx context.Context, load Loader) error {
	_, err := tea.NewProgram(New(ctx, load), tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	return err
}
