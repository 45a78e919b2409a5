package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"scholarassist/internal/domain"
)

// AskPort is the TUI-facing subset of the application service.
type AskPort interface {
	Answer(ctx context.Context, query string, docIDs []string) (string, error)
	Retrieve(ctx context.Context, query string, docIDs []string) ([]domain.RetrievalResult, error)
}

// DocEntry is one selectable paper in the corpus list.
type DocEntry struct {
	ID    string
	Title string
}

// Model is the Bubble Tea model for the ask loop. The user picks the papers
// to query against, types a question and reads the grounded answer next to
// the snippets it was built from.
type Model struct {
	service   AskPort
	docs      []DocEntry
	selected  map[int]bool
	docCursor int
	picking   bool

	input     textinput.Model
	viewport  viewport.Model
	answer    string
	results   []domain.RetrievalResult
	status    string
	ready     bool
	lastQuery string
}

// New creates a new TUI model instance. All papers start selected.
func New(service AskPort, docs []DocEntry) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Type a question and press Enter"
	ti.Focus()
	ti.CharLimit = 0
	vp := viewport.New(0, 0)
	selected := make(map[int]bool, len(docs))
	for i := range docs {
		selected[i] = true
	}
	return Model{
		service:  service,
		docs:     docs,
		selected: selected,
		input:    ti,
		viewport: vp,
		status:   "Loaded. Tab toggles paper selection, Enter asks.",
	}
}

// Init initializes the model (text input cursor blink).
func (m Model) Init() tea.Cmd { return textinput.Blink }

// Update handles key and window events and updates the view state.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, rh := answerBoxStyle.GetFrameSize()
		_, qh := queryBoxStyle.GetFrameSize()
		reserved := len(m.docs) + 3 + qh + 1 // header, doc list, status, spacer
		vh := msg.Height - reserved
		if vh < 3 {
			vh = 3
		}
		m.viewport.Width = maxInt(20, msg.Width)
		m.viewport.Height = maxInt(3, vh-rh)
		m.viewport.SetContent(m.renderAnswer())
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD {
			return m, tea.Quit
		}
		switch msg.String() {
		case "tab":
			m.picking = !m.picking
			if m.picking {
				m.input.Blur()
				m.status = "Selecting papers. Space toggles, Tab returns to the query."
			} else {
				m.input.Focus()
				m.status = "Type a question and press Enter."
			}
			return m, nil
		case "enter":
			if m.picking {
				return m, nil
			}
			q := strings.TrimSpace(m.input.Value())
			if q != "" {
				m.ask(q)
				m.viewport.SetContent(m.renderAnswer())
				return m, nil
			}
		case "up":
			if m.picking && len(m.docs) > 0 {
				m.docCursor = (m.docCursor - 1 + len(m.docs)) % len(m.docs)
				return m, nil
			}
		case "down":
			if m.picking && len(m.docs) > 0 {
				m.docCursor = (m.docCursor + 1) % len(m.docs)
				return m, nil
			}
		case " ":
			if m.picking && len(m.docs) > 0 {
				m.selected[m.docCursor] = !m.selected[m.docCursor]
				return m, nil
			}
		}
	}
	if m.picking {
		return m, nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) ask(query string) {
	docIDs := m.selectedIDs()
	if len(docIDs) == 0 {
		m.status = "No papers selected."
		return
	}
	ctx := context.Background()
	answer, err := m.service.Answer(ctx, query, docIDs)
	if err != nil {
		m.status = "Error: " + err.Error()
		m.answer = ""
		m.results = nil
		return
	}
	results, err := m.service.Retrieve(ctx, query, docIDs)
	if err != nil {
		results = nil
	}
	m.answer = answer
	m.results = results
	m.lastQuery = query
	m.status = fmt.Sprintf("Answer for %q", query)
}

func (m Model) selectedIDs() []string {
	ids := make([]string, 0, len(m.docs))
	for i, doc := range m.docs {
		if m.selected[i] {
			ids = append(ids, doc.ID)
		}
	}
	return ids
}

// View renders the TUI layout: paper list, answer pane, query box, status.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := lipgloss.NewStyle().Bold(true).Render("Scholar Assist")
	papers := m.renderDocList()
	answer := answerBoxStyle.Render(m.viewport.View())
	input := queryBoxStyle.Render(m.input.View())
	status := lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Render(m.status)
	return header + "\n" + papers + "\n" + answer + "\n" + input + "\n" + status
}

func (m Model) renderDocList() string {
	if len(m.docs) == 0 {
		return dimStyle.Render("No papers ingested.")
	}
	lines := make([]string, len(m.docs))
	for i, doc := range m.docs {
		mark := "[ ]"
		if m.selected[i] {
			mark = "[x]"
		}
		line := fmt.Sprintf("%s %s", mark, doc.Title)
		if m.picking && i == m.docCursor {
			line = cursorStyle.Render("> " + line)
		} else {
			line = "  " + line
		}
		lines[i] = line
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderAnswer() string {
	if m.answer == "" {
		return "No answer yet."
	}
	var b strings.Builder
	b.WriteString(m.answer)
	if len(m.results) > 0 {
		b.WriteString("\n\n")
		b.WriteString(dimStyle.Render("Grounding snippets:"))
		for i, r := range m.results {
			b.WriteString(fmt.Sprintf("\n%d. [%s, score=%.3f] %s",
				i+1, r.DocumentID, r.Score, snippetPreview(r.Text)))
		}
	}
	return b.String()
}

func snippetPreview(text string) string {
	runes := []rune(strings.Join(strings.Fields(text), " "))
	if len(runes) <= 160 {
		return string(runes)
	}
	return string(runes[:160]) + "…"
}

var (
	answerBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	queryBoxStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	cursorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	dimStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
