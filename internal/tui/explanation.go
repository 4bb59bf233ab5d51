package tui

import (
	"context"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/joshsymonds/coalesce/internal/explain"
)

// ExplanationModel is a togglable panel showing why the ledger categorized
// a transaction the way it did. The underlying cache fetches at most once;
// reopening the panel reuses the cached text.
type ExplanationModel struct {
	cache   *explain.Cache
	fetcher explain.Fetcher
	spinner spinner.Model
	txnID   int64
}

// NewExplanation creates a hidden explanation panel for one transaction.
func NewExplanation(txnID int64, fetcher explain.Fetcher, opts ...explain.Option) ExplanationModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(PrimaryColor)

	return ExplanationModel{
		txnID:   txnID,
		fetcher: fetcher,
		cache:   explain.NewCache(txnID, fetcher, opts...),
		spinner: s,
	}
}

// fetchCmd performs the remote fetch this model won ownership of.
func (m ExplanationModel) fetchCmd() tea.Cmd {
	fetcher := m.fetcher
	txnID := m.txnID
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		exp, err := fetcher.GetExplanation(ctx, txnID)
		return explanationMsg{explanation: exp, err: err}
	}
}

// Toggle flips panel visibility, starting a fetch when one is needed.
func (m ExplanationModel) Toggle() (ExplanationModel, tea.Cmd) {
	visible := m.cache.ToggleVisible()
	if visible && m.cache.BeginFetch() {
		return m, tea.Batch(m.fetchCmd(), m.spinner.Tick)
	}
	return m, nil
}

// Update handles messages.
func (m ExplanationModel) Update(msg tea.Msg) (ExplanationModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "e" {
			return m.Toggle()
		}

	case explanationMsg:
		m.cache.Resolve(msg.explanation, msg.err)
		return m, nil

	case spinner.TickMsg:
		if m.cache.State() == explain.StateLoading {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}
	}

	return m, nil
}

// Visible reports whether the panel is shown.
func (m ExplanationModel) Visible() bool {
	return m.cache.Visible()
}

// View renders the panel, or a hint when hidden.
func (m ExplanationModel) View() string {
	if !m.cache.Visible() {
		return SubtleStyle.Render("e: why this category?")
	}

	var b strings.Builder
	b.WriteString(TitleStyle.Render("Explanation"))
	b.WriteString("\n")

	switch m.cache.State() {
	case explain.StateLoading, explain.StateIdle:
		b.WriteString(m.spinner.View())
		b.WriteString(" Loading explanation...")
	case explain.StateError:
		b.WriteString(ErrorStyle.Render(m.cache.Text()))
	default:
		b.WriteString(m.cache.Text())
	}
	b.WriteString("\n")

	return b.String()
}
