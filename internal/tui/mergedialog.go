package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/joshsymonds/coalesce/internal/merge"
	"github.com/joshsymonds/coalesce/internal/model"
)

// MergeDialogModel is the merge confirmation dialog. It validates the
// selected transactions' signs whenever the selection changes, gates the
// confirm action on the verdict, and submits at most one merge.
type MergeDialogModel struct {
	validator *merge.Validator
	executor  *merge.Executor
	verdict   *model.SignVerdict
	errText   string
	ids       []int64
	note      textinput.Model
	spinner   spinner.Model
	// generation identifies the most recent validation request; verdicts
	// from older requests are discarded.
	generation int
	mergedID   int64
	width      int
	validating bool
	submitting bool
	done       bool
	canceled   bool
	hasMerged  bool
}

// NewMergeDialog creates a dialog for the given selection.
func NewMergeDialog(ids []int64, validator *merge.Validator, executor *merge.Executor) MergeDialogModel {
	note := textinput.New()
	note.Placeholder = "optional note"
	note.CharLimit = 200
	note.Focus()

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(PrimaryColor)

	return MergeDialogModel{
		ids:       ids,
		validator: validator,
		executor:  executor,
		note:      note,
		spinner:   s,
	}
}

// Init starts the first sign validation.
func (m MergeDialogModel) Init() tea.Cmd {
	return tea.Batch(m.validateCmd(m.generation, m.ids), m.spinner.Tick, textinput.Blink)
}

// validateCmd runs the sign check for one validation generation.
func (m MergeDialogModel) validateCmd(generation int, ids []int64) tea.Cmd {
	validator := m.validator
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return signVerdictMsg{
			generation: generation,
			verdict:    validator.Validate(ctx, ids),
		}
	}
}

// executeCmd submits the merge.
func (m MergeDialogModel) executeCmd() tea.Cmd {
	executor := m.executor
	ids := m.ids
	note := m.note.Value()
	verdict := *m.verdict
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
		defer cancel()
		receipt, err := executor.Execute(ctx, ids, note, verdict)
		return mergeResultMsg{receipt: receipt, err: err}
	}
}

// Update handles messages.
func (m MergeDialogModel) Update(msg tea.Msg) (MergeDialogModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "esc", "ctrl+c":
			if !m.submitting {
				m.canceled = true
				m.done = true
				return m, tea.Quit
			}

		case "enter":
			if m.CanConfirm() {
				m.submitting = true
				m.errText = ""
				return m, m.executeCmd()
			}
			return m, nil
		}

	case selectionChangedMsg:
		// New selection supersedes any verdict in flight.
		m.ids = msg.ids
		m.generation++
		m.verdict = nil
		m.validating = true
		return m, m.validateCmd(m.generation, m.ids)

	case signVerdictMsg:
		// Discard verdicts computed for a stale selection or after close.
		if msg.generation != m.generation || m.done {
			return m, nil
		}
		verdict := msg.verdict
		m.verdict = &verdict
		m.validating = false
		return m, nil

	case mergeResultMsg:
		m.submitting = false
		if msg.err != nil {
			m.errText = msg.err.Error()
			return m, nil
		}
		m.done = true
		if msg.receipt.HasNewID {
			m.mergedID = msg.receipt.NewID
			m.hasMerged = true
		}
		return m, tea.Quit

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.WindowSizeMsg:
		m.width = msg.Width
	}

	var cmd tea.Cmd
	m.note, cmd = m.note.Update(msg)
	return m, cmd
}

// CanConfirm reports whether the confirm action is currently enabled.
func (m MergeDialogModel) CanConfirm() bool {
	return len(m.ids) >= 2 &&
		m.verdict != nil &&
		m.verdict.Consistent &&
		!m.submitting &&
		!m.done
}

// Canceled reports whether the user dismissed the dialog.
func (m MergeDialogModel) Canceled() bool {
	return m.canceled
}

// Result returns the merged ID, if the ledger reported one.
func (m MergeDialogModel) Result() (int64, bool) {
	return m.mergedID, m.hasMerged
}

// View renders the dialog.
func (m MergeDialogModel) View() string {
	var b strings.Builder

	b.WriteString(TitleStyle.Render(fmt.Sprintf("Merge %d transactions", len(m.ids))))
	b.WriteString("\n")

	idStrs := make([]string, len(m.ids))
	for i, id := range m.ids {
		idStrs[i] = fmt.Sprintf("#%d", id)
	}
	b.WriteString(strings.Join(idStrs, ", "))
	b.WriteString("\n\n")

	switch {
	case m.validating || m.verdict == nil:
		b.WriteString(m.spinner.View())
		b.WriteString(" Checking signs...")
	case !m.verdict.Advisory:
		b.WriteString(SubtleStyle.Render("Sign check unavailable; merge allowed."))
	case !m.verdict.Consistent:
		b.WriteString(WarningStyle.Render("⚠ " + merge.Describe(*m.verdict) + " — cannot merge"))
	default:
		b.WriteString(SuccessStyle.Render(merge.Describe(*m.verdict)))
	}
	b.WriteString("\n\n")

	b.WriteString("Note: ")
	b.WriteString(m.note.View())
	b.WriteString("\n")

	if m.errText != "" {
		b.WriteString("\n")
		b.WriteString(ErrorStyle.Render("Merge failed: " + m.errText))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	if m.submitting {
		b.WriteString(m.spinner.View())
		b.WriteString(" Merging...")
	} else if m.CanConfirm() {
		b.WriteString(SubtleStyle.Render("enter: merge • esc: cancel"))
	} else {
		b.WriteString(SubtleStyle.Render("esc: cancel"))
	}
	b.WriteString("\n")

	return b.String()
}
