// Package ui provides the interactive terminal board.
package ui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nibzard/kanban-go/internal/store"
	"github.com/nibzard/kanban-go/internal/task"
)

const defaultColumnWidth = 30

// Run shows the board for s until the user quits or ctx is done.
func Run(ctx context.Context, s *store.Store) error {
	if !IsTTY(os.Stdout) {
		return fmt.Errorf("board requires a TTY")
	}
	m := NewModel(s)
	defer m.Close()
	program := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := program.Run()
	return err
}

// Model is the bubbletea model of the board. All mutations go through the
// store; the model only keeps cursor state and the latest snapshot.
type Model struct {
	store       *store.Store
	snap        store.Snapshot
	updates     chan store.Snapshot
	unsubscribe func()

	keys     keyMap
	col      int
	row      [3]int
	width    int
	showHelp bool

	adding bool
	input  textinput.Model
	err    string
	notice string
}

type snapshotMsg store.Snapshot

// NewModel subscribes to s. Call Close when done.
func NewModel(s *store.Store) *Model {
	ti := textinput.New()
	ti.Placeholder = "Task title"
	ti.Prompt = "> "

	m := &Model{
		store:   s,
		updates: make(chan store.Snapshot, 1),
		keys:    defaultKeyMap(),
		input:   ti,
		width:   defaultColumnWidth*3 + 12,
	}
	m.unsubscribe = s.Subscribe(m.offer)
	m.snap = <-m.updates
	return m
}

// offer keeps only the newest undelivered snapshot.
func (m *Model) offer(snap store.Snapshot) {
	for {
		select {
		case m.updates <- snap:
			return
		default:
			select {
			case <-m.updates:
			default:
			}
		}
	}
}

// Close stops listening to the store.
func (m *Model) Close() {
	if m.unsubscribe != nil {
		m.unsubscribe()
		m.unsubscribe = nil
	}
}

func (m *Model) Init() tea.Cmd {
	return m.waitForSnapshot()
}

func (m *Model) waitForSnapshot() tea.Cmd {
	ch := m.updates
	return func() tea.Msg {
		return snapshotMsg(<-ch)
	}
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil
	case snapshotMsg:
		m.accept(store.Snapshot(msg))
		return m, m.waitForSnapshot()
	case tea.KeyMsg:
		if m.adding {
			return m.updateAdding(msg)
		}
		return m.updateBoard(msg)
	}
	return m, nil
}

func (m *Model) updateBoard(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.err = ""
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.showHelp = !m.showHelp
	case key.Matches(msg, m.keys.Left):
		m.col = max(m.col-1, 0)
	case key.Matches(msg, m.keys.Right):
		m.col = min(m.col+1, len(task.Statuses())-1)
	case key.Matches(msg, m.keys.Up):
		m.row[m.col] = max(m.row[m.col]-1, 0)
	case key.Matches(msg, m.keys.Down):
		m.row[m.col] = min(m.row[m.col]+1, max(len(m.column(m.col))-1, 0))
	case key.Matches(msg, m.keys.MoveLeft):
		m.move(-1)
	case key.Matches(msg, m.keys.MoveRight):
		m.move(1)
	case key.Matches(msg, m.keys.Delete):
		if t, ok := m.Selected(); ok {
			if err := m.store.DeleteTask(t.ID); err != nil {
				m.report(err)
				return m, nil
			}
			m.notice = fmt.Sprintf("Deleted %q", t.Title)
			m.refresh()
		}
	case key.Matches(msg, m.keys.Add):
		m.adding = true
		m.input.SetValue("")
		return m, m.input.Focus()
	}
	return m, nil
}

func (m *Model) updateAdding(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Cancel):
		m.stopAdding()
		return m, nil
	case key.Matches(msg, m.keys.Submit):
		created, err := m.store.AddTask(task.CreateInput{
			Title:    strings.TrimSpace(m.input.Value()),
			Status:   task.Statuses()[m.col],
			Priority: task.PriorityMedium,
		})
		if err != nil {
			m.err = fieldMessage(err, "title")
			return m, nil
		}
		m.stopAdding()
		m.notice = fmt.Sprintf("Added %q", created.Title)
		m.refresh()
		m.row[m.col] = len(m.column(m.col)) - 1
		return m, nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) stopAdding() {
	m.adding = false
	m.err = ""
	m.input.Blur()
	m.input.SetValue("")
}

// move shifts the selected task dir columns and keeps it selected.
func (m *Model) move(dir int) {
	t, ok := m.Selected()
	if !ok {
		return
	}
	target := m.col + dir
	if target < 0 || target >= len(task.Statuses()) {
		return
	}
	st := task.Statuses()[target]
	if err := m.store.UpdateTask(t.ID, task.Patch{Status: &st}); err != nil {
		m.report(err)
		return
	}
	m.refresh()
	m.col = target
	for i, other := range m.column(target) {
		if other.ID == t.ID {
			m.row[target] = i
		}
	}
	m.notice = fmt.Sprintf("Moved %q to %s", t.Title, st.Label())
}

func (m *Model) report(err error) {
	if err != nil {
		m.err = err.Error()
	}
}

func (m *Model) refresh() {
	m.accept(m.store.Snapshot())
}

// accept replaces the snapshot unless it is older than the current one.
func (m *Model) accept(snap store.Snapshot) {
	if snap.Version() < m.snap.Version() {
		return
	}
	m.snap = snap
	for i := range m.row {
		n := len(m.column(i))
		if m.row[i] >= n {
			m.row[i] = max(n-1, 0)
		}
	}
}

func (m *Model) column(i int) []task.Task {
	return m.snap.ByStatus(task.Statuses()[i])
}

// Selected returns the task under the cursor.
func (m *Model) Selected() (task.Task, bool) {
	tasks := m.column(m.col)
	if len(tasks) == 0 {
		return task.Task{}, false
	}
	return tasks[m.row[m.col]], true
}

// Column returns the index of the focused column.
func (m *Model) Column() int {
	return m.col
}

// Adding reports whether the new-task input is open.
func (m *Model) Adding() bool {
	return m.adding
}

// Err returns the message shown under the board, if any.
func (m *Model) Err() string {
	return m.err
}

func (m *Model) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Kanban") + "  " +
		mutedStyle.Render(fmt.Sprintf("%d tasks", m.snap.Len())) + "\n\n")

	width := defaultColumnWidth
	if m.width > 0 {
		width = max((m.width-12)/3, 16)
	}
	cols := make([]string, 0, 3)
	for i := range task.Statuses() {
		cols = append(cols, m.renderColumn(i, width))
	}
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, cols...))
	b.WriteString("\n")

	if m.adding {
		b.WriteString("\nNew task in " + task.Statuses()[m.col].Label() + "\n")
		b.WriteString(m.input.View() + "\n")
	}
	if m.err != "" {
		b.WriteString(errorStyle.Render(m.err) + "\n")
	} else if m.notice != "" {
		b.WriteString(mutedStyle.Render(m.notice) + "\n")
	}
	b.WriteString("\n" + m.helpView())
	return b.String()
}

func (m *Model) renderColumn(i, width int) string {
	st := task.Statuses()[i]
	tasks := m.column(i)

	var b strings.Builder
	b.WriteString(headerStyle.Render(fmt.Sprintf("%s (%d)", st.Label(), len(tasks))))
	b.WriteString("\n")
	if len(tasks) == 0 {
		b.WriteString(mutedStyle.Render("No tasks"))
	}
	for j, t := range tasks {
		line := truncate(priorityMark(t.Priority)+" "+t.Title, width-2)
		if i == m.col && j == m.row[i] {
			line = selectedStyle.Render(line)
		}
		b.WriteString(line)
		if j < len(tasks)-1 {
			b.WriteString("\n")
		}
	}

	style := columnStyle
	if i == m.col {
		style = activeColumnStyle
	}
	return style.Width(width).Render(b.String())
}

func (m *Model) helpView() string {
	bindings := m.keys.boardHelp()
	if m.adding {
		bindings = []key.Binding{m.keys.Submit, m.keys.Cancel}
	} else if !m.showHelp {
		bindings = []key.Binding{m.keys.Add, m.keys.MoveLeft, m.keys.MoveRight, m.keys.Delete, m.keys.Help, m.keys.Quit}
	}
	parts := make([]string, 0, len(bindings))
	for _, kb := range bindings {
		h := kb.Help()
		parts = append(parts, h.Key+" "+h.Desc)
	}
	return helpStyle.Render(strings.Join(parts, " • "))
}

func priorityMark(p task.Priority) string {
	switch p {
	case task.PriorityHigh:
		return highStyle.Render("●")
	case task.PriorityMedium:
		return mediumStyle.Render("●")
	default:
		return lowStyle.Render("●")
	}
}

func truncate(s string, width int) string {
	if width <= 0 || lipgloss.Width(s) <= width {
		return s
	}
	r := []rune(s)
	for len(r) > 0 && lipgloss.Width(string(r))+1 > width {
		r = r[:len(r)-1]
	}
	return string(r) + "…"
}

func fieldMessage(err error, field string) string {
	var ve *task.ValidationError
	if errors.As(err, &ve) {
		if msg, ok := ve.Field(field); ok {
			return msg
		}
	}
	return err.Error()
}

// IsTTY returns true if w is a terminal.
func IsTTY(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}
