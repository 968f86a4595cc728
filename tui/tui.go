// Package tui implements the interactive menu shell and task table rendering.
package tui

import (
	"fmt"
	"strings"
	"unicode/utf8"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"taskforge/app"
	"taskforge/model"
)

type uiMode int

const (
	modeMenu uiMode = iota
	modePrompt
)

type menuAction int

const (
	actionNone menuAction = iota
	actionAdd
	actionView
	actionUpdate
	actionComplete
	actionDelete
	actionFilter
)

// prompt is one parameter the shell collects before running an action.
type prompt struct {
	key   string
	label string
}

type Model struct {
	svc *app.Service

	mode    uiMode
	action  menuAction
	prompts []prompt
	values  map[string]string
	input   string

	output    string
	status    string
	statusErr bool

	width int
}

// NewModel builds the menu shell over a task manager.
func NewModel(svc *app.Service, startupStatus string) *Model {
	status := strings.TrimSpace(startupStatus)
	if status == "" {
		status = "Ready"
	}
	return &Model{
		svc:    svc,
		mode:   modeMenu,
		status: status,
	}
}

// Run starts the interactive program inline (no alternate screen), so output
// history stays in the terminal scrollback.
func Run(svc *app.Service, startupStatus string) error {
	_, err := tea.NewProgram(NewModel(svc, startupStatus)).Run()
	return err
}

func (m *Model) Init() tea.Cmd {
	return nil
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
	case tea.KeyMsg:
		switch m.mode {
		case modePrompt:
			m.updatePromptMode(msg)
		default:
			if quit := m.updateMenuMode(msg); quit {
				return m, tea.Quit
			}
		}
	}
	return m, nil
}

func (m *Model) updateMenuMode(msg tea.KeyMsg) bool {
	switch msg.String() {
	case "ctrl+c", "q", "7":
		return true
	case "1":
		m.startAction(actionAdd,
			prompt{"title", "Title"},
			prompt{"priority", "Priority (Low/Medium/High)"},
			prompt{"due", "Due date (YYYY-MM-DD)"},
		)
	case "2":
		m.startAction(actionView,
			prompt{"scope", "View (all/pending/completed, blank = all)"},
		)
	case "3":
		m.startAction(actionUpdate,
			prompt{"id", "Task ID"},
			prompt{"title", "New title (blank keeps current)"},
			prompt{"priority", "New priority (blank keeps current)"},
			prompt{"due", "New due date (blank keeps current)"},
		)
	case "4":
		m.startAction(actionComplete, prompt{"id", "Task ID"})
	case "5":
		m.startAction(actionDelete, prompt{"id", "Task ID"})
	case "6":
		m.startAction(actionFilter,
			prompt{"by", "Filter by (status/today/week)"},
		)
	}
	return false
}

func (m *Model) startAction(action menuAction, prompts ...prompt) {
	m.mode = modePrompt
	m.action = action
	m.prompts = prompts
	m.values = map[string]string{}
	m.input = ""
	m.setStatus("Esc cancels", false)
}

func (m *Model) updatePromptMode(msg tea.KeyMsg) {
	switch msg.String() {
	case "ctrl+c", "esc":
		m.resetToMenu()
		m.setStatus("Cancelled", false)
		return
	case "enter":
		m.captureInput()
		return
	}

	switch msg.Type {
	case tea.KeyBackspace, tea.KeyCtrlH:
		m.input = trimLastRune(m.input)
	case tea.KeySpace:
		m.input += " "
	case tea.KeyRunes:
		m.input += string(msg.Runes)
	}
}

func (m *Model) captureInput() {
	current := m.prompts[0]
	m.values[current.key] = strings.TrimSpace(m.input)
	m.input = ""
	m.prompts = m.prompts[1:]

	// The filter action grows a second prompt when filtering by status.
	if m.action == actionFilter && current.key == "by" &&
		strings.EqualFold(m.values["by"], "status") {
		m.prompts = append(m.prompts, prompt{"status", "Status (Pending/Completed)"})
	}

	if len(m.prompts) == 0 {
		m.runAction()
	}
}

func (m *Model) resetToMenu() {
	m.mode = modeMenu
	m.action = actionNone
	m.prompts = nil
	m.values = nil
	m.input = ""
}

func (m *Model) runAction() {
	action := m.action
	values := m.values
	m.resetToMenu()

	switch action {
	case actionAdd:
		task, err := m.svc.Add(values["title"], values["priority"], values["due"])
		if err != nil {
			m.setStatus("Add failed: "+err.Error(), true)
			return
		}
		m.output = RenderTable([]model.Task{task}, m.tableWidth())
		m.setStatus("Task added: "+task.ID, false)
	case actionView:
		m.runView(values["scope"])
	case actionUpdate:
		fields := app.Fields{}
		if v := values["title"]; v != "" {
			fields.Title = &v
		}
		if v := values["priority"]; v != "" {
			fields.Priority = &v
		}
		if v := values["due"]; v != "" {
			fields.DueDate = &v
		}
		task, err := m.svc.Update(values["id"], fields)
		if err != nil {
			m.setStatus("Update failed: "+err.Error(), true)
			return
		}
		m.output = RenderTable([]model.Task{task}, m.tableWidth())
		m.setStatus("Task updated", false)
	case actionComplete:
		task, err := m.svc.Complete(values["id"])
		if err != nil {
			m.setStatus("Complete failed: "+err.Error(), true)
			return
		}
		m.output = RenderTable([]model.Task{task}, m.tableWidth())
		m.setStatus("Task marked as complete", false)
	case actionDelete:
		if err := m.svc.Delete(values["id"]); err != nil {
			m.setStatus("Delete failed: "+err.Error(), true)
			return
		}
		m.setStatus("Task deleted", false)
		m.output = ""
	case actionFilter:
		m.runFilter(values)
	}
}

func (m *Model) runView(scope string) {
	var (
		tasks []model.Task
		err   error
	)
	switch strings.ToLower(scope) {
	case "", "all":
		tasks = m.svc.Tasks()
	case "pending":
		tasks, err = m.svc.Filter(model.Criteria{Status: model.StatusPending})
	case "completed":
		tasks, err = m.svc.Filter(model.Criteria{Status: model.StatusCompleted})
	default:
		m.setStatus(fmt.Sprintf("Unknown view %q (use all, pending, or completed)", scope), true)
		return
	}
	if err != nil {
		m.setStatus("View failed: "+err.Error(), true)
		return
	}
	m.showTasks(tasks)
}

func (m *Model) runFilter(values map[string]string) {
	criteria := model.Criteria{}
	switch strings.ToLower(values["by"]) {
	case "status":
		status, err := model.ParseStatus(values["status"])
		if err != nil {
			m.setStatus("Filter failed: "+err.Error(), true)
			return
		}
		criteria.Status = status
	case "today":
		criteria.Due = model.DueToday
	case "week":
		criteria.Due = model.DueThisWeek
	default:
		m.setStatus(fmt.Sprintf("Unknown filter %q (use status, today, or week)", values["by"]), true)
		return
	}

	tasks, err := m.svc.Filter(criteria)
	if err != nil {
		m.setStatus("Filter failed: "+err.Error(), true)
		return
	}
	m.showTasks(tasks)
}

func (m *Model) showTasks(tasks []model.Task) {
	if len(tasks) == 0 {
		m.output = lipgloss.NewStyle().Foreground(lipgloss.Color("244")).Render("No tasks available.")
		m.setStatus("Ready", false)
		return
	}
	m.output = RenderTable(tasks, m.tableWidth())
	m.setStatus(fmt.Sprintf("%d task(s)", len(tasks)), false)
}

func (m *Model) tableWidth() int {
	if m.width > 0 {
		return m.width
	}
	return 100
}

func (m *Model) View() string {
	title := lipgloss.NewStyle().Bold(true).Render("TaskForge")
	sub := lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Render("  local task tracker")
	header := lipgloss.JoinHorizontal(lipgloss.Left, title, sub)

	parts := []string{header, ""}

	if m.output != "" {
		parts = append(parts, m.output, "")
	}

	if m.mode == modePrompt {
		parts = append(parts, m.renderPrompt())
	} else {
		parts = append(parts, m.renderMenu())
	}

	statusStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("70"))
	if m.statusErr {
		statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	}
	parts = append(parts, "", statusStyle.Render(m.status))

	return strings.Join(parts, "\n") + "\n"
}

func (m *Model) renderMenu() string {
	entry := lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	lines := []string{
		entry.Render("1. Add Task"),
		entry.Render("2. View Tasks"),
		entry.Render("3. Update Task"),
		entry.Render("4. Mark Task as Complete"),
		entry.Render("5. Delete Task"),
		entry.Render("6. Filter Tasks"),
		entry.Render("7. Exit"),
		"",
		lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Render("Press 1-7 to choose"),
	}
	return strings.Join(lines, "\n")
}

func (m *Model) renderPrompt() string {
	current := m.prompts[0]
	return lipgloss.NewStyle().Foreground(lipgloss.Color("220")).
		Render(current.label + ": " + m.input + "▌")
}

func (m *Model) setStatus(text string, isErr bool) {
	m.status = text
	m.statusErr = isErr
}

const (
	colID       = 36
	colPriority = 8
	colDue      = 10
	colStatus   = 9
	minTitle    = 12
)

// RenderTable renders tasks as a fixed-column table: ID, Title, Priority,
// Due, Status. Titles are truncated to fit the given width.
func RenderTable(tasks []model.Task, width int) string {
	titleW := titleWidth(width)

	headerStyle := lipgloss.NewStyle().Bold(true)
	header := fmt.Sprintf("%-*s  %-*s  %-*s  %-*s  %-*s",
		colID, "ID", titleW, "Title", colPriority, "Priority", colDue, "Due", colStatus, "Status")

	lines := make([]string, 0, len(tasks)+2)
	lines = append(lines, headerStyle.Render(header))
	lines = append(lines, lipgloss.NewStyle().Foreground(lipgloss.Color("240")).
		Render(strings.Repeat("─", utf8.RuneCountInString(header))))

	for _, t := range tasks {
		row := fmt.Sprintf("%-*s  %-*s  %-*s  %-*s  %-*s",
			colID, t.ID,
			titleW, truncateRunes(t.Title, titleW),
			colPriority, string(t.Priority),
			colDue, t.DueDate.String(),
			colStatus, string(t.Status()))

		style := lipgloss.NewStyle()
		if t.Completed {
			style = style.Faint(true)
		} else {
			style = style.Foreground(priorityColor(t.Priority))
		}
		lines = append(lines, style.Render(row))
	}
	return strings.Join(lines, "\n")
}

// titleWidth computes the title column width for a terminal width, never
// dropping below a readable minimum.
func titleWidth(width int) int {
	fixed := colID + colPriority + colDue + colStatus + 8 // column gaps
	w := width - fixed
	if w < minTitle {
		return minTitle
	}
	return w
}

func priorityColor(p model.Priority) lipgloss.Color {
	switch p {
	case model.PriorityHigh:
		return lipgloss.Color("203")
	case model.PriorityMedium:
		return lipgloss.Color("220")
	case model.PriorityLow:
		return lipgloss.Color("114")
	default:
		return lipgloss.Color("7")
	}
}

func truncateRunes(s string, max int) string {
	if max <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	if max <= 1 {
		return "…"
	}
	r := []rune(s)
	return string(r[:max-1]) + "…"
}

func trimLastRune(s string) string {
	if s == "" {
		return s
	}
	_, size := utf8.DecodeLastRuneInString(s)
	return s[:len(s)-size]
}
