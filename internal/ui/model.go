package ui

import (
	"context"
	"evacuation-dashboard/internal/controller"
	"evacuation-dashboard/internal/domain"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// PageSize is the number of plan cards shown at once in the list view.
const PageSize = 3

type mode int

const (
	modeList mode = iota
	modeSearch
	modeDetail
	modeShelter
	modeCreate
	modeConfirmDelete
)

const (
	fieldName = iota
	fieldArea
	fieldCapacity
	fieldCount
)

type loadedMsg struct{ err error }

type opDoneMsg struct {
	op  string
	err error
}

// Model is the bubbletea program state. Plan data lives in the controller;
// the model only tracks navigation and input widgets.
type Model struct {
	ctx    context.Context
	ctrl   *controller.Controller
	alerts *AlertQueue
	r      *Renderer

	mode     mode
	prevMode mode
	cursor   int
	shelter  int
	pending  string // plan id awaiting delete confirmation

	search  textinput.Model
	form    [fieldCount]textinput.Model
	focus   int
	spinner spinner.Model

	busy    bool
	started bool
	width   int
}

func NewModel(ctx context.Context, ctrl *controller.Controller, alerts *AlertQueue, r *Renderer) Model {
	if r == nil {
		r = NewRenderer()
	}
	if alerts == nil {
		alerts = &AlertQueue{}
	}

	search := textinput.New()
	search.Prompt = ""
	search.Placeholder = "Search evacuation plans..."
	search.CharLimit = 120

	var form [fieldCount]textinput.Model
	placeholders := [fieldCount]string{"Plan Name", "Coverage Area", "Total Capacity"}
	for i := range form {
		form[i] = textinput.New()
		form[i].Placeholder = placeholders[i]
		form[i].CharLimit = 120
	}
	form[fieldCapacity].CharLimit = 12

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(Blue)

	return Model{
		ctx:     ctx,
		ctrl:    ctrl,
		alerts:  alerts,
		r:       r,
		search:  search,
		form:    form,
		spinner: sp,
		busy:    true,
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.load())
}

func (m Model) load() tea.Cmd {
	return func() tea.Msg {
		return loadedMsg{err: m.ctrl.Load(m.ctx)}
	}
}

// run executes a controller operation off the UI goroutine. Failures are
// already queued as alerts by the controller's notifier.
func (m Model) run(op string, fn func(ctx context.Context) error) tea.Cmd {
	return func() tea.Msg {
		return opDoneMsg{op: op, err: fn(m.ctx)}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case spinner.TickMsg:
		if !m.busy {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case loadedMsg:
		m.busy = false
		m.started = true
		m.clamp()
		return m, nil

	case opDoneMsg:
		m.busy = false
		if msg.op == "create" && msg.err == nil {
			m.mode = modeList
			m.resetForm()
		}
		if m.mode == modeDetail || m.mode == modeShelter {
			if _, ok := m.ctrl.Selected(); !ok {
				m.mode = modeList
			}
		}
		m.clamp()
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		// An alert blocks input until acknowledged.
		if m.alerts.Len() > 0 {
			m.alerts.Pop()
			return m, nil
		}
		switch m.mode {
		case modeSearch:
			return m.updateSearch(msg)
		case modeDetail:
			return m.updateDetail(msg)
		case modeShelter:
			if msg.String() == "esc" || msg.String() == "q" {
				m.mode = modeDetail
			}
			return m, nil
		case modeCreate:
			return m.updateCreate(msg)
		case modeConfirmDelete:
			return m.updateConfirm(msg)
		default:
			return m.updateList(msg)
		}
	}
	return m, nil
}

func (m *Model) clamp() {
	n := len(m.ctrl.Filtered())
	if m.cursor >= n {
		m.cursor = n - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
	if p, ok := m.ctrl.Selected(); ok && m.shelter >= len(p.Shelters) {
		m.shelter = 0
	}
}

func (m Model) current() (domain.EvacuationPlan, bool) {
	plans := m.ctrl.Filtered()
	if m.cursor < 0 || m.cursor >= len(plans) {
		return domain.EvacuationPlan{}, false
	}
	return plans[m.cursor], true
}

func (m Model) toggle(id string) (tea.Model, tea.Cmd) {
	m.busy = true
	return m, tea.Batch(m.spinner.Tick, m.run("toggle", func(ctx context.Context) error {
		return m.ctrl.Toggle(ctx, id)
	}))
}

func (m Model) askDelete(id string) (tea.Model, tea.Cmd) {
	m.pending = id
	m.prevMode = m.mode
	m.mode = modeConfirmDelete
	return m, nil
}

func (m Model) updateList(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q":
		return m, tea.Quit
	case "/":
		m.mode = modeSearch
		cmd := m.search.Focus()
		return m, cmd
	case "f":
		m.ctrl.SetFilter(m.ctrl.Snapshot().Filter.Next())
		m.cursor = 0
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.ctrl.Filtered())-1 {
			m.cursor++
		}
	case "enter":
		if p, ok := m.current(); ok {
			m.ctrl.Select(p.ID)
			m.shelter = 0
			m.mode = modeDetail
		}
	case "a":
		if p, ok := m.current(); ok {
			return m.toggle(p.ID)
		}
	case "d":
		if p, ok := m.current(); ok {
			return m.askDelete(p.ID)
		}
	case "n":
		m.mode = modeCreate
		cmd := m.fillForm(m.ctrl.Draft())
		return m, cmd
	case "r":
		m.busy = true
		return m, tea.Batch(m.spinner.Tick, m.load())
	}
	return m, nil
}

func (m Model) updateSearch(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter", "esc":
		m.search.Blur()
		m.mode = modeList
		return m, nil
	}
	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	m.ctrl.SetSearch(m.search.Value())
	m.cursor = 0
	return m, cmd
}

func (m Model) updateDetail(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	p, ok := m.ctrl.Selected()
	if !ok {
		m.mode = modeList
		return m, nil
	}
	switch msg.String() {
	case "esc", "q":
		m.ctrl.ClearSelection()
		m.mode = modeList
	case "up", "k":
		if m.shelter > 0 {
			m.shelter--
		}
	case "down", "j":
		if m.shelter < len(p.Shelters)-1 {
			m.shelter++
		}
	case "enter", "s":
		if m.shelter < len(p.Shelters) {
			m.mode = modeShelter
		}
	case "a":
		return m.toggle(p.ID)
	case "d":
		return m.askDelete(p.ID)
	}
	return m, nil
}

func (m Model) updateConfirm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "y", "Y":
		id := m.pending
		m.pending = ""
		m.mode = m.prevMode
		m.busy = true
		yes := func(domain.EvacuationPlan) bool { return true }
		return m, tea.Batch(m.spinner.Tick, m.run("delete", func(ctx context.Context) error {
			return m.ctrl.Delete(ctx, id, yes)
		}))
	case "n", "N", "esc":
		m.pending = ""
		m.mode = m.prevMode
	}
	return m, nil
}

func (m Model) updateCreate(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.blurForm()
		m.mode = modeList
		return m, nil
	case "tab", "down":
		cmd := m.focusField((m.focus + 1) % fieldCount)
		return m, cmd
	case "shift+tab", "up":
		cmd := m.focusField((m.focus + fieldCount - 1) % fieldCount)
		return m, cmd
	case "ctrl+s":
		return m.submit()
	case "enter":
		if m.focus == fieldCapacity {
			return m.submit()
		}
		cmd := m.focusField(m.focus + 1)
		return m, cmd
	}

	var cmd tea.Cmd
	m.form[m.focus], cmd = m.form[m.focus].Update(msg)
	m.ctrl.SetDraft(m.draft())
	return m, cmd
}

func (m Model) submit() (tea.Model, tea.Cmd) {
	m.ctrl.SetDraft(m.draft())
	m.busy = true
	return m, tea.Batch(m.spinner.Tick, m.run("create", m.ctrl.Create))
}

// draft reads the form. A capacity that does not parse as an integer is 0.
func (m Model) draft() domain.PlanDraft {
	capacity, err := strconv.Atoi(strings.TrimSpace(m.form[fieldCapacity].Value()))
	if err != nil {
		capacity = 0
	}
	return domain.PlanDraft{
		Name:     m.form[fieldName].Value(),
		Area:     m.form[fieldArea].Value(),
		Capacity: capacity,
	}
}

func (m *Model) fillForm(d domain.PlanDraft) tea.Cmd {
	m.form[fieldName].SetValue(d.Name)
	m.form[fieldArea].SetValue(d.Area)
	if d.Capacity != 0 {
		m.form[fieldCapacity].SetValue(strconv.Itoa(d.Capacity))
	} else {
		m.form[fieldCapacity].SetValue("")
	}
	return m.focusField(fieldName)
}

func (m *Model) resetForm() {
	for i := range m.form {
		m.form[i].SetValue("")
	}
	m.blurForm()
}

func (m *Model) blurForm() {
	for i := range m.form {
		m.form[i].Blur()
	}
}

func (m *Model) focusField(i int) tea.Cmd {
	m.blurForm()
	m.focus = i
	return m.form[i].Focus()
}

func (m Model) View() string {
	if !m.started && m.busy {
		return m.spinner.View() + " Loading evacuation plans..."
	}

	var body string
	switch m.mode {
	case modeDetail:
		if p, ok := m.ctrl.Selected(); ok {
			body = m.r.PlanDetail(p, m.shelter) + "\n" + m.help("↑/↓ shelter • enter shelter details • a toggle • d delete • esc back")
		}
	case modeShelter:
		if p, ok := m.ctrl.Selected(); ok && m.shelter < len(p.Shelters) {
			body = m.r.ShelterDetail(p.Shelters[m.shelter]) + "\n" + m.help("esc back")
		}
	case modeCreate:
		body = m.viewForm()
	case modeConfirmDelete:
		body = m.viewConfirm()
	default:
		body = m.viewList()
	}

	if m.busy {
		body = m.spinner.View() + " Working...\n" + body
	}
	if a, ok := m.alerts.Peek(); ok {
		alert := m.r.Styles().Alert.Render(fmt.Sprintf("Error: %s failed\n%s\n\npress any key", a.Op, a.Message))
		body = alert + "\n" + body
	}
	return body
}

func (m Model) help(s string) string {
	return m.r.Styles().Help.Render(s)
}

func (m Model) viewList() string {
	st := m.ctrl.Snapshot()
	plans := domain.FilterPlans(st.Plans, st.Search, st.Filter)

	searchView := st.Search
	if m.mode == modeSearch {
		searchView = m.search.View()
	}

	parts := []string{m.r.Header(), m.r.Summary(domain.Summarize(st.Plans)), m.r.FilterBar(searchView, st.Filter)}
	if len(plans) == 0 {
		parts = append(parts, m.r.Empty())
	} else {
		start := (m.cursor / PageSize) * PageSize
		end := min(start+PageSize, len(plans))
		for i := start; i < end; i++ {
			parts = append(parts, m.r.PlanCard(plans[i], i == m.cursor))
		}
		parts = append(parts, m.help(fmt.Sprintf("plan %d of %d", m.cursor+1, len(plans))))
	}
	parts = append(parts, m.help("/ search • f filter • ↑/↓ select • enter details • a toggle • d delete • n new plan • r reload • q quit"))
	return strings.Join(parts, "\n")
}

func (m Model) viewForm() string {
	labels := [fieldCount]string{"Plan Name", "Coverage Area", "Total Capacity"}
	var sb strings.Builder
	sb.WriteString(m.r.Styles().Title.Render("Create New Evacuation Plan") + "\n\n")
	for i := range m.form {
		sb.WriteString(m.r.Styles().Label.Render(labels[i]) + "\n")
		sb.WriteString(m.form[i].View() + "\n\n")
	}
	sb.WriteString(m.help("tab next field • ctrl+s create plan • esc cancel"))
	return m.r.Styles().Card.Render(sb.String())
}

func (m Model) viewConfirm() string {
	name := m.pending
	for _, p := range m.ctrl.Plans() {
		if p.ID == m.pending {
			name = p.Name
			break
		}
	}
	return m.r.Styles().Alert.Render(
		fmt.Sprintf("Are you sure you want to delete %q?\n\n", name) + m.help("y delete • n cancel"))
}
