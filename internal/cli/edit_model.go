package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/alexanderramin/flowdesk/internal/autosave"
	"github.com/alexanderramin/flowdesk/internal/cli/formatter"
	"github.com/alexanderramin/flowdesk/internal/domain"
	"github.com/alexanderramin/flowdesk/internal/editor"
	"github.com/alexanderramin/flowdesk/internal/flowchart"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
)

type editKeyMap struct {
	Up       key.Binding
	Down     key.Binding
	Collapse key.Binding
	AddPhase key.Binding
	AddTask  key.Binding
	Add      key.Binding
	Rename   key.Binding
	Status   key.Binding
	Customer key.Binding
	ShiftUp  key.Binding
	ShiftDn  key.Binding
	Detach   key.Binding
	Delete   key.Binding
	Save     key.Binding
	Quit     key.Binding
}

func defaultEditKeys() editKeyMap {
	return editKeyMap{
		Up:       key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		Down:     key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		Collapse: key.NewBinding(key.WithKeys("enter", " "), key.WithHelp("enter", "fold")),
		AddPhase: key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "phase")),
		AddTask:  key.NewBinding(key.WithKeys("t"), key.WithHelp("t", "task")),
		Add:      key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "add…")),
		Rename:   key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "rename")),
		Status:   key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "status")),
		Customer: key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "customer")),
		ShiftUp:  key.NewBinding(key.WithKeys("K"), key.WithHelp("K", "shift up")),
		ShiftDn:  key.NewBinding(key.WithKeys("J"), key.WithHelp("J", "shift down")),
		Detach:   key.NewBinding(key.WithKeys("u"), key.WithHelp("u", "detach")),
		Delete:   key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "delete")),
		Save:     key.NewBinding(key.WithKeys("s", "ctrl+s"), key.WithHelp("s", "save")),
		Quit:     key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k editKeyMap) readOnly() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.Collapse, k.Quit}
}

func (k editKeyMap) all() []key.Binding {
	return []key.Binding{
		k.Up, k.Down, k.Collapse, k.AddPhase, k.AddTask, k.Add, k.Rename, k.Status,
		k.Customer, k.ShiftUp, k.ShiftDn, k.Detach, k.Delete, k.Save, k.Quit,
	}
}

// statusCycle is the order the status key steps through.
var statusCycle = []domain.Status{
	domain.StatusNotStarted, domain.StatusPlanning, domain.StatusInProgress, domain.StatusDone,
}

type savedMsg struct{ err error }

type turnEndedMsg struct{}

// editModel is the interactive list view of one flowchart.
type editModel struct {
	ctx    context.Context
	editor *editor.Editor
	keys   editKeyMap

	rows   []flowchart.Row
	cursor int

	form     *huh.Form
	formDone func() tea.Cmd

	flash    string
	flashErr bool
	width    int
	height   int
	quitting bool
}

func newEditModel(ctx context.Context, e *editor.Editor) editModel {
	m := editModel{ctx: ctx, editor: e, keys: defaultEditKeys()}
	m.refresh()
	return m
}

func (m editModel) Init() tea.Cmd {
	return nil
}

func (m *editModel) refresh() {
	m.rows = m.editor.ListView()
	if m.cursor >= len(m.rows) {
		m.cursor = len(m.rows) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

// selectID moves the cursor to the row holding id, if it is visible.
func (m *editModel) selectID(id string) {
	for i, r := range m.rows {
		if r.Node.ID == id {
			m.cursor = i
			return
		}
	}
}

func (m *editModel) selected() (domain.Node, bool) {
	if len(m.rows) == 0 {
		return domain.Node{}, false
	}
	return m.rows[m.cursor].Node, true
}

func (m *editModel) setFlash(text string, err error) {
	if err != nil {
		m.flash, m.flashErr = err.Error(), true
		return
	}
	m.flash, m.flashErr = text, false
}

// endTurn runs any save the last gesture scheduled.
func (m editModel) endTurn() tea.Cmd {
	return func() tea.Msg {
		m.editor.EndTurn(m.ctx)
		return turnEndedMsg{}
	}
}

func (m editModel) save() tea.Cmd {
	return func() tea.Msg {
		return savedMsg{err: m.editor.Save(m.ctx)}
	}
}

func (m editModel) startForm(form *huh.Form, done func() tea.Cmd) (tea.Model, tea.Cmd) {
	m.form = form
	m.formDone = done
	return m, form.Init()
}

func (m editModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		return m, nil
	case savedMsg:
		if msg.err != nil && !errors.Is(msg.err, autosave.ErrSaveInFlight) {
			m.setFlash("", fmt.Errorf("save failed: %w", msg.err))
		} else if msg.err == nil {
			m.setFlash("Saved.", nil)
		}
		return m, nil
	case turnEndedMsg:
		return m, nil
	case addNodeMsg:
		return m.add(msg.nodeType, msg.label)
	case renameMsg:
		err := m.editor.UpdateNode(msg.id, flowchart.Delta{Label: &msg.label})
		m.setFlash("Renamed.", err)
		m.refresh()
		return m, m.endTurn()
	case quitMsg:
		m.quitting = true
		return m, tea.Quit
	}

	if m.form != nil {
		return m.updateForm(msg)
	}
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		return m.handleKey(keyMsg)
	}
	return m, nil
}

func (m editModel) updateForm(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok && keyMsg.Type == tea.KeyEsc {
		m.form, m.formDone = nil, nil
		m.setFlash("Cancelled.", nil)
		return m, nil
	}

	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}
	if m.form.State != huh.StateCompleted {
		return m, cmd
	}

	done := m.formDone
	m.form, m.formDone = nil, nil
	if done == nil {
		return m, cmd
	}
	return m, tea.Batch(cmd, done())
}

func (m editModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m.quit()
	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
		return m, nil
	case key.Matches(msg, m.keys.Down):
		if m.cursor < len(m.rows)-1 {
			m.cursor++
		}
		return m, nil
	case key.Matches(msg, m.keys.Collapse):
		if n, ok := m.selected(); ok && m.rows[m.cursor].HasChildren {
			m.editor.ToggleCollapsed(n.ID)
			m.refresh()
			m.selectID(n.ID)
		}
		return m, nil
	}

	if m.editor.ReadOnly() {
		m.setFlash("", domain.ErrReadOnly)
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.AddPhase):
		return m.add(domain.NodePhase, "")
	case key.Matches(msg, m.keys.AddTask):
		return m.add(domain.NodeTask, "")
	case key.Matches(msg, m.keys.Add):
		var nodeType, label string
		nodeType = string(domain.NodeTask)
		return m.startForm(addNodeForm(&nodeType, &label), func() tea.Cmd {
			return func() tea.Msg { return addNodeMsg{nodeType: domain.NodeType(nodeType), label: label} }
		})
	case key.Matches(msg, m.keys.Save):
		m.setFlash("Saving…", nil)
		return m, m.save()
	}

	n, ok := m.selected()
	if !ok {
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Rename):
		if n.Type == domain.NodeArrow {
			m.setFlash("Arrows have no label.", nil)
			return m, nil
		}
		label := n.Label
		id := n.ID
		return m.startForm(labelForm("Label", &label), func() tea.Cmd {
			return func() tea.Msg { return renameMsg{id: id, label: label} }
		})
	case key.Matches(msg, m.keys.Status):
		if !n.Type.IsContainer() {
			return m, nil
		}
		next := nextStatus(n.Status)
		err := m.editor.UpdateNode(n.ID, flowchart.Delta{Status: &next})
		m.setFlash(fmt.Sprintf("Status: %s", next), err)
	case key.Matches(msg, m.keys.Customer):
		show := !n.ShowForCustomer
		err := m.editor.UpdateNode(n.ID, flowchart.Delta{ShowForCustomer: &show})
		if show {
			m.setFlash("Visible to customers.", err)
		} else {
			m.setFlash("Hidden from customers.", err)
		}
	case key.Matches(msg, m.keys.ShiftUp), key.Matches(msg, m.keys.ShiftDn):
		dir := flowchart.Down
		if key.Matches(msg, m.keys.ShiftUp) {
			dir = flowchart.Up
		}
		moved, err := m.editor.Shift(n.ID, dir)
		if err == nil && !moved {
			m.setFlash("Already at the end.", nil)
		} else {
			m.setFlash("", err)
		}
	case key.Matches(msg, m.keys.Detach):
		m.setFlash("Moved to the top level.", m.editor.Detach(n.ID))
	case key.Matches(msg, m.keys.Delete):
		m.setFlash("Deleted "+labelOf(n)+".", m.editor.DeleteNode(n.ID))
	default:
		return m, nil
	}

	m.refresh()
	m.selectID(n.ID)
	return m, m.endTurn()
}

type addNodeMsg struct {
	nodeType domain.NodeType
	label    string
}

type renameMsg struct {
	id    string
	label string
}

func (m editModel) add(t domain.NodeType, label string) (tea.Model, tea.Cmd) {
	var delta flowchart.Delta
	if label = strings.TrimSpace(label); label != "" {
		delta.Label = &label
	}
	n, err := m.editor.AddNode(t, delta)
	if err != nil {
		m.setFlash("", err)
		return m, nil
	}
	m.setFlash("Added "+labelOf(n)+".", nil)
	m.refresh()
	m.selectID(n.ID)
	return m, m.endTurn()
}

func (m editModel) quit() (tea.Model, tea.Cmd) {
	if !m.editor.Dirty() || m.editor.ReadOnly() {
		m.quitting = true
		return m, tea.Quit
	}
	var confirmed bool
	return m.startForm(confirmForm("Unsaved changes will be saved on exit. Quit?", &confirmed), func() tea.Cmd {
		if !confirmed {
			return nil
		}
		return func() tea.Msg { return quitMsg{} }
	})
}

type quitMsg struct{}

func nextStatus(s domain.Status) domain.Status {
	for i, st := range statusCycle {
		if st == s {
			return statusCycle[(i+1)%len(statusCycle)]
		}
	}
	return statusCycle[0]
}

func labelOf(n domain.Node) string {
	if n.Label != "" {
		return fmt.Sprintf("%q", n.Label)
	}
	return string(n.Type) + " " + n.ID
}

func (m editModel) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(m.header() + "\n\n")

	if len(m.rows) == 0 {
		b.WriteString(formatter.Dim("Empty flowchart. Press p to add a phase or t to add a task.") + "\n")
	}
	var section flowchart.Section
	for i, r := range m.rows {
		if r.Section != section {
			section = r.Section
			if i > 0 {
				b.WriteString("\n")
			}
			b.WriteString(formatter.Bold(sectionTitle(section)) + "\n")
		}
		b.WriteString(m.renderRow(i, r) + "\n")
	}

	if m.form != nil {
		b.WriteString("\n" + m.form.View() + "\n")
	}
	if m.flash != "" {
		style := formatter.StyleDim
		if m.flashErr {
			style = formatter.StyleRed
		}
		b.WriteString("\n" + style.Render(m.flash) + "\n")
	}
	b.WriteString("\n" + m.helpLine())
	return b.String()
}

func (m editModel) header() string {
	title := formatter.StyleHeader.Render(m.editor.Name())
	var state string
	switch {
	case m.editor.ReadOnly():
		state = formatter.StyleBlue.Render("read-only")
	case m.editor.SaveState() == autosave.Saving:
		state = formatter.StyleYellow.Render("saving…")
	case m.editor.Dirty():
		state = formatter.StyleYellow.Render("● unsaved")
	default:
		state = formatter.StyleGreen.Render("✔ saved")
	}
	return title + "  " + state
}

func (m editModel) renderRow(i int, r flowchart.Row) string {
	cursor := "  "
	if i == m.cursor {
		cursor = formatter.StyleHeader.Render("▸ ")
	}
	fold := "  "
	if r.HasChildren {
		fold = "▾ "
		if r.Collapsed {
			fold = "▸ "
		}
	}
	line := cursor + strings.Repeat("  ", r.Depth) + fold + formatter.RowTitle(r.Node)
	if pill := formatter.StatusPill(r.Node.Status, r.Node.CustomStatus); pill != "" {
		line += "  " + pill
	}
	line += "  " + formatter.TypeBadge(r.Node.Type)
	if !r.Node.ShowForCustomer {
		line += formatter.Dim("  (hidden from customer)")
	}
	if i == m.cursor {
		return formatter.StyleBold.Render(line)
	}
	return line
}

func (m editModel) helpLine() string {
	bindings := m.keys.all()
	if m.editor.ReadOnly() {
		bindings = m.keys.readOnly()
	}
	parts := make([]string, 0, len(bindings))
	for _, kb := range bindings {
		h := kb.Help()
		parts = append(parts, h.Key+" "+formatter.Dim(h.Desc))
	}
	return strings.Join(parts, formatter.Dim(" · "))
}

func sectionTitle(s flowchart.Section) string {
	switch s {
	case flowchart.SectionPhases:
		return "Phases"
	case flowchart.SectionUnassignedTasks:
		return "Unassigned tasks"
	default:
		return "Other nodes"
	}
}
