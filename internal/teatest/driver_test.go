package teatest

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
)

type counter struct {
	n      int
	keys   string
	width  int
	closed bool
}

type bumpMsg struct{}

func (c counter) Init() tea.Cmd { return func() tea.Msg { return bumpMsg{} } }

func (c counter) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		c.width = msg.Width
	case bumpMsg:
		c.n++
	case tea.KeyMsg:
		switch msg.String() {
		case "q":
			return c, tea.Quit
		case "enter":
			return c, tea.Batch(func() tea.Msg { return bumpMsg{} }, func() tea.Msg { return bumpMsg{} })
		default:
			c.keys += msg.String()
		}
	case tea.QuitMsg:
		c.closed = true
	}
	return c, nil
}

func (c counter) View() string { return "\x1b[1mcount\x1b[0m " + c.keys }

func TestDriver_DrainsInitAndBatches(t *testing.T) {
	d := New(t, counter{}, WithSize(80, 24))
	d.DrainInit()
	assert.Equal(t, 1, d.Model.(counter).n)
	assert.Equal(t, 80, d.Model.(counter).width)

	d.PressEnter()
	assert.Equal(t, 3, d.Model.(counter).n)
}

func TestDriver_PressAndView(t *testing.T) {
	d := New(t, counter{})
	d.Press("a", "b", "up")
	d.Type("cd")
	assert.True(t, d.ViewContains("count abupcd"))
	assert.NotContains(t, d.PlainView(), "\x1b")
}

func TestDriver_RecordsQuit(t *testing.T) {
	d := New(t, counter{})
	d.Press("q")
	assert.True(t, d.Quitting)
	assert.True(t, d.Model.(counter).closed)

	d.Press("x")
	assert.Empty(t, d.Model.(counter).keys, "input after quit is ignored")
}
