// Package picker implements the interactive serial port selector behind
// `espbridge ports --pick`. It shows the enumerated devices, narrows
// them as the user types, and reports the chosen device path.
package picker

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/serial-tools/espbridge/internal/errors"
	"github.com/serial-tools/espbridge/internal/ports"
	"github.com/serial-tools/espbridge/internal/tui/styles"
	"github.com/serial-tools/espbridge/internal/util"
)

// Model is the Bubbletea model for the serial port picker.
type Model struct {
	devices  []ports.Device
	filtered []ports.Device
	index    int
	filter   textinput.Model
	width    int
	height   int
	chosen   *ports.Device
	quitting bool
}

// New creates a picker over the given devices. The filter input starts
// focused so typing immediately narrows the list.
func New(devices []ports.Device) Model {
	ti := textinput.New()
	ti.Placeholder = "type to filter"
	ti.Prompt = "/ "
	ti.CharLimit = 64
	ti.Width = 40
	ti.Focus()

	return Model{
		devices:  devices,
		filtered: devices,
		filter:   ti,
	}
}

func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		// The filter input owns letter keys, so navigation sticks to
		// arrows and control chords
		switch msg.String() {
		case "ctrl+c", "esc":
			m.quitting = true
			return m, tea.Quit

		case "enter":
			if len(m.filtered) > 0 {
				chosen := m.filtered[m.index]
				m.chosen = &chosen
			}
			m.quitting = true
			return m, tea.Quit

		case "up", "ctrl+p":
			m.index--
			if m.index < 0 {
				m.index = len(m.filtered) - 1
			}
			if m.index < 0 {
				m.index = 0
			}
			return m, nil

		case "down", "ctrl+n":
			m.index++
			if m.index >= len(m.filtered) {
				m.index = 0
			}
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.filter, cmd = m.filter.Update(msg)
	m.applyFilter()
	return m, cmd
}

// applyFilter narrows the device list to the current filter text and
// keeps the cursor on a valid row.
func (m *Model) applyFilter() {
	query := strings.ToLower(strings.TrimSpace(m.filter.Value()))
	if query == "" {
		m.filtered = m.devices
	} else {
		filtered := make([]ports.Device, 0, len(m.devices))
		for _, d := range m.devices {
			if deviceMatches(d, query) {
				filtered = append(filtered, d)
			}
		}
		m.filtered = filtered
	}

	if m.index >= len(m.filtered) {
		m.index = len(m.filtered) - 1
	}
	if m.index < 0 {
		m.index = 0
	}
}

// deviceMatches reports whether the device matches a lowercase query.
func deviceMatches(d ports.Device, query string) bool {
	if strings.Contains(strings.ToLower(d.Path), query) {
		return true
	}
	if strings.Contains(strings.ToLower(d.Description), query) {
		return true
	}
	return strings.Contains(strings.ToLower(d.VID+":"+d.PID), query)
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder

	b.WriteString(styles.Title.Render("Select a serial port"))
	b.WriteString("\n")
	b.WriteString(m.filter.View())
	b.WriteString("\n\n")

	if len(m.filtered) == 0 {
		b.WriteString(styles.Muted.Render("no matching devices"))
		b.WriteString("\n")
	}
	for i, d := range m.filtered {
		var row string
		if i == m.index {
			row = styles.PickerItemSelected.Render("> " + d.Label())
		} else {
			row = styles.PickerItem.Render("  " + d.Label())
		}
		if m.width > 0 {
			row = util.TruncateANSI(row, m.width)
		}
		b.WriteString(row)
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(styles.HelpBar.Render(
		styles.HelpKey.Render("↑/↓") + " navigate  " +
			styles.HelpKey.Render("enter") + " select  " +
			styles.HelpKey.Render("esc") + " cancel",
	))

	return b.String()
}

// Choice returns the selected device, or nil if the picker was canceled
// or matched nothing.
func (m Model) Choice() *ports.Device {
	return m.chosen
}

// Run shows the picker and returns the chosen device. A nil device with
// a nil error means the user canceled.
func Run(devices []ports.Device) (*ports.Device, error) {
	p := tea.NewProgram(New(devices), tea.WithAltScreen())
	final, err := p.Run()
	if err != nil {
		return nil, errors.Wrap(err, "port picker failed")
	}

	model, ok := final.(Model)
	if !ok {
		return nil, errors.New("unexpected picker model type")
	}
	return model.Choice(), nil
}
