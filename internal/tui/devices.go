// SPDX-License-Identifier: MIT
package tui

import (
	"fmt"
	"strings"

	"visaudio/internal/audio"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFDF5")).
			Background(lipgloss.Color("#25A065")).
			Padding(0, 1).
			Bold(true)

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFDF5"))

	highlightStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#25A065")).
			Bold(true)

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#767676"))

	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F25D94"))
)

var (
	keyQuit   = key.NewBinding(key.WithKeys("q", "ctrl+c"))
	keyUp     = key.NewBinding(key.WithKeys("up", "k"))
	keyDown   = key.NewBinding(key.WithKeys("down", "j"))
	keyEnter  = key.NewBinding(key.WithKeys("enter"))
	keyBack   = key.NewBinding(key.WithKeys("esc"))
	keySelect = key.NewBinding(key.WithKeys("s"))
)

// ScreenType defines which screen is currently active
type ScreenType int

const (
	ListScreen ScreenType = iota
	DetailScreen
)

// DeviceListModel browses the device catalog and lets the user pick the
// input device to write into DEVICE_ID.
type DeviceListModel struct {
	catalog       audio.DeviceCatalog
	current       int // DEVICE_ID in the active configuration
	devices       []audio.DeviceDescriptor
	selectedIndex int
	viewport      viewport.Model
	ready         bool
	err           error
	status        string
	activeScreen  ScreenType

	chosen    int
	hasChosen bool
}

type devicesMsg struct {
	devices []audio.DeviceDescriptor
}

type errMsg struct {
	err error
}

// NewDeviceListModel creates a model over catalog. current is highlighted
// and preselected when present.
func NewDeviceListModel(catalog audio.DeviceCatalog, current int) DeviceListModel {
	return DeviceListModel{
		catalog:      catalog,
		current:      current,
		activeScreen: ListScreen,
	}
}

// Init fetches the device list.
func (m DeviceListModel) Init() tea.Cmd {
	catalog := m.catalog
	return func() tea.Msg {
		devices, err := catalog.Devices()
		if err != nil {
			return errMsg{err}
		}
		return devicesMsg{devices}
	}
}

// Chosen returns the device picked with "s", if any.
func (m DeviceListModel) Chosen() (int, bool) {
	return m.chosen, m.hasChosen
}

func (m DeviceListModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		if !m.ready {
			m.viewport = viewport.New(msg.Width, msg.Height-4)
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = msg.Height - 4
		}
		m.refresh()

	case devicesMsg:
		m.devices = msg.devices
		for i, d := range m.devices {
			if d.ID == m.current {
				m.selectedIndex = i
				break
			}
		}
		m.refresh()

	case errMsg:
		m.err = msg.err

	case tea.KeyMsg:
		if key.Matches(msg, keyQuit) {
			return m, tea.Quit
		}

		switch m.activeScreen {
		case ListScreen:
			switch {
			case key.Matches(msg, keyUp):
				if m.selectedIndex > 0 {
					m.selectedIndex--
				}
			case key.Matches(msg, keyDown):
				if m.selectedIndex < len(m.devices)-1 {
					m.selectedIndex++
				}
			case key.Matches(msg, keyEnter):
				if len(m.devices) > 0 {
					m.activeScreen = DetailScreen
				}
			}
		case DetailScreen:
			switch {
			case key.Matches(msg, keyBack):
				m.activeScreen = ListScreen
				m.status = ""
			case key.Matches(msg, keySelect):
				device := m.devices[m.selectedIndex]
				if device.MaxInputChannels == 0 {
					m.status = fmt.Sprintf("Device %d has no input channels.", device.ID)
					break
				}
				m.chosen, m.hasChosen = device.ID, true
				return m, tea.Quit
			}
		}
		m.refresh()
	}

	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m *DeviceListModel) refresh() {
	if !m.ready {
		return
	}
	if m.activeScreen == DetailScreen {
		m.viewport.SetContent(m.renderDeviceDetail())
	} else {
		m.viewport.SetContent(m.renderDevices())
	}
}

// View renders the UI
func (m DeviceListModel) View() string {
	if m.err != nil {
		return fmt.Sprintf("Error: %v\n\nPress q to quit.", m.err)
	}
	if !m.ready {
		return "Loading devices..."
	}

	var title, help string
	if m.activeScreen == ListScreen {
		title = titleStyle.Render("Audio Devices")
		help = infoStyle.Render("↑/↓: Navigate • Enter: Details • q: Quit")
	} else {
		title = titleStyle.Render("Device Details")
		help = infoStyle.Render("s: Use this device • Esc: Back • q: Quit")
	}

	return fmt.Sprintf("%s\n\n%s\n\n%s", title, m.viewport.View(), help)
}

// renderDevices formats the device list
func (m DeviceListModel) renderDevices() string {
	if len(m.devices) == 0 {
		return "No audio devices found."
	}

	var sb strings.Builder
	for i, device := range m.devices {
		marker := " "
		if device.ID == m.current {
			marker = "*"
		}

		deviceInfo := fmt.Sprintf("%s [%d] %s (%s)\n", marker, device.ID, device.Name, device.Kind())
		deviceInfo += fmt.Sprintf("    Input channels: %d, Default sample rate: %.0f Hz\n",
			device.MaxInputChannels, device.DefaultSampleRate)

		switch {
		case i == m.selectedIndex:
			deviceInfo = highlightStyle.Render(deviceInfo)
		case device.MaxInputChannels == 0:
			deviceInfo = dimStyle.Render(deviceInfo)
		}

		sb.WriteString(deviceInfo)
		sb.WriteString("\n")
	}
	sb.WriteString(dimStyle.Render("* configured DEVICE_ID"))

	return sb.String()
}

// renderDeviceDetail shows every field of the selected device.
func (m DeviceListModel) renderDeviceDetail() string {
	device := m.devices[m.selectedIndex]

	var sb strings.Builder
	fmt.Fprintf(&sb, "%s\n\n", highlightStyle.Render(device.Name))
	fmt.Fprintf(&sb, "  ID:                  %d\n", device.ID)
	fmt.Fprintf(&sb, "  Host API:            %s\n", device.HostAPI)
	fmt.Fprintf(&sb, "  Type:                %s\n", device.Kind())
	fmt.Fprintf(&sb, "  Input channels:      %d\n", device.MaxInputChannels)
	fmt.Fprintf(&sb, "  Output channels:     %d\n", device.MaxOutputChannels)
	fmt.Fprintf(&sb, "  Default sample rate: %.0f Hz\n", device.DefaultSampleRate)
	fmt.Fprintf(&sb, "  Input latency:       %.2fms low, %.2fms high\n",
		device.DefaultLowInputLatency.Seconds()*1000,
		device.DefaultHighInputLatency.Seconds()*1000)

	if m.status != "" {
		fmt.Fprintf(&sb, "\n%s\n", warnStyle.Render(m.status))
	}
	return sb.String()
}

// StartDeviceListUI runs the browser in the alternate screen and returns the
// device the user picked, if any.
func StartDeviceListUI(catalog audio.DeviceCatalog, current int) (int, bool, error) {
	p := tea.NewProgram(
		NewDeviceListModel(catalog, current),
		tea.WithAltScreen(),
	)
	final, err := p.Run()
	if err != nil {
		return 0, false, err
	}
	id, ok := final.(DeviceListModel).Chosen()
	return id, ok, nil
}
