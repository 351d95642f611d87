// SPDX-License-Identifier: MIT
package tui

import (
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"visaudio/internal/audio"
)

func catalog() audio.DeviceCatalog {
	return audio.CatalogFunc(func() ([]audio.DeviceDescriptor, error) {
		return []audio.DeviceDescriptor{
			{ID: 0, Name: "Built-in Mic", MaxInputChannels: 1, DefaultSampleRate: 44100},
			{ID: 1, Name: "Speakers", MaxOutputChannels: 2, DefaultSampleRate: 48000},
			{ID: 2, Name: "USB Interface", MaxInputChannels: 2, MaxOutputChannels: 2, DefaultSampleRate: 48000},
		}, nil
	})
}

func keyPress(s string) tea.KeyMsg {
	switch s {
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case "up":
		return tea.KeyMsg{Type: tea.KeyUp}
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	default:
		return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
	}
}

// load runs Init's command and feeds the result plus a window size.
func load(t *testing.T, m DeviceListModel) DeviceListModel {
	t.Helper()
	cmd := m.Init()
	require.NotNil(t, cmd)
	model, _ := m.Update(cmd())
	model, _ = model.Update(tea.WindowSizeMsg{Width: 80, Height: 40})
	return model.(DeviceListModel)
}

func press(m DeviceListModel, keys ...string) (DeviceListModel, tea.Cmd) {
	var cmd tea.Cmd
	var model tea.Model = m
	for _, k := range keys {
		model, cmd = model.Update(keyPress(k))
	}
	return model.(DeviceListModel), cmd
}

func TestDeviceListPreselectsCurrent(t *testing.T) {
	m := load(t, NewDeviceListModel(catalog(), 2))
	assert.Equal(t, 2, m.selectedIndex)
	assert.Contains(t, m.View(), "Audio Devices")
	assert.Contains(t, m.renderDevices(), "* [2] USB Interface (Input/Output)")
}

func TestDeviceListNavigationIsClamped(t *testing.T) {
	m := load(t, NewDeviceListModel(catalog(), 0))

	m, _ = press(m, "up")
	assert.Equal(t, 0, m.selectedIndex)

	m, _ = press(m, "down", "j", "down")
	assert.Equal(t, 2, m.selectedIndex)

	m, _ = press(m, "k")
	assert.Equal(t, 1, m.selectedIndex)
}

func TestDeviceDetailAndSelect(t *testing.T) {
	m := load(t, NewDeviceListModel(catalog(), 0))

	m, _ = press(m, "down", "down", "enter")
	require.Equal(t, DetailScreen, m.activeScreen)
	assert.Contains(t, m.View(), "Device Details")
	assert.Contains(t, m.renderDeviceDetail(), "USB Interface")

	m, cmd := press(m, "s")
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())

	id, ok := m.Chosen()
	assert.True(t, ok)
	assert.Equal(t, 2, id)
}

func TestDeviceSelectRejectsOutputOnly(t *testing.T) {
	m := load(t, NewDeviceListModel(catalog(), 0))

	m, _ = press(m, "down", "enter", "s")
	_, ok := m.Chosen()
	assert.False(t, ok)
	assert.Contains(t, m.renderDeviceDetail(), "no input channels")

	m, _ = press(m, "esc")
	assert.Equal(t, ListScreen, m.activeScreen)
	assert.Empty(t, m.status)
}

func TestDeviceListQuit(t *testing.T) {
	m := load(t, NewDeviceListModel(catalog(), 0))
	m, cmd := press(m, "q")
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
	_, ok := m.Chosen()
	assert.False(t, ok)
}

func TestDeviceListCatalogError(t *testing.T) {
	failing := audio.CatalogFunc(func() ([]audio.DeviceDescriptor, error) {
		return nil, errors.New("host error")
	})
	m := load(t, NewDeviceListModel(failing, 0))
	assert.Contains(t, m.View(), "host error")
}

func TestDeviceListEmpty(t *testing.T) {
	empty := audio.CatalogFunc(func() ([]audio.DeviceDescriptor, error) { return nil, nil })
	m := load(t, NewDeviceListModel(empty, 0))
	assert.Contains(t, m.View(), "No audio devices found.")

	m, _ = press(m, "enter")
	assert.Equal(t, ListScreen, m.activeScreen)
}
