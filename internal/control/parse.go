// SPDX-License-Identifier: MIT
package control

import (
	"encoding/json"
	"fmt"
	"strings"
)

// message is the JSON shape used by remote clients for commands and events.
type message struct {
	Type     string `json:"type,omitempty"`
	Command  string `json:"command,omitempty"`
	Event    string `json:"event,omitempty"`
	DeviceID *int   `json:"device_id,omitempty"`
}

// ParseCommand decodes a client command such as
// {"command":"reload_config","device_id":2}.
func ParseCommand(data []byte) (Command, error) {
	var m message
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("control: malformed command: %w", err)
	}

	switch strings.ToLower(m.Command) {
	case "pause":
		return Pause{}, nil
	case "resume", "continue":
		return Resume{}, nil
	case "reload_config", "config_refresh":
		if m.DeviceID == nil {
			return nil, fmt.Errorf("control: reload_config requires device_id")
		}
		return ReloadConfig{DeviceID: *m.DeviceID}, nil
	default:
		return nil, fmt.Errorf("control: unknown command %q", m.Command)
	}
}

// MarshalEvent encodes an event for remote clients.
func MarshalEvent(ev Event) ([]byte, error) {
	switch e := ev.(type) {
	case ReloadConfigFinished:
		id := e.DeviceID
		return json.Marshal(message{Type: "event", Event: "reload_config_finished", DeviceID: &id})
	default:
		return nil, fmt.Errorf("control: unsupported event %T", ev)
	}
}
