// SPDX-License-Identifier: MIT
// Package control carries run-state commands into the processing loop and
// reconfiguration events back out of it.
package control

import (
	"context"
	"errors"
	"fmt"
)

// ErrChannelFull is returned by TrySend when the command FIFO is at capacity.
var ErrChannelFull = errors.New("control: command queue full")

// Notification is the closed set of messages crossing the control channel.
// Only types in this package implement it.
type Notification interface {
	fmt.Stringer
	notification()
}

// Command is a Notification flowing into the processing loop.
type Command interface {
	Notification
	command()
}

// Event is a Notification emitted by the processing loop.
type Event interface {
	Notification
	event()
}

// Pause suspends feature production. The device stream keeps running.
type Pause struct{}

// Resume re-enables feature production.
type Resume struct{}

// ReloadConfig asks for a full configuration reload and stream re-init.
// DeviceID is echoed back in ReloadConfigFinished for correlation.
type ReloadConfig struct {
	DeviceID int
}

// ReloadConfigFinished reports that a ReloadConfig has been handled.
type ReloadConfigFinished struct {
	DeviceID int
}

func (Pause) notification()                {}
func (Resume) notification()               {}
func (ReloadConfig) notification()         {}
func (ReloadConfigFinished) notification() {}

func (Pause) command()        {}
func (Resume) command()       {}
func (ReloadConfig) command() {}

func (ReloadConfigFinished) event() {}

func (Pause) String() string  { return "pause" }
func (Resume) String() string { return "resume" }
func (c ReloadConfig) String() string {
	return fmt.Sprintf("reload_config(device=%d)", c.DeviceID)
}
func (e ReloadConfigFinished) String() string {
	return fmt.Sprintf("reload_config_finished(device=%d)", e.DeviceID)
}

// Channel is a pair of FIFOs: commands in, events out.
type Channel struct {
	commands chan Command
	events   chan Event
}

// NewChannel creates a channel whose command and event FIFOs each hold up to capacity items.
func NewChannel(capacity int) *Channel {
	if capacity <= 0 {
		capacity = 1
	}
	return &Channel{
		commands: make(chan Command, capacity),
		events:   make(chan Event, capacity),
	}
}

// Send enqueues a command, waiting for room until ctx is done.
func (c *Channel) Send(ctx context.Context, cmd Command) error {
	select {
	case c.commands <- cmd:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// TrySend enqueues a command without waiting.
func (c *Channel) TrySend(cmd Command) error {
	select {
	case c.commands <- cmd:
		return nil
	default:
		return ErrChannelFull
	}
}

// Receive takes at most one pending command without blocking.
func (c *Channel) Receive() (Command, bool) {
	select {
	case cmd := <-c.commands:
		return cmd, true
	default:
		return nil, false
	}
}

// Pending returns the number of queued commands.
func (c *Channel) Pending() int { return len(c.commands) }

// Emit publishes an event. Events are never dropped: when the FIFO is full
// Emit waits for a reader until ctx is done.
func (c *Channel) Emit(ctx context.Context, ev Event) error {
	select {
	case c.events <- ev:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Events returns the receive side of the event FIFO.
func (c *Channel) Events() <-chan Event { return c.events }
