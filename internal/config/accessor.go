// SPDX-License-Identifier: MIT
package config

import (
	"sync"
)

// Accessor guards the active configuration. Readers always get a complete
// copy; writers replace the whole value, never individual fields.
type Accessor struct {
	mu   sync.RWMutex
	path string
	cfg  Config
}

// NewAccessor wraps an already loaded configuration. path is re-read by Reload;
// an empty path repeats the default search performed by LoadConfig.
func NewAccessor(path string, cfg *Config) *Accessor {
	return &Accessor{path: path, cfg: *cfg}
}

// Reload re-reads the configuration source and swaps it in. On error the
// previous configuration stays active.
func (a *Accessor) Reload() error {
	cfg, err := LoadConfig(a.path)
	if err != nil {
		return err
	}
	a.Store(cfg)
	return nil
}

// Store replaces the active configuration. It is the hook for collaborators
// that edit configuration outside of the file (e.g. a settings UI).
func (a *Accessor) Store(cfg *Config) {
	a.mu.Lock()
	a.cfg = *cfg
	a.mu.Unlock()
}

// Config returns a copy of the full configuration.
func (a *Accessor) Config() Config {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.cfg
}

// Snapshot returns the pipeline settings of the active configuration.
func (a *Accessor) Snapshot() Snapshot {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.cfg.Snapshot()
}
