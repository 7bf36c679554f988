// control/config.go
// Author: momentics <momentics@gmail.com>
//
// Thread-safe configuration store for the runtime's ambient settings
// (listen port, worker count, affinity pinning), with dynamic update
// and hot-reload propagation to interested components.

package control

import (
	"sync"
)

// RuntimeConfig is the set of scheduler and netio listener tunables.
// cmd/echoserver fills Port, NumWorkers and PinWorkers from its flags
// and passes NumWorkers and PinWorkers to the scheduler at startup;
// MaxLocalTasks is not set there, so the scheduler default applies.
type RuntimeConfig struct {
	Port          int
	NumWorkers    int
	MaxLocalTasks int
	PinWorkers    bool
}

// ConfigStore holds the current RuntimeConfig and dispatches a reload
// event through the package's global reload hooks on every Set.
type ConfigStore struct {
	mu  sync.RWMutex
	cfg RuntimeConfig
}

// NewConfigStore initializes a new config store with a zero-valued config.
func NewConfigStore() *ConfigStore {
	return &ConfigStore{}
}

// Get returns the current config.
func (cs *ConfigStore) Get() RuntimeConfig {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	return cs.cfg
}

// Set replaces the config and dispatches a reload event to every
// hook registered with RegisterReloadHook.
func (cs *ConfigStore) Set(cfg RuntimeConfig) {
	cs.mu.Lock()
	cs.cfg = cfg
	cs.mu.Unlock()
	TriggerHotReload(cfg)
}
