// control/hotreload.go
// Manages global hot-reload hooks, each notified with the RuntimeConfig
// that triggered the reload. ConfigStore.Set is the normal (async)
// trigger path; TriggerHotReloadSync exists for a SIGHUP handler or a
// test that must observe every hook's effect before proceeding.

package control

import "sync"

var (
	reloadMu    sync.Mutex
	reloadHooks []func(RuntimeConfig)
)

// RegisterReloadHook adds a new component reload listener. It is
// invoked with the RuntimeConfig in effect at the time of the reload.
func RegisterReloadHook(fn func(RuntimeConfig)) {
	reloadMu.Lock()
	defer reloadMu.Unlock()
	reloadHooks = append(reloadHooks, fn)
}

// TriggerHotReload dispatches cfg to every registered hook
// asynchronously. This is ConfigStore.Set's own reload path.
func TriggerHotReload(cfg RuntimeConfig) {
	for _, fn := range snapshotHooks() {
		go fn(cfg)
	}
}

// TriggerHotReloadSync invokes every hook with cfg synchronously,
// so the caller observes every hook's effect before it returns.
func TriggerHotReloadSync(cfg RuntimeConfig) {
	for _, fn := range snapshotHooks() {
		fn(cfg)
	}
}

func snapshotHooks() []func(RuntimeConfig) {
	reloadMu.Lock()
	defer reloadMu.Unlock()
	hooks := make([]func(RuntimeConfig), len(reloadHooks))
	copy(hooks, reloadHooks)
	return hooks
}
