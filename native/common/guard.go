package common

import "errors"

// ErrModulePaused is returned when the global kill-switch blocks a mutating
// operation. It takes precedence over any role-specific failure, so callers
// must evaluate the guard before authorisation.
var ErrModulePaused = errors.New("module paused")

// PauseView answers whether the named module is currently halted. It is
// implemented by the state manager in production and by plain maps in tests.
type PauseView interface {
	IsPaused(module string) bool
}

// Guard short-circuits a mutating entrypoint while the module is paused. A nil
// view or empty module name disables the check.
func Guard(p PauseView, module string) error {
	if p == nil || module == "" {
		return nil
	}
	if p.IsPaused(module) {
		return ErrModulePaused
	}
	return nil
}
