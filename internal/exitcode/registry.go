// Package exitcode holds the process-wide final exit status shared by the
// shell executor and the task pipeline. Writers may only raise the recorded
// value from unset or zero; an already recorded non-zero status is never
// overwritten by a later write.
package exitcode

import "sync"

// Registry stores a single integer-or-unset exit status under a never-downgrade rule.
type Registry struct {
	mutex    sync.Mutex
	code     int
	recorded bool
}

// NewRegistry constructs an empty exit status registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// RaiseAtLeast records the provided status when the registry is unset or currently zero.
func (registry *Registry) RaiseAtLeast(statusCode int) {
	registry.mutex.Lock()
	defer registry.mutex.Unlock()

	if registry.recorded && registry.code != 0 {
		return
	}

	registry.code = statusCode
	registry.recorded = true
}

// Code returns the recorded status and whether any status has been recorded.
func (registry *Registry) Code() (int, bool) {
	registry.mutex.Lock()
	defer registry.mutex.Unlock()

	return registry.code, registry.recorded
}

// CodeOrZero returns the recorded status, defaulting to zero when unset.
func (registry *Registry) CodeOrZero() int {
	statusCode, _ := registry.Code()
	return statusCode
}

// Reset clears the recorded status.
func (registry *Registry) Reset() {
	registry.mutex.Lock()
	defer registry.mutex.Unlock()

	registry.code = 0
	registry.recorded = false
}

var sharedRegistry = NewRegistry()

// Shared returns the process-wide registry consulted by the command-line entrypoint.
func Shared() *Registry {
	return sharedRegistry
}
