package module

import (
	"sort"
	"sync"
)

// names of the modules api.Mount has mounted in this process
var (
	mu  sync.RWMutex
	reg = map[string]struct{}{}
)

// Register records a mounted module name
func Register(name string) {
	mu.Lock()
	reg[name] = struct{}{}
	mu.Unlock()
}

// Names lists registered module names in sorted order
func Names() []string {
	mu.RLock()
	out := make([]string, 0, len(reg))
	for n := range reg {
		out = append(out, n)
	}
	mu.RUnlock()
	sort.Strings(out)
	return out
}

// Reset clears the registry for tests
func Reset() {
	mu.Lock()
	reg = map[string]struct{}{}
	mu.Unlock()
}
