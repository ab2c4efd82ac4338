package launch

import "sync"

// Kernel executes against positionally bound buffers and an opaque
// serialized descriptor. Buffer order is fixed per kernel and documented at
// the registration site. Kernels validate buffer counts and sizes against
// the decoded descriptor before touching any data.
type Kernel func(buffers [][]byte, opaque []byte) error

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Kernel)
)

// Register makes a kernel available for launching under the given name.
// It is intended to be called from package init functions, in the manner of
// database/sql driver registration, and panics on duplicate names.
func Register(name string, k Kernel) {
	registryMu.Lock()
	defer registryMu.Unlock()
	if k == nil {
		panic("launch: Register kernel is nil")
	}
	if _, dup := registry[name]; dup {
		panic("launch: Register called twice for kernel " + name)
	}
	registry[name] = k
}

// Kernels returns the names of all registered kernels in unspecified order.
func Kernels() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	return names
}

// Launch submits the named kernel onto the queue with the given buffer list
// and opaque descriptor. Unknown kernel names are reported synchronously as
// a *ConfigError; all other failures surface through Queue.Sync.
func Launch(q *Queue, name string, buffers [][]byte, opaque []byte) error {
	registryMu.RLock()
	k, ok := registry[name]
	registryMu.RUnlock()
	if !ok {
		return Configf("unknown kernel %q", name)
	}
	q.Submit(name, func() error {
		return k(buffers, opaque)
	})
	return nil
}
