package procrun

import (
	"sort"
	"sync"
)

// Registry tracks asynchronously launched processes and the names of every
// tool the runner has invoked.
type Registry struct {
	mu      sync.Mutex
	handles map[*Handle]struct{}
	names   map[string]struct{}
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		handles: make(map[*Handle]struct{}),
		names:   make(map[string]struct{}),
	}
}

func (r *Registry) add(h *Handle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handles[h] = struct{}{}
	r.names[h.cmd.Name()] = struct{}{}
}

func (r *Registry) remove(h *Handle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.handles, h)
}

func (r *Registry) noteName(name string) {
	if name == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.names[name] = struct{}{}
}

// Active returns the handles that have started and not yet been waited on.
func (r *Registry) Active() []*Handle {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Handle, 0, len(r.handles))
	for h := range r.handles {
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Pid() < out[j].Pid() })
	return out
}

// Names returns the sorted base names of every tool launched so far.
func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.names))
	for name := range r.names {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
