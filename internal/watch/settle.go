package watch

import (
	"sort"
	"time"
)

type pendingSource struct {
	size    int64
	changed time.Time
}

// settleTracker decides when a source has stopped growing.
type settleTracker struct {
	settle  time.Duration
	pending map[string]*pendingSource
	emitted map[string]bool
}

func newSettleTracker(settle time.Duration) *settleTracker {
	return &settleTracker{
		settle:  settle,
		pending: make(map[string]*pendingSource),
		emitted: make(map[string]bool),
	}
}

// touch records activity on path. Sources already handed over are ignored
// until forget is called for them.
func (t *settleTracker) touch(path string, now time.Time) {
	if t.emitted[path] {
		return
	}
	if p, ok := t.pending[path]; ok {
		p.changed = now
		return
	}
	t.pending[path] = &pendingSource{size: -1, changed: now}
}

func (t *settleTracker) forget(path string) {
	delete(t.pending, path)
	delete(t.emitted, path)
}

// due returns the sources whose size has held for the settle period, in
// path order. Sources that can no longer be measured are dropped.
func (t *settleTracker) due(now time.Time, sizeOf func(string) (int64, error)) []string {
	var ready []string
	for path, p := range t.pending {
		size, err := sizeOf(path)
		if err != nil {
			delete(t.pending, path)
			continue
		}
		if size != p.size {
			p.size = size
			p.changed = now
			continue
		}
		if now.Sub(p.changed) >= t.settle {
			ready = append(ready, path)
		}
	}
	sort.Strings(ready)
	for _, path := range ready {
		delete(t.pending, path)
		t.emitted[path] = true
	}
	return ready
}

func (t *settleTracker) size() int { return len(t.pending) }
