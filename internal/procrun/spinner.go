package procrun

import (
	"io"
	"os"
	"sync"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"
)

const spinnerInterval = 120 * time.Millisecond

type spinner struct {
	bar  *progressbar.ProgressBar
	done chan struct{}
	once sync.Once
	wg   sync.WaitGroup
}

func newSpinner(w io.Writer, label string) *spinner {
	bar := progressbar.NewOptions(-1,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription(label),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionSetElapsedTime(true),
		progressbar.OptionClearOnFinish(),
	)
	s := &spinner{bar: bar, done: make(chan struct{})}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(spinnerInterval)
		defer ticker.Stop()
		for {
			select {
			case <-s.done:
				return
			case <-ticker.C:
				_ = s.bar.Add(1)
			}
		}
	}()
	return s
}

func (s *spinner) stop() {
	s.once.Do(func() {
		close(s.done)
		s.wg.Wait()
		_ = s.bar.Finish()
	})
}

// spinnerSet owns every spinner currently drawn so an interrupt can clear them.
type spinnerSet struct {
	mu      sync.Mutex
	enabled bool
	out     io.Writer
	active  map[*spinner]struct{}
}

func newSpinnerSet(enabled bool) *spinnerSet {
	return &spinnerSet{enabled: enabled, out: os.Stderr, active: make(map[*spinner]struct{})}
}

// stderrIsTerminal reports whether spinners can be drawn.
func stderrIsTerminal() bool {
	fd := os.Stderr.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// begin starts a spinner and returns the function that stops it.
func (s *spinnerSet) begin(label string) func() {
	if s == nil || !s.enabled {
		return func() {}
	}
	sp := newSpinner(s.out, label)
	s.mu.Lock()
	s.active[sp] = struct{}{}
	s.mu.Unlock()
	return func() {
		sp.stop()
		s.mu.Lock()
		delete(s.active, sp)
		s.mu.Unlock()
	}
}

// stopAll is safe to call repeatedly.
func (s *spinnerSet) stopAll() {
	if s == nil {
		return
	}
	s.mu.Lock()
	active := make([]*spinner, 0, len(s.active))
	for sp := range s.active {
		active = append(active, sp)
	}
	s.active = make(map[*spinner]struct{})
	s.mu.Unlock()
	for _, sp := range active {
		sp.stop()
	}
}
