package testsupport

import (
	"context"
	"io"
	"path/filepath"
	"sync"

	"spatialrip/internal/procrun"
)

// Responder produces the outcome of a fake command. It may create the files
// the real tool would have written.
type Responder func(cmd procrun.Command) (output string, err error)

// FakeExecutor records every command and answers with Respond.
type FakeExecutor struct {
	mu      sync.Mutex
	calls   []procrun.Command
	async   []bool
	nextPID int

	// Respond decides each command's output and error; nil succeeds silently.
	Respond Responder
	// OnStart runs synchronously when an asynchronous command is launched.
	OnStart func(cmd procrun.Command)
	// OnKill runs when an asynchronous command is killed.
	OnKill func(cmd procrun.Command)
}

// NewFakeExecutor returns an executor answering with respond.
func NewFakeExecutor(respond Responder) *FakeExecutor {
	return &FakeExecutor{Respond: respond, nextPID: 1000}
}

func (f *FakeExecutor) record(cmd procrun.Command, async bool) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, cmd)
	f.async = append(f.async, async)
	f.nextPID++
	return f.nextPID
}

func (f *FakeExecutor) respond(cmd procrun.Command) (string, error) {
	if f.Respond == nil {
		return "", nil
	}
	return f.Respond(cmd)
}

// Output implements procrun.Executor.
func (f *FakeExecutor) Output(ctx context.Context, cmd procrun.Command) ([]byte, error) {
	f.record(cmd, false)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out, err := f.respond(cmd)
	return []byte(out), err
}

// Start implements procrun.Executor. The responder runs when Wait is called.
func (f *FakeExecutor) Start(_ context.Context, cmd procrun.Command, out io.Writer) (procrun.Process, error) {
	pid := f.record(cmd, true)
	if f.OnStart != nil {
		f.OnStart(cmd)
	}
	return &fakeProcess{exec: f, cmd: cmd, out: out, pid: pid}, nil
}

// Calls returns the recorded commands in launch order.
func (f *FakeExecutor) Calls() []procrun.Command {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]procrun.Command(nil), f.calls...)
}

// Binaries returns the base name of every recorded command in launch order.
func (f *FakeExecutor) Binaries() []string {
	calls := f.Calls()
	out := make([]string, len(calls))
	for i, c := range calls {
		out[i] = filepath.Base(c.Binary)
	}
	return out
}

// CallsTo returns the recorded invocations of binary.
func (f *FakeExecutor) CallsTo(binary string) []procrun.Command {
	var out []procrun.Command
	for _, c := range f.Calls() {
		if c.Binary == binary || filepath.Base(c.Binary) == binary {
			out = append(out, c)
		}
	}
	return out
}

type fakeProcess struct {
	exec   *FakeExecutor
	cmd    procrun.Command
	out    io.Writer
	pid    int
	mu     sync.Mutex
	killed bool
}

func (p *fakeProcess) Wait() error {
	out, err := p.exec.respond(p.cmd)
	if out != "" {
		_, _ = io.WriteString(p.out, out)
	}
	return err
}

func (p *fakeProcess) Kill() error {
	p.mu.Lock()
	p.killed = true
	p.mu.Unlock()
	if p.exec.OnKill != nil {
		p.exec.OnKill(p.cmd)
	}
	return nil
}

func (p *fakeProcess) Pid() int { return p.pid }
