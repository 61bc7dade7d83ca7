package procrun

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"time"
)

// Executor abstracts process creation for testability.
type Executor interface {
	// Output runs the command to completion and returns stdout and stderr combined.
	Output(ctx context.Context, cmd Command) ([]byte, error)
	// Start launches the command with stdout and stderr written to out.
	Start(ctx context.Context, cmd Command, out io.Writer) (Process, error)
}

// Process is a launched command.
type Process interface {
	Wait() error
	Kill() error
	Pid() int
}

// waitDelay bounds how long Wait blocks on output pipes after a kill.
const waitDelay = 5 * time.Second

type commandExecutor struct{}

func (commandExecutor) Output(ctx context.Context, cmd Command) ([]byte, error) {
	c := exec.CommandContext(ctx, cmd.Binary, cmd.Args...) //nolint:gosec
	c.Dir = cmd.Dir
	c.WaitDelay = waitDelay
	var buf bytes.Buffer
	c.Stdout = &buf
	c.Stderr = &buf
	err := c.Run()
	return buf.Bytes(), err
}

func (commandExecutor) Start(ctx context.Context, cmd Command, out io.Writer) (Process, error) {
	c := exec.CommandContext(ctx, cmd.Binary, cmd.Args...) //nolint:gosec
	c.Dir = cmd.Dir
	c.WaitDelay = waitDelay
	c.Stdout = out
	c.Stderr = out
	if err := c.Start(); err != nil {
		return nil, fmt.Errorf("start %s: %w", cmd.Name(), err)
	}
	return &osProcess{cmd: c}, nil
}

type osProcess struct {
	cmd *exec.Cmd
}

func (p *osProcess) Wait() error { return p.cmd.Wait() }

func (p *osProcess) Kill() error {
	if p.cmd.Process == nil {
		return nil
	}
	return p.cmd.Process.Kill()
}

func (p *osProcess) Pid() int {
	if p.cmd.Process == nil {
		return 0
	}
	return p.cmd.Process.Pid
}
