package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"

	"spatialrip/internal/pipeline"
)

// recoveryDecider returns AlwaysRecover with --yes, an interactive prompt
// when in is a terminal, and nil otherwise.
func recoveryDecider(in io.Reader, out io.Writer, assumeYes bool) pipeline.Decider {
	if assumeYes {
		return pipeline.AlwaysRecover
	}
	f, ok := in.(*os.File)
	if !ok || !(isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())) {
		return nil
	}
	return promptDecider(bufio.NewReader(in), out)
}

func promptDecider(reader *bufio.Reader, out io.Writer) pipeline.Decider {
	warn := color.New(color.FgYellow, color.Bold)
	return func(_ context.Context, r pipeline.Recovery, err error) bool {
		fmt.Fprintln(out)
		warn.Fprintln(out, "The run stopped:")
		fmt.Fprintln(out, err)
		fmt.Fprintf(out, "\nRecover: %s? [y/N] ", r.Description)
		line, readErr := reader.ReadString('\n')
		if readErr != nil && line == "" {
			return false
		}
		switch strings.ToLower(strings.TrimSpace(line)) {
		case "y", "yes":
			return true
		}
		return false
	}
}
