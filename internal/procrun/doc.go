// Package procrun launches the external tools the pipeline drives.
//
// Run executes a command to completion and captures its combined output,
// showing a terminal spinner while it works. Start launches a long-running
// command whose output streams to a log file; the returned Handle is tracked
// in a Registry so Terminate can kill it (and any stray children such as
// processes re-parented under wine) when the operator interrupts a run.
package procrun
