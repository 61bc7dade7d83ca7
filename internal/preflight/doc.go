// Package preflight provides readiness checks run before a work item starts.
//
// RunAll verifies that the output root and state directory are usable, that
// the output filesystem has at least paths.min_free_gib free, and that every
// required external tool is installed. A failed check halts the run before
// hours are spent on a rip that cannot finish.
package preflight
