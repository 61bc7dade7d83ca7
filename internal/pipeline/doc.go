// Package pipeline carries one source through every conversion stage.
//
// Run probes the source, prepares its work directory, and executes the
// stages in order. Each stage consults the stage machine: stages before the
// configured start stage are skipped and their outputs are taken from the
// work directory, stages at or after it always run. Intermediates are
// deleted as they are consumed unless pipeline.keep_files is set.
//
// RunWithRecovery maps recoverable failures to a changed configuration and a
// later start stage, then runs again without replaying finished stages.
// RunBatch processes every source found under a folder one at a time and
// keeps going when a single item fails.
package pipeline
