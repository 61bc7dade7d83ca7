package stage

// Machine decides which stages execute for a run that begins at a given start
// stage. It holds no other state and is safe for concurrent use.
type Machine struct {
	start Stage
}

// NewMachine returns a machine starting at start. Invalid values clamp to the
// nearest valid stage.
func NewMachine(start Stage) Machine {
	switch {
	case start < First:
		start = First
	case start > Last:
		start = Last
	}
	return Machine{start: start}
}

// Start returns the configured start stage.
func (m Machine) Start() Stage {
	return m.start
}

// ShouldRun reports whether s executes. Stages before the start stage are
// skipped and their outputs are assumed to exist on disk.
func (m Machine) ShouldRun(s Stage) bool {
	return s >= m.start
}

// IsFirstStage reports whether s is the first pipeline stage.
func (m Machine) IsFirstStage(s Stage) bool {
	return s == First
}

// PurgesOutput reports whether the work directory is deleted before the run.
// Only a run beginning at the first stage may purge.
func (m Machine) PurgesOutput() bool {
	return m.IsFirstStage(m.start)
}
