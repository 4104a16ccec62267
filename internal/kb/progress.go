package kb

// ProgressReporter receives progress updates while chunks are embedded.
type ProgressReporter interface {
	// OnProgress is called with the number of chunks embedded so far.
	OnProgress(current, total int)
}

// ProgressFunc is a function adapter for ProgressReporter.
type ProgressFunc func(current, total int)

// OnProgress implements ProgressReporter.
func (f ProgressFunc) OnProgress(current, total int) {
	f(current, total)
}
