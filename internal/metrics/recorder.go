package metrics

import "time"

// SetLabel names the file set a counter refers to.
type SetLabel string

const (
	SetInput  SetLabel = "input"
	SetOutput SetLabel = "output"
)

// ResultLabel enumerates outcome categories for counters.
type ResultLabel string

const (
	ResultSuccess ResultLabel = "success"
	ResultFailed  ResultLabel = "failed"
	ResultSkipped ResultLabel = "skipped"
)

// Recorder defines the metrics hooks used by the tracker and the runner.
// Implementations must be safe to call with zero values and must not panic.
type Recorder interface {
	IncFilesAdded(set SetLabel)
	IncNotFound(op string)
	IncResolution(result ResultLabel)
	IncTaskOutcome(result ResultLabel)
	ObserveTaskDuration(task string, d time.Duration)
}

// NoopRecorder is a Recorder that does nothing (default when metrics are not configured).
type NoopRecorder struct{}

func (NoopRecorder) IncFilesAdded(SetLabel)                    {}
func (NoopRecorder) IncNotFound(string)                        {}
func (NoopRecorder) IncResolution(ResultLabel)                 {}
func (NoopRecorder) IncTaskOutcome(ResultLabel)                {}
func (NoopRecorder) ObserveTaskDuration(string, time.Duration) {}
