package orchestrator

import (
	"sync/atomic"
	"time"
)

// EventSink receives user-visible run events: per-chunk progress, per-chunk
// terminal notices, and the final rendered transcript. It is the seam between
// the orchestration core and whatever presentation layer observes a run.
//
// Implementations must tolerate concurrent calls — per-chunk events arrive
// from parallel goroutines with no ordering guarantee across chunks.
type EventSink interface {
	// ChunkProgress reports an updated completion percentage for one chunk.
	ChunkProgress(index, percent int)

	// ChunkCompleted reports that a chunk reached a terminal status with a
	// stored result (including a remote-reported error status).
	ChunkCompleted(index int)

	// ChunkFailed reports that a chunk's job failed without a result.
	ChunkFailed(index int, err error)

	// RunCompleted reports the end of a successful run with the total elapsed
	// time and the final annotated text.
	RunCompleted(elapsed time.Duration, text string)
}

// NopSink is an EventSink that discards all events.
type NopSink struct{}

func (NopSink) ChunkProgress(int, int)             {}
func (NopSink) ChunkCompleted(int)                 {}
func (NopSink) ChunkFailed(int, error)             {}
func (NopSink) RunCompleted(time.Duration, string) {}

// RunState is the bookkeeping for one recognition run. The counters are
// updated from parallel per-chunk goroutines.
type RunState struct {
	// ID is the run identifier keying all stored artifacts.
	ID string

	// NumChunks is the total chunk count of the run.
	NumChunks int

	// Grammar is the resolved recognition model identifier.
	Grammar string

	// Speakers is the requested diarization speaker count.
	Speakers int

	// StartedAt marks the run's dispatch time.
	StartedAt time.Time

	completed atomic.Int64
	failed    atomic.Int64
}

// CompletedChunks returns the number of chunks that reached a terminal status
// with a stored result. It never exceeds NumChunks; failed chunks are counted
// separately.
func (s *RunState) CompletedChunks() int { return int(s.completed.Load()) }

// FailedChunks returns the number of chunks whose job failed without a result.
func (s *RunState) FailedChunks() int { return int(s.failed.Load()) }
