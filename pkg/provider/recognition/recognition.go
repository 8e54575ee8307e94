// Package recognition defines the asynchronous speech-recognition service
// interface consumed by the hibiki orchestrator.
//
// The protocol is a classic submit/poll lifecycle: one audio chunk is
// submitted as an independent job, the caller polls the job by its session
// identifier until a terminal status is reported, and the full response body
// of the terminal poll becomes the chunk's raw result.
//
// Implementations must be safe for concurrent use — the orchestrator drives
// one job per chunk from parallel goroutines against a single client.
package recognition

import (
	"context"
	"encoding/json"
	"fmt"
)

// Status is a recognition job status as reported by the remote service.
type Status string

const (
	// StatusQueued means the job is accepted but not yet started.
	StatusQueued Status = "queued"

	// StatusStarted means the job has been picked up by a worker.
	StatusStarted Status = "started"

	// StatusProcessing means recognition is in progress.
	StatusProcessing Status = "processing"

	// StatusCompleted means recognition finished successfully.
	StatusCompleted Status = "completed"

	// StatusError means the remote job failed. This is still a terminal
	// status carrying a result body — it is not a transport failure.
	StatusError Status = "error"
)

// Terminal reports whether no further polling should occur for this status.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusError
}

// SubmitRequest carries one chunk's audio and recognition parameters.
type SubmitRequest struct {
	// ContentID is an opaque identifier for the submitted audio, echoed back
	// by the service (e.g. "chunk_3.wav").
	ContentID string

	// Grammar is the resolved recognition model identifier.
	Grammar string

	// SpeakerCount is used as both the minimum and maximum diarization
	// speaker count. Must be >= 1.
	SpeakerCount int

	// Audio is the raw bytes of one complete audio chunk.
	Audio []byte
}

// JobState is the decoded outcome of a single poll request.
type JobState struct {
	// Status is the job status reported by the service.
	Status Status

	// Raw is the full response body of the poll. At a terminal status it is
	// the chunk's complete recognition result and is persisted as-is.
	Raw json.RawMessage
}

// Service is an asynchronous recognition backend.
type Service interface {
	// Submit creates one recognition job for the request's audio and returns
	// the service-assigned session identifier.
	//
	// A transport failure or non-2xx response yields a *TransportError; a
	// well-formed rejection (no session identifier in the response) yields a
	// *SubmissionError. There is no retry at this layer.
	Submit(ctx context.Context, req SubmitRequest) (sessionID string, err error)

	// Poll requests the current state of the job identified by sessionID.
	// A transport failure or non-2xx response yields a *TransportError.
	Poll(ctx context.Context, sessionID string) (*JobState, error)
}

// SubmissionError reports that the service rejected job creation: the submit
// response was otherwise successful but carried no session identifier.
type SubmissionError struct {
	// Message is the service-reported failure description.
	Message string

	// Code is the service-reported error code.
	Code string
}

func (e *SubmissionError) Error() string {
	return fmt.Sprintf("recognition: job creation rejected: %s (%s)", e.Message, e.Code)
}

// TransportError reports a network failure or non-2xx response at either the
// submit or poll step. It is fatal to the affected chunk's job.
type TransportError struct {
	// Op identifies the failing step: "submit" or "poll".
	Op string

	// StatusCode is the HTTP status code, or 0 for a network-level failure.
	StatusCode int

	// Err is the underlying error, if any.
	Err error
}

func (e *TransportError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("recognition: %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("recognition: %s: unexpected status %d", e.Op, e.StatusCode)
}

func (e *TransportError) Unwrap() error { return e.Err }
