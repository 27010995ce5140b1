package models

import "fmt"

// Token is the credential returned by the login endpoint. It is valid for one run.
type Token string

// WatchedState is the server-side playback state of a video
type WatchedState struct {
	VideoID  string
	Watched  bool
	Position int // 0-100
}

// ArchiveTask is created for each discovered file and consumed once by the archiver
type ArchiveTask struct {
	VideoID    string
	SourcePath string
	DestPath   string
	Metadata   *VideoMetadata
}

// OutcomeStatus is the result class of a pipeline step
type OutcomeStatus string

const (
	OutcomeArchived OutcomeStatus = "archived"
	OutcomeSkipped  OutcomeStatus = "skipped"
	OutcomeFailed   OutcomeStatus = "failed"
)

// SkipReason explains why a file was not archived
type SkipReason string

const (
	SkipWatched       SkipReason = "already watched"
	SkipExists        SkipReason = "destination exists"
	SkipIgnored       SkipReason = "ignored"
	SkipNoMetadata    SkipReason = "metadata unavailable"
	SkipPendingRemark SkipReason = "archived, watched update retried"
	SkipDestConflict  SkipReason = "destination belongs to another video"
)

// Outcome is what a pipeline step reports back to the orchestrator
type Outcome struct {
	Status OutcomeStatus
	Reason string
	Err    error

	// Partial lists non-fatal step failures (tagging, thumbnail, NFO)
	Partial []string
}

// Archived returns a successful outcome
func Archived() Outcome {
	return Outcome{Status: OutcomeArchived}
}

// Skipped returns a skip outcome with its reason
func Skipped(reason SkipReason) Outcome {
	return Outcome{Status: OutcomeSkipped, Reason: string(reason)}
}

// Failed returns a failure outcome
func Failed(reason string, err error) Outcome {
	return Outcome{Status: OutcomeFailed, Reason: reason, Err: err}
}

// OK reports whether the step succeeded, possibly with partial failures
func (o Outcome) OK() bool {
	return o.Status == OutcomeArchived
}

func (o Outcome) String() string {
	switch {
	case o.Err != nil:
		return fmt.Sprintf("%s: %s: %v", o.Status, o.Reason, o.Err)
	case o.Reason != "":
		return fmt.Sprintf("%s: %s", o.Status, o.Reason)
	default:
		return string(o.Status)
	}
}

// LedgerStatus is the local completion state of an archived video
type LedgerStatus string

const (
	LedgerArchived LedgerStatus = "archived" // copied, watched update still pending
	LedgerComplete LedgerStatus = "complete" // copied and marked watched
)
