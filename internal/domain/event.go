package domain

import "time"

type EventType int

const (
	EventProgress EventType = iota
	EventStatus
	EventFinished
)

func (t EventType) String() string {
	switch t {
	case EventProgress:
		return "progress"
	case EventStatus:
		return "status"
	case EventFinished:
		return "finished"
	default:
		return "unknown"
	}
}

// Event is delivered to the caller of an asynchronous job.
// Result is only set on EventFinished.
type Event struct {
	Type    EventType
	Percent int
	Message string
	Result  *Result
}

// Result is the terminal outcome of a backup or restore.
type Result struct {
	Success bool
	Message string
	Err     error

	ArchivePath     string
	Manifest        *Manifest
	PreRestorePath  string
	RestartRequired bool
	Duration        time.Duration
}

func (r Result) Kind() ErrorKind {
	return KindOf(r.Err)
}

func (r Result) Cancelled() bool {
	return KindOf(r.Err) == KindCancelled
}
