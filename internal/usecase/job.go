package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/KMINALI2005/School-management-system/internal/domain"
)

type Logger interface {
	Debugf(template string, args ...interface{})
	Infof(template string, args ...interface{})
	Warnf(template string, args ...interface{})
	Errorf(template string, args ...interface{})
}

// Reporter receives progress and status updates from an executor.
type Reporter interface {
	Progress(percent int)
	Status(message string)
}

// Runner is the synchronous form of an operation.
type Runner func(ctx context.Context, r Reporter) domain.Result

const eventBuffer = 64

// Job runs one backup or restore in the background and delivers its events
// in order. The Finished event is sent exactly once, after which Events is
// closed.
type Job struct {
	id     string
	kind   string
	events chan domain.Event
	done   chan struct{}
	cancel context.CancelFunc

	mu       sync.Mutex
	progress int
	result   domain.Result
}

// StartJob launches run on its own goroutine. Cancelling ctx or calling
// Cancel asks the runner to stop at its next checkpoint.
func StartJob(ctx context.Context, kind string, run Runner) *Job {
	ctx, cancel := context.WithCancel(ctx)
	j := &Job{
		id:     uuid.NewString(),
		kind:   kind,
		events: make(chan domain.Event, eventBuffer),
		done:   make(chan struct{}),
		cancel: cancel,
	}

	go j.run(ctx, run)
	return j
}

func (j *Job) run(ctx context.Context, run Runner) {
	start := time.Now()
	defer j.cancel()

	var res domain.Result
	func() {
		defer func() {
			if p := recover(); p != nil {
				err := fmt.Errorf("%s panicked: %v", j.kind, p)
				res = domain.Result{Success: false, Message: err.Error(), Err: err}
			}
		}()
		res = run(ctx, j)
	}()
	res.Duration = time.Since(start)

	j.mu.Lock()
	j.result = res
	j.mu.Unlock()

	j.events <- domain.Event{Type: domain.EventFinished, Percent: j.Percent(), Message: res.Message, Result: &res}
	close(j.events)
	close(j.done)
}

func (j *Job) ID() string {
	return j.id
}

func (j *Job) Kind() string {
	return j.kind
}

func (j *Job) Events() <-chan domain.Event {
	return j.events
}

func (j *Job) Done() <-chan struct{} {
	return j.done
}

func (j *Job) Cancel() {
	j.cancel()
}

// Result returns the terminal result. It is only meaningful after Done is closed.
func (j *Job) Result() domain.Result {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.result
}

// Wait blocks until the job finishes or ctx is done. A ctx timeout cancels
// the job and still waits for its terminal result.
func (j *Job) Wait(ctx context.Context) (domain.Result, error) {
	select {
	case <-j.done:
		return j.Result(), nil
	case <-ctx.Done():
		j.Cancel()
		<-j.done
		res := j.Result()
		if res.Success {
			return res, nil
		}
		return res, ctx.Err()
	}
}

func (j *Job) Percent() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.progress
}

// Progress records percent and emits it. Values lower than the current
// progress are dropped.
func (j *Job) Progress(percent int) {
	if percent > 100 {
		percent = 100
	}

	j.mu.Lock()
	if percent < j.progress {
		j.mu.Unlock()
		return
	}
	j.progress = percent
	j.mu.Unlock()

	j.emit(domain.Event{Type: domain.EventProgress, Percent: percent})
}

func (j *Job) Status(message string) {
	j.emit(domain.Event{Type: domain.EventStatus, Percent: j.Percent(), Message: message})
}

// emit never blocks the runner; one slot is always kept for the terminal event.
func (j *Job) emit(ev domain.Event) {
	if len(j.events) >= cap(j.events)-1 {
		return
	}
	j.events <- ev
}

// LogReporter reports to a logger. It is used for unattended runs.
type LogReporter struct {
	Logger Logger
	Prefix string
}

func (r LogReporter) Progress(percent int) {
	r.Logger.Debugf("%s progress %d%%", r.Prefix, percent)
}

func (r LogReporter) Status(message string) {
	r.Logger.Infof("%s %s", r.Prefix, message)
}

// checkpoint converts a done context into a Cancelled error.
func checkpoint(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return domain.NewError(domain.KindCancelled, "operation cancelled", err)
	}
	return nil
}

// classify makes sure err carries a kind, using fallback for plain errors.
func classify(err error, fallback domain.ErrorKind) error {
	if err == nil || domain.KindOf(err) != "" {
		return err
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return domain.NewError(domain.KindCancelled, "operation cancelled", err)
	}
	return domain.NewError(fallback, "", err)
}
