package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

type Logger interface {
	Debugf(template string, args ...interface{})
	Infof(template string, args ...interface{})
	Errorf(template string, args ...interface{})
}

// Scheduler runs one job on a fixed interval. A panicking or failing run
// is logged and never stops the loop; a run that is still going when the
// next one is due causes that tick to be skipped.
type Scheduler struct {
	mu     sync.Mutex
	logger Logger
	cron   *cron.Cron
	entry  cron.EntryID
}

func New(logger Logger) *Scheduler {
	return &Scheduler{logger: logger}
}

// Start schedules job every interval. Calling Start on a running scheduler
// stops the previous loop first.
func (s *Scheduler) Start(interval time.Duration, job func(context.Context) error) error {
	if interval < time.Second {
		return fmt.Errorf("interval must be at least one second, got %s", interval)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopLocked()

	cl := cronLogger{s.logger}
	c := cron.New(
		cron.WithLogger(cl),
		// Recover sits inside SkipIfStillRunning so a panic still hands
		// back the running token.
		cron.WithChain(cron.SkipIfStillRunning(cl), cron.Recover(cl)),
	)
	s.entry = c.Schedule(cron.Every(interval), cron.FuncJob(func() {
		if err := job(context.Background()); err != nil {
			s.logger.Errorf("Scheduled job failed: %v", err)
		}
	}))
	s.cron = c
	c.Start()

	s.logger.Infof("Scheduler started, interval %s", interval)
	return nil
}

// Stop halts the loop and waits for a run in progress to return.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopLocked()
}

func (s *Scheduler) stopLocked() {
	if s.cron == nil {
		return
	}
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.cron = nil
	s.logger.Infof("Scheduler stopped")
}

func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.cron != nil
}

// Next reports when the job will fire next, or the zero time when stopped.
func (s *Scheduler) Next() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cron == nil {
		return time.Time{}
	}
	return s.cron.Entry(s.entry).Next
}

// cronLogger adapts Logger to cron's key/value logger.
type cronLogger struct {
	l Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.l.Debugf("cron: %s %v", msg, keysAndValues)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.l.Errorf("cron: %s: %v %v", msg, err, keysAndValues)
}
