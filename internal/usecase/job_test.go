package usecase

import (
	"context"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/KMINALI2005/School-management-system/internal/domain"
)

func collect(job *Job) []domain.Event {
	var events []domain.Event
	for ev := range job.Events() {
		events = append(events, ev)
	}
	return events
}

func TestJob(t *testing.T) {
	Convey("Given a Job", t, func() {
		Convey("When the runner reports progress and succeeds", func() {
			job := StartJob(context.Background(), "backup", func(ctx context.Context, r Reporter) domain.Result {
				r.Status("starting")
				r.Progress(10)
				r.Progress(50)
				r.Progress(30)
				r.Progress(100)
				return domain.Result{Success: true, Message: "done"}
			})
			events := collect(job)

			Convey("It should deliver events in order with one terminal event last", func() {
				So(job.ID(), ShouldNotBeEmpty)
				So(job.Kind(), ShouldEqual, "backup")
				So(len(events), ShouldEqual, 5)
				So(events[0].Type, ShouldEqual, domain.EventStatus)
				So(events[0].Message, ShouldEqual, "starting")

				var percents []int
				finished := 0
				for _, ev := range events {
					if ev.Type == domain.EventProgress {
						percents = append(percents, ev.Percent)
					}
					if ev.Type == domain.EventFinished {
						finished++
					}
				}
				So(percents, ShouldResemble, []int{10, 50, 100})
				So(finished, ShouldEqual, 1)

				last := events[len(events)-1]
				So(last.Type, ShouldEqual, domain.EventFinished)
				So(last.Result, ShouldNotBeNil)
				So(last.Result.Success, ShouldBeTrue)
				So(last.Message, ShouldEqual, "done")
			})

			Convey("It should expose the result after Done", func() {
				<-job.Done()
				So(job.Result().Success, ShouldBeTrue)
				So(job.Percent(), ShouldEqual, 100)
			})
		})

		Convey("When the job is cancelled", func() {
			started := make(chan struct{})
			job := StartJob(context.Background(), "restore", func(ctx context.Context, r Reporter) domain.Result {
				close(started)
				<-ctx.Done()
				err := checkpoint(ctx)
				return domain.Result{Message: "cancelled", Err: err}
			})
			<-started
			job.Cancel()
			res, err := job.Wait(context.Background())

			Convey("It should report a Cancelled result", func() {
				So(err, ShouldBeNil)
				So(res.Success, ShouldBeFalse)
				So(res.Cancelled(), ShouldBeTrue)
			})
		})

		Convey("When the runner panics", func() {
			job := StartJob(context.Background(), "backup", func(ctx context.Context, r Reporter) domain.Result {
				panic("boom")
			})
			events := collect(job)

			Convey("It should still finish exactly once with a failure", func() {
				So(len(events), ShouldEqual, 1)
				So(events[0].Type, ShouldEqual, domain.EventFinished)
				So(events[0].Result.Success, ShouldBeFalse)
				So(events[0].Message, ShouldContainSubstring, "boom")
			})
		})

		Convey("When Wait times out", func() {
			job := StartJob(context.Background(), "backup", func(ctx context.Context, r Reporter) domain.Result {
				<-ctx.Done()
				return domain.Result{Message: "cancelled", Err: checkpoint(ctx)}
			})
			ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
			defer cancel()
			res, err := job.Wait(ctx)

			Convey("It should cancel the job and return the context error", func() {
				So(err, ShouldEqual, context.DeadlineExceeded)
				So(res.Cancelled(), ShouldBeTrue)
			})
		})

		Convey("When nobody reads the events", func() {
			job := StartJob(context.Background(), "backup", func(ctx context.Context, r Reporter) domain.Result {
				for i := 0; i < 500; i++ {
					r.Status("tick")
				}
				return domain.Result{Success: true}
			})

			Convey("It should not block the runner and still deliver the terminal event", func() {
				finished := false
				select {
				case <-job.Done():
					finished = true
				case <-time.After(2 * time.Second):
				}
				So(finished, ShouldBeTrue)
				var last domain.Event
				for ev := range job.Events() {
					last = ev
				}
				So(last.Type, ShouldEqual, domain.EventFinished)
			})
		})
	})
}
