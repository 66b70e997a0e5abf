package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/mkasimov/beat808-backend/pkg/logger"
)

type stubLock struct {
	held     bool
	acquires int
	releases int
}

func (l *stubLock) Acquire(context.Context) (bool, error) {
	l.acquires++
	if l.held {
		return false, nil
	}
	l.held = true
	return true, nil
}

func (l *stubLock) Release(context.Context) error {
	l.releases++
	l.held = false
	return nil
}

type stubJob struct {
	name string
	runs int
	err  error
}

func (j *stubJob) Name() string { return j.name }

func (j *stubJob) Run(context.Context) error {
	j.runs++
	return j.err
}

func testCronLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "cron-test", Level: zerolog.Disabled})
}

func TestRunnerRunsJobsUnderLock(t *testing.T) {
	lock := &stubLock{}
	job := &stubJob{name: "sweep"}
	runner, err := NewRunner(RunnerParams{
		Logger: testCronLogger(),
		Jobs:   []Job{job},
		Lock:   lock,
	})
	if err != nil {
		t.Fatalf("NewRunner: %v", err)
	}

	if err := runner.runCycle(context.Background()); err != nil {
		t.Fatalf("runCycle: %v", err)
	}
	if job.runs != 1 {
		t.Fatalf("job runs = %d, want 1", job.runs)
	}
	if lock.acquires != 1 || lock.releases != 1 {
		t.Fatalf("lock acquires/releases = %d/%d, want 1/1", lock.acquires, lock.releases)
	}
}

func TestRunnerSkipsCycleWhenLockHeld(t *testing.T) {
	lock := &stubLock{held: true}
	job := &stubJob{name: "sweep"}
	runner, err := NewRunner(RunnerParams{
		Logger: testCronLogger(),
		Jobs:   []Job{job},
		Lock:   lock,
	})
	if err != nil {
		t.Fatalf("NewRunner: %v", err)
	}

	if err := runner.runCycle(context.Background()); err != nil {
		t.Fatalf("runCycle: %v", err)
	}
	if job.runs != 0 {
		t.Fatal("job must not run while another worker holds the lock")
	}
	if lock.releases != 0 {
		t.Fatal("runner must not release a lock it never acquired")
	}
}

func TestRunnerContinuesPastFailingJob(t *testing.T) {
	failing := &stubJob{name: "first", err: errors.New("boom")}
	healthy := &stubJob{name: "second"}
	runner, err := NewRunner(RunnerParams{
		Logger: testCronLogger(),
		Jobs:   []Job{failing, healthy},
		Lock:   &stubLock{},
	})
	if err != nil {
		t.Fatalf("NewRunner: %v", err)
	}

	err = runner.runCycle(context.Background())
	if err == nil {
		t.Fatal("expected the failing job's error to surface")
	}
	if healthy.runs != 1 {
		t.Fatal("a failing job must not stop later jobs in the cycle")
	}
}

func TestRunnerStopsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	runner, err := NewRunner(RunnerParams{
		Logger:   testCronLogger(),
		Jobs:     []Job{&stubJob{name: "sweep"}},
		Lock:     &stubLock{},
		Interval: 10 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("NewRunner: %v", err)
	}

	done := make(chan error, 1)
	go func() { done <- runner.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("Run returned %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("runner did not stop after cancel")
	}
}

func TestNewRunnerValidatesParams(t *testing.T) {
	if _, err := NewRunner(RunnerParams{Lock: &stubLock{}}); err == nil {
		t.Fatal("expected error without a logger")
	}
	if _, err := NewRunner(RunnerParams{Logger: testCronLogger()}); err == nil {
		t.Fatal("expected error without a lock")
	}
}
