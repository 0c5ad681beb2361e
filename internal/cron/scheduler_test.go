package cron

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
)

type stubJob struct {
	name     string
	schedule string
	runs     int
	err      error
}

func (j *stubJob) Name() string     { return j.name }
func (j *stubJob) Schedule() string { return j.schedule }
func (j *stubJob) Run(context.Context) error {
	j.runs++
	return j.err
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestRegisterJobDuplicate(t *testing.T) {
	s := NewScheduler(testLogger())
	if err := s.RegisterJob(&stubJob{name: "prune", schedule: "* * * * *"}); err != nil {
		t.Fatalf("RegisterJob() error: %v", err)
	}
	if err := s.RegisterJob(&stubJob{name: "prune", schedule: "* * * * *"}); err == nil {
		t.Error("duplicate RegisterJob() = nil, want error")
	}
}

func TestStartRejectsInvalidSchedule(t *testing.T) {
	s := NewScheduler(testLogger())
	if err := s.RegisterJob(&stubJob{name: "bad", schedule: "not a schedule"}); err != nil {
		t.Fatalf("RegisterJob() error: %v", err)
	}
	if err := s.Start(); err == nil {
		t.Error("Start() with invalid schedule = nil, want error")
	}
}

func TestStartStop(t *testing.T) {
	s := NewScheduler(testLogger())
	if err := s.RegisterJob(&stubJob{name: "prune", schedule: "*/10 * * * *"}); err != nil {
		t.Fatalf("RegisterJob() error: %v", err)
	}
	if err := s.Start(); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	if err := s.Stop(context.Background()); err != nil {
		t.Fatalf("Stop() error: %v", err)
	}
}

func TestStopWithoutStart(t *testing.T) {
	s := NewScheduler(testLogger())
	if err := s.Stop(context.Background()); err != nil {
		t.Errorf("Stop() before Start() error: %v", err)
	}
}

func TestJobErrorDoesNotStopScheduler(t *testing.T) {
	// Error returns are logged, not propagated; Start/Stop still succeed.
	s := NewScheduler(testLogger())
	if err := s.RegisterJob(&stubJob{name: "flaky", schedule: "* * * * *", err: errors.New("boom")}); err != nil {
		t.Fatalf("RegisterJob() error: %v", err)
	}
	if err := s.Start(); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	if err := s.Stop(context.Background()); err != nil {
		t.Fatalf("Stop() error: %v", err)
	}
}
