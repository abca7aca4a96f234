package scheduler

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"
)

type countingTask struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (c *countingTask) run(context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	if c.err != nil {
		return "", c.err
	}
	return "done", nil
}

func (c *countingTask) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

func TestAddJobValidation(t *testing.T) {
	s := New(nil)
	task := (&countingTask{}).run

	if err := s.AddJob("", "@daily", task); err == nil {
		t.Error("expected error for empty name")
	}
	if err := s.AddJob("x", "@daily", nil); err == nil {
		t.Error("expected error for nil task")
	}
	if err := s.AddJob("x", "every now and then", task); err == nil {
		t.Error("expected error for bad schedule")
	}
	if err := s.AddJob("x", "0 3 * * *", task); err != nil {
		t.Fatalf("AddJob: %v", err)
	}
	if err := s.AddJob("x", "@hourly", task); err == nil {
		t.Error("expected error for duplicate job")
	}
	if len(s.ListJobs()) != 1 {
		t.Errorf("jobs = %d, want 1", len(s.ListJobs()))
	}
}

func TestJobFiresOnSchedule(t *testing.T) {
	s := New(nil)
	task := &countingTask{}
	if err := s.AddJob("tick", "@every 1s", task.run); err != nil {
		t.Fatal(err)
	}
	s.Start()
	defer s.Stop()

	deadline := time.Now().Add(3 * time.Second)
	for task.count() == 0 && time.Now().Before(deadline) {
		time.Sleep(50 * time.Millisecond)
	}
	if task.count() == 0 {
		t.Fatal("job never ran")
	}
	job, _ := s.GetJob("tick")
	if job.Runs == 0 || job.LastResult != "done" || job.LastRun.IsZero() {
		t.Errorf("job state = %+v", job)
	}
}

func TestPausedJobSkipsScheduledRuns(t *testing.T) {
	s := New(nil)
	task := &countingTask{}
	if err := s.AddJob("tick", "@every 1s", task.run); err != nil {
		t.Fatal(err)
	}
	if err := s.PauseJob("tick"); err != nil {
		t.Fatal(err)
	}
	s.Start()
	time.Sleep(1500 * time.Millisecond)
	s.Stop()

	if task.count() != 0 {
		t.Errorf("paused job ran %d times", task.count())
	}
	if err := s.ResumeJob("tick"); err != nil {
		t.Fatal(err)
	}
	if err := s.ResumeJob("tick"); err == nil {
		t.Error("expected error resuming a running job")
	}
}

func TestRunNowRecordsError(t *testing.T) {
	s := New(nil)
	task := &countingTask{err: errors.New("db locked")}
	if err := s.AddJob("prune", "@daily", task.run); err != nil {
		t.Fatal(err)
	}
	job, err := s.RunNow(context.Background(), "prune")
	if err != nil {
		t.Fatal(err)
	}
	if job.LastError != "db locked" || job.Runs != 1 {
		t.Errorf("job = %+v", job)
	}
}

func TestUnknownJob(t *testing.T) {
	s := New(nil)
	for name, err := range map[string]error{
		"pause":  s.PauseJob("nope"),
		"resume": s.ResumeJob("nope"),
		"remove": s.RemoveJob("nope"),
	} {
		if !errors.Is(err, ErrJobNotFound) {
			t.Errorf("%s: err = %v, want ErrJobNotFound", name, err)
		}
	}
	if _, err := s.RunNow(context.Background(), "nope"); !errors.Is(err, ErrJobNotFound) {
		t.Errorf("RunNow err = %v", err)
	}
}

func TestRemoveJob(t *testing.T) {
	s := New(nil)
	if err := s.AddJob("a", "@daily", (&countingTask{}).run); err != nil {
		t.Fatal(err)
	}
	if err := s.RemoveJob("a"); err != nil {
		t.Fatal(err)
	}
	if _, ok := s.GetJob("a"); ok {
		t.Error("job should be gone")
	}
}

func TestNextRun(t *testing.T) {
	s := New(nil)
	if err := s.AddJob("a", "@hourly", (&countingTask{}).run); err != nil {
		t.Fatal(err)
	}
	s.Start()
	defer s.Stop()
	next, ok := s.NextRun("a")
	if !ok || next.IsZero() || next.Before(time.Now()) {
		t.Errorf("NextRun = %v, %v", next, ok)
	}
}

type fakePruner struct {
	cutoff time.Time
	n      int64
	err    error
}

func (f *fakePruner) PruneBefore(_ context.Context, cutoff time.Time) (int64, error) {
	f.cutoff = cutoff
	return f.n, f.err
}

func TestArchiveJanitor(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	p := &fakePruner{n: 7}
	task := ArchiveJanitor(p, 48*time.Hour, func() time.Time { return now })

	out, err := task(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if want := now.Add(-48 * time.Hour); !p.cutoff.Equal(want) {
		t.Errorf("cutoff = %v, want %v", p.cutoff, want)
	}
	if !strings.HasPrefix(out, "pruned 7 runs") {
		t.Errorf("result = %q", out)
	}

	p.err = errors.New("disk full")
	if _, err := task(context.Background()); err == nil || !strings.Contains(err.Error(), "disk full") {
		t.Errorf("err = %v", err)
	}
}
