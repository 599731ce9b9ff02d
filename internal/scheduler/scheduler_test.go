package scheduler

import (
	"errors"
	"testing"
)

func TestAddJobValidation(t *testing.T) {
	service, err := New()
	if err != nil {
		t.Fatalf("create scheduler: %v", err)
	}
	defer service.Stop()

	if _, err := service.AddJob("", "* * * * *", func() {}); !errors.Is(err, ErrEmptyJobName) {
		t.Fatalf("expected ErrEmptyJobName, got %v", err)
	}
	if _, err := service.AddJob("prune", "", func() {}); !errors.Is(err, ErrEmptyCronExpr) {
		t.Fatalf("expected ErrEmptyCronExpr, got %v", err)
	}
	if _, err := service.AddJob("prune", "not a cron expr", func() {}); err == nil {
		t.Fatal("expected error for invalid cron expression")
	}

	job, err := service.AddJob("prune", "*/15 * * * *", func() {})
	if err != nil {
		t.Fatalf("register job: %v", err)
	}
	if job.Name() != "prune" {
		t.Fatalf("unexpected job name %q", job.Name())
	}
}

func TestStopIsIdempotent(t *testing.T) {
	service, err := New()
	if err != nil {
		t.Fatalf("create scheduler: %v", err)
	}

	if err := service.Stop(); err != nil {
		t.Fatalf("first stop: %v", err)
	}
	if err := service.Stop(); err != nil {
		t.Fatalf("second stop: %v", err)
	}
}

func TestNilServiceGuards(t *testing.T) {
	var service *Service

	if err := service.Stop(); !errors.Is(err, ErrNotInitialized) {
		t.Fatalf("expected ErrNotInitialized, got %v", err)
	}
	if _, err := service.AddJob("prune", "* * * * *", func() {}); !errors.Is(err, ErrNotInitialized) {
		t.Fatalf("expected ErrNotInitialized, got %v", err)
	}
}
