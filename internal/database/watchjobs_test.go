package database

import (
	"context"
	"errors"
	"testing"
)

func TestWatchjobs(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	ctx := context.Background()

	first, err := db.AddWatchjob(ctx, `{"street":"Brunnsgatan 1"}`)
	if err != nil {
		t.Fatalf("AddWatchjob failed: %v", err)
	}
	if first.LastCaseID != "" {
		t.Errorf("new watchjob must have no watermark, got %q", first.LastCaseID)
	}
	if first.CreatedAt.IsZero() {
		t.Error("expected created_at to be set")
	}
	second, err := db.AddWatchjob(ctx, `{"property":"Kv Tegelbruket 1:1"}`)
	if err != nil {
		t.Fatalf("AddWatchjob failed: %v", err)
	}

	if err := db.SetLastCaseID(ctx, first.ID, "2024-00123"); err != nil {
		t.Fatalf("SetLastCaseID failed: %v", err)
	}
	got, err := db.Watchjob(ctx, first.ID)
	if err != nil {
		t.Fatalf("Watchjob failed: %v", err)
	}
	if got.LastCaseID != "2024-00123" {
		t.Errorf("expected watermark 2024-00123, got %q", got.LastCaseID)
	}

	jobs, err := db.Watchjobs(ctx)
	if err != nil {
		t.Fatalf("Watchjobs failed: %v", err)
	}
	if len(jobs) != 2 || jobs[0].ID != first.ID || jobs[1].ID != second.ID {
		t.Errorf("unexpected watchjobs %+v", jobs)
	}

	if err := db.RemoveWatchjob(ctx, first.ID); err != nil {
		t.Fatalf("RemoveWatchjob failed: %v", err)
	}
	if _, err := db.Watchjob(ctx, first.ID); !errors.Is(err, ErrWatchjobNotFound) {
		t.Errorf("expected ErrWatchjobNotFound, got %v", err)
	}
	if err := db.RemoveWatchjob(ctx, first.ID); !errors.Is(err, ErrWatchjobNotFound) {
		t.Errorf("expected ErrWatchjobNotFound on second remove, got %v", err)
	}
	if err := db.SetLastCaseID(ctx, 999, "x"); !errors.Is(err, ErrWatchjobNotFound) {
		t.Errorf("expected ErrWatchjobNotFound, got %v", err)
	}
}

func TestWatchjobs_Empty(t *testing.T) {
	t.Parallel()

	jobs, err := setupTestDB(t).Watchjobs(context.Background())
	if err != nil {
		t.Fatalf("Watchjobs failed: %v", err)
	}
	if jobs == nil || len(jobs) != 0 {
		t.Errorf("expected empty non-nil slice, got %#v", jobs)
	}
}
