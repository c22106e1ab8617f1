package inmemory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dvloznov/ledgerchat/internal/jobs"
)

func TestStoreSaveAndGet(t *testing.T) {
	store := NewStore()
	job := &jobs.InsightJob{JobID: "j1", UserID: "user-1", Status: jobs.JobStatusPending}

	if err := store.SaveJob(context.Background(), job); err != nil {
		t.Fatalf("SaveJob error: %v", err)
	}

	got, err := store.GetJob(context.Background(), "j1")
	if err != nil {
		t.Fatalf("GetJob error: %v", err)
	}
	if got.UserID != "user-1" || got.Status != jobs.JobStatusPending {
		t.Errorf("GetJob = %+v", got)
	}

	// Mutating the returned copy must not affect the stored job.
	got.Status = jobs.JobStatusFailed
	again, _ := store.GetJob(context.Background(), "j1")
	if again.Status != jobs.JobStatusPending {
		t.Error("stored job mutated through a returned copy")
	}
}

func TestStoreGetMissing(t *testing.T) {
	store := NewStore()
	if _, err := store.GetJob(context.Background(), "nope"); !errors.Is(err, jobs.ErrJobNotFound) {
		t.Errorf("GetJob error = %v, want ErrJobNotFound", err)
	}
}

func TestStoreSaveRequiresID(t *testing.T) {
	store := NewStore()
	if err := store.SaveJob(context.Background(), &jobs.InsightJob{}); err == nil {
		t.Error("SaveJob accepted a job without an ID")
	}
}

func TestStoreListJobs(t *testing.T) {
	store := NewStore()
	base := time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)

	seed := []*jobs.InsightJob{
		{JobID: "j1", UserID: "user-1", Status: jobs.JobStatusCompleted, CreatedAt: base},
		{JobID: "j2", UserID: "user-1", Status: jobs.JobStatusPending, CreatedAt: base.Add(time.Minute)},
		{JobID: "j3", UserID: "user-2", Status: jobs.JobStatusPending, CreatedAt: base.Add(2 * time.Minute)},
	}
	for _, j := range seed {
		if err := store.SaveJob(context.Background(), j); err != nil {
			t.Fatalf("SaveJob error: %v", err)
		}
	}

	byUser, err := store.ListJobs(context.Background(), jobs.JobFilter{UserID: "user-1"})
	if err != nil {
		t.Fatalf("ListJobs error: %v", err)
	}
	if len(byUser) != 2 {
		t.Fatalf("ListJobs by user = %d jobs, want 2", len(byUser))
	}
	if byUser[0].JobID != "j2" {
		t.Errorf("jobs not newest first: %s", byUser[0].JobID)
	}

	pending, err := store.ListJobs(context.Background(), jobs.JobFilter{Status: jobs.JobStatusPending})
	if err != nil {
		t.Fatalf("ListJobs error: %v", err)
	}
	if len(pending) != 2 {
		t.Errorf("ListJobs by status = %d jobs, want 2", len(pending))
	}

	limited, err := store.ListJobs(context.Background(), jobs.JobFilter{Limit: 1})
	if err != nil {
		t.Fatalf("ListJobs error: %v", err)
	}
	if len(limited) != 1 || limited[0].JobID != "j3" {
		t.Errorf("ListJobs with limit = %+v", limited)
	}
}

func TestStoreUpdateJobStatus(t *testing.T) {
	store := NewStore()
	_ = store.SaveJob(context.Background(), &jobs.InsightJob{JobID: "j1", UserID: "user-1", Status: jobs.JobStatusPending})

	if err := store.UpdateJobStatus(context.Background(), "j1", jobs.JobStatusFailed, "boom"); err != nil {
		t.Fatalf("UpdateJobStatus error: %v", err)
	}

	got, _ := store.GetJob(context.Background(), "j1")
	if got.Status != jobs.JobStatusFailed || got.Error != "boom" {
		t.Errorf("job after update = %+v", got)
	}

	if err := store.UpdateJobStatus(context.Background(), "nope", jobs.JobStatusFailed, ""); !errors.Is(err, jobs.ErrJobNotFound) {
		t.Errorf("UpdateJobStatus error = %v, want ErrJobNotFound", err)
	}
}
