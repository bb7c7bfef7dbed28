package ledger

import (
	"context"
	"testing"
	"time"

	"transcribeAnything/internal/models"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func makeSubmission(jobID string, status models.SubmissionStatus, at time.Time) *models.Submission {
	return &models.Submission{
		JobID:       jobID,
		Kind:        models.InputURL,
		InputSource: "https://example.com/" + jobID,
		Status:      status,
		CreatedAt:   at,
	}
}

func TestRecordAssignsID(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	sub := makeSubmission("talk_20240101-000000", models.StatusDispatched, time.Now().UTC())
	if err := store.Record(ctx, sub); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if sub.ID == "" {
		t.Fatal("Record did not assign an ID")
	}

	got, err := store.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("Recent len = %d, want 1", len(got))
	}
	if got[0].ID != sub.ID || got[0].JobID != sub.JobID || got[0].Status != models.StatusDispatched {
		t.Errorf("got %+v", got[0])
	}
	if got[0].Kind != models.InputURL || got[0].InputSource != sub.InputSource {
		t.Errorf("input = %s %q", got[0].Kind, got[0].InputSource)
	}
}

func TestRecordKeepsDuplicateJobIDs(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	now := time.Now().UTC()

	for i := 0; i < 2; i++ {
		if err := store.Record(ctx, makeSubmission("same_20240101-000000", models.StatusDispatched, now)); err != nil {
			t.Fatalf("Record %d: %v", i, err)
		}
	}
	got, err := store.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("Recent len = %d, want 2", len(got))
	}
}

func TestRecentOrderAndLimit(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	for i, id := range []string{"a", "b", "c"} {
		if err := store.Record(ctx, makeSubmission(id, models.StatusDispatched, base.Add(time.Duration(i)*time.Hour))); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}

	got, err := store.Recent(ctx, 2)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Recent len = %d, want 2", len(got))
	}
	if got[0].JobID != "c" || got[1].JobID != "b" {
		t.Errorf("order = %s,%s want c,b", got[0].JobID, got[1].JobID)
	}
}

func TestRecordFailureDetails(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	sub := makeSubmission("x", models.StatusFailed, time.Now().UTC())
	sub.Step = "start"
	sub.Error = "quota exceeded"
	if err := store.Record(ctx, sub); err != nil {
		t.Fatalf("Record: %v", err)
	}
	got, err := store.Recent(ctx, 1)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if got[0].Status != models.StatusFailed || got[0].Step != "start" || got[0].Error != "quota exceeded" {
		t.Errorf("got %+v", got[0])
	}
}

func TestPrune(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	now := time.Now().UTC()

	old := makeSubmission("old", models.StatusDispatched, now.Add(-48*time.Hour))
	fresh := makeSubmission("fresh", models.StatusDispatched, now)
	for _, s := range []*models.Submission{old, fresh} {
		if err := store.Record(ctx, s); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}

	n, err := store.Prune(ctx, now.Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}
	if n != 1 {
		t.Errorf("pruned %d, want 1", n)
	}

	got, _ := store.Recent(ctx, 10)
	if len(got) != 1 || got[0].JobID != "fresh" {
		t.Errorf("remaining = %+v", got)
	}
}

func TestRecentEmpty(t *testing.T) {
	store := newTestStore(t)
	got, err := store.Recent(context.Background(), 0)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("Recent = %+v, want empty", got)
	}
}
