package agerecon

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/burgas/gymhub/internal/repository"
)

// mockAgeStore はEmployeeAgeStoreのモック実装。
type mockAgeStore struct {
	records    []repository.EmployeeAgeRecord
	listErr    error
	updateErr  error
	updated    map[string]int
	updateCall int
}

func (m *mockAgeStore) ListAgeRecords(ctx context.Context) ([]repository.EmployeeAgeRecord, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	return m.records, nil
}

func (m *mockAgeStore) UpdateAges(ctx context.Context, ages map[string]int) error {
	m.updateCall++
	m.updated = ages
	return m.updateErr
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func newTestJob(store *mockAgeStore, now time.Time) *Job {
	job := NewJob(store, testLogger())
	job.now = func() time.Time { return now }
	return job
}

func date(y, m, d int) time.Time {
	return time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
}

func TestRunOnce_CorrectsOnlyDriftedRows(t *testing.T) {
	// 基準日 2025-08-01 時点:
	//   emp-1: 1990-09-15生まれ → 34歳（誕生日未到来）、保存値33 → 補正対象
	//   emp-2: 2000-01-10生まれ → 25歳、保存値25 → 補正不要
	store := &mockAgeStore{
		records: []repository.EmployeeAgeRecord{
			{ID: "emp-1", Birthday: date(1990, 9, 15), Age: 33},
			{ID: "emp-2", Birthday: date(2000, 1, 10), Age: 25},
		},
	}
	job := newTestJob(store, date(2025, 8, 1))

	if err := job.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}

	if store.updateCall != 1 {
		t.Fatalf("UpdateAges called %d times, want 1", store.updateCall)
	}
	if len(store.updated) != 1 {
		t.Fatalf("corrected %d rows, want 1: %v", len(store.updated), store.updated)
	}
	if got := store.updated["emp-1"]; got != 34 {
		t.Errorf("corrected age = %d, want 34", got)
	}
}

func TestRunOnce_NoDriftSkipsUpdate(t *testing.T) {
	store := &mockAgeStore{
		records: []repository.EmployeeAgeRecord{
			{ID: "emp-1", Birthday: date(1990, 9, 15), Age: 34},
		},
	}
	job := newTestJob(store, date(2025, 8, 1))

	if err := job.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}

	if store.updateCall != 0 {
		t.Errorf("UpdateAges must not run when nothing drifted, called %d times", store.updateCall)
	}
}

func TestRunOnce_EmptyEmployeeSetIsNoop(t *testing.T) {
	store := &mockAgeStore{}
	job := newTestJob(store, date(2025, 8, 1))

	if err := job.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce with no employees: %v", err)
	}
	if store.updateCall != 0 {
		t.Error("UpdateAges must not run for an empty set")
	}
}

func TestRunOnce_PropagatesStoreErrors(t *testing.T) {
	store := &mockAgeStore{listErr: errors.New("connection refused")}
	job := newTestJob(store, date(2025, 8, 1))

	if err := job.RunOnce(context.Background()); err == nil {
		t.Fatal("expected list error to propagate")
	}

	store = &mockAgeStore{
		records:   []repository.EmployeeAgeRecord{{ID: "emp-1", Birthday: date(1990, 9, 15), Age: 1}},
		updateErr: errors.New("deadlock detected"),
	}
	job = newTestJob(store, date(2025, 8, 1))

	if err := job.RunOnce(context.Background()); err == nil {
		t.Fatal("expected update error to propagate")
	}
}

func TestStart_StopsOnContextCancel(t *testing.T) {
	store := &mockAgeStore{}
	job := newTestJob(store, date(2025, 8, 1))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		job.Start(ctx, time.Hour)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Start did not return after context cancellation")
	}
}
