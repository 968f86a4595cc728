package app

import (
	"errors"
	"path/filepath"
	"reflect"
	"testing"

	"taskforge/model"
	"taskforge/store"
)

// memStore keeps the collection in memory and records every save, so tests
// can assert that mutations persist (or roll back when saving fails).
type memStore struct {
	saved   [][]model.Task
	loadErr error
	saveErr error
}

func (m *memStore) Load() ([]model.Task, error) {
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	if len(m.saved) == 0 {
		return []model.Task{}, nil
	}
	return m.saved[len(m.saved)-1], nil
}

func (m *memStore) Save(tasks []model.Task) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	snapshot := make([]model.Task, len(tasks))
	copy(snapshot, tasks)
	m.saved = append(m.saved, snapshot)
	return nil
}

func newTestService(t *testing.T) (*Service, *memStore) {
	t.Helper()
	ms := &memStore{}
	svc, err := NewService(ms)
	if err != nil {
		t.Fatalf("new service failed: %v", err)
	}
	return svc, ms
}

func mustAdd(t *testing.T, svc *Service, title, priority, due string) model.Task {
	t.Helper()
	task, err := svc.Add(title, priority, due)
	if err != nil {
		t.Fatalf("add %q failed: %v", title, err)
	}
	return task
}

func strptr(s string) *string { return &s }

func TestAddThenListIncludesNewTask(t *testing.T) {
	svc, ms := newTestService(t)

	task := mustAdd(t, svc, "Buy milk", "Low", "2024-01-10")
	if task.ID == "" {
		t.Fatalf("expected generated id")
	}
	if task.Completed {
		t.Fatalf("expected new task to be pending")
	}

	tasks := svc.Tasks()
	if len(tasks) != 1 {
		t.Fatalf("expected 1 task, got %d", len(tasks))
	}
	got := tasks[0]
	if got.Title != "Buy milk" || got.Priority != model.PriorityLow || got.DueDate.String() != "2024-01-10" {
		t.Fatalf("unexpected task fields: %+v", got)
	}

	if len(ms.saved) != 1 {
		t.Fatalf("expected exactly one persist after add, got %d", len(ms.saved))
	}
}

func TestAddValidationLeavesCollectionUnchanged(t *testing.T) {
	svc, ms := newTestService(t)
	mustAdd(t, svc, "Existing", "Medium", "2026-09-01")
	savesBefore := len(ms.saved)

	cases := []struct {
		name                 string
		title, priority, due string
		want                 error
	}{
		{"empty title", "   ", "Low", "2026-09-01", ErrEmptyTitle},
		{"bad priority", "x", "Urgent", "2026-09-01", ErrInvalidPriority},
		{"bad date", "x", "Low", "01/09/2026", ErrInvalidDueDate},
	}
	for _, tc := range cases {
		_, err := svc.Add(tc.title, tc.priority, tc.due)
		if !errors.Is(err, tc.want) {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, err)
		}
		if !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("%s: expected validation error family, got %v", tc.name, err)
		}
	}

	if got := len(svc.Tasks()); got != 1 {
		t.Fatalf("expected collection unchanged after rejected adds, got %d tasks", got)
	}
	if len(ms.saved) != savesBefore {
		t.Fatalf("expected no persist after rejected adds")
	}
}

func TestUpdateAppliesOnlySuppliedFields(t *testing.T) {
	svc, _ := newTestService(t)
	task := mustAdd(t, svc, "Draft report", "Low", "2026-09-01")

	updated, err := svc.Update(task.ID, Fields{Priority: strptr("high")})
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if updated.Priority != model.PriorityHigh {
		t.Fatalf("expected priority High, got %q", updated.Priority)
	}
	if updated.Title != "Draft report" || updated.DueDate.String() != "2026-09-01" {
		t.Fatalf("expected other fields untouched, got %+v", updated)
	}

	updated, err = svc.Update(task.ID, Fields{Title: strptr("Final report"), DueDate: strptr("2026-09-15")})
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if updated.Title != "Final report" || updated.DueDate.String() != "2026-09-15" {
		t.Fatalf("unexpected fields after update: %+v", updated)
	}
}

func TestUpdateValidatesBeforeMutating(t *testing.T) {
	svc, _ := newTestService(t)
	task := mustAdd(t, svc, "Draft report", "Low", "2026-09-01")

	// Valid title alongside an invalid date: nothing may change.
	_, err := svc.Update(task.ID, Fields{Title: strptr("Renamed"), DueDate: strptr("soon")})
	if !errors.Is(err, ErrInvalidDueDate) {
		t.Fatalf("expected ErrInvalidDueDate, got %v", err)
	}

	got, err := svc.Get(task.ID)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if !reflect.DeepEqual(task, got) {
		t.Fatalf("expected task unchanged after rejected update\nwant=%+v\ngot=%+v", task, got)
	}

	if _, err := svc.Update("missing", Fields{Title: strptr("x")}); !errors.Is(err, ErrTaskNotFound) {
		t.Fatalf("expected ErrTaskNotFound, got %v", err)
	}
}

func TestCompleteIsIdempotent(t *testing.T) {
	svc, ms := newTestService(t)
	task := mustAdd(t, svc, "Buy milk", "Low", "2024-01-10")

	done, err := svc.Complete(task.ID)
	if err != nil {
		t.Fatalf("complete failed: %v", err)
	}
	if !done.Completed {
		t.Fatalf("expected task completed")
	}
	savesAfterFirst := len(ms.saved)

	again, err := svc.Complete(task.ID)
	if err != nil {
		t.Fatalf("second complete failed: %v", err)
	}
	if !reflect.DeepEqual(done, again) {
		t.Fatalf("expected identical state after repeated complete")
	}
	if len(ms.saved) != savesAfterFirst {
		t.Fatalf("expected no extra persist for no-op complete")
	}

	if _, err := svc.Complete("missing"); !errors.Is(err, ErrTaskNotFound) {
		t.Fatalf("expected ErrTaskNotFound, got %v", err)
	}
}

func TestDeleteThenAnyOperationFails(t *testing.T) {
	svc, _ := newTestService(t)
	task := mustAdd(t, svc, "Buy milk", "Low", "2024-01-10")

	if err := svc.Delete(task.ID); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if got := len(svc.Tasks()); got != 0 {
		t.Fatalf("expected empty collection after delete, got %d", got)
	}

	if _, err := svc.Get(task.ID); !errors.Is(err, ErrTaskNotFound) {
		t.Fatalf("expected ErrTaskNotFound from get, got %v", err)
	}
	if _, err := svc.Update(task.ID, Fields{Title: strptr("x")}); !errors.Is(err, ErrTaskNotFound) {
		t.Fatalf("expected ErrTaskNotFound from update, got %v", err)
	}
	if _, err := svc.Complete(task.ID); !errors.Is(err, ErrTaskNotFound) {
		t.Fatalf("expected ErrTaskNotFound from complete, got %v", err)
	}
	if err := svc.Delete(task.ID); !errors.Is(err, ErrTaskNotFound) {
		t.Fatalf("expected ErrTaskNotFound from second delete, got %v", err)
	}
}

func TestFilterStatusPartitionsCollection(t *testing.T) {
	svc, _ := newTestService(t)
	a := mustAdd(t, svc, "A", "Low", "2026-09-01")
	b := mustAdd(t, svc, "B", "Medium", "2026-09-02")
	c := mustAdd(t, svc, "C", "High", "2026-09-03")
	if _, err := svc.Complete(b.ID); err != nil {
		t.Fatalf("complete failed: %v", err)
	}

	completed, err := svc.Filter(model.Criteria{Status: model.StatusCompleted})
	if err != nil {
		t.Fatalf("filter completed failed: %v", err)
	}
	pending, err := svc.Filter(model.Criteria{Status: model.StatusPending})
	if err != nil {
		t.Fatalf("filter pending failed: %v", err)
	}

	if len(completed) != 1 || completed[0].ID != b.ID {
		t.Fatalf("expected only B completed, got %+v", completed)
	}
	if len(pending) != 2 || pending[0].ID != a.ID || pending[1].ID != c.ID {
		t.Fatalf("expected A and C pending in order, got %+v", pending)
	}
	if len(completed)+len(pending) != len(svc.Tasks()) {
		t.Fatalf("expected status subsets to partition the collection")
	}
}

func TestFilterDueWindows(t *testing.T) {
	svc, _ := newTestService(t)
	today, _ := model.ParseDate("2026-08-26")
	svc.today = func() model.Date { return today }

	dueToday := mustAdd(t, svc, "today", "Low", "2026-08-26")
	dueEdge := mustAdd(t, svc, "edge", "Low", "2026-09-02")
	mustAdd(t, svc, "beyond", "Low", "2026-09-03")
	mustAdd(t, svc, "past", "Low", "2026-08-25")

	got, err := svc.Filter(model.Criteria{Due: model.DueToday})
	if err != nil {
		t.Fatalf("filter today failed: %v", err)
	}
	if len(got) != 1 || got[0].ID != dueToday.ID {
		t.Fatalf("expected only the due-today task, got %+v", got)
	}

	got, err = svc.Filter(model.Criteria{Due: model.DueThisWeek})
	if err != nil {
		t.Fatalf("filter week failed: %v", err)
	}
	if len(got) != 2 || got[0].ID != dueToday.ID || got[1].ID != dueEdge.ID {
		t.Fatalf("expected today and today+7 inside window, got %+v", got)
	}

	// Combined criteria AND together.
	if _, err := svc.Complete(dueToday.ID); err != nil {
		t.Fatalf("complete failed: %v", err)
	}
	got, err = svc.Filter(model.Criteria{Status: model.StatusPending, Due: model.DueThisWeek})
	if err != nil {
		t.Fatalf("combined filter failed: %v", err)
	}
	if len(got) != 1 || got[0].ID != dueEdge.ID {
		t.Fatalf("expected only pending in-window task, got %+v", got)
	}

	// Nothing matching is an empty sequence, not an error.
	got, err = svc.Filter(model.Criteria{Status: model.StatusCompleted, Due: model.DueThisWeek})
	if err != nil {
		t.Fatalf("filter failed: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected completed due-today task, got %+v", got)
	}

	if _, err := svc.Filter(model.Criteria{Status: "Archived"}); !errors.Is(err, ErrInvalidStatus) {
		t.Fatalf("expected ErrInvalidStatus, got %v", err)
	}
	if _, err := svc.Filter(model.Criteria{Due: "NextMonth"}); !errors.Is(err, ErrInvalidDueWindow) {
		t.Fatalf("expected ErrInvalidDueWindow, got %v", err)
	}
}

func TestSaveFailureRollsBackMutation(t *testing.T) {
	svc, ms := newTestService(t)
	task := mustAdd(t, svc, "Keep me", "Low", "2026-09-01")

	ms.saveErr = errors.New("disk full")

	if _, err := svc.Add("New", "Low", "2026-09-02"); err == nil {
		t.Fatalf("expected save error from add")
	}
	if _, err := svc.Complete(task.ID); err == nil {
		t.Fatalf("expected save error from complete")
	}
	if err := svc.Delete(task.ID); err == nil {
		t.Fatalf("expected save error from delete")
	}
	if _, err := svc.Update(task.ID, Fields{Title: strptr("Renamed")}); err == nil {
		t.Fatalf("expected save error from update")
	}

	tasks := svc.Tasks()
	if len(tasks) != 1 || !reflect.DeepEqual(tasks[0], task) {
		t.Fatalf("expected in-memory collection rolled back, got %+v", tasks)
	}
}

func TestUniqueIDsAcrossAdds(t *testing.T) {
	svc, _ := newTestService(t)
	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		task := mustAdd(t, svc, "task", "Low", "2026-09-01")
		if seen[task.ID] {
			t.Fatalf("duplicate id generated: %s", task.ID)
		}
		seen[task.ID] = true
	}
}

func TestWorkedExampleEndToEnd(t *testing.T) {
	dir := t.TempDir()
	fs := store.NewFileStore(filepath.Join(dir, "tasks.json"))
	svc, err := NewService(fs)
	if err != nil {
		t.Fatalf("new service failed: %v", err)
	}

	task := mustAdd(t, svc, "Buy milk", "Low", "2024-01-10")

	// A fresh service over the same file sees the persisted task.
	reloaded, err := NewService(fs)
	if err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	tasks := reloaded.Tasks()
	if len(tasks) != 1 || tasks[0].ID != task.ID || tasks[0].Completed {
		t.Fatalf("expected persisted pending task, got %+v", tasks)
	}

	if _, err := reloaded.Complete(task.ID); err != nil {
		t.Fatalf("complete failed: %v", err)
	}
	if got := reloaded.Tasks(); !got[0].Completed {
		t.Fatalf("expected task completed after complete")
	}

	if err := reloaded.Delete(task.ID); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if got := reloaded.Tasks(); len(got) != 0 {
		t.Fatalf("expected empty list after delete, got %+v", got)
	}

	final, err := fs.Load()
	if err != nil {
		t.Fatalf("final load failed: %v", err)
	}
	if len(final) != 0 {
		t.Fatalf("expected empty persisted collection, got %+v", final)
	}
}
