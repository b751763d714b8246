package progress

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/gestaozabele/projetos/internal/repo"
)

type stubTaskStore struct {
	mu        sync.Mutex
	tasks     map[uuid.UUID]repo.Task
	order     []uuid.UUID
	filterErr error
	updateErr error
	filters   int
}

func newStubTaskStore(tasks ...repo.Task) *stubTaskStore {
	s := &stubTaskStore{tasks: make(map[uuid.UUID]repo.Task)}
	for _, task := range tasks {
		s.tasks[task.ID] = task
		s.order = append(s.order, task.ID)
	}
	return s
}

func (s *stubTaskStore) FindByID(ctx context.Context, id uuid.UUID) (*repo.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	task, ok := s.tasks[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	return &task, nil
}

func (s *stubTaskStore) Filter(ctx context.Context, filter repo.TaskFilter) ([]repo.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.filters++
	if s.filterErr != nil {
		return nil, s.filterErr
	}
	var out []repo.Task
	for _, id := range s.order {
		task := s.tasks[id]
		if filter.ProjectID != nil && task.ProjectID != *filter.ProjectID {
			continue
		}
		out = append(out, task)
	}
	return out, nil
}

func (s *stubTaskStore) Update(ctx context.Context, id uuid.UUID, patch repo.TaskPatch) (*repo.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.updateErr != nil {
		return nil, s.updateErr
	}
	task, ok := s.tasks[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	if patch.Status != nil {
		task.Status = *patch.Status
	}
	if patch.LastModifiedDate != nil {
		task.LastModifiedDate = *patch.LastModifiedDate
	}
	s.tasks[id] = task
	return &task, nil
}

type stubProjectStore struct {
	mu      sync.Mutex
	patches map[uuid.UUID][]repo.ProjectPatch
	err     error
}

func newStubProjectStore() *stubProjectStore {
	return &stubProjectStore{patches: make(map[uuid.UUID][]repo.ProjectPatch)}
}

func (s *stubProjectStore) Update(ctx context.Context, id uuid.UUID, patch repo.ProjectPatch) (*repo.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	s.patches[id] = append(s.patches[id], patch)
	project := repo.Project{ID: id}
	if patch.Progress != nil {
		project.Progress = *patch.Progress
	}
	return &project, nil
}

func (s *stubProjectStore) last(id uuid.UUID) (repo.ProjectPatch, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	patches := s.patches[id]
	if len(patches) == 0 {
		return repo.ProjectPatch{}, false
	}
	return patches[len(patches)-1], true
}

func newTestReconciler(tasks TaskStore, projects ProjectStore) *Reconciler {
	r := NewReconciler(tasks, projects, nil, nil, zerolog.Nop())
	r.now = func() time.Time { return time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC) }
	return r
}

func TestRecomputeProjectProgressScenario(t *testing.T) {
	projectID := uuid.New()
	tasks := newStubTaskStore(
		repo.Task{ID: uuid.New(), ProjectID: projectID, Status: repo.StatusDone},
		repo.Task{ID: uuid.New(), ProjectID: projectID, Status: repo.StatusDone},
		repo.Task{ID: uuid.New(), ProjectID: projectID, Status: repo.StatusPending},
		repo.Task{ID: uuid.New(), ProjectID: uuid.New(), Status: repo.StatusPending},
	)
	projects := newStubProjectStore()
	r := newTestReconciler(tasks, projects)

	pct, ok := r.RecomputeProjectProgress(context.Background(), projectID)
	if !ok {
		t.Fatalf("expected recompute to succeed")
	}
	if pct != 67 {
		t.Fatalf("expected 67 got %d", pct)
	}

	patch, ok := projects.last(projectID)
	if !ok || patch.Progress == nil || *patch.Progress != 67 {
		t.Fatalf("expected persisted progress 67 got %+v", patch)
	}
	if patch.LastModifiedDate == nil || !patch.LastModifiedDate.Equal(r.now()) {
		t.Fatalf("expected last modified date stamped")
	}
}

func TestRecomputeProjectProgressWithoutTasks(t *testing.T) {
	projectID := uuid.New()
	projects := newStubProjectStore()
	r := newTestReconciler(newStubTaskStore(), projects)

	pct, ok := r.RecomputeProjectProgress(context.Background(), projectID)
	if !ok || pct != 0 {
		t.Fatalf("expected 0 got %d (ok=%v)", pct, ok)
	}

	patch, _ := projects.last(projectID)
	if patch.Progress == nil || *patch.Progress != 0 {
		t.Fatalf("expected progress 0 persisted")
	}
	if patch.LastModifiedDate != nil {
		t.Fatalf("expected last modified date untouched for empty project")
	}
}

func TestRecomputeProjectProgressIsIdempotent(t *testing.T) {
	projectID := uuid.New()
	tasks := newStubTaskStore(
		repo.Task{ID: uuid.New(), ProjectID: projectID, Status: repo.StatusDone},
		repo.Task{ID: uuid.New(), ProjectID: projectID, Status: repo.StatusBlocked},
		repo.Task{ID: uuid.New(), ProjectID: projectID, Status: repo.StatusInProgress},
	)
	r := newTestReconciler(tasks, newStubProjectStore())

	first, ok1 := r.RecomputeProjectProgress(context.Background(), projectID)
	second, ok2 := r.RecomputeProjectProgress(context.Background(), projectID)
	if !ok1 || !ok2 || first != second {
		t.Fatalf("expected equal results got %d and %d", first, second)
	}
	if first != 33 {
		t.Fatalf("expected 33 got %d", first)
	}
}

func TestRecomputeProjectProgressFailures(t *testing.T) {
	projectID := uuid.New()

	t.Run("filter error", func(t *testing.T) {
		tasks := newStubTaskStore()
		tasks.filterErr = errors.New("db down")
		projects := newStubProjectStore()
		r := newTestReconciler(tasks, projects)

		if _, ok := r.RecomputeProjectProgress(context.Background(), projectID); ok {
			t.Fatalf("expected failure")
		}
		if _, wrote := projects.last(projectID); wrote {
			t.Fatalf("expected no project write")
		}
	})

	t.Run("write error", func(t *testing.T) {
		projects := newStubProjectStore()
		projects.err = errors.New("db down")
		r := newTestReconciler(newStubTaskStore(), projects)

		if _, ok := r.RecomputeProjectProgress(context.Background(), projectID); ok {
			t.Fatalf("expected failure")
		}
	})

	t.Run("nil project", func(t *testing.T) {
		r := newTestReconciler(newStubTaskStore(), newStubProjectStore())
		if _, ok := r.RecomputeProjectProgress(context.Background(), uuid.Nil); ok {
			t.Fatalf("expected failure")
		}
	})
}

func TestUpdateTaskStatus(t *testing.T) {
	projectID := uuid.New()
	target := repo.Task{ID: uuid.New(), ProjectID: projectID, Status: repo.StatusPending}
	tasks := newStubTaskStore(
		target,
		repo.Task{ID: uuid.New(), ProjectID: projectID, Status: repo.StatusDone},
	)
	projects := newStubProjectStore()
	r := newTestReconciler(tasks, projects)

	if !r.UpdateTaskStatus(context.Background(), target.ID, "concluída") {
		t.Fatalf("expected status update to succeed")
	}

	stored, _ := tasks.FindByID(context.Background(), target.ID)
	if stored.Status != repo.StatusDone {
		t.Fatalf("expected status %q got %q", repo.StatusDone, stored.Status)
	}
	if !stored.LastModifiedDate.Equal(r.now()) {
		t.Fatalf("expected task last modified date stamped")
	}

	patch, _ := projects.last(projectID)
	if patch.Progress == nil || *patch.Progress != 100 {
		t.Fatalf("expected progress 100 got %+v", patch.Progress)
	}
}

func TestUpdateTaskStatusMissingTask(t *testing.T) {
	tasks := newStubTaskStore()
	r := newTestReconciler(tasks, newStubProjectStore())

	if r.UpdateTaskStatus(context.Background(), uuid.New(), "concluída") {
		t.Fatalf("expected false for missing task")
	}
	if tasks.filters != 0 {
		t.Fatalf("expected recompute not to run got %d filters", tasks.filters)
	}
}

func TestUpdateTaskStatusInvalidInput(t *testing.T) {
	task := repo.Task{ID: uuid.New(), ProjectID: uuid.New(), Status: repo.StatusPending}
	tasks := newStubTaskStore(task)
	r := newTestReconciler(tasks, newStubProjectStore())

	tests := []struct {
		name   string
		id     uuid.UUID
		status string
	}{
		{"nil id", uuid.Nil, "concluída"},
		{"empty status", task.ID, "  "},
		{"unknown status", task.ID, "arquivada"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if r.UpdateTaskStatus(context.Background(), tt.id, tt.status) {
				t.Fatalf("expected false")
			}
		})
	}

	stored, _ := tasks.FindByID(context.Background(), task.ID)
	if stored.Status != repo.StatusPending {
		t.Fatalf("expected task untouched got %q", stored.Status)
	}
}

func TestUpdateTaskStatusLeavesStaleProgressOnRecomputeFailure(t *testing.T) {
	projectID := uuid.New()
	task := repo.Task{ID: uuid.New(), ProjectID: projectID, Status: repo.StatusPending}
	tasks := newStubTaskStore(task)
	projects := newStubProjectStore()
	projects.err = errors.New("db down")
	r := newTestReconciler(tasks, projects)

	if r.UpdateTaskStatus(context.Background(), task.ID, "done") {
		t.Fatalf("expected false when recompute fails")
	}

	stored, _ := tasks.FindByID(context.Background(), task.ID)
	if stored.Status != repo.StatusDone {
		t.Fatalf("expected task write to persist got %q", stored.Status)
	}
}

type recordingLocker struct {
	mu       sync.Mutex
	keys     []string
	released int
	err      error
}

func (l *recordingLocker) Lock(ctx context.Context, key string) (func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return nil, l.err
	}
	l.keys = append(l.keys, key)
	return func() {
		l.mu.Lock()
		l.released++
		l.mu.Unlock()
	}, nil
}

func TestRecomputeUsesLocker(t *testing.T) {
	projectID := uuid.New()
	locker := &recordingLocker{}
	r := NewReconciler(newStubTaskStore(), newStubProjectStore(), locker, nil, zerolog.Nop())

	if _, ok := r.RecomputeProjectProgress(context.Background(), projectID); !ok {
		t.Fatalf("expected success")
	}
	if len(locker.keys) != 1 || locker.keys[0] != projectID.String() || locker.released != 1 {
		t.Fatalf("unexpected lock usage keys=%v released=%d", locker.keys, locker.released)
	}

	locker.err = errors.New("busy")
	if _, ok := r.RecomputeProjectProgress(context.Background(), projectID); ok {
		t.Fatalf("expected failure when lock is unavailable")
	}
}

func TestPercentage(t *testing.T) {
	tests := []struct {
		done, total, want int
	}{
		{0, 0, 0},
		{0, 5, 0},
		{1, 3, 33},
		{2, 3, 67},
		{1, 2, 50},
		{1, 8, 13},
		{1, 200, 1},
		{1, 201, 0},
		{199, 200, 100},
		{3, 3, 100},
		{4, 3, 100},
	}

	for _, tt := range tests {
		if got := Percentage(tt.done, tt.total); got != tt.want {
			t.Fatalf("Percentage(%d, %d): expected %d got %d", tt.done, tt.total, tt.want, got)
		}
	}
}
