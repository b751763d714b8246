package monitor

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/gestaozabele/projetos/internal/repo"
)

type stubLister struct {
	projects []repo.Project
	err      error
}

func (s stubLister) List(ctx context.Context) ([]repo.Project, error) {
	return s.projects, s.err
}

type stubRecomputer struct {
	mu      sync.Mutex
	results map[uuid.UUID]int
	calls   int
}

func (s *stubRecomputer) RecomputeProjectProgress(ctx context.Context, id uuid.UUID) (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	pct, ok := s.results[id]
	return pct, ok
}

type recordingNotifier struct {
	summaries []*Summary
}

func (n *recordingNotifier) NotifyDrift(ctx context.Context, summary *Summary) error {
	n.summaries = append(n.summaries, summary)
	return nil
}

func TestRunOnceReportsDrift(t *testing.T) {
	inSync := repo.Project{ID: uuid.New(), Progress: 50}
	drifted := repo.Project{ID: uuid.New(), Progress: 33}
	broken := repo.Project{ID: uuid.New(), Progress: 10}

	recomputer := &stubRecomputer{results: map[uuid.UUID]int{inSync.ID: 50, drifted.ID: 67}}
	notifier := &recordingNotifier{}
	svc := NewService(stubLister{projects: []repo.Project{inSync, drifted, broken}}, recomputer, Config{}, zerolog.Nop(), notifier)

	summary, err := svc.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary.Checked != 3 || recomputer.calls != 3 {
		t.Fatalf("expected 3 checks got %d (calls %d)", summary.Checked, recomputer.calls)
	}
	if len(summary.Corrected) != 1 || summary.Corrected[0].ProjectID != drifted.ID || summary.Corrected[0].Computed != 67 {
		t.Fatalf("unexpected corrections %+v", summary.Corrected)
	}
	if len(summary.Failed) != 1 || summary.Failed[0] != broken.ID {
		t.Fatalf("unexpected failures %+v", summary.Failed)
	}
	if svc.LastSummary() != summary {
		t.Fatalf("expected last summary stored")
	}
	if len(notifier.summaries) != 1 || notifier.summaries[0] != summary {
		t.Fatalf("unexpected notifications %+v", notifier.summaries)
	}
}

func TestRunOnceQuietWhenInSync(t *testing.T) {
	p := repo.Project{ID: uuid.New(), Progress: 0}
	notifier := &recordingNotifier{}
	svc := NewService(stubLister{projects: []repo.Project{p}}, &stubRecomputer{results: map[uuid.UUID]int{p.ID: 0}}, Config{}, zerolog.Nop(), notifier)

	if _, err := svc.RunOnce(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(notifier.summaries) != 0 {
		t.Fatalf("expected no notification")
	}
}

func TestRunOnceListError(t *testing.T) {
	svc := NewService(stubLister{err: errors.New("db down")}, &stubRecomputer{}, Config{}, zerolog.Nop(), nil)
	if _, err := svc.RunOnce(context.Background()); err == nil {
		t.Fatalf("expected error")
	}
	if svc.LastSummary() != nil {
		t.Fatalf("expected no summary")
	}
}

func TestStartDisabledWithoutInterval(t *testing.T) {
	svc := NewService(stubLister{}, &stubRecomputer{}, Config{}, zerolog.Nop(), nil)
	svc.Start(context.Background())
	svc.Stop()
	if svc.cancel != nil {
		t.Fatalf("expected loop not started")
	}
}

func TestWebhookNotifierListsProjects(t *testing.T) {
	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	drifted, broken := uuid.New(), uuid.New()
	summary := &Summary{
		Checked:   3,
		Corrected: []Drift{{ProjectID: drifted, Stored: 33, Computed: 67}},
		Failed:    []uuid.UUID{broken},
	}

	if err := NewWebhookNotifier(srv.URL).NotifyDrift(context.Background(), summary); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	text := got["text"]
	if !strings.HasPrefix(text, ":rotating_light: *Progresso de projetos* 1 de 3 corrigidos, 1 falhas") {
		t.Fatalf("unexpected header %q", text)
	}
	if !strings.Contains(text, drifted.String()+": 33% → 67%") {
		t.Fatalf("expected drifted project in %q", text)
	}
	if !strings.Contains(text, broken.String()+": falha no recálculo") {
		t.Fatalf("expected failed project in %q", text)
	}

	if NewWebhookNotifier("") != nil {
		t.Fatalf("expected nil notifier without url")
	}
}

func TestDriftReportTruncates(t *testing.T) {
	summary := &Summary{Checked: maxReportLines + 5}
	for i := 0; i < maxReportLines+5; i++ {
		summary.Corrected = append(summary.Corrected, Drift{ProjectID: uuid.New(), Stored: 0, Computed: 10})
	}

	text := driftReport(summary)
	if !strings.HasPrefix(text, ":warning:") {
		t.Fatalf("expected warning without failures got %q", text)
	}
	if n := strings.Count(text, "\n• "); n != maxReportLines {
		t.Fatalf("expected %d lines got %d", maxReportLines, n)
	}
	if !strings.HasSuffix(text, "e mais 5") {
		t.Fatalf("expected truncation marker in %q", text)
	}
}

func TestWebhookNotifierFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	if err := NewWebhookNotifier(srv.URL).NotifyDrift(context.Background(), &Summary{Failed: []uuid.UUID{uuid.New()}}); err == nil {
		t.Fatalf("expected error on non-2xx")
	}
}
