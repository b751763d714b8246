// Package monitor varre periodicamente os projetos e corrige progresso divergente das tarefas.
package monitor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/gestaozabele/projetos/internal/repo"
)

// ProjectLister lista todos os projetos.
type ProjectLister interface {
	List(ctx context.Context) ([]repo.Project, error)
}

// Recomputer recalcula o progresso de um projeto.
type Recomputer interface {
	RecomputeProjectProgress(ctx context.Context, projectID uuid.UUID) (int, bool)
}

// Config controla a varredura. Interval zero desabilita o loop.
type Config struct {
	Interval    time.Duration
	Concurrency int
}

// Summary resume uma varredura.
type Summary struct {
	RanAt     time.Time   `json:"ran_at"`
	Checked   int         `json:"checked"`
	Corrected []Drift     `json:"corrected"`
	Failed    []uuid.UUID `json:"failed"`
}

// Drift registra um projeto cujo progresso gravado divergia do recalculado.
type Drift struct {
	ProjectID uuid.UUID `json:"project_id"`
	Stored    int       `json:"stored"`
	Computed  int       `json:"computed"`
}

// Service executa varreduras periódicas de progresso.
type Service struct {
	projects   ProjectLister
	reconciler Recomputer
	cfg        Config
	notifier   Notifier
	logger     zerolog.Logger
	now        func() time.Time

	once   sync.Once
	cancel context.CancelFunc

	mu   sync.RWMutex
	last *Summary
}

// NewService cria o serviço. notifier pode ser nil.
func NewService(projects ProjectLister, reconciler Recomputer, cfg Config, logger zerolog.Logger, notifier Notifier) *Service {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	return &Service{
		projects:   projects,
		reconciler: reconciler,
		cfg:        cfg,
		notifier:   notifier,
		logger:     logger,
		now:        time.Now,
	}
}

// Start inicia loop periódico. Pode ser chamado mais de uma vez.
func (s *Service) Start(parent context.Context) {
	if s.cfg.Interval <= 0 {
		return
	}
	s.once.Do(func() {
		ctx, cancel := context.WithCancel(parent)
		s.cancel = cancel
		go s.runLoop(ctx)
	})
}

// Stop encerra loop periódico.
func (s *Service) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
}

func (s *Service) runLoop(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	s.logger.Info().Dur("interval", s.cfg.Interval).Msg("monitor: loop iniciado")

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("monitor: loop encerrado")
			return
		case <-ticker.C:
			if _, err := s.RunOnce(ctx); err != nil {
				s.logger.Error().Err(err).Msg("monitor: varredura falhou")
			}
		}
	}
}

// RunOnce recalcula o progresso de todos os projetos e reporta divergências.
func (s *Service) RunOnce(ctx context.Context) (*Summary, error) {
	projects, err := s.projects.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("listar projetos: %w", err)
	}

	var (
		mu      sync.Mutex
		summary = &Summary{RanAt: s.now().UTC(), Checked: len(projects)}
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Concurrency)
	for _, project := range projects {
		project := project
		g.Go(func() error {
			computed, ok := s.reconciler.RecomputeProjectProgress(gctx, project.ID)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case !ok:
				summary.Failed = append(summary.Failed, project.ID)
			case computed != project.Progress:
				summary.Corrected = append(summary.Corrected, Drift{ProjectID: project.ID, Stored: project.Progress, Computed: computed})
			}
			return nil
		})
	}
	_ = g.Wait()

	s.mu.Lock()
	s.last = summary
	s.mu.Unlock()

	s.logger.Info().
		Int("checked", summary.Checked).
		Int("corrected", len(summary.Corrected)).
		Int("failed", len(summary.Failed)).
		Msg("monitor: varredura concluída")

	s.report(ctx, summary)
	return summary, nil
}

// LastSummary devolve o resultado da última varredura, ou nil.
func (s *Service) LastSummary() *Summary {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.last
}

func (s *Service) report(ctx context.Context, summary *Summary) {
	if s.notifier == nil || (len(summary.Corrected) == 0 && len(summary.Failed) == 0) {
		return
	}
	if err := s.notifier.NotifyDrift(ctx, summary); err != nil {
		s.logger.Error().Err(err).Msg("monitor: falha ao enviar alerta")
	}
}
