// Package progress mantém o progresso agregado do projeto coerente com o status das tarefas.
//
// A atualização de status e o recálculo não são atômicos: uma falha entre as duas escritas
// deixa a tarefa atualizada e o progresso anterior gravado até o próximo recálculo.
// Recálculos concorrentes do mesmo projeto seguem last-write-wins, a menos que um Locker
// seja configurado para serializá-los.
package progress

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/gestaozabele/projetos/internal/metrics"
	"github.com/gestaozabele/projetos/internal/repo"
)

// TaskStore é o colaborador de persistência de tarefas.
type TaskStore interface {
	FindByID(ctx context.Context, id uuid.UUID) (*repo.Task, error)
	Filter(ctx context.Context, filter repo.TaskFilter) ([]repo.Task, error)
	Update(ctx context.Context, id uuid.UUID, patch repo.TaskPatch) (*repo.Task, error)
}

// ProjectStore é o colaborador de persistência de projetos.
type ProjectStore interface {
	Update(ctx context.Context, id uuid.UUID, patch repo.ProjectPatch) (*repo.Project, error)
}

// Locker serializa recálculos por chave. A função devolvida libera o lock.
type Locker interface {
	Lock(ctx context.Context, key string) (func(), error)
}

// Reconciler grava status de tarefas e recalcula o progresso do projeto dono.
type Reconciler struct {
	tasks    TaskStore
	projects ProjectStore
	locker   Locker
	metrics  *metrics.Metrics
	logger   zerolog.Logger
	now      func() time.Time
}

// NewReconciler cria o reconciliador. locker nil mantém o comportamento last-write-wins.
func NewReconciler(tasks TaskStore, projects ProjectStore, locker Locker, m *metrics.Metrics, logger zerolog.Logger) *Reconciler {
	return &Reconciler{
		tasks:    tasks,
		projects: projects,
		locker:   locker,
		metrics:  m,
		logger:   logger,
		now:      time.Now,
	}
}

// UpdateTaskStatus grava o novo status e recalcula o progresso do projeto.
// Retorna true apenas quando as duas etapas concluem sem erro.
func (r *Reconciler) UpdateTaskStatus(ctx context.Context, taskID uuid.UUID, status string) bool {
	if taskID == uuid.Nil || strings.TrimSpace(status) == "" {
		r.logger.Warn().Str("task_id", taskID.String()).Str("status", status).Msg("progress: tarefa e status são obrigatórios")
		r.metrics.StatusUpdate("invalid")
		return false
	}

	newStatus, ok := repo.ParseTaskStatus(status)
	if !ok {
		r.logger.Warn().Str("task_id", taskID.String()).Str("status", status).Msg("progress: status desconhecido")
		r.metrics.StatusUpdate("invalid")
		return false
	}

	task, err := r.tasks.FindByID(ctx, taskID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			r.logger.Warn().Str("task_id", taskID.String()).Msg("progress: tarefa não encontrada")
			r.metrics.StatusUpdate("not_found")
			return false
		}
		r.logger.Error().Err(err).Str("task_id", taskID.String()).Msg("progress: falha ao buscar tarefa")
		r.metrics.StatusUpdate("error")
		return false
	}

	modified := r.now().UTC()
	if _, err := r.tasks.Update(ctx, taskID, repo.TaskPatch{Status: &newStatus, LastModifiedDate: &modified}); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			r.logger.Warn().Str("task_id", taskID.String()).Msg("progress: tarefa removida durante atualização")
			r.metrics.StatusUpdate("not_found")
			return false
		}
		r.logger.Error().Err(err).Str("task_id", taskID.String()).Msg("progress: falha ao gravar status")
		r.metrics.StatusUpdate("error")
		return false
	}

	if _, ok := r.RecomputeProjectProgress(ctx, task.ProjectID); !ok {
		r.metrics.StatusUpdate("stale_progress")
		return false
	}

	r.logger.Info().
		Str("task_id", taskID.String()).
		Str("project_id", task.ProjectID.String()).
		Str("status", string(newStatus)).
		Msg("progress: status atualizado")
	r.metrics.StatusUpdate("ok")
	return true
}

// RecomputeProjectProgress recalcula e grava o percentual de tarefas concluídas.
// ok false indica que o progresso gravado permaneceu com o último valor conhecido.
func (r *Reconciler) RecomputeProjectProgress(ctx context.Context, projectID uuid.UUID) (percentage int, ok bool) {
	if projectID == uuid.Nil {
		r.logger.Warn().Msg("progress: projeto obrigatório")
		r.metrics.Recompute("invalid", 0)
		return 0, false
	}

	if r.locker != nil {
		unlock, err := r.locker.Lock(ctx, projectID.String())
		if err != nil {
			r.logger.Error().Err(err).Str("project_id", projectID.String()).Msg("progress: falha ao obter lock do projeto")
			r.metrics.Recompute("error", 0)
			return 0, false
		}
		defer unlock()
	}

	tasks, err := r.tasks.Filter(ctx, repo.TaskFilter{ProjectID: &projectID})
	if err != nil {
		r.logger.Error().Err(err).Str("project_id", projectID.String()).Msg("progress: falha ao listar tarefas")
		r.metrics.Recompute("error", 0)
		return 0, false
	}

	patch := repo.ProjectPatch{}
	if len(tasks) == 0 {
		percentage = 0
	} else {
		done := 0
		for _, task := range tasks {
			if task.Status == repo.StatusDone {
				done++
			}
		}
		percentage = Percentage(done, len(tasks))
		modified := r.now().UTC()
		patch.LastModifiedDate = &modified
	}
	patch.Progress = &percentage

	if _, err := r.projects.Update(ctx, projectID, patch); err != nil {
		r.logger.Error().Err(err).Str("project_id", projectID.String()).Msg("progress: falha ao gravar progresso")
		r.metrics.Recompute("error", 0)
		return 0, false
	}

	r.logger.Debug().
		Str("project_id", projectID.String()).
		Int("tasks", len(tasks)).
		Int("progress", percentage).
		Msg("progress: progresso recalculado")
	r.metrics.Recompute("ok", percentage)
	return percentage, true
}

// Percentage devolve round(100*done/total) com arredondamento half-up em aritmética inteira.
func Percentage(done, total int) int {
	if total <= 0 || done <= 0 {
		return 0
	}
	if done >= total {
		return 100
	}
	return (200*done + total) / (2 * total)
}
