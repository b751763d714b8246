package http

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/gestaozabele/projetos/internal/repo"
)

type taskStatusPayload struct {
	Status string `json:"status"`
}

// UpdateTaskStatus altera o status da tarefa e recalcula o progresso do projeto.
func (h *Handler) UpdateTaskStatus(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	taskID, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	var payload taskStatusPayload
	if !decodeJSON(w, r, &payload) {
		return
	}
	if _, ok := repo.ParseTaskStatus(payload.Status); !ok {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "status inválido", nil)
		return
	}

	task, project, ok := h.loadTaskWithProject(r.Context(), w, taskID)
	if !ok {
		return
	}
	if !h.gate(w, "task.edit", h.policy.CanEditTask(*task, user.Email, user.Position, project.Responsible)) {
		return
	}

	if !h.progress.UpdateTaskStatus(r.Context(), taskID, strings.TrimSpace(payload.Status)) {
		writeInternal(w, "não foi possível atualizar status")
		return
	}

	updated, err := h.tasks.FindByID(r.Context(), taskID)
	if err != nil {
		h.logger.Warn().Err(err).Str("task_id", taskID.String()).Msg("http: falha ao recarregar tarefa")
		WriteJSON(w, http.StatusOK, map[string]any{"task_id": taskID})
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"task": updated})
}

// DeleteTask remove a tarefa e recalcula o progresso do projeto dono.
func (h *Handler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	taskID, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	task, project, ok := h.loadTaskWithProject(r.Context(), w, taskID)
	if !ok {
		return
	}
	if !h.gate(w, "task.delete", h.policy.CanDeleteTask(*task, user.Email, user.Position, project.Responsible)) {
		return
	}

	if err := h.tasks.Delete(r.Context(), taskID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			WriteError(w, http.StatusNotFound, "NOT_FOUND", "tarefa não encontrada", nil)
			return
		}
		h.logger.Error().Err(err).Str("task_id", taskID.String()).Msg("http: falha ao excluir tarefa")
		writeInternal(w, "não foi possível excluir tarefa")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{
		"deleted":  true,
		"progress": h.recomputeAfterChange(r.Context(), task.ProjectID),
	})
}

// loadTaskWithProject carrega a tarefa e o projeto dono. Tarefa sem projeto é inconsistência de dados.
func (h *Handler) loadTaskWithProject(ctx context.Context, w http.ResponseWriter, taskID uuid.UUID) (*repo.Task, *repo.Project, bool) {
	task, err := h.tasks.FindByID(ctx, taskID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			WriteError(w, http.StatusNotFound, "NOT_FOUND", "tarefa não encontrada", nil)
			return nil, nil, false
		}
		h.logger.Error().Err(err).Str("task_id", taskID.String()).Msg("http: falha ao buscar tarefa")
		writeInternal(w, "não foi possível carregar tarefa")
		return nil, nil, false
	}

	project, err := h.projects.FindByID(ctx, task.ProjectID)
	if err != nil {
		h.logger.Error().Err(err).
			Str("task_id", taskID.String()).
			Str("project_id", task.ProjectID.String()).
			Msg("http: tarefa sem projeto correspondente")
		writeInternal(w, "não foi possível carregar projeto da tarefa")
		return nil, nil, false
	}
	return task, project, true
}
