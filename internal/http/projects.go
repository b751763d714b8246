package http

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/gestaozabele/projetos/internal/auth"
	"github.com/gestaozabele/projetos/internal/repo"
	"github.com/gestaozabele/projetos/internal/util"
)

type createProjectPayload struct {
	Name         string   `json:"name"`
	Responsible  string   `json:"responsible"`
	Participants []string `json:"participants"`
}

type updateProjectPayload struct {
	Name         *string   `json:"name"`
	Responsible  *string   `json:"responsible"`
	Participants *[]string `json:"participants"`
}

type createTaskPayload struct {
	Title      string `json:"title"`
	AssignedTo string `json:"assigned_to"`
	Status     string `json:"status"`
}

// ListProjects devolve os projetos visíveis ao usuário autenticado.
func (h *Handler) ListProjects(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	var (
		projects []repo.Project
		tasks    []repo.Task
	)
	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() error {
		var err error
		projects, err = h.projects.List(ctx)
		return err
	})
	if !h.policy.CapabilityOf(user.Position).CanViewAllProjects {
		g.Go(func() error {
			var err error
			tasks, err = h.tasks.Filter(ctx, repo.TaskFilter{AssignedTo: user.Email})
			return err
		})
	}
	if err := g.Wait(); err != nil {
		h.logger.Error().Err(err).Msg("http: falha ao listar projetos")
		writeInternal(w, "não foi possível listar projetos")
		return
	}

	visible := h.policy.VisibleProjects(projects, tasks, user.Email, user.Position)
	WriteJSON(w, http.StatusOK, map[string]any{"projects": visible})
}

// CreateProject cadastra projeto; sem responsável informado, o autor assume.
func (h *Handler) CreateProject(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	var payload createProjectPayload
	if !decodeJSON(w, r, &payload) {
		return
	}

	name := strings.TrimSpace(payload.Name)
	if err := util.RequireString(name, "nome"); err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", err.Error(), nil)
		return
	}

	responsible := repo.NormalizeEmail(payload.Responsible)
	if responsible == "" {
		responsible = user.Email
	}
	if err := util.ValidateEmail(responsible); err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "responsável: "+err.Error(), nil)
		return
	}
	participants, err := util.ValidateEmails(payload.Participants)
	if err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "participantes: "+err.Error(), nil)
		return
	}

	project, err := h.projects.Create(r.Context(), repo.CreateProjectInput{
		Name:         name,
		Responsible:  responsible,
		Participants: repo.NormalizeEmails(participants),
	})
	if err != nil {
		h.logger.Error().Err(err).Msg("http: falha ao criar projeto")
		writeInternal(w, "não foi possível criar projeto")
		return
	}

	WriteJSON(w, http.StatusCreated, map[string]any{"project": project})
}

// UpdateProject altera nome, responsável ou participantes.
func (h *Handler) UpdateProject(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	projectID, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	var payload updateProjectPayload
	if !decodeJSON(w, r, &payload) {
		return
	}

	project, ok := h.loadProject(r.Context(), w, projectID)
	if !ok {
		return
	}
	if !h.gate(w, "project.edit", h.policy.CanEditProject(*project, user.Email, user.Position)) {
		return
	}

	patch := repo.ProjectPatch{}
	if payload.Name != nil {
		name := strings.TrimSpace(*payload.Name)
		if err := util.RequireString(name, "nome"); err != nil {
			WriteError(w, http.StatusBadRequest, "VALIDATION", err.Error(), nil)
			return
		}
		patch.Name = &name
	}
	if payload.Responsible != nil {
		responsible := repo.NormalizeEmail(*payload.Responsible)
		if err := util.ValidateEmail(responsible); err != nil {
			WriteError(w, http.StatusBadRequest, "VALIDATION", "responsável: "+err.Error(), nil)
			return
		}
		patch.Responsible = &responsible
	}
	if payload.Participants != nil {
		participants, err := util.ValidateEmails(*payload.Participants)
		if err != nil {
			WriteError(w, http.StatusBadRequest, "VALIDATION", "participantes: "+err.Error(), nil)
			return
		}
		patch.Participants = repo.NormalizeEmails(participants)
		patch.SetParticipants = true
	}
	modified := h.now().UTC()
	patch.LastModifiedDate = &modified

	updated, err := h.projects.Update(r.Context(), projectID, patch)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			WriteError(w, http.StatusNotFound, "NOT_FOUND", "projeto não encontrado", nil)
			return
		}
		h.logger.Error().Err(err).Str("project_id", projectID.String()).Msg("http: falha ao atualizar projeto")
		writeInternal(w, "não foi possível atualizar projeto")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{"project": updated})
}

// DeleteProject remove o projeto e suas tarefas. Exclusão segue a mesma regra da edição.
func (h *Handler) DeleteProject(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	projectID, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	project, ok := h.loadProject(r.Context(), w, projectID)
	if !ok {
		return
	}
	if !h.gate(w, "project.delete", h.policy.CanEditProject(*project, user.Email, user.Position)) {
		return
	}

	if err := h.projects.Delete(r.Context(), projectID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			WriteError(w, http.StatusNotFound, "NOT_FOUND", "projeto não encontrado", nil)
			return
		}
		h.logger.Error().Err(err).Str("project_id", projectID.String()).Msg("http: falha ao excluir projeto")
		writeInternal(w, "não foi possível excluir projeto")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{"deleted": true})
}

// ListProjectTasks devolve as tarefas do projeto visíveis ao usuário, opcionalmente filtradas por status.
func (h *Handler) ListProjectTasks(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	projectID, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	var (
		statuses []repo.TaskStatus
		unknown  []string
	)
	for _, item := range queryList(r.URL.Query(), "status") {
		status, ok := repo.ParseTaskStatus(item)
		if !ok {
			unknown = append(unknown, item)
			continue
		}
		statuses = append(statuses, status)
	}
	if len(unknown) > 0 {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "status inválido", map[string]any{"status": unknown})
		return
	}

	project, ok := h.loadProject(r.Context(), w, projectID)
	if !ok {
		return
	}

	visible, err := h.projectVisible(r.Context(), *project, user)
	if err != nil {
		h.logger.Error().Err(err).Str("project_id", projectID.String()).Msg("http: falha ao verificar visibilidade")
		writeInternal(w, "não foi possível listar tarefas")
		return
	}
	if !visible {
		writeForbidden(w)
		return
	}

	tasks, err := h.tasks.Filter(r.Context(), repo.TaskFilter{ProjectID: &projectID, Status: statuses})
	if err != nil {
		h.logger.Error().Err(err).Str("project_id", projectID.String()).Msg("http: falha ao listar tarefas")
		writeInternal(w, "não foi possível listar tarefas")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{"tasks": h.policy.VisibleTasks(tasks, user.Email, user.Position, project.Responsible)})
}

// projectVisible consulta as tarefas atribuídas ao usuário só quando cargo e participação não bastam.
func (h *Handler) projectVisible(ctx context.Context, project repo.Project, user auth.User) (bool, error) {
	if len(h.policy.VisibleProjects([]repo.Project{project}, nil, user.Email, user.Position)) == 1 {
		return true, nil
	}
	if repo.NormalizeEmail(user.Email) == "" {
		return false, nil
	}
	assigned, err := h.tasks.Filter(ctx, repo.TaskFilter{ProjectID: &project.ID, AssignedTo: user.Email})
	if err != nil {
		return false, err
	}
	return len(h.policy.VisibleProjects([]repo.Project{project}, assigned, user.Email, user.Position)) == 1, nil
}

// CreateProjectTask cadastra tarefa e recalcula o progresso do projeto.
func (h *Handler) CreateProjectTask(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	projectID, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	var payload createTaskPayload
	if !decodeJSON(w, r, &payload) {
		return
	}

	title := strings.TrimSpace(payload.Title)
	if err := util.RequireString(title, "título"); err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", err.Error(), nil)
		return
	}
	assignedTo := repo.NormalizeEmail(payload.AssignedTo)
	if assignedTo != "" {
		if err := util.ValidateEmail(assignedTo); err != nil {
			WriteError(w, http.StatusBadRequest, "VALIDATION", "atribuído: "+err.Error(), nil)
			return
		}
	}
	status := repo.StatusPending
	if strings.TrimSpace(payload.Status) != "" {
		parsed, ok := repo.ParseTaskStatus(payload.Status)
		if !ok {
			WriteError(w, http.StatusBadRequest, "VALIDATION", "status inválido", nil)
			return
		}
		status = parsed
	}

	project, ok := h.loadProject(r.Context(), w, projectID)
	if !ok {
		return
	}
	probe := repo.Task{ProjectID: project.ID}
	if !h.gate(w, "task.create", h.policy.CanModifyTask(probe, user.Email, user.Position, project.Responsible)) {
		return
	}

	task, err := h.tasks.Create(r.Context(), repo.CreateTaskInput{
		ProjectID:  projectID,
		Title:      title,
		AssignedTo: assignedTo,
		Status:     status,
	})
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			WriteError(w, http.StatusNotFound, "NOT_FOUND", "projeto não encontrado", nil)
			return
		}
		h.logger.Error().Err(err).Str("project_id", projectID.String()).Msg("http: falha ao criar tarefa")
		writeInternal(w, "não foi possível criar tarefa")
		return
	}

	WriteJSON(w, http.StatusCreated, map[string]any{
		"task":     task,
		"progress": h.recomputeAfterChange(r.Context(), projectID),
	})
}

// RecomputeProgress força o recálculo do progresso do projeto.
func (h *Handler) RecomputeProgress(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	projectID, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	project, ok := h.loadProject(r.Context(), w, projectID)
	if !ok {
		return
	}
	if !h.gate(w, "project.edit", h.policy.CanEditProject(*project, user.Email, user.Position)) {
		return
	}

	pct, ok := h.progress.RecomputeProjectProgress(r.Context(), projectID)
	if !ok {
		writeInternal(w, "não foi possível recalcular progresso")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{"project_id": projectID, "progress": pct})
}

func (h *Handler) loadProject(ctx context.Context, w http.ResponseWriter, id uuid.UUID) (*repo.Project, bool) {
	project, err := h.projects.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			WriteError(w, http.StatusNotFound, "NOT_FOUND", "projeto não encontrado", nil)
			return nil, false
		}
		h.logger.Error().Err(err).Str("project_id", id.String()).Msg("http: falha ao buscar projeto")
		writeInternal(w, "não foi possível carregar projeto")
		return nil, false
	}
	return project, true
}

// recomputeAfterChange devolve o novo progresso, ou nil quando o recálculo falha.
func (h *Handler) recomputeAfterChange(ctx context.Context, projectID uuid.UUID) *int {
	pct, ok := h.progress.RecomputeProjectProgress(ctx, projectID)
	if !ok {
		h.logger.Warn().Str("project_id", projectID.String()).Msg("http: progresso desatualizado após alteração de tarefa")
		return nil
	}
	return &pct
}

func (h *Handler) gate(w http.ResponseWriter, action string, allowed bool) bool {
	h.metrics.GateDecision(action, allowed)
	if !allowed {
		writeForbidden(w)
	}
	return allowed
}
