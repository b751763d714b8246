package http

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/gestaozabele/projetos/internal/access"
	"github.com/gestaozabele/projetos/internal/auth"
	httpmiddleware "github.com/gestaozabele/projetos/internal/http/middleware"
	"github.com/gestaozabele/projetos/internal/metrics"
	"github.com/gestaozabele/projetos/internal/repo"
)

// ProjectStore é a persistência de projetos usada pelos handlers.
type ProjectStore interface {
	List(ctx context.Context) ([]repo.Project, error)
	FindByID(ctx context.Context, id uuid.UUID) (*repo.Project, error)
	Create(ctx context.Context, input repo.CreateProjectInput) (*repo.Project, error)
	Update(ctx context.Context, id uuid.UUID, patch repo.ProjectPatch) (*repo.Project, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// TaskStore é a persistência de tarefas usada pelos handlers.
type TaskStore interface {
	Filter(ctx context.Context, filter repo.TaskFilter) ([]repo.Task, error)
	FindByID(ctx context.Context, id uuid.UUID) (*repo.Task, error)
	Create(ctx context.Context, input repo.CreateTaskInput) (*repo.Task, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// ProgressService grava status e recalcula progresso.
type ProgressService interface {
	UpdateTaskStatus(ctx context.Context, taskID uuid.UUID, status string) bool
	RecomputeProjectProgress(ctx context.Context, projectID uuid.UUID) (int, bool)
}

// PermissionChecker resolve permissões declarativas do usuário corrente.
type PermissionChecker interface {
	CheckAll(ctx context.Context, permissions []access.Permission, projectID uuid.UUID) map[access.Permission]bool
}

// ReadinessCheck verifica uma dependência externa.
type ReadinessCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// Deps reúne os colaboradores do roteador.
type Deps struct {
	JWT           *auth.JWTManager
	Policy        *access.Policy
	Projects      ProjectStore
	Tasks         TaskStore
	Progress      ProgressService
	Permissions   PermissionChecker
	Metrics       *metrics.Metrics
	Checks        []ReadinessCheck
	AllowOrigins  []string
	PublicLimiter *httpmiddleware.RateLimiter
	UserLimiter   *httpmiddleware.RateLimiter
	Logger        zerolog.Logger
}

// Handler implementa os endpoints de projetos, tarefas e permissões.
type Handler struct {
	policy      *access.Policy
	projects    ProjectStore
	tasks       TaskStore
	progress    ProgressService
	permissions PermissionChecker
	metrics     *metrics.Metrics
	checks      []ReadinessCheck
	logger      zerolog.Logger
	now         func() time.Time
}

// NewRouter devolve roteador configurado.
func NewRouter(deps Deps) http.Handler {
	h := &Handler{
		policy:      deps.Policy,
		projects:    deps.Projects,
		tasks:       deps.Tasks,
		progress:    deps.Progress,
		permissions: deps.Permissions,
		metrics:     deps.Metrics,
		checks:      deps.Checks,
		logger:      deps.Logger,
		now:         time.Now,
	}

	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(httpmiddleware.Logging(deps.Logger))
	r.Use(httpmiddleware.Recover(deps.Logger))
	r.Use(httpmiddleware.CORS(deps.AllowOrigins))

	r.Group(func(public chi.Router) {
		public.Use(httpmiddleware.IPRateLimit(deps.PublicLimiter))

		public.Get("/health", h.Health)
		public.Get("/ready", h.Ready)
		public.Method(http.MethodGet, "/metrics", deps.Metrics.Handler())
	})

	r.Group(func(private chi.Router) {
		private.Use(httpmiddleware.Auth(deps.JWT))
		private.Use(httpmiddleware.UserRateLimit(deps.UserLimiter))

		private.Get("/permissions", h.CheckPermissions)

		private.Route("/projects", func(p chi.Router) {
			p.Get("/", h.ListProjects)
			p.Post("/", h.CreateProject)
			p.Patch("/{id}", h.UpdateProject)
			p.Delete("/{id}", h.DeleteProject)
			p.Get("/{id}/tasks", h.ListProjectTasks)
			p.Post("/{id}/tasks", h.CreateProjectTask)
			p.Post("/{id}/progress/recompute", h.RecomputeProgress)
		})

		private.Route("/tasks", func(t chi.Router) {
			t.Patch("/{id}/status", h.UpdateTaskStatus)
			t.Delete("/{id}", h.DeleteTask)
		})
	})

	return r
}

// Health responde status simples.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Ready valida as dependências registradas (Postgres e Redis).
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	failures := make(map[string]string)
	for _, check := range h.checks {
		if err := check.Check(ctx); err != nil {
			failures[check.Name] = err.Error()
		}
	}

	if len(failures) > 0 {
		WriteError(w, http.StatusServiceUnavailable, "INTERNAL", "dependências indisponíveis", failures)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]bool{"ready": true})
}
