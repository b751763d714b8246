package access

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
	"golang.org/x/sync/errgroup"

	"github.com/gestaozabele/projetos/internal/auth"
	"github.com/gestaozabele/projetos/internal/metrics"
	"github.com/gestaozabele/projetos/internal/repo"
)

// Identity resolve o usuário corrente.
type Identity interface {
	CurrentUser(ctx context.Context) (auth.User, error)
}

// ProjectReader busca projetos pelo identificador.
type ProjectReader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*repo.Project, error)
}

// TaskFilterer lista tarefas por filtro.
type TaskFilterer interface {
	Filter(ctx context.Context, filter repo.TaskFilter) ([]repo.Task, error)
}

// GrantSource devolve as permissões explícitas de um cargo.
type GrantSource interface {
	ListByPosition(ctx context.Context, position string) ([]string, error)
}

type cacheCommander interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
}

var errResolverPanic = errors.New("access: panic ao resolver permissão")

type resolution struct {
	ok  bool
	err error
}

// ResolverConfig ajusta cache e limites do resolvedor.
type ResolverConfig struct {
	CacheTTL    time.Duration
	Timeout     time.Duration
	Concurrency int
}

// Resolver responde se o usuário corrente possui uma permissão. Qualquer falha nega.
type Resolver struct {
	policy   *Policy
	identity Identity
	projects ProjectReader
	tasks    TaskFilterer
	grants   GrantSource
	cache    cacheCommander
	breaker  *gobreaker.CircuitBreaker
	cfg      ResolverConfig
	metrics  *metrics.Metrics
	logger   zerolog.Logger
}

// NewResolver cria o resolvedor. cache e breaker podem ser nil.
func NewResolver(policy *Policy, identity Identity, projects ProjectReader, tasks TaskFilterer, grants GrantSource, cache *redis.Client, breaker *gobreaker.CircuitBreaker, cfg ResolverConfig, m *metrics.Metrics, logger zerolog.Logger) *Resolver {
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 5 * time.Minute
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 3 * time.Second
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 8
	}

	r := &Resolver{
		policy:   policy,
		identity: identity,
		projects: projects,
		tasks:    tasks,
		grants:   grants,
		breaker:  breaker,
		cfg:      cfg,
		metrics:  m,
		logger:   logger,
	}
	if cache != nil {
		r.cache = cache
	}
	return r
}

// CheckPermission resolve a permissão para o usuário corrente. projectID uuid.Nil indica ausência de projeto.
// O prazo de ResolverConfig.Timeout vale mesmo para colaboradores que ignoram ctx.
func (r *Resolver) CheckPermission(ctx context.Context, permission Permission, projectID uuid.UUID) (allowed bool) {
	defer func() {
		r.metrics.PermissionCheck(permission.Domain(), allowed)
	}()

	ctx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
	defer cancel()

	done := make(chan resolution, 1)
	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				r.logger.Error().Interface("panic", rec).Str("permission", string(permission)).Msg("access: panic ao resolver permissão")
				done <- resolution{err: errResolverPanic}
			}
		}()
		ok, err := r.resolve(ctx, permission, projectID)
		done <- resolution{ok: ok, err: err}
	}()

	var res resolution
	select {
	case res = <-done:
	case <-ctx.Done():
		res = resolution{err: ctx.Err()}
	}

	if res.err != nil {
		event := r.logger.Warn().Err(res.err).Str("permission", string(permission))
		if projectID != uuid.Nil {
			event = event.Str("project_id", projectID.String())
		}
		event.Msg("access: permissão negada por falha")
		return false
	}
	return res.ok
}

// CheckAll resolve várias permissões em paralelo; cada uma falha fechada de forma independente.
func (r *Resolver) CheckAll(ctx context.Context, permissions []Permission, projectID uuid.UUID) map[Permission]bool {
	unique := make([]Permission, 0, len(permissions))
	seen := make(map[Permission]struct{}, len(permissions))
	for _, p := range permissions {
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		unique = append(unique, p)
	}

	results := make([]bool, len(unique))
	var g errgroup.Group
	g.SetLimit(r.cfg.Concurrency)
	for i, p := range unique {
		i, p := i, p
		g.Go(func() error {
			results[i] = r.CheckPermission(ctx, p, projectID)
			return nil
		})
	}
	_ = g.Wait()

	out := make(map[Permission]bool, len(unique))
	for i, p := range unique {
		out[p] = results[i]
	}
	return out
}

func (r *Resolver) resolve(ctx context.Context, permission Permission, projectID uuid.UUID) (bool, error) {
	if !permission.Valid() {
		return false, nil
	}
	if r.identity == nil {
		return false, auth.ErrUnauthenticated
	}

	user, err := r.identity.CurrentUser(ctx)
	if err != nil {
		return false, err
	}

	if projectID != uuid.Nil && permission.projectScoped() {
		return r.resolveInProject(ctx, user, permission, projectID)
	}

	if r.policy.CapabilityOf(user.Position).Implies(permission) {
		return true, nil
	}

	grants, err := r.grantsFor(ctx, user.Position)
	if err != nil {
		return false, err
	}
	for _, grant := range grants {
		if Permission(grant) == permission {
			return true, nil
		}
	}
	return false, nil
}

// resolveInProject aplica as regras de visibilidade e edição ao projeto informado.
// Permissões de tarefa sem tarefa específica consideram apenas cargo e responsável do projeto.
func (r *Resolver) resolveInProject(ctx context.Context, user auth.User, permission Permission, projectID uuid.UUID) (bool, error) {
	if r.projects == nil {
		return false, errors.New("access: leitor de projetos não configurado")
	}

	project, err := r.projects.FindByID(ctx, projectID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("buscar projeto: %w", err)
	}

	switch permission {
	case PermProjectEdit, PermProjectDelete:
		return r.policy.CanEditProject(*project, user.Email, user.Position), nil
	case PermTaskCreate, PermTaskEdit, PermTaskDelete:
		probe := repo.Task{ProjectID: project.ID}
		return r.policy.CanModifyTask(probe, user.Email, user.Position, project.Responsible), nil
	case PermProjectView, PermTaskView:
		var tasks []repo.Task
		if r.tasks != nil && !r.policy.CapabilityOf(user.Position).CanViewAllProjects {
			tasks, err = r.tasks.Filter(ctx, repo.TaskFilter{ProjectID: &project.ID, AssignedTo: user.Email})
			if err != nil {
				return false, fmt.Errorf("listar tarefas: %w", err)
			}
		}
		visible := r.policy.VisibleProjects([]repo.Project{*project}, tasks, user.Email, user.Position)
		return len(visible) == 1, nil
	}
	return false, nil
}

func (r *Resolver) grantsFor(ctx context.Context, position string) ([]string, error) {
	position = strings.TrimSpace(position)
	if position == "" || r.grants == nil {
		return nil, nil
	}

	key := grantsCacheKey(position)
	if grants, ok := r.cachedGrants(ctx, key); ok {
		return grants, nil
	}

	load := func() (any, error) {
		return r.grants.ListByPosition(ctx, position)
	}

	var (
		value any
		err   error
	)
	if r.breaker != nil {
		value, err = r.breaker.Execute(load)
	} else {
		value, err = load()
	}
	if err != nil {
		return nil, fmt.Errorf("carregar papéis: %w", err)
	}

	grants, _ := value.([]string)
	r.storeGrants(ctx, key, grants)
	return grants, nil
}

func (r *Resolver) cachedGrants(ctx context.Context, key string) ([]string, bool) {
	if r.cache == nil {
		return nil, false
	}
	raw, err := r.cache.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			r.logger.Debug().Err(err).Str("key", key).Msg("access: cache de papéis indisponível")
		}
		return nil, false
	}
	var grants []string
	if err := json.Unmarshal(raw, &grants); err != nil {
		return nil, false
	}
	return grants, true
}

func (r *Resolver) storeGrants(ctx context.Context, key string, grants []string) {
	if r.cache == nil {
		return
	}
	if grants == nil {
		grants = []string{}
	}
	payload, err := json.Marshal(grants)
	if err != nil {
		return
	}
	if err := r.cache.Set(ctx, key, payload, r.cfg.CacheTTL).Err(); err != nil {
		r.logger.Debug().Err(err).Str("key", key).Msg("access: falha ao gravar cache de papéis")
	}
}

// grantsCacheKey segue a mesma comparação de ListByPosition: lower(trim(cargo)).
func grantsCacheKey(position string) string {
	return "perm:grants:" + strings.ToLower(strings.TrimSpace(position))
}
