package repo

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gestaozabele/projetos/internal/db"
)

const projectColumns = `id, name, responsible, participants, progress, last_modified_date, created_at`

// ProjectRepository provê acesso à tabela de projetos.
type ProjectRepository struct {
	pool *pgxpool.Pool
}

// NewProjectRepository cria instância do repositório.
func NewProjectRepository(pool *pgxpool.Pool) *ProjectRepository {
	return &ProjectRepository{pool: pool}
}

// List devolve todos os projetos em ordem de criação.
func (r *ProjectRepository) List(ctx context.Context) ([]Project, error) {
	rows, err := r.pool.Query(ctx, "SELECT "+projectColumns+" FROM projects ORDER BY created_at ASC, id ASC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	projects := []Project{}
	for rows.Next() {
		project, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		projects = append(projects, *project)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return projects, nil
}

// FindByID busca um projeto específico.
func (r *ProjectRepository) FindByID(ctx context.Context, id uuid.UUID) (*Project, error) {
	row := r.pool.QueryRow(ctx, "SELECT "+projectColumns+" FROM projects WHERE id = $1", id)
	return scanProject(row)
}

// Create insere um novo projeto com progresso zerado.
func (r *ProjectRepository) Create(ctx context.Context, input CreateProjectInput) (*Project, error) {
	query := `
        INSERT INTO projects (name, responsible, participants, progress, last_modified_date)
        VALUES ($1, $2, $3, 0, now())
        RETURNING ` + projectColumns

	participants := NormalizeEmails(input.Participants)
	row := r.pool.QueryRow(ctx, query,
		strings.TrimSpace(input.Name),
		NormalizeEmail(input.Responsible),
		participants,
	)
	return scanProject(row)
}

// Update aplica atualização parcial e devolve o projeto resultante.
func (r *ProjectRepository) Update(ctx context.Context, id uuid.UUID, patch ProjectPatch) (*Project, error) {
	setParts := []string{}
	args := []any{}
	idx := 1

	if patch.Name != nil {
		setParts = append(setParts, fmt.Sprintf("name = $%d", idx))
		args = append(args, strings.TrimSpace(*patch.Name))
		idx++
	}
	if patch.Responsible != nil {
		setParts = append(setParts, fmt.Sprintf("responsible = $%d", idx))
		args = append(args, NormalizeEmail(*patch.Responsible))
		idx++
	}
	if patch.SetParticipants {
		setParts = append(setParts, fmt.Sprintf("participants = $%d", idx))
		args = append(args, NormalizeEmails(patch.Participants))
		idx++
	}
	if patch.Progress != nil {
		setParts = append(setParts, fmt.Sprintf("progress = $%d", idx))
		args = append(args, *patch.Progress)
		idx++
	}
	if patch.LastModifiedDate != nil {
		setParts = append(setParts, fmt.Sprintf("last_modified_date = $%d", idx))
		args = append(args, *patch.LastModifiedDate)
		idx++
	}

	if len(setParts) == 0 {
		return r.FindByID(ctx, id)
	}

	args = append(args, id)
	query := fmt.Sprintf(`
        UPDATE projects
        SET %s
        WHERE id = $%d
        RETURNING %s
    `, strings.Join(setParts, ", "), idx, projectColumns)

	row := r.pool.QueryRow(ctx, query, args...)
	return scanProject(row)
}

// Delete remove o projeto e suas tarefas na mesma transação.
func (r *ProjectRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return db.WithTx(ctx, r.pool, func(ctx context.Context, tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, "DELETE FROM tasks WHERE project_id = $1", id); err != nil {
			return fmt.Errorf("remover tarefas: %w", err)
		}
		tag, err := tx.Exec(ctx, "DELETE FROM projects WHERE id = $1", id)
		if err != nil {
			return fmt.Errorf("remover projeto: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return ErrNotFound
		}
		return nil
	})
}

func scanProject(row pgx.Row) (*Project, error) {
	var p Project
	if err := row.Scan(&p.ID, &p.Name, &p.Responsible, &p.Participants, &p.Progress, &p.LastModifiedDate, &p.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if p.Participants == nil {
		p.Participants = []string{}
	}
	return &p, nil
}
