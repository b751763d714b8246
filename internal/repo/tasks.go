package repo

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const taskColumns = `id, project_id, title, assigned_to, status, last_modified_date, created_at`

// TaskRepository provê acesso à tabela de tarefas.
type TaskRepository struct {
	pool *pgxpool.Pool
}

// NewTaskRepository cria instância do repositório.
func NewTaskRepository(pool *pgxpool.Pool) *TaskRepository {
	return &TaskRepository{pool: pool}
}

// Filter lista tarefas por projeto, responsável ou status.
func (r *TaskRepository) Filter(ctx context.Context, filter TaskFilter) ([]Task, error) {
	var (
		clauses []string
		args    []any
		idx     = 1
	)

	if filter.ProjectID != nil {
		clauses = append(clauses, fmt.Sprintf("project_id = $%d", idx))
		args = append(args, *filter.ProjectID)
		idx++
	}
	if email := NormalizeEmail(filter.AssignedTo); email != "" {
		clauses = append(clauses, fmt.Sprintf("assigned_to = $%d", idx))
		args = append(args, email)
		idx++
	}
	if len(filter.Status) > 0 {
		statuses := make([]string, 0, len(filter.Status))
		for _, status := range filter.Status {
			statuses = append(statuses, string(status))
		}
		clauses = append(clauses, fmt.Sprintf("status = ANY($%d)", idx))
		args = append(args, statuses)
		idx++
	}

	query := "SELECT " + taskColumns + " FROM tasks"
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY created_at ASC, id ASC"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tasks := []Task{}
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, *task)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return tasks, nil
}

// FindByID busca uma tarefa específica.
func (r *TaskRepository) FindByID(ctx context.Context, id uuid.UUID) (*Task, error) {
	row := r.pool.QueryRow(ctx, "SELECT "+taskColumns+" FROM tasks WHERE id = $1", id)
	return scanTask(row)
}

// Create insere tarefa no projeto informado.
func (r *TaskRepository) Create(ctx context.Context, input CreateTaskInput) (*Task, error) {
	status := input.Status
	if status == "" {
		status = StatusPending
	}
	if !status.Valid() {
		return nil, ErrInvalidStatus
	}

	query := `
        INSERT INTO tasks (project_id, title, assigned_to, status, last_modified_date)
        SELECT p.id, $2, $3, $4, now()
        FROM projects p
        WHERE p.id = $1
        RETURNING ` + taskColumns

	row := r.pool.QueryRow(ctx, query,
		input.ProjectID,
		strings.TrimSpace(input.Title),
		NormalizeEmail(input.AssignedTo),
		string(status),
	)
	return scanTask(row)
}

// Update aplica atualização parcial e devolve a tarefa resultante.
func (r *TaskRepository) Update(ctx context.Context, id uuid.UUID, patch TaskPatch) (*Task, error) {
	setParts := []string{}
	args := []any{}
	idx := 1

	if patch.Title != nil {
		setParts = append(setParts, fmt.Sprintf("title = $%d", idx))
		args = append(args, strings.TrimSpace(*patch.Title))
		idx++
	}
	if patch.AssignedTo != nil {
		setParts = append(setParts, fmt.Sprintf("assigned_to = $%d", idx))
		args = append(args, NormalizeEmail(*patch.AssignedTo))
		idx++
	}
	if patch.Status != nil {
		if !patch.Status.Valid() {
			return nil, ErrInvalidStatus
		}
		setParts = append(setParts, fmt.Sprintf("status = $%d", idx))
		args = append(args, string(*patch.Status))
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
        UPDATE tasks
        SET %s
        WHERE id = $%d
        RETURNING %s
    `, strings.Join(setParts, ", "), idx, taskColumns)

	row := r.pool.QueryRow(ctx, query, args...)
	return scanTask(row)
}

// Delete remove a tarefa.
func (r *TaskRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, "DELETE FROM tasks WHERE id = $1", id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanTask(row pgx.Row) (*Task, error) {
	var (
		t      Task
		status string
	)
	if err := row.Scan(&t.ID, &t.ProjectID, &t.Title, &t.AssignedTo, &status, &t.LastModifiedDate, &t.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	t.Status = TaskStatus(status)
	return &t, nil
}
