package repo

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
)

// GrantRepository lê as permissões concedidas por cargo.
type GrantRepository struct {
	pool *pgxpool.Pool
}

// NewGrantRepository cria instância do repositório.
func NewGrantRepository(pool *pgxpool.Pool) *GrantRepository {
	return &GrantRepository{pool: pool}
}

// ListByPosition devolve os identificadores de permissão associados ao cargo.
// A comparação lower(trim) é a mesma usada na chave de cache do resolvedor.
func (r *GrantRepository) ListByPosition(ctx context.Context, position string) ([]string, error) {
	const query = `
        SELECT permission
        FROM position_permissions
        WHERE lower(position) = lower($1)
        ORDER BY permission
    `

	rows, err := r.pool.Query(ctx, query, strings.TrimSpace(position))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	grants := []string{}
	for rows.Next() {
		var permission string
		if err := rows.Scan(&permission); err != nil {
			return nil, err
		}
		grants = append(grants, permission)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return grants, nil
}
