package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// RoleRepository resolves role assignments. It satisfies auth.RoleLookup so
// the authorization gate always sees current assignments, not a claim frozen
// into the token at issue time.
type RoleRepository interface {
	RolesForUser(ctx context.Context, userID int64) ([]string, error)
	Assign(ctx context.Context, userID int64, role string) error
	Revoke(ctx context.Context, userID int64, role string) error
}

type roleRepository struct {
	pool *pgxpool.Pool
}

// NewRoleRepository returns a Postgres-backed implementation.
func NewRoleRepository(pool *pgxpool.Pool) RoleRepository {
	return &roleRepository{pool: pool}
}

func (r *roleRepository) RolesForUser(ctx context.Context, userID int64) ([]string, error) {
	const query = `
        SELECT r.name
        FROM roles r
        JOIN user_roles ur ON ur.role_id = r.id
        WHERE ur.user_id = $1`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var roles []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		roles = append(roles, name)
	}
	return roles, rows.Err()
}

func (r *roleRepository) Assign(ctx context.Context, userID int64, role string) error {
	const query = `
        INSERT INTO user_roles (user_id, role_id)
        SELECT $1, id FROM roles WHERE name = $2
        ON CONFLICT DO NOTHING`

	_, err := r.pool.Exec(ctx, query, userID, role)
	return err
}

func (r *roleRepository) Revoke(ctx context.Context, userID int64, role string) error {
	const query = `
        DELETE FROM user_roles ur
        USING roles r
        WHERE ur.role_id = r.id AND ur.user_id = $1 AND r.name = $2`

	_, err := r.pool.Exec(ctx, query, userID, role)
	return err
}
