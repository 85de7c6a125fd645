package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/feedthegoat/content-service/internal/domain"
)

// AuditRepository persists request audit records. The trail is append-only;
// there is deliberately no update or delete.
type AuditRepository interface {
	Insert(ctx context.Context, rec *domain.AuditRecord) error
}

type auditRepository struct {
	pool *pgxpool.Pool
}

// NewAuditRepository returns a Postgres-backed implementation.
func NewAuditRepository(pool *pgxpool.Pool) AuditRepository {
	return &auditRepository{pool: pool}
}

func (r *auditRepository) Insert(ctx context.Context, rec *domain.AuditRecord) error {
	const query = `
        INSERT INTO audit_logs (
            ts, method, path, query_string, client_ip, user_agent, user_id,
            request_body, status_code, duration_ms, error_text, error_type, stack_trace
        ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
        RETURNING id`

	return r.pool.QueryRow(ctx, query,
		rec.Timestamp,
		rec.Method,
		rec.Path,
		rec.QueryString,
		rec.ClientIP,
		rec.UserAgent,
		rec.UserID,
		rec.RequestBody,
		rec.StatusCode,
		rec.DurationMS,
		rec.ErrorText,
		rec.ErrorType,
		rec.StackTrace,
	).Scan(&rec.ID)
}
