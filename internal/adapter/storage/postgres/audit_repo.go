package postgres

import (
	"context"
	"fmt"

	"food-wallet-service/internal/core/domain"
	"food-wallet-service/internal/core/ports"

	"github.com/google/uuid"
)

type auditRepo struct {
	pool Pool
}

// NewAuditRepository creates a PostgreSQL-backed AuditRepository.
func NewAuditRepository(pool Pool) ports.AuditRepository {
	return &auditRepo{pool: pool}
}

func (r *auditRepo) Create(ctx context.Context, log *domain.AuditLog) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO audit_logs (id, user_id, action, resource_type, resource_id, details, ip_address, status_code, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6::jsonb, $7, $8, $9)`,
		log.ID, log.UserID, string(log.Action), log.ResourceType,
		log.ResourceID, nullableJSON([]byte(log.Details)), log.IPAddress, log.StatusCode, log.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert audit log: %w", err)
	}
	return nil
}

func (r *auditRepo) ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]domain.AuditLog, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, user_id, action, resource_type, resource_id, COALESCE(details::text, ''), ip_address, status_code, created_at
		 FROM audit_logs WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2`,
		userID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list audit logs: %w", err)
	}
	defer rows.Close()

	var logs []domain.AuditLog
	for rows.Next() {
		var (
			l      domain.AuditLog
			action string
		)
		if err := rows.Scan(&l.ID, &l.UserID, &action, &l.ResourceType, &l.ResourceID,
			&l.Details, &l.IPAddress, &l.StatusCode, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan audit log: %w", err)
		}
		l.Action = domain.AuditAction(action)
		logs = append(logs, l)
	}
	return logs, rows.Err()
}
