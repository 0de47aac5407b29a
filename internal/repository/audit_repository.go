package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/topfive-api/internal/models"
)

const auditColumns = `id, actor_id, actor_type, action, target_type, target_id, description, properties, ip_address, user_agent, created_at`

// maxAuditExport caps how many rows a single export may read.
const maxAuditExport = 5000

// AuditRepository appends and queries activity log entries. There is no
// update or delete path.
type AuditRepository struct {
	db *sqlx.DB
}

// NewAuditRepository constructs the repository.
func NewAuditRepository(db *sqlx.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

// CreateAuditLog appends an entry.
func (r *AuditRepository) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	if log.ID == "" {
		log.ID = uuid.NewString()
	}
	if log.CreatedAt.IsZero() {
		log.CreatedAt = time.Now().UTC()
	}
	if log.ActorType == "" {
		log.ActorType = models.AuditActorUser
	}
	if len(log.Properties) == 0 {
		log.Properties = []byte("{}")
	}
	const query = `INSERT INTO audit_logs (id, actor_id, actor_type, action, target_type, target_id, description, properties, ip_address, user_agent, created_at)
	VALUES (:id, :actor_id, :actor_type, :action, :target_type, :target_id, :description, :properties, :ip_address, :user_agent, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, log); err != nil {
		return fmt.Errorf("create audit log: %w", err)
	}
	return nil
}

// GetByID returns one entry.
func (r *AuditRepository) GetByID(ctx context.Context, id string) (*models.AuditLog, error) {
	query := `SELECT ` + auditColumns + ` FROM audit_logs WHERE id = $1`
	var entry models.AuditLog
	if err := r.db.GetContext(ctx, &entry, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("get audit log: %w", err)
	}
	return &entry, nil
}

// List returns a filtered page of entries, newest first, with the total.
func (r *AuditRepository) List(ctx context.Context, filter models.AuditFilter) ([]models.AuditLog, int, error) {
	_, pageSize, offset := normalizePage(filter.Page, filter.PageSize, 20, 100)
	where := auditWhere(filter)

	query, args, err := psql.Select(auditColumns).
		From("audit_logs").
		Where(where).
		OrderBy("created_at DESC", "id DESC").
		Limit(uint64(pageSize)).
		Offset(uint64(offset)).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build audit query: %w", err)
	}
	entries := make([]models.AuditLog, 0, pageSize)
	if err := r.db.SelectContext(ctx, &entries, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list audit logs: %w", err)
	}

	countQuery, countArgs, err := psql.Select("COUNT(*)").From("audit_logs").Where(where).ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build audit count: %w", err)
	}
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, countArgs...); err != nil {
		return nil, 0, fmt.Errorf("count audit logs: %w", err)
	}
	return entries, total, nil
}

// Export returns every entry matching filter up to the export cap.
func (r *AuditRepository) Export(ctx context.Context, filter models.AuditFilter) ([]models.AuditLog, error) {
	query, args, err := psql.Select(auditColumns).
		From("audit_logs").
		Where(auditWhere(filter)).
		OrderBy("created_at DESC", "id DESC").
		Limit(maxAuditExport).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build audit export: %w", err)
	}
	var entries []models.AuditLog
	if err := r.db.SelectContext(ctx, &entries, query, args...); err != nil {
		return nil, fmt.Errorf("export audit logs: %w", err)
	}
	return entries, nil
}

func auditWhere(filter models.AuditFilter) squirrel.And {
	where := squirrel.And{}
	if filter.ActorID != "" {
		where = append(where, squirrel.Eq{"actor_id": filter.ActorID})
	}
	if filter.Action != "" {
		where = append(where, squirrel.Eq{"action": filter.Action})
	}
	if filter.TargetType != "" {
		where = append(where, squirrel.Eq{"target_type": filter.TargetType})
	}
	if filter.TargetID != "" {
		where = append(where, squirrel.Eq{"target_id": filter.TargetID})
	}
	if filter.From != nil {
		where = append(where, squirrel.GtOrEq{"created_at": *filter.From})
	}
	if filter.To != nil {
		where = append(where, squirrel.Lt{"created_at": *filter.To})
	}
	return where
}
