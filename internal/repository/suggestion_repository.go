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

const (
	suggestionColumns = `id, external_id, title, thumbnail_url, view_count, submitter_id, state, contribution_count, reason, approved_at, rejected_at, deleted_at, created_at, updated_at`

	suggestionExternalIDKey = "suggestions_external_id_live_key"
	contributionPKey        = "suggestion_contributions_pkey"
)

// SuggestionRepository is the only writer of suggestion state. Every mutation
// is a single conditional statement or one transaction holding the row lock.
type SuggestionRepository struct {
	db *sqlx.DB
}

// NewSuggestionRepository constructs the repository.
func NewSuggestionRepository(db *sqlx.DB) *SuggestionRepository {
	return &SuggestionRepository{db: db}
}

// Create inserts a pending suggestion with zero contributions.
func (r *SuggestionRepository) Create(ctx context.Context, s *models.Suggestion) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	s.State = models.SuggestionPending
	s.ContributionCount = 0
	s.CreatedAt = now
	s.UpdatedAt = now

	const query = `INSERT INTO suggestions (id, external_id, title, thumbnail_url, view_count, submitter_id, state, contribution_count, reason, created_at, updated_at)
	VALUES (:id, :external_id, :title, :thumbnail_url, :view_count, :submitter_id, :state, :contribution_count, :reason, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, s); err != nil {
		if isUniqueViolation(err, suggestionExternalIDKey) {
			return ErrDuplicateExternalID
		}
		return fmt.Errorf("create suggestion: %w", err)
	}
	return nil
}

// GetByID returns a live suggestion. Rejected and deleted rows yield sql.ErrNoRows.
func (r *SuggestionRepository) GetByID(ctx context.Context, id string) (*models.Suggestion, error) {
	query := `SELECT ` + suggestionColumns + ` FROM suggestions WHERE id = $1 AND deleted_at IS NULL`
	var s models.Suggestion
	if err := r.db.GetContext(ctx, &s, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("get suggestion: %w", err)
	}
	return &s, nil
}

// IncrementContribution records userID's vote and bumps the counter in one
// transaction. The increment that reaches threshold flips the state to
// APPROVED under the same row lock; autoApproved is true only for that call.
func (r *SuggestionRepository) IncrementContribution(ctx context.Context, id, userID string, threshold int) (*models.Suggestion, bool, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, false, fmt.Errorf("begin contribution: %w", err)
	}
	defer rollback(tx)

	var state models.SuggestionState
	const lock = `SELECT state FROM suggestions WHERE id = $1 AND deleted_at IS NULL FOR UPDATE`
	if err := tx.GetContext(ctx, &state, lock, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, err
		}
		return nil, false, fmt.Errorf("lock suggestion: %w", err)
	}
	switch state {
	case models.SuggestionApproved:
		return nil, false, ErrAlreadyApproved
	case models.SuggestionPending:
	default:
		return nil, false, ErrNotPending
	}

	const vote = `INSERT INTO suggestion_contributions (suggestion_id, user_id, created_at) VALUES ($1, $2, $3)`
	if _, err := tx.ExecContext(ctx, vote, id, userID, time.Now().UTC()); err != nil {
		if isUniqueViolation(err, contributionPKey) {
			return nil, false, ErrDuplicateVote
		}
		return nil, false, fmt.Errorf("insert contribution: %w", err)
	}

	bump := `UPDATE suggestions SET
		contribution_count = contribution_count + 1,
		state = CASE WHEN contribution_count + 1 >= $2 THEN 'APPROVED' ELSE state END,
		approved_at = CASE WHEN contribution_count + 1 >= $2 THEN NOW() ELSE approved_at END,
		updated_at = NOW()
	WHERE id = $1
	RETURNING ` + suggestionColumns
	var s models.Suggestion
	if err := tx.GetContext(ctx, &s, bump, id, threshold); err != nil {
		return nil, false, fmt.Errorf("increment contribution: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, false, fmt.Errorf("commit contribution: %w", err)
	}
	return &s, s.State == models.SuggestionApproved, nil
}

// SetApprovalState moves a pending suggestion to state. When the row is not
// pending it is returned unchanged with changed=false, so re-approving is a
// no-op rather than an error.
func (r *SuggestionRepository) SetApprovalState(ctx context.Context, id string, state models.SuggestionState) (*models.Suggestion, bool, error) {
	if state != models.SuggestionApproved {
		return nil, false, fmt.Errorf("set approval state: unsupported target %s", state)
	}
	query := `UPDATE suggestions SET state = $2, approved_at = NOW(), updated_at = NOW()
	WHERE id = $1 AND deleted_at IS NULL AND state = 'PENDING'
	RETURNING ` + suggestionColumns
	var s models.Suggestion
	err := r.db.GetContext(ctx, &s, query, id, state)
	if err == nil {
		return &s, true, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, false, fmt.Errorf("set approval state: %w", err)
	}
	current, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, false, err
	}
	return current, false, nil
}

// Reject marks a pending suggestion REJECTED and retires it from reads.
// Approved suggestions yield ErrNotPending.
func (r *SuggestionRepository) Reject(ctx context.Context, id string) (*models.Suggestion, error) {
	query := `UPDATE suggestions SET state = 'REJECTED', rejected_at = NOW(), deleted_at = NOW(), updated_at = NOW()
	WHERE id = $1 AND deleted_at IS NULL AND state = 'PENDING'
	RETURNING ` + suggestionColumns
	var s models.Suggestion
	err := r.db.GetContext(ctx, &s, query, id)
	if err == nil {
		return &s, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("reject suggestion: %w", err)
	}
	if _, err := r.GetByID(ctx, id); err != nil {
		return nil, err
	}
	return nil, ErrNotPending
}

// SoftDelete retires any live suggestion regardless of state.
func (r *SuggestionRepository) SoftDelete(ctx context.Context, id string) (*models.Suggestion, error) {
	query := `UPDATE suggestions SET deleted_at = NOW(), updated_at = NOW()
	WHERE id = $1 AND deleted_at IS NULL
	RETURNING ` + suggestionColumns
	var s models.Suggestion
	if err := r.db.GetContext(ctx, &s, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("soft delete suggestion: %w", err)
	}
	return &s, nil
}

// Update persists the editable metadata of a live suggestion.
func (r *SuggestionRepository) Update(ctx context.Context, s *models.Suggestion) error {
	s.UpdatedAt = time.Now().UTC()
	const query = `UPDATE suggestions SET title = :title, thumbnail_url = :thumbnail_url, view_count = :view_count, reason = :reason, updated_at = :updated_at
	WHERE id = :id AND deleted_at IS NULL`
	res, err := r.db.NamedExecContext(ctx, query, s)
	if err != nil {
		return fmt.Errorf("update suggestion: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update suggestion rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// TopRanked returns the highest viewed approved suggestions.
func (r *SuggestionRepository) TopRanked(ctx context.Context, limit int) ([]models.Suggestion, error) {
	if limit <= 0 {
		limit = models.TopRankedLimit
	}
	query := `SELECT ` + suggestionColumns + ` FROM suggestions
	WHERE state = 'APPROVED' AND deleted_at IS NULL
	ORDER BY view_count DESC, created_at ASC
	LIMIT $1`
	items := make([]models.Suggestion, 0, limit)
	if err := r.db.SelectContext(ctx, &items, query, limit); err != nil {
		return nil, fmt.Errorf("top ranked suggestions: %w", err)
	}
	return items, nil
}

// Others pages through approved suggestions ranked after the top list.
// offset is relative to the first suggestion outside the top list.
func (r *SuggestionRepository) Others(ctx context.Context, offset, limit int) ([]models.Suggestion, int, error) {
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 {
		limit = 10
	}
	query := `SELECT ` + suggestionColumns + ` FROM suggestions
	WHERE state = 'APPROVED' AND deleted_at IS NULL
	ORDER BY view_count DESC, created_at ASC
	LIMIT $1 OFFSET $2`
	items := make([]models.Suggestion, 0, limit)
	if err := r.db.SelectContext(ctx, &items, query, limit, offset+models.TopRankedLimit); err != nil {
		return nil, 0, fmt.Errorf("other suggestions: %w", err)
	}

	const count = `SELECT GREATEST(COUNT(*) - $1, 0) FROM suggestions WHERE state = 'APPROVED' AND deleted_at IS NULL`
	var total int
	if err := r.db.GetContext(ctx, &total, count, models.TopRankedLimit); err != nil {
		return nil, 0, fmt.Errorf("count other suggestions: %w", err)
	}
	return items, total, nil
}

// Pending lists live suggestions awaiting review, oldest first.
func (r *SuggestionRepository) Pending(ctx context.Context, offset, limit int) ([]models.Suggestion, int, error) {
	where := squirrel.And{
		squirrel.Eq{"state": models.SuggestionPending},
		squirrel.Expr("deleted_at IS NULL"),
	}
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	query, args, err := psql.Select(suggestionColumns).
		From("suggestions").
		Where(where).
		OrderBy("contribution_count DESC", "created_at ASC").
		Limit(uint64(limit)).
		Offset(uint64(offset)).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build pending query: %w", err)
	}
	items := make([]models.Suggestion, 0, limit)
	if err := r.db.SelectContext(ctx, &items, query, args...); err != nil {
		return nil, 0, fmt.Errorf("pending suggestions: %w", err)
	}

	countQuery, countArgs, err := psql.Select("COUNT(*)").From("suggestions").Where(where).ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build pending count: %w", err)
	}
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, countArgs...); err != nil {
		return nil, 0, fmt.Errorf("count pending suggestions: %w", err)
	}
	return items, total, nil
}

// ImportApproved inserts catalog items directly as approved, skipping any
// external id that already has a live suggestion. It returns how many rows
// were created.
func (r *SuggestionRepository) ImportApproved(ctx context.Context, items []models.ImportItem, submitterID *string) (int, error) {
	if len(items) == 0 {
		return 0, nil
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin import: %w", err)
	}
	defer rollback(tx)

	const query = `INSERT INTO suggestions (id, external_id, title, thumbnail_url, view_count, submitter_id, state, contribution_count, approved_at, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, 'APPROVED', 0, NOW(), NOW(), NOW())
	ON CONFLICT (external_id) WHERE deleted_at IS NULL DO NOTHING`

	created := 0
	for _, item := range items {
		res, err := tx.ExecContext(ctx, query, uuid.NewString(), item.ExternalID, item.Title, item.ThumbnailURL, item.ViewCount, submitterID)
		if err != nil {
			return 0, fmt.Errorf("import suggestion %s: %w", item.ExternalID, err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("import suggestion rows: %w", err)
		}
		created += int(affected)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit import: %w", err)
	}
	return created, nil
}
