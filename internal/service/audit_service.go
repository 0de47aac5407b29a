package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/topfive-api/internal/dto"
	"github.com/noah-isme/topfive-api/internal/models"
	"github.com/noah-isme/topfive-api/internal/repository"
	"github.com/noah-isme/topfive-api/pkg/export"
	appErrors "github.com/noah-isme/topfive-api/pkg/errors"
)

type auditLogger interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

type auditStore interface {
	auditLogger
	GetByID(ctx context.Context, id string) (*models.AuditLog, error)
	List(ctx context.Context, filter models.AuditFilter) ([]models.AuditLog, int, error)
	Export(ctx context.Context, filter models.AuditFilter) ([]models.AuditLog, error)
}

// AuditService exposes the activity log to reviewers.
type AuditService struct {
	repo      auditStore
	renderers map[export.Format]export.Renderer
	logger    *zap.Logger
	now       func() time.Time
}

// NewAuditService constructs the service with CSV and PDF renderers.
func NewAuditService(repo auditStore, logger *zap.Logger) *AuditService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuditService{
		repo: repo,
		renderers: map[export.Format]export.Renderer{
			export.FormatCSV: export.NewCSVExporter(),
			export.FormatPDF: export.NewPDFExporter(),
		},
		logger: logger,
		now:    time.Now,
	}
}

// List returns a filtered page of entries.
func (s *AuditService) List(ctx context.Context, actor models.Actor, query dto.ActivityQuery) ([]models.AuditLog, *models.Pagination, error) {
	if !actor.IsPrivileged() {
		return nil, nil, appErrors.ErrForbidden
	}
	filter := toAuditFilter(query)
	entries, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, storageError(err, "failed to list activity logs")
	}
	return entries, paginate(filter.Page, filter.PageSize, 20, total), nil
}

// Get returns one entry.
func (s *AuditService) Get(ctx context.Context, actor models.Actor, id string) (*models.AuditLog, error) {
	if !actor.IsPrivileged() {
		return nil, appErrors.ErrForbidden
	}
	entry, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "activity log not found")
		}
		return nil, storageError(err, "failed to load activity log")
	}
	return entry, nil
}

// ByTarget lists the history of one entity.
func (s *AuditService) ByTarget(ctx context.Context, actor models.Actor, targetType, targetID string, page, pageSize int) ([]models.AuditLog, *models.Pagination, error) {
	if targetType == "" || targetID == "" {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "target type and id are required")
	}
	return s.List(ctx, actor, dto.ActivityQuery{TargetType: targetType, TargetID: targetID, Page: page, PageSize: pageSize})
}

// ByActor lists everything one user did.
func (s *AuditService) ByActor(ctx context.Context, actor models.Actor, actorID string, page, pageSize int) ([]models.AuditLog, *models.Pagination, error) {
	if actorID == "" {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "actor id is required")
	}
	return s.List(ctx, actor, dto.ActivityQuery{ActorID: actorID, Page: page, PageSize: pageSize})
}

// Export renders the filtered log as CSV or PDF and returns the payload with a file name.
func (s *AuditService) Export(ctx context.Context, actor models.Actor, query dto.ActivityQuery, format export.Format) ([]byte, string, error) {
	if !actor.IsPrivileged() {
		return nil, "", appErrors.ErrForbidden
	}
	renderer, ok := s.renderers[format]
	if !ok {
		return nil, "", appErrors.Clone(appErrors.ErrValidation, "unsupported export format")
	}
	entries, err := s.repo.Export(ctx, toAuditFilter(query))
	if err != nil {
		return nil, "", storageError(err, "failed to export activity logs")
	}

	data := export.Dataset{
		Title:   "Activity log",
		Headers: []string{"When", "Actor", "Action", "Target", "Description"},
		Rows:    make([]map[string]string, 0, len(entries)),
	}
	for _, e := range entries {
		data.Rows = append(data.Rows, map[string]string{
			"When":        e.CreatedAt.UTC().Format(time.RFC3339),
			"Actor":       stringOr(e.ActorID, e.ActorType),
			"Action":      e.Action,
			"Target":      e.TargetType + ":" + stringOr(e.TargetID, "-"),
			"Description": e.Description,
		})
	}
	body, err := renderer.Render(data)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}
	name := fmt.Sprintf("activity-log-%s.%s", s.now().UTC().Format("20060102-150405"), format)
	return body, name, nil
}

func toAuditFilter(q dto.ActivityQuery) models.AuditFilter {
	return models.AuditFilter{
		ActorID:    q.ActorID,
		Action:     q.Action,
		TargetType: q.TargetType,
		TargetID:   q.TargetID,
		From:       q.From,
		To:         q.To,
		Page:       q.Page,
		PageSize:   q.PageSize,
	}
}

// newAuditEntry builds an entry attributed to actor. props is stored as the
// properties snapshot; an entry whose props cannot be encoded is kept without them.
func newAuditEntry(logger *zap.Logger, actor models.Actor, action, targetType, targetID, description string, props map[string]interface{}) *models.AuditLog {
	entry := &models.AuditLog{
		ActorType:   models.AuditActorUser,
		Action:      action,
		TargetType:  targetType,
		Description: description,
		IPAddress:   actor.IP,
		UserAgent:   actor.UserAgent,
	}
	if actor.ID != "" {
		id := actor.ID
		entry.ActorID = &id
	}
	if actor.System {
		entry.ActorType = models.AuditActorSystem
	}
	if targetID != "" {
		entry.TargetID = &targetID
	}
	if props != nil {
		raw, err := json.Marshal(props)
		if err != nil {
			logger.Warn("dropping unencodable audit properties",
				zap.String("action", action),
				zap.String("target_type", targetType),
				zap.Error(err))
		} else {
			entry.Properties = raw
		}
	}
	return entry
}

func stringOr(v *string, fallback string) string {
	if v == nil || *v == "" {
		return fallback
	}
	return *v
}

func paginate(page, pageSize, def, total int) *models.Pagination {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = def
	}
	if pageSize > 100 {
		pageSize = 100
	}
	return &models.Pagination{Page: page, PageSize: pageSize, TotalCount: total}
}
