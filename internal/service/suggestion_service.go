package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/topfive-api/internal/dto"
	"github.com/noah-isme/topfive-api/internal/models"
	"github.com/noah-isme/topfive-api/internal/policy"
	"github.com/noah-isme/topfive-api/internal/repository"
	"github.com/noah-isme/topfive-api/pkg/config"
	appErrors "github.com/noah-isme/topfive-api/pkg/errors"
	"github.com/noah-isme/topfive-api/pkg/youtube"
)

type suggestionStore interface {
	Create(ctx context.Context, s *models.Suggestion) error
	GetByID(ctx context.Context, id string) (*models.Suggestion, error)
	IncrementContribution(ctx context.Context, id, userID string, threshold int) (*models.Suggestion, bool, error)
	SetApprovalState(ctx context.Context, id string, state models.SuggestionState) (*models.Suggestion, bool, error)
	Reject(ctx context.Context, id string) (*models.Suggestion, error)
	SoftDelete(ctx context.Context, id string) (*models.Suggestion, error)
	Update(ctx context.Context, s *models.Suggestion) error
	TopRanked(ctx context.Context, limit int) ([]models.Suggestion, error)
	Others(ctx context.Context, offset, limit int) ([]models.Suggestion, int, error)
	Pending(ctx context.Context, offset, limit int) ([]models.Suggestion, int, error)
	ImportApproved(ctx context.Context, items []models.ImportItem, submitterID *string) (int, error)
}

type videoCatalog interface {
	Video(ctx context.Context, id string) (*youtube.Video, error)
}

type suggestionNotifier interface {
	Dispatch(ctx context.Context, s *models.Suggestion, kind models.NotificationType) error
}

// Side effect kinds used in logs and metrics.
const (
	sideEffectAudit        = "audit"
	sideEffectNotification = "notification"
	sideEffectCache        = "cache"
)

type othersPage struct {
	Items []models.Suggestion `json:"items"`
	Total int                 `json:"total"`
}

// SuggestionService runs the approval workflow. It checks policy before any
// mutation, lets the store decide every state change, and fires audit,
// notification and cache side effects only after the store reports a change.
type SuggestionService struct {
	store     suggestionStore
	catalog   videoCatalog
	audit     auditLogger
	notifier  suggestionNotifier
	cache     *CacheService
	metrics   *MetricsService
	validator *validator.Validate
	cfg       config.SuggestionsConfig
	logger    *zap.Logger
}

// SuggestionServiceOption configures the service.
type SuggestionServiceOption func(*SuggestionService)

// WithSuggestionCache enables the ranking cache.
func WithSuggestionCache(cache *CacheService) SuggestionServiceOption {
	return func(s *SuggestionService) {
		s.cache = cache
	}
}

// WithSuggestionMetrics records transitions and side-effect failures.
func WithSuggestionMetrics(metrics *MetricsService) SuggestionServiceOption {
	return func(s *SuggestionService) {
		s.metrics = metrics
	}
}

// WithSuggestionValidator overrides the request validator.
func WithSuggestionValidator(v *validator.Validate) SuggestionServiceOption {
	return func(s *SuggestionService) {
		if v != nil {
			s.validator = v
		}
	}
}

// NewSuggestionService constructs the workflow.
func NewSuggestionService(store suggestionStore, catalog videoCatalog, audit auditLogger, notifier suggestionNotifier, cfg config.SuggestionsConfig, logger *zap.Logger, opts ...SuggestionServiceOption) *SuggestionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.StoreTimeout <= 0 {
		cfg.StoreTimeout = 5 * time.Second
	}
	if cfg.OthersPageSize <= 0 {
		cfg.OthersPageSize = 10
	}
	svc := &SuggestionService{
		store:     store,
		catalog:   catalog,
		audit:     audit,
		notifier:  notifier,
		validator: validator.New(),
		cfg:       cfg,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// Submit resolves the URL against the catalog and stores a pending suggestion.
func (s *SuggestionService) Submit(ctx context.Context, actor models.Actor, req dto.CreateSuggestionRequest) (*models.Suggestion, error) {
	if !policy.CanCreateSuggestion(actor) {
		return nil, appErrors.ErrUnauthorized
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid suggestion payload")
	}

	video, err := s.resolve(ctx, req.URL)
	if err != nil {
		return nil, err
	}

	submitter := actor.ID
	suggestion := &models.Suggestion{
		ExternalID:   video.ID,
		Title:        video.Title,
		ThumbnailURL: video.ThumbnailURL,
		ViewCount:    video.ViewCount,
		SubmitterID:  &submitter,
	}
	if reason := strings.TrimSpace(req.Reason); reason != "" {
		suggestion.Reason = &reason
	}

	err = s.withStore(ctx, "create", func(ctx context.Context) error {
		return s.store.Create(ctx, suggestion)
	})
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateExternalID) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "this video has already been suggested")
		}
		return nil, storageError(err, "failed to create suggestion")
	}

	s.emitAudit(ctx, newAuditEntry(s.logger, actor, models.AuditActionSuggestionCreate, models.AuditTargetSuggestion, suggestion.ID,
		"suggestion created", map[string]interface{}{
			"external_id": suggestion.ExternalID,
			"title":       suggestion.Title,
			"view_count":  suggestion.ViewCount,
		}))
	return suggestion, nil
}

func (s *SuggestionService) resolve(ctx context.Context, raw string) (*youtube.Video, error) {
	id, ok := youtube.ExtractVideoID(raw)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrSourceResolution, "could not extract a video id from the url")
	}
	if s.catalog == nil {
		return nil, appErrors.Clone(appErrors.ErrSourceResolution, "video catalog is not configured")
	}
	video, err := s.catalog.Video(ctx, id)
	if err != nil {
		if errors.Is(err, youtube.ErrVideoNotFound) {
			return nil, appErrors.Wrap(err, appErrors.ErrSourceResolution.Code, appErrors.ErrSourceResolution.Status, "video not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrSourceResolution.Code, appErrors.ErrSourceResolution.Status, "failed to fetch video metadata")
	}
	if video == nil || video.ID == "" || video.Title == "" {
		return nil, appErrors.Clone(appErrors.ErrSourceResolution, "video metadata is incomplete")
	}
	return video, nil
}

// Contribute records the actor's vote. The vote that reaches the threshold
// approves the suggestion; exactly one caller observes AutoApproved.
func (s *SuggestionService) Contribute(ctx context.Context, actor models.Actor, id string) (*dto.ContributionResult, error) {
	if !actor.Authenticated() {
		return nil, appErrors.ErrUnauthorized
	}

	current, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if current.State == models.SuggestionApproved {
		s.metrics.RecordContribution("already_approved")
		return nil, appErrors.Clone(appErrors.ErrConflict, "suggestion is already approved")
	}
	if !policy.CanContribute(actor, current) {
		return nil, appErrors.ErrForbidden
	}

	var (
		updated      *models.Suggestion
		autoApproved bool
	)
	err = s.withStore(ctx, "increment_contribution", func(ctx context.Context) error {
		var incErr error
		updated, autoApproved, incErr = s.store.IncrementContribution(ctx, id, actor.ID, models.ApprovalThreshold)
		return incErr
	})
	if err != nil {
		switch {
		case repository.IsNotFound(err):
			return nil, appErrors.Clone(appErrors.ErrNotFound, "suggestion not found")
		case errors.Is(err, repository.ErrAlreadyApproved):
			s.metrics.RecordContribution("already_approved")
			return nil, appErrors.Clone(appErrors.ErrConflict, "suggestion is already approved")
		case errors.Is(err, repository.ErrDuplicateVote):
			s.metrics.RecordContribution("duplicate")
			return nil, appErrors.Clone(appErrors.ErrConflict, "you have already contributed to this suggestion")
		case errors.Is(err, repository.ErrNotPending):
			return nil, appErrors.Clone(appErrors.ErrConflict, "suggestion is no longer pending")
		}
		return nil, storageError(err, "failed to record contribution")
	}
	s.metrics.RecordContribution("recorded")

	if autoApproved {
		s.metrics.RecordTransition("auto_approved")
		s.emitAudit(ctx, newAuditEntry(s.logger, actor, models.AuditActionSuggestionAutoApprove, models.AuditTargetSuggestion, updated.ID,
			"auto-approved", map[string]interface{}{
				"external_id":        updated.ExternalID,
				"contribution_count": updated.ContributionCount,
				"threshold":          models.ApprovalThreshold,
			}))
		s.notify(ctx, updated, models.NotificationAutoApproved)
		s.invalidateRanking(ctx)
	} else {
		s.emitAudit(ctx, newAuditEntry(s.logger, actor, models.AuditActionSuggestionContribute, models.AuditTargetSuggestion, updated.ID,
			"contribution recorded", map[string]interface{}{
				"contribution_count":  updated.ContributionCount,
				"needed_for_approval": updated.NeededForApproval(),
			}))
	}

	return &dto.ContributionResult{
		Count:             updated.ContributionCount,
		NeededForApproval: updated.NeededForApproval(),
		AutoApproved:      autoApproved,
		Suggestion:        updated,
	}, nil
}

// Review approves or rejects a pending suggestion. Approving an approved
// suggestion is a no-op; rejecting one is a conflict.
func (s *SuggestionService) Review(ctx context.Context, actor models.Actor, id string, req dto.ReviewSuggestionRequest) (*dto.ReviewResult, error) {
	if !actor.Authenticated() {
		return nil, appErrors.ErrUnauthorized
	}
	if !policy.CanApprove(actor, nil) {
		return nil, appErrors.ErrForbidden
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid review decision")
	}

	if req.Decision == dto.DecisionReject {
		return s.reject(ctx, actor, id)
	}
	return s.approve(ctx, actor, id)
}

func (s *SuggestionService) approve(ctx context.Context, actor models.Actor, id string) (*dto.ReviewResult, error) {
	var (
		updated *models.Suggestion
		changed bool
	)
	err := s.withStore(ctx, "approve", func(ctx context.Context) error {
		var setErr error
		updated, changed, setErr = s.store.SetApprovalState(ctx, id, models.SuggestionApproved)
		return setErr
	})
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "suggestion not found")
		}
		return nil, storageError(err, "failed to approve suggestion")
	}

	if changed {
		s.metrics.RecordTransition("approved")
		s.emitAudit(ctx, newAuditEntry(s.logger, actor, models.AuditActionSuggestionApprove, models.AuditTargetSuggestion, updated.ID,
			"approved by reviewer", map[string]interface{}{
				"external_id":        updated.ExternalID,
				"contribution_count": updated.ContributionCount,
			}))
		s.notify(ctx, updated, models.NotificationApproved)
		s.invalidateRanking(ctx)
	}
	return &dto.ReviewResult{Decision: dto.DecisionApprove, Changed: changed, Suggestion: updated}, nil
}

func (s *SuggestionService) reject(ctx context.Context, actor models.Actor, id string) (*dto.ReviewResult, error) {
	var rejected *models.Suggestion
	err := s.withStore(ctx, "reject", func(ctx context.Context) error {
		var rejErr error
		rejected, rejErr = s.store.Reject(ctx, id)
		return rejErr
	})
	if err != nil {
		switch {
		case repository.IsNotFound(err):
			return nil, appErrors.Clone(appErrors.ErrNotFound, "suggestion not found")
		case errors.Is(err, repository.ErrNotPending):
			return nil, appErrors.Clone(appErrors.ErrConflict, "approved suggestions cannot be rejected")
		}
		return nil, storageError(err, "failed to reject suggestion")
	}

	s.metrics.RecordTransition("rejected")
	s.emitAudit(ctx, newAuditEntry(s.logger, actor, models.AuditActionSuggestionReject, models.AuditTargetSuggestion, rejected.ID,
		"rejected and deleted", map[string]interface{}{
			"external_id":        rejected.ExternalID,
			"title":              rejected.Title,
			"contribution_count": rejected.ContributionCount,
		}))
	if s.cfg.NotifyOnReject {
		s.notify(ctx, rejected, models.NotificationRejected)
	}
	return &dto.ReviewResult{Decision: dto.DecisionReject, Changed: true, Suggestion: rejected}, nil
}

// Update edits the metadata of a live suggestion.
func (s *SuggestionService) Update(ctx context.Context, actor models.Actor, id string, req dto.UpdateSuggestionRequest) (*models.Suggestion, error) {
	if !policy.CanEditSuggestion(actor, nil) {
		return nil, appErrors.ErrForbidden
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid suggestion update")
	}

	suggestion, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}

	changes := map[string]interface{}{}
	if req.Title != nil {
		suggestion.Title = strings.TrimSpace(*req.Title)
		changes["title"] = suggestion.Title
	}
	if req.ThumbnailURL != nil {
		suggestion.ThumbnailURL = *req.ThumbnailURL
		changes["thumbnail_url"] = suggestion.ThumbnailURL
	}
	if req.ViewCount != nil {
		suggestion.ViewCount = *req.ViewCount
		changes["view_count"] = suggestion.ViewCount
	}
	if req.Reason != nil {
		reason := strings.TrimSpace(*req.Reason)
		if reason == "" {
			suggestion.Reason = nil
		} else {
			suggestion.Reason = &reason
		}
		changes["reason"] = reason
	}
	if len(changes) == 0 {
		return suggestion, nil
	}

	err = s.withStore(ctx, "update", func(ctx context.Context) error {
		return s.store.Update(ctx, suggestion)
	})
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "suggestion not found")
		}
		return nil, storageError(err, "failed to update suggestion")
	}

	s.emitAudit(ctx, newAuditEntry(s.logger, actor, models.AuditActionSuggestionUpdate, models.AuditTargetSuggestion, suggestion.ID,
		"suggestion updated", changes))
	if suggestion.State == models.SuggestionApproved {
		s.invalidateRanking(ctx)
	}
	return suggestion, nil
}

// Delete retires a live suggestion in any state.
func (s *SuggestionService) Delete(ctx context.Context, actor models.Actor, id string) error {
	if !policy.CanDeleteSuggestion(actor, nil) {
		return appErrors.ErrForbidden
	}

	var deleted *models.Suggestion
	err := s.withStore(ctx, "delete", func(ctx context.Context) error {
		var delErr error
		deleted, delErr = s.store.SoftDelete(ctx, id)
		return delErr
	})
	if err != nil {
		if repository.IsNotFound(err) {
			return appErrors.Clone(appErrors.ErrNotFound, "suggestion not found")
		}
		return storageError(err, "failed to delete suggestion")
	}

	s.metrics.RecordTransition("deleted")
	s.emitAudit(ctx, newAuditEntry(s.logger, actor, models.AuditActionSuggestionDelete, models.AuditTargetSuggestion, deleted.ID,
		"deleted by reviewer", map[string]interface{}{
			"external_id": deleted.ExternalID,
			"state":       deleted.State,
		}))
	if deleted.State == models.SuggestionApproved {
		s.invalidateRanking(ctx)
	}
	return nil
}

// BulkImport stores catalog items as approved suggestions, skipping any
// external id that already has a live suggestion.
func (s *SuggestionService) BulkImport(ctx context.Context, actor models.Actor, items []models.ImportItem) (*dto.ImportResult, error) {
	if !policy.CanImport(actor) {
		return nil, appErrors.ErrForbidden
	}

	seen := make(map[string]struct{}, len(items))
	unique := make([]models.ImportItem, 0, len(items))
	for _, item := range items {
		item.ExternalID = strings.TrimSpace(item.ExternalID)
		if item.ExternalID == "" || item.Title == "" {
			continue
		}
		if _, dup := seen[item.ExternalID]; dup {
			continue
		}
		seen[item.ExternalID] = struct{}{}
		unique = append(unique, item)
	}

	var submitter *string
	if actor.ID != "" {
		id := actor.ID
		submitter = &id
	}

	created := 0
	if len(unique) > 0 {
		err := s.withStore(ctx, "import", func(ctx context.Context) error {
			var impErr error
			created, impErr = s.store.ImportApproved(ctx, unique, submitter)
			return impErr
		})
		if err != nil {
			return nil, storageError(err, "failed to import suggestions")
		}
	}

	result := &dto.ImportResult{Requested: len(items), Created: created, Skipped: len(items) - created}
	s.metrics.RecordCatalogImport(created)
	s.emitAudit(ctx, newAuditEntry(s.logger, actor, models.AuditActionSuggestionImport, models.AuditTargetSuggestion, "",
		fmt.Sprintf("imported %d suggestions", created), map[string]interface{}{
			"requested": result.Requested,
			"created":   result.Created,
			"skipped":   result.Skipped,
		}))
	if created > 0 {
		s.invalidateRanking(ctx)
	}
	return result, nil
}

// Get returns a live suggestion.
func (s *SuggestionService) Get(ctx context.Context, actor models.Actor, id string) (*models.Suggestion, error) {
	suggestion, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !policy.CanViewSuggestion(actor, suggestion) {
		return nil, appErrors.ErrForbidden
	}
	return suggestion, nil
}

func (s *SuggestionService) get(ctx context.Context, id string) (*models.Suggestion, error) {
	var suggestion *models.Suggestion
	err := s.withStore(ctx, "get", func(ctx context.Context) error {
		var getErr error
		suggestion, getErr = s.store.GetByID(ctx, id)
		return getErr
	})
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "suggestion not found")
		}
		return nil, storageError(err, "failed to load suggestion")
	}
	return suggestion, nil
}

// TopFive returns the ranked list.
func (s *SuggestionService) TopFive(ctx context.Context) ([]models.Suggestion, error) {
	gen, cacheable := s.rankingGeneration(ctx)
	key := fmt.Sprintf(cacheKeyTopFiveFmt, gen)

	var items []models.Suggestion
	if cacheable {
		if hit, _ := s.cache.Get(ctx, key, &items); hit {
			return items, nil
		}
	}
	err := s.withStore(ctx, "top_ranked", func(ctx context.Context) error {
		var topErr error
		items, topErr = s.store.TopRanked(ctx, models.TopRankedLimit)
		return topErr
	})
	if err != nil {
		return nil, storageError(err, "failed to load top suggestions")
	}
	if cacheable {
		s.storeRanking(ctx, gen, key, items)
	}
	return items, nil
}

// Others pages through approved suggestions ranked below the top list.
func (s *SuggestionService) Others(ctx context.Context, page, pageSize int) ([]models.Suggestion, *models.Pagination, error) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 || pageSize > 100 {
		pageSize = s.cfg.OthersPageSize
	}
	gen, cacheable := s.rankingGeneration(ctx)
	key := fmt.Sprintf(cacheKeyOthersFmt, gen, page, pageSize)

	if cacheable {
		var cached othersPage
		if hit, _ := s.cache.Get(ctx, key, &cached); hit {
			return cached.Items, &models.Pagination{Page: page, PageSize: pageSize, TotalCount: cached.Total}, nil
		}
	}

	var (
		items []models.Suggestion
		total int
	)
	err := s.withStore(ctx, "others", func(ctx context.Context) error {
		var othersErr error
		items, total, othersErr = s.store.Others(ctx, (page-1)*pageSize, pageSize)
		return othersErr
	})
	if err != nil {
		return nil, nil, storageError(err, "failed to load suggestions")
	}
	if cacheable {
		s.storeRanking(ctx, gen, key, othersPage{Items: items, Total: total})
	}
	return items, &models.Pagination{Page: page, PageSize: pageSize, TotalCount: total}, nil
}

// Ranking returns the top list together with one page of the remainder.
func (s *SuggestionService) Ranking(ctx context.Context, page, pageSize int) (*dto.RankingResponse, *models.Pagination, error) {
	top, err := s.TopFive(ctx)
	if err != nil {
		return nil, nil, err
	}
	others, pagination, err := s.Others(ctx, page, pageSize)
	if err != nil {
		return nil, nil, err
	}
	return &dto.RankingResponse{TopFive: top, Others: others}, pagination, nil
}

// Pending lists the moderation queue.
func (s *SuggestionService) Pending(ctx context.Context, actor models.Actor, page, pageSize int) ([]models.Suggestion, *models.Pagination, error) {
	if !policy.CanViewPending(actor) {
		return nil, nil, appErrors.ErrForbidden
	}
	pagination := paginate(page, pageSize, 20, 0)

	var (
		items []models.Suggestion
		total int
	)
	err := s.withStore(ctx, "pending", func(ctx context.Context) error {
		var pendErr error
		items, total, pendErr = s.store.Pending(ctx, (pagination.Page-1)*pagination.PageSize, pagination.PageSize)
		return pendErr
	})
	if err != nil {
		return nil, nil, storageError(err, "failed to load pending suggestions")
	}
	pagination.TotalCount = total
	return items, pagination, nil
}

// withStore runs fn under the configured store timeout and records its latency.
func (s *SuggestionService) withStore(ctx context.Context, operation string, fn func(context.Context) error) error {
	storeCtx, cancel := context.WithTimeout(ctx, s.cfg.StoreTimeout)
	defer cancel()
	start := time.Now()
	err := fn(storeCtx)
	s.metrics.ObserveStoreCall(operation, err, time.Since(start))
	return err
}

// sideEffectContext detaches from the request so a client hanging up after
// commit does not cancel the audit write or the notification.
func (s *SuggestionService) sideEffectContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), s.cfg.StoreTimeout)
}

func (s *SuggestionService) emitAudit(ctx context.Context, entry *models.AuditLog) {
	if s.audit == nil || entry == nil {
		return
	}
	auditCtx, cancel := s.sideEffectContext(ctx)
	defer cancel()
	if err := s.audit.CreateAuditLog(auditCtx, entry); err != nil {
		s.metrics.RecordSideEffectFailure(sideEffectAudit)
		s.logger.Warn("failed to persist audit log",
			zap.String("side_effect", sideEffectAudit),
			zap.String("action", entry.Action),
			zap.Stringp("actor_id", entry.ActorID),
			zap.Stringp("suggestion_id", entry.TargetID),
			zap.Error(err))
	}
}

func (s *SuggestionService) notify(ctx context.Context, suggestion *models.Suggestion, kind models.NotificationType) {
	if s.notifier == nil {
		return
	}
	notifyCtx, cancel := s.sideEffectContext(ctx)
	defer cancel()
	if err := s.notifier.Dispatch(notifyCtx, suggestion, kind); err != nil {
		s.metrics.RecordSideEffectFailure(sideEffectNotification)
		s.logger.Warn("failed to dispatch notification",
			zap.String("side_effect", sideEffectNotification),
			zap.String("type", string(kind)),
			zap.String("suggestion_id", suggestion.ID),
			zap.Stringp("submitter_id", suggestion.SubmitterID),
			zap.Error(err))
	}
}

// rankingGeneration reports the current ranking generation. The second result
// is false when the cache is off or the generation cannot be read.
func (s *SuggestionService) rankingGeneration(ctx context.Context) (int64, bool) {
	if !s.cache.Enabled() {
		return 0, false
	}
	gen, err := s.cache.Generation(ctx, cacheKeyRankingGen)
	if err != nil {
		return 0, false
	}
	return gen, true
}

// storeRanking caches value only if no invalidation happened since gen was
// read; rows loaded before an approval must not outlive it.
func (s *SuggestionService) storeRanking(ctx context.Context, gen int64, key string, value interface{}) {
	if current, ok := s.rankingGeneration(ctx); !ok || current != gen {
		return
	}
	_ = s.cache.Set(ctx, key, value, s.cfg.CacheTTL)
}

func (s *SuggestionService) invalidateRanking(ctx context.Context) {
	if !s.cache.Enabled() {
		return
	}
	cacheCtx, cancel := s.sideEffectContext(ctx)
	defer cancel()
	if _, err := s.cache.Bump(cacheCtx, cacheKeyRankingGen); err != nil {
		s.metrics.RecordSideEffectFailure(sideEffectCache)
	}
	if err := s.cache.Invalidate(cacheCtx, cachePatternRanking); err != nil {
		s.metrics.RecordSideEffectFailure(sideEffectCache)
	}
}
