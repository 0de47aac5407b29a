package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/topfive-api/internal/dto"
	"github.com/noah-isme/topfive-api/internal/models"
	"github.com/noah-isme/topfive-api/internal/repository"
	"github.com/noah-isme/topfive-api/pkg/config"
	appErrors "github.com/noah-isme/topfive-api/pkg/errors"
	"github.com/noah-isme/topfive-api/pkg/youtube"
)

var (
	adminActor = models.Actor{ID: "admin-1", Role: models.RoleAdmin}
	userActor  = models.Actor{ID: "user-1", Role: models.RoleUser}
)

type workflowFixture struct {
	store    *memSuggestionStore
	catalog  *fakeCatalog
	audit    *recordingAudit
	notifier *recordingNotifier
	metrics  *MetricsService
	svc      *SuggestionService
}

func newWorkflowFixture(t *testing.T, cfg config.SuggestionsConfig, opts ...SuggestionServiceOption) *workflowFixture {
	t.Helper()
	f := &workflowFixture{
		store: newMemSuggestionStore(),
		catalog: &fakeCatalog{videos: map[string]youtube.Video{
			"dQw4w9WgXcQ": {ID: "dQw4w9WgXcQ", Title: "Rio de Lagrimas", ThumbnailURL: "https://i.ytimg.com/vi/dQw4w9WgXcQ/hqdefault.jpg", ViewCount: 1200},
		}},
		audit:    &recordingAudit{},
		notifier: &recordingNotifier{},
		metrics:  NewMetricsService(),
	}
	opts = append([]SuggestionServiceOption{WithSuggestionMetrics(f.metrics)}, opts...)
	f.svc = NewSuggestionService(f.store, f.catalog, f.audit, f.notifier, cfg, nil, opts...)
	return f
}

func pendingWith(count int, submitter string) models.Suggestion {
	return models.Suggestion{
		ExternalID:        "ext-" + submitter,
		Title:             "Pagode em Brasilia",
		ViewCount:         500,
		SubmitterID:       &submitter,
		State:             models.SuggestionPending,
		ContributionCount: count,
	}
}

func assertAppError(t *testing.T, err error, want *appErrors.Error) {
	t.Helper()
	require.Error(t, err)
	assert.True(t, errors.Is(err, want), "expected %s, got %v", want.Code, err)
}

func TestContributeConcurrentVotesApproveExactlyOnce(t *testing.T) {
	f := newWorkflowFixture(t, config.SuggestionsConfig{})
	s := f.store.put(pendingWith(0, "submitter"))

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		conflicts int
		autos     int
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			actor := models.Actor{ID: "voter-" + string(rune('a'+n)), Role: models.RoleUser}
			res, err := f.svc.Contribute(context.Background(), actor, s.ID)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if errors.Is(err, appErrors.ErrConflict) {
					conflicts++
				}
				return
			}
			successes++
			if res.AutoApproved {
				autos++
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 5, successes)
	assert.Equal(t, 5, conflicts)
	assert.Equal(t, 1, autos)

	final := f.store.snapshot(s.ID)
	assert.Equal(t, models.SuggestionApproved, final.State)
	assert.Equal(t, 5, final.ContributionCount)
	assert.Equal(t, 1, f.audit.count(models.AuditActionSuggestionAutoApprove))
	assert.Equal(t, 4, f.audit.count(models.AuditActionSuggestionContribute))
	assert.Equal(t, 1, f.notifier.count(models.NotificationAutoApproved))
}

func TestContributeDuplicateVoteIsConflict(t *testing.T) {
	f := newWorkflowFixture(t, config.SuggestionsConfig{})
	s := f.store.put(pendingWith(0, "submitter"))

	res, err := f.svc.Contribute(context.Background(), userActor, s.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Count)
	assert.Equal(t, 4, res.NeededForApproval)

	_, err = f.svc.Contribute(context.Background(), userActor, s.ID)
	assertAppError(t, err, appErrors.ErrConflict)
	assert.Equal(t, 1, f.store.snapshot(s.ID).ContributionCount)
}

func TestContributeToApprovedIsConflictForEveryRole(t *testing.T) {
	f := newWorkflowFixture(t, config.SuggestionsConfig{})
	approved := pendingWith(5, "submitter")
	approved.State = models.SuggestionApproved
	s := f.store.put(approved)

	for _, actor := range []models.Actor{adminActor, userActor} {
		_, err := f.svc.Contribute(context.Background(), actor, s.ID)
		assertAppError(t, err, appErrors.ErrConflict)
	}
	assert.Equal(t, 5, f.store.snapshot(s.ID).ContributionCount)
}

func TestContributeRequiresIdentityAndLiveSuggestion(t *testing.T) {
	f := newWorkflowFixture(t, config.SuggestionsConfig{})
	s := f.store.put(pendingWith(0, "submitter"))

	_, err := f.svc.Contribute(context.Background(), models.Actor{}, s.ID)
	assertAppError(t, err, appErrors.ErrUnauthorized)

	_, err = f.svc.Contribute(context.Background(), userActor, "missing")
	assertAppError(t, err, appErrors.ErrNotFound)
}

func TestContributeReachingThresholdNotifiesSubmitter(t *testing.T) {
	f := newWorkflowFixture(t, config.SuggestionsConfig{})
	s := f.store.put(pendingWith(4, "submitter"))

	res, err := f.svc.Contribute(context.Background(), userActor, s.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, res.Count)
	assert.Equal(t, 0, res.NeededForApproval)
	assert.True(t, res.AutoApproved)
	assert.Equal(t, models.SuggestionApproved, res.Suggestion.State)

	require.Len(t, f.notifier.sent, 1)
	assert.Equal(t, "submitter", f.notifier.sent[0].UserID)
	assert.Equal(t, models.NotificationAutoApproved, f.notifier.sent[0].Kind)
	assert.Equal(t, uint64(1), f.metrics.Snapshot().Transitions)
}

func TestRejectHidesSuggestionButKeepsAudit(t *testing.T) {
	f := newWorkflowFixture(t, config.SuggestionsConfig{})
	s := f.store.put(pendingWith(2, "submitter"))
	ctx := context.Background()

	res, err := f.svc.Review(ctx, adminActor, s.ID, dto.ReviewSuggestionRequest{Decision: dto.DecisionReject})
	require.NoError(t, err)
	assert.True(t, res.Changed)
	assert.Equal(t, models.SuggestionRejected, res.Suggestion.State)

	_, err = f.svc.Get(ctx, userActor, s.ID)
	assertAppError(t, err, appErrors.ErrNotFound)

	top, err := f.svc.TopFive(ctx)
	require.NoError(t, err)
	assert.Empty(t, top)

	pending, pagination, err := f.svc.Pending(ctx, adminActor, 1, 20)
	require.NoError(t, err)
	assert.Empty(t, pending)
	assert.Equal(t, 0, pagination.TotalCount)

	entries := f.audit.forTarget(s.ID)
	require.Len(t, entries, 1)
	assert.Equal(t, models.AuditActionSuggestionReject, entries[0].Action)
	assert.Equal(t, 0, f.notifier.count(models.NotificationRejected))
}

func TestRejectNotifiesWhenConfigured(t *testing.T) {
	f := newWorkflowFixture(t, config.SuggestionsConfig{NotifyOnReject: true})
	s := f.store.put(pendingWith(0, "submitter"))

	_, err := f.svc.Review(context.Background(), adminActor, s.ID, dto.ReviewSuggestionRequest{Decision: dto.DecisionReject})
	require.NoError(t, err)
	assert.Equal(t, 1, f.notifier.count(models.NotificationRejected))
}

func TestRejectApprovedIsConflict(t *testing.T) {
	f := newWorkflowFixture(t, config.SuggestionsConfig{})
	approved := pendingWith(5, "submitter")
	approved.State = models.SuggestionApproved
	s := f.store.put(approved)

	_, err := f.svc.Review(context.Background(), adminActor, s.ID, dto.ReviewSuggestionRequest{Decision: dto.DecisionReject})
	assertAppError(t, err, appErrors.ErrConflict)
	assert.Equal(t, models.SuggestionApproved, f.store.snapshot(s.ID).State)
}

func TestSubmitDuplicateAndResubmitAfterReject(t *testing.T) {
	f := newWorkflowFixture(t, config.SuggestionsConfig{})
	ctx := context.Background()
	req := dto.CreateSuggestionRequest{URL: "https://www.youtube.com/watch?v=dQw4w9WgXcQ", Reason: "  classic  "}

	first, err := f.svc.Submit(ctx, userActor, req)
	require.NoError(t, err)
	assert.Equal(t, "dQw4w9WgXcQ", first.ExternalID)
	assert.Equal(t, "Rio de Lagrimas", first.Title)
	assert.Equal(t, models.SuggestionPending, first.State)
	require.NotNil(t, first.Reason)
	assert.Equal(t, "classic", *first.Reason)
	require.NotNil(t, first.SubmitterID)
	assert.Equal(t, userActor.ID, *first.SubmitterID)

	_, err = f.svc.Submit(ctx, models.Actor{ID: "user-2", Role: models.RoleUser}, dto.CreateSuggestionRequest{URL: "https://youtu.be/dQw4w9WgXcQ"})
	assertAppError(t, err, appErrors.ErrConflict)

	_, err = f.svc.Review(ctx, adminActor, first.ID, dto.ReviewSuggestionRequest{Decision: dto.DecisionReject})
	require.NoError(t, err)

	second, err := f.svc.Submit(ctx, userActor, req)
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, 2, f.audit.count(models.AuditActionSuggestionCreate))
}

func TestSubmitSourceResolutionFailures(t *testing.T) {
	f := newWorkflowFixture(t, config.SuggestionsConfig{})
	ctx := context.Background()

	_, err := f.svc.Submit(ctx, userActor, dto.CreateSuggestionRequest{URL: "https://vimeo.com/12345"})
	assertAppError(t, err, appErrors.ErrSourceResolution)

	_, err = f.svc.Submit(ctx, userActor, dto.CreateSuggestionRequest{URL: "https://youtu.be/AAAAAAAAAAA"})
	assertAppError(t, err, appErrors.ErrSourceResolution)

	f.catalog.err = errors.New("quota exceeded")
	_, err = f.svc.Submit(ctx, userActor, dto.CreateSuggestionRequest{URL: "dQw4w9WgXcQ"})
	assertAppError(t, err, appErrors.ErrSourceResolution)

	_, err = f.svc.Submit(ctx, models.Actor{}, dto.CreateSuggestionRequest{URL: "dQw4w9WgXcQ"})
	assertAppError(t, err, appErrors.ErrUnauthorized)

	_, err = f.svc.Submit(ctx, userActor, dto.CreateSuggestionRequest{})
	assertAppError(t, err, appErrors.ErrValidation)
	assert.Empty(t, f.audit.entries)
}

func TestReviewByNonPrivilegedActorIsForbidden(t *testing.T) {
	f := newWorkflowFixture(t, config.SuggestionsConfig{})
	s := f.store.put(pendingWith(3, "submitter"))

	for _, decision := range []dto.ReviewDecision{dto.DecisionApprove, dto.DecisionReject} {
		_, err := f.svc.Review(context.Background(), userActor, s.ID, dto.ReviewSuggestionRequest{Decision: decision})
		assertAppError(t, err, appErrors.ErrForbidden)
	}

	_, err := f.svc.Review(context.Background(), userActor, "missing", dto.ReviewSuggestionRequest{Decision: dto.DecisionApprove})
	assertAppError(t, err, appErrors.ErrForbidden)

	final := f.store.snapshot(s.ID)
	assert.Equal(t, models.SuggestionPending, final.State)
	assert.Nil(t, final.DeletedAt)
	assert.Empty(t, f.audit.entries)
	assert.Empty(t, f.notifier.sent)
}

func TestApproveIsIdempotent(t *testing.T) {
	f := newWorkflowFixture(t, config.SuggestionsConfig{})
	s := f.store.put(pendingWith(1, "submitter"))
	req := dto.ReviewSuggestionRequest{Decision: dto.DecisionApprove}

	first, err := f.svc.Review(context.Background(), adminActor, s.ID, req)
	require.NoError(t, err)
	assert.True(t, first.Changed)
	assert.Equal(t, models.SuggestionApproved, first.Suggestion.State)

	second, err := f.svc.Review(context.Background(), adminActor, s.ID, req)
	require.NoError(t, err)
	assert.False(t, second.Changed)

	assert.Equal(t, 1, f.audit.count(models.AuditActionSuggestionApprove))
	assert.Equal(t, 1, f.notifier.count(models.NotificationApproved))
}

func TestReviewRejectsUnknownDecision(t *testing.T) {
	f := newWorkflowFixture(t, config.SuggestionsConfig{})
	s := f.store.put(pendingWith(0, "submitter"))

	_, err := f.svc.Review(context.Background(), adminActor, s.ID, dto.ReviewSuggestionRequest{Decision: "maybe"})
	assertAppError(t, err, appErrors.ErrValidation)

	_, err = f.svc.Review(context.Background(), adminActor, "missing", dto.ReviewSuggestionRequest{Decision: dto.DecisionApprove})
	assertAppError(t, err, appErrors.ErrNotFound)
}

func TestSideEffectFailuresDoNotFailContribution(t *testing.T) {
	f := newWorkflowFixture(t, config.SuggestionsConfig{})
	f.audit.err = errors.New("audit table locked")
	f.notifier.err = errors.New("notification insert failed")
	s := f.store.put(pendingWith(4, "submitter"))

	res, err := f.svc.Contribute(context.Background(), userActor, s.ID)
	require.NoError(t, err)
	assert.True(t, res.AutoApproved)
	assert.Equal(t, models.SuggestionApproved, f.store.snapshot(s.ID).State)
	assert.Equal(t, uint64(2), f.metrics.Snapshot().SideEffectFailures)
}

func TestStoreTimeoutIsTransient(t *testing.T) {
	f := newWorkflowFixture(t, config.SuggestionsConfig{StoreTimeout: 20 * time.Millisecond})
	s := f.store.put(pendingWith(0, "submitter"))
	f.store.blockVotes = true

	_, err := f.svc.Contribute(context.Background(), userActor, s.ID)
	assertAppError(t, err, appErrors.ErrTransientStorage)
	assert.Equal(t, http.StatusServiceUnavailable, appErrors.FromError(err).Status)
	assert.Equal(t, 0, f.store.snapshot(s.ID).ContributionCount)
}

func TestStoreFailureIsInternal(t *testing.T) {
	f := newWorkflowFixture(t, config.SuggestionsConfig{})
	f.store.err = errors.New("syntax error at or near")

	_, err := f.svc.TopFive(context.Background())
	assertAppError(t, err, appErrors.ErrInternal)
}

func TestUpdateAndDeleteAreAdminOnly(t *testing.T) {
	f := newWorkflowFixture(t, config.SuggestionsConfig{})
	s := f.store.put(pendingWith(0, "submitter"))
	ctx := context.Background()
	title := "  Boiadeiro Punho de Aco  "

	_, err := f.svc.Update(ctx, userActor, s.ID, dto.UpdateSuggestionRequest{Title: &title})
	assertAppError(t, err, appErrors.ErrForbidden)
	assert.ErrorIs(t, f.svc.Delete(ctx, userActor, s.ID), appErrors.ErrForbidden)

	updated, err := f.svc.Update(ctx, adminActor, s.ID, dto.UpdateSuggestionRequest{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, "Boiadeiro Punho de Aco", updated.Title)
	assert.Equal(t, "Boiadeiro Punho de Aco", f.store.snapshot(s.ID).Title)

	require.NoError(t, f.svc.Delete(ctx, adminActor, s.ID))
	_, err = f.svc.Get(ctx, adminActor, s.ID)
	assertAppError(t, err, appErrors.ErrNotFound)
	assert.ErrorIs(t, f.svc.Delete(ctx, adminActor, s.ID), appErrors.ErrNotFound)

	assert.Equal(t, 1, f.audit.count(models.AuditActionSuggestionUpdate))
	assert.Equal(t, 1, f.audit.count(models.AuditActionSuggestionDelete))
}

func TestBulkImportDeduplicates(t *testing.T) {
	f := newWorkflowFixture(t, config.SuggestionsConfig{})
	existing := pendingWith(0, "submitter")
	existing.ExternalID = "ccccccccccc"
	f.store.put(existing)

	items := []models.ImportItem{
		{ExternalID: "aaaaaaaaaaa", Title: "Chico Mineiro", ViewCount: 10},
		{ExternalID: "aaaaaaaaaaa", Title: "Chico Mineiro", ViewCount: 10},
		{ExternalID: "bbbbbbbbbbb"},
		{ExternalID: "ccccccccccc", Title: "Already here"},
	}

	_, err := f.svc.BulkImport(context.Background(), userActor, items)
	assertAppError(t, err, appErrors.ErrForbidden)

	res, err := f.svc.BulkImport(context.Background(), adminActor, items)
	require.NoError(t, err)
	assert.Equal(t, 4, res.Requested)
	assert.Equal(t, 1, res.Created)
	assert.Equal(t, 3, res.Skipped)
	assert.Equal(t, 1, f.audit.count(models.AuditActionSuggestionImport))

	top, err := f.svc.TopFive(context.Background())
	require.NoError(t, err)
	require.Len(t, top, 1)
	assert.Equal(t, "aaaaaaaaaaa", top[0].ExternalID)
	assert.Equal(t, models.SuggestionApproved, top[0].State)
}

func TestRankingPartitionsTopFiveAndOthers(t *testing.T) {
	f := newWorkflowFixture(t, config.SuggestionsConfig{OthersPageSize: 10})
	for i := 0; i < 7; i++ {
		s := pendingWith(5, "submitter")
		s.ExternalID = "ext-" + string(rune('a'+i))
		s.ViewCount = int64(100 * (i + 1))
		s.State = models.SuggestionApproved
		f.store.put(s)
	}
	f.store.put(pendingWith(1, "waiting"))

	ranking, pagination, err := f.svc.Ranking(context.Background(), 1, 0)
	require.NoError(t, err)
	require.Len(t, ranking.TopFive, 5)
	require.Len(t, ranking.Others, 2)
	assert.Equal(t, int64(700), ranking.TopFive[0].ViewCount)
	assert.Equal(t, int64(300), ranking.TopFive[4].ViewCount)
	assert.Equal(t, int64(200), ranking.Others[0].ViewCount)
	assert.Equal(t, 2, pagination.TotalCount)
	assert.Equal(t, 10, pagination.PageSize)

	_, _, err = f.svc.Pending(context.Background(), userActor, 1, 20)
	assertAppError(t, err, appErrors.ErrForbidden)
}

func newRankingCache(t *testing.T, metrics *MetricsService) (*miniredis.Miniredis, *CacheService) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, NewCacheService(repository.NewCacheRepository(client, "topfive:", nil), metrics, time.Minute, nil, true)
}

func TestRankingCacheInvalidatedOnApproval(t *testing.T) {
	metrics := NewMetricsService()
	mr, cache := newRankingCache(t, metrics)
	f := newWorkflowFixture(t, config.SuggestionsConfig{CacheTTL: time.Minute}, WithSuggestionCache(cache))
	ctx := context.Background()

	approved := pendingWith(5, "first")
	approved.State = models.SuggestionApproved
	f.store.put(approved)

	top, err := f.svc.TopFive(ctx)
	require.NoError(t, err)
	require.Len(t, top, 1)
	assert.True(t, mr.Exists("topfive:"+fmt.Sprintf(cacheKeyTopFiveFmt, 0)))

	sneaky := pendingWith(5, "second")
	sneaky.State = models.SuggestionApproved
	f.store.put(sneaky)

	top, err = f.svc.TopFive(ctx)
	require.NoError(t, err)
	assert.Len(t, top, 1)

	waiting := f.store.put(pendingWith(0, "third"))
	_, err = f.svc.Review(ctx, adminActor, waiting.ID, dto.ReviewSuggestionRequest{Decision: dto.DecisionApprove})
	require.NoError(t, err)
	assert.False(t, mr.Exists("topfive:"+fmt.Sprintf(cacheKeyTopFiveFmt, 0)))
	gen, err := mr.Get("topfive:" + cacheKeyRankingGen)
	require.NoError(t, err)
	assert.Equal(t, "1", gen)

	top, err = f.svc.TopFive(ctx)
	require.NoError(t, err)
	assert.Len(t, top, 3)
	assert.True(t, mr.Exists("topfive:"+fmt.Sprintf(cacheKeyTopFiveFmt, 1)))
	assert.Greater(t, metrics.Snapshot().CacheHitRatio, 0.0)
}

// pausingTopStore holds the first TopRanked call after its rows are read.
type pausingTopStore struct {
	*memSuggestionStore
	once    sync.Once
	loaded  chan struct{}
	release chan struct{}
}

func (p *pausingTopStore) TopRanked(ctx context.Context, limit int) ([]models.Suggestion, error) {
	rows, err := p.memSuggestionStore.TopRanked(ctx, limit)
	p.once.Do(func() {
		close(p.loaded)
		<-p.release
	})
	return rows, err
}

func TestRankingReadOverlappingApprovalDoesNotCacheStaleRows(t *testing.T) {
	cfg := config.SuggestionsConfig{CacheTTL: time.Minute}
	metrics := NewMetricsService()
	_, cache := newRankingCache(t, metrics)
	f := newWorkflowFixture(t, cfg)
	store := &pausingTopStore{
		memSuggestionStore: f.store,
		loaded:             make(chan struct{}),
		release:            make(chan struct{}),
	}
	svc := NewSuggestionService(store, f.catalog, f.audit, f.notifier, cfg, nil,
		WithSuggestionMetrics(metrics), WithSuggestionCache(cache))
	ctx := context.Background()

	waiting := f.store.put(pendingWith(0, "late"))

	type topResult struct {
		items []models.Suggestion
		err   error
	}
	done := make(chan topResult, 1)
	go func() {
		items, err := svc.TopFive(ctx)
		done <- topResult{items: items, err: err}
	}()

	<-store.loaded
	_, err := svc.Review(ctx, adminActor, waiting.ID, dto.ReviewSuggestionRequest{Decision: dto.DecisionApprove})
	require.NoError(t, err)
	close(store.release)

	stale := <-done
	require.NoError(t, stale.err)
	assert.Empty(t, stale.items)

	top, err := svc.TopFive(ctx)
	require.NoError(t, err)
	require.Len(t, top, 1)
	assert.Equal(t, waiting.ID, top[0].ID)
}

func TestMalformedSuggestionIDIsNotFound(t *testing.T) {
	f := newWorkflowFixture(t, config.SuggestionsConfig{})
	f.store.err = fmt.Errorf("get suggestion: %w", &pq.Error{Code: "22P02", Message: `invalid input syntax for type uuid: "abc"`})
	ctx := context.Background()

	_, err := f.svc.Contribute(ctx, userActor, "abc")
	assertAppError(t, err, appErrors.ErrNotFound)

	_, err = f.svc.Get(ctx, userActor, "abc")
	assertAppError(t, err, appErrors.ErrNotFound)

	_, err = f.svc.Review(ctx, adminActor, "abc", dto.ReviewSuggestionRequest{Decision: dto.DecisionApprove})
	assertAppError(t, err, appErrors.ErrNotFound)

	_, err = f.svc.Review(ctx, adminActor, "abc", dto.ReviewSuggestionRequest{Decision: dto.DecisionReject})
	assertAppError(t, err, appErrors.ErrNotFound)
}
