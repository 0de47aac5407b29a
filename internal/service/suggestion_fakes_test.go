package service

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/noah-isme/topfive-api/internal/models"
	"github.com/noah-isme/topfive-api/internal/repository"
	"github.com/noah-isme/topfive-api/pkg/youtube"
)

// memSuggestionStore mirrors the Postgres primitives with one mutex standing
// in for the row lock.
type memSuggestionStore struct {
	mu         sync.Mutex
	rows       map[string]*models.Suggestion
	votes      map[string]map[string]bool
	seq        int
	err        error
	blockVotes bool
}

func newMemSuggestionStore() *memSuggestionStore {
	return &memSuggestionStore{
		rows:  make(map[string]*models.Suggestion),
		votes: make(map[string]map[string]bool),
	}
}

func (m *memSuggestionStore) put(s models.Suggestion) *models.Suggestion {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	if s.ID == "" {
		s.ID = fmt.Sprintf("s-%d", m.seq)
	}
	if s.State == "" {
		s.State = models.SuggestionPending
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Unix(int64(m.seq), 0).UTC()
	}
	row := s
	m.rows[s.ID] = &row
	out := row
	return &out
}

func (m *memSuggestionStore) live(id string) (*models.Suggestion, bool) {
	row, ok := m.rows[id]
	if !ok || row.DeletedAt != nil {
		return nil, false
	}
	return row, true
}

func (m *memSuggestionStore) snapshot(id string) models.Suggestion {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.rows[id]
}

func (m *memSuggestionStore) Create(ctx context.Context, s *models.Suggestion) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	for _, row := range m.rows {
		if row.DeletedAt == nil && row.ExternalID == s.ExternalID {
			return repository.ErrDuplicateExternalID
		}
	}
	m.seq++
	s.ID = fmt.Sprintf("s-%d", m.seq)
	s.State = models.SuggestionPending
	s.ContributionCount = 0
	s.CreatedAt = time.Unix(int64(m.seq), 0).UTC()
	row := *s
	m.rows[s.ID] = &row
	return nil
}

func (m *memSuggestionStore) GetByID(ctx context.Context, id string) (*models.Suggestion, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	row, ok := m.live(id)
	if !ok {
		return nil, sql.ErrNoRows
	}
	out := *row
	return &out, nil
}

func (m *memSuggestionStore) IncrementContribution(ctx context.Context, id, userID string, threshold int) (*models.Suggestion, bool, error) {
	if m.blockVotes {
		<-ctx.Done()
		return nil, false, ctx.Err()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, false, m.err
	}
	row, ok := m.live(id)
	if !ok {
		return nil, false, sql.ErrNoRows
	}
	switch row.State {
	case models.SuggestionApproved:
		return nil, false, repository.ErrAlreadyApproved
	case models.SuggestionPending:
	default:
		return nil, false, repository.ErrNotPending
	}
	if m.votes[id] == nil {
		m.votes[id] = make(map[string]bool)
	}
	if m.votes[id][userID] {
		return nil, false, repository.ErrDuplicateVote
	}
	m.votes[id][userID] = true
	row.ContributionCount++
	auto := false
	if row.ContributionCount >= threshold {
		now := time.Now().UTC()
		row.State = models.SuggestionApproved
		row.ApprovedAt = &now
		auto = true
	}
	out := *row
	return &out, auto, nil
}

func (m *memSuggestionStore) SetApprovalState(ctx context.Context, id string, state models.SuggestionState) (*models.Suggestion, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, false, m.err
	}
	row, ok := m.live(id)
	if !ok {
		return nil, false, sql.ErrNoRows
	}
	changed := false
	if row.State == models.SuggestionPending {
		now := time.Now().UTC()
		row.State = state
		row.ApprovedAt = &now
		changed = true
	}
	out := *row
	return &out, changed, nil
}

func (m *memSuggestionStore) Reject(ctx context.Context, id string) (*models.Suggestion, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	row, ok := m.live(id)
	if !ok {
		return nil, sql.ErrNoRows
	}
	if row.State != models.SuggestionPending {
		return nil, repository.ErrNotPending
	}
	now := time.Now().UTC()
	row.State = models.SuggestionRejected
	row.RejectedAt = &now
	row.DeletedAt = &now
	out := *row
	return &out, nil
}

func (m *memSuggestionStore) SoftDelete(ctx context.Context, id string) (*models.Suggestion, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	row, ok := m.live(id)
	if !ok {
		return nil, sql.ErrNoRows
	}
	now := time.Now().UTC()
	row.DeletedAt = &now
	out := *row
	return &out, nil
}

func (m *memSuggestionStore) Update(ctx context.Context, s *models.Suggestion) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	row, ok := m.live(s.ID)
	if !ok {
		return sql.ErrNoRows
	}
	row.Title = s.Title
	row.ThumbnailURL = s.ThumbnailURL
	row.ViewCount = s.ViewCount
	row.Reason = s.Reason
	return nil
}

func (m *memSuggestionStore) ranked() []models.Suggestion {
	var out []models.Suggestion
	for _, row := range m.rows {
		if row.DeletedAt == nil && row.State == models.SuggestionApproved {
			out = append(out, *row)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ViewCount != out[j].ViewCount {
			return out[i].ViewCount > out[j].ViewCount
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

func (m *memSuggestionStore) TopRanked(ctx context.Context, limit int) ([]models.Suggestion, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	all := m.ranked()
	if len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

func (m *memSuggestionStore) Others(ctx context.Context, offset, limit int) ([]models.Suggestion, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, 0, m.err
	}
	all := m.ranked()
	total := len(all) - models.TopRankedLimit
	if total < 0 {
		total = 0
	}
	start := models.TopRankedLimit + offset
	if start >= len(all) {
		return []models.Suggestion{}, total, nil
	}
	end := start + limit
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], total, nil
}

func (m *memSuggestionStore) Pending(ctx context.Context, offset, limit int) ([]models.Suggestion, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, 0, m.err
	}
	var out []models.Suggestion
	for _, row := range m.rows {
		if row.DeletedAt == nil && row.State == models.SuggestionPending {
			out = append(out, *row)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	total := len(out)
	if offset >= len(out) {
		return []models.Suggestion{}, total, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, total, nil
}

func (m *memSuggestionStore) ImportApproved(ctx context.Context, items []models.ImportItem, submitterID *string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return 0, m.err
	}
	created := 0
outer:
	for _, item := range items {
		for _, row := range m.rows {
			if row.DeletedAt == nil && row.ExternalID == item.ExternalID {
				continue outer
			}
		}
		m.seq++
		now := time.Now().UTC()
		id := fmt.Sprintf("s-%d", m.seq)
		m.rows[id] = &models.Suggestion{
			ID:           id,
			ExternalID:   item.ExternalID,
			Title:        item.Title,
			ThumbnailURL: item.ThumbnailURL,
			ViewCount:    item.ViewCount,
			SubmitterID:  submitterID,
			State:        models.SuggestionApproved,
			ApprovedAt:   &now,
			CreatedAt:    time.Unix(int64(m.seq), 0).UTC(),
		}
		created++
	}
	return created, nil
}

type fakeCatalog struct {
	videos map[string]youtube.Video
	err    error
}

func (f *fakeCatalog) Video(ctx context.Context, id string) (*youtube.Video, error) {
	if f.err != nil {
		return nil, f.err
	}
	v, ok := f.videos[id]
	if !ok {
		return nil, youtube.ErrVideoNotFound
	}
	return &v, nil
}

type recordingAudit struct {
	mu      sync.Mutex
	entries []*models.AuditLog
	err     error
}

func (r *recordingAudit) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.entries = append(r.entries, log)
	return nil
}

func (r *recordingAudit) count(action string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.entries {
		if e.Action == action {
			n++
		}
	}
	return n
}

func (r *recordingAudit) forTarget(id string) []*models.AuditLog {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.AuditLog
	for _, e := range r.entries {
		if e.TargetID != nil && *e.TargetID == id {
			out = append(out, e)
		}
	}
	return out
}

type sentNotification struct {
	SuggestionID string
	UserID       string
	Kind         models.NotificationType
}

// recordingNotifier enforces the same one-per-kind rule as the notifications table.
type recordingNotifier struct {
	mu   sync.Mutex
	sent []sentNotification
	err  error
}

func (r *recordingNotifier) Dispatch(ctx context.Context, s *models.Suggestion, kind models.NotificationType) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	if s.SubmitterID == nil {
		return nil
	}
	for _, n := range r.sent {
		if n.SuggestionID == s.ID && n.Kind == kind {
			return nil
		}
	}
	r.sent = append(r.sent, sentNotification{SuggestionID: s.ID, UserID: *s.SubmitterID, Kind: kind})
	return nil
}

func (r *recordingNotifier) count(kind models.NotificationType) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, s := range r.sent {
		if s.Kind == kind {
			n++
		}
	}
	return n
}
