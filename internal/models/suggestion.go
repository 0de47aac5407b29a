package models

import "time"

const (
	// ApprovalThreshold is the number of contributions that auto-approves a suggestion.
	ApprovalThreshold = 5
	// TopRankedLimit is the size of the ranked list.
	TopRankedLimit = 5
)

// SuggestionState captures the moderation state of a suggestion.
type SuggestionState string

const (
	SuggestionPending  SuggestionState = "PENDING"
	SuggestionApproved SuggestionState = "APPROVED"
	SuggestionRejected SuggestionState = "REJECTED"
)

// Suggestion is a submitted video competing for the Top 5.
type Suggestion struct {
	ID                string          `db:"id" json:"id"`
	ExternalID        string          `db:"external_id" json:"external_id"`
	Title             string          `db:"title" json:"title"`
	ThumbnailURL      string          `db:"thumbnail_url" json:"thumbnail_url"`
	ViewCount         int64           `db:"view_count" json:"view_count"`
	SubmitterID       *string         `db:"submitter_id" json:"submitter_id,omitempty"`
	State             SuggestionState `db:"state" json:"state"`
	ContributionCount int             `db:"contribution_count" json:"contribution_count"`
	Reason            *string         `db:"reason" json:"reason,omitempty"`
	ApprovedAt        *time.Time      `db:"approved_at" json:"approved_at,omitempty"`
	RejectedAt        *time.Time      `db:"rejected_at" json:"rejected_at,omitempty"`
	DeletedAt         *time.Time      `db:"deleted_at" json:"-"`
	CreatedAt         time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time       `db:"updated_at" json:"updated_at"`
}

// NeededForApproval returns how many contributions are still missing.
func (s *Suggestion) NeededForApproval() int {
	if s.State != SuggestionPending {
		return 0
	}
	if n := ApprovalThreshold - s.ContributionCount; n > 0 {
		return n
	}
	return 0
}

// Contribution is one user's vote for a pending suggestion.
type Contribution struct {
	SuggestionID string    `db:"suggestion_id" json:"suggestion_id"`
	UserID       string    `db:"user_id" json:"user_id"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// ImportItem is a catalog entry inserted directly as approved.
type ImportItem struct {
	ExternalID   string
	Title        string
	ThumbnailURL string
	ViewCount    int64
}
