package dto

import "github.com/noah-isme/topfive-api/internal/models"

// ReviewDecision is the reviewer's verdict on a pending suggestion.
type ReviewDecision string

const (
	DecisionApprove ReviewDecision = "approve"
	DecisionReject  ReviewDecision = "reject"
)

// CreateSuggestionRequest submits a video by URL or bare id.
type CreateSuggestionRequest struct {
	URL    string `json:"url" validate:"required,max=2048"`
	Reason string `json:"reason" validate:"omitempty,max=500"`
}

// ReviewSuggestionRequest carries the reviewer decision.
type ReviewSuggestionRequest struct {
	Decision ReviewDecision `json:"decision" validate:"required,oneof=approve reject"`
}

// UpdateSuggestionRequest edits the metadata of a live suggestion. Nil fields are left untouched.
type UpdateSuggestionRequest struct {
	Title        *string `json:"title" validate:"omitempty,min=1,max=255"`
	ThumbnailURL *string `json:"thumbnail_url" validate:"omitempty,url"`
	ViewCount    *int64  `json:"view_count" validate:"omitempty,min=0"`
	Reason       *string `json:"reason" validate:"omitempty,max=500"`
}

// ContributionResult reports the outcome of a vote.
type ContributionResult struct {
	Count             int                `json:"count"`
	NeededForApproval int                `json:"needed_for_approval"`
	AutoApproved      bool               `json:"auto_approved"`
	Suggestion        *models.Suggestion `json:"suggestion"`
}

// ReviewResult reports what a review did.
type ReviewResult struct {
	Decision   ReviewDecision     `json:"decision"`
	Changed    bool               `json:"changed"`
	Suggestion *models.Suggestion `json:"suggestion"`
}

// RankingResponse is the public ranking: the top list plus one page of the rest.
type RankingResponse struct {
	TopFive []models.Suggestion `json:"top_five"`
	Others  []models.Suggestion `json:"others"`
}

// ImportResult summarises a bulk import.
type ImportResult struct {
	Requested int `json:"requested"`
	Created   int `json:"created"`
	Skipped   int `json:"skipped"`
}
