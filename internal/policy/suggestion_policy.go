// Package policy holds the authorization rules for suggestions and accounts.
// Every function is pure: it sees only the actor and the target and never
// touches storage.
package policy

import "github.com/noah-isme/topfive-api/internal/models"

// CanCreateSuggestion allows any authenticated actor to submit.
func CanCreateSuggestion(actor models.Actor) bool {
	return actor.Authenticated()
}

// CanViewSuggestion reports whether actor may read s. Suggestions are public.
func CanViewSuggestion(_ models.Actor, _ *models.Suggestion) bool {
	return true
}

// CanEditSuggestion allows reviewers to change suggestion metadata.
func CanEditSuggestion(actor models.Actor, _ *models.Suggestion) bool {
	return actor.IsPrivileged()
}

// CanDeleteSuggestion allows reviewers to retire a suggestion.
func CanDeleteSuggestion(actor models.Actor, _ *models.Suggestion) bool {
	return actor.IsPrivileged()
}

// CanApprove allows reviewers to approve or reject.
func CanApprove(actor models.Actor, _ *models.Suggestion) bool {
	return actor.IsPrivileged()
}

// CanViewPending allows reviewers to read the moderation queue.
func CanViewPending(actor models.Actor) bool {
	return actor.IsPrivileged()
}

// CanImport allows reviewers and the sync job to bulk import.
func CanImport(actor models.Actor) bool {
	return actor.IsPrivileged()
}

// CanContribute only looks at the suggestion state. One vote per user is the
// store's uniqueness constraint, not a policy decision.
func CanContribute(actor models.Actor, s *models.Suggestion) bool {
	if !actor.Authenticated() || s == nil {
		return false
	}
	return s.State == models.SuggestionPending
}
