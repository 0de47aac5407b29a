package models

import (
	"time"

	"github.com/jmoiron/sqlx/types"
)

// Audit actions recorded in the activity log.
const (
	AuditActionLogin          = "auth.login"
	AuditActionLogout         = "auth.logout"
	AuditActionRegister       = "auth.register"
	AuditActionPasswordChange = "auth.password_change"

	AuditActionUserCreate = "user.created"
	AuditActionUserUpdate = "user.updated"
	AuditActionUserDelete = "user.deleted"

	AuditActionSuggestionCreate      = "suggestion.created"
	AuditActionSuggestionContribute  = "suggestion.contributed"
	AuditActionSuggestionAutoApprove = "suggestion.auto_approved"
	AuditActionSuggestionApprove     = "suggestion.approved"
	AuditActionSuggestionReject      = "suggestion.rejected"
	AuditActionSuggestionUpdate      = "suggestion.updated"
	AuditActionSuggestionDelete      = "suggestion.deleted"
	AuditActionSuggestionImport      = "suggestion.imported"
)

// Audit target and actor types.
const (
	AuditTargetSuggestion = "suggestion"
	AuditTargetUser       = "user"

	AuditActorUser   = "user"
	AuditActorSystem = "system"
)

// AuditLog represents an append-only activity record.
type AuditLog struct {
	ID          string         `db:"id" json:"id"`
	ActorID     *string        `db:"actor_id" json:"actor_id,omitempty"`
	ActorType   string         `db:"actor_type" json:"actor_type"`
	Action      string         `db:"action" json:"action"`
	TargetType  string         `db:"target_type" json:"target_type"`
	TargetID    *string        `db:"target_id" json:"target_id,omitempty"`
	Description string         `db:"description" json:"description"`
	Properties  types.JSONText `db:"properties" json:"properties,omitempty"`
	IPAddress   string         `db:"ip_address" json:"ip_address"`
	UserAgent   string         `db:"user_agent" json:"user_agent"`
	CreatedAt   time.Time      `db:"created_at" json:"created_at"`
}

// AuditFilter narrows activity log listings.
type AuditFilter struct {
	ActorID    string
	Action     string
	TargetType string
	TargetID   string
	From       *time.Time
	To         *time.Time
	Page       int
	PageSize   int
}
