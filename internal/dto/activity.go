package dto

import "time"

// ActivityQuery mirrors the activity log listing filters.
type ActivityQuery struct {
	ActorID    string     `form:"actor_id"`
	Action     string     `form:"action"`
	TargetType string     `form:"target_type"`
	TargetID   string     `form:"target_id"`
	From       *time.Time `form:"from" time_format:"2006-01-02"`
	To         *time.Time `form:"to" time_format:"2006-01-02"`
	Page       int        `form:"page"`
	PageSize   int        `form:"page_size"`
}
