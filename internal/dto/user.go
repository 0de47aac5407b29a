package dto

import "github.com/noah-isme/topfive-api/internal/models"

// CreateUserRequest is used by admins to create accounts.
type CreateUserRequest struct {
	Email    string          `json:"email" validate:"required,email"`
	Password string          `json:"password" validate:"required,min=8"`
	FullName string          `json:"full_name" validate:"required,max=255"`
	Role     models.UserRole `json:"role" validate:"required,oneof=ADMIN USER"`
}

// UpdateUserRequest changes account fields. Nil fields are left untouched.
type UpdateUserRequest struct {
	Email    *string          `json:"email" validate:"omitempty,email"`
	FullName *string          `json:"full_name" validate:"omitempty,max=255"`
	Role     *models.UserRole `json:"role" validate:"omitempty,oneof=ADMIN USER"`
	Active   *bool            `json:"active"`
}
