package dto

import "github.com/opexhq/expense_approval_app/internal/core/domain"

// CreateUserRequest carries the input for creating a user account.
type CreateUserRequest struct {
	Login    string `validate:"required"`
	Password string `validate:"required,min=4"`
	Email    string `validate:"omitempty,email"`
	Roles    []domain.Role
}

// UpdateUserRequest carries an admin update of an existing account.
// NewPassword is optional; empty means the password is left untouched.
type UpdateUserRequest struct {
	NewLogin    string `validate:"required"`
	Email       string `validate:"omitempty,email"`
	Roles       []domain.Role
	NewPassword string
}
