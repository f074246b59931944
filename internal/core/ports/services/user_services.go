package services

import (
	"context"

	"github.com/opexhq/expense_approval_app/internal/core/domain"
	"github.com/opexhq/expense_approval_app/internal/dto"
)

// UserReaderSvc defines read operations for user accounts
type UserReaderSvc interface {
	// GetUserByLogin retrieves a user by login.
	GetUserByLogin(ctx context.Context, login string) (*domain.UserAccount, error)

	// ListUsers retrieves every account sorted by login.
	ListUsers(ctx context.Context) ([]domain.UserAccount, error)
}

// UserWriterSvc defines write operations for user accounts
type UserWriterSvc interface {
	// CreateUser creates a new account with a hashed password.
	CreateUser(ctx context.Context, req dto.CreateUserRequest) (*domain.UserAccount, error)

	// UpdateUser applies an admin update, optionally renaming the login.
	UpdateUser(ctx context.Context, login string, req dto.UpdateUserRequest) (*domain.UserAccount, error)

	// DeleteUser removes an account. The distinguished admin account cannot
	// be deleted.
	DeleteUser(ctx context.Context, login string) error
}

// UserAuthSvc defines authentication and password-reset operations
type UserAuthSvc interface {
	// Authenticate verifies a login/password pair and returns the account.
	Authenticate(ctx context.Context, login, password string) (*domain.UserAccount, error)

	// RequestPasswordReset issues a single-use numeric code for the login
	// and mails it to the account's address. When mailing fails the code is
	// returned anyway so an operator can relay it.
	RequestPasswordReset(ctx context.Context, login string) (code string, mailed bool, err error)

	// ConfirmPasswordReset consumes the pending code (single-use, whatever
	// the outcome) and, when it matches and has not expired, sets the new
	// password.
	ConfirmPasswordReset(ctx context.Context, login, code, newPassword string) error
}

// UserSvcFacade combines all user service interfaces
type UserSvcFacade interface {
	UserReaderSvc
	UserWriterSvc
	UserAuthSvc
}
