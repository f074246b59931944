package repositories

import (
	"context"

	"github.com/opexhq/expense_approval_app/internal/core/domain"
)

// UserReader defines read operations for user accounts
type UserReader interface {
	// FindUserByLogin retrieves a specific user by login.
	FindUserByLogin(ctx context.Context, login string) (*domain.UserAccount, error)

	// FindUsers retrieves all user accounts sorted by login.
	FindUsers(ctx context.Context) ([]domain.UserAccount, error)
}

// UserWriter defines write operations for user accounts
type UserWriter interface {
	// SaveUser persists a new user. Fails with apperrors.ErrDuplicate if the
	// login is already taken.
	SaveUser(ctx context.Context, user domain.UserAccount) error

	// UpdateUser replaces the stored account, optionally moving it to a new
	// login key.
	UpdateUser(ctx context.Context, oldLogin string, user domain.UserAccount) error

	// DeleteUser removes the account with the given login.
	DeleteUser(ctx context.Context, login string) error
}

// UserRepositoryFacade combines all user repository interfaces
type UserRepositoryFacade interface {
	UserReader
	UserWriter
}

// ResetCodeRepository manages transient password-reset codes keyed by login.
type ResetCodeRepository interface {
	// SaveResetCode stores (or replaces) the pending code for a login.
	SaveResetCode(ctx context.Context, code domain.PasswordResetCode) error

	// ConsumeResetCode removes and returns the pending code for a login.
	// Codes are single-use: the entry is deleted on first retrieval
	// regardless of the validity outcome. Fails with apperrors.ErrNotFound
	// when no code is pending.
	ConsumeResetCode(ctx context.Context, login string) (*domain.PasswordResetCode, error)
}
