package repositories

import (
	"context"

	"github.com/opexhq/expense_approval_app/internal/core/domain"
)

// RequestReader defines read operations for reimbursement requests
type RequestReader interface {
	// FindRequestByID retrieves a specific request by its ID.
	FindRequestByID(ctx context.Context, requestID string) (*domain.ReimbursementRequest, error)

	// FindRequests retrieves all requests in document order.
	FindRequests(ctx context.Context) ([]domain.ReimbursementRequest, error)
}

// RequestWriter defines write operations for reimbursement requests
type RequestWriter interface {
	// SaveRequest appends a new request to the document. Fails with
	// apperrors.ErrDuplicate if the ID already exists.
	SaveRequest(ctx context.Context, request domain.ReimbursementRequest) error

	// UpdateRequest replaces the stored record with the same ID. Fails with
	// apperrors.ErrNotFound if absent.
	UpdateRequest(ctx context.Context, request domain.ReimbursementRequest) error

	// MutateRequest runs fn on the stored record inside a single locked
	// read-modify-write cycle and persists the result. fn sees the current
	// stored state, so status preconditions checked inside it cannot go
	// stale. An error from fn aborts the cycle without writing. Fails with
	// apperrors.ErrNotFound if the ID is absent. Returns the record as
	// persisted.
	MutateRequest(ctx context.Context, requestID string, fn func(*domain.ReimbursementRequest) error) (*domain.ReimbursementRequest, error)

	// DeleteRequest removes the record with the given ID. Fails with
	// apperrors.ErrNotFound if absent.
	DeleteRequest(ctx context.Context, requestID string) error
}

// RequestRecovery defines corruption-recovery operations on the request document
type RequestRecovery interface {
	// RecoverCorrupt quarantines an unreadable document and resets it to
	// empty. Returns the quarantine path, or "" when nothing was wrong.
	RecoverCorrupt(ctx context.Context) (string, error)
}

// RequestRepositoryFacade combines all request repository interfaces
type RequestRepositoryFacade interface {
	RequestReader
	RequestWriter
	RequestRecovery
}
