package services

import (
	"context"

	"github.com/opexhq/expense_approval_app/internal/core/domain"
	"github.com/opexhq/expense_approval_app/internal/dto"
)

// WorkflowReaderSvc defines read operations over reimbursement requests
type WorkflowReaderSvc interface {
	// GetRequestByID retrieves a request by ID.
	GetRequestByID(ctx context.Context, requestID string) (*domain.ReimbursementRequest, error)

	// ListRequests retrieves every request in document order.
	ListRequests(ctx context.Context) ([]domain.ReimbursementRequest, error)
}

// WorkflowTransitionSvc defines the status transitions of the approval
// workflow. Every operation checks the actor's role and the request's
// current status before mutating anything, and appends exactly one history
// entry on success.
type WorkflowTransitionSvc interface {
	// CreateRequest opens a new request in status CREATED.
	CreateRequest(ctx context.Context, req dto.CreateRequestRequest, actorLogin string) (*domain.ReimbursementRequest, error)

	// AcceptOverpayment records the overpayment constat: CREATED -> OVERPAID_CONFIRMED.
	AcceptOverpayment(ctx context.Context, requestID string, req dto.AcceptOverpaymentRequest, actorLogin string) (*domain.ReimbursementRequest, error)

	// RejectOverpayment sends the request back to its requester: CREATED -> CREATION_REJECTED.
	RejectOverpayment(ctx context.Context, requestID, comment, actorLogin string) (*domain.ReimbursementRequest, error)

	// CancelRequest abandons a rejected request: CREATION_REJECTED -> CANCELLED.
	CancelRequest(ctx context.Context, requestID, comment, actorLogin string) (*domain.ReimbursementRequest, error)

	// ValidateRequest approves the constat: OVERPAID_CONFIRMED -> VALIDATED.
	ValidateRequest(ctx context.Context, requestID, comment, actorLogin string) (*domain.ReimbursementRequest, error)

	// RejectValidation refuses the constat: OVERPAID_CONFIRMED -> VALIDATION_REJECTED.
	RejectValidation(ctx context.Context, requestID, comment, actorLogin string) (*domain.ReimbursementRequest, error)

	// ConfirmPayment settles the request and stamps PaidAt: VALIDATED -> PAID.
	ConfirmPayment(ctx context.Context, requestID, comment, actorLogin string) (*domain.ReimbursementRequest, error)

	// ResubmitAfterCreationReject re-enters the workflow: CREATION_REJECTED -> CREATED.
	ResubmitAfterCreationReject(ctx context.Context, requestID string, req dto.ResubmitCreationRequest, actorLogin string) (*domain.ReimbursementRequest, error)

	// ResubmitAfterValidationReject re-enters the workflow: VALIDATION_REJECTED -> OVERPAID_CONFIRMED.
	ResubmitAfterValidationReject(ctx context.Context, requestID string, req dto.ResubmitValidationRequest, actorLogin string) (*domain.ReimbursementRequest, error)
}

// WorkflowLifecycleSvc defines destructive administrative operations
type WorkflowLifecycleSvc interface {
	// DeleteRequest removes a request record and its attachment directory.
	DeleteRequest(ctx context.Context, requestID, actorLogin string) error
}

// WorkflowSvcFacade combines all workflow service interfaces
type WorkflowSvcFacade interface {
	WorkflowReaderSvc
	WorkflowTransitionSvc
	WorkflowLifecycleSvc
}
