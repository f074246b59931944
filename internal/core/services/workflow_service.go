package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/opexhq/expense_approval_app/internal/apperrors"
	"github.com/opexhq/expense_approval_app/internal/attachments"
	"github.com/opexhq/expense_approval_app/internal/core/domain"
	portsrepo "github.com/opexhq/expense_approval_app/internal/core/ports/repositories"
	portssvc "github.com/opexhq/expense_approval_app/internal/core/ports/services"
	"github.com/opexhq/expense_approval_app/internal/dto"
)

var (
	ErrCommentRequired   = errors.New("a comment is required for this operation")
	ErrProofRequired     = errors.New("a proof file is required for this operation")
	ErrResubmitEmpty     = errors.New("a resubmission needs at least one new file or a comment")
	ErrAmountNotPositive = errors.New("amount must be a positive number")
	ErrAmountUnparseable = errors.New("amount is not a valid decimal number")
	ErrRequestTerminal   = errors.New("request has reached a terminal status")
)

// workflowService is the request lifecycle state machine. Every transition
// checks the actor's role and the request's current status before any
// mutation, performs attachment side effects, and appends exactly one
// history entry whose status matches the new request status. Status checks
// and mutations run inside one locked read-modify-write cycle on the
// request document, so a precondition can never go stale between the check
// and the write.
type workflowService struct {
	BaseService
	requestRepo portsrepo.RequestRepositoryFacade
	userRepo    portsrepo.UserReader
	attachments portssvc.AttachmentStorer
	validate    *validator.Validate
}

// NewWorkflowService creates a new workflow service.
func NewWorkflowService(requestRepo portsrepo.RequestRepositoryFacade, userRepo portsrepo.UserReader, attachmentStorer portssvc.AttachmentStorer) portssvc.WorkflowSvcFacade {
	return &workflowService{
		requestRepo: requestRepo,
		userRepo:    userRepo,
		attachments: attachmentStorer,
		validate:    validator.New(),
	}
}

// Ensure workflowService implements the WorkflowSvcFacade interface
var _ portssvc.WorkflowSvcFacade = (*workflowService)(nil)

// authorize loads the acting user and checks role membership. Admin
// accounts pass every check.
func (s *workflowService) authorize(ctx context.Context, actorLogin string, required domain.Role) (*domain.UserAccount, error) {
	actor, err := s.userRepo.FindUserByLogin(ctx, actorLogin)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, fmt.Errorf("%w: unknown user %s", apperrors.ErrForbidden, actorLogin)
		}
		return nil, err
	}
	if !actor.HasRole(required) {
		return nil, fmt.Errorf("%w: %s does not hold the %s role", apperrors.ErrForbidden, actorLogin, required)
	}
	return actor, nil
}

// ensureStatus checks a transition precondition against the stored status.
// The error message names the expected status so the caller can re-sync.
func ensureStatus(requestID string, actual, expected domain.RequestStatus) error {
	if actual == expected {
		return nil
	}
	if actual.IsTerminal() {
		return fmt.Errorf("%w: request %s is %s; %v", apperrors.ErrInvalidState, requestID, actual, ErrRequestTerminal)
	}
	return fmt.Errorf("%w: request %s is %s, this operation requires status %s", apperrors.ErrInvalidState, requestID, actual, expected)
}

// transition runs one workflow transition as a locked read-modify-write
// cycle: load the stored record, check the status precondition, apply the
// mutation, persist. An error from the precondition or the mutation aborts
// the cycle and leaves the stored record untouched.
func (s *workflowService) transition(ctx context.Context, requestID string, expected domain.RequestStatus, mutate func(*domain.ReimbursementRequest) error) (*domain.ReimbursementRequest, error) {
	request, err := s.requestRepo.MutateRequest(ctx, requestID, func(r *domain.ReimbursementRequest) error {
		if err := ensureStatus(requestID, r.Status, expected); err != nil {
			return err
		}
		return mutate(r)
	})
	if err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) && !errors.Is(err, apperrors.ErrInvalidState) && !errors.Is(err, apperrors.ErrValidation) {
			s.LogError(ctx, err, "Failed to apply status transition", slog.String("request_id", requestID))
		}
		return nil, err
	}
	s.LogInfo(ctx, "Request transitioned",
		slog.String("request_id", request.ID),
		slog.String("status", string(request.Status)))
	return request, nil
}

// applyTransition mutates status and audit fields and appends the single
// history entry for this transition. Blank comments fall back to the
// operation's synthetic default.
func applyTransition(request *domain.ReimbursementRequest, newStatus domain.RequestStatus, actorLogin, comment, defaultComment string) {
	now := time.Now().UTC()
	comment = strings.TrimSpace(comment)
	if comment == "" {
		comment = defaultComment
	}
	request.Status = newStatus
	request.LastModifiedBy = actorLogin
	request.LastModifiedAt = now
	request.History = append(request.History, domain.HistoryEntry{
		Status:    newStatus,
		Timestamp: now,
		Actor:     actorLogin,
		Comment:   comment,
	})
}

// newRequestID builds an opaque unique ID from a timestamp plus a random
// suffix, so IDs sort roughly by creation time in the document.
func newRequestID(now time.Time) string {
	return now.Format("20060102150405") + "-" + uuid.NewString()[:8]
}

func parseAmount(raw string) (decimal.Decimal, error) {
	amount, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %v", apperrors.ErrValidation, ErrAmountUnparseable)
	}
	if amount.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero, fmt.Errorf("%w: %v", apperrors.ErrValidation, ErrAmountNotPositive)
	}
	return amount, nil
}

func (s *workflowService) GetRequestByID(ctx context.Context, requestID string) (*domain.ReimbursementRequest, error) {
	request, err := s.requestRepo.FindRequestByID(ctx, requestID)
	if err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) {
			s.LogError(ctx, err, "Failed to find request by ID", slog.String("request_id", requestID))
		}
		return nil, err
	}
	return request, nil
}

func (s *workflowService) ListRequests(ctx context.Context) ([]domain.ReimbursementRequest, error) {
	requests, err := s.requestRepo.FindRequests(ctx)
	if err != nil {
		s.LogError(ctx, err, "Failed to list requests")
		return nil, err
	}
	return requests, nil
}

// CreateRequest opens a new request. The bank-account proof file is
// mandatory; an invoice file is optional and can be attached later through
// resubmission.
func (s *workflowService) CreateRequest(ctx context.Context, req dto.CreateRequestRequest, actorLogin string) (*domain.ReimbursementRequest, error) {
	if _, err := s.authorize(ctx, actorLogin, domain.RoleRequester); err != nil {
		return nil, err
	}
	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrValidation, err)
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	requestID := newRequestID(now)
	folderKey := attachments.FolderKeyFromReference(req.InvoiceReference)
	if folderKey == "" {
		folderKey = "req_" + requestID
	}

	request := &domain.ReimbursementRequest{
		ID:                    requestID,
		FolderKey:             folderKey,
		Requester:             actorLogin,
		LastModifiedBy:        actorLogin,
		Name:                  req.Name,
		Surname:               req.Surname,
		InvoiceReference:      req.InvoiceReference,
		Description:           req.Description,
		Amount:                amount,
		CreatedAt:             now,
		LastModifiedAt:        now,
		InvoicePaths:          []string{},
		BankAccountPaths:      []string{},
		OverpaymentProofPaths: []string{},
	}

	if _, err := s.attachments.StoreAttachment(ctx, request, req.BankProofPath, domain.AttachmentBankAccount, actorLogin); err != nil {
		return nil, err
	}
	if req.InvoicePath != "" {
		if _, err := s.attachments.StoreAttachment(ctx, request, req.InvoicePath, domain.AttachmentInvoice, actorLogin); err != nil {
			return nil, err
		}
	}
	if err := s.attachments.WriteSummary(ctx, request); err != nil {
		return nil, err
	}

	applyTransition(request, domain.StatusCreated, actorLogin, "", "request created")

	if err := s.requestRepo.SaveRequest(ctx, *request); err != nil {
		s.LogError(ctx, err, "Failed to save new request", slog.String("request_id", requestID))
		return nil, fmt.Errorf("failed to save request: %w", err)
	}

	s.LogInfo(ctx, "Request created",
		slog.String("request_id", requestID),
		slog.String("folder_key", folderKey),
		slog.String("amount", amount.String()))
	return request, nil
}

// AcceptOverpayment records the treasury accountant's overpayment constat.
// Both the proof file and the comment are mandatory.
func (s *workflowService) AcceptOverpayment(ctx context.Context, requestID string, req dto.AcceptOverpaymentRequest, actorLogin string) (*domain.ReimbursementRequest, error) {
	if _, err := s.authorize(ctx, actorLogin, domain.RoleTreasury); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.ProofPath) == "" {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrValidation, ErrProofRequired)
	}
	if strings.TrimSpace(req.Comment) == "" {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrValidation, ErrCommentRequired)
	}

	return s.transition(ctx, requestID, domain.StatusCreated, func(r *domain.ReimbursementRequest) error {
		if _, err := s.attachments.StoreAttachment(ctx, r, req.ProofPath, domain.AttachmentOverpaymentProof, actorLogin); err != nil {
			return err
		}
		applyTransition(r, domain.StatusOverpaidConfirmed, actorLogin, req.Comment, "overpayment confirmed")
		return nil
	})
}

// RejectOverpayment sends the request back to its requester. The comment is
// mandatory so the requester knows what to fix.
func (s *workflowService) RejectOverpayment(ctx context.Context, requestID, comment, actorLogin string) (*domain.ReimbursementRequest, error) {
	if _, err := s.authorize(ctx, actorLogin, domain.RoleTreasury); err != nil {
		return nil, err
	}
	if strings.TrimSpace(comment) == "" {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrValidation, ErrCommentRequired)
	}

	return s.transition(ctx, requestID, domain.StatusCreated, func(r *domain.ReimbursementRequest) error {
		applyTransition(r, domain.StatusCreationRejected, actorLogin, comment, "")
		return nil
	})
}

// CancelRequest abandons a request that was rejected at creation.
func (s *workflowService) CancelRequest(ctx context.Context, requestID, comment, actorLogin string) (*domain.ReimbursementRequest, error) {
	if _, err := s.authorize(ctx, actorLogin, domain.RoleRequester); err != nil {
		return nil, err
	}
	if strings.TrimSpace(comment) == "" {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrValidation, ErrCommentRequired)
	}

	return s.transition(ctx, requestID, domain.StatusCreationRejected, func(r *domain.ReimbursementRequest) error {
		applyTransition(r, domain.StatusCancelled, actorLogin, comment, "")
		return nil
	})
}

// ValidateRequest approves the overpayment constat.
func (s *workflowService) ValidateRequest(ctx context.Context, requestID, comment, actorLogin string) (*domain.ReimbursementRequest, error) {
	if _, err := s.authorize(ctx, actorLogin, domain.RoleValidator); err != nil {
		return nil, err
	}

	return s.transition(ctx, requestID, domain.StatusOverpaidConfirmed, func(r *domain.ReimbursementRequest) error {
		applyTransition(r, domain.StatusValidated, actorLogin, comment, "validated by validator")
		return nil
	})
}

// RejectValidation refuses the overpayment constat and sends the request
// back to the treasury accountant. The comment is mandatory.
func (s *workflowService) RejectValidation(ctx context.Context, requestID, comment, actorLogin string) (*domain.ReimbursementRequest, error) {
	if _, err := s.authorize(ctx, actorLogin, domain.RoleValidator); err != nil {
		return nil, err
	}
	if strings.TrimSpace(comment) == "" {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrValidation, ErrCommentRequired)
	}

	return s.transition(ctx, requestID, domain.StatusOverpaidConfirmed, func(r *domain.ReimbursementRequest) error {
		applyTransition(r, domain.StatusValidationRejected, actorLogin, comment, "")
		return nil
	})
}

// ConfirmPayment settles the request and stamps PaidAt.
func (s *workflowService) ConfirmPayment(ctx context.Context, requestID, comment, actorLogin string) (*domain.ReimbursementRequest, error) {
	if _, err := s.authorize(ctx, actorLogin, domain.RoleSupplier); err != nil {
		return nil, err
	}

	return s.transition(ctx, requestID, domain.StatusValidated, func(r *domain.ReimbursementRequest) error {
		applyTransition(r, domain.StatusPaid, actorLogin, comment, "payment confirmed")
		paidAt := r.LastModifiedAt
		r.PaidAt = &paidAt
		return nil
	})
}

// ResubmitAfterCreationReject re-enters the workflow at CREATED with
// corrected data. At least one new file or a comment is required.
func (s *workflowService) ResubmitAfterCreationReject(ctx context.Context, requestID string, req dto.ResubmitCreationRequest, actorLogin string) (*domain.ReimbursementRequest, error) {
	if _, err := s.authorize(ctx, actorLogin, domain.RoleRequester); err != nil {
		return nil, err
	}
	if req.InvoicePath == "" && req.BankProofPath == "" && strings.TrimSpace(req.Comment) == "" {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrValidation, ErrResubmitEmpty)
	}

	return s.transition(ctx, requestID, domain.StatusCreationRejected, func(r *domain.ReimbursementRequest) error {
		if req.InvoicePath != "" {
			if _, err := s.attachments.StoreAttachment(ctx, r, req.InvoicePath, domain.AttachmentInvoice, actorLogin); err != nil {
				return err
			}
		}
		if req.BankProofPath != "" {
			if _, err := s.attachments.StoreAttachment(ctx, r, req.BankProofPath, domain.AttachmentBankAccount, actorLogin); err != nil {
				return err
			}
		}
		applyTransition(r, domain.StatusCreated, actorLogin, req.Comment, "resubmitted after creation rejection")
		return nil
	})
}

// ResubmitAfterValidationReject re-enters the workflow at
// OVERPAID_CONFIRMED with a corrected constat. At least one new proof file
// or a comment is required.
func (s *workflowService) ResubmitAfterValidationReject(ctx context.Context, requestID string, req dto.ResubmitValidationRequest, actorLogin string) (*domain.ReimbursementRequest, error) {
	if _, err := s.authorize(ctx, actorLogin, domain.RoleTreasury); err != nil {
		return nil, err
	}
	if req.ProofPath == "" && strings.TrimSpace(req.Comment) == "" {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrValidation, ErrResubmitEmpty)
	}

	return s.transition(ctx, requestID, domain.StatusValidationRejected, func(r *domain.ReimbursementRequest) error {
		if req.ProofPath != "" {
			if _, err := s.attachments.StoreAttachment(ctx, r, req.ProofPath, domain.AttachmentOverpaymentProof, actorLogin); err != nil {
				return err
			}
		}
		applyTransition(r, domain.StatusOverpaidConfirmed, actorLogin, req.Comment, "resubmitted after validation rejection")
		return nil
	})
}

// DeleteRequest removes the record and its attachment directory. A failure
// to delete the directory is logged as a warning and does not roll back
// the already-deleted record.
func (s *workflowService) DeleteRequest(ctx context.Context, requestID, actorLogin string) error {
	if _, err := s.authorize(ctx, actorLogin, domain.RoleAdmin); err != nil {
		return err
	}

	request, err := s.requestRepo.FindRequestByID(ctx, requestID)
	if err != nil {
		return err
	}

	if err := s.requestRepo.DeleteRequest(ctx, requestID); err != nil {
		s.LogError(ctx, err, "Failed to delete request record", slog.String("request_id", requestID))
		return err
	}
	if err := s.attachments.RemoveRequestDir(ctx, request.FolderKey); err != nil {
		s.LogWarn(ctx, "Request record deleted but attachment directory removal failed",
			slog.String("request_id", requestID),
			slog.String("folder_key", request.FolderKey),
			slog.String("error", err.Error()))
	}

	s.LogInfo(ctx, "Request deleted", slog.String("request_id", requestID))
	return nil
}
