package jsonfile

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/opexhq/expense_approval_app/internal/apperrors"
	"github.com/opexhq/expense_approval_app/internal/core/domain"
	portsrepo "github.com/opexhq/expense_approval_app/internal/core/ports/repositories"
	"github.com/opexhq/expense_approval_app/internal/models"
	"github.com/opexhq/expense_approval_app/internal/platform/config"
)

// JSONRequestRepository owns the request-list document. All mutations go
// through locked read-modify-write cycles on the underlying store; records
// handed out to callers are copies.
type JSONRequestRepository struct {
	store *Store[[]models.ReimbursementRequest]
}

// NewRequestRepository creates the repository over the configured request
// document.
func NewRequestRepository(cfg *config.Config) portsrepo.RequestRepositoryFacade {
	return &JSONRequestRepository{
		store: NewStore[[]models.ReimbursementRequest](cfg.RequestsFile, cfg.LockTimeout, cfg.LockPollInterval),
	}
}

// Ensure JSONRequestRepository implements portsrepo.RequestRepositoryFacade
var _ portsrepo.RequestRepositoryFacade = (*JSONRequestRepository)(nil)

// Helper to convert domain.ReimbursementRequest to models.ReimbursementRequest
func toModelRequest(d domain.ReimbursementRequest) models.ReimbursementRequest {
	m := models.ReimbursementRequest{
		ID:                    d.ID,
		FolderKey:             d.FolderKey,
		Requester:             d.Requester,
		LastModifiedBy:        d.LastModifiedBy,
		Name:                  d.Name,
		Surname:               d.Surname,
		InvoiceReference:      d.InvoiceReference,
		Description:           d.Description,
		Amount:                d.Amount.String(),
		Status:                string(d.Status),
		CreatedAt:             d.CreatedAt.UTC().Format(time.RFC3339),
		LastModifiedAt:        d.LastModifiedAt.UTC().Format(time.RFC3339),
		InvoicePaths:          append([]string{}, d.InvoicePaths...),
		BankAccountPaths:      append([]string{}, d.BankAccountPaths...),
		OverpaymentProofPaths: append([]string{}, d.OverpaymentProofPaths...),
		History:               make([]models.HistoryEntry, len(d.History)),
	}
	if d.PaidAt != nil {
		m.PaidAt = d.PaidAt.UTC().Format(time.RFC3339)
	}
	for i, h := range d.History {
		m.History[i] = models.HistoryEntry{
			Status:    string(h.Status),
			Timestamp: h.Timestamp.UTC().Format(time.RFC3339),
			Actor:     h.Actor,
			Comment:   h.Comment,
		}
	}
	return m
}

// Helper to convert models.ReimbursementRequest to domain.ReimbursementRequest.
// Malformed amounts or timestamps are rejected here rather than propagated
// into the workflow engine.
func toDomainRequest(m models.ReimbursementRequest) (domain.ReimbursementRequest, error) {
	amount, err := decimal.NewFromString(m.Amount)
	if err != nil {
		return domain.ReimbursementRequest{}, fmt.Errorf("%w: record %s has malformed amount %q", apperrors.ErrCorruptData, m.ID, m.Amount)
	}
	createdAt, err := time.Parse(time.RFC3339, m.CreatedAt)
	if err != nil {
		return domain.ReimbursementRequest{}, fmt.Errorf("%w: record %s has malformed created_at %q", apperrors.ErrCorruptData, m.ID, m.CreatedAt)
	}
	lastModifiedAt, err := time.Parse(time.RFC3339, m.LastModifiedAt)
	if err != nil {
		return domain.ReimbursementRequest{}, fmt.Errorf("%w: record %s has malformed last_modified_at %q", apperrors.ErrCorruptData, m.ID, m.LastModifiedAt)
	}

	d := domain.ReimbursementRequest{
		ID:                    m.ID,
		FolderKey:             m.FolderKey,
		Requester:             m.Requester,
		LastModifiedBy:        m.LastModifiedBy,
		Name:                  m.Name,
		Surname:               m.Surname,
		InvoiceReference:      m.InvoiceReference,
		Description:           m.Description,
		Amount:                amount,
		Status:                domain.RequestStatus(m.Status),
		CreatedAt:             createdAt,
		LastModifiedAt:        lastModifiedAt,
		InvoicePaths:          append([]string{}, m.InvoicePaths...),
		BankAccountPaths:      append([]string{}, m.BankAccountPaths...),
		OverpaymentProofPaths: append([]string{}, m.OverpaymentProofPaths...),
		History:               make([]domain.HistoryEntry, len(m.History)),
	}
	if m.PaidAt != "" {
		paidAt, err := time.Parse(time.RFC3339, m.PaidAt)
		if err != nil {
			return domain.ReimbursementRequest{}, fmt.Errorf("%w: record %s has malformed paid_at %q", apperrors.ErrCorruptData, m.ID, m.PaidAt)
		}
		d.PaidAt = &paidAt
	}
	for i, h := range m.History {
		ts, err := time.Parse(time.RFC3339, h.Timestamp)
		if err != nil {
			return domain.ReimbursementRequest{}, fmt.Errorf("%w: record %s has malformed history timestamp %q", apperrors.ErrCorruptData, m.ID, h.Timestamp)
		}
		d.History[i] = domain.HistoryEntry{
			Status:    domain.RequestStatus(h.Status),
			Timestamp: ts,
			Actor:     h.Actor,
			Comment:   h.Comment,
		}
	}
	return d, nil
}

func (r *JSONRequestRepository) FindRequestByID(ctx context.Context, requestID string) (*domain.ReimbursementRequest, error) {
	doc, err := r.store.Load()
	if err != nil {
		return nil, err
	}
	for _, m := range doc {
		if m.ID == requestID {
			d, err := toDomainRequest(m)
			if err != nil {
				return nil, err
			}
			return &d, nil
		}
	}
	return nil, fmt.Errorf("%w: request %s", apperrors.ErrNotFound, requestID)
}

func (r *JSONRequestRepository) FindRequests(ctx context.Context) ([]domain.ReimbursementRequest, error) {
	doc, err := r.store.Load()
	if err != nil {
		return nil, err
	}
	requests := make([]domain.ReimbursementRequest, 0, len(doc))
	for _, m := range doc {
		d, err := toDomainRequest(m)
		if err != nil {
			return nil, err
		}
		requests = append(requests, d)
	}
	return requests, nil
}

func (r *JSONRequestRepository) SaveRequest(ctx context.Context, request domain.ReimbursementRequest) error {
	return r.store.Update(ctx, func(doc []models.ReimbursementRequest) ([]models.ReimbursementRequest, error) {
		for _, m := range doc {
			if m.ID == request.ID {
				return nil, fmt.Errorf("%w: request %s", apperrors.ErrDuplicate, request.ID)
			}
		}
		return append(doc, toModelRequest(request)), nil
	})
}

func (r *JSONRequestRepository) UpdateRequest(ctx context.Context, request domain.ReimbursementRequest) error {
	return r.store.Update(ctx, func(doc []models.ReimbursementRequest) ([]models.ReimbursementRequest, error) {
		for i, m := range doc {
			if m.ID == request.ID {
				doc[i] = toModelRequest(request)
				return doc, nil
			}
		}
		return nil, fmt.Errorf("%w: request %s", apperrors.ErrNotFound, request.ID)
	})
}

func (r *JSONRequestRepository) MutateRequest(ctx context.Context, requestID string, fn func(*domain.ReimbursementRequest) error) (*domain.ReimbursementRequest, error) {
	var mutated *domain.ReimbursementRequest
	err := r.store.Update(ctx, func(doc []models.ReimbursementRequest) ([]models.ReimbursementRequest, error) {
		for i, m := range doc {
			if m.ID != requestID {
				continue
			}
			d, err := toDomainRequest(m)
			if err != nil {
				return nil, err
			}
			if err := fn(&d); err != nil {
				return nil, err
			}
			doc[i] = toModelRequest(d)
			mutated = &d
			return doc, nil
		}
		return nil, fmt.Errorf("%w: request %s", apperrors.ErrNotFound, requestID)
	})
	if err != nil {
		return nil, err
	}
	return mutated, nil
}

func (r *JSONRequestRepository) DeleteRequest(ctx context.Context, requestID string) error {
	return r.store.Update(ctx, func(doc []models.ReimbursementRequest) ([]models.ReimbursementRequest, error) {
		for i, m := range doc {
			if m.ID == requestID {
				return append(doc[:i], doc[i+1:]...), nil
			}
		}
		return nil, fmt.Errorf("%w: request %s", apperrors.ErrNotFound, requestID)
	})
}

func (r *JSONRequestRepository) RecoverCorrupt(ctx context.Context) (string, error) {
	var quarantined string
	err := r.store.WithLock(ctx, func() error {
		if _, err := r.store.Load(); err == nil {
			return nil
		}
		path, err := r.store.Quarantine()
		if err != nil {
			return err
		}
		quarantined = path
		return r.store.Save([]models.ReimbursementRequest{})
	})
	return quarantined, err
}
