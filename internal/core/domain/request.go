package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// RequestStatus indicates where a reimbursement request sits in the
// approval workflow.
type RequestStatus string

const (
	StatusCreated            RequestStatus = "CREATED"
	StatusOverpaidConfirmed  RequestStatus = "OVERPAID_CONFIRMED"
	StatusValidated          RequestStatus = "VALIDATED"
	StatusPaid               RequestStatus = "PAID"
	StatusCreationRejected   RequestStatus = "CREATION_REJECTED"
	StatusValidationRejected RequestStatus = "VALIDATION_REJECTED"
	StatusCancelled          RequestStatus = "CANCELLED"
)

// IsTerminal reports whether the status admits no further workflow
// transitions.
func (s RequestStatus) IsTerminal() bool {
	return s == StatusPaid || s == StatusCancelled
}

// AttachmentKind selects which versioned attachment list of a request an
// attachment belongs to.
type AttachmentKind string

const (
	AttachmentInvoice          AttachmentKind = "invoice"
	AttachmentBankAccount      AttachmentKind = "rib"
	AttachmentOverpaymentProof AttachmentKind = "overpayment"
)

// HistoryEntry is one audit-trail record. Every status mutation appends
// exactly one entry; the last entry's Status always equals the request's
// current Status.
type HistoryEntry struct {
	Status    RequestStatus `json:"status"`
	Timestamp time.Time     `json:"timestamp"`
	Actor     string        `json:"actor"`
	Comment   string        `json:"comment"`
}

// ReimbursementRequest is one reimbursement case tracked through the
// workflow. Attachment path lists are append-only and relative to the
// attachments root; History is append-only.
type ReimbursementRequest struct {
	ID               string `json:"id"` // Primary key, generated at creation
	FolderKey        string `json:"folderKey"`
	Requester        string `json:"requester"`
	LastModifiedBy   string `json:"lastModifiedBy"`
	Name             string `json:"name"`
	Surname          string `json:"surname"`
	InvoiceReference string `json:"invoiceReference"`
	Description      string `json:"description"`

	Amount decimal.Decimal `json:"amount"`
	Status RequestStatus   `json:"status"`

	CreatedAt      time.Time  `json:"createdAt"`
	LastModifiedAt time.Time  `json:"lastModifiedAt"`
	PaidAt         *time.Time `json:"paidAt,omitempty"`

	InvoicePaths          []string `json:"invoicePaths"`
	BankAccountPaths      []string `json:"bankAccountPaths"`
	OverpaymentProofPaths []string `json:"overpaymentProofPaths"`

	History []HistoryEntry `json:"history"`
}

// AttachmentPaths returns the versioned path list for the given kind.
func (r *ReimbursementRequest) AttachmentPaths(kind AttachmentKind) []string {
	switch kind {
	case AttachmentInvoice:
		return r.InvoicePaths
	case AttachmentBankAccount:
		return r.BankAccountPaths
	case AttachmentOverpaymentProof:
		return r.OverpaymentProofPaths
	}
	return nil
}

// AppendAttachmentPath appends a relative path to the list for the given
// kind. Lists only ever grow; each resubmission appends a new version.
func (r *ReimbursementRequest) AppendAttachmentPath(kind AttachmentKind, relPath string) {
	switch kind {
	case AttachmentInvoice:
		r.InvoicePaths = append(r.InvoicePaths, relPath)
	case AttachmentBankAccount:
		r.BankAccountPaths = append(r.BankAccountPaths, relPath)
	case AttachmentOverpaymentProof:
		r.OverpaymentProofPaths = append(r.OverpaymentProofPaths, relPath)
	}
}
