package services

import (
	"context"

	"github.com/opexhq/expense_approval_app/internal/core/domain"
	"github.com/opexhq/expense_approval_app/internal/dto"
)

// AttachmentStorer copies supporting documents into a request's attachment
// directory and records their relative paths on the in-memory record.
// Persisting the mutated record remains the caller's responsibility.
type AttachmentStorer interface {
	// StoreAttachment copies sourcePath into the request's directory under a
	// sanitized, versioned filename and appends the relative path to the
	// list selected by kind. Returns the relative path. On copy failure the
	// record is left untouched.
	StoreAttachment(ctx context.Context, request *domain.ReimbursementRequest, sourcePath string, kind domain.AttachmentKind, actorLogin string) (string, error)

	// WriteSummary writes the human-readable text summary of the record
	// into its attachment directory.
	WriteSummary(ctx context.Context, request *domain.ReimbursementRequest) error

	// RemoveRequestDir recursively deletes the attachment directory for the
	// given folder key.
	RemoveRequestDir(ctx context.Context, folderKey string) error
}

// MailSender delivers a plain-text message. Implementations degrade
// gracefully: a delivery failure is an error, never a panic.
type MailSender interface {
	Send(ctx context.Context, to, subject, body string) error
}

// FieldExtractor scrapes advisory pre-fill fields from an invoice file.
// Extraction is best-effort and never required for correctness.
type FieldExtractor interface {
	Extract(ctx context.Context, path string) (*dto.InvoicePrefill, error)
}
