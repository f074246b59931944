// Package attachments copies supporting documents into per-request
// directories under a fixed root, using sanitized, versioned filenames.
// Stored paths are always relative to the root so documents can live on a
// network share mounted at different locations.
package attachments

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/opexhq/expense_approval_app/internal/core/domain"
	portssvc "github.com/opexhq/expense_approval_app/internal/core/ports/services"
	"github.com/opexhq/expense_approval_app/internal/middleware"
	"github.com/opexhq/expense_approval_app/internal/platform/config"
)

// SummaryFileName is the human-readable record summary written into each
// request's directory at creation time.
const SummaryFileName = "request_summary.txt"

// Manager implements the AttachmentStorer port on the local filesystem.
type Manager struct {
	root string
}

// NewManager creates a manager rooted at the configured attachments
// directory.
func NewManager(cfg *config.Config) *Manager {
	return &Manager{root: cfg.AttachmentsDir}
}

// Ensure Manager implements the AttachmentStorer port
var _ portssvc.AttachmentStorer = (*Manager)(nil)

// AbsolutePath resolves a stored relative path against the attachments
// root.
func (m *Manager) AbsolutePath(relPath string) string {
	return filepath.Join(m.root, relPath)
}

// StoreAttachment copies sourcePath into the request's directory as
// "<kind>_v<n>_<folderKey>_<sanitizedBase>" where n is one more than the
// current length of the target list, then appends the relative path and
// stamps LastModifiedBy/LastModifiedAt on the in-memory record. The record
// is untouched when the copy fails.
func (m *Manager) StoreAttachment(ctx context.Context, request *domain.ReimbursementRequest, sourcePath string, kind domain.AttachmentKind, actorLogin string) (string, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	version := len(request.AttachmentPaths(kind)) + 1
	destName := fmt.Sprintf("%s_v%d_%s_%s", kind, version, request.FolderKey, SanitizeFileName(sourcePath))
	relPath := filepath.Join(request.FolderKey, destName)

	if err := os.MkdirAll(filepath.Join(m.root, request.FolderKey), 0o755); err != nil {
		return "", fmt.Errorf("failed to create attachment directory for %s: %w", request.FolderKey, err)
	}
	if err := copyFile(sourcePath, filepath.Join(m.root, relPath)); err != nil {
		logger.Error("Attachment copy failed",
			slog.String("request_id", request.ID),
			slog.String("source", sourcePath),
			slog.String("error", err.Error()))
		return "", fmt.Errorf("failed to copy attachment %s: %w", sourcePath, err)
	}

	request.AppendAttachmentPath(kind, relPath)
	request.LastModifiedBy = actorLogin
	request.LastModifiedAt = time.Now().UTC()

	logger.Info("Attachment stored",
		slog.String("request_id", request.ID),
		slog.String("kind", string(kind)),
		slog.String("path", relPath))
	return relPath, nil
}

// WriteSummary writes the text summary of the record into its attachment
// directory.
func (m *Manager) WriteSummary(ctx context.Context, request *domain.ReimbursementRequest) error {
	dir := filepath.Join(m.root, request.FolderKey)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create attachment directory for %s: %w", request.FolderKey, err)
	}
	summary := fmt.Sprintf(
		"Reimbursement request %s\n"+
			"Requester: %s %s (%s)\n"+
			"Invoice reference: %s\n"+
			"Amount: %s\n"+
			"Description: %s\n"+
			"Created: %s\n",
		request.ID,
		request.Name, request.Surname, request.Requester,
		request.InvoiceReference,
		request.Amount.String(),
		request.Description,
		request.CreatedAt.UTC().Format(time.RFC3339),
	)
	if err := os.WriteFile(filepath.Join(dir, SummaryFileName), []byte(summary), 0o644); err != nil {
		return fmt.Errorf("failed to write request summary: %w", err)
	}
	return nil
}

// RemoveRequestDir recursively deletes the attachment directory for the
// given folder key.
func (m *Manager) RemoveRequestDir(ctx context.Context, folderKey string) error {
	if folderKey == "" {
		return fmt.Errorf("refusing to delete attachment root: empty folder key")
	}
	if err := os.RemoveAll(filepath.Join(m.root, folderKey)); err != nil {
		return fmt.Errorf("failed to delete attachment directory %s: %w", folderKey, err)
	}
	return nil
}

// copyFile copies src to dst preserving mode and modification time.
func copyFile(src, dst string) error {
	info, err := os.Stat(src)
	if err != nil {
		return err
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("%s is not a regular file", src)
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, info.Mode().Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dst)
		return err
	}
	if err := out.Close(); err != nil {
		os.Remove(dst)
		return err
	}
	return os.Chtimes(dst, time.Now(), info.ModTime())
}
