package jsonfile

import (
	"context"
	"fmt"
	"time"

	"github.com/opexhq/expense_approval_app/internal/apperrors"
	"github.com/opexhq/expense_approval_app/internal/core/domain"
	portsrepo "github.com/opexhq/expense_approval_app/internal/core/ports/repositories"
	"github.com/opexhq/expense_approval_app/internal/models"
	"github.com/opexhq/expense_approval_app/internal/platform/config"
)

// JSONResetCodeRepository owns the reset-code document, a JSON object keyed
// by login. Codes are single-use: consumption deletes the entry before the
// caller inspects validity.
type JSONResetCodeRepository struct {
	store *Store[map[string]models.PasswordResetCode]
}

// NewResetCodeRepository creates the repository over the configured
// reset-code document.
func NewResetCodeRepository(cfg *config.Config) portsrepo.ResetCodeRepository {
	return &JSONResetCodeRepository{
		store: NewStore[map[string]models.PasswordResetCode](cfg.ResetCodesFile, cfg.LockTimeout, cfg.LockPollInterval),
	}
}

// Ensure JSONResetCodeRepository implements portsrepo.ResetCodeRepository
var _ portsrepo.ResetCodeRepository = (*JSONResetCodeRepository)(nil)

func (r *JSONResetCodeRepository) SaveResetCode(ctx context.Context, code domain.PasswordResetCode) error {
	return r.store.Update(ctx, func(doc map[string]models.PasswordResetCode) (map[string]models.PasswordResetCode, error) {
		if doc == nil {
			doc = make(map[string]models.PasswordResetCode)
		}
		doc[code.Login] = models.PasswordResetCode{
			Code:      code.Code,
			ExpiresAt: code.ExpiresAt.UTC().Format(time.RFC3339),
		}
		return doc, nil
	})
}

func (r *JSONResetCodeRepository) ConsumeResetCode(ctx context.Context, login string) (*domain.PasswordResetCode, error) {
	var consumed *domain.PasswordResetCode
	err := r.store.Update(ctx, func(doc map[string]models.PasswordResetCode) (map[string]models.PasswordResetCode, error) {
		m, ok := doc[login]
		if !ok {
			return nil, fmt.Errorf("%w: no reset code pending for %s", apperrors.ErrNotFound, login)
		}
		delete(doc, login)
		expiresAt, err := time.Parse(time.RFC3339, m.ExpiresAt)
		if err != nil {
			return nil, fmt.Errorf("%w: reset code for %s has malformed expiration %q", apperrors.ErrCorruptData, login, m.ExpiresAt)
		}
		consumed = &domain.PasswordResetCode{
			Login:     login,
			Code:      m.Code,
			ExpiresAt: expiresAt,
		}
		return doc, nil
	})
	if err != nil {
		return nil, err
	}
	return consumed, nil
}
