package jsonfile

import (
	"context"
	"fmt"
	"sort"

	"github.com/opexhq/expense_approval_app/internal/apperrors"
	"github.com/opexhq/expense_approval_app/internal/core/domain"
	portsrepo "github.com/opexhq/expense_approval_app/internal/core/ports/repositories"
	"github.com/opexhq/expense_approval_app/internal/models"
	"github.com/opexhq/expense_approval_app/internal/platform/config"
)

// JSONUserRepository owns the user document, a JSON object keyed by login.
type JSONUserRepository struct {
	store *Store[map[string]models.UserAccount]
}

// NewUserRepository creates the repository over the configured user document.
func NewUserRepository(cfg *config.Config) portsrepo.UserRepositoryFacade {
	return &JSONUserRepository{
		store: NewStore[map[string]models.UserAccount](cfg.UsersFile, cfg.LockTimeout, cfg.LockPollInterval),
	}
}

// Ensure JSONUserRepository implements portsrepo.UserRepositoryFacade
var _ portsrepo.UserRepositoryFacade = (*JSONUserRepository)(nil)

func toModelUser(d domain.UserAccount) models.UserAccount {
	roles := make([]string, len(d.Roles))
	for i, r := range d.Roles {
		roles[i] = string(r)
	}
	return models.UserAccount{
		PasswordHash: d.PasswordHash,
		Email:        d.Email,
		Roles:        roles,
	}
}

func toDomainUser(login string, m models.UserAccount) domain.UserAccount {
	roles := make([]domain.Role, len(m.Roles))
	for i, r := range m.Roles {
		roles[i] = domain.Role(r)
	}
	return domain.UserAccount{
		Login:        login,
		PasswordHash: m.PasswordHash,
		Email:        m.Email,
		Roles:        roles,
	}
}

func (r *JSONUserRepository) FindUserByLogin(ctx context.Context, login string) (*domain.UserAccount, error) {
	doc, err := r.store.Load()
	if err != nil {
		return nil, err
	}
	m, ok := doc[login]
	if !ok {
		return nil, fmt.Errorf("%w: user %s", apperrors.ErrNotFound, login)
	}
	user := toDomainUser(login, m)
	return &user, nil
}

func (r *JSONUserRepository) FindUsers(ctx context.Context) ([]domain.UserAccount, error) {
	doc, err := r.store.Load()
	if err != nil {
		return nil, err
	}
	users := make([]domain.UserAccount, 0, len(doc))
	for login, m := range doc {
		users = append(users, toDomainUser(login, m))
	}
	sort.Slice(users, func(i, j int) bool { return users[i].Login < users[j].Login })
	return users, nil
}

func (r *JSONUserRepository) SaveUser(ctx context.Context, user domain.UserAccount) error {
	return r.store.Update(ctx, func(doc map[string]models.UserAccount) (map[string]models.UserAccount, error) {
		if doc == nil {
			doc = make(map[string]models.UserAccount)
		}
		if _, exists := doc[user.Login]; exists {
			return nil, fmt.Errorf("%w: user %s", apperrors.ErrDuplicate, user.Login)
		}
		doc[user.Login] = toModelUser(user)
		return doc, nil
	})
}

func (r *JSONUserRepository) UpdateUser(ctx context.Context, oldLogin string, user domain.UserAccount) error {
	return r.store.Update(ctx, func(doc map[string]models.UserAccount) (map[string]models.UserAccount, error) {
		if _, exists := doc[oldLogin]; !exists {
			return nil, fmt.Errorf("%w: user %s", apperrors.ErrNotFound, oldLogin)
		}
		if user.Login != oldLogin {
			if _, taken := doc[user.Login]; taken {
				return nil, fmt.Errorf("%w: login %s is already used by another account", apperrors.ErrDuplicate, user.Login)
			}
			delete(doc, oldLogin)
		}
		doc[user.Login] = toModelUser(user)
		return doc, nil
	})
}

func (r *JSONUserRepository) DeleteUser(ctx context.Context, login string) error {
	return r.store.Update(ctx, func(doc map[string]models.UserAccount) (map[string]models.UserAccount, error) {
		if _, exists := doc[login]; !exists {
			return nil, fmt.Errorf("%w: user %s", apperrors.ErrNotFound, login)
		}
		delete(doc, login)
		return doc, nil
	})
}
