package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/opexhq/expense_approval_app/internal/apperrors"
	"github.com/opexhq/expense_approval_app/internal/core/domain"
	portsrepo "github.com/opexhq/expense_approval_app/internal/core/ports/repositories"
	portssvc "github.com/opexhq/expense_approval_app/internal/core/ports/services"
	"github.com/opexhq/expense_approval_app/internal/dto"
	"github.com/opexhq/expense_approval_app/internal/utils"
)

var (
	ErrAdminUndeletable  = errors.New("the admin account cannot be deleted")
	ErrBadCredentials    = errors.New("invalid login or password")
	ErrResetCodeMismatch = errors.New("reset code does not match")
	ErrResetCodeExpired  = errors.New("reset code has expired")
)

// userService manages user accounts and the password-reset flow.
type userService struct {
	BaseService
	userRepo      portsrepo.UserRepositoryFacade
	resetCodeRepo portsrepo.ResetCodeRepository
	mailer        portssvc.MailSender
	validate      *validator.Validate
	resetCodeTTL  time.Duration
	resetCodeLen  int
}

// NewUserService creates a new user service. resetCodeTTL bounds reset-code
// validity from issuance; resetCodeLen is the number of digits generated.
func NewUserService(userRepo portsrepo.UserRepositoryFacade, resetCodeRepo portsrepo.ResetCodeRepository, mailer portssvc.MailSender, resetCodeTTL time.Duration, resetCodeLen int) portssvc.UserSvcFacade {
	return &userService{
		userRepo:      userRepo,
		resetCodeRepo: resetCodeRepo,
		mailer:        mailer,
		validate:      validator.New(),
		resetCodeTTL:  resetCodeTTL,
		resetCodeLen:  resetCodeLen,
	}
}

// Ensure userService implements the UserSvcFacade interface
var _ portssvc.UserSvcFacade = (*userService)(nil)

func (s *userService) GetUserByLogin(ctx context.Context, login string) (*domain.UserAccount, error) {
	user, err := s.userRepo.FindUserByLogin(ctx, login)
	if err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) {
			s.LogError(ctx, err, "Failed to find user", slog.String("login", login))
		}
		return nil, err
	}
	return user, nil
}

func (s *userService) ListUsers(ctx context.Context) ([]domain.UserAccount, error) {
	users, err := s.userRepo.FindUsers(ctx)
	if err != nil {
		s.LogError(ctx, err, "Failed to list users")
		return nil, err
	}
	return users, nil
}

func (s *userService) CreateUser(ctx context.Context, req dto.CreateUserRequest) (*domain.UserAccount, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrValidation, err)
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	roles := domain.NormalizeRoles(req.Roles)
	if req.Login == domain.AdminLogin {
		roles = domain.NormalizeRoles(append(roles, domain.RoleAdmin))
	}

	user := domain.UserAccount{
		Login:        req.Login,
		PasswordHash: hash,
		Email:        req.Email,
		Roles:        roles,
	}
	if err := s.userRepo.SaveUser(ctx, user); err != nil {
		if !errors.Is(err, apperrors.ErrDuplicate) {
			s.LogError(ctx, err, "Failed to save new user", slog.String("login", req.Login))
		}
		return nil, err
	}

	s.LogInfo(ctx, "User created", slog.String("login", user.Login))
	return &user, nil
}

func (s *userService) UpdateUser(ctx context.Context, login string, req dto.UpdateUserRequest) (*domain.UserAccount, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrValidation, err)
	}

	existing, err := s.userRepo.FindUserByLogin(ctx, login)
	if err != nil {
		return nil, err
	}

	updated := *existing
	updated.Login = req.NewLogin
	updated.Email = req.Email
	updated.Roles = domain.NormalizeRoles(req.Roles)

	// The distinguished admin login keeps its name and its admin role.
	if login == domain.AdminLogin {
		updated.Login = domain.AdminLogin
		updated.Roles = domain.NormalizeRoles(append(updated.Roles, domain.RoleAdmin))
	}

	if req.NewPassword != "" {
		hash, err := utils.HashPassword(req.NewPassword)
		if err != nil {
			return nil, fmt.Errorf("failed to hash password: %w", err)
		}
		updated.PasswordHash = hash
	}

	if err := s.userRepo.UpdateUser(ctx, login, updated); err != nil {
		if !errors.Is(err, apperrors.ErrDuplicate) && !errors.Is(err, apperrors.ErrNotFound) {
			s.LogError(ctx, err, "Failed to update user", slog.String("login", login))
		}
		return nil, err
	}

	s.LogInfo(ctx, "User updated", slog.String("login", login), slog.String("new_login", updated.Login))
	return &updated, nil
}

func (s *userService) DeleteUser(ctx context.Context, login string) error {
	if login == domain.AdminLogin {
		return fmt.Errorf("%w: %v", apperrors.ErrForbidden, ErrAdminUndeletable)
	}
	if err := s.userRepo.DeleteUser(ctx, login); err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) {
			s.LogError(ctx, err, "Failed to delete user", slog.String("login", login))
		}
		return err
	}
	s.LogInfo(ctx, "User deleted", slog.String("login", login))
	return nil
}

// Authenticate verifies a login/password pair against the stored hash.
func (s *userService) Authenticate(ctx context.Context, login, password string) (*domain.UserAccount, error) {
	user, err := s.userRepo.FindUserByLogin(ctx, login)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, fmt.Errorf("%w: %v", apperrors.ErrForbidden, ErrBadCredentials)
		}
		return nil, err
	}
	if !utils.CheckPasswordHash(password, user.PasswordHash) {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrForbidden, ErrBadCredentials)
	}
	return user, nil
}

// RequestPasswordReset issues a fresh single-use code and mails it to the
// account's address. A mail failure degrades gracefully: the code is still
// stored and returned so an operator can relay it.
func (s *userService) RequestPasswordReset(ctx context.Context, login string) (string, bool, error) {
	user, err := s.userRepo.FindUserByLogin(ctx, login)
	if err != nil {
		return "", false, err
	}

	code, err := utils.GenerateResetCode(s.resetCodeLen)
	if err != nil {
		return "", false, fmt.Errorf("failed to generate reset code: %w", err)
	}

	resetCode := domain.PasswordResetCode{
		Login:     login,
		Code:      code,
		ExpiresAt: time.Now().UTC().Add(s.resetCodeTTL),
	}
	if err := s.resetCodeRepo.SaveResetCode(ctx, resetCode); err != nil {
		s.LogError(ctx, err, "Failed to store reset code", slog.String("login", login))
		return "", false, err
	}

	body := fmt.Sprintf("Your password reset code is %s. It expires in %s.", code, s.resetCodeTTL)
	if err := s.mailer.Send(ctx, user.Email, "Password reset code", body); err != nil {
		s.LogWarn(ctx, "Reset code could not be mailed, surfacing to operator",
			slog.String("login", login),
			slog.String("error", err.Error()))
		return code, false, nil
	}

	s.LogInfo(ctx, "Reset code mailed", slog.String("login", login))
	return code, true, nil
}

// ConfirmPasswordReset consumes the pending code (single-use regardless of
// outcome) and sets the new password when the code matches and has not
// expired.
func (s *userService) ConfirmPasswordReset(ctx context.Context, login, code, newPassword string) error {
	stored, err := s.resetCodeRepo.ConsumeResetCode(ctx, login)
	if err != nil {
		return err
	}
	if stored.Expired(time.Now().UTC()) {
		return fmt.Errorf("%w: %v", apperrors.ErrValidation, ErrResetCodeExpired)
	}
	if stored.Code != code {
		return fmt.Errorf("%w: %v", apperrors.ErrValidation, ErrResetCodeMismatch)
	}
	if newPassword == "" {
		return fmt.Errorf("%w: new password must not be empty", apperrors.ErrValidation)
	}

	user, err := s.userRepo.FindUserByLogin(ctx, login)
	if err != nil {
		return err
	}
	hash, err := utils.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	user.PasswordHash = hash
	if err := s.userRepo.UpdateUser(ctx, login, *user); err != nil {
		s.LogError(ctx, err, "Failed to store new password", slog.String("login", login))
		return err
	}

	s.LogInfo(ctx, "Password reset completed", slog.String("login", login))
	return nil
}
