package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/opexhq/expense_approval_app/internal/apperrors"
	"github.com/opexhq/expense_approval_app/internal/attachments"
	portsrepo "github.com/opexhq/expense_approval_app/internal/core/ports/repositories"
	portssvc "github.com/opexhq/expense_approval_app/internal/core/ports/services"
	"github.com/opexhq/expense_approval_app/internal/core/services"
	"github.com/opexhq/expense_approval_app/internal/mailer"
	"github.com/opexhq/expense_approval_app/internal/middleware"
	"github.com/opexhq/expense_approval_app/internal/pdfextract"
	"github.com/opexhq/expense_approval_app/internal/platform/config"
	"github.com/opexhq/expense_approval_app/internal/repositories/jsonfile"
)

// app bundles the wired services handed to every command.
type app struct {
	logger      *slog.Logger
	workflow    portssvc.WorkflowSvcFacade
	users       portssvc.UserSvcFacade
	requestRepo portsrepo.RequestRepositoryFacade
	extractor   portssvc.FieldExtractor
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Error("Failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	requestRepo := jsonfile.NewRequestRepository(cfg)
	userRepo := jsonfile.NewUserRepository(cfg)
	resetCodeRepo := jsonfile.NewResetCodeRepository(cfg)
	attachmentMgr := attachments.NewManager(cfg)
	smtpMailer := mailer.NewSMTPMailer(cfg)

	a := &app{
		logger:      logger,
		workflow:    services.NewWorkflowService(requestRepo, userRepo, attachmentMgr),
		users:       services.NewUserService(userRepo, resetCodeRepo, smtpMailer, cfg.ResetCodeTTL, cfg.ResetCodeLength),
		requestRepo: requestRepo,
		extractor:   pdfextract.NewExtractor(),
	}

	rootCmd := newRootCommand(a)
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "expenseapp: %s\n", messageForError(err))
		os.Exit(1)
	}
}

func newRootCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:          "expenseapp",
		Short:        "Expense reimbursement approval workflow",
		Long:         `expenseapp manages reimbursement requests through their multi-step approval workflow: creation, overpayment constat, validation, and payment, with versioned supporting documents at each step.`,
		SilenceUsage: true,
		// Errors are formatted through messageForError in main.
		SilenceErrors: true,
	}
	cmd.AddCommand(
		newRequestCmd(a),
		newUserCmd(a),
		newPrefillCmd(a),
	)
	return cmd
}

// opContext attaches an operation-scoped logger to the command context.
func (a *app) opContext(cmd *cobra.Command, operation, actor string) context.Context {
	return middleware.ContextWithLogger(cmd.Context(), a.logger, operation, actor)
}

// messageForError maps the error taxonomy to the human-readable message the
// operator sees. The message is the only user-visible surface; callers must
// treat a non-nil error as the sole failure indicator.
func messageForError(err error) string {
	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		return fmt.Sprintf("not found: %v", err)
	case errors.Is(err, apperrors.ErrInvalidState):
		return fmt.Sprintf("wrong status: %v", err)
	case errors.Is(err, apperrors.ErrValidation):
		return fmt.Sprintf("invalid input: %v", err)
	case errors.Is(err, apperrors.ErrForbidden):
		return fmt.Sprintf("not allowed: %v", err)
	case errors.Is(err, apperrors.ErrLockTimeout):
		return fmt.Sprintf("the data files are busy, try again: %v", err)
	case errors.Is(err, apperrors.ErrCorruptData):
		return fmt.Sprintf("a data file is corrupt, run 'expenseapp request recover': %v", err)
	default:
		return err.Error()
	}
}
