package services_test

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opexhq/expense_approval_app/internal/apperrors"
	"github.com/opexhq/expense_approval_app/internal/attachments"
	"github.com/opexhq/expense_approval_app/internal/core/domain"
	portssvc "github.com/opexhq/expense_approval_app/internal/core/ports/services"
	"github.com/opexhq/expense_approval_app/internal/core/services"
	"github.com/opexhq/expense_approval_app/internal/dto"
	"github.com/opexhq/expense_approval_app/internal/platform/config"
	"github.com/opexhq/expense_approval_app/internal/repositories/jsonfile"
)

// newDiskWorkflow wires the engine over real file-backed repositories so
// transitions go through the document lock, not through mocks.
func newDiskWorkflow(t *testing.T) portssvc.WorkflowSvcFacade {
	t.Helper()
	dir := t.TempDir()
	cfg := &config.Config{
		DataDir:          dir,
		RequestsFile:     filepath.Join(dir, "requests.json"),
		UsersFile:        filepath.Join(dir, "users.json"),
		ResetCodesFile:   filepath.Join(dir, "reset_codes.json"),
		AttachmentsDir:   filepath.Join(dir, "reimbursements"),
		LockTimeout:      2 * time.Second,
		LockPollInterval: 5 * time.Millisecond,
	}

	userRepo := jsonfile.NewUserRepository(cfg)
	ctx := context.Background()
	require.NoError(t, userRepo.SaveUser(ctx, domain.UserAccount{Login: "marie", Roles: []domain.Role{domain.RoleRequester}}))
	require.NoError(t, userRepo.SaveUser(ctx, domain.UserAccount{Login: "jean", Roles: []domain.Role{domain.RoleTreasury}}))

	return services.NewWorkflowService(jsonfile.NewRequestRepository(cfg), userRepo, attachments.NewManager(cfg))
}

func writeProofFile(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte("proof bytes"), 0o644))
	return path
}

func createDiskRequest(t *testing.T, workflow portssvc.WorkflowSvcFacade) *domain.ReimbursementRequest {
	t.Helper()
	created, err := workflow.CreateRequest(context.Background(), dto.CreateRequestRequest{
		Name:             "Dupont",
		Surname:          "Claire",
		InvoiceReference: "FAC-2024-001",
		Amount:           "150.50",
		Description:      "double payment of invoice",
		BankProofPath:    writeProofFile(t, "rib.pdf"),
	}, "marie")
	require.NoError(t, err)
	return created
}

// A second actor acting on a stale view of the request must fail its
// precondition against the stored state and must not undo the committed
// transition or shrink any attachment list.
func TestWorkflow_StaleTransitionFailsAgainstStoredState(t *testing.T) {
	workflow := newDiskWorkflow(t)
	ctx := context.Background()
	created := createDiskRequest(t, workflow)

	// Both actors observed the request while it was CREATED.
	accepted, err := workflow.AcceptOverpayment(ctx, created.ID, dto.AcceptOverpaymentRequest{
		ProofPath: writeProofFile(t, "constat.pdf"),
		Comment:   "client overcharged",
	}, "jean")
	require.NoError(t, err)
	require.Equal(t, domain.StatusOverpaidConfirmed, accepted.Status)
	require.Len(t, accepted.OverpaymentProofPaths, 1)

	// The stale reject still believes the request is CREATED.
	_, err = workflow.RejectOverpayment(ctx, created.ID, "missing proof of debit", "jean")
	require.ErrorIs(t, err, apperrors.ErrInvalidState)
	assert.Contains(t, err.Error(), string(domain.StatusCreated))

	final, err := workflow.GetRequestByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusOverpaidConfirmed, final.Status)
	assert.Len(t, final.OverpaymentProofPaths, 1)
	assert.Equal(t, final.Status, final.History[len(final.History)-1].Status)
}

// Two concurrent transitions on one request serialize on the document lock:
// exactly one commits, the other fails its precondition, and the stored
// record stays consistent either way.
func TestWorkflow_ConcurrentTransitionsSerialize(t *testing.T) {
	workflow := newDiskWorkflow(t)
	ctx := context.Background()
	created := createDiskRequest(t, workflow)
	proofPath := writeProofFile(t, "constat.pdf")

	var wg sync.WaitGroup
	var acceptErr, rejectErr error
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, acceptErr = workflow.AcceptOverpayment(ctx, created.ID, dto.AcceptOverpaymentRequest{
			ProofPath: proofPath,
			Comment:   "client overcharged",
		}, "jean")
	}()
	go func() {
		defer wg.Done()
		_, rejectErr = workflow.RejectOverpayment(ctx, created.ID, "missing proof of debit", "jean")
	}()
	wg.Wait()

	if acceptErr == nil {
		require.ErrorIs(t, rejectErr, apperrors.ErrInvalidState)
	} else {
		require.ErrorIs(t, acceptErr, apperrors.ErrInvalidState)
		require.NoError(t, rejectErr)
	}

	final, err := workflow.GetRequestByID(ctx, created.ID)
	require.NoError(t, err)
	require.Len(t, final.History, 2)
	assert.Equal(t, final.Status, final.History[len(final.History)-1].Status)
	switch final.Status {
	case domain.StatusOverpaidConfirmed:
		assert.Len(t, final.OverpaymentProofPaths, 1)
	case domain.StatusCreationRejected:
		assert.Empty(t, final.OverpaymentProofPaths)
	default:
		t.Fatalf("unexpected final status %s", final.Status)
	}
}
