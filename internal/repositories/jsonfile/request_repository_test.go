package jsonfile_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opexhq/expense_approval_app/internal/apperrors"
	"github.com/opexhq/expense_approval_app/internal/core/domain"
	"github.com/opexhq/expense_approval_app/internal/platform/config"
	"github.com/opexhq/expense_approval_app/internal/repositories/jsonfile"
)

func newTestConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	return &config.Config{
		DataDir:          dir,
		RequestsFile:     dir + "/requests.json",
		UsersFile:        dir + "/users.json",
		ResetCodesFile:   dir + "/reset_codes.json",
		AttachmentsDir:   dir + "/reimbursements",
		LockTimeout:      time.Second,
		LockPollInterval: 10 * time.Millisecond,
	}
}

func sampleRequest(id string) domain.ReimbursementRequest {
	now := time.Now().UTC().Truncate(time.Second)
	paid := now.Add(time.Hour)
	return domain.ReimbursementRequest{
		ID:                    id,
		FolderKey:             "FAC-2024-001",
		Requester:             "marie",
		LastModifiedBy:        "marie",
		Name:                  "Dupont",
		Surname:               "Claire",
		InvoiceReference:      "FAC 2024/001",
		Description:           "double payment of invoice",
		Amount:                decimal.RequireFromString("150.50"),
		Status:                domain.StatusCreated,
		CreatedAt:             now,
		LastModifiedAt:        now,
		PaidAt:                &paid,
		InvoicePaths:          []string{},
		BankAccountPaths:      []string{"FAC-2024-001/rib_v1_FAC-2024-001_rib.pdf"},
		OverpaymentProofPaths: []string{},
		History: []domain.HistoryEntry{
			{Status: domain.StatusCreated, Timestamp: now, Actor: "marie", Comment: "request created"},
		},
	}
}

func TestRequestRepository_SaveAndFind(t *testing.T) {
	cfg := newTestConfig(t)
	repo := jsonfile.NewRequestRepository(cfg)
	ctx := context.Background()

	want := sampleRequest("r1")
	require.NoError(t, repo.SaveRequest(ctx, want))

	got, err := repo.FindRequestByID(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, want.ID, got.ID)
	assert.Equal(t, want.FolderKey, got.FolderKey)
	assert.True(t, want.Amount.Equal(got.Amount))
	assert.Equal(t, want.Status, got.Status)
	assert.Equal(t, want.BankAccountPaths, got.BankAccountPaths)
	require.Len(t, got.History, 1)
	assert.Equal(t, want.History[0].Comment, got.History[0].Comment)
	require.NotNil(t, got.PaidAt)
	assert.True(t, want.PaidAt.Equal(*got.PaidAt))
}

func TestRequestRepository_SaveDuplicateFails(t *testing.T) {
	cfg := newTestConfig(t)
	repo := jsonfile.NewRequestRepository(cfg)
	ctx := context.Background()

	require.NoError(t, repo.SaveRequest(ctx, sampleRequest("r1")))
	err := repo.SaveRequest(ctx, sampleRequest("r1"))
	assert.ErrorIs(t, err, apperrors.ErrDuplicate)
}

func TestRequestRepository_FindMissingReturnsNotFound(t *testing.T) {
	cfg := newTestConfig(t)
	repo := jsonfile.NewRequestRepository(cfg)

	_, err := repo.FindRequestByID(context.Background(), "nope")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestRequestRepository_UpdateReplacesRecord(t *testing.T) {
	cfg := newTestConfig(t)
	repo := jsonfile.NewRequestRepository(cfg)
	ctx := context.Background()

	req := sampleRequest("r1")
	require.NoError(t, repo.SaveRequest(ctx, req))

	req.Status = domain.StatusOverpaidConfirmed
	req.History = append(req.History, domain.HistoryEntry{
		Status:    domain.StatusOverpaidConfirmed,
		Timestamp: time.Now().UTC().Truncate(time.Second),
		Actor:     "jean",
		Comment:   "constat recorded",
	})
	require.NoError(t, repo.UpdateRequest(ctx, req))

	got, err := repo.FindRequestByID(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusOverpaidConfirmed, got.Status)
	require.Len(t, got.History, 2)
	assert.Equal(t, got.Status, got.History[len(got.History)-1].Status)
}

func TestRequestRepository_UpdateMissingReturnsNotFound(t *testing.T) {
	cfg := newTestConfig(t)
	repo := jsonfile.NewRequestRepository(cfg)

	err := repo.UpdateRequest(context.Background(), sampleRequest("ghost"))
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestRequestRepository_MutateRunsAgainstStoredState(t *testing.T) {
	cfg := newTestConfig(t)
	repo := jsonfile.NewRequestRepository(cfg)
	ctx := context.Background()

	require.NoError(t, repo.SaveRequest(ctx, sampleRequest("r1")))

	mutated, err := repo.MutateRequest(ctx, "r1", func(r *domain.ReimbursementRequest) error {
		if r.Status != domain.StatusCreated {
			return apperrors.ErrInvalidState
		}
		r.Status = domain.StatusOverpaidConfirmed
		r.OverpaymentProofPaths = append(r.OverpaymentProofPaths, "FAC-2024-001/overpayment_v1")
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusOverpaidConfirmed, mutated.Status)

	// A second mutation with the same precondition now sees the committed
	// state, fails, and leaves the document untouched.
	_, err = repo.MutateRequest(ctx, "r1", func(r *domain.ReimbursementRequest) error {
		if r.Status != domain.StatusCreated {
			return apperrors.ErrInvalidState
		}
		r.Status = domain.StatusCreationRejected
		r.OverpaymentProofPaths = nil
		return nil
	})
	require.ErrorIs(t, err, apperrors.ErrInvalidState)

	got, err := repo.FindRequestByID(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusOverpaidConfirmed, got.Status)
	assert.Len(t, got.OverpaymentProofPaths, 1)
}

func TestRequestRepository_MutateMissingReturnsNotFound(t *testing.T) {
	cfg := newTestConfig(t)
	repo := jsonfile.NewRequestRepository(cfg)

	_, err := repo.MutateRequest(context.Background(), "ghost", func(r *domain.ReimbursementRequest) error {
		return nil
	})
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestRequestRepository_Delete(t *testing.T) {
	cfg := newTestConfig(t)
	repo := jsonfile.NewRequestRepository(cfg)
	ctx := context.Background()

	require.NoError(t, repo.SaveRequest(ctx, sampleRequest("r1")))
	require.NoError(t, repo.SaveRequest(ctx, sampleRequest("r2")))

	require.NoError(t, repo.DeleteRequest(ctx, "r1"))
	_, err := repo.FindRequestByID(ctx, "r1")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	remaining, err := repo.FindRequests(ctx)
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.Equal(t, "r2", remaining[0].ID)

	err = repo.DeleteRequest(ctx, "r1")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestRequestRepository_RecoverCorrupt(t *testing.T) {
	cfg := newTestConfig(t)
	repo := jsonfile.NewRequestRepository(cfg)
	ctx := context.Background()

	require.NoError(t, os.MkdirAll(cfg.DataDir, 0o755))
	require.NoError(t, os.WriteFile(cfg.RequestsFile, []byte("][ garbage"), 0o644))

	_, err := repo.FindRequests(ctx)
	require.ErrorIs(t, err, apperrors.ErrCorruptData)

	quarantined, err := repo.RecoverCorrupt(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, quarantined)

	reqs, err := repo.FindRequests(ctx)
	require.NoError(t, err)
	assert.Empty(t, reqs)
}
