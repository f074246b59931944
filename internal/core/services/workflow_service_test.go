package services_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"

	"github.com/opexhq/expense_approval_app/internal/apperrors"
	"github.com/opexhq/expense_approval_app/internal/core/domain"
	portssvc "github.com/opexhq/expense_approval_app/internal/core/ports/services"
	"github.com/opexhq/expense_approval_app/internal/core/services"
	"github.com/opexhq/expense_approval_app/internal/dto"
)

// --- Mock RequestRepository ---
type MockRequestRepository struct {
	mock.Mock
	FindRequestByIDFn func(ctx context.Context, requestID string) (*domain.ReimbursementRequest, error)
	MutateRequestFn   func(ctx context.Context, requestID string, fn func(*domain.ReimbursementRequest) error) (*domain.ReimbursementRequest, error)
}

func (m *MockRequestRepository) FindRequestByID(ctx context.Context, requestID string) (*domain.ReimbursementRequest, error) {
	if m.FindRequestByIDFn != nil {
		return m.FindRequestByIDFn(ctx, requestID)
	}
	args := m.Called(ctx, requestID)
	var request *domain.ReimbursementRequest
	if args.Get(0) != nil {
		request = args.Get(0).(*domain.ReimbursementRequest)
	}
	return request, args.Error(1)
}

func (m *MockRequestRepository) FindRequests(ctx context.Context) ([]domain.ReimbursementRequest, error) {
	args := m.Called(ctx)
	var requests []domain.ReimbursementRequest
	if args.Get(0) != nil {
		requests = args.Get(0).([]domain.ReimbursementRequest)
	}
	return requests, args.Error(1)
}

func (m *MockRequestRepository) SaveRequest(ctx context.Context, request domain.ReimbursementRequest) error {
	args := m.Called(ctx, request)
	return args.Error(0)
}

func (m *MockRequestRepository) UpdateRequest(ctx context.Context, request domain.ReimbursementRequest) error {
	args := m.Called(ctx, request)
	return args.Error(0)
}

func (m *MockRequestRepository) MutateRequest(ctx context.Context, requestID string, fn func(*domain.ReimbursementRequest) error) (*domain.ReimbursementRequest, error) {
	if m.MutateRequestFn != nil {
		return m.MutateRequestFn(ctx, requestID, fn)
	}
	args := m.Called(ctx, requestID, fn)
	var request *domain.ReimbursementRequest
	if args.Get(0) != nil {
		request = args.Get(0).(*domain.ReimbursementRequest)
	}
	return request, args.Error(1)
}

func (m *MockRequestRepository) DeleteRequest(ctx context.Context, requestID string) error {
	args := m.Called(ctx, requestID)
	return args.Error(0)
}

func (m *MockRequestRepository) RecoverCorrupt(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

// --- Mock UserReader ---
type MockUserReader struct {
	mock.Mock
}

func (m *MockUserReader) FindUserByLogin(ctx context.Context, login string) (*domain.UserAccount, error) {
	args := m.Called(ctx, login)
	var user *domain.UserAccount
	if args.Get(0) != nil {
		user = args.Get(0).(*domain.UserAccount)
	}
	return user, args.Error(1)
}

func (m *MockUserReader) FindUsers(ctx context.Context) ([]domain.UserAccount, error) {
	args := m.Called(ctx)
	var users []domain.UserAccount
	if args.Get(0) != nil {
		users = args.Get(0).([]domain.UserAccount)
	}
	return users, args.Error(1)
}

// --- Mock AttachmentStorer ---
type MockAttachmentStorer struct {
	mock.Mock
	StoreAttachmentFn func(ctx context.Context, request *domain.ReimbursementRequest, sourcePath string, kind domain.AttachmentKind, actorLogin string) (string, error)
}

func (m *MockAttachmentStorer) StoreAttachment(ctx context.Context, request *domain.ReimbursementRequest, sourcePath string, kind domain.AttachmentKind, actorLogin string) (string, error) {
	if m.StoreAttachmentFn != nil {
		return m.StoreAttachmentFn(ctx, request, sourcePath, kind, actorLogin)
	}
	args := m.Called(ctx, request, sourcePath, kind, actorLogin)
	return args.String(0), args.Error(1)
}

func (m *MockAttachmentStorer) WriteSummary(ctx context.Context, request *domain.ReimbursementRequest) error {
	args := m.Called(ctx, request)
	return args.Error(0)
}

func (m *MockAttachmentStorer) RemoveRequestDir(ctx context.Context, folderKey string) error {
	args := m.Called(ctx, folderKey)
	return args.Error(0)
}

// --- Test Suite ---
type WorkflowServiceTestSuite struct {
	suite.Suite
	mockRequestRepo *MockRequestRepository
	mockUserRepo    *MockUserReader
	mockAttachments *MockAttachmentStorer
	service         portssvc.WorkflowSvcFacade
}

func (suite *WorkflowServiceTestSuite) SetupTest() {
	suite.mockRequestRepo = new(MockRequestRepository)
	suite.mockUserRepo = new(MockUserReader)
	suite.mockAttachments = new(MockAttachmentStorer)
	// Default attachment behavior mirrors the real manager: append the
	// versioned relative path and stamp the modifier.
	suite.mockAttachments.StoreAttachmentFn = func(ctx context.Context, request *domain.ReimbursementRequest, sourcePath string, kind domain.AttachmentKind, actorLogin string) (string, error) {
		rel := fmt.Sprintf("%s/%s_v%d", request.FolderKey, kind, len(request.AttachmentPaths(kind))+1)
		request.AppendAttachmentPath(kind, rel)
		request.LastModifiedBy = actorLogin
		request.LastModifiedAt = time.Now().UTC()
		return rel, nil
	}
	suite.service = services.NewWorkflowService(suite.mockRequestRepo, suite.mockUserRepo, suite.mockAttachments)
}

func (suite *WorkflowServiceTestSuite) expectUser(login string, roles ...domain.Role) {
	user := &domain.UserAccount{Login: login, Roles: roles}
	suite.mockUserRepo.On("FindUserByLogin", mock.Anything, login).Return(user, nil)
}

// stubMutate backs MutateRequest with a single in-memory record, mirroring
// the real repository: fn runs against the stored state and an error from
// it discards the cycle. Returns a counter of locked cycles entered.
func (suite *WorkflowServiceTestSuite) stubMutate(record *domain.ReimbursementRequest) *int {
	calls := new(int)
	suite.mockRequestRepo.MutateRequestFn = func(ctx context.Context, requestID string, fn func(*domain.ReimbursementRequest) error) (*domain.ReimbursementRequest, error) {
		*calls++
		if record == nil || record.ID != requestID {
			return nil, fmt.Errorf("%w: request %s", apperrors.ErrNotFound, requestID)
		}
		if err := fn(record); err != nil {
			return nil, err
		}
		return record, nil
	}
	return calls
}

func requestInStatus(id string, status domain.RequestStatus) *domain.ReimbursementRequest {
	now := time.Now().UTC().Add(-time.Hour)
	return &domain.ReimbursementRequest{
		ID:                    id,
		FolderKey:             "FAC-2024-001",
		Requester:             "marie",
		LastModifiedBy:        "marie",
		Name:                  "Dupont",
		Surname:               "Claire",
		InvoiceReference:      "FAC-2024-001",
		Description:           "double payment",
		Amount:                decimal.RequireFromString("150.50"),
		Status:                status,
		CreatedAt:             now,
		LastModifiedAt:        now,
		InvoicePaths:          []string{},
		BankAccountPaths:      []string{"FAC-2024-001/rib_v1"},
		OverpaymentProofPaths: []string{},
		History: []domain.HistoryEntry{
			{Status: status, Timestamp: now, Actor: "marie", Comment: "earlier"},
		},
	}
}

// --- CreateRequest ---

func (suite *WorkflowServiceTestSuite) TestCreateRequest_Success() {
	ctx := context.Background()
	suite.expectUser("marie", domain.RoleRequester)

	var saved domain.ReimbursementRequest
	suite.mockRequestRepo.On("SaveRequest", mock.Anything, mock.MatchedBy(func(r domain.ReimbursementRequest) bool {
		saved = r
		return true
	})).Return(nil).Once()
	suite.mockAttachments.On("WriteSummary", mock.Anything, mock.Anything).Return(nil).Once()

	req := dto.CreateRequestRequest{
		Name:             "Dupont",
		Surname:          "Claire",
		InvoiceReference: "FAC 2024/001",
		Amount:           "150.50",
		Description:      "double payment of invoice",
		BankProofPath:    "/tmp/rib.pdf",
	}
	created, err := suite.service.CreateRequest(ctx, req, "marie")

	suite.Require().NoError(err)
	suite.Require().NotNil(created)
	suite.Equal(domain.StatusCreated, created.Status)
	suite.Equal("FAC2024_001", created.FolderKey)
	suite.Empty(created.InvoicePaths)
	suite.Len(created.BankAccountPaths, 1)
	suite.Require().Len(created.History, 1)
	suite.Equal(created.Status, created.History[0].Status)
	suite.Equal("request created", created.History[0].Comment)
	suite.True(created.Amount.Equal(decimal.RequireFromString("150.50")))
	suite.Equal(created.ID, saved.ID)
	suite.mockRequestRepo.AssertExpectations(suite.T())
}

func (suite *WorkflowServiceTestSuite) TestCreateRequest_UnparseableAmount() {
	ctx := context.Background()
	suite.expectUser("marie", domain.RoleRequester)

	req := dto.CreateRequestRequest{
		Name:             "Dupont",
		Surname:          "Claire",
		InvoiceReference: "FAC-1",
		Amount:           "hundred",
		Description:      "d",
		BankProofPath:    "/tmp/rib.pdf",
	}
	_, err := suite.service.CreateRequest(ctx, req, "marie")

	suite.Require().Error(err)
	suite.ErrorIs(err, apperrors.ErrValidation)
	suite.mockRequestRepo.AssertNotCalled(suite.T(), "SaveRequest", mock.Anything, mock.Anything)
}

func (suite *WorkflowServiceTestSuite) TestCreateRequest_NonPositiveAmount() {
	ctx := context.Background()
	suite.expectUser("marie", domain.RoleRequester)

	req := dto.CreateRequestRequest{
		Name:             "Dupont",
		Surname:          "Claire",
		InvoiceReference: "FAC-1",
		Amount:           "-12",
		Description:      "d",
		BankProofPath:    "/tmp/rib.pdf",
	}
	_, err := suite.service.CreateRequest(ctx, req, "marie")

	suite.Require().Error(err)
	suite.ErrorIs(err, apperrors.ErrValidation)
}

func (suite *WorkflowServiceTestSuite) TestCreateRequest_MissingBankProof() {
	ctx := context.Background()
	suite.expectUser("marie", domain.RoleRequester)

	req := dto.CreateRequestRequest{
		Name:             "Dupont",
		Surname:          "Claire",
		InvoiceReference: "FAC-1",
		Amount:           "10",
		Description:      "d",
	}
	_, err := suite.service.CreateRequest(ctx, req, "marie")

	suite.Require().Error(err)
	suite.ErrorIs(err, apperrors.ErrValidation)
}

func (suite *WorkflowServiceTestSuite) TestCreateRequest_ForbiddenWithoutRole() {
	ctx := context.Background()
	suite.expectUser("jean", domain.RoleTreasury)

	req := dto.CreateRequestRequest{
		Name:             "Dupont",
		Surname:          "Claire",
		InvoiceReference: "FAC-1",
		Amount:           "10",
		Description:      "d",
		BankProofPath:    "/tmp/rib.pdf",
	}
	_, err := suite.service.CreateRequest(ctx, req, "jean")

	suite.Require().Error(err)
	suite.ErrorIs(err, apperrors.ErrForbidden)
}

func (suite *WorkflowServiceTestSuite) TestCreateRequest_EmptyReferenceFallsBackToIDKey() {
	ctx := context.Background()
	suite.expectUser("marie", domain.RoleRequester)
	suite.mockRequestRepo.On("SaveRequest", mock.Anything, mock.Anything).Return(nil).Once()
	suite.mockAttachments.On("WriteSummary", mock.Anything, mock.Anything).Return(nil).Once()

	req := dto.CreateRequestRequest{
		Name:             "Dupont",
		Surname:          "Claire",
		InvoiceReference: "€€€",
		Amount:           "10",
		Description:      "d",
		BankProofPath:    "/tmp/rib.pdf",
	}
	created, err := suite.service.CreateRequest(ctx, req, "marie")

	suite.Require().NoError(err)
	suite.Equal("req_"+created.ID, created.FolderKey)
}

// --- AcceptOverpayment ---

func (suite *WorkflowServiceTestSuite) TestAcceptOverpayment_Success() {
	ctx := context.Background()
	suite.expectUser("jean", domain.RoleTreasury)
	record := requestInStatus("r1", domain.StatusCreated)
	calls := suite.stubMutate(record)

	result, err := suite.service.AcceptOverpayment(ctx, "r1", dto.AcceptOverpaymentRequest{
		ProofPath: "/tmp/constat.pdf",
		Comment:   "client overcharged by 150.50",
	}, "jean")

	suite.Require().NoError(err)
	suite.Equal(1, *calls)
	suite.Equal(domain.StatusOverpaidConfirmed, result.Status)
	suite.Len(result.OverpaymentProofPaths, 1)
	suite.Equal(result.Status, result.History[len(result.History)-1].Status)
	suite.Equal("jean", result.History[len(result.History)-1].Actor)
}

func (suite *WorkflowServiceTestSuite) TestAcceptOverpayment_WrongStatusNamesExpected() {
	ctx := context.Background()
	suite.expectUser("jean", domain.RoleTreasury)
	record := requestInStatus("r1", domain.StatusValidated)
	suite.stubMutate(record)

	_, err := suite.service.AcceptOverpayment(ctx, "r1", dto.AcceptOverpaymentRequest{
		ProofPath: "/tmp/constat.pdf",
		Comment:   "late constat",
	}, "jean")

	suite.Require().Error(err)
	suite.ErrorIs(err, apperrors.ErrInvalidState)
	suite.Contains(err.Error(), string(domain.StatusCreated))
	// The precondition failed inside the locked cycle before any mutation.
	suite.Equal(domain.StatusValidated, record.Status)
	suite.Len(record.History, 1)
	suite.Empty(record.OverpaymentProofPaths)
}

func (suite *WorkflowServiceTestSuite) TestAcceptOverpayment_MissingProof() {
	ctx := context.Background()
	suite.expectUser("jean", domain.RoleTreasury)
	calls := suite.stubMutate(requestInStatus("r1", domain.StatusCreated))

	_, err := suite.service.AcceptOverpayment(ctx, "r1", dto.AcceptOverpaymentRequest{Comment: "c"}, "jean")

	suite.Require().Error(err)
	suite.ErrorIs(err, apperrors.ErrValidation)
	suite.Equal(0, *calls)
}

// --- RejectOverpayment ---

func (suite *WorkflowServiceTestSuite) TestRejectOverpayment_BlankCommentFailsBeforeLoad() {
	ctx := context.Background()
	suite.expectUser("jean", domain.RoleTreasury)
	calls := suite.stubMutate(requestInStatus("r1", domain.StatusCreated))

	_, err := suite.service.RejectOverpayment(ctx, "r1", "   ", "jean")

	suite.Require().Error(err)
	suite.ErrorIs(err, apperrors.ErrValidation)
	suite.Equal(0, *calls)
}

func (suite *WorkflowServiceTestSuite) TestRejectOverpayment_Success() {
	ctx := context.Background()
	suite.expectUser("jean", domain.RoleTreasury)
	record := requestInStatus("r1", domain.StatusCreated)
	suite.stubMutate(record)

	result, err := suite.service.RejectOverpayment(ctx, "r1", "missing proof of debit", "jean")

	suite.Require().NoError(err)
	suite.Equal(domain.StatusCreationRejected, result.Status)
	suite.Equal("missing proof of debit", result.History[len(result.History)-1].Comment)
}

// --- Validate / RejectValidation ---

func (suite *WorkflowServiceTestSuite) TestValidateRequest_BlankCommentGetsDefault() {
	ctx := context.Background()
	suite.expectUser("sofia", domain.RoleValidator)
	record := requestInStatus("r1", domain.StatusOverpaidConfirmed)
	suite.stubMutate(record)

	result, err := suite.service.ValidateRequest(ctx, "r1", "", "sofia")

	suite.Require().NoError(err)
	suite.Equal(domain.StatusValidated, result.Status)
	suite.Equal("validated by validator", result.History[len(result.History)-1].Comment)
}

func (suite *WorkflowServiceTestSuite) TestRejectValidation_RequiresComment() {
	ctx := context.Background()
	suite.expectUser("sofia", domain.RoleValidator)

	_, err := suite.service.RejectValidation(ctx, "r1", "", "sofia")

	suite.Require().Error(err)
	suite.ErrorIs(err, apperrors.ErrValidation)
}

// --- ConfirmPayment ---

func (suite *WorkflowServiceTestSuite) TestConfirmPayment_SetsPaidAt() {
	ctx := context.Background()
	suite.expectUser("paul", domain.RoleSupplier)
	record := requestInStatus("r1", domain.StatusValidated)
	suite.stubMutate(record)

	result, err := suite.service.ConfirmPayment(ctx, "r1", "", "paul")

	suite.Require().NoError(err)
	suite.Equal(domain.StatusPaid, result.Status)
	suite.Require().NotNil(result.PaidAt)
	suite.Equal(result.LastModifiedAt, *result.PaidAt)
	suite.Equal("payment confirmed", result.History[len(result.History)-1].Comment)
}

// --- Cancel on terminal status ---

func (suite *WorkflowServiceTestSuite) TestCancelRequest_AlreadyCancelled() {
	ctx := context.Background()
	suite.expectUser("marie", domain.RoleRequester)
	record := requestInStatus("r1", domain.StatusCancelled)
	suite.stubMutate(record)

	_, err := suite.service.CancelRequest(ctx, "r1", "abandon", "marie")

	suite.Require().Error(err)
	suite.ErrorIs(err, apperrors.ErrInvalidState)
	suite.Equal(domain.StatusCancelled, record.Status)
	suite.Len(record.History, 1)
}

// --- Resubmissions ---

func (suite *WorkflowServiceTestSuite) TestResubmitAfterCreationReject_RequiresSomething() {
	ctx := context.Background()
	suite.expectUser("marie", domain.RoleRequester)

	_, err := suite.service.ResubmitAfterCreationReject(ctx, "r1", dto.ResubmitCreationRequest{}, "marie")

	suite.Require().Error(err)
	suite.ErrorIs(err, apperrors.ErrValidation)
}

func (suite *WorkflowServiceTestSuite) TestResubmitAfterCreationReject_AppendsNewVersion() {
	ctx := context.Background()
	suite.expectUser("marie", domain.RoleRequester)
	record := requestInStatus("r1", domain.StatusCreationRejected)
	suite.stubMutate(record)

	result, err := suite.service.ResubmitAfterCreationReject(ctx, "r1", dto.ResubmitCreationRequest{
		BankProofPath: "/tmp/rib2.pdf",
	}, "marie")

	suite.Require().NoError(err)
	suite.Equal(domain.StatusCreated, result.Status)
	// The list only grew: v2 joined v1.
	suite.Len(result.BankAccountPaths, 2)
	suite.Contains(result.BankAccountPaths[1], "rib_v2")
	suite.Equal("resubmitted after creation rejection", result.History[len(result.History)-1].Comment)
}

func (suite *WorkflowServiceTestSuite) TestResubmitAfterValidationReject_CommentOnly() {
	ctx := context.Background()
	suite.expectUser("jean", domain.RoleTreasury)
	record := requestInStatus("r1", domain.StatusValidationRejected)
	suite.stubMutate(record)

	result, err := suite.service.ResubmitAfterValidationReject(ctx, "r1", dto.ResubmitValidationRequest{
		Comment: "constat stands, see earlier proof",
	}, "jean")

	suite.Require().NoError(err)
	suite.Equal(domain.StatusOverpaidConfirmed, result.Status)
	suite.Empty(result.OverpaymentProofPaths)
}

// --- DeleteRequest ---

func (suite *WorkflowServiceTestSuite) TestDeleteRequest_RemovesRecordAndDirectory() {
	ctx := context.Background()
	suite.expectUser("root", domain.RoleAdmin)
	record := requestInStatus("r1", domain.StatusCancelled)
	suite.mockRequestRepo.On("FindRequestByID", mock.Anything, "r1").Return(record, nil).Once()
	suite.mockRequestRepo.On("DeleteRequest", mock.Anything, "r1").Return(nil).Once()
	suite.mockAttachments.On("RemoveRequestDir", mock.Anything, "FAC-2024-001").Return(nil).Once()

	err := suite.service.DeleteRequest(ctx, "r1", "root")

	suite.Require().NoError(err)
	suite.mockRequestRepo.AssertExpectations(suite.T())
	suite.mockAttachments.AssertExpectations(suite.T())
}

func (suite *WorkflowServiceTestSuite) TestDeleteRequest_NotFoundTouchesNothing() {
	ctx := context.Background()
	suite.expectUser("root", domain.RoleAdmin)
	suite.mockRequestRepo.On("FindRequestByID", mock.Anything, "ghost").Return(nil, apperrors.ErrNotFound).Once()

	err := suite.service.DeleteRequest(ctx, "ghost", "root")

	suite.Require().Error(err)
	suite.ErrorIs(err, apperrors.ErrNotFound)
	suite.mockRequestRepo.AssertNotCalled(suite.T(), "DeleteRequest", mock.Anything, mock.Anything)
	suite.mockAttachments.AssertNotCalled(suite.T(), "RemoveRequestDir", mock.Anything, mock.Anything)
}

func (suite *WorkflowServiceTestSuite) TestDeleteRequest_DirectoryFailureIsOnlyAWarning() {
	ctx := context.Background()
	suite.expectUser("root", domain.RoleAdmin)
	record := requestInStatus("r1", domain.StatusCancelled)
	suite.mockRequestRepo.On("FindRequestByID", mock.Anything, "r1").Return(record, nil).Once()
	suite.mockRequestRepo.On("DeleteRequest", mock.Anything, "r1").Return(nil).Once()
	suite.mockAttachments.On("RemoveRequestDir", mock.Anything, "FAC-2024-001").Return(assert.AnError).Once()

	err := suite.service.DeleteRequest(ctx, "r1", "root")

	suite.Require().NoError(err)
}

func (suite *WorkflowServiceTestSuite) TestDeleteRequest_ForbiddenForNonAdmin() {
	ctx := context.Background()
	suite.expectUser("marie", domain.RoleRequester)

	err := suite.service.DeleteRequest(ctx, "r1", "marie")

	suite.Require().Error(err)
	suite.ErrorIs(err, apperrors.ErrForbidden)
}

func TestWorkflowServiceTestSuite(t *testing.T) {
	suite.Run(t, new(WorkflowServiceTestSuite))
}
