package requests

import (
	"testing"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"

	"github.com/ValueKare/fixed-asset-management-system-backend-sub000/internal/approval"
	"github.com/ValueKare/fixed-asset-management-system-backend-sub000/internal/notifications"
	"github.com/ValueKare/fixed-asset-management-system-backend-sub000/internal/reservation"
	"github.com/ValueKare/fixed-asset-management-system-backend-sub000/pkg/auditlog"
	custom_error "github.com/ValueKare/fixed-asset-management-system-backend-sub000/pkg/errors"
	"github.com/ValueKare/fixed-asset-management-system-backend-sub000/pkg/metadata"
	"github.com/ValueKare/fixed-asset-management-system-backend-sub000/pkg/models"
	"github.com/ValueKare/fixed-asset-management-system-backend-sub000/pkg/roles"
)

type stubTxRunner struct{}

func (stubTxRunner) WithTransaction(fn func(tx *goqu.TxDatabase) error) error {
	return fn(nil)
}

type MockRequestRepository struct {
	mock.Mock
}

func (m *MockRequestRepository) InsertRequest(tx *goqu.TxDatabase, request *models.Request) error {
	args := m.Called(tx, request)
	return args.Error(0)
}

func (m *MockRequestRepository) GetRequest(id uuid.UUID) (*models.Request, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Request), args.Error(1)
}

func (m *MockRequestRepository) UpsertApprovalStep(tx *goqu.TxDatabase, requestID uuid.UUID, stage metadata.Stage, step models.ApprovalStep) error {
	args := m.Called(tx, requestID, stage, step)
	return args.Error(0)
}

func (m *MockRequestRepository) ConditionalAdvance(tx *goqu.TxDatabase, requestID uuid.UUID, expectedLevel metadata.Stage, newLevel metadata.Stage, finalStatus metadata.FinalStatus, actionAt time.Time) (bool, error) {
	args := m.Called(tx, requestID, expectedLevel, newLevel, finalStatus, actionAt)
	return args.Bool(0), args.Error(1)
}

func (m *MockRequestRepository) IncrementFulfilledCount(tx *goqu.TxDatabase, requestID uuid.UUID, by int) error {
	args := m.Called(tx, requestID, by)
	return args.Error(0)
}

func (m *MockRequestRepository) InsertFulfilledAssets(tx *goqu.TxDatabase, requestID uuid.UUID, fulfilled []models.FulfilledAsset) error {
	args := m.Called(tx, requestID, fulfilled)
	return args.Error(0)
}

func (m *MockRequestRepository) InsertRejectedAssets(tx *goqu.TxDatabase, requestID uuid.UUID, rejected []models.RejectedAsset) error {
	args := m.Called(tx, requestID, rejected)
	return args.Error(0)
}

func (m *MockRequestRepository) ListPendingForStage(stage metadata.Stage, organizationID int) (*[]models.Request, error) {
	args := m.Called(stage, organizationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*[]models.Request), args.Error(1)
}

func (m *MockRequestRepository) ListEscalatable(stages []metadata.Stage) (*[]models.Request, error) {
	args := m.Called(stages)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*[]models.Request), args.Error(1)
}

type MockCoordinator struct {
	mock.Mock
}

func (m *MockCoordinator) Reserve(requestID uuid.UUID, departmentID int, assetIDs []int) error {
	args := m.Called(requestID, departmentID, assetIDs)
	return args.Error(0)
}

func (m *MockCoordinator) ReserveTx(tx *goqu.TxDatabase, requestID uuid.UUID, departmentID int, assetIDs []int) error {
	args := m.Called(tx, requestID, departmentID, assetIDs)
	return args.Error(0)
}

func (m *MockCoordinator) ReleaseTx(tx *goqu.TxDatabase, requestID uuid.UUID) (int, error) {
	args := m.Called(tx, requestID)
	return args.Int(0), args.Error(1)
}

func (m *MockCoordinator) Fulfill(request *models.Request, actor models.Actor, assetIDs []int) (*reservation.FulfillResult, error) {
	args := m.Called(request, actor, assetIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*reservation.FulfillResult), args.Error(1)
}

func (m *MockCoordinator) RejectAssets(request *models.Request, actor models.Actor, assetIDs []int, remarks string) (*reservation.RejectResult, error) {
	args := m.Called(request, actor, assetIDs, remarks)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*reservation.RejectResult), args.Error(1)
}

type recordedAudit struct {
	action string
	data   interface{}
}

type recordingAuditSink struct {
	entries []recordedAudit
}

func (s *recordingAuditSink) Log(action string, data interface{}, item auditlog.Auditable) {
	s.entries = append(s.entries, recordedAudit{action: action, data: data})
}

func newTestService(repo *MockRequestRepository, coordinator *MockCoordinator) *RequestService {
	service, _ := newTestServiceWithAudit(repo, coordinator)
	return service
}

func newTestServiceWithAudit(repo *MockRequestRepository, coordinator *MockCoordinator) (*RequestService, *recordingAuditSink) {
	engine := approval.NewEngine(approval.CanonicalChain(), approval.DefaultRoleResolver())
	audit := &recordingAuditSink{}
	service := NewRequestService(
		stubTxRunner{}, repo, engine, coordinator,
		notifications.NoopNotifier{}, audit, zap.NewNop(),
		EscalationDefaults{Enabled: true, AfterHours: 24},
	)
	return service, audit
}

func validCountPayload() models.CreateRequestPayload {
	return models.CreateRequestPayload{
		RequestType:    "procurement",
		RequestedCount: 3,
		DepartmentID:   7,
		HospitalID:     1,
		OrganizationID: 1,
		Justification:  "ward expansion",
	}
}

func requesterActor() models.Actor {
	return models.Actor{UserID: 9, Role: roles.Staff, DepartmentID: 7, HospitalID: 1, OrganizationID: 1}
}

func openRequest(id uuid.UUID) *models.Request {
	return &models.Request{
		ID:           id,
		RequestType:  metadata.RequestProcurement,
		CurrentLevel: metadata.StageLevel1,
		FinalStatus:  metadata.FinalPending,
		Scope:        models.Scope{Level: models.ScopeDepartment, DepartmentID: 7, HospitalID: 1, OrganizationID: 1},
		Fulfillment:  models.Fulfillment{RequestedCount: 3},
		ApprovalFlow: map[metadata.Stage]*models.ApprovalStep{
			metadata.StageLevel1: {Status: metadata.StagePending},
			metadata.StageHOD:    {Status: metadata.StagePending},
			metadata.StageCFO:    {Status: metadata.StagePending},
		},
	}
}

func TestCreateRequestCountMode(t *testing.T) {
	repo := new(MockRequestRepository)
	coordinator := new(MockCoordinator)
	repo.On("InsertRequest", mock.Anything, mock.Anything).Return(nil)

	service := newTestService(repo, coordinator)
	request, err := service.CreateRequest(requesterActor(), validCountPayload())

	assert.NoError(t, err)
	assert.Equal(t, metadata.StageLevel1, request.CurrentLevel)
	assert.Equal(t, metadata.FinalPending, request.FinalStatus)
	assert.Equal(t, 3, request.Fulfillment.RequestedCount)
	assert.Len(t, request.ApprovalFlow, 3)
	assert.True(t, request.Escalation.Enabled)
	coordinator.AssertNotCalled(t, "ReserveTx", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestCreateRequestAssetModeReservesAtomically(t *testing.T) {
	repo := new(MockRequestRepository)
	coordinator := new(MockCoordinator)

	payload := validCountPayload()
	payload.RequestType = "asset_transfer"
	payload.RequestedCount = 0
	payload.RequestedAssets = []int{10, 11}

	repo.On("InsertRequest", mock.Anything, mock.Anything).Return(nil)
	coordinator.On("ReserveTx", mock.Anything, mock.Anything, 7, []int{10, 11}).Return(nil)

	service := newTestService(repo, coordinator)
	request, err := service.CreateRequest(requesterActor(), payload)

	assert.NoError(t, err)
	assert.True(t, request.AssetMode())
	// Transfers carry a single-stage flow.
	assert.Len(t, request.ApprovalFlow, 1)
	coordinator.AssertExpectations(t)
}

func TestCreateRequestFailedReservationAbortsCreation(t *testing.T) {
	repo := new(MockRequestRepository)
	coordinator := new(MockCoordinator)

	payload := validCountPayload()
	payload.RequestedCount = 0
	payload.RequestedAssets = []int{10}

	repo.On("InsertRequest", mock.Anything, mock.Anything).Return(nil)
	coordinator.On("ReserveTx", mock.Anything, mock.Anything, 7, []int{10}).
		Return(custom_error.NewAssetConflictError("asset 10 is not reservable; no assets were reserved"))

	service := newTestService(repo, coordinator)
	_, err := service.CreateRequest(requesterActor(), payload)

	assert.True(t, custom_error.IsKind(err, custom_error.KindAssetConflict))
}

func TestCreateRequestModeExclusivity(t *testing.T) {
	service := newTestService(new(MockRequestRepository), new(MockCoordinator))

	both := validCountPayload()
	both.RequestedAssets = []int{10}
	_, err := service.CreateRequest(requesterActor(), both)
	assert.True(t, custom_error.IsKind(err, custom_error.KindValidation))

	neither := validCountPayload()
	neither.RequestedCount = 0
	_, err = service.CreateRequest(requesterActor(), neither)
	assert.True(t, custom_error.IsKind(err, custom_error.KindValidation))
}

func TestCreateRequestRejectsUnknownType(t *testing.T) {
	service := newTestService(new(MockRequestRepository), new(MockCoordinator))

	payload := validCountPayload()
	payload.RequestType = "loan"
	_, err := service.CreateRequest(requesterActor(), payload)

	assert.True(t, custom_error.IsKind(err, custom_error.KindValidation))
}

func TestApproveRequestAdvancesStage(t *testing.T) {
	repo := new(MockRequestRepository)
	requestID := uuid.New()
	request := openRequest(requestID)
	approver := models.Actor{UserID: 3, Role: roles.Supervisor, DepartmentID: 7, HospitalID: 1, OrganizationID: 1}

	advanced := openRequest(requestID)
	advanced.CurrentLevel = metadata.StageHOD

	repo.On("GetRequest", requestID).Return(request, nil).Once()
	repo.On("UpsertApprovalStep", mock.Anything, requestID, metadata.StageLevel1,
		mock.MatchedBy(func(step models.ApprovalStep) bool {
			return step.Status == metadata.StageApproved && *step.ApprovedBy == 3
		})).Return(nil)
	repo.On("ConditionalAdvance", mock.Anything, requestID, metadata.StageLevel1,
		metadata.StageHOD, metadata.FinalPending, mock.Anything).Return(true, nil)
	repo.On("GetRequest", requestID).Return(advanced, nil).Once()

	service := newTestService(repo, new(MockCoordinator))
	updated, err := service.ApproveRequest(requestID, approver, "ok")

	assert.NoError(t, err)
	assert.Equal(t, metadata.StageHOD, updated.CurrentLevel)
	repo.AssertExpectations(t)
}

func TestApproveRequestLostRaceIsConflict(t *testing.T) {
	repo := new(MockRequestRepository)
	requestID := uuid.New()
	request := openRequest(requestID)
	approver := models.Actor{UserID: 3, Role: roles.Supervisor, DepartmentID: 7, HospitalID: 1, OrganizationID: 1}

	repo.On("GetRequest", requestID).Return(request, nil)
	repo.On("UpsertApprovalStep", mock.Anything, requestID, metadata.StageLevel1, mock.Anything).Return(nil)
	repo.On("ConditionalAdvance", mock.Anything, requestID, metadata.StageLevel1,
		metadata.StageHOD, metadata.FinalPending, mock.Anything).Return(false, nil)

	service := newTestService(repo, new(MockCoordinator))
	_, err := service.ApproveRequest(requestID, approver, "ok")

	assert.True(t, custom_error.IsKind(err, custom_error.KindConcurrentConflict))
}

func TestRejectRequestReleasesReservedAssets(t *testing.T) {
	repo := new(MockRequestRepository)
	coordinator := new(MockCoordinator)
	requestID := uuid.New()
	request := openRequest(requestID)
	approver := models.Actor{UserID: 3, Role: roles.Supervisor, DepartmentID: 7, HospitalID: 1, OrganizationID: 1}

	closed := openRequest(requestID)
	closed.CurrentLevel = metadata.StageRejected
	closed.FinalStatus = metadata.FinalRejected

	repo.On("GetRequest", requestID).Return(request, nil).Once()
	repo.On("UpsertApprovalStep", mock.Anything, requestID, metadata.StageLevel1,
		mock.MatchedBy(func(step models.ApprovalStep) bool {
			return step.Status == metadata.StageStepRejected
		})).Return(nil)
	repo.On("ConditionalAdvance", mock.Anything, requestID, metadata.StageLevel1,
		metadata.StageRejected, metadata.FinalRejected, mock.Anything).Return(true, nil)
	coordinator.On("ReleaseTx", mock.Anything, requestID).Return(2, nil)
	repo.On("GetRequest", requestID).Return(closed, nil).Once()

	service := newTestService(repo, coordinator)
	updated, err := service.RejectRequest(requestID, approver, "no budget")

	assert.NoError(t, err)
	assert.Equal(t, metadata.FinalRejected, updated.FinalStatus)
	coordinator.AssertExpectations(t)
}

func TestRejectRequestCrossHospitalDenied(t *testing.T) {
	repo := new(MockRequestRepository)
	requestID := uuid.New()
	repo.On("GetRequest", requestID).Return(openRequest(requestID), nil)

	outsider := models.Actor{UserID: 3, Role: roles.Supervisor, DepartmentID: 2, HospitalID: 9, OrganizationID: 1}

	service := newTestService(repo, new(MockCoordinator))
	_, err := service.RejectRequest(requestID, outsider, "not ours")

	assert.True(t, custom_error.IsKind(err, custom_error.KindCrossHospitalDeny))
}

func TestFulfillRequestOnClosedRequest(t *testing.T) {
	repo := new(MockRequestRepository)
	requestID := uuid.New()
	request := openRequest(requestID)
	request.CurrentLevel = metadata.StageCompleted
	request.FinalStatus = metadata.FinalApproved
	repo.On("GetRequest", requestID).Return(request, nil)

	service := newTestService(repo, new(MockCoordinator))
	_, err := service.FulfillRequest(requestID, requesterActor(), []int{10})

	assert.True(t, custom_error.IsKind(err, custom_error.KindAlreadyClosed))
}

func TestEscalateRequestNoopForFinalStage(t *testing.T) {
	repo := new(MockRequestRepository)
	requestID := uuid.New()
	request := openRequest(requestID)
	request.CurrentLevel = metadata.StageCFO
	repo.On("GetRequest", requestID).Return(request, nil)

	service := newTestService(repo, new(MockCoordinator))
	applied, err := service.EscalateRequest(requestID)

	assert.NoError(t, err)
	assert.False(t, applied)
	repo.AssertNotCalled(t, "ConditionalAdvance",
		mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestEscalateRequestSkipsStalledStage(t *testing.T) {
	repo := new(MockRequestRepository)
	requestID := uuid.New()
	request := openRequest(requestID)

	escalated := openRequest(requestID)
	escalated.CurrentLevel = metadata.StageHOD

	repo.On("GetRequest", requestID).Return(request, nil).Once()
	repo.On("UpsertApprovalStep", mock.Anything, requestID, metadata.StageLevel1,
		mock.MatchedBy(func(step models.ApprovalStep) bool {
			return step.Status == metadata.StageSkipped
		})).Return(nil)
	repo.On("ConditionalAdvance", mock.Anything, requestID, metadata.StageLevel1,
		metadata.StageHOD, metadata.FinalPending, mock.Anything).Return(true, nil)
	repo.On("GetRequest", requestID).Return(escalated, nil).Once()

	service := newTestService(repo, new(MockCoordinator))
	applied, err := service.EscalateRequest(requestID)

	assert.NoError(t, err)
	assert.True(t, applied)
	repo.AssertExpectations(t)
}

func TestEscalateRequestWritesAuditEntry(t *testing.T) {
	repo := new(MockRequestRepository)
	requestID := uuid.New()
	request := openRequest(requestID)

	escalated := openRequest(requestID)
	escalated.CurrentLevel = metadata.StageHOD

	repo.On("GetRequest", requestID).Return(request, nil).Once()
	repo.On("UpsertApprovalStep", mock.Anything, requestID, metadata.StageLevel1, mock.Anything).Return(nil)
	repo.On("ConditionalAdvance", mock.Anything, requestID, metadata.StageLevel1,
		metadata.StageHOD, metadata.FinalPending, mock.Anything).Return(true, nil)
	repo.On("GetRequest", requestID).Return(escalated, nil).Once()

	service, audit := newTestServiceWithAudit(repo, new(MockCoordinator))
	applied, err := service.EscalateRequest(requestID)

	assert.NoError(t, err)
	assert.True(t, applied)
	assert.Len(t, audit.entries, 1)
	assert.Equal(t, "request_escalated", audit.entries[0].action)
}

func TestEscalateRequestNoopLeavesNoAuditEntry(t *testing.T) {
	repo := new(MockRequestRepository)
	requestID := uuid.New()
	request := openRequest(requestID)
	request.CurrentLevel = metadata.StageCFO
	repo.On("GetRequest", requestID).Return(request, nil)

	service, audit := newTestServiceWithAudit(repo, new(MockCoordinator))
	applied, err := service.EscalateRequest(requestID)

	assert.NoError(t, err)
	assert.False(t, applied)
	assert.Empty(t, audit.entries)
}

func TestListPendingForActorUnmappedRole(t *testing.T) {
	repo := new(MockRequestRepository)

	service := newTestService(repo, new(MockCoordinator))
	pending, err := service.ListPendingForActor(models.Actor{UserID: 9, Role: roles.Viewer, OrganizationID: 1})

	assert.NoError(t, err)
	assert.Empty(t, *pending)
	repo.AssertNotCalled(t, "ListPendingForStage", mock.Anything, mock.Anything)
}

func TestListPendingForActorQueriesStage(t *testing.T) {
	repo := new(MockRequestRepository)
	pending := []models.Request{*openRequest(uuid.New())}
	repo.On("ListPendingForStage", metadata.StageHOD, 1).Return(&pending, nil)

	service := newTestService(repo, new(MockCoordinator))
	result, err := service.ListPendingForActor(models.Actor{UserID: 4, Role: roles.HOD, OrganizationID: 1})

	assert.NoError(t, err)
	assert.Len(t, *result, 1)
}
