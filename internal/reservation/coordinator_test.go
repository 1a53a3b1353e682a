package reservation

import (
	"testing"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"

	custom_error "github.com/ValueKare/fixed-asset-management-system-backend-sub000/pkg/errors"
	"github.com/ValueKare/fixed-asset-management-system-backend-sub000/pkg/metadata"
	"github.com/ValueKare/fixed-asset-management-system-backend-sub000/pkg/models"
)

type stubTxRunner struct{}

func (stubTxRunner) WithTransaction(fn func(tx *goqu.TxDatabase) error) error {
	return fn(nil)
}

type MockAssetStore struct {
	mock.Mock
}

func (m *MockAssetStore) GetAssetsByIDs(tx *goqu.TxDatabase, ids []int) ([]models.Asset, error) {
	args := m.Called(tx, ids)
	return args.Get(0).([]models.Asset), args.Error(1)
}

func (m *MockAssetStore) ConditionalReserve(tx *goqu.TxDatabase, assetID int, requestID uuid.UUID, departmentID int, now time.Time) (bool, error) {
	args := m.Called(tx, assetID, requestID, departmentID, now)
	return args.Bool(0), args.Error(1)
}

func (m *MockAssetStore) ConditionalRelease(tx *goqu.TxDatabase, assetID int, requestID uuid.UUID) (bool, error) {
	args := m.Called(tx, assetID, requestID)
	return args.Bool(0), args.Error(1)
}

func (m *MockAssetStore) ConditionalFulfill(tx *goqu.TxDatabase, assetID int, requestID uuid.UUID, toDepartmentID int) (bool, error) {
	args := m.Called(tx, assetID, requestID, toDepartmentID)
	return args.Bool(0), args.Error(1)
}

func (m *MockAssetStore) ReleaseByRequest(tx *goqu.TxDatabase, requestID uuid.UUID) (int, error) {
	args := m.Called(tx, requestID)
	return args.Int(0), args.Error(1)
}

type MockRequestStore struct {
	mock.Mock
}

func (m *MockRequestStore) UpsertApprovalStep(tx *goqu.TxDatabase, requestID uuid.UUID, stage metadata.Stage, step models.ApprovalStep) error {
	args := m.Called(tx, requestID, stage, step)
	return args.Error(0)
}

func (m *MockRequestStore) ConditionalAdvance(tx *goqu.TxDatabase, requestID uuid.UUID, expectedLevel metadata.Stage, newLevel metadata.Stage, finalStatus metadata.FinalStatus, actionAt time.Time) (bool, error) {
	args := m.Called(tx, requestID, expectedLevel, newLevel, finalStatus, actionAt)
	return args.Bool(0), args.Error(1)
}

func (m *MockRequestStore) IncrementFulfilledCount(tx *goqu.TxDatabase, requestID uuid.UUID, by int) error {
	args := m.Called(tx, requestID, by)
	return args.Error(0)
}

func (m *MockRequestStore) InsertFulfilledAssets(tx *goqu.TxDatabase, requestID uuid.UUID, fulfilled []models.FulfilledAsset) error {
	args := m.Called(tx, requestID, fulfilled)
	return args.Error(0)
}

func (m *MockRequestStore) InsertRejectedAssets(tx *goqu.TxDatabase, requestID uuid.UUID, rejected []models.RejectedAsset) error {
	args := m.Called(tx, requestID, rejected)
	return args.Error(0)
}

func newTestCoordinator(assets *MockAssetStore, requests *MockRequestStore) *Coordinator {
	return NewCoordinator(stubTxRunner{}, assets, requests, zap.NewNop())
}

func reservedAsset(id int, requestID uuid.UUID, departmentID int) models.Asset {
	now := time.Now()
	return models.Asset{
		ID:                id,
		Status:            metadata.AssetActive,
		LifecycleStatus:   metadata.LifecycleActive,
		UtilizationStatus: metadata.UtilizationNotInUse,
		CurrentDepartment: models.Department{ID: departmentID},
		Reservation: models.Reservation{
			IsReserved:             true,
			RequestID:              &requestID,
			ReservedByDepartmentID: &departmentID,
			ReservedAt:             &now,
		},
	}
}

func countModeRequest(requestID uuid.UUID, requested, fulfilled int) *models.Request {
	return &models.Request{
		ID:           requestID,
		RequestType:  metadata.RequestProcurement,
		CurrentLevel: metadata.StageCFO,
		FinalStatus:  metadata.FinalPending,
		Scope:        models.Scope{Level: models.ScopeDepartment, DepartmentID: 7, HospitalID: 1, OrganizationID: 1},
		Fulfillment:  models.Fulfillment{RequestedCount: requested, FulfilledCount: fulfilled},
	}
}

func TestReserveClaimsEveryAsset(t *testing.T) {
	assets := new(MockAssetStore)
	requests := new(MockRequestStore)
	requestID := uuid.New()

	for _, id := range []int{1, 2, 3} {
		assets.On("ConditionalReserve", mock.Anything, id, requestID, 7, mock.Anything).Return(true, nil)
	}

	coordinator := newTestCoordinator(assets, requests)
	err := coordinator.Reserve(requestID, 7, []int{1, 2, 3})

	assert.NoError(t, err)
	assets.AssertExpectations(t)
}

func TestReserveAbortsWholeBatchOnConflict(t *testing.T) {
	assets := new(MockAssetStore)
	requests := new(MockRequestStore)
	requestID := uuid.New()

	assets.On("ConditionalReserve", mock.Anything, 1, requestID, 7, mock.Anything).Return(true, nil)
	assets.On("ConditionalReserve", mock.Anything, 2, requestID, 7, mock.Anything).Return(false, nil)

	coordinator := newTestCoordinator(assets, requests)
	err := coordinator.Reserve(requestID, 7, []int{1, 2, 3})

	assert.Error(t, err)
	assert.True(t, custom_error.IsKind(err, custom_error.KindAssetConflict))
	assets.AssertNotCalled(t, "ConditionalReserve", mock.Anything, 3, requestID, 7, mock.Anything)
}

func TestReserveEmptySetIsInvalid(t *testing.T) {
	coordinator := newTestCoordinator(new(MockAssetStore), new(MockRequestStore))

	err := coordinator.Reserve(uuid.New(), 7, nil)

	assert.True(t, custom_error.IsKind(err, custom_error.KindValidation))
}

func TestReleaseIsIdempotent(t *testing.T) {
	assets := new(MockAssetStore)
	requestID := uuid.New()

	assets.On("ReleaseByRequest", mock.Anything, requestID).Return(2, nil).Once()
	assets.On("ReleaseByRequest", mock.Anything, requestID).Return(0, nil).Once()

	coordinator := newTestCoordinator(assets, new(MockRequestStore))

	released, err := coordinator.Release(requestID)
	assert.NoError(t, err)
	assert.Equal(t, 2, released)

	released, err = coordinator.Release(requestID)
	assert.NoError(t, err)
	assert.Equal(t, 0, released)
}

func TestFulfillBelowTargetStaysOpen(t *testing.T) {
	assets := new(MockAssetStore)
	requests := new(MockRequestStore)
	requestID := uuid.New()
	request := countModeRequest(requestID, 3, 0)
	actor := models.Actor{UserID: 42}

	assets.On("GetAssetsByIDs", mock.Anything, []int{10}).
		Return([]models.Asset{reservedAsset(10, requestID, 3)}, nil)
	assets.On("ConditionalFulfill", mock.Anything, 10, requestID, 7).Return(true, nil)
	requests.On("InsertFulfilledAssets", mock.Anything, requestID, mock.Anything).Return(nil)
	requests.On("IncrementFulfilledCount", mock.Anything, requestID, 1).Return(nil)

	coordinator := newTestCoordinator(assets, requests)
	result, err := coordinator.Fulfill(request, actor, []int{10})

	assert.NoError(t, err)
	assert.Equal(t, 1, result.FulfilledNow)
	assert.Equal(t, 1, result.FulfilledTotal)
	assert.False(t, result.Completed)
	requests.AssertNotCalled(t, "ConditionalAdvance",
		mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestFulfillReachingTargetClosesRequest(t *testing.T) {
	assets := new(MockAssetStore)
	requests := new(MockRequestStore)
	requestID := uuid.New()
	request := countModeRequest(requestID, 2, 1)
	actor := models.Actor{UserID: 42}

	assets.On("GetAssetsByIDs", mock.Anything, []int{10}).
		Return([]models.Asset{reservedAsset(10, requestID, 3)}, nil)
	assets.On("ConditionalFulfill", mock.Anything, 10, requestID, 7).Return(true, nil)
	requests.On("InsertFulfilledAssets", mock.Anything, requestID, mock.Anything).Return(nil)
	requests.On("IncrementFulfilledCount", mock.Anything, requestID, 1).Return(nil)
	requests.On("UpsertApprovalStep", mock.Anything, requestID, metadata.StageCFO,
		mock.MatchedBy(func(step models.ApprovalStep) bool {
			return step.Status == metadata.StageApproved && step.Remarks == "Assets fulfilled and transferred"
		})).Return(nil)
	requests.On("ConditionalAdvance", mock.Anything, requestID, metadata.StageCFO,
		metadata.StageCompleted, metadata.FinalApproved, mock.Anything).Return(true, nil)

	coordinator := newTestCoordinator(assets, requests)
	result, err := coordinator.Fulfill(request, actor, []int{10})

	assert.NoError(t, err)
	assert.Equal(t, 2, result.FulfilledTotal)
	assert.True(t, result.Completed)
	requests.AssertExpectations(t)
}

func TestFulfillLostAdvanceRaceIsConflict(t *testing.T) {
	assets := new(MockAssetStore)
	requests := new(MockRequestStore)
	requestID := uuid.New()
	request := countModeRequest(requestID, 1, 0)
	actor := models.Actor{UserID: 42}

	assets.On("GetAssetsByIDs", mock.Anything, []int{10}).
		Return([]models.Asset{reservedAsset(10, requestID, 3)}, nil)
	assets.On("ConditionalFulfill", mock.Anything, 10, requestID, 7).Return(true, nil)
	requests.On("InsertFulfilledAssets", mock.Anything, requestID, mock.Anything).Return(nil)
	requests.On("IncrementFulfilledCount", mock.Anything, requestID, 1).Return(nil)
	requests.On("UpsertApprovalStep", mock.Anything, requestID, metadata.StageCFO, mock.Anything).Return(nil)
	requests.On("ConditionalAdvance", mock.Anything, requestID, metadata.StageCFO,
		metadata.StageCompleted, metadata.FinalApproved, mock.Anything).Return(false, nil)

	coordinator := newTestCoordinator(assets, requests)
	_, err := coordinator.Fulfill(request, actor, []int{10})

	assert.True(t, custom_error.IsKind(err, custom_error.KindConcurrentConflict))
}

func TestFulfillRefusesForeignReservation(t *testing.T) {
	assets := new(MockAssetStore)
	requests := new(MockRequestStore)
	requestID := uuid.New()
	otherRequest := uuid.New()
	request := countModeRequest(requestID, 1, 0)

	assets.On("GetAssetsByIDs", mock.Anything, []int{10}).
		Return([]models.Asset{reservedAsset(10, otherRequest, 3)}, nil)

	coordinator := newTestCoordinator(assets, requests)
	_, err := coordinator.Fulfill(request, models.Actor{UserID: 42}, []int{10})

	assert.True(t, custom_error.IsKind(err, custom_error.KindAssetConflict))
	assets.AssertNotCalled(t, "ConditionalFulfill", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestFulfillRefusesInactiveAsset(t *testing.T) {
	assets := new(MockAssetStore)
	requests := new(MockRequestStore)
	requestID := uuid.New()
	request := countModeRequest(requestID, 1, 0)

	asset := reservedAsset(10, requestID, 3)
	asset.Status = metadata.AssetMaintenance
	assets.On("GetAssetsByIDs", mock.Anything, []int{10}).Return([]models.Asset{asset}, nil)

	coordinator := newTestCoordinator(assets, requests)
	_, err := coordinator.Fulfill(request, models.Actor{UserID: 42}, []int{10})

	assert.True(t, custom_error.IsKind(err, custom_error.KindAssetConflict))
}

func TestRejectAssetsOnlyForCountMode(t *testing.T) {
	requestID := uuid.New()
	request := countModeRequest(requestID, 0, 0)
	request.RequestedAssets = []int{10, 11}

	coordinator := newTestCoordinator(new(MockAssetStore), new(MockRequestStore))
	_, err := coordinator.RejectAssets(request, models.Actor{UserID: 42}, []int{10}, "wrong model")

	assert.True(t, custom_error.IsKind(err, custom_error.KindValidation))
}

func TestRejectAssetsReleasesAndRecords(t *testing.T) {
	assets := new(MockAssetStore)
	requests := new(MockRequestStore)
	requestID := uuid.New()
	request := countModeRequest(requestID, 2, 0)
	actor := models.Actor{UserID: 42}

	assets.On("GetAssetsByIDs", mock.Anything, []int{10}).
		Return([]models.Asset{reservedAsset(10, requestID, 3)}, nil)
	assets.On("ConditionalRelease", mock.Anything, 10, requestID).Return(true, nil)
	requests.On("InsertRejectedAssets", mock.Anything, requestID,
		mock.MatchedBy(func(rejected []models.RejectedAsset) bool {
			return len(rejected) == 1 && rejected[0].AssetID == 10 &&
				rejected[0].FromDepartmentID == 3 && rejected[0].Remarks == "wrong model"
		})).Return(nil)

	coordinator := newTestCoordinator(assets, requests)
	result, err := coordinator.RejectAssets(request, actor, []int{10}, "wrong model")

	assert.NoError(t, err)
	assert.Equal(t, 1, result.ReleasedCount)
	assert.False(t, result.Completed)
	requests.AssertExpectations(t)
}
