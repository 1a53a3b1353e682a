package reservation

import (
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/google/uuid"
	"go.uber.org/zap"

	custom_error "github.com/ValueKare/fixed-asset-management-system-backend-sub000/pkg/errors"
	"github.com/ValueKare/fixed-asset-management-system-backend-sub000/pkg/metadata"
	"github.com/ValueKare/fixed-asset-management-system-backend-sub000/pkg/models"
)

const fulfilledRemark = "Assets fulfilled and transferred"

// TxRunner runs a closure inside a database transaction.
type TxRunner interface {
	WithTransaction(fn func(tx *goqu.TxDatabase) error) error
}

// AssetStore is the slice of the asset ledger the coordinator needs: batch
// reads plus conditional reservation writes.
type AssetStore interface {
	GetAssetsByIDs(tx *goqu.TxDatabase, ids []int) ([]models.Asset, error)
	ConditionalReserve(tx *goqu.TxDatabase, assetID int, requestID uuid.UUID, departmentID int, now time.Time) (bool, error)
	ConditionalRelease(tx *goqu.TxDatabase, assetID int, requestID uuid.UUID) (bool, error)
	ConditionalFulfill(tx *goqu.TxDatabase, assetID int, requestID uuid.UUID, toDepartmentID int) (bool, error)
	ReleaseByRequest(tx *goqu.TxDatabase, requestID uuid.UUID) (int, error)
}

// RequestStore is the slice of the request store the coordinator mutates
// when fulfillment closes a request.
type RequestStore interface {
	UpsertApprovalStep(tx *goqu.TxDatabase, requestID uuid.UUID, stage metadata.Stage, step models.ApprovalStep) error
	ConditionalAdvance(tx *goqu.TxDatabase, requestID uuid.UUID, expectedLevel metadata.Stage, newLevel metadata.Stage, finalStatus metadata.FinalStatus, actionAt time.Time) (bool, error)
	IncrementFulfilledCount(tx *goqu.TxDatabase, requestID uuid.UUID, by int) error
	InsertFulfilledAssets(tx *goqu.TxDatabase, requestID uuid.UUID, fulfilled []models.FulfilledAsset) error
	InsertRejectedAssets(tx *goqu.TxDatabase, requestID uuid.UUID, rejected []models.RejectedAsset) error
}

// Coordinator enforces at-most-one-reservation-per-asset. Every batch
// operation is all-or-nothing: each member is applied through a
// compare-and-swap update inside one transaction, and any member that
// reports zero affected rows aborts the whole batch.
type Coordinator struct {
	tx       TxRunner
	assets   AssetStore
	requests RequestStore
	log      *zap.Logger
	clock    func() time.Time
}

func NewCoordinator(tx TxRunner, assets AssetStore, requests RequestStore, log *zap.Logger) *Coordinator {
	return &Coordinator{
		tx:       tx,
		assets:   assets,
		requests: requests,
		log:      log,
		clock:    time.Now,
	}
}

// WithClock overrides the time source, used by tests.
func (c *Coordinator) WithClock(clock func() time.Time) *Coordinator {
	c.clock = clock
	return c
}

// Reserve claims every asset in the set for the request, or none of them.
func (c *Coordinator) Reserve(requestID uuid.UUID, departmentID int, assetIDs []int) error {
	return c.tx.WithTransaction(func(tx *goqu.TxDatabase) error {
		return c.ReserveTx(tx, requestID, departmentID, assetIDs)
	})
}

// ReserveTx is Reserve running inside an existing transaction, so request
// creation and its initial reservation commit atomically.
func (c *Coordinator) ReserveTx(tx *goqu.TxDatabase, requestID uuid.UUID, departmentID int, assetIDs []int) error {
	if len(assetIDs) == 0 {
		return custom_error.NewValidationError("cannot reserve an empty asset set")
	}

	now := c.clock()
	for _, assetID := range assetIDs {
		reserved, err := c.assets.ConditionalReserve(tx, assetID, requestID, departmentID, now)
		if err != nil {
			return err
		}
		if !reserved {
			return custom_error.NewAssetConflictError(
				"asset %d is not reservable; no assets were reserved", assetID)
		}
	}

	return nil
}

// Release clears every reservation held by the request. Idempotent: a
// second call finds nothing to release and reports zero.
func (c *Coordinator) Release(requestID uuid.UUID) (int, error) {
	var released int
	err := c.tx.WithTransaction(func(tx *goqu.TxDatabase) error {
		var txErr error
		released, txErr = c.assets.ReleaseByRequest(tx, requestID)
		return txErr
	})
	return released, err
}

// ReleaseTx is Release inside an existing transaction, used when a
// rejection closes the request and frees its assets in one commit.
func (c *Coordinator) ReleaseTx(tx *goqu.TxDatabase, requestID uuid.UUID) (int, error) {
	return c.assets.ReleaseByRequest(tx, requestID)
}

type FulfillResult struct {
	FulfilledNow   int  `json:"fulfilled_now"`
	FulfilledTotal int  `json:"fulfilled_total"`
	Completed      bool `json:"completed"`
}

// Fulfill binds reserved assets to the request: each asset moves into the
// request's department, its reservation clears, and the fulfillment count
// grows. Crossing the requested total closes the request.
func (c *Coordinator) Fulfill(request *models.Request, actor models.Actor, assetIDs []int) (*FulfillResult, error) {
	if len(assetIDs) == 0 {
		return nil, custom_error.NewValidationError("cannot fulfill an empty asset set")
	}

	result := &FulfillResult{}
	err := c.tx.WithTransaction(func(tx *goqu.TxDatabase) error {
		assets, err := c.loadClaimedAssets(tx, request, assetIDs)
		if err != nil {
			return err
		}

		now := c.clock()
		fulfilled := make([]models.FulfilledAsset, 0, len(assets))
		for i := range assets {
			asset := &assets[i]
			if asset.Status != metadata.AssetActive || asset.LifecycleStatus != metadata.LifecycleActive {
				return custom_error.NewAssetConflictError(
					"asset %d is not in an active state; nothing was fulfilled", asset.ID)
			}

			applied, err := c.assets.ConditionalFulfill(tx, asset.ID, request.ID, request.Scope.DepartmentID)
			if err != nil {
				return err
			}
			if !applied {
				return custom_error.NewAssetConflictError(
					"asset %d changed concurrently; nothing was fulfilled", asset.ID)
			}

			fulfilled = append(fulfilled, models.FulfilledAsset{
				AssetID:          asset.ID,
				FromDepartmentID: asset.CurrentDepartment.ID,
				FulfilledBy:      actor.UserID,
				FulfilledAt:      now,
			})
		}

		if err := c.requests.InsertFulfilledAssets(tx, request.ID, fulfilled); err != nil {
			return err
		}
		if err := c.requests.IncrementFulfilledCount(tx, request.ID, len(fulfilled)); err != nil {
			return err
		}

		result.FulfilledNow = len(fulfilled)
		result.FulfilledTotal = request.Fulfillment.FulfilledCount + len(fulfilled)

		completed, err := c.closeIfSatisfied(tx, request, result.FulfilledTotal, actor, now)
		if err != nil {
			return err
		}
		result.Completed = completed

		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

type RejectResult struct {
	ReleasedCount int  `json:"released_count"`
	Completed     bool `json:"completed"`
}

// RejectAssets releases named assets out of a count-mode request's
// reservation pool, recording each rejection with the department the asset
// was in before release.
func (c *Coordinator) RejectAssets(request *models.Request, actor models.Actor, assetIDs []int, remarks string) (*RejectResult, error) {
	if request.AssetMode() {
		return nil, custom_error.NewValidationError(
			"assets can only be rejected out of count-based requests")
	}
	if len(assetIDs) == 0 {
		return nil, custom_error.NewValidationError("cannot reject an empty asset set")
	}

	result := &RejectResult{}
	err := c.tx.WithTransaction(func(tx *goqu.TxDatabase) error {
		assets, err := c.loadClaimedAssets(tx, request, assetIDs)
		if err != nil {
			return err
		}

		now := c.clock()
		rejected := make([]models.RejectedAsset, 0, len(assets))
		for i := range assets {
			asset := &assets[i]

			released, err := c.assets.ConditionalRelease(tx, asset.ID, request.ID)
			if err != nil {
				return err
			}
			if !released {
				return custom_error.NewAssetConflictError(
					"asset %d changed concurrently; nothing was released", asset.ID)
			}

			rejected = append(rejected, models.RejectedAsset{
				AssetID:          asset.ID,
				FromDepartmentID: asset.CurrentDepartment.ID,
				RejectedBy:       actor.UserID,
				Remarks:          remarks,
				RejectedAt:       now,
			})
		}

		if err := c.requests.InsertRejectedAssets(tx, request.ID, rejected); err != nil {
			return err
		}

		result.ReleasedCount = len(rejected)

		completed, err := c.closeIfSatisfied(tx, request, request.Fulfillment.FulfilledCount, actor, now)
		if err != nil {
			return err
		}
		result.Completed = completed

		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

// loadClaimedAssets reads the batch inside the transaction and verifies
// every requested asset exists and is reserved by this request.
func (c *Coordinator) loadClaimedAssets(tx *goqu.TxDatabase, request *models.Request, assetIDs []int) ([]models.Asset, error) {
	assets, err := c.assets.GetAssetsByIDs(tx, assetIDs)
	if err != nil {
		return nil, err
	}
	if len(assets) != len(assetIDs) {
		return nil, custom_error.NewAssetConflictError(
			"only %d of %d assets exist; nothing was applied", len(assets), len(assetIDs))
	}

	for i := range assets {
		reservation := assets[i].Reservation
		if !reservation.IsReserved || reservation.RequestID == nil || *reservation.RequestID != request.ID {
			return nil, custom_error.NewAssetConflictError(
				"asset %d is not reserved by request %s", assets[i].ID, request.ID)
		}
	}

	return assets, nil
}

// closeIfSatisfied applies the auto-completion rule: when the fulfilled
// count reaches the requested total, the current stage is approved with a
// fulfillment remark and the request closes.
func (c *Coordinator) closeIfSatisfied(tx *goqu.TxDatabase, request *models.Request, fulfilledCount int, actor models.Actor, now time.Time) (bool, error) {
	if fulfilledCount < request.TotalRequested() || request.IsTerminal() {
		return false, nil
	}

	step := models.ApprovalStep{
		Status:     metadata.StageApproved,
		ApprovedBy: &actor.UserID,
		Date:       &now,
		Remarks:    fulfilledRemark,
	}
	if err := c.requests.UpsertApprovalStep(tx, request.ID, request.CurrentLevel, step); err != nil {
		return false, err
	}

	advanced, err := c.requests.ConditionalAdvance(
		tx, request.ID, request.CurrentLevel,
		metadata.StageCompleted, metadata.FinalApproved, now,
	)
	if err != nil {
		return false, err
	}
	if !advanced {
		return false, custom_error.NewConcurrentConflictError(request.ID.String())
	}

	c.log.Info("request auto-completed by fulfillment",
		zap.String("request_id", request.ID.String()),
		zap.Int("fulfilled_count", fulfilledCount),
	)

	return true, nil
}
