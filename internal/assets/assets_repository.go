package assets

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/ValueKare/fixed-asset-management-system-backend-sub000/internal/repository"
	custom_error "github.com/ValueKare/fixed-asset-management-system-backend-sub000/pkg/errors"
	"github.com/ValueKare/fixed-asset-management-system-backend-sub000/pkg/metadata"
	"github.com/ValueKare/fixed-asset-management-system-backend-sub000/pkg/models"
)

// LedgerRepository owns asset rows and the compare-and-swap primitives the
// reservation coordinator is built on. Every Conditional* method applies
// its precondition inside the UPDATE's WHERE clause and reports whether
// the row was actually claimed.
type LedgerRepository interface {
	GetAsset(id int) (*models.Asset, error)
	GetAssetsByIDs(tx *goqu.TxDatabase, ids []int) ([]models.Asset, error)
	ListByDepartment(departmentID int) (*[]models.Asset, error)
	ListAvailable(departmentID int) (*[]models.Asset, error)
	PersistAsset(req AssetRequest) (*models.Asset, error)
	UpdateTagCode(id int, tagCode string) error
	ConditionalReserve(tx *goqu.TxDatabase, assetID int, requestID uuid.UUID, departmentID int, now time.Time) (bool, error)
	ConditionalRelease(tx *goqu.TxDatabase, assetID int, requestID uuid.UUID) (bool, error)
	ConditionalFulfill(tx *goqu.TxDatabase, assetID int, requestID uuid.UUID, toDepartmentID int) (bool, error)
	ReleaseByRequest(tx *goqu.TxDatabase, requestID uuid.UUID) (int, error)
	FindReservedByRequest(requestID uuid.UUID) (*[]models.Asset, error)
}

type assetsRepository struct {
	Repo *repository.Repository
}

func NewRepository(r *repository.Repository) LedgerRepository {
	return &assetsRepository{Repo: r}
}

var assetColumns = []interface{}{
	goqu.I("a.id").As("asset_id"),
	goqu.I("a.tag_code").As("tag_code"),
	goqu.I("a.name").As("asset_name"),
	goqu.I("a.category_code").As("category_code"),
	goqu.I("a.status").As("status"),
	goqu.I("a.lifecycle_status").As("lifecycle_status"),
	goqu.I("a.utilization_status").As("utilization_status"),
	goqu.I("a.is_reserved").As("is_reserved"),
	goqu.I("a.reserved_request_id").As("reserved_request_id"),
	goqu.I("a.reserved_by_department_id").As("reserved_by_department_id"),
	goqu.I("a.reserved_at").As("reserved_at"),
	goqu.I("a.created_at").As("created_at"),
	goqu.I("d.id").As("department_id"),
	goqu.I("d.name").As("department_name"),
	goqu.I("d.hospital_id").As("hospital_id"),
}

func (r *assetsRepository) assetQuery() *goqu.SelectDataset {
	return r.Repo.GoquDBWrapper.
		Select(assetColumns...).
		From(goqu.T("assets").As("a")).
		LeftJoin(
			goqu.T("departments").As("d"),
			goqu.On(goqu.Ex{"a.current_department_id": goqu.I("d.id")}),
		)
}

func (r *assetsRepository) GetAsset(id int) (*models.Asset, error) {
	var flatAsset models.FlatAssetRecord

	found, err := r.assetQuery().
		Where(goqu.Ex{"a.id": id}).
		Executor().
		ScanStruct(&flatAsset)
	if err != nil {
		return nil, fmt.Errorf("error executing SQL statement: %w", err)
	}
	if !found {
		return nil, custom_error.NewNotFoundError("asset", id)
	}

	asset, err := flatAsset.TransformToAsset()
	if err != nil {
		return nil, err
	}

	return &asset, nil
}

// GetAssetsByIDs reads the current state of a batch inside the caller's
// transaction so precondition checks and conditional updates see the same
// snapshot.
func (r *assetsRepository) GetAssetsByIDs(tx *goqu.TxDatabase, ids []int) ([]models.Asset, error) {
	var flatAssets []models.FlatAssetRecord

	query := tx.
		Select(assetColumns...).
		From(goqu.T("assets").As("a")).
		LeftJoin(
			goqu.T("departments").As("d"),
			goqu.On(goqu.Ex{"a.current_department_id": goqu.I("d.id")}),
		).
		Where(goqu.I("a.id").In(ids))

	if err := query.Executor().ScanStructs(&flatAssets); err != nil {
		return nil, fmt.Errorf("error executing SQL statement: %w", err)
	}

	assets := make([]models.Asset, 0, len(flatAssets))
	for i := range flatAssets {
		asset, err := flatAssets[i].TransformToAsset()
		if err != nil {
			return nil, err
		}
		assets = append(assets, asset)
	}

	return assets, nil
}

func (r *assetsRepository) ListByDepartment(departmentID int) (*[]models.Asset, error) {
	return r.scanAssets(r.assetQuery().Where(goqu.Ex{"a.current_department_id": departmentID}))
}

// ListAvailable returns the assets a request could still reserve.
func (r *assetsRepository) ListAvailable(departmentID int) (*[]models.Asset, error) {
	return r.scanAssets(r.assetQuery().Where(goqu.Ex{
		"a.current_department_id": departmentID,
		"a.status":                string(metadata.AssetActive),
		"a.utilization_status":    string(metadata.UtilizationNotInUse),
		"a.is_reserved":           false,
	}))
}

func (r *assetsRepository) scanAssets(query *goqu.SelectDataset) (*[]models.Asset, error) {
	var flatAssets []models.FlatAssetRecord

	if err := query.Executor().ScanStructs(&flatAssets); err != nil {
		return nil, fmt.Errorf("error executing SQL statement: %w", err)
	}

	assets := make([]models.Asset, 0, len(flatAssets))
	for i := range flatAssets {
		asset, err := flatAssets[i].TransformToAsset()
		if err != nil {
			return nil, err
		}
		assets = append(assets, asset)
	}

	return &assets, nil
}

type AssetRequest struct {
	Name         string `json:"name" binding:"required"`
	CategoryCode string `json:"category_code" binding:"required"`
	DepartmentID int    `json:"department_id" binding:"required"`
	Status       string `json:"status"`
}

func (r *assetsRepository) PersistAsset(req AssetRequest) (*models.Asset, error) {
	status := req.Status
	if status == "" {
		status = string(metadata.AssetActive)
	}

	query := r.Repo.GoquDBWrapper.Insert("assets").
		Rows(goqu.Record{
			"name":                  req.Name,
			"category_code":         req.CategoryCode,
			"current_department_id": req.DepartmentID,
			"status":                status,
			"lifecycle_status":      string(metadata.LifecycleActive),
			"utilization_status":    string(metadata.UtilizationNotInUse),
			"is_reserved":           false,
		}).
		Returning("id")

	var assetID int
	if _, err := query.Executor().ScanVal(&assetID); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) {
			return nil, custom_error.WrapDBError(err.Error(), string(pqErr.Code))
		}
		return nil, fmt.Errorf("failed to insert asset: %w", err)
	}

	return r.GetAsset(assetID)
}

func (r *assetsRepository) UpdateTagCode(id int, tagCode string) error {
	query := r.Repo.GoquDBWrapper.
		Update("assets").
		Set(goqu.Record{"tag_code": tagCode}).
		Where(goqu.Ex{"id": id})

	if _, err := query.Executor().Exec(); err != nil {
		return fmt.Errorf("failed to update tag code for asset %d: %w", id, err)
	}

	return nil
}

// ConditionalReserve claims the asset for a request iff it is still
// reservable. A zero rows-affected result means another request won.
func (r *assetsRepository) ConditionalReserve(tx *goqu.TxDatabase, assetID int, requestID uuid.UUID, departmentID int, now time.Time) (bool, error) {
	query := tx.
		Update("assets").
		Set(goqu.Record{
			"is_reserved":               true,
			"reserved_request_id":       requestID.String(),
			"reserved_by_department_id": departmentID,
			"reserved_at":               now,
		}).
		Where(goqu.Ex{
			"id":                 assetID,
			"status":             string(metadata.AssetActive),
			"utilization_status": string(metadata.UtilizationNotInUse),
			"is_reserved":        false,
		})

	return execExpectingRow(query.Executor().Exec())
}

func (r *assetsRepository) ConditionalRelease(tx *goqu.TxDatabase, assetID int, requestID uuid.UUID) (bool, error) {
	query := tx.
		Update("assets").
		Set(clearedReservation()).
		Where(goqu.Ex{
			"id":                  assetID,
			"reserved_request_id": requestID.String(),
		})

	return execExpectingRow(query.Executor().Exec())
}

// ConditionalFulfill moves a reserved asset into the requesting department
// and clears its reservation in one conditional write.
func (r *assetsRepository) ConditionalFulfill(tx *goqu.TxDatabase, assetID int, requestID uuid.UUID, toDepartmentID int) (bool, error) {
	record := clearedReservation()
	record["current_department_id"] = toDepartmentID
	record["utilization_status"] = string(metadata.UtilizationInUse)

	query := tx.
		Update("assets").
		Set(record).
		Where(goqu.Ex{
			"id":                  assetID,
			"reserved_request_id": requestID.String(),
			"status":              string(metadata.AssetActive),
			"lifecycle_status":    string(metadata.LifecycleActive),
		})

	return execExpectingRow(query.Executor().Exec())
}

// ReleaseByRequest clears every reservation held by a request. Running it
// again is a no-op, which makes reject paths safe to retry.
func (r *assetsRepository) ReleaseByRequest(tx *goqu.TxDatabase, requestID uuid.UUID) (int, error) {
	query := tx.
		Update("assets").
		Set(clearedReservation()).
		Where(goqu.Ex{"reserved_request_id": requestID.String()})

	result, err := query.Executor().Exec()
	if err != nil {
		return 0, fmt.Errorf("failed to release assets for request %s: %w", requestID, err)
	}

	released, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read released row count: %w", err)
	}

	return int(released), nil
}

func (r *assetsRepository) FindReservedByRequest(requestID uuid.UUID) (*[]models.Asset, error) {
	return r.scanAssets(r.assetQuery().Where(goqu.Ex{"a.reserved_request_id": requestID.String()}))
}

func clearedReservation() goqu.Record {
	return goqu.Record{
		"is_reserved":               false,
		"reserved_request_id":       nil,
		"reserved_by_department_id": nil,
		"reserved_at":               nil,
	}
}

func execExpectingRow(result sql.Result, err error) (bool, error) {
	if err != nil {
		return false, fmt.Errorf("error executing SQL statement: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected row count: %w", err)
	}

	return affected == 1, nil
}
