package requests

import (
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/google/uuid"

	"github.com/ValueKare/fixed-asset-management-system-backend-sub000/internal/repository"
	custom_error "github.com/ValueKare/fixed-asset-management-system-backend-sub000/pkg/errors"
	"github.com/ValueKare/fixed-asset-management-system-backend-sub000/pkg/metadata"
	"github.com/ValueKare/fixed-asset-management-system-backend-sub000/pkg/models"
)

// RequestRepository owns request rows and their approval-flow sub-records.
// ConditionalAdvance is the compare-and-swap primitive every state
// transition goes through: a writer that lost the race sees zero affected
// rows and retries from its precondition check.
type RequestRepository interface {
	InsertRequest(tx *goqu.TxDatabase, request *models.Request) error
	GetRequest(id uuid.UUID) (*models.Request, error)
	UpsertApprovalStep(tx *goqu.TxDatabase, requestID uuid.UUID, stage metadata.Stage, step models.ApprovalStep) error
	ConditionalAdvance(tx *goqu.TxDatabase, requestID uuid.UUID, expectedLevel metadata.Stage, newLevel metadata.Stage, finalStatus metadata.FinalStatus, actionAt time.Time) (bool, error)
	IncrementFulfilledCount(tx *goqu.TxDatabase, requestID uuid.UUID, by int) error
	InsertFulfilledAssets(tx *goqu.TxDatabase, requestID uuid.UUID, fulfilled []models.FulfilledAsset) error
	InsertRejectedAssets(tx *goqu.TxDatabase, requestID uuid.UUID, rejected []models.RejectedAsset) error
	ListPendingForStage(stage metadata.Stage, organizationID int) (*[]models.Request, error)
	ListEscalatable(stages []metadata.Stage) (*[]models.Request, error)
}

type requestRepository struct {
	Repo *repository.Repository
}

func NewRepository(r *repository.Repository) RequestRepository {
	return &requestRepository{Repo: r}
}

func (r *requestRepository) InsertRequest(tx *goqu.TxDatabase, request *models.Request) error {
	record := goqu.Record{
		"id":                   request.ID.String(),
		"request_type":         string(request.RequestType),
		"fulfilled_count":      0,
		"current_level":        string(request.CurrentLevel),
		"final_status":         string(request.FinalStatus),
		"scope_level":          request.Scope.Level,
		"department_id":        request.Scope.DepartmentID,
		"hospital_id":          request.Scope.HospitalID,
		"organization_id":      request.Scope.OrganizationID,
		"escalation_enabled":   request.Escalation.Enabled,
		"escalate_after_hours": request.Escalation.EscalateAfterHours,
		"last_action_at":       request.Escalation.LastActionAt,
		"justification":        request.Justification,
		"priority":             request.Priority,
		"estimated_cost":       request.EstimatedCost,
		"created_by":           request.CreatedBy,
		"created_at":           request.CreatedAt,
	}
	if !request.AssetMode() {
		record["requested_count"] = request.Fulfillment.RequestedCount
	}

	if _, err := tx.Insert("requests").Rows(record).Executor().Exec(); err != nil {
		return fmt.Errorf("failed to insert request record: %w", err)
	}

	if request.AssetMode() {
		var claims []goqu.Record
		for _, assetID := range request.RequestedAssets {
			claims = append(claims, goqu.Record{
				"request_id": request.ID.String(),
				"asset_id":   assetID,
			})
		}
		if _, err := tx.Insert("requested_assets").Rows(claims).Executor().Exec(); err != nil {
			return fmt.Errorf("failed to insert requested assets: %w", err)
		}
	}

	var steps []goqu.Record
	for stage, step := range request.ApprovalFlow {
		steps = append(steps, goqu.Record{
			"request_id": request.ID.String(),
			"stage":      string(stage),
			"status":     string(step.Status),
		})
	}
	if len(steps) > 0 {
		if _, err := tx.Insert("approval_steps").Rows(steps).Executor().Exec(); err != nil {
			return fmt.Errorf("failed to insert approval steps: %w", err)
		}
	}

	return nil
}

type flatApprovalStep struct {
	Stage      string     `db:"stage"`
	Status     string     `db:"status"`
	ApprovedBy *int       `db:"approved_by"`
	DecidedAt  *time.Time `db:"decided_at"`
	Remarks    string     `db:"remarks"`
}

type flatFulfilledAsset struct {
	AssetID          int       `db:"asset_id"`
	FromDepartmentID int       `db:"from_department_id"`
	FulfilledBy      int       `db:"fulfilled_by"`
	FulfilledAt      time.Time `db:"fulfilled_at"`
}

type flatRejectedAsset struct {
	AssetID          int       `db:"asset_id"`
	FromDepartmentID int       `db:"from_department_id"`
	RejectedBy       int       `db:"rejected_by"`
	Remarks          string    `db:"remarks"`
	RejectedAt       time.Time `db:"rejected_at"`
}

func (r *requestRepository) GetRequest(id uuid.UUID) (*models.Request, error) {
	var flatRequest models.FlatRequestRecord

	found, err := r.Repo.GoquDBWrapper.
		Select(
			goqu.C("id").As("request_id"),
			goqu.C("request_type").As("request_type"),
			goqu.C("requested_count").As("requested_count"),
			goqu.C("fulfilled_count").As("fulfilled_count"),
			goqu.C("current_level").As("current_level"),
			goqu.C("final_status").As("final_status"),
			goqu.C("scope_level").As("scope_level"),
			goqu.C("department_id").As("department_id"),
			goqu.C("hospital_id").As("hospital_id"),
			goqu.C("organization_id").As("organization_id"),
			goqu.C("escalation_enabled").As("escalation_enabled"),
			goqu.C("escalate_after_hours").As("escalate_after_hours"),
			goqu.C("last_action_at").As("last_action_at"),
			goqu.C("justification").As("justification"),
			goqu.C("priority").As("priority"),
			goqu.C("estimated_cost").As("estimated_cost"),
			goqu.C("created_by").As("created_by"),
			goqu.C("created_at").As("created_at"),
		).
		From("requests").
		Where(goqu.Ex{"id": id.String()}).
		Executor().
		ScanStruct(&flatRequest)
	if err != nil {
		return nil, fmt.Errorf("error executing SQL statement: %w", err)
	}
	if !found {
		return nil, custom_error.NewNotFoundError("request", id)
	}

	request, err := flatRequest.TransformToRequest()
	if err != nil {
		return nil, err
	}

	if err := r.hydrateSubRecords(&request); err != nil {
		return nil, err
	}

	return &request, nil
}

func (r *requestRepository) hydrateSubRecords(request *models.Request) error {
	var steps []flatApprovalStep
	err := r.Repo.GoquDBWrapper.
		From("approval_steps").
		Where(goqu.Ex{"request_id": request.ID.String()}).
		Executor().
		ScanStructs(&steps)
	if err != nil {
		return fmt.Errorf("error executing SQL statement: %w", err)
	}
	for i := range steps {
		request.ApprovalFlow[metadata.Stage(steps[i].Stage)] = &models.ApprovalStep{
			Status:     metadata.StageStatus(steps[i].Status),
			ApprovedBy: steps[i].ApprovedBy,
			Date:       steps[i].DecidedAt,
			Remarks:    steps[i].Remarks,
		}
	}

	var claimedAssetIDs []int
	err = r.Repo.GoquDBWrapper.
		Select("asset_id").
		From("requested_assets").
		Where(goqu.Ex{"request_id": request.ID.String()}).
		Order(goqu.C("asset_id").Asc()).
		Executor().
		ScanVals(&claimedAssetIDs)
	if err != nil {
		return fmt.Errorf("error executing SQL statement: %w", err)
	}
	request.RequestedAssets = claimedAssetIDs

	var fulfilled []flatFulfilledAsset
	err = r.Repo.GoquDBWrapper.
		From("fulfilled_assets").
		Where(goqu.Ex{"request_id": request.ID.String()}).
		Order(goqu.C("fulfilled_at").Asc()).
		Executor().
		ScanStructs(&fulfilled)
	if err != nil {
		return fmt.Errorf("error executing SQL statement: %w", err)
	}
	for i := range fulfilled {
		request.Fulfillment.FulfilledAssets = append(request.Fulfillment.FulfilledAssets, models.FulfilledAsset{
			AssetID:          fulfilled[i].AssetID,
			FromDepartmentID: fulfilled[i].FromDepartmentID,
			FulfilledBy:      fulfilled[i].FulfilledBy,
			FulfilledAt:      fulfilled[i].FulfilledAt,
		})
	}

	var rejected []flatRejectedAsset
	err = r.Repo.GoquDBWrapper.
		From("rejected_assets").
		Where(goqu.Ex{"request_id": request.ID.String()}).
		Order(goqu.C("rejected_at").Asc()).
		Executor().
		ScanStructs(&rejected)
	if err != nil {
		return fmt.Errorf("error executing SQL statement: %w", err)
	}
	for i := range rejected {
		request.RejectedAssets = append(request.RejectedAssets, models.RejectedAsset{
			AssetID:          rejected[i].AssetID,
			FromDepartmentID: rejected[i].FromDepartmentID,
			RejectedBy:       rejected[i].RejectedBy,
			Remarks:          rejected[i].Remarks,
			RejectedAt:       rejected[i].RejectedAt,
		})
	}

	return nil
}

func (r *requestRepository) UpsertApprovalStep(tx *goqu.TxDatabase, requestID uuid.UUID, stage metadata.Stage, step models.ApprovalStep) error {
	query := tx.Insert("approval_steps").
		Rows(goqu.Record{
			"request_id":  requestID.String(),
			"stage":       string(stage),
			"status":      string(step.Status),
			"approved_by": step.ApprovedBy,
			"decided_at":  step.Date,
			"remarks":     step.Remarks,
		}).
		OnConflict(goqu.DoUpdate("request_id, stage", goqu.Record{
			"status":      string(step.Status),
			"approved_by": step.ApprovedBy,
			"decided_at":  step.Date,
			"remarks":     step.Remarks,
		}))

	if _, err := query.Executor().Exec(); err != nil {
		return fmt.Errorf("failed to upsert approval step %s: %w", stage, err)
	}

	return nil
}

// ConditionalAdvance moves the request to a new level only if it is still
// at the expected one. Losing the race is not an error here; the caller
// decides whether to retry or surface a conflict.
func (r *requestRepository) ConditionalAdvance(tx *goqu.TxDatabase, requestID uuid.UUID, expectedLevel metadata.Stage, newLevel metadata.Stage, finalStatus metadata.FinalStatus, actionAt time.Time) (bool, error) {
	query := tx.
		Update("requests").
		Set(goqu.Record{
			"current_level":  string(newLevel),
			"final_status":   string(finalStatus),
			"last_action_at": actionAt,
		}).
		Where(goqu.Ex{
			"id":            requestID.String(),
			"current_level": string(expectedLevel),
			"final_status":  string(metadata.FinalPending),
		})

	result, err := query.Executor().Exec()
	if err != nil {
		return false, fmt.Errorf("failed to advance request %s: %w", requestID, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected row count: %w", err)
	}

	return affected == 1, nil
}

func (r *requestRepository) IncrementFulfilledCount(tx *goqu.TxDatabase, requestID uuid.UUID, by int) error {
	query := tx.
		Update("requests").
		Set(goqu.Record{"fulfilled_count": goqu.L("fulfilled_count + ?", by)}).
		Where(goqu.Ex{"id": requestID.String()})

	if _, err := query.Executor().Exec(); err != nil {
		return fmt.Errorf("failed to increment fulfilled count: %w", err)
	}

	return nil
}

func (r *requestRepository) InsertFulfilledAssets(tx *goqu.TxDatabase, requestID uuid.UUID, fulfilled []models.FulfilledAsset) error {
	var records []goqu.Record
	for _, item := range fulfilled {
		records = append(records, goqu.Record{
			"request_id":         requestID.String(),
			"asset_id":           item.AssetID,
			"from_department_id": item.FromDepartmentID,
			"fulfilled_by":       item.FulfilledBy,
			"fulfilled_at":       item.FulfilledAt,
		})
	}

	if _, err := tx.Insert("fulfilled_assets").Rows(records).Executor().Exec(); err != nil {
		return fmt.Errorf("failed to insert fulfilled assets: %w", err)
	}

	return nil
}

func (r *requestRepository) InsertRejectedAssets(tx *goqu.TxDatabase, requestID uuid.UUID, rejected []models.RejectedAsset) error {
	var records []goqu.Record
	for _, item := range rejected {
		records = append(records, goqu.Record{
			"request_id":         requestID.String(),
			"asset_id":           item.AssetID,
			"from_department_id": item.FromDepartmentID,
			"rejected_by":        item.RejectedBy,
			"remarks":            item.Remarks,
			"rejected_at":        item.RejectedAt,
		})
	}

	if _, err := tx.Insert("rejected_assets").Rows(records).Executor().Exec(); err != nil {
		return fmt.Errorf("failed to insert rejected assets: %w", err)
	}

	return nil
}

func (r *requestRepository) ListPendingForStage(stage metadata.Stage, organizationID int) (*[]models.Request, error) {
	return r.scanRequests(goqu.Ex{
		"final_status":    string(metadata.FinalPending),
		"current_level":   string(stage),
		"organization_id": organizationID,
	})
}

func (r *requestRepository) ListEscalatable(stages []metadata.Stage) (*[]models.Request, error) {
	stageNames := make([]string, 0, len(stages))
	for _, stage := range stages {
		stageNames = append(stageNames, string(stage))
	}

	return r.scanRequests(goqu.Ex{
		"final_status":       string(metadata.FinalPending),
		"escalation_enabled": true,
		"current_level":      stageNames,
	})
}

func (r *requestRepository) scanRequests(conditions goqu.Ex) (*[]models.Request, error) {
	var flatRequests []models.FlatRequestRecord

	err := r.Repo.GoquDBWrapper.
		Select(
			goqu.C("id").As("request_id"),
			goqu.C("request_type").As("request_type"),
			goqu.C("requested_count").As("requested_count"),
			goqu.C("fulfilled_count").As("fulfilled_count"),
			goqu.C("current_level").As("current_level"),
			goqu.C("final_status").As("final_status"),
			goqu.C("scope_level").As("scope_level"),
			goqu.C("department_id").As("department_id"),
			goqu.C("hospital_id").As("hospital_id"),
			goqu.C("organization_id").As("organization_id"),
			goqu.C("escalation_enabled").As("escalation_enabled"),
			goqu.C("escalate_after_hours").As("escalate_after_hours"),
			goqu.C("last_action_at").As("last_action_at"),
			goqu.C("justification").As("justification"),
			goqu.C("priority").As("priority"),
			goqu.C("estimated_cost").As("estimated_cost"),
			goqu.C("created_by").As("created_by"),
			goqu.C("created_at").As("created_at"),
		).
		From("requests").
		Where(conditions).
		Order(goqu.C("created_at").Asc()).
		Executor().
		ScanStructs(&flatRequests)
	if err != nil {
		return nil, fmt.Errorf("error executing SQL statement: %w", err)
	}

	requests := make([]models.Request, 0, len(flatRequests))
	for i := range flatRequests {
		request, err := flatRequests[i].TransformToRequest()
		if err != nil {
			return nil, err
		}
		requests = append(requests, request)
	}

	return &requests, nil
}
