package requests

import (
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ValueKare/fixed-asset-management-system-backend-sub000/internal/approval"
	"github.com/ValueKare/fixed-asset-management-system-backend-sub000/internal/notifications"
	"github.com/ValueKare/fixed-asset-management-system-backend-sub000/internal/reservation"
	"github.com/ValueKare/fixed-asset-management-system-backend-sub000/pkg/auditlog"
	custom_error "github.com/ValueKare/fixed-asset-management-system-backend-sub000/pkg/errors"
	"github.com/ValueKare/fixed-asset-management-system-backend-sub000/pkg/metadata"
	"github.com/ValueKare/fixed-asset-management-system-backend-sub000/pkg/models"
)

// TxRunner runs a closure inside a database transaction.
type TxRunner interface {
	WithTransaction(fn func(tx *goqu.TxDatabase) error) error
}

// Coordinator is the reservation protocol the service drives. Satisfied by
// *reservation.Coordinator.
type Coordinator interface {
	Reserve(requestID uuid.UUID, departmentID int, assetIDs []int) error
	ReserveTx(tx *goqu.TxDatabase, requestID uuid.UUID, departmentID int, assetIDs []int) error
	ReleaseTx(tx *goqu.TxDatabase, requestID uuid.UUID) (int, error)
	Fulfill(request *models.Request, actor models.Actor, assetIDs []int) (*reservation.FulfillResult, error)
	RejectAssets(request *models.Request, actor models.Actor, assetIDs []int, remarks string) (*reservation.RejectResult, error)
}

// AuditSink records workflow actions without ever failing them. Satisfied
// by *auditlog.Auditlog.
type AuditSink interface {
	Log(action string, data interface{}, item auditlog.Auditable)
}

// EscalationDefaults seed new requests' escalation policy.
type EscalationDefaults struct {
	Enabled    bool
	AfterHours float64
}

type RequestService struct {
	tx          TxRunner
	requests    RequestRepository
	engine      *approval.Engine
	coordinator Coordinator
	notifier    notifications.Notifier
	audit       AuditSink
	log         *zap.Logger
	escalation  EscalationDefaults
	clock       func() time.Time
}

func NewRequestService(
	tx TxRunner,
	requests RequestRepository,
	engine *approval.Engine,
	coordinator Coordinator,
	notifier notifications.Notifier,
	audit AuditSink,
	log *zap.Logger,
	escalation EscalationDefaults,
) *RequestService {
	return &RequestService{
		tx:          tx,
		requests:    requests,
		engine:      engine,
		coordinator: coordinator,
		notifier:    notifier,
		audit:       audit,
		log:         log,
		escalation:  escalation,
		clock:       time.Now,
	}
}

// WithClock overrides the time source, used by tests.
func (s *RequestService) WithClock(clock func() time.Time) *RequestService {
	s.clock = clock
	return s
}

// CreateRequest validates mode exclusivity, builds the request at its
// entry stage and, for asset-specific requests, reserves the named assets
// in the same transaction so creation and reservation commit atomically.
func (s *RequestService) CreateRequest(actor models.Actor, payload models.CreateRequestPayload) (*models.Request, error) {
	requestType, err := metadata.NewRequestType(payload.RequestType)
	if err != nil {
		return nil, custom_error.NewValidationError("invalid request type: %s", payload.RequestType)
	}

	assetMode := len(payload.RequestedAssets) > 0
	countMode := payload.RequestedCount > 0
	if assetMode == countMode {
		return nil, custom_error.NewValidationError(
			"exactly one of requested_assets or requested_count must be supplied")
	}
	if payload.DepartmentID == 0 || payload.HospitalID == 0 || payload.OrganizationID == 0 {
		return nil, custom_error.NewValidationError("request scope is incomplete")
	}

	scopeLevel := payload.ScopeLevel
	if scopeLevel == "" {
		scopeLevel = models.ScopeDepartment
	}
	scope := models.Scope{
		Level:          scopeLevel,
		DepartmentID:   payload.DepartmentID,
		HospitalID:     payload.HospitalID,
		OrganizationID: payload.OrganizationID,
	}

	now := s.clock()
	entry := s.engine.Chain().EntryFor(scope)

	request := &models.Request{
		ID:              uuid.New(),
		RequestType:     requestType,
		RequestedAssets: payload.RequestedAssets,
		CurrentLevel:    entry,
		FinalStatus:     metadata.FinalPending,
		ApprovalFlow:    make(map[metadata.Stage]*models.ApprovalStep),
		Scope:           scope,
		Escalation: models.EscalationPolicy{
			Enabled:            s.escalation.Enabled,
			EscalateAfterHours: s.escalation.AfterHours,
			LastActionAt:       now,
		},
		Justification: payload.Justification,
		Priority:      payload.Priority,
		EstimatedCost: payload.EstimatedCost,
		CreatedBy:     actor.UserID,
		CreatedAt:     now,
	}
	if countMode {
		request.Fulfillment.RequestedCount = payload.RequestedCount
	}

	// Transfers short-circuit to a single stage; everything else walks
	// the chain from its entry stage.
	if requestType == metadata.RequestAssetTransfer {
		request.ApprovalFlow[entry] = &models.ApprovalStep{Status: metadata.StagePending}
	} else {
		for _, stage := range s.engine.Chain().StagesFrom(entry) {
			request.ApprovalFlow[stage] = &models.ApprovalStep{Status: metadata.StagePending}
		}
	}

	err = s.tx.WithTransaction(func(tx *goqu.TxDatabase) error {
		if err := s.requests.InsertRequest(tx, request); err != nil {
			return err
		}
		if assetMode {
			return s.coordinator.ReserveTx(tx, request.ID, scope.DepartmentID, payload.RequestedAssets)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return request, nil
}

func (s *RequestService) GetRequest(requestID uuid.UUID) (*models.Request, error) {
	return s.requests.GetRequest(requestID)
}

func (s *RequestService) ApproveRequest(requestID uuid.UUID, actor models.Actor, remarks string) (*models.Request, error) {
	request, err := s.requests.GetRequest(requestID)
	if err != nil {
		return nil, err
	}

	transition, err := s.engine.Approve(request, actor, remarks)
	if err != nil {
		return nil, err
	}

	if err := s.applyTransition(request, transition); err != nil {
		return nil, err
	}

	previous := request.CurrentLevel
	updated, err := s.requests.GetRequest(requestID)
	if err != nil {
		return nil, err
	}

	if updated.CurrentLevel == metadata.StageCompleted {
		s.notifier.NotifyRequestClosed(updated)
	} else if updated.CurrentLevel != previous {
		s.notifier.NotifyStageChanged(updated, previous)
	}

	return updated, nil
}

// RejectRequest closes the request and frees every asset it holds; the
// stage record, the terminal transition and the release commit together.
func (s *RequestService) RejectRequest(requestID uuid.UUID, actor models.Actor, remarks string) (*models.Request, error) {
	request, err := s.requests.GetRequest(requestID)
	if err != nil {
		return nil, err
	}

	if actor.HospitalID != request.Scope.HospitalID {
		return nil, custom_error.NewCrossHospitalDeniedError(
			"actor hospital does not match request scope")
	}

	transition, err := s.engine.Reject(request, actor, remarks)
	if err != nil {
		return nil, err
	}

	err = s.tx.WithTransaction(func(tx *goqu.TxDatabase) error {
		if err := s.requests.UpsertApprovalStep(tx, request.ID, transition.Stage, transition.Step); err != nil {
			return err
		}

		advanced, err := s.requests.ConditionalAdvance(
			tx, request.ID, request.CurrentLevel,
			transition.NextLevel, transition.FinalStatus, transition.ActionAt,
		)
		if err != nil {
			return err
		}
		if !advanced {
			return custom_error.NewConcurrentConflictError(request.ID.String())
		}

		released, err := s.coordinator.ReleaseTx(tx, request.ID)
		if err != nil {
			return err
		}
		s.log.Info("released assets for rejected request",
			zap.String("request_id", request.ID.String()),
			zap.Int("released", released),
		)

		return nil
	})
	if err != nil {
		return nil, err
	}

	updated, err := s.requests.GetRequest(requestID)
	if err != nil {
		return nil, err
	}
	s.notifier.NotifyRequestClosed(updated)

	return updated, nil
}

// EscalateRequest force-advances a stalled request, recording a skipped
// step. Returns false when the engine decides escalation is a no-op.
func (s *RequestService) EscalateRequest(requestID uuid.UUID) (bool, error) {
	request, err := s.requests.GetRequest(requestID)
	if err != nil {
		return false, err
	}

	transition, err := s.engine.Escalate(request)
	if err != nil {
		return false, err
	}
	if transition == nil {
		return false, nil
	}

	if err := s.applyTransition(request, transition); err != nil {
		return false, err
	}

	updated, err := s.requests.GetRequest(requestID)
	if err == nil {
		s.audit.Log("request_escalated", map[string]interface{}{
			"previous_level": request.CurrentLevel.String(),
			"current_level":  updated.CurrentLevel.String(),
			"remarks":        transition.Step.Remarks,
		}, updated)
		s.notifier.NotifyStageChanged(updated, request.CurrentLevel)
	}

	return true, nil
}

// ReserveSpecificAssets claims candidate assets for a count-based request
// ahead of fulfillment.
func (s *RequestService) ReserveSpecificAssets(requestID uuid.UUID, actor models.Actor, assetIDs []int) (*models.Request, error) {
	request, err := s.loadOpenScopedRequest(requestID, actor)
	if err != nil {
		return nil, err
	}

	if err := s.coordinator.Reserve(request.ID, actor.DepartmentID, assetIDs); err != nil {
		return nil, err
	}

	return s.requests.GetRequest(requestID)
}

func (s *RequestService) FulfillRequest(requestID uuid.UUID, actor models.Actor, assetIDs []int) (*models.Request, error) {
	request, err := s.loadOpenScopedRequest(requestID, actor)
	if err != nil {
		return nil, err
	}

	result, err := s.coordinator.Fulfill(request, actor, assetIDs)
	if err != nil {
		return nil, err
	}

	updated, err := s.requests.GetRequest(requestID)
	if err != nil {
		return nil, err
	}
	if result.Completed {
		s.notifier.NotifyRequestClosed(updated)
	}

	return updated, nil
}

func (s *RequestService) RejectRequestAssets(requestID uuid.UUID, actor models.Actor, assetIDs []int, remarks string) (*models.Request, error) {
	request, err := s.loadOpenScopedRequest(requestID, actor)
	if err != nil {
		return nil, err
	}

	result, err := s.coordinator.RejectAssets(request, actor, assetIDs, remarks)
	if err != nil {
		return nil, err
	}

	updated, err := s.requests.GetRequest(requestID)
	if err != nil {
		return nil, err
	}
	if result.Completed {
		s.notifier.NotifyRequestClosed(updated)
	}

	return updated, nil
}

// ListPendingForActor returns the open requests waiting at the actor's
// stage within their organization. Roles with no approval stage see an
// empty list.
func (s *RequestService) ListPendingForActor(actor models.Actor) (*[]models.Request, error) {
	stage, ok := s.engine.Resolver().StageFor(actor.Role)
	if !ok {
		empty := make([]models.Request, 0)
		return &empty, nil
	}

	return s.requests.ListPendingForStage(stage, actor.OrganizationID)
}

func (s *RequestService) applyTransition(request *models.Request, transition *approval.Transition) error {
	return s.tx.WithTransaction(func(tx *goqu.TxDatabase) error {
		if err := s.requests.UpsertApprovalStep(tx, request.ID, transition.Stage, transition.Step); err != nil {
			return err
		}

		advanced, err := s.requests.ConditionalAdvance(
			tx, request.ID, request.CurrentLevel,
			transition.NextLevel, transition.FinalStatus, transition.ActionAt,
		)
		if err != nil {
			return err
		}
		if !advanced {
			return custom_error.NewConcurrentConflictError(request.ID.String())
		}

		return nil
	})
}

// loadOpenScopedRequest is the shared guard in front of every coordinator
// call: the request must exist, be open, and sit in the actor's hospital.
func (s *RequestService) loadOpenScopedRequest(requestID uuid.UUID, actor models.Actor) (*models.Request, error) {
	request, err := s.requests.GetRequest(requestID)
	if err != nil {
		return nil, err
	}

	if actor.HospitalID != request.Scope.HospitalID {
		return nil, custom_error.NewCrossHospitalDeniedError(
			"actor hospital does not match request scope")
	}
	if request.FinalStatus != metadata.FinalPending {
		return nil, custom_error.NewAlreadyClosedError(request.ID.String())
	}

	return request, nil
}
