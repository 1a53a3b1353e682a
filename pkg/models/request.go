package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/ValueKare/fixed-asset-management-system-backend-sub000/pkg/metadata"
)

// Scope confines a request and its approvers to an organizational boundary.
// Immutable after creation.
type Scope struct {
	Level          string `json:"level"`
	DepartmentID   int    `json:"department_id"`
	HospitalID     int    `json:"hospital_id"`
	OrganizationID int    `json:"organization_id"`
}

const (
	ScopeDepartment   = "department"
	ScopeHospital     = "hospital"
	ScopeOrganization = "organization"
)

// CrossHospital reports whether the request reaches outside a single
// hospital and therefore enters the chain at the elevated stage.
func (s Scope) CrossHospital() bool {
	return s.Level == ScopeOrganization
}

type ApprovalStep struct {
	Status     metadata.StageStatus `json:"status"`
	ApprovedBy *int                 `json:"approved_by,omitempty"`
	Date       *time.Time           `json:"date,omitempty"`
	Remarks    string               `json:"remarks,omitempty"`
}

type FulfilledAsset struct {
	AssetID          int       `json:"asset_id"`
	FromDepartmentID int       `json:"from_department_id"`
	FulfilledBy      int       `json:"fulfilled_by"`
	FulfilledAt      time.Time `json:"fulfilled_at"`
}

type RejectedAsset struct {
	AssetID          int       `json:"asset_id"`
	FromDepartmentID int       `json:"from_department_id"`
	RejectedBy       int       `json:"rejected_by"`
	Remarks          string    `json:"remarks,omitempty"`
	RejectedAt       time.Time `json:"rejected_at"`
}

// Fulfillment carries the count-mode progress of a request.
// FulfilledCount never decreases.
type Fulfillment struct {
	RequestedCount  int              `json:"requested_count"`
	FulfilledCount  int              `json:"fulfilled_count"`
	FulfilledAssets []FulfilledAsset `json:"fulfilled_assets"`
}

type EscalationPolicy struct {
	Enabled            bool      `json:"enabled"`
	EscalateAfterHours float64   `json:"escalate_after_hours"`
	LastActionAt       time.Time `json:"last_action_at"`
}

type Request struct {
	ID              uuid.UUID                            `json:"id"`
	RequestType     metadata.RequestType                 `json:"request_type"`
	RequestedAssets []int                                `json:"requested_assets,omitempty"`
	Fulfillment     Fulfillment                          `json:"fulfillment"`
	RejectedAssets  []RejectedAsset                      `json:"rejected_assets,omitempty"`
	ApprovalFlow    map[metadata.Stage]*ApprovalStep     `json:"approval_flow"`
	CurrentLevel    metadata.Stage                       `json:"current_level"`
	FinalStatus     metadata.FinalStatus                 `json:"final_status"`
	Scope           Scope                                `json:"scope"`
	Escalation      EscalationPolicy                     `json:"escalation"`
	Justification   string                               `json:"justification"`
	Priority        string                               `json:"priority"`
	EstimatedCost   float64                              `json:"estimated_cost"`
	CreatedBy       int                                  `json:"created_by"`
	CreatedAt       time.Time                            `json:"created_at"`
}

// AssetMode reports whether the request claims specific assets rather than
// a requested count. Exactly one of the two modes holds for a valid request.
func (r *Request) AssetMode() bool {
	return len(r.RequestedAssets) > 0
}

// TotalRequested is the fulfillment target regardless of mode.
func (r *Request) TotalRequested() int {
	if r.AssetMode() {
		return len(r.RequestedAssets)
	}
	return r.Fulfillment.RequestedCount
}

func (r *Request) IsTerminal() bool {
	return r.CurrentLevel.IsTerminal()
}

func (r *Request) CreateLogView() AuditLog {
	return AuditLog{
		ResourceUUID: r.ID.String(),
		ResourceType: "request",
	}
}

type FlatRequestRecord struct {
	ID                 string    `db:"request_id"`
	RequestType        string    `db:"request_type"`
	RequestedCount     *int      `db:"requested_count"`
	FulfilledCount     int       `db:"fulfilled_count"`
	CurrentLevel       string    `db:"current_level"`
	FinalStatus        string    `db:"final_status"`
	ScopeLevel         string    `db:"scope_level"`
	DepartmentID       int       `db:"department_id"`
	HospitalID         int       `db:"hospital_id"`
	OrganizationID     int       `db:"organization_id"`
	EscalationEnabled  bool      `db:"escalation_enabled"`
	EscalateAfterHours float64   `db:"escalate_after_hours"`
	LastActionAt       time.Time `db:"last_action_at"`
	Justification      string    `db:"justification"`
	Priority           string    `db:"priority"`
	EstimatedCost      float64   `db:"estimated_cost"`
	CreatedBy          int       `db:"created_by"`
	CreatedAt          time.Time `db:"created_at"`
}

func (fr *FlatRequestRecord) TransformToRequest() (Request, error) {
	requestID, err := uuid.Parse(fr.ID)
	if err != nil {
		return Request{}, err
	}

	request := Request{
		ID:           requestID,
		RequestType:  metadata.RequestType(fr.RequestType),
		CurrentLevel: metadata.Stage(fr.CurrentLevel),
		FinalStatus:  metadata.FinalStatus(fr.FinalStatus),
		ApprovalFlow: make(map[metadata.Stage]*ApprovalStep),
		Scope: Scope{
			Level:          fr.ScopeLevel,
			DepartmentID:   fr.DepartmentID,
			HospitalID:     fr.HospitalID,
			OrganizationID: fr.OrganizationID,
		},
		Escalation: EscalationPolicy{
			Enabled:            fr.EscalationEnabled,
			EscalateAfterHours: fr.EscalateAfterHours,
			LastActionAt:       fr.LastActionAt,
		},
		Justification: fr.Justification,
		Priority:      fr.Priority,
		EstimatedCost: fr.EstimatedCost,
		CreatedBy:     fr.CreatedBy,
		CreatedAt:     fr.CreatedAt,
	}
	request.Fulfillment.FulfilledCount = fr.FulfilledCount
	if fr.RequestedCount != nil {
		request.Fulfillment.RequestedCount = *fr.RequestedCount
	}

	return request, nil
}
