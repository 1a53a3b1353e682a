package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/ValueKare/fixed-asset-management-system-backend-sub000/pkg/metadata"
)

// Reservation is an open request's exclusive claim over an asset. Only the
// reservation coordinator may set or clear it.
type Reservation struct {
	IsReserved             bool       `json:"is_reserved"`
	RequestID              *uuid.UUID `json:"request_id,omitempty"`
	ReservedByDepartmentID *int       `json:"reserved_by_department_id,omitempty"`
	ReservedAt             *time.Time `json:"reserved_at,omitempty"`
}

type Asset struct {
	ID                int                        `json:"id"`
	TagCode           string                     `json:"tag_code"`
	Name              string                     `json:"name"`
	CategoryCode      string                     `json:"category_code"`
	CurrentDepartment Department                 `json:"current_department"`
	Status            metadata.AssetStatus       `json:"status"`
	LifecycleStatus   metadata.LifecycleStatus   `json:"lifecycle_status"`
	UtilizationStatus metadata.UtilizationStatus `json:"utilization_status"`
	Reservation       Reservation                `json:"reservation"`
	CreatedAt         time.Time                  `json:"created_at"`
}

// Reservable reports whether the asset can accept a new reservation.
func (a *Asset) Reservable() bool {
	return a.Status == metadata.AssetActive &&
		a.UtilizationStatus == metadata.UtilizationNotInUse &&
		!a.Reservation.IsReserved
}

type FlatAssetRecord struct {
	ID                     int        `db:"asset_id"`
	TagCode                string     `db:"tag_code"`
	Name                   string     `db:"asset_name"`
	CategoryCode           string     `db:"category_code"`
	Status                 string     `db:"status"`
	LifecycleStatus        string     `db:"lifecycle_status"`
	UtilizationStatus      string     `db:"utilization_status"`
	IsReserved             bool       `db:"is_reserved"`
	ReservedRequestID      *string    `db:"reserved_request_id"`
	ReservedByDepartmentID *int       `db:"reserved_by_department_id"`
	ReservedAt             *time.Time `db:"reserved_at"`
	DepartmentID           int        `db:"department_id"`
	DepartmentName         string     `db:"department_name"`
	HospitalID             int        `db:"hospital_id"`
	CreatedAt              time.Time  `db:"created_at"`
}

func (fa *FlatAssetRecord) TransformToAsset() (Asset, error) {
	reservation := Reservation{
		IsReserved:             fa.IsReserved,
		ReservedByDepartmentID: fa.ReservedByDepartmentID,
		ReservedAt:             fa.ReservedAt,
	}
	if fa.ReservedRequestID != nil {
		requestID, err := uuid.Parse(*fa.ReservedRequestID)
		if err != nil {
			return Asset{}, err
		}
		reservation.RequestID = &requestID
	}

	return Asset{
		ID:                fa.ID,
		TagCode:           fa.TagCode,
		Name:              fa.Name,
		CategoryCode:      fa.CategoryCode,
		Status:            metadata.AssetStatus(fa.Status),
		LifecycleStatus:   metadata.LifecycleStatus(fa.LifecycleStatus),
		UtilizationStatus: metadata.UtilizationStatus(fa.UtilizationStatus),
		Reservation:       reservation,
		CurrentDepartment: Department{
			ID:         fa.DepartmentID,
			Name:       fa.DepartmentName,
			HospitalID: fa.HospitalID,
		},
		CreatedAt: fa.CreatedAt,
	}, nil
}

func (a *Asset) CreateLogView() AuditLog {
	return AuditLog{
		ResourceID:   a.ID,
		ResourceType: "asset",
	}
}
