package models

import (
	"github.com/ValueKare/fixed-asset-management-system-backend-sub000/pkg/roles"
)

type User struct {
	ID             int        `json:"id" db:"id"`
	Username       string     `json:"username" db:"username"`
	Fullname       string     `json:"fullname" db:"fullname"`
	PasswordHash   string     `json:"-" db:"password_hash"`
	Role           roles.Role `json:"role" db:"role"`
	DepartmentID   int        `json:"department_id" db:"department_id"`
	HospitalID     int        `json:"hospital_id" db:"hospital_id"`
	OrganizationID int        `json:"organization_id" db:"organization_id"`
}

// Actor is the resolved identity attached to every inbound workflow call.
type Actor struct {
	UserID         int
	Role           roles.Role
	DepartmentID   int
	HospitalID     int
	OrganizationID int
}
