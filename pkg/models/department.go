package models

type Department struct {
	ID         int    `json:"id" db:"id"`
	Name       string `json:"name" db:"name"`
	HospitalID int    `json:"hospital_id" db:"hospital_id"`
}

type Hospital struct {
	ID             int    `json:"id" db:"id"`
	Name           string `json:"name" db:"name"`
	OrganizationID int    `json:"organization_id" db:"organization_id"`
}
