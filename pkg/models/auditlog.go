package models

import "time"

type AuditLog struct {
	ID           int       `json:"id" db:"id"`
	ResourceID   int       `json:"resource_id,omitempty" db:"resource_id"`
	ResourceUUID string    `json:"resource_uuid,omitempty" db:"resource_uuid"`
	ResourceType string    `json:"resource_type" db:"resource_type"`
	Action       string    `json:"action" db:"action"`
	Data         []byte    `json:"data,omitempty" db:"data"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}
