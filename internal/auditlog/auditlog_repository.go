package auditlog

import (
	"encoding/json"
	"fmt"

	"github.com/doug-martin/goqu/v9"

	"github.com/ValueKare/fixed-asset-management-system-backend-sub000/internal/repository"
	"github.com/ValueKare/fixed-asset-management-system-backend-sub000/pkg/models"
)

type AuditLogRepository struct {
	Repo *repository.Repository
}

func NewRepository(r *repository.Repository) *AuditLogRepository {
	return &AuditLogRepository{Repo: r}
}

func (r *AuditLogRepository) PersistLog(entry models.AuditLog, data interface{}) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal audit payload: %w", err)
	}

	query := r.Repo.GoquDBWrapper.Insert("audit_logs").
		Rows(goqu.Record{
			"resource_id":   entry.ResourceID,
			"resource_uuid": entry.ResourceUUID,
			"resource_type": entry.ResourceType,
			"action":        entry.Action,
			"data":          payload,
		})

	if _, err := query.Executor().Exec(); err != nil {
		return fmt.Errorf("failed to insert audit log: %w", err)
	}

	return nil
}

func (r *AuditLogRepository) GetLogsForResource(resourceType string, resourceUUID string) (*[]models.AuditLog, error) {
	var logs []models.AuditLog

	query := r.Repo.GoquDBWrapper.
		From("audit_logs").
		Where(goqu.Ex{"resource_type": resourceType, "resource_uuid": resourceUUID}).
		Order(goqu.C("created_at").Desc())

	if err := query.Executor().ScanStructs(&logs); err != nil {
		return nil, fmt.Errorf("error executing SQL statement: %w", err)
	}

	return &logs, nil
}
