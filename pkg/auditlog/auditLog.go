package auditlog

import (
	"go.uber.org/zap"

	"github.com/ValueKare/fixed-asset-management-system-backend-sub000/pkg/models"
)

// AuditRepository persists audit entries. Failures are logged and never
// propagate into workflow transitions.
type AuditRepository interface {
	PersistLog(entry models.AuditLog, data interface{}) error
}

type Auditable interface {
	CreateLogView() models.AuditLog
}

type Auditlog struct {
	r   AuditRepository
	log *zap.Logger
}

func NewAuditLog(repository AuditRepository, log *zap.Logger) *Auditlog {
	return &Auditlog{r: repository, log: log}
}

func (a *Auditlog) Log(action string, data interface{}, item Auditable) {
	auditLog := item.CreateLogView()
	auditLog.Action = action

	err := a.r.PersistLog(auditLog, data)
	if err != nil {
		a.log.Warn("unable to create audit log entry",
			zap.String("resource_type", auditLog.ResourceType),
			zap.String("action", action),
			zap.Error(err),
		)
		return
	}
}
