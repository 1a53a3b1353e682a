package container

import (
	"database/sql"
	"os"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/ValueKare/fixed-asset-management-system-backend-sub000/internal/approval"
	"github.com/ValueKare/fixed-asset-management-system-backend-sub000/internal/assets"
	auditLogRepo "github.com/ValueKare/fixed-asset-management-system-backend-sub000/internal/auditlog"
	"github.com/ValueKare/fixed-asset-management-system-backend-sub000/internal/departments"
	"github.com/ValueKare/fixed-asset-management-system-backend-sub000/internal/escalation"
	"github.com/ValueKare/fixed-asset-management-system-backend-sub000/internal/notifications"
	"github.com/ValueKare/fixed-asset-management-system-backend-sub000/internal/repository"
	"github.com/ValueKare/fixed-asset-management-system-backend-sub000/internal/requests"
	"github.com/ValueKare/fixed-asset-management-system-backend-sub000/internal/reservation"
	"github.com/ValueKare/fixed-asset-management-system-backend-sub000/internal/users"
	"github.com/ValueKare/fixed-asset-management-system-backend-sub000/pkg/auditlog"
	"github.com/ValueKare/fixed-asset-management-system-backend-sub000/pkg/security"
)

type Container struct {
	Repository        *repository.Repository
	AuditLog          *auditlog.Auditlog
	LoginHandler      *security.LoginHandler
	AssetHandler      *assets.AssetHandler
	RequestHandler    *requests.RequestHandler
	DepartmentHandler *departments.DepartmentHandler
	UserHandler       *users.UsersHandler
	RequestService    *requests.RequestService
	Scheduler         *escalation.Scheduler
	Notifier          notifications.Notifier
}

func NewAppContainer(db *sql.DB, log *zap.Logger) (*Container, error) {
	repo := repository.NewRepository(db)

	auditRepo := auditLogRepo.NewRepository(repo)
	auditLog := auditlog.NewAuditLog(auditRepo, log)

	ledger := assets.NewRepository(repo)
	assetService := assets.NewAssetService(ledger)
	assetHandler := assets.NewAssetHandler(ledger, assetService, auditLog)

	requestRepo := requests.NewRepository(repo)

	chain, err := chainFromEnv()
	if err != nil {
		return nil, err
	}
	engine := approval.NewEngine(chain, approval.DefaultRoleResolver())

	coordinator := reservation.NewCoordinator(repo, ledger, requestRepo, log)
	notifier := notifierFromEnv(log)

	requestService := requests.NewRequestService(
		repo, requestRepo, engine, coordinator, notifier, auditLog, log, escalationDefaultsFromEnv())
	requestHandler := requests.NewHandler(requestService, auditLog, auditRepo)

	scheduler := escalation.NewScheduler(
		requestRepo, requestService, chain.Stages(), sweepIntervalFromEnv(), log)

	departmentRepo := departments.NewDepartmentRepository(repo)
	departmentHandler := departments.NewDepartmentHandler(departmentRepo)

	userRepo := users.NewRepository(repo)
	userHandler := users.NewHandler(userRepo)

	loginHandler := security.NewLoginHandler(repo)

	return &Container{
		Repository:        repo,
		AuditLog:          auditLog,
		LoginHandler:      loginHandler,
		AssetHandler:      assetHandler,
		RequestHandler:    requestHandler,
		DepartmentHandler: departmentHandler,
		UserHandler:       userHandler,
		RequestService:    requestService,
		Scheduler:         scheduler,
		Notifier:          notifier,
	}, nil
}

// chainFromEnv builds the approval chain from APPROVAL_CHAIN, a comma
// separated stage list, falling back to the canonical three-stage chain.
func chainFromEnv() (*approval.Chain, error) {
	spec := os.Getenv("APPROVAL_CHAIN")
	if spec == "" {
		return approval.CanonicalChain(), nil
	}
	return approval.ParseChain(spec, os.Getenv("APPROVAL_CROSS_HOSPITAL_ENTRY"))
}

func notifierFromEnv(log *zap.Logger) notifications.Notifier {
	amqpURL := os.Getenv("AMQP_URL")
	if amqpURL == "" {
		return notifications.NoopNotifier{}
	}

	exchange := os.Getenv("AMQP_EXCHANGE")
	if exchange == "" {
		exchange = "asset_requests"
	}

	notifier, err := notifications.NewAMQPNotifier(amqpURL, exchange, log)
	if err != nil {
		log.Warn("AMQP notifier unavailable, stage change events disabled", zap.Error(err))
		return notifications.NoopNotifier{}
	}
	return notifier
}

func escalationDefaultsFromEnv() requests.EscalationDefaults {
	defaults := requests.EscalationDefaults{Enabled: true, AfterHours: 24}

	if raw := os.Getenv("ESCALATION_ENABLED"); raw != "" {
		if enabled, err := strconv.ParseBool(raw); err == nil {
			defaults.Enabled = enabled
		}
	}
	if raw := os.Getenv("ESCALATION_AFTER_HOURS"); raw != "" {
		if hours, err := strconv.ParseFloat(raw, 64); err == nil && hours > 0 {
			defaults.AfterHours = hours
		}
	}
	return defaults
}

func sweepIntervalFromEnv() time.Duration {
	if raw := os.Getenv("ESCALATION_SWEEP_INTERVAL"); raw != "" {
		if interval, err := time.ParseDuration(raw); err == nil && interval > 0 {
			return interval
		}
	}
	return 5 * time.Minute
}
