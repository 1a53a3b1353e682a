package notifications

import (
	"encoding/json"
	"time"

	"github.com/streadway/amqp"
	"go.uber.org/zap"

	"github.com/ValueKare/fixed-asset-management-system-backend-sub000/pkg/metadata"
	"github.com/ValueKare/fixed-asset-management-system-backend-sub000/pkg/models"
)

// Notifier is told about request stage changes. Implementations must never
// block or fail a workflow transition; delivery problems are logged and
// swallowed.
type Notifier interface {
	NotifyStageChanged(request *models.Request, previous metadata.Stage)
	NotifyRequestClosed(request *models.Request)
}

type NoopNotifier struct{}

func (NoopNotifier) NotifyStageChanged(*models.Request, metadata.Stage) {}

func (NoopNotifier) NotifyRequestClosed(*models.Request) {}

type stageChangedEvent struct {
	RequestID     string    `json:"request_id"`
	RequestType   string    `json:"request_type"`
	PreviousStage string    `json:"previous_stage"`
	CurrentLevel  string    `json:"current_level"`
	FinalStatus   string    `json:"final_status"`
	HospitalID    int       `json:"hospital_id"`
	DepartmentID  int       `json:"department_id"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// AMQPNotifier publishes request lifecycle events to a topic exchange so
// downstream channels (mail, dashboards) can fan out without coupling to
// the workflow engine.
type AMQPNotifier struct {
	channel  *amqp.Channel
	exchange string
	log      *zap.Logger
}

func NewAMQPNotifier(amqpURL string, exchange string, log *zap.Logger) (*AMQPNotifier, error) {
	conn, err := amqp.Dial(amqpURL)
	if err != nil {
		return nil, err
	}

	channel, err := conn.Channel()
	if err != nil {
		return nil, err
	}

	err = channel.ExchangeDeclare(exchange, "topic", true, false, false, false, nil)
	if err != nil {
		return nil, err
	}

	return &AMQPNotifier{
		channel:  channel,
		exchange: exchange,
		log:      log,
	}, nil
}

func (n *AMQPNotifier) NotifyStageChanged(request *models.Request, previous metadata.Stage) {
	n.publish("request.stage_changed", request, previous)
}

func (n *AMQPNotifier) NotifyRequestClosed(request *models.Request) {
	n.publish("request.closed", request, request.CurrentLevel)
}

func (n *AMQPNotifier) publish(routingKey string, request *models.Request, previous metadata.Stage) {
	event := stageChangedEvent{
		RequestID:     request.ID.String(),
		RequestType:   string(request.RequestType),
		PreviousStage: previous.String(),
		CurrentLevel:  request.CurrentLevel.String(),
		FinalStatus:   string(request.FinalStatus),
		HospitalID:    request.Scope.HospitalID,
		DepartmentID:  request.Scope.DepartmentID,
		OccurredAt:    time.Now(),
	}

	body, err := json.Marshal(event)
	if err != nil {
		n.log.Warn("failed to marshal notification event", zap.Error(err))
		return
	}

	err = n.channel.Publish(n.exchange, routingKey, false, false, amqp.Publishing{
		ContentType: "application/json",
		Body:        body,
	})
	if err != nil {
		n.log.Warn("failed to publish notification event",
			zap.String("routing_key", routingKey),
			zap.String("request_id", request.ID.String()),
			zap.Error(err),
		)
	}
}
