package approval

import (
	"time"

	custom_error "github.com/ValueKare/fixed-asset-management-system-backend-sub000/pkg/errors"
	"github.com/ValueKare/fixed-asset-management-system-backend-sub000/pkg/metadata"
	"github.com/ValueKare/fixed-asset-management-system-backend-sub000/pkg/models"
)

// Engine computes legal stage transitions. It is pure: it validates the
// actor against the request and returns the transition to persist, leaving
// the conditional write to the request store.
type Engine struct {
	chain    *Chain
	resolver *RoleResolver
	clock    func() time.Time
}

func NewEngine(chain *Chain, resolver *RoleResolver) *Engine {
	return &Engine{
		chain:    chain,
		resolver: resolver,
		clock:    time.Now,
	}
}

// WithClock overrides the time source, used by tests.
func (e *Engine) WithClock(clock func() time.Time) *Engine {
	e.clock = clock
	return e
}

func (e *Engine) Chain() *Chain {
	return e.chain
}

func (e *Engine) Resolver() *RoleResolver {
	return e.resolver
}

// Transition is the computed outcome of a decision: the step to record at
// the stage key, and the level/status the request moves to.
type Transition struct {
	Stage       metadata.Stage
	Step        models.ApprovalStep
	NextLevel   metadata.Stage
	FinalStatus metadata.FinalStatus
	ActionAt    time.Time
}

func (e *Engine) Approve(request *models.Request, actor models.Actor, remarks string) (*Transition, error) {
	if err := e.checkActor(request, actor); err != nil {
		return nil, err
	}

	now := e.clock()
	transition := &Transition{
		Stage: request.CurrentLevel,
		Step: models.ApprovalStep{
			Status:     metadata.StageApproved,
			ApprovedBy: &actor.UserID,
			Date:       &now,
			Remarks:    remarks,
		},
		ActionAt: now,
	}

	// Transfers are a single-stage model: approval is the only gate and
	// the request stays open until its assets are fulfilled.
	if request.RequestType == metadata.RequestAssetTransfer {
		transition.NextLevel = request.CurrentLevel
		transition.FinalStatus = metadata.FinalPending
		return transition, nil
	}

	successor, err := e.chain.Successor(request.CurrentLevel)
	if err != nil {
		return nil, err
	}

	transition.NextLevel = successor
	if successor == metadata.StageCompleted {
		transition.FinalStatus = metadata.FinalApproved
	} else {
		transition.FinalStatus = metadata.FinalPending
	}

	return transition, nil
}

func (e *Engine) Reject(request *models.Request, actor models.Actor, remarks string) (*Transition, error) {
	if err := e.checkActor(request, actor); err != nil {
		return nil, err
	}

	now := e.clock()
	return &Transition{
		Stage: request.CurrentLevel,
		Step: models.ApprovalStep{
			Status:     metadata.StageStepRejected,
			ApprovedBy: &actor.UserID,
			Date:       &now,
			Remarks:    remarks,
		},
		NextLevel:   metadata.StageRejected,
		FinalStatus: metadata.FinalRejected,
		ActionAt:    now,
	}, nil
}

// Escalate skips the current stage after an SLA breach. It never closes a
// request: escalating past the final stage is not allowed, so finalStatus
// is untouched. Returns nil when escalation is a no-op.
func (e *Engine) Escalate(request *models.Request) (*Transition, error) {
	if request.FinalStatus != metadata.FinalPending || request.IsTerminal() {
		return nil, nil
	}

	if request.CurrentLevel == e.chain.Last() {
		// The final gate always needs a human decision.
		return nil, nil
	}

	// A transfer carries a single-stage flow; skipping it would bypass
	// its only human gate.
	if request.RequestType == metadata.RequestAssetTransfer {
		return nil, nil
	}

	successor, err := e.chain.Successor(request.CurrentLevel)
	if err != nil {
		return nil, err
	}

	now := e.clock()
	return &Transition{
		Stage: request.CurrentLevel,
		Step: models.ApprovalStep{
			Status:  metadata.StageSkipped,
			Date:    &now,
			Remarks: "Escalated after SLA window elapsed",
		},
		NextLevel:   successor,
		FinalStatus: request.FinalStatus,
		ActionAt:    now,
	}, nil
}

func (e *Engine) checkActor(request *models.Request, actor models.Actor) error {
	if request.FinalStatus != metadata.FinalPending || request.IsTerminal() {
		return custom_error.NewAlreadyClosedError(request.ID.String())
	}

	stage, ok := e.resolver.StageFor(actor.Role)
	if !ok {
		return custom_error.NewStageMismatchError("none", request.CurrentLevel.String())
	}
	if stage != request.CurrentLevel {
		return custom_error.NewStageMismatchError(stage.String(), request.CurrentLevel.String())
	}

	if actor.OrganizationID != request.Scope.OrganizationID {
		return custom_error.NewOutOfScopeError("actor organization does not match request scope")
	}

	return nil
}
