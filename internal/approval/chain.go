package approval

import (
	"strings"

	custom_error "github.com/ValueKare/fixed-asset-management-system-backend-sub000/pkg/errors"
	"github.com/ValueKare/fixed-asset-management-system-backend-sub000/pkg/metadata"
	"github.com/ValueKare/fixed-asset-management-system-backend-sub000/pkg/models"
	"github.com/ValueKare/fixed-asset-management-system-backend-sub000/pkg/roles"
)

// Chain is the ordered list of approval stages for a deployment. The
// engine never assumes a fixed length; the successor of the last stage is
// always the completed marker.
type Chain struct {
	stages             []metadata.Stage
	crossHospitalEntry metadata.Stage
}

func NewChain(stages []metadata.Stage, crossHospitalEntry metadata.Stage) (*Chain, error) {
	if len(stages) == 0 {
		return nil, custom_error.NewValidationError("approval chain must contain at least one stage")
	}

	seen := make(map[metadata.Stage]bool, len(stages))
	for _, stage := range stages {
		if stage.IsTerminal() {
			return nil, custom_error.NewValidationError("terminal marker %s cannot be a chain stage", stage)
		}
		if seen[stage] {
			return nil, custom_error.NewValidationError("duplicate stage %s in approval chain", stage)
		}
		seen[stage] = true
	}

	if !seen[crossHospitalEntry] {
		return nil, custom_error.NewValidationError("cross-hospital entry stage %s is not part of the chain", crossHospitalEntry)
	}

	return &Chain{stages: stages, crossHospitalEntry: crossHospitalEntry}, nil
}

// CanonicalChain is the default three-stage deployment.
func CanonicalChain() *Chain {
	chain, _ := NewChain(
		[]metadata.Stage{metadata.StageLevel1, metadata.StageHOD, metadata.StageCFO},
		metadata.StageLevel1,
	)
	return chain
}

// ExtendedChain is the full eight-stage deployment. Cross-hospital
// requests skip the local stages and enter at level3.
func ExtendedChain() *Chain {
	chain, _ := NewChain(
		[]metadata.Stage{
			metadata.StageLevel1, metadata.StageLevel2, metadata.StageLevel3,
			metadata.StageHOD, metadata.StageInventory, metadata.StagePurchase,
			metadata.StageBudget, metadata.StageCFO,
		},
		metadata.StageLevel3,
	)
	return chain
}

// ParseChain builds a chain from a comma-separated stage list, e.g.
// "level1,hod,cfo". An empty entry stage falls back to the first stage.
func ParseChain(spec string, crossHospitalEntry string) (*Chain, error) {
	parts := strings.Split(spec, ",")
	stages := make([]metadata.Stage, 0, len(parts))
	for _, part := range parts {
		stage, err := metadata.NewStage(strings.TrimSpace(part))
		if err != nil {
			return nil, custom_error.NewValidationError("invalid stage in chain spec: %s", part)
		}
		stages = append(stages, stage)
	}

	entry := stages[0]
	if crossHospitalEntry != "" {
		parsed, err := metadata.NewStage(strings.TrimSpace(crossHospitalEntry))
		if err != nil {
			return nil, custom_error.NewValidationError("invalid cross-hospital entry stage: %s", crossHospitalEntry)
		}
		entry = parsed
	}

	return NewChain(stages, entry)
}

func (c *Chain) Stages() []metadata.Stage {
	stages := make([]metadata.Stage, len(c.stages))
	copy(stages, c.stages)
	return stages
}

func (c *Chain) First() metadata.Stage {
	return c.stages[0]
}

func (c *Chain) Last() metadata.Stage {
	return c.stages[len(c.stages)-1]
}

// EntryFor picks the initial stage for a new request. Cross-hospital
// scoped requests skip the lower local stages.
func (c *Chain) EntryFor(scope models.Scope) metadata.Stage {
	if scope.CrossHospital() {
		return c.crossHospitalEntry
	}
	return c.First()
}

// StagesFrom lists the chain stages from entry onward; these are the legal
// approval-flow keys for a request entering at that stage.
func (c *Chain) StagesFrom(entry metadata.Stage) []metadata.Stage {
	for i, stage := range c.stages {
		if stage == entry {
			tail := make([]metadata.Stage, len(c.stages)-i)
			copy(tail, c.stages[i:])
			return tail
		}
	}
	return nil
}

func (c *Chain) Contains(stage metadata.Stage) bool {
	for _, s := range c.stages {
		if s == stage {
			return true
		}
	}
	return false
}

// Successor returns the stage after the given one; the successor of the
// last stage is the completed marker.
func (c *Chain) Successor(stage metadata.Stage) (metadata.Stage, error) {
	for i, s := range c.stages {
		if s == stage {
			if i == len(c.stages)-1 {
				return metadata.StageCompleted, nil
			}
			return c.stages[i+1], nil
		}
	}
	return "", custom_error.NewValidationError("stage %s is not part of the approval chain", stage)
}

// RoleResolver maps actor roles onto the approval stage they decide at.
// Deployment configuration, not a module-level constant.
type RoleResolver struct {
	mapping map[roles.Role]metadata.Stage
}

func NewRoleResolver(mapping map[roles.Role]metadata.Stage) *RoleResolver {
	copied := make(map[roles.Role]metadata.Stage, len(mapping))
	for role, stage := range mapping {
		copied[role] = stage
	}
	return &RoleResolver{mapping: copied}
}

// DefaultRoleResolver matches the canonical three-stage chain.
func DefaultRoleResolver() *RoleResolver {
	return NewRoleResolver(map[roles.Role]metadata.Stage{
		roles.Supervisor: metadata.StageLevel1,
		roles.HOD:        metadata.StageHOD,
		roles.CFO:        metadata.StageCFO,
	})
}

func (r *RoleResolver) StageFor(role roles.Role) (metadata.Stage, bool) {
	stage, ok := r.mapping[role]
	return stage, ok
}
