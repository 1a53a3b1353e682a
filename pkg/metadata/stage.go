package metadata

import "fmt"

// Stage is a named step in the approval chain. The two terminal markers
// are valid values of CurrentLevel but never legal approval-flow keys.
type Stage string

const (
	StageLevel1    Stage = "level1"
	StageLevel2    Stage = "level2"
	StageLevel3    Stage = "level3"
	StageHOD       Stage = "hod"
	StageInventory Stage = "inventory"
	StagePurchase  Stage = "purchase"
	StageBudget    Stage = "budget"
	StageCFO       Stage = "cfo"

	StageCompleted Stage = "completed"
	StageRejected  Stage = "rejected"
)

func NewStage(value string) (Stage, error) {
	stage := Stage(value)
	if !stage.isValid() {
		return "", fmt.Errorf("invalid approval stage: %s", value)
	}
	return stage, nil
}

func (s Stage) isValid() bool {
	switch s {
	case StageLevel1, StageLevel2, StageLevel3, StageHOD, StageInventory,
		StagePurchase, StageBudget, StageCFO, StageCompleted, StageRejected:
		return true
	default:
		return false
	}
}

func (s Stage) IsTerminal() bool {
	return s == StageCompleted || s == StageRejected
}

func (s Stage) String() string {
	return string(s)
}

type StageStatus string

const (
	StagePending      StageStatus = "pending"
	StageApproved     StageStatus = "approved"
	StageStepRejected StageStatus = "rejected"
	StageSkipped      StageStatus = "skipped"
)

type FinalStatus string

const (
	FinalPending  FinalStatus = "pending"
	FinalApproved FinalStatus = "approved"
	FinalRejected FinalStatus = "rejected"
)

type RequestType string

const (
	RequestAssetTransfer RequestType = "asset_transfer"
	RequestProcurement   RequestType = "procurement"
	RequestScrap         RequestType = "scrap"
	RequestScrapReversal RequestType = "scrap_reversal"
)

func NewRequestType(value string) (RequestType, error) {
	requestType := RequestType(value)
	if !requestType.isValid() {
		return "", fmt.Errorf("invalid request type: %s", value)
	}
	return requestType, nil
}

func (t RequestType) isValid() bool {
	switch t {
	case RequestAssetTransfer, RequestProcurement, RequestScrap, RequestScrapReversal:
		return true
	default:
		return false
	}
}
