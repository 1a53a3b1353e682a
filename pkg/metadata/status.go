package metadata

import "fmt"

type AssetStatus string

const (
	AssetActive      AssetStatus = "active"
	AssetMaintenance AssetStatus = "maintenance"
	AssetDisposed    AssetStatus = "disposed"
)

func NewAssetStatus(value string) (AssetStatus, error) {
	status := AssetStatus(value)
	if !status.isValid() {
		return "", fmt.Errorf("invalid asset status: %s", value)
	}
	return status, nil
}

func (s AssetStatus) isValid() bool {
	switch s {
	case AssetActive, AssetMaintenance, AssetDisposed:
		return true
	default:
		return false
	}
}

type LifecycleStatus string

const (
	LifecycleActive       LifecycleStatus = "active"
	LifecyclePendingScrap LifecycleStatus = "pending_scrap"
	LifecycleScrapped     LifecycleStatus = "scrapped"
)

func NewLifecycleStatus(value string) (LifecycleStatus, error) {
	status := LifecycleStatus(value)
	if !status.isValid() {
		return "", fmt.Errorf("invalid lifecycle status: %s", value)
	}
	return status, nil
}

func (s LifecycleStatus) isValid() bool {
	switch s {
	case LifecycleActive, LifecyclePendingScrap, LifecycleScrapped:
		return true
	default:
		return false
	}
}

type UtilizationStatus string

const (
	UtilizationInUse            UtilizationStatus = "in_use"
	UtilizationNotInUse         UtilizationStatus = "not_in_use"
	UtilizationUnderMaintenance UtilizationStatus = "under_maintenance"
)

func NewUtilizationStatus(value string) (UtilizationStatus, error) {
	status := UtilizationStatus(value)
	if !status.isValid() {
		return "", fmt.Errorf("invalid utilization status: %s", value)
	}
	return status, nil
}

func (s UtilizationStatus) isValid() bool {
	switch s {
	case UtilizationInUse, UtilizationNotInUse, UtilizationUnderMaintenance:
		return true
	default:
		return false
	}
}
