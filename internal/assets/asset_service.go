package assets

import (
	"fmt"

	"github.com/ValueKare/fixed-asset-management-system-backend-sub000/pkg/metadata"
	"github.com/ValueKare/fixed-asset-management-system-backend-sub000/pkg/models"
)

type AssetService struct {
	ledger LedgerRepository
}

func NewAssetService(ledger LedgerRepository) *AssetService {
	return &AssetService{ledger: ledger}
}

// RegisterAsset persists a new asset and stamps it with a generated tag
// code derived from its category and id.
func (s *AssetService) RegisterAsset(req AssetRequest) (*models.Asset, error) {
	asset, err := s.ledger.PersistAsset(req)
	if err != nil {
		return nil, err
	}

	tagCode := metadata.NewTagCode(asset.CategoryCode, asset.ID)
	code := tagCode.GenerateTagCode()

	if err := s.ledger.UpdateTagCode(asset.ID, code); err != nil {
		return nil, fmt.Errorf("failed to assign tag code: %w", err)
	}
	asset.TagCode = code

	return asset, nil
}
