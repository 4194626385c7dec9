package assets

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"wealth-tracker-go/internal/market"
	"wealth-tracker-go/internal/models"
	"wealth-tracker-go/internal/vision"
)

var (
	// ErrNotFound means the record does not exist or is not owned by the
	// requesting user; the two are indistinguishable on purpose.
	ErrNotFound = errors.New("asset not found")
	// ErrPriceUnavailable is returned by an explicit manual refresh when
	// every external source failed; the caller may retry later.
	ErrPriceUnavailable = errors.New("failed to fetch latest price from external source")
	// ErrNoCandidates means the vision extractor produced nothing usable.
	ErrNoCandidates = errors.New("failed to parse assets from image")
	// ErrInvalidAssetType rejects unknown asset classes at the boundary.
	ErrInvalidAssetType = errors.New("invalid asset type")
)

// Service owns the asset collection: CRUD, price refresh, screenshot
// import, overview and rebalancing. Every operation is scoped to an owning
// user id.
type Service struct {
	logger *zap.Logger
	db     *gorm.DB
	market market.DataInterface
	parser vision.ParserInterface
}

// NewService creates the asset service with its collaborators injected.
func NewService(logger *zap.Logger, db *gorm.DB, marketData market.DataInterface, parser vision.ParserInterface) *Service {
	return &Service{
		logger: logger,
		db:     db,
		market: marketData,
		parser: parser,
	}
}

// ListAssets returns all assets owned by the user.
func (s *Service) ListAssets(ctx context.Context, userID string) ([]models.Asset, error) {
	var assets []models.Asset
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).Find(&assets).Error; err != nil {
		return nil, fmt.Errorf("failed to list assets: %w", err)
	}
	return assets, nil
}

// CreateAssetInput is a manual asset entry.
type CreateAssetInput struct {
	Symbol        string           `json:"symbol"`
	Name          string           `json:"name"`
	AssetType     models.AssetType `json:"asset_type"`
	Quantity      float64          `json:"quantity"`
	PurchasePrice float64          `json:"purchase_price"`
	PurchaseDate  time.Time        `json:"purchase_date"`
}

// CreateAsset stores a manually entered asset, resolving an initial price.
// When resolution fails the purchase price stands in as the current price,
// so a freshly created record is never silently worthless.
func (s *Service) CreateAsset(ctx context.Context, userID string, in CreateAssetInput) (*models.Asset, error) {
	if !models.ValidAssetType(in.AssetType) {
		return nil, ErrInvalidAssetType
	}

	currentPrice := 0.0
	if price, err := s.market.CurrentPrice(ctx, in.Symbol, in.AssetType); err == nil {
		currentPrice = price
	}
	if currentPrice == 0 && in.PurchasePrice > 0 {
		currentPrice = in.PurchasePrice
	}

	now := time.Now()
	purchaseDate := in.PurchaseDate
	if purchaseDate.IsZero() {
		purchaseDate = now
	}

	asset := models.Asset{
		UserID:        userID,
		Symbol:        in.Symbol,
		Name:          in.Name,
		AssetType:     in.AssetType,
		Quantity:      in.Quantity,
		PurchasePrice: in.PurchasePrice,
		PurchaseDate:  purchaseDate,
		CurrentPrice:  currentPrice,
		TotalValue:    currentPrice * in.Quantity,
		LastUpdated:   now,
	}
	if err := s.db.WithContext(ctx).Create(&asset).Error; err != nil {
		return nil, fmt.Errorf("failed to create asset: %w", err)
	}
	return &asset, nil
}

// UpdateAssetInput carries the mutable fields; nil means "leave as is".
// The asset type is immutable once created.
type UpdateAssetInput struct {
	Symbol        *string    `json:"symbol"`
	Name          *string    `json:"name"`
	Quantity      *float64   `json:"quantity"`
	PurchasePrice *float64   `json:"purchase_price"`
	PurchaseDate  *time.Time `json:"purchase_date"`
}

// UpdateAsset applies a partial update. A symbol change re-resolves the
// current price and, when no name was supplied, the display name. Any
// change to quantity, price or symbol recomputes the total value.
func (s *Service) UpdateAsset(ctx context.Context, userID, assetID string, in UpdateAssetInput) (*models.Asset, error) {
	existing, err := s.getOwned(ctx, userID, assetID)
	if err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if in.Name != nil {
		updates["name"] = *in.Name
	}
	if in.Quantity != nil {
		updates["quantity"] = *in.Quantity
	}
	if in.PurchasePrice != nil {
		updates["purchase_price"] = *in.PurchasePrice
	}
	if in.PurchaseDate != nil {
		updates["purchase_date"] = *in.PurchaseDate
	}

	if in.Symbol != nil {
		updates["symbol"] = *in.Symbol
		if price, err := s.market.CurrentPrice(ctx, *in.Symbol, existing.AssetType); err == nil {
			updates["current_price"] = price
			if in.Name == nil {
				if name, err := s.market.AssetName(ctx, *in.Symbol, existing.AssetType); err == nil && name != "" {
					updates["name"] = name
				}
			}
		}
	}

	_, qtyChanged := updates["quantity"]
	_, priceChanged := updates["current_price"]
	if qtyChanged || priceChanged || in.Symbol != nil {
		qty := existing.Quantity
		if in.Quantity != nil {
			qty = *in.Quantity
		}
		price := existing.CurrentPrice
		if p, ok := updates["current_price"].(float64); ok {
			price = p
		}
		updates["total_value"] = price * qty
		updates["last_updated"] = time.Now()
	}

	if err := s.db.WithContext(ctx).Model(&models.Asset{}).Where("id = ?", existing.ID).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("failed to update asset: %w", err)
	}
	return s.getOwned(ctx, userID, assetID)
}

// DeleteAsset removes a single asset owned by the user.
func (s *Service) DeleteAsset(ctx context.Context, userID, assetID string) error {
	res := s.db.WithContext(ctx).Where("id = ? AND user_id = ?", assetID, userID).Delete(&models.Asset{})
	if res.Error != nil {
		return fmt.Errorf("failed to delete asset: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// BatchDeleteAssets removes the listed assets, skipping ids that do not
// exist or belong to someone else, and reports how many were deleted.
func (s *Service) BatchDeleteAssets(ctx context.Context, userID string, assetIDs []string) (int64, error) {
	res := s.db.WithContext(ctx).Where("id IN ? AND user_id = ?", assetIDs, userID).Delete(&models.Asset{})
	if res.Error != nil {
		return 0, fmt.Errorf("failed to batch delete assets: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// RefreshAsset forces a price refresh of one asset. Unlike the passive
// overview path, resolution failure here surfaces as ErrPriceUnavailable
// so the caller knows the explicit refresh did nothing.
func (s *Service) RefreshAsset(ctx context.Context, userID, assetID string) (*models.Asset, error) {
	asset, err := s.getOwned(ctx, userID, assetID)
	if err != nil {
		return nil, err
	}

	price, err := s.market.CurrentPrice(ctx, asset.Symbol, asset.AssetType)
	if err != nil {
		return nil, ErrPriceUnavailable
	}

	asset.CurrentPrice = price
	asset.TotalValue = price * asset.Quantity
	asset.LastUpdated = time.Now()
	if err := s.db.WithContext(ctx).Model(&models.Asset{}).Where("id = ?", asset.ID).Updates(map[string]any{
		"current_price": asset.CurrentPrice,
		"total_value":   asset.TotalValue,
		"last_updated":  asset.LastUpdated,
	}).Error; err != nil {
		return nil, fmt.Errorf("failed to persist refreshed price: %w", err)
	}
	return asset, nil
}

// RefreshAllAssets refreshes every asset of the user, one at a time. An
// unresolved price keeps the stored record untouched; a single source
// failure never aborts the batch.
func (s *Service) RefreshAllAssets(ctx context.Context, userID string) ([]models.Asset, error) {
	assets, err := s.ListAssets(ctx, userID)
	if err != nil {
		return nil, err
	}

	refreshed := make([]models.Asset, 0, len(assets))
	for _, asset := range assets {
		price, err := s.market.CurrentPrice(ctx, asset.Symbol, asset.AssetType)
		if err != nil {
			s.logger.Warn("keeping stored price, refresh failed",
				zap.String("symbol", asset.Symbol),
				zap.String("asset_id", asset.ID),
			)
			refreshed = append(refreshed, asset)
			continue
		}

		asset.CurrentPrice = price
		asset.TotalValue = price * asset.Quantity
		asset.LastUpdated = time.Now()
		if err := s.db.WithContext(ctx).Model(&models.Asset{}).Where("id = ?", asset.ID).Updates(map[string]any{
			"current_price": asset.CurrentPrice,
			"total_value":   asset.TotalValue,
			"last_updated":  asset.LastUpdated,
		}).Error; err != nil {
			s.logger.Error("failed to persist refreshed price",
				zap.String("asset_id", asset.ID),
				zap.Error(err),
			)
			continue
		}
		refreshed = append(refreshed, asset)
	}
	return refreshed, nil
}

// getOwned fetches an asset by id, enforcing ownership.
func (s *Service) getOwned(ctx context.Context, userID, assetID string) (*models.Asset, error) {
	var asset models.Asset
	err := s.db.WithContext(ctx).Where("id = ? AND user_id = ?", assetID, userID).First(&asset).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch asset: %w", err)
	}
	return &asset, nil
}
