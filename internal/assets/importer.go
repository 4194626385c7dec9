package assets

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"wealth-tracker-go/internal/models"
)

// cashSentinel is the pseudo-symbol OCR uses for cash rows; it never takes
// part in symbol matching.
const cashSentinel = "CASH"

// ImportScreenshot runs the full screenshot pipeline: extract candidates,
// complete each one (code search, price resolution, name repair, value
// reconciliation) and merge it into the user's asset collection by
// match-or-create. Records the store rejects are dropped from the result,
// not retried.
func (s *Service) ImportScreenshot(ctx context.Context, userID string, image []byte) ([]models.Asset, error) {
	candidates, err := s.parser.ParseScreenshot(ctx, image)
	if err != nil {
		s.logger.Warn("screenshot extraction failed", zap.Error(err))
		candidates = nil
	}
	if len(candidates) == 0 {
		return nil, ErrNoCandidates
	}

	imported := make([]models.Asset, 0, len(candidates))
	for i := range candidates {
		cand := &candidates[i]
		s.completeCandidate(ctx, cand)

		asset, ok := s.mergeCandidate(ctx, userID, cand)
		if ok {
			imported = append(imported, *asset)
		}
	}
	return imported, nil
}

// completeCandidate fills in what the screenshot could not provide: a fund
// code searched by name (with an early quantity/cost back-derivation, since
// fund-app screenshots report money amounts rather than quantities), and a
// repaired display name when the OCR one is unreliable.
func (s *Service) completeCandidate(ctx context.Context, cand *models.CandidateAsset) {
	if cand.Symbol == "" && cand.Name != "" && cand.AssetType == models.AssetTypeFund {
		code, err := s.market.SearchFundCode(ctx, cand.Name)
		if err == nil {
			cand.Symbol = code
			s.logger.Info("resolved fund code from name",
				zap.String("name", cand.Name),
				zap.String("code", code),
			)

			price, err := s.market.CurrentPrice(ctx, code, models.AssetTypeFund)
			if err == nil && price > 0 {
				cand.CurrentPrice = price
				if cand.Amount > 0 {
					qty := cand.Amount / price
					cand.Quantity = qty
					if qty > 0 {
						cand.PurchasePrice = (cand.Amount - cand.Profit) / qty
					}
				}
			}
		}
	}

	if unreliableName(cand.Name, cand.Symbol) {
		if name, err := s.market.AssetName(ctx, cand.Symbol, cand.AssetType); err == nil && name != "" {
			cand.Name = name
		}
	}
}

// mergeCandidate matches the candidate against existing records and either
// updates the match or creates a new asset. The returned bool is false when
// the record was dropped.
func (s *Service) mergeCandidate(ctx context.Context, userID string, cand *models.CandidateAsset) (*models.Asset, bool) {
	// Match by (user, symbol) when a real symbol exists, else by
	// (user, name). Multiple name matches are possible; taking the first
	// is the explicit policy.
	query := s.db.WithContext(ctx).Where("user_id = ?", userID)
	if cand.Symbol != "" && !strings.EqualFold(cand.Symbol, cashSentinel) {
		query = query.Where("symbol = ?", cand.Symbol)
	} else {
		query = query.Where("name = ?", cand.Name)
	}

	var existing models.Asset
	err := query.First(&existing).Error
	switch {
	case err == nil:
		return s.updateMatched(ctx, cand, &existing)
	case errors.Is(err, gorm.ErrRecordNotFound):
		return s.createFromCandidate(ctx, userID, cand)
	default:
		s.logger.Error("asset lookup failed during import",
			zap.String("symbol", cand.Symbol),
			zap.Error(err),
		)
		return nil, false
	}
}

func (s *Service) updateMatched(ctx context.Context, cand *models.CandidateAsset, existing *models.Asset) (*models.Asset, bool) {
	rec := s.reconcileValues(ctx, cand, existing.CurrentPrice)

	updates := map[string]any{
		"quantity":      rec.Quantity,
		"current_price": rec.CurrentPrice,
		"total_value":   rec.TotalValue,
		"last_updated":  time.Now(),
	}
	if cand.Name != "" && cand.Name != existing.Name {
		updates["name"] = cand.Name
	}
	// Never overwrite a good cost basis with a missing one.
	if cand.PurchasePrice > 0 {
		updates["purchase_price"] = cand.PurchasePrice
	}

	res := s.db.WithContext(ctx).Model(&models.Asset{}).Where("id = ?", existing.ID).Updates(updates)
	if res.Error != nil || res.RowsAffected == 0 {
		s.logger.Warn("store rejected imported update, dropping record",
			zap.String("asset_id", existing.ID),
			zap.Error(res.Error),
		)
		return nil, false
	}

	var updated models.Asset
	if err := s.db.WithContext(ctx).Where("id = ?", existing.ID).First(&updated).Error; err != nil {
		return nil, false
	}
	return &updated, true
}

func (s *Service) createFromCandidate(ctx context.Context, userID string, cand *models.CandidateAsset) (*models.Asset, bool) {
	rec := s.reconcileValues(ctx, cand, 0)

	now := time.Now()
	asset := models.Asset{
		UserID:        userID,
		Symbol:        cand.Symbol,
		Name:          cand.Name,
		AssetType:     cand.AssetType,
		Quantity:      rec.Quantity,
		PurchasePrice: rec.PurchasePrice,
		PurchaseDate:  now,
		CurrentPrice:  rec.CurrentPrice,
		TotalValue:    rec.TotalValue,
		LastUpdated:   now,
	}
	if err := s.db.WithContext(ctx).Create(&asset).Error; err != nil {
		s.logger.Warn("store rejected imported asset, dropping record",
			zap.String("symbol", cand.Symbol),
			zap.Error(err),
		)
		return nil, false
	}
	return &asset, true
}

// unreliableName reports whether a stored or OCR name needs re-resolution:
// empty, purely numeric, or just the symbol echoed back.
func unreliableName(name, symbol string) bool {
	if name == "" {
		return true
	}
	if name == symbol {
		return true
	}
	for _, r := range name {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
