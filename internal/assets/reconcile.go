package assets

import (
	"context"
	"math"

	"go.uber.org/zap"

	"wealth-tracker-go/internal/models"
)

// reconciled is a completed value triple plus purchase price. After
// reconciliation TotalValue == CurrentPrice * Quantity holds exactly.
type reconciled struct {
	Quantity      float64
	CurrentPrice  float64
	TotalValue    float64
	PurchasePrice float64
}

// reconcileValues restores the quantity/price/total invariant from a
// possibly-inconsistent candidate. fallbackPrice is the stored price when
// updating an existing record and 0 when creating a new one.
//
// Resolution order for the unit price: a positive observed price wins,
// then a market lookup, then amount/quantity when both are positive, then
// the fallback. A zero quantity is back-derived from amount/price when
// possible; for stocks the derived quantity is rounded to whole units,
// since fractional shares out of OCR are measurement noise.
func (s *Service) reconcileValues(ctx context.Context, cand *models.CandidateAsset, fallbackPrice float64) reconciled {
	qty := cand.Quantity
	price := cand.CurrentPrice

	if price <= 0 {
		resolvedPrice, err := s.market.CurrentPrice(ctx, cand.Symbol, cand.AssetType)
		switch {
		case err == nil:
			price = resolvedPrice
		case qty > 0 && cand.Amount > 0:
			price = cand.Amount / qty
		default:
			s.logger.Debug("price unresolved, using fallback",
				zap.String("symbol", cand.Symbol),
				zap.Float64("fallback", fallbackPrice),
			)
			price = fallbackPrice
		}
	}

	if qty == 0 && cand.Amount > 0 && price > 0 {
		qty = cand.Amount / price
		if cand.AssetType == models.AssetTypeStock {
			qty = math.Round(qty)
		}
	}

	// Never trust an observed total; recompute it from the final pair.
	total := price * qty

	purchase := cand.PurchasePrice
	if purchase <= 0 {
		if cand.Profit != 0 && cand.Amount > 0 && qty > 0 {
			// Fund-app screenshots report amount and profit only; the cost
			// basis is what remains after removing the gain.
			purchase = (cand.Amount - cand.Profit) / qty
		} else {
			// No cost data at all: assume break-even.
			purchase = price
		}
	}

	return reconciled{
		Quantity:      qty,
		CurrentPrice:  price,
		TotalValue:    total,
		PurchasePrice: purchase,
	}
}
