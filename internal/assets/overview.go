package assets

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"wealth-tracker-go/internal/models"
)

// rebalanceThreshold is the deviation (in percentage points) below which no
// suggestion is emitted. The comparison is strictly greater-than: an exact
// 5.0 deviation stays silent.
const rebalanceThreshold = 5.0

// expectedAnnualReturn is the assumed return of the permanent portfolio.
const expectedAnnualReturn = 0.06

// targetAllocation is the fixed permanent-portfolio split. Fund value is
// folded into stock for comparison purposes, so the buckets are four.
var targetAllocation = []struct {
	AssetType string
	Percent   float64
}{
	{"cash", 25.0},
	{"stock", 25.0},
	{"bond", 25.0},
	{"gold", 25.0},
}

// Overview re-resolves every asset's price and sums values per asset
// class. An unresolved price falls back to the stored one with a warning,
// never an error: the overview is a passive read.
func (s *Service) Overview(ctx context.Context, userID string) (*models.Overview, error) {
	assets, err := s.ListAssets(ctx, userID)
	if err != nil {
		return nil, err
	}

	overview := &models.Overview{}
	for _, asset := range assets {
		price, err := s.market.CurrentPrice(ctx, asset.Symbol, asset.AssetType)
		if err != nil {
			price = asset.CurrentPrice
			s.logger.Warn("using cached price",
				zap.String("symbol", asset.Symbol),
				zap.Float64("price", price),
			)
		}

		value := price * asset.Quantity
		overview.TotalValue += value
		switch asset.AssetType {
		case models.AssetTypeCash:
			overview.CashValue += value
		case models.AssetTypeStock:
			overview.StockValue += value
		case models.AssetTypeFund:
			overview.FundValue += value
		case models.AssetTypeBond:
			overview.BondValue += value
		case models.AssetTypeGold:
			overview.GoldValue += value
		}
	}
	return overview, nil
}

// RebalancingSuggestions compares the current allocation against the fixed
// target and emits buy/sell actions for buckets deviating by more than the
// threshold.
func (s *Service) RebalancingSuggestions(ctx context.Context, userID string) (*models.RebalancingResponse, error) {
	overview, err := s.Overview(ctx, userID)
	if err != nil {
		return nil, err
	}

	target := map[string]float64{}
	for _, t := range targetAllocation {
		target[t.AssetType] = t.Percent
	}

	if overview.TotalValue == 0 {
		return &models.RebalancingResponse{
			CurrentAllocation: map[string]float64{"cash": 0, "stock": 0, "bond": 0, "gold": 0, "fund": 0},
			TargetAllocation:  target,
			Suggestions:       []models.RebalancingSuggestion{},
			ExpectedReturn:    0,
		}, nil
	}

	total := overview.TotalValue
	current := map[string]float64{
		"cash":  overview.CashValue / total * 100,
		"stock": (overview.StockValue + overview.FundValue) / total * 100,
		"bond":  overview.BondValue / total * 100,
		"gold":  overview.GoldValue / total * 100,
	}

	suggestions := []models.RebalancingSuggestion{}
	for _, t := range targetAllocation {
		currentPct := current[t.AssetType]
		diff := t.Percent - currentPct
		if math.Abs(diff) <= rebalanceThreshold {
			continue
		}

		action := "sell"
		if diff > 0 {
			action = "buy"
		}
		amount := decimal.NewFromFloat(math.Abs(diff/100) * total).Round(2)

		suggestions = append(suggestions, models.RebalancingSuggestion{
			Action:    action,
			AssetType: t.AssetType,
			Amount:    amount.InexactFloat64(),
			Reason: fmt.Sprintf("%s allocation is %.1f%%, target is %.1f%%. Deviation: %.1f%%",
				t.AssetType, currentPct, t.Percent, diff),
		})
	}

	return &models.RebalancingResponse{
		CurrentAllocation: current,
		TargetAllocation:  target,
		Suggestions:       suggestions,
		ExpectedReturn:    expectedAnnualReturn,
	}, nil
}

// DailyReport produces a coarse portfolio health summary from the current
// overview.
func (s *Service) DailyReport(ctx context.Context, userID string) (*models.DailyReport, error) {
	overview, err := s.Overview(ctx, userID)
	if err != nil {
		return nil, err
	}

	healthScore := 80
	riskLevel := "moderate"
	if overview.TotalValue > 0 {
		cashRatio := overview.CashValue / overview.TotalValue
		if cashRatio < 0.1 {
			healthScore -= 10
			riskLevel = "high"
		} else if cashRatio > 0.5 {
			healthScore -= 5
			riskLevel = "low" // overly conservative
		}
	}

	return &models.DailyReport{
		ReportDate:  time.Now().Format("2006-01-02"),
		TotalAssets: overview.TotalValue,
		AssetAllocation: map[string]float64{
			"cash":  overview.CashValue,
			"stock": overview.StockValue + overview.FundValue,
			"bond":  overview.BondValue,
			"gold":  overview.GoldValue,
		},
		HealthScore:    healthScore,
		RiskAssessment: riskLevel,
		Recommendations: []string{
			"Review your asset allocation regularly",
			"Keep an eye on market movements",
		},
	}, nil
}
