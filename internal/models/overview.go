package models

// Overview sums resolved asset values per class.
type Overview struct {
	TotalValue  float64 `json:"total_value"`
	CashValue   float64 `json:"cash_value"`
	StockValue  float64 `json:"stock_value"`
	FundValue   float64 `json:"fund_value"`
	BondValue   float64 `json:"bond_value"`
	GoldValue   float64 `json:"gold_value"`
	DailyChange float64 `json:"daily_change"`
}

// RebalancingSuggestion is a single buy/sell action toward the target
// allocation.
type RebalancingSuggestion struct {
	Action    string  `json:"action"` // "buy" or "sell"
	AssetType string  `json:"asset_type"`
	Amount    float64 `json:"amount"`
	Reason    string  `json:"reason"`
}

// RebalancingResponse compares the current allocation against the fixed
// target and carries the resulting suggestions.
type RebalancingResponse struct {
	CurrentAllocation map[string]float64      `json:"current_allocation"`
	TargetAllocation  map[string]float64      `json:"target_allocation"`
	Suggestions       []RebalancingSuggestion `json:"suggestions"`
	ExpectedReturn    float64                 `json:"expected_return"`
}

// DailyReport is a coarse portfolio health summary.
type DailyReport struct {
	ReportDate      string             `json:"report_date"`
	TotalAssets     float64            `json:"total_assets"`
	AssetAllocation map[string]float64 `json:"asset_allocation"`
	HealthScore     int                `json:"health_score"`
	RiskAssessment  string             `json:"risk_assessment"`
	Recommendations []string           `json:"recommendations"`
}
