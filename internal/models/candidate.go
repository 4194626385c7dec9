package models

// CandidateAsset is a transient, untrusted record extracted from a screenshot
// by the vision model. Fields are best-effort: the symbol may be empty, the
// quantity may be zero while the amount is set, and Amount may disagree with
// Quantity*CurrentPrice. Candidates are validated and reconciled before they
// ever touch storage.
type CandidateAsset struct {
	Symbol        string    `json:"symbol"`
	Name          string    `json:"name"`
	AssetType     AssetType `json:"asset_type"`
	Quantity      float64   `json:"quantity"`
	Amount        float64   `json:"amount"`
	PurchasePrice float64   `json:"purchase_price"`
	CurrentPrice  float64   `json:"current_price"`
	// Profit is the observed unrealized gain. Only fund-app screenshots
	// report it; it is used to back-derive a purchase price.
	Profit float64 `json:"profit"`
}
