package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AssetType is the category of a holding. It determines both the valuation
// strategy and the price resolution path.
type AssetType string

const (
	AssetTypeCash  AssetType = "cash"
	AssetTypeStock AssetType = "stock"
	AssetTypeFund  AssetType = "fund"
	AssetTypeBond  AssetType = "bond"
	AssetTypeGold  AssetType = "gold"
)

// ValidAssetType reports whether t is one of the supported asset types.
func ValidAssetType(t AssetType) bool {
	switch t {
	case AssetTypeCash, AssetTypeStock, AssetTypeFund, AssetTypeBond, AssetTypeGold:
		return true
	}
	return false
}

// Asset represents a single holding owned by a user.
// TotalValue must equal CurrentPrice * Quantity at rest; the reconciler
// restores this whenever any of the three changes.
type Asset struct {
	ID            string    `gorm:"primaryKey" json:"id"`
	UserID        string    `gorm:"index;not null" json:"user_id"`
	Symbol        string    `gorm:"index" json:"symbol"`
	Name          string    `json:"name"`
	AssetType     AssetType `gorm:"not null" json:"asset_type"`
	Quantity      float64   `json:"quantity"`
	PurchasePrice float64   `json:"purchase_price"`
	PurchaseDate  time.Time `json:"purchase_date"`
	CurrentPrice  float64   `json:"current_price"`
	TotalValue    float64   `json:"total_value"`
	LastUpdated   time.Time `json:"last_updated"`
	CreatedAt     time.Time `json:"created_at"`
}

// BeforeCreate assigns a UUID primary key when none is set.
func (a *Asset) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	return nil
}
