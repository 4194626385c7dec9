package assets

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"wealth-tracker-go/internal/market"
	"wealth-tracker-go/internal/models"
)

func TestImportScreenshot_FundAppCandidate(t *testing.T) {
	// Arrange: a fund-app row with a name, money amounts and no code.
	svc, mockMarket, mockParser, db := setupService(t)
	image := []byte("fake-image")

	mockParser.On("ParseScreenshot", image).Return([]models.CandidateAsset{{
		Symbol:    "",
		Name:      "广发科创50联接A",
		AssetType: models.AssetTypeFund,
		Quantity:  0,
		Amount:    16002.00,
		Profit:    5448.06,
	}}, nil)
	mockMarket.On("SearchFundCode", "广发科创50联接A").Return("012345", nil)
	mockMarket.On("CurrentPrice", "012345", models.AssetTypeFund).Return(1.2, nil)

	// Act
	imported, err := svc.ImportScreenshot(context.Background(), "user-1", image)

	// Assert
	assert.NoError(t, err)
	assert.Len(t, imported, 1)
	asset := imported[0]
	assert.Equal(t, "012345", asset.Symbol)
	assert.InDelta(t, 13335.0, asset.Quantity, 1e-9)
	assert.InDelta(t, (16002.00-5448.06)/13335.0, asset.PurchasePrice, 1e-9)
	assert.Equal(t, asset.CurrentPrice*asset.Quantity, asset.TotalValue)

	var count int64
	db.Model(&models.Asset{}).Count(&count)
	assert.Equal(t, int64(1), count)
	mockMarket.AssertExpectations(t)
}

func TestImportScreenshot_Idempotent(t *testing.T) {
	// Re-importing the identical screenshot must update, never duplicate.
	svc, mockMarket, mockParser, db := setupService(t)
	image := []byte("fake-image")

	mockParser.On("ParseScreenshot", image).Return([]models.CandidateAsset{{
		Symbol:    "",
		Name:      "广发科创50联接A",
		AssetType: models.AssetTypeFund,
		Amount:    16002.00,
		Profit:    5448.06,
	}}, nil)
	mockMarket.On("SearchFundCode", "广发科创50联接A").Return("012345", nil)
	mockMarket.On("CurrentPrice", "012345", models.AssetTypeFund).Return(1.2, nil)

	_, err := svc.ImportScreenshot(context.Background(), "user-1", image)
	assert.NoError(t, err)
	imported, err := svc.ImportScreenshot(context.Background(), "user-1", image)
	assert.NoError(t, err)
	assert.Len(t, imported, 1)

	var count int64
	db.Model(&models.Asset{}).Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestImportScreenshot_MatchesByNameForCash(t *testing.T) {
	svc, mockMarket, mockParser, db := setupService(t)
	image := []byte("fake-image")

	// The CASH sentinel never participates in symbol matching.
	mockParser.On("ParseScreenshot", image).Return([]models.CandidateAsset{{
		Symbol:    "CASH",
		Name:      "活期存款",
		AssetType: models.AssetTypeCash,
		Quantity:  50000,
		Amount:    50000,
	}}, nil)
	mockMarket.On("CurrentPrice", "CASH", models.AssetTypeCash).Return(1.0, nil)

	_, err := svc.ImportScreenshot(context.Background(), "user-1", image)
	assert.NoError(t, err)
	_, err = svc.ImportScreenshot(context.Background(), "user-1", image)
	assert.NoError(t, err)

	var assets []models.Asset
	db.Find(&assets)
	assert.Len(t, assets, 1)
	assert.Equal(t, "活期存款", assets[0].Name)
	assert.Equal(t, 50000.0, assets[0].TotalValue)
}

func TestImportScreenshot_RepairsUnreliableName(t *testing.T) {
	svc, mockMarket, mockParser, _ := setupService(t)
	image := []byte("fake-image")

	// OCR echoed the symbol back as the name.
	mockParser.On("ParseScreenshot", image).Return([]models.CandidateAsset{{
		Symbol:       "600171",
		Name:         "600171",
		AssetType:    models.AssetTypeStock,
		Quantity:     300,
		CurrentPrice: 10.42,
	}}, nil)
	mockMarket.On("AssetName", "600171", models.AssetTypeStock).Return("上海贝岭", nil)

	imported, err := svc.ImportScreenshot(context.Background(), "user-1", image)

	assert.NoError(t, err)
	assert.Len(t, imported, 1)
	assert.Equal(t, "上海贝岭", imported[0].Name)
	mockMarket.AssertExpectations(t)
}

func TestImportScreenshot_UpdatePreservesCostBasis(t *testing.T) {
	svc, _, mockParser, db := setupService(t)
	image := []byte("fake-image")

	db.Create(&models.Asset{
		UserID:        "user-1",
		Symbol:        "600519",
		Name:          "贵州茅台",
		AssetType:     models.AssetTypeStock,
		Quantity:      100,
		PurchasePrice: 1700,
		CurrentPrice:  1750,
		TotalValue:    175000,
	})

	// The screenshot carries no cost price; the stored one must survive.
	mockParser.On("ParseScreenshot", image).Return([]models.CandidateAsset{{
		Symbol:       "600519",
		Name:         "贵州茅台",
		AssetType:    models.AssetTypeStock,
		Quantity:     100,
		CurrentPrice: 1800,
	}}, nil)

	imported, err := svc.ImportScreenshot(context.Background(), "user-1", image)

	assert.NoError(t, err)
	assert.Len(t, imported, 1)
	assert.Equal(t, 1700.0, imported[0].PurchasePrice)
	assert.Equal(t, 1800.0, imported[0].CurrentPrice)
	assert.Equal(t, 180000.0, imported[0].TotalValue)
}

func TestImportScreenshot_OtherUsersAssetsUntouched(t *testing.T) {
	svc, mockMarket, mockParser, db := setupService(t)
	image := []byte("fake-image")

	db.Create(&models.Asset{
		UserID:    "someone-else",
		Symbol:    "600519",
		Name:      "贵州茅台",
		AssetType: models.AssetTypeStock,
		Quantity:  999,
	})

	mockParser.On("ParseScreenshot", image).Return([]models.CandidateAsset{{
		Symbol:       "600519",
		Name:         "贵州茅台",
		AssetType:    models.AssetTypeStock,
		Quantity:     100,
		CurrentPrice: 1800,
	}}, nil)
	_ = mockMarket // no market calls expected

	imported, err := svc.ImportScreenshot(context.Background(), "user-1", image)

	assert.NoError(t, err)
	assert.Len(t, imported, 1)

	var count int64
	db.Model(&models.Asset{}).Count(&count)
	assert.Equal(t, int64(2), count)
}

func TestImportScreenshot_NoCandidates(t *testing.T) {
	t.Run("EmptyExtraction", func(t *testing.T) {
		svc, _, mockParser, _ := setupService(t)
		image := []byte("fake-image")
		mockParser.On("ParseScreenshot", image).Return([]models.CandidateAsset{}, nil)

		_, err := svc.ImportScreenshot(context.Background(), "user-1", image)

		assert.ErrorIs(t, err, ErrNoCandidates)
	})

	t.Run("ExtractorFailure", func(t *testing.T) {
		svc, _, mockParser, _ := setupService(t)
		image := []byte("fake-image")
		mockParser.On("ParseScreenshot", image).Return(nil, assert.AnError)

		_, err := svc.ImportScreenshot(context.Background(), "user-1", image)

		assert.ErrorIs(t, err, ErrNoCandidates)
	})
}

func TestImportScreenshot_CodeSearchFails(t *testing.T) {
	// With no code found the candidate still merges by name.
	svc, mockMarket, mockParser, db := setupService(t)
	image := []byte("fake-image")

	mockParser.On("ParseScreenshot", image).Return([]models.CandidateAsset{{
		Symbol:    "",
		Name:      "冷门基金C",
		AssetType: models.AssetTypeFund,
		Quantity:  100,
		Amount:    120,
	}}, nil)
	mockMarket.On("SearchFundCode", "冷门基金C").Return("", market.ErrUnresolved)
	mockMarket.On("CurrentPrice", "", models.AssetTypeFund).Return(0.0, market.ErrUnresolved)

	imported, err := svc.ImportScreenshot(context.Background(), "user-1", image)

	assert.NoError(t, err)
	assert.Len(t, imported, 1)
	// Price fell back to amount/quantity.
	assert.Equal(t, 1.2, imported[0].CurrentPrice)

	var count int64
	db.Model(&models.Asset{}).Count(&count)
	assert.Equal(t, int64(1), count)
}
