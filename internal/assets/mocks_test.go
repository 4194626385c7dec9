package assets

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"wealth-tracker-go/internal/models"
)

// MockMarketData is a mock implementation of market.DataInterface.
type MockMarketData struct {
	mock.Mock
}

func (m *MockMarketData) CurrentPrice(ctx context.Context, symbol string, assetType models.AssetType) (float64, error) {
	args := m.Called(symbol, assetType)
	return args.Get(0).(float64), args.Error(1)
}

func (m *MockMarketData) SearchFundCode(ctx context.Context, name string) (string, error) {
	args := m.Called(name)
	return args.String(0), args.Error(1)
}

func (m *MockMarketData) AssetName(ctx context.Context, symbol string, assetType models.AssetType) (string, error) {
	args := m.Called(symbol, assetType)
	return args.String(0), args.Error(1)
}

// MockParser is a mock implementation of vision.ParserInterface.
type MockParser struct {
	mock.Mock
}

func (m *MockParser) ParseScreenshot(ctx context.Context, image []byte) ([]models.CandidateAsset, error) {
	args := m.Called(image)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.CandidateAsset), args.Error(1)
}

// setupService creates a service over a fresh in-memory database.
func setupService(t *testing.T) (*Service, *MockMarketData, *MockParser, *gorm.DB) {
	// Use a new, non-shared in-memory database for each test to ensure isolation.
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	assert.NoError(t, err)
	assert.NoError(t, db.AutoMigrate(&models.Asset{}))

	mockMarket := new(MockMarketData)
	mockParser := new(MockParser)
	svc := NewService(zap.NewNop(), db, mockMarket, mockParser)
	return svc, mockMarket, mockParser, db
}
