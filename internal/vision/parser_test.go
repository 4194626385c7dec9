package vision

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"wealth-tracker-go/internal/models"
)

func TestDecodeCandidates(t *testing.T) {
	t.Run("BrokerageAndFundRows", func(t *testing.T) {
		raw := `[
			{"symbol": "600519", "name": "贵州茅台", "asset_type": "stock", "quantity": 100, "amount": 180000.0, "purchase_price": 1700.0, "current_price": 1800.0},
			{"symbol": "", "name": "广发科创50联接A", "asset_type": "fund", "quantity": 0, "amount": 16002.00, "profit": 5448.06}
		]`

		candidates, err := decodeCandidates(raw)

		assert.NoError(t, err)
		assert.Len(t, candidates, 2)
		assert.Equal(t, "600519", candidates[0].Symbol)
		assert.Equal(t, models.AssetTypeStock, candidates[0].AssetType)
		assert.Equal(t, 1800.0, candidates[0].CurrentPrice)
		assert.Equal(t, "", candidates[1].Symbol)
		assert.Equal(t, 16002.00, candidates[1].Amount)
		assert.Equal(t, 5448.06, candidates[1].Profit)
	})

	t.Run("StripsMarkdownFences", func(t *testing.T) {
		raw := "```json\n[{\"symbol\": \"600171\", \"name\": \"上海贝岭\", \"asset_type\": \"stock\", \"quantity\": 300}]\n```"

		candidates, err := decodeCandidates(raw)

		assert.NoError(t, err)
		assert.Len(t, candidates, 1)
		assert.Equal(t, "上海贝岭", candidates[0].Name)
	})

	t.Run("DropsRowsWithoutName", func(t *testing.T) {
		raw := `[{"symbol": "600171", "asset_type": "stock"}, {"name": "有名字", "asset_type": "fund"}]`

		candidates, err := decodeCandidates(raw)

		assert.NoError(t, err)
		assert.Len(t, candidates, 1)
		assert.Equal(t, "有名字", candidates[0].Name)
	})

	t.Run("UnknownTypeDefaultsToStock", func(t *testing.T) {
		raw := `[{"name": "神秘资产", "asset_type": "crypto"}]`

		candidates, err := decodeCandidates(raw)

		assert.NoError(t, err)
		assert.Equal(t, models.AssetTypeStock, candidates[0].AssetType)
	})

	t.Run("CashQuantityDefaultsToAmount", func(t *testing.T) {
		raw := `[{"name": "活期存款", "asset_type": "cash", "quantity": 0, "amount": 50000}]`

		candidates, err := decodeCandidates(raw)

		assert.NoError(t, err)
		assert.Equal(t, 50000.0, candidates[0].Quantity)
	})

	t.Run("CoercesStringNumbers", func(t *testing.T) {
		raw := `[{"name": "某基金", "asset_type": "fund", "amount": "16,002.00", "profit": "+5,448.06"}]`

		candidates, err := decodeCandidates(raw)

		assert.NoError(t, err)
		assert.Equal(t, 16002.00, candidates[0].Amount)
		assert.Equal(t, 5448.06, candidates[0].Profit)
	})

	t.Run("MalformedOutput", func(t *testing.T) {
		_, err := decodeCandidates("I could not find any assets in this image.")

		assert.Error(t, err)
	})
}
