package vision

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"wealth-tracker-go/internal/config"
	"wealth-tracker-go/internal/models"
)

// ParserInterface turns screenshot bytes into loosely-typed candidate asset
// records. Implementations are best-effort: an empty list on any failure,
// never a partial panic.
type ParserInterface interface {
	ParseScreenshot(ctx context.Context, image []byte) ([]models.CandidateAsset, error)
}

const extractionPrompt = `Analyze this image carefully. It is either a brokerage position table or a
fund/payment app holdings screenshot.

Extract every asset row and return a JSON array. Notes:
1. Brokerage tables usually show columns for security code, security name,
   market value, actual quantity, cost price and market price.
2. Fund app screenshots usually show only the fund name (keep it exactly as
   displayed, including Chinese characters), the held amount and the held
   profit. There is usually no code in that case.

Fields per row:
- symbol: security code such as "600171". Empty string "" when the image
  shows no code.
- name: security or fund name exactly as displayed.
- asset_type: one of stock, fund, bond, gold, cash. Judge from the code or
  name; default to fund when unsure.
- quantity: the displayed actual/held quantity, or 0 when no quantity column
  is shown.
- amount: the displayed market value / total amount / held amount.
- profit: the displayed held profit (fund app screenshots only).
- purchase_price: the displayed cost price.
- current_price: the displayed market/latest price.

Return strictly the JSON array string with no markdown fences and no
explanation. Example:
[
  {"symbol": "600519", "name": "贵州茅台", "asset_type": "stock", "quantity": 100, "amount": 180000.0, "purchase_price": 1700.0, "current_price": 1800.0},
  {"symbol": "", "name": "广发科创50联接A", "asset_type": "fund", "quantity": 0, "amount": 16002.00, "profit": 5448.06}
]`

// GeminiParser extracts candidate assets from screenshots with a multimodal
// Gemini model.
type GeminiParser struct {
	client *genai.Client
	model  string
	logger *zap.Logger
}

var _ ParserInterface = (*GeminiParser)(nil)

// NewGeminiParser creates a screenshot parser backed by the Gemini API.
func NewGeminiParser(ctx context.Context, cfg *config.Vision, logger *zap.Logger) (*GeminiParser, error) {
	if cfg.ApiKey == "" {
		return nil, fmt.Errorf("vision api key not configured")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.ApiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create vision client: %w", err)
	}
	return &GeminiParser{
		client: client,
		model:  cfg.Model,
		logger: logger,
	}, nil
}

// ParseScreenshot sends the image and extraction prompt to the model and
// normalizes whatever comes back. Malformed model output is treated as an
// empty result, not an error; only transport-level failures propagate.
func (p *GeminiParser) ParseScreenshot(ctx context.Context, image []byte) ([]models.CandidateAsset, error) {
	contents := []*genai.Content{{
		Parts: []*genai.Part{
			{InlineData: &genai.Blob{MIMEType: "image/jpeg", Data: image}},
			{Text: extractionPrompt},
		},
	}}

	result, err := p.client.Models.GenerateContent(ctx, p.model, contents, nil)
	if err != nil {
		return nil, fmt.Errorf("vision model call failed: %w", err)
	}

	text, err := extractTextFromResponse(result)
	if err != nil {
		p.logger.Warn("vision model returned no content", zap.Error(err))
		return nil, nil
	}

	candidates, err := decodeCandidates(text)
	if err != nil {
		p.logger.Warn("failed to decode vision model output",
			zap.String("output", text),
			zap.Error(err),
		)
		return nil, nil
	}
	return candidates, nil
}

// extractTextFromResponse concatenates the text parts of the first
// candidate.
func extractTextFromResponse(result *genai.GenerateContentResponse) (string, error) {
	if len(result.Candidates) == 0 || result.Candidates[0].Content == nil || len(result.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("no content generated")
	}
	text := ""
	for _, part := range result.Candidates[0].Content.Parts {
		if part.Text != "" {
			text += part.Text
		}
	}
	return text, nil
}

// decodeCandidates parses the raw model output into validated candidate
// records. Rows without a name are dropped; unknown asset types fall back
// to stock; cash rows with only an amount get quantity = amount.
func decodeCandidates(raw string) ([]models.CandidateAsset, error) {
	// Strip markdown fences the model sometimes adds despite instructions.
	raw = strings.ReplaceAll(raw, "```json", "")
	raw = strings.ReplaceAll(raw, "```", "")
	raw = strings.TrimSpace(raw)

	var rows []map[string]any
	if err := json.Unmarshal([]byte(raw), &rows); err != nil {
		return nil, fmt.Errorf("output is not a JSON array: %w", err)
	}

	candidates := make([]models.CandidateAsset, 0, len(rows))
	for _, row := range rows {
		name := asString(row["name"])
		if name == "" {
			continue
		}

		assetType := models.AssetType(strings.ToLower(asString(row["asset_type"])))
		if !models.ValidAssetType(assetType) {
			assetType = models.AssetTypeStock
		}

		cand := models.CandidateAsset{
			Symbol:        asString(row["symbol"]),
			Name:          name,
			AssetType:     assetType,
			Quantity:      asFloat(row["quantity"]),
			Amount:        asFloat(row["amount"]),
			PurchasePrice: asFloat(row["purchase_price"]),
			CurrentPrice:  asFloat(row["current_price"]),
			Profit:        asFloat(row["profit"]),
		}

		// Cash screenshots report an amount, not a quantity; for cash the
		// two are the same thing.
		if cand.AssetType == models.AssetTypeCash && cand.Quantity == 0 && cand.Amount > 0 {
			cand.Quantity = cand.Amount
		}

		candidates = append(candidates, cand)
	}
	return candidates, nil
}

func asString(v any) string {
	s, _ := v.(string)
	return strings.TrimSpace(s)
}

// asFloat coerces the loosely-typed model output: numbers arrive as JSON
// numbers, but occasionally as strings with thousands separators.
func asFloat(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case string:
		cleaned := strings.ReplaceAll(strings.TrimSpace(n), ",", "")
		cleaned = strings.TrimPrefix(cleaned, "+")
		f, err := strconv.ParseFloat(cleaned, 64)
		if err != nil {
			return 0
		}
		return f
	}
	return 0
}
