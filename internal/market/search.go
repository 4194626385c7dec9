package market

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"wealth-tracker-go/internal/models"
)

// fundCategory is the directory category for plain funds; other categories
// (wealth-management products and the like) are filtered out.
const fundCategory = 700

type fundSearchResponse struct {
	Datas []struct {
		Code     string `json:"CODE"`
		Name     string `json:"NAME"`
		Category int    `json:"CATEGORY"`
	} `json:"Datas"`
}

// SearchFundCode resolves a fund code from a free-text name. It queries the
// fund directory with a sequence of derived keys: the full name, the name
// with its last two characters stripped (share-class suffixes like "A" or
// "C"), and the first six characters (truncated OCR names). The first
// six-digit fund-category match wins.
func (c *Client) SearchFundCode(ctx context.Context, name string) (string, error) {
	if name == "" {
		return "", ErrUnresolved
	}

	keys := []string{name}
	runes := []rune(name)
	if len(runes) > 4 {
		keys = append(keys, string(runes[:len(runes)-2]))
	}
	if len(runes) > 6 {
		keys = append(keys, string(runes[:6]))
	}

	for _, key := range keys {
		if strings.TrimSpace(key) == "" {
			continue
		}
		code, err := c.searchFundDirectory(ctx, key)
		if err != nil {
			c.logger.Warn("fund search failed",
				zap.String("key", key),
				zap.Error(err),
			)
			continue
		}
		if code != "" {
			return code, nil
		}
	}
	return "", ErrUnresolved
}

func (c *Client) searchFundDirectory(ctx context.Context, key string) (string, error) {
	searchURL := fmt.Sprintf("%s/FundSearch/api/FundSearchAPI.ashx?m=1&key=%s",
		c.cfg.FundSearchBaseURL, url.QueryEscape(key))
	body, err := c.get(ctx, searchURL, nil)
	if err != nil {
		return "", err
	}

	var result fundSearchResponse
	if err := json.Unmarshal([]byte(body), &result); err != nil {
		return "", fmt.Errorf("unparseable search response: %w", err)
	}

	for _, item := range result.Datas {
		if item.Category == fundCategory && len(item.Code) == 6 && isDigits(item.Code) {
			return item.Code, nil
		}
	}
	return "", nil
}

// AssetName resolves a display name for a symbol. Stocks and
// exchange-traded funds go through the exchange quote line; OTC funds use
// the dedicated fund quote. The name is field 0 of either payload.
func (c *Client) AssetName(ctx context.Context, symbol string, assetType models.AssetType) (string, error) {
	if symbol == "" {
		return "", ErrUnresolved
	}

	exchangeListed := assetType == models.AssetTypeStock ||
		(assetType == models.AssetTypeFund && len(symbol) == 6 &&
			(strings.HasPrefix(symbol, "15") || strings.HasPrefix(symbol, "51")))

	if exchangeListed {
		name, err := c.fetchQuoteName(ctx, fmt.Sprintf("%s/list=%s", c.cfg.SinaBaseURL, sinaQuoteCode(symbol)))
		if err == nil && name != "" {
			return name, nil
		}
		if err != nil {
			c.logger.Warn("name lookup failed", zap.String("symbol", symbol), zap.Error(err))
		}
	}

	if assetType == models.AssetTypeFund {
		name, err := c.fetchQuoteName(ctx, fmt.Sprintf("%s/list=f_%s", c.cfg.SinaBaseURL, symbol))
		if err == nil && name != "" {
			return name, nil
		}
		if err != nil {
			c.logger.Warn("fund name lookup failed", zap.String("symbol", symbol), zap.Error(err))
		}
	}

	return "", ErrUnresolved
}

func (c *Client) fetchQuoteName(ctx context.Context, url string) (string, error) {
	body, err := c.get(ctx, url, map[string]string{"Referer": sinaReferer})
	if err != nil {
		return "", err
	}
	fields, err := parseQuoteLine(body)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(fields[0]), nil
}
