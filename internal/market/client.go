package market

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"wealth-tracker-go/internal/config"
	"wealth-tracker-go/internal/models"
)

const (
	// troyOunceGrams converts international spot quotes (USD per troy ounce)
	// to CNY per gram, together with usdCnyRate.
	troyOunceGrams = 31.1035
	usdCnyRate     = 7.0

	sinaReferer = "http://finance.sina.com.cn/"

	// domesticGoldList is the Shanghai Au99.99 spot line; intlGoldList is
	// the XAU/USD spot line.
	domesticGoldList = "g_Au99_99"
	intlGoldList     = "hf_XAU"

	// etfLastResortCode is the one exchange-traded symbol with a dedicated
	// last-resort quote provider.
	etfLastResortCode = "159852"
)

// ErrUnresolved is returned when every applicable price source has been
// tried and none produced a usable quote. It is an outcome, not a fault:
// callers decide the fallback (stored price, zero, or a client error).
var ErrUnresolved = errors.New("all market data sources exhausted")

// DataInterface is the market-data surface consumed by the asset layer.
type DataInterface interface {
	CurrentPrice(ctx context.Context, symbol string, assetType models.AssetType) (float64, error)
	SearchFundCode(ctx context.Context, name string) (string, error)
	AssetName(ctx context.Context, symbol string, assetType models.AssetType) (string, error)
}

// Client resolves prices, codes and names against a set of public
// market-data endpoints. All outbound calls share one rate limiter and a
// short fixed timeout; any single endpoint failure degrades to the next
// source in the chain.
type Client struct {
	http    *resty.Client
	cfg     *config.Market
	logger  *zap.Logger
	limiter *rate.Limiter
}

// ensure Client implements the interface
var _ DataInterface = (*Client)(nil)

// NewClient creates a new market-data client.
func NewClient(cfg *config.Market, logger *zap.Logger) *Client {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	client := resty.New().SetTimeout(timeout)
	limiter := rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateLimitBurst)

	return &Client{
		http:    client,
		cfg:     cfg,
		logger:  logger,
		limiter: limiter,
	}
}

// get performs a rate-limited GET and returns the raw body.
func (c *Client) get(ctx context.Context, url string, headers map[string]string) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limiter wait failed: %w", err)
	}

	req := c.http.R().SetContext(ctx)
	for k, v := range headers {
		req.SetHeader(k, v)
	}

	resp, err := req.Get(url)
	if err != nil {
		return "", err
	}
	if resp.IsError() {
		return "", fmt.Errorf("request failed with status %s", resp.Status())
	}
	return resp.String(), nil
}

// priceSource is one named adapter in a resolution chain.
type priceSource struct {
	name  string
	fetch func(ctx context.Context) (float64, error)
}

// resolveChain tries each source in order and returns the first positive
// price. Failures are logged at the call site and never propagate; only
// exhaustion of the whole chain yields ErrUnresolved.
func (c *Client) resolveChain(ctx context.Context, symbol string, sources []priceSource) (float64, error) {
	for _, src := range sources {
		price, err := src.fetch(ctx)
		if err != nil {
			c.logger.Warn("price source failed",
				zap.String("source", src.name),
				zap.String("symbol", symbol),
				zap.Error(err),
			)
			continue
		}
		if price > 0 {
			c.logger.Debug("price resolved",
				zap.String("source", src.name),
				zap.String("symbol", symbol),
				zap.Float64("price", price),
			)
			return price, nil
		}
	}
	return 0, ErrUnresolved
}

// CurrentPrice resolves the current unit price for a symbol of the given
// asset type. Cash is the constant 1.0 and involves no network call. Bond
// has no resolution path and is always unresolved.
func (c *Client) CurrentPrice(ctx context.Context, symbol string, assetType models.AssetType) (float64, error) {
	if assetType == models.AssetTypeCash {
		return 1.0, nil
	}

	if assetType == models.AssetTypeGold || strings.EqualFold(symbol, "GOLD") || symbol == "GC=F" {
		return c.resolveChain(ctx, symbol, []priceSource{
			{name: "sina_gold_cny", fetch: func(ctx context.Context) (float64, error) {
				return c.fetchDomesticGold(ctx)
			}},
			{name: "sina_gold_xau", fetch: func(ctx context.Context) (float64, error) {
				return c.fetchInternationalGold(ctx)
			}},
		})
	}

	switch assetType {
	case models.AssetTypeStock:
		tsCode, ok := stockExchangeCode(symbol)
		if !ok {
			return 0, ErrUnresolved
		}
		return c.resolveChain(ctx, symbol, c.exchangeSources(symbol, tsCode))

	case models.AssetTypeFund:
		if tsCode, exchangeTraded := fundExchangeCode(symbol); exchangeTraded {
			return c.resolveChain(ctx, symbol, c.exchangeSources(symbol, tsCode))
		}
		return c.resolveChain(ctx, symbol, []priceSource{
			{name: "eastmoney_fundgz", fetch: func(ctx context.Context) (float64, error) {
				return c.fetchFundEstimate(ctx, symbol)
			}},
			{name: "sina_fund_nav", fetch: func(ctx context.Context) (float64, error) {
				return c.fetchFundNavSina(ctx, symbol)
			}},
		})
	}

	// bond and anything else: no resolution path.
	return 0, ErrUnresolved
}

// exchangeSources is the resolution chain for exchange-traded symbols:
// official daily close, the fund-daily alternate, a realtime quote by bare
// code, and for one hardcoded ETF a last-resort quote from a different
// provider.
func (c *Client) exchangeSources(symbol, tsCode string) []priceSource {
	sources := []priceSource{
		{name: "tushare_daily", fetch: func(ctx context.Context) (float64, error) {
			return c.fetchTushareClose(ctx, "daily", tsCode)
		}},
		{name: "tushare_fund_daily", fetch: func(ctx context.Context) (float64, error) {
			return c.fetchTushareClose(ctx, "fund_daily", tsCode)
		}},
		{name: "sina_realtime", fetch: func(ctx context.Context) (float64, error) {
			return c.fetchRealtimeQuote(ctx, symbol)
		}},
	}
	if strings.Contains(symbol, etfLastResortCode) {
		sources = append(sources, priceSource{
			name: "tencent_quote",
			fetch: func(ctx context.Context) (float64, error) {
				return c.fetchTencentQuote(ctx, symbol)
			},
		})
	}
	return sources
}

// stockExchangeCode maps a bare A-share code to its suffixed exchange code.
// Prefixes 60/68 trade in Shanghai, 00/30 in Shenzhen; anything else has no
// applicable source.
func stockExchangeCode(symbol string) (string, bool) {
	if !isDigits(symbol) {
		return "", false
	}
	switch {
	case strings.HasPrefix(symbol, "60"), strings.HasPrefix(symbol, "68"):
		return symbol + ".SH", true
	case strings.HasPrefix(symbol, "00"), strings.HasPrefix(symbol, "30"):
		return symbol + ".SZ", true
	}
	return "", false
}

// fundExchangeCode classifies a fund code as exchange-traded (15 prefix in
// Shenzhen, 51 in Shanghai) or over-the-counter.
func fundExchangeCode(symbol string) (string, bool) {
	switch {
	case strings.HasPrefix(symbol, "15"):
		return symbol + ".SZ", true
	case strings.HasPrefix(symbol, "51"):
		return symbol + ".SH", true
	}
	return "", false
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
