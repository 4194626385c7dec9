package market

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// parseQuoteLine extracts the comma-delimited payload from a Sina-style
// quote response, e.g.
//
//	var hq_str_sh600519="贵州茅台,1700.00,1698.00,1712.50,...";
func parseQuoteLine(body string) ([]string, error) {
	start := strings.Index(body, `"`)
	end := strings.LastIndex(body, `"`)
	if start == -1 || end <= start {
		return nil, fmt.Errorf("no quoted payload in response")
	}
	payload := body[start+1 : end]
	if payload == "" {
		return nil, fmt.Errorf("empty quote payload")
	}
	return strings.Split(payload, ","), nil
}

func parseQuoteField(fields []string, index int) (float64, error) {
	if len(fields) <= index {
		return 0, fmt.Errorf("quote payload has %d fields, want index %d", len(fields), index)
	}
	price, err := strconv.ParseFloat(strings.TrimSpace(fields[index]), 64)
	if err != nil {
		return 0, fmt.Errorf("unparseable price field %q: %w", fields[index], err)
	}
	return price, nil
}

// sinaQuoteCode builds the exchange-prefixed Sina list code from a bare
// numeric symbol: leading 6 or 5 is Shanghai, 0/3/1 is Shenzhen.
func sinaQuoteCode(symbol string) string {
	switch {
	case strings.HasPrefix(symbol, "6"), strings.HasPrefix(symbol, "5"):
		return "sh" + symbol
	case strings.HasPrefix(symbol, "0"), strings.HasPrefix(symbol, "3"), strings.HasPrefix(symbol, "1"):
		return "sz" + symbol
	}
	return symbol
}

// fetchDomesticGold returns the Shanghai Au99.99 spot price in CNY per gram.
// The current price sits at field index 3 of the quote line.
func (c *Client) fetchDomesticGold(ctx context.Context) (float64, error) {
	url := fmt.Sprintf("%s/list=%s", c.cfg.SinaBaseURL, domesticGoldList)
	body, err := c.get(ctx, url, map[string]string{"Referer": sinaReferer})
	if err != nil {
		return 0, err
	}
	fields, err := parseQuoteLine(body)
	if err != nil {
		return 0, err
	}
	return parseQuoteField(fields, 3)
}

// fetchInternationalGold returns the XAU/USD spot converted to CNY per gram
// using the fixed troy-ounce and exchange-rate factors.
func (c *Client) fetchInternationalGold(ctx context.Context) (float64, error) {
	url := fmt.Sprintf("%s/list=%s", c.cfg.SinaBaseURL, intlGoldList)
	body, err := c.get(ctx, url, map[string]string{"Referer": sinaReferer})
	if err != nil {
		return 0, err
	}
	fields, err := parseQuoteLine(body)
	if err != nil {
		return 0, err
	}
	usdPerOunce, err := parseQuoteField(fields, 0)
	if err != nil {
		return 0, err
	}
	if usdPerOunce <= 0 {
		return 0, fmt.Errorf("non-positive spot price %f", usdPerOunce)
	}
	return (usdPerOunce / troyOunceGrams) * usdCnyRate, nil
}

// fetchRealtimeQuote returns the current trade price for a bare numeric
// code from the Sina realtime feed (field index 3: name, open, prev close,
// current, ...).
func (c *Client) fetchRealtimeQuote(ctx context.Context, symbol string) (float64, error) {
	url := fmt.Sprintf("%s/list=%s", c.cfg.SinaBaseURL, sinaQuoteCode(symbol))
	body, err := c.get(ctx, url, map[string]string{"Referer": sinaReferer})
	if err != nil {
		return 0, err
	}
	fields, err := parseQuoteLine(body)
	if err != nil {
		return 0, err
	}
	return parseQuoteField(fields, 3)
}

// fetchTencentQuote is the last-resort quote scrape from the Tencent feed.
// Payload format: v_sz159852="51~name~159852~0.543~...", price at index 3
// after splitting on '~'.
func (c *Client) fetchTencentQuote(ctx context.Context, symbol string) (float64, error) {
	url := fmt.Sprintf("%s/q=%s", c.cfg.TencentBaseURL, sinaQuoteCode(symbol))
	body, err := c.get(ctx, url, nil)
	if err != nil {
		return 0, err
	}
	start := strings.Index(body, `"`)
	end := strings.LastIndex(body, `"`)
	if start == -1 || end <= start {
		return 0, fmt.Errorf("no quoted payload in response")
	}
	fields := strings.Split(body[start+1:end], "~")
	if len(fields) <= 3 {
		return 0, fmt.Errorf("quote payload has %d fields, want index 3", len(fields))
	}
	return strconv.ParseFloat(fields[3], 64)
}

// tushareRequest is the request envelope of the official quote API.
type tushareRequest struct {
	ApiName string            `json:"api_name"`
	Token   string            `json:"token"`
	Params  map[string]string `json:"params"`
	Fields  string            `json:"fields"`
}

// tushareResponse is the columnar response of the official quote API.
type tushareResponse struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
	Data struct {
		Fields []string `json:"fields"`
		Items  [][]any  `json:"items"`
	} `json:"data"`
}

// fetchTushareClose fetches the latest close for a suffixed exchange code
// via the given API (daily for stocks, fund_daily for listed funds).
func (c *Client) fetchTushareClose(ctx context.Context, apiName, tsCode string) (float64, error) {
	if c.cfg.TushareToken == "" {
		return 0, fmt.Errorf("tushare token not configured")
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return 0, fmt.Errorf("rate limiter wait failed: %w", err)
	}

	var result tushareResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(tushareRequest{
			ApiName: apiName,
			Token:   c.cfg.TushareToken,
			Params:  map[string]string{"ts_code": tsCode, "limit": "1"},
			Fields:  "ts_code,trade_date,close",
		}).
		SetResult(&result).
		Post(c.cfg.TushareBaseURL)
	if err != nil {
		return 0, err
	}
	if resp.IsError() {
		return 0, fmt.Errorf("request failed with status %s", resp.Status())
	}
	if result.Code != 0 {
		return 0, fmt.Errorf("%s returned code %d: %s", apiName, result.Code, result.Msg)
	}

	closeIdx := -1
	for i, f := range result.Data.Fields {
		if f == "close" {
			closeIdx = i
			break
		}
	}
	if closeIdx == -1 || len(result.Data.Items) == 0 || len(result.Data.Items[0]) <= closeIdx {
		return 0, fmt.Errorf("%s returned no rows for %s", apiName, tsCode)
	}

	// Row cells are loosely typed: numbers for prices, strings for codes
	// and dates.
	switch v := result.Data.Items[0][closeIdx].(type) {
	case float64:
		return v, nil
	case string:
		return strconv.ParseFloat(v, 64)
	case json.Number:
		return v.Float64()
	}
	return 0, fmt.Errorf("%s returned unusable close value for %s", apiName, tsCode)
}

// fundEstimate is the jsonp payload of the intraday fund valuation feed.
// Dwjz is the previous day's settled unit NAV; Gsz is the intraday
// estimate, which is fresher and preferred when present.
type fundEstimate struct {
	FundCode string `json:"fundcode"`
	Name     string `json:"name"`
	Dwjz     string `json:"dwjz"`
	Gsz      string `json:"gsz"`
}

// fetchFundEstimate fetches the OTC fund value from the Eastmoney fundgz
// feed, preferring the intraday estimate over the settled NAV.
func (c *Client) fetchFundEstimate(ctx context.Context, code string) (float64, error) {
	// Cache-busting timestamp, same trick the web frontends use.
	url := fmt.Sprintf("%s/js/%s.js?rt=%d", c.cfg.FundGzBaseURL, code, time.Now().UnixMilli())
	body, err := c.get(ctx, url, nil)
	if err != nil {
		return 0, err
	}

	start := strings.Index(body, "(")
	end := strings.LastIndex(body, ")")
	if start == -1 || end <= start {
		return 0, fmt.Errorf("no jsonp payload in response")
	}

	var est fundEstimate
	if err := json.Unmarshal([]byte(body[start+1:end]), &est); err != nil {
		return 0, fmt.Errorf("unparseable fund estimate: %w", err)
	}

	if est.Gsz != "" {
		if price, err := strconv.ParseFloat(est.Gsz, 64); err == nil {
			return price, nil
		}
	}
	if est.Dwjz != "" {
		if price, err := strconv.ParseFloat(est.Dwjz, 64); err == nil {
			return price, nil
		}
	}
	return 0, fmt.Errorf("fund estimate carries no usable value")
}

// fetchFundNavSina is the secondary OTC fund source: a single NAV at field
// index 1 of the f_<code> quote line.
func (c *Client) fetchFundNavSina(ctx context.Context, code string) (float64, error) {
	url := fmt.Sprintf("%s/list=f_%s", c.cfg.SinaBaseURL, code)
	body, err := c.get(ctx, url, nil)
	if err != nil {
		return 0, err
	}
	fields, err := parseQuoteLine(body)
	if err != nil {
		return 0, err
	}
	return parseQuoteField(fields, 1)
}
