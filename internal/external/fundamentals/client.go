// Package fundamentals reads index constituents, per-stock valuations and
// the trading calendar from a JSON REST data service.
package fundamentals

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/wonny/indexbeta/internal/contracts"
	"github.com/wonny/indexbeta/pkg/httputil"
	"github.com/wonny/indexbeta/pkg/logger"
)

const (
	dateLayout = "2006-01-02"
	// codes per fundamentals request
	batchSize = 100
)

// Client implements contracts.MarketData over HTTP
// ⭐ SSOT: 외부 펀더멘털 API 호출은 이 클라이언트에서만
type Client struct {
	httpClient *httputil.Client
	logger     *logger.Logger
	baseURL    string
}

// NewClient creates a new data service client
func NewClient(httpClient *httputil.Client, baseURL string, log *logger.Logger) *Client {
	return &Client{
		httpClient: httpClient,
		logger:     log,
		baseURL:    strings.TrimRight(baseURL, "/"),
	}
}

type constituentsResponse struct {
	Index string   `json:"index"`
	Date  string   `json:"date"`
	Codes []string `json:"codes"`
}

// fundamentalItem mirrors the wire format; null means unreported
type fundamentalItem struct {
	Code                 string   `json:"code"`
	PERatio              *float64 `json:"pe_ratio"`
	PBRatio              *float64 `json:"pb_ratio"`
	CirculatingMarketCap *float64 `json:"circulating_market_cap"`
}

type fundamentalsResponse struct {
	Date  string            `json:"date"`
	Items []fundamentalItem `json:"items"`
}

type tradingDaysResponse struct {
	Days []string `json:"days"`
}

// GetIndexConstituents returns the members of indexID on date. An index
// unknown to the service on that date has no members.
func (c *Client) GetIndexConstituents(ctx context.Context, indexID string, date time.Time) ([]string, error) {
	params := url.Values{}
	params.Set("date", date.Format(dateLayout))
	u := fmt.Sprintf("%s/indices/%s/constituents?%s", c.baseURL, url.PathEscape(indexID), params.Encode())

	var resp constituentsResponse
	if err := c.httpClient.GetJSON(ctx, u, &resp); err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get constituents of %s: %w", indexID, err)
	}
	return resp.Codes, nil
}

// GetFundamentals returns point-in-time valuations keyed by code. Codes are
// requested in batches; null ratios are reported as 0.
func (c *Client) GetFundamentals(ctx context.Context, codes []string, date time.Time) (map[string]contracts.Fundamentals, error) {
	result := make(map[string]contracts.Fundamentals, len(codes))

	for start := 0; start < len(codes); start += batchSize {
		end := start + batchSize
		if end > len(codes) {
			end = len(codes)
		}

		params := url.Values{}
		params.Set("date", date.Format(dateLayout))
		params.Set("codes", strings.Join(codes[start:end], ","))
		u := fmt.Sprintf("%s/fundamentals?%s", c.baseURL, params.Encode())

		var resp fundamentalsResponse
		if err := c.httpClient.GetJSON(ctx, u, &resp); err != nil {
			if isNotFound(err) {
				continue
			}
			return nil, fmt.Errorf("get fundamentals on %s: %w", date.Format(dateLayout), err)
		}

		for _, item := range resp.Items {
			result[item.Code] = contracts.Fundamentals{
				Code:                 item.Code,
				PERatio:              deref(item.PERatio),
				PBRatio:              deref(item.PBRatio),
				CirculatingMarketCap: deref(item.CirculatingMarketCap),
			}
		}
	}

	c.logger.WithFields(map[string]interface{}{
		"date":      date.Format(dateLayout),
		"requested": len(codes),
		"received":  len(result),
	}).Debug("Fetched fundamentals")

	return result, nil
}

// TradingDays returns trading days strictly between begin and end
func (c *Client) TradingDays(ctx context.Context, begin, end time.Time) ([]time.Time, error) {
	params := url.Values{}
	params.Set("begin", begin.Format(dateLayout))
	params.Set("end", end.Format(dateLayout))
	u := fmt.Sprintf("%s/calendar/trading-days?%s", c.baseURL, params.Encode())

	var resp tradingDaysResponse
	if err := c.httpClient.GetJSON(ctx, u, &resp); err != nil {
		return nil, fmt.Errorf("get trading days: %w", err)
	}

	days := make([]time.Time, 0, len(resp.Days))
	for _, s := range resp.Days {
		d, err := time.ParseInLocation(dateLayout, s, begin.Location())
		if err != nil {
			return nil, fmt.Errorf("parse trading day %q: %w", s, err)
		}
		if !d.After(begin) || !d.Before(end) {
			continue
		}
		days = append(days, d)
	}
	return days, nil
}

func isNotFound(err error) bool {
	var statusErr *httputil.StatusError
	return errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusNotFound
}

func deref(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}
