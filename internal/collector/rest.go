package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"SwingScout/internal/model"
)

// RESTFetcher talks to a generic bars/quote REST API:
//
//	GET {base}/api/v1/bars/{daily|weekly}?symbol=&market=&days=
//	GET {base}/api/v1/quote?symbol=&market=
type RESTFetcher struct {
	BaseURL string
	APIKey  string
	Client  *http.Client
	limiter *rate.Limiter
}

func NewRESTFetcher(baseURL, apiKey, proxyURL string, rps float64, timeout time.Duration) *RESTFetcher {
	return &RESTFetcher{
		BaseURL: strings.TrimRight(baseURL, "/"),
		APIKey:  apiKey,
		Client:  newHTTPClient(proxyURL, timeout),
		limiter: newLimiter(rps),
	}
}

func (f *RESTFetcher) Name() string { return "rest" }

type restBar struct {
	Timestamp int64   `json:"timestamp"`
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Close     float64 `json:"close"`
	Volume    float64 `json:"volume"`
}

func (f *RESTFetcher) GetHistory(ctx context.Context, market model.Market, symbol string, lookbackDays int, interval Interval) ([]model.PriceBar, error) {
	if interval != Weekly {
		return f.fetchBars(ctx, "daily", market, symbol, lookbackDays)
	}
	// Try weekly endpoint first; if the API only provides daily, aggregate.
	bars, err := f.fetchBars(ctx, "weekly", market, symbol, lookbackDays)
	if err != nil {
		daily, dailyErr := f.fetchBars(ctx, "daily", market, symbol, lookbackDays)
		if dailyErr != nil {
			return nil, fmt.Errorf("weekly fetch failed: %v; daily fallback also failed: %w", err, dailyErr)
		}
		return aggregateDailyToWeekly(daily), nil
	}
	return bars, nil
}

func (f *RESTFetcher) GetLatestPrice(ctx context.Context, market model.Market, symbol string) (float64, error) {
	q := url.Values{"symbol": {symbol}, "market": {string(market)}}
	var result struct {
		Price float64 `json:"price"`
	}
	if err := f.get(ctx, "/api/v1/quote?"+q.Encode(), &result); err != nil {
		return 0, err
	}
	if result.Price <= 0 {
		return 0, unavailable("quote %s: non-positive price %v", symbol, result.Price)
	}
	return result.Price, nil
}

func (f *RESTFetcher) fetchBars(ctx context.Context, kind string, market model.Market, symbol string, days int) ([]model.PriceBar, error) {
	q := url.Values{"symbol": {symbol}, "market": {string(market)}, "days": {fmt.Sprint(days)}}
	var raw []restBar
	if err := f.get(ctx, "/api/v1/bars/"+kind+"?"+q.Encode(), &raw); err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, unavailable("bars %s: empty response", symbol)
	}
	bars := make([]model.PriceBar, len(raw))
	for i, rb := range raw {
		bars[i] = model.PriceBar{
			Time:   time.Unix(rb.Timestamp, 0).UTC(),
			Open:   rb.Open,
			High:   rb.High,
			Low:    rb.Low,
			Close:  rb.Close,
			Volume: rb.Volume,
		}
	}
	sort.Slice(bars, func(i, j int) bool { return bars[i].Time.Before(bars[j].Time) })
	return bars, nil
}

func (f *RESTFetcher) get(ctx context.Context, path string, out any) error {
	if err := f.limiter.Wait(ctx); err != nil {
		return unavailable("rate limiter: %v", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.BaseURL+path, nil)
	if err != nil {
		return err
	}
	if f.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+f.APIKey)
	}
	resp, err := f.Client.Do(req)
	if err != nil {
		return unavailable("GET %s: %v", path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return unavailable("GET %s: status %d, body: %s", path, resp.StatusCode, string(body))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return unavailable("decode %s: %v", path, err)
	}
	return nil
}
