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

const defaultYahooBaseURL = "https://query1.finance.yahoo.com"

// YahooFetcher implements Fetcher using the Yahoo Finance chart API.
type YahooFetcher struct {
	BaseURL   string
	Client    *http.Client
	SymbolMap map[string]string // internal symbol -> Yahoo ticker
	limiter   *rate.Limiter
}

func NewYahooFetcher(baseURL, proxyURL string, rps float64, timeout time.Duration) *YahooFetcher {
	if baseURL == "" {
		baseURL = defaultYahooBaseURL
	}
	return &YahooFetcher{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Client:  newHTTPClient(proxyURL, timeout),
		SymbolMap: map[string]string{
			"NIFTY50": "^NSEI",
			"SPX":     "^GSPC",
			"NDX":     "^NDX",
		},
		limiter: newLimiter(rps),
	}
}

func (f *YahooFetcher) Name() string { return "yahoo" }

// ticker maps a market symbol to its Yahoo ticker; NSE names get ".NS".
func (f *YahooFetcher) ticker(market model.Market, symbol string) string {
	if mapped, ok := f.SymbolMap[symbol]; ok {
		return mapped
	}
	if market == model.MarketIndian && !strings.ContainsAny(symbol, ".^") {
		return symbol + ".NS"
	}
	return symbol
}

type yahooChart struct {
	Chart struct {
		Result []struct {
			Meta struct {
				RegularMarketPrice float64 `json:"regularMarketPrice"`
			} `json:"meta"`
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []*float64 `json:"open"`
					High   []*float64 `json:"high"`
					Low    []*float64 `json:"low"`
					Close  []*float64 `json:"close"`
					Volume []*float64 `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

func at(vals []*float64, i int) float64 {
	if i >= len(vals) || vals[i] == nil {
		return 0
	}
	return *vals[i]
}

func (f *YahooFetcher) fetchChart(ctx context.Context, ticker, interval, rng string) (*yahooChart, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, unavailable("yahoo %s: rate limiter: %v", ticker, err)
	}
	u := fmt.Sprintf("%s/v8/finance/chart/%s?interval=%s&range=%s",
		f.BaseURL, url.PathEscape(ticker), interval, rng)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, unavailable("yahoo fetch %s: %v", ticker, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, unavailable("yahoo read body %s: %v", ticker, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, unavailable("yahoo %s: status %d, body: %.200s", ticker, resp.StatusCode, string(body))
	}

	var chart yahooChart
	if err := json.Unmarshal(body, &chart); err != nil {
		return nil, unavailable("yahoo decode %s: %v", ticker, err)
	}
	if chart.Chart.Error != nil {
		return nil, unavailable("yahoo api error for %s: %s", ticker, chart.Chart.Error.Description)
	}
	if len(chart.Chart.Result) == 0 {
		return nil, unavailable("yahoo %s: no data returned", ticker)
	}
	return &chart, nil
}

func yahooRange(days int) string {
	switch {
	case days <= 30:
		return "1mo"
	case days <= 90:
		return "3mo"
	case days <= 180:
		return "6mo"
	case days <= 365:
		return "1y"
	case days <= 730:
		return "2y"
	default:
		return "5y"
	}
}

func (f *YahooFetcher) GetHistory(ctx context.Context, market model.Market, symbol string, lookbackDays int, interval Interval) ([]model.PriceBar, error) {
	ticker := f.ticker(market, symbol)
	chart, err := f.fetchChart(ctx, ticker, string(interval), yahooRange(lookbackDays))
	if err != nil {
		return nil, err
	}

	result := chart.Chart.Result[0]
	if len(result.Indicators.Quote) == 0 || len(result.Timestamp) == 0 {
		return nil, unavailable("yahoo %s: empty quote series", ticker)
	}
	quote := result.Indicators.Quote[0]
	bars := make([]model.PriceBar, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		c := at(quote.Close, i)
		if c == 0 {
			continue // null bar (holiday or halted)
		}
		bars = append(bars, model.PriceBar{
			Time:   time.Unix(ts, 0).UTC(),
			Open:   at(quote.Open, i),
			High:   at(quote.High, i),
			Low:    at(quote.Low, i),
			Close:  c,
			Volume: at(quote.Volume, i),
		})
	}
	if len(bars) == 0 {
		return nil, unavailable("yahoo %s: all bars null", ticker)
	}

	sort.Slice(bars, func(i, j int) bool { return bars[i].Time.Before(bars[j].Time) })
	return trimToLookback(bars, lookbackDays), nil
}

func (f *YahooFetcher) GetLatestPrice(ctx context.Context, market model.Market, symbol string) (float64, error) {
	ticker := f.ticker(market, symbol)
	chart, err := f.fetchChart(ctx, ticker, "1d", "5d")
	if err != nil {
		return 0, err
	}
	result := chart.Chart.Result[0]
	if p := result.Meta.RegularMarketPrice; p > 0 {
		return p, nil
	}
	if len(result.Indicators.Quote) > 0 {
		closes := result.Indicators.Quote[0].Close
		for i := len(closes) - 1; i >= 0; i-- {
			if c := at(closes, i); c > 0 {
				return c, nil
			}
		}
	}
	return 0, unavailable("yahoo %s: no price data", ticker)
}
