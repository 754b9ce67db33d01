package collector

import (
	"fmt"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"SwingScout/internal/config"
	"SwingScout/internal/model"
)

// New builds the configured fetcher wrapped in a CachingFetcher.
func New(cfg *config.Config) (Fetcher, error) {
	ds := cfg.DataSource
	var inner Fetcher
	switch ds.Provider {
	case "yahoo":
		inner = NewYahooFetcher(ds.BaseURL, cfg.Proxy, ds.RateLimit, ds.Timeout)
	case "rest":
		inner = NewRESTFetcher(ds.BaseURL, ds.APIKey, cfg.Proxy, ds.RateLimit, ds.Timeout)
	case "mock":
		inner = NewMockFetcher()
	default:
		return nil, fmt.Errorf("unknown data source provider %q", ds.Provider)
	}
	return NewCachingFetcher(inner, ds.CacheTTL), nil
}

func newHTTPClient(proxyURL string, timeout time.Duration) *http.Client {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &http.Client{Timeout: timeout, Transport: transport}
}

// newLimiter allows rps requests per second with a small burst. rps <= 0 disables limiting.
func newLimiter(rps float64) *rate.Limiter {
	if rps <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	burst := int(rps)
	if burst < 1 {
		burst = 1
	}
	if burst > 5 {
		burst = 5
	}
	return rate.NewLimiter(rate.Limit(rps), burst)
}

func unavailable(format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), model.ErrDataUnavailable)
}

// aggregateDailyToWeekly converts daily bars into ISO-week bars.
func aggregateDailyToWeekly(daily []model.PriceBar) []model.PriceBar {
	var weekly []model.PriceBar
	var week model.PriceBar
	key := -1
	for _, d := range daily {
		y, w := d.Time.ISOWeek()
		k := y*100 + w
		if k != key {
			if key != -1 {
				weekly = append(weekly, week)
			}
			week = d
			key = k
			continue
		}
		if d.High > week.High {
			week.High = d.High
		}
		if d.Low < week.Low {
			week.Low = d.Low
		}
		week.Close = d.Close
		week.Volume += d.Volume
	}
	if key != -1 {
		weekly = append(weekly, week)
	}
	return weekly
}

// trimToLookback drops bars older than lookbackDays before the last bar.
func trimToLookback(bars []model.PriceBar, lookbackDays int) []model.PriceBar {
	if len(bars) == 0 || lookbackDays <= 0 {
		return bars
	}
	cutoff := bars[len(bars)-1].Time.AddDate(0, 0, -lookbackDays)
	for i, b := range bars {
		if !b.Time.Before(cutoff) {
			return bars[i:]
		}
	}
	return bars
}
