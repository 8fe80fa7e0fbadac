package ingest

import (
	"context"
	"sort"
	"strconv"
	"time"

	"github.com/hirokisan/bybit/v2"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/folio/internal/domain"
	"github.com/vadiminshakov/folio/pkg/retrier"
)

// BybitSource fetches daily klines from Bybit's v5 market endpoint.
type BybitSource struct {
	client  *bybit.Client
	retrier *retrier.Retrier
}

// NewBybitSource creates a Bybit-backed bar source.
func NewBybitSource(apiKey, apiSecret string) *BybitSource {
	client := bybit.NewClient()
	if apiKey != "" {
		client = client.WithAuth(apiKey, apiSecret)
	}
	return &BybitSource{
		client:  client,
		retrier: retrier.New(),
	}
}

// Fetch pages backwards through the kline endpoint, Bybit returns newest
// first, then reorders ascending.
func (s *BybitSource) Fetch(ctx context.Context, ticker string, start, end time.Time) ([]domain.Bar, error) {
	var bars []domain.Bar
	startMs := start.UnixMilli()
	cursor := end.UnixMilli()
	limit := klinesPageLimit

	for cursor >= startMs {
		startParam, endParam := startMs, cursor
		resp, err := retrier.DoWithData(s.retrier, ctx, func(ctx context.Context) (*bybit.V5GetKlineResponse, error) {
			return s.client.V5().Market().GetKline(bybit.V5GetKlineParam{
				Category: bybit.CategoryV5Spot,
				Symbol:   bybit.SymbolV5(ticker),
				Interval: bybit.IntervalD,
				Start:    &startParam,
				End:      &endParam,
				Limit:    &limit,
			})
		})
		if err != nil {
			return nil, errors.Wrapf(err, "fetch klines from Bybit for %s", ticker)
		}
		if len(resp.Result.List) == 0 {
			break
		}

		var oldest int64
		for _, kline := range resp.Result.List {
			bar, startTime, err := convertBybitKline(kline)
			if err != nil {
				return nil, errors.Wrapf(err, "bad kline from Bybit for %s", ticker)
			}
			bars = append(bars, bar)
			if oldest == 0 || startTime < oldest {
				oldest = startTime
			}
		}

		cursor = oldest - 1
	}

	sort.Slice(bars, func(i, j int) bool { return bars[i].Date.Before(bars[j].Date) })
	return bars, nil
}

func convertBybitKline(kline bybit.V5GetKlineItem) (domain.Bar, int64, error) {
	startTime, err := strconv.ParseInt(kline.StartTime, 10, 64)
	if err != nil {
		return domain.Bar{}, 0, errors.Wrapf(err, "parse start time %q", kline.StartTime)
	}

	var bar domain.Bar
	bar.Date = time.Unix(0, startTime*int64(time.Millisecond)).UTC().Truncate(24 * time.Hour)

	fields := []struct {
		name string
		raw  string
		dst  *decimal.Decimal
	}{
		{"open", kline.Open, &bar.Open},
		{"high", kline.High, &bar.High},
		{"low", kline.Low, &bar.Low},
		{"close", kline.Close, &bar.Close},
		{"volume", kline.Volume, &bar.Volume},
	}
	for _, f := range fields {
		value, err := decimal.NewFromString(f.raw)
		if err != nil {
			return domain.Bar{}, 0, errors.Wrapf(err, "parse %s %q", f.name, f.raw)
		}
		*f.dst = value
	}
	return bar, startTime, nil
}
