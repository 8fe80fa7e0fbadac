package ingest

import (
	"context"
	"time"

	"github.com/adshao/go-binance/v2"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/folio/internal/domain"
	"github.com/vadiminshakov/folio/pkg/retrier"
)

const (
	dailyInterval   = "1d"
	klinesPageLimit = 1000
)

// BinanceSource fetches daily klines from Binance.
type BinanceSource struct {
	client  *binance.Client
	retrier *retrier.Retrier
}

// NewBinanceSource creates a Binance-backed bar source. Keys may be empty,
// kline endpoints are public.
func NewBinanceSource(apiKey, apiSecret string) *BinanceSource {
	return &BinanceSource{
		client:  binance.NewClient(apiKey, apiSecret),
		retrier: retrier.New(),
	}
}

// Fetch pages through the kline endpoint until the range is covered.
func (s *BinanceSource) Fetch(ctx context.Context, ticker string, start, end time.Time) ([]domain.Bar, error) {
	var bars []domain.Bar
	cursor := start.UnixMilli()
	endMs := end.UnixMilli()

	for cursor <= endMs {
		klines, err := retrier.DoWithData(s.retrier, ctx, func(ctx context.Context) ([]*binance.Kline, error) {
			return s.client.NewKlinesService().
				Symbol(ticker).
				Interval(dailyInterval).
				StartTime(cursor).
				EndTime(endMs).
				Limit(klinesPageLimit).
				Do(ctx)
		})
		if err != nil {
			return nil, errors.Wrapf(err, "fetch klines from Binance for %s", ticker)
		}
		if len(klines) == 0 {
			break
		}

		for _, kline := range klines {
			bar, err := convertBinanceKline(kline)
			if err != nil {
				return nil, errors.Wrapf(err, "bad kline from Binance for %s", ticker)
			}
			bars = append(bars, bar)
		}

		cursor = klines[len(klines)-1].CloseTime + 1
	}

	return bars, nil
}

func convertBinanceKline(kline *binance.Kline) (domain.Bar, error) {
	var bar domain.Bar
	bar.Date = time.Unix(0, kline.OpenTime*int64(time.Millisecond)).UTC().Truncate(24 * time.Hour)

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
			return domain.Bar{}, errors.Wrapf(err, "parse %s %q", f.name, f.raw)
		}
		*f.dst = value
	}
	return bar, nil
}
