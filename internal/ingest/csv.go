package ingest

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/folio/internal/domain"
)

const dateLayout = "2006-01-02"

// barRow is the CSV representation of a bar.
type barRow struct {
	Date   string `csv:"date"`
	Open   string `csv:"open"`
	High   string `csv:"high"`
	Low    string `csv:"low"`
	Close  string `csv:"close"`
	Volume string `csv:"volume"`
}

func (r barRow) toBar() (domain.Bar, error) {
	date, err := time.Parse(dateLayout, r.Date)
	if err != nil {
		return domain.Bar{}, errors.Wrapf(err, "parse date %q", r.Date)
	}

	var bar domain.Bar
	bar.Date = date.UTC()

	fields := []struct {
		name string
		raw  string
		dst  *decimal.Decimal
	}{
		{"open", r.Open, &bar.Open},
		{"high", r.High, &bar.High},
		{"low", r.Low, &bar.Low},
		{"close", r.Close, &bar.Close},
		{"volume", r.Volume, &bar.Volume},
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

func fromBar(bar domain.Bar) barRow {
	return barRow{
		Date:   bar.Date.Format(dateLayout),
		Open:   bar.Open.String(),
		High:   bar.High.String(),
		Low:    bar.Low.String(),
		Close:  bar.Close.String(),
		Volume: bar.Volume.String(),
	}
}

// CSVSource reads bars from <dir>/<TICKER>.csv files.
type CSVSource struct {
	dir string
}

// NewCSVSource creates a file-backed bar source.
func NewCSVSource(dir string) *CSVSource {
	return &CSVSource{dir: dir}
}

// Fetch reads and filters the ticker's file to [start, end].
func (s *CSVSource) Fetch(_ context.Context, ticker string, start, end time.Time) ([]domain.Bar, error) {
	path := filepath.Join(s.dir, ticker+".csv")
	bars, err := readBarsFile(path)
	if err != nil {
		return nil, err
	}

	filtered := bars[:0]
	for _, bar := range bars {
		if bar.Date.Before(start) || bar.Date.After(end) {
			continue
		}
		filtered = append(filtered, bar)
	}
	return filtered, nil
}

func readBarsFile(path string) ([]domain.Bar, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", path)
	}
	defer file.Close()

	var rows []barRow
	if err := gocsv.UnmarshalFile(file, &rows); err != nil {
		return nil, errors.Wrapf(err, "decode %s", path)
	}

	bars := make([]domain.Bar, 0, len(rows))
	for _, row := range rows {
		bar, err := row.toBar()
		if err != nil {
			return nil, errors.Wrapf(err, "bad row in %s", path)
		}
		bars = append(bars, bar)
	}
	sort.Slice(bars, func(i, j int) bool { return bars[i].Date.Before(bars[j].Date) })
	return bars, nil
}

func writeBarsFile(path string, bars []domain.Bar) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrapf(err, "ensure directory for %s", path)
	}

	file, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "create %s", path)
	}
	defer file.Close()

	rows := make([]barRow, len(bars))
	for i, bar := range bars {
		rows[i] = fromBar(bar)
	}
	return errors.Wrapf(gocsv.MarshalFile(&rows, file), "encode %s", path)
}
