// Package report writes run artifacts as CSV files for spreadsheet review.
package report

import (
	"os"
	"path/filepath"

	"github.com/gocarina/gocsv"
	"github.com/pkg/errors"
	"github.com/vadiminshakov/folio/internal/domain"
)

const dateLayout = "2006-01-02"

type tradeRow struct {
	Date          string `csv:"date"`
	Ticker        string `csv:"ticker"`
	Quantity      string `csv:"quantity"`
	Price         string `csv:"price"`
	CashDelta     string `csv:"cash_delta"`
	PositionDelta string `csv:"position_delta"`
}

type rejectionRow struct {
	Date     string `csv:"date"`
	Ticker   string `csv:"ticker"`
	Quantity string `csv:"quantity"`
	Price    string `csv:"price"`
	Reason   string `csv:"reason"`
}

type equityRow struct {
	Date  string `csv:"date"`
	Value string `csv:"equity"`
}

// Writer saves run artifacts under a per-run directory.
type Writer struct {
	dir string
}

// NewWriter creates a report writer rooted at dir.
func NewWriter(dir string) (*Writer, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "create report directory %s", dir)
	}
	return &Writer{dir: dir}, nil
}

// WriteTrades saves the trade log as trades.csv.
func (w *Writer) WriteTrades(trades []domain.TradeRecord) error {
	rows := make([]tradeRow, len(trades))
	for i, trade := range trades {
		rows[i] = tradeRow{
			Date:          trade.Date.Format(dateLayout),
			Ticker:        trade.Ticker,
			Quantity:      trade.Quantity.String(),
			Price:         trade.Price.String(),
			CashDelta:     trade.CashDelta.String(),
			PositionDelta: trade.PositionDelta.String(),
		}
	}
	return w.writeCSV("trades.csv", &rows)
}

// WriteRejections saves the rejection log as rejections.csv.
func (w *Writer) WriteRejections(rejections []domain.Rejection) error {
	rows := make([]rejectionRow, len(rejections))
	for i, rejection := range rejections {
		rows[i] = rejectionRow{
			Date:     rejection.Date.Format(dateLayout),
			Ticker:   rejection.Ticker,
			Quantity: rejection.Quantity.String(),
			Price:    rejection.Price.String(),
			Reason:   rejection.Reason,
		}
	}
	return w.writeCSV("rejections.csv", &rows)
}

// WriteEquityCurve saves the equity curve as equity.csv.
func (w *Writer) WriteEquityCurve(curve []domain.EquitySnapshot) error {
	rows := make([]equityRow, len(curve))
	for i, snap := range curve {
		rows[i] = equityRow{
			Date:  snap.Date.Format(dateLayout),
			Value: snap.Value.String(),
		}
	}
	return w.writeCSV("equity.csv", &rows)
}

func (w *Writer) writeCSV(name string, rows any) error {
	path := filepath.Join(w.dir, name)
	file, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "create %s", path)
	}
	defer file.Close()

	return errors.Wrapf(gocsv.MarshalFile(rows, file), "encode %s", path)
}
