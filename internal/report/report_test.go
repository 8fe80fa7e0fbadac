package report

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/vadiminshakov/folio/internal/domain"
)

func TestWriterProducesCSVArtifacts(t *testing.T) {
	dir := t.TempDir()
	writer, err := NewWriter(dir)
	require.NoError(t, err)

	date := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	trades := []domain.TradeRecord{{
		Date:          date,
		Ticker:        "AAA",
		Quantity:      decimal.NewFromInt(10),
		Price:         decimal.NewFromInt(100),
		CashDelta:     decimal.NewFromInt(-1000),
		PositionDelta: decimal.NewFromInt(10),
	}}
	rejections := []domain.Rejection{{
		Date:   date,
		Ticker: "BBB",
		Reason: "veto",
	}}
	curve := []domain.EquitySnapshot{{Date: date, Value: decimal.NewFromInt(10000)}}

	require.NoError(t, writer.WriteTrades(trades))
	require.NoError(t, writer.WriteRejections(rejections))
	require.NoError(t, writer.WriteEquityCurve(curve))

	tradeData, err := os.ReadFile(filepath.Join(dir, "trades.csv"))
	require.NoError(t, err)
	require.Contains(t, string(tradeData), "2024-01-02,AAA,10,100,-1000,10")

	rejectionData, err := os.ReadFile(filepath.Join(dir, "rejections.csv"))
	require.NoError(t, err)
	require.Contains(t, string(rejectionData), "veto")

	equityData, err := os.ReadFile(filepath.Join(dir, "equity.csv"))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(equityData)), "\n")
	require.Len(t, lines, 2, "header plus one row")
	require.Equal(t, "date,equity", lines[0])
}
