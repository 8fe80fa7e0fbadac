// Command folio replays portfolio strategies against historical market data.
// Runs are described in a YAML configuration file and executed concurrently,
// each with its own portfolio, guardrail chain and write-ahead journal.
//
// Usage:
//
//	folio --config config.yaml
//	folio --setup (interactive wizard)
//
// Environment variables (only needed for exchange data sources):
//
//	For Binance: BINANCE_API_KEY, BINANCE_API_SECRET
//	For Bybit: BYBIT_API_KEY, BYBIT_API_SECRET
package main

import (
	"context"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/vadiminshakov/folio/config"
	"github.com/vadiminshakov/folio/internal/analytics"
	"github.com/vadiminshakov/folio/internal/executor"
	"github.com/vadiminshakov/folio/internal/guardrail"
	"github.com/vadiminshakov/folio/internal/ingest"
	"github.com/vadiminshakov/folio/internal/marketdata"
	"github.com/vadiminshakov/folio/internal/portfolio"
	"github.com/vadiminshakov/folio/internal/report"
	"github.com/vadiminshakov/folio/internal/setup"
	"github.com/vadiminshakov/folio/internal/storage/journal"
	"github.com/vadiminshakov/folio/internal/strategy"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	flags := config.ParseFlags()

	strategies := strategy.DefaultRegistry()
	guardrails := guardrail.DefaultRegistry()

	configPath := flags.ConfigPath
	if flags.Setup {
		if err := setup.RunTUI(strategies.Names(), guardrails.Names()); err != nil {
			logger.Fatal("setup wizard failed", zap.Error(err))
		}
		configPath = setup.GeneratedConfigPath
	}

	configs, err := config.Get(configPath)
	if err != nil {
		logger.Fatal("failed to get configuration", zap.Error(err))
	}

	ctx := context.Background()
	g, ctx := errgroup.WithContext(ctx)
	for _, c := range configs {
		conf := c
		g.Go(func() error {
			runLogger := logger.With(zap.String("run", conf.Name))
			if err := simulate(ctx, conf, strategies, guardrails, runLogger); err != nil {
				runLogger.Error("run failed", zap.Error(err))
				return err
			}
			return nil
		})
		logger.Info("started", zap.String("run", conf.Name))
	}

	if err := g.Wait(); err != nil {
		logger.Error(err.Error())
		os.Exit(1)
	}
}

// simulate executes one configured run end to end.
func simulate(ctx context.Context, conf config.Config, strategies *strategy.Registry, guardrails *guardrail.Registry, logger *zap.Logger) error {
	source, err := barSource(conf, logger)
	if err != nil {
		return err
	}

	bars, err := ingest.Load(ctx, source, conf.Tickers, conf.Start, conf.End)
	if err != nil {
		return errors.Wrap(err, "load market data")
	}
	series, err := marketdata.NewSeries(bars)
	if err != nil {
		return errors.Wrap(err, "build bar series")
	}

	strat, err := strategies.Create(conf.Strategy, conf.StrategyArgs)
	if err != nil {
		return err
	}

	chain := make([]guardrail.Guardrail, 0, len(conf.Guardrails))
	for _, gc := range conf.Guardrails {
		rail, err := guardrails.Create(gc.Name, gc.Args)
		if err != nil {
			return err
		}
		chain = append(chain, rail)
	}

	var portfolioOpts []portfolio.Option
	if conf.AllowShort {
		portfolioOpts = append(portfolioOpts, portfolio.WithShortSelling())
	}
	pf, err := portfolio.New(conf.Name, conf.Tickers, conf.InitialCash, logger, portfolioOpts...)
	if err != nil {
		return err
	}

	store, err := journal.NewWALStore(filepath.Join(conf.JournalDir, conf.Name), conf.Name)
	if err != nil {
		return errors.Wrap(err, "open run journal")
	}
	defer store.Close()

	execOpts := []executor.Option{executor.WithRecorder(store)}
	if conf.Lookback > 0 {
		execOpts = append(execOpts, executor.WithLookback(conf.Lookback))
	}
	exec, err := executor.New(pf, series, strat, chain, logger, execOpts...)
	if err != nil {
		return err
	}

	if err := exec.Run(ctx, conf.Start, conf.End); err != nil {
		failedAt, cause := exec.Failure()
		logger.Error("simulation stopped",
			zap.Time("failed_at", failedAt),
			zap.NamedError("cause", cause))
		return err
	}

	summary := analytics.Summarize(pf.EquityCurve(), pf.Trades(), pf.Rejections(), conf.RiskFreeRate)
	logger.Info("simulation completed",
		zap.String("final_equity", summary.FinalEquity.String()),
		zap.Float64("sharpe", summary.Sharpe),
		zap.Float64("max_drawdown", summary.MaxDrawdown),
		zap.Float64("cagr", summary.CAGR),
		zap.Float64("win_rate", summary.WinRate),
		zap.Int("trades", summary.Trades),
		zap.Int("rejections", summary.Rejections))

	return writeReports(conf, pf, logger)
}

func barSource(conf config.Config, logger *zap.Logger) (ingest.BarSource, error) {
	var source ingest.BarSource
	switch conf.DataSource {
	case "csv":
		source = ingest.NewCSVSource(conf.DataDir)
	case "binance":
		source = ingest.NewBinanceSource(os.Getenv("BINANCE_API_KEY"), os.Getenv("BINANCE_API_SECRET"))
	case "bybit":
		source = ingest.NewBybitSource(os.Getenv("BYBIT_API_KEY"), os.Getenv("BYBIT_API_SECRET"))
	default:
		return nil, errors.Errorf("unsupported data source %q", conf.DataSource)
	}

	if conf.CacheDir != "" && conf.DataSource != "csv" {
		source = ingest.NewCachingSource(source, conf.CacheDir, logger)
	}
	return source, nil
}

func writeReports(conf config.Config, pf *portfolio.Portfolio, logger *zap.Logger) error {
	writer, err := report.NewWriter(filepath.Join(conf.ReportDir, conf.Name))
	if err != nil {
		return err
	}
	if err := writer.WriteTrades(pf.Trades()); err != nil {
		return err
	}
	if err := writer.WriteRejections(pf.Rejections()); err != nil {
		return err
	}
	if err := writer.WriteEquityCurve(pf.EquityCurve()); err != nil {
		return err
	}
	logger.Info("reports written", zap.String("dir", filepath.Join(conf.ReportDir, conf.Name)))
	return nil
}
