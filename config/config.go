// Package config loads simulation run definitions from a yaml file.
package config

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

const dateLayout = "2006-01-02"

// Config describes one simulation run.
type Config struct {
	Name         string
	Tickers      []string
	InitialCash  decimal.Decimal
	Start        time.Time
	End          time.Time
	Lookback     int
	Strategy     string
	StrategyArgs map[string]any
	Guardrails   []GuardrailConfig
	AllowShort   bool
	DataSource   string
	DataDir      string
	CacheDir     string
	JournalDir   string
	ReportDir    string
	RiskFreeRate float64
}

// GuardrailConfig names a guardrail and its parameters, order matters.
type GuardrailConfig struct {
	Name string         `yaml:"name"`
	Args map[string]any `yaml:"args,omitempty"`
}

type ConfigTmp struct {
	Name            string            `yaml:"name"`
	Tickers         []string          `yaml:"tickers"`
	InitialCash     string            `yaml:"initial_cash"`
	Start           string            `yaml:"start"`
	End             string            `yaml:"end"`
	LookbackStr     string            `yaml:"lookback,omitempty"`
	Strategy        string            `yaml:"strategy"`
	StrategyArgs    map[string]any    `yaml:"strategy_args,omitempty"`
	Guardrails      []GuardrailConfig `yaml:"guardrails,omitempty"`
	AllowShort      bool              `yaml:"allow_short,omitempty"`
	DataSource      string            `yaml:"data_source,omitempty"`
	DataDir         string            `yaml:"data_dir,omitempty"`
	CacheDir        string            `yaml:"cache_dir,omitempty"`
	JournalDir      string            `yaml:"journal_dir,omitempty"`
	ReportDir       string            `yaml:"report_dir,omitempty"`
	RiskFreeRateStr string            `yaml:"risk_free_rate,omitempty"`
}

// Flags holds the parsed command line.
type Flags struct {
	ConfigPath string
	Setup      bool
}

// ParseFlags reads the command line once.
func ParseFlags() Flags {
	configPath := flag.String("config", "config.yaml", "path to yaml config")
	setup := flag.Bool("setup", false, "run the interactive config wizard")
	flag.Parse()
	return Flags{ConfigPath: *configPath, Setup: *setup}
}

// Get loads all run configs from the yaml file at path.
func Get(path string) ([]Config, error) {
	f, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var configsTmp []ConfigTmp
	if err := yaml.Unmarshal(f, &configsTmp); err != nil {
		return nil, err
	}
	if len(configsTmp) == 0 {
		return nil, fmt.Errorf("no runs defined in %s", path)
	}

	configs := make([]Config, 0, len(configsTmp))
	for _, c := range configsTmp {
		parsed, err := c.parse()
		if err != nil {
			return nil, fmt.Errorf("run %q: %w", c.Name, err)
		}
		configs = append(configs, parsed)
	}
	return configs, nil
}

func (c ConfigTmp) parse() (Config, error) {
	if c.Name == "" {
		return Config{}, fmt.Errorf("missing 'name' param")
	}
	if len(c.Tickers) == 0 {
		return Config{}, fmt.Errorf("missing 'tickers' param")
	}
	if c.Strategy == "" {
		return Config{}, fmt.Errorf("missing 'strategy' param")
	}

	initialCash, err := decimal.NewFromString(c.InitialCash)
	if err != nil {
		return Config{}, fmt.Errorf("incorrect 'initial_cash' param (correct format is 10000): %w", err)
	}
	if !initialCash.IsPositive() {
		return Config{}, fmt.Errorf("'initial_cash' must be positive, got %s", initialCash)
	}

	start, err := time.Parse(dateLayout, c.Start)
	if err != nil {
		return Config{}, fmt.Errorf("incorrect 'start' param (correct format is 2024-01-02): %w", err)
	}
	end, err := time.Parse(dateLayout, c.End)
	if err != nil {
		return Config{}, fmt.Errorf("incorrect 'end' param (correct format is 2024-01-02): %w", err)
	}
	if end.Before(start) {
		return Config{}, fmt.Errorf("'end' %s is before 'start' %s", c.End, c.Start)
	}

	lookback := 0
	if c.LookbackStr != "" {
		lookback, err = strconv.Atoi(c.LookbackStr)
		if err != nil || lookback < 1 {
			return Config{}, fmt.Errorf("incorrect 'lookback' param (must be a positive integer)")
		}
	}

	riskFreeRate := 0.0
	if c.RiskFreeRateStr != "" {
		riskFreeRate, err = strconv.ParseFloat(c.RiskFreeRateStr, 64)
		if err != nil {
			return Config{}, fmt.Errorf("incorrect 'risk_free_rate' param (must be a number): %w", err)
		}
	}

	dataSource := c.DataSource
	if dataSource == "" {
		dataSource = "csv"
	}
	switch dataSource {
	case "csv", "binance", "bybit":
	default:
		return Config{}, fmt.Errorf("unknown 'data_source' %q, want csv, binance or bybit", dataSource)
	}
	if dataSource == "csv" && c.DataDir == "" {
		return Config{}, fmt.Errorf("'data_dir' is required when data_source is csv")
	}

	journalDir := c.JournalDir
	if journalDir == "" {
		journalDir = "journal"
	}
	reportDir := c.ReportDir
	if reportDir == "" {
		reportDir = "reports"
	}

	return Config{
		Name:         c.Name,
		Tickers:      c.Tickers,
		InitialCash:  initialCash,
		Start:        start.UTC(),
		End:          end.UTC(),
		Lookback:     lookback,
		Strategy:     c.Strategy,
		StrategyArgs: c.StrategyArgs,
		Guardrails:   c.Guardrails,
		AllowShort:   c.AllowShort,
		DataSource:   dataSource,
		DataDir:      c.DataDir,
		CacheDir:     c.CacheDir,
		JournalDir:   journalDir,
		ReportDir:    reportDir,
		RiskFreeRate: riskFreeRate,
	}, nil
}
