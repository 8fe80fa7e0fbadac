// Package setup provides an interactive terminal wizard that generates a
// run config yaml.
package setup

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/folio/config"
	"gopkg.in/yaml.v3"
)

const (
	dateLayout = "2006-01-02"
	// GeneratedConfigPath is where the wizard saves its output.
	GeneratedConfigPath = "config.gen.yaml"
)

var (
	subtle    = lipgloss.AdaptiveColor{Light: "#D9DCCF", Dark: "#383838"}
	highlight = lipgloss.AdaptiveColor{Light: "#874BFD", Dark: "#7D56F4"}
	special   = lipgloss.AdaptiveColor{Light: "#43BF6D", Dark: "#73F59F"}

	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Background(highlight).
			Padding(1, 2).
			Bold(true).
			MarginBottom(1)

	stepStyle = lipgloss.NewStyle().
			Foreground(special).
			Bold(true).
			MarginTop(1).
			MarginBottom(0)
)

// RunTUI launches the terminal configuration wizard and writes the resulting
// run config to GeneratedConfigPath.
func RunTUI(strategies, guardrails []string) error {
	var (
		name       string
		strategy   string
		tickersStr string
		cashStr    string
		startStr   string
		endStr     string
		dataSource string
		dataDir    string
		picked     []string
		allowShort bool
		confirm    bool
	)

	// defaults
	name = "run-" + time.Now().Format(dateLayout)
	cashStr = "10000"
	endStr = time.Now().Format(dateLayout)
	startStr = time.Now().AddDate(-1, 0, 0).Format(dateLayout)
	dataDir = "data"

	fmt.Print("\033[H\033[2J")
	fmt.Println(headerStyle.Render("FOLIO CONFIG WIZARD"))
	fmt.Println(lipgloss.NewStyle().Foreground(subtle).Render("Let's describe your simulation run.\n"))

	fmt.Println(stepStyle.Render("STEP 1: RUN"))
	err := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Run Name").
				Value(&name).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return fmt.Errorf("name cannot be empty")
					}
					return nil
				}),
			huh.NewInput().
				Title("Tickers").
				Description("Comma-separated (e.g. BTCUSDT,ETHUSDT)").
				Value(&tickersStr).
				Validate(func(s string) error {
					if len(splitTickers(s)) == 0 {
						return fmt.Errorf("at least one ticker is required")
					}
					return nil
				}),
			huh.NewInput().
				Title("Initial Cash").
				Value(&cashStr).
				Validate(validateCash),
		),
	).Run()
	if err != nil {
		return err
	}

	fmt.Print("\033[H\033[2J")
	fmt.Println(headerStyle.Render("FOLIO CONFIG WIZARD"))
	fmt.Println(stepStyle.Render("STEP 2: STRATEGY"))
	err = huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Choose your strategy").
				Options(stringOptions(strategies)...).
				Value(&strategy),
		),
	).Run()
	if err != nil {
		return err
	}

	fmt.Print("\033[H\033[2J")
	fmt.Println(headerStyle.Render("FOLIO CONFIG WIZARD"))
	fmt.Println(stepStyle.Render("STEP 3: HORIZON"))
	err = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Start Date").
				Description("Format: 2024-01-02").
				Value(&startStr).
				Validate(validateDate),
			huh.NewInput().
				Title("End Date").
				Description("Format: 2024-01-02").
				Value(&endStr).
				Validate(validateDate),
		),
	).Run()
	if err != nil {
		return err
	}

	fmt.Print("\033[H\033[2J")
	fmt.Println(headerStyle.Render("FOLIO CONFIG WIZARD"))
	fmt.Println(stepStyle.Render("STEP 4: DATA"))
	err = huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Bar Data Source").
				Options(
					huh.NewOption("CSV files", "csv"),
					huh.NewOption("Binance", "binance"),
					huh.NewOption("Bybit", "bybit"),
				).
				Value(&dataSource),
		),
	).Run()
	if err != nil {
		return err
	}

	if dataSource == "csv" {
		err = huh.NewForm(
			huh.NewGroup(
				huh.NewInput().
					Title("Data Directory").
					Description("Directory with <TICKER>.csv files").
					Value(&dataDir),
			),
		).Run()
		if err != nil {
			return err
		}
	}

	fmt.Print("\033[H\033[2J")
	fmt.Println(headerStyle.Render("FOLIO CONFIG WIZARD"))
	fmt.Println(stepStyle.Render("STEP 5: GUARDRAILS"))
	err = huh.NewForm(
		huh.NewGroup(
			huh.NewMultiSelect[string]().
				Title("Guardrails to apply, in order").
				Options(stringOptions(guardrails)...).
				Value(&picked),
			huh.NewConfirm().
				Title("Allow short selling?").
				Value(&allowShort),
		),
	).Run()
	if err != nil {
		return err
	}

	fmt.Print("\033[H\033[2J")
	fmt.Println(headerStyle.Render("FOLIO CONFIG WIZARD"))
	fmt.Println(stepStyle.Render("FINAL CONFIRMATION"))

	summary := fmt.Sprintf(
		"Run: %s\nStrategy: %s\nTickers: %s\nCash: %s\nHorizon: %s .. %s\nData: %s\nGuardrails: %s\n",
		name, strategy, tickersStr, cashStr, startStr, endStr, dataSource, strings.Join(picked, ", "),
	)
	fmt.Println(lipgloss.NewStyle().Border(lipgloss.NormalBorder()).Padding(1).Render(summary))

	err = huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Save Configuration?").
				Affirmative("Yes, save").
				Negative("No, exit").
				Value(&confirm),
		),
	).Run()
	if err != nil {
		return err
	}
	if !confirm {
		return fmt.Errorf("setup cancelled by user")
	}

	guardrailConfigs := make([]config.GuardrailConfig, len(picked))
	for i, g := range picked {
		guardrailConfigs[i] = config.GuardrailConfig{Name: g}
	}

	cfgTmp := config.ConfigTmp{
		Name:        name,
		Tickers:     splitTickers(tickersStr),
		InitialCash: cashStr,
		Start:       startStr,
		End:         endStr,
		Strategy:    strategy,
		Guardrails:  guardrailConfigs,
		AllowShort:  allowShort,
		DataSource:  dataSource,
	}
	if dataSource == "csv" {
		cfgTmp.DataDir = dataDir
	}

	data, err := yaml.Marshal([]config.ConfigTmp{cfgTmp})
	if err != nil {
		return fmt.Errorf("failed to generate yaml: %w", err)
	}
	if err := os.WriteFile(GeneratedConfigPath, data, 0644); err != nil {
		return fmt.Errorf("failed to save config file: %w", err)
	}

	fmt.Println(lipgloss.NewStyle().Foreground(special).Render(
		fmt.Sprintf("\n✓ Configuration saved to %s", GeneratedConfigPath)))
	return nil
}

func stringOptions(values []string) []huh.Option[string] {
	options := make([]huh.Option[string], len(values))
	for i, v := range values {
		options[i] = huh.NewOption(v, v)
	}
	return options
}

func splitTickers(s string) []string {
	var tickers []string
	for _, part := range strings.Split(s, ",") {
		ticker := strings.ToUpper(strings.TrimSpace(part))
		if ticker != "" {
			tickers = append(tickers, ticker)
		}
	}
	return tickers
}

func validateCash(s string) error {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return fmt.Errorf("must be a valid number")
	}
	if !d.IsPositive() {
		return fmt.Errorf("must be positive")
	}
	return nil
}

func validateDate(s string) error {
	_, err := time.Parse(dateLayout, s)
	if err != nil {
		return fmt.Errorf("must be formatted as 2024-01-02")
	}
	return nil
}
