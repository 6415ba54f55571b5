package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/rumor-ml/commons.systems/remitparse/internal/batch"
	"github.com/rumor-ml/commons.systems/remitparse/internal/classifier"
	"github.com/rumor-ml/commons.systems/remitparse/internal/ledger"
	"github.com/rumor-ml/commons.systems/remitparse/internal/output"
	"github.com/rumor-ml/commons.systems/remitparse/internal/pipeline"
	"github.com/rumor-ml/commons.systems/remitparse/internal/profiles"
	"github.com/rumor-ml/commons.systems/remitparse/internal/registry"
	"github.com/rumor-ml/commons.systems/remitparse/internal/ui"
)

const (
	version = "0.1.0"
)

var (
	// Global flags
	versionFlag = flag.Bool("version", false, "Show version")

	// Core CLI flags
	reportFile = flag.String("file", "", "Remittance report file to process (required)")
	ledgerFile = flag.String("ledger", "", "Ledger workbook to reconcile into (required)")
	portfolio  = flag.String("portfolio", "", "Target portfolio name (required)")
	period     = flag.String("period", "", "Reporting period label, e.g. 2026-08-28 (required)")
	verbose    = flag.Bool("verbose", false, "Show detailed processing logs")

	// Classification flags
	funderOverride = flag.String("funder", "", "Skip classification and attribute the file to this funder")
	profilesFile   = flag.String("profiles", "", "Funder profile catalog YAML (default: embedded)")

	// Persistence flags
	registryFile = flag.String("registry", "", "Identifier registry SQLite database")
	stateFile    = flag.String("state", "", "Daily-file accumulator state file")
	outputFile   = flag.String("output", "", "Run summary JSON file (default: stdout)")
)

func main() {
	// Custom usage message
	flag.Usage = func() {
		fmt.Fprint(os.Stderr, `remitparse - Funder remittance report reconciler

Usage:
  remitparse [flags]

Flags:
`)
		flag.PrintDefaults()
		fmt.Fprint(os.Stderr, `
Examples:
  # Classify and reconcile one report
  remitparse -file vantage_week35.csv -ledger portfolio.xlsx -portfolio alpha -period 2026-08-28

  # Daily funder with persistent arrival tracking and registry
  remitparse -file meridian_day3.csv -ledger portfolio.xlsx -portfolio alpha -period 2026-08-28 \
    -registry advances.db -state arrivals.json

  # Force the funder when classification is not trusted
  remitparse -file upload.csv -ledger portfolio.xlsx -portfolio alpha -period 2026-08-28 \
    -funder "Vantage Funding"

`)
	}

	flag.Parse()

	// Handle version flag
	if *versionFlag {
		fmt.Printf("remitparse version %s\n", version)
		os.Exit(0)
	}

	// Validate required flags
	for name, value := range map[string]string{
		"-file":      *reportFile,
		"-ledger":    *ledgerFile,
		"-portfolio": *portfolio,
		"-period":    *period,
	} {
		if value == "" {
			fmt.Fprintf(os.Stderr, "Error: %s flag is required\n\n", name)
			flag.Usage()
			os.Exit(1)
		}
	}

	if err := run(); err != nil {
		ui.Error(err.Error())
		os.Exit(1)
	}
}

func run() error {
	if !*verbose {
		ui.Header("Reconciling Remittance Report")
		ui.Step(1, 4, "Loading funder profiles")
	}

	catalog, err := loadCatalog()
	if err != nil {
		return err
	}
	if *verbose {
		log.Printf("loaded %d funder profiles: %v", len(catalog.Names()), catalog.Names())
	}

	var lookup classifier.IDLookup
	var store pipeline.IdentifierStore
	if *registryFile != "" {
		reg, err := registry.Open(*registryFile)
		if err != nil {
			return fmt.Errorf("failed to open identifier registry: %w", err)
		}
		defer reg.Close()
		lookup = reg
		store = reg
	}

	accumulator, err := batch.New(*stateFile)
	if err != nil {
		return fmt.Errorf("failed to load accumulator state: %w", err)
	}

	reconciler, err := ledger.New(*ledgerFile, ledger.DefaultConfig())
	if err != nil {
		return err
	}

	coordinator := pipeline.New(catalog, classifier.New(catalog, lookup), reconciler, store, accumulator)

	if !*verbose {
		ui.Step(2, 4, "Classifying and parsing report")
	} else {
		log.Printf("processing %s for portfolio %s, period %s", *reportFile, *portfolio, *period)
	}

	summary, err := coordinator.Process(pipeline.ProcessRequest{
		FilePath:       *reportFile,
		Portfolio:      *portfolio,
		Period:         *period,
		FunderOverride: *funderOverride,
	})
	if err != nil {
		return err
	}

	if !*verbose {
		ui.Step(3, 4, "Reconciling ledger")
	}
	report(summary)

	if !*verbose {
		ui.Step(4, 4, "Writing run summary")
	}
	if err := output.WriteSummaryToFile(summary, output.WriteOptions{FilePath: *outputFile}); err != nil {
		return err
	}
	if *outputFile != "" && !*verbose {
		ui.Success(fmt.Sprintf("Summary written to %s", *outputFile))
	}
	return nil
}

func loadCatalog() (*profiles.Catalog, error) {
	if *profilesFile != "" {
		catalog, err := profiles.LoadFromFile(*profilesFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load profiles from %s: %w", *profilesFile, err)
		}
		return catalog, nil
	}
	return profiles.LoadEmbedded()
}

func report(summary *pipeline.ProcessSummary) {
	if summary.Waiting {
		ui.Warning(fmt.Sprintf("%s period %s incomplete: %d file(s) received, holding reconciliation",
			summary.Funder, summary.Period, summary.FilesSeen))
		return
	}

	ui.Success(fmt.Sprintf("%s (confidence %.2f): %d rows, net %s",
		summary.Funder, summary.Confidence, summary.Rows, summary.Totals.Net))
	if len(summary.NewIDs) > 0 {
		ui.Info(fmt.Sprintf("Registered %d new advance identifier(s)", len(summary.NewIDs)))
	}
	if len(summary.Unmatched) > 0 {
		ui.Warning(fmt.Sprintf("%d advance(s) missing from the ledger:", len(summary.Unmatched)))
		for _, entry := range summary.Unmatched {
			ui.YellowText(fmt.Sprintf("  %s  %s", entry.AdvanceID, entry.MerchantName))
		}
	}
}
