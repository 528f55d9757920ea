package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/apex/log"
	"github.com/spf13/cobra"

	"github.com/TobiSchelling/datalens/internal/aggregate"
	"github.com/TobiSchelling/datalens/internal/config"
	"github.com/TobiSchelling/datalens/internal/dataset"
	"github.com/TobiSchelling/datalens/internal/filter"
	"github.com/TobiSchelling/datalens/internal/ingest"
	"github.com/TobiSchelling/datalens/internal/logging"
	"github.com/TobiSchelling/datalens/internal/pipeline"
	"github.com/TobiSchelling/datalens/internal/server"
	"github.com/TobiSchelling/datalens/internal/session"
)

var version = "dev"

var (
	verbose    bool
	configPath string
	cfg        *config.Config
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "datalens",
	Short:   "Filter and aggregate JSON insight records",
	Long:    "datalens loads a JSON dataset, filters it by sector, region, country and intensity, and summarizes what remains.",
	Version: version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Skip config loading for init and version
		if cmd.Name() == "init" || cmd.Name() == "version" {
			return logging.Setup(os.Stderr, "", verbose)
		}

		path, err := config.ResolveConfigPath(configPath)
		if err != nil {
			return err
		}
		cfg, err = config.Load(path)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		if err := logging.Setup(os.Stderr, cfg.Logging.Level, verbose); err != nil {
			return err
		}
		if path != "" {
			log.WithField("path", path).Debug("config loaded")
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(summaryCmd)
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(schemaCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("datalens", version)
	},
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration in ~/.config/datalens/",
	RunE: func(cmd *cobra.Command, args []string) error {
		target := filepath.Join(config.ConfigDir(), "config.yaml")
		if _, err := os.Stat(target); err == nil {
			fmt.Printf("Config already exists: %s\n", target)
			return nil
		}

		if err := os.MkdirAll(config.ConfigDir(), 0o755); err != nil {
			return fmt.Errorf("creating config directory: %w", err)
		}

		if err := os.WriteFile(target, config.DefaultConfigYAML, 0o644); err != nil {
			return fmt.Errorf("writing config: %w", err)
		}

		fmt.Printf("Created config: %s\n", target)
		fmt.Println("Edit it to change the server address, upload limit, and cache settings.")
		return nil
	},
}

// --- serve command ---

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the local web dashboard",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Flags().Changed("port") {
			cfg.Server.Port = servePort
		}

		fmt.Printf("Starting server at http://%s\n", cfg.Addr())
		fmt.Println("Press Ctrl+C to stop")
		return server.Serve(cfg, session.New(cfg))
	},
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 8000, "Port to run server on")
}

// --- summary command ---

var summaryCmd = &cobra.Command{
	Use:   "summary <file>",
	Short: "Print headline metrics and filter options for a dataset",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		records, err := ingest.ReadFile(context.Background(), args[0], cfg.Upload.MaxBytes)
		if err != nil {
			return fmt.Errorf("%s: %w", ingest.UserMessage(err), err)
		}

		s := aggregate.Summarize(records)
		opts := filter.OptionsFor(records)

		fmt.Printf("File: %s\n\n", filepath.Base(args[0]))
		fmt.Println("Overview:")
		fmt.Printf("  Total entries: %d\n", s.TotalEntries)
		fmt.Printf("  Sectors: %d\n", s.UniqueSectors)
		fmt.Printf("  Regions: %d\n", s.UniqueRegions)
		fmt.Printf("  Avg intensity: %s\n", aggregate.FormatOneDecimal(s.AvgIntensity))
		fmt.Println("\nFilter options:")
		printOptions("Sectors", opts.Sectors)
		printOptions("Regions", opts.Regions)
		printOptions("Countries", opts.Countries)
		fmt.Printf("  Max intensity: %v\n", opts.MaxIntensity)
		return nil
	},
}

const countryListLimit = 20

func printOptions(label string, values []string) {
	if len(values) == 0 {
		fmt.Printf("  %s: none\n", label)
		return
	}
	shown := values
	if len(shown) > countryListLimit {
		shown = shown[:countryListLimit]
	}
	fmt.Printf("  %s (%d): %s", label, len(values), strings.Join(shown, ", "))
	if rest := len(values) - len(shown); rest > 0 {
		fmt.Printf(" (and %d more...)", rest)
	}
	fmt.Println()
}

// --- analyze command ---

var (
	sectors      []string
	regions      []string
	countries    []string
	minIntensity float64
	maxIntensity float64
	outputPath   string
	reportPath   string
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <file>",
	Short: "Run ingest -> filter -> aggregate -> export -> report over a dataset",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		criteria := dataset.Criteria{Sector: sectors, Region: regions, Country: countries}

		minSet, maxSet := cmd.Flags().Changed("min-intensity"), cmd.Flags().Changed("max-intensity")
		if minSet != maxSet {
			return fmt.Errorf("--min-intensity and --max-intensity must be given together")
		}
		if minSet {
			criteria.IntensityRange = &dataset.Range{Min: minIntensity, Max: maxIntensity}
		}

		pipe := pipeline.New(pipeline.Options{
			Criteria:   criteria,
			OutputPath: outputPath,
			ReportPath: reportPath,
			MaxBytes:   cfg.Upload.MaxBytes,
		})
		result := pipe.Run(context.Background(), args[0])

		for i, step := range result.Steps {
			fmt.Printf("\nStep %d/%d: %s\n", i+1, pipeline.StepCount, step.Name)
			if step.Err != nil {
				fmt.Printf("  Error: %v\n", step.Err)
			} else {
				fmt.Printf("  %s\n", step.Summary)
			}
		}

		if result.Failed() {
			return fmt.Errorf("analysis of %s failed", args[0])
		}
		fmt.Printf("\nAnalyzing %d of %d entries from %s\n", len(result.Records), result.Total, filepath.Base(args[0]))
		return nil
	},
}

func init() {
	analyzeCmd.Flags().StringSliceVar(&sectors, "sector", nil, "Keep entries in these sectors")
	analyzeCmd.Flags().StringSliceVar(&regions, "region", nil, "Keep entries in these regions")
	analyzeCmd.Flags().StringSliceVar(&countries, "country", nil, "Keep entries in these countries")
	analyzeCmd.Flags().Float64Var(&minIntensity, "min-intensity", 0, "Lower intensity bound (inclusive)")
	analyzeCmd.Flags().Float64Var(&maxIntensity, "max-intensity", 0, "Upper intensity bound (inclusive)")
	analyzeCmd.Flags().StringVarP(&outputPath, "output", "o", "", "Write filtered entries to this file or directory")
	analyzeCmd.Flags().StringVar(&reportPath, "report", "", "Write a markdown report to this file")
}

// --- schema command ---

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Print the JSON schema of an input record",
	RunE: func(cmd *cobra.Command, args []string) error {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(ingest.Schema())
	},
}
