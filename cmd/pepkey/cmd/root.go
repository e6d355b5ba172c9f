// Package cmd provides CLI command implementations
package cmd

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/ChrisMcGann/PepKey/pkg/config"
	"github.com/ChrisMcGann/PepKey/pkg/core"
	"github.com/ChrisMcGann/PepKey/pkg/writer/sqlite"
)

var (
	// Flags for filter command
	projectDir        string
	outputFile        string
	sampleList        string
	unimodCSV         string
	qValue            float64
	softQValue        float64
	uniqueOnly        bool
	minSampleFraction float64
	useSoftThreshold  bool
	matchAcrossRuns   bool
	threads           int
	verbose           bool
)

var rootCmd = &cobra.Command{
	Use:   "pepkey",
	Short: "PepKey - peptide PSM filtering tool",
	Long: `PepKey filters Percolator peptide-spectrum matches of a multi-sample
project and writes the accepted PSMs of every fraction to a SQLite database.

Supported evidence levels:
- q-value threshold (optionally unique peptides only)
- soft threshold rescue of peptides seen in other samples
- match across runs by scan-number regression against peer samples`,
	Version:           "1.0.0",
	PersistentPreRunE: applyEnvironment,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cfg := config.Default()

	rootCmd.AddCommand(filterCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(summarizeCmd)

	// Filter command flags
	filterCmd.Flags().StringVarP(&projectDir, "project", "p", cfg.ProjectDir, "Project directory with one subdirectory per sample (required)")
	filterCmd.Flags().StringVarP(&outputFile, "out", "o", cfg.OutputPath, "Output database file")
	filterCmd.Flags().StringVarP(&sampleList, "samples", "s", "", "Comma-separated samples to load (default: all discovered)")
	filterCmd.Flags().StringVar(&unimodCSV, "unimod", cfg.UnimodCSV, "Custom modification CSV (Name,Mass)")
	filterCmd.Flags().Float64VarP(&qValue, "q-value", "q", cfg.QValue, "Peptide q-value threshold")
	filterCmd.Flags().Float64Var(&softQValue, "soft-q-value", cfg.SoftQValue, "Upper q-value bound of the soft threshold")
	filterCmd.Flags().BoolVarP(&uniqueOnly, "unique", "u", cfg.UniqueOnly, "Keep only peptides mapping to a single protein")
	filterCmd.Flags().Float64Var(&minSampleFraction, "min-fraction", cfg.MinSampleFraction, "Fraction of samples a peptide must be identified in")
	filterCmd.Flags().BoolVar(&useSoftThreshold, "soft", cfg.UseSoftThreshold, "Rescue master peptides under the soft q-value threshold")
	filterCmd.Flags().BoolVar(&matchAcrossRuns, "mar", cfg.MatchAcrossRuns, "Match missing master peptides across runs")
	filterCmd.Flags().IntVarP(&threads, "threads", "t", cfg.Workers, "Number of fractions filtered concurrently")
	filterCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Log per-fraction progress")

	validateCmd.Flags().StringVarP(&projectDir, "project", "p", cfg.ProjectDir, "Project directory (required)")
	validateCmd.Flags().StringVarP(&sampleList, "samples", "s", "", "Comma-separated samples to load (default: all discovered)")
	validateCmd.Flags().StringVar(&unimodCSV, "unimod", cfg.UnimodCSV, "Custom modification CSV (Name,Mass)")
}

// applyEnvironment loads .env, then fills every flag not given on the
// command line from the PEPKEY_* environment.
func applyEnvironment(cmd *cobra.Command, args []string) error {
	// Values in .env never override variables already set
	_ = godotenv.Load()
	cfg := config.Load()

	values := map[string]string{
		"project":      cfg.ProjectDir,
		"out":          cfg.OutputPath,
		"unimod":       cfg.UnimodCSV,
		"q-value":      strconv.FormatFloat(cfg.QValue, 'g', -1, 64),
		"soft-q-value": strconv.FormatFloat(cfg.SoftQValue, 'g', -1, 64),
		"unique":       strconv.FormatBool(cfg.UniqueOnly),
		"min-fraction": strconv.FormatFloat(cfg.MinSampleFraction, 'g', -1, 64),
		"soft":         strconv.FormatBool(cfg.UseSoftThreshold),
		"mar":          strconv.FormatBool(cfg.MatchAcrossRuns),
		"threads":      strconv.Itoa(cfg.Workers),
	}
	for name, value := range values {
		f := cmd.Flags().Lookup(name)
		if f == nil || f.Changed {
			continue
		}
		if err := f.Value.Set(value); err != nil {
			return fmt.Errorf("invalid environment value for --%s: %w", name, err)
		}
	}
	return nil
}

func requireProject() error {
	if projectDir == "" {
		return fmt.Errorf("required flag \"project\" not set (or PEPKEY_PROJECT_DIR)")
	}
	if _, err := os.Stat(projectDir); os.IsNotExist(err) {
		return fmt.Errorf("project directory does not exist: %s", projectDir)
	}
	return nil
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate project layout and PSM tables",
	Long:  `Load every sample of a project and print per-sample record counts and fractions.`,
	Args:  cobra.NoArgs,
	RunE:  runValidate,
}

var summarizeCmd = &cobra.Command{
	Use:   "summarize [file]",
	Short: "Summarize a filtered PSM database",
	Long:  `Print the number of accepted PSMs per run, sample and evidence level.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := os.Stat(args[0]); err != nil {
			return fmt.Errorf("database does not exist: %s", args[0])
		}
		counts, err := sqlite.Summarize(args[0])
		if err != nil {
			return err
		}
		if len(counts) == 0 {
			fmt.Println("No PSMs in database")
			return nil
		}
		fmt.Printf("%-36s  %-20s  %-18s  %8s\n", "Run", "Sample", "Evidence", "PSMs")
		for _, c := range counts {
			fmt.Printf("%-36s  %-20s  %-18s  %8d\n", c.RunID, c.Sample, c.Evidence, c.Rows)
		}
		return nil
	},
}

// parseSamples splits the --samples flag, nil when unset
func parseSamples(list string) []string {
	if strings.TrimSpace(list) == "" {
		return nil
	}
	var samples []string
	for _, s := range strings.Split(list, ",") {
		if s = strings.TrimSpace(s); s != "" {
			samples = append(samples, s)
		}
	}
	return samples
}

// loadModDatabase returns the default modifications plus the custom CSV if it exists
func loadModDatabase(path string) *core.ModDatabase {
	modDB := core.DefaultModDatabase()
	if path == "" {
		return modDB
	}
	if _, err := os.Stat(path); err == nil {
		f, err := os.Open(path)
		if err == nil {
			if err := modDB.LoadFromCSV(f); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: failed to load %s: %v\n", path, err)
			}
			f.Close()
		}
	}
	return modDB
}
