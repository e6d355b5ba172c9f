package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ChrisMcGann/PepKey/pkg/config"
	"github.com/ChrisMcGann/PepKey/pkg/core"
	"github.com/ChrisMcGann/PepKey/pkg/pipeline"
	"github.com/ChrisMcGann/PepKey/pkg/project"
	"github.com/ChrisMcGann/PepKey/pkg/writer/sqlite"
)

// MARLogName is the diagnostic log written next to the output database
const MARLogName = "pepkey_match_across_run.log"

var filterCmd = &cobra.Command{
	Use:   "filter",
	Short: "Filter project PSMs and write them to a SQLite database",
	Long: `Filter the Percolator PSMs of every sample fraction of a project and write
the accepted rows to a SQLite database.

Examples:
  # Filter at 1% FDR with soft threshold rescue
  pepkey filter --project ./proj --out proj.db

  # Unique peptides only, match across runs on 8 threads
  pepkey filter --project ./proj --out proj.db --unique --mar --threads 8

  # Restrict to two samples, without soft threshold
  pepkey filter --project ./proj --out proj.db --samples time0,time6 --soft=false`,
	Args: cobra.NoArgs,
	RunE: runFilter,
}

func runFilter(cmd *cobra.Command, args []string) error {
	if err := requireProject(); err != nil {
		return err
	}

	cfg := config.Config{
		ProjectDir:        projectDir,
		OutputPath:        outputFile,
		UnimodCSV:         unimodCSV,
		QValue:            qValue,
		SoftQValue:        softQValue,
		UniqueOnly:        uniqueOnly,
		MinSampleFraction: minSampleFraction,
		UseSoftThreshold:  useSoftThreshold,
		MatchAcrossRuns:   matchAcrossRuns,
		Workers:           threads,
	}
	opts := cfg.Options()
	if err := opts.Validate(); err != nil {
		return err
	}

	fmt.Printf("Filtering %s to %s...\n", projectDir, outputFile)
	fmt.Printf("Q-value threshold: %g\n", opts.QValue)
	if opts.UseSoftThreshold {
		fmt.Printf("Soft threshold: %g\n", opts.SoftQValue)
	}
	if opts.UniqueOnly {
		fmt.Printf("Unique peptides only\n")
	}
	if opts.MatchAcrossRuns {
		fmt.Printf("Match across runs: min sample fraction %g\n", opts.MinSampleFraction)
	}

	modDB := loadModDatabase(unimodCSV)
	st, err := project.Load(projectDir, parseSamples(sampleList), modDB)
	if err != nil {
		return fmt.Errorf("failed to load project: %w", err)
	}
	fmt.Printf("Loaded %d PSMs from %d samples\n", st.Len(), st.NumSamples())

	level := slog.LevelWarn
	if verbose {
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	var diag *slog.Logger
	if opts.MatchAcrossRuns {
		logPath := filepath.Join(filepath.Dir(outputFile), MARLogName)
		logFile, err := os.Create(logPath)
		if err != nil {
			return fmt.Errorf("failed to create match across runs log: %w", err)
		}
		defer logFile.Close()
		diag = slog.New(slog.NewJSONHandler(logFile, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}

	p := pipeline.New(st, opts, logger, diag)
	if err := p.Prepare(); err != nil {
		return fmt.Errorf("failed to build master peptide list: %w", err)
	}
	fmt.Printf("Master peptides: %d\n", p.Candidates().Len())

	results, err := p.Run(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to filter fractions: %w", err)
	}

	writer, err := sqlite.NewWriter(outputFile)
	if err != nil {
		return fmt.Errorf("failed to create output database: %w", err)
	}
	defer writer.Close()

	if err := writer.WriteRun(sqlite.RunInfo{Options: opts, NumSamples: st.NumSamples()}); err != nil {
		return err
	}

	totals := make(map[core.Evidence]int)
	for _, res := range results {
		if err := writer.WriteFraction(res); err != nil {
			return fmt.Errorf("failed to write %s fraction %d: %w", res.Sample, res.FileIndex, err)
		}
		for _, ev := range []core.Evidence{core.EvidenceQValue, core.EvidenceSoft, core.EvidenceMatchAcrossRuns} {
			totals[ev] += res.Count(ev)
		}
	}

	if err := writer.Close(); err != nil {
		return err
	}

	fmt.Printf("\nFiltering complete!\n")
	fmt.Printf("Run: %s\n", writer.RunID())
	fmt.Printf("Fractions: %d\n", len(results))
	fmt.Printf("Q-value PSMs: %d\n", totals[core.EvidenceQValue])
	if opts.UseSoftThreshold {
		fmt.Printf("Soft threshold PSMs: %d\n", totals[core.EvidenceSoft])
	}
	if opts.MatchAcrossRuns {
		fmt.Printf("Matched across runs: %d\n", totals[core.EvidenceMatchAcrossRuns])
	}
	fmt.Printf("Output: %s\n", outputFile)

	return nil
}
