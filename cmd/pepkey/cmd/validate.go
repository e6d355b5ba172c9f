package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ChrisMcGann/PepKey/pkg/project"
)

func runValidate(cmd *cobra.Command, args []string) error {
	if err := requireProject(); err != nil {
		return err
	}

	st, err := project.Load(projectDir, parseSamples(sampleList), loadModDatabase(unimodCSV))
	if err != nil {
		return err
	}

	fmt.Printf("%-20s  %8s  %8s  %s\n", "Sample", "PSMs", "Unique", "Fractions")
	for _, sample := range st.Samples() {
		recs, err := st.SampleRecords(sample)
		if err != nil {
			return err
		}
		indices, err := st.FileIndices(sample)
		if err != nil {
			return err
		}
		unique := 0
		for i := range recs {
			if recs[i].IsUnique() {
				unique++
			}
		}
		fmt.Printf("%-20s  %8d  %8d  %v\n", sample, len(recs), unique, indices)
		if len(recs) == 0 {
			fmt.Fprintf(os.Stderr, "Warning: sample %s has no PSMs\n", sample)
		}
	}

	fmt.Printf("\nProject valid: %d samples, %d PSMs\n", st.NumSamples(), st.Len())
	return nil
}
