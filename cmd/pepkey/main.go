// PepKey - peptide PSM filtering and match-across-runs tool
package main

import (
	"fmt"
	"os"

	"github.com/ChrisMcGann/PepKey/cmd/pepkey/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
