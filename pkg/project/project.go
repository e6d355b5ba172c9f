// Package project discovers the samples of a project directory and loads
// their Percolator results into a record store. Each sample lives in
// <root>/<sample>/percolator/ with exactly one *target.psms.txt table.
package project

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ChrisMcGann/PepKey/pkg/core"
	"github.com/ChrisMcGann/PepKey/pkg/reader/percolator"
	"github.com/ChrisMcGann/PepKey/pkg/store"
)

const (
	// PercolatorDir is the per-sample subdirectory holding Percolator output
	PercolatorDir = "percolator"
	// PSMTableSuffix identifies the target PSM table
	PSMTableSuffix = "target.psms.txt"
)

// Discover returns the sorted names of root's subdirectories that contain
// a percolator directory.
func Discover(root string) ([]string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("failed to read project directory: %w", err)
	}

	var samples []string
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		info, err := os.Stat(filepath.Join(root, entry.Name(), PercolatorDir))
		if err == nil && info.IsDir() {
			samples = append(samples, entry.Name())
		}
	}
	sort.Strings(samples)
	return samples, nil
}

// PSMTable returns the path of the single PSM table of a sample.
func PSMTable(root, sample string) (string, error) {
	dir := filepath.Join(root, sample, PercolatorDir)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("sample %s: project sample subdirectory not valid: %w", sample, err)
	}

	var matches []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), PSMTableSuffix) {
			matches = append(matches, entry.Name())
		}
	}
	if len(matches) != 1 {
		return "", fmt.Errorf("sample %s: expected 1 *%s in %s, found %d", sample, PSMTableSuffix, dir, len(matches))
	}
	return filepath.Join(dir, matches[0]), nil
}

// LoadSample reads the PSM table of one sample
func LoadSample(root, sample string, modDB *core.ModDatabase) ([]core.PSM, error) {
	path, err := PSMTable(root, sample)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open PSM table: %w", err)
	}
	defer f.Close()

	psms, err := percolator.NewReader(f, modDB).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("error reading %s: %w", path, err)
	}
	return psms, nil
}

// Load reads every listed sample into a new store, in the given order.
// A nil or empty sample list loads every discovered sample.
func Load(root string, samples []string, modDB *core.ModDatabase) (*store.Store, error) {
	if len(samples) == 0 {
		var err error
		samples, err = Discover(root)
		if err != nil {
			return nil, err
		}
		if len(samples) == 0 {
			return nil, fmt.Errorf("no sample directories with a %s subdirectory in %s", PercolatorDir, root)
		}
	}

	st := store.New()
	for _, sample := range samples {
		psms, err := LoadSample(root, sample, modDB)
		if err != nil {
			return nil, err
		}
		st.Add(sample, psms)
	}
	return st, nil
}
