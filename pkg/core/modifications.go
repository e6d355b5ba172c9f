package core

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Modification is a mass shift at a residue position.
type Modification struct {
	Mass     float64
	Position int    // 0-based residue; -1 for N-term
	Name     string // As written in the sequence, e.g. "57.0215" or "Oxidation"
}

// ModDatabase stores modification definitions
type ModDatabase struct {
	mods map[string]float64 // name -> mass shift
}

// NewModDatabase creates an empty modification database
func NewModDatabase() *ModDatabase {
	return &ModDatabase{
		mods: make(map[string]float64),
	}
}

// LoadFromCSV loads modifications from a CSV file (format: mod,massshift,aa)
func (db *ModDatabase) LoadFromCSV(r io.Reader) error {
	scanner := bufio.NewScanner(r)

	// header
	scanner.Scan()

	lineNum := 1
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		parts := strings.Split(line, ",")
		if len(parts) < 2 {
			return fmt.Errorf("line %d: invalid format, expected at least 2 comma-separated fields", lineNum)
		}

		modName := strings.TrimSpace(parts[0])
		massStr := strings.TrimSpace(parts[1])

		mass, err := strconv.ParseFloat(massStr, 64)
		if err != nil {
			return fmt.Errorf("line %d: invalid mass value '%s': %w", lineNum, massStr, err)
		}

		db.mods[modName] = mass
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("error reading CSV: %w", err)
	}

	return nil
}

// GetMass returns the mass shift for a modification name
func (db *ModDatabase) GetMass(name string) (float64, bool) {
	mass, ok := db.mods[name]
	return mass, ok
}

// Add adds or updates a modification
func (db *ModDatabase) Add(name string, mass float64) {
	db.mods[name] = mass
}

// ParseSequence strips bracket modifications from a Crux/Percolator
// sequence such as "PEPC[57.0215]TIDEM[Oxidation]K" and returns the bare
// residues with the parsed modifications. A bracket before the first
// residue is an N-terminal modification. Bracket contents are either a
// mass shift or a name known to the database.
func (db *ModDatabase) ParseSequence(sequence string) (string, []Modification, error) {
	if !strings.ContainsAny(sequence, "[]") {
		return sequence, nil, nil
	}

	var residues strings.Builder
	var mods []Modification
	rest := sequence
	for rest != "" {
		open := strings.IndexByte(rest, '[')
		if open < 0 {
			if strings.IndexByte(rest, ']') >= 0 {
				return "", nil, fmt.Errorf("unbalanced ']' in sequence %q", sequence)
			}
			residues.WriteString(rest)
			break
		}
		if strings.IndexByte(rest[:open], ']') >= 0 {
			return "", nil, fmt.Errorf("unbalanced ']' in sequence %q", sequence)
		}
		residues.WriteString(rest[:open])
		end := strings.IndexByte(rest[open:], ']')
		if end < 0 {
			return "", nil, fmt.Errorf("unterminated '[' in sequence %q", sequence)
		}
		label := strings.TrimSpace(rest[open+1 : open+end])

		mass, err := strconv.ParseFloat(label, 64)
		if err != nil {
			var ok bool
			mass, ok = db.GetMass(label)
			if !ok {
				return "", nil, fmt.Errorf("unknown modification '%s' in sequence %q", label, sequence)
			}
		}
		mods = append(mods, Modification{
			Mass:     mass,
			Position: residues.Len() - 1,
			Name:     label,
		})
		rest = rest[open+end+1:]
	}

	return residues.String(), mods, nil
}

// DefaultModDatabase returns a ModDatabase pre-loaded with common modifications
func DefaultModDatabase() *ModDatabase {
	db := NewModDatabase()

	// Common modifications from unimod
	db.Add("Acetyl", 42.010565)
	db.Add("Amidated", -0.984016)
	db.Add("Carbamidomethyl", 57.021464)
	db.Add("Carbamyl", 43.005814)
	db.Add("Deamidated", 0.984016)
	db.Add("Phospho", 79.966331)
	db.Add("Dehydrated", -18.010565)
	db.Add("Glu->pyro-Glu", -18.010565)
	db.Add("Gln->pyro-Glu", -17.026549)
	db.Add("Methyl", 14.01565)
	db.Add("Oxidation", 15.994915)
	db.Add("Dimethyl", 28.0313)
	db.Add("Trimethyl", 42.04695)
	db.Add("Propionyl", 56.026215)
	// Heavy labels used in metabolic labeling / turnover experiments
	db.Add("Label:13C(6)", 6.020129)
	db.Add("Label:13C(6)15N(2)", 8.014199)
	db.Add("Label:13C(6)15N(4)", 10.008269)
	db.Add("Label:2H(4)", 4.025107)
	db.Add("TMT", 229.162932)
	db.Add("TMTPro", 304.207146)
	db.Add("iTRAQ4plex", 144.102063)
	db.Add("iTRAQ8plex", 304.205360)

	return db
}
