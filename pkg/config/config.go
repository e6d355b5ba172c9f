// Package config resolves run settings from PEPKEY_* environment variables
package config

import (
	"os"
	"strconv"

	"github.com/ChrisMcGann/PepKey/pkg/pipeline"
)

// SoftThresholdQValue is the default upper bound of the soft-threshold band
const SoftThresholdQValue = 0.1

type Config struct {
	ProjectDir        string
	OutputPath        string
	UnimodCSV         string
	QValue            float64
	SoftQValue        float64
	UniqueOnly        bool
	MinSampleFraction float64
	UseSoftThreshold  bool
	MatchAcrossRuns   bool
	Workers           int
}

// Default returns the built-in settings
func Default() Config {
	return Config{
		OutputPath:        "pepkey.db",
		UnimodCSV:         "unimod_custom.csv",
		QValue:            0.01,
		SoftQValue:        SoftThresholdQValue,
		MinSampleFraction: 0.25,
		UseSoftThreshold:  true,
		Workers:           1,
	}
}

// Load overlays PEPKEY_* environment variables on Default
func Load() Config {
	d := Default()
	return Config{
		ProjectDir:        getenv("PEPKEY_PROJECT_DIR", d.ProjectDir),
		OutputPath:        getenv("PEPKEY_OUT", d.OutputPath),
		UnimodCSV:         getenv("PEPKEY_UNIMOD_CSV", d.UnimodCSV),
		QValue:            getenvFloat("PEPKEY_Q_VALUE", d.QValue),
		SoftQValue:        getenvFloat("PEPKEY_SOFT_Q_VALUE", d.SoftQValue),
		UniqueOnly:        getenvBool("PEPKEY_UNIQUE_ONLY", d.UniqueOnly),
		MinSampleFraction: getenvFloat("PEPKEY_MIN_SAMPLE_FRACTION", d.MinSampleFraction),
		UseSoftThreshold:  getenvBool("PEPKEY_SOFT_THRESHOLD", d.UseSoftThreshold),
		MatchAcrossRuns:   getenvBool("PEPKEY_MATCH_ACROSS_RUNS", d.MatchAcrossRuns),
		Workers:           getenvInt("PEPKEY_WORKERS", d.Workers),
	}
}

// Options converts the filtering part of c into pipeline options
func (c Config) Options() pipeline.Options {
	opts := pipeline.DefaultOptions()
	opts.QValue = c.QValue
	opts.SoftQValue = c.SoftQValue
	opts.UniqueOnly = c.UniqueOnly
	opts.MinSampleFraction = c.MinSampleFraction
	opts.UseSoftThreshold = c.UseSoftThreshold
	opts.MatchAcrossRuns = c.MatchAcrossRuns
	opts.Workers = c.Workers
	return opts
}

func getenv(k, fallback string) string {
	v := os.Getenv(k)
	if v == "" {
		return fallback
	}
	return v
}

func getenvInt(k string, fallback int) int {
	v := os.Getenv(k)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getenvFloat(k string, fallback float64) float64 {
	v := os.Getenv(k)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

func getenvBool(k string, fallback bool) bool {
	v := os.Getenv(k)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}
