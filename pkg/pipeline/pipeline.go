// Package pipeline filters every fraction of every sample of a project:
// strict q-value filtering, optional soft-threshold rescue and optional
// match-across-runs, against a master candidate snapshot built once.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/ChrisMcGann/PepKey/pkg/candidate"
	"github.com/ChrisMcGann/PepKey/pkg/core"
	"github.com/ChrisMcGann/PepKey/pkg/filter"
	"github.com/ChrisMcGann/PepKey/pkg/fraction"
	"github.com/ChrisMcGann/PepKey/pkg/mar"
	"github.com/ChrisMcGann/PepKey/pkg/regress"
	"github.com/ChrisMcGann/PepKey/pkg/store"
)

// Options holds the filtering configuration of a run
type Options struct {
	QValue            float64 // Peptide q-value threshold
	SoftQValue        float64 // Upper bound of the soft-threshold band
	UniqueOnly        bool    // Keep only peptides mapping to one protein
	MinSampleFraction float64 // Quorum for master candidates
	UseSoftThreshold  bool
	MatchAcrossRuns   bool
	Workers           int // Fractions processed concurrently by Run
	Regression        regress.Params
}

// DefaultOptions returns the default run configuration
func DefaultOptions() Options {
	return Options{
		QValue:            filter.DefaultQValue,
		SoftQValue:        fraction.DefaultSoftQValue,
		MinSampleFraction: candidate.DefaultMinFraction,
		UseSoftThreshold:  true,
		Workers:           1,
		Regression:        regress.DefaultParams(),
	}
}

// Validate checks option ranges
func (o Options) Validate() error {
	if o.QValue < 0 || o.QValue > 1 {
		return fmt.Errorf("q-value threshold %v outside [0,1]: %w", o.QValue, core.ErrInvalidArgument)
	}
	if o.UseSoftThreshold && o.SoftQValue < o.QValue {
		return fmt.Errorf("soft q-value %v below q-value threshold %v: %w", o.SoftQValue, o.QValue, core.ErrInvalidArgument)
	}
	if o.MinSampleFraction < 0 {
		return fmt.Errorf("min sample fraction %v is negative: %w", o.MinSampleFraction, core.ErrInvalidArgument)
	}
	return nil
}

func (o Options) filter() filter.Config {
	return filter.Config{QValue: o.QValue, UniqueOnly: o.UniqueOnly}
}

// Result is the filtered PSM set of one sample fraction
type Result struct {
	Sample    string
	FileIndex int
	PSMs      []core.PSM
}

// Count returns the number of rows carrying evidence ev
func (r *Result) Count(ev core.Evidence) int {
	n := 0
	for i := range r.PSMs {
		if r.PSMs[i].Evidence == ev {
			n++
		}
	}
	return n
}

// Pipeline runs the filtering of a loaded project
type Pipeline struct {
	store      *store.Store
	opts       Options
	logger     *slog.Logger
	diag       *slog.Logger
	candidates *candidate.Set
	engine     *mar.Engine
}

// New creates a pipeline. Nil loggers discard output; diag receives the
// per-fit match-across-runs diagnostics.
func New(st *store.Store, opts Options, logger, diag *slog.Logger) *Pipeline {
	discard := slog.New(slog.NewTextHandler(io.Discard, nil))
	if logger == nil {
		logger = discard
	}
	if diag == nil {
		diag = discard
	}
	return &Pipeline{store: st, opts: opts, logger: logger, diag: diag}
}

// Prepare builds the master candidate snapshot. It must run before any
// fraction is filtered.
func (p *Pipeline) Prepare() error {
	if err := p.opts.Validate(); err != nil {
		return err
	}
	cands, err := candidate.Build(p.store, p.opts.filter(), p.opts.MinSampleFraction)
	if err != nil {
		return err
	}
	p.candidates = cands
	p.engine = mar.New(p.store, cands, p.opts.filter(),
		mar.WithParams(p.opts.Regression),
		mar.WithLogger(p.logger),
		mar.WithDiagnostics(p.diag))

	p.logger.Info("built master candidate list",
		"candidates", cands.Len(), "samples", p.store.NumSamples(), "min_fraction", p.opts.MinSampleFraction)
	return nil
}

// Candidates returns the master candidate snapshot, nil before Prepare
func (p *Pipeline) Candidates() *candidate.Set {
	return p.candidates
}

// FilterFraction filters one sample fraction. Strictly filtered rows come
// first, then soft-rescued rows, then match-across-runs rows.
func (p *Pipeline) FilterFraction(sample string, fileIndex int) (Result, error) {
	res := Result{Sample: sample, FileIndex: fileIndex}
	if p.candidates == nil {
		return res, fmt.Errorf("filter %s fraction %d before Prepare: %w", sample, fileIndex, core.ErrState)
	}

	sampleRecs, err := p.store.SampleRecords(sample)
	if err != nil {
		return res, err
	}
	frac, err := fraction.Resolve(sampleRecs, fileIndex)
	if err != nil {
		return res, fmt.Errorf("sample %s: %w", sample, err)
	}

	cfg := p.opts.filter()
	filtered := cfg.Apply(frac)
	for i := range filtered {
		filtered[i].Evidence = core.EvidenceQValue
	}

	if p.opts.UseSoftThreshold {
		soft := fraction.Rescue(frac, p.candidates.ForFraction(fileIndex), p.opts.QValue, p.opts.SoftQValue)
		filtered = append(filtered, soft...)
	}

	if p.opts.MatchAcrossRuns {
		matched, err := p.engine.Match(sample, fileIndex, filtered)
		if err != nil {
			return res, err
		}
		filtered = append(filtered, matched...)
	}

	res.PSMs = filtered
	p.logger.Info("filtered fraction",
		"sample", sample, "file_idx", fileIndex, "psms", len(frac),
		"q_value", res.Count(core.EvidenceQValue),
		"soft", res.Count(core.EvidenceSoft),
		"match_across_runs", res.Count(core.EvidenceMatchAcrossRuns))
	return res, nil
}

// Task identifies one sample fraction
type Task struct {
	Sample    string
	FileIndex int
}

// Tasks lists every (sample, fraction) pair in sample load order and
// ascending fraction index.
func (p *Pipeline) Tasks() ([]Task, error) {
	var tasks []Task
	for _, sample := range p.store.Samples() {
		indices, err := p.store.FileIndices(sample)
		if err != nil {
			return nil, err
		}
		for _, idx := range indices {
			tasks = append(tasks, Task{Sample: sample, FileIndex: idx})
		}
	}
	return tasks, nil
}

// Run filters every fraction with up to Options.Workers fractions in
// flight. Results are returned in Tasks order.
func (p *Pipeline) Run(ctx context.Context) ([]Result, error) {
	if p.candidates == nil {
		return nil, fmt.Errorf("run before Prepare: %w", core.ErrState)
	}
	tasks, err := p.Tasks()
	if err != nil {
		return nil, err
	}

	workers := p.opts.Workers
	if workers < 1 {
		workers = 1
	}

	results := make([]Result, len(tasks))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, task := range tasks {
		i, task := i, task
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			res, err := p.FilterFraction(task.Sample, task.FileIndex)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
