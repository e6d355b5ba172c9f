// Package mar predicts the scan of peptides that were confidently
// identified in other samples but not in the current fraction
// (match-across-runs). For every peer sample a bagging regressor maps
// the peer's scans of shared peptides onto the current sample's scans;
// per-peer predictions are combined by median.
package mar

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"sort"
	"strconv"

	"github.com/ChrisMcGann/PepKey/pkg/candidate"
	"github.com/ChrisMcGann/PepKey/pkg/core"
	"github.com/ChrisMcGann/PepKey/pkg/filter"
	"github.com/ChrisMcGann/PepKey/pkg/fraction"
	"github.com/ChrisMcGann/PepKey/pkg/regress"
	"github.com/ChrisMcGann/PepKey/pkg/store"
)

// PepIDPrefix prefixes the pep ids of synthesized rows
const PepIDPrefix = "matched_"

// Engine runs match-across-runs against a read-only store and candidate set.
// It holds no mutable state and is safe for concurrent use.
type Engine struct {
	store      *store.Store
	candidates *candidate.Set
	filter     filter.Config
	params     regress.Params
	logger     *slog.Logger // run progress
	diag       *slog.Logger // per-fit diagnostics
}

// Option configures an Engine
type Option func(*Engine)

// WithLogger sets the run logger
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithDiagnostics sets the match-across-runs diagnostic logger
func WithDiagnostics(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.diag = l
		}
	}
}

// WithParams overrides the regression hyperparameters
func WithParams(p regress.Params) Option {
	return func(e *Engine) {
		e.params = p
	}
}

// New creates an engine. cfg selects the confident identifications of
// peer samples and must match the filter used for the current fraction.
func New(st *store.Store, cands *candidate.Set, cfg filter.Config, opts ...Option) *Engine {
	discard := slog.New(slog.NewTextHandler(io.Discard, nil))
	e := &Engine{
		store:      st,
		candidates: cands,
		filter:     cfg,
		params:     regress.DefaultParams(),
		logger:     discard,
		diag:       discard,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Match synthesizes one placeholder PSM per candidate missing from the
// filtered rows of (sample, fileIndex) that at least one peer sample can
// place. filtered holds the rows already accepted for the fraction.
func (e *Engine) Match(sample string, fileIndex int, filtered []core.PSM) ([]core.PSM, error) {
	if e.store == nil || e.candidates == nil {
		return nil, fmt.Errorf("match-across-runs needs a store and master candidates: %w", core.ErrState)
	}
	if !e.store.HasSample(sample) {
		return nil, fmt.Errorf("sample %q not loaded: %w", sample, core.ErrInvalidArgument)
	}

	present := make(map[string]int, len(filtered))
	for i := range filtered {
		present[filtered[i].Key()] = filtered[i].Scan
	}

	var missing []candidate.Candidate
	for _, c := range e.candidates.ForFraction(fileIndex) {
		if _, ok := present[c.Key]; !ok {
			missing = append(missing, c)
		}
	}
	if len(missing) == 0 {
		return nil, nil
	}

	predictions := make(map[string][]float64, len(missing))
	for _, peer := range e.store.Samples() {
		if peer == sample {
			continue
		}
		preds, err := e.predictFromPeer(sample, peer, fileIndex, present, missing)
		if errors.Is(err, core.ErrDegenerateFit) {
			e.diag.Warn("skipping peer sample",
				"sample", sample, "peer", peer, "file_idx", fileIndex, "error", err)
			continue
		}
		if err != nil {
			return nil, err
		}
		for key, scan := range preds {
			predictions[key] = append(predictions[key], scan)
		}
	}

	var synthesized []core.PSM
	for _, c := range missing {
		scans := predictions[c.Key]
		if len(scans) == 0 {
			continue
		}
		seq, charge, err := core.ParseKey(c.Key)
		if err != nil {
			return nil, fmt.Errorf("match-across-runs in %s fraction %d: %w", sample, fileIndex, err)
		}
		synthesized = append(synthesized, core.PSM{
			Sequence:    seq,
			Charge:      charge,
			Scan:        int(math.Round(core.Median(scans))),
			FileIndex:   fileIndex,
			Sample:      sample,
			QValue:      core.QValueOf(0),
			Score:       1,
			PEP:         0,
			PrecursorMZ: c.PrecursorMZ,
			PeptideMass: c.PeptideMass,
			ProteinIDs:  core.UnknownProtein,
			FlankingAA:  core.UnknownProtein,
			PepID:       PepIDPrefix + strconv.Itoa(len(synthesized)),
			Evidence:    core.EvidenceMatchAcrossRuns,
		})
	}

	return synthesized, nil
}

// predictFromPeer fits peer scan -> current scan on the peptides both
// runs identified and predicts the current scan of every missing
// candidate the peer identified.
func (e *Engine) predictFromPeer(sample, peer string, fileIndex int,
	present map[string]int, missing []candidate.Candidate) (map[string]float64, error) {

	peerRecs, err := e.store.FractionRecords(peer, fileIndex)
	if err != nil {
		return nil, err
	}
	confident := e.filter.Apply(fraction.Dedupe(peerRecs))

	peerScans := make(map[string]int, len(confident))
	var train []pair
	for i := range confident {
		key := confident[i].Key()
		peerScans[key] = confident[i].Scan
		if y, ok := present[key]; ok {
			train = append(train, pair{x: float64(confident[i].Scan), y: float64(y)})
		}
	}
	if len(train) == 0 {
		return nil, fmt.Errorf("no shared identifications with %s in fraction %d: %w",
			peer, fileIndex, core.ErrDegenerateFit)
	}
	sort.SliceStable(train, func(i, j int) bool {
		return train[i].x < train[j].x
	})

	x := make([]float64, len(train))
	y := make([]float64, len(train))
	for i, p := range train {
		x[i] = p.x
		y[i] = p.y
	}

	model, err := regress.Fit(x, y, e.params)
	if err != nil {
		return nil, err
	}
	yHat := model.PredictAll(x)
	r2 := regress.RSquared(y, yHat)

	e.diag.Debug("regression fit",
		"sample", sample, "peer", peer, "file_idx", fileIndex,
		"x", x, "y", y, "y_hat", regress.Round(yHat), fitQuality(r2))
	e.logger.Info("matched chromatography in same fraction",
		"sample", sample, "peer", peer, "file_idx", fileIndex, fitQuality(core.RoundFloat(r2, 3)))
	if math.IsNaN(r2) || r2 < 0 {
		e.diag.Warn("pathological fit quality",
			"sample", sample, "peer", peer, "file_idx", fileIndex, fitQuality(r2), "n", len(x))
	}

	preds := make(map[string]float64)
	for _, c := range missing {
		if scan, ok := peerScans[c.Key]; ok {
			preds[c.Key] = model.Predict(float64(scan))
		}
	}
	return preds, nil
}

// fitQuality renders a non-finite R² as a string; JSON cannot encode NaN or Inf.
func fitQuality(r2 float64) slog.Attr {
	if math.IsNaN(r2) || math.IsInf(r2, 0) {
		return slog.String("r2", strconv.FormatFloat(r2, 'f', -1, 64))
	}
	return slog.Float64("r2", r2)
}

type pair struct {
	x, y float64
}
