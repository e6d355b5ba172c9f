package mar

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/ChrisMcGann/PepKey/pkg/candidate"
	"github.com/ChrisMcGann/PepKey/pkg/core"
	"github.com/ChrisMcGann/PepKey/pkg/filter"
	"github.com/ChrisMcGann/PepKey/pkg/regress"
	"github.com/ChrisMcGann/PepKey/pkg/store"
	"github.com/stretchr/testify/require"
)

var strict = filter.Config{QValue: 0.01}

func id(seq string, scan int, q float64) core.PSM {
	return core.PSM{
		Sequence:    seq,
		Charge:      2,
		Scan:        scan,
		QValue:      core.QValueOf(q),
		ProteinIDs:  "P1",
		PrecursorMZ: 400.2,
		PeptideMass: 798.4,
	}
}

// Peer A shares only SHARED1 with B and peer C shares only SHARED2, so
// each peer's model is constant: A predicts 100 and C predicts 104.
func medianStore() *store.Store {
	st := store.New()
	st.Add("A", []core.PSM{id("SHARED1", 500, 0.001), id("PEPTIDE", 700, 0.001)})
	st.Add("B", []core.PSM{id("SHARED1", 100, 0.001), id("SHARED2", 104, 0.001)})
	st.Add("C", []core.PSM{id("SHARED2", 600, 0.001), id("PEPTIDE", 650, 0.001)})
	return st
}

func filteredFor(t *testing.T, st *store.Store, sample string) []core.PSM {
	t.Helper()
	recs, err := st.FractionRecords(sample, 0)
	require.NoError(t, err)
	return strict.Apply(recs)
}

func TestMatchMedianOfPeers(t *testing.T) {
	st := medianStore()
	cands, err := candidate.Build(st, strict, 0.25)
	require.NoError(t, err)

	var diag bytes.Buffer
	e := New(st, cands, strict,
		WithDiagnostics(slog.New(slog.NewJSONHandler(&diag, &slog.HandlerOptions{Level: slog.LevelDebug}))))

	rows, err := e.Match("B", 0, filteredFor(t, st, "B"))
	require.NoError(t, err)
	require.Len(t, rows, 1)

	got := rows[0]
	require.Equal(t, "PEPTIDE_2", got.Key())
	require.Equal(t, 102, got.Scan)
	require.Equal(t, "B", got.Sample)
	require.Equal(t, 0, got.FileIndex)
	require.Equal(t, core.EvidenceMatchAcrossRuns, got.Evidence)
	require.Equal(t, "matched_0", got.PepID)
	require.Equal(t, core.UnknownProtein, got.ProteinIDs)
	require.Equal(t, 0.0, *got.QValue)
	require.Equal(t, 1.0, got.Score)
	require.Equal(t, 0.0, got.PEP)
	require.Equal(t, 400.2, got.PrecursorMZ)
	require.Equal(t, 798.4, got.PeptideMass)

	fits := fitEntries(t, &diag)
	require.Len(t, fits, 2)
	require.Equal(t, "A", fits[0].Peer)
	require.Equal(t, []float64{500}, fits[0].X)
	require.Equal(t, []float64{100}, fits[0].Y)
	require.Equal(t, []float64{100}, fits[0].YHat)
	require.Equal(t, "C", fits[1].Peer)
	require.Equal(t, []float64{600}, fits[1].X)
	require.Equal(t, []float64{104}, fits[1].Y)
	require.Equal(t, []float64{104}, fits[1].YHat)

	// One training point has no defined R²
	for _, f := range fits {
		require.Equal(t, "B", f.Sample)
		require.Equal(t, 0, f.FileIdx)
		require.Equal(t, `"NaN"`, string(f.R2))
	}
}

type fitEntry struct {
	Msg     string          `json:"msg"`
	Sample  string          `json:"sample"`
	Peer    string          `json:"peer"`
	FileIdx int             `json:"file_idx"`
	X       []float64       `json:"x"`
	Y       []float64       `json:"y"`
	YHat    []float64       `json:"y_hat"`
	R2      json.RawMessage `json:"r2"`
}

// fitEntries decodes the regression fit lines of a JSON diagnostic log
func fitEntries(t *testing.T, buf *bytes.Buffer) []fitEntry {
	t.Helper()
	var fits []fitEntry
	scanner := bufio.NewScanner(buf)
	for scanner.Scan() {
		var e fitEntry
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &e))
		if e.Msg == "regression fit" {
			fits = append(fits, e)
		}
	}
	require.NoError(t, scanner.Err())
	return fits
}

func TestMatchLogsFitDiagnostics(t *testing.T) {
	st := store.New()
	st.Add("A", []core.PSM{id("AAA", 30, 0.001), id("CCC", 10, 0.001), id("DDD", 20, 0.001), id("EEE", 25, 0.001)})
	st.Add("B", []core.PSM{id("AAA", 131, 0.001), id("CCC", 110, 0.001), id("DDD", 122, 0.001)})
	cands, err := candidate.Build(st, strict, 0.25)
	require.NoError(t, err)

	var diag bytes.Buffer
	e := New(st, cands, strict,
		WithDiagnostics(slog.New(slog.NewJSONHandler(&diag, &slog.HandlerOptions{Level: slog.LevelDebug}))))
	rows, err := e.Match("B", 0, filteredFor(t, st, "B"))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, "EEE_2", rows[0].Key())

	fits := fitEntries(t, &diag)
	require.Len(t, fits, 1)
	fit := fits[0]
	require.Equal(t, "A", fit.Peer)

	// Training pairs are ordered by the peer's scan
	x := []float64{10, 20, 30}
	y := []float64{110, 122, 131}
	require.Equal(t, x, fit.X)
	require.Equal(t, y, fit.Y)

	model, err := regress.Fit(x, y, regress.DefaultParams())
	require.NoError(t, err)
	yHat := model.PredictAll(x)
	require.Equal(t, regress.Round(yHat), fit.YHat)

	var r2 float64
	require.NoError(t, json.Unmarshal(fit.R2, &r2))
	require.InDelta(t, regress.RSquared(y, yHat), r2, 1e-12)
	require.Equal(t, float64(rows[0].Scan), regress.Round([]float64{model.Predict(25)})[0])
}

func TestMatchNothingMissing(t *testing.T) {
	st := store.New()
	st.Add("A", []core.PSM{id("AAA", 10, 0.001)})
	st.Add("B", []core.PSM{id("AAA", 12, 0.001)})
	cands, err := candidate.Build(st, strict, 0.25)
	require.NoError(t, err)

	rows, err := New(st, cands, strict).Match("B", 0, filteredFor(t, st, "B"))
	require.NoError(t, err)
	require.Empty(t, rows)
}

func TestMatchSkipsPeerWithoutOverlap(t *testing.T) {
	st := medianStore()
	// D identified PEPTIDE but shares nothing with B
	st.Add("D", []core.PSM{id("PEPTIDE", 50, 0.001), id("OTHER", 60, 0.001)})
	cands, err := candidate.Build(st, strict, 0.25)
	require.NoError(t, err)

	var diag bytes.Buffer
	e := New(st, cands, strict,
		WithDiagnostics(slog.New(slog.NewJSONHandler(&diag, nil))))
	rows, err := e.Match("B", 0, filteredFor(t, st, "B"))
	require.NoError(t, err)

	var peptide *core.PSM
	for i := range rows {
		if rows[i].Key() == "PEPTIDE_2" {
			peptide = &rows[i]
		}
	}
	require.NotNil(t, peptide)
	require.Equal(t, 102, peptide.Scan)
	require.Contains(t, diag.String(), "skipping peer sample")
}

func TestMatchDropsUnplaceableCandidates(t *testing.T) {
	st := store.New()
	st.Add("A", []core.PSM{id("LONELY", 50, 0.001)})
	st.Add("B", []core.PSM{id("AAA", 12, 0.001)})
	cands, err := candidate.Build(st, strict, 0.25)
	require.NoError(t, err)

	// A shares nothing with B, so LONELY cannot be placed
	rows, err := New(st, cands, strict).Match("B", 0, filteredFor(t, st, "B"))
	require.NoError(t, err)
	require.Empty(t, rows)
}

func TestMatchMalformedKey(t *testing.T) {
	st := medianStore()
	st.Add("A", []core.PSM{id("", 800, 0.001)})
	cands, err := candidate.Build(st, strict, 0.25)
	require.NoError(t, err)

	_, err = New(st, cands, strict).Match("B", 0, filteredFor(t, st, "B"))
	require.True(t, errors.Is(err, core.ErrDataIntegrity))
	var die *core.DataIntegrityError
	require.True(t, errors.As(err, &die))
	require.Equal(t, "_2", die.Key)
}

func TestMatchUnknownSample(t *testing.T) {
	st := medianStore()
	cands, err := candidate.Build(st, strict, 0.25)
	require.NoError(t, err)

	_, err = New(st, cands, strict).Match("Z", 0, nil)
	require.True(t, errors.Is(err, core.ErrInvalidArgument))

	_, err = New(st, nil, strict).Match("B", 0, nil)
	require.True(t, errors.Is(err, core.ErrState))
}
