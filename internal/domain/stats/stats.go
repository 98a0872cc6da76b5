// Package stats computes descriptive statistics over synced assessment
// values, grouped by establishment, cycle, academic year, and element.
package stats

import (
	"math"
	"sort"
)

// Default aggregator configuration.
const (
	defaultMinSampleSize = 10
	defaultPrecision     = 2
)

// GroupKey identifies one statistics row. Element names a score
// dimension ("vision", "overall", ...) or a question id.
type GroupKey struct {
	EstablishmentID string
	Cycle           int
	AcademicYear    string
	Element         string
}

// Summary is the computed statistics for one group. Output rows are
// upserted keyed on GroupKey, so recomputation is idempotent.
type Summary struct {
	Key           GroupKey
	Count         int
	Mean          float64
	StdDev        float64 // population standard deviation
	Min           float64
	Max           float64
	P25           float64
	P50           float64
	P75           float64
	Histogram     map[int]int // count per discrete score value
	LowConfidence bool        // sample smaller than the configured minimum
}

// Aggregator accumulates values per group. It is total: any group with
// at least one value produces a summary, flagged low-confidence below
// the minimum sample size rather than refused.
type Aggregator struct {
	groups        map[GroupKey][]float64
	minSampleSize int
	precision     int
}

// New creates an Aggregator.
func New(opts ...Option) *Aggregator {
	a := &Aggregator{
		groups:        make(map[GroupKey][]float64),
		minSampleSize: defaultMinSampleSize,
		precision:     defaultPrecision,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Add records one value for a group.
func (a *Aggregator) Add(key GroupKey, value float64) {
	a.groups[key] = append(a.groups[key], value)
}

// Summaries computes statistics for every group with n >= 1, sorted by
// key for deterministic output.
func (a *Aggregator) Summaries() []Summary {
	out := make([]Summary, 0, len(a.groups))
	for key, values := range a.groups {
		out = append(out, a.summarize(key, values))
	}
	sort.Slice(out, func(i, j int) bool {
		ki, kj := out[i].Key, out[j].Key
		if ki.EstablishmentID != kj.EstablishmentID {
			return ki.EstablishmentID < kj.EstablishmentID
		}
		if ki.AcademicYear != kj.AcademicYear {
			return ki.AcademicYear < kj.AcademicYear
		}
		if ki.Cycle != kj.Cycle {
			return ki.Cycle < kj.Cycle
		}
		return ki.Element < kj.Element
	})
	return out
}

func (a *Aggregator) summarize(key GroupKey, values []float64) Summary {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	n := len(sorted)
	sum := 0.0
	hist := make(map[int]int, 11)
	for _, v := range sorted {
		sum += v
		hist[int(math.Round(v))]++
	}
	mean := sum / float64(n)

	variance := 0.0
	for _, v := range sorted {
		d := v - mean
		variance += d * d
	}
	variance /= float64(n)

	return Summary{
		Key:           key,
		Count:         n,
		Mean:          a.round(mean),
		StdDev:        a.round(math.Sqrt(variance)),
		Min:           sorted[0],
		Max:           sorted[n-1],
		P25:           a.round(percentile(sorted, 0.25)),
		P50:           a.round(percentile(sorted, 0.50)),
		P75:           a.round(percentile(sorted, 0.75)),
		Histogram:     hist,
		LowConfidence: n < a.minSampleSize,
	}
}

func (a *Aggregator) round(v float64) float64 {
	scale := math.Pow10(a.precision)
	return math.Round(v*scale) / scale
}

// percentile computes the p-th percentile of sorted values using linear
// interpolation between closest ranks.
func percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 1 {
		return sorted[0]
	}
	rank := p * float64(n-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	if lo == hi {
		return sorted[lo]
	}
	frac := rank - float64(lo)
	return sorted[lo] + frac*(sorted[hi]-sorted[lo])
}
