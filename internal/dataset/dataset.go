// Package dataset reads, writes and synthesizes the tabular inputs fed to the
// overtake rule base. Rows are keyed by input variable name; the optional
// target column becomes Row.Label.
package dataset

import (
	"math"
	"math/rand/v2"
	"slices"

	"github.com/roach88/mamdani/internal/overtake"
)

// TargetColumn is the name of the ground-truth column.
const TargetColumn = "target"

// Row is one record: crisp inputs plus an optional binary label.
type Row struct {
	Values map[string]float64
	Label  *int
}

// Labeled reports whether the row carries a target.
func (r Row) Labeled() bool { return r.Label != nil }

// Label returns a pointer to v, for building rows.
func Label(v int) *int { return &v }

// Generate draws n FIS-ready rows: distance in [1,50], relative_speed in
// [1,56], the three levels in [0,1], all rounded to two decimals. The label
// follows Target.
func Generate(rng *rand.Rand, n int) []Row {
	rows := make([]Row, 0, n)
	for range n {
		values := map[string]float64{
			overtake.Distance:      round2(uniform(rng, 1, 50)),
			overtake.RelativeSpeed: round2(uniform(rng, 1, 56)),
			overtake.Permission:    round2(rng.Float64()),
			overtake.Road:          round2(rng.Float64()),
			overtake.Visibility:    round2(rng.Float64()),
		}
		rows = append(rows, Row{Values: values, Label: Label(Target(values))})
	}
	return rows
}

// Target is the reference labelling rule for synthetic rows: overtaking is
// correct only when permission, road and visibility are all at least 0.5 and
// the speed suits the distance band.
func Target(v map[string]float64) int {
	d, s := v[overtake.Distance], v[overtake.RelativeSpeed]
	if v[overtake.Permission] < 0.5 || v[overtake.Road] < 0.5 || v[overtake.Visibility] < 0.5 {
		return 0
	}
	switch {
	case d < 20 && s > 30:
		return 1
	case d >= 20 && d <= 30 && s > 15 && s < 40:
		return 1
	case d > 30 && s > 40:
		return 1
	}
	return 0
}

// Method selects how Balance equalizes the classes.
type Method string

const (
	Undersample Method = "undersample"
	Oversample  Method = "oversample"
)

// Balance equalizes label counts by random sampling. Undersample keeps
// min-count rows of every class; Oversample draws with replacement up to the
// max count. Unlabeled rows are dropped. Output is grouped by label, ascending.
func Balance(rows []Row, method Method, rng *rand.Rand) ([]Row, error) {
	byLabel := map[int][]Row{}
	var labels []int
	for _, r := range rows {
		if r.Label == nil {
			continue
		}
		if _, ok := byLabel[*r.Label]; !ok {
			labels = append(labels, *r.Label)
		}
		byLabel[*r.Label] = append(byLabel[*r.Label], r)
	}
	if len(labels) == 0 {
		return nil, ErrNoLabels
	}
	slices.Sort(labels)

	lo, hi := math.MaxInt, 0
	for _, l := range labels {
		n := len(byLabel[l])
		lo = min(lo, n)
		hi = max(hi, n)
	}

	var out []Row
	switch method {
	case Undersample:
		for _, l := range labels {
			group := append([]Row(nil), byLabel[l]...)
			rng.Shuffle(len(group), func(i, j int) { group[i], group[j] = group[j], group[i] })
			out = append(out, group[:lo]...)
		}
	case Oversample:
		for _, l := range labels {
			group := byLabel[l]
			out = append(out, group...)
			for range hi - len(group) {
				out = append(out, group[rng.IntN(len(group))])
			}
		}
	default:
		return nil, &MethodError{Method: string(method)}
	}
	return out, nil
}

// Labels extracts the labels of rows that have one, in order.
func Labels(rows []Row) []int {
	out := make([]int, 0, len(rows))
	for _, r := range rows {
		if r.Label != nil {
			out = append(out, *r.Label)
		}
	}
	return out
}

// NewRand returns a deterministic PCG source for seed.
func NewRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

func uniform(rng *rand.Rand, lo, hi float64) float64 {
	return lo + rng.Float64()*(hi-lo)
}

func round2(x float64) float64 {
	return math.Round(x*100) / 100
}
