package correlation

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat/distuv"

	txerrors "github.com/adalundhe/txrank/core/errors"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// exactMaxN is the largest untied sample size that gets an exact p-value.
	exactMaxN = 33

	// factorialLimit is the first n whose factorial overflows float64.
	factorialLimit = 171
)

// =============================================================================
// KendallTauB
// =============================================================================

// KendallTauB computes Kendall's tau-b with a two-sided p-value.
//
// Without ties the p-value comes from the exact null distribution of the number
// of discordant pairs when n <= 33 (or when at most one pair disagrees with the
// nearer extreme); otherwise it uses the tie-corrected normal approximation.
type KendallTauB struct{}

var _ TauBComputer = KendallTauB{}

// TauB returns tau-b for x against y. Sequences shorter than two, or a constant
// sequence, produce the undefined Result without error.
func (KendallTauB) TauB(x, y []float64) (Result, error) {
	n := len(x)
	if n != len(y) {
		return Result{}, txerrors.NewKindError(txerrors.KindInvalidInput,
			fmt.Sprintf("sequence lengths differ: %d and %d", len(x), len(y)), nil)
	}
	if n < 2 {
		return UndefinedResult(n, "fewer than two observations"), nil
	}
	if isConstant(x) || isConstant(y) {
		return UndefinedResult(n, "constant sequence"), nil
	}

	pc := countPairs(x, y)
	tot := int64(n) * int64(n-1) / 2
	if pc.xTies == tot || pc.yTies == tot {
		return UndefinedResult(n, "constant sequence"), nil
	}

	tau := float64(pc.s) / math.Sqrt(float64(tot-pc.xTies)) / math.Sqrt(float64(tot-pc.yTies))
	tau = math.Min(1, math.Max(-1, tau))

	if pc.xTies == 0 && pc.yTies == 0 {
		c := min(pc.discordant, tot-pc.discordant)
		if n <= exactMaxN || c <= 1 {
			return Result{Tau: tau, PValue: exactPValue(n, c), N: n, Method: MethodExact}, nil
		}
	}

	return Result{Tau: tau, PValue: asymptoticPValue(n, pc.s, x, y), N: n, Method: MethodAsymptotic}, nil
}

// =============================================================================
// Pair counting
// =============================================================================

type pairCounts struct {
	s          int64 // concordant minus discordant
	discordant int64
	xTies      int64 // pairs tied in x, joint ties included
	yTies      int64
}

func countPairs(x, y []float64) pairCounts {
	var pc pairCounts
	for i := 0; i < len(x); i++ {
		for j := i + 1; j < len(x); j++ {
			dx := sign(x[j] - x[i])
			dy := sign(y[j] - y[i])
			if dx == 0 {
				pc.xTies++
			}
			if dy == 0 {
				pc.yTies++
			}
			p := dx * dy
			pc.s += p
			if p < 0 {
				pc.discordant++
			}
		}
	}
	return pc
}

func sign(v float64) int64 {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}

func isConstant(v []float64) bool {
	return floats.Min(v) == floats.Max(v)
}

// =============================================================================
// P-values
// =============================================================================

// exactPValue returns the two-sided p-value for c discordant pairs (c already
// folded to the nearer tail) among n untied observations.
func exactPValue(n int, c int64) float64 {
	tot := int64(n) * int64(n-1) / 2
	c = min(c, tot-c)

	switch {
	case n <= 2:
		return 1
	case c == 0:
		if n >= factorialLimit {
			return 0
		}
		return 2 / factorial(n)
	case c == 1:
		if n >= factorialLimit+1 {
			return 0
		}
		return 2 / factorial(n-1)
	case 4*c == int64(n)*int64(n-1):
		return 1
	}

	// freq[k] counts permutations of j items with k inversions, k <= c. Past
	// factorialLimit the counts are normalized as they grow to stay finite.
	normalize := n >= factorialLimit
	freq := make([]float64, c+1)
	freq[0], freq[1] = 1, 1
	for j := 3; j <= n; j++ {
		floats.CumSum(freq, freq)
		if normalize {
			floats.Scale(1/float64(j), freq)
		}
		if int64(j) <= c {
			for k := c; k >= int64(j); k-- {
				freq[k] -= freq[k-int64(j)]
			}
		}
	}

	p := floats.Sum(freq)
	if !normalize {
		p = 2 * p / factorial(n)
	}
	return math.Min(1, math.Max(0, p))
}

// asymptoticPValue applies the normal approximation with the tie-corrected
// variance of s.
func asymptoticPValue(n int, s int64, x, y []float64) float64 {
	xt := tieTerms(x)
	yt := tieTerms(y)

	fn := float64(n)
	m := fn * (fn - 1)
	variance := (m*(2*fn+5)-xt.t1-yt.t1)/18 + (2*xt.pairs*yt.pairs)/m
	if n > 2 {
		variance += xt.t0 * yt.t0 / (9 * m * (fn - 2))
	}
	if variance <= 0 {
		return math.NaN()
	}

	z := float64(s) / math.Sqrt(variance)
	return math.Min(1, 2*distuv.UnitNormal.Survival(math.Abs(z)))
}

type tieSums struct {
	pairs float64 // sum t(t-1)/2
	t0    float64 // sum t(t-1)(t-2)
	t1    float64 // sum t(t-1)(2t+5)
}

func tieTerms(v []float64) tieSums {
	groups := make(map[float64]int, len(v))
	for _, x := range v {
		groups[x]++
	}
	var ts tieSums
	for _, cnt := range groups {
		t := float64(cnt)
		ts.pairs += t * (t - 1) / 2
		ts.t0 += t * (t - 1) * (t - 2)
		ts.t1 += t * (t - 1) * (2*t + 5)
	}
	return ts
}

func factorial(n int) float64 {
	f := 1.0
	for i := 2; i <= n; i++ {
		f *= float64(i)
	}
	return f
}
