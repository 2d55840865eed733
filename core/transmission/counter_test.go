package transmission

import (
	"bytes"
	"errors"
	"math"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	txerrors "github.com/adalundhe/txrank/core/errors"
	"github.com/adalundhe/txrank/core/source"
)

// =============================================================================
// Helpers
// =============================================================================

func history(lines ...string) source.LineSource {
	return source.FromLines("history", lines)
}

func countsOf(m *CountMap) map[string]int {
	out := make(map[string]int)
	for _, id := range m.Identities() {
		n, _ := m.Get(id)
		out[id] = n
	}
	return out
}

// =============================================================================
// CountMap Tests
// =============================================================================

func TestCountMap_Increment(t *testing.T) {
	m := NewCountMap()

	assert.Equal(t, 1, m.Increment("A"))
	assert.Equal(t, 2, m.Increment("A"))
	assert.Equal(t, 1, m.Increment("B"))

	n, ok := m.Get("A")
	assert.True(t, ok)
	assert.Equal(t, 2, n)

	_, ok = m.Get("Z")
	assert.False(t, ok, "absent identities are not materialized")
	assert.Equal(t, 2, m.Len())
	assert.Equal(t, 3, m.Total())
	assert.Equal(t, []string{"A", "B"}, m.Identities())
}

func TestWriteCounts(t *testing.T) {
	m := NewCountMap()
	m.Increment("c")
	m.Increment("a")
	m.Increment("a")

	var buf bytes.Buffer
	require.NoError(t, WriteCounts(m, &buf))
	assert.Equal(t, "a\t2\nc\t1\n", buf.String())
}

// =============================================================================
// Window Tests
// =============================================================================

func TestWindow(t *testing.T) {
	w := Window{Lower: 0, Upper: 10}

	assert.True(t, w.Contains(0), "lower bound is inclusive")
	assert.True(t, w.Contains(10), "upper bound is inclusive")
	assert.False(t, w.Contains(-0.0001))
	assert.False(t, w.Contains(10.0001))

	assert.True(t, Unbounded().Contains(-1e300))
	assert.NoError(t, Unbounded().Validate())

	err := Window{Lower: 5, Upper: 1}.Validate()
	assert.True(t, errors.Is(err, txerrors.ErrInvalidInput))

	err = Window{Lower: math.NaN(), Upper: 1}.Validate()
	assert.True(t, errors.Is(err, txerrors.ErrInvalidInput))
}

// =============================================================================
// CountInfections Tests
// =============================================================================

func TestCountInfections_RoundTripScenario(t *testing.T) {
	m, err := CountInfections(history("A\tB\t1.0", "A\tC\t2.0", "D\tNone\t0.5"), Window{Lower: 0, Upper: 10})
	require.NoError(t, err)

	assert.Equal(t, map[string]int{"A": 2}, countsOf(m))
}

func TestCountInfections_Filters(t *testing.T) {
	lines := []string{
		"None\tA\t0.0",
		"A\tB\t1.0",
		"A\tC\t5.0",
		"B\tD\t5.0",
		"B\tE\t5.5",
		"C\tF\t9.0",
		"None\tG\t3.0",
	}

	tests := []struct {
		name   string
		window Window
		want   map[string]int
	}{
		{"everything", Unbounded(), map[string]int{"A": 2, "B": 2, "C": 1}},
		{"inclusive bounds", Window{Lower: 1, Upper: 5}, map[string]int{"A": 2, "B": 1}},
		{"single instant", Window{Lower: 5, Upper: 5}, map[string]int{"A": 1, "B": 1}},
		{"nothing in range", Window{Lower: 100, Upper: 200}, map[string]int{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := CountInfections(history(lines...), tt.window)
			require.NoError(t, err)
			assert.Equal(t, tt.want, countsOf(m))

			_, ok := m.Get(NoneSentinel)
			assert.False(t, ok, "seed cases never contribute")
		})
	}
}

func TestCountInfections_EmptyWindowYieldsEmptyMap(t *testing.T) {
	m, err := CountInfections(history("A\tB\t1.0", "A\tC\t2.0"), Window{Lower: 3, Upper: 4})
	require.NoError(t, err)
	assert.Equal(t, 0, m.Len())
}

func TestCountInfections_SkipsBlankLinesAndTrimsFields(t *testing.T) {
	m, err := CountInfections(history("", " A \t B \t 1.5 ", "   ", "A\tC\t2"), Unbounded())
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"A": 2}, countsOf(m))
}

func TestCountInfections_Malformed(t *testing.T) {
	tests := []struct {
		name   string
		line   string
		reason string
	}{
		{"two fields", "A\tB", "expected 3 tab-separated fields, got 2"},
		{"four fields", "A\tB\t1\t2", "expected 3 tab-separated fields, got 4"},
		{"space separated", "A B 1.0", "expected 3 tab-separated fields, got 1"},
		{"non numeric time", "A\tB\tyesterday", "is not a number"},
		{"nan time", "A\tB\tNaN", "is not a number"},
		{"leading tab is trimmed away", "\tB\t1.0", "expected 3 tab-separated fields, got 2"},
		{"empty infectee", "A\t\t1.0", "empty infectee"},
		{"blank infectee", "A\t  \t1.0", "empty infectee"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := CountInfections(history("A\tB\t1.0", tt.line, "A\tC\t2.0"), Unbounded())
			require.Error(t, err)
			assert.Nil(t, m, "no partial map on failure")
			assert.True(t, errors.Is(err, txerrors.ErrMalformedRecord))
			assert.Contains(t, err.Error(), tt.reason)
			assert.Contains(t, err.Error(), `line="2"`)
			assert.Contains(t, err.Error(), `source="history"`)
		})
	}
}

func TestCountInfections_InvalidWindow(t *testing.T) {
	_, err := CountInfections(history("A\tB\t1.0"), Window{Lower: 2, Upper: 1})
	assert.True(t, errors.Is(err, txerrors.ErrInvalidInput))
}

func TestCounter_Stats(t *testing.T) {
	src := history("None\tA\t0", "A\tB\t1", "A\tC\t20", "B\tNone\t2", "B\tD\t3")

	m, stats, err := NewCounter(nil).Count(src, Window{Lower: 0, Upper: 10})
	require.NoError(t, err)

	assert.Equal(t, CountStats{
		Records:       5,
		OutsideWindow: 1,
		SeedCases:     1,
		NoInfectee:    1,
		Counted:       2,
		Infectors:     2,
	}, stats)
	assert.Equal(t, stats.Counted, m.Total())
}

func TestCountInfections_CountsEqualQualifyingRecords(t *testing.T) {
	var lines []string
	want := map[string]int{}
	for i := 0; i < 200; i++ {
		infector := []string{"A", "B", "C", "None"}[i%4]
		tm := float64(i % 17)
		lines = append(lines, strings.Join([]string{infector, "x", strconv.FormatFloat(tm, 'f', 1, 64)}, "\t"))
		if infector != NoneSentinel && tm >= 3 && tm <= 11 {
			want[infector]++
		}
	}

	m, err := CountInfections(history(lines...), Window{Lower: 3, Upper: 11})
	require.NoError(t, err)
	assert.Equal(t, want, countsOf(m))
}

func TestParseRecord(t *testing.T) {
	rec, err := ParseRecord("h", 7, "A\tNone\t-2.5e1")
	require.NoError(t, err)
	assert.Equal(t, Record{Infector: "A", Infectee: "None", Time: -25, Line: 7}, rec)
	assert.False(t, rec.IsSeed())
	assert.False(t, rec.HasInfectee())

	_, err = ParseRecord("h", 1, " \tB\t1.0")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty infector")

	_, err = ParseRecord("h", 1, "A\t\t1.0")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty infectee")
}
