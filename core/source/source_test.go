package source

import (
	"bytes"
	"compress/gzip"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	txerrors "github.com/adalundhe/txrank/core/errors"
)

// =============================================================================
// Helpers
// =============================================================================

func collect(t *testing.T, src LineSource) ([]int, []string) {
	t.Helper()
	var nums []int
	var lines []string
	err := src.Scan(func(n int, line string) error {
		nums = append(nums, n)
		lines = append(lines, line)
		return nil
	})
	require.NoError(t, err)
	return nums, lines
}

func writeGzip(t *testing.T, path, content string) {
	t.Helper()
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	_, err := zw.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0644))
}

// =============================================================================
// File Adapter Tests
// =============================================================================

func TestOpenFile_Plain(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hist.tsv")
	require.NoError(t, os.WriteFile(path, []byte("A\tB\t1.0\r\n  A\tC\t2.0  \n\nD\tNone\t0.5"), 0644))

	src, err := OpenFile(path)
	require.NoError(t, err)
	defer src.Close()

	nums, lines := collect(t, src)
	assert.Equal(t, []int{1, 2, 3, 4}, nums)
	assert.Equal(t, []string{"A\tB\t1.0", "A\tC\t2.0", "", "D\tNone\t0.5"}, lines)
	assert.Equal(t, path, src.Name())
}

func TestOpenFile_Gzip(t *testing.T) {
	for _, name := range []string{"hist.tsv.gz", "HIST.TSV.GZ"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), name)
			writeGzip(t, path, "A\tB\t1.0\nA\tC\t2.0\n")

			src, err := OpenFile(path)
			require.NoError(t, err)
			defer src.Close()

			_, lines := collect(t, src)
			assert.Equal(t, []string{"A\tB\t1.0", "A\tC\t2.0"}, lines)
		})
	}
}

func TestOpenFile_Missing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.tsv")

	_, err := OpenFile(path)
	require.Error(t, err)
	assert.True(t, errors.Is(err, txerrors.ErrIO))
	assert.True(t, errors.Is(err, os.ErrNotExist))
	assert.Contains(t, err.Error(), path)
}

func TestOpenFile_NotGzip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plain.gz")
	require.NoError(t, os.WriteFile(path, []byte("definitely not gzip"), 0644))

	_, err := OpenFile(path)
	require.Error(t, err)
	assert.True(t, errors.Is(err, txerrors.ErrIO))
	assert.Contains(t, err.Error(), path)
}

func TestOpenFile_TruncatedGzip(t *testing.T) {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	_, err := zw.Write([]byte(strings.Repeat("A\tB\t1.0\n", 2000)))
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	path := filepath.Join(t.TempDir(), "cut.tsv.gz")
	require.NoError(t, os.WriteFile(path, buf.Bytes()[:buf.Len()/2], 0644))

	src, err := OpenFile(path)
	require.NoError(t, err)
	defer src.Close()

	err = src.Scan(func(int, string) error { return nil })
	require.Error(t, err)
	assert.True(t, errors.Is(err, txerrors.ErrIO))
	assert.Contains(t, err.Error(), path)
}

func TestFileSource_CloseTwice(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hist.tsv")
	require.NoError(t, os.WriteFile(path, []byte("x\n"), 0644))

	src, err := OpenFile(path)
	require.NoError(t, err)
	assert.NoError(t, src.Close())
	assert.NoError(t, src.Close())
}

// =============================================================================
// Stream Adapter Tests
// =============================================================================

func TestFromReader(t *testing.T) {
	src := FromReader("", strings.NewReader("one\ntwo\n"))
	assert.Equal(t, StdioName, src.Name())

	_, lines := collect(t, src)
	assert.Equal(t, []string{"one", "two"}, lines)
	assert.NoError(t, src.Close())
}

func TestScan_StopsOnCallbackError(t *testing.T) {
	stop := errors.New("stop")
	src := FromLines("mem", []string{"a", "b", "c"})

	var seen []string
	err := src.Scan(func(_ int, line string) error {
		seen = append(seen, line)
		if line == "b" {
			return stop
		}
		return nil
	})

	assert.Same(t, stop, err)
	assert.Equal(t, []string{"a", "b"}, seen)
}

func TestScan_LineTooLong(t *testing.T) {
	src := FromReader("big", strings.NewReader(strings.Repeat("x", MaxLineBytes+1)))

	err := src.Scan(func(int, string) error { return nil })
	require.Error(t, err)
	assert.True(t, errors.Is(err, txerrors.ErrIO))
}

// =============================================================================
// Selection Tests
// =============================================================================

func TestSelectDecoder(t *testing.T) {
	_, ok := SelectDecoder("a/b/hist.tsv.gz")
	assert.True(t, ok)

	_, ok = SelectDecoder("a/b/hist.tsv")
	assert.False(t, ok)

	assert.Equal(t, []string{".gz"}, Suffixes())
}

func TestOpen_Stdin(t *testing.T) {
	src, err := Open(StdioName, strings.NewReader("A\n"))
	require.NoError(t, err)

	_, lines := collect(t, src)
	assert.Equal(t, []string{"A"}, lines)
}
