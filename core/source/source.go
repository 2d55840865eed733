// Package source provides line-oriented readers over transmission histories,
// ordering files and count files, whether they arrive as paths or open streams.
package source

import (
	"bufio"
	"compress/gzip"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	txerrors "github.com/adalundhe/txrank/core/errors"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// StdioName is the name reported by sources wrapping stdin.
	StdioName = "-"

	// MaxLineBytes bounds a single line; longer lines are reported as I/O errors.
	MaxLineBytes = 1 << 20

	initialBufferBytes = 64 * 1024
)

// =============================================================================
// LineSource
// =============================================================================

// LineSource is a readable sequence of text lines.
//
// Scan calls fn once per line in order with the 1-based line number and the line
// stripped of surrounding whitespace. Returning an error from fn stops the scan and
// Scan returns that error unchanged. Scan consumes the source.
type LineSource interface {
	Name() string
	Scan(fn func(lineNo int, line string) error) error
	Close() error
}

// =============================================================================
// Decoders
// =============================================================================

// Decoder wraps a raw file stream in a decompressing reader.
type Decoder func(r io.Reader) (io.ReadCloser, error)

// builtinDecoders maps lower-case file suffixes to decoders. Files with any other
// suffix are read as plain text.
var builtinDecoders = map[string]Decoder{
	".gz": func(r io.Reader) (io.ReadCloser, error) {
		return gzip.NewReader(r)
	},
}

// Suffixes returns the compressed suffixes recognized by OpenFile, sorted.
func Suffixes() []string {
	out := make([]string, 0, len(builtinDecoders))
	for s := range builtinDecoders {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// SelectDecoder returns the decoder for path, matching its suffix case-insensitively.
func SelectDecoder(path string) (Decoder, bool) {
	d, ok := builtinDecoders[strings.ToLower(filepath.Ext(path))]
	return d, ok
}

// =============================================================================
// File adapter
// =============================================================================

// FileSource reads lines from a path, decompressing when the suffix calls for it.
type FileSource struct {
	path    string
	file    *os.File
	decoded io.ReadCloser
}

// OpenFile opens path for line reading. Failures to open or to start decompression
// are returned as I/O errors naming the path.
func OpenFile(path string) (*FileSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, txerrors.IOFailure(path, "open", err)
	}

	fs := &FileSource{path: path, file: f}
	if decode, ok := SelectDecoder(path); ok {
		rc, err := decode(f)
		if err != nil {
			f.Close()
			return nil, txerrors.IOFailure(path, "decompress", err)
		}
		fs.decoded = rc
	}
	return fs, nil
}

// Name returns the path the source was opened from.
func (s *FileSource) Name() string {
	return s.path
}

// Scan implements LineSource.
func (s *FileSource) Scan(fn func(lineNo int, line string) error) error {
	var r io.Reader = s.file
	if s.decoded != nil {
		r = s.decoded
	}
	return scanLines(s.path, r, fn)
}

// Close releases the decompressor and the underlying file.
func (s *FileSource) Close() error {
	var firstErr error
	if s.decoded != nil {
		if err := s.decoded.Close(); err != nil {
			firstErr = txerrors.IOFailure(s.path, "close", err)
		}
		s.decoded = nil
	}
	if s.file != nil {
		if err := s.file.Close(); err != nil && firstErr == nil {
			firstErr = txerrors.IOFailure(s.path, "close", err)
		}
		s.file = nil
	}
	return firstErr
}

// =============================================================================
// Stream adapter
// =============================================================================

// ReaderSource reads lines from a stream owned by the caller.
type ReaderSource struct {
	name string
	r    io.Reader
}

// FromReader wraps an already-open stream. Close does not close r.
func FromReader(name string, r io.Reader) *ReaderSource {
	if name == "" {
		name = StdioName
	}
	return &ReaderSource{name: name, r: r}
}

// FromLines wraps an in-memory list of lines.
func FromLines(name string, lines []string) *ReaderSource {
	return FromReader(name, strings.NewReader(strings.Join(lines, "\n")))
}

// Name returns the name given at construction.
func (s *ReaderSource) Name() string {
	return s.name
}

// Scan implements LineSource.
func (s *ReaderSource) Scan(fn func(lineNo int, line string) error) error {
	return scanLines(s.name, s.r, fn)
}

// Close is a no-op; the caller owns the stream.
func (s *ReaderSource) Close() error {
	return nil
}

// =============================================================================
// Helpers
// =============================================================================

// Open returns a stdin-backed source for "-" and a file source otherwise.
func Open(path string, stdin io.Reader) (LineSource, error) {
	if path == StdioName {
		return FromReader(StdioName, stdin), nil
	}
	return OpenFile(path)
}

func scanLines(name string, r io.Reader, fn func(lineNo int, line string) error) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, initialBufferBytes), MaxLineBytes)

	lineNo := 0
	for sc.Scan() {
		lineNo++
		if err := fn(lineNo, strings.TrimSpace(sc.Text())); err != nil {
			return err
		}
	}
	if err := sc.Err(); err != nil {
		return txerrors.IOFailure(name, "read", err)
	}
	return nil
}
