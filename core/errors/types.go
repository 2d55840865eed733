// Package errors implements the error taxonomy shared by the counting, matching and
// correlation stages, with classification and fatality behavior.
package errors

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Kind represents the classification of an error.
// Each kind has defined behavior for whether the current operation must abort.
type Kind int

const (
	// KindMalformedRecord indicates an input line that does not follow the record format.
	// Examples: wrong field count, non-numeric transmission time, negative count.
	KindMalformedRecord Kind = iota

	// KindIO indicates a failure opening, reading, decompressing or writing a file or stream.
	KindIO

	// KindInvalidInput indicates a caller supplied an unusable argument.
	// Examples: lower bound above upper bound, sequences of different lengths.
	KindInvalidInput

	// KindUnknownIdentity indicates an identity in an ordering that has no count.
	KindUnknownIdentity

	// KindDegenerate indicates a statistic that is undefined for the given input.
	// Examples: fewer than two data points, a constant sequence.
	KindDegenerate
)

var kindNames = map[Kind]string{
	KindMalformedRecord: "malformed_record",
	KindIO:              "io",
	KindInvalidInput:    "invalid_input",
	KindUnknownIdentity: "unknown_identity",
	KindDegenerate:      "degenerate",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// KindBehavior defines the handling behavior for an error kind.
type KindBehavior struct {
	// Fatal indicates the current operation must abort and discard partial output.
	Fatal bool

	// ShouldReport indicates the error is surfaced as a diagnostic when not fatal.
	ShouldReport bool
}

// DefaultBehaviors returns the default behavior for each error kind.
func DefaultBehaviors() map[Kind]KindBehavior {
	return map[Kind]KindBehavior{
		KindMalformedRecord: {Fatal: true, ShouldReport: true},
		KindIO:              {Fatal: true, ShouldReport: true},
		KindInvalidInput:    {Fatal: true, ShouldReport: true},
		KindUnknownIdentity: {Fatal: false, ShouldReport: true},
		KindDegenerate:      {Fatal: false, ShouldReport: true},
	}
}

// KindError wraps an error with kind classification.
type KindError struct {
	Kind       Kind
	Message    string
	Underlying error
	Context    map[string]string
}

// Error implements the error interface.
func (e *KindError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s", e.Kind, e.Message)
	if len(e.Context) > 0 {
		keys := make([]string, 0, len(e.Context))
		for k := range e.Context {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, " %s=%q", k, e.Context[k])
		}
	}
	if e.Underlying != nil {
		fmt.Fprintf(&b, ": %v", e.Underlying)
	}
	return b.String()
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *KindError) Unwrap() error {
	return e.Underlying
}

// Is checks if the target error matches this KindError's kind.
func (e *KindError) Is(target error) bool {
	var ke *KindError
	if errors.As(target, &ke) {
		return e.Kind == ke.Kind
	}
	return false
}

// NewKindError creates a new KindError with the given kind and message.
func NewKindError(kind Kind, message string, underlying error) *KindError {
	return &KindError{
		Kind:       kind,
		Message:    message,
		Underlying: underlying,
		Context:    make(map[string]string),
	}
}

// WithContext adds context key-value pairs to the error.
func (e *KindError) WithContext(key, value string) *KindError {
	e.Context[key] = value
	return e
}

// GetKind extracts the Kind from an error, defaulting to IO.
func GetKind(err error) Kind {
	var ke *KindError
	if errors.As(err, &ke) {
		return ke.Kind
	}
	return KindIO
}

// GetBehavior returns the behavior for an error's kind.
func GetBehavior(err error) KindBehavior {
	return DefaultBehaviors()[GetKind(err)]
}

// IsFatal checks if an error must abort the current operation.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	return GetBehavior(err).Fatal
}

// Sentinel errors for each kind, usable with errors.Is.
var (
	ErrMalformedRecord = NewKindError(KindMalformedRecord, "malformed record", nil)
	ErrIO              = NewKindError(KindIO, "i/o failure", nil)
	ErrInvalidInput    = NewKindError(KindInvalidInput, "invalid input", nil)
	ErrUnknownIdentity = NewKindError(KindUnknownIdentity, "identity not in transmission histories", nil)
	ErrDegenerate      = NewKindError(KindDegenerate, "statistic undefined for input", nil)
)

// WrapWithKind wraps an error with a kind classification.
func WrapWithKind(kind Kind, message string, err error) error {
	if err == nil {
		return nil
	}

	// Don't double-wrap KindErrors
	var ke *KindError
	if errors.As(err, &ke) {
		return &KindError{
			Kind:       ke.Kind,
			Message:    message,
			Underlying: err,
			Context:    ke.Context,
		}
	}

	return NewKindError(kind, message, err)
}

// Malformed builds a MalformedRecord error pointing at a specific line of a source.
func Malformed(source string, line int, text, reason string) *KindError {
	return NewKindError(KindMalformedRecord, reason, nil).
		WithContext("source", source).
		WithContext("line", fmt.Sprintf("%d", line)).
		WithContext("text", text)
}

// IOFailure builds an IO error that names the failing path.
func IOFailure(path, op string, err error) *KindError {
	return NewKindError(KindIO, op+" "+path, err).WithContext("path", path)
}
