// Package diag defines the assembly error taxonomy and the warning report
// returned alongside every assembled model.
package diag

import (
	"errors"
	"fmt"
	"strings"

	"go.uber.org/multierr"
)

// Assembly errors.
var (
	ErrParseFormat             = errors.New("malformed descriptor line")
	ErrUnresolvedReference     = errors.New("unresolved reference")
	ErrCyclicSkeleton          = errors.New("cyclic skeleton")
	ErrCyclicIndirection       = errors.New("cyclic block indirection")
	ErrUnresolvedBoneReference = errors.New("unresolved bone reference")
	ErrAmbiguousRoot           = errors.New("ambiguous skeleton root")
	ErrSnapFallback            = errors.New("connector snap fallback")
)

// Kind classifies a warning by its sentinel error.
type Kind int

const (
	KindOther Kind = iota
	KindParseFormat
	KindUnresolvedReference
	KindCyclicSkeleton
	KindCyclicIndirection
	KindUnresolvedBoneReference
	KindAmbiguousRoot
	KindSnapFallback
)

var kinds = []struct {
	kind Kind
	err  error
	name string
}{
	{KindParseFormat, ErrParseFormat, "ParseFormat"},
	{KindUnresolvedReference, ErrUnresolvedReference, "UnresolvedReference"},
	{KindCyclicSkeleton, ErrCyclicSkeleton, "CyclicSkeleton"},
	{KindCyclicIndirection, ErrCyclicIndirection, "CyclicIndirection"},
	{KindUnresolvedBoneReference, ErrUnresolvedBoneReference, "UnresolvedBoneReference"},
	{KindAmbiguousRoot, ErrAmbiguousRoot, "AmbiguousRoot"},
	{KindSnapFallback, ErrSnapFallback, "SnapFallback"},
}

// String returns the taxonomy name of the kind.
func (k Kind) String() string {
	for _, e := range kinds {
		if e.kind == k {
			return e.name
		}
	}
	return "Other"
}

// Warning is a recoverable failure isolated to one unit (line, attachment,
// connector or mesh).
type Warning struct {
	Unit string // Affected unit, e.g. "ciel:frame" or "connector 3"
	Line int    // 1-based descriptor line, 0 when not line-bound
	Err  error
}

// New creates a warning wrapping sentinel with a formatted detail message.
func New(sentinel error, unit string, line int, format string, args ...any) Warning {
	return Warning{
		Unit: unit,
		Line: line,
		Err:  fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), sentinel),
	}
}

// Kind returns the taxonomy kind of the warning.
func (w Warning) Kind() Kind {
	for _, e := range kinds {
		if errors.Is(w.Err, e.err) {
			return e.kind
		}
	}
	return KindOther
}

// Error implements error.
func (w Warning) Error() string {
	var sb strings.Builder
	sb.WriteString(w.Unit)
	if w.Line > 0 {
		fmt.Fprintf(&sb, ":%d", w.Line)
	}
	sb.WriteString(": ")
	sb.WriteString(w.Err.Error())
	return sb.String()
}

// Unwrap exposes the wrapped error to errors.Is.
func (w Warning) Unwrap() error {
	return w.Err
}

// Report is the ordered list of warnings produced by one assembly.
type Report struct {
	Warnings []Warning
}

// Add appends warnings in order.
func (r *Report) Add(ws ...Warning) {
	r.Warnings = append(r.Warnings, ws...)
}

// Len returns the number of warnings.
func (r *Report) Len() int {
	return len(r.Warnings)
}

// Count returns the number of warnings of the given kind.
func (r *Report) Count(kind Kind) int {
	n := 0
	for _, w := range r.Warnings {
		if w.Kind() == kind {
			n++
		}
	}
	return n
}

// Err combines all warnings into a single error, or nil if there are none.
func (r *Report) Err() error {
	var err error
	for _, w := range r.Warnings {
		err = multierr.Append(err, w)
	}
	return err
}
