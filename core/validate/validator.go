// Package validate implements the Validator interface.
// A fenced block counts as a diagram only when it is longer than a minimum
// length and its first token names a supported diagram kind. Anything else
// is dropped silently: documentation often shows diagram syntax as prose.
package validate

import (
	"strings"
	"unicode/utf8"

	"github.com/gaurav-prasanna/diagrampipe/core"
)

// DefaultMinLength is the length a trimmed block must exceed.
const DefaultMinLength = 10

// Validator checks raw fenced sources.
type Validator struct {
	MinLength int
}

// New creates a Validator. A negative minLength falls back to the default.
func New(minLength int) *Validator {
	if minLength < 0 {
		minLength = DefaultMinLength
	}
	return &Validator{MinLength: minLength}
}

// Validate reports the declared kind and whether raw is a genuine diagram.
func (v *Validator) Validate(raw string) (core.Kind, bool) {
	trimmed := strings.TrimSpace(raw)
	if utf8.RuneCountInString(trimmed) <= v.MinLength {
		return core.KindUnknown, false
	}
	return core.ParseKind(firstToken(trimmed))
}

// firstToken returns the leading run of non-space characters.
func firstToken(s string) string {
	if i := strings.IndexFunc(s, isSpace); i >= 0 {
		return s[:i]
	}
	return s
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\r' || r == ';'
}
