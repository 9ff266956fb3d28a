// Package locator finds delimiter-bounded blocks in source text by a literal
// signature and splices replacement text over them.
//
// Block ends are found by counting open and close delimiters, not by parsing.
// Delimiters inside string or comment literals are counted like any other,
// so a quoted brace will throw the depth off.
package locator

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/sokinpui/blockpatch/model"
)

var (
	ErrEmptySignature    = errors.New("empty signature")
	ErrSignatureNotFound = errors.New("signature not found")
	ErrUnbalancedBlock   = errors.New("unbalanced block")
)

// SignatureNotFoundError reports a signature absent from the buffer.
type SignatureNotFoundError struct {
	Signature string
}

func (e *SignatureNotFoundError) Error() string {
	return fmt.Sprintf("signature not found: %q", e.Signature)
}

func (e *SignatureNotFoundError) Is(target error) bool {
	return target == ErrSignatureNotFound
}

// UnbalancedBlockError reports a block whose closing delimiter never arrives.
type UnbalancedBlockError struct {
	Signature string
	Depth     int // depth still open at end of buffer
}

func (e *UnbalancedBlockError) Error() string {
	if e.Depth == 0 {
		return fmt.Sprintf("unbalanced block at %q: no opening delimiter", e.Signature)
	}
	return fmt.Sprintf("unbalanced block at %q: %d delimiter(s) left open", e.Signature, e.Depth)
}

func (e *UnbalancedBlockError) Is(target error) bool {
	return target == ErrUnbalancedBlock
}

// Locator resolves a signature to the span of the block it opens.
type Locator interface {
	Locate(buf, signature string) (model.Span, error)
}

// Delims is an open/close delimiter pair.
type Delims struct {
	Open  rune
	Close rune
}

var DefaultDelims = Delims{Open: '{', Close: '}'}

func (d Delims) String() string {
	return string([]rune{d.Open, d.Close})
}

// ParseDelims parses a two-rune string such as "{}" or "()".
func ParseDelims(s string) (Delims, error) {
	r := []rune(s)
	if len(r) != 2 {
		return Delims{}, fmt.Errorf("delimiters must be exactly two characters, got %q", s)
	}
	if r[0] == r[1] {
		return Delims{}, fmt.Errorf("open and close delimiters must differ, got %q", s)
	}
	return Delims{Open: r[0], Close: r[1]}, nil
}

// Brace locates blocks by delimiter depth.
type Brace struct {
	Delims Delims
}

// New returns a depth-counting Locator for the given delimiters.
func New(d Delims) *Brace {
	return &Brace{Delims: d}
}

// Locate finds the first occurrence of signature and returns the span from it
// to the close delimiter that brings the depth back to zero.
// Close delimiters seen before the first open are ignored.
func (b *Brace) Locate(buf, signature string) (model.Span, error) {
	if signature == "" {
		return model.Span{}, ErrEmptySignature
	}
	start := strings.Index(buf, signature)
	if start < 0 {
		return model.Span{}, &SignatureNotFoundError{Signature: signature}
	}

	depth := 0
	opened := false
	for i := start; i < len(buf); {
		r, size := utf8.DecodeRuneInString(buf[i:])
		switch r {
		case b.Delims.Open:
			depth++
			opened = true
		case b.Delims.Close:
			if opened {
				depth--
				if depth == 0 {
					return model.Span{Start: start, End: i + size - 1}, nil
				}
			}
		}
		i += size
	}
	return model.Span{}, &UnbalancedBlockError{Signature: signature, Depth: depth}
}

// Replace returns buf with the spanned region swapped for replacement.
// The replacement is not re-scanned. An out-of-range span panics.
func Replace(buf string, span model.Span, replacement string) string {
	if span.Start < 0 || span.Start > span.End || span.End >= len(buf) {
		panic(fmt.Sprintf("locator: invalid span [%d,%d] for buffer of length %d", span.Start, span.End, len(buf)))
	}
	var sb strings.Builder
	sb.Grow(len(buf) - span.Len() + len(replacement))
	sb.WriteString(buf[:span.Start])
	sb.WriteString(replacement)
	sb.WriteString(buf[span.End+1:])
	return sb.String()
}
