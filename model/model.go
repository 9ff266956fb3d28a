package model

import "fmt"

// Action is the kind of change an Edit performs.
type Action string

const (
	// ActionInsertAfter inserts Content after the anchor unless Marker is already present.
	ActionInsertAfter Action = "insert-after"
	// ActionReplaceBlock swaps the delimited block opened by Signature for Content.
	ActionReplaceBlock Action = "replace-block"
	// ActionRemove deletes every occurrence of Content, if any.
	ActionRemove Action = "remove"
)

// Edit describes a single planned change to the text buffer.
type Edit struct {
	Name      string
	Action    Action
	Signature string // block signature, or the anchor for inserts
	Marker    string // idempotency marker; defaults to Content for inserts
	Content   string
}

// Label returns a short human-readable name for reporting.
func (e Edit) Label() string {
	if e.Name != "" {
		return e.Name
	}
	subject := e.Signature
	if e.Action == ActionRemove {
		subject = e.Content
	}
	return fmt.Sprintf("%s %s", e.Action, Abbrev(subject, 48))
}

// GuardMarker is the text whose presence means the edit is already applied.
func (e Edit) GuardMarker() string {
	if e.Marker != "" {
		return e.Marker
	}
	return e.Content
}

// Span is a byte range into a buffer. End is inclusive.
type Span struct {
	Start int
	End   int
}

// Len returns the number of bytes covered by the span.
func (s Span) Len() int {
	return s.End - s.Start + 1
}

// Text returns the spanned region of buf.
func (s Span) Text(buf string) string {
	return buf[s.Start : s.End+1]
}

// Result is what happened to one edit during a run.
type Result string

const (
	ResultApplied   Result = "applied"
	ResultSkipped   Result = "skipped"
	ResultUnchanged Result = "unchanged"
)

// Outcome pairs an edit with its result.
type Outcome struct {
	Edit   Edit
	Result Result
	Span   Span // zero for inserts and removes
}

// Summary holds the results of an operation for display.
type Summary struct {
	Target    string
	Applied   []string
	Skipped   []string
	Unchanged []string
	Failed    []string
	Diff      string
	Written   bool
	Message   string
}

// Abbrev shortens s to at most n runes on a single line.
func Abbrev(s string, n int) string {
	r := []rune(s)
	for i, c := range r {
		if c == '\n' {
			r = r[:i]
			break
		}
	}
	if len(r) > n {
		return string(r[:n]) + "…"
	}
	return string(r)
}
