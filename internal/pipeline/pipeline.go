// Package pipeline applies an ordered list of edits to a text buffer.
//
// Each edit sees the buffer produced by the one before it. The first fatal
// error aborts the run and the caller gets the original buffer back, so a
// partially patched buffer is never observable.
package pipeline

import (
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/sokinpui/blockpatch/internal/guard"
	"github.com/sokinpui/blockpatch/internal/hint"
	"github.com/sokinpui/blockpatch/internal/locator"
	"github.com/sokinpui/blockpatch/internal/logging"
	"github.com/sokinpui/blockpatch/model"
)

var ErrUnknownAction = errors.New("unknown action")

// EditError wraps the failure of a single edit with its position in the plan.
type EditError struct {
	Index int
	Edit  model.Edit
	Err   error
	Hint  *hint.Suggestion
}

func (e *EditError) Error() string {
	msg := fmt.Sprintf("edit %d (%s): %v", e.Index+1, e.Edit.Label(), e.Err)
	if e.Hint != nil {
		msg += fmt.Sprintf("; closest match at line %d: %q", e.Hint.Line, strings.TrimSpace(e.Hint.Text))
	}
	return msg
}

func (e *EditError) Unwrap() error {
	return e.Err
}

// Pipeline threads a buffer through edits.
type Pipeline struct {
	locator  locator.Locator
	logger   *zap.Logger
	progress func(done, total int)
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLocator substitutes the block locator.
func WithLocator(l locator.Locator) Option {
	return func(p *Pipeline) { p.locator = l }
}

// WithLogger sets the trace logger.
func WithLogger(l *zap.Logger) Option {
	return func(p *Pipeline) { p.logger = logging.OrNop(l) }
}

// WithProgress registers a callback invoked after each edit.
func WithProgress(fn func(done, total int)) Option {
	return func(p *Pipeline) { p.progress = fn }
}

// New creates a Pipeline using the brace locator with the default delimiters.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{
		locator: locator.New(locator.DefaultDelims),
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run applies edits in order. On error it returns the original buffer
// together with the outcomes of the edits that ran before the failure.
func (p *Pipeline) Run(buf string, edits []model.Edit) (string, []model.Outcome, error) {
	original := buf
	outcomes := make([]model.Outcome, 0, len(edits))

	for i, edit := range edits {
		next, outcome, err := p.Step(buf, edit)
		if err != nil {
			editErr := &EditError{Index: i, Edit: edit, Err: err}
			if errors.Is(err, locator.ErrSignatureNotFound) {
				if s, ok := hint.Suggest(buf, edit.Signature); ok {
					editErr.Hint = &s
				}
			}
			p.logger.Error("edit failed",
				zap.Int("index", i),
				zap.String("action", string(edit.Action)),
				zap.String("name", edit.Label()),
				zap.Error(err))
			return original, outcomes, editErr
		}
		p.logger.Debug("edit processed",
			zap.Int("index", i),
			zap.String("action", string(edit.Action)),
			zap.String("name", edit.Label()),
			zap.String("result", string(outcome.Result)),
			zap.Int("start", outcome.Span.Start),
			zap.Int("end", outcome.Span.End),
			zap.Int("size", len(next)))
		outcomes = append(outcomes, outcome)
		buf = next
		if p.progress != nil {
			p.progress(i+1, len(edits))
		}
	}
	return buf, outcomes, nil
}

// Step applies a single edit and returns the new buffer.
func (p *Pipeline) Step(buf string, edit model.Edit) (string, model.Outcome, error) {
	outcome := model.Outcome{Edit: edit}
	switch edit.Action {
	case model.ActionInsertAfter:
		if guard.Present(buf, edit.GuardMarker()) {
			outcome.Result = model.ResultSkipped
			return buf, outcome, nil
		}
		next, err := InsertAfter(buf, edit.Signature, edit.Content)
		if err != nil {
			return buf, outcome, err
		}
		outcome.Result = model.ResultApplied
		return next, outcome, nil

	case model.ActionReplaceBlock:
		if n := guard.Count(buf, edit.Signature); n > 1 {
			p.logger.Warn("signature is ambiguous, using first occurrence",
				zap.String("signature", edit.Signature),
				zap.Int("occurrences", n))
		}
		span, err := p.locator.Locate(buf, edit.Signature)
		if err != nil {
			return buf, outcome, err
		}
		outcome.Span = span
		if blockIs(buf, span, edit.Content) {
			outcome.Result = model.ResultUnchanged
			return buf, outcome, nil
		}
		outcome.Result = model.ResultApplied
		return locator.Replace(buf, span, edit.Content), outcome, nil

	case model.ActionRemove:
		if !guard.Present(buf, edit.Content) {
			outcome.Result = model.ResultSkipped
			return buf, outcome, nil
		}
		outcome.Result = model.ResultApplied
		return strings.ReplaceAll(buf, edit.Content, ""), outcome, nil

	default:
		return buf, outcome, fmt.Errorf("%w: %q", ErrUnknownAction, edit.Action)
	}
}

// blockIs reports whether the block at span already reads content. Content
// may carry the newline that follows the block.
func blockIs(buf string, span model.Span, content string) bool {
	text := span.Text(buf)
	if text == content {
		return true
	}
	return strings.HasSuffix(content, "\n") &&
		text == strings.TrimSuffix(content, "\n") &&
		strings.HasPrefix(buf[span.End+1:], "\n")
}

// InsertAfter inserts content after the first occurrence of anchor.
// Content ending in a newline is treated as whole lines: if the anchor stops
// mid-line, the content goes at the start of the following line.
func InsertAfter(buf, anchor, content string) (string, error) {
	if anchor == "" {
		return buf, locator.ErrEmptySignature
	}
	i := strings.Index(buf, anchor)
	if i < 0 {
		return buf, &locator.SignatureNotFoundError{Signature: anchor}
	}
	at := i + len(anchor)
	if strings.HasSuffix(content, "\n") && !strings.HasSuffix(anchor, "\n") {
		nl := strings.IndexByte(buf[at:], '\n')
		if nl < 0 {
			return buf + "\n" + content, nil
		}
		at += nl + 1
	}
	return buf[:at] + content + buf[at:], nil
}
