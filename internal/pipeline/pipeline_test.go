package pipeline

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/sokinpui/blockpatch/internal/locator"
	"github.com/sokinpui/blockpatch/model"
)

const service = `import * as fs from 'fs';
import { Client } from './client';

export class StreamService {
  private clients: Map<string, Client>;

  constructor() {
    this.clients = new Map();
  }

  start(runId: string): void {
    if (this.clients.has(runId)) {
      return;
    }
    console.log('old');
  }

  private fail(runId: string): void {
    console.warn(runId);
  }
}
`

var serviceEdits = []model.Edit{
	{Action: model.ActionRemove, Content: "import * as fs from 'fs';\n"},
	{
		Action:    model.ActionInsertAfter,
		Signature: "  private clients: Map<string, Client>;\n",
		Marker:    "private active",
		Content:   "  private active: Set<string>;\n",
	},
	{
		Action:    model.ActionInsertAfter,
		Signature: "    this.clients = new Map();\n",
		Content:   "    this.active = new Set();\n",
	},
	{
		Name:      "start",
		Action:    model.ActionReplaceBlock,
		Signature: "  start(runId: string): void {",
		Content:   "  start(runId: string): void {\n    this.active.add(runId);\n  }",
	},
	{
		Name:      "fail",
		Action:    model.ActionReplaceBlock,
		Signature: "  private fail(runId: string): void {",
		Content:   "  private fail(runId: string): void {\n    this.active.delete(runId);\n  }",
	},
}

const patchedService = `import { Client } from './client';

export class StreamService {
  private clients: Map<string, Client>;
  private active: Set<string>;

  constructor() {
    this.clients = new Map();
    this.active = new Set();
  }

  start(runId: string): void {
    this.active.add(runId);
  }

  private fail(runId: string): void {
    this.active.delete(runId);
  }
}
`

func results(outcomes []model.Outcome) []model.Result {
	var rs []model.Result
	for _, o := range outcomes {
		rs = append(rs, o.Result)
	}
	return rs
}

func TestRunSequence(t *testing.T) {
	got, outcomes, err := New().Run(service, serviceEdits)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(patchedService, got); diff != "" {
		t.Errorf("patched buffer mismatch (-want +got):\n%s", diff)
	}
	want := []model.Result{
		model.ResultApplied, model.ResultApplied, model.ResultApplied,
		model.ResultApplied, model.ResultApplied,
	}
	if diff := cmp.Diff(want, results(outcomes)); diff != "" {
		t.Errorf("results mismatch (-want +got):\n%s", diff)
	}
}

func TestRunIdempotent(t *testing.T) {
	p := New()
	once, _, err := p.Run(service, serviceEdits)
	if err != nil {
		t.Fatal(err)
	}
	twice, outcomes, err := p.Run(once, serviceEdits)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(once, twice); diff != "" {
		t.Errorf("second run changed the buffer (-once +twice):\n%s", diff)
	}
	want := []model.Result{
		model.ResultSkipped, model.ResultSkipped, model.ResultSkipped,
		model.ResultUnchanged, model.ResultUnchanged,
	}
	if diff := cmp.Diff(want, results(outcomes)); diff != "" {
		t.Errorf("results mismatch (-want +got):\n%s", diff)
	}
}

func TestInsertSkippedWhenMarkerPresent(t *testing.T) {
	buf := "init() {\n  flagSet = true;\n}\n"
	edits := []model.Edit{{
		Action:    model.ActionInsertAfter,
		Signature: "init() {\n",
		Content:   "  flagSet = true;\n",
		Marker:    "flagSet = true;",
	}}
	got, outcomes, err := New().Run(buf, edits)
	if err != nil {
		t.Fatal(err)
	}
	if got != buf {
		t.Errorf("buffer changed: %q", got)
	}
	if outcomes[0].Result != model.ResultSkipped {
		t.Errorf("expected skipped, got %s", outcomes[0].Result)
	}
}

func TestRunAbortsAndReturnsOriginal(t *testing.T) {
	edits := []model.Edit{
		serviceEdits[0],
		{Action: model.ActionReplaceBlock, Signature: "  missing(): void {", Content: "x"},
		serviceEdits[3],
	}
	got, outcomes, err := New().Run(service, edits)
	if !errors.Is(err, locator.ErrSignatureNotFound) {
		t.Fatalf("expected ErrSignatureNotFound, got %v", err)
	}
	var editErr *EditError
	if !errors.As(err, &editErr) || editErr.Index != 1 {
		t.Fatalf("expected EditError at index 1, got %#v", err)
	}
	if got != service {
		t.Error("expected original buffer after failure")
	}
	if len(outcomes) != 1 {
		t.Errorf("expected 1 completed outcome, got %d", len(outcomes))
	}
}

func TestRunUnbalanced(t *testing.T) {
	buf := "fn foo() { if (x) { y(); }"
	edits := []model.Edit{{Action: model.ActionReplaceBlock, Signature: "fn foo() {", Content: "fn foo() {}"}}
	got, _, err := New().Run(buf, edits)
	if !errors.Is(err, locator.ErrUnbalancedBlock) {
		t.Fatalf("expected ErrUnbalancedBlock, got %v", err)
	}
	if got != buf {
		t.Error("expected original buffer after failure")
	}
}

func TestRunMissingAnchorIsFatal(t *testing.T) {
	edits := []model.Edit{{Action: model.ActionInsertAfter, Signature: "nowhere", Content: "x;\n"}}
	if _, _, err := New().Run("abc", edits); !errors.Is(err, locator.ErrSignatureNotFound) {
		t.Fatalf("expected ErrSignatureNotFound, got %v", err)
	}
}

func TestRunHintOnNearMiss(t *testing.T) {
	_, _, err := New().Run(service, []model.Edit{{
		Action:    model.ActionReplaceBlock,
		Signature: "start(runId:  string):  void {",
		Content:   "x",
	}})
	var editErr *EditError
	if !errors.As(err, &editErr) {
		t.Fatalf("expected EditError, got %v", err)
	}
	if editErr.Hint == nil || editErr.Hint.Line != 11 {
		t.Fatalf("expected hint at line 11, got %+v", editErr.Hint)
	}
	if !strings.Contains(err.Error(), "closest match at line 11") {
		t.Errorf("hint missing from message: %v", err)
	}
}

func TestRunUnknownAction(t *testing.T) {
	_, _, err := New().Run("x", []model.Edit{{Action: "rename", Signature: "x"}})
	if !errors.Is(err, ErrUnknownAction) {
		t.Fatalf("expected ErrUnknownAction, got %v", err)
	}
}

func TestRunWithParenLocator(t *testing.T) {
	d, err := locator.ParseDelims("()")
	if err != nil {
		t.Fatal(err)
	}
	buf := "(define (f x) (* x x))\n(define (g) 1)\n"
	edits := []model.Edit{{
		Action:    model.ActionReplaceBlock,
		Signature: "(define (f x)",
		Content:   "(define (f x) (+ x 1))",
	}}
	got, _, err := New(WithLocator(locator.New(d))).Run(buf, edits)
	if err != nil {
		t.Fatal(err)
	}
	if want := "(define (f x) (+ x 1))\n(define (g) 1)\n"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestInsertAfter(t *testing.T) {
	tests := []struct {
		name    string
		buf     string
		anchor  string
		content string
		want    string
	}{
		{"inline", "a(b)", "a(", "x, ", "a(x, b)"},
		{"anchor with newline", "one\ntwo\n", "one\n", "mid\n", "one\nmid\ntwo\n"},
		{"line content after mid-line anchor", "  private a: A;\n  b();\n", "private a", "  private c: C;\n", "  private a: A;\n  private c: C;\n  b();\n"},
		{"anchor on last line", "last", "la", "next\n", "last\nnext\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := InsertAfter(tt.buf, tt.anchor, tt.content)
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRunReportsProgress(t *testing.T) {
	var calls [][2]int
	p := New(WithProgress(func(done, total int) {
		calls = append(calls, [2]int{done, total})
	}))
	if _, _, err := p.Run(service, serviceEdits); err != nil {
		t.Fatal(err)
	}
	if len(calls) != len(serviceEdits) || calls[len(calls)-1] != [2]int{5, 5} {
		t.Errorf("unexpected progress calls %v", calls)
	}
}

func TestRemoveDeletesEveryOccurrence(t *testing.T) {
	buf := "import * as fs from 'fs';\nimport * as fs from 'fs';\nx\n"
	edits := []model.Edit{{Action: model.ActionRemove, Content: "import * as fs from 'fs';\n"}}

	p := New()
	once, _, err := p.Run(buf, edits)
	if err != nil {
		t.Fatal(err)
	}
	if once != "x\n" {
		t.Errorf("expected both imports removed, got %q", once)
	}
	twice, outcomes, err := p.Run(once, edits)
	if err != nil {
		t.Fatal(err)
	}
	if twice != once || outcomes[0].Result != model.ResultSkipped {
		t.Errorf("second run changed the buffer: %q (%s)", twice, outcomes[0].Result)
	}
}

func TestReplaceContentWithTrailingNewline(t *testing.T) {
	buf := "func f() {\n  old()\n}\nfunc g() {}\n"
	edits := []model.Edit{{
		Action:    model.ActionReplaceBlock,
		Signature: "func f() {",
		Content:   "func f() {\n  return\n}\n",
	}}

	p := New()
	once, _, err := p.Run(buf, edits)
	if err != nil {
		t.Fatal(err)
	}
	twice, outcomes, err := p.Run(once, edits)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(once, twice); diff != "" {
		t.Errorf("second run changed the buffer (-once +twice):\n%s", diff)
	}
	if outcomes[0].Result != model.ResultUnchanged {
		t.Errorf("expected unchanged on second run, got %s", outcomes[0].Result)
	}
}
