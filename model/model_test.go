package model

import "testing"

func TestEditLabel(t *testing.T) {
	tests := []struct {
		name string
		edit Edit
		want string
	}{
		{"named", Edit{Name: "add field", Action: ActionInsertAfter, Signature: "x"}, "add field"},
		{"replace", Edit{Action: ActionReplaceBlock, Signature: "start(): void {"}, "replace-block start(): void {"},
		{"remove uses content", Edit{Action: ActionRemove, Content: "import x;\n"}, "remove import x;"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.edit.Label(); got != tt.want {
				t.Errorf("Label() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestGuardMarker(t *testing.T) {
	if got := (Edit{Content: "body"}).GuardMarker(); got != "body" {
		t.Errorf("expected content fallback, got %q", got)
	}
	if got := (Edit{Content: "body", Marker: "mark"}).GuardMarker(); got != "mark" {
		t.Errorf("expected marker, got %q", got)
	}
}

func TestSpan(t *testing.T) {
	buf := "a { b } c"
	s := Span{Start: 2, End: 6}
	if s.Len() != 5 || s.Text(buf) != "{ b }" {
		t.Errorf("unexpected span %d %q", s.Len(), s.Text(buf))
	}
}

func TestAbbrev(t *testing.T) {
	if got := Abbrev("héllo world", 5); got != "héllo…" {
		t.Errorf("got %q", got)
	}
	if got := Abbrev("first\nsecond", 20); got != "first" {
		t.Errorf("got %q", got)
	}
}
