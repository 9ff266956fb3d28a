package parser

import (
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/sokinpui/blockpatch/internal/ui"
	"github.com/sokinpui/blockpatch/model"
)

// Plan is the ordered list of edits for one target file.
type Plan struct {
	Target     string
	Delimiters string
	Edits      []model.Edit
}

var ErrInvalidPlan = errors.New("invalid plan")

var (
	// replaceHintRegex matches: replace `SIGNATURE`
	replaceHintRegex = regexp.MustCompile("(?i)^\\s*replace\\s+`([^`\n]+)`\\s*$")
	// insertHintRegex matches: insert after `ANCHOR` [unless `MARKER`]
	insertHintRegex = regexp.MustCompile("(?i)^\\s*insert\\s+after\\s+`([^`\n]+)`(?:\\s+unless\\s+`([^`\n]+)`)?\\s*$")
	// removeHintRegex matches: remove
	removeHintRegex = regexp.MustCompile(`(?i)^\s*remove\s*$`)
)

// Parse detects the plan format from the file name, falling back to
// content sniffing when the name is empty or not a YAML file.
func Parse(name, content string) (*Plan, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml":
		return ParseYAML([]byte(content))
	}

	plan, err := ParseMarkdown([]byte(content))
	if err != nil {
		return nil, err
	}
	if len(plan.Edits) == 0 && !strings.Contains(content, "```") {
		if yamlPlan, yerr := ParseYAML([]byte(content)); yerr == nil && len(yamlPlan.Edits) > 0 {
			return yamlPlan, nil
		}
	}
	return plan, nil
}

// ParseMarkdown turns hinted fenced code blocks into edits, in document order.
func ParseMarkdown(source []byte) (*Plan, error) {
	blocks, err := ExtractCodeBlocks(source)
	if err != nil {
		return nil, fmt.Errorf("failed to parse markdown plan: %w", err)
	}

	plan := &Plan{}
	for _, block := range blocks {
		edit, ok := editFromBlock(block)
		if !ok {
			if block.Hint == "" {
				ui.Warning("Skipping code block without a hint line.")
			} else {
				ui.Warning("Skipping code block with unrecognised hint at line %d: %s", block.Line, block.Hint)
			}
			continue
		}
		plan.Edits = append(plan.Edits, edit)
	}
	return plan, Validate(plan.Edits)
}

func editFromBlock(block CodeBlock) (model.Edit, bool) {
	if m := replaceHintRegex.FindStringSubmatch(block.Hint); m != nil {
		return model.Edit{
			Action:    model.ActionReplaceBlock,
			Signature: m[1],
			Content:   strings.TrimSuffix(block.Content, "\n"),
		}, true
	}
	if m := insertHintRegex.FindStringSubmatch(block.Hint); m != nil {
		return model.Edit{
			Action:    model.ActionInsertAfter,
			Signature: m[1],
			Marker:    m[2],
			Content:   block.Content,
		}, true
	}
	if removeHintRegex.MatchString(block.Hint) {
		return model.Edit{
			Action:  model.ActionRemove,
			Content: block.Content,
		}, true
	}
	return model.Edit{}, false
}

type yamlPlan struct {
	Target     string     `yaml:"target"`
	Delimiters string     `yaml:"delimiters"`
	Edits      []yamlEdit `yaml:"edits"`
}

type yamlEdit struct {
	Name      string `yaml:"name"`
	Action    string `yaml:"action"`
	Signature string `yaml:"signature"`
	Anchor    string `yaml:"anchor"`
	Marker    string `yaml:"marker"`
	Content   string `yaml:"content"`
}

// ParseYAML reads a plan of the form:
//
//	target: src/service.ts
//	delimiters: "{}"
//	edits:
//	  - action: replace-block
//	    signature: "  start(): void {"
//	    content: |-
//	      ...
func ParseYAML(source []byte) (*Plan, error) {
	var raw yamlPlan
	if err := yaml.Unmarshal(source, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse yaml plan: %w", err)
	}

	plan := &Plan{Target: raw.Target, Delimiters: raw.Delimiters}
	for _, e := range raw.Edits {
		sig := e.Signature
		if sig == "" {
			sig = e.Anchor
		}
		edit := model.Edit{
			Name:      e.Name,
			Action:    model.Action(strings.ToLower(strings.TrimSpace(e.Action))),
			Signature: sig,
			Marker:    e.Marker,
			Content:   e.Content,
		}
		// A "|" block scalar ends in a newline, like a markdown fence.
		if edit.Action == model.ActionReplaceBlock {
			edit.Content = strings.TrimSuffix(edit.Content, "\n")
		}
		plan.Edits = append(plan.Edits, edit)
	}
	return plan, Validate(plan.Edits)
}

// Validate checks that every edit carries the fields its action needs.
func Validate(edits []model.Edit) error {
	var errs []error
	for i, e := range edits {
		switch e.Action {
		case model.ActionReplaceBlock:
			if e.Signature == "" {
				errs = append(errs, fmt.Errorf("edit %d: replace-block needs a signature", i+1))
			}
		case model.ActionInsertAfter:
			if e.Signature == "" {
				errs = append(errs, fmt.Errorf("edit %d: insert-after needs an anchor", i+1))
			}
			if e.Content == "" {
				errs = append(errs, fmt.Errorf("edit %d: insert-after needs content", i+1))
			}
		case model.ActionRemove:
			if e.Content == "" {
				errs = append(errs, fmt.Errorf("edit %d: remove needs content", i+1))
			}
		default:
			errs = append(errs, fmt.Errorf("edit %d: unknown action %q", i+1, e.Action))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidPlan, errors.Join(errs...))
	}
	return nil
}
