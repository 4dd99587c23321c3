package intent

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed patterns.yaml
var defaultPatterns []byte

// ErrInvalidTable is returned when a rule table cannot be used.
// It is always raised while building the table, never while matching.
var ErrInvalidTable = errors.New("invalid intent pattern table")

// Rule binds one intent to its ordered patterns.
type Rule struct {
	Intent   Intent
	Patterns []*regexp.Regexp
}

// Table is an immutable, validated rule table. Safe for concurrent use.
type Table struct {
	rules []Rule
}

// RuleDefinition is the serialized form of a rule.
type RuleDefinition struct {
	Name     string   `yaml:"name"`
	Patterns []string `yaml:"patterns"`
}

type tableFile struct {
	Intents []RuleDefinition `yaml:"intents"`
}

// DefaultTable returns the built-in Indonesian/English table.
func DefaultTable() (*Table, error) {
	return ParseTable(defaultPatterns)
}

// LoadTable reads a YAML table from path. An empty path means the built-in table.
func LoadTable(path string) (*Table, error) {
	if path == "" {
		return DefaultTable()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", ErrInvalidTable, path, err)
	}
	return ParseTable(data)
}

// ParseTable decodes and validates a YAML table.
func ParseTable(data []byte) (*Table, error) {
	var file tableFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTable, err)
	}
	return NewTable(file.Intents)
}

// NewTable compiles rule definitions. Rules are re-ordered into the canonical
// intent order, so precedence never depends on how the source lists them.
func NewTable(defs []RuleDefinition) (*Table, error) {
	if len(defs) == 0 {
		return nil, fmt.Errorf("%w: no intents defined", ErrInvalidTable)
	}

	byIntent := make(map[Intent]Rule, len(defs))
	for _, def := range defs {
		in := Intent(strings.TrimSpace(def.Name))
		if !in.IsKnown() {
			return nil, fmt.Errorf("%w: unknown intent %q", ErrInvalidTable, def.Name)
		}
		if _, dup := byIntent[in]; dup {
			return nil, fmt.Errorf("%w: intent %q defined twice", ErrInvalidTable, in)
		}
		if len(def.Patterns) == 0 {
			return nil, fmt.Errorf("%w: intent %q has no patterns", ErrInvalidTable, in)
		}

		rule := Rule{Intent: in, Patterns: make([]*regexp.Regexp, 0, len(def.Patterns))}
		for i, p := range def.Patterns {
			if strings.TrimSpace(p) == "" {
				return nil, fmt.Errorf("%w: intent %q pattern #%d is empty", ErrInvalidTable, in, i+1)
			}
			if !strings.HasPrefix(p, "(?i)") {
				p = "(?i)" + p
			}
			re, err := regexp.Compile(p)
			if err != nil {
				return nil, fmt.Errorf("%w: intent %q pattern #%d: %v", ErrInvalidTable, in, i+1, err)
			}
			rule.Patterns = append(rule.Patterns, re)
		}
		byIntent[in] = rule
	}

	t := &Table{}
	for _, in := range Order {
		if rule, ok := byIntent[in]; ok {
			t.rules = append(t.rules, rule)
		}
	}
	return t, nil
}

// Rules returns the rules in evaluation order.
func (t *Table) Rules() []Rule {
	out := make([]Rule, len(t.rules))
	copy(out, t.rules)
	return out
}
