// Package intent maps raw utterances to document commands with an ordered,
// deterministic rule table. Precedence is positional: the first intent in
// Order with a matching pattern wins, and inside it the first pattern wins.
package intent

// Intent is the user's inferred goal.
type Intent string

const (
	CreateDocument Intent = "create_document"
	AddText        Intent = "add_text"
	EditText       Intent = "edit_text"
	ExportDocument Intent = "export_document"
	Help           Intent = "help"
	Unknown        Intent = "unknown"
)

// Order is the fixed evaluation order of the rule table.
var Order = []Intent{CreateDocument, AddText, EditText, ExportDocument, Help}

func (i Intent) IsKnown() bool {
	for _, in := range Order {
		if in == i {
			return true
		}
	}
	return false
}

func (i Intent) String() string {
	return string(i)
}

// Capture is one submatch of the winning pattern.
// Present is false when the group did not participate in the match.
type Capture struct {
	Value   string
	Present bool
}

// Result is the outcome of classifying one utterance.
type Result struct {
	Intent   Intent
	Pattern  string    // source of the winning pattern, empty for Unknown
	Captures []Capture // capture groups 1..n of the winning pattern
}

// Group returns capture group n (1-based).
func (r Result) Group(n int) (string, bool) {
	if n < 1 || n > len(r.Captures) {
		return "", false
	}
	c := r.Captures[n-1]
	return c.Value, c.Present
}

// Classifier evaluates utterances against a Table.
type Classifier struct {
	table *Table
}

func NewClassifier(table *Table) *Classifier {
	return &Classifier{table: table}
}

// Classify is pure and safe for concurrent use.
func (c *Classifier) Classify(utterance string) Result {
	for _, rule := range c.table.rules {
		for _, re := range rule.Patterns {
			loc := re.FindStringSubmatchIndex(utterance)
			if loc == nil {
				continue
			}

			captures := make([]Capture, 0, len(loc)/2-1)
			for g := 2; g+1 < len(loc); g += 2 {
				if loc[g] < 0 {
					captures = append(captures, Capture{})
					continue
				}
				captures = append(captures, Capture{Value: utterance[loc[g]:loc[g+1]], Present: true})
			}

			return Result{
				Intent:   rule.Intent,
				Pattern:  re.String(),
				Captures: captures,
			}
		}
	}

	return Result{Intent: Unknown}
}
