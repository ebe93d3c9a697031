// Package diagnostics defines the findings emitted by the Lumen flow
// analysis engine. Findings are values, not errors: analysis always
// completes and always produces a model, so a Collector only ever
// accumulates.
package diagnostics

import (
	"fmt"
	"sort"
	"strings"

	"github.com/lumen-lang/lumen/internal/position"
)

// Level represents the severity of a diagnostic.
type Level int

const (
	LevelError Level = iota
	LevelWarning
	LevelInfo
)

func (l Level) String() string {
	switch l {
	case LevelError:
		return "error"
	case LevelWarning:
		return "warning"
	case LevelInfo:
		return "info"
	default:
		return "unknown"
	}
}

// Category identifies what the flow engine found.
type Category int

const (
	// CategoryPossiblyUnassigned flags a read of a variable that is not
	// definitely assigned on every path reaching it.
	CategoryPossiblyUnassigned Category = iota
	// CategoryMissingReturn flags a function whose exit point is reachable
	// while its return type does not admit an implicit null return.
	CategoryMissingReturn
	// CategoryDeadCode flags a statement whose entry model is unreachable
	// from function entry.
	CategoryDeadCode
)

func (c Category) String() string {
	switch c {
	case CategoryPossiblyUnassigned:
		return "possibly-unassigned"
	case CategoryMissingReturn:
		return "missing-return"
	case CategoryDeadCode:
		return "dead-code"
	default:
		return "unknown"
	}
}

// Level returns the severity this category is reported at. Dead code is an
// advisory; the other findings are errors in sound mode.
func (c Category) Level() Level {
	if c == CategoryDeadCode {
		return LevelInfo
	}

	return LevelError
}

// Diagnostic is a single finding.
type Diagnostic struct {
	Level    Level
	Category Category
	Message  string
	Span     position.Span
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s: %s: %s [%s]", d.Span, d.Level, d.Message, d.Category)
}

// Collector accumulates findings for one analysis run. The zero value is
// ready to use.
type Collector struct {
	diagnostics []Diagnostic
	suppressed  map[Category]bool
}

// NewCollector creates a collector with the given categories suppressed.
func NewCollector(suppressed ...Category) *Collector {
	c := &Collector{}
	for _, cat := range suppressed {
		c.Suppress(cat)
	}

	return c
}

// Suppress disables reporting for a category. Suppression affects what the
// collector records, never what the engine computes.
func (c *Collector) Suppress(cat Category) {
	if c.suppressed == nil {
		c.suppressed = make(map[Category]bool)
	}

	c.suppressed[cat] = true
}

// Report records a finding unless its category is suppressed.
func (c *Collector) Report(cat Category, span position.Span, format string, args ...interface{}) {
	if c.suppressed[cat] {
		return
	}

	c.diagnostics = append(c.diagnostics, Diagnostic{
		Level:    cat.Level(),
		Category: cat,
		Message:  fmt.Sprintf(format, args...),
		Span:     span,
	})
}

// All returns the recorded findings in source order. The returned slice is
// a copy.
func (c *Collector) All() []Diagnostic {
	out := make([]Diagnostic, len(c.diagnostics))
	copy(out, c.diagnostics)

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Span.Start.Before(out[j].Span.Start)
	})

	return out
}

// ByCategory returns the recorded findings of one category, in report
// order.
func (c *Collector) ByCategory(cat Category) []Diagnostic {
	var out []Diagnostic
	for _, d := range c.diagnostics {
		if d.Category == cat {
			out = append(out, d)
		}
	}

	return out
}

// HasErrors reports whether any error-level finding was recorded.
func (c *Collector) HasErrors() bool {
	for _, d := range c.diagnostics {
		if d.Level == LevelError {
			return true
		}
	}

	return false
}

// Len returns the number of recorded findings.
func (c *Collector) Len() int { return len(c.diagnostics) }

// Format renders all findings, one per line.
func (c *Collector) Format() string {
	var sb strings.Builder
	for _, d := range c.All() {
		sb.WriteString(d.String())
		sb.WriteByte('\n')
	}

	return sb.String()
}
