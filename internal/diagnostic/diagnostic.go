// Diagnostic reporting for constraint resolution.
// Provides the sink that cycle, dangling-reference and base-class
// conflicts are attached to by the nearest caller with location context.

package diagnostic

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/orizon-lang/tparams/internal/position"
)

// DiagnosticLevel represents the severity level of a diagnostic message.
type DiagnosticLevel int

const (
	DiagnosticError DiagnosticLevel = iota
	DiagnosticWarning
	DiagnosticInfo
	DiagnosticHint
)

func (dl DiagnosticLevel) String() string {
	switch dl {
	case DiagnosticError:
		return "error"
	case DiagnosticWarning:
		return "warning"
	case DiagnosticInfo:
		return "info"
	case DiagnosticHint:
		return "hint"
	default:
		return "unknown"
	}
}

// DiagnosticCategory represents the category of diagnostic.
type DiagnosticCategory int

const (
	DiagnosticConstraint DiagnosticCategory = iota
	DiagnosticReference
	DiagnosticRetargeting
)

func (dc DiagnosticCategory) String() string {
	switch dc {
	case DiagnosticConstraint:
		return "constraint"
	case DiagnosticReference:
		return "reference"
	case DiagnosticRetargeting:
		return "retargeting"
	default:
		return "unknown"
	}
}

// Diagnostic codes raised by the constraint checker.
const (
	CodeConstraintCycle     = "TP1001"
	CodeDanglingConstraint  = "TP1002"
	CodeConflictingBases    = "TP1003"
	CodeTruncated           = "TP0001"
	CodeUnresolvedAttribute = "TP2001"
)

// Diagnostic represents a single diagnostic message.
type Diagnostic struct {
	Code        string
	Title       string
	Message     string
	RelatedInfo []RelatedInformation
	Tags        []string
	Span        position.Span
	Level       DiagnosticLevel
	Category    DiagnosticCategory
}

// RelatedInformation provides additional context for a diagnostic.
type RelatedInformation struct {
	Message string
	Span    position.Span
}

// key identifies a diagnostic for deduplication. Two diagnostics with
// the same code, location and message are the same report.
func (d *Diagnostic) key() string {
	return d.Code + "|" + d.Span.String() + "|" + d.Message
}

// DiagnosticBuilder helps construct diagnostic messages with fluent API.
type DiagnosticBuilder struct {
	diagnostic *Diagnostic
}

// NewDiagnostic creates a new diagnostic builder.
func NewDiagnostic() *DiagnosticBuilder {
	return &DiagnosticBuilder{
		diagnostic: &Diagnostic{},
	}
}

func (db *DiagnosticBuilder) Error() *DiagnosticBuilder {
	db.diagnostic.Level = DiagnosticError

	return db
}

func (db *DiagnosticBuilder) Warning() *DiagnosticBuilder {
	db.diagnostic.Level = DiagnosticWarning

	return db
}

func (db *DiagnosticBuilder) Info() *DiagnosticBuilder {
	db.diagnostic.Level = DiagnosticInfo

	return db
}

func (db *DiagnosticBuilder) Constraint() *DiagnosticBuilder {
	db.diagnostic.Category = DiagnosticConstraint

	return db
}

func (db *DiagnosticBuilder) Reference() *DiagnosticBuilder {
	db.diagnostic.Category = DiagnosticReference

	return db
}

func (db *DiagnosticBuilder) Retargeting() *DiagnosticBuilder {
	db.diagnostic.Category = DiagnosticRetargeting

	return db
}

func (db *DiagnosticBuilder) Code(code string) *DiagnosticBuilder {
	db.diagnostic.Code = code

	return db
}

func (db *DiagnosticBuilder) Title(title string) *DiagnosticBuilder {
	db.diagnostic.Title = title

	return db
}

func (db *DiagnosticBuilder) Message(message string) *DiagnosticBuilder {
	db.diagnostic.Message = message

	return db
}

func (db *DiagnosticBuilder) Span(span position.Span) *DiagnosticBuilder {
	db.diagnostic.Span = span

	return db
}

func (db *DiagnosticBuilder) Related(span position.Span, message string) *DiagnosticBuilder {
	db.diagnostic.RelatedInfo = append(db.diagnostic.RelatedInfo, RelatedInformation{
		Span:    span,
		Message: message,
	})

	return db
}

func (db *DiagnosticBuilder) Tag(tag string) *DiagnosticBuilder {
	db.diagnostic.Tags = append(db.diagnostic.Tags, tag)

	return db
}

func (db *DiagnosticBuilder) Build() *Diagnostic {
	return db.diagnostic
}

// Sink receives diagnostics. Engine is the standard implementation.
type Sink interface {
	AddDiagnostic(d *Diagnostic)
}

// DiagnosticConfig controls diagnostic behavior.
type DiagnosticConfig struct {
	IgnoreCodes      []string
	MaxErrors        int
	WarningsAsErrors bool
	ShowRelatedInfo  bool
}

// DefaultConfig returns the configuration used when none is supplied.
func DefaultConfig() DiagnosticConfig {
	return DiagnosticConfig{
		MaxErrors:       100,
		ShowRelatedInfo: true,
	}
}

// Engine manages the collection and processing of diagnostics.
// It is safe for concurrent use by parallel checkers.
type Engine struct {
	mu          sync.Mutex
	diagnostics []Diagnostic
	seen        map[string]struct{}
	errorCount  int
	truncated   bool
	config      DiagnosticConfig
}

// NewEngine creates a new diagnostic engine.
func NewEngine(config DiagnosticConfig) *Engine {
	return &Engine{
		seen:   make(map[string]struct{}),
		config: config,
	}
}

// AddDiagnostic adds a diagnostic to the engine. Duplicate reports of
// the same diagnostic are dropped.
func (de *Engine) AddDiagnostic(diagnostic *Diagnostic) {
	if diagnostic == nil || de.shouldIgnore(diagnostic) {
		return
	}

	d := *diagnostic
	if de.config.WarningsAsErrors && d.Level == DiagnosticWarning {
		d.Level = DiagnosticError
	}

	de.mu.Lock()
	defer de.mu.Unlock()

	if de.truncated {
		return
	}

	k := d.key()
	if _, dup := de.seen[k]; dup {
		return
	}
	de.seen[k] = struct{}{}
	de.diagnostics = append(de.diagnostics, d)

	if d.Level == DiagnosticError {
		de.errorCount++
	}

	if de.config.MaxErrors > 0 && de.errorCount >= de.config.MaxErrors {
		de.truncated = true
		de.diagnostics = append(de.diagnostics, *NewDiagnostic().
			Error().
			Code(CodeTruncated).
			Title("Too many errors").
			Message(fmt.Sprintf("Stopping after %d errors", de.config.MaxErrors)).
			Build())
	}
}

// shouldIgnore checks if a diagnostic should be ignored based on config.
func (de *Engine) shouldIgnore(diagnostic *Diagnostic) bool {
	for _, code := range de.config.IgnoreCodes {
		if diagnostic.Code == code {
			return true
		}
	}
	return false
}

// Diagnostics returns a sorted copy of all diagnostics.
func (de *Engine) Diagnostics() []Diagnostic {
	de.mu.Lock()
	out := make([]Diagnostic, len(de.diagnostics))
	copy(out, de.diagnostics)
	de.mu.Unlock()

	sortDiagnostics(out)
	return out
}

// Errors returns only error-level diagnostics.
func (de *Engine) Errors() []Diagnostic {
	return de.filter(DiagnosticError)
}

// Warnings returns only warning-level diagnostics.
func (de *Engine) Warnings() []Diagnostic {
	return de.filter(DiagnosticWarning)
}

func (de *Engine) filter(level DiagnosticLevel) []Diagnostic {
	var out []Diagnostic
	for _, d := range de.Diagnostics() {
		if d.Level == level {
			out = append(out, d)
		}
	}
	return out
}

// HasErrors returns true if there are any errors.
func (de *Engine) HasErrors() bool {
	de.mu.Lock()
	defer de.mu.Unlock()
	for _, d := range de.diagnostics {
		if d.Level == DiagnosticError {
			return true
		}
	}
	return false
}

// Len returns the number of collected diagnostics.
func (de *Engine) Len() int {
	de.mu.Lock()
	defer de.mu.Unlock()
	return len(de.diagnostics)
}

// Clear removes all diagnostics.
func (de *Engine) Clear() {
	de.mu.Lock()
	defer de.mu.Unlock()
	de.diagnostics = de.diagnostics[:0]
	de.seen = make(map[string]struct{})
	de.errorCount = 0
	de.truncated = false
}

func sortDiagnostics(ds []Diagnostic) {
	sort.SliceStable(ds, func(i, j int) bool {
		a, b := ds[i], ds[j]

		if a.Span.Start != b.Span.Start {
			return a.Span.Start.Before(b.Span.Start)
		}
		if a.Level != b.Level {
			return a.Level < b.Level
		}
		return a.Code < b.Code
	})
}

// Format returns a formatted string representation of all diagnostics.
func (de *Engine) Format() string {
	ds := de.Diagnostics()
	if len(ds) == 0 {
		return ""
	}

	var result strings.Builder

	for i := range ds {
		if i > 0 {
			result.WriteString("\n")
		}
		result.WriteString(de.FormatSingle(&ds[i]))
	}

	result.WriteString(Summary(ds))

	return result.String()
}

// FormatSingle formats a single diagnostic.
func (de *Engine) FormatSingle(diag *Diagnostic) string {
	var result strings.Builder

	fmt.Fprintf(&result, "%s: %s[%s]: %s\n",
		diag.Span.String(),
		diag.Level.String(),
		diag.Code,
		diag.Title,
	)

	if diag.Message != "" {
		fmt.Fprintf(&result, "  %s\n", diag.Message)
	}

	if de.config.ShowRelatedInfo && len(diag.RelatedInfo) > 0 {
		result.WriteString("  Related:\n")

		for _, related := range diag.RelatedInfo {
			fmt.Fprintf(&result, "    %s: %s\n", related.Span.String(), related.Message)
		}
	}

	return result.String()
}

// Summary formats a count of errors and warnings.
func Summary(ds []Diagnostic) string {
	errorCount, warningCount := 0, 0
	for _, d := range ds {
		switch d.Level {
		case DiagnosticError:
			errorCount++
		case DiagnosticWarning:
			warningCount++
		}
	}

	if errorCount == 0 && warningCount == 0 {
		return "\nNo issues found."
	}

	var parts []string
	if errorCount > 0 {
		parts = append(parts, fmt.Sprintf("%d error(s)", errorCount))
	}
	if warningCount > 0 {
		parts = append(parts, fmt.Sprintf("%d warning(s)", warningCount))
	}

	return fmt.Sprintf("\nFound %s.", strings.Join(parts, ", "))
}

// ConstraintCycle reports type parameters whose constraints depend on
// each other. members are display names in cycle order.
func ConstraintCycle(span position.Span, members []string) *Diagnostic {
	path := append(append([]string{}, members...), members[0])
	return NewDiagnostic().
		Error().
		Constraint().
		Code(CodeConstraintCycle).
		Title("Circular constraint dependency").
		Message(fmt.Sprintf("Type parameters %s depend on each other through their constraints", strings.Join(path, " -> "))).
		Span(span).
		Tag("cycle").
		Build()
}

// DanglingConstraint reports a constraint naming a type that does not
// exist in the current context.
func DanglingConstraint(span position.Span, param, reference, context string) *Diagnostic {
	return NewDiagnostic().
		Error().
		Reference().
		Code(CodeDanglingConstraint).
		Title("Unresolved constraint type").
		Message(fmt.Sprintf("Constraint '%s' of type parameter '%s' cannot be resolved in %s", reference, param, context)).
		Span(span).
		Tag("dangling").
		Build()
}

// ConflictingBases reports class constraints unrelated by inheritance.
func ConflictingBases(span position.Span, param string, candidates []string, chosen string) *Diagnostic {
	return NewDiagnostic().
		Error().
		Constraint().
		Code(CodeConflictingBases).
		Title("Conflicting base class constraints").
		Message(fmt.Sprintf("Type parameter '%s' has unrelated base class constraints %s; using '%s'",
			param, strings.Join(candidates, ", "), chosen)).
		Span(span).
		Build()
}

// UnresolvedAttribute reports an attribute class missing from a retargeting target.
func UnresolvedAttribute(span position.Span, param, attribute, context string) *Diagnostic {
	return NewDiagnostic().
		Warning().
		Retargeting().
		Code(CodeUnresolvedAttribute).
		Title("Attribute not available in target context").
		Message(fmt.Sprintf("Attribute '%s' on type parameter '%s' has no equivalent in %s", attribute, param, context)).
		Span(span).
		Build()
}
