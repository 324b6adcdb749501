package diagnostic

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orizon-lang/tparams/internal/position"
)

func spanAt(line, col int) position.Span {
	p := position.Position{Filename: "lib.cs", Line: line, Column: col}
	return position.Span{Start: p, End: p}
}

func TestEngineDeduplicates(t *testing.T) {
	engine := NewEngine(DefaultConfig())

	engine.AddDiagnostic(ConstraintCycle(spanAt(3, 10), []string{"T", "U"}))
	engine.AddDiagnostic(ConstraintCycle(spanAt(3, 10), []string{"T", "U"}))

	require.Equal(t, 1, engine.Len())
	d := engine.Diagnostics()[0]
	assert.Equal(t, CodeConstraintCycle, d.Code)
	assert.Equal(t, "Type parameters T -> U -> T depend on each other through their constraints", d.Message)
}

func TestEngineConcurrentAdd(t *testing.T) {
	engine := NewEngine(DiagnosticConfig{MaxErrors: 0})

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			engine.AddDiagnostic(DanglingConstraint(spanAt(i%4+1, 1), "T", "Missing", "Lib@2.0.0"))
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 4, engine.Len())
	assert.True(t, engine.HasErrors())
}

func TestEngineTruncates(t *testing.T) {
	engine := NewEngine(DiagnosticConfig{MaxErrors: 2})

	for i := 1; i <= 5; i++ {
		engine.AddDiagnostic(DanglingConstraint(spanAt(i, 1), "T", fmt.Sprintf("M%d", i), "Lib"))
	}

	ds := engine.Diagnostics()
	require.Len(t, ds, 3)
	codes := []string{ds[0].Code, ds[1].Code, ds[2].Code}
	assert.Contains(t, codes, CodeTruncated)
}

func TestEngineWarningsAsErrorsAndIgnore(t *testing.T) {
	engine := NewEngine(DiagnosticConfig{
		WarningsAsErrors: true,
		IgnoreCodes:      []string{CodeDanglingConstraint},
	})

	engine.AddDiagnostic(UnresolvedAttribute(spanAt(1, 1), "T", "Marker", "Lib@2.0.0"))
	engine.AddDiagnostic(DanglingConstraint(spanAt(2, 1), "T", "Missing", "Lib"))

	require.Equal(t, 1, engine.Len())
	assert.Len(t, engine.Errors(), 1)
	assert.Empty(t, engine.Warnings())
}

func TestEngineFormatSortsByLocation(t *testing.T) {
	engine := NewEngine(DefaultConfig())
	engine.AddDiagnostic(DanglingConstraint(spanAt(9, 1), "U", "Gone", "Lib"))
	engine.AddDiagnostic(NewDiagnostic().
		Error().
		Constraint().
		Code(CodeConstraintCycle).
		Title("Circular constraint dependency").
		Span(spanAt(2, 4)).
		Related(spanAt(5, 1), "U declared here").
		Build())

	out := engine.Format()

	assert.Regexp(t, `(?s)lib.cs:2:4-4: error\[TP1001\].*Related:\n    lib.cs:5:1-1: U declared here.*lib.cs:9:1-1: error\[TP1002\]`, out)
	assert.Contains(t, out, "Found 2 error(s).")
}

func TestSummaryNoIssues(t *testing.T) {
	assert.Equal(t, "\nNo issues found.", Summary(nil))
}

func TestEngineClear(t *testing.T) {
	engine := NewEngine(DefaultConfig())
	engine.AddDiagnostic(ConflictingBases(spanAt(1, 1), "T", []string{"A", "B"}, "A"))
	engine.Clear()

	assert.Equal(t, 0, engine.Len())
	assert.False(t, engine.HasErrors())
}
