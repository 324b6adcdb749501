package loader

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	tperrors "github.com/orizon-lang/tparams/internal/errors"
	"github.com/orizon-lang/tparams/internal/position"
	"github.com/orizon-lang/tparams/internal/symbols"
)

func loadTestdata(t *testing.T) *Graph {
	t.Helper()
	g, err := Load(filepath.Join("testdata", "graph.yaml"), Options{})
	require.NoError(t, err)
	return g
}

func param(t *testing.T, g *Graph, owner, name, source string) symbols.TypeParameter {
	t.Helper()
	for _, p := range g.Params {
		_, wrapped := p.(*symbols.Wrapper)
		kind := "canonical"
		if wrapped {
			kind = p.(*symbols.Wrapper).Strategy().Family().String()
		}
		if p.Name() == name && kind == source && strings.HasSuffix(symbols.QualifiedName(p.ContainingSymbol()), owner) {
			return p
		}
	}
	t.Fatalf("no %s parameter %s on %s", source, name, owner)
	return nil
}

func TestLoadTestdata(t *testing.T) {
	g := loadTestdata(t)

	require.Len(t, g.Contexts, 3)
	assert.Equal(t, "Lib@1.0.0", g.Contexts[0].String())
	require.Len(t, g.Retargeters, 1)
	assert.Equal(t, "Lib@2.0.0", g.Retargeters[0].TargetContext().String())
	require.Len(t, g.Containers, 1)
	assert.True(t, strings.HasPrefix(g.Containers[0].Name(), "MergeImpl<"))

	// 6 declared in 1.0.0 and 2 in 2.0.0, then Kennel.T, SortedSet.T and
	// Merge.TOther retargeted, then Merge.TOther re-parented.
	assert.Len(t, g.Params, 12)
}

func TestLoadBindsConstraints(t *testing.T) {
	g := loadTestdata(t)

	kennel := param(t, g, "Lib::Kennel", "T", "canonical")
	assert.Equal(t, []string{"Dog", "IDisposable", "ILegacy"}, typeNames(kennel.DeclaredConstraints()))
	assert.Equal(t, "Dog", kennel.EffectiveBaseClass(nil).String())
	require.Len(t, kennel.Locations(), 1)
	assert.Equal(t, position.Span{
		Start: position.Position{Filename: "kennel.cs", Line: 3, Column: 14},
		End:   position.Position{Filename: "kennel.cs", Line: 3, Column: 15},
	}, kennel.Locations()[0])
	require.Len(t, kennel.Attributes(), 1)
	assert.NotNil(t, kennel.Attributes()[0].Class)

	sorted := param(t, g, "Lib::SortedSet", "T", "canonical")
	assert.Equal(t, []string{"IComparable<T>"}, typeNames(sorted.Interfaces(nil)))

	merge := param(t, g, "SortedSet::Merge", "TOther", "canonical")
	require.Len(t, merge.DeclaredConstraints(), 1)
	assert.Same(t, sorted, merge.DeclaredConstraints()[0])

	pairT := param(t, g, "Lib::Pair", "T", "canonical")
	assert.True(t, pairT.Bounds(nil).InCycle)
}

func TestLoadRetargetsToHighestMatch(t *testing.T) {
	g := loadTestdata(t)

	w := param(t, g, "Lib::Kennel", "T", "retarget")
	assert.Equal(t, "Lib@2.0.0", w.DeclaringContext().String())
	b := w.Bounds(nil)
	assert.Equal(t, []string{"Dog", "IDisposable"}, typeNames(b.ConstraintTypes))
	require.Len(t, b.Conditions, 1)
	assert.Equal(t, symbols.ConditionDangling, b.Conditions[0].Kind)
	assert.Equal(t, "ILegacy", b.Conditions[0].Reference)
	assert.True(t, w.Attributes()[0].Unresolved)

	merge := param(t, g, "SortedSet::Merge", "TOther", "retarget")
	assert.Equal(t, "Lib@2.0.0", merge.DeclaringContext().String())
	assert.Equal(t, "Lib::SortedSet::Merge", symbols.QualifiedName(merge.ContainingSymbol()))
}

func TestGraphContextRefs(t *testing.T) {
	g := loadTestdata(t)

	tests := []struct {
		ref  string
		want string
	}{
		{"Lib@1.0.0", "Lib@1.0.0"},
		{"Lib@^2", "Lib@2.3.1"},
		{"Lib@~2.0", "Lib@2.0.0"},
		{"Lib@*", "Lib@2.3.1"},
		{"Lib@<2", "Lib@1.0.0"},
	}
	for _, tt := range tests {
		t.Run(tt.ref, func(t *testing.T) {
			ctx, err := g.Context(tt.ref)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ctx.String())
		})
	}

	for _, bad := range []string{"Lib", "Lib@", "@1.0.0", "Lib@^3", "Other@1.0.0", "Lib@not-a-range"} {
		_, err := g.Context(bad)
		assert.ErrorIs(t, err, tperrors.ErrInvalidInput, bad)
	}
}

func TestParseDanglingReference(t *testing.T) {
	g, err := Parse([]byte(`
contexts:
  - name: App
    version: 0.1.0
    types:
      - name: Box
        kind: class
        type_params:
          - name: T
            constraints: [Missing]
`), Options{})
	require.NoError(t, err)
	require.Len(t, g.Params, 1)

	declared := g.Params[0].DeclaredConstraints()
	require.Len(t, declared, 1)
	assert.Equal(t, "?Missing", declared[0].String())
}

func TestParseRejectsInvalidDocuments(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{"no contexts", "contexts: []\n", "Contexts"},
		{"bad version", "contexts:\n  - name: A\n    version: one\n", "Version"},
		{"bad kind", "contexts:\n  - name: A\n    version: 1.0.0\n    types:\n      - {name: X, kind: enum}\n", "Kind"},
		{"unknown field", "contexts:\n  - name: A\n    version: 1.0.0\n    colour: red\n", "colour"},
		{"conflicting flags", "contexts:\n  - name: A\n    version: 1.0.0\n    types:\n      - name: X\n        kind: class\n        type_params:\n          - {name: T, reference_type: true, value_type: true}\n", "ValueType"},
		{"duplicate context", "contexts:\n  - {name: A, version: 1.0.0}\n  - {name: A, version: 1.0.0}\n", "declared twice"},
		{"duplicate type", "contexts:\n  - name: A\n    version: 1.0.0\n    types:\n      - {name: X, kind: class}\n      - {name: X, kind: struct}\n", "declared twice"},
		{"duplicate param", "contexts:\n  - name: A\n    version: 1.0.0\n    types:\n      - name: X\n        kind: class\n        type_params: [{name: T}, {name: T}]\n", "declared twice"},
		{"bad base", "contexts:\n  - name: A\n    version: 1.0.0\n    types:\n      - {name: X, kind: class, base: Nope}\n", "cannot derive"},
		{"base cycle", "contexts:\n  - name: A\n    version: 1.0.0\n    types:\n      - {name: X, kind: class, base: Y}\n      - {name: Y, kind: class, base: X}\n", "inheritance cycle"},
		{"bad interface", "contexts:\n  - name: A\n    version: 1.0.0\n    types:\n      - {name: X, kind: class, interfaces: [X]}\n", "not an interface"},
		{"bad location", "contexts:\n  - name: A\n    version: 1.0.0\n    types:\n      - name: X\n        kind: class\n        type_params: [{name: T, locations: [here]}]\n", "here"},
		{"bad constraint", "contexts:\n  - name: A\n    version: 1.0.0\n    types:\n      - name: X\n        kind: class\n        type_params: [{name: T, constraints: ['X<']}]\n", "X<"},
		{"arity", "contexts:\n  - name: A\n    version: 1.0.0\n    types:\n      - name: X\n        kind: class\n        type_params: [{name: T, constraints: ['X<T, T>']}]\n", "type arguments"},
		{"unknown retarget context", "contexts:\n  - {name: A, version: 1.0.0}\nretarget:\n  - {from: A@1.0.0, to: A@2}\n", "no context matches"},
		{"retarget onto itself", "contexts:\n  - {name: A, version: 1.0.0}\nretarget:\n  - {from: A@1.0.0, to: A@1}\n", "onto itself"},
		{"not generic", "contexts:\n  - name: A\n    version: 1.0.0\n    types:\n      - {name: X, kind: class}\nspecialize:\n  - {context: A@1.0.0, type: X}\n", "no type parameters"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc), Options{})
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "none.yaml"), Options{})
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func typeNames[T symbols.Type](ts []T) []string {
	out := make([]string, len(ts))
	for i, t := range ts {
		out[i] = t.String()
	}
	return out
}
