package symbols

import (
	"sync"
	"sync/atomic"
	"testing"

	semver "github.com/Masterminds/semver/v3"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	tperrors "github.com/orizon-lang/tparams/internal/errors"
	"github.com/orizon-lang/tparams/internal/position"
)

func newContext(name, version string, opts ...ContextOption) *Context {
	return NewContext(name, semver.MustParse(version), opts...)
}

func spanAt(line, col int) position.Span {
	p := position.Position{Filename: "lib.cs", Line: line, Column: col}
	return position.Span{Start: p, End: position.Position{Filename: "lib.cs", Line: line, Column: col + 1}}
}

func requireInvalidConstruction(t *testing.T, fn func()) {
	t.Helper()
	defer func() {
		r := recover()
		require.NotNil(t, r, "expected a panic")
		err, ok := r.(error)
		require.True(t, ok, "panic value %v is not an error", r)
		assert.ErrorIs(t, err, tperrors.ErrInvalidConstruction)
	}()
	fn()
}

// nameMapper is a minimal TypeMapper that maps named types by name and
// dedupes retargeted parameters.
type nameMapper struct {
	source, target *Context
	strategy       *RetargetStrategy

	mu       sync.Mutex
	wrappers map[uuid.UUID]*Wrapper
}

func newNameMapper(source, target *Context) *nameMapper {
	m := &nameMapper{source: source, target: target, wrappers: make(map[uuid.UUID]*Wrapper)}
	m.strategy = Retarget(m, nil)
	return m
}

func (m *nameMapper) SourceContext() *Context { return m.source }
func (m *nameMapper) TargetContext() *Context { return m.target }

func (m *nameMapper) param(tp TypeParameter) TypeParameter {
	m.mu.Lock()
	defer m.mu.Unlock()
	if w, ok := m.wrappers[tp.ID()]; ok {
		return w
	}
	w := Wrap(tp, m.strategy)
	m.wrappers[tp.ID()] = w
	return w
}

func (m *nameMapper) MapType(t Type) Type {
	switch x := t.(type) {
	case *NamedType:
		if x.IsConstructed() {
			def, ok := m.MapType(x.Definition()).(*NamedType)
			if !ok {
				return Unresolved(x.Name())
			}
			args := make([]Type, len(x.TypeArguments()))
			for i, a := range x.TypeArguments() {
				args[i] = m.MapType(a)
			}
			return def.Construct(args...)
		}
		if x.Context() != m.source {
			return x
		}
		if found, ok := m.target.LookupType(x.Name()); ok {
			return found
		}
		return Unresolved(x.Name())
	case TypeParameter:
		if x.DeclaringContext() == m.source {
			return m.param(x)
		}
	}
	return t
}

func (m *nameMapper) MapSymbol(s Symbol) Symbol {
	switch x := s.(type) {
	case *Context:
		if x == m.source {
			return m.target
		}
	case *Method:
		owner, ok := m.MapType(x.Owner()).(*NamedType)
		if !ok {
			return Unresolved(x.Name())
		}
		if mm, ok := owner.LookupMethod(x.Name()); ok {
			return mm
		}
		return Unresolved(x.Name())
	case Type:
		return m.MapType(x)
	}
	return s
}

// countingObserver records resolver activity.
type countingObserver struct {
	resolved atomic.Int64
	hits     atomic.Int64
	races    atomic.Int64
	cycles   atomic.Int64
	dangling atomic.Int64
	conflict atomic.Int64
}

func (o *countingObserver) Resolved(string) { o.resolved.Add(1) }
func (o *countingObserver) MemoHit()        { o.hits.Add(1) }
func (o *countingObserver) PublishRace()    { o.races.Add(1) }
func (o *countingObserver) Condition(k ConditionKind) {
	switch k {
	case ConditionCycle:
		o.cycles.Add(1)
	case ConditionDangling:
		o.dangling.Add(1)
	case ConditionConflictingBases:
		o.conflict.Add(1)
	}
}

func conditionsOf(b *Bounds, kind ConditionKind) []Condition {
	var out []Condition
	for _, c := range b.Conditions {
		if c.Kind == kind {
			out = append(out, c)
		}
	}
	return out
}

func names[T Type](ts []T) []string {
	out := make([]string, len(ts))
	for i, t := range ts {
		out[i] = t.String()
	}
	return out
}
