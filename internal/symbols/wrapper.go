package symbols

import (
	"github.com/google/uuid"

	"github.com/orizon-lang/tparams/internal/errors"
	"github.com/orizon-lang/tparams/internal/position"
)

// Wrapper is a type parameter observed through another symbol context.
//
// Name, ordinal, parameter kind, variance, the constraint flags, locations, syntax
// references and documentation are read from the underlying parameter
// on every call. The owning symbol, attributes and constraint-derived
// facets come from the Strategy and are memoized per wrapper.
//
// A Wrapper never wraps a Wrapper of the same strategy family.
type Wrapper struct {
	id         uuid.UUID
	underlying TypeParameter
	strategy   Strategy

	owner       lazy[Symbol]
	attributes  lazy[[]Attribute]
	constraints lazy[[]Type]
	bounds      lazy[Bounds]
}

var _ TypeParameter = (*Wrapper)(nil)

// Wrap creates a wrapper over underlying. It panics with an
// errors.ErrInvalidConstruction error when underlying is nil or is
// already wrapped by the same strategy family.
func Wrap(underlying TypeParameter, strategy Strategy) *Wrapper {
	switch u := underlying.(type) {
	case nil:
		panic(errors.NilUnderlying("wrap"))
	case *SourceTypeParameter:
		if u == nil {
			panic(errors.NilUnderlying("wrap"))
		}
	case *Wrapper:
		if u == nil {
			panic(errors.NilUnderlying("wrap"))
		}
		if strategy != nil && u.strategy.Family() == strategy.Family() {
			panic(errors.NestedWrapper(strategy.Family().String(), u.Name()))
		}
	}
	if strategy == nil {
		panic(errors.InvalidConstruction("NIL_STRATEGY", "wrapper for %s has no strategy", underlying.Name()))
	}
	return &Wrapper{
		id:         uuid.New(),
		underlying: underlying,
		strategy:   strategy,
	}
}

// Underlying returns the wrapped parameter.
func (w *Wrapper) Underlying() TypeParameter { return w.underlying }

// Strategy returns the wrapping strategy.
func (w *Wrapper) Strategy() Strategy { return w.strategy }

func (w *Wrapper) ID() uuid.UUID      { return w.id }
func (w *Wrapper) Kind() SymbolKind   { return SymbolKindTypeParameter }
func (w *Wrapper) TypeKind() TypeKind { return TypeKindTypeParameter }

func (w *Wrapper) Name() string                     { return w.underlying.Name() }
func (w *Wrapper) String() string                   { return w.underlying.Name() }
func (w *Wrapper) Ordinal() int                     { return w.underlying.Ordinal() }
func (w *Wrapper) ParameterKind() ParameterKind     { return w.underlying.ParameterKind() }
func (w *Wrapper) Variance() Variance               { return w.underlying.Variance() }
func (w *Wrapper) HasReferenceTypeConstraint() bool { return w.underlying.HasReferenceTypeConstraint() }
func (w *Wrapper) HasValueTypeConstraint() bool     { return w.underlying.HasValueTypeConstraint() }
func (w *Wrapper) HasConstructorConstraint() bool   { return w.underlying.HasConstructorConstraint() }
func (w *Wrapper) IsImplicitlyDeclared() bool       { return w.underlying.IsImplicitlyDeclared() }
func (w *Wrapper) Locations() []position.Span       { return w.underlying.Locations() }
func (w *Wrapper) Documentation() string            { return w.underlying.Documentation() }

func (w *Wrapper) DeclaringSyntaxReferences() []SyntaxReference {
	return w.underlying.DeclaringSyntaxReferences()
}

// ContainingSymbol returns the owner chosen by the strategy.
func (w *Wrapper) ContainingSymbol() Symbol {
	return w.owner.get(func() Symbol { return w.strategy.containingSymbol(w) })
}

// Attributes returns the attributes as seen in the wrapper's context.
func (w *Wrapper) Attributes() []Attribute {
	return w.attributes.get(func() []Attribute { return w.strategy.attributes(w) })
}

// DeclaringContext returns the context the wrapper is observed in.
func (w *Wrapper) DeclaringContext() *Context {
	return w.strategy.declaringContext(w)
}

// DeclaredConstraints returns the constraint clauses as seen in the
// wrapper's context.
func (w *Wrapper) DeclaredConstraints() []Type {
	return w.constraints.get(func() []Type { return w.strategy.constraintClauses(w) })
}

// EnsureAllConstraintsResolved forwards to the underlying parameter when
// the strategy keeps its constraints, and resolves the wrapper's own
// bounds otherwise.
func (w *Wrapper) EnsureAllConstraintsResolved() {
	if w.strategy.preservesConstraints() {
		w.underlying.EnsureAllConstraintsResolved()
		return
	}
	w.Bounds(nil)
}

func (w *Wrapper) Bounds(g *Guard) *Bounds {
	return w.strategy.bounds(w, g)
}

func (w *Wrapper) ConstraintTypes(g *Guard) []Type {
	return w.Bounds(g).ConstraintTypes
}

func (w *Wrapper) Interfaces(g *Guard) []*NamedType {
	return w.Bounds(g).Interfaces
}

func (w *Wrapper) EffectiveBaseClass(g *Guard) Type {
	return w.Bounds(g).EffectiveBaseClass
}

func (w *Wrapper) DeducedBaseType(g *Guard) Type {
	return w.Bounds(g).DeducedBaseType
}

func (w *Wrapper) boundsSlot() *lazy[Bounds] { return &w.bounds }
func (w *Wrapper) sourceLabel() string       { return "wrapper_" + w.strategy.Family().String() }
