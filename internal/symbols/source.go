package symbols

import (
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/orizon-lang/tparams/internal/errors"
	"github.com/orizon-lang/tparams/internal/position"
)

// SourceTypeParameter is a type parameter as declared by its owner.
// It is the canonical representation that wrappers forward to.
type SourceTypeParameter struct {
	id      uuid.UUID
	owner   Generic
	context *Context
	ordinal int
	kind    ParameterKind
	spec    TypeParameterSpec

	constraints []Type
	sealed      atomic.Bool
	bounds      lazy[Bounds]
}

var _ TypeParameter = (*SourceTypeParameter)(nil)

func newSourceTypeParameter(owner Generic, ctx *Context, ordinal int, spec TypeParameterSpec) *SourceTypeParameter {
	if spec.ReferenceType && spec.ValueType {
		panic(errors.ConflictingFlags(spec.Name))
	}
	kind := ParameterKindType
	if _, ok := owner.(*Method); ok {
		kind = ParameterKindMethod
	}
	return &SourceTypeParameter{
		id:      uuid.New(),
		owner:   owner,
		context: ctx,
		ordinal: ordinal,
		kind:    kind,
		spec:    spec,
	}
}

// SetConstraints replaces the declared constraint clauses. It must be
// called before the parameter is first resolved.
func (p *SourceTypeParameter) SetConstraints(types ...Type) *SourceTypeParameter {
	if p.sealed.Load() {
		panic(errors.SealedParameter(p.spec.Name))
	}
	p.constraints = append([]Type(nil), types...)
	return p
}

func (p *SourceTypeParameter) ID() uuid.UUID                    { return p.id }
func (p *SourceTypeParameter) Name() string                     { return p.spec.Name }
func (p *SourceTypeParameter) Kind() SymbolKind                 { return SymbolKindTypeParameter }
func (p *SourceTypeParameter) TypeKind() TypeKind               { return TypeKindTypeParameter }
func (p *SourceTypeParameter) String() string                   { return p.spec.Name }
func (p *SourceTypeParameter) ContainingSymbol() Symbol         { return p.owner }
func (p *SourceTypeParameter) Ordinal() int                     { return p.ordinal }
func (p *SourceTypeParameter) ParameterKind() ParameterKind     { return p.kind }
func (p *SourceTypeParameter) Variance() Variance               { return p.spec.Variance }
func (p *SourceTypeParameter) HasReferenceTypeConstraint() bool { return p.spec.ReferenceType }
func (p *SourceTypeParameter) HasValueTypeConstraint() bool     { return p.spec.ValueType }
func (p *SourceTypeParameter) HasConstructorConstraint() bool   { return p.spec.Constructor }
func (p *SourceTypeParameter) IsImplicitlyDeclared() bool       { return p.spec.Implicit }
func (p *SourceTypeParameter) Locations() []position.Span       { return p.spec.Locations }
func (p *SourceTypeParameter) Documentation() string            { return p.spec.Documentation }
func (p *SourceTypeParameter) Attributes() []Attribute          { return p.spec.Attributes }
func (p *SourceTypeParameter) DeclaringContext() *Context       { return p.context }

func (p *SourceTypeParameter) DeclaringSyntaxReferences() []SyntaxReference {
	return p.spec.Syntax
}

// DeclaredConstraints returns the constraint clauses as written.
func (p *SourceTypeParameter) DeclaredConstraints() []Type { return p.constraints }

// EnsureAllConstraintsResolved resolves and memoizes the bounds.
func (p *SourceTypeParameter) EnsureAllConstraintsResolved() { p.Bounds(nil) }

// Bounds resolves all constraint-derived facets at once.
func (p *SourceTypeParameter) Bounds(g *Guard) *Bounds {
	p.sealed.Store(true)
	return resolveBounds(p, g)
}

func (p *SourceTypeParameter) ConstraintTypes(g *Guard) []Type {
	return p.Bounds(g).ConstraintTypes
}

func (p *SourceTypeParameter) Interfaces(g *Guard) []*NamedType {
	return p.Bounds(g).Interfaces
}

func (p *SourceTypeParameter) EffectiveBaseClass(g *Guard) Type {
	return p.Bounds(g).EffectiveBaseClass
}

func (p *SourceTypeParameter) DeducedBaseType(g *Guard) Type {
	return p.Bounds(g).DeducedBaseType
}

func (p *SourceTypeParameter) boundsSlot() *lazy[Bounds] { return &p.bounds }
func (p *SourceTypeParameter) sourceLabel() string       { return "canonical" }
