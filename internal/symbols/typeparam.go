package symbols

import (
	"strings"

	"github.com/orizon-lang/tparams/internal/position"
)

// Variance represents generic parameter variance.
type Variance int

const (
	VarianceInvariant Variance = iota
	VarianceCovariant
	VarianceContravariant
)

// String returns the string representation of Variance.
func (v Variance) String() string {
	switch v {
	case VarianceInvariant:
		return "invariant"
	case VarianceCovariant:
		return "covariant"
	case VarianceContravariant:
		return "contravariant"
	default:
		return "unknown"
	}
}

// ParseVariance accepts the String forms plus "in" and "out".
func ParseVariance(s string) (Variance, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "invariant":
		return VarianceInvariant, true
	case "covariant", "out":
		return VarianceCovariant, true
	case "contravariant", "in":
		return VarianceContravariant, true
	}
	return VarianceInvariant, false
}

// ParameterKind tells which kind of construct declared a type parameter.
type ParameterKind int

const (
	ParameterKindType ParameterKind = iota
	ParameterKindMethod
)

func (k ParameterKind) String() string {
	switch k {
	case ParameterKindType:
		return "type"
	case ParameterKindMethod:
		return "method"
	default:
		return "unknown"
	}
}

// SyntaxReference points at the declaring syntax of a symbol.
type SyntaxReference struct {
	Span position.Span
	Text string
}

// Attribute is an attribute applied to a type parameter.
type Attribute struct {
	// Class is nil when the attribute class could not be bound.
	Class *NamedType
	// Name is the attribute class name as written.
	Name string
	Args []string
	// Unresolved is set when re-binding in another context failed.
	Unresolved bool
}

// String renders the attribute as Name(args).
func (a Attribute) String() string {
	name := a.Name
	if a.Class != nil {
		name = a.Class.String()
	}
	if len(a.Args) == 0 {
		return name
	}
	return name + "(" + strings.Join(a.Args, ", ") + ")"
}

// TypeParameter is the query surface shared by declared type parameters
// and wrappers. Callers never need to know which one they hold.
//
// The guarded queries take the Guard of the resolution chain in
// progress; pass nil to start a new chain.
type TypeParameter interface {
	Type

	Ordinal() int
	// ParameterKind is fixed at declaration; a wrapper reports the kind
	// of its underlying parameter whatever its own owner is.
	ParameterKind() ParameterKind
	Variance() Variance
	HasReferenceTypeConstraint() bool
	HasValueTypeConstraint() bool
	HasConstructorConstraint() bool
	IsImplicitlyDeclared() bool
	Locations() []position.Span
	DeclaringSyntaxReferences() []SyntaxReference
	Documentation() string
	Attributes() []Attribute

	// DeclaringContext is the context the parameter is observed in.
	DeclaringContext() *Context
	// DeclaredConstraints are the constraint clauses as written, before
	// resolution. Dangling references appear as *ErrorType.
	DeclaredConstraints() []Type

	// EnsureAllConstraintsResolved forces eager resolution.
	EnsureAllConstraintsResolved()

	Bounds(g *Guard) *Bounds
	ConstraintTypes(g *Guard) []Type
	Interfaces(g *Guard) []*NamedType
	EffectiveBaseClass(g *Guard) Type
	DeducedBaseType(g *Guard) Type
}

// TypeParameterSpec describes a type parameter at declaration.
type TypeParameterSpec struct {
	Name          string
	Variance      Variance
	ReferenceType bool
	ValueType     bool
	Constructor   bool
	Implicit      bool
	Locations     []position.Span
	Syntax        []SyntaxReference
	Documentation string
	Attributes    []Attribute
}
