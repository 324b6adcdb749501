package symbols

import (
	"strings"

	"github.com/google/uuid"

	"github.com/orizon-lang/tparams/internal/errors"
)

// TypeKind classifies types.
type TypeKind int

const (
	TypeKindClass TypeKind = iota
	TypeKindInterface
	TypeKindStruct
	TypeKindTypeParameter
	TypeKindError
)

// String returns the string representation of TypeKind.
func (tk TypeKind) String() string {
	switch tk {
	case TypeKindClass:
		return "class"
	case TypeKindInterface:
		return "interface"
	case TypeKindStruct:
		return "struct"
	case TypeKindTypeParameter:
		return "type parameter"
	case TypeKindError:
		return "error"
	default:
		return "unknown"
	}
}

// Type is a symbol usable in a constraint clause.
type Type interface {
	Symbol
	TypeKind() TypeKind
	String() string
}

// NamedType is a class, interface or struct declared in a Context, or
// a construction of a generic one with type arguments.
type NamedType struct {
	id      uuid.UUID
	name    string
	kind    TypeKind
	context *Context

	base       *NamedType
	interfaces []*NamedType
	typeParams []TypeParameter
	methods    []*Method

	definition *NamedType
	typeArgs   []Type
}

func (t *NamedType) ID() uuid.UUID      { return t.id }
func (t *NamedType) Name() string       { return t.name }
func (t *NamedType) Kind() SymbolKind   { return SymbolKindType }
func (t *NamedType) TypeKind() TypeKind { return t.kind }

// ContainingSymbol returns the declaring context.
func (t *NamedType) ContainingSymbol() Symbol { return t.context }

// Context returns the declaring context.
func (t *NamedType) Context() *Context { return t.context }

// Definition returns the generic definition of a constructed type, or
// the type itself.
func (t *NamedType) Definition() *NamedType {
	if t.definition != nil {
		return t.definition
	}
	return t
}

// IsConstructed reports whether t carries type arguments.
func (t *NamedType) IsConstructed() bool { return t.definition != nil }

// TypeArguments returns the type arguments of a constructed type.
func (t *NamedType) TypeArguments() []Type { return t.typeArgs }

// BaseType returns the base class, nil for interfaces and Object.
func (t *NamedType) BaseType() *NamedType { return t.Definition().base }

// Interfaces returns directly implemented interfaces.
func (t *NamedType) Interfaces() []*NamedType { return t.Definition().interfaces }

// TypeParameters returns the type parameters of the definition.
func (t *NamedType) TypeParameters() []TypeParameter { return t.Definition().typeParams }

// Methods returns declared methods.
func (t *NamedType) Methods() []*Method { return t.Definition().methods }

// SetBase sets the base class of a class or struct.
func (t *NamedType) SetBase(base *NamedType) *NamedType {
	if t.kind == TypeKindInterface || t.definition != nil {
		panic(errors.InvalidConstruction("BAD_BASE", "%s cannot take a base class", t))
	}
	t.base = base
	return t
}

// AddInterface records an implemented interface.
func (t *NamedType) AddInterface(iface *NamedType) *NamedType {
	t.interfaces = append(t.interfaces, iface)
	return t
}

// AddTypeParameter declares the next type parameter of t.
func (t *NamedType) AddTypeParameter(spec TypeParameterSpec) *SourceTypeParameter {
	if t.definition != nil {
		panic(errors.InvalidConstruction("CONSTRUCTED_OWNER", "cannot declare type parameters on constructed type %s", t))
	}
	tp := newSourceTypeParameter(t, t.context, len(t.typeParams), spec)
	t.typeParams = append(t.typeParams, tp)
	return tp
}

// DeclareMethod declares a method on t.
func (t *NamedType) DeclareMethod(name string) *Method {
	m := &Method{id: uuid.New(), name: name, owner: t}
	t.methods = append(t.methods, m)
	return m
}

// LookupMethod finds a method by name.
func (t *NamedType) LookupMethod(name string) (*Method, bool) {
	for _, m := range t.Methods() {
		if m.name == name {
			return m, true
		}
	}
	return nil, false
}

// Construct applies type arguments to a generic definition.
func (t *NamedType) Construct(args ...Type) *NamedType {
	def := t.Definition()
	if len(args) != len(def.typeParams) {
		panic(errors.InvalidConstruction("ARITY", "%s takes %d type arguments, got %d", def.name, len(def.typeParams), len(args)))
	}
	return &NamedType{
		id:         uuid.New(),
		name:       def.name,
		kind:       def.kind,
		context:    def.context,
		definition: def,
		typeArgs:   append([]Type(nil), args...),
	}
}

// String renders the type with its arguments, e.g. IComparable<T>.
func (t *NamedType) String() string {
	if len(t.typeArgs) == 0 {
		return t.name
	}
	args := make([]string, len(t.typeArgs))
	for i, a := range t.typeArgs {
		args[i] = a.String()
	}
	return t.name + "<" + strings.Join(args, ", ") + ">"
}

// depth is the length of the base class chain.
func (t *NamedType) depth() int {
	d := 0
	for b := t.BaseType(); b != nil; b = b.BaseType() {
		d++
	}
	return d
}

// DerivesFrom reports whether t is base or inherits from it.
func (t *NamedType) DerivesFrom(base *NamedType) bool {
	for cur := t; cur != nil; cur = cur.BaseType() {
		if Identical(cur, base) {
			return true
		}
	}
	return false
}

// Method is a method that may declare its own type parameters.
type Method struct {
	id         uuid.UUID
	name       string
	owner      *NamedType
	typeParams []TypeParameter
}

func (m *Method) ID() uuid.UUID                   { return m.id }
func (m *Method) Name() string                    { return m.name }
func (m *Method) Kind() SymbolKind                { return SymbolKindMethod }
func (m *Method) ContainingSymbol() Symbol        { return m.owner }
func (m *Method) Owner() *NamedType               { return m.owner }
func (m *Method) TypeParameters() []TypeParameter { return m.typeParams }

// AddTypeParameter declares the next type parameter of m.
func (m *Method) AddTypeParameter(spec TypeParameterSpec) *SourceTypeParameter {
	tp := newSourceTypeParameter(m, m.owner.context, len(m.typeParams), spec)
	m.typeParams = append(m.typeParams, tp)
	return tp
}

// ErrorKind distinguishes error types.
type ErrorKind int

const (
	// ErrorKindCycle is the marker returned for base types of a
	// parameter caught in a constraint cycle.
	ErrorKindCycle ErrorKind = iota
	// ErrorKindDangling is a reference that could not be resolved.
	ErrorKindDangling
)

// ErrorType stands in for a type that could not be determined.
type ErrorType struct {
	id        uuid.UUID
	name      string
	errorKind ErrorKind
}

// CycleMarker is the effective base class and deduced base type of a
// type parameter whose constraints are circular.
var CycleMarker = &ErrorType{id: uuid.New(), name: "<cycle>", errorKind: ErrorKindCycle}

// Unresolved returns a dangling reference to name.
func Unresolved(name string) *ErrorType {
	return &ErrorType{id: uuid.New(), name: name, errorKind: ErrorKindDangling}
}

func (e *ErrorType) ID() uuid.UUID            { return e.id }
func (e *ErrorType) Name() string             { return e.name }
func (e *ErrorType) Kind() SymbolKind         { return SymbolKindError }
func (e *ErrorType) ContainingSymbol() Symbol { return nil }
func (e *ErrorType) TypeKind() TypeKind       { return TypeKindError }
func (e *ErrorType) ErrorKind() ErrorKind     { return e.errorKind }
func (e *ErrorType) String() string {
	if e.errorKind == ErrorKindDangling {
		return "?" + e.name
	}
	return e.name
}

// IsCycleMarker reports whether t is the cycle sentinel.
func IsCycleMarker(t Type) bool {
	e, ok := t.(*ErrorType)
	return ok && e.errorKind == ErrorKindCycle
}

// Identical reports structural identity of two types: named types by
// definition and arguments, type parameters by symbol, error types by
// kind and name.
func Identical(a, b Type) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	switch x := a.(type) {
	case *NamedType:
		y, ok := b.(*NamedType)
		if !ok {
			return false
		}
		if x == y {
			return true
		}
		if x.Definition().id != y.Definition().id || len(x.typeArgs) != len(y.typeArgs) {
			return false
		}
		for i := range x.typeArgs {
			if !Identical(x.typeArgs[i], y.typeArgs[i]) {
				return false
			}
		}
		return true
	case *ErrorType:
		y, ok := b.(*ErrorType)
		return ok && x.errorKind == y.errorKind && x.name == y.name
	case TypeParameter:
		y, ok := b.(TypeParameter)
		return ok && x.ID() == y.ID()
	}
	return a.ID() == b.ID()
}

// IdenticalLists compares two type lists element-wise.
func IdenticalLists[T Type](a, b []T) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !Identical(a[i], b[i]) {
			return false
		}
	}
	return true
}

func containsType[T Type](list []T, t T) bool {
	for _, x := range list {
		if Identical(x, t) {
			return true
		}
	}
	return false
}
