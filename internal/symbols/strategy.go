package symbols

import "github.com/google/uuid"

// Family names a wrapping purpose. Wrappers of one family are never
// stacked on each other.
type Family int

const (
	FamilyRetarget Family = iota
	FamilyReparent
)

func (f Family) String() string {
	switch f {
	case FamilyRetarget:
		return "retarget"
	case FamilyReparent:
		return "reparent"
	default:
		return "unknown"
	}
}

// Strategy supplies the identity-bound facets of a Wrapper. The set of
// strategies is closed: RetargetStrategy and ReparentStrategy are the
// only implementations, and a new wrapping purpose is a new variant.
type Strategy interface {
	Family() Family

	containingSymbol(w *Wrapper) Symbol
	attributes(w *Wrapper) []Attribute
	declaringContext(w *Wrapper) *Context
	constraintClauses(w *Wrapper) []Type
	bounds(w *Wrapper, g *Guard) *Bounds
	preservesConstraints() bool
}

// TypeMapper translates symbols of a source context into their
// equivalents in a target context. Types with no equivalent map to a
// dangling *ErrorType.
type TypeMapper interface {
	SourceContext() *Context
	TargetContext() *Context
	MapType(t Type) Type
	MapSymbol(s Symbol) Symbol
}

// AttributeLoader re-binds attributes against a context's metadata.
type AttributeLoader interface {
	LoadAttributes(target *Context, attrs []Attribute) []Attribute
}

// RetargetStrategy exposes a type parameter inside another compilation
// context. The owner, attributes and every constraint are translated by
// the mapper, so a constraint naming a sibling parameter becomes that
// sibling's retargeted wrapper, and bounds are recomputed from the
// translated constraints.
type RetargetStrategy struct {
	mapper TypeMapper
	loader AttributeLoader
}

// Retarget builds a retargeting strategy. A nil loader keeps attributes
// whose class exists by name in the target and marks the rest unresolved.
func Retarget(mapper TypeMapper, loader AttributeLoader) *RetargetStrategy {
	if loader == nil {
		loader = RebindByName{}
	}
	return &RetargetStrategy{mapper: mapper, loader: loader}
}

// Mapper returns the type mapper.
func (s *RetargetStrategy) Mapper() TypeMapper { return s.mapper }

func (s *RetargetStrategy) Family() Family { return FamilyRetarget }

func (s *RetargetStrategy) containingSymbol(w *Wrapper) Symbol {
	return s.mapper.MapSymbol(w.underlying.ContainingSymbol())
}

func (s *RetargetStrategy) attributes(w *Wrapper) []Attribute {
	return s.loader.LoadAttributes(s.mapper.TargetContext(), w.underlying.Attributes())
}

func (s *RetargetStrategy) declaringContext(*Wrapper) *Context {
	return s.mapper.TargetContext()
}

// constraintClauses maps the underlying clauses. When the underlying is
// a re-parented parameter, clauses naming its original siblings are
// first pointed at the re-parented siblings so they retarget alongside
// it.
func (s *RetargetStrategy) constraintClauses(w *Wrapper) []Type {
	declared := w.underlying.DeclaredConstraints()
	siblings := reparentedSiblings(w.underlying)
	out := make([]Type, len(declared))
	for i, c := range declared {
		out[i] = s.mapper.MapType(substitute(c, siblings))
	}
	return out
}

// reparentedSiblings maps the underlying of every re-parented parameter
// sharing tp's container to the re-parented parameter.
func reparentedSiblings(tp TypeParameter) map[uuid.UUID]TypeParameter {
	w, ok := tp.(*Wrapper)
	if !ok || w.strategy.Family() != FamilyReparent {
		return nil
	}
	owner, ok := w.ContainingSymbol().(Generic)
	if !ok {
		return nil
	}
	out := make(map[uuid.UUID]TypeParameter)
	for _, p := range owner.TypeParameters() {
		if pw, ok := p.(*Wrapper); ok && pw.strategy.Family() == FamilyReparent {
			out[pw.underlying.ID()] = pw
		}
	}
	return out
}

// substitute replaces type parameters found in subst, including inside
// type arguments.
func substitute(t Type, subst map[uuid.UUID]TypeParameter) Type {
	if len(subst) == 0 {
		return t
	}
	switch x := t.(type) {
	case TypeParameter:
		if r, ok := subst[x.ID()]; ok {
			return r
		}
	case *NamedType:
		if !x.IsConstructed() {
			return t
		}
		args := make([]Type, len(x.typeArgs))
		changed := false
		for i, a := range x.typeArgs {
			args[i] = substitute(a, subst)
			changed = changed || args[i] != a
		}
		if changed {
			return x.definition.Construct(args...)
		}
	}
	return t
}

func (s *RetargetStrategy) bounds(w *Wrapper, g *Guard) *Bounds {
	return resolveBounds(w, g)
}

func (s *RetargetStrategy) preservesConstraints() bool { return false }

// ReparentStrategy places a type parameter under a different owner,
// typically a synthesized container, leaving attributes and constraints
// exactly as the underlying parameter has them.
type ReparentStrategy struct {
	container Symbol
}

// Reparent builds a re-parenting strategy for container.
func Reparent(container Symbol) *ReparentStrategy {
	return &ReparentStrategy{container: container}
}

func (s *ReparentStrategy) Family() Family { return FamilyReparent }

func (s *ReparentStrategy) containingSymbol(*Wrapper) Symbol { return s.container }

func (s *ReparentStrategy) attributes(w *Wrapper) []Attribute {
	return w.underlying.Attributes()
}

func (s *ReparentStrategy) declaringContext(w *Wrapper) *Context {
	return w.underlying.DeclaringContext()
}

func (s *ReparentStrategy) constraintClauses(w *Wrapper) []Type {
	return w.underlying.DeclaredConstraints()
}

func (s *ReparentStrategy) bounds(w *Wrapper, g *Guard) *Bounds {
	return w.underlying.Bounds(g)
}

func (s *ReparentStrategy) preservesConstraints() bool { return true }

// RebindByName is the default AttributeLoader: each attribute class is
// looked up by name in the target context.
type RebindByName struct{}

func (RebindByName) LoadAttributes(target *Context, attrs []Attribute) []Attribute {
	if len(attrs) == 0 {
		return attrs
	}
	out := make([]Attribute, len(attrs))
	for i, a := range attrs {
		name := a.Name
		if a.Class != nil {
			name = a.Class.Name()
		}
		rebound := Attribute{Name: name, Args: a.Args}
		if cls, ok := target.LookupType(name); ok {
			rebound.Class = cls
		} else {
			rebound.Unresolved = true
		}
		out[i] = rebound
	}
	return out
}
