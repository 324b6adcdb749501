// Package retarget exposes the symbols of one compilation context inside
// another. Named types are matched by name; type parameters become
// retargeting wrappers, one per underlying parameter.
package retarget

import (
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/orizon-lang/tparams/internal/errors"
	"github.com/orizon-lang/tparams/internal/symbols"
)

// AttributeLoader re-binds attributes in the target context.
type AttributeLoader = symbols.AttributeLoader

// Retargeter maps symbols of a source context into a target context.
// It is safe for concurrent use.
type Retargeter struct {
	source *symbols.Context
	target *symbols.Context
	logger *slog.Logger
	loader AttributeLoader

	strategy   *symbols.RetargetStrategy
	params     sync.Map // uuid.UUID -> *symbols.Wrapper
	containers sync.Map // uuid.UUID -> *symbols.SynthesizedContainer
	count      atomic.Int64
}

var _ symbols.TypeMapper = (*Retargeter)(nil)

// Option configures a Retargeter.
type Option func(*Retargeter)

// WithAttributeLoader replaces the default ContextAttributeLoader.
func WithAttributeLoader(l AttributeLoader) Option {
	return func(r *Retargeter) { r.loader = l }
}

// WithLogger sets the logger used for mapping misses.
func WithLogger(l *slog.Logger) Option {
	return func(r *Retargeter) { r.logger = l }
}

// New creates a Retargeter from source to target. Both contexts must be
// non-nil and must not share name and version.
func New(source, target *symbols.Context, opts ...Option) (*Retargeter, error) {
	if source == nil || target == nil {
		return nil, errors.InvalidInput("NIL_CONTEXT", "retargeting needs both a source and a target context")
	}
	if source == target || source.SameIdentity(target) {
		return nil, errors.InvalidInput("SAME_CONTEXT", "cannot retarget %s onto itself", source)
	}

	r := &Retargeter{source: source, target: target}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	r.logger = r.logger.With(slog.String("source", source.String()), slog.String("target", target.String()))
	if r.loader == nil {
		r.loader = &ContextAttributeLoader{Logger: r.logger}
	}
	r.strategy = symbols.Retarget(r, r.loader)
	return r, nil
}

func (r *Retargeter) SourceContext() *symbols.Context { return r.source }
func (r *Retargeter) TargetContext() *symbols.Context { return r.target }

// Len returns the number of distinct wrappers created so far.
func (r *Retargeter) Len() int {
	return int(r.count.Load())
}

// TypeParameter returns the retargeted wrapper of tp. Repeated calls for
// the same parameter return the same wrapper. A parameter that is
// already retargeted is re-wrapped from its underlying parameter. A
// re-parented parameter is owned by the target view of its container,
// see Container.
func (r *Retargeter) TypeParameter(tp symbols.TypeParameter) symbols.TypeParameter {
	if tp == nil {
		panic(errors.NilUnderlying("retarget"))
	}
	if w, ok := tp.(*symbols.Wrapper); ok && w.Strategy().Family() == symbols.FamilyRetarget {
		if w.DeclaringContext() == r.target && w.Strategy() == symbols.Strategy(r.strategy) {
			return w
		}
		tp = w.Underlying()
	}
	if tp.DeclaringContext() == r.target {
		return tp
	}

	if existing, ok := r.params.Load(tp.ID()); ok {
		return existing.(*symbols.Wrapper)
	}
	w := symbols.Wrap(tp, r.strategy)
	actual, loaded := r.params.LoadOrStore(tp.ID(), w)
	if !loaded {
		r.count.Add(1)
		r.logger.Debug("retargeted type parameter",
			slog.String("name", symbols.QualifiedName(tp)),
			slog.Int("ordinal", tp.Ordinal()))
	}
	return actual.(*symbols.Wrapper)
}

// TypeParameters retargets every type parameter of g in ordinal order.
func (r *Retargeter) TypeParameters(g symbols.Generic) []symbols.TypeParameter {
	params := g.TypeParameters()
	out := make([]symbols.TypeParameter, len(params))
	for i, tp := range params {
		out[i] = r.TypeParameter(tp)
	}
	return out
}

// MapType returns the equivalent of t in the target context. Named types
// are matched by name; a type with no equivalent maps to a dangling
// error type.
func (r *Retargeter) MapType(t symbols.Type) symbols.Type {
	switch x := t.(type) {
	case nil:
		return nil
	case *symbols.ErrorType:
		return x
	case *symbols.NamedType:
		return r.mapNamed(x)
	case symbols.TypeParameter:
		return r.TypeParameter(x)
	}
	return t
}

func (r *Retargeter) mapNamed(t *symbols.NamedType) symbols.Type {
	if t.Context() == r.target {
		return t
	}
	if t.IsConstructed() {
		def, ok := r.mapNamed(t.Definition()).(*symbols.NamedType)
		if !ok {
			return symbols.Unresolved(t.Name())
		}
		args := make([]symbols.Type, len(t.TypeArguments()))
		for i, a := range t.TypeArguments() {
			args[i] = r.MapType(a)
		}
		if len(def.TypeParameters()) != len(args) {
			r.logger.Debug("type arity differs in target", slog.String("type", t.String()))
			return symbols.Unresolved(t.Name())
		}
		return def.Construct(args...)
	}

	found, ok := r.target.LookupType(t.Name())
	if !ok || found.TypeKind() != t.TypeKind() {
		r.logger.Debug("type has no equivalent in target", slog.String("type", t.Name()))
		return symbols.Unresolved(t.Name())
	}
	return found
}

// MapSymbol maps contexts, methods, synthesized containers and types.
// Other symbols are returned unchanged.
func (r *Retargeter) MapSymbol(s symbols.Symbol) symbols.Symbol {
	switch x := s.(type) {
	case nil:
		return nil
	case *symbols.Context:
		if x == r.source || x.SameIdentity(r.source) {
			return r.target
		}
		return x
	case *symbols.SynthesizedContainer:
		return r.Container(x)
	case *symbols.Method:
		owner, ok := r.mapNamed(x.Owner()).(*symbols.NamedType)
		if !ok {
			return symbols.Unresolved(x.Name())
		}
		if m, ok := owner.LookupMethod(x.Name()); ok {
			return m
		}
		r.logger.Debug("method has no equivalent in target", slog.String("method", symbols.QualifiedName(x)))
		return symbols.Unresolved(x.Name())
	case symbols.Type:
		return r.MapType(x)
	}
	return s
}

// Container returns the view of a synthesized container in the target
// context. Its type parameters are the retargeted wrappers of c's
// re-parented parameters, so siblings constraining each other stay
// within the one container. Repeated calls return the same container.
func (r *Retargeter) Container(c *symbols.SynthesizedContainer) *symbols.SynthesizedContainer {
	if c.Context() == r.target {
		return c
	}
	if existing, ok := r.containers.Load(c.ID()); ok {
		return existing.(*symbols.SynthesizedContainer)
	}
	mapped := symbols.RetargetContainer(c, r.target, r.TypeParameters(c))
	actual, loaded := r.containers.LoadOrStore(c.ID(), mapped)
	if !loaded {
		r.logger.Debug("retargeted synthesized container", slog.String("name", c.Name()))
	}
	return actual.(*symbols.SynthesizedContainer)
}

// ContextAttributeLoader re-binds attribute classes by name in the target
// context and logs the ones it cannot find.
type ContextAttributeLoader struct {
	Logger *slog.Logger
}

func (l *ContextAttributeLoader) LoadAttributes(target *symbols.Context, attrs []symbols.Attribute) []symbols.Attribute {
	out := symbols.RebindByName{}.LoadAttributes(target, attrs)
	logger := l.Logger
	if logger == nil {
		logger = slog.Default()
	}
	for _, a := range out {
		if a.Unresolved {
			logger.Warn("attribute class not found in target", slog.String("attribute", a.Name))
		}
	}
	return out
}
