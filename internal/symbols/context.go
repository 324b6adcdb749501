package symbols

import (
	"fmt"
	"sync"

	semver "github.com/Masterminds/semver/v3"
	"github.com/google/uuid"
)

// Names of the special types every context declares.
const (
	ObjectTypeName    = "Object"
	ValueTypeTypeName = "ValueType"
)

// Context is a compilation context: a named, versioned unit that owns
// type declarations. Declarations are made single-threaded before the
// context is queried; lookups are safe for concurrent use afterwards.
type Context struct {
	id       uuid.UUID
	name     string
	version  *semver.Version
	observer Observer

	mu    sync.RWMutex
	types map[string]*NamedType
	order []*NamedType

	object    *NamedType
	valueType *NamedType
}

// ContextOption configures a Context.
type ContextOption func(*Context)

// WithObserver attaches a resolution observer to the context. Type
// parameters declared in the context, and wrappers retargeted into it,
// report through it.
func WithObserver(o Observer) ContextOption {
	return func(c *Context) { c.observer = o }
}

// NewContext creates a context with its Object and ValueType special types.
// A nil version is treated as 0.0.0.
func NewContext(name string, version *semver.Version, opts ...ContextOption) *Context {
	if version == nil {
		version = semver.MustParse("0.0.0")
	}
	c := &Context{
		id:      uuid.New(),
		name:    name,
		version: version,
		types:   make(map[string]*NamedType),
	}
	for _, opt := range opts {
		opt(c)
	}

	c.object = c.declare(ObjectTypeName, TypeKindClass, nil)
	c.valueType = c.declare(ValueTypeTypeName, TypeKindClass, c.object)
	return c
}

func (c *Context) ID() uuid.UUID            { return c.id }
func (c *Context) Name() string             { return c.name }
func (c *Context) Kind() SymbolKind         { return SymbolKindContext }
func (c *Context) ContainingSymbol() Symbol { return nil }

// Version returns the semantic version of the context.
func (c *Context) Version() *semver.Version { return c.version }

// Object returns the root class of the context.
func (c *Context) Object() *NamedType { return c.object }

// ValueType returns the base class of all structs in the context.
func (c *Context) ValueType() *NamedType { return c.valueType }

// Observer returns the attached observer, never nil.
func (c *Context) Observer() Observer {
	if c == nil || c.observer == nil {
		return nopObserver{}
	}
	return c.observer
}

// String returns name@version.
func (c *Context) String() string {
	return fmt.Sprintf("%s@%s", c.name, c.version)
}

// SameIdentity reports whether c and other have the same name and version.
func (c *Context) SameIdentity(other *Context) bool {
	return other != nil && c.name == other.name && c.version.Equal(other.version)
}

// DeclareType declares a named type. Classes default to Object as their
// base class and structs to ValueType. Redeclaring a name returns the
// existing type.
func (c *Context) DeclareType(name string, kind TypeKind) *NamedType {
	c.mu.RLock()
	existing, ok := c.types[name]
	c.mu.RUnlock()
	if ok {
		return existing
	}

	var base *NamedType
	switch kind {
	case TypeKindClass:
		base = c.object
	case TypeKindStruct:
		base = c.valueType
	}
	return c.declare(name, kind, base)
}

func (c *Context) declare(name string, kind TypeKind, base *NamedType) *NamedType {
	t := &NamedType{
		id:      uuid.New(),
		name:    name,
		kind:    kind,
		context: c,
		base:    base,
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if existing, ok := c.types[name]; ok {
		return existing
	}
	c.types[name] = t
	c.order = append(c.order, t)
	return t
}

// LookupType finds a type by name.
func (c *Context) LookupType(name string) (*NamedType, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	t, ok := c.types[name]
	return t, ok
}

// Types returns declared types in declaration order, special types first.
func (c *Context) Types() []*NamedType {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*NamedType, len(c.order))
	copy(out, c.order)
	return out
}

// TypeParameters returns every type parameter declared by the types
// and methods of the context, in declaration order.
func (c *Context) TypeParameters() []TypeParameter {
	var out []TypeParameter
	for _, t := range c.Types() {
		out = append(out, t.TypeParameters()...)
		for _, m := range t.Methods() {
			out = append(out, m.TypeParameters()...)
		}
	}
	return out
}
