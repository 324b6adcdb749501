package symbols

import (
	"github.com/google/uuid"

	"github.com/orizon-lang/tparams/internal/errors"
)

// SynthesizedContainer is a compiler-generated generic construct, used
// when the type parameters of an existing construct are copied for a
// specialization. Its type parameters are re-parenting wrappers over
// the original ones, in ordinal order.
type SynthesizedContainer struct {
	id         uuid.UUID
	name       string
	context    *Context
	original   Generic
	typeParams []TypeParameter
}

// NewSynthesizedContainer creates a container in ctx named prefix plus a
// short unique suffix, re-parenting every type parameter of original.
// Parameters that are already re-parented are unwrapped first so the
// result stays one level deep.
func NewSynthesizedContainer(ctx *Context, prefix string, original Generic) *SynthesizedContainer {
	if original == nil {
		panic(errors.InvalidConstruction("NIL_ORIGINAL", "synthesized container %s has no original", prefix))
	}
	id := uuid.New()
	c := &SynthesizedContainer{
		id:       id,
		name:     prefix + "<" + id.String()[:8] + ">",
		context:  ctx,
		original: original,
	}

	strategy := Reparent(c)
	for _, tp := range original.TypeParameters() {
		if w, ok := tp.(*Wrapper); ok && w.Strategy().Family() == FamilyReparent {
			tp = w.Underlying()
		}
		c.typeParams = append(c.typeParams, Wrap(tp, strategy))
	}
	return c
}

// RetargetContainer returns the view of c inside target. params are the
// retargeted type parameters of c in ordinal order; their mapper must map
// c to the returned container.
func RetargetContainer(c *SynthesizedContainer, target *Context, params []TypeParameter) *SynthesizedContainer {
	return &SynthesizedContainer{
		id:         uuid.New(),
		name:       c.name,
		context:    target,
		original:   c,
		typeParams: params,
	}
}

func (c *SynthesizedContainer) ID() uuid.UUID                   { return c.id }
func (c *SynthesizedContainer) Name() string                    { return c.name }
func (c *SynthesizedContainer) Kind() SymbolKind                { return SymbolKindSynthesized }
func (c *SynthesizedContainer) ContainingSymbol() Symbol        { return c.context }
func (c *SynthesizedContainer) TypeParameters() []TypeParameter { return c.typeParams }

// Context returns the context the container lives in.
func (c *SynthesizedContainer) Context() *Context { return c.context }

// Original returns the construct whose parameters were copied.
func (c *SynthesizedContainer) Original() Generic { return c.original }
