package symbols

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const goroutines = 32

// fanOut runs fn on n goroutines released together.
func fanOut(n int, fn func(i int)) {
	start := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			fn(i)
		}(i)
	}
	close(start)
	wg.Wait()
}

func TestConcurrentWrapperBoundsConverge(t *testing.T) {
	obs := &countingObserver{}
	src := newAnimals("1.0.0")
	dst := newAnimals("2.0.0", WithObserver(obs))
	box := src.ctx.DeclareType("Box", TypeKindClass)
	dst.ctx.DeclareType("Box", TypeKindClass)
	tp := box.AddTypeParameter(TypeParameterSpec{Name: "T"}).SetConstraints(src.dog, src.disposable)

	w := newNameMapper(src.ctx, dst.ctx).param(tp).(*Wrapper)

	results := make([]*Bounds, goroutines)
	fanOut(goroutines, func(i int) { results[i] = w.Bounds(nil) })

	stored := w.boundsSlot().load()
	require.NotNil(t, stored)
	for _, b := range results {
		assert.Same(t, stored, b)
	}
	assert.Same(t, dst.dog, stored.EffectiveBaseClass)

	resolved, hits, races := obs.resolved.Load(), obs.hits.Load(), obs.races.Load()
	assert.GreaterOrEqual(t, resolved, int64(1))
	assert.Equal(t, int64(goroutines), resolved+hits)
	assert.Equal(t, resolved-1, races)
}

func TestConcurrentCycleResolution(t *testing.T) {
	src := newAnimals("1.0.0")
	dst := newAnimals("2.0.0")
	pair := src.ctx.DeclareType("Pair", TypeKindClass)
	dst.ctx.DeclareType("Pair", TypeKindClass)
	tp := pair.AddTypeParameter(TypeParameterSpec{Name: "T"})
	up := pair.AddTypeParameter(TypeParameterSpec{Name: "U"})
	vp := pair.AddTypeParameter(TypeParameterSpec{Name: "V"})
	tp.SetConstraints(up)
	up.SetConstraints(tp, src.disposable)
	vp.SetConstraints(tp, src.dog)

	m := newNameMapper(src.ctx, dst.ctx)
	params := []TypeParameter{tp, up, vp, m.param(tp), m.param(up), m.param(vp)}

	results := make([]*Bounds, goroutines)
	fanOut(goroutines, func(i int) { results[i] = params[i%len(params)].Bounds(nil) })

	keys := map[int]string{}
	for i, b := range results {
		p := i % len(params)
		cycles := conditionsOf(b, ConditionCycle)
		require.Len(t, cycles, 1, "parameter %s", params[p].Name())
		assert.Equal(t, params[p].Name() != "V", b.InCycle, "parameter %s", params[p].Name())
		assert.Equal(t, []string{"T", "U"}, names(cycles[0].Members))

		// Canonical and retargeted cycles are different cycles but each
		// must be reported identically from every entry point.
		family := p / 3
		if k, ok := keys[family]; ok {
			assert.Equal(t, k, cycles[0].Key())
		} else {
			keys[family] = cycles[0].Key()
		}
	}
	assert.NotEqual(t, keys[0], keys[1])

	for _, p := range params {
		again := p.Bounds(nil)
		if p.Name() == "V" {
			assert.Equal(t, []string{"Dog"}, names(again.ConstraintTypes))
		}
	}
}
