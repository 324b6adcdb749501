package retarget

import (
	"bytes"
	"log/slog"
	"sync"
	"testing"

	semver "github.com/Masterminds/semver/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	tperrors "github.com/orizon-lang/tparams/internal/errors"
	"github.com/orizon-lang/tparams/internal/symbols"
)

type fixture struct {
	src, dst                 *symbols.Context
	box, dstBox              *symbols.NamedType
	dog, dstDog              *symbols.NamedType
	disposable               *symbols.NamedType
	srcComparer, dstComparer *symbols.NamedType
	t, u                     *symbols.SourceTypeParameter
}

func declare(ctx *symbols.Context) (dog, disposable, comparer *symbols.NamedType) {
	animal := ctx.DeclareType("Animal", symbols.TypeKindClass)
	dog = ctx.DeclareType("Dog", symbols.TypeKindClass).SetBase(animal)
	disposable = ctx.DeclareType("IDisposable", symbols.TypeKindInterface)
	comparer = ctx.DeclareType("IComparer", symbols.TypeKindInterface)
	comparer.AddTypeParameter(symbols.TypeParameterSpec{Name: "T"})
	return dog, disposable, comparer
}

func newFixture() fixture {
	f := fixture{
		src: symbols.NewContext("Lib", semver.MustParse("1.0.0")),
		dst: symbols.NewContext("Lib", semver.MustParse("2.1.0")),
	}
	f.dog, f.disposable, f.srcComparer = declare(f.src)
	f.dstDog, _, f.dstComparer = declare(f.dst)

	f.box = f.src.DeclareType("Box", symbols.TypeKindClass)
	f.dstBox = f.dst.DeclareType("Box", symbols.TypeKindClass)
	f.t = f.box.AddTypeParameter(symbols.TypeParameterSpec{Name: "T"})
	f.u = f.box.AddTypeParameter(symbols.TypeParameterSpec{Name: "U"})
	f.t.SetConstraints(f.dog, f.srcComparer.Construct(f.u))
	f.u.SetConstraints(f.disposable)
	return f
}

func mustNew(t *testing.T, f fixture, opts ...Option) *Retargeter {
	t.Helper()
	r, err := New(f.src, f.dst, opts...)
	require.NoError(t, err)
	return r
}

func TestNewRejectsSameContext(t *testing.T) {
	f := newFixture()

	_, err := New(f.src, f.src)
	assert.ErrorIs(t, err, tperrors.ErrInvalidInput)

	twin := symbols.NewContext("Lib", semver.MustParse("1.0.0"))
	_, err = New(f.src, twin)
	assert.ErrorIs(t, err, tperrors.ErrInvalidInput)

	_, err = New(nil, f.dst)
	assert.ErrorIs(t, err, tperrors.ErrInvalidInput)
}

func TestTypeParameterDeduplicates(t *testing.T) {
	f := newFixture()
	r := mustNew(t, f)

	first := r.TypeParameter(f.t)
	assert.Same(t, first, r.TypeParameter(f.t))
	assert.Same(t, first, r.TypeParameter(first), "a wrapper of this retargeter maps to itself")
	assert.Equal(t, 1, r.Len())

	params := r.TypeParameters(f.box)
	require.Len(t, params, 2)
	assert.Same(t, first, params[0])
	assert.Equal(t, 2, r.Len())
}

func TestTypeParameterConcurrentDedupe(t *testing.T) {
	f := newFixture()
	r := mustNew(t, f)

	const n = 16
	got := make([]symbols.TypeParameter, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			got[i] = r.TypeParameter(f.u)
		}(i)
	}
	wg.Wait()

	for _, w := range got {
		assert.Same(t, got[0], w)
	}
	assert.Equal(t, 1, r.Len())
}

func TestTypeParameterFlattensChainedRetargeting(t *testing.T) {
	f := newFixture()
	mid := symbols.NewContext("Lib", semver.MustParse("1.5.0"))
	declare(mid)
	mid.DeclareType("Box", symbols.TypeKindClass)

	first, err := New(f.src, mid)
	require.NoError(t, err)
	second, err := New(mid, f.dst)
	require.NoError(t, err)

	w := second.TypeParameter(first.TypeParameter(f.t)).(*symbols.Wrapper)
	assert.Same(t, f.t, w.Underlying())
	assert.Same(t, f.dst, w.DeclaringContext())
	assert.Same(t, f.dstBox, w.ContainingSymbol())
	assert.Same(t, f.dstDog, w.EffectiveBaseClass(nil))
}

func TestMapTypeConstructed(t *testing.T) {
	f := newFixture()
	r := mustNew(t, f)

	mapped, ok := r.MapType(f.srcComparer.Construct(f.u)).(*symbols.NamedType)
	require.True(t, ok)
	assert.Same(t, f.dstComparer, mapped.Definition())
	require.Len(t, mapped.TypeArguments(), 1)
	assert.Same(t, r.TypeParameter(f.u), mapped.TypeArguments()[0])

	w := r.TypeParameter(f.t)
	assert.Equal(t, []string{"Dog", "IComparer<U>"}, typeNames(w.ConstraintTypes(nil)))
	assert.Same(t, f.dstDog, w.EffectiveBaseClass(nil))
}

func TestMapTypeMissingIsDangling(t *testing.T) {
	f := newFixture()
	f.src.DeclareType("Legacy", symbols.TypeKindClass)
	// Same name but a different kind is not an equivalent.
	f.src.DeclareType("Shape", symbols.TypeKindStruct)
	f.dst.DeclareType("Shape", symbols.TypeKindClass)
	r := mustNew(t, f)

	for _, name := range []string{"Legacy", "Shape"} {
		src, _ := f.src.LookupType(name)
		mapped := r.MapType(src)
		e, ok := mapped.(*symbols.ErrorType)
		require.True(t, ok, name)
		assert.Equal(t, symbols.ErrorKindDangling, e.ErrorKind())
		assert.Equal(t, name, e.Name())
	}
	assert.Same(t, f.dstDog, r.MapType(f.dstDog), "target types map to themselves")
	assert.Same(t, symbols.CycleMarker, r.MapType(symbols.CycleMarker))
}

func TestMapSymbol(t *testing.T) {
	f := newFixture()
	sort := f.box.DeclareMethod("Sort")
	dstSort := f.dstBox.DeclareMethod("Sort")
	f.box.DeclareMethod("Gone")
	r := mustNew(t, f)

	assert.Same(t, f.dst, r.MapSymbol(f.src))
	assert.Same(t, dstSort, r.MapSymbol(sort))
	assert.Same(t, f.dstBox, r.MapSymbol(f.box))

	gone, _ := f.box.LookupMethod("Gone")
	_, ok := r.MapSymbol(gone).(*symbols.ErrorType)
	assert.True(t, ok)

	assert.Nil(t, r.MapSymbol(nil))

	// Only the source context itself maps onto the target.
	other := symbols.NewContext("Lib", semver.MustParse("3.0.0"))
	assert.Same(t, other, r.MapSymbol(other))
	twin := symbols.NewContext("Lib", semver.MustParse("1.0.0"))
	assert.Same(t, f.dst, r.MapSymbol(twin))
}

func TestRetargetReparentedParameters(t *testing.T) {
	f := newFixture()
	pair := f.src.DeclareType("Pair", symbols.TypeKindClass)
	f.dst.DeclareType("Pair", symbols.TypeKindClass)
	tp := pair.AddTypeParameter(symbols.TypeParameterSpec{Name: "T"})
	up := pair.AddTypeParameter(symbols.TypeParameterSpec{Name: "U"}).SetConstraints(f.dog)
	tp.SetConstraints(up, f.srcComparer.Construct(up))

	spec := symbols.NewSynthesizedContainer(f.src, "Spec", pair)
	r := mustNew(t, f)

	wt := r.TypeParameter(spec.TypeParameters()[0])
	wu := r.TypeParameter(spec.TypeParameters()[1])

	owner, ok := wt.ContainingSymbol().(*symbols.SynthesizedContainer)
	require.True(t, ok)
	assert.Same(t, f.dst, owner.Context())
	assert.Same(t, f.dst, wt.DeclaringContext())
	assert.Equal(t, spec.Name(), owner.Name())
	assert.Same(t, spec, owner.Original())
	assert.Same(t, owner, r.MapSymbol(spec))
	assert.Same(t, owner, r.Container(spec))
	assert.Same(t, owner, wu.ContainingSymbol())
	assert.Equal(t, []symbols.TypeParameter{wt, wu}, owner.TypeParameters())

	// Sibling constraints point at the retargeted re-parented sibling.
	constraints := wt.ConstraintTypes(nil)
	require.Len(t, constraints, 2)
	assert.Same(t, wu, constraints[0])
	comparer, ok := constraints[1].(*symbols.NamedType)
	require.True(t, ok)
	assert.Same(t, f.dstComparer, comparer.Definition())
	assert.Same(t, wu, comparer.TypeArguments()[0])
	assert.Same(t, f.dstDog, wt.EffectiveBaseClass(nil))

	// The canonical parameters keep their own retargeted views.
	assert.NotSame(t, wu, r.TypeParameter(up))
	assert.Same(t, f.dst, r.TypeParameter(up).DeclaringContext())
}

func TestContextAttributeLoaderLogsMisses(t *testing.T) {
	f := newFixture()
	f.dst.DeclareType("KeepAttribute", symbols.TypeKindClass)
	owner := f.src.DeclareType("Holder", symbols.TypeKindClass)
	f.dst.DeclareType("Holder", symbols.TypeKindClass)
	tp := owner.AddTypeParameter(symbols.TypeParameterSpec{
		Name:       "T",
		Attributes: []symbols.Attribute{{Name: "KeepAttribute"}, {Name: "DropAttribute"}},
	})

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	r := mustNew(t, f, WithLogger(logger))

	attrs := r.TypeParameter(tp).Attributes()
	require.Len(t, attrs, 2)
	assert.False(t, attrs[0].Unresolved)
	assert.True(t, attrs[1].Unresolved)
	assert.Contains(t, buf.String(), "attribute=DropAttribute")
	assert.Contains(t, buf.String(), "target=Lib@2.1.0")
}

type stubLoader struct{ calls int }

func (s *stubLoader) LoadAttributes(_ *symbols.Context, attrs []symbols.Attribute) []symbols.Attribute {
	s.calls++
	return nil
}

func TestWithAttributeLoader(t *testing.T) {
	f := newFixture()
	loader := &stubLoader{}
	r := mustNew(t, f, WithAttributeLoader(loader))

	w := r.TypeParameter(f.t)
	assert.Nil(t, w.Attributes())
	w.Attributes()
	assert.Equal(t, 1, loader.calls, "attributes are loaded once per wrapper")
}

func typeNames(ts []symbols.Type) []string {
	out := make([]string, len(ts))
	for i, t := range ts {
		out[i] = t.String()
	}
	return out
}
