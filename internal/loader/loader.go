package loader

import (
	"fmt"
	"log/slog"
	"os"

	semver "github.com/Masterminds/semver/v3"

	"github.com/orizon-lang/tparams/internal/errors"
	"github.com/orizon-lang/tparams/internal/position"
	"github.com/orizon-lang/tparams/internal/retarget"
	"github.com/orizon-lang/tparams/internal/symbols"
)

// Options configures graph construction.
type Options struct {
	// Observer is attached to every context of the graph.
	Observer symbols.Observer
	Logger   *slog.Logger
}

// Graph is a built symbol graph.
type Graph struct {
	Contexts    []*symbols.Context
	Retargeters []*retarget.Retargeter
	Containers  []*symbols.SynthesizedContainer

	// Params lists the declared type parameters of every context in
	// declaration order, followed by the retargeted and then the
	// re-parented ones.
	Params []symbols.TypeParameter
}

// Load reads and builds the graph at path.
func Load(path string, opts Options) (*Graph, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read symbol graph: %w", err)
	}
	g, err := Parse(data, opts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return g, nil
}

// Parse decodes and builds a graph from YAML.
func Parse(data []byte, opts Options) (*Graph, error) {
	doc, err := Decode(data)
	if err != nil {
		return nil, err
	}
	return Build(doc, opts)
}

// Build constructs the graph described by doc.
func Build(doc *Document, opts Options) (*Graph, error) {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	b := &builder{opts: opts, graph: &Graph{}}

	for i := range doc.Contexts {
		if err := b.declareContext(&doc.Contexts[i]); err != nil {
			return nil, err
		}
	}
	for i := range doc.Contexts {
		if err := b.populate(&doc.Contexts[i], b.graph.Contexts[i]); err != nil {
			return nil, err
		}
	}
	for _, ctx := range b.graph.Contexts {
		b.graph.Params = append(b.graph.Params, ctx.TypeParameters()...)
	}
	for _, req := range doc.Retarget {
		if err := b.retarget(req); err != nil {
			return nil, err
		}
	}
	for _, req := range doc.Specialize {
		if err := b.specialize(req); err != nil {
			return nil, err
		}
	}

	opts.Logger.Debug("symbol graph built",
		slog.Int("contexts", len(b.graph.Contexts)),
		slog.Int("parameters", len(b.graph.Params)))
	return b.graph, nil
}

// Context finds a context by reference. ref is name@constraint where the
// constraint is a semver constraint; the highest matching version wins.
func (g *Graph) Context(ref string) (*symbols.Context, error) {
	name, constraint, err := parseRef(ref)
	if err != nil {
		return nil, err
	}
	var best *symbols.Context
	for _, ctx := range g.Contexts {
		if ctx.Name() != name || !constraint.Check(ctx.Version()) {
			continue
		}
		if best == nil || ctx.Version().GreaterThan(best.Version()) {
			best = ctx
		}
	}
	if best == nil {
		return nil, errors.InvalidInput("UNKNOWN_CONTEXT", "no context matches %s", ref)
	}
	return best, nil
}

func parseRef(ref string) (string, *semver.Constraints, error) {
	at := -1
	for i := len(ref) - 1; i >= 0; i-- {
		if ref[i] == '@' {
			at = i
			break
		}
	}
	if at <= 0 || at == len(ref)-1 {
		return "", nil, errors.InvalidInput("BAD_CONTEXT_REF", "context reference %q is not name@version", ref)
	}
	c, err := semver.NewConstraint(ref[at+1:])
	if err != nil {
		return "", nil, errors.InvalidInput("BAD_CONTEXT_REF", "context reference %q: %v", ref, err)
	}
	return ref[:at], c, nil
}

type builder struct {
	opts  Options
	graph *Graph
}

func (b *builder) declareContext(doc *ContextDoc) error {
	version, err := semver.NewVersion(doc.Version)
	if err != nil {
		return errors.InvalidInput("BAD_VERSION", "context %s: %v", doc.Name, err)
	}
	for _, existing := range b.graph.Contexts {
		if existing.Name() == doc.Name && existing.Version().Equal(version) {
			return errors.InvalidInput("DUPLICATE_CONTEXT", "context %s@%s declared twice", doc.Name, version)
		}
	}

	var copts []symbols.ContextOption
	if b.opts.Observer != nil {
		copts = append(copts, symbols.WithObserver(b.opts.Observer))
	}
	ctx := symbols.NewContext(doc.Name, version, copts...)

	for _, td := range doc.Types {
		if _, ok := ctx.LookupType(td.Name); ok {
			return errors.InvalidInput("DUPLICATE_TYPE", "%s: type %s declared twice", ctx, td.Name)
		}
		ctx.DeclareType(td.Name, typeKind(td.Kind))
	}
	b.graph.Contexts = append(b.graph.Contexts, ctx)
	return nil
}

func typeKind(kind string) symbols.TypeKind {
	switch kind {
	case "interface":
		return symbols.TypeKindInterface
	case "struct":
		return symbols.TypeKindStruct
	default:
		return symbols.TypeKindClass
	}
}

// populate fills in bases, interfaces, type parameters and constraints.
// Every type parameter of the context is declared before any constraint
// is bound so constraints can name parameters declared later.
func (b *builder) populate(doc *ContextDoc, ctx *symbols.Context) error {
	type pending struct {
		param *symbols.SourceTypeParameter
		doc   *TypeParamDoc
		scope []symbols.TypeParameter
	}
	var all []pending

	declare := func(docs []TypeParamDoc, add func(symbols.TypeParameterSpec) *symbols.SourceTypeParameter, outer []symbols.TypeParameter) ([]symbols.TypeParameter, error) {
		var own []symbols.TypeParameter
		seen := map[string]bool{}
		for i := range docs {
			pd := &docs[i]
			if seen[pd.Name] {
				return nil, errors.InvalidInput("DUPLICATE_TYPE_PARAM", "%s: type parameter %s declared twice", ctx, pd.Name)
			}
			seen[pd.Name] = true
			spec, err := b.spec(ctx, pd)
			if err != nil {
				return nil, err
			}
			p := add(spec)
			own = append(own, p)
			all = append(all, pending{param: p, doc: pd})
		}
		// Method parameters shadow type parameters of the owner.
		scope := append(append([]symbols.TypeParameter{}, own...), outer...)
		for i := len(all) - len(own); i < len(all); i++ {
			all[i].scope = scope
		}
		return own, nil
	}

	for _, td := range doc.Types {
		t, _ := ctx.LookupType(td.Name)
		if err := b.linkType(ctx, t, td); err != nil {
			return err
		}
		own, err := declare(td.TypeParams, t.AddTypeParameter, nil)
		if err != nil {
			return err
		}
		for _, md := range td.Methods {
			if _, ok := t.LookupMethod(md.Name); ok {
				return errors.InvalidInput("DUPLICATE_METHOD", "%s: method %s.%s declared twice", ctx, t.Name(), md.Name)
			}
			m := t.DeclareMethod(md.Name)
			if _, err := declare(md.TypeParams, m.AddTypeParameter, own); err != nil {
				return err
			}
		}
	}

	for _, p := range all {
		constraints := make([]symbols.Type, 0, len(p.doc.Constraints))
		for _, text := range p.doc.Constraints {
			c, err := b.resolve(ctx, text, p.scope)
			if err != nil {
				return fmt.Errorf("%s: constraint of %s: %w", ctx, symbols.QualifiedName(p.param), err)
			}
			constraints = append(constraints, c)
		}
		p.param.SetConstraints(constraints...)
	}
	return nil
}

func (b *builder) linkType(ctx *symbols.Context, t *symbols.NamedType, td TypeDoc) error {
	if td.Base != "" {
		base, ok := ctx.LookupType(td.Base)
		if !ok || base.TypeKind() != symbols.TypeKindClass || t.TypeKind() == symbols.TypeKindInterface {
			return errors.InvalidInput("BAD_BASE", "%s: %s cannot derive from %s", ctx, td.Name, td.Base)
		}
		if base.DerivesFrom(t) {
			return errors.InvalidInput("BAD_BASE", "%s: inheritance cycle through %s", ctx, td.Name)
		}
		t.SetBase(base)
	}
	for _, name := range td.Interfaces {
		iface, ok := ctx.LookupType(name)
		if !ok || iface.TypeKind() != symbols.TypeKindInterface {
			return errors.InvalidInput("BAD_INTERFACE", "%s: %s is not an interface", ctx, name)
		}
		t.AddInterface(iface)
	}
	return nil
}

func (b *builder) spec(ctx *symbols.Context, pd *TypeParamDoc) (symbols.TypeParameterSpec, error) {
	variance, _ := symbols.ParseVariance(pd.Variance)
	spec := symbols.TypeParameterSpec{
		Name:          pd.Name,
		Variance:      variance,
		ReferenceType: pd.ReferenceType,
		ValueType:     pd.ValueType,
		Constructor:   pd.Constructor,
		Implicit:      pd.Implicit,
		Documentation: pd.Doc,
	}
	for _, loc := range pd.Locations {
		span, err := position.ParseSpan(loc)
		if err != nil {
			return spec, errors.InvalidInput("BAD_LOCATION", "%s: type parameter %s: %v", ctx, pd.Name, err)
		}
		spec.Locations = append(spec.Locations, span)
	}
	if pd.Syntax != "" {
		spec.Syntax = []symbols.SyntaxReference{{Span: position.First(spec.Locations), Text: pd.Syntax}}
	}
	for _, ad := range pd.Attributes {
		attr := symbols.Attribute{Name: ad.Name, Args: ad.Args}
		if cls, ok := ctx.LookupType(ad.Name); ok {
			attr.Class = cls
		}
		spec.Attributes = append(spec.Attributes, attr)
	}
	return spec, nil
}

// resolve binds a constraint in scope. Names that match nothing become
// dangling references rather than errors.
func (b *builder) resolve(ctx *symbols.Context, text string, scope []symbols.TypeParameter) (symbols.Type, error) {
	e, err := parseTypeExpr(text)
	if err != nil {
		return nil, errors.InvalidInput("BAD_TYPE", "%v", err)
	}
	return b.bind(ctx, e, scope)
}

func (b *builder) bind(ctx *symbols.Context, e typeExpr, scope []symbols.TypeParameter) (symbols.Type, error) {
	if len(e.args) == 0 {
		for _, tp := range scope {
			if tp.Name() == e.name {
				return tp, nil
			}
		}
	}
	def, ok := ctx.LookupType(e.name)
	if !ok {
		b.opts.Logger.Debug("constraint names an unknown type",
			slog.String("context", ctx.String()), slog.String("type", e.String()))
		return symbols.Unresolved(e.String()), nil
	}
	if len(def.TypeParameters()) != len(e.args) {
		return nil, errors.InvalidInput("ARITY", "%s takes %d type arguments, got %d in %s",
			def.Name(), len(def.TypeParameters()), len(e.args), e)
	}
	if len(e.args) == 0 {
		return def, nil
	}
	args := make([]symbols.Type, len(e.args))
	for i, a := range e.args {
		t, err := b.bind(ctx, a, scope)
		if err != nil {
			return nil, err
		}
		args[i] = t
	}
	return def.Construct(args...), nil
}

func (b *builder) retarget(req RetargetDoc) error {
	from, err := b.graph.Context(req.From)
	if err != nil {
		return err
	}
	to, err := b.graph.Context(req.To)
	if err != nil {
		return err
	}
	r, err := retarget.New(from, to, retarget.WithLogger(b.opts.Logger))
	if err != nil {
		return err
	}
	b.graph.Retargeters = append(b.graph.Retargeters, r)

	selected := map[string]bool{}
	for _, name := range req.Types {
		if _, ok := from.LookupType(name); !ok {
			return errors.InvalidInput("UNKNOWN_TYPE", "retarget %s: no type %s", from, name)
		}
		selected[name] = true
	}
	for _, t := range from.Types() {
		if len(selected) > 0 && !selected[t.Name()] {
			continue
		}
		b.graph.Params = append(b.graph.Params, r.TypeParameters(t)...)
		for _, m := range t.Methods() {
			b.graph.Params = append(b.graph.Params, r.TypeParameters(m)...)
		}
	}
	b.opts.Logger.Info("retargeted context",
		slog.String("from", from.String()),
		slog.String("to", to.String()),
		slog.Int("wrappers", r.Len()))
	return nil
}

func (b *builder) specialize(req SpecializeDoc) error {
	ctx, err := b.graph.Context(req.Context)
	if err != nil {
		return err
	}
	t, ok := ctx.LookupType(req.Type)
	if !ok {
		return errors.InvalidInput("UNKNOWN_TYPE", "specialize %s: no type %s", ctx, req.Type)
	}
	var generic symbols.Generic = t
	if req.Method != "" {
		m, ok := t.LookupMethod(req.Method)
		if !ok {
			return errors.InvalidInput("UNKNOWN_METHOD", "specialize %s: no method %s.%s", ctx, req.Type, req.Method)
		}
		generic = m
	}
	if len(generic.TypeParameters()) == 0 {
		return errors.InvalidInput("NOT_GENERIC", "specialize %s: %s has no type parameters", ctx, symbols.QualifiedName(generic))
	}

	prefix := req.Prefix
	if prefix == "" {
		prefix = generic.Name()
	}
	c := symbols.NewSynthesizedContainer(ctx, prefix, generic)
	b.graph.Containers = append(b.graph.Containers, c)
	b.graph.Params = append(b.graph.Params, c.TypeParameters()...)
	return nil
}
