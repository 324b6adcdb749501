// Package typechecker runs the constraint queries downstream consumers
// make against type parameters and turns resolution conditions into
// diagnostics.
package typechecker

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/orizon-lang/tparams/internal/diagnostic"
	"github.com/orizon-lang/tparams/internal/position"
	"github.com/orizon-lang/tparams/internal/symbols"
)

// Summary is the resolved view of one type parameter.
type Summary struct {
	Parameter          symbols.TypeParameter `json:"-"`
	Name               string                `json:"name"`
	Owner              string                `json:"owner"`
	Context            string                `json:"context"`
	Source             string                `json:"source"`
	Ordinal            int                   `json:"ordinal"`
	Kind               string                `json:"kind"`
	Variance           string                `json:"variance"`
	ConstraintTypes    []string              `json:"constraint_types"`
	Interfaces         []string              `json:"interfaces"`
	EffectiveBaseClass string                `json:"effective_base_class"`
	DeducedBaseType    string                `json:"deduced_base_type"`
	InCycle            bool                  `json:"in_cycle"`
	Conditions         []string              `json:"conditions,omitempty"`
}

// CheckerConfig contains checker configuration.
type CheckerConfig struct {
	// Workers bounds the number of parameters resolved in parallel.
	// Zero means GOMAXPROCS.
	Workers int
	Logger  *slog.Logger
}

// ConstraintChecker resolves type parameters in parallel and reports
// the conditions found to a diagnostic sink.
type ConstraintChecker struct {
	sink   diagnostic.Sink
	config CheckerConfig
}

// NewConstraintChecker creates a checker reporting to sink.
func NewConstraintChecker(sink diagnostic.Sink, config CheckerConfig) *ConstraintChecker {
	if config.Workers <= 0 {
		config.Workers = runtime.GOMAXPROCS(0)
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	return &ConstraintChecker{sink: sink, config: config}
}

// Check queries every facet of params and returns their summaries in
// input order. The parameters may be any mix of declared and wrapped
// parameters. Check stops scheduling work once ctx is done.
func (c *ConstraintChecker) Check(ctx context.Context, params []symbols.TypeParameter) ([]Summary, error) {
	summaries := make([]Summary, len(params))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.config.Workers)
	for i, tp := range params {
		if err := gctx.Err(); err != nil {
			break
		}
		i, tp := i, tp
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			summaries[i] = c.checkOne(tp)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("constraint check: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("constraint check: %w", err)
	}

	c.config.Logger.Debug("constraint check finished", slog.Int("parameters", len(params)))
	return summaries, nil
}

func (c *ConstraintChecker) checkOne(tp symbols.TypeParameter) Summary {
	tp.EnsureAllConstraintsResolved()

	// The facets are queried one by one, as a consumer would; they all
	// come from the same memoized resolution.
	constraintTypes := tp.ConstraintTypes(nil)
	interfaces := tp.Interfaces(nil)
	effective := tp.EffectiveBaseClass(nil)
	deduced := tp.DeducedBaseType(nil)
	bounds := tp.Bounds(nil)

	s := Summary{
		Parameter:          tp,
		Name:               tp.Name(),
		Owner:              symbols.QualifiedName(tp.ContainingSymbol()),
		Context:            tp.DeclaringContext().String(),
		Source:             Source(tp),
		Ordinal:            tp.Ordinal(),
		Kind:               tp.ParameterKind().String(),
		Variance:           tp.Variance().String(),
		ConstraintTypes:    typeStrings(constraintTypes),
		Interfaces:         typeStrings(interfaces),
		EffectiveBaseClass: effective.String(),
		DeducedBaseType:    deduced.String(),
		InCycle:            bounds.InCycle,
	}

	for _, cond := range bounds.Conditions {
		s.Conditions = append(s.Conditions, cond.Kind.String())
		c.report(cond)
	}
	for _, attr := range tp.Attributes() {
		if attr.Unresolved {
			c.sink.AddDiagnostic(diagnostic.UnresolvedAttribute(
				firstLocation(tp), symbols.QualifiedName(tp), attr.Name, tp.DeclaringContext().String()))
		}
	}

	c.config.Logger.Debug("checked type parameter",
		slog.String("name", s.Owner+"::"+s.Name),
		slog.String("source", s.Source),
		slog.Bool("in_cycle", s.InCycle))
	return s
}

// report converts a condition to a diagnostic. A cycle is reported at
// its first member so every member's query yields the same diagnostic.
func (c *ConstraintChecker) report(cond symbols.Condition) {
	switch cond.Kind {
	case symbols.ConditionCycle:
		names := make([]string, len(cond.Members))
		for i, m := range cond.Members {
			names[i] = m.Name()
		}
		d := diagnostic.ConstraintCycle(firstLocation(cond.Members[0]), names)
		for _, m := range cond.Members[1:] {
			d.RelatedInfo = append(d.RelatedInfo, diagnostic.RelatedInformation{
				Message: fmt.Sprintf("'%s' is part of the cycle", m.Name()),
				Span:    firstLocation(m),
			})
		}
		c.sink.AddDiagnostic(d)

	case symbols.ConditionDangling:
		p := cond.Parameter
		c.sink.AddDiagnostic(diagnostic.DanglingConstraint(
			firstLocation(p), symbols.QualifiedName(p), cond.Reference, p.DeclaringContext().String()))

	case symbols.ConditionConflictingBases:
		p := cond.Parameter
		candidates := typeStrings(cond.Candidates)
		c.sink.AddDiagnostic(diagnostic.ConflictingBases(
			firstLocation(p), symbols.QualifiedName(p), candidates, candidates[0]))
	}
}

// Source names how tp is represented: "canonical" for a declared
// parameter, otherwise the wrapper's strategy family.
func Source(tp symbols.TypeParameter) string {
	if w, ok := tp.(*symbols.Wrapper); ok {
		return w.Strategy().Family().String()
	}
	return "canonical"
}

func firstLocation(tp symbols.TypeParameter) position.Span {
	return position.First(tp.Locations())
}

func typeStrings[T symbols.Type](ts []T) []string {
	out := make([]string, len(ts))
	for i, t := range ts {
		out[i] = t.String()
	}
	return out
}
