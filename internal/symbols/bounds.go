package symbols

import (
	"sort"
	"strings"

	"github.com/google/uuid"
)

// Bounds holds the constraint-derived facets of a type parameter.
// The four facets come out of one merge pass and are memoized together.
type Bounds struct {
	ConstraintTypes    []Type
	Interfaces         []*NamedType
	EffectiveBaseClass Type
	DeducedBaseType    Type

	// InCycle is set when the parameter is a member of a constraint
	// cycle; the facets then hold the cycle sentinel values.
	InCycle bool

	// Conditions raised while resolving this parameter or any
	// parameter its constraints reach.
	Conditions []Condition

	// A partial result of a cycle member whose cycle continues above it
	// in the resolution chain. low is the guard index of the outermost
	// parameter reached; members collects the cycle members seen so far.
	// Partial results are never memoized.
	partial bool
	low     int
	members []boundsSource
}

// Equal reports value equality of the facets and conditions.
func (b *Bounds) Equal(o *Bounds) bool {
	if b == nil || o == nil {
		return b == o
	}
	if b.InCycle != o.InCycle ||
		!IdenticalLists(b.ConstraintTypes, o.ConstraintTypes) ||
		!IdenticalLists(b.Interfaces, o.Interfaces) ||
		!Identical(b.EffectiveBaseClass, o.EffectiveBaseClass) ||
		!Identical(b.DeducedBaseType, o.DeducedBaseType) ||
		len(b.Conditions) != len(o.Conditions) {
		return false
	}
	for i := range b.Conditions {
		if b.Conditions[i].Key() != o.Conditions[i].Key() {
			return false
		}
	}
	return true
}

// ConditionKind classifies problems found during resolution.
type ConditionKind int

const (
	ConditionCycle ConditionKind = iota
	ConditionDangling
	ConditionConflictingBases
)

func (k ConditionKind) String() string {
	switch k {
	case ConditionCycle:
		return "cycle"
	case ConditionDangling:
		return "dangling_reference"
	case ConditionConflictingBases:
		return "conflicting_bases"
	default:
		return "unknown"
	}
}

// Condition is a non-fatal problem found during resolution. The
// resolver only signals conditions; reporting them is up to callers
// that know where the parameter was declared.
type Condition struct {
	Kind ConditionKind
	// Parameter whose constraint clauses raised the condition. For a
	// cycle this is Members[0].
	Parameter TypeParameter
	// Members of a cycle in constraint order, rotated to start at the
	// member with the smallest name so every entry point agrees.
	Members []TypeParameter
	// Reference is the unresolved name of a dangling reference.
	Reference string
	// Candidates are the unrelated base classes of a conflict.
	Candidates []*NamedType
}

// Key identifies a condition independently of where it was detected.
func (c Condition) Key() string {
	var sb strings.Builder
	sb.WriteString(c.Kind.String())
	switch c.Kind {
	case ConditionCycle:
		ids := make([]string, len(c.Members))
		for i, m := range c.Members {
			ids[i] = m.ID().String()
		}
		sort.Strings(ids)
		sb.WriteString(":" + strings.Join(ids, ","))
	case ConditionDangling:
		sb.WriteString(":" + c.Parameter.ID().String() + ":" + c.Reference)
	case ConditionConflictingBases:
		sb.WriteString(":" + c.Parameter.ID().String())
	}
	return sb.String()
}

// involves reports whether the cycle condition has id as a member.
func (c Condition) involves(p TypeParameter) bool {
	if c.Kind != ConditionCycle {
		return false
	}
	for _, m := range c.Members {
		if m.ID() == p.ID() {
			return true
		}
	}
	return false
}

func newCycleCondition(members []TypeParameter) Condition {
	start := 0
	for i, m := range members {
		if memberLess(m, members[start]) {
			start = i
		}
	}
	rotated := make([]TypeParameter, 0, len(members))
	rotated = append(rotated, members[start:]...)
	rotated = append(rotated, members[:start]...)
	return Condition{Kind: ConditionCycle, Parameter: rotated[0], Members: rotated}
}

func memberLess(a, b TypeParameter) bool {
	if a.Name() != b.Name() {
		return a.Name() < b.Name()
	}
	return a.ID().String() < b.ID().String()
}

// conditionSet accumulates conditions without duplicates, keeping the
// order they were first seen in.
type conditionSet struct {
	list []Condition
	seen map[string]struct{}
}

func (s *conditionSet) add(cs ...Condition) {
	for _, c := range cs {
		k := c.Key()
		if _, ok := s.seen[k]; ok {
			continue
		}
		if s.seen == nil {
			s.seen = make(map[string]struct{})
		}
		s.seen[k] = struct{}{}
		s.list = append(s.list, c)
	}
}

// boundsSource is implemented by every type parameter that resolves
// bounds from its own constraint clauses.
type boundsSource interface {
	TypeParameter
	boundsSlot() *lazy[Bounds]
	sourceLabel() string
}

// resolveBounds is the cycle-safe resolver shared by declared
// parameters and wrappers that recompute their constraints.
//
//  1. A memoized result is returned as is.
//  2. If p is already in g, the chain has come back to p: p and every
//     parameter after it in g form a cycle. A partial sentinel result is
//     returned with a Cycle condition.
//  3. Otherwise the constraints are resolved under g extended by p and
//     merged. A result that is not part of a cycle is published to the
//     memo slot. Cycle members are held back until the outermost member
//     of their component on the chain returns; it publishes one result,
//     carrying every condition found in the component, for all members.
func resolveBounds(p boundsSource, g *Guard) *Bounds {
	obs := p.DeclaringContext().Observer()

	if b := p.boundsSlot().load(); b != nil {
		obs.MemoHit()
		return b
	}

	inner, ok := g.Extend(p)
	if !ok {
		at, _ := g.indexOf(p.ID())
		cond := newCycleCondition(g.From(p.ID()))
		obs.Condition(ConditionCycle)
		b := cycleBounds([]Condition{cond})
		b.partial, b.low = true, at
		return b
	}

	obs.Resolved(p.sourceLabel())
	b := computeBounds(p, inner)

	if b.partial {
		if b.low < g.Len() {
			return b
		}
		return publishComponent(p, b)
	}

	winner, won := p.boundsSlot().publish(b)
	if !won {
		obs.PublishRace()
	}
	return winner
}

// publishComponent stores the merged result of a cycle component for
// every member and returns the one stored for root. Conditions are put
// in key order so every member, whichever entered first, holds the
// same list.
func publishComponent(root boundsSource, b *Bounds) *Bounds {
	conds := append([]Condition(nil), b.Conditions...)
	sort.SliceStable(conds, func(i, j int) bool { return conds[i].Key() < conds[j].Key() })
	merged := cycleBounds(conds)

	var out *Bounds
	for _, m := range b.members {
		winner, won := m.boundsSlot().publish(merged)
		if !won {
			m.DeclaringContext().Observer().PublishRace()
		}
		if m.ID() == root.ID() {
			out = winner
		}
	}
	return out
}

func cycleBounds(conds []Condition) *Bounds {
	return &Bounds{
		ConstraintTypes:    []Type{},
		Interfaces:         []*NamedType{},
		EffectiveBaseClass: CycleMarker,
		DeducedBaseType:    CycleMarker,
		InCycle:            true,
		Conditions:         conds,
	}
}

// computeBounds merges the constraint clauses of p. g already contains p.
func computeBounds(p boundsSource, g *Guard) *Bounds {
	obs := p.DeclaringContext().Observer()

	var (
		conds           conditionSet
		constraintTypes []Type
		interfaces      []*NamedType
		classes         []*NamedType
		deduced         []*NamedType
		inCycle         bool

		partial bool
		low     = g.Len() - 1
		members []boundsSource
		seen    = map[uuid.UUID]bool{}
	)
	addMember := func(m boundsSource) {
		if !seen[m.ID()] {
			seen[m.ID()] = true
			members = append(members, m)
		}
	}

	addInterface := func(i *NamedType) {
		if !containsType(interfaces, i) {
			interfaces = append(interfaces, i)
		}
	}
	addConstraint := func(t Type) {
		if !containsType(constraintTypes, t) {
			constraintTypes = append(constraintTypes, t)
		}
	}

	// Every clause is visited even after p is known to be cyclic so
	// that all cycles reachable from p are found in this chain.
	for _, c := range p.DeclaredConstraints() {
		switch t := c.(type) {
		case *ErrorType:
			if t.ErrorKind() == ErrorKindDangling {
				conds.add(Condition{Kind: ConditionDangling, Parameter: p, Reference: t.Name()})
				obs.Condition(ConditionDangling)
			}

		case TypeParameter:
			nested := t.Bounds(g)
			conds.add(nested.Conditions...)
			if nested.partial {
				// The chain below came back to p or to a parameter above
				// it, so p is on that cycle.
				inCycle, partial = true, true
				low = min(low, nested.low)
				for _, m := range nested.members {
					addMember(m)
				}
				continue
			}
			if nested.InCycle {
				for _, nc := range nested.Conditions {
					if nc.involves(p) {
						inCycle = true
					}
				}
				continue
			}
			addConstraint(t)
			for _, i := range nested.Interfaces {
				addInterface(i)
			}
			if nt, ok := nested.EffectiveBaseClass.(*NamedType); ok {
				classes = append(classes, nt)
			}
			if nt, ok := nested.DeducedBaseType.(*NamedType); ok {
				deduced = append(deduced, nt)
			}

		case *NamedType:
			addConstraint(t)
			switch t.TypeKind() {
			case TypeKindInterface:
				addInterface(t)
			case TypeKindClass:
				classes = append(classes, t)
				deduced = append(deduced, t)
			case TypeKindStruct:
				deduced = append(deduced, t)
			}
		}
	}

	if inCycle {
		b := cycleBounds(conds.list)
		if partial {
			addMember(p)
			b.partial, b.low, b.members = true, low, members
		}
		return b
	}

	fallback := p.DeclaringContext().Object()
	if p.HasValueTypeConstraint() {
		fallback = p.DeclaringContext().ValueType()
	}

	effective, conflict := mostDerived(classes)
	if len(conflict) > 0 {
		conds.add(Condition{Kind: ConditionConflictingBases, Parameter: p, Candidates: conflict})
		obs.Condition(ConditionConflictingBases)
	}
	if effective == nil {
		effective = fallback
	}

	deducedBase, _ := mostDerived(deduced)
	if deducedBase == nil {
		deducedBase = fallback
	}

	if constraintTypes == nil {
		constraintTypes = []Type{}
	}
	if interfaces == nil {
		interfaces = []*NamedType{}
	}

	return &Bounds{
		ConstraintTypes:    constraintTypes,
		Interfaces:         interfaces,
		EffectiveBaseClass: effective,
		DeducedBaseType:    deducedBase,
		Conditions:         conds.list,
	}
}

// mostDerived picks the candidate every other candidate is a base of.
// When several candidates are unrelated the choice is made by deepest
// inheritance chain, then by qualified name, and all unrelated
// candidates are returned as the conflict. The result never depends on
// the order of candidates.
func mostDerived(candidates []*NamedType) (*NamedType, []*NamedType) {
	var unique []*NamedType
	for _, c := range candidates {
		if !containsType(unique, c) {
			unique = append(unique, c)
		}
	}
	if len(unique) == 0 {
		return nil, nil
	}

	var maximal []*NamedType
	for _, c := range unique {
		dominated := false
		for _, d := range unique {
			if !Identical(c, d) && d.DerivesFrom(c) {
				dominated = true
				break
			}
		}
		if !dominated {
			maximal = append(maximal, c)
		}
	}

	sort.SliceStable(maximal, func(i, j int) bool {
		a, b := maximal[i], maximal[j]
		if da, db := a.depth(), b.depth(); da != db {
			return da > db
		}
		if qa, qb := typeSortKey(a), typeSortKey(b); qa != qb {
			return qa < qb
		}
		return a.Definition().ID().String() < b.Definition().ID().String()
	})

	if len(maximal) == 1 {
		return maximal[0], nil
	}
	return maximal[0], maximal
}

func typeSortKey(t *NamedType) string {
	return t.Context().String() + "::" + t.String()
}
