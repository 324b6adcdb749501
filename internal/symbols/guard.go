package symbols

import "github.com/google/uuid"

// guardIndexStride is how often a Guard carries a lookup index. Between
// indexed guards membership is found by walking the parent links.
const guardIndexStride = 8

// Guard is the trace of type parameters whose bounds are being resolved
// in one resolution chain. It is immutable: Extend returns a new Guard
// and leaves the receiver untouched, so chains running concurrently
// never share mutable state. The nil *Guard is the empty guard.
type Guard struct {
	parent *Guard
	param  TypeParameter
	depth  int
	// index covers this guard and all its ancestors. It is set on every
	// guardIndexStride-th guard only.
	index map[uuid.UUID]int
}

// indexOf returns the position of id in the trace. At most
// guardIndexStride links are walked before an index answers.
func (g *Guard) indexOf(id uuid.UUID) (int, bool) {
	for cur := g; cur != nil; cur = cur.parent {
		if cur.index != nil {
			i, ok := cur.index[id]
			return i, ok
		}
		if cur.param.ID() == id {
			return cur.depth - 1, true
		}
	}
	return 0, false
}

// Contains reports whether id is already being resolved in this chain.
func (g *Guard) Contains(id uuid.UUID) bool {
	_, ok := g.indexOf(id)
	return ok
}

// Len returns the number of parameters in the trace.
func (g *Guard) Len() int {
	if g == nil {
		return 0
	}
	return g.depth
}

// Extend returns a guard with p appended. If p is already present the
// receiver is returned with ok false; that is how callers detect a cycle.
func (g *Guard) Extend(p TypeParameter) (next *Guard, ok bool) {
	if g.Contains(p.ID()) {
		return g, false
	}

	next = &Guard{parent: g, param: p, depth: g.Len() + 1}
	if next.depth%guardIndexStride == 0 {
		index := make(map[uuid.UUID]int, next.depth)
		for cur := next; cur != nil; cur = cur.parent {
			if cur.index != nil {
				for k, v := range cur.index {
					index[k] = v
				}
				break
			}
			index[cur.param.ID()] = cur.depth - 1
		}
		next.index = index
	}
	return next, true
}

// Path returns the trace, outermost first.
func (g *Guard) Path() []TypeParameter {
	out := make([]TypeParameter, g.Len())
	for cur := g; cur != nil; cur = cur.parent {
		out[cur.depth-1] = cur.param
	}
	return out
}

// From returns the suffix of the trace starting at id, or nil when id
// is absent. When a chain reaches id again, the suffix is the cycle.
func (g *Guard) From(id uuid.UUID) []TypeParameter {
	i, ok := g.indexOf(id)
	if !ok {
		return nil
	}
	return g.Path()[i:]
}
