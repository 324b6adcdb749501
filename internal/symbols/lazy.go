package symbols

import "sync/atomic"

// lazy is a compute-once slot. The first published value wins; later
// publishers get the winner back and their own value is discarded.
// Values are never replaced once set.
type lazy[T any] struct {
	p atomic.Pointer[T]
}

func (l *lazy[T]) load() *T {
	return l.p.Load()
}

// publish stores v unless a value is already present. It returns the
// stored value and whether v was the one stored.
func (l *lazy[T]) publish(v *T) (*T, bool) {
	if l.p.CompareAndSwap(nil, v) {
		return v, true
	}
	return l.p.Load(), false
}

// get returns the stored value, computing and publishing it on first use.
// compute may run more than once under contention.
func (l *lazy[T]) get(compute func() T) T {
	if p := l.p.Load(); p != nil {
		return *p
	}
	v := compute()
	p, _ := l.publish(&v)
	return *p
}
