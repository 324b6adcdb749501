package symbols

// Observer is notified of resolver activity. Implementations must be
// safe for concurrent use.
type Observer interface {
	// Resolved is called when bounds are computed rather than read from
	// the memo slot. source is "canonical" or "wrapper_<family>".
	Resolved(source string)
	MemoHit()
	// PublishRace is called when a computed result lost the publish to
	// a concurrent computation and was discarded.
	PublishRace()
	// Condition is called where a condition is first detected, not for
	// each caller it propagates to.
	Condition(kind ConditionKind)
}

type nopObserver struct{}

func (nopObserver) Resolved(string)         {}
func (nopObserver) MemoHit()                {}
func (nopObserver) PublishRace()            {}
func (nopObserver) Condition(ConditionKind) {}
