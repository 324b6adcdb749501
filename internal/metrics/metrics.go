// Package metrics exports resolver activity as Prometheus counters.
package metrics

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/orizon-lang/tparams/internal/symbols"
)

const (
	namespace = "tparams"
	subsystem = "resolver"
)

// ResolverMetrics implements symbols.Observer.
type ResolverMetrics struct {
	// resolutions counts bounds computations.
	// Labels: source (canonical, wrapper_retarget, wrapper_reparent)
	resolutions *prometheus.CounterVec

	memoHits     prometheus.Counter
	publishRaces prometheus.Counter

	// conditions counts conditions where they are first detected.
	// Labels: kind (cycle, dangling_reference, conflicting_bases)
	conditions *prometheus.CounterVec
}

var _ symbols.Observer = (*ResolverMetrics)(nil)

// NewResolverMetrics registers the resolver counters on reg.
func NewResolverMetrics(reg prometheus.Registerer) *ResolverMetrics {
	factory := promauto.With(reg)
	return &ResolverMetrics{
		resolutions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "resolutions_total",
			Help:      "Constraint resolutions computed rather than read from the memo",
		}, []string{"source"}),
		memoHits: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "memo_hits_total",
			Help:      "Constraint queries answered from the memo",
		}),
		publishRaces: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "publish_races_total",
			Help:      "Computed resolutions discarded because a concurrent one was published first",
		}),
		conditions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "conditions_total",
			Help:      "Resolution conditions by kind",
		}, []string{"kind"}),
	}
}

func (m *ResolverMetrics) Resolved(source string) { m.resolutions.WithLabelValues(source).Inc() }
func (m *ResolverMetrics) MemoHit()               { m.memoHits.Inc() }
func (m *ResolverMetrics) PublishRace()           { m.publishRaces.Inc() }

func (m *ResolverMetrics) Condition(kind symbols.ConditionKind) {
	m.conditions.WithLabelValues(kind.String()).Inc()
}

// WriteSummary writes every counter gathered from g as "name{labels} value"
// lines, sorted by name.
func WriteSummary(w io.Writer, g prometheus.Gatherer) error {
	families, err := g.Gather()
	if err != nil {
		return fmt.Errorf("gather metrics: %w", err)
	}

	var lines []string
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			if m.GetCounter() == nil {
				continue
			}
			var labels []string
			for _, lp := range m.GetLabel() {
				labels = append(labels, fmt.Sprintf("%s=%q", lp.GetName(), lp.GetValue()))
			}
			name := mf.GetName()
			if len(labels) > 0 {
				name += "{" + strings.Join(labels, ",") + "}"
			}
			lines = append(lines, fmt.Sprintf("%s %g", name, m.GetCounter().GetValue()))
		}
	}
	sort.Strings(lines)

	for _, l := range lines {
		if _, err := fmt.Fprintln(w, l); err != nil {
			return err
		}
	}
	return nil
}
