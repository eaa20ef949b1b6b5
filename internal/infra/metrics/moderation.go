package metrics

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(
		componentVerdictsTotal,
		aggregateTransitionsTotal,
		adminOverridesTotal,
		callbacksTotal,
		notificationsTotal,
	)
}

var (
	componentVerdictsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "moderation_component_verdicts_total",
			Help: "Component verdicts written, by component, status and source.",
		},
		[]string{"component", "status", "source"},
	)

	aggregateTransitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "moderation_aggregate_transitions_total",
			Help: "Aggregate status transitions, by new status.",
		},
		[]string{"status"},
	)

	adminOverridesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "moderation_admin_overrides_total",
			Help: "Admin overrides, by component and decision.",
		},
		[]string{"component", "decision"},
	)

	callbacksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "moderation_callbacks_total",
			Help: "Outbound result callbacks from the job runner.",
		},
		[]string{"kind", "result"}, // result: 'delivered', 'failed'
	)

	notificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "moderation_notifications_total",
			Help: "Owner notifications recorded, by aggregate status.",
		},
		[]string{"status"},
	)
)

func IncVerdict(component, status, source string) {
	if source == "" {
		source = "none"
	}
	componentVerdictsTotal.WithLabelValues(norm(component), norm(status), norm(source)).Inc()
}

func IncTransition(status string) {
	aggregateTransitionsTotal.WithLabelValues(norm(status)).Inc()
}

func IncOverride(component, decision string) {
	adminOverridesTotal.WithLabelValues(norm(component), norm(decision)).Inc()
}

func IncCallback(kind, result string) {
	callbacksTotal.WithLabelValues(norm(kind), norm(result)).Inc()
}

func IncNotification(status string) {
	notificationsTotal.WithLabelValues(norm(status)).Inc()
}

func norm(s string) string { return strings.ToLower(strings.TrimSpace(s)) }
