package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(publishOutcomesTotal) }

var publishOutcomesTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "article_publish_outcomes_total",
		Help: "Per-article publish outcomes, labeled by result.",
	},
	[]string{"result"}, // 'ok', 'network', 'status', 'decode'
)

func IncPublishOutcome(result string) {
	publishOutcomesTotal.WithLabelValues(norm(result)).Inc()
}
