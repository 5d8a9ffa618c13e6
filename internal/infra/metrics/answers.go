package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(answersTotal, answerStreamErrorsTotal) }

var answersTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "answers_total",
		Help: "Streaming answers served, labeled by response type.",
	},
	[]string{"response_type"}, // 'rag_with_sources', 'general_fallback', 'error_fallback'
)

var answerStreamErrorsTotal = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "answer_stream_errors_total",
		Help: "In-band error records emitted on answer streams.",
	},
)

func IncAnswer(responseType string) {
	answersTotal.WithLabelValues(norm(responseType)).Inc()
}

func IncAnswerStreamError() {
	answerStreamErrorsTotal.Inc()
}
