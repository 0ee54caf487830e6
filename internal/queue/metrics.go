package queue

import "github.com/prometheus/client_golang/prometheus"

// Collectors are labelled by task kind; processed outcomes are ok, retry and dead.
var (
	QueueDepth = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "resto",
		Subsystem: "queue",
		Name:      "ready_tasks",
		Help:      "Tasks waiting in the ready set, sampled by the worker and the stats endpoint.",
	}, []string{"kind"})

	QueueProcessedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "resto",
		Subsystem: "queue",
		Name:      "processed_total",
		Help:      "Task deliveries by outcome.",
	}, []string{"kind", "status"})

	QueueDLQSize = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "resto",
		Subsystem: "queue",
		Name:      "dead_tasks",
		Help:      "Tasks parked in the dead-letter table.",
	}, []string{"kind"})
)

func init() {
	prometheus.MustRegister(QueueDepth, QueueProcessedTotal, QueueDLQSize)
}
