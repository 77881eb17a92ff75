package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "kovorka",
			Name:      "http_requests_total",
			Help:      "HTTP requests by endpoint.",
		},
		[]string{"endpoint"},
	)

	negotiations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "kovorka",
			Name:      "extension_negotiations_total",
			Help:      "Extension negotiations by winning tier.",
		},
		[]string{"outcome"},
	)

	availabilityConflicts = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "kovorka",
			Name:      "availability_conflicts_total",
			Help:      "Commits rejected by the authority as no longer available.",
		},
	)

	journalSyncRetries = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "kovorka",
			Name:      "journal_sync_retries_total",
			Help:      "Retried journal-to-sheet sync tasks.",
		},
	)
)

// Register registers Prometheus metrics. Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(httpRequests, negotiations, availabilityConflicts, journalSyncRetries)
	})
}

// IncHTTP increments the counter for an endpoint label.
func IncHTTP(endpoint string) {
	httpRequests.WithLabelValues(endpoint).Inc()
}

// IncNegotiation counts one negotiation by its winning tier.
func IncNegotiation(outcome string) {
	negotiations.WithLabelValues(outcome).Inc()
}

func IncAvailabilityConflict() {
	availabilityConflicts.Inc()
}

func IncJournalSyncRetry() {
	journalSyncRetries.Inc()
}
