package metrics

import "time"

// ResultLabel enumerates delivery result categories for counters.
type ResultLabel string

const (
	ResultSuccess    ResultLabel = "success"
	ResultFailure    ResultLabel = "failure"
	ResultSuppressed ResultLabel = "suppressed"
)

// Recorder defines observability hooks for webhook ingestion and delivery
// metrics. Implementations may forward to Prometheus, OpenTelemetry, etc.
// All methods must be safe on the NoopRecorder (allowing optional injection).
type Recorder interface {
	IncEventReceived(eventType string)
	// IncEventIgnored takes a fixed reason code (event.Reason* constants),
	// never free-form text: label values must stay low-cardinality.
	IncEventIgnored(eventType string, reasonCode string)
	IncEventStored(eventType string)
	IncNotification(result ResultLabel)
	ObserveNotifyDuration(d time.Duration)
	IncRepoOperation(op string, success bool)
	ObserveRepoOperationDuration(op string, d time.Duration)
}

// NoopRecorder is a Recorder that does nothing (default when metrics not configured).
type NoopRecorder struct{}

func (NoopRecorder) IncEventReceived(string)                            {}
func (NoopRecorder) IncEventIgnored(string, string)                     {}
func (NoopRecorder) IncEventStored(string)                              {}
func (NoopRecorder) IncNotification(ResultLabel)                        {}
func (NoopRecorder) ObserveNotifyDuration(time.Duration)                {}
func (NoopRecorder) IncRepoOperation(string, bool)                      {}
func (NoopRecorder) ObserveRepoOperationDuration(string, time.Duration) {}
