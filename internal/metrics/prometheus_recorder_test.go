package metrics

import (
	"testing"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

func TestPrometheusRecorder(t *testing.T) {
	reg := prom.NewRegistry()
	pr := NewPrometheusRecorder(reg)
	pr.IncEventReceived("pull_request")
	pr.IncEventIgnored("push", "branch_filter")
	pr.IncEventStored("pull_request")
	pr.IncNotification(ResultSuccess)
	pr.ObserveNotifyDuration(150 * time.Millisecond)
	pr.IncRepoOperation("merge", true)
	pr.ObserveRepoOperationDuration("merge", 500*time.Millisecond)
	// Basic scrape to ensure metrics encode without panic
	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	if len(mfs) == 0 {
		t.Fatalf("expected metrics, got none")
	}
}

func TestNoopRecorderIsSafe(t *testing.T) {
	var r Recorder = NoopRecorder{}
	r.IncEventReceived("push")
	r.IncEventIgnored("push", "branch_filter")
	r.IncEventStored("push")
	r.IncNotification(ResultFailure)
	r.ObserveNotifyDuration(time.Second)
	r.IncRepoOperation("close", false)
	r.ObserveRepoOperationDuration("close", time.Second)
}
