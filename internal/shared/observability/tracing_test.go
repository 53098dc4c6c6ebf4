package observability

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestSetupTracing_DisabledIsNoop(t *testing.T) {
	shutdown, err := SetupTracing(context.Background(), TracingConfig{Enabled: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("unexpected shutdown error: %v", err)
	}

	_, span := Tracer.Start(context.Background(), "noop")
	span.End()
}

func TestMetrics_IssueCounter(t *testing.T) {
	before := testutil.ToFloat64(IssuesTotal.WithLabelValues("security", "high"))
	IssuesTotal.WithLabelValues("security", "high").Add(2)
	after := testutil.ToFloat64(IssuesTotal.WithLabelValues("security", "high"))
	if after-before != 2 {
		t.Fatalf("expected counter to grow by 2, got %v", after-before)
	}
}
