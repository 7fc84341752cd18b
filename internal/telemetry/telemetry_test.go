package telemetry

import (
	"context"
	"testing"
	"time"
)

func TestInitWithoutEndpoint(t *testing.T) {
	shutdown, err := Init(context.Background(), "test", "")
	if err != nil {
		t.Fatalf("Init returned error: %v", err)
	}

	_, span := Tracer("telemetry-test").Start(context.Background(), "smoke")
	if !span.SpanContext().IsValid() {
		t.Fatalf("expected a recording span from the installed provider")
	}
	span.End()

	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown returned error: %v", err)
	}
}

func TestInitWithEndpoint(t *testing.T) {
	// The exporter connects lazily, so no collector is needed to build it.
	shutdown, err := Init(context.Background(), "test", "http://127.0.0.1:4318")
	if err != nil {
		t.Fatalf("Init returned error: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	_ = shutdown(ctx)
}
