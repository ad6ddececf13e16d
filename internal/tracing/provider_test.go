package tracing

import (
	"context"
	"strings"
	"testing"
)

func TestSetup_DisabledIsNoop(t *testing.T) {
	for _, cfg := range []Config{
		{},
		{Enabled: true},
		{Endpoint: "http://localhost:4318"},
	} {
		shutdown, err := Setup(context.Background(), cfg, "chat-service", "test")
		if err != nil {
			t.Fatalf("%+v: %v", cfg, err)
		}
		if err := shutdown(context.Background()); err != nil {
			t.Fatalf("noop shutdown: %v", err)
		}
	}
}

func TestSampler(t *testing.T) {
	if d := sampler(0).Description(); !strings.Contains(d, "AlwaysOnSampler") {
		t.Fatalf("ratio 0: %s", d)
	}
	if d := sampler(0.25).Description(); !strings.Contains(d, "TraceIDRatioBased") {
		t.Fatalf("ratio 0.25: %s", d)
	}
}
