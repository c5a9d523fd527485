package observability

import (
	"testing"

	"github.com/marginlab/api/internal/platform/requestctx"
)

func TestParseTraceparent(t *testing.T) {
	tests := []struct {
		name    string
		header  string
		ok      bool
		sampled bool
	}{
		{
			name:    "sampled",
			header:  "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01",
			ok:      true,
			sampled: true,
		},
		{
			name:   "not sampled",
			header: "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-00",
			ok:     true,
		},
		{name: "empty", header: ""},
		{name: "wrong version", header: "ff-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01"},
		{name: "short trace id", header: "00-abc-00f067aa0ba902b7-01"},
		{name: "zero trace id", header: "00-00000000000000000000000000000000-00f067aa0ba902b7-01"},
		{name: "garbage", header: "not a traceparent"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			sc, ok := parseTraceparent(tc.header)
			if ok != tc.ok {
				t.Fatalf("parse ok: want %v, got %v", tc.ok, ok)
			}
			if !ok {
				return
			}
			if sc.IsSampled() != tc.sampled {
				t.Errorf("sampled: want %v, got %v", tc.sampled, sc.IsSampled())
			}
			if !sc.IsRemote() {
				t.Errorf("parsed context must be marked remote")
			}
		})
	}
}

func TestFormatTraceparent(t *testing.T) {
	info := requestctx.TraceInfo{
		TraceID: "4bf92f3577b34da6a3ce929d0e0e4736",
		SpanID:  "00f067aa0ba902b7",
		Sampled: true,
	}
	want := "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01"
	if got := formatTraceparent(info); got != want {
		t.Fatalf("formatTraceparent: want %s, got %s", want, got)
	}

	info.Sampled = false
	if got := formatTraceparent(info); got != "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-00" {
		t.Fatalf("unexpected unsampled header: %s", got)
	}

	if got := formatTraceparent(requestctx.TraceInfo{}); got != "" {
		t.Fatalf("missing ids must produce an empty header, got %q", got)
	}
}

func TestSanitizeRoute(t *testing.T) {
	if got := SanitizeRoute(""); got != "/" {
		t.Fatalf("empty route: want /, got %q", got)
	}
	if got := SanitizeRoute("/api/v1/pricing/\x00bundle"); got != "/api/v1/pricing/bundle" {
		t.Fatalf("control characters must be stripped, got %q", got)
	}
}
