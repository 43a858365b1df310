//go:build !integration

package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
)

func TestWith_AddsContextFields(t *testing.T) {
	var buf bytes.Buffer
	base := zerolog.New(&buf)

	ctx := WithTraceID(context.Background(), "trace-1")
	ctx = WithUserID(ctx, 42)
	ctx = WithBuyOrder(ctx, "C42T1")

	With(ctx, &base).Info().Msg("hello")

	var got map[string]any
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("log line is not json: %v", err)
	}
	if got["trace_id"] != "trace-1" {
		t.Errorf("trace_id = %v", got["trace_id"])
	}
	if got["user_id"] != float64(42) {
		t.Errorf("user_id = %v", got["user_id"])
	}
	if got["buy_order"] != "C42T1" {
		t.Errorf("buy_order = %v", got["buy_order"])
	}
}

func TestContextAccessors(t *testing.T) {
	ctx := WithUserID(WithTraceID(context.Background(), "trace-9"), 7)

	if got := TraceIDFrom(ctx); got != "trace-9" {
		t.Errorf("TraceIDFrom = %q", got)
	}
	if id, ok := UserIDFrom(ctx); !ok || id != 7 {
		t.Errorf("UserIDFrom = %d, %v", id, ok)
	}
	if _, ok := UserIDFrom(context.Background()); ok {
		t.Error("expected no user id on an empty context")
	}
}

func TestRedact(t *testing.T) {
	cases := []struct {
		in   string
		dev  bool
		want string
	}{
		{"579B532A7440BB0C9079DED94D31EA16", false, "579B...16"},
		{"short", false, "***"},
		{"visible-in-dev", true, "visible-in-dev"},
	}
	for _, c := range cases {
		if got := Redact(c.in, c.dev); got != c.want {
			t.Errorf("Redact(%q, %v) = %q, want %q", c.in, c.dev, got, c.want)
		}
	}
}
