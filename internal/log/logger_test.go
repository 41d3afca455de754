package log

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{" WARN ", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"info", slog.LevelInfo},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNew_Formats(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: slog.LevelInfo, Format: "json", Component: ComponentPlanner, Output: &buf})
	logger.Info("simulated", FieldDebtCount, 2)
	logger.Debug("hidden")

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("json output did not decode: %v\n%s", err, buf.String())
	}
	if rec[FieldComponent] != ComponentPlanner || rec["msg"] != "simulated" || rec[FieldDebtCount] != float64(2) {
		t.Errorf("record = %v", rec)
	}

	buf.Reset()
	text := New(Config{Output: &buf})
	text.Warn("careful")
	if got := buf.String(); !strings.Contains(got, "component=app") || !strings.Contains(got, "msg=careful") {
		t.Errorf("text output = %q", got)
	}
}

func TestLogger_WithComponent(t *testing.T) {
	var buf bytes.Buffer
	base := New(Config{Output: &buf, Component: ComponentApp}).With(FieldRequestID, "req_1")
	worker := base.WithComponent(ComponentWorker)
	if worker.Component() != ComponentWorker {
		t.Errorf("Component() = %q, want %q", worker.Component(), ComponentWorker)
	}
	worker.InfoContext(context.Background(), "tick")
	got := buf.String()
	if !strings.Contains(got, "component=worker") || !strings.Contains(got, "request_id=req_1") {
		t.Errorf("output = %q", got)
	}
}

func TestFromContext(t *testing.T) {
	if got := FromContext(context.Background()); got.Component() != "unknown" {
		t.Errorf("FromContext(empty).Component() = %q, want unknown", got.Component())
	}
	logger := New(Config{Component: ComponentHTTP})
	ctx := WithLogger(context.Background(), logger)
	if got := FromContext(ctx); got != logger {
		t.Error("FromContext() did not return the stored logger")
	}
}

func TestLogFields(t *testing.T) {
	months := 14
	f := NewFields().
		WithComponent(ComponentPlanner).
		WithOperation(OpSimulate).
		WithError(nil).
		WithSimulation("avalanche", decimal.RequireFromString("400.50"), 3, &months)

	if _, ok := f[FieldError]; ok {
		t.Error("WithError(nil) added an error field")
	}
	if f[FieldBudget] != "400.5" || f[FieldMonths] != 14 || f[FieldDebtCount] != 3 {
		t.Errorf("fields = %v", f)
	}
	if got := NewFields().WithSimulation("snowball", decimal.Zero, 0, nil)[FieldMonths]; got != -1 {
		t.Errorf("months for never = %v, want -1", got)
	}
	if got := len(f.ToSlice()); got != 2*len(f) {
		t.Errorf("ToSlice() length = %d, want %d", got, 2*len(f))
	}

	resp := NewFields().WithHTTPResponse(503, 12)
	if resp[FieldSuccess] != false {
		t.Errorf("success for 503 = %v, want false", resp[FieldSuccess])
	}
}

func TestStructuredLogger(t *testing.T) {
	tests := []struct {
		status int
		level  string
	}{
		{200, "level=INFO"},
		{404, "level=WARN"},
		{500, "level=ERROR"},
	}
	for _, tt := range tests {
		var buf bytes.Buffer
		sl := NewStructuredLogger(New(Config{Output: &buf}))
		r := httptest.NewRequest("GET", "/api/v1/debts?x=1", nil)
		sl.LogHTTPEnd(context.Background(), r, "req_9", tt.status, 5, "10.0.0.1")

		got := buf.String()
		if !strings.Contains(got, tt.level) || !strings.Contains(got, "request_id=req_9") || !strings.Contains(got, "component=http") {
			t.Errorf("LogHTTPEnd(%d) output = %q", tt.status, got)
		}
	}

	var buf bytes.Buffer
	sl := NewStructuredLogger(New(Config{Output: &buf}))
	sl.LogError(context.Background(), "Request failed", errors.New("disk full"), OpImport, nil)
	if got := buf.String(); !strings.Contains(got, `error="disk full"`) || !strings.Contains(got, "operation=import") {
		t.Errorf("LogError() output = %q", got)
	}
}
