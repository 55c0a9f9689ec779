package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"
)

func captureLogger() (*Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return &Logger{Logger: slog.New(slog.NewJSONHandler(&buf, nil))}, &buf
}

func TestWithContextAttachesRequestAndUser(t *testing.T) {
	l, buf := captureLogger()

	ctx := ContextWithRequestID(context.Background(), "req-123")
	ctx = ContextWithUserID(ctx, "donor-456")

	l.WithContext(ctx).Info("request completed")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("decode log line: %v", err)
	}
	if entry["request_id"] != "req-123" {
		t.Errorf("request_id = %v, want req-123", entry["request_id"])
	}
	if entry["user_id"] != "donor-456" {
		t.Errorf("user_id = %v, want donor-456", entry["user_id"])
	}
}

func TestWithContextOmitsMissingValues(t *testing.T) {
	l, buf := captureLogger()

	l.WithContext(context.Background()).Info("request completed")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("decode log line: %v", err)
	}
	if _, ok := entry["request_id"]; ok {
		t.Error("request_id present without context value")
	}
	if _, ok := entry["user_id"]; ok {
		t.Error("user_id present without context value")
	}
}

func TestContextHelpersIgnoreEmptyValues(t *testing.T) {
	ctx := context.Background()
	if got := ContextWithRequestID(ctx, ""); got != ctx {
		t.Error("empty request ID should leave the context untouched")
	}
	if got := ContextWithUserID(ctx, ""); got != ctx {
		t.Error("empty user ID should leave the context untouched")
	}
}

func TestWithComponentAndError(t *testing.T) {
	l, buf := captureLogger()

	l.WithComponent("inventory").WithError(context.DeadlineExceeded).Error("sweep failed")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("decode log line: %v", err)
	}
	if entry["component"] != "inventory" {
		t.Errorf("component = %v, want inventory", entry["component"])
	}
	if entry["error"] != context.DeadlineExceeded.Error() {
		t.Errorf("error = %v, want %q", entry["error"], context.DeadlineExceeded.Error())
	}
}
