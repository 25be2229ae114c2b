package mcp

import (
	"context"
	"testing"
	"time"
)

func TestStdioSendMatchesID(t *testing.T) {
	// cat echoes each request line back verbatim, which parses as a
	// response carrying the same id.
	tr := NewStdioTransport(StdioConfig{
		Command: "cat",
		Args:    []string{},
		Logger:  testLogger(),
	})
	defer tr.Close()

	resp, err := tr.Send(context.Background(), NewRequest(3, "ping", nil))
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if resp.ID != 3 {
		t.Errorf("ID = %d, want 3", resp.ID)
	}
}

func TestStdioSendSkipsNonJSONLines(t *testing.T) {
	// A startup banner on stdout must not break response matching.
	tr := NewStdioTransport(StdioConfig{
		Command: "sh",
		Args:    []string{"-c", `echo "server ready"; cat`},
		Logger:  testLogger(),
	})
	defer tr.Close()

	resp, err := tr.Send(context.Background(), NewRequest(1, "ping", nil))
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if resp.ID != 1 {
		t.Errorf("ID = %d, want 1", resp.ID)
	}
}

func TestStdioSendContextCancel(t *testing.T) {
	// A subprocess that never answers must not block past the deadline.
	tr := NewStdioTransport(StdioConfig{
		Command: "sh",
		Args:    []string{"-c", "sleep 30"},
		Logger:  testLogger(),
	})
	defer tr.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	if _, err := tr.Send(ctx, NewRequest(1, "ping", nil)); err == nil {
		t.Fatal("expected error after context deadline")
	}
}

func TestStdioDeadAfterFailure(t *testing.T) {
	// Once the subprocess is torn down, subsequent calls must fail
	// instead of relaunching a server that never saw the handshake.
	tr := NewStdioTransport(StdioConfig{
		Command: "sh",
		Args:    []string{"-c", "sleep 30"},
		Logger:  testLogger(),
	})
	defer tr.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	if _, err := tr.Send(ctx, NewRequest(1, "ping", nil)); err == nil {
		t.Fatal("expected error after context deadline")
	}

	if _, err := tr.Send(context.Background(), NewRequest(2, "tools/call", nil)); err == nil {
		t.Fatal("expected error from dead transport, got relaunch")
	}
	if err := tr.Notify(context.Background(), NewNotification("notifications/initialized", nil)); err == nil {
		t.Fatal("expected notify error from dead transport")
	}
}

func TestStdioMissingCommand(t *testing.T) {
	tr := NewStdioTransport(StdioConfig{Logger: testLogger()})
	if _, err := tr.Send(context.Background(), NewRequest(1, "ping", nil)); err == nil {
		t.Fatal("expected error for missing command")
	}
}

func TestStdioCloseBeforeLaunch(t *testing.T) {
	tr := NewStdioTransport(StdioConfig{Command: "cat", Logger: testLogger()})
	if err := tr.Close(); err != nil {
		t.Errorf("Close before launch: %v", err)
	}
}
