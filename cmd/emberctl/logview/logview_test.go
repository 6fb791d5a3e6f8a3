package logview

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jonnelaakso/emberplus-go/pkg/log"
	"github.com/jonnelaakso/emberplus-go/pkg/wire"
)

var ts = time.Date(2026, 1, 28, 10, 15, 32, 123456000, time.UTC)

func sampleEvents() []log.Event {
	op := wire.OpSetValue
	status := wire.StatusReadOnly
	return []log.Event{
		{
			Timestamp:    ts,
			ConnectionID: "127.0.0.1:9000",
			Direction:    log.DirectionOut,
			Layer:        log.LayerWire,
			Category:     log.CategoryMessage,
			RemoteAddr:   "127.0.0.1:9000",
			Message: &log.MessageEvent{
				Type:      wire.MessageTypeRequest,
				MessageID: 42,
				Operation: &op,
				Path:      "0.1.3",
				Value:     float64(0),
			},
		},
		{
			Timestamp:    ts.Add(2 * time.Millisecond),
			ConnectionID: "127.0.0.1:9000",
			Direction:    log.DirectionIn,
			Layer:        log.LayerWire,
			Category:     log.CategoryMessage,
			Message: &log.MessageEvent{
				Type:      wire.MessageTypeResponse,
				MessageID: 42,
				Status:    &status,
			},
		},
		{
			Timestamp:    ts.Add(time.Second),
			ConnectionID: "127.0.0.1:9000",
			Direction:    log.DirectionIn,
			Layer:        log.LayerWire,
			Category:     log.CategoryMessage,
			Message: &log.MessageEvent{
				Type:  wire.MessageTypeNotification,
				Path:  "0.1.2",
				Value: float64(-6),
			},
		},
		{
			Timestamp:    ts.Add(2 * time.Second),
			ConnectionID: "127.0.0.1:9000",
			Layer:        log.LayerSession,
			Category:     log.CategoryState,
			StateChange: &log.StateChangeEvent{
				Entity:   log.StateEntityReconnect,
				OldState: "reconnecting",
				NewState: "restored",
			},
		},
		{
			Timestamp:    ts.Add(3 * time.Second),
			ConnectionID: "127.0.0.1:9000",
			Layer:        log.LayerSession,
			Category:     log.CategoryError,
			Error: &log.ErrorEventData{
				Layer:   log.LayerSession,
				Message: "connection lost",
				Context: "read",
			},
		},
	}
}

func writeCapture(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "session.elog")
	logger, err := log.NewFileLogger(path)
	if err != nil {
		t.Fatalf("NewFileLogger: %v", err)
	}
	for _, e := range sampleEvents() {
		logger.Log(e)
	}
	if err := logger.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	return path
}

func TestFormatRequestEvent(t *testing.T) {
	var buf bytes.Buffer
	formatEvent(&buf, sampleEvents()[0])
	output := buf.String()

	for _, want := range []string{
		"2026-01-28T10:15:32.123456Z",
		"[conn:127.0.0.1:9000]",
		"OUT WIRE Request",
		"MessageID: 42",
		"Operation: SetValue",
		"Path: 0.1.3",
		"Value: 0",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %q in output:\n%s", want, output)
		}
	}
}

func TestFormatNotificationOmitsMessageID(t *testing.T) {
	var buf bytes.Buffer
	formatEvent(&buf, sampleEvents()[2])
	output := buf.String()

	if strings.Contains(output, "MessageID") {
		t.Errorf("notification should not show a message id:\n%s", output)
	}
	if !strings.Contains(output, "Value: -6") {
		t.Errorf("expected value in output:\n%s", output)
	}
}

func TestFormatStateAndError(t *testing.T) {
	var buf bytes.Buffer
	formatEvent(&buf, sampleEvents()[3])
	formatEvent(&buf, sampleEvents()[4])
	output := buf.String()

	for _, want := range []string{"Entity: RECONNECT", "reconnecting -> restored", "Message: connection lost", "Context: read"} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %q in output:\n%s", want, output)
		}
	}
}

func TestParseFlags(t *testing.T) {
	if l, err := ParseLayer("SESSION"); err != nil || l != log.LayerSession {
		t.Errorf("ParseLayer(SESSION) = %v, %v", l, err)
	}
	if _, err := ParseLayer("service"); err == nil {
		t.Error("expected error for unknown layer")
	}
	if d, err := ParseDirection("in"); err != nil || d != log.DirectionIn {
		t.Errorf("ParseDirection(in) = %v, %v", d, err)
	}
	if c, err := ParseCategory("Error"); err != nil || c != log.CategoryError {
		t.Errorf("ParseCategory(Error) = %v, %v", c, err)
	}
	if r, err := ParseRole("provider"); err != nil || r != log.RoleProvider {
		t.Errorf("ParseRole(provider) = %v, %v", r, err)
	}
	if _, err := (Options{TimeStart: "yesterday"}).Filter(); err == nil {
		t.Error("expected error for bad time-start")
	}
}

func TestRunViewFiltered(t *testing.T) {
	path := writeCapture(t)

	var buf bytes.Buffer
	if err := RunView(path, Options{Category: "error"}, &buf); err != nil {
		t.Fatalf("RunView: %v", err)
	}
	output := buf.String()
	if strings.Count(output, "[conn:") != 1 {
		t.Errorf("expected exactly one event:\n%s", output)
	}
	if !strings.Contains(output, "connection lost") {
		t.Errorf("expected error event:\n%s", output)
	}

	buf.Reset()
	if err := RunView(path, Options{PathPrefix: "0.1"}, &buf); err != nil {
		t.Fatalf("RunView: %v", err)
	}
	if n := strings.Count(buf.String(), "[conn:"); n != 2 {
		t.Errorf("expected 2 events under 0.1, got %d", n)
	}
}

func TestRunExport(t *testing.T) {
	path := writeCapture(t)

	var buf bytes.Buffer
	if err := RunExport(path, "jsonl", "", Options{}, &buf); err != nil {
		t.Fatalf("RunExport jsonl: %v", err)
	}
	if lines := strings.Count(buf.String(), "\n"); lines != 5 {
		t.Errorf("expected 5 jsonl lines, got %d", lines)
	}

	buf.Reset()
	if err := RunExport(path, "csv", "", Options{Direction: "out"}, &buf); err != nil {
		t.Fatalf("RunExport csv: %v", err)
	}
	rows := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(rows) != 2 {
		t.Fatalf("expected header and one row, got %d rows", len(rows))
	}
	if !strings.HasPrefix(rows[0], "timestamp,connection_id") {
		t.Errorf("unexpected header: %s", rows[0])
	}
	if !strings.Contains(rows[1], ",Request,42,0.1.3") {
		t.Errorf("unexpected row: %s", rows[1])
	}

	if err := RunExport(path, "xml", "", Options{}, &buf); err == nil {
		t.Error("expected error for unknown format")
	}
}

func TestRunFilter(t *testing.T) {
	path := writeCapture(t)
	out := filepath.Join(t.TempDir(), "filtered.elog")

	n, err := RunFilter(path, out, Options{Layer: "session"})
	if err != nil {
		t.Fatalf("RunFilter: %v", err)
	}
	if n != 2 {
		t.Errorf("expected 2 events, got %d", n)
	}
	if _, err := os.Stat(out); err != nil {
		t.Errorf("output not written: %v", err)
	}
}

func TestStats(t *testing.T) {
	path := writeCapture(t)

	stats, err := Collect(path)
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if stats.TotalEvents != 5 {
		t.Errorf("TotalEvents = %d, want 5", stats.TotalEvents)
	}
	if stats.Notifications != 1 || stats.Errors != 1 {
		t.Errorf("Notifications = %d, Errors = %d", stats.Notifications, stats.Errors)
	}
	conn := stats.Connections["127.0.0.1:9000"]
	if conn == nil || conn.Reconnects != 1 || conn.RemoteAddr != "127.0.0.1:9000" {
		t.Errorf("unexpected connection stats: %+v", conn)
	}

	var buf bytes.Buffer
	if err := RunStats(path, &buf); err != nil {
		t.Fatalf("RunStats: %v", err)
	}
	for _, want := range []string{"Total Events: 5", "SESSION:", "Reconnects: 1", "Errors: 1"} {
		if !strings.Contains(buf.String(), want) {
			t.Errorf("expected %q in stats:\n%s", want, buf.String())
		}
	}
}
