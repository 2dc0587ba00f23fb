package logger

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

func TestFormatRFC3339Millis(t *testing.T) {
	ts := time.Date(2026, 3, 1, 12, 4, 5, 987_654_321, time.FixedZone("x", 3600))
	if got, want := formatRFC3339Millis(ts), "2026-03-01T11:04:05.987Z"; got != want {
		t.Fatalf("formatRFC3339Millis = %q, want %q", got, want)
	}
}

func TestVerboseLevel(t *testing.T) {
	var buf bytes.Buffer
	NewWriter(&buf, false).Debug("hidden")
	if buf.Len() != 0 {
		t.Fatalf("debug record written without verbose: %q", buf.String())
	}

	NewWriter(&buf, true).Debug("shown", "pool_id", "pool_1", "empty", "")
	out := buf.String()
	if !strings.Contains(out, "shown") || !strings.Contains(out, "pool_id=pool_1") {
		t.Fatalf("unexpected output %q", out)
	}
	if strings.Contains(out, "empty=") {
		t.Fatalf("empty attribute not dropped: %q", out)
	}
}
