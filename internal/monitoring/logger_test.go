package monitoring

import (
	"fmt"
	"testing"
)

func TestSetLoggerCapturesOutput(t *testing.T) {
	original := Logf
	defer func() { Logf = original }()

	var lines []string
	SetLogger(func(format string, v ...interface{}) {
		lines = append(lines, fmt.Sprintf(format, v...))
	})

	// The shape the ingest stats reporter emits.
	Logf("UDP stats: datagrams=%d malformed=%d dropped=%d", 120, 2, 0)

	if len(lines) != 1 {
		t.Fatalf("captured %d lines, want 1", len(lines))
	}
	want := "UDP stats: datagrams=120 malformed=2 dropped=0"
	if lines[0] != want {
		t.Errorf("captured %q, want %q", lines[0], want)
	}
}

func TestSetLoggerNilMutes(t *testing.T) {
	original := Logf
	defer func() { Logf = original }()

	called := false
	SetLogger(func(format string, v ...interface{}) { called = true })
	SetLogger(nil)

	Logf("backup cleanup failed: %v", "ignored")
	if called {
		t.Error("muted logger still reached the previous sink")
	}
}

func TestDefaultLoggerUsable(t *testing.T) {
	if Logf == nil {
		t.Fatal("Logf must have a default sink")
	}
}
