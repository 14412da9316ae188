package debug

import (
	"bytes"
	"strings"
	"testing"
)

func TestLogRespectsEnabled(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	prev := Enabled()
	defer SetEnabled(prev)

	SetEnabled(false)
	Log("hidden %d", 1)
	if buf.Len() != 0 {
		t.Fatalf("expected no output while disabled, got %q", buf.String())
	}

	SetEnabled(true)
	SetOutput(&buf)
	Log("visible %d", 2)
	LogIf(false, "skipped")
	LogEnterExit("step")()
	out := buf.String()
	if !strings.Contains(out, "visible 2") {
		t.Errorf("missing message in %q", out)
	}
	if strings.Contains(out, "skipped") {
		t.Errorf("LogIf(false) wrote output: %q", out)
	}
	if !strings.Contains(out, "-> step") || !strings.Contains(out, "<- step") {
		t.Errorf("missing enter/exit lines in %q", out)
	}
	if !strings.Contains(out, prefix) {
		t.Errorf("missing prefix in %q", out)
	}
}

func TestDumpIncludesType(t *testing.T) {
	var buf bytes.Buffer
	prev := Enabled()
	defer SetEnabled(prev)
	SetEnabled(true)
	SetOutput(&buf)

	Dump("playback", struct{ Speed int }{2})
	if out := buf.String(); !strings.Contains(out, "playback: struct { Speed int } = {Speed:2}") {
		t.Errorf("unexpected dump %q", out)
	}

	buf.Reset()
	SetEnabled(false)
	Dump("playback", 1)
	if buf.Len() != 0 {
		t.Errorf("Dump wrote while disabled: %q", buf.String())
	}
}
