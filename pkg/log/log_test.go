package log

import (
	"bytes"
	"strings"
	"testing"
)

func TestNamedLoggerPrefix(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetOutput(nil)

	l := For("scraper")
	l.Infof("fetched %d figures", 3)

	out := buf.String()
	if !strings.Contains(out, "INFO [scraper>] fetched 3 figures") {
		t.Errorf("unexpected log line: %q", out)
	}
}

func TestDebugDisabledByDefault(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)

	l := For("quiet-component")
	l.Debugf("should not appear")

	if strings.Contains(buf.String(), "should not appear") {
		t.Errorf("debug output emitted while disabled: %q", buf.String())
	}
}

func TestDebugPerComponent(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)

	EnableDebugFor("chatty")
	defer DisableDebugFor("chatty")

	For("chatty").Debugf("token map size %d", 10)
	For("other").Debugf("hidden")

	out := buf.String()
	if !strings.Contains(out, "DEBUG [chatty>] token map size 10") {
		t.Errorf("expected debug line for enabled component, got %q", out)
	}
	if strings.Contains(out, "hidden") {
		t.Errorf("debug line leaked for disabled component: %q", out)
	}
}

func TestGlobalDebug(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)

	SetGlobalDebug(true)
	defer SetGlobalDebug(false)

	For("anything").Debugf("visible")
	if !strings.Contains(buf.String(), "visible") {
		t.Errorf("global debug did not enable output: %q", buf.String())
	}
}
