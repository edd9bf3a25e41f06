package util

import (
	"bytes"
	"os"
	"strings"
	"testing"
)

func TestSetLogLevel(t *testing.T) {
	defer SetLogLevel("info")

	if err := SetLogLevel("debug"); err != nil {
		t.Errorf("SetLogLevel(debug) returned error: %v", err)
	}
	if err := SetLogLevel("not-a-level"); err == nil {
		t.Errorf("SetLogLevel with bogus level should fail")
	}
}

func TestWithNodeField(t *testing.T) {
	var buf bytes.Buffer
	SetLogOutput(&buf)
	defer SetLogOutput(os.Stderr)

	WithNode("R0_1").Info("interface configured")

	out := buf.String()
	if !strings.Contains(out, "node=R0_1") {
		t.Errorf("expected node field in output, got: %s", out)
	}
	if !strings.Contains(out, "interface configured") {
		t.Errorf("expected message in output, got: %s", out)
	}
}
