package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestCommandError(t *testing.T) {
	cause := errors.New("file not found")
	err := NewCommandError("import", cause)

	if !strings.Contains(err.Error(), "command import failed") {
		t.Errorf("Error() = %q", err.Error())
	}
	if !errors.Is(err, cause) {
		t.Error("wrapped cause not reachable via errors.Is")
	}
}

func TestJSONFormatter(t *testing.T) {
	var buf bytes.Buffer
	f := NewFormatter(FormatJSON)

	data := map[string]any{"inserted": 42, "provider": "openai"}
	if err := f.FormatTo(&buf, data); err != nil {
		t.Fatalf("FormatTo() error = %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if decoded["provider"] != "openai" {
		t.Errorf("provider = %v", decoded["provider"])
	}
}

func TestTextFormatterIsDefault(t *testing.T) {
	var buf bytes.Buffer
	f := NewFormatter("unknown")

	if err := f.FormatTo(&buf, "3 events replayed"); err != nil {
		t.Fatalf("FormatTo() error = %v", err)
	}
	if buf.String() != "3 events replayed\n" {
		t.Errorf("output = %q", buf.String())
	}
}

func TestSimpleProgress(t *testing.T) {
	var buf bytes.Buffer
	p := NewProgressReporter(&buf)

	p.Start(10)
	p.Update(5)
	p.Finish()

	out := buf.String()
	if !strings.Contains(out, "100.0%") {
		t.Errorf("final render missing completion: %q", out)
	}
	if !strings.Contains(out, "(10/10)") {
		t.Errorf("final render missing counts: %q", out)
	}
}

func TestProgressZeroTotalRendersNothing(t *testing.T) {
	var buf bytes.Buffer
	p := NewProgressReporter(&buf)

	p.Start(0)
	p.Update(1)

	if strings.Contains(buf.String(), "%") {
		t.Errorf("zero-total bar rendered: %q", buf.String())
	}
}

func TestSetupSignalHandler(t *testing.T) {
	ctx := SetupSignalHandler()
	select {
	case <-ctx.Done():
		t.Error("context canceled without a signal")
	default:
	}
}
