package logger

import (
	"bytes"
	"strings"
	"testing"

	"github.com/harrison/modbuild/internal/models"
)

func TestMulti_FansOut(t *testing.T) {
	a, b := &bytes.Buffer{}, &bytes.Buffer{}
	m := NewMulti(NewConsoleLogger(a, "trace"), nil, NewConsoleLogger(b, "error"))

	if len(m.sinks) != 2 {
		t.Fatalf("expected nil sink to be dropped, got %d sinks", len(m.sinks))
	}

	m.LogTrace("12 arguments")
	m.LogInfo("BEGIN.")
	m.LogError("boom")
	m.LogSummary(models.RunResult{})

	if !strings.Contains(a.String(), "BEGIN.") || !strings.Contains(a.String(), "boom") {
		t.Errorf("info sink missing messages:\n%s", a.String())
	}
	if !strings.Contains(a.String(), "[TRACE] 12 arguments") {
		t.Errorf("trace sink missing trace message:\n%s", a.String())
	}
	if strings.Contains(b.String(), "BEGIN.") {
		t.Errorf("error sink should filter info:\n%s", b.String())
	}
	if !strings.Contains(b.String(), "boom") {
		t.Errorf("error sink missing error:\n%s", b.String())
	}
}
