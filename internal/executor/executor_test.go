package executor

import (
	"context"
	"strings"
	"testing"
)

func TestExecuteWithEnvPassesVariables(t *testing.T) {
	out, err := New().ExecuteWithEnv(context.Background(), []string{"MEETING_TEST_VAR=hello"}, "sh", "-c", "printf %s \"$MEETING_TEST_VAR\"")
	if err != nil {
		t.Skipf("sh unavailable: %v", err)
	}
	if out != "hello" {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestExecuteIncludesStderr(t *testing.T) {
	_, err := New().Execute(context.Background(), "sh", "-c", "echo broken >&2; exit 3")
	if err == nil {
		t.Fatal("expected failure")
	}
	if !strings.Contains(err.Error(), "broken") {
		t.Fatalf("stderr missing from error: %v", err)
	}
}

func TestLastLines(t *testing.T) {
	if got := lastLines("a\nb\nc", 2); got != "b\nc" {
		t.Fatalf("unexpected %q", got)
	}
}
