package mcp

import (
	"errors"
	"strings"
	"testing"

	apperrors "github.com/stagecraft-sim/stagecraft/internal/errors"
)

func TestToolErrorRendersNotice(t *testing.T) {
	err := toolError(apperrors.Newf(apperrors.CodeInvalidMention, "persona %q is not part of this scene", "ghost"))
	if err == nil {
		t.Fatal("toolError() = nil")
	}
	msg := err.Error()
	if !strings.HasPrefix(msg, "INVALID_MENTION: ") {
		t.Fatalf("message = %q, want code prefix", msg)
	}
	if !strings.Contains(msg, "does not match a persona") {
		t.Fatalf("message = %q, want learner-facing notice", msg)
	}
}

func TestToolErrorPassesUncodedThrough(t *testing.T) {
	cause := errors.New("connection refused")
	if got := toolError(cause); got != cause {
		t.Fatalf("toolError() = %v, want cause unchanged", got)
	}
	if toolError(nil) != nil {
		t.Fatal("toolError(nil) != nil")
	}
}
