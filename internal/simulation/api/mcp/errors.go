package mcp

import (
	"fmt"

	apperrors "github.com/stagecraft-sim/stagecraft/internal/errors"
	"github.com/stagecraft-sim/stagecraft/internal/errors/i18n"
)

// toolError renders a coded orchestrator error as a learner-facing notice,
// keeping the machine-readable code as a prefix for programmatic callers.
// Uncoded errors pass through unchanged.
func toolError(err error) error {
	if err == nil {
		return nil
	}
	code := apperrors.CodeOf(err)
	if code == apperrors.CodeUnknown {
		return err
	}
	return fmt.Errorf("%s: %s", code, i18n.Message("", string(code)))
}
