// Package errors provides structured error codes for the simulation service.
package errors

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// Scenario errors
	CodeScenarioInvalid  Code = "SCENARIO_INVALID"
	CodeScenarioNotFound Code = "SCENARIO_NOT_FOUND"

	// Message validation errors
	CodeInvalidMention   Code = "INVALID_MENTION"
	CodeMessageEmpty     Code = "MESSAGE_EMPTY"
	CodeSceneMismatch    Code = "SCENE_MISMATCH"
	CodeEmptySceneSubmit Code = "EMPTY_SCENE_SUBMIT"

	// Session lifecycle errors
	CodeSessionNotFound Code = "SESSION_NOT_FOUND"
	CodeSessionBusy     Code = "SESSION_BUSY"
	CodeSessionClosed   Code = "SESSION_CLOSED"
	CodeSessionTerminal Code = "SESSION_TERMINAL"
	CodeStateInvariant  Code = "STATE_INVARIANT_VIOLATION"

	// Collaborator errors
	CodePersonaUnavailable  Code = "PERSONA_UNAVAILABLE"
	CodeGradingUnavailable  Code = "GRADING_UNAVAILABLE"
	CodeFeedbackUnavailable Code = "FEEDBACK_UNAVAILABLE"

	// Storage errors
	CodeNotFound Code = "NOT_FOUND"
)

// Kind groups codes into the error classes callers branch on.
type Kind int

const (
	// KindUnknown classifies unexpected internal failures.
	KindUnknown Kind = iota
	// KindValidation classifies rejected input with no state mutation.
	KindValidation
	// KindNotFound classifies missing records.
	KindNotFound
	// KindConflict classifies retryable concurrency conflicts.
	KindConflict
	// KindState classifies requests a session's lifecycle state disallows.
	KindState
	// KindUpstream classifies failures of external AI collaborators.
	KindUpstream
)

// Kind maps a code to its error class.
func (c Code) Kind() Kind {
	switch c {
	case CodeScenarioInvalid,
		CodeInvalidMention,
		CodeMessageEmpty,
		CodeSceneMismatch,
		CodeEmptySceneSubmit:
		return KindValidation

	case CodeScenarioNotFound,
		CodeSessionNotFound,
		CodeNotFound:
		return KindNotFound

	case CodeSessionBusy:
		return KindConflict

	case CodeSessionClosed,
		CodeSessionTerminal,
		CodeStateInvariant:
		return KindState

	case CodePersonaUnavailable,
		CodeGradingUnavailable,
		CodeFeedbackUnavailable:
		return KindUpstream

	default:
		return KindUnknown
	}
}

// Retryable reports whether a caller may retry the same request unchanged.
// Busy sessions clear as soon as the in-flight request finishes; upstream
// outages are transient by contract.
func (c Code) Retryable() bool {
	switch c.Kind() {
	case KindConflict, KindUpstream:
		return true
	default:
		return false
	}
}
