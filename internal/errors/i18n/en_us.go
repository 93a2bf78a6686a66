package i18n

const (
	CodeScenarioInvalid     = "SCENARIO_INVALID"
	CodeScenarioNotFound    = "SCENARIO_NOT_FOUND"
	CodeInvalidMention      = "INVALID_MENTION"
	CodeMessageEmpty        = "MESSAGE_EMPTY"
	CodeSceneMismatch       = "SCENE_MISMATCH"
	CodeEmptySceneSubmit    = "EMPTY_SCENE_SUBMIT"
	CodeSessionNotFound     = "SESSION_NOT_FOUND"
	CodeSessionBusy         = "SESSION_BUSY"
	CodeSessionClosed       = "SESSION_CLOSED"
	CodeSessionTerminal     = "SESSION_TERMINAL"
	CodeStateInvariant      = "STATE_INVARIANT_VIOLATION"
	CodePersonaUnavailable  = "PERSONA_UNAVAILABLE"
	CodeGradingUnavailable  = "GRADING_UNAVAILABLE"
	CodeFeedbackUnavailable = "FEEDBACK_UNAVAILABLE"
	CodeNotFound            = "NOT_FOUND"
)

var enUSCatalog = &Catalog{
	locale: "en-US",
	messages: map[string]string{
		CodeScenarioInvalid:     "This scenario has no scenes and cannot be started",
		CodeScenarioNotFound:    "Scenario not found",
		CodeInvalidMention:      "That @mention does not match a persona in this scene",
		CodeMessageEmpty:        "Message cannot be empty",
		CodeSceneMismatch:       "This message targets a scene that is no longer current",
		CodeEmptySceneSubmit:    "Talk to at least one persona before submitting this scene",
		CodeSessionNotFound:     "Session not found",
		CodeSessionBusy:         "Another request for this session is still in progress; try again",
		CodeSessionClosed:       "This simulation is complete; start a new session to continue practicing",
		CodeSessionTerminal:     "This session has ended and no longer accepts changes",
		CodeStateInvariant:      "The session is in an unexpected state; this request was not applied",
		CodePersonaUnavailable:  "(The other party pauses and does not respond right now. Please continue, or try again in a moment.)",
		CodeGradingUnavailable:  "Grading was unavailable for this scene.",
		CodeFeedbackUnavailable: "Overall feedback is temporarily unavailable",
		CodeNotFound:            "Record not found",
	},
}
