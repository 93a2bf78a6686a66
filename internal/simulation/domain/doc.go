// Package domain defines the entities and lifecycle state for simulation
// sessions.
//
// A Scenario is an immutable, ordered list of Scenes, each with its own goal,
// turn budget, and persona cast. A SessionProgress record tracks one learner's
// attempt at one scenario: the current scene, the conversational turn count
// inside it, and the ordered list of scenes already completed.
//
// # Session lifecycle
//
// Sessions move through several statuses:
//   - NotStarted: the record exists but the first scene has not been entered.
//   - InProgress: the learner is conversing inside a scene.
//   - AwaitingGrading: every scene is complete and the grading report is
//     being assembled.
//   - Completed: the grading report is persisted; the session is read-only.
//   - Abandoned: the session was closed without grading; terminal.
//
// Status only moves forward. Abandoned is reachable from any non-terminal
// status; Completed and Abandoned are terminal.
package domain
