// Package session orchestrates simulation sessions: it owns session
// lifecycle, routes learner messages to personas, decides when a scene is
// finished, advances scenes exactly once, and drives end-of-session grading.
//
// Every mutating operation for a session runs under that session's lock, so
// turn counting, scene-pointer moves, and status changes never interleave.
// Overlapping requests for one session are rejected with a retryable busy
// error instead of queueing.
package session
