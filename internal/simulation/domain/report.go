package domain

import (
	"fmt"
	"strings"
	"time"
)

// SceneGrade is the assessment of one completed scene.
type SceneGrade struct {
	SceneID       string
	Score         float64
	Feedback      string
	TeachingNotes string
	// Graded is false when the grading collaborator failed for this scene;
	// the score is then a neutral placeholder excluded from the mean.
	Graded bool
}

// GradingReport is the final assessment of a completed session. Created once,
// read-only thereafter.
type GradingReport struct {
	SessionID       string
	OverallScore    float64
	OverallFeedback string
	Scenes          []SceneGrade
	CreatedAt       time.Time
}

// OverallScore computes the arithmetic mean of graded scene scores. Ungraded
// scenes are excluded; an all-ungraded report scores zero.
func OverallScore(scenes []SceneGrade) float64 {
	var sum float64
	var graded int
	for _, scene := range scenes {
		if !scene.Graded {
			continue
		}
		sum += scene.Score
		graded++
	}
	if graded == 0 {
		return 0
	}
	return sum / float64(graded)
}

// FallbackOverallFeedback deterministically concatenates per-scene feedback
// when the summarization collaborator is unavailable. The result is never
// empty for a non-empty scene list.
func FallbackOverallFeedback(scenes []SceneGrade) string {
	var b strings.Builder
	for i, scene := range scenes {
		if i > 0 {
			b.WriteString("\n\n")
		}
		if !scene.Graded {
			fmt.Fprintf(&b, "Scene %d: grading was unavailable for this scene.", i+1)
			continue
		}
		fmt.Fprintf(&b, "Scene %d: %s", i+1, scene.Feedback)
	}
	if b.Len() == 0 {
		return "No scenes were graded."
	}
	return b.String()
}
