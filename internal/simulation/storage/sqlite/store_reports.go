package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/stagecraft-sim/stagecraft/internal/simulation/domain"
	"github.com/stagecraft-sim/stagecraft/internal/simulation/storage"
)

// sceneGradeRow is the JSON shape persisted in the reports.scenes column.
type sceneGradeRow struct {
	SceneID       string  `json:"scene_id"`
	Score         float64 `json:"score"`
	Feedback      string  `json:"feedback"`
	TeachingNotes string  `json:"teaching_notes"`
	Graded        bool    `json:"graded"`
}

// PutReport writes a grading report. A second report for the same session is
// rejected with storage.ErrConflict; reports are immutable once written.
func (s *Store) PutReport(ctx context.Context, report domain.GradingReport) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(report.SessionID) == "" {
		return fmt.Errorf("session id is required")
	}

	rowsData := make([]sceneGradeRow, 0, len(report.Scenes))
	for _, scene := range report.Scenes {
		rowsData = append(rowsData, sceneGradeRow{
			SceneID:       scene.SceneID,
			Score:         scene.Score,
			Feedback:      scene.Feedback,
			TeachingNotes: scene.TeachingNotes,
			Graded:        scene.Graded,
		})
	}
	encoded, err := json.Marshal(rowsData)
	if err != nil {
		return fmt.Errorf("marshal scene grades: %w", err)
	}

	result, err := s.sqlDB.ExecContext(ctx, `
INSERT OR IGNORE INTO reports (session_id, overall_score, overall_feedback, scenes, created_at)
VALUES (?, ?, ?, ?, ?)
`,
		report.SessionID,
		report.OverallScore,
		report.OverallFeedback,
		string(encoded),
		toMillis(report.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("put report: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("put report rows affected: %w", err)
	}
	if affected == 0 {
		return storage.ErrConflict
	}
	return nil
}

// GetReport loads the grading report for a session.
func (s *Store) GetReport(ctx context.Context, sessionID string) (domain.GradingReport, error) {
	if err := ctx.Err(); err != nil {
		return domain.GradingReport{}, err
	}
	if s == nil || s.sqlDB == nil {
		return domain.GradingReport{}, fmt.Errorf("storage is not configured")
	}
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return domain.GradingReport{}, fmt.Errorf("session id is required")
	}

	row := s.sqlDB.QueryRowContext(ctx, `
SELECT session_id, overall_score, overall_feedback, scenes, created_at
FROM reports
WHERE session_id = ?
`, sessionID)

	var (
		report        domain.GradingReport
		scenesRaw     string
		createdMillis int64
	)
	err := row.Scan(
		&report.SessionID,
		&report.OverallScore,
		&report.OverallFeedback,
		&scenesRaw,
		&createdMillis,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.GradingReport{}, storage.ErrNotFound
	}
	if err != nil {
		return domain.GradingReport{}, fmt.Errorf("get report: %w", err)
	}

	var rowsData []sceneGradeRow
	if err := json.Unmarshal([]byte(scenesRaw), &rowsData); err != nil {
		return domain.GradingReport{}, fmt.Errorf("unmarshal scene grades: %w", err)
	}
	report.Scenes = make([]domain.SceneGrade, 0, len(rowsData))
	for _, data := range rowsData {
		report.Scenes = append(report.Scenes, domain.SceneGrade{
			SceneID:       data.SceneID,
			Score:         data.Score,
			Feedback:      data.Feedback,
			TeachingNotes: data.TeachingNotes,
			Graded:        data.Graded,
		})
	}
	report.CreatedAt = fromMillis(createdMillis)

	return report, nil
}
