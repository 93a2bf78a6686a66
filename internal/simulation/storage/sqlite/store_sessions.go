package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/stagecraft-sim/stagecraft/internal/simulation/domain"
	"github.com/stagecraft-sim/stagecraft/internal/simulation/storage"
)

// PutSession upserts a session progress record.
func (s *Store) PutSession(ctx context.Context, progress domain.SessionProgress) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(progress.ID) == "" {
		return fmt.Errorf("session id is required")
	}
	if strings.TrimSpace(progress.UserID) == "" {
		return fmt.Errorf("user id is required")
	}
	if strings.TrimSpace(progress.ScenarioID) == "" {
		return fmt.Errorf("scenario id is required")
	}
	if !progress.Status.IsValid() {
		return fmt.Errorf("status %q is invalid", progress.Status)
	}

	completed, err := encodeStrings(progress.CompletedSceneIDs)
	if err != nil {
		return err
	}
	reasons := make([]string, 0, len(progress.CompletionReasons))
	for _, reason := range progress.CompletionReasons {
		reasons = append(reasons, string(reason))
	}
	encodedReasons, err := encodeStrings(reasons)
	if err != nil {
		return err
	}

	_, err = s.sqlDB.ExecContext(ctx, `
INSERT INTO sessions (
	id, user_id, scenario_id, current_scene_id, turn_count,
	completed_scene_ids, completion_reasons, status, created_at, updated_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	current_scene_id = excluded.current_scene_id,
	turn_count = excluded.turn_count,
	completed_scene_ids = excluded.completed_scene_ids,
	completion_reasons = excluded.completion_reasons,
	status = excluded.status,
	updated_at = excluded.updated_at
`,
		progress.ID,
		progress.UserID,
		progress.ScenarioID,
		progress.CurrentSceneID,
		progress.TurnCount,
		completed,
		encodedReasons,
		string(progress.Status),
		toMillis(progress.CreatedAt),
		toMillis(progress.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("put session: %w", err)
	}
	return nil
}

// GetSession loads a session progress record by ID.
func (s *Store) GetSession(ctx context.Context, sessionID string) (domain.SessionProgress, error) {
	if err := ctx.Err(); err != nil {
		return domain.SessionProgress{}, err
	}
	if s == nil || s.sqlDB == nil {
		return domain.SessionProgress{}, fmt.Errorf("storage is not configured")
	}
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return domain.SessionProgress{}, fmt.Errorf("session id is required")
	}

	row := s.sqlDB.QueryRowContext(ctx, `
SELECT id, user_id, scenario_id, current_scene_id, turn_count,
	completed_scene_ids, completion_reasons, status, created_at, updated_at
FROM sessions
WHERE id = ?
`, sessionID)

	var (
		progress      domain.SessionProgress
		completedRaw  string
		reasonsRaw    string
		status        string
		createdMillis int64
		updatedMillis int64
	)
	err := row.Scan(
		&progress.ID,
		&progress.UserID,
		&progress.ScenarioID,
		&progress.CurrentSceneID,
		&progress.TurnCount,
		&completedRaw,
		&reasonsRaw,
		&status,
		&createdMillis,
		&updatedMillis,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.SessionProgress{}, storage.ErrNotFound
	}
	if err != nil {
		return domain.SessionProgress{}, fmt.Errorf("get session: %w", err)
	}

	progress.CompletedSceneIDs, err = decodeStrings(completedRaw)
	if err != nil {
		return domain.SessionProgress{}, err
	}
	reasons, err := decodeStrings(reasonsRaw)
	if err != nil {
		return domain.SessionProgress{}, err
	}
	progress.CompletionReasons = make([]domain.CompletionReason, 0, len(reasons))
	for _, reason := range reasons {
		progress.CompletionReasons = append(progress.CompletionReasons, domain.CompletionReason(reason))
	}
	progress.Status = domain.SessionStatus(status)
	progress.CreatedAt = fromMillis(createdMillis)
	progress.UpdatedAt = fromMillis(updatedMillis)

	return progress, nil
}
