package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/stagecraft-sim/stagecraft/internal/simulation/domain"
)

// AppendTurn writes a turn with the next free index for its session and
// returns the assigned index. The caller serializes writes per session, so a
// read-then-insert inside one transaction is sufficient.
func (s *Store) AppendTurn(ctx context.Context, turn domain.Turn) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if s == nil || s.sqlDB == nil {
		return 0, fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(turn.SessionID) == "" {
		return 0, fmt.Errorf("session id is required")
	}
	if strings.TrimSpace(turn.SceneID) == "" {
		return 0, fmt.Errorf("scene id is required")
	}
	if !turn.Sender.IsValid() {
		return 0, fmt.Errorf("sender %q is invalid", turn.Sender)
	}
	if turn.Sender == domain.SenderPersona && strings.TrimSpace(turn.PersonaID) == "" {
		return 0, fmt.Errorf("persona id is required for persona turns")
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin append turn: %w", err)
	}

	var nextIndex int
	row := tx.QueryRowContext(ctx,
		"SELECT COALESCE(MAX(turn_index) + 1, 0) FROM turns WHERE session_id = ?",
		turn.SessionID,
	)
	if err := row.Scan(&nextIndex); err != nil {
		_ = tx.Rollback()
		return 0, fmt.Errorf("next turn index: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
INSERT INTO turns (session_id, turn_index, scene_id, sender, persona_id, content, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
`,
		turn.SessionID,
		nextIndex,
		turn.SceneID,
		string(turn.Sender),
		turn.PersonaID,
		turn.Content,
		toMillis(turn.Timestamp),
	); err != nil {
		_ = tx.Rollback()
		return 0, fmt.Errorf("append turn: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit append turn: %w", err)
	}
	return nextIndex, nil
}

// ListTurns returns all turns for a session ordered by turn index.
func (s *Store) ListTurns(ctx context.Context, sessionID string) ([]domain.Turn, error) {
	return s.listTurns(ctx, sessionID, "")
}

// ListSceneTurns returns a session's turns for one scene ordered by index.
func (s *Store) ListSceneTurns(ctx context.Context, sessionID, sceneID string) ([]domain.Turn, error) {
	sceneID = strings.TrimSpace(sceneID)
	if sceneID == "" {
		return nil, fmt.Errorf("scene id is required")
	}
	return s.listTurns(ctx, sessionID, sceneID)
}

func (s *Store) listTurns(ctx context.Context, sessionID, sceneID string) ([]domain.Turn, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, fmt.Errorf("session id is required")
	}

	query := `
SELECT session_id, turn_index, scene_id, sender, persona_id, content, created_at
FROM turns
WHERE session_id = ?`
	args := []any{sessionID}
	if sceneID != "" {
		query += " AND scene_id = ?"
		args = append(args, sceneID)
	}
	query += " ORDER BY turn_index ASC"

	rows, err := s.sqlDB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list turns: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var turns []domain.Turn
	for rows.Next() {
		turn, err := scanTurn(rows)
		if err != nil {
			return nil, err
		}
		turns = append(turns, turn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate turns: %w", err)
	}
	return turns, nil
}

func scanTurn(rows *sql.Rows) (domain.Turn, error) {
	var (
		turn          domain.Turn
		sender        string
		createdMillis int64
	)
	if err := rows.Scan(
		&turn.SessionID,
		&turn.TurnIndex,
		&turn.SceneID,
		&sender,
		&turn.PersonaID,
		&turn.Content,
		&createdMillis,
	); err != nil {
		return domain.Turn{}, fmt.Errorf("scan turn: %w", err)
	}
	turn.Sender = domain.Sender(sender)
	turn.Timestamp = fromMillis(createdMillis)
	return turn, nil
}
