package session

import (
	"context"
	"fmt"
	"log"
	"strings"

	apperrors "github.com/stagecraft-sim/stagecraft/internal/errors"
	"github.com/stagecraft-sim/stagecraft/internal/errors/i18n"
	"github.com/stagecraft-sim/stagecraft/internal/simulation/ai"
	"github.com/stagecraft-sim/stagecraft/internal/simulation/domain"
)

// SubmitSentinel is the reserved message that asks to close the current
// scene. It runs through the same per-session pipeline as a conversational
// message so it cannot race with one, but it never counts as a turn.
const SubmitSentinel = "SUBMIT_FOR_GRADING"

// Reserved non-conversational tokens. Neither increments the turn count.
const (
	tokenBegin = "begin"
	tokenHelp  = "help"
)

const helpText = "Commands: \"begin\" repeats the scene briefing, \"help\" shows this reference, " +
	"\"@Name message\" addresses a specific persona, and \"" + SubmitSentinel + "\" submits the scene for grading. " +
	"Any other message is sent to the scene's lead persona."

// fallbackReply is returned when the persona gateway stays unavailable after
// retries. The learner's turn is still recorded.
var fallbackReply = i18n.Message("", string(apperrors.CodePersonaUnavailable))

// SendMessage routes one learner message through the current scene. It
// serializes with every other mutating call for the session.
func (s *Service) SendMessage(ctx context.Context, sessionID, sceneID, text string) (MessageResult, error) {
	release, ok := s.locks.acquire(sessionID)
	if !ok {
		return MessageResult{}, apperrors.New(apperrors.CodeSessionBusy, "another request for this session is in flight")
	}
	defer release()
	return s.routeLocked(ctx, sessionID, sceneID, text)
}

// SubmitForGrading closes the current scene through the sentinel path. The
// result has the same shape as SendMessage.
func (s *Service) SubmitForGrading(ctx context.Context, sessionID string) (MessageResult, error) {
	release, ok := s.locks.acquire(sessionID)
	if !ok {
		return MessageResult{}, apperrors.New(apperrors.CodeSessionBusy, "another request for this session is in flight")
	}
	defer release()
	return s.routeLocked(ctx, sessionID, "", SubmitSentinel)
}

// routeLocked is the single entry point for conversational traffic. The
// caller holds the session lock.
func (s *Service) routeLocked(ctx context.Context, sessionID, sceneID, text string) (MessageResult, error) {
	progress, err := s.loadSession(ctx, sessionID)
	if err != nil {
		return MessageResult{}, err
	}
	if progress.Status.Terminal() || progress.Status == domain.StatusAwaitingGrading {
		return MessageResult{}, apperrors.Newf(apperrors.CodeSessionClosed, "session is %s and accepts no further messages", progress.Status)
	}
	if progress.Status != domain.StatusInProgress {
		return MessageResult{}, apperrors.Newf(apperrors.CodeStateInvariant, "session is %s", progress.Status)
	}
	if sceneID != "" && sceneID != progress.CurrentSceneID {
		return MessageResult{}, apperrors.Newf(apperrors.CodeSceneMismatch, "message targets scene %s but the session is in scene %s", sceneID, progress.CurrentSceneID)
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return MessageResult{}, apperrors.New(apperrors.CodeMessageEmpty, "message is empty")
	}

	scenario, scene, err := s.loadScene(ctx, progress)
	if err != nil {
		return MessageResult{}, err
	}

	switch {
	case text == SubmitSentinel:
		return s.handleSubmit(ctx, progress, scenario, scene)
	case strings.EqualFold(text, tokenBegin):
		intro := scene.Intro()
		return MessageResult{
			ReplyText: fmt.Sprintf("Scene: %s. %s Goal: %s", intro.Title, intro.Description, intro.UserGoal),
			TurnCount: progress.TurnCount,
		}, nil
	case strings.EqualFold(text, tokenHelp):
		return MessageResult{ReplyText: helpText, TurnCount: progress.TurnCount}, nil
	}

	persona, dispatchText, err := resolveAddressee(scene, text)
	if err != nil {
		return MessageResult{}, err
	}
	return s.dispatch(ctx, progress, scenario, scene, persona, text, dispatchText)
}

// resolveAddressee picks the responding persona. A leading @mention must
// name a cast member of the current scene; without a mention the scene's
// first cast member responds.
func resolveAddressee(scene domain.Scene, text string) (domain.Persona, string, error) {
	if !strings.HasPrefix(text, "@") {
		return scene.DefaultPersona(), text, nil
	}
	mention := text
	rest := ""
	if i := strings.IndexAny(text, " \t\n"); i >= 0 {
		mention, rest = text[:i], strings.TrimSpace(text[i:])
	}
	name := strings.TrimPrefix(mention, "@")
	persona, err := scene.PersonaByName(name)
	if err != nil {
		return domain.Persona{}, "", apperrors.Newf(apperrors.CodeInvalidMention, "persona %q is not part of this scene", name)
	}
	if rest == "" {
		return domain.Persona{}, "", apperrors.New(apperrors.CodeMessageEmpty, "message after mention is empty")
	}
	return persona, rest, nil
}

// dispatch applies one conversational turn: the count is incremented and
// persisted before the gateway call, the learner's turn and the reply are
// appended, and scene completion is evaluated on the updated state.
func (s *Service) dispatch(ctx context.Context, progress domain.SessionProgress, scenario domain.Scenario, scene domain.Scene, persona domain.Persona, rawText, dispatchText string) (MessageResult, error) {
	history, err := s.turns.ListSceneTurns(ctx, progress.ID, scene.ID)
	if err != nil {
		return MessageResult{}, fmt.Errorf("load scene transcript: %w", err)
	}

	progress.TurnCount++
	progress.UpdatedAt = s.now().UTC()
	if err := s.sessions.PutSession(ctx, progress); err != nil {
		return MessageResult{}, fmt.Errorf("persist turn count: %w", err)
	}

	if _, err := s.turns.AppendTurn(ctx, domain.Turn{
		SessionID: progress.ID,
		SceneID:   scene.ID,
		Sender:    domain.SenderUser,
		Content:   rawText,
		Timestamp: s.now().UTC(),
	}); err != nil {
		return MessageResult{}, fmt.Errorf("append user turn: %w", err)
	}

	reply := s.personaReply(ctx, persona, s.sceneContext(scenario, scene), history, dispatchText)

	if _, err := s.turns.AppendTurn(ctx, domain.Turn{
		SessionID: progress.ID,
		SceneID:   scene.ID,
		Sender:    domain.SenderPersona,
		PersonaID: persona.ID,
		Content:   reply,
		Timestamp: s.now().UTC(),
	}); err != nil {
		return MessageResult{}, fmt.Errorf("append persona turn: %w", err)
	}

	result := MessageResult{
		ReplyText:   reply,
		PersonaName: persona.Name,
		TurnCount:   progress.TurnCount,
	}

	outcome, err := s.evaluate(ctx, progress, scenario, scene)
	if err != nil {
		return MessageResult{}, err
	}
	if outcome == outcomeNotComplete {
		return result, nil
	}
	return s.advance(ctx, progress, scenario, scene, outcome.reason(), result)
}

// personaReply calls the gateway under the retry budget and degrades to the
// fallback reply on exhaustion so the learner is never silently stalled.
func (s *Service) personaReply(ctx context.Context, persona domain.Persona, scene ai.SceneContext, history []domain.Turn, message string) string {
	var reply string
	err := ai.Retry(ctx, s.retry, func(attemptCtx context.Context) error {
		var replyErr error
		reply, replyErr = s.gateway.Reply(attemptCtx, persona, scene, history, message)
		return replyErr
	})
	if err != nil {
		log.Printf("persona reply degraded persona_id=%s error=%v", persona.ID,
			apperrors.Wrap(apperrors.CodePersonaUnavailable, "persona reply", err))
		return fallbackReply
	}
	return reply
}
