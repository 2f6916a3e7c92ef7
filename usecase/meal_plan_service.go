package usecase

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/satriahrh/nutriplanner/domain"
	"github.com/satriahrh/nutriplanner/utils/log"
)

const (
	MsgEmptyPreferences = "Please enter your dietary preferences."
	MsgMealPlanSuccess  = "Your meal plan is ready."
	MsgPreferencesSaved = "Preferences saved."
	MsgUnrecognized     = "Sorry, I could not understand the audio."
	MsgTranscribed      = "Got it! Your preferences were updated from speech."
)

// MealPlanService drives the meal planner page and owns all session mutation.
type MealPlanService struct {
	llm         domain.Llm
	transcriber domain.Transcriber
	store       domain.SessionStore
}

// NewMealPlanService wires the planner. transcriber may be nil when voice
// input is disabled.
func NewMealPlanService(llm domain.Llm, transcriber domain.Transcriber, store domain.SessionStore) *MealPlanService {
	return &MealPlanService{llm: llm, transcriber: transcriber, store: store}
}

func (s *MealPlanService) VoiceEnabled() bool {
	return s.transcriber != nil
}

// UpdatePreferences records an edit of the preferences field.
func (s *MealPlanService) UpdatePreferences(ctx context.Context, sessionID, preferences string) Outcome {
	if err := s.store.SetPreferences(sessionID, preferences); err != nil {
		return failure(err)
	}
	log.WithCtx(ctx).Debug("preferences updated", zap.Int("len", len(preferences)))
	return Outcome{Level: LevelSuccess, Message: MsgPreferencesSaved}
}

// Generate requests a week-long plan. On success the preferences are stored,
// the query is appended to history and the plan becomes downloadable. On any
// failure the session is left untouched.
func (s *MealPlanService) Generate(ctx context.Context, sessionID, preferences string) Outcome {
	if isBlank(preferences) {
		return warning(MsgEmptyPreferences)
	}
	if _, ok := s.store.Get(sessionID); !ok {
		return failure(domain.ErrSessionNotFound)
	}

	text, err := s.llm.Generate(ctx, BuildPrompt(TemplateMealPlan, preferences))
	if err != nil {
		log.WithCtx(ctx).Error("meal plan completion failed", zap.Error(err))
		return failure(err)
	}

	if err := s.commit(sessionID, preferences, text); err != nil {
		return failure(err)
	}

	log.WithCtx(ctx).Info("meal plan generated", zap.Int("completion_len", len(text)))
	return Outcome{
		Level:      LevelSuccess,
		Message:    MsgMealPlanSuccess,
		Body:       FormatResponse(MealPlanTitle, text),
		Completion: text,
	}
}

func (s *MealPlanService) commit(sessionID, preferences, plan string) error {
	if err := s.store.SetPreferences(sessionID, preferences); err != nil {
		return err
	}
	if err := s.store.AppendHistory(sessionID, preferences); err != nil {
		return err
	}
	return s.store.SetLastMealPlan(sessionID, plan)
}

// Transcribe captures one utterance and makes it the current preferences.
// Failed transcriptions leave the stored preferences unchanged.
func (s *MealPlanService) Transcribe(ctx context.Context, sessionID string, audio <-chan []byte) (string, Outcome) {
	if s.transcriber == nil {
		return "", Outcome{Level: LevelError, Message: "Error: voice input is not configured"}
	}

	text, err := s.transcriber.Transcribe(ctx, audio)
	switch {
	case errors.Is(err, domain.ErrUnrecognizedAudio):
		log.WithCtx(ctx).Info("speech not recognized", zap.Error(err))
		return "", warning(MsgUnrecognized)
	case err != nil:
		log.WithCtx(ctx).Error("transcription failed", zap.Error(err))
		return "", failure(fmt.Errorf("could not request results from the speech service: %w", err))
	}

	if err := s.store.SetPreferences(sessionID, text); err != nil {
		return "", failure(err)
	}
	return text, Outcome{Level: LevelSuccess, Message: MsgTranscribed}
}

// Download returns the last generated plan of the session.
func (s *MealPlanService) Download(sessionID string) (string, bool) {
	sess, ok := s.store.Get(sessionID)
	if !ok || sess.LastMealPlan == "" {
		return "", false
	}
	return sess.LastMealPlan, true
}
