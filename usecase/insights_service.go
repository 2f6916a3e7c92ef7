package usecase

import (
	"context"

	"go.uber.org/zap"

	"github.com/satriahrh/nutriplanner/domain"
	"github.com/satriahrh/nutriplanner/utils/log"
)

const (
	MsgEmptyQuestion   = "Please enter a question."
	MsgInsightsSuccess = "Here's what GeminiAI says:"
)

// InsightsService answers free-form nutrition questions. It keeps no state.
type InsightsService struct {
	llm domain.Llm
}

func NewInsightsService(llm domain.Llm) *InsightsService {
	return &InsightsService{llm: llm}
}

// Ask sends the question as-is. Blank questions never reach the model.
func (s *InsightsService) Ask(ctx context.Context, question string) Outcome {
	if isBlank(question) {
		return warning(MsgEmptyQuestion)
	}
	return s.complete(ctx, BuildPrompt(TemplateVerbatim, question))
}

// Advanced asks the fixed question about current nutrition trends.
func (s *InsightsService) Advanced(ctx context.Context) Outcome {
	return s.complete(ctx, BuildPrompt(TemplateAdvanced, ""))
}

func (s *InsightsService) complete(ctx context.Context, prompt string) Outcome {
	text, err := s.llm.Generate(ctx, prompt)
	if err != nil {
		log.WithCtx(ctx).Error("insights completion failed", zap.Error(err))
		return failure(err)
	}

	log.WithCtx(ctx).Debug("insights completed", zap.Int("prompt_len", len(prompt)), zap.Int("completion_len", len(text)))
	return Outcome{
		Level:      LevelSuccess,
		Message:    MsgInsightsSuccess,
		Body:       FormatResponse(InsightsTitle, text),
		Completion: text,
	}
}
