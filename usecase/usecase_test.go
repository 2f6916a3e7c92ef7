package usecase_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/satriahrh/nutriplanner/adapters/session"
	"github.com/satriahrh/nutriplanner/domain"
	"github.com/satriahrh/nutriplanner/usecase"
)

type stubLlm struct {
	reply   string
	err     error
	prompts []string
}

func (s *stubLlm) Generate(_ context.Context, prompt string) (string, error) {
	s.prompts = append(s.prompts, prompt)
	if s.err != nil {
		return "", s.err
	}
	return s.reply, nil
}

type stubTranscriber struct {
	text string
	err  error
}

func (s *stubTranscriber) Transcribe(_ context.Context, audio <-chan []byte) (string, error) {
	for range audio {
	}
	return s.text, s.err
}

func audio(chunks ...string) <-chan []byte {
	ch := make(chan []byte, len(chunks))
	for _, c := range chunks {
		ch <- []byte(c)
	}
	close(ch)
	return ch
}

func TestBuildPrompt(t *testing.T) {
	for _, q := range []string{"Is oatmeal healthy?", "  spaced  ", "<b>raw</b> & unescaped"} {
		assert.Equal(t, q, usecase.BuildPrompt(usecase.TemplateVerbatim, q))

		mealPlan := usecase.BuildPrompt(usecase.TemplateMealPlan, q)
		assert.True(t, strings.HasPrefix(mealPlan, usecase.MealPlanPrefix))
		assert.Contains(t, mealPlan, q)
		assert.Contains(t, mealPlan, "grocery list")
	}

	assert.Equal(t, usecase.AdvancedPrompt, usecase.BuildPrompt(usecase.TemplateAdvanced, "ignored"))
}

func TestFormatResponse(t *testing.T) {
	html := usecase.FormatResponse(usecase.InsightsTitle, "S <i>kept</i>")
	assert.Equal(t,
		"<div class='response-box'><strong>Nutrition Insights:</strong><br><br>S <i>kept</i></div>",
		string(html))
}

func TestAskBlankNeverCallsModel(t *testing.T) {
	llm := &stubLlm{reply: "S"}
	svc := usecase.NewInsightsService(llm)

	for _, q := range []string{"", " ", "\n\t  "} {
		out := svc.Ask(context.Background(), q)
		assert.Equal(t, usecase.LevelWarning, out.Level)
		assert.Equal(t, usecase.MsgEmptyQuestion, out.Message)
		assert.Empty(t, out.Body)
	}
	assert.Empty(t, llm.prompts)
}

func TestAskRendersCompletionVerbatim(t *testing.T) {
	llm := &stubLlm{reply: "S"}
	svc := usecase.NewInsightsService(llm)

	out := svc.Ask(context.Background(), "Is kale good?")
	require.Equal(t, usecase.LevelSuccess, out.Level)
	assert.Equal(t, []string{"Is kale good?"}, llm.prompts)
	assert.Contains(t, string(out.Body), "<br><br>S</div>")
	assert.Equal(t, "S", out.Completion)
}

func TestAskSurfacesProviderError(t *testing.T) {
	llm := &stubLlm{err: errors.New("403 API key not valid")}
	svc := usecase.NewInsightsService(llm)

	out := svc.Ask(context.Background(), "Is kale good?")
	assert.Equal(t, usecase.LevelError, out.Level)
	assert.Equal(t, "Error: 403 API key not valid", out.Message)
}

func TestAdvancedUsesFixedPrompt(t *testing.T) {
	llm := &stubLlm{reply: "trends"}
	svc := usecase.NewInsightsService(llm)

	out := svc.Advanced(context.Background())
	assert.Equal(t, usecase.LevelSuccess, out.Level)
	assert.Equal(t, []string{usecase.AdvancedPrompt}, llm.prompts)
}

func newPlanner(llm domain.Llm, tr domain.Transcriber) (*usecase.MealPlanService, *session.MemoryStore, string) {
	store := session.NewMemoryStore()
	sess := store.Create()
	return usecase.NewMealPlanService(llm, tr, store), store, sess.ID
}

func TestGenerateBlankIsWarningOnly(t *testing.T) {
	llm := &stubLlm{reply: "S"}
	svc, store, id := newPlanner(llm, nil)

	out := svc.Generate(context.Background(), id, "   ")
	assert.Equal(t, usecase.LevelWarning, out.Level)
	assert.Empty(t, llm.prompts)

	sess, _ := store.Get(id)
	assert.Empty(t, sess.SearchHistory)
	assert.Empty(t, sess.DietPreferences)
}

func TestGenerateHistoryInInputOrder(t *testing.T) {
	llm := &stubLlm{reply: "S"}
	svc, store, id := newPlanner(llm, nil)

	var inputs []string
	for i := 0; i < 5; i++ {
		q := fmt.Sprintf("preference %d", i)
		inputs = append(inputs, q)
		out := svc.Generate(context.Background(), id, q)
		require.Equal(t, usecase.LevelSuccess, out.Level)
	}

	sess, _ := store.Get(id)
	assert.Equal(t, inputs, sess.SearchHistory)
	assert.Equal(t, "preference 4", sess.DietPreferences)
}

func TestGenerateDownloadRoundTrip(t *testing.T) {
	reply := "Monday:\n  oats & berries <ok>\nGrocery: 🍓"
	llm := &stubLlm{reply: reply}
	svc, _, id := newPlanner(llm, nil)

	_, ok := svc.Download(id)
	assert.False(t, ok)

	out := svc.Generate(context.Background(), id, "vegan")
	require.Equal(t, usecase.LevelSuccess, out.Level)
	assert.Contains(t, string(out.Body), reply)

	payload, ok := svc.Download(id)
	require.True(t, ok)
	assert.Equal(t, []byte(reply), []byte(payload))
}

func TestGenerateFailureLeavesSessionUnchanged(t *testing.T) {
	llm := &stubLlm{reply: "first plan"}
	svc, store, id := newPlanner(llm, nil)

	require.Equal(t, usecase.LevelSuccess, svc.Generate(context.Background(), id, "vegan").Level)
	before, _ := store.Get(id)

	llm.err = errors.New("quota exceeded")
	out := svc.Generate(context.Background(), id, "keto")
	assert.Equal(t, usecase.LevelError, out.Level)
	assert.Contains(t, out.Message, "quota exceeded")

	after, _ := store.Get(id)
	assert.Equal(t, before, after)
}

func TestGenerateUnknownSession(t *testing.T) {
	llm := &stubLlm{reply: "S"}
	svc, _, _ := newPlanner(llm, nil)

	out := svc.Generate(context.Background(), "missing", "vegan")
	assert.Equal(t, usecase.LevelError, out.Level)
	assert.Empty(t, llm.prompts)
}

func TestUpdatePreferences(t *testing.T) {
	svc, store, id := newPlanner(&stubLlm{}, nil)

	out := svc.UpdatePreferences(context.Background(), id, "gluten free")
	assert.Equal(t, usecase.LevelSuccess, out.Level)

	sess, _ := store.Get(id)
	assert.Equal(t, "gluten free", sess.DietPreferences)
}

func TestTranscribeUpdatesPreferences(t *testing.T) {
	svc, store, id := newPlanner(&stubLlm{}, &stubTranscriber{text: "low sodium"})

	text, out := svc.Transcribe(context.Background(), id, audio("a", "b"))
	assert.Equal(t, usecase.LevelSuccess, out.Level)
	assert.Equal(t, "low sodium", text)

	sess, _ := store.Get(id)
	assert.Equal(t, "low sodium", sess.DietPreferences)
}

func TestTranscribeFailuresNeverMutatePreferences(t *testing.T) {
	cases := []struct {
		name  string
		err   error
		level usecase.Level
		msg   string
	}{
		{"unrecognized", domain.ErrUnrecognizedAudio, usecase.LevelWarning, usecase.MsgUnrecognized},
		{"unreachable", fmt.Errorf("%w: dial tcp: timeout", domain.ErrServiceUnreachable), usecase.LevelError, "dial tcp: timeout"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc, store, id := newPlanner(&stubLlm{}, &stubTranscriber{err: tc.err})
			require.NoError(t, store.SetPreferences(id, "mediterranean"))

			text, out := svc.Transcribe(context.Background(), id, audio("noise"))
			assert.Empty(t, text)
			assert.Equal(t, tc.level, out.Level)
			assert.Contains(t, out.Message, tc.msg)

			sess, _ := store.Get(id)
			assert.Equal(t, "mediterranean", sess.DietPreferences)
		})
	}
}

func TestTranscribeDisabled(t *testing.T) {
	svc, _, id := newPlanner(&stubLlm{}, nil)
	assert.False(t, svc.VoiceEnabled())

	_, out := svc.Transcribe(context.Background(), id, audio())
	assert.Equal(t, usecase.LevelError, out.Level)
}
