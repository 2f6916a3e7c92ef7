package http

import (
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/satriahrh/nutriplanner/domain"
	"github.com/satriahrh/nutriplanner/usecase"
	"github.com/satriahrh/nutriplanner/utils/log"
)

const (
	// Audio settings
	MaxAudioDuration = 60 * time.Second
	audioChunkSize   = 4096

	DownloadFilename = "meal_plan.txt"
)

type PageHandler struct {
	insights    *usecase.InsightsService
	planner     *usecase.MealPlanService
	sessions    *Sessions
	store       domain.SessionStore
	synthesizer domain.Synthesizer
	hasher      domain.Hasher
}

// NewPageHandler wires the pages. synthesizer may be nil to disable read aloud.
func NewPageHandler(
	insights *usecase.InsightsService,
	planner *usecase.MealPlanService,
	sessions *Sessions,
	store domain.SessionStore,
	synthesizer domain.Synthesizer,
	hasher domain.Hasher,
) *PageHandler {
	return &PageHandler{
		insights:    insights,
		planner:     planner,
		sessions:    sessions,
		store:       store,
		synthesizer: synthesizer,
		hasher:      hasher,
	}
}

type insightsPage struct {
	Title    string
	Question string
	Outcome  *usecase.Outcome
}

type mealPlanPage struct {
	Title        string
	Preferences  string
	History      []string
	Outcome      *usecase.Outcome
	CanDownload  bool
	VoiceEnabled bool
	AudioEnabled bool
}

type TranscribeResponse struct {
	Success bool   `json:"success"`
	Level   string `json:"level"`
	Message string `json:"message"`
	Text    string `json:"text,omitempty"`
}

// Register mounts the page routes behind the session middleware.
func (h *PageHandler) Register(g *echo.Group) {
	g.GET("/", h.InsightsPage)
	g.POST("/insights", h.AskInsights)
	g.POST("/insights/advanced", h.AdvancedInsights)

	g.GET("/meal-plan", h.MealPlanPage)
	g.POST("/meal-plan", h.GenerateMealPlan)
	g.POST("/meal-plan/preferences", h.SavePreferences)
	g.POST("/meal-plan/transcribe", h.TranscribeUpload)
	g.GET("/meal-plan/download", h.DownloadMealPlan)
	g.GET("/meal-plan/audio", h.MealPlanAudio)

	g.POST("/session/reset", h.ResetSession)
}

func (h *PageHandler) InsightsPage(c echo.Context) error {
	return c.Render(http.StatusOK, "insights", insightsPage{Title: usecase.InsightsTitle})
}

func (h *PageHandler) AskInsights(c echo.Context) error {
	question := c.FormValue("question")
	out := h.insights.Ask(c.Request().Context(), question)
	return c.Render(http.StatusOK, "insights", insightsPage{
		Title:    usecase.InsightsTitle,
		Question: question,
		Outcome:  &out,
	})
}

func (h *PageHandler) AdvancedInsights(c echo.Context) error {
	out := h.insights.Advanced(c.Request().Context())
	return c.Render(http.StatusOK, "insights", insightsPage{Title: usecase.InsightsTitle, Outcome: &out})
}

func (h *PageHandler) MealPlanPage(c echo.Context) error {
	return h.renderMealPlan(c, nil, nil)
}

func (h *PageHandler) GenerateMealPlan(c echo.Context) error {
	preferences := c.FormValue("preferences")
	out := h.planner.Generate(c.Request().Context(), SessionID(c), preferences)
	if out.Level == usecase.LevelSuccess {
		return h.renderMealPlan(c, &out, nil)
	}
	// keep what was typed in the field even though the session did not change
	return h.renderMealPlan(c, &out, &preferences)
}

func (h *PageHandler) SavePreferences(c echo.Context) error {
	out := h.planner.UpdatePreferences(c.Request().Context(), SessionID(c), c.FormValue("preferences"))
	return h.renderMealPlan(c, &out, nil)
}

// TranscribeUpload accepts a one-shot recording, either as a multipart form
// field "audio" (answered with the page) or as a raw audio body (answered
// with JSON).
func (h *PageHandler) TranscribeUpload(c echo.Context) error {
	contentType := c.Request().Header.Get(echo.HeaderContentType)

	if strings.HasPrefix(contentType, echo.MIMEMultipartForm) {
		fh, err := c.FormFile("audio")
		if err != nil {
			out := usecase.Outcome{Level: usecase.LevelWarning, Message: "Please choose an audio file."}
			return h.renderMealPlan(c, &out, nil)
		}
		f, err := fh.Open()
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "Failed to read upload")
		}
		defer f.Close()

		_, out := h.transcribe(c, f)
		return h.renderMealPlan(c, &out, nil)
	}

	if !strings.HasPrefix(contentType, "audio/") && !strings.HasPrefix(contentType, echo.MIMEOctetStream) {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid content type. Expected audio/* or application/octet-stream")
	}

	text, out := h.transcribe(c, c.Request().Body)
	return c.JSON(http.StatusOK, TranscribeResponse{
		Success: out.Level == usecase.LevelSuccess,
		Level:   string(out.Level),
		Message: out.Message,
		Text:    text,
	})
}

func (h *PageHandler) transcribe(c echo.Context, body io.Reader) (string, usecase.Outcome) {
	ctx, cancel := context.WithTimeout(c.Request().Context(), MaxAudioDuration)
	defer cancel()

	audio := make(chan []byte, 100)
	go streamChunks(ctx, body, audio)

	return h.planner.Transcribe(ctx, SessionID(c), audio)
}

// streamChunks copies body into audio in fixed-size chunks and closes audio at EOF.
func streamChunks(ctx context.Context, body io.Reader, audio chan<- []byte) {
	defer close(audio)

	chunk := make([]byte, audioChunkSize)
	for {
		n, err := body.Read(chunk)
		if n > 0 {
			chunkCopy := make([]byte, n)
			copy(chunkCopy, chunk[:n])
			select {
			case audio <- chunkCopy:
			case <-ctx.Done():
				return
			}
		}
		if err != nil {
			if err != io.EOF {
				log.WithCtx(ctx).Warn("reading audio chunk", zap.Error(err))
			}
			return
		}
	}
}

func (h *PageHandler) DownloadMealPlan(c echo.Context) error {
	plan, ok := h.planner.Download(SessionID(c))
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "No meal plan generated yet")
	}

	etag := h.hasher.Hash([]byte(plan))
	res := c.Response()
	res.Header().Set("ETag", etag)
	if c.Request().Header.Get("If-None-Match") == etag {
		return c.NoContent(http.StatusNotModified)
	}

	res.Header().Set(echo.HeaderContentDisposition, `attachment; filename="`+DownloadFilename+`"`)
	return c.Blob(http.StatusOK, echo.MIMETextPlainCharsetUTF8, []byte(plan))
}

func (h *PageHandler) MealPlanAudio(c echo.Context) error {
	if h.synthesizer == nil {
		return echo.NewHTTPError(http.StatusNotFound, "Read aloud is not enabled")
	}
	plan, ok := h.planner.Download(SessionID(c))
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "No meal plan generated yet")
	}

	audio, err := h.synthesizer.Synthesize(c.Request().Context(), plan)
	if err != nil {
		log.WithCtx(c.Request().Context()).Error("synthesizing meal plan", zap.Error(err))
		return echo.NewHTTPError(http.StatusBadGateway, "Error: "+err.Error())
	}
	return c.Blob(http.StatusOK, "audio/mpeg", audio)
}

func (h *PageHandler) ResetSession(c echo.Context) error {
	h.sessions.End(c)
	return c.Redirect(http.StatusSeeOther, "/meal-plan")
}

// HealthCheck reports liveness.
func HealthCheck(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
		"service":   "nutriplanner",
	})
}

func (h *PageHandler) renderMealPlan(c echo.Context, out *usecase.Outcome, typed *string) error {
	sess, _ := h.store.Get(SessionID(c))
	page := mealPlanPage{
		Title:        usecase.MealPlanTitle,
		Preferences:  sess.DietPreferences,
		History:      sess.SearchHistory,
		Outcome:      out,
		CanDownload:  sess.LastMealPlan != "",
		VoiceEnabled: h.planner.VoiceEnabled(),
		AudioEnabled: h.synthesizer != nil,
	}
	if typed != nil {
		page.Preferences = *typed
	}
	return c.Render(http.StatusOK, "meal_plan", page)
}

// SessionID returns the id the session middleware bound to c.
func SessionID(c echo.Context) string {
	id, _ := c.Get(SessionIDKey).(string)
	return id
}
