package websocket_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	handler "github.com/satriahrh/nutriplanner/adapters/http"
	"github.com/satriahrh/nutriplanner/adapters/session"
	voice "github.com/satriahrh/nutriplanner/adapters/websocket"
	"github.com/satriahrh/nutriplanner/domain"
	"github.com/satriahrh/nutriplanner/usecase"
)

type noLlm struct{}

func (noLlm) Generate(context.Context, string) (string, error) { return "", nil }

// collectingTranscriber joins every chunk it receives.
type collectingTranscriber struct {
	err error
}

func (c *collectingTranscriber) Transcribe(ctx context.Context, audio <-chan []byte) (string, error) {
	var b strings.Builder
	for {
		select {
		case chunk, ok := <-audio:
			if !ok {
				if c.err != nil {
					return "", c.err
				}
				return b.String(), nil
			}
			b.Write(chunk)
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
}

func newServer(t *testing.T, tr domain.Transcriber) (*httptest.Server, *session.MemoryStore, string) {
	t.Helper()
	store := session.NewMemoryStore()
	sess := store.Create()
	planner := usecase.NewMealPlanService(noLlm{}, tr, store)

	e := echo.New()
	e.GET("/meal-plan/voice", voice.NewVoiceHandler(planner).Handler, func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Set(handler.SessionIDKey, sess.ID)
			return next(c)
		}
	})
	server := httptest.NewServer(e)
	t.Cleanup(server.Close)
	return server, store, sess.ID
}

func dial(t *testing.T, server *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/meal-plan/voice"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestVoiceCaptureUpdatesPreferences(t *testing.T) {
	server, store, id := newServer(t, &collectingTranscriber{})
	conn := dial(t, server)

	require.NoError(t, conn.WriteMessage(websocket.BinaryMessage, []byte("high ")))
	require.NoError(t, conn.WriteMessage(websocket.BinaryMessage, []byte("protein")))
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(voice.StopMessage)))

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var result voice.Result
	require.NoError(t, conn.ReadJSON(&result))

	assert.Equal(t, voice.TypeTranscript, result.Type)
	assert.Equal(t, "high protein", result.Text)

	sess, _ := store.Get(id)
	assert.Equal(t, "high protein", sess.DietPreferences)
}

func TestVoiceCaptureUnrecognized(t *testing.T) {
	server, store, id := newServer(t, &collectingTranscriber{err: domain.ErrUnrecognizedAudio})
	require.NoError(t, store.SetPreferences(id, "paleo"))
	conn := dial(t, server)

	require.NoError(t, conn.WriteMessage(websocket.BinaryMessage, []byte("static")))
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(voice.StopMessage)))

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var result voice.Result
	require.NoError(t, conn.ReadJSON(&result))

	assert.Equal(t, voice.TypeWarning, result.Type)
	assert.Equal(t, usecase.MsgUnrecognized, result.Message)

	sess, _ := store.Get(id)
	assert.Equal(t, "paleo", sess.DietPreferences)
}

func TestVoiceDisabled(t *testing.T) {
	server, _, _ := newServer(t, nil)

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/meal-plan/voice"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, 404, resp.StatusCode)
}

func TestVoiceCaptureBehindSessionMiddleware(t *testing.T) {
	store := session.NewMemoryStore()
	planner := usecase.NewMealPlanService(noLlm{}, &collectingTranscriber{}, store)
	sessions := handler.NewSessions(store, []byte("test-secret"), time.Hour, "nutrition_session", false)

	e := echo.New()
	site := e.Group("", sessions.Middleware)
	site.GET("/whoami", func(c echo.Context) error {
		return c.String(http.StatusOK, handler.SessionID(c))
	})
	site.GET("/meal-plan/voice", voice.NewVoiceHandler(planner).Handler)
	server := httptest.NewServer(e)
	t.Cleanup(server.Close)

	resp, err := http.Get(server.URL + "/whoami")
	require.NoError(t, err)
	body := new(strings.Builder)
	_, err = io.Copy(body, resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	id := body.String()
	require.NotEmpty(t, id)
	require.NotEmpty(t, resp.Cookies())

	header := http.Header{}
	cookie := resp.Cookies()[0]
	header.Set("Cookie", cookie.Name+"="+cookie.Value)
	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/meal-plan/voice"
	conn, _, err := websocket.DefaultDialer.Dial(url, header)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	require.NoError(t, conn.WriteMessage(websocket.BinaryMessage, []byte("keto")))
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(voice.StopMessage)))

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var result voice.Result
	require.NoError(t, conn.ReadJSON(&result))
	assert.Equal(t, voice.TypeTranscript, result.Type)

	sess, ok := store.Get(id)
	require.True(t, ok)
	assert.Equal(t, "keto", sess.DietPreferences)
}
