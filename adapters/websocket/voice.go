package websocket

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	handler "github.com/satriahrh/nutriplanner/adapters/http"
	"github.com/satriahrh/nutriplanner/usecase"
	"github.com/satriahrh/nutriplanner/utils/log"
)

const (
	writeWait      = 10 * time.Second
	maxMessageSize = 512 * 1024
	// captureWait bounds one capture when the recognizer has no timeout of its own.
	captureWait = 60 * time.Second

	// StopMessage is the text frame a client sends when it stops recording.
	StopMessage = "stop"
)

// Result is the single JSON message written before the socket closes.
type Result struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	Text    string `json:"text,omitempty"`
}

const (
	TypeTranscript = "transcript"
	TypeWarning    = "warning"
	TypeError      = "error"
)

// VoiceHandler performs one speech capture per connection: binary frames are
// audio, the answer is one Result.
type VoiceHandler struct {
	upgrader websocket.Upgrader
	planner  *usecase.MealPlanService
}

func NewVoiceHandler(planner *usecase.MealPlanService) *VoiceHandler {
	return &VoiceHandler{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 1024,
		},
		planner: planner,
	}
}

func (v *VoiceHandler) Handler(c echo.Context) error {
	if !v.planner.VoiceEnabled() {
		return echo.NewHTTPError(http.StatusNotFound, "Voice input is not enabled")
	}

	conn, err := v.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	sessionID := handler.SessionID(c)
	ctx, cancel := context.WithTimeout(c.Request().Context(), captureWait)
	defer cancel()

	audio := make(chan []byte, 100)
	go readAudio(ctx, conn, audio)

	text, out := v.planner.Transcribe(ctx, sessionID, audio)
	cancel()

	result := Result{Type: resultType(out.Level), Message: out.Message, Text: text}
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteJSON(result); err != nil {
		log.WithCtx(ctx).Error("Failed to write voice result", zap.Error(err))
		return nil
	}
	conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))

	log.WithCtx(ctx).Debug("voice capture finished", zap.String("type", result.Type))
	return nil
}

// readAudio forwards binary frames to audio until the client stops, the
// connection fails or ctx ends.
func readAudio(ctx context.Context, conn *websocket.Conn, audio chan<- []byte) {
	defer close(audio)

	conn.SetReadLimit(maxMessageSize)
	for {
		kind, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) && ctx.Err() == nil {
				log.WithCtx(ctx).Debug("voice socket closed", zap.Error(err))
			}
			return
		}

		switch kind {
		case websocket.TextMessage:
			if string(message) == StopMessage {
				return
			}
		case websocket.BinaryMessage:
			select {
			case audio <- message:
			case <-ctx.Done():
				return
			}
		}
	}
}

func resultType(level usecase.Level) string {
	switch level {
	case usecase.LevelSuccess:
		return TypeTranscript
	case usecase.LevelWarning:
		return TypeWarning
	default:
		return TypeError
	}
}
