// internal/handlers/voice_handler_test.go
package handlers_test

import (
	"io"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"voice_kani/internal/handlers"
	"voice_kani/internal/middleware"
	"voice_kani/internal/model"
	"voice_kani/internal/voice"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type wsMessage struct {
	Type       string  `json:"type"`
	Action     string  `json:"action,omitempty"`
	Transcript string  `json:"transcript,omitempty"`
	Recording  bool    `json:"recording,omitempty"`
	Processing bool    `json:"processing,omitempty"`
	Error      string  `json:"error,omitempty"`
	Supported  bool    `json:"supported,omitempty"`
	Confidence float64 `json:"confidence,omitempty"`
}

func dialVoiceStream(t *testing.T) (*websocket.Conn, func()) {
	t.Helper()

	h := handlers.NewVoiceHandler(model.DefaultVoiceInputConfig(), nil)
	router := chi.NewRouter()
	router.Get("/api/v1/voice/stream", h.Stream)
	server := httptest.NewServer(router)
	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/api/v1/voice/stream"

	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)

	return conn, func() {
		conn.Close()
		server.Close()
	}
}

func readMessage(t *testing.T, conn *websocket.Conn) wsMessage {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg wsMessage
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func TestVoiceHandler_Stream(t *testing.T) {
	t.Run("正常系: 録音開始から終了までの状態遷移が配信される", func(t *testing.T) {
		conn, cleanup := dialVoiceStream(t)
		defer cleanup()

		require.NoError(t, conn.WriteJSON(map[string]interface{}{"type": "hello", "supported": true}))

		// 接続直後の初期状態
		msg := readMessage(t, conn)
		assert.Equal(t, "state", msg.Type)
		assert.True(t, msg.Supported)
		assert.False(t, msg.Recording)

		// 録音開始 → ケイパビリティにstartコマンドが届く
		require.NoError(t, conn.WriteJSON(map[string]interface{}{"type": "control", "action": "start"}))
		msg = readMessage(t, conn)
		assert.Equal(t, "command", msg.Type)
		assert.Equal(t, "start", msg.Action)

		// ケイパビリティの開始イベント → recordingがtrueになる
		require.NoError(t, conn.WriteJSON(map[string]interface{}{"type": "event", "event": "start"}))
		msg = readMessage(t, conn)
		assert.Equal(t, "state", msg.Type)
		assert.True(t, msg.Recording)

		// 中間結果 → トランスクリプトが配信される
		require.NoError(t, conn.WriteJSON(map[string]interface{}{
			"type": "event", "event": "result",
			"transcript": "いぬ", "confidence": 0.8, "is_final": false,
		}))
		msg = readMessage(t, conn)
		assert.Equal(t, "state", msg.Type)
		assert.Equal(t, "いぬ", msg.Transcript)

		// 終了イベント → recordingがfalseになる
		require.NoError(t, conn.WriteJSON(map[string]interface{}{"type": "event", "event": "end"}))
		msg = readMessage(t, conn)
		assert.Equal(t, "state", msg.Type)
		assert.False(t, msg.Recording)
	})

	t.Run("正常系: 未対応ホストでは開始時にエラー状態が配信される", func(t *testing.T) {
		conn, cleanup := dialVoiceStream(t)
		defer cleanup()

		require.NoError(t, conn.WriteJSON(map[string]interface{}{"type": "hello", "supported": false}))

		msg := readMessage(t, conn)
		assert.Equal(t, "state", msg.Type)
		assert.False(t, msg.Supported)

		require.NoError(t, conn.WriteJSON(map[string]interface{}{"type": "control", "action": "start"}))
		msg = readMessage(t, conn)
		assert.Equal(t, "state", msg.Type)
		assert.False(t, msg.Recording)
		assert.Equal(t, voice.MsgNotSupported, msg.Error)
	})

	t.Run("正常系: エラーイベントがユーザー向けメッセージに変換される", func(t *testing.T) {
		conn, cleanup := dialVoiceStream(t)
		defer cleanup()

		require.NoError(t, conn.WriteJSON(map[string]interface{}{"type": "hello", "supported": true}))
		readMessage(t, conn) // 初期状態

		require.NoError(t, conn.WriteJSON(map[string]interface{}{"type": "control", "action": "start"}))
		readMessage(t, conn) // startコマンド
		require.NoError(t, conn.WriteJSON(map[string]interface{}{"type": "event", "event": "start"}))
		readMessage(t, conn) // recording状態

		require.NoError(t, conn.WriteJSON(map[string]interface{}{"type": "event", "event": "error", "code": "no-speech"}))
		msg := readMessage(t, conn)
		assert.Equal(t, "state", msg.Type)
		assert.False(t, msg.Recording)
		assert.Equal(t, voice.MsgNoSpeech, msg.Error)
	})

	t.Run("正常系: ロギングミドルウェア越しでもWebSocketアップグレードが成立する", func(t *testing.T) {
		logger := slog.New(slog.NewTextHandler(io.Discard, nil))

		h := handlers.NewVoiceHandler(model.DefaultVoiceInputConfig(), nil)
		router := chi.NewRouter()
		router.Use(middleware.LoggingMiddleware(logger))
		router.Get("/api/v1/voice/stream", h.Stream)
		server := httptest.NewServer(router)
		defer server.Close()

		wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/api/v1/voice/stream"
		conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
		require.NoError(t, err)
		defer conn.Close()

		require.NoError(t, conn.WriteJSON(map[string]interface{}{"type": "hello", "supported": true}))
		msg := readMessage(t, conn)
		assert.Equal(t, "state", msg.Type)
		assert.True(t, msg.Supported)
	})
}
