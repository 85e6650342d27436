// internal/handlers/voice_handler.go
package handlers

import (
	"log/slog"
	"net/http"
	"sync"

	"voice_kani/internal/middleware"
	"voice_kani/internal/model"
	"voice_kani/internal/voice"

	"github.com/gorilla/websocket"
)

// VoiceHandler は音声キャプチャのWebSocketエンドポイントです。
// 実際の音声認識はブラウザ側のケイパビリティで実行され、本ハンドラは
// 1接続=1キャプチャのステートマシンを保持してコマンドとイベントを中継します。
//
// クライアント→サーバ:
//
//	{"type":"hello","supported":true,"config":{...}}          接続直後に1回
//	{"type":"control","action":"start|stop|reset"}            UI操作
//	{"type":"event","event":"start"}                          認識開始
//	{"type":"event","event":"result","transcript":"...","confidence":0.9,"is_final":true}
//	{"type":"event","event":"end"}
//	{"type":"event","event":"error","code":"no-speech"}
//
// サーバ→クライアント:
//
//	{"type":"command","action":"start|stop|abort"}            ケイパビリティ操作
//	{"type":"state",...}                                      状態スナップショット
type VoiceHandler struct {
	logger   *slog.Logger
	upgrader websocket.Upgrader
	config   model.VoiceInputConfig
}

func NewVoiceHandler(cfg model.VoiceInputConfig, logger *slog.Logger) *VoiceHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &VoiceHandler{
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// CORSはルータ側のミドルウェアで制御する
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		config: cfg,
	}
}

type clientMessage struct {
	Type      string                  `json:"type"`
	Supported bool                    `json:"supported,omitempty"`
	Config    *model.VoiceInputConfig `json:"config,omitempty"`

	Action string `json:"action,omitempty"`

	Event      string  `json:"event,omitempty"`
	Transcript string  `json:"transcript,omitempty"`
	Confidence float64 `json:"confidence,omitempty"`
	IsFinal    bool    `json:"is_final,omitempty"`
	Code       string  `json:"code,omitempty"`
}

type serverCommand struct {
	Type   string `json:"type"`
	Action string `json:"action"`
}

type serverState struct {
	Type string `json:"type"`
	voice.Snapshot
}

// wsConn は並行書き込みを直列化するためのラッパーです。
// キャプチャのタイマーとリーダーループの双方から書き込みが起こりうるため
type wsConn struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (c *wsConn) writeJSON(v interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteJSON(v)
}

// wsRecognizer はブラウザ側ケイパビリティの代理です。
// Start/Stop/Abort をコマンドメッセージとして接続先に送ります
type wsRecognizer struct {
	conn *wsConn
}

func (r *wsRecognizer) Start() error {
	return r.conn.writeJSON(serverCommand{Type: "command", Action: "start"})
}

func (r *wsRecognizer) Stop() {
	_ = r.conn.writeJSON(serverCommand{Type: "command", Action: "stop"})
}

func (r *wsRecognizer) Abort() {
	_ = r.conn.writeJSON(serverCommand{Type: "command", Action: "abort"})
}

// Stream はWebSocket接続を確立し、キャプチャのライフサイクルを接続に紐付けます
func (h *VoiceHandler) Stream(w http.ResponseWriter, r *http.Request) {
	logger := middleware.GetLogger(r.Context()).With(slog.String("handler", "VoiceStream"))

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn("WebSocket upgrade failed", slog.Any("error", err))
		return
	}
	defer conn.Close()

	wc := &wsConn{conn: conn}

	// 最初のメッセージでケイパビリティの有無と設定を受け取る
	var hello clientMessage
	if err := conn.ReadJSON(&hello); err != nil || hello.Type != "hello" {
		logger.Warn("Invalid handshake message", slog.Any("error", err))
		return
	}

	cfg := h.config
	if hello.Config != nil {
		if hello.Config.Language != "" {
			cfg.Language = hello.Config.Language
		}
		if hello.Config.MaxDurationMs > 0 {
			cfg.MaxDurationMs = hello.Config.MaxDurationMs
		}
		if hello.Config.MinDurationMs > 0 {
			cfg.MinDurationMs = hello.Config.MinDurationMs
		}
	}

	// ケイパビリティが無いホストにはファクトリを渡さない（未対応として扱われる）
	var factory voice.RecognizerFactory
	var handlersRef struct {
		mu sync.Mutex
		h  voice.Handlers
	}
	if hello.Supported {
		factory = func(cfg model.VoiceInputConfig, hs voice.Handlers) (voice.Recognizer, error) {
			handlersRef.mu.Lock()
			handlersRef.h = hs
			handlersRef.mu.Unlock()
			return &wsRecognizer{conn: wc}, nil
		}
	}

	capture := voice.NewCapture(factory, cfg)
	defer capture.Close()

	capture.SetOnChange(func(s voice.Snapshot) {
		if err := wc.writeJSON(serverState{Type: "state", Snapshot: s}); err != nil {
			logger.Debug("Failed to push state", slog.Any("error", err))
		}
	})

	// 初期状態を送る
	_ = wc.writeJSON(serverState{Type: "state", Snapshot: capture.Snapshot()})

	logger.Info("Voice stream opened", slog.Bool("supported", hello.Supported), slog.String("language", cfg.Language))

	for {
		var msg clientMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.Warn("Voice stream closed unexpectedly", slog.Any("error", err))
			}
			return
		}

		switch msg.Type {
		case "control":
			h.handleControl(capture, msg)
		case "event":
			handlersRef.mu.Lock()
			hs := handlersRef.h
			handlersRef.mu.Unlock()
			h.handleEvent(hs, msg)
		default:
			logger.Debug("Unknown message type", slog.String("type", msg.Type))
		}
	}
}

func (h *VoiceHandler) handleControl(capture *voice.Capture, msg clientMessage) {
	switch msg.Action {
	case "start":
		capture.StartRecording()
	case "stop":
		capture.StopRecording()
	case "reset":
		capture.ResetTranscript()
	}
}

func (h *VoiceHandler) handleEvent(hs voice.Handlers, msg clientMessage) {
	switch msg.Event {
	case "start":
		if hs.OnStart != nil {
			hs.OnStart()
		}
	case "result":
		if hs.OnResult != nil {
			hs.OnResult(msg.Transcript, msg.Confidence, msg.IsFinal)
		}
	case "end":
		if hs.OnEnd != nil {
			hs.OnEnd()
		}
	case "error":
		if hs.OnError != nil {
			hs.OnError(msg.Code)
		}
	}
}
