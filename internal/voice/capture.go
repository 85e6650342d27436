// internal/voice/capture.go

// Package voice はブラウザ等のホストが提供する音声認識ケイパビリティを、
// 時間制限付き・単一発話のキャプチャフローとして包むステートマシンを実装します。
// ケイパビリティ自体はブラックボックスとして扱い、このパッケージは
// 状態遷移・タイマー・エラー分類のみに責任を持ちます
package voice

import (
	"fmt"
	"sync"
	"time"

	"voice_kani/internal/model"
)

// ユーザー向けエラーメッセージ。
// メッセージ文字列はフロントエンドが期待する値と一致させる必要がある
const (
	MsgNotSupported      = "Speech recognition is not supported in this browser"
	MsgRecordingTooShort = "Recording too short. Please speak longer."
	MsgStartFailed       = "Failed to start speech recognition"
	MsgNoSpeech          = "No speech detected. Please try again."
	MsgNoMicrophone      = "No microphone detected. Please check your device."
	MsgNotAllowed        = "Microphone access denied. Please allow microphone access."
	MsgNetworkError      = "Network error. Please check your connection."
	MsgServiceDisallowed = "Speech recognition service not allowed."
)

// ケイパビリティが通知するエラーコード
const (
	ErrCodeNoSpeech          = "no-speech"
	ErrCodeAborted           = "aborted"
	ErrCodeAudioCapture      = "audio-capture"
	ErrCodeNotAllowed        = "not-allowed"
	ErrCodeNetwork           = "network"
	ErrCodeServiceNotAllowed = "service-not-allowed"
)

// errorMessages はケイパビリティのエラーコードをユーザー向けメッセージに対応付けます。
// aborted は手動停止時に発生する期待されたコードなので意図的に含めない
var errorMessages = map[string]string{
	ErrCodeNoSpeech:          MsgNoSpeech,
	ErrCodeAudioCapture:      MsgNoMicrophone,
	ErrCodeNotAllowed:        MsgNotAllowed,
	ErrCodeNetwork:           MsgNetworkError,
	ErrCodeServiceNotAllowed: MsgServiceDisallowed,
}

// processingSettleDelay は最終結果の後に processing フラグを保持する時間。
// 回答確定UIのちらつきを抑えるための固定値
const processingSettleDelay = 500 * time.Millisecond

// Recognizer は外部の音声認識ケイパビリティ1インスタンス分の制御面です
type Recognizer interface {
	Start() error
	Stop()
	Abort()
}

// Handlers はケイパビリティからキャプチャへのコールバック群
type Handlers struct {
	OnStart  func()
	OnResult func(transcript string, confidence float64, isFinal bool)
	OnEnd    func()
	OnError  func(code string)
}

// RecognizerFactory は新しいケイパビリティインスタンスを生成します。
// ファクトリが nil の場合、ホストは音声認識に未対応とみなされます
type RecognizerFactory func(cfg model.VoiceInputConfig, h Handlers) (Recognizer, error)

// Snapshot はキャプチャの観測可能な状態です
type Snapshot struct {
	Transcript string `json:"transcript"`
	Recording  bool   `json:"recording"`
	Processing bool   `json:"processing"`
	Error      string `json:"error,omitempty"`
	Supported  bool   `json:"supported"`
}

// Capture は1発話分の音声キャプチャのステートマシンです。
// Idle → Recording → (Processing) → Idle と遷移し、Recording からは Error に
// 到達しうる。Processing は recording フラグとは直交する一時的なサブ状態
type Capture struct {
	mu      sync.Mutex
	factory RecognizerFactory
	cfg     model.VoiceInputConfig

	rec        Recognizer
	gen        int // 世代カウンタ。破棄済みインスタンスへの stale なタイマー発火を無視するため
	maxTimer   *time.Timer
	procTimer  *time.Timer
	startedAt  time.Time
	transcript string
	recording  bool
	processing bool
	errMsg     string

	onChange func(Snapshot)

	// テストで時刻を差し替えるためのフック
	now func() time.Time
}

// NewCapture はキャプチャを生成します。factory が nil の場合は未対応ホスト扱い
func NewCapture(factory RecognizerFactory, cfg model.VoiceInputConfig) *Capture {
	if cfg.MaxDurationMs <= 0 {
		cfg.MaxDurationMs = 10000
	}
	if cfg.MinDurationMs <= 0 {
		cfg.MinDurationMs = 500
	}
	return &Capture{
		factory: factory,
		cfg:     cfg,
		now:     time.Now,
	}
}

// SetOnChange は状態変化の通知先を登録します（WebSocketへのプッシュ等）
func (c *Capture) SetOnChange(fn func(Snapshot)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onChange = fn
}

// Supported はホストが音声認識ケイパビリティを持つかどうかを返します
func (c *Capture) Supported() bool {
	return c.factory != nil
}

// Snapshot は現在の状態のコピーを返します
func (c *Capture) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Capture) snapshotLocked() Snapshot {
	return Snapshot{
		Transcript: c.transcript,
		Recording:  c.recording,
		Processing: c.processing,
		Error:      c.errMsg,
		Supported:  c.factory != nil,
	}
}

// notifyLocked は mu を保持したまま呼び、ロック解放後に通知を実行する関数を返します
func (c *Capture) notifyLocked() func() {
	fn := c.onChange
	if fn == nil {
		return func() {}
	}
	snap := c.snapshotLocked()
	return func() { fn(snap) }
}

// StartRecording は録音を開始します。
// 既に録音中の場合は先に前回のケイパビリティインスタンスを破棄し、
// イベントの二重配送を防ぎます
func (c *Capture) StartRecording() {
	c.mu.Lock()

	if c.factory == nil {
		c.errMsg = MsgNotSupported
		notify := c.notifyLocked()
		c.mu.Unlock()
		notify()
		return
	}

	c.releaseLocked()
	gen := c.gen

	rec, err := c.factory(c.cfg, Handlers{
		OnStart:  func() { c.handleStart(gen) },
		OnResult: func(tr string, conf float64, final bool) { c.handleResult(gen, tr, conf, final) },
		OnEnd:    func() { c.handleEnd(gen) },
		OnError:  func(code string) { c.handleError(gen, code) },
	})
	if err != nil {
		c.errMsg = MsgStartFailed
		c.recording = false
		notify := c.notifyLocked()
		c.mu.Unlock()
		notify()
		return
	}
	c.rec = rec

	// 録音時間の上限タイマー。発火時はケイパビリティに停止を依頼し、
	// 終了処理自体は onEnd 側に任せる
	maxDuration := time.Duration(c.cfg.MaxDurationMs) * time.Millisecond
	c.maxTimer = time.AfterFunc(maxDuration, func() { c.stopIfCurrent(gen) })

	c.mu.Unlock()

	// Start はコールバックを同期的に呼び返す実装があり得るため、ロック外で呼ぶ
	if err := rec.Start(); err != nil {
		c.mu.Lock()
		if c.gen == gen {
			c.errMsg = MsgStartFailed
			c.recording = false
			c.releaseLocked()
		}
		notify := c.notifyLocked()
		c.mu.Unlock()
		notify()
	}
}

// StopRecording は呼び出し側起点の停止です。
// ケイパビリティへ停止を依頼し、実際の終了処理は onEnd で行われます
func (c *Capture) StopRecording() {
	c.mu.Lock()
	rec := c.rec
	c.mu.Unlock()
	if rec != nil {
		rec.Stop()
	}
}

// ResetTranscript はトランスクリプトバッファをクリアします（どの状態からでも可）
func (c *Capture) ResetTranscript() {
	c.mu.Lock()
	c.transcript = ""
	notify := c.notifyLocked()
	c.mu.Unlock()
	notify()
}

// Close はキャプチャを破棄します。タイマーとケイパビリティを確実に解放する
func (c *Capture) Close() {
	c.mu.Lock()
	rec := c.rec
	c.releaseLocked()
	c.recording = false
	c.processing = false
	c.mu.Unlock()
	if rec != nil {
		rec.Abort()
	}
}

// stopIfCurrent は maxDuration タイマーから呼ばれ、世代が一致する場合のみ
// ケイパビリティに停止を依頼します。破棄済みインスタンスへの stale な
// 停止呼び出しを防ぐためのガード
func (c *Capture) stopIfCurrent(gen int) {
	c.mu.Lock()
	if c.gen != gen || c.rec == nil {
		c.mu.Unlock()
		return
	}
	rec := c.rec
	c.mu.Unlock()
	rec.Stop()
}

// releaseLocked はタイマーとケイパビリティ参照を解放し、世代を進めます。
// mu を保持した状態で呼ぶこと
func (c *Capture) releaseLocked() {
	if c.maxTimer != nil {
		c.maxTimer.Stop()
		c.maxTimer = nil
	}
	if c.procTimer != nil {
		c.procTimer.Stop()
		c.procTimer = nil
	}
	c.rec = nil
	c.gen++
}

func (c *Capture) handleStart(gen int) {
	c.mu.Lock()
	if c.gen != gen {
		c.mu.Unlock()
		return
	}
	c.recording = true
	c.errMsg = ""
	c.startedAt = c.now()
	notify := c.notifyLocked()
	c.mu.Unlock()
	notify()
}

func (c *Capture) handleResult(gen int, transcript string, _ float64, isFinal bool) {
	c.mu.Lock()
	if c.gen != gen {
		c.mu.Unlock()
		return
	}
	c.transcript = transcript
	if isFinal {
		// 最終結果の後、確定表示が落ち着くまで processing を保持する。
		// processing は録音状態と直交しており、recording フラグには触れない
		c.processing = true
		if c.procTimer != nil {
			c.procTimer.Stop()
		}
		c.procTimer = time.AfterFunc(processingSettleDelay, func() { c.clearProcessing(gen) })
	}
	notify := c.notifyLocked()
	c.mu.Unlock()
	notify()
}

func (c *Capture) clearProcessing(gen int) {
	c.mu.Lock()
	if c.gen != gen {
		c.mu.Unlock()
		return
	}
	c.processing = false
	notify := c.notifyLocked()
	c.mu.Unlock()
	notify()
}

func (c *Capture) handleEnd(gen int) {
	c.mu.Lock()
	if c.gen != gen {
		c.mu.Unlock()
		return
	}
	duration := c.now().Sub(c.startedAt)
	if duration < time.Duration(c.cfg.MinDurationMs)*time.Millisecond {
		c.errMsg = MsgRecordingTooShort
	}
	c.recording = false
	c.processing = false
	c.releaseLocked()
	notify := c.notifyLocked()
	c.mu.Unlock()
	notify()
}

func (c *Capture) handleError(gen int, code string) {
	c.mu.Lock()
	if c.gen != gen {
		c.mu.Unlock()
		return
	}
	if code != ErrCodeAborted {
		// aborted は手動停止時の期待されたキャンセルなのでエラーにしない
		if msg, ok := errorMessages[code]; ok {
			c.errMsg = msg
		} else {
			c.errMsg = fmt.Sprintf("Error: %s", code)
		}
	}
	c.recording = false
	c.processing = false
	c.releaseLocked()
	notify := c.notifyLocked()
	c.mu.Unlock()
	notify()
}
