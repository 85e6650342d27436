// internal/model/voice.go
package model

// VoiceInputConfig は音声認識機能（外部ケイパビリティ）への設定
type VoiceInputConfig struct {
	Language        string `json:"language"`
	MaxDurationMs   int    `json:"max_duration_ms"` // 録音の最長時間
	MinDurationMs   int    `json:"min_duration_ms"` // これ未満の録音はエラー扱い
	Continuous      bool   `json:"continuous"`
	InterimResults  bool   `json:"interim_results"`
	MaxAlternatives int    `json:"max_alternatives"`
}

// DefaultVoiceInputConfig は日本語認識向けのデフォルト設定を返します
func DefaultVoiceInputConfig() VoiceInputConfig {
	return VoiceInputConfig{
		Language:        "ja-JP",
		MaxDurationMs:   10000,
		MinDurationMs:   500,
		Continuous:      false,
		InterimResults:  true,
		MaxAlternatives: 1,
	}
}
