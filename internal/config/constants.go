// internal/config/constants.go
package config

// アプリケーション情報
const (
	AppName    = "voice_kani"
	AppVersion = "0.3.0"
)

// ストアバックエンドの識別子
const (
	StoreBackendMemory   = "memory"
	StoreBackendPostgres = "postgres"
	StoreBackendRedis    = "redis"
)

// デフォルト設定値
const (
	DefaultServerPort         = ":8080"
	DefaultLogLevel           = "info"
	DefaultUserID             = "default-user"
	DefaultReviewLimit        = 20
	DefaultVoiceLanguage      = "ja-JP"
	DefaultVoiceMaxDurationMs = 10000
	DefaultVoiceMinDurationMs = 500
)

// 外部の復習元API（WaniKani互換）
const (
	DefaultWaniKaniBaseURL  = "https://api.wanikani.com/v2"
	DefaultWaniKaniRevision = "20230710"
)
