// internal/config/config.go
package config

import (
	"log"

	"github.com/spf13/viper"
)

type Config struct {
	Server struct {
		Port string `mapstructure:"port"`
	} `mapstructure:"server"`
	Store struct {
		// memory / postgres / redis
		Backend string `mapstructure:"backend"`
	} `mapstructure:"store"`
	Database struct {
		URL string `mapstructure:"url"`
	} `mapstructure:"database"`
	Redis struct {
		Addr     string `mapstructure:"addr"`
		Password string `mapstructure:"password"`
		DB       int    `mapstructure:"db"`
	} `mapstructure:"redis"`
	App   AppConfig   `mapstructure:"app"`
	Voice VoiceConfig `mapstructure:"voice"`
	WaniKani struct {
		BaseURL  string `mapstructure:"base_url"`
		APIKey   string `mapstructure:"api_key"`
		Revision string `mapstructure:"revision"`
	} `mapstructure:"wanikani"`
	CORS struct {
		AllowedOrigins   []string `mapstructure:"allowed_origins"`
		AllowedMethods   []string `mapstructure:"allowed_methods"`
		AllowedHeaders   []string `mapstructure:"allowed_headers"`
		ExposedHeaders   []string `mapstructure:"exposed_headers"`
		AllowCredentials bool     `mapstructure:"allow_credentials"`
		MaxAge           int      `mapstructure:"max_age"`
	} `mapstructure:"cors"`
	Log struct {
		Level string `mapstructure:"level"`
	} `mapstructure:"log"`
}

type AppConfig struct {
	DefaultUserID string `mapstructure:"default_user_id"`
	ReviewLimit   int    `mapstructure:"review_limit"` // 1セッションで取得する復習アイテムの上限
}

type VoiceConfig struct {
	Language        string `mapstructure:"language"`
	MaxDurationMs   int    `mapstructure:"max_duration_ms"`
	MinDurationMs   int    `mapstructure:"min_duration_ms"`
	Continuous      bool   `mapstructure:"continuous"`
	InterimResults  bool   `mapstructure:"interim_results"`
	MaxAlternatives int    `mapstructure:"max_alternatives"`
}

var Cfg Config

func LoadConfig(path string) error {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(path)
	viper.AddConfigPath(".")

	viper.SetEnvPrefix("APP")
	viper.AutomaticEnv()
	viper.BindEnv("wanikani.api_key", "WANIKANI_API_KEY")
	viper.BindEnv("database.url", "DATABASE_URL")
	viper.BindEnv("redis.addr", "REDIS_ADDR")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			log.Println("Warning: Config file not found. Using default settings or environment variables if available.")
		} else {
			log.Printf("Error reading config file: %s\n", err)
			return err
		}
	}

	if err := viper.Unmarshal(&Cfg); err != nil {
		log.Printf("Error unmarshalling config: %s\n", err)
		return err
	}

	// --- デフォルト値の設定 ---
	if Cfg.Server.Port == "" {
		Cfg.Server.Port = DefaultServerPort
	}
	if Cfg.Store.Backend == "" {
		log.Println("Store backend not set, using default 'memory'")
		Cfg.Store.Backend = StoreBackendMemory
	}
	if Cfg.App.DefaultUserID == "" {
		Cfg.App.DefaultUserID = DefaultUserID
	}
	if Cfg.App.ReviewLimit <= 0 {
		Cfg.App.ReviewLimit = DefaultReviewLimit
	}
	if Cfg.Voice.Language == "" {
		Cfg.Voice.Language = DefaultVoiceLanguage
	}
	if Cfg.Voice.MaxDurationMs <= 0 {
		Cfg.Voice.MaxDurationMs = DefaultVoiceMaxDurationMs
	}
	if Cfg.Voice.MinDurationMs <= 0 {
		Cfg.Voice.MinDurationMs = DefaultVoiceMinDurationMs
	}
	if Cfg.Voice.MaxAlternatives <= 0 {
		Cfg.Voice.MaxAlternatives = 1
	}
	if !viper.IsSet("voice.interim_results") {
		Cfg.Voice.InterimResults = true
	}
	if Cfg.WaniKani.BaseURL == "" {
		Cfg.WaniKani.BaseURL = DefaultWaniKaniBaseURL
	}
	if Cfg.WaniKani.Revision == "" {
		Cfg.WaniKani.Revision = DefaultWaniKaniRevision
	}
	if Cfg.Store.Backend == StoreBackendPostgres && Cfg.Database.URL == "" {
		log.Println("Warning: Database URL is not set in config.")
	}

	log.Println("Config loaded successfully")
	log.Printf("Server Port: %s", Cfg.Server.Port)
	log.Printf("Store Backend: %s", Cfg.Store.Backend)
	log.Printf("Review Limit: %d", Cfg.App.ReviewLimit)

	return nil
}
