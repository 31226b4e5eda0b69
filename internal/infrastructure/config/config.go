package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config 應用配置
type Config struct {
	App         AppConfig       `mapstructure:"app"`
	Server      ServerConfig    `mapstructure:"server"`
	Line        LineConfig      `mapstructure:"line"`
	LLM         LLMConfig       `mapstructure:"llm"`
	Vision      VisionConfig    `mapstructure:"vision"`
	Store       StoreConfig     `mapstructure:"store"`
	State       StateConfig     `mapstructure:"state"`
	Cache       CacheConfig     `mapstructure:"cache"`
	Queue       QueueConfig     `mapstructure:"queue"`
	RateLimit   RateLimitConfig `mapstructure:"rate_limit"`
	Image       ImageConfig     `mapstructure:"image"`
	Recipe      RecipeConfig    `mapstructure:"recipe"`
	DedupWindow time.Duration   `mapstructure:"dedup_window"`
	LogLevel    string          `mapstructure:"log_level"`
}

// AppConfig 應用程式設定
type AppConfig struct {
	Env     string `mapstructure:"env"`
	Debug   bool   `mapstructure:"debug"`
	Version string `mapstructure:"version"`
	Name    string `mapstructure:"name"`
}

// ServerConfig 服務器配置
type ServerConfig struct {
	Port          int           `mapstructure:"port"`
	ReadTimeout   time.Duration `mapstructure:"read_timeout"`
	WriteTimeout  time.Duration `mapstructure:"write_timeout"`
	IdleTimeout   time.Duration `mapstructure:"idle_timeout"`
	PublicBaseURL string        `mapstructure:"public_base_url"`
	// webhook 同步處理上限，須小於 WriteTimeout 才能回得出 200
	WebhookTimeout time.Duration `mapstructure:"webhook_timeout"`
}

// LineConfig LINE Messaging API 設定
type LineConfig struct {
	ChannelAccessToken string `mapstructure:"channel_access_token"`
	ChannelSecret      string `mapstructure:"channel_secret"`
}

// LLMConfig OpenAI 相容 chat completions 設定
type LLMConfig struct {
	APIKey      string        `mapstructure:"api_key"`
	BaseURL     string        `mapstructure:"base_url"`
	Model       string        `mapstructure:"model"`
	MaxTokens   int           `mapstructure:"max_tokens"`
	Temperature float64       `mapstructure:"temperature"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// VisionConfig 圖片標籤辨識設定
type VisionConfig struct {
	CredentialsJSON string        `mapstructure:"credentials_json"`
	MaxLabels       int           `mapstructure:"max_labels"`
	Timeout         time.Duration `mapstructure:"timeout"`
}

// StoreConfig 持久化設定
type StoreConfig struct {
	Backend   string          `mapstructure:"backend"`
	Timeout   time.Duration   `mapstructure:"timeout"`
	Firestore FirestoreConfig `mapstructure:"firestore"`
	Postgres  PostgresConfig  `mapstructure:"postgres"`
	SQLite    SQLiteConfig    `mapstructure:"sqlite"`
}

// FirestoreConfig Firestore 設定
type FirestoreConfig struct {
	ProjectID       string `mapstructure:"project_id"`
	CredentialsJSON string `mapstructure:"credentials_json"`
}

// PostgresConfig PostgreSQL 設定
type PostgresConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
}

// DSN 組合連線字串
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Name, p.SSLMode)
}

// SQLiteConfig SQLite 設定
type SQLiteConfig struct {
	Path string `mapstructure:"path"`
}

// StateConfig 對話狀態儲存設定
type StateConfig struct {
	Backend string        `mapstructure:"backend"`
	TTL     time.Duration `mapstructure:"ttl"`
	Redis   RedisConfig   `mapstructure:"redis"`
}

// RedisConfig Redis 設定
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// CacheConfig 翻譯結果快取設定
type CacheConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	MaxSize         int           `mapstructure:"max_size"`
	TTL             time.Duration `mapstructure:"ttl"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
}

// QueueConfig 背景工作隊列設定
type QueueConfig struct {
	Workers    int           `mapstructure:"workers"`
	MaxSize    int           `mapstructure:"max_size"`
	JobTimeout time.Duration `mapstructure:"job_timeout"`
}

// RateLimitConfig 速率限制配置
type RateLimitConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Requests int           `mapstructure:"requests"`
	Window   time.Duration `mapstructure:"window"`
}

// ImageConfig 圖片配置
type ImageConfig struct {
	MaxSizeBytes int64 `mapstructure:"max_size_bytes"`
	MaxDimension int   `mapstructure:"max_dimension"`
}

// RecipeConfig 食譜生成設定
type RecipeConfig struct {
	MaxAttempts int `mapstructure:"max_attempts"`
	MaxCards    int `mapstructure:"max_cards"`
}

// 環境變數名稱對照
var envBindings = map[string]string{
	"app.env":                          "APP_ENV",
	"app.debug":                        "APP_DEBUG",
	"server.port":                      "PORT",
	"server.public_base_url":           "PUBLIC_BASE_URL",
	"server.write_timeout":             "SERVER_WRITE_TIMEOUT",
	"server.webhook_timeout":           "WEBHOOK_TIMEOUT",
	"line.channel_access_token":        "LINE_CHANNEL_ACCESS_TOKEN",
	"line.channel_secret":              "LINE_CHANNEL_SECRET",
	"llm.api_key":                      "OPENAI_API_KEY",
	"llm.base_url":                     "OPENAI_BASE_URL",
	"llm.model":                        "OPENAI_MODEL",
	"llm.max_tokens":                   "MODEL_MAX_TOKENS",
	"llm.timeout":                      "LLM_TIMEOUT",
	"vision.credentials_json":          "GOOGLE_APPLICATION_CREDENTIALS_CONTENT",
	"store.backend":                    "STORE_BACKEND",
	"store.firestore.project_id":       "GOOGLE_CLOUD_PROJECT",
	"store.firestore.credentials_json": "FIREBASE_SERVICE_ACCOUNT_KEY",
	"store.postgres.host":              "DB_HOST",
	"store.postgres.port":              "DB_PORT",
	"store.postgres.user":              "DB_USER",
	"store.postgres.password":          "DB_PASSWORD",
	"store.postgres.name":              "DB_NAME",
	"store.postgres.sslmode":           "DB_SSLMODE",
	"store.sqlite.path":                "SQLITE_PATH",
	"state.backend":                    "STATE_BACKEND",
	"state.ttl":                        "STATE_TTL",
	"state.redis.addr":                 "REDIS_ADDR",
	"state.redis.password":             "REDIS_PASSWORD",
	"state.redis.db":                   "REDIS_DB",
	"cache.enabled":                    "CACHE_ENABLED",
	"rate_limit.enabled":               "RATE_LIMIT_ENABLED",
	"rate_limit.requests":              "RATE_LIMIT_REQUESTS",
	"rate_limit.window":                "RATE_LIMIT_WINDOW",
	"dedup_window":                     "DEDUP_WINDOW",
	"log_level":                        "LOG_LEVEL",
}

// LoadConfig 載入設定
func LoadConfig() (*Config, error) {
	// .env 不存在時直接使用環境變數
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("APP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("failed to bind env %s: %w", env, err)
		}
	}

	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// logger 尚未初始化，改用 fmt.Println
	fmt.Println("Loading configuration",
		"line_channel_token:", maskAPIKey(v.GetString("line.channel_access_token")),
		"llm_api_key:", maskAPIKey(v.GetString("llm.api_key")),
		"llm_model:", v.GetString("llm.model"),
		"store_backend:", v.GetString("store.backend"),
		"state_backend:", v.GetString("state.backend"))

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	config.Store.Backend = strings.ToLower(strings.TrimSpace(config.Store.Backend))
	config.State.Backend = strings.ToLower(strings.TrimSpace(config.State.Backend))
	config.Server.PublicBaseURL = strings.TrimRight(config.Server.PublicBaseURL, "/")

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &config, nil
}

// maskAPIKey 遮罩 API Key，只顯示前後各 4 個字符
func maskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}

func setDefaults(v *viper.Viper) {
	// 應用程式設定
	v.SetDefault("app.env", "development")
	v.SetDefault("app.debug", true)
	v.SetDefault("app.version", "1.0.0")
	v.SetDefault("app.name", "line-recipe-bot")

	// 伺服器設定
	v.SetDefault("server.port", 5000)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "150s")
	v.SetDefault("server.webhook_timeout", "120s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.public_base_url", "")

	v.SetDefault("line.channel_access_token", "")
	v.SetDefault("line.channel_secret", "")

	// LLM 設定
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.base_url", "https://api.openai.com/v1")
	v.SetDefault("llm.model", "gpt-4o-mini")
	v.SetDefault("llm.max_tokens", 800)
	v.SetDefault("llm.temperature", 0.7)
	v.SetDefault("llm.timeout", "30s")

	v.SetDefault("vision.credentials_json", "")
	v.SetDefault("vision.max_labels", 20)
	v.SetDefault("vision.timeout", "20s")

	// 持久化設定
	v.SetDefault("store.backend", "firestore")
	v.SetDefault("store.timeout", "10s")
	v.SetDefault("store.firestore.project_id", "")
	v.SetDefault("store.firestore.credentials_json", "")
	v.SetDefault("store.postgres.host", "localhost")
	v.SetDefault("store.postgres.port", 5432)
	v.SetDefault("store.postgres.user", "")
	v.SetDefault("store.postgres.password", "")
	v.SetDefault("store.postgres.name", "recipes")
	v.SetDefault("store.postgres.sslmode", "disable")
	v.SetDefault("store.sqlite.path", "data/recipes.db")

	// 對話狀態設定
	v.SetDefault("state.backend", "memory")
	v.SetDefault("state.ttl", "0s")
	v.SetDefault("state.redis.addr", "localhost:6379")
	v.SetDefault("state.redis.password", "")
	v.SetDefault("state.redis.db", 0)

	// 快取設定
	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.max_size", 500)
	v.SetDefault("cache.ttl", "24h")
	v.SetDefault("cache.cleanup_interval", "10m")

	// 隊列設定
	v.SetDefault("queue.workers", 2)
	v.SetDefault("queue.max_size", 50)
	v.SetDefault("queue.job_timeout", "90s")

	// 限流設定
	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.requests", 60)
	v.SetDefault("rate_limit.window", "1m")

	// 圖片設定
	v.SetDefault("image.max_size_bytes", 10*1024*1024) // 10MB
	v.SetDefault("image.max_dimension", 1600)

	v.SetDefault("recipe.max_attempts", 5)
	v.SetDefault("recipe.max_cards", 10)

	v.SetDefault("dedup_window", "10m")
	v.SetDefault("log_level", "info")
}

func validateConfig(config *Config) error {
	if config.Server.Port == 0 {
		return fmt.Errorf("server port is required")
	}

	if config.Line.ChannelSecret == "" {
		return fmt.Errorf("LINE_CHANNEL_SECRET is required")
	}
	if config.Line.ChannelAccessToken == "" {
		return fmt.Errorf("LINE_CHANNEL_ACCESS_TOKEN is required")
	}
	if config.LLM.APIKey == "" {
		return fmt.Errorf("OPENAI_API_KEY is required")
	}
	if config.Server.WebhookTimeout <= 0 {
		return fmt.Errorf("invalid webhook timeout")
	}
	// WriteTimeout 為 0 表示不限制
	if config.Server.WriteTimeout > 0 && config.Server.WriteTimeout <= config.Server.WebhookTimeout {
		return fmt.Errorf("server write timeout (%s) must exceed webhook timeout (%s)",
			config.Server.WriteTimeout, config.Server.WebhookTimeout)
	}

	if config.LLM.MaxTokens <= 0 {
		return fmt.Errorf("invalid llm max tokens")
	}

	switch config.Store.Backend {
	case "firestore", "sqlite", "memory":
	case "postgres":
		if config.Store.Postgres.Host == "" || config.Store.Postgres.User == "" {
			return fmt.Errorf("postgres backend requires DB_HOST and DB_USER")
		}
	default:
		return fmt.Errorf("unknown store backend %q", config.Store.Backend)
	}

	switch config.State.Backend {
	case "memory", "redis":
	default:
		return fmt.Errorf("unknown state backend %q", config.State.Backend)
	}

	if config.Cache.Enabled {
		if config.Cache.MaxSize <= 0 {
			return fmt.Errorf("invalid cache max size")
		}
		if config.Cache.TTL <= 0 {
			return fmt.Errorf("invalid cache ttl")
		}
		if config.Cache.CleanupInterval <= 0 {
			return fmt.Errorf("invalid cache cleanup interval")
		}
	}

	if config.Queue.Workers <= 0 {
		return fmt.Errorf("invalid queue workers")
	}
	if config.Queue.MaxSize <= 0 {
		return fmt.Errorf("invalid queue max size")
	}

	if config.Recipe.MaxCards < 1 || config.Recipe.MaxCards > 10 {
		return fmt.Errorf("recipe max cards must be between 1 and 10")
	}
	if config.Recipe.MaxAttempts < 1 {
		return fmt.Errorf("recipe max attempts must be at least 1")
	}

	return nil
}
