package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration loaded from environment.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Auth     AuthConfig
	LiveKit  LiveKitConfig
	Chat     ChatConfig
	Realtime RealtimeConfig
	Gemini   GeminiConfig
	Piston   PistonConfig
	Sessions SessionsConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port               string
	ReadTimeout        int
	WriteTimeout       int
	CORSAllowedOrigins string // comma-separated, or "*" for all
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	URL      string // if set, used as-is
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
	MaxConns int
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// AuthConfig holds bearer token verification settings for the identity provider.
// When JWKSURL is set tokens are verified against the provider's published keys,
// otherwise with the shared HS256 secret.
type AuthConfig struct {
	Secret        string
	JWKSURL       string
	Issuer        string
	WebhookSecret string
}

// LiveKitConfig holds video call provider settings.
type LiveKitConfig struct {
	URL          string
	APIKey       string
	APISecret    string
	EmptyTimeout time.Duration
	TokenTTL     time.Duration
}

// ChatConfig holds chat channel provider settings.
type ChatConfig struct {
	BaseURL     string
	APIKey      string
	APISecret   string
	ChannelType string
}

// RealtimeConfig bounds every call made to the video/chat providers.
type RealtimeConfig struct {
	CallTimeout  time.Duration
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
}

// GeminiConfig holds generative review settings.
type GeminiConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// PistonConfig holds code execution provider settings.
type PistonConfig struct {
	BaseURL string
	Timeout time.Duration
}

// SessionsConfig holds listing limits.
type SessionsConfig struct {
	PageSize int
}

// DSN returns the PostgreSQL connection string.
// If DatabaseConfig.URL is set (e.g. DATABASE_URL env), it is used as-is; otherwise built from components.
func (c DatabaseConfig) DSN() string {
	if c.URL != "" {
		return c.URL
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode,
	)
}

// Load reads configuration from environment, with optional .env file.
func Load() (*Config, error) {
	_ = godotenv.Load()      // .env
	_ = godotenv.Load("env") // env (no leading dot)

	cfg := &Config{
		Server: ServerConfig{
			Port:               getEnv("PORT", "8080"),
			ReadTimeout:        getEnvInt("READ_TIMEOUT_SEC", 30),
			WriteTimeout:       getEnvInt("WRITE_TIMEOUT_SEC", 30),
			CORSAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
		},
		Database: DatabaseConfig{
			URL:      getEnv("DATABASE_URL", ""),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "pairprep"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
			MaxConns: getEnvInt("DB_MAX_CONNS", 10),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		Auth: AuthConfig{
			Secret:        getEnv("AUTH_JWT_SECRET", ""),
			JWKSURL:       getEnv("AUTH_JWKS_URL", ""),
			Issuer:        getEnv("AUTH_ISSUER", ""),
			WebhookSecret: getEnv("AUTH_WEBHOOK_SECRET", ""),
		},
		LiveKit: LiveKitConfig{
			URL:          getEnv("LIVEKIT_URL", "http://localhost:7880"),
			APIKey:       getEnv("LIVEKIT_API_KEY", ""),
			APISecret:    getEnv("LIVEKIT_API_SECRET", ""),
			EmptyTimeout: getEnvDuration("LIVEKIT_EMPTY_TIMEOUT", 10*time.Minute),
			TokenTTL:     getEnvDuration("LIVEKIT_TOKEN_TTL", 2*time.Hour),
		},
		Chat: ChatConfig{
			BaseURL:     getEnv("CHAT_BASE_URL", "https://chat.stream-io-api.com"),
			APIKey:      getEnv("CHAT_API_KEY", ""),
			APISecret:   getEnv("CHAT_API_SECRET", ""),
			ChannelType: getEnv("CHAT_CHANNEL_TYPE", "messaging"),
		},
		Realtime: RealtimeConfig{
			CallTimeout:  getEnvDuration("REALTIME_CALL_TIMEOUT", 5*time.Second),
			MaxAttempts:  getEnvInt("REALTIME_MAX_ATTEMPTS", 3),
			InitialDelay: getEnvDuration("REALTIME_RETRY_DELAY", 200*time.Millisecond),
			MaxDelay:     getEnvDuration("REALTIME_RETRY_MAX_DELAY", 2*time.Second),
		},
		Gemini: GeminiConfig{
			APIKey:  getEnv("GEMINI_API_KEY", ""),
			BaseURL: getEnv("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com/v1beta/models"),
			Model:   getEnv("GEMINI_MODEL", "gemini-flash-latest"),
			Timeout: getEnvDuration("GEMINI_TIMEOUT", 30*time.Second),
		},
		Piston: PistonConfig{
			BaseURL: getEnv("PISTON_BASE_URL", "https://emkc.org/api/v2/piston"),
			Timeout: getEnvDuration("PISTON_TIMEOUT", 15*time.Second),
		},
		Sessions: SessionsConfig{
			PageSize: getEnvInt("SESSIONS_PAGE_SIZE", 20),
		},
	}
	if cfg.Auth.Secret == "" && cfg.Auth.JWKSURL == "" {
		return nil, fmt.Errorf("one of AUTH_JWT_SECRET or AUTH_JWKS_URL is required")
	}
	if cfg.Realtime.MaxAttempts < 1 {
		cfg.Realtime.MaxAttempts = 1
	}
	return cfg, nil
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
