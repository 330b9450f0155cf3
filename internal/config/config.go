package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config содержит все настройки приложения
type Config struct {
	// HTTP server settings
	HTTPPort string

	// EEG backend settings
	BackendBaseURL string
	BackendWSURL   string

	// Monitor settings
	Mode             string // push | replay | simulated
	BufferCapacity   int
	WindowSize       int
	ReplayIntervalMS int64
	DriftIntervalMS  int64
	FeatureChannel   string

	// Redis settings
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// PostgreSQL settings
	PostgresDSN string

	// Cache settings
	HistoryLimit          int
	SpectrogramTTLSeconds int

	// Alert settings
	AlertSinkURL string

	// Doctor identity (статический профиль действующего пользователя)
	DoctorID    string
	DoctorName  string
	DoctorToken string
	DoctorPhone string
}

// Load загружает конфигурацию из переменных окружения с дефолтными значениями.
// Если рядом лежит .env, он подхватывается первым
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Printf("[INFO] No .env file found, using environment variables")
	}

	return &Config{
		HTTPPort: getEnvString("HTTP_PORT", "8090"),

		BackendBaseURL: getEnvString("BACKEND_BASE_URL", "http://localhost:8000"),
		BackendWSURL:   getEnvString("BACKEND_WS_URL", "ws://localhost:8000"),

		Mode:             getEnvString("MONITOR_MODE", "push"),
		BufferCapacity:   getEnvInt("BUFFER_CAPACITY", 100),
		WindowSize:       getEnvInt("WINDOW_SIZE", 50),
		ReplayIntervalMS: getEnvInt64("REPLAY_INTERVAL_MS", 200),
		DriftIntervalMS:  getEnvInt64("DRIFT_INTERVAL_MS", 1000),
		FeatureChannel:   getEnvString("FEATURE_CHANNEL", "amplitude"),

		// Redis
		RedisAddr:     getEnvString("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnvString("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		// PostgreSQL (пустой DSN отключает журнал аудита)
		PostgresDSN: getEnvString("POSTGRES_DSN", ""),

		HistoryLimit:          getEnvInt("HISTORY_LIMIT", 500),
		SpectrogramTTLSeconds: getEnvInt("SPECTROGRAM_TTL_SECONDS", 300),

		AlertSinkURL: getEnvString("ALERT_SINK_URL", "http://localhost:8000/alert"),

		DoctorID:    getEnvString("DOCTOR_ID", ""),
		DoctorName:  getEnvString("DOCTOR_NAME", ""),
		DoctorToken: getEnvString("DOCTOR_TOKEN", ""),
		DoctorPhone: getEnvString("DOCTOR_PHONE", ""),
	}
}

// ReplayInterval возвращает период репли-таймера
func (c *Config) ReplayInterval() time.Duration {
	return time.Duration(c.ReplayIntervalMS) * time.Millisecond
}

// DriftInterval возвращает период дрейфа симуляции
func (c *Config) DriftInterval() time.Duration {
	return time.Duration(c.DriftIntervalMS) * time.Millisecond
}

// SpectrogramTTL возвращает время жизни кэша спектрограмм
func (c *Config) SpectrogramTTL() time.Duration {
	return time.Duration(c.SpectrogramTTLSeconds) * time.Second
}

func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}
