package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	DataDir      string
	SearchesFile string
	LogLevel     string

	CDPURL    string
	ChromeBin string
	Headless  bool

	MaxPages        int
	PageTimeout     time.Duration
	InitialSettle   time.Duration
	BatchTimeout    time.Duration
	BatchSettle     time.Duration
	MaxAttempts     int
	SearchDelay     time.Duration
	MaxRetries      int
	TopDiscountRows int

	AlertThreshold  int
	LargeLotSqft    float64
	LowPrice        float64
	PricePerBedLow  float64
	PricePerBedHigh float64
	CondoPrice      float64

	AssessmentURL      string
	AssessmentPageSize int

	// SnapshotBackend is "file" or "postgres".
	SnapshotBackend  string
	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	TelegramToken  string
	TelegramChatID int64
}

// Load reads the .env file and returns a populated Config struct.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("[config] No .env file found, falling back to system env vars")
	}

	return &Config{
		DataDir:      getEnv("DATA_DIR", "./data"),
		SearchesFile: getEnv("SEARCHES_FILE", ""),
		LogLevel:     getEnv("LOG_LEVEL", "info"),

		CDPURL:    getEnv("CDP_URL", ""),
		ChromeBin: getEnv("CHROME_BIN", ""),
		Headless:  getEnvBool("HEADLESS", true),

		MaxPages:        getEnvInt("MAX_PAGES", 30),
		PageTimeout:     getEnvDuration("PAGE_TIMEOUT", 30*time.Second),
		InitialSettle:   getEnvDuration("INITIAL_SETTLE", 5*time.Second),
		BatchTimeout:    getEnvDuration("BATCH_TIMEOUT", 8*time.Second),
		BatchSettle:     getEnvDuration("BATCH_SETTLE", 1500*time.Millisecond),
		MaxAttempts:     getEnvInt("MAX_ATTEMPTS", 0),
		SearchDelay:     getEnvDuration("SEARCH_DELAY", 3*time.Second),
		MaxRetries:      getEnvInt("MAX_RETRIES", 3),
		TopDiscountRows: getEnvInt("TOP_DISCOUNT_ROWS", 20),

		AlertThreshold:  getEnvInt("ALERT_THRESHOLD", 50),
		LargeLotSqft:    getEnvFloat("LARGE_LOT_SQFT", 6000),
		LowPrice:        getEnvFloat("LOW_PRICE", 800000),
		PricePerBedLow:  getEnvFloat("PRICE_PER_BED_LOW", 120000),
		PricePerBedHigh: getEnvFloat("PRICE_PER_BED_HIGH", 150000),
		CondoPrice:      getEnvFloat("CONDO_PRICE", 300000),

		AssessmentURL:      getEnv("ASSESSMENT_URL", "https://data.calgary.ca/resource/4bsw-nn7w.json"),
		AssessmentPageSize: getEnvInt("ASSESSMENT_PAGE_SIZE", 1000),

		SnapshotBackend:  getEnv("SNAPSHOT_BACKEND", "file"),
		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:     getEnv("POSTGRES_USER", "scanner"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", "scanner123"),
		PostgresDB:       getEnv("POSTGRES_DB", "realty_db"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),

		TelegramToken:  getEnv("TELEGRAM_BOT_TOKEN", ""),
		TelegramChatID: int64(getEnvInt("TELEGRAM_CHAT_ID", 0)),
	}
}

// DSN returns the PostgreSQL connection string.
func (c *Config) DSN() string {
	return "host=" + c.PostgresHost +
		" port=" + c.PostgresPort +
		" user=" + c.PostgresUser +
		" password=" + c.PostgresPassword +
		" dbname=" + c.PostgresDB +
		" sslmode=" + c.PostgresSSLMode
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		n, err := strconv.Atoi(val)
		if err == nil {
			return n
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if val := os.Getenv(key); val != "" {
		f, err := strconv.ParseFloat(val, 64)
		if err == nil {
			return f
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		b, err := strconv.ParseBool(val)
		if err == nil {
			return b
		}
	}
	return fallback
}

// getEnvDuration accepts Go duration syntax ("8s", "1500ms").
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		d, err := time.ParseDuration(val)
		if err == nil {
			return d
		}
	}
	return fallback
}
