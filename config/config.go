package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds process configuration read from the environment.
type Config struct {
	// Server
	Port           string
	Environment    string
	RestaurantName string

	// Database
	DBDriver   string
	DBDSN      string
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	// JWT
	JWTSecret string
	JWTTTL    time.Duration

	// Redis
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// HTTP
	AllowedOrigins []string
	RateLimitRPS   float64
	RateLimitBurst int

	// Midtrans
	MidtransServerKey string
	MidtransEnv       string

	// Logging
	LogLevel  string
	LogFormat string

	SettingsFile string
	Settings     Settings
}

// Settings are restaurant business rules, overridable from a YAML file.
type Settings struct {
	TaxRate               float64       `yaml:"tax_rate"`
	AutoGratuityRate      float64       `yaml:"auto_gratuity_rate"`
	AutoGratuityPartySize int           `yaml:"auto_gratuity_party_size"`
	CardServiceChargeRate float64       `yaml:"card_service_charge_rate"`
	LunchStartHour        int           `yaml:"lunch_start_hour"`
	LunchEndHour          int           `yaml:"lunch_end_hour"`
	Timezone              string        `yaml:"timezone"`
	DashboardRefresh      time.Duration `yaml:"dashboard_refresh"`
	DashboardCacheTTL     time.Duration `yaml:"dashboard_cache_ttl"`
	MenuCacheTTL          time.Duration `yaml:"menu_cache_ttl"`
	PaymentIntentTTL      time.Duration `yaml:"payment_intent_ttl"`
	ImportBatchSize       int           `yaml:"import_batch_size"`
}

func DefaultSettings() Settings {
	return Settings{
		TaxRate:               0.08,
		AutoGratuityRate:      0.18,
		AutoGratuityPartySize: 6,
		CardServiceChargeRate: 0.035,
		LunchStartHour:        11,
		LunchEndHour:          16,
		Timezone:              "Local",
		DashboardRefresh:      30 * time.Second,
		DashboardCacheTTL:     30 * time.Second,
		MenuCacheTTL:          5 * time.Minute,
		PaymentIntentTTL:      15 * time.Minute,
		ImportBatchSize:       50,
	}
}

// Load reads .env (when present) and the environment, then the settings file.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := &Config{
		Port:              getEnv("PORT", "8080"),
		Environment:       getEnv("APP_ENV", "development"),
		RestaurantName:    getEnv("RESTAURANT_NAME", "Fuji Restaurant"),
		DBDriver:          strings.ToLower(getEnv("DB_DRIVER", "mysql")),
		DBDSN:             getEnv("DB_DSN", ""),
		DBHost:            getEnv("DB_HOST", "127.0.0.1"),
		DBPort:            getEnv("DB_PORT", ""),
		DBUser:            getEnv("DB_USER", "root"),
		DBPassword:        getEnv("DB_PASSWORD", ""),
		DBName:            getEnv("DB_NAME", "fuji_pos"),
		JWTSecret:         getEnv("JWT_SECRET", ""),
		JWTTTL:            getEnvDuration("JWT_TTL", 12*time.Hour),
		RedisAddr:         getEnv("REDIS_ADDR", ""),
		RedisPassword:     getEnv("REDIS_PASSWORD", ""),
		RedisDB:           getEnvInt("REDIS_DB", 0),
		AllowedOrigins:    splitList(getEnv("CORS_ORIGINS", "http://localhost:3000")),
		RateLimitRPS:      getEnvFloat("RATE_LIMIT_RPS", 20),
		RateLimitBurst:    getEnvInt("RATE_LIMIT_BURST", 40),
		MidtransServerKey: getEnv("MIDTRANS_SERVER_KEY", ""),
		MidtransEnv:       getEnv("MIDTRANS_ENV", "sandbox"),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		LogFormat:         getEnv("LOG_FORMAT", "text"),
		SettingsFile:      getEnv("POS_SETTINGS_FILE", ""),
		Settings:          DefaultSettings(),
	}

	if cfg.SettingsFile != "" {
		settings, err := LoadSettings(cfg.SettingsFile, cfg.Settings)
		if err != nil {
			return nil, err
		}
		cfg.Settings = settings
	}

	if cfg.JWTSecret == "" {
		if cfg.IsProduction() {
			return nil, fmt.Errorf("JWT_SECRET is required in production")
		}
		log.Println("Warning: JWT_SECRET not set, using development secret")
		cfg.JWTSecret = "fuji-pos-development-secret"
	}
	return cfg, cfg.Settings.Validate()
}

// LoadSettings overlays the YAML file at path on base.
func LoadSettings(path string, base Settings) (Settings, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return base, fmt.Errorf("read settings file: %w", err)
	}
	settings := base
	if err := yaml.Unmarshal(raw, &settings); err != nil {
		return base, fmt.Errorf("parse settings file %s: %w", path, err)
	}
	return settings, nil
}

func (s Settings) Validate() error {
	if s.TaxRate < 0 || s.AutoGratuityRate < 0 || s.CardServiceChargeRate < 0 {
		return fmt.Errorf("settings: rates must not be negative")
	}
	if s.LunchStartHour < 0 || s.LunchEndHour > 24 || s.LunchStartHour >= s.LunchEndHour {
		return fmt.Errorf("settings: invalid lunch window %d-%d", s.LunchStartHour, s.LunchEndHour)
	}
	if s.DashboardRefresh < 10*time.Second || s.DashboardRefresh > 60*time.Second {
		return fmt.Errorf("settings: dashboard_refresh must be between 10s and 60s")
	}
	return nil
}

// Location resolves the configured timezone, falling back to local time.
func (s Settings) Location() *time.Location {
	if s.Timezone == "" || s.Timezone == "Local" {
		return time.Local
	}
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return v
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if v, err := strconv.ParseFloat(os.Getenv(key), 64); err == nil {
		return v
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if v, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return v
	}
	return defaultValue
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
