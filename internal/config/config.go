package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

type Config struct {
	Port                   string
	AllowedOrigin          string
	DatabaseURL            string
	RedisAddr              string
	RedisPassword          string
	RedisDB                int
	AdvisorCacheTTLSeconds int
	GeminiAPIKey           string
	GeminiModel            string
	GeminiBaseURL          string
	AuthSecret             string
	AccessTokenTTLMinutes  int
	AccessPIN              string
	KafkaBrokers           []string
	KafkaTopic             string
}

// fileConfig mirrors the keys accepted in the TOML file named by
// BANGUNANPRO_CONFIG. Empty values leave the environment value in place.
type fileConfig struct {
	Port          string `toml:"port"`
	AllowedOrigin string `toml:"allowed_origin"`
	DatabaseURL   string `toml:"database_url"`
	Redis         struct {
		Addr     string `toml:"addr"`
		Password string `toml:"password"`
		DB       *int   `toml:"db"`
	} `toml:"redis"`
	Advisor struct {
		APIKey          string `toml:"api_key"`
		Model           string `toml:"model"`
		BaseURL         string `toml:"base_url"`
		CacheTTLSeconds int    `toml:"cache_ttl_seconds"`
	} `toml:"advisor"`
	Auth struct {
		TokenTTLMinutes int    `toml:"token_ttl_minutes"`
		AccessPIN       string `toml:"access_pin"`
	} `toml:"auth"`
	Kafka struct {
		Brokers []string `toml:"brokers"`
		Topic   string   `toml:"topic"`
	} `toml:"kafka"`
}

// Load reads .env (if present), then the environment, then the optional
// TOML overlay. AUTH_SECRET is only ever read from the environment.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := fromEnv()
	if path := strings.TrimSpace(os.Getenv("BANGUNANPRO_CONFIG")); path != "" {
		if err := cfg.overlay(path); err != nil {
			return Config{}, err
		}
	}
	return cfg, nil
}

func fromEnv() Config {
	redisDB, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))
	cacheTTL := positiveInt("ADVISOR_CACHE_TTL_SECONDS", 600)
	tokenTTL := positiveInt("ACCESS_TOKEN_TTL_MINUTES", 480)

	apiKey := strings.TrimSpace(os.Getenv("GEMINI_API_KEY"))
	if apiKey == "" {
		apiKey = strings.TrimSpace(os.Getenv("API_KEY"))
	}

	return Config{
		Port:                   getEnv("PORT", "8080"),
		AllowedOrigin:          getEnv("ALLOWED_ORIGIN", "http://127.0.0.1:3000"),
		DatabaseURL:            os.Getenv("DATABASE_URL"),
		RedisAddr:              os.Getenv("REDIS_ADDR"),
		RedisPassword:          os.Getenv("REDIS_PASSWORD"),
		RedisDB:                redisDB,
		AdvisorCacheTTLSeconds: cacheTTL,
		GeminiAPIKey:           apiKey,
		GeminiModel:            os.Getenv("GEMINI_MODEL"),
		GeminiBaseURL:          os.Getenv("GEMINI_BASE_URL"),
		AuthSecret:             strings.TrimSpace(os.Getenv("AUTH_SECRET")),
		AccessTokenTTLMinutes:  tokenTTL,
		AccessPIN:              strings.TrimSpace(os.Getenv("ACCESS_PIN")),
		KafkaBrokers:           splitCSV(os.Getenv("KAFKA_BROKERS")),
		KafkaTopic:             getEnv("KAFKA_TOPIC", "bangunanpro.ledger"),
	}
}

func (c *Config) overlay(path string) error {
	var fc fileConfig
	if _, err := toml.DecodeFile(path, &fc); err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}

	setString(&c.Port, fc.Port)
	setString(&c.AllowedOrigin, fc.AllowedOrigin)
	setString(&c.DatabaseURL, fc.DatabaseURL)
	setString(&c.RedisAddr, fc.Redis.Addr)
	setString(&c.RedisPassword, fc.Redis.Password)
	if fc.Redis.DB != nil {
		c.RedisDB = *fc.Redis.DB
	}
	setString(&c.GeminiAPIKey, fc.Advisor.APIKey)
	setString(&c.GeminiModel, fc.Advisor.Model)
	setString(&c.GeminiBaseURL, fc.Advisor.BaseURL)
	if fc.Advisor.CacheTTLSeconds > 0 {
		c.AdvisorCacheTTLSeconds = fc.Advisor.CacheTTLSeconds
	}
	if fc.Auth.TokenTTLMinutes > 0 {
		c.AccessTokenTTLMinutes = fc.Auth.TokenTTLMinutes
	}
	setString(&c.AccessPIN, fc.Auth.AccessPIN)
	if len(fc.Kafka.Brokers) > 0 {
		c.KafkaBrokers = fc.Kafka.Brokers
	}
	setString(&c.KafkaTopic, fc.Kafka.Topic)
	return nil
}

func (c Config) Address() string {
	return fmt.Sprintf(":%s", c.Port)
}

func getEnv(key string, fallback string) string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	return val
}

func positiveInt(key string, fallback int) int {
	n, err := strconv.Atoi(getEnv(key, strconv.Itoa(fallback)))
	if err != nil || n < 1 {
		return fallback
	}
	return n
}

func setString(dst *string, v string) {
	if v = strings.TrimSpace(v); v != "" {
		*dst = v
	}
}

func splitCSV(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
