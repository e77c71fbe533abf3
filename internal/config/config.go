package config

import (
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const (
	EnvLocal      = "local"
	EnvProduction = "production"
)

const (
	defaultAPIURLLocal      = "http://localhost:5000/api"
	defaultAPIURLProduction = "https://mace-backend.onrender.com/api"
)

const (
	SessionBackendFile   = "file"
	SessionBackendRedis  = "redis"
	SessionBackendMemory = "memory"
)

type Config struct {
	Environment      string
	Host             string
	APIURLLocal      string
	APIURLProduction string

	Profile        string
	SessionBackend string
	SessionDir     string
	RedisURL       string

	CallbackAddr          string
	CallbackRedirectDelay time.Duration
	CallbackRateLimitRPS  float64

	LogLevel  string
	LogFormat string
}

func Load() Config {
	cfg := Config{
		Environment:           strings.ToLower(os.Getenv("MACE_ENV")),
		Host:                  os.Getenv("MACE_HOST"),
		APIURLLocal:           getEnv("MACE_API_URL_LOCAL", defaultAPIURLLocal),
		APIURLProduction:      getEnv("MACE_API_URL_PRODUCTION", defaultAPIURLProduction),
		Profile:               getEnv("MACE_PROFILE", "default"),
		SessionBackend:        strings.ToLower(getEnv("MACE_SESSION_BACKEND", SessionBackendFile)),
		SessionDir:            getEnv("MACE_SESSION_DIR", defaultSessionDir()),
		RedisURL:              getEnv("MACE_REDIS_URL", "redis://localhost:6379/0"),
		CallbackAddr:          getEnv("MACE_CALLBACK_ADDR", "127.0.0.1:8765"),
		CallbackRedirectDelay: getDuration("MACE_CALLBACK_REDIRECT_DELAY", 1500*time.Millisecond),
		CallbackRateLimitRPS:  getFloat("MACE_CALLBACK_RATE_LIMIT_RPS", 2),
		LogLevel:              getEnv("MACE_LOG_LEVEL", "warn"),
		LogFormat:             getEnv("MACE_LOG_FORMAT", "text"),
	}
	cfg.Environment = ResolveEnvironment(cfg.Environment, cfg.Host)
	return cfg
}

// ResolveEnvironment picks local or production. An explicit value wins;
// otherwise a loopback host means local.
func ResolveEnvironment(explicit, host string) string {
	switch explicit {
	case EnvLocal, "development", "dev":
		return EnvLocal
	case EnvProduction, "prod":
		return EnvProduction
	}
	if IsLoopbackHost(host) {
		return EnvLocal
	}
	return EnvProduction
}

func IsLoopbackHost(host string) bool {
	host = strings.TrimSpace(host)
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	host = strings.Trim(host, "[]")
	if strings.EqualFold(host, "localhost") {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

// APIBaseURL is selected once at startup from the resolved environment.
func (c Config) APIBaseURL() string {
	if c.Environment == EnvLocal {
		return c.APIURLLocal
	}
	return c.APIURLProduction
}

func (c Config) CallbackURL() string {
	return "http://" + c.CallbackAddr + "/social/callback/twitter"
}

func defaultSessionDir() string {
	dir, err := os.UserConfigDir()
	if err != nil || dir == "" {
		return filepath.Join(os.TempDir(), "mace")
	}
	return filepath.Join(dir, "mace")
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getFloat(key string, fallback float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return fallback
}
