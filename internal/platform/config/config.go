package config

import (
	"os"
	"strconv"
	"time"
)

// Server captures process level configuration.
type Server struct {
	Addr        string
	DatabaseURL string

	// Key material for the token service. Both paths must point at PEM files;
	// the process refuses to start without them.
	PrivateKeyPath string
	PublicKeyPath  string

	// Session token lifetime applied when the sign-in flow does not ask for
	// a specific one.
	TokenTTL time.Duration

	// AuditInboxSize bounds the background audit writer's queue.
	AuditInboxSize int

	Redis RedisConfig
}

// RedisConfig carries the optional statistics cache connection settings.
type RedisConfig struct {
	URL          string
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	StatsTTL     time.Duration
}

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() Server {
	addr := os.Getenv("IDENTRA_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	tokenTTL := durationEnv("IDENTRA_TOKEN_TTL", 15*time.Minute)
	inboxSize := intEnv("IDENTRA_AUDIT_INBOX_SIZE", 1024)

	return Server{
		Addr:           addr,
		DatabaseURL:    os.Getenv("IDENTRA_DATABASE_URL"),
		PrivateKeyPath: os.Getenv("IDENTRA_PRIVATE_KEY_PATH"),
		PublicKeyPath:  os.Getenv("IDENTRA_PUBLIC_KEY_PATH"),
		TokenTTL:       tokenTTL,
		AuditInboxSize: inboxSize,
		Redis: RedisConfig{
			URL:          os.Getenv("IDENTRA_REDIS_URL"),
			DialTimeout:  2 * time.Second,
			ReadTimeout:  1 * time.Second,
			WriteTimeout: 1 * time.Second,
			StatsTTL:     durationEnv("IDENTRA_STATS_CACHE_TTL", time.Minute),
		},
	}
}

func durationEnv(key string, fallback time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}
	return d
}

func intEnv(key string, fallback int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}
