package config

import (
	"os"
	"strconv"
	"time"
)

// Server captures process-level configuration. Backends left unconfigured
// (empty DSN/URL) are skipped at wiring time and the in-memory
// implementations serve instead.
type Server struct {
	Addr          string
	JWTSigningKey string
	PostgresDSN   string
	CatalogPath   string
	Redis         RedisConfig
	EventBuffer   int

	APIClient APIClientConfig
}

// APIClientConfig is the bootstrap service account for the admin API. The
// secret is supplied pre-hashed (bcrypt) so plaintext never sits in the
// environment.
type APIClientConfig struct {
	ID         string
	SecretHash string
	Role       string
}

// RedisConfig holds connection tuning for the compliance cache.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// ComplianceCacheTTL bounds staleness of cached compliance rates.
var ComplianceCacheTTL = 5 * time.Minute

func apiClientRole() string {
	if v := os.Getenv("CERTRAIL_API_CLIENT_ROLE"); v != "" {
		return v
	}
	return "admin"
}

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() Server {
	addr := os.Getenv("CERTRAIL_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	jwtSigningKey := os.Getenv("JWT_SIGNING_KEY")
	if jwtSigningKey == "" {
		// Development default - must be overridden in production
		jwtSigningKey = "dev-secret-key-change-in-production"
	}

	buffer := 256
	if v := os.Getenv("CERTRAIL_EVENT_BUFFER"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			buffer = n
		}
	}

	return Server{
		Addr:          addr,
		JWTSigningKey: jwtSigningKey,
		PostgresDSN:   os.Getenv("CERTRAIL_POSTGRES_DSN"),
		CatalogPath:   os.Getenv("CERTRAIL_CATALOG"),
		EventBuffer:   buffer,
		APIClient: APIClientConfig{
			ID:         os.Getenv("CERTRAIL_API_CLIENT_ID"),
			SecretHash: os.Getenv("CERTRAIL_API_CLIENT_SECRET_HASH"),
			Role:       apiClientRole(),
		},
		Redis: RedisConfig{
			URL:          os.Getenv("CERTRAIL_REDIS_URL"),
			PoolSize:     10,
			MinIdleConns: 2,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
	}
}
