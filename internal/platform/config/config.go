package config

import (
	"os"
	"time"
)

// Server captures process level configuration for the credential exchange core.
type Server struct {
	Addr string

	// URIScheme is the custom scheme used for presentation request and
	// OIDC callback URIs exchanged via QR codes.
	URIScheme string

	// DIDWebDomain is the domain whose did:web document this process serves.
	DIDWebDomain string

	// KeyAlias is the logical name of the signing key in the key backend.
	KeyAlias string

	Redis    RedisConfig
	Postgres PostgresConfig
}

// RedisConfig configures the optional Redis-backed credential library.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// PostgresConfig configures the optional PostgreSQL-backed credential library.
type PostgresConfig struct {
	DSN string
}

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() Server {
	addr := os.Getenv("CARDEX_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	scheme := os.Getenv("CARDEX_URI_SCHEME")
	if scheme == "" {
		scheme = "cardex"
	}

	domain := os.Getenv("CARDEX_DID_WEB_DOMAIN")
	if domain == "" {
		domain = "localhost"
	}

	alias := os.Getenv("CARDEX_KEY_ALIAS")
	if alias == "" {
		alias = "cardex-signing-key"
	}

	return Server{
		Addr:         addr,
		URIScheme:    scheme,
		DIDWebDomain: domain,
		KeyAlias:     alias,
		Redis: RedisConfig{
			URL:          os.Getenv("CARDEX_REDIS_URL"),
			PoolSize:     10,
			MinIdleConns: 2,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
		Postgres: PostgresConfig{
			DSN: os.Getenv("CARDEX_POSTGRES_DSN"),
		},
	}
}
