package config

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// Config holds all process configuration, loaded once at startup.
// Verifier-critical fields are validated in Load so that a misconfigured
// deployment fails on boot rather than per-request.
type Config struct {
	ListenAddr string

	// Keycloak
	KeycloakURL      string
	Realm            string
	ClientID         string
	ExpectedIssuer   string
	ExpectedAudience string
	JWKSURL          string
	AdminUsername    string
	AdminPassword    string

	// Storage
	PostgresDSN string
	RedisAddr   string

	// TMDB proxy
	TMDBBaseURL  string
	TMDBAPIKey   string
	TMDBCacheTTL time.Duration

	// Avatars
	AvatarDir       string
	AvatarPublicURL string

	// CORS
	AllowedOrigins []string

	// ResolverFailOpen restores the legacy behavior of letting requests
	// through when the user store is unreachable during the deactivation
	// check. Default is fail-closed.
	ResolverFailOpen bool
}

const defaultTMDBBaseURL = "https://api.themoviedb.org/3"

// Load reads configuration from the environment.
func Load() (*Config, error) {
	cfg := &Config{
		ListenAddr:       getenv("LISTEN_ADDR", ":8000"),
		KeycloakURL:      strings.TrimRight(getenv("KEYCLOAK_SERVER_URL", "http://keycloak:8080"), "/"),
		Realm:            getenv("KEYCLOAK_REALM_NAME", "streamtrack"),
		ClientID:         getenv("KEYCLOAK_CLIENT_ID", "streamtrack-frontend"),
		ExpectedIssuer:   os.Getenv("KEYCLOAK_ISSUER"),
		ExpectedAudience: os.Getenv("KEYCLOAK_AUDIENCE"),
		JWKSURL:          os.Getenv("KEYCLOAK_JWKS_URL"),
		AdminUsername:    getenv("KEYCLOAK_ADMIN", "admin"),
		AdminPassword:    os.Getenv("KEYCLOAK_ADMIN_PASSWORD"),
		PostgresDSN:      os.Getenv("POSTGRES_DSN"),
		RedisAddr:        getenv("REDIS_ADDR", "redis:6379"),
		TMDBBaseURL:      getenv("TMDB_API_URL", defaultTMDBBaseURL),
		TMDBCacheTTL:     10 * time.Minute,
		AvatarDir:        getenv("AVATAR_DIR", "static/avatars"),
		AvatarPublicURL:  getenv("AVATAR_PUBLIC_URL", "/media/avatars"),
		AllowedOrigins:   splitenv("CORS_ALLOW_ORIGINS", "http://localhost:3000"),
		ResolverFailOpen: boolenv("AUTH_RESOLVER_FAIL_OPEN"),
	}
	if cfg.ExpectedIssuer == "" {
		cfg.ExpectedIssuer = cfg.KeycloakURL + "/realms/" + cfg.Realm
	}
	if cfg.ExpectedAudience == "" {
		cfg.ExpectedAudience = cfg.ClientID
	}
	if cfg.JWKSURL == "" {
		cfg.JWKSURL = cfg.ExpectedIssuer + "/protocol/openid-connect/certs"
	}

	key, err := loadTMDBKey()
	if err != nil {
		return nil, err
	}
	cfg.TMDBAPIKey = key

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	missing := []string{}
	if c.JWKSURL == "" {
		missing = append(missing, "KEYCLOAK_JWKS_URL")
	}
	if c.ExpectedIssuer == "" {
		missing = append(missing, "KEYCLOAK_ISSUER")
	}
	if c.ExpectedAudience == "" {
		missing = append(missing, "KEYCLOAK_AUDIENCE")
	}
	if c.AdminPassword == "" {
		missing = append(missing, "KEYCLOAK_ADMIN_PASSWORD")
	}
	if c.PostgresDSN == "" {
		missing = append(missing, "POSTGRES_DSN")
	}
	if len(missing) > 0 {
		return fmt.Errorf("config: missing required environment variables: %s", strings.Join(missing, ", "))
	}
	return nil
}

// loadTMDBKey reads the TMDB API key from a secret file when TMDB_API_KEY_FILE
// is set, falling back to the TMDB_API_KEY env var.
func loadTMDBKey() (string, error) {
	if path := os.Getenv("TMDB_API_KEY_FILE"); path != "" {
		b, err := os.ReadFile(path)
		if err == nil {
			if key := strings.TrimSpace(string(b)); key != "" {
				return key, nil
			}
		}
	}
	if key := strings.TrimSpace(os.Getenv("TMDB_API_KEY")); key != "" {
		return key, nil
	}
	return "", fmt.Errorf("config: TMDB_API_KEY not configured; set TMDB_API_KEY or TMDB_API_KEY_FILE")
}

func getenv(name, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(name)); v != "" {
		return v
	}
	return fallback
}

func splitenv(name, fallback string) []string {
	raw := getenv(name, fallback)
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func boolenv(name string) bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(name)))
	return v == "1" || v == "true" || v == "yes"
}
