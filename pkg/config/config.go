package config

import (
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env  string
	Port int

	Database DatabaseConfig
	Redis    RedisConfig
	JWT      JWTConfig
	Crypto   CryptoConfig
	Tenant   TenantConfig
	Session  SessionConfig
	Limiter  LimiterConfig
	CORS     CORSConfig
	Log      LogConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// JWTConfig carries signing material for access tokens. Expiry is fixed by
// the token service and deliberately absent here.
type JWTConfig struct {
	Secret   string
	Issuer   string
	Audience []string
}

// CryptoConfig carries field-level cryptography material.
type CryptoConfig struct {
	// PIILookupSalt keys the deterministic lookup digest for national IDs.
	// Currently a deployment-wide constant matching the seeded fixtures;
	// deriving it per tenant is tracked as open follow-up work.
	PIILookupSalt string
	// AESKey is the 32-byte AES-256-GCM key for PII at rest.
	AESKey []byte
}

// TenantConfig governs host-to-tenant resolution and its cache.
type TenantConfig struct {
	DefaultTenantID    string
	DefaultDatabaseURL string
	CacheTTL           time.Duration
	CacheMaxEntries    int
}

// SessionConfig governs refresh session lifetimes and hygiene.
type SessionConfig struct {
	RefreshTTL       time.Duration
	RevokedRetention time.Duration
	CleanupInterval  time.Duration
	CleanupEnabled   bool
}

// LimiterConfig throttles repeated login attempts per identifier.
type LimiterConfig struct {
	Enabled     bool
	MaxAttempts int
	Window      time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{
		Secret:   v.GetString("JWT_SECRET"),
		Issuer:   v.GetString("JWT_ISSUER"),
		Audience: splitAndTrim(v.GetString("JWT_AUDIENCE")),
	}

	cfg.Crypto = CryptoConfig{
		PIILookupSalt: v.GetString("PII_LOOKUP_SALT"),
		AESKey:        parseAESKey(v.GetString("AES_KEY_HEX")),
	}

	cfg.Tenant = TenantConfig{
		DefaultTenantID:    v.GetString("TENANT_DEFAULT_ID"),
		DefaultDatabaseURL: v.GetString("TENANT_DEFAULT_DATABASE_URL"),
		CacheTTL:           parseDuration(v.GetString("TENANT_CACHE_TTL"), 5*time.Minute),
		CacheMaxEntries:    v.GetInt("TENANT_CACHE_MAX_ENTRIES"),
	}

	cfg.Session = SessionConfig{
		RefreshTTL:       parseDuration(v.GetString("SESSION_REFRESH_TTL"), 14*24*time.Hour),
		RevokedRetention: parseDuration(v.GetString("SESSION_REVOKED_RETENTION"), 7*24*time.Hour),
		CleanupInterval:  parseDuration(v.GetString("SESSION_CLEANUP_INTERVAL"), time.Hour),
		CleanupEnabled:   v.GetBool("SESSION_CLEANUP_ENABLED"),
	}

	cfg.Limiter = LimiterConfig{
		Enabled:     v.GetBool("LOGIN_RATE_LIMIT_ENABLED"),
		MaxAttempts: v.GetInt("LOGIN_RATE_LIMIT_MAX_ATTEMPTS"),
		Window:      parseDuration(v.GetString("LOGIN_RATE_LIMIT_WINDOW"), 15*time.Minute),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8787)

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "schoolorbit")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_32bytes_minimum_secret________________________________")
	v.SetDefault("JWT_ISSUER", "schoolorbit-auth")
	v.SetDefault("JWT_AUDIENCE", "")

	v.SetDefault("PII_LOOKUP_SALT", "default_salt")
	v.SetDefault("AES_KEY_HEX", "32bytes_hex_for_AESGCM_encrypt_NID")

	v.SetDefault("TENANT_DEFAULT_ID", "default")
	v.SetDefault("TENANT_DEFAULT_DATABASE_URL", "postgres://localhost:5432/schoolorbit")
	v.SetDefault("TENANT_CACHE_TTL", "5m")
	v.SetDefault("TENANT_CACHE_MAX_ENTRIES", 128)

	v.SetDefault("SESSION_REFRESH_TTL", "336h")
	v.SetDefault("SESSION_REVOKED_RETENTION", "168h")
	v.SetDefault("SESSION_CLEANUP_INTERVAL", "1h")
	v.SetDefault("SESSION_CLEANUP_ENABLED", true)

	v.SetDefault("LOGIN_RATE_LIMIT_ENABLED", false)
	v.SetDefault("LOGIN_RATE_LIMIT_MAX_ATTEMPTS", 10)
	v.SetDefault("LOGIN_RATE_LIMIT_WINDOW", "15m")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
}

// parseAESKey accepts either a 64-char hex string or a raw passphrase that is
// truncated/zero-padded to 32 bytes, mirroring the legacy deployment format.
func parseAESKey(raw string) []byte {
	key := make([]byte, 32)
	if len(raw) == 64 {
		if decoded, err := hex.DecodeString(raw); err == nil {
			copy(key, decoded)
			return key
		}
	}
	copy(key, raw)
	return key
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
