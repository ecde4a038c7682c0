package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment variable names. Env values override the YAML file.
const (
	EnvConfigPath          = "CONFIG_PATH"
	EnvDBConnection        = "DB_CONNECTION"
	EnvAPIKeySecret        = "API_KEY_SECRET"
	EnvSessionTokenSecret  = "SESSION_TOKEN_SECRET"
	EnvJWTSecret           = "JWT_SECRET"
	EnvDownloadTokenSecret = "DOWNLOAD_TOKEN_SECRET"
	EnvSessionTTLSeconds   = "SESSION_TTL_SECONDS"
	EnvJWTTTLSeconds       = "JWT_TTL_SECONDS"
	EnvDownloadTTLSeconds  = "DOWNLOAD_TOKEN_TTL_SECONDS"
	EnvPresignTTLSeconds   = "PRESIGN_TTL_SECONDS"
	EnvDownloadBindIP      = "DOWNLOAD_BIND_IP"
	EnvDownloadBindUA      = "DOWNLOAD_BIND_UA"
	EnvPublicBaseURL       = "PUBLIC_BASE_URL"
	EnvR2AccountID         = "R2_ACCOUNT_ID"
	EnvR2AccessKeyID       = "R2_ACCESS_KEY_ID"
	EnvR2SecretAccessKey   = "R2_SECRET_ACCESS_KEY"
	EnvR2BucketName        = "R2_BUCKET_NAME"
	EnvRedisAddr           = "REDIS_ADDR"
	EnvRedisPassword       = "REDIS_PASSWORD"
)

// Defaults applied when neither file nor environment sets a value.
const (
	DefaultSessionTTL       = 24 * time.Hour
	DefaultSignedTokenTTL   = time.Hour
	DefaultDownloadTokenTTL = time.Minute
	DefaultPresignTTL       = time.Minute
	DefaultMaxFileSizeMB    = 200
	DefaultMaxRows          = 200000
	DefaultMaxColumns       = 200
	DefaultPort             = 8318
)

// LimitRule is one configured ceiling on a bucket.
type LimitRule struct {
	Name          string `yaml:"name"`
	Max           int64  `yaml:"max"`
	WindowSeconds int64  `yaml:"window-seconds"`
}

// RedisConfig holds optional Redis limiter backend settings.
type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix"`
}

// StorageConfig holds object store settings (Cloudflare R2 or any
// S3-compatible endpoint).
type StorageConfig struct {
	AccountID       string `yaml:"account-id"`
	Endpoint        string `yaml:"endpoint"`
	AccessKeyID     string `yaml:"access-key-id"`
	SecretAccessKey string `yaml:"secret-access-key"`
	Bucket          string `yaml:"bucket"`
}

// Config is the immutable application configuration, resolved once at
// startup and passed into each component at construction time.
type Config struct {
	Port          int    `yaml:"port"`
	DatabaseDSN   string `yaml:"database-dsn"`
	PublicBaseURL string `yaml:"public-base-url"`

	APIKeySecret        string `yaml:"api-key-secret"`
	SessionTokenSecret  string `yaml:"session-token-secret"`
	JWTSecret           string `yaml:"jwt-secret"`
	DownloadTokenSecret string `yaml:"download-token-secret"`

	SessionTTL       time.Duration `yaml:"session-ttl"`
	SignedTokenTTL   time.Duration `yaml:"signed-token-ttl"`
	DownloadTokenTTL time.Duration `yaml:"download-token-ttl"`
	PresignTTL       time.Duration `yaml:"presign-ttl"`

	DownloadBindIP bool `yaml:"download-bind-ip"`
	DownloadBindUA bool `yaml:"download-bind-ua"`

	MaxFileSizeMB int `yaml:"max-file-size-mb"`
	MaxRows       int `yaml:"max-rows"`
	MaxColumns    int `yaml:"max-columns"`

	Redis   RedisConfig            `yaml:"redis"`
	Storage StorageConfig          `yaml:"storage"`
	Limits  map[string][]LimitRule `yaml:"limits"`
}

// ErrMissingDatabaseDSN indicates no database DSN was configured.
var ErrMissingDatabaseDSN = errors.New("config: missing database dsn (set `database-dsn` or env DB_CONNECTION)")

// Load reads the YAML config file when present, applies environment
// overrides, fills defaults, and validates required secrets.
func Load(path string) (Config, error) {
	cfg := Config{}

	if trimmed := strings.TrimSpace(path); trimmed != "" {
		data, errRead := os.ReadFile(trimmed)
		switch {
		case errRead == nil:
			if errUnmarshal := yaml.Unmarshal(data, &cfg); errUnmarshal != nil {
				return Config{}, fmt.Errorf("config: parse %s: %w", trimmed, errUnmarshal)
			}
		case os.IsNotExist(errRead):
			// env-only configuration is fine
		default:
			return Config{}, fmt.Errorf("config: read %s: %w", trimmed, errRead)
		}
	}

	applyEnvOverrides(&cfg)
	applyDefaults(&cfg)

	if errValidate := cfg.validate(); errValidate != nil {
		return Config{}, errValidate
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if dsn := strings.TrimSpace(os.Getenv(EnvDBConnection)); dsn != "" {
		cfg.DatabaseDSN = dsn
	}
	if secret := strings.TrimSpace(os.Getenv(EnvAPIKeySecret)); secret != "" {
		cfg.APIKeySecret = secret
	}
	if secret := strings.TrimSpace(os.Getenv(EnvSessionTokenSecret)); secret != "" {
		cfg.SessionTokenSecret = secret
	}
	if secret := strings.TrimSpace(os.Getenv(EnvJWTSecret)); secret != "" {
		cfg.JWTSecret = secret
	}
	if secret := strings.TrimSpace(os.Getenv(EnvDownloadTokenSecret)); secret != "" {
		cfg.DownloadTokenSecret = secret
	}
	if ttl, ok := envSeconds(EnvSessionTTLSeconds); ok {
		cfg.SessionTTL = ttl
	}
	if ttl, ok := envSeconds(EnvJWTTTLSeconds); ok {
		cfg.SignedTokenTTL = ttl
	}
	if ttl, ok := envSeconds(EnvDownloadTTLSeconds); ok {
		cfg.DownloadTokenTTL = ttl
	}
	if ttl, ok := envSeconds(EnvPresignTTLSeconds); ok {
		cfg.PresignTTL = ttl
	}
	if flag, ok := envBool(EnvDownloadBindIP); ok {
		cfg.DownloadBindIP = flag
	}
	if flag, ok := envBool(EnvDownloadBindUA); ok {
		cfg.DownloadBindUA = flag
	}
	if base := strings.TrimSpace(os.Getenv(EnvPublicBaseURL)); base != "" {
		cfg.PublicBaseURL = strings.TrimRight(base, "/")
	}
	if account := strings.TrimSpace(os.Getenv(EnvR2AccountID)); account != "" {
		cfg.Storage.AccountID = account
	}
	if key := strings.TrimSpace(os.Getenv(EnvR2AccessKeyID)); key != "" {
		cfg.Storage.AccessKeyID = key
	}
	if key := strings.TrimSpace(os.Getenv(EnvR2SecretAccessKey)); key != "" {
		cfg.Storage.SecretAccessKey = key
	}
	if bucket := strings.TrimSpace(os.Getenv(EnvR2BucketName)); bucket != "" {
		cfg.Storage.Bucket = bucket
	}
	if addr := strings.TrimSpace(os.Getenv(EnvRedisAddr)); addr != "" {
		cfg.Redis.Enabled = true
		cfg.Redis.Addr = addr
	}
	if password := strings.TrimSpace(os.Getenv(EnvRedisPassword)); password != "" {
		cfg.Redis.Password = password
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Port <= 0 || cfg.Port > 65535 {
		cfg.Port = DefaultPort
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = DefaultSessionTTL
	}
	if cfg.SignedTokenTTL <= 0 {
		cfg.SignedTokenTTL = DefaultSignedTokenTTL
	}
	if cfg.DownloadTokenTTL <= 0 {
		cfg.DownloadTokenTTL = DefaultDownloadTokenTTL
	}
	if cfg.PresignTTL <= 0 {
		cfg.PresignTTL = DefaultPresignTTL
	}
	if cfg.MaxFileSizeMB <= 0 {
		cfg.MaxFileSizeMB = DefaultMaxFileSizeMB
	}
	if cfg.MaxRows <= 0 {
		cfg.MaxRows = DefaultMaxRows
	}
	if cfg.MaxColumns <= 0 {
		cfg.MaxColumns = DefaultMaxColumns
	}
	if cfg.JWTSecret == "" {
		cfg.JWTSecret = cfg.SessionTokenSecret
	}
	if cfg.Storage.Endpoint == "" && cfg.Storage.AccountID != "" {
		cfg.Storage.Endpoint = fmt.Sprintf("https://%s.r2.cloudflarestorage.com", cfg.Storage.AccountID)
	}
}

func (cfg Config) validate() error {
	if strings.TrimSpace(cfg.DatabaseDSN) == "" {
		return ErrMissingDatabaseDSN
	}
	if cfg.APIKeySecret == "" {
		return errors.New("config: missing api key secret (env API_KEY_SECRET)")
	}
	if cfg.SessionTokenSecret == "" {
		return errors.New("config: missing session token secret (env SESSION_TOKEN_SECRET)")
	}
	if cfg.DownloadTokenSecret == "" {
		return errors.New("config: missing download token secret (env DOWNLOAD_TOKEN_SECRET)")
	}
	return nil
}

// ResolveConfigPath normalizes the config path and applies the default.
func ResolveConfigPath(p string) string {
	trimmed := strings.TrimSpace(p)
	if trimmed == "" {
		trimmed = strings.TrimSpace(os.Getenv(EnvConfigPath))
	}
	if trimmed == "" {
		trimmed = "./config.yaml"
	}
	return trimmed
}

func envSeconds(name string) (time.Duration, bool) {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return 0, false
	}
	seconds, errParse := strconv.Atoi(raw)
	if errParse != nil || seconds <= 0 {
		return 0, false
	}
	return time.Duration(seconds) * time.Second, true
}

func envBool(name string) (bool, bool) {
	raw := strings.ToLower(strings.TrimSpace(os.Getenv(name)))
	if raw == "" {
		return false, false
	}
	switch raw {
	case "1", "true", "yes", "y", "on":
		return true, true
	case "0", "false", "no", "n", "off":
		return false, true
	default:
		return false, false
	}
}
