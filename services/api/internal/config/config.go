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

// ConfigPath is the default config location, overridable with CONFIG_PATH.
var ConfigPath = "config.yaml"

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverMemory   = "memory"

	defaultMaxUploadMB = 10
	defaultSessionTTL  = 7 * 24 * time.Hour
	minJWTSecretLength = 16
)

// RateLimits are requests per minute per client IP. Zero disables a limiter.
type RateLimits struct {
	SignUp      int `yaml:"signup"`
	SignIn      int `yaml:"signin"`
	SendMessage int `yaml:"sendMessage"`
	ParsePDF    int `yaml:"parsePdf"`
}

// FileConfig represents configuration loaded from YAML.
type FileConfig struct {
	Port           string     `yaml:"port"`
	LogLevel       string     `yaml:"logLevel"`
	LogsDir        string     `yaml:"logsDir"`
	DatabaseDriver string     `yaml:"databaseDriver"`
	DatabaseURL    string     `yaml:"databaseURL"`
	JWTSecret      string     `yaml:"jwtSecret"`
	JWTIssuer      string     `yaml:"jwtIssuer"`
	SessionTTL     string     `yaml:"sessionTTL"`
	RequireAuth    bool       `yaml:"requireAuth"`
	LLMProvider    string     `yaml:"llmProvider"`
	LLMBaseURL     string     `yaml:"llmBaseURL"`
	LLMAPIKey      string     `yaml:"llmApiKey"`
	LLMModel       string     `yaml:"llmModel"`
	HistoryLimit   int        `yaml:"historyLimit"`
	CORSOrigins    []string   `yaml:"corsOrigins"`
	TrustedProxies []string   `yaml:"trustedProxies"`
	RedisAddr      string     `yaml:"redisAddr"`
	RedisPassword  string     `yaml:"redisPassword"`
	RateLimits     RateLimits `yaml:"rateLimits"`
	MaxUploadMB    int        `yaml:"maxUploadMB"`
	PdftotextPath  string     `yaml:"pdftotextPath"`
	ArchiveDir     string     `yaml:"archiveDir"`
	MinioEndpoint  string     `yaml:"minioEndpoint"`
	MinioAccessKey string     `yaml:"minioAccessKey"`
	MinioSecretKey string     `yaml:"minioSecretKey"`
	MinioBucket    string     `yaml:"minioBucket"`
	MinioUseSSL    bool       `yaml:"minioUseSSL"`
}

// Load reads config from path (defaults to CONFIG_PATH or config.yaml) and
// applies environment overrides. A missing file is allowed when the
// environment supplies every required value.
func Load(path string) (FileConfig, error) {
	cfg := FileConfig{}
	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}
	if path == "" {
		path = ConfigPath
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config: %w", err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return cfg, fmt.Errorf("read config: %w", err)
	}
	applyEnv(&cfg)
	applyDefaults(&cfg)
	if err := validateConfig(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyEnv(cfg *FileConfig) {
	setString := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	setInt := func(key string, dst *int) {
		if v := os.Getenv(key); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				*dst = n
			}
		}
	}
	setBool := func(key string, dst *bool) {
		if v := os.Getenv(key); v != "" {
			if b, err := strconv.ParseBool(v); err == nil {
				*dst = b
			}
		}
	}
	setList := func(key string, dst *[]string) {
		if v := os.Getenv(key); v != "" {
			*dst = splitList(v)
		}
	}

	setString("PORT", &cfg.Port)
	setString("LOG_LEVEL", &cfg.LogLevel)
	setString("LOGS_DIR", &cfg.LogsDir)
	setString("DATABASE_DRIVER", &cfg.DatabaseDriver)
	setString("DATABASE_URL", &cfg.DatabaseURL)
	setString("JWT_SECRET", &cfg.JWTSecret)
	setString("JWT_ISSUER", &cfg.JWTIssuer)
	setString("SESSION_TTL", &cfg.SessionTTL)
	setBool("REQUIRE_AUTH", &cfg.RequireAuth)
	setString("LLM_PROVIDER", &cfg.LLMProvider)
	setString("LLM_BASE_URL", &cfg.LLMBaseURL)
	setString("OPENAI_API_KEY", &cfg.LLMAPIKey)
	setString("LLM_API_KEY", &cfg.LLMAPIKey)
	setString("LLM_MODEL", &cfg.LLMModel)
	setInt("HISTORY_LIMIT", &cfg.HistoryLimit)
	setList("CORS_ORIGINS", &cfg.CORSOrigins)
	setList("TRUSTED_PROXIES", &cfg.TrustedProxies)
	setString("REDIS_ADDR", &cfg.RedisAddr)
	setString("REDIS_PASSWORD", &cfg.RedisPassword)
	setInt("RATE_LIMIT_SIGNUP", &cfg.RateLimits.SignUp)
	setInt("RATE_LIMIT_SIGNIN", &cfg.RateLimits.SignIn)
	setInt("RATE_LIMIT_SEND_MESSAGE", &cfg.RateLimits.SendMessage)
	setInt("RATE_LIMIT_PARSE_PDF", &cfg.RateLimits.ParsePDF)
	setInt("MAX_UPLOAD_MB", &cfg.MaxUploadMB)
	setString("PDFTOTEXT_PATH", &cfg.PdftotextPath)
	setString("ARCHIVE_DIR", &cfg.ArchiveDir)
	setString("MINIO_ENDPOINT", &cfg.MinioEndpoint)
	setString("MINIO_ACCESS_KEY", &cfg.MinioAccessKey)
	setString("MINIO_SECRET_KEY", &cfg.MinioSecretKey)
	setString("MINIO_BUCKET", &cfg.MinioBucket)
	setBool("MINIO_USE_SSL", &cfg.MinioUseSSL)
}

func applyDefaults(cfg *FileConfig) {
	cfg.DatabaseDriver = strings.ToLower(strings.TrimSpace(cfg.DatabaseDriver))
	if cfg.DatabaseDriver == "" {
		cfg.DatabaseDriver = DriverPostgres
	}
	cfg.LLMProvider = strings.ToLower(strings.TrimSpace(cfg.LLMProvider))
	if cfg.LLMProvider == "" {
		cfg.LLMProvider = "openai"
	}
	if cfg.MaxUploadMB == 0 {
		cfg.MaxUploadMB = defaultMaxUploadMB
	}
}

func validateConfig(cfg FileConfig) error {
	if cfg.Port == "" {
		return errors.New("config: port is required (set in config.yaml or PORT)")
	}
	switch cfg.DatabaseDriver {
	case DriverPostgres, DriverSQLite:
		if strings.TrimSpace(cfg.DatabaseURL) == "" {
			return errors.New("config: databaseURL is required (set in config.yaml or DATABASE_URL)")
		}
	case DriverMemory:
	default:
		return fmt.Errorf("config: unsupported databaseDriver %q (postgres, sqlite or memory)", cfg.DatabaseDriver)
	}
	if len(strings.TrimSpace(cfg.JWTSecret)) < minJWTSecretLength {
		return fmt.Errorf("config: jwtSecret must be at least %d characters (set JWT_SECRET)", minJWTSecretLength)
	}
	if _, err := ParseSessionTTL(cfg.SessionTTL); err != nil {
		return err
	}
	switch cfg.LLMProvider {
	case "openai", "openai-compat", "gemini":
		if strings.TrimSpace(cfg.LLMAPIKey) == "" {
			return errors.New("config: llmApiKey is required (set OPENAI_API_KEY or LLM_API_KEY)")
		}
	case "ollama":
	default:
		return fmt.Errorf("config: unsupported llmProvider %q", cfg.LLMProvider)
	}
	if cfg.HistoryLimit < 0 {
		return errors.New("config: historyLimit must be >= 0")
	}
	if cfg.MaxUploadMB < 0 {
		return errors.New("config: maxUploadMB must be > 0")
	}
	if cfg.RateLimits.SignUp < 0 || cfg.RateLimits.SignIn < 0 || cfg.RateLimits.SendMessage < 0 || cfg.RateLimits.ParsePDF < 0 {
		return errors.New("config: rateLimits must be >= 0")
	}
	if strings.TrimSpace(cfg.MinioEndpoint) != "" {
		if cfg.MinioAccessKey == "" || cfg.MinioSecretKey == "" || cfg.MinioBucket == "" {
			return errors.New("config: minioEndpoint requires minioAccessKey, minioSecretKey and minioBucket")
		}
	}
	return nil
}

// ParseSessionTTL parses a Go duration; empty means seven days.
func ParseSessionTTL(value string) (time.Duration, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return defaultSessionTTL, nil
	}
	ttl, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("config: invalid sessionTTL %q: %w", value, err)
	}
	if ttl <= 0 {
		return 0, errors.New("config: sessionTTL must be > 0")
	}
	return ttl, nil
}

// MaxUploadBytes returns the upload body limit.
func (c FileConfig) MaxUploadBytes() int64 {
	return int64(c.MaxUploadMB) << 20
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
