// Package config handles application configuration and environment loading.
package config

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Catalog types.
const (
	CatalogDuckLake = "ducklake"
	CatalogMemory   = "memory"
)

// AuthConfig holds authentication configuration. Auth is disabled when
// neither a JWT secret nor an issuer is set.
type AuthConfig struct {
	JWTSecret      string   `yaml:"jwt_secret"`      // HS256 shared secret for local/dev JWT auth
	IssuerURL      string   `yaml:"issuer_url"`      // OIDC issuer URL
	Audience       string   `yaml:"audience"`        // Required JWT audience claim
	AllowedIssuers []string `yaml:"allowed_issuers"` // Accepted issuers (defaults to [IssuerURL])
	NameClaim      string   `yaml:"name_claim"`      // JWT claim for principal name (default: "email")
}

// Enabled reports whether requests must carry a bearer token.
func (a *AuthConfig) Enabled() bool {
	return a.JWTSecret != "" || a.IssuerURL != ""
}

// OIDCEnabled returns true when an external identity provider is configured.
func (a *AuthConfig) OIDCEnabled() bool {
	return a.IssuerURL != ""
}

// Validate checks that the auth configuration is internally consistent.
func (a *AuthConfig) Validate() error {
	if a.IssuerURL != "" && a.Audience == "" {
		return fmt.Errorf("AUTH_AUDIENCE is required when AUTH_ISSUER_URL is set")
	}
	return nil
}

// CatalogConfig selects and locates the table catalog.
type CatalogConfig struct {
	Type          string `yaml:"type"`           // "ducklake" (default) or "memory"
	MetastorePath string `yaml:"metastore_path"` // DuckLake SQLite metastore
	DataPath      string `yaml:"data_path"`      // overrides the metastore's data_path
	FixturePath   string `yaml:"fixture_path"`   // YAML/JSON fixture for the memory catalog
}

// S3Config holds optional S3-compatible object store settings.
type S3Config struct {
	Endpoint        string `yaml:"endpoint"`
	Region          string `yaml:"region"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
	UsePathStyle    bool   `yaml:"use_path_style"`
	Insecure        bool   `yaml:"insecure"` // plain http to Endpoint
}

// AzureConfig holds optional Azure Blob Storage settings.
type AzureConfig struct {
	AccountName string `yaml:"account_name"`
	AccountKey  string `yaml:"account_key"`
	ServiceURL  string `yaml:"service_url"`
}

// GCSConfig holds optional Google Cloud Storage settings.
type GCSConfig struct {
	CredentialsFile string `yaml:"credentials_file"`
}

// EngineConfig controls the embedded engines.
type EngineConfig struct {
	Enabled        bool          `yaml:"enabled"`         // start DuckDB (default true)
	Sessions       int           `yaml:"sessions"`        // DuckDB sessions (default 4)
	MemoryLimit    string        `yaml:"memory_limit"`    // e.g. "2GB"
	Threads        int           `yaml:"threads"`         // per session, 0 = engine default
	QueryTimeout   time.Duration `yaml:"query_timeout"`   // default 30s
	SQLiteFallback bool          `yaml:"sqlite_fallback"` // query fallback engine (default true)
}

// LimitsConfig caps the rows returned to clients.
type LimitsConfig struct {
	MaxPreviewRows int `yaml:"max_preview_rows"` // default 1000
	MaxQueryRows   int `yaml:"max_query_rows"`   // default 10000
}

// Config holds the configuration of the explorer server and CLI.
type Config struct {
	ListenAddr string `yaml:"listen_addr"` // HTTP listen address (default ":8080")
	LogLevel   string `yaml:"log_level"`   // log level: debug, info, warn, error (default "info")
	Env        string `yaml:"env"`         // environment: "development" (default) or "production"

	Catalog CatalogConfig `yaml:"catalog"`
	S3      S3Config      `yaml:"s3"`
	Azure   AzureConfig   `yaml:"azure"`
	GCS     GCSConfig     `yaml:"gcs"`
	Engine  EngineConfig  `yaml:"engine"`
	Limits  LimitsConfig  `yaml:"limits"`

	// Rate limiting
	RateLimitRPS   float64 `yaml:"rate_limit_rps"`   // sustained requests per second (default 100)
	RateLimitBurst int     `yaml:"rate_limit_burst"` // burst capacity (default 200)

	// CORS
	CORSAllowedOrigins []string `yaml:"cors_allowed_origins"` // allowed origins for CORS (default: ["*"])

	// Auth holds bearer token authentication configuration.
	Auth AuthConfig `yaml:"auth"`

	// Warnings collects non-fatal warnings generated during config loading.
	// These are logged by the caller after the logger is initialised.
	Warnings []string `yaml:"-"`
}

// SlogLevel maps the LogLevel string to an slog.Level.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// IsProduction returns true when the server is running in production mode.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

// HasS3Config returns true if S3 credentials or an endpoint are set.
func (c *Config) HasS3Config() bool {
	return c.S3.AccessKeyID != "" || c.S3.Endpoint != ""
}

// StorageEndpoint is the object store endpoint reported to clients.
func (c *Config) StorageEndpoint() string {
	switch {
	case c.S3.Endpoint != "":
		return c.S3.Endpoint
	case c.Azure.ServiceURL != "":
		return c.Azure.ServiceURL
	case c.Azure.AccountName != "":
		return "https://" + c.Azure.AccountName + ".blob.core.windows.net/"
	case c.GCS.CredentialsFile != "":
		return "https://storage.googleapis.com"
	}
	return ""
}

// Default returns a Config with every default applied.
func Default() *Config {
	cfg := base()
	cfg.applyDefaults()
	return cfg
}

// base holds the defaults of boolean settings, which a zero value cannot
// express.
func base() *Config {
	return &Config{
		S3:     S3Config{UsePathStyle: true},
		Engine: EngineConfig{Enabled: true, SQLiteFallback: true},
	}
}

// Load reads the config file at path when given, otherwise the
// environment.
func Load(path string) (*Config, error) {
	if path != "" {
		return LoadFromFile(path)
	}
	return LoadFromEnv()
}

// LoadFromFile reads a YAML or JSON config file. Unset fields keep their
// defaults.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path is caller-controlled
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	cfg := base()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.finish(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromEnv loads configuration from environment variables.
// Object store variables are optional; the app can start without them.
func LoadFromEnv() (*Config, error) {
	cfg := &Config{
		ListenAddr: os.Getenv("LISTEN_ADDR"),
		LogLevel:   os.Getenv("LOG_LEVEL"),
		Env:        os.Getenv("ENV"),
	}
	cfg.Catalog = CatalogConfig{
		Type:          strings.ToLower(os.Getenv("CATALOG_TYPE")),
		MetastorePath: os.Getenv("META_DB_PATH"),
		DataPath:      os.Getenv("DATA_PATH"),
		FixturePath:   os.Getenv("CATALOG_FIXTURE"),
	}
	cfg.S3 = S3Config{
		Endpoint:        os.Getenv("S3_ENDPOINT"),
		Region:          os.Getenv("S3_REGION"),
		AccessKeyID:     os.Getenv("S3_ACCESS_KEY"),
		SecretAccessKey: os.Getenv("S3_SECRET_KEY"),
		UsePathStyle:    parseBoolEnvDefault("S3_PATH_STYLE", true),
		Insecure:        parseBoolEnvDefault("S3_INSECURE", false),
	}
	cfg.Azure = AzureConfig{
		AccountName: os.Getenv("AZURE_STORAGE_ACCOUNT"),
		AccountKey:  os.Getenv("AZURE_STORAGE_KEY"),
		ServiceURL:  os.Getenv("AZURE_STORAGE_URL"),
	}
	cfg.GCS = GCSConfig{CredentialsFile: os.Getenv("GCS_CREDENTIALS_FILE")}
	cfg.Engine = EngineConfig{
		Enabled:        parseBoolEnvDefault("ENGINE_ENABLED", true),
		Sessions:       cfg.intEnv("ENGINE_SESSIONS"),
		MemoryLimit:    os.Getenv("ENGINE_MEMORY_LIMIT"),
		Threads:        cfg.intEnv("ENGINE_THREADS"),
		SQLiteFallback: parseBoolEnvDefault("SQLITE_FALLBACK", true),
	}
	if v := os.Getenv("QUERY_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Engine.QueryTimeout = d
		} else {
			cfg.Warnings = append(cfg.Warnings, fmt.Sprintf("QUERY_TIMEOUT %q is not a duration, using default", v))
		}
	}
	cfg.Limits = LimitsConfig{
		MaxPreviewRows: cfg.intEnv("MAX_PREVIEW_ROWS"),
		MaxQueryRows:   cfg.intEnv("MAX_QUERY_ROWS"),
	}

	// Rate limiting
	if v := os.Getenv("RATE_LIMIT_RPS"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.RateLimitRPS = f
		}
	}
	cfg.RateLimitBurst = cfg.intEnv("RATE_LIMIT_BURST")

	// CORS
	if v := os.Getenv("CORS_ALLOWED_ORIGINS"); v != "" {
		cfg.CORSAllowedOrigins = splitList(v)
	}

	cfg.Auth = AuthConfig{
		JWTSecret: os.Getenv("JWT_SECRET"),
		IssuerURL: os.Getenv("AUTH_ISSUER_URL"),
		Audience:  os.Getenv("AUTH_AUDIENCE"),
		NameClaim: os.Getenv("AUTH_NAME_CLAIM"),
	}
	if v := os.Getenv("AUTH_ALLOWED_ISSUERS"); v != "" {
		cfg.Auth.AllowedIssuers = splitList(v)
	}

	if err := cfg.finish(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// finish applies defaults and validates.
func (c *Config) finish() error {
	c.applyDefaults()
	return c.validate()
}

func (c *Config) applyDefaults() {
	if c.ListenAddr == "" {
		c.ListenAddr = ":8080"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.Catalog.Type == "" {
		c.Catalog.Type = CatalogDuckLake
	}
	if c.Catalog.Type == CatalogDuckLake && c.Catalog.MetastorePath == "" {
		c.Catalog.MetastorePath = "ducklake_meta.sqlite"
	}
	if c.S3.Region == "" {
		c.S3.Region = "us-east-1"
	}
	if c.Engine.Sessions <= 0 {
		c.Engine.Sessions = 4
	}
	if c.Engine.QueryTimeout == 0 {
		c.Engine.QueryTimeout = 30 * time.Second
	}
	if c.Limits.MaxPreviewRows <= 0 {
		c.Limits.MaxPreviewRows = 1000
	}
	if c.Limits.MaxQueryRows <= 0 {
		c.Limits.MaxQueryRows = 10000
	}
	if c.RateLimitRPS == 0 {
		c.RateLimitRPS = 100
	}
	if c.RateLimitBurst == 0 {
		c.RateLimitBurst = 200
	}
	if len(c.CORSAllowedOrigins) == 0 {
		c.CORSAllowedOrigins = []string{"*"}
	}
	if c.Auth.NameClaim == "" {
		c.Auth.NameClaim = "email"
	}
	if len(c.Auth.AllowedIssuers) == 0 && c.Auth.IssuerURL != "" {
		c.Auth.AllowedIssuers = []string{c.Auth.IssuerURL}
	}
}

func (c *Config) validate() error {
	switch c.Catalog.Type {
	case CatalogDuckLake:
	case CatalogMemory:
		if c.Catalog.FixturePath == "" {
			c.Warnings = append(c.Warnings, "memory catalog has no fixture (CATALOG_FIXTURE), starting empty")
		}
	default:
		return fmt.Errorf("unknown catalog type %q (want %s or %s)", c.Catalog.Type, CatalogDuckLake, CatalogMemory)
	}
	if err := c.Auth.Validate(); err != nil {
		return err
	}
	if c.S3.AccessKeyID != "" && c.S3.SecretAccessKey == "" {
		return fmt.Errorf("S3_SECRET_KEY is required when S3_ACCESS_KEY is set")
	}
	if c.Azure.AccountName != "" && c.Azure.AccountKey == "" {
		return fmt.Errorf("AZURE_STORAGE_KEY is required when AZURE_STORAGE_ACCOUNT is set")
	}
	if c.Engine.QueryTimeout < 0 {
		return fmt.Errorf("query timeout must not be negative")
	}
	if !c.Engine.Enabled {
		c.Warnings = append(c.Warnings, "DuckDB engine disabled, previews and statistics use the in-memory fallback")
	}
	if !c.Auth.Enabled() {
		c.Warnings = append(c.Warnings, "authentication is disabled, set JWT_SECRET or AUTH_ISSUER_URL")
	}

	// Production mode: insecure defaults are fatal errors.
	if c.IsProduction() {
		if !c.Auth.Enabled() {
			return fmt.Errorf("authentication must be configured in production (set JWT_SECRET or AUTH_ISSUER_URL)")
		}
		if len(c.CORSAllowedOrigins) == 1 && c.CORSAllowedOrigins[0] == "*" {
			return fmt.Errorf("CORS wildcard (*) is not allowed in production (ENV=production)")
		}
	}
	return nil
}

// intEnv parses an integer variable; invalid values are reported as a
// warning and read as 0.
func (c *Config) intEnv(key string) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		c.Warnings = append(c.Warnings, fmt.Sprintf("%s %q is not an integer, using default", key, v))
		return 0
	}
	return n
}

func parseBoolEnvDefault(key string, defaultVal bool) bool {
	v := strings.TrimSpace(strings.ToLower(os.Getenv(key)))
	if v == "" {
		return defaultVal
	}
	if v == "0" || v == "false" || v == "no" || v == "off" {
		return false
	}
	if v == "1" || v == "true" || v == "yes" || v == "on" {
		return true
	}
	return defaultVal
}

func splitList(v string) []string {
	items := strings.Split(v, ",")
	for i := range items {
		items[i] = strings.TrimSpace(items[i])
	}
	return compactNonEmpty(items)
}

func compactNonEmpty(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}

// LoadDotEnv reads a .env file and sets any variables not already in the environment.
// Lines must be in KEY=VALUE format. Comments (#) and blank lines are skipped.
func LoadDotEnv(path string) error {
	f, err := os.Open(path) //nolint:gosec // path is caller-controlled
	if err != nil {
		if os.IsNotExist(err) {
			return nil // .env not found is not an error
		}
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close() //nolint:errcheck

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		value = stripQuotes(value)
		// Only set if not already in the environment (env vars take precedence)
		if os.Getenv(key) == "" {
			if err := os.Setenv(key, value); err != nil {
				return fmt.Errorf("setenv %s: %w", key, err)
			}
		}
	}
	return scanner.Err()
}

// stripQuotes removes surrounding double or single quotes from a value.
// Only strips if both the first and last characters are matching quotes.
func stripQuotes(s string) string {
	if len(s) >= 2 {
		if (s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '\'' && s[len(s)-1] == '\'') {
			return s[1 : len(s)-1]
		}
	}
	return s
}
