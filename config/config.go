// config/config.go
package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// HTTPConfig groups HTTP/HTTPS port and protocol settings.
type HTTPConfig struct {
	HTTPPort  int  `mapstructure:"http_port"`
	HTTPSPort int  `mapstructure:"https_port"`
	UseHTTPS  bool `mapstructure:"use_https"`
}

// TLSConfig groups TLS / ACME settings.
type TLSConfig struct {
	CertFile            string `mapstructure:"cert_file"`
	KeyFile             string `mapstructure:"key_file"`
	UseLetsEncrypt      bool   `mapstructure:"use_lets_encrypt"`
	LetsEncryptEmail    string `mapstructure:"lets_encrypt_email"`
	LetsEncryptCacheDir string `mapstructure:"lets_encrypt_cache_dir"`
	Domain              string `mapstructure:"domain"`
}

// CORSConfig groups CORS behavior for the browser-facing API.
type CORSConfig struct {
	EnableCORS         bool     `mapstructure:"enable_cors"`
	CORSAllowedOrigins []string `mapstructure:"cors_allowed_origins"`
}

// StoreConfig selects and configures the lead persistence backend.
type StoreConfig struct {
	// Backend is one of: memory, postgres, mysql, sqlite, mongo.
	Backend     string `mapstructure:"store_backend"`
	PostgresURI string `mapstructure:"postgres_uri"`
	MySQLDSN    string `mapstructure:"mysql_dsn"`
	SQLitePath  string `mapstructure:"sqlite_path"`
	MongoURI    string `mapstructure:"mongo_uri"`
	MongoDB     string `mapstructure:"mongo_db"`
}

// SMTPConfig configures the confirmation-email sender. An empty Host selects
// the log-only sender.
type SMTPConfig struct {
	Host        string `mapstructure:"smtp_host"`
	Port        int    `mapstructure:"smtp_port"`
	Username    string `mapstructure:"smtp_username"`
	Password    string `mapstructure:"smtp_password"`
	FromAddress string `mapstructure:"smtp_from_address"`
	FromName    string `mapstructure:"smtp_from_name"`
	UseSSL      bool   `mapstructure:"smtp_use_ssl"`
}

// Config holds the full leadcapture service configuration.
type Config struct {
	// runtime
	Env      string `mapstructure:"env"`       // "dev" | "prod"
	LogLevel string `mapstructure:"log_level"` // debug, info, warn, error …

	HTTP  HTTPConfig  `mapstructure:",squash"`
	TLS   TLSConfig   `mapstructure:",squash"`
	CORS  CORSConfig  `mapstructure:",squash"`
	Store StoreConfig `mapstructure:",squash"`
	SMTP  SMTPConfig  `mapstructure:",squash"`

	// SubmitCooldown is the guard's post-submission cooldown window.
	SubmitCooldown time.Duration `mapstructure:"-"`

	// Optional lead-created event publishing; empty AMQPURL disables it.
	AMQPURL      string `mapstructure:"amqp_url"`
	AMQPExchange string `mapstructure:"amqp_exchange"`

	// Optional GeoIP enrichment; empty path disables it.
	GeoIPDB string `mapstructure:"geoip_db"`

	DBConnectTimeout    time.Duration `mapstructure:"-"`
	MaxRequestBodyBytes int64         `mapstructure:"max_request_body_bytes"`
}

// Dump returns a pretty, redacted JSON string of the config for debugging.
// Never logs secrets; use at debug level only.
func (c Config) Dump() string {
	s := c.redactedCopy()
	b, _ := json.MarshalIndent(s, "", "  ")
	return string(b)
}

func (c Config) redactedCopy() Config {
	cp := c
	if cp.SMTP.Password != "" {
		cp.SMTP.Password = "[REDACTED]"
	}
	// Connection strings may embed credentials.
	cp.Store.PostgresURI = redactURI(cp.Store.PostgresURI)
	cp.Store.MySQLDSN = redactURI(cp.Store.MySQLDSN)
	cp.Store.MongoURI = redactURI(cp.Store.MongoURI)
	cp.AMQPURL = redactURI(cp.AMQPURL)
	return cp
}

func redactURI(s string) string {
	if s == "" {
		return ""
	}
	return "[REDACTED]"
}

// Load merges defaults → config.* file(s) → env vars → explicit flags into
// one Config. Final precedence (highest wins): flags(explicit) > env >
// config > defaults.
func Load(logger *zap.Logger) (*Config, error) {
	// 0) Optionally load .env (safe: real env still wins over .env)
	if err := godotenv.Load(); err == nil && logger != nil {
		logger.Info("Loaded .env file")
	}

	// 1) Define flags (only *explicitly set* flags will override)
	pflag.String("env", "dev", `Runtime environment "dev"|"prod"`)
	pflag.String("log_level", "debug", "Log level")

	pflag.Int("http_port", 8080, "HTTP port")
	pflag.Int("https_port", 443, "HTTPS port")
	pflag.Bool("use_https", false, "Serve HTTPS")

	pflag.Bool("use_lets_encrypt", false, "Use Let's Encrypt")
	pflag.String("lets_encrypt_email", "", "ACME account e-mail")
	pflag.String("lets_encrypt_cache_dir", "letsencrypt-cache", "ACME cache dir")
	pflag.String("cert_file", "", "TLS cert file (manual TLS)")
	pflag.String("key_file", "", "TLS key file  (manual TLS)")
	pflag.String("domain", "", "Domain for TLS or ACME")

	pflag.Bool("enable_cors", false, "Enable CORS")
	pflag.String("cors_allowed_origins", "", `JSON array of origins, e.g. '["https://a.example"]'`)

	pflag.String("store_backend", "memory", "Lead store backend: memory|postgres|mysql|sqlite|mongo")
	pflag.String("postgres_uri", "", "PostgreSQL connection string")
	pflag.String("mysql_dsn", "", "MySQL DSN")
	pflag.String("sqlite_path", "leadcapture.db", "SQLite database file")
	pflag.String("mongo_uri", "", "MongoDB connection string")
	pflag.String("mongo_db", "leadcapture", "MongoDB database name")

	pflag.String("smtp_host", "", "SMTP host (empty = log confirmations instead of sending)")
	pflag.Int("smtp_port", 587, "SMTP port")
	pflag.String("smtp_username", "", "SMTP username")
	pflag.String("smtp_password", "", "SMTP password")
	pflag.String("smtp_from_address", "", "Confirmation sender address")
	pflag.String("smtp_from_name", "", "Confirmation sender display name")
	pflag.Bool("smtp_use_ssl", false, "Use implicit SSL/TLS (port 465)")

	pflag.String("submit_cooldown", "3s", "Minimum gap between admitted submissions (e.g. \"3s\", \"500ms\")")

	pflag.String("amqp_url", "", "AMQP broker URL for lead-created events (empty = disabled)")
	pflag.String("amqp_exchange", "leadcapture", "AMQP exchange for lead-created events")

	pflag.String("geoip_db", "", "Path to a MaxMind GeoLite2 mmdb (empty = no country enrichment)")

	pflag.String("db_connect_timeout", "10s", "Startup timeout for backend connections (e.g., \"10s\", \"30s\")")
	pflag.Int64("max_request_body_bytes", 1<<20, "Max HTTP request body size in bytes (0 = unlimited)")
	pflag.Parse()

	// 2) Viper + env
	v := viper.New()
	v.SetEnvPrefix("LEADCAPTURE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	// Bind env for all keys so Unmarshal sees them.
	for _, k := range allKeys() {
		_ = v.BindEnv(k)
	}

	// 3) Optional config.* files (yaml|yml|json|toml)
	for _, ext := range [...]string{"yaml", "yml", "json", "toml"} {
		file := "config." + ext
		if _, err := os.Stat(file); err != nil {
			continue
		}
		b, err := os.ReadFile(file)
		if err != nil {
			if logger != nil {
				logger.Warn("cannot read config file", zap.String("file", file), zap.Error(err))
			}
			continue
		}
		v.SetConfigType(ext)
		if err := v.MergeConfig(bytes.NewReader(b)); err != nil {
			if logger != nil {
				logger.Warn("cannot decode config file", zap.String("file", file), zap.Error(err))
			}
			continue
		}
		if logger != nil {
			logger.Info("Loaded config file", zap.String("file", file))
		}
	}

	// 4) Defaults (lowest precedence)
	setDefaults(v)

	// 5) Apply *explicit* flags (highest precedence)
	pflag.CommandLine.VisitAll(func(f *pflag.Flag) {
		if f.Changed {
			_ = v.BindPFlag(f.Name, f)
		}
	})

	// 6) Normalize list keys (accept JSON strings → []string)
	if err := normalizeListKeys(logger, v, "cors_allowed_origins"); err != nil {
		return nil, err
	}

	// 7) Build struct
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	// Parse durations
	cooldown, err := parseDurationFlexible(v.Get("submit_cooldown"), 3*time.Second)
	if err != nil && logger != nil {
		logger.Warn("invalid submit_cooldown; using default 3s",
			zap.Any("value", v.Get("submit_cooldown")), zap.Error(err))
	}
	cfg.SubmitCooldown = cooldown

	dbDur, err := parseDurationFlexible(v.Get("db_connect_timeout"), 10*time.Second)
	if err != nil && logger != nil {
		logger.Warn("invalid db_connect_timeout; using default 10s",
			zap.Any("value", v.Get("db_connect_timeout")), zap.Error(err))
	}
	cfg.DBConnectTimeout = dbDur

	// 8) Validate
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func allKeys() []string {
	return []string{
		"env", "log_level",
		"http_port", "https_port", "use_https",
		"use_lets_encrypt", "lets_encrypt_email", "lets_encrypt_cache_dir",
		"cert_file", "key_file", "domain",
		"enable_cors", "cors_allowed_origins",
		"store_backend", "postgres_uri", "mysql_dsn", "sqlite_path",
		"mongo_uri", "mongo_db",
		"smtp_host", "smtp_port", "smtp_username", "smtp_password",
		"smtp_from_address", "smtp_from_name", "smtp_use_ssl",
		"submit_cooldown",
		"amqp_url", "amqp_exchange",
		"geoip_db",
		"db_connect_timeout", "max_request_body_bytes",
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("env", "dev")
	v.SetDefault("log_level", "debug")

	v.SetDefault("http_port", 8080)
	v.SetDefault("https_port", 443)
	v.SetDefault("use_https", false)

	v.SetDefault("use_lets_encrypt", false)
	v.SetDefault("lets_encrypt_email", "")
	v.SetDefault("lets_encrypt_cache_dir", "letsencrypt-cache")
	v.SetDefault("cert_file", "")
	v.SetDefault("key_file", "")
	v.SetDefault("domain", "")

	v.SetDefault("enable_cors", false)

	v.SetDefault("store_backend", "memory")
	v.SetDefault("sqlite_path", "leadcapture.db")
	v.SetDefault("mongo_db", "leadcapture")

	v.SetDefault("smtp_port", 587)
	v.SetDefault("smtp_use_ssl", false)

	v.SetDefault("submit_cooldown", "3s")
	v.SetDefault("amqp_exchange", "leadcapture")

	v.SetDefault("db_connect_timeout", "10s")
	v.SetDefault("max_request_body_bytes", 1<<20)
}

var validBackends = map[string]bool{
	"memory":   true,
	"postgres": true,
	"mysql":    true,
	"sqlite":   true,
	"mongo":    true,
}

func validateConfig(cfg Config) error {
	if cfg.Env != "dev" && cfg.Env != "prod" {
		return fmt.Errorf("env must be \"dev\" or \"prod\", got %q", cfg.Env)
	}
	if !validBackends[cfg.Store.Backend] {
		return fmt.Errorf("store_backend must be one of memory|postgres|mysql|sqlite|mongo, got %q", cfg.Store.Backend)
	}
	switch cfg.Store.Backend {
	case "postgres":
		if cfg.Store.PostgresURI == "" {
			return fmt.Errorf("postgres_uri required for the postgres backend")
		}
	case "mysql":
		if cfg.Store.MySQLDSN == "" {
			return fmt.Errorf("mysql_dsn required for the mysql backend")
		}
	case "mongo":
		if cfg.Store.MongoURI == "" {
			return fmt.Errorf("mongo_uri required for the mongo backend")
		}
	}
	if cfg.SMTP.Host != "" && cfg.SMTP.FromAddress == "" {
		return fmt.Errorf("smtp_from_address required when smtp_host is set")
	}
	if cfg.HTTP.UseHTTPS && !cfg.TLS.UseLetsEncrypt {
		if cfg.TLS.CertFile == "" || cfg.TLS.KeyFile == "" {
			return fmt.Errorf("cert_file and key_file required for manual HTTPS")
		}
	}
	if cfg.TLS.UseLetsEncrypt && cfg.TLS.Domain == "" {
		return fmt.Errorf("domain required when use_lets_encrypt is set")
	}
	return nil
}

// normalizeListKeys accepts list keys provided either as JSON array strings
// (common from env vars) or native lists from config files, and rewrites them
// as []string in viper.
func normalizeListKeys(logger *zap.Logger, v *viper.Viper, keys ...string) error {
	for _, key := range keys {
		raw := v.Get(key)
		switch t := raw.(type) {
		case nil:
			continue
		case []string:
			continue
		case []any:
			out := make([]string, 0, len(t))
			for _, e := range t {
				out = append(out, fmt.Sprintf("%v", e))
			}
			v.Set(key, out)
		case string:
			s := strings.TrimSpace(t)
			if s == "" {
				v.Set(key, []string{})
				continue
			}
			var out []string
			if err := json.Unmarshal([]byte(s), &out); err != nil {
				if logger != nil {
					logger.Warn("cannot parse list key as JSON array", zap.String("key", key), zap.Error(err))
				}
				return fmt.Errorf("%s must be a JSON array of strings: %w", key, err)
			}
			v.Set(key, out)
		default:
			return fmt.Errorf("%s has unsupported type %T", key, raw)
		}
	}
	return nil
}
