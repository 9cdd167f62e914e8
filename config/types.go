package config

import (
	"errors"
	"fmt"
	"time"
)

type Config struct {
	Database      DatabaseConfig      `mapstructure:"database"`
	Redis         RedisConfig         `mapstructure:"redis"`
	Nats          NatsConfig          `mapstructure:"nats"`
	Server        ServerConfig        `mapstructure:"server"`
	Screening     ScreeningConfig     `mapstructure:"screening"`
	Authorization AuthorizationConfig `mapstructure:"authorization"`
	Email         EmailConfig         `mapstructure:"email"`
	SMS           SMSConfig           `mapstructure:"sms"`
	S3            S3Config            `mapstructure:"s3"`
	Observability ObservabilityConfig `mapstructure:"observability"`
	Logging       LoggingConfig       `mapstructure:"logging"`
}

type NatsConfig struct {
	Enabled       bool   `mapstructure:"enabled"`
	URL           string `mapstructure:"url"`
	SubjectPrefix string `mapstructure:"subject_prefix"`
}

type DatabaseConfig struct {
	Host       string                  `mapstructure:"host"`
	Port       int                     `mapstructure:"port"`
	User       string                  `mapstructure:"user"`
	Password   string                  `mapstructure:"password"`
	DBName     string                  `mapstructure:"dbname"`
	SSLMode    string                  `mapstructure:"sslmode"`
	Pool       DatabasePoolConfig      `mapstructure:"pool"`
	Migrations DatabaseMigrationConfig `mapstructure:"migrations"`
}

type DatabasePoolConfig struct {
	MaxConns           int `mapstructure:"max_conns"`
	MinConns           int `mapstructure:"min_conns"`
	ConnMaxLifetimeMin int `mapstructure:"conn_max_lifetime_minutes"`
}

type DatabaseMigrationConfig struct {
	AutoMigrate bool `mapstructure:"auto_migrate"`
}

type RedisConfig struct {
	Enabled             bool   `mapstructure:"enabled"`
	Addr                string `mapstructure:"addr"`
	DB                  int    `mapstructure:"db"`
	Username            string `mapstructure:"username"`
	Password            string `mapstructure:"password"`
	PoolSize            int    `mapstructure:"pool_size"`
	MinIdleConns        int    `mapstructure:"min_idle_conns"`
	DialTimeoutSeconds  int    `mapstructure:"dial_timeout_seconds"`
	ReadTimeoutSeconds  int    `mapstructure:"read_timeout_seconds"`
	WriteTimeoutSeconds int    `mapstructure:"write_timeout_seconds"`
}

type ServerConfig struct {
	Port           int        `mapstructure:"port"`
	TimeoutSeconds int        `mapstructure:"timeout_seconds"`
	Environment    string     `mapstructure:"environment"`
	PublicBaseURL  string     `mapstructure:"public_base_url"`
	CORS           CORSConfig `mapstructure:"cors"`
	RateLimit      RateLimit  `mapstructure:"rate_limit"`
}

type RateLimit struct {
	Max               int `mapstructure:"max"`
	ExpirationSeconds int `mapstructure:"expiration_seconds"`
}

type CORSConfig struct {
	Enabled      bool     `mapstructure:"enabled"`
	AllowOrigins []string `mapstructure:"allow_origins"`
}

// ScreeningConfig drives the token lifecycle and the expiry sweeper.
type ScreeningConfig struct {
	Store                string `mapstructure:"store"` // postgres | memory
	TokenTTLHours        int    `mapstructure:"token_ttl_hours"`
	TokenByteLength      int    `mapstructure:"token_byte_length"`
	SweepEnabled         bool   `mapstructure:"sweep_enabled"`
	SweepIntervalMinutes int    `mapstructure:"sweep_interval_minutes"`
	// Directory preloads patients and doctors into the memory store. It is
	// ignored with the postgres store, where the directory is owned by the
	// surrounding product.
	Directory DirectoryConfig `mapstructure:"directory"`
}

type DirectoryConfig struct {
	Patients []DirectoryEntry `mapstructure:"patients"`
	Doctors  []DirectoryEntry `mapstructure:"doctors"`
}

type DirectoryEntry struct {
	ID       string `mapstructure:"id"`
	FullName string `mapstructure:"full_name"`
	Email    string `mapstructure:"email"`
	Phone    string `mapstructure:"phone"`
}

const (
	StorePostgres = "postgres"
	StoreMemory   = "memory"

	DefaultTokenTTL        = 7 * 24 * time.Hour
	DefaultTokenByteLength = 32
	MinTokenByteLength     = 16
)

// TokenTTL returns the configured validity window or the default week.
func (s ScreeningConfig) TokenTTL() time.Duration {
	if s.TokenTTLHours == 0 {
		return DefaultTokenTTL
	}
	return time.Duration(s.TokenTTLHours) * time.Hour
}

func (s ScreeningConfig) TokenBytes() int {
	if s.TokenByteLength == 0 {
		return DefaultTokenByteLength
	}
	return s.TokenByteLength
}

func (s ScreeningConfig) SweepInterval() time.Duration {
	if s.SweepIntervalMinutes <= 0 {
		return 15 * time.Minute
	}
	return time.Duration(s.SweepIntervalMinutes) * time.Minute
}

type AuthorizationConfig struct {
	CasbinModelPath  string `mapstructure:"casbin_model_path"`
	CasbinPolicyPath string `mapstructure:"casbin_policy_path"`
	EnableAudit      bool   `mapstructure:"enable_audit"`
}

type EmailConfig struct {
	Enabled      bool       `mapstructure:"enabled"`
	From         string     `mapstructure:"from"`
	DashboardURL string     `mapstructure:"dashboard_url"`
	SMTP         SMTPConfig `mapstructure:"smtp"`
}

type SMTPConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Username       string `mapstructure:"username"`
	Password       string `mapstructure:"password"`
	UseTLS         bool   `mapstructure:"use_tls"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

type SMSConfig struct {
	Enabled       bool        `mapstructure:"enabled"`
	DefaultRegion string      `mapstructure:"default_region"`
	SMSIR         SMSIRConfig `mapstructure:"smsir"`
}

type SMSIRConfig struct {
	APIKey     string `mapstructure:"api_key"`
	SecretKey  string `mapstructure:"secret_key"`
	TemplateID string `mapstructure:"template_id"`
}

type ObservabilityConfig struct {
	Enabled        bool          `mapstructure:"enabled"`
	ServiceName    string        `mapstructure:"service_name"`
	ServiceVersion string        `mapstructure:"service_version"`
	Tracing        TracingConfig `mapstructure:"tracing"`
	Metrics        MetricsConfig `mapstructure:"metrics"`
}

type TracingConfig struct {
	Enabled      bool    `mapstructure:"enabled"`
	OTLPEndpoint string  `mapstructure:"otlp_endpoint"`
	OTLPInsecure bool    `mapstructure:"otlp_insecure"`
	SamplingRate float64 `mapstructure:"sampling_rate"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

type LoggingConfig struct {
	Level  string       `mapstructure:"level"`  // debug, info, warn, error
	Format string       `mapstructure:"format"` // text, json
	Output OutputConfig `mapstructure:"output"`
}

type OutputConfig struct {
	Stdout bool          `mapstructure:"stdout"`
	File   FileLogConfig `mapstructure:"file"`
	Loki   LokiConfig    `mapstructure:"loki"`
}

type FileLogConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	Path       string `mapstructure:"path"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

type LokiConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Endpoint string `mapstructure:"endpoint"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

type S3Config struct {
	Enabled         bool   `mapstructure:"enabled"`
	Endpoint        string `mapstructure:"endpoint"`
	Region          string `mapstructure:"region"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	Bucket          string `mapstructure:"bucket"`
	ReportPrefix    string `mapstructure:"report_prefix"`
}

var (
	ErrTokenTooShort = errors.New("screening.token_byte_length must provide at least 128 bits")
	ErrTokenTTL      = errors.New("screening.token_ttl_hours must be positive")
	ErrUnknownStore  = errors.New("screening.store must be postgres or memory")
)

func (c *Config) Validate() error {
	if c.Screening.TokenTTLHours < 0 {
		return ErrTokenTTL
	}
	if c.Screening.TokenByteLength != 0 && c.Screening.TokenByteLength < MinTokenByteLength {
		return fmt.Errorf("%w: got %d bytes", ErrTokenTooShort, c.Screening.TokenByteLength)
	}
	switch c.Screening.Store {
	case "", StorePostgres, StoreMemory:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownStore, c.Screening.Store)
	}
	return nil
}
