package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/streamop/switchwatch/pkg/models"
)

// Config holds all configuration for the application
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Queue    QueueConfig
	Auth     AuthConfig
	Logging  LoggingConfig
	Tracing  TracingConfig
	Monitor  MonitorConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port            int
	Host            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	RateLimitRPS    int
	RateLimitBurst  int
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
	MaxConns int
	MinConns int
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// QueueConfig holds message queue configuration
type QueueConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Vhost    string
}

// AuthConfig holds API authentication configuration
type AuthConfig struct {
	JWTSecret string
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string
	Format string
	Output string
}

// TracingConfig holds distributed tracing configuration
type TracingConfig struct {
	Enabled        bool
	ServiceName    string
	JaegerEndpoint string
}

// MonitorConfig holds stream health monitoring configuration
type MonitorConfig struct {
	// PollInterval is how often every stream server is probed. nginx-rtmp
	// refreshes its stats every 10 seconds, so anything faster just reads
	// the same sample twice.
	PollInterval time.Duration

	// Confirmations is how many consecutive identical decisions are
	// required before a transition is acted on.
	Confirmations int

	// OfflineKbps and LowKbps are the classifier cutoffs in kbps.
	// Zero disables the cutoff.
	OfflineKbps int64
	LowKbps     int64

	// MetricsPort is where the standalone Prometheus endpoint listens.
	MetricsPort int

	// StateTTL bounds how long a cached health snapshot stays valid
	// without a fresh probe.
	StateTTL time.Duration
}

// Triggers converts the configured cutoffs into classifier triggers.
// A zero cutoff disables that branch.
func (m MonitorConfig) Triggers() models.Triggers {
	var t models.Triggers
	if m.OfflineKbps > 0 {
		offline := m.OfflineKbps
		t.Offline = &offline
	}
	if m.LowKbps > 0 {
		low := m.LowKbps
		t.Low = &low
	}
	return t
}

// Load reads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")
	viper.AutomaticEnv()

	// Set defaults
	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &config, nil
}

func setDefaults() {
	// Server defaults
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.readTimeout", "30s")
	viper.SetDefault("server.writeTimeout", "30s")
	viper.SetDefault("server.shutdownTimeout", "10s")
	viper.SetDefault("server.rateLimitRPS", 10)
	viper.SetDefault("server.rateLimitBurst", 20)

	// Database defaults
	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.user", "postgres")
	viper.SetDefault("database.password", "postgres")
	viper.SetDefault("database.dbname", "switchwatch")
	viper.SetDefault("database.sslmode", "disable")
	viper.SetDefault("database.maxConns", 25)
	viper.SetDefault("database.minConns", 5)

	// Redis defaults
	viper.SetDefault("redis.host", "localhost")
	viper.SetDefault("redis.port", 6379)
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)

	// Queue defaults
	viper.SetDefault("queue.host", "localhost")
	viper.SetDefault("queue.port", 5672)
	viper.SetDefault("queue.user", "guest")
	viper.SetDefault("queue.password", "guest")
	viper.SetDefault("queue.vhost", "/")

	// Auth defaults
	viper.SetDefault("auth.jwtSecret", "")

	// Logging defaults
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")
	viper.SetDefault("logging.output", "stdout")

	// Tracing defaults
	viper.SetDefault("tracing.enabled", false)
	viper.SetDefault("tracing.serviceName", "switchwatch")
	viper.SetDefault("tracing.jaegerEndpoint", "http://localhost:14268/api/traces")

	// Monitor defaults
	viper.SetDefault("monitor.pollInterval", "10s")
	viper.SetDefault("monitor.confirmations", 3)
	viper.SetDefault("monitor.offlineKbps", 0)
	viper.SetDefault("monitor.lowKbps", 0)
	viper.SetDefault("monitor.metricsPort", 9091)
	viper.SetDefault("monitor.stateTTL", "1m")
}
