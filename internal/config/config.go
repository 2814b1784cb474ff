package config

import (
	"flag"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config represents the application configuration shared by the queue
// service, the workers, and the task boundary.
type Config struct {
	// Server configuration (queue service HTTP boundary)
	Server ServerConfig `env:"SERVER"`

	// Worker configuration (polling consumers)
	Worker WorkerConfig `env:"WORKER"`

	// Task boundary configuration
	Task TaskConfig `env:"TASK"`

	// Logging configuration
	Logging LoggingConfig `env:"LOGGING"`

	// Metrics configuration
	Metrics MetricsConfig `env:"METRICS"`
}

// ServerConfig holds queue-service HTTP configuration
type ServerConfig struct {
	// HTTP server address
	HTTPAddr string `env:"HTTP_ADDR" envDefault:":3002"`

	// Graceful shutdown timeout
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`

	// Allowed CORS origins ("*" for any)
	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"*"`
}

// WorkerConfig holds polling-consumer configuration
type WorkerConfig struct {
	// Queue service base URL
	QueueAPIURL string `env:"QUEUE_API_URL" envDefault:"http://localhost:3002"`

	// Queue the worker consumes from (each worker binary fills its own
	// default when unset)
	QueueName string `env:"WORKER_QUEUE"`

	// Queue derived messages are forwarded to (empty for terminal workers)
	ForwardQueue string `env:"WORKER_FORWARD_QUEUE"`

	// Worker identity reported in processing results
	Name string `env:"WORKER_NAME"`

	// Nominal poll interval
	PollInterval time.Duration `env:"WORKER_POLL_INTERVAL" envDefault:"1s"`

	// Back-off interval after a transport error
	ErrorRetryInterval time.Duration `env:"WORKER_ERROR_RETRY_INTERVAL" envDefault:"5s"`

	// Messages requested per poll
	MaxMessages int `env:"WORKER_MAX_MESSAGES" envDefault:"1"`

	// Per-request timeout against the queue service
	RequestTimeout time.Duration `env:"WORKER_REQUEST_TIMEOUT" envDefault:"5s"`
}

// TaskConfig holds task-boundary configuration
type TaskConfig struct {
	// HTTP server address for the task service binary
	HTTPAddr string `env:"TASK_HTTP_ADDR" envDefault:":3003"`

	// Task submission endpoint used by the relay worker (empty disables
	// submission)
	SubmitURL string `env:"TASK_SUBMIT_URL"`

	// User identity attached to submitted tasks
	UserID string `env:"TASK_USER_ID" envDefault:"demo-user"`

	// Fraction of submissions the demo admission policy rejects
	RejectRate float64 `env:"TASK_REJECT_RATE" envDefault:"0.1"`
}

// LoggingConfig holds logging-related configuration
type LoggingConfig struct {
	// Log level: "debug", "info", "warn", "error"
	Level string `env:"LOG_LEVEL" envDefault:"info"`

	// Log format: "json", "text"
	Format string `env:"LOG_FORMAT" envDefault:"json"`

	// Log file path (empty for stdout)
	Output string `env:"LOG_OUTPUT" envDefault:""`

	// Enable log rotation
	Rotation bool `env:"LOG_ROTATION" envDefault:"true"`

	// Max log file size in MB
	MaxSize int `env:"LOG_MAX_SIZE" envDefault:"100"`

	// Number of backup files to keep
	MaxBackups int `env:"LOG_MAX_BACKUPS" envDefault:"7"`

	// Max age in days
	MaxAge int `env:"LOG_MAX_AGE" envDefault:"30"`
}

// MetricsConfig holds metrics- and tracing-related configuration
type MetricsConfig struct {
	// Enable Prometheus metrics
	Enabled bool `env:"METRICS_ENABLED" envDefault:"true"`

	// Metrics server address
	Addr string `env:"METRICS_ADDR" envDefault:":9090"`

	// Metrics path
	Path string `env:"METRICS_PATH" envDefault:"/metrics"`

	// Enable OpenTelemetry tracing
	TracingEnabled bool `env:"TRACING_ENABLED" envDefault:"false"`

	// OpenTelemetry endpoint
	TracingEndpoint string `env:"TRACING_ENDPOINT" envDefault:""`

	// OTLP exporter type: "grpc" or "http"
	TracingExporter string `env:"TRACING_EXPORTER" envDefault:"grpc"`

	// Skip TLS verification for the OTLP endpoint
	TracingInsecure bool `env:"TRACING_INSECURE" envDefault:"true"`

	// Fraction of traces sampled, 0.0-1.0
	TracingSampleRate float64 `env:"TRACING_SAMPLE_RATE" envDefault:"1.0"`
}

// Load loads configuration from multiple sources:
// 1. Default values
// 2. A .env file in the working directory, if present
// 3. Environment variables
// 4. Command line flags
func Load() (*Config, error) {
	// A missing .env file is not an error
	_ = godotenv.Load()

	cfg := &Config{}

	// Load from environment variables
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment variables: %w", err)
	}

	// Parse command line flags
	flag.StringVar(&cfg.Server.HTTPAddr, "http-addr", cfg.Server.HTTPAddr, "HTTP server address")
	flag.StringVar(&cfg.Worker.QueueAPIURL, "queue-api-url", cfg.Worker.QueueAPIURL, "Queue service base URL")
	flag.StringVar(&cfg.Worker.QueueName, "queue", cfg.Worker.QueueName, "Queue to consume from")
	flag.StringVar(&cfg.Worker.ForwardQueue, "forward-queue", cfg.Worker.ForwardQueue, "Queue to forward derived messages to")
	flag.StringVar(&cfg.Task.SubmitURL, "task-submit-url", cfg.Task.SubmitURL, "Task submission endpoint")
	flag.StringVar(&cfg.Logging.Level, "log-level", cfg.Logging.Level, "Log level (debug, info, warn, error)")
	flag.StringVar(&cfg.Logging.Format, "log-format", cfg.Logging.Format, "Log format (json, text)")
	flag.Parse()

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.HTTPAddr == "" {
		return fmt.Errorf("http server address cannot be empty")
	}

	if c.Worker.QueueAPIURL == "" {
		return fmt.Errorf("queue api url cannot be empty")
	}

	if c.Worker.PollInterval <= 0 {
		return fmt.Errorf("worker poll interval must be positive")
	}

	if c.Worker.ErrorRetryInterval <= 0 {
		return fmt.Errorf("worker error retry interval must be positive")
	}

	if c.Worker.MaxMessages < 1 || c.Worker.MaxMessages > 100 {
		return fmt.Errorf("worker max messages must be between 1 and 100")
	}

	if c.Task.RejectRate < 0 || c.Task.RejectRate > 1 {
		return fmt.Errorf("task reject rate must be between 0 and 1")
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}

	validLogFormats := map[string]bool{
		"json": true,
		"text": true,
	}
	if !validLogFormats[strings.ToLower(c.Logging.Format)] {
		return fmt.Errorf("invalid log format: %s", c.Logging.Format)
	}

	if c.Metrics.Enabled && c.Metrics.Addr == "" {
		return fmt.Errorf("metrics address cannot be empty when metrics are enabled")
	}

	validExporters := map[string]bool{
		"grpc": true,
		"http": true,
	}
	if !validExporters[strings.ToLower(c.Metrics.TracingExporter)] {
		return fmt.Errorf("invalid tracing exporter: %s", c.Metrics.TracingExporter)
	}

	if c.Metrics.TracingSampleRate < 0 || c.Metrics.TracingSampleRate > 1 {
		return fmt.Errorf("tracing sample rate must be between 0 and 1")
	}

	return nil
}
