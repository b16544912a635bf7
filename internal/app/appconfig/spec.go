package appconfig

import (
	"time"

	"acidlab.dev/backend/internal/app/appcontext"
)

type ConfigSpec struct {
	// ServiceAddress is the listen address would listen on for serving normal service requests.
	ServiceAddress string `required:"true" split_words:"true" default:"localhost:9010"`

	// LogJsonStdout is whether to log JSON logs (instead of pretty-print logs) to stdout for the ease of log collection.
	LogJsonStdout bool `split_words:"true" default:"false"`

	// LogFile is the path of the rotated application log file.
	LogFile string `split_words:"true" default:"logs/app.log"`

	// TrustedProxies is a list of trusted proxies that are trusted to report a real IP via the X-Forwarded-For header.
	TrustedProxies []string `required:"true" split_words:"true" default:"::1,127.0.0.1,10.0.0.0/8"`

	// DevMode to indicate development mode. When true, the program would spin up utilities for debugging and
	// provide a more contextual message when encountered a panic. See internal/server/httpserver/http.go for the
	// actual implementation details.
	DevMode bool `split_words:"true"`

	// TracingEnabled to indicate whether to enable OpenTelemetry tracing.
	TracingEnabled bool `split_words:"true"`

	// TracingExporters to indicate which exporters to use for tracing.
	// Valid values are: jaeger, otlp, stdout (for debug).
	TracingExporters []string `split_words:"true" default:"jaeger"`

	// TracingSampleRate to indicate the sampling rate for tracing.
	// Valid values are: 0.0 (disabled), 1.0 (all traces), or a value between 0.0 and 1.0 (sampling rate).
	TracingSampleRate float64 `split_words:"true" default:"1.0"`

	// infrastructure components connection instructions

	// PostgresDSN is the data source name for the PostgreSQL database. See
	// https://bun.uptrace.dev/postgres/#pgdriver for more details on how to construct a PostgreSQL DSN.
	PostgresDSN string `required:"true" split_words:"true"`

	PostgresMaxOpenConns    int           `split_words:"true" default:"10"`
	PostgresMaxIdleConns    int           `split_words:"true" default:"2"`
	PostgresConnMaxLifeTime time.Duration `split_words:"true" default:"5m"`
	PostgresConnMaxIdleTime time.Duration `split_words:"true" default:"5m"`

	// PostgresConnectRetries is how many times the initial ping is attempted before startup fails.
	// Zero retries forever.
	PostgresConnectRetries uint `split_words:"true" default:"5"`

	BunDebugVerbose bool `split_words:"true"`

	// NatsURL is the URL of the NATS server. See https://pkg.go.dev/github.com/nats-io/nats.go#Connect
	// for more information on how to construct a NATS URL. Leaving this empty disables pattern events.
	NatsURL string `split_words:"true"`

	// RedisURL is the URL of the Redis server. See https://pkg.go.dev/github.com/redis/go-redis/v9#ParseURL
	// for more information on how to construct a Redis URL. Leaving this empty disables idempotency keys
	// and the archive lock.
	RedisURL string `split_words:"true"`

	// SentryDSN is the DSN of the Sentry server. See https://pkg.go.dev/github.com/getsentry/sentry-go#ClientOptions
	SentryDSN string `split_words:"true"`

	// DatadogProfilerEnabled to indicate whether to enable Datadog profiler.
	DatadogProfilerEnabled bool `split_words:"true" default:"false"`

	// DatadogProfilerAgentAddress is the address of the Datadog profiler agent.
	DatadogProfilerAgentAddress string `split_words:"true" default:"localhost:8126"`

	// CognitoRegion, CognitoUserPoolID and CognitoUserPoolClientID identify the user pool
	// whose ID tokens are accepted.
	CognitoRegion           string `required:"true" split_words:"true"`
	CognitoUserPoolID       string `required:"true" split_words:"true"`
	CognitoUserPoolClientID string `required:"true" split_words:"true"`

	// HTTPServerShutdownTimeout is the timeout for the HTTP server to shut down gracefully.
	HTTPServerShutdownTimeout time.Duration `required:"true" split_words:"true" default:"60s"`

	// ListDefaultPageSize is the page size used when a listing request does not ask for one.
	ListDefaultPageSize int `split_words:"true" default:"10"`

	// ListMaxPageSize caps the page size a listing request may ask for.
	ListMaxPageSize int `split_words:"true" default:"100"`

	// IdempotencyLifetime is how long a saved response is replayed for the same Idempotency-Key.
	IdempotencyLifetime time.Duration `split_words:"true" default:"24h"`

	// ArchiveS3Region is the region of the bucket public patterns are archived into.
	ArchiveS3Region string `split_words:"true" default:"us-east-1"`

	// ArchiveS3Bucket is the bucket public patterns are archived into.
	ArchiveS3Bucket string `split_words:"true"`

	// ArchiveBatchSize is how many patterns are loaded per query while archiving.
	ArchiveBatchSize int `split_words:"true" default:"200"`

	// AWSAccessKey and AWSSecretKey are the static credentials used by the archiver.
	AWSAccessKey string `split_words:"true"`
	AWSSecretKey string `split_words:"true"`
}

type Config struct {
	// ConfigSpec is the configuration specification injected to the config.
	ConfigSpec

	// AppContext is the application context
	AppContext appcontext.Ctx
}

// CognitoIssuer is the token issuer of the configured user pool.
func (c *Config) CognitoIssuer() string {
	return "https://cognito-idp." + c.CognitoRegion + ".amazonaws.com/" + c.CognitoUserPoolID
}
