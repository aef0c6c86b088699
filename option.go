package schwab

import (
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/tradekit/schwab/retry"
)

// Default configuration values.
const (
	// DefaultBaseURL is the production trader API base.
	DefaultBaseURL = "https://api.schwabapi.com/trader/v1/"

	// DefaultUserAgent identifies this library on requests.
	DefaultUserAgent = "schwab-go/1.0"

	// DefaultTimeout applies to the built-in HTTP client.
	DefaultTimeout = 30 * time.Second
)

// options holds client configuration.
type options struct {
	httpClient *http.Client
	baseURL    string
	userAgent  string
	logger     *slog.Logger

	// Retry middleware
	retryEnabled bool
	retryConfig  retry.Config

	// OpenTelemetry
	tracingEnabled bool
	metricsEnabled bool
	tracerProvider trace.TracerProvider
	meterProvider  metric.MeterProvider
}

// Option configures the client.
type Option func(*options)

// WithHTTPClient sets a custom HTTP client. Use this to install
// proxies or transport-level instrumentation.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(o *options) {
		if httpClient != nil {
			o.httpClient = httpClient
		}
	}
}

// WithTimeout sets the timeout of the built-in HTTP client. Ignored
// when WithHTTPClient is also given.
func WithTimeout(timeout time.Duration) Option {
	return func(o *options) {
		if timeout > 0 {
			o.httpClient.Timeout = timeout
		}
	}
}

// WithBaseURL overrides the API base URL, mainly for the sandbox
// environment and tests. A trailing slash is expected.
func WithBaseURL(baseURL string) Option {
	return func(o *options) {
		if baseURL != "" {
			o.baseURL = baseURL
		}
	}
}

// WithUserAgent sets a custom User-Agent header.
func WithUserAgent(userAgent string) Option {
	return func(o *options) {
		if userAgent != "" {
			o.userAgent = userAgent
		}
	}
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithRetry enables retry middleware on every request with the given
// configuration. Use retry.DefaultConfig() for conventional
// exponential backoff on 429s, 5xxs, and network timeouts.
func WithRetry(cfg retry.Config) Option {
	return func(o *options) {
		o.retryEnabled = true
		o.retryConfig = cfg
	}
}

// WithTracing enables OpenTelemetry tracing using the global tracer
// provider, or the one set via WithTracerProvider.
func WithTracing() Option {
	return func(o *options) {
		o.tracingEnabled = true
	}
}

// WithTracerProvider enables tracing with a specific provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *options) {
		o.tracingEnabled = true
		o.tracerProvider = tp
	}
}

// WithMetrics enables OpenTelemetry metrics using the global meter
// provider, or the one set via WithMeterProvider.
func WithMetrics() Option {
	return func(o *options) {
		o.metricsEnabled = true
	}
}

// WithMeterProvider enables metrics with a specific provider.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(o *options) {
		o.metricsEnabled = true
		o.meterProvider = mp
	}
}

// newOptions creates options with defaults and applies provided options.
func newOptions(opts ...Option) *options {
	o := &options{
		httpClient: &http.Client{Timeout: DefaultTimeout},
		baseURL:    DefaultBaseURL,
		userAgent:  DefaultUserAgent,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}
