package schwab

import (
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/tradekit/schwab/retry"
)

func TestNewOptionsDefaults(t *testing.T) {
	o := newOptions()

	if o.baseURL != DefaultBaseURL {
		t.Errorf("baseURL = %q", o.baseURL)
	}
	if o.userAgent != DefaultUserAgent {
		t.Errorf("userAgent = %q", o.userAgent)
	}
	if o.httpClient.Timeout != DefaultTimeout {
		t.Errorf("timeout = %v", o.httpClient.Timeout)
	}
	if o.retryEnabled || o.tracingEnabled || o.metricsEnabled {
		t.Error("middleware enabled by default")
	}
	if o.logger == nil {
		t.Error("logger not defaulted")
	}
}

func TestOptionsOverrides(t *testing.T) {
	custom := &http.Client{Timeout: time.Second}
	logger := slog.Default().With("component", "test")

	o := newOptions(
		WithHTTPClient(custom),
		WithBaseURL("https://sandbox.example.com/v1/"),
		WithUserAgent("custom-agent"),
		WithLogger(logger),
		WithRetry(retry.DefaultConfig()),
	)

	if o.httpClient != custom {
		t.Error("httpClient not overridden")
	}
	if o.baseURL != "https://sandbox.example.com/v1/" {
		t.Errorf("baseURL = %q", o.baseURL)
	}
	if o.userAgent != "custom-agent" {
		t.Errorf("userAgent = %q", o.userAgent)
	}
	if o.logger != logger {
		t.Error("logger not overridden")
	}
	if !o.retryEnabled {
		t.Error("retry not enabled")
	}
	if o.retryConfig.MaxRetries != retry.DefaultConfig().MaxRetries {
		t.Errorf("retryConfig = %+v", o.retryConfig)
	}
}

func TestOptionsIgnoreEmptyValues(t *testing.T) {
	o := newOptions(
		WithHTTPClient(nil),
		WithBaseURL(""),
		WithUserAgent(""),
		WithLogger(nil),
	)

	if o.httpClient == nil || o.baseURL != DefaultBaseURL || o.userAgent != DefaultUserAgent || o.logger == nil {
		t.Error("empty option values should keep defaults")
	}
}
