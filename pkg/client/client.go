// Package client implements an HTTP client for the PiTime digit service,
// with optional OpenTelemetry metrics and traces.
package client

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/Denizmerty/PiTime/pkg/transfer"
	"github.com/go-logr/logr"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
)

const (
	// The default maximum timeout that will be applied to requests.
	DefaultMaxTimeout = 10 * time.Second
	// The default name to use when registering OpenTelemetry components.
	OpenTelemetryPackageIdentifier = "pkg.client"
)

// PiClient retrieves digit runs from a PiTime service instance.
type PiClient struct {
	// The logr.Logger instance to use.
	logger logr.Logger
	// The maximum timeout applied to requests.
	maxTimeout time.Duration
	// An optional TLS configuration for the transport.
	tlsConfig *tls.Config
	// The User-Agent header sent with requests.
	userAgent string
	// A counter for the number of response errors.
	responseErrors metric.Int64Counter
	// A histogram for request durations.
	durationMs metric.Int64Histogram
}

// Defines a function signature for PiClient options.
type PiClientOption func(*PiClient)

// Create a new PiClient with optional settings.
func NewPiClient(options ...PiClientOption) (*PiClient, error) {
	client := &PiClient{
		logger:     logr.Discard(),
		maxTimeout: DefaultMaxTimeout,
		userAgent:  "pitime-client",
	}
	for _, option := range options {
		option(client)
	}
	meter := otel.Meter(OpenTelemetryPackageIdentifier)
	var err error
	client.responseErrors, err = meter.Int64Counter(
		OpenTelemetryPackageIdentifier+".response_errors",
		metric.WithDescription("The count of error responses received by client"),
	)
	if err != nil {
		return nil, fmt.Errorf("error returned while creating responseErrors Counter: %w", err)
	}
	client.durationMs, err = meter.Int64Histogram(
		OpenTelemetryPackageIdentifier+".request_duration_ms",
		metric.WithUnit("ms"),
		metric.WithDescription("The duration (ms) of requests"),
	)
	if err != nil {
		return nil, fmt.Errorf("error returned while creating durationMs Histogram: %w", err)
	}
	return client, nil
}

// Use the supplied logr.Logger.
func WithLogger(logger logr.Logger) PiClientOption {
	return func(c *PiClient) {
		c.logger = logger
	}
}

// Set the maximum timeout for client requests to a PiTime service.
func WithMaxTimeout(maxTimeout time.Duration) PiClientOption {
	return func(c *PiClient) {
		if maxTimeout > 0 {
			c.maxTimeout = maxTimeout
		}
	}
}

// Use the TLS configuration for requests to the PiTime service.
func WithTLSConfig(tlsConfig *tls.Config) PiClientOption {
	return func(c *PiClient) {
		c.tlsConfig = tlsConfig
	}
}

// Set the User-Agent header sent with requests.
func WithUserAgent(userAgent string) PiClientOption {
	return func(c *PiClient) {
		if userAgent != "" {
			c.userAgent = userAgent
		}
	}
}

// FetchDigits requests count fractional digits of pi from the PiTime service
// at target, returning the digit string. The target is a base URL such as
// http://pitime:8080.
func (c *PiClient) FetchDigits(ctx context.Context, target string, count int) (string, error) {
	logger := c.logger.V(1).WithValues("target", target, "count", count)
	logger.Info("FetchDigits: enter")
	attributes := []attribute.KeyValue{
		attribute.String(OpenTelemetryPackageIdentifier+".target", target),
		attribute.Int(OpenTelemetryPackageIdentifier+".count", count),
	}
	ctx, span := otel.Tracer(OpenTelemetryPackageIdentifier).Start(ctx, OpenTelemetryPackageIdentifier+"/FetchDigits")
	defer span.End()
	span.SetAttributes(attributes...)
	ctx, cancel := context.WithTimeout(ctx, c.maxTimeout)
	defer cancel()
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, target+"/v1/digits/"+strconv.Itoa(count), nil)
	if err != nil {
		return "", fmt.Errorf("failure building digits request: %w", err)
	}
	request.Header.Set("User-Agent", c.userAgent)
	httpClient := &http.Client{}
	if c.tlsConfig != nil {
		httpClient.Transport = &http.Transport{
			TLSClientConfig: c.tlsConfig,
		}
	}
	startTimestamp := time.Now()
	response, err := httpClient.Do(request)
	duration := time.Since(startTimestamp)
	c.durationMs.Record(ctx, duration.Milliseconds(), metric.WithAttributes(attributes...))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		c.responseErrors.Add(ctx, 1, metric.WithAttributes(attributes...))
		return "", fmt.Errorf("failure calling digits endpoint: %w", err)
	}
	defer response.Body.Close()
	if response.StatusCode != http.StatusOK {
		err := fmt.Errorf("digits endpoint returned status %d", response.StatusCode)
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		c.responseErrors.Add(ctx, 1, metric.WithAttributes(attributes...))
		return "", err
	}
	var digitsResponse transfer.DigitsResponse
	if err := digitsResponse.UnmarshalResponse(ctx, response); err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		c.responseErrors.Add(ctx, 1, metric.WithAttributes(attributes...))
		return "", fmt.Errorf("failure unmarshalling digits response: %w", err)
	}
	logger.Info("FetchDigits: exit", "identity", digitsResponse.Identity)
	return digitsResponse.Digits, nil
}
