// Package server implements an HTTP JSON service that returns runs of
// fractional digits of pi, with optional digit caching and OpenTelemetry
// metrics and traces.
package server

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"time"

	pitime "github.com/Denizmerty/PiTime"
	cachepkg "github.com/Denizmerty/PiTime/pkg/cache"
	"github.com/Denizmerty/PiTime/pkg/transfer"
	"github.com/go-logr/logr"
	"github.com/rs/xhandler"
	"github.com/rs/xmux"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/net/context"
)

const (
	// The default name to use when registering OpenTelemetry components.
	OpenTelemetryPackageIdentifier = "pkg.server"
	// The largest digit count served unless overridden with WithMaxDigits.
	DefaultMaxDigits = 100000
	// Applied to every request by the handler chain.
	DefaultRequestTimeout = 120 * time.Second
)

var ErrCountTooLarge = errors.New("count exceeds the maximum this server will calculate")

// PiServer serves fractional digit runs of pi over HTTP.
type PiServer struct {
	// The logr.Logger implementation to use
	logger logr.Logger
	// An optional cache implementation
	cache cachepkg.Cache
	// Identity and labels returned in response metadata
	identity string
	labels   map[string]string
	// Largest digit count the server will calculate per request
	maxDigits int
	// Timeout applied to request handling
	requestTimeout time.Duration
	// A histogram for calculation durations
	calculationMs metric.Int64Histogram
	// A counter for the number of errors returned by cache
	cacheErrors metric.Int64Counter
	// A counter for cache hits
	cacheHits metric.Int64Counter
	// A counter for cache misses
	cacheMisses metric.Int64Counter
}

// Defines the function signature for PiServer options.
type PiServerOption func(*PiServer)

// Create a new PiServer and apply any options.
func NewPiServer(options ...PiServerOption) (*PiServer, error) {
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}
	server := &PiServer{
		logger:         logr.Discard(),
		cache:          cachepkg.NewNoopCache(),
		identity:       hostname,
		labels:         map[string]string{},
		maxDigits:      DefaultMaxDigits,
		requestTimeout: DefaultRequestTimeout,
	}
	for _, option := range options {
		option(server)
	}
	meter := otel.Meter(OpenTelemetryPackageIdentifier)
	server.calculationMs, err = meter.Int64Histogram(
		OpenTelemetryPackageIdentifier+".calc_duration_ms",
		metric.WithUnit("ms"),
		metric.WithDescription("The duration (ms) of digit calculations"),
	)
	if err != nil {
		return nil, fmt.Errorf("error returned while creating calculationMs Histogram: %w", err)
	}
	server.cacheErrors, err = meter.Int64Counter(
		OpenTelemetryPackageIdentifier+".cache_errors",
		metric.WithDescription("The count of error responses from digit cache"),
	)
	if err != nil {
		return nil, fmt.Errorf("error returned while creating cacheErrors Counter: %w", err)
	}
	server.cacheHits, err = meter.Int64Counter(
		OpenTelemetryPackageIdentifier+".cache_hits",
		metric.WithDescription("The count of cache hits"),
	)
	if err != nil {
		return nil, fmt.Errorf("error returned while creating cacheHits Counter: %w", err)
	}
	server.cacheMisses, err = meter.Int64Counter(
		OpenTelemetryPackageIdentifier+".cache_misses",
		metric.WithDescription("The count of cache misses"),
	)
	if err != nil {
		return nil, fmt.Errorf("error returned while creating cacheMisses Counter: %w", err)
	}
	return server, nil
}

// Use the supplied logger for the server.
func WithLogger(logger logr.Logger) PiServerOption {
	return func(s *PiServer) {
		s.logger = logger
	}
}

// Use the Cache implementation to store digit runs and avoid recalculating
// digits that have already been confirmed.
func WithCache(cache cachepkg.Cache) PiServerOption {
	return func(s *PiServer) {
		if cache != nil {
			s.cache = cache
		}
	}
}

// Add the key-value labels to the server's response metadata.
func WithLabels(labels map[string]string) PiServerOption {
	return func(s *PiServer) {
		for k, v := range labels {
			s.labels[k] = v
		}
	}
}

// Cap the digit count the server will calculate for a single request.
func WithMaxDigits(maxDigits int) PiServerOption {
	return func(s *PiServer) {
		if maxDigits > 0 {
			s.maxDigits = maxDigits
		}
	}
}

// Set the timeout applied to request handling.
func WithRequestTimeout(timeout time.Duration) PiServerOption {
	return func(s *PiServer) {
		if timeout > 0 {
			s.requestTimeout = timeout
		}
	}
}

// Handler returns the http.Handler implementing the PiService routes:
// GET /v1/digits/:count returning a JSON digit run, and GET /healthz.
func (s *PiServer) Handler() http.Handler {
	chain := xhandler.Chain{}
	chain.UseC(xhandler.CloseHandler)
	chain.UseC(xhandler.TimeoutHandler(s.requestTimeout))
	mux := xmux.New()
	mux.GET("/v1/digits/:count", xhandler.HandlerFuncC(s.getDigits))
	mux.GET("/healthz", xhandler.HandlerFuncC(func(_ context.Context, w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, "OK")
	}))
	return otelhttp.NewHandler(chain.Handler(mux), OpenTelemetryPackageIdentifier)
}

// Serves a run of fractional digits of pi. Counts are rounded up to the digit
// block size for cache lookup and calculation; digit runs are prefix-stable
// so a longer cached run answers any request that fits inside it.
func (s *PiServer) getDigits(ctx context.Context, w http.ResponseWriter, r *http.Request) {
	count, err := strconv.Atoi(xmux.Param(ctx, "count"))
	if err != nil || count < 0 {
		s.logger.Info("Rejecting request with bad count parameter", "param", xmux.Param(ctx, "count"))
		transfer.MarshalError(ctx, w, http.StatusBadRequest)
		return
	}
	logger := s.logger.WithValues("count", count)
	logger.V(1).Info("getDigits: enter")
	if count == 0 {
		response := transfer.DigitsResponse{
			Count:    0,
			Digits:   "",
			Identity: s.identity,
			Labels:   s.labels,
		}
		if err := response.MarshalResponse(ctx, w); err != nil {
			logger.Error(err, "Error marshalling response")
		}
		return
	}
	blockCount := ((count + pitime.DigitBlockSize - 1) / pitime.DigitBlockSize) * pitime.DigitBlockSize
	key := strconv.FormatInt(int64(blockCount), 16)
	attributes := []attribute.KeyValue{
		attribute.Int(OpenTelemetryPackageIdentifier+".count", count),
		attribute.String(OpenTelemetryPackageIdentifier+".cacheKey", key),
	}
	ctx, span := otel.Tracer(OpenTelemetryPackageIdentifier).Start(ctx, OpenTelemetryPackageIdentifier+"/getDigits")
	defer span.End()
	span.SetAttributes(attributes...)
	if count > s.maxDigits {
		span.RecordError(ErrCountTooLarge)
		span.SetStatus(otelcodes.Error, ErrCountTooLarge.Error())
		logger.Info("Rejecting request above digit limit", "maxDigits", s.maxDigits)
		transfer.MarshalError(ctx, w, http.StatusBadRequest)
		return
	}
	span.AddEvent("Checking cache")
	digits, err := s.cache.GetValue(ctx, key)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		s.cacheErrors.Add(ctx, 1, metric.WithAttributes(attributes...))
		logger.Error(err, "Cache GetValue returned an error")
		transfer.MarshalError(ctx, w, http.StatusInternalServerError)
		return
	}
	if digits == "" {
		attributes := append(attributes, attribute.Bool(OpenTelemetryPackageIdentifier+".cache_hit", false))
		span.SetAttributes(attributes...)
		span.AddEvent("Calculating fractional digits")
		s.cacheMisses.Add(ctx, 1, metric.WithAttributes(attributes...))
		ts := time.Now()
		digits = pitime.SpigotDigits(blockCount)
		s.calculationMs.Record(ctx, time.Since(ts).Milliseconds(), metric.WithAttributes(attributes...))
		if err = s.cache.SetValue(ctx, key, digits); err != nil {
			span.RecordError(err)
			span.SetStatus(otelcodes.Error, err.Error())
			s.cacheErrors.Add(ctx, 1, metric.WithAttributes(attributes...))
			logger.Error(err, "Cache SetValue returned an error")
			transfer.MarshalError(ctx, w, http.StatusInternalServerError)
			return
		}
	} else {
		attributes := append(attributes, attribute.Bool(OpenTelemetryPackageIdentifier+".cache_hit", true))
		span.SetAttributes(attributes...)
		s.cacheHits.Add(ctx, 1, metric.WithAttributes(attributes...))
	}
	if len(digits) < count {
		span.RecordError(pitime.ErrInsufficientDigits)
		span.SetStatus(otelcodes.Error, pitime.ErrInsufficientDigits.Error())
		logger.Error(pitime.ErrInsufficientDigits, "Calculation confirmed fewer digits than requested", "confirmed", len(digits))
		transfer.MarshalError(ctx, w, http.StatusInternalServerError)
		return
	}
	response := transfer.DigitsResponse{
		Count:    count,
		Digits:   digits[:count],
		Identity: s.identity,
		Labels:   s.labels,
	}
	logger.V(1).Info("getDigits: exit")
	if err := response.MarshalResponse(ctx, w); err != nil {
		logger.Error(err, "Error marshalling response")
	}
}
