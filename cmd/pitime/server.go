package main

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Denizmerty/PiTime/pkg/cache"
	"github.com/Denizmerty/PiTime/pkg/server"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"golang.org/x/net/context"
	"golang.org/x/sync/errgroup"
)

const (
	ServerServiceName    = "server"
	DefaultListenAddress = ":8080"
)

// Implements the server sub-command.
func NewServerCmd() (*cobra.Command, error) {
	serverCmd := &cobra.Command{
		Use:   ServerServiceName,
		Short: "Run an HTTP service to return fractional digits of pi",
		Long: `Launches an HTTP PiTime server that calculates runs of decimal digits of pi.

A JSON response with the requested digits is returned per request. An optional Redis DB can be used to cache the calculated digits. Metrics and traces will be sent to an OpenTelemetry collection endpoint, if specified.`,
		RunE: serverMain,
	}
	serverCmd.PersistentFlags().StringP("address", "a", DefaultListenAddress, "Address to listen for PiTime requests")
	serverCmd.PersistentFlags().String("redis-target", "", "An optional Redis endpoint to use as a PiTime digit cache")
	serverCmd.PersistentFlags().StringToStringP("label", "l", nil, "An optional label key=value to add to PiTime response metadata; can be repeated")
	serverCmd.PersistentFlags().Int("max-digits", server.DefaultMaxDigits, "The largest digit count the server will calculate per request")
	serverCmd.PersistentFlags().Duration("request-timeout", server.DefaultRequestTimeout, "The timeout applied to request handling")
	for _, flag := range []string{"address", "redis-target", "label", "max-digits", "request-timeout"} {
		if err := viper.BindPFlag(flag, serverCmd.PersistentFlags().Lookup(flag)); err != nil {
			return nil, fmt.Errorf("failed to bind %s pflag: %w", flag, err)
		}
	}
	return serverCmd, nil
}

// Server sub-command entrypoint. This function will launch the PiTime HTTP
// service and wait for an interrupt before shutting down cleanly.
func serverMain(cmd *cobra.Command, args []string) error {
	address := viper.GetString("address")
	redisTarget := viper.GetString("redis-target")
	certFile := viper.GetString("cert")
	keyFile := viper.GetString("key")
	logger := logger.V(1).WithValues("address", address, "redisTarget", redisTarget)
	ctx := context.Background()
	logger.V(0).Info("Preparing telemetry")
	telemetryShutdown := initTelemetry(ctx, ServerServiceName, sdktrace.AlwaysSample())

	logger.V(0).Info("Preparing service")
	options := []server.PiServerOption{
		server.WithLogger(logger),
		server.WithLabels(viper.GetStringMapString("label")),
		server.WithMaxDigits(viper.GetInt("max-digits")),
		server.WithRequestTimeout(viper.GetDuration("request-timeout")),
	}
	if redisTarget != "" {
		options = append(options, server.WithCache(cache.NewRedisCache(ctx, redisTarget)))
	}
	piServer, err := server.NewPiServer(options...)
	if err != nil {
		return fmt.Errorf("failed to create new PiServer: %w", err)
	}
	httpServer := &http.Server{
		Addr:              address,
		Handler:           piServer.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(interrupt)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.V(0).Info("Starting HTTP service")
		var err error
		if certFile != "" && keyFile != "" {
			err = httpServer.ListenAndServeTLS(certFile, keyFile)
		} else {
			err = httpServer.ListenAndServe()
		}
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("httpServer listener returned an error: %w", err)
		}
		return nil
	})

	select {
	case <-interrupt:
		break
	case <-ctx.Done():
		break
	}
	logger.V(0).Info("Shutting down on signal")
	cancel()
	ctx, shutdown := context.WithTimeout(context.Background(), 60*time.Second)
	defer shutdown()
	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error(err, "Failed to shutdown HTTP server cleanly")
	}
	telemetryShutdown(ctx)
	return g.Wait()
}
