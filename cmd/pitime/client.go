package main

import (
	"fmt"
	"time"

	"github.com/Denizmerty/PiTime/pkg/client"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"golang.org/x/net/context"
)

const (
	ClientServiceName = "client"
	DefaultDigitCount = 100
	DefaultMaxTimeout = 10 * time.Second
)

// Implements the client sub-command which requests a run of fractional digits
// from a PiTime service instance.
func NewClientCmd() (*cobra.Command, error) {
	clientCmd := &cobra.Command{
		Use:   ClientServiceName + " target",
		Short: "Run a PiTime client to request fractional digits of pi",
		Long: `Launches a client that will connect to a PiTime service target and request the fractional digits of pi.

The target must be a base URL such as http://pitime:8080. Metrics and traces will be sent to an OpenTelemetry collection endpoint, if specified.`,
		Args: cobra.ExactArgs(1),
		RunE: clientMain,
	}
	clientCmd.PersistentFlags().IntP("count", "c", DefaultDigitCount, "The number of decimal digits of pi to request")
	clientCmd.PersistentFlags().DurationP("max-timeout", "m", DefaultMaxTimeout, "The maximum timeout for a PiTime service request")
	clientCmd.PersistentFlags().Bool("insecure", false, "Disable TLS verification of the PiTime service")
	for _, flag := range []string{"count", "max-timeout", "insecure"} {
		if err := viper.BindPFlag(flag, clientCmd.PersistentFlags().Lookup(flag)); err != nil {
			return nil, fmt.Errorf("failed to bind %s pflag: %w", flag, err)
		}
	}
	return clientCmd, nil
}

// Client sub-command entrypoint.
func clientMain(cmd *cobra.Command, args []string) error {
	target := args[0]
	count := viper.GetInt("count")
	logger := logger.V(1).WithValues("count", count, "target", target)
	ctx := context.Background()
	logger.V(0).Info("Preparing telemetry")
	telemetryShutdown := initTelemetry(ctx, ClientServiceName, sdktrace.AlwaysSample())
	defer telemetryShutdown(ctx)

	tlsConfig, err := newClientTLSConfig()
	if err != nil {
		return err
	}
	options := []client.PiClientOption{
		client.WithLogger(logger),
		client.WithMaxTimeout(viper.GetDuration("max-timeout")),
		client.WithUserAgent(AppName + "/" + version),
		client.WithTLSConfig(tlsConfig),
	}
	piClient, err := client.NewPiClient(options...)
	if err != nil {
		return fmt.Errorf("failed to create new PiClient: %w", err)
	}
	digits, err := piClient.FetchDigits(ctx, target, count)
	if err != nil {
		return fmt.Errorf("failed to fetch digits: %w", err)
	}
	fmt.Printf("Result is: 3.%s\n", digits)
	return nil
}
