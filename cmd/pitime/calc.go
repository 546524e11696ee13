package main

import (
	"fmt"
	"strconv"
	"time"

	pitime "github.com/Denizmerty/PiTime"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	CalcServiceName   = "calc"
	DefaultCalcDigits = 10000
)

// Implements the calc sub-command which computes digits locally without any
// service involvement.
func NewCalcCmd() (*cobra.Command, error) {
	calcCmd := &cobra.Command{
		Use:   CalcServiceName + " [count]",
		Short: "Calculate fractional digits of pi locally",
		Long:  `Computes the requested number of fractional decimal digits of pi with the spigot algorithm and prints the result, followed by the elapsed calculation time.`,
		Args:  cobra.MaximumNArgs(1),
		RunE:  calcMain,
	}
	calcCmd.PersistentFlags().Bool("no-timing", false, "Suppress the elapsed time report after the digits")
	if err := viper.BindPFlag("no-timing", calcCmd.PersistentFlags().Lookup("no-timing")); err != nil {
		return nil, fmt.Errorf("failed to bind no-timing pflag: %w", err)
	}
	return calcCmd, nil
}

// Calc sub-command entrypoint.
func calcMain(cmd *cobra.Command, args []string) error {
	count := DefaultCalcDigits
	if len(args) > 0 {
		parsed, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("count must be an integer: %w", err)
		}
		count = parsed
	}
	logger := logger.V(1).WithValues("count", count)
	logger.Info("Calculating digits")
	start := time.Now()
	digits := pitime.SpigotDigits(count)
	elapsed := time.Since(start)
	fmt.Printf("3.%s\n", digits)
	if !viper.GetBool("no-timing") {
		fmt.Printf("Calculation took %d milliseconds.\n", elapsed.Milliseconds())
	}
	return nil
}
