// Package pitime calculates the fractional decimal digits of pi with a
// streaming spigot algorithm, optionally caching computed digits for reuse.
package pitime

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/Denizmerty/PiTime/pkg/cache"
	"github.com/go-logr/logr"
)

// ErrInsufficientDigits indicates the spigot confirmed fewer digits than were
// requested, which can only happen if the state array sizing loses its margin.
var ErrInsufficientDigits = errors.New("spigot confirmed fewer digits than requested")

// DigitBlockSize is the granularity of cached digit runs. Digit counts are
// rounded up to a multiple of this block size before computing and caching,
// so one cached entry serves every smaller request. The spigot confirms
// digits left to right and never revises them, making a prefix of a longer
// run identical to a shorter run.
const DigitBlockSize = 100

var (
	// Logger used by this package; default is a no-op sink.
	logger = logr.Discard()
	// Cache implementation used by FractionalDigits; default is a no-op
	// cache that recalculates on every call.
	digitCache cache.Cache = cache.NewNoopCache()
)

// SetLogger changes the logger instance used by this package.
func SetLogger(l logr.Logger) {
	logger = l
}

// SetCache changes the Cache implementation used by this package.
func SetCache(c cache.Cache) {
	if c != nil {
		digitCache = c
	}
}

// FractionalDigits returns the first n fractional decimal digits of pi,
// consulting the package cache before falling back to calculation. Negative
// counts behave as zero, matching SpigotDigits.
func FractionalDigits(ctx context.Context, n int) (string, error) {
	l := logger.V(1).WithValues("n", n)
	l.Info("FractionalDigits: enter")
	if n <= 0 {
		return "", nil
	}
	count := ((n + DigitBlockSize - 1) / DigitBlockSize) * DigitBlockSize
	key := strconv.FormatInt(int64(count), 16)
	digits, err := digitCache.GetValue(ctx, key)
	if err != nil {
		return "", fmt.Errorf("cache %T GetValue returned an error: %w", digitCache, err)
	}
	if digits == "" {
		digits = SpigotDigits(count)
		if len(digits) < count {
			return "", fmt.Errorf("%w: %d digits confirmed of %d requested", ErrInsufficientDigits, len(digits), count)
		}
		if err := digitCache.SetValue(ctx, key, digits); err != nil {
			return "", fmt.Errorf("cache %T SetValue returned an error: %w", digitCache, err)
		}
	}
	// A cached entry shorter than requested means the cache holds bad data.
	if len(digits) < n {
		return "", fmt.Errorf("%w: cached entry %s holds %d digits", ErrInsufficientDigits, key, len(digits))
	}
	result := digits[:n]
	l.Info("FractionalDigits: exit", "digits", result)
	return result, nil
}
