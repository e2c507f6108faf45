package retry

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Config defines retry behavior for external feed calls. The feed contract
// is bounded attempts with a fixed delay between them; exhausting the budget
// is a terminal result, not a panic.
type Config struct {
	MaxAttempts int
	Delay       time.Duration
}

// Fixed returns a fixed-delay retry policy.
func Fixed(attempts int, delay time.Duration) Config {
	return Config{MaxAttempts: attempts, Delay: delay}
}

// DefaultConfig returns the feed-client retry settings.
func DefaultConfig() Config {
	return Fixed(3, 5*time.Second)
}

// Do executes fn up to cfg.MaxAttempts times, sleeping cfg.Delay between
// attempts. Returns the last error once the budget is exhausted.
func Do(ctx context.Context, cfg Config, logger *zap.Logger, operation string, fn func() error) error {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return fmt.Errorf("retry cancelled: %w", ctx.Err())
		default:
		}

		lastErr = fn()
		if lastErr == nil {
			if attempt > 1 {
				logger.Info("Operation succeeded after retries",
					zap.String("operation", operation),
					zap.Int("attempts", attempt))
			}
			return nil
		}

		if attempt == cfg.MaxAttempts {
			break
		}

		logger.Warn("Operation failed, retrying",
			zap.String("operation", operation),
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", cfg.MaxAttempts),
			zap.Duration("retry_in", cfg.Delay),
			zap.Error(lastErr))

		select {
		case <-ctx.Done():
			return fmt.Errorf("retry cancelled: %w", ctx.Err())
		case <-time.After(cfg.Delay):
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operation, cfg.MaxAttempts, lastErr)
}
