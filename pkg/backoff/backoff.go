package backoff

import (
	"fmt"
	"math"
	"time"
)

// Config holds exponential backoff configuration
type Config struct {
	InitialDelay time.Duration // Delay before the first retry
	MaxDelay     time.Duration // Upper bound for any single delay
	Multiplier   float64       // Growth factor per consecutive failure (typically 2.0)
}

// DefaultConfig returns the reconnect schedule 1s, 2s, 4s, 8s, 10s, 10s, ...
func DefaultConfig() Config {
	return Config{
		InitialDelay: time.Second,
		MaxDelay:     10 * time.Second,
		Multiplier:   2.0,
	}
}

// Validate checks that the schedule is well formed.
func (c Config) Validate() error {
	if c.InitialDelay <= 0 {
		return fmt.Errorf("initial delay must be > 0")
	}
	if c.MaxDelay < c.InitialDelay {
		return fmt.Errorf("max delay must be >= initial delay")
	}
	if c.Multiplier < 1 {
		return fmt.Errorf("multiplier must be >= 1")
	}
	return nil
}

// Delay calculates the delay for the given zero-based attempt:
// initialDelay * (multiplier ^ attempt), capped at maxDelay.
func Delay(cfg Config, attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	delay := float64(cfg.InitialDelay) * math.Pow(cfg.Multiplier, float64(attempt))
	if delay > float64(cfg.MaxDelay) || math.IsInf(delay, 0) {
		delay = float64(cfg.MaxDelay)
	}
	return time.Duration(delay)
}

// Backoff tracks consecutive failures. It is not safe for concurrent use;
// callers serialize access.
type Backoff struct {
	cfg      Config
	attempts int
}

func New(cfg Config) *Backoff {
	return &Backoff{cfg: cfg}
}

// Next returns the delay to wait before the next attempt and records a failure.
func (b *Backoff) Next() time.Duration {
	d := Delay(b.cfg, b.attempts)
	if d < b.cfg.MaxDelay {
		b.attempts++
	}
	return d
}

// Current returns the delay Next would return without consuming it.
func (b *Backoff) Current() time.Duration {
	return Delay(b.cfg, b.attempts)
}

// Reset returns the schedule to the initial delay after a success.
func (b *Backoff) Reset() {
	b.attempts = 0
}

func (b *Backoff) Attempts() int {
	return b.attempts
}
