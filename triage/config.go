package triage

import (
	"fmt"
	"log/slog"
)

// DefaultTokenThreshold fits the digest into a ~256k-token context window
// with room left for the prompt and the model's reply.
const DefaultTokenThreshold = 200_000

// Config configures a triage Engine. It is captured by value at New time;
// there are no process-wide toggles.
type Config struct {
	// TokenThreshold is the budget the trimmed digest must fit in.
	TokenThreshold int `json:"token_threshold" yaml:"token_threshold"`

	// Tiers enables or disables classification tiers by name. A disabled
	// tier is never assigned: its rule is skipped and affected paths fall
	// through to the next matching rule, usually "other", which makes them
	// droppable early instead of protected. Missing keys take the default
	// (everything on except "tests").
	Tiers map[string]bool `json:"tiers" yaml:"tiers"`

	// Format holds the upstream text-format constants.
	Format Format `json:"format" yaml:"format"`

	// Logger for debug messages.
	Logger *slog.Logger `json:"-" yaml:"-"`
}

// DefaultTiers returns the default tier-enablement map. Tests are off by
// default: verbose, low signal per token.
func DefaultTiers() map[string]bool {
	m := make(map[string]bool, len(tierNames))
	for _, n := range tierNames {
		m[n] = n != "tests"
	}
	return m
}

func (c *Config) defaults() {
	if c.TokenThreshold == 0 {
		c.TokenThreshold = DefaultTokenThreshold
	}
	if c.Format == (Format{}) {
		c.Format = DefaultFormat()
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	merged := DefaultTiers()
	for name, on := range c.Tiers {
		merged[name] = on
	}
	c.Tiers = merged
}

// Validate rejects unusable configuration eagerly, before any document is
// processed. Errors wrap ErrInvalidConfig.
func (c *Config) Validate() error {
	if c.TokenThreshold <= 0 {
		return fmt.Errorf("token_threshold must be > 0, got %d: %w", c.TokenThreshold, ErrInvalidConfig)
	}
	anyEnabled := false
	for name, on := range c.Tiers {
		if _, ok := ParseTier(name); !ok {
			return fmt.Errorf("unknown tier %q: %w", name, ErrInvalidConfig)
		}
		if on {
			anyEnabled = true
		}
	}
	if !anyEnabled {
		return fmt.Errorf("all tiers disabled: %w", ErrInvalidConfig)
	}
	return c.Format.validate()
}

// enabled reports whether a tier may be assigned by the classifier.
func (c *Config) enabled(t SignalTier) bool {
	on, ok := c.Tiers[t.String()]
	if !ok {
		return t != TierTests
	}
	return on
}
