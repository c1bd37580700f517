package stream

import (
	"errors"
	"fmt"
	"time"

	"github.com/creasty/defaults"
)

// Config holds every tunable of the streaming engine.
type Config struct {
	Chunk       ChunkConfig       `yaml:"chunk"`
	Timing      TimingConfig      `yaml:"timing"`
	Emit        EmitConfig        `yaml:"emit"`
	Placeholder PlaceholderConfig `yaml:"placeholder"`
}

// ChunkConfig bounds the size of delivered fragments, in runes.
type ChunkConfig struct {
	MinSize int `yaml:"min_size" default:"8"`
	MaxSize int `yaml:"max_size" default:"32"`
}

// TimingConfig controls the simulated delivery schedule.
type TimingConfig struct {
	// ThinkingDelay is the pause before the first fragment.
	ThinkingDelay time.Duration `yaml:"thinking_delay" default:"600ms"`
	// CharDelay is the simulated time per rune of a fragment.
	CharDelay        time.Duration `yaml:"char_delay" default:"4ms"`
	MinFragmentDelay time.Duration `yaml:"min_fragment_delay" default:"15ms"`
	MaxFragmentDelay time.Duration `yaml:"max_fragment_delay" default:"120ms"`
	// MaxDuration bounds a whole session. Zero disables the limit.
	MaxDuration time.Duration `yaml:"max_duration" default:"2m"`
}

// EmitConfig controls update throttling.
type EmitConfig struct {
	Throttle         time.Duration `yaml:"throttle" default:"120ms"`
	ContentThreshold float64       `yaml:"content_threshold" default:"0.1"`
}

// PlaceholderConfig configures placeholder detection.
type PlaceholderConfig struct {
	Sentinel string `yaml:"sentinel" default:"..."`
}

// DefaultConfig returns a Config with every default applied.
func DefaultConfig() Config {
	var cfg Config
	if err := defaults.Set(&cfg); err != nil {
		panic(fmt.Sprintf("stream: invalid default tags: %v", err))
	}
	return cfg
}

// Validate reports the first inconsistent setting.
func (c Config) Validate() error {
	if c.Chunk.MinSize < 1 || c.Chunk.MinSize > c.Chunk.MaxSize {
		return fmt.Errorf("%w: min %d, max %d", ErrInvalidChunkSize, c.Chunk.MinSize, c.Chunk.MaxSize)
	}
	if c.Timing.ThinkingDelay < 0 || c.Timing.CharDelay < 0 || c.Timing.MinFragmentDelay < 0 {
		return errors.New("negative delay in timing config")
	}
	if c.Timing.MaxFragmentDelay < c.Timing.MinFragmentDelay {
		return fmt.Errorf("max_fragment_delay %s is below min_fragment_delay %s",
			c.Timing.MaxFragmentDelay, c.Timing.MinFragmentDelay)
	}
	if c.Emit.Throttle < 0 {
		return fmt.Errorf("negative throttle interval %s", c.Emit.Throttle)
	}
	if c.Emit.ContentThreshold < 0 || c.Emit.ContentThreshold > 1 {
		return fmt.Errorf("content_threshold %v is outside [0, 1]", c.Emit.ContentThreshold)
	}
	return nil
}

// fragmentDelay is the pause after delivering a fragment of n runes.
func (t TimingConfig) fragmentDelay(n int) time.Duration {
	d := time.Duration(n) * t.CharDelay
	return min(max(d, t.MinFragmentDelay), t.MaxFragmentDelay)
}
