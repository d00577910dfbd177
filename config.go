package zkrange

import (
	"fmt"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/shopspring/decimal"
)

// Duration wraps time.Duration so TOML configs can say "24h" or "90s".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = parsed
	return nil
}

// SubjectRange declares the admissible range for one subject. Bounds are
// decimal strings in the raw value domain, before scaling.
type SubjectRange struct {
	ID       string `toml:"id"`
	RangeMin string `toml:"range_min"`
	RangeMax string `toml:"range_max"`
}

// Config holds the proof parameters, the decimal scale that maps raw
// values into the integer proof domain, store timing, and the per-subject
// ranges.
type Config struct {
	BitWidth      int64          `toml:"bit_width"`
	Scale         int32          `toml:"scale"`
	DefaultTTL    Duration       `toml:"default_ttl"`
	SweepInterval Duration       `toml:"sweep_interval"`
	Subjects      []SubjectRange `toml:"subjects"`
}

func DefaultConfig() *Config {
	return &Config{
		BitWidth:      32,
		Scale:         3,
		DefaultTTL:    Duration{24 * time.Hour},
		SweepInterval: Duration{time.Minute},
	}
}

func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("load config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	switch c.BitWidth {
	case 8, 16, 32, 64:
	default:
		return fmt.Errorf("config: unsupported bit_width %d", c.BitWidth)
	}
	if c.Scale < 0 {
		return fmt.Errorf("config: negative scale %d", c.Scale)
	}
	if c.DefaultTTL.Duration <= 0 {
		return fmt.Errorf("config: default_ttl must be positive")
	}
	if c.SweepInterval.Duration <= 0 {
		return fmt.Errorf("config: sweep_interval must be positive")
	}

	seen := make(map[string]bool, len(c.Subjects))
	for _, sub := range c.Subjects {
		if sub.ID == "" {
			return fmt.Errorf("config: subject with empty id")
		}
		if seen[sub.ID] {
			return fmt.Errorf("config: duplicate subject %q", sub.ID)
		}
		seen[sub.ID] = true

		min, max, err := sub.Bounds()
		if err != nil {
			return err
		}
		if min.GreaterThan(max) {
			return fmt.Errorf("config: subject %q has range_min > range_max", sub.ID)
		}
		lo, hi := scaleToInt(min, c.Scale), scaleToInt(max, c.Scale)
		width := uint64(hi) - uint64(lo)
		if c.BitWidth < 64 && width >= uint64(1)<<uint(c.BitWidth) {
			return fmt.Errorf("config: subject %q range exceeds %d bits after scaling", sub.ID, c.BitWidth)
		}
	}
	return nil
}

// Bounds parses the range bounds of a subject.
func (s *SubjectRange) Bounds() (decimal.Decimal, decimal.Decimal, error) {
	min, err := decimal.NewFromString(s.RangeMin)
	if err != nil {
		return decimal.Decimal{}, decimal.Decimal{}, fmt.Errorf("config: subject %q range_min: %w", s.ID, err)
	}
	max, err := decimal.NewFromString(s.RangeMax)
	if err != nil {
		return decimal.Decimal{}, decimal.Decimal{}, fmt.Errorf("config: subject %q range_max: %w", s.ID, err)
	}
	return min, max, nil
}

// Subject looks up the range declaration for a subject id.
func (c *Config) Subject(id string) (*SubjectRange, bool) {
	for i := range c.Subjects {
		if c.Subjects[i].ID == id {
			return &c.Subjects[i], true
		}
	}
	return nil, false
}

// scaleToInt maps a decimal into the integer proof domain by shifting
// Scale digits left. Precision beyond Scale decimals truncates toward
// zero.
func scaleToInt(d decimal.Decimal, scale int32) int64 {
	return d.Shift(scale).IntPart()
}
