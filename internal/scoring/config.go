package scoring

// Config holds the weighting for category scoring.
//
// The formula (distinct matches x priority weight + capped density bonus) and
// its default weights are empirically tuned for pitch-deck-shaped documents.
// Selection tests validate stability on synthetic documents rather than assume
// the weights are correct.
type Config struct {
	// Priority weights multiply the distinct-keyword match count.
	Priority1Weight float64 `yaml:"priority1_weight"` // default: 3.0 (financials, competition)
	Priority2Weight float64 `yaml:"priority2_weight"` // default: 2.0 (market, traction)
	Priority3Weight float64 `yaml:"priority3_weight"` // default: 1.0 (team)

	// DensityBonusCap bounds the keyword-density bonus so keyword-stuffed pages
	// cannot run away. Default: 0.5.
	DensityBonusCap float64 `yaml:"density_bonus_cap"`
	// DensityScale converts keyword occurrences per word into the bonus before
	// capping. Default: 10.
	DensityScale float64 `yaml:"density_scale"`
}

// DefaultConfig returns the default scoring configuration.
func DefaultConfig() *Config {
	return &Config{
		Priority1Weight: 3.0,
		Priority2Weight: 2.0,
		Priority3Weight: 1.0,
		DensityBonusCap: 0.5,
		DensityScale:    10,
	}
}

// ApplyDefaults fills in zero values with defaults.
func (c *Config) ApplyDefaults() {
	defaults := DefaultConfig()
	if c.Priority1Weight == 0 {
		c.Priority1Weight = defaults.Priority1Weight
	}
	if c.Priority2Weight == 0 {
		c.Priority2Weight = defaults.Priority2Weight
	}
	if c.Priority3Weight == 0 {
		c.Priority3Weight = defaults.Priority3Weight
	}
	if c.DensityBonusCap == 0 {
		c.DensityBonusCap = defaults.DensityBonusCap
	}
	if c.DensityScale == 0 {
		c.DensityScale = defaults.DensityScale
	}
}

func (c *Config) weight(priority int) float64 {
	switch priority {
	case 1:
		return c.Priority1Weight
	case 2:
		return c.Priority2Weight
	default:
		return c.Priority3Weight
	}
}
