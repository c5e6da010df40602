package selection

// Config holds page-selection settings. The quota and fallback-position
// defaults reflect typical pitch-deck structure; they are configuration, not
// load-bearing assumptions.
type Config struct {
	// MaxPages is the hard cap on selected pages per run. Default: 7.
	MaxPages int `yaml:"max_pages"`
	// MinPages is the floor below which fallback selection kicks in. Default: 3.
	MinPages int `yaml:"min_pages"`
	// CategoryQuota caps pages per category. Defaults: financials 2,
	// competition 2, market 1, traction 1, team 1.
	CategoryQuota map[string]int `yaml:"category_quota"`
	// PreferEarlier breaks score ties toward lower page indices (decks usually
	// front-load substance). Default: true.
	PreferEarlier *bool `yaml:"prefer_earlier"`
	// FallbackPositions maps category to proportional document depth (0-1) used
	// when scoring yields too few candidates. Defaults: team 0.10, market 0.20,
	// competition 0.30, traction 0.40, financials 0.85.
	FallbackPositions map[string]float64 `yaml:"fallback_positions"`
}

// DefaultConfig returns the default selection configuration.
func DefaultConfig() *Config {
	return &Config{
		MaxPages: 7,
		MinPages: 3,
		CategoryQuota: map[string]int{
			"financials":  2,
			"competition": 2,
			"market":      1,
			"traction":    1,
			"team":        1,
		},
		FallbackPositions: map[string]float64{
			"team":        0.10,
			"market":      0.20,
			"competition": 0.30,
			"traction":    0.40,
			"financials":  0.85,
		},
	}
}

// ApplyDefaults fills in zero values with defaults.
func (c *Config) ApplyDefaults() {
	defaults := DefaultConfig()
	if c.MaxPages == 0 {
		c.MaxPages = defaults.MaxPages
	}
	if c.MinPages == 0 {
		c.MinPages = defaults.MinPages
	}
	if c.CategoryQuota == nil {
		c.CategoryQuota = defaults.CategoryQuota
	}
	if c.FallbackPositions == nil {
		c.FallbackPositions = defaults.FallbackPositions
	}
}

// preferEarlier returns the tie-break direction; defaults to true when unset.
func (c *Config) preferEarlier() bool {
	if c.PreferEarlier != nil {
		return *c.PreferEarlier
	}
	return true
}

// quota returns the max pages for a category; categories without an explicit
// quota get 1.
func (c *Config) quota(category string) int {
	if q, ok := c.CategoryQuota[category]; ok {
		return q
	}
	return 1
}
