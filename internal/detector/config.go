package detector

// Config bounds the detector's in-memory state. The caps change percentile
// and statistics computations slightly compared to an unbounded history;
// they exist to keep long-running daemons at a fixed memory footprint.
type Config struct {
	// HistoryCap is the maximum number of window events retained.
	HistoryCap int `yaml:"history_cap"`
	// SessionCap is the maximum number of completed sessions retained.
	SessionCap int `yaml:"session_cap"`
	// ConfidenceMinimum is the floor below which a completed session is
	// considered low quality by consumers. The detector itself does not
	// filter on it.
	ConfidenceMinimum float64 `yaml:"confidence_minimum"`
}

// DefaultConfig returns the default detector configuration.
func DefaultConfig() Config {
	return Config{
		HistoryCap:        1000,
		SessionCap:        500,
		ConfidenceMinimum: 0.3,
	}
}

// normalized fills zero values with defaults so a partially populated
// config from YAML still yields a working detector.
func (c Config) normalized() Config {
	def := DefaultConfig()
	if c.HistoryCap <= 0 {
		c.HistoryCap = def.HistoryCap
	}
	if c.SessionCap <= 0 {
		c.SessionCap = def.SessionCap
	}
	if c.ConfidenceMinimum <= 0 {
		c.ConfidenceMinimum = def.ConfidenceMinimum
	}
	return c
}
