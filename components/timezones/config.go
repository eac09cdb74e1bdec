package timezones

// EmptySearch selects what an empty filter returns.
type EmptySearch string

const (
	// EmptySearchNone returns no options until the user types.
	EmptySearchNone EmptySearch = "none"
	// EmptySearchTop returns the first zones, up to the limit.
	EmptySearchTop EmptySearch = "top"
)

// Config tunes searches. Zero values fall back to the defaults.
type Config struct {
	SearchParam  string
	LimitParam   string
	DefaultLimit int
	MaxLimit     int
	EmptySearch  EmptySearch
	// Zones replaces the embedded list when non-nil.
	Zones []string
}

// Option mutates a Config.
type Option func(*Config)

// WithZones searches zones instead of the embedded list.
func WithZones(zones []string) Option {
	return func(c *Config) {
		c.Zones = append([]string(nil), zones...)
	}
}

// WithLimits sets the default and maximum result counts.
func WithLimits(def, max int) Option {
	return func(c *Config) {
		c.DefaultLimit = def
		c.MaxLimit = max
	}
}

// WithEmptySearch sets the empty filter behaviour.
func WithEmptySearch(mode EmptySearch) Option {
	return func(c *Config) {
		c.EmptySearch = mode
	}
}

// WithSearchParam renames the query parameters read by Handler.
func WithSearchParam(search, limit string) Option {
	return func(c *Config) {
		c.SearchParam = search
		c.LimitParam = limit
	}
}

func newConfig(opts ...Option) Config {
	cfg := Config{}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	if cfg.DefaultLimit <= 0 {
		cfg.DefaultLimit = 50
	}
	if cfg.MaxLimit <= 0 {
		cfg.MaxLimit = 200
	}
	if cfg.EmptySearch == "" {
		cfg.EmptySearch = EmptySearchNone
	}
	if cfg.SearchParam == "" {
		cfg.SearchParam = "q"
	}
	if cfg.LimitParam == "" {
		cfg.LimitParam = "limit"
	}
	return cfg
}

func (c Config) clamp(limit int) int {
	switch {
	case limit < 0:
		return 0
	case limit == 0:
		limit = c.DefaultLimit
	}
	if limit > c.MaxLimit {
		return c.MaxLimit
	}
	return limit
}

func (c Config) zones() ([]string, error) {
	if c.Zones != nil {
		return c.Zones, nil
	}
	return DefaultZones()
}
