package timezones

import (
	"sort"
	"strings"

	"github.com/goliatone/go-formflow/pkg/model"
)

// Search matches query case-insensitively anywhere in the zone name. Prefix
// matches come first, then the rest alphabetically.
func Search(zones []string, query string, limit int, cfg Config) []string {
	cfg = newConfig(func(c *Config) { *c = cfg })
	limit = cfg.clamp(limit)
	if limit == 0 {
		return nil
	}

	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		if cfg.EmptySearch != EmptySearchTop {
			return nil
		}
		return append([]string(nil), zones[:min(limit, len(zones))]...)
	}

	type match struct {
		name   string
		prefix bool
	}
	var matches []match
	for _, zone := range zones {
		lower := strings.ToLower(zone)
		if strings.Contains(lower, query) {
			matches = append(matches, match{name: zone, prefix: strings.HasPrefix(lower, query)})
		}
	}
	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].prefix != matches[j].prefix {
			return matches[i].prefix
		}
		return matches[i].name < matches[j].name
	})
	if len(matches) > limit {
		matches = matches[:limit]
	}

	out := make([]string, 0, len(matches))
	for _, m := range matches {
		out = append(out, m.name)
	}
	return out
}

// SearchOptions runs Search and wraps each zone as an option whose label and
// value are the zone name.
func SearchOptions(zones []string, query string, limit int, cfg Config) []model.Option {
	results := Search(zones, query, limit, cfg)
	out := make([]model.Option, 0, len(results))
	for _, zone := range results {
		out = append(out, model.Option{Label: zone, Value: zone})
	}
	return out
}
