package timezones

import (
	"context"

	"github.com/goliatone/go-formflow/pkg/model"
)

// Loader returns an OptionsLoader over the zone list. The filter passed by
// the resolver is the search query; dependency values are ignored.
func Loader(opts ...Option) model.OptionsLoader {
	cfg := newConfig(opts...)
	return func(ctx context.Context, filter string, _ map[string]any) ([]model.Option, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		zones, err := cfg.zones()
		if err != nil {
			return nil, err
		}
		return SearchOptions(zones, filter, cfg.DefaultLimit, cfg), nil
	}
}
