package form

import (
	"log/slog"

	"github.com/goliatone/go-formflow/pkg/options"
	"github.com/goliatone/go-formflow/pkg/validation"
)

// Option configures a Form.
type Option func(*Form)

// WithLogger sets the logger for the form and its options resolver.
func WithLogger(logger *slog.Logger) Option {
	return func(f *Form) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// WithValidation sets the validation configuration (default messages,
// locale, translator).
func WithValidation(cfg validation.Config) Option {
	return func(f *Form) {
		f.validator = validation.New(cfg)
	}
}

// WithValidator shares an existing validator.
func WithValidator(v *validation.Validator) Option {
	return func(f *Form) {
		if v != nil {
			f.validator = v
		}
	}
}

// WithResolverOptions forwards options to the dependent options resolver.
func WithResolverOptions(opts ...options.Option) Option {
	return func(f *Form) {
		f.resolverOpts = append(f.resolverOpts, opts...)
	}
}
