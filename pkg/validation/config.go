package validation

import (
	"fmt"
	"strings"
)

// Message keys passed to a Translator.
const (
	KeyRequired        = "validation.required"
	KeyInvalidEmail    = "validation.invalidEmail"
	KeyInvalidDate     = "validation.invalidDate"
	KeyMinLength       = "validation.minLength"
	KeyMaxLength       = "validation.maxLength"
	KeyPatternMismatch = "validation.patternMismatch"
)

// Messages holds the default error texts. MinLength and MaxLength are format
// strings receiving the configured bound.
type Messages struct {
	Required        string `json:"required,omitempty" yaml:"required,omitempty"`
	InvalidEmail    string `json:"invalidEmail,omitempty" yaml:"invalidEmail,omitempty"`
	InvalidDate     string `json:"invalidDate,omitempty" yaml:"invalidDate,omitempty"`
	MinLength       string `json:"minLength,omitempty" yaml:"minLength,omitempty"`
	MaxLength       string `json:"maxLength,omitempty" yaml:"maxLength,omitempty"`
	PatternMismatch string `json:"patternMismatch,omitempty" yaml:"patternMismatch,omitempty"`
}

// DefaultMessages returns the built-in English messages.
func DefaultMessages() Messages {
	return Messages{
		Required:        "This field is required",
		InvalidEmail:    "Please enter a valid email address",
		InvalidDate:     "Please enter a valid date",
		MinLength:       "Must be at least %d characters",
		MaxLength:       "Must be no more than %d characters",
		PatternMismatch: "Input format is not valid",
	}
}

// withDefaults fills blank entries from DefaultMessages.
func (m Messages) withDefaults() Messages {
	def := DefaultMessages()
	pick := func(value, fallback string) string {
		if strings.TrimSpace(value) == "" {
			return fallback
		}
		return value
	}
	return Messages{
		Required:        pick(m.Required, def.Required),
		InvalidEmail:    pick(m.InvalidEmail, def.InvalidEmail),
		InvalidDate:     pick(m.InvalidDate, def.InvalidDate),
		MinLength:       pick(m.MinLength, def.MinLength),
		MaxLength:       pick(m.MaxLength, def.MaxLength),
		PatternMismatch: pick(m.PatternMismatch, def.PatternMismatch),
	}
}

// Translator resolves localized message strings.
type Translator interface {
	Translate(locale, key string, args ...any) (string, error)
}

// Config is the form-wide validation configuration.
type Config struct {
	ErrorMessages Messages   `json:"errorMessages,omitempty" yaml:"errorMessages,omitempty"`
	Locale        string     `json:"locale,omitempty" yaml:"locale,omitempty"`
	Translator    Translator `json:"-" yaml:"-"`
}

// message resolves key through the translator, falling back to the
// configured text.
func (c Config) message(key, fallback string, args ...any) string {
	if c.Translator != nil {
		if out, err := c.Translator.Translate(c.Locale, key, args...); err == nil && strings.TrimSpace(out) != "" {
			return out
		}
	}
	if len(args) > 0 && strings.Contains(fallback, "%") {
		return fmt.Sprintf(fallback, args...)
	}
	return fallback
}
