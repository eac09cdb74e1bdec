package validation

import (
	"context"
	"reflect"
	"regexp"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/m-mizutani/goerr/v2"

	"github.com/goliatone/go-formflow/pkg/model"
	"github.com/goliatone/go-formflow/pkg/values"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"02/01/2006",
}

// Validator checks field values against their built-in rules and custom
// validators. It is safe for concurrent use.
type Validator struct {
	cfg      Config
	mu       sync.Mutex
	patterns map[string]*regexp.Regexp
}

// New constructs a validator. Blank messages fall back to DefaultMessages.
func New(cfg Config) *Validator {
	cfg.ErrorMessages = cfg.ErrorMessages.withDefaults()
	return &Validator{
		cfg:      cfg,
		patterns: make(map[string]*regexp.Regexp),
	}
}

// Config returns the effective configuration.
func (v *Validator) Config() Config {
	if v == nil {
		return Config{ErrorMessages: DefaultMessages()}
	}
	return v.cfg
}

// Field validates one field value. Rules run in order: required, then for
// non-empty values the kind and length/pattern rules, then the custom
// Validation callback. A callback error is reported as a message and also
// returned so the caller can log it.
func (v *Validator) Field(ctx context.Context, id string, field model.Field, schema *model.Schema) ([]string, error) {
	if v == nil {
		v = New(Config{})
	}
	msgs := v.cfg.ErrorMessages
	value := field.Value

	var out []string
	if values.IsEmpty(value) {
		if field.Required {
			out = append(out, v.cfg.message(KeyRequired, msgs.Required))
		}
	} else {
		out = append(out, v.builtins(field, value)...)
	}

	var callErr error
	if field.Validation != nil {
		extra, err := field.Validation(ctx, value, schema)
		if err != nil {
			callErr = goerr.Wrap(err, "custom validation failed", goerr.V("field", id))
			out = append(out, strings.TrimSpace(err.Error()))
		}
		out = append(out, extra...)
	}
	return normalizeMessages(out), callErr
}

func (v *Validator) builtins(field model.Field, value any) []string {
	msgs := v.cfg.ErrorMessages
	var out []string

	text, isText := textOf(value)
	switch field.Type {
	case model.KindEmail:
		if isText && !emailPattern.MatchString(strings.TrimSpace(text)) {
			out = append(out, v.cfg.message(KeyInvalidEmail, msgs.InvalidEmail))
		}
	case model.KindDate:
		if !isDate(value) {
			out = append(out, v.cfg.message(KeyInvalidDate, msgs.InvalidDate))
		}
	}

	if n, ok := lengthOf(value); ok {
		if field.MinLength > 0 && n < field.MinLength {
			out = append(out, v.cfg.message(KeyMinLength, msgs.MinLength, field.MinLength))
		}
		if field.MaxLength > 0 && n > field.MaxLength {
			out = append(out, v.cfg.message(KeyMaxLength, msgs.MaxLength, field.MaxLength))
		}
	}

	if pattern := strings.TrimSpace(field.Pattern); pattern != "" && isText {
		if re := v.compile(pattern); re != nil && !re.MatchString(text) {
			out = append(out, v.cfg.message(KeyPatternMismatch, msgs.PatternMismatch))
		}
	}
	return out
}

func (v *Validator) compile(pattern string) *regexp.Regexp {
	v.mu.Lock()
	defer v.mu.Unlock()
	if re, ok := v.patterns[pattern]; ok {
		return re
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		re = nil
	}
	v.patterns[pattern] = re
	return re
}

// Join renders messages into the single error string stored on a field.
func Join(messages []string) string {
	return strings.Join(normalizeMessages(messages), ",")
}

func textOf(value any) (string, bool) {
	switch v := value.(type) {
	case string:
		return v, true
	case []byte:
		return string(v), true
	case float64, float32, int, int64, int32:
		return values.String(v), true
	default:
		return "", false
	}
}

func lengthOf(value any) (int, bool) {
	if text, ok := value.(string); ok {
		return utf8.RuneCountInString(text), true
	}
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		return rv.Len(), true
	}
	return 0, false
}

func isDate(value any) bool {
	switch v := value.(type) {
	case time.Time:
		return !v.IsZero()
	case *time.Time:
		return v != nil && !v.IsZero()
	case string:
		raw := strings.TrimSpace(v)
		for _, layout := range dateLayouts {
			if _, err := time.Parse(layout, raw); err == nil {
				return true
			}
		}
		return false
	default:
		return false
	}
}
