package options

import (
	"html"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

var (
	labelPolicyOnce sync.Once
	labelPolicy     *bluemonday.Policy
)

func strictPolicy() *bluemonday.Policy {
	labelPolicyOnce.Do(func() {
		labelPolicy = bluemonday.StrictPolicy()
	})
	return labelPolicy
}

// SanitizeLabel strips markup from a remotely supplied option label and
// returns plain text.
func SanitizeLabel(label string) string {
	if label == "" {
		return ""
	}
	clean := strictPolicy().Sanitize(label)
	return strings.TrimSpace(html.UnescapeString(clean))
}

// WithLabelSanitizer strips markup from every loaded option label. A nil fn
// selects SanitizeLabel.
func WithLabelSanitizer(fn func(string) string) Option {
	return func(r *Resolver) {
		if fn == nil {
			fn = SanitizeLabel
		}
		r.sanitize = fn
	}
}
