package options

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/goccy/go-json"
	"github.com/m-mizutani/goerr/v2"

	"github.com/goliatone/go-formflow/pkg/model"
	"github.com/goliatone/go-formflow/pkg/values"
)

// ErrEndpoint marks failed remote option loads.
var ErrEndpoint = errors.New("options: endpoint request failed")

// Endpoint describes a remote option source. Dependency values are sent as
// query parameters keyed by dependency id; the search filter is sent under
// FilterParam ("q" when empty).
type Endpoint struct {
	URL         string            `json:"url" yaml:"url"`
	Method      string            `json:"method,omitempty" yaml:"method,omitempty"`
	ResultsPath string            `json:"resultsPath,omitempty" yaml:"resultsPath,omitempty"`
	LabelField  string            `json:"labelField,omitempty" yaml:"labelField,omitempty"`
	ValueField  string            `json:"valueField,omitempty" yaml:"valueField,omitempty"`
	FilterParam string            `json:"filterParam,omitempty" yaml:"filterParam,omitempty"`
	Params      map[string]string `json:"params,omitempty" yaml:"params,omitempty"`
	Headers     map[string]string `json:"headers,omitempty" yaml:"headers,omitempty"`
}

// HTTPLoader returns an OptionsLoader backed by a JSON endpoint. A nil
// client falls back to http.DefaultClient.
func HTTPLoader(client *http.Client, endpoint Endpoint) model.OptionsLoader {
	if client == nil {
		client = http.DefaultClient
	}
	method := strings.ToUpper(strings.TrimSpace(endpoint.Method))
	if method == "" {
		method = http.MethodGet
	}
	filterParam := endpoint.FilterParam
	if filterParam == "" {
		filterParam = "q"
	}
	labelField := endpoint.LabelField
	if labelField == "" {
		labelField = "label"
	}
	valueField := endpoint.ValueField
	if valueField == "" {
		valueField = "value"
	}

	return func(ctx context.Context, filter string, deps map[string]any) ([]model.Option, error) {
		reqURL, err := url.Parse(endpoint.URL)
		if err != nil {
			return nil, goerr.Wrap(ErrEndpoint, "parse url", goerr.V("url", endpoint.URL), goerr.V("cause", err.Error()))
		}
		q := reqURL.Query()
		for key, value := range endpoint.Params {
			q.Set(key, value)
		}
		for key, value := range deps {
			q.Set(key, values.String(selectedScalar(value)))
		}
		if filter != "" {
			q.Set(filterParam, filter)
		}
		reqURL.RawQuery = q.Encode()

		req, err := http.NewRequestWithContext(ctx, method, reqURL.String(), nil)
		if err != nil {
			return nil, goerr.Wrap(err, "build options request", goerr.V("url", endpoint.URL))
		}
		req.Header.Set("Accept", "application/json")
		for key, value := range endpoint.Headers {
			req.Header.Set(key, value)
		}

		resp, err := client.Do(req)
		if err != nil {
			return nil, goerr.Wrap(err, "request options", goerr.V("url", reqURL.String()))
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return nil, goerr.Wrap(ErrEndpoint, "unexpected status",
				goerr.V("url", reqURL.String()),
				goerr.V("status", resp.StatusCode),
			)
		}

		var payload any
		if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
			return nil, goerr.Wrap(err, "decode options payload", goerr.V("url", reqURL.String()))
		}

		items := extractResults(payload, endpoint.ResultsPath)
		out := make([]model.Option, 0, len(items))
		for _, item := range items {
			obj, ok := item.(map[string]any)
			if !ok {
				if values.IsUnset(item) {
					continue
				}
				out = append(out, model.Option{Label: values.String(item), Value: item})
				continue
			}
			value, ok := pick(obj, valueField)
			if !ok || values.IsUnset(value) {
				continue
			}
			label := ""
			if raw, ok := pick(obj, labelField); ok {
				label = values.String(raw)
			}
			if label == "" {
				label = values.String(value)
			}
			out = append(out, model.Option{Label: label, Value: value})
		}
		return out, nil
	}
}

func selectedScalar(value any) any {
	if v, ok := selectedValue(value); ok {
		return v
	}
	return value
}

func extractResults(payload any, path string) []any {
	if payload == nil {
		return nil
	}
	cur := payload
	if path != "" {
		for _, segment := range strings.Split(path, ".") {
			node, ok := cur.(map[string]any)
			if !ok {
				return nil
			}
			cur = node[segment]
		}
	}
	items, _ := cur.([]any)
	return items
}

func pick(m map[string]any, path string) (any, bool) {
	cur := any(m)
	for _, segment := range strings.Split(path, ".") {
		node, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = node[segment]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}
