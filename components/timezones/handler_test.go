package timezones

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formflow/pkg/model"
	"github.com/goliatone/go-formflow/pkg/options"
)

func TestHandlerEmptyQueryReturnsEmptyArray(t *testing.T) {
	h := Handler(WithZones([]string{"UTC"}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/timezones", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
		t.Fatalf("expected JSON content type, got %q", ct)
	}
	var payload optionsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload.Data == nil || len(payload.Data) != 0 {
		t.Fatalf("expected empty data array, got %#v", payload.Data)
	}
}

func TestHandlerMethods(t *testing.T) {
	h := Handler(WithZones([]string{"UTC"}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))
	if rec.Code != http.StatusMethodNotAllowed || rec.Header().Get("Allow") == "" {
		t.Fatalf("expected 405 with Allow header, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodHead, "/?q=utc", nil))
	if rec.Code != http.StatusOK || rec.Body.Len() != 0 {
		t.Fatalf("expected empty 200 for HEAD, got %d with %d bytes", rec.Code, rec.Body.Len())
	}
}

func TestHandlerFeedsEndpointLoader(t *testing.T) {
	srv := httptest.NewServer(Handler(
		WithZones([]string{"America/Chicago", "America/New_York", "Europe/Paris"}),
		WithSearchParam("search", "max"),
	))
	defer srv.Close()

	load := options.HTTPLoader(srv.Client(), options.Endpoint{
		URL:         srv.URL,
		ResultsPath: "data",
		FilterParam: "search",
		Params:      map[string]string{"max": "1"},
	})
	got, err := load(context.Background(), "america", nil)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if diff := cmp.Diff([]model.Option{{Label: "America/Chicago", Value: "America/Chicago"}}, got); diff != "" {
		t.Fatalf("options mismatch (-want +got):\n%s", diff)
	}
}
