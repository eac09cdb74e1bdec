package timezones

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/goccy/go-json"

	"github.com/goliatone/go-formflow/pkg/model"
)

type optionsResponse struct {
	Data []model.Option `json:"data"`
}

// Handler serves GET and HEAD searches as {"data": [{label, value}]}, the
// shape options.Endpoint reads with ResultsPath "data".
func Handler(opts ...Option) http.Handler {
	cfg := newConfig(opts...)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			w.Header().Set("Allow", http.MethodGet+", "+http.MethodHead)
			http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
			return
		}

		zones, err := cfg.zones()
		if err != nil {
			slog.Error("failed to load zones", slog.Any("error", err))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}

		q := r.URL.Query()
		limit, _ := strconv.Atoi(q.Get(cfg.LimitParam))
		results := SearchOptions(zones, q.Get(cfg.SearchParam), limit, cfg)

		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		if r.Method == http.MethodHead {
			return
		}
		if err := json.NewEncoder(w).Encode(optionsResponse{Data: results}); err != nil {
			slog.Error("failed to encode zones", slog.Any("error", err))
		}
	})
}
