package api

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/quantarena/arena/internal/types"
)

const defaultPriceRangeDays = 30

// handleStockPrices serves price bars for a symbol, fetching through the
// cache so a cold range is backfilled from the configured provider.
// Query params: start, end (RFC3339 or 2006-01-02, default last 30 days),
// interval (default 1d), refresh=true forces a provider re-fetch.
func (s *Server) handleStockPrices(w http.ResponseWriter, r *http.Request) {
	symbol := types.CanonicalSymbol(mux.Vars(r)["symbol"])
	if symbol == "" {
		writeError(w, http.StatusBadRequest, "symbol is required")
		return
	}

	interval := types.Interval1Day
	if raw := r.URL.Query().Get("interval"); raw != "" {
		interval = types.Interval(raw)
		if !types.IsValidInterval(interval) {
			writeError(w, http.StatusBadRequest, "invalid interval: "+raw)
			return
		}
	}

	end := time.Now()
	if raw := r.URL.Query().Get("end"); raw != "" {
		parsed, err := parseDate(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid end: "+raw)
			return
		}

		end = parsed
	}

	start := end.AddDate(0, 0, -defaultPriceRangeDays)
	if raw := r.URL.Query().Get("start"); raw != "" {
		parsed, err := parseDate(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid start: "+raw)
			return
		}

		start = parsed
	}

	forceRefresh := r.URL.Query().Get("refresh") == "true"

	res, err := s.prices.FetchAndStore(r.Context(), s.provider, symbol, interval, start, end, forceRefresh)
	if err != nil {
		writeAPIError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, res)
}

func parseDate(raw string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}

	return time.Parse("2006-01-02", raw)
}
