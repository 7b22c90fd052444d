package vehicles

import (
	"encoding/json"
	"net/http"
	"strconv"

	vehiclestatus "github.com/kilianp07/ridepool/core/vehiclestatus"
)

// NewStatusHandler returns an HTTP handler exposing vehicle status data via GET /api/vehicles/status.
// The optional status and min_vacant query parameters filter the result.
func NewStatusHandler(store vehiclestatus.Store) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		f := vehiclestatus.Filter{Status: r.URL.Query().Get("status")}
		if v := r.URL.Query().Get("min_vacant"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 0 {
				http.Error(w, "invalid min_vacant", http.StatusBadRequest)
				return
			}
			f.MinVacant = n
		}
		entries := store.List(f)
		if entries == nil {
			entries = []vehiclestatus.Status{}
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(entries); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
	})
}
