package vehicles

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	eco "github.com/kilianp07/ridepool/core/metrics/eco"
)

// NewKPIHandler exposes daily energy KPIs via GET /api/vehicles/{id}/kpis.
// start and end are RFC3339 timestamps in simulated time. Without them every
// recorded day is returned, and end defaults to start.
func NewKPIHandler(store eco.Store, factor float64) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		path := strings.TrimPrefix(r.URL.Path, "/api/vehicles/")
		parts := strings.Split(path, "/")
		if len(parts) < 2 || parts[1] != "kpis" || parts[0] == "" {
			http.NotFound(w, r)
			return
		}
		id := parts[0]
		start, _ := time.Parse(time.RFC3339, r.URL.Query().Get("start"))
		end, _ := time.Parse(time.RFC3339, r.URL.Query().Get("end"))
		switch {
		case end.IsZero() && start.IsZero():
			end = time.Date(9999, 1, 1, 0, 0, 0, 0, time.UTC)
		case end.IsZero():
			end = start
		}
		recs, err := store.Query(id, start, end)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		type out struct {
			Date      string  `json:"date"`
			DrivingKM float64 `json:"driving_km"`
			EnergyKWh float64 `json:"energy_kwh"`
			KWhPerKM  float64 `json:"kwh_per_km"`
			Occupancy float64 `json:"occupancy"`
			CO2Grams  float64 `json:"co2_grams"`
		}
		outSlice := make([]out, len(recs))
		for i, r := range recs {
			outSlice[i] = out{
				Date:      r.Date.Format("2006-01-02"),
				DrivingKM: r.DrivingKM,
				EnergyKWh: r.EnergyKWh,
				KWhPerKM:  r.KWhPerKM(),
				Occupancy: r.Occupancy(),
				CO2Grams:  r.Emissions(factor),
			}
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(outSlice)
	})
}
