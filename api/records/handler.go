package records

import (
	"encoding/json"
	"net/http"

	"github.com/kilianp07/ridepool/core/records"
	"github.com/kilianp07/ridepool/core/simclock"
)

// NewHandler returns an HTTP handler exposing run records via GET /api/records.
// Requests must include an Authorization header with "Bearer <token>" when token is non-empty.
// The kind, object_id, run_id, start and end query parameters filter the result.
func NewHandler(store records.Store, token string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if token != "" {
			auth := r.Header.Get("Authorization")
			if auth != "Bearer "+token {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
		}
		p := r.URL.Query()
		q := records.Query{
			Kind:     records.Kind(p.Get("kind")),
			ObjectID: p.Get("object_id"),
			RunID:    p.Get("run_id"),
		}
		for name, dst := range map[string]*simclock.Time{"start": &q.Start, "end": &q.End} {
			if s := p.Get(name); s != "" {
				t, err := simclock.Parse(s)
				if err != nil {
					http.Error(w, "invalid "+name, http.StatusBadRequest)
					return
				}
				*dst = t
			}
		}
		recs, err := store.Query(r.Context(), q)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if recs == nil {
			recs = []records.Record{}
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(recs); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
	})
}
