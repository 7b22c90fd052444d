// Package report summarises the trip records of a run.
package report

import (
	"fmt"
	"io"
	"sort"

	"github.com/samber/lo"
	"gonum.org/v1/gonum/stat"

	"github.com/kilianp07/ridepool/core/records"
)

// Distribution describes one sample of durations in minutes or ratios.
type Distribution struct {
	N      int
	Mean   float64
	StdDev float64
	Median float64
	P90    float64
}

// Report aggregates the trip records of a run.
type Report struct {
	Trips    int
	ByStatus map[string]int
	Shared   int
	// Wait and Ride are in minutes, Detour is ride over direct duration.
	Wait   Distribution
	Ride   Distribution
	Detour Distribution
}

// Summarize builds a report from trip records. Records of other kinds are
// ignored.
func Summarize(recs []records.Record) Report {
	trips := lo.FilterMap(recs, func(r records.Record, _ int) (*records.Trip, bool) {
		return r.Trip, r.Kind == records.KindTrip && r.Trip != nil
	})
	rep := Report{Trips: len(trips), ByStatus: lo.CountValuesBy(trips, func(t *records.Trip) string { return t.Status })}

	var wait, ride, detour []float64
	for _, t := range trips {
		if t.Shared {
			rep.Shared++
		}
		if t.PickedUp.IsZero() {
			continue
		}
		wait = append(wait, t.PickedUp.Sub(t.RequestedStart).Minutes())
		if t.DurationS > 0 {
			ride = append(ride, t.DurationS/60)
			if t.DirectDurationS > 0 {
				detour = append(detour, t.DurationS/t.DirectDurationS)
			}
		}
	}
	rep.Wait = distribution(wait)
	rep.Ride = distribution(ride)
	rep.Detour = distribution(detour)
	return rep
}

func distribution(xs []float64) Distribution {
	if len(xs) == 0 {
		return Distribution{}
	}
	sort.Float64s(xs)
	mean, std := stat.MeanStdDev(xs, nil)
	if len(xs) == 1 {
		std = 0
	}
	return Distribution{
		N:      len(xs),
		Mean:   mean,
		StdDev: std,
		Median: stat.Quantile(0.5, stat.Empirical, xs, nil),
		P90:    stat.Quantile(0.9, stat.Empirical, xs, nil),
	}
}

// Write prints the report as plain text.
func (r Report) Write(w io.Writer) error {
	if _, err := fmt.Fprintf(w, "trips: %d (shared %d)\n", r.Trips, r.Shared); err != nil {
		return err
	}
	statuses := lo.Keys(r.ByStatus)
	sort.Strings(statuses)
	for _, s := range statuses {
		if _, err := fmt.Fprintf(w, "  %-18s %d\n", s, r.ByStatus[s]); err != nil {
			return err
		}
	}
	rows := []struct {
		name string
		d    Distribution
	}{
		{"wait (min)", r.Wait},
		{"ride (min)", r.Ride},
		{"detour", r.Detour},
	}
	for _, row := range rows {
		if _, err := fmt.Fprintf(w, "%-11s n=%d mean=%.2f sd=%.2f median=%.2f p90=%.2f\n",
			row.name, row.d.N, row.d.Mean, row.d.StdDev, row.d.Median, row.d.P90); err != nil {
			return err
		}
	}
	return nil
}
