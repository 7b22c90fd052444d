package export

import (
	"encoding/json"
	"io"

	"github.com/gocarina/gocsv"
	"github.com/samber/lo"

	"github.com/kilianp07/ridepool/core/records"
	"github.com/kilianp07/ridepool/core/simclock"
)

// TripRow is the flat CSV layout of a trip record.
type TripRow struct {
	RunID           string  `csv:"run_id"`
	RequestID       int64   `csv:"request_id"`
	UserID          string  `csv:"user_id"`
	VehicleID       string  `csv:"vehicle_id"`
	Status          string  `csv:"status"`
	Persons         int     `csv:"persons"`
	RequestedStart  string  `csv:"requested_start"`
	PickedUp        string  `csv:"picked_up"`
	DroppedOff      string  `csv:"dropped_off"`
	Completed       string  `csv:"completed"`
	OriginLon       float64 `csv:"o_lon"`
	OriginLat       float64 `csv:"o_lat"`
	DestinationLon  float64 `csv:"d_lon"`
	DestinationLat  float64 `csv:"d_lat"`
	DistanceKM      float64 `csv:"distance_km"`
	DurationS       float64 `csv:"duration_s"`
	DirectDurationS float64 `csv:"direct_duration_s"`
	Shared          bool    `csv:"shared"`
}

func stamp(t simclock.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.String()
}

// TripRows flattens the trip records of recs.
func TripRows(recs []records.Record) []*TripRow {
	return lo.FilterMap(recs, func(r records.Record, _ int) (*TripRow, bool) {
		t := r.Trip
		if r.Kind != records.KindTrip || t == nil {
			return nil, false
		}
		return &TripRow{
			RunID:           r.RunID,
			RequestID:       t.RequestID,
			UserID:          t.UserID,
			VehicleID:       t.VehicleID,
			Status:          t.Status,
			Persons:         t.Persons,
			RequestedStart:  stamp(t.RequestedStart),
			PickedUp:        stamp(t.PickedUp),
			DroppedOff:      stamp(t.DroppedOff),
			Completed:       stamp(t.Completed),
			OriginLon:       t.Origin.Lon,
			OriginLat:       t.Origin.Lat,
			DestinationLon:  t.Destination.Lon,
			DestinationLat:  t.Destination.Lat,
			DistanceKM:      t.DistanceKM,
			DurationS:       t.DurationS,
			DirectDurationS: t.DirectDurationS,
			Shared:          t.Shared,
		}, true
	})
}

// WriteJSON writes the records to w, one JSON document per line.
func WriteJSON(w io.Writer, recs []records.Record) error {
	enc := json.NewEncoder(w)
	for _, r := range recs {
		if err := enc.Encode(r); err != nil {
			return err
		}
	}
	return nil
}

// WriteCSV writes the trip records of recs to w with a header row.
func WriteCSV(w io.Writer, recs []records.Record) error {
	rows := TripRows(recs)
	return gocsv.Marshal(&rows, w)
}
