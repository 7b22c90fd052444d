// Package input loads the fleet and the trip requests of a run from CSV.
package input

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"

	"github.com/gocarina/gocsv"
	"github.com/jinzhu/copier"
	"github.com/paulcager/osgridref"

	"github.com/kilianp07/ridepool/core/geo"
	"github.com/kilianp07/ridepool/core/simclock"
)

// Config names the input files.
type Config struct {
	Vehicles string `json:"vehicles"`
	Requests string `json:"requests"`
}

// Validate checks that both files are set.
func (c Config) Validate() error {
	if c.Vehicles == "" {
		return errors.New("input.vehicles is required")
	}
	if c.Requests == "" {
		return errors.New("input.requests is required")
	}
	return nil
}

// Vehicle describes one vehicle of the fleet.
type Vehicle struct {
	ID       string
	Capacity int
	Position geo.Position
	// KWhPer100KM and KWhPer100KMPerPax override the fleet energy model
	// when non-zero.
	KWhPer100KM       float64
	KWhPer100KMPerPax float64
}

// Request describes one trip request.
type Request struct {
	ID              int64
	UserID          string
	RequestedStart  simclock.Time
	RequestedEnd    simclock.Time
	Origin          geo.Position
	Destination     geo.Position
	ExtraPassengers int
	DistanceKM      float64
}

type vehicleRow struct {
	ID                string  `csv:"vehicle_id"`
	Lon               float64 `csv:"lon,omitempty"`
	Lat               float64 `csv:"lat,omitempty"`
	Easting           string  `csv:"easting,omitempty"`
	Northing          string  `csv:"northing,omitempty"`
	Capacity          int     `csv:"capacity"`
	KWhPer100KM       float64 `csv:"kwh_per_100km,omitempty"`
	KWhPer100KMPerPax float64 `csv:"kwh_per_100km_per_pax,omitempty"`
}

type requestRow struct {
	ID              int64   `csv:"booking_id"`
	UserID          string  `csv:"person_id"`
	OTime           string  `csv:"o_time"`
	DTime           string  `csv:"d_time,omitempty"`
	OLon            float64 `csv:"o_lon,omitempty"`
	OLat            float64 `csv:"o_lat,omitempty"`
	DLon            float64 `csv:"d_lon,omitempty"`
	DLat            float64 `csv:"d_lat,omitempty"`
	OEasting        string  `csv:"o_easting,omitempty"`
	ONorthing       string  `csv:"o_northing,omitempty"`
	DEasting        string  `csv:"d_easting,omitempty"`
	DNorthing       string  `csv:"d_northing,omitempty"`
	ExtraPassengers int     `csv:"additional_persons,omitempty"`
	DistanceKM      float64 `csv:"dist_km,omitempty"`
}

// LoadVehicles reads the fleet file.
func LoadVehicles(path string) ([]Vehicle, error) {
	var rows []*vehicleRow
	if err := readCSV(path, &rows); err != nil {
		return nil, fmt.Errorf("input: vehicles: %w", err)
	}
	return parseVehicles(rows)
}

// ReadVehicles parses fleet rows from r.
func ReadVehicles(r io.Reader) ([]Vehicle, error) {
	var rows []*vehicleRow
	if err := unmarshal(r, &rows); err != nil {
		return nil, fmt.Errorf("input: vehicles: %w", err)
	}
	return parseVehicles(rows)
}

func parseVehicles(rows []*vehicleRow) ([]Vehicle, error) {
	out := make([]Vehicle, 0, len(rows))
	seen := map[string]bool{}
	for i, row := range rows {
		var v Vehicle
		if err := copier.Copy(&v, row); err != nil {
			return nil, err
		}
		if v.ID == "" {
			return nil, fmt.Errorf("input: vehicle row %d: vehicle_id is required", i+1)
		}
		if seen[v.ID] {
			return nil, fmt.Errorf("input: duplicate vehicle %s", v.ID)
		}
		seen[v.ID] = true
		if v.Capacity < 1 {
			return nil, fmt.Errorf("input: vehicle %s: capacity must be >= 1", v.ID)
		}
		pos, err := position(row.Lon, row.Lat, row.Easting, row.Northing)
		if err != nil {
			return nil, fmt.Errorf("input: vehicle %s: %w", v.ID, err)
		}
		v.Position = pos
		out = append(out, v)
	}
	return out, nil
}

// LoadRequests reads the request file. Requests are returned ordered by
// requested start, then id.
func LoadRequests(path string) ([]Request, error) {
	var rows []*requestRow
	if err := readCSV(path, &rows); err != nil {
		return nil, fmt.Errorf("input: requests: %w", err)
	}
	return parseRequests(rows)
}

// ReadRequests parses request rows from r.
func ReadRequests(r io.Reader) ([]Request, error) {
	var rows []*requestRow
	if err := unmarshal(r, &rows); err != nil {
		return nil, fmt.Errorf("input: requests: %w", err)
	}
	return parseRequests(rows)
}

func parseRequests(rows []*requestRow) ([]Request, error) {
	out := make([]Request, 0, len(rows))
	seen := map[int64]bool{}
	for _, row := range rows {
		var r Request
		if err := copier.Copy(&r, row); err != nil {
			return nil, err
		}
		if seen[r.ID] {
			return nil, fmt.Errorf("input: duplicate request %d", r.ID)
		}
		seen[r.ID] = true
		if r.UserID == "" {
			r.UserID = strconv.FormatInt(r.ID, 10)
		}
		if r.ExtraPassengers < 0 {
			return nil, fmt.Errorf("input: request %d: additional_persons must be >= 0", r.ID)
		}
		var err error
		if r.RequestedStart, err = simclock.Parse(row.OTime); err != nil {
			return nil, fmt.Errorf("input: request %d: o_time: %w", r.ID, err)
		}
		if row.DTime != "" {
			if r.RequestedEnd, err = simclock.Parse(row.DTime); err != nil {
				return nil, fmt.Errorf("input: request %d: d_time: %w", r.ID, err)
			}
		}
		if r.Origin, err = position(row.OLon, row.OLat, row.OEasting, row.ONorthing); err != nil {
			return nil, fmt.Errorf("input: request %d: origin: %w", r.ID, err)
		}
		if r.Destination, err = position(row.DLon, row.DLat, row.DEasting, row.DNorthing); err != nil {
			return nil, fmt.Errorf("input: request %d: destination: %w", r.ID, err)
		}
		out = append(out, r)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].RequestedStart != out[j].RequestedStart {
			return out[i].RequestedStart < out[j].RequestedStart
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// position prefers lon/lat and falls back to an OSGB easting/northing pair.
func position(lon, lat float64, easting, northing string) (geo.Position, error) {
	if lon != 0 || lat != 0 {
		return geo.Position{Lon: lon, Lat: lat}, nil
	}
	if easting == "" || northing == "" {
		return geo.Position{}, errors.New("missing coordinates")
	}
	ref, err := osgridref.ParseOsGridRef(easting + "," + northing)
	if err != nil {
		return geo.Position{}, err
	}
	lat, lon = ref.ToLatLon()
	return geo.Position{Lon: lon, Lat: lat}, nil
}

func readCSV(path string, out any) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()
	return unmarshal(f, out)
}

// unmarshal tolerates rows with missing trailing columns.
func unmarshal(r io.Reader, out any) error {
	return gocsv.UnmarshalCSV(lenientReader(r), out)
}

func lenientReader(in io.Reader) gocsv.CSVReader {
	r := csv.NewReader(in)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true
	return r
}
