package kpi

import (
	"database/sql"
	"time"

	_ "modernc.org/sqlite"

	"github.com/kilianp07/ridepool/core/metrics/eco"
)

// SQLiteStore persists daily energy records in a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

var _ eco.Store = (*SQLiteStore)(nil)

// NewSQLiteStore opens or creates the database and ensures schema.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	schema := `CREATE TABLE IF NOT EXISTS eco_kpi (
        vehicle_id TEXT,
        day INTEGER,
        driving_km REAL,
        passenger_km REAL,
        energy_kwh REAL,
        PRIMARY KEY(vehicle_id, day)
    );`
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &SQLiteStore{db: db}, nil
}

// Add accumulates r into the row of its vehicle and day.
func (s *SQLiteStore) Add(r eco.Record) error {
	d := eco.Day(r.Date)
	_, err := s.db.Exec(`INSERT INTO eco_kpi (vehicle_id, day, driving_km, passenger_km, energy_kwh)
        VALUES (?, ?, ?, ?, ?)
        ON CONFLICT(vehicle_id, day) DO UPDATE SET
            driving_km = driving_km + excluded.driving_km,
            passenger_km = passenger_km + excluded.passenger_km,
            energy_kwh = energy_kwh + excluded.energy_kwh`,
		r.VehicleID, d.Unix(), r.DrivingKM, r.PassengerKM, r.EnergyKWh)
	return err
}

// Query returns records in the range [start,end].
func (s *SQLiteStore) Query(vehicleID string, start, end time.Time) ([]eco.Record, error) {
	start = eco.Day(start)
	end = eco.Day(end)
	rows, err := s.db.Query(`SELECT vehicle_id, day, driving_km, passenger_km, energy_kwh
        FROM eco_kpi WHERE vehicle_id = ? AND day >= ? AND day <= ? ORDER BY day`,
		vehicleID, start.Unix(), end.Unix())
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var res []eco.Record
	for rows.Next() {
		var rec eco.Record
		var ts int64
		if err := rows.Scan(&rec.VehicleID, &ts, &rec.DrivingKM, &rec.PassengerKM, &rec.EnergyKWh); err != nil {
			return nil, err
		}
		rec.Date = time.Unix(ts, 0).UTC()
		res = append(res, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return res, nil
}

// Vehicles lists the vehicle ids present in the store.
func (s *SQLiteStore) Vehicles() ([]string, error) {
	rows, err := s.db.Query(`SELECT DISTINCT vehicle_id FROM eco_kpi ORDER BY vehicle_id`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error { return s.db.Close() }
