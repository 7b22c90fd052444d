package eco

import "time"

// Record aggregates driving energy for a vehicle and simulated day.
type Record struct {
	VehicleID   string    `json:"vehicle_id"`
	Date        time.Time `json:"date"`
	DrivingKM   float64   `json:"driving_km"`
	PassengerKM float64   `json:"passenger_km"`
	EnergyKWh   float64   `json:"energy_kwh"`
}

// Emissions returns the grams of CO2 emitted using the factor in g/kWh.
func (r Record) Emissions(factor float64) float64 {
	return r.EnergyKWh * factor
}

// KWhPerKM returns the consumption per driven kilometre.
func (r Record) KWhPerKM() float64 {
	if r.DrivingKM == 0 {
		return 0
	}
	return r.EnergyKWh / r.DrivingKM
}

// Occupancy is the average number of passengers per driven kilometre.
func (r Record) Occupancy() float64 {
	if r.DrivingKM == 0 {
		return 0
	}
	return r.PassengerKM / r.DrivingKM
}
