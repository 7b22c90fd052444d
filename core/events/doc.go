// Package events defines the simulation events emitted on the event bus.
//
// Available event types:
//   - Assignment: a request was committed to a vehicle
//   - Flush: a dispatch cycle finished
//   - VehicleStatus: periodic vehicle snapshot
//
// Delivery on the bus is best effort; records and metrics sinks are fed
// directly and never depend on these events.
package events
