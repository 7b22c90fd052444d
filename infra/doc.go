// Package infra holds the adapters between a simulation run and the outside
// world: loggers, metrics exporters, the MQTT record mirror and the KPI
// store. Its packages implement interfaces declared under core.
package infra
