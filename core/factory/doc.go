// Package factory instantiates pluggable modules from configuration. A
// module is named by a type string and carries a map of raw settings that
// its factory decodes with Decode.
//
// Dispatch policies and metrics sinks are both built this way:
//
//	sinks:
//	  - type: "influx"
//	    conf: {url: "http://localhost:8086", bucket: "sim"}
//
// resolves to the factory registered under "influx", which receives the
// conf map.
package factory
