// Package telemetry groups operational observability for SmartLab.
//
// # Operational Metrics (telemetry/metrics)
//
// Operational metrics capture oracle latency, oracle outcomes and the
// outcome of every simulation. They are exposed in Prometheus format.
//
// Simulation history itself is not telemetry: it lives in the lab journal,
// which has its own storage and retention.
package telemetry
