// Package metrics provides operational metrics collection.
//
// # Metric Categories
//
//   - Oracle calls: count by provider and outcome, latency histogram
//   - Simulations: terminal outcome count (resolved, failed, discarded)
//
// # Integration
//
// A Recorder owns its own Prometheus registry so tests and multiple servers
// in one process never collide. Handler exposes it for scraping.
package metrics
