// Package timeouts defines shared timeout constants used across the lab
// services so HTTP, gRPC, and oracle boundaries agree on their budgets.
package timeouts

import "time"

// ReadHeader limits how long an HTTP server waits for request headers.
const ReadHeader = 5 * time.Second

// Shutdown limits how long a server waits for in-flight requests during
// graceful shutdown.
const Shutdown = 5 * time.Second

// OracleRequest is the default budget for one reaction oracle call. The
// orchestrator treats expiry as a transport failure.
const OracleRequest = 45 * time.Second

// JournalWrite caps a best-effort simulation journal insert.
const JournalWrite = 2 * time.Second

// SessionSweep is the interval between idle lab session sweeps.
const SessionSweep = time.Minute
