// Package reaction defines the contract between the lab and the oracle that
// predicts what two substances do when mixed.
package reaction

import "context"

// Oracle answers one simulation request. Implementations return domain
// errors coded ORACLE_TRANSPORT_FAILURE, ORACLE_MALFORMED_PAYLOAD or
// ORACLE_SCHEMA_VIOLATION.
type Oracle interface {
	Simulate(ctx context.Context, req Request) (Result, error)
}

// OracleFunc adapts a function to Oracle.
type OracleFunc func(ctx context.Context, req Request) (Result, error)

// Simulate calls f.
func (f OracleFunc) Simulate(ctx context.Context, req Request) (Result, error) {
	return f(ctx, req)
}
