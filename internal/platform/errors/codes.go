// Package errors provides structured lab errors with localized user messages.
package errors

import (
	"net/http"

	"google.golang.org/grpc/codes"
)

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// Selection errors
	CodeSelectionCapacityExceeded Code = "SELECTION_CAPACITY_EXCEEDED"
	CodeSelectionDuplicate        Code = "SELECTION_DUPLICATE"
	CodeSelectionNotFound         Code = "SELECTION_NOT_FOUND"

	// Catalog errors
	CodeSubstanceNotFound Code = "SUBSTANCE_NOT_FOUND"

	// Experiment option errors
	CodeOptionsInvalidConcentration Code = "OPTIONS_INVALID_CONCENTRATION"

	// Simulation errors
	CodeSimulationInvalidSelectionSize Code = "SIMULATION_INVALID_SELECTION_SIZE"
	CodeSimulationAlreadyInFlight      Code = "SIMULATION_ALREADY_IN_FLIGHT"

	// Session errors
	CodeSessionLimitReached Code = "SESSION_LIMIT_REACHED"

	// Oracle errors
	CodeOracleTransportFailure Code = "ORACLE_TRANSPORT_FAILURE"
	CodeOracleSchemaViolation  Code = "ORACLE_SCHEMA_VIOLATION"
	CodeOracleMalformedPayload Code = "ORACLE_MALFORMED_PAYLOAD"
)

// IsOracleFailure reports whether the code describes a failed oracle call.
func (c Code) IsOracleFailure() bool {
	switch c {
	case CodeOracleTransportFailure, CodeOracleSchemaViolation, CodeOracleMalformedPayload:
		return true
	default:
		return false
	}
}

// GRPCCode maps domain codes to gRPC status codes.
func (c Code) GRPCCode() codes.Code {
	switch c {
	// InvalidArgument - validation failures, bad input
	case CodeSelectionDuplicate,
		CodeOptionsInvalidConcentration:
		return codes.InvalidArgument

	// FailedPrecondition - operation not allowed in the current lab state
	case CodeSelectionCapacityExceeded,
		CodeSimulationInvalidSelectionSize:
		return codes.FailedPrecondition

	// NotFound
	case CodeSelectionNotFound,
		CodeSubstanceNotFound:
		return codes.NotFound

	// Aborted - concurrent submission rejected
	case CodeSimulationAlreadyInFlight:
		return codes.Aborted

	// ResourceExhausted - no room for another lab session
	case CodeSessionLimitReached:
		return codes.ResourceExhausted

	// Unavailable - oracle unreachable
	case CodeOracleTransportFailure:
		return codes.Unavailable

	// Internal - oracle answered with an unusable payload
	case CodeOracleSchemaViolation,
		CodeOracleMalformedPayload:
		return codes.Internal

	default:
		return codes.Unknown
	}
}

// HTTPStatus maps domain codes to HTTP status codes through their gRPC code.
func (c Code) HTTPStatus() int {
	switch c.GRPCCode() {
	case codes.InvalidArgument:
		return http.StatusBadRequest
	case codes.NotFound:
		return http.StatusNotFound
	case codes.FailedPrecondition, codes.Aborted:
		return http.StatusConflict
	case codes.Unavailable:
		return http.StatusBadGateway
	case codes.ResourceExhausted:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
