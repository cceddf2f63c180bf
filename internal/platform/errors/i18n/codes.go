package i18n

// Codes lists every error code the lab surfaces to users. They must match
// internal/platform/errors/codes.go; the catalog test checks each has copy.
var Codes = []Code{
	"UNKNOWN",
	"SELECTION_CAPACITY_EXCEEDED",
	"SELECTION_DUPLICATE",
	"SELECTION_NOT_FOUND",
	"SUBSTANCE_NOT_FOUND",
	"OPTIONS_INVALID_CONCENTRATION",
	"SIMULATION_INVALID_SELECTION_SIZE",
	"SIMULATION_ALREADY_IN_FLIGHT",
	"SESSION_LIMIT_REACHED",
	"ORACLE_TRANSPORT_FAILURE",
	"ORACLE_SCHEMA_VIOLATION",
	"ORACLE_MALFORMED_PAYLOAD",
}
