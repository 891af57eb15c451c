// Package errors provides structured error handling with i18n support.
package errors

import "net/http"

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// Balances errors
	CodeBalancesInsufficientFunds Code = "BALANCES_INSUFFICIENT_FUNDS"
	CodeBalancesOverflow          Code = "BALANCES_OVERFLOW"

	// Proof-of-existence errors
	CodePOEAlreadyClaimed Code = "POE_ALREADY_CLAIMED"
	CodePOEClaimNotFound  Code = "POE_CLAIM_NOT_FOUND"
	CodePOENotClaimOwner  Code = "POE_NOT_CLAIM_OWNER"

	// Chain execution errors
	CodeChainBlockNumberMismatch Code = "CHAIN_BLOCK_NUMBER_MISMATCH"
	CodeChainUnknownCall         Code = "CHAIN_UNKNOWN_CALL"

	// Call envelope errors
	CodeCallInvalid Code = "CALL_INVALID"

	// Genesis errors
	CodeGenesisInvalid  Code = "GENESIS_INVALID"
	CodeGenesisMismatch Code = "GENESIS_MISMATCH"

	// Producer grant errors
	CodeGrantInvalid  Code = "GRANT_INVALID"
	CodeGrantExpired  Code = "GRANT_EXPIRED"
	CodeGrantMismatch Code = "GRANT_MISMATCH"

	// Storage errors
	CodeNotFound Code = "NOT_FOUND"
)

// HTTPStatus maps domain codes to HTTP status codes.
func (c Code) HTTPStatus() int {
	switch c {
	// Bad request - malformed input
	case CodeCallInvalid,
		CodeGenesisInvalid:
		return http.StatusBadRequest

	// Unauthorized - grant verification failures
	case CodeGrantInvalid,
		CodeGrantExpired,
		CodeGrantMismatch:
		return http.StatusUnauthorized

	// Forbidden - caller lacks ownership
	case CodePOENotClaimOwner:
		return http.StatusForbidden

	// Not found - resource doesn't exist
	case CodeNotFound,
		CodePOEClaimNotFound:
		return http.StatusNotFound

	// Conflict - unique resource constraint
	case CodePOEAlreadyClaimed:
		return http.StatusConflict

	// Unprocessable - state doesn't allow operation
	case CodeBalancesInsufficientFunds,
		CodeBalancesOverflow,
		CodeChainBlockNumberMismatch,
		CodeChainUnknownCall,
		CodeGenesisMismatch:
		return http.StatusUnprocessableEntity

	default:
		return http.StatusInternalServerError
	}
}
