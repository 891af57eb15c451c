package i18n

// Error codes must match the codes defined in internal/platform/errors/codes.go.
// These are duplicated as strings to avoid an import cycle.
const (
	CodeUnknown                   = "UNKNOWN"
	CodeBalancesInsufficientFunds = "BALANCES_INSUFFICIENT_FUNDS"
	CodeBalancesOverflow          = "BALANCES_OVERFLOW"
	CodePOEAlreadyClaimed         = "POE_ALREADY_CLAIMED"
	CodePOEClaimNotFound          = "POE_CLAIM_NOT_FOUND"
	CodePOENotClaimOwner          = "POE_NOT_CLAIM_OWNER"
	CodeChainBlockNumberMismatch  = "CHAIN_BLOCK_NUMBER_MISMATCH"
	CodeChainUnknownCall          = "CHAIN_UNKNOWN_CALL"
	CodeCallInvalid               = "CALL_INVALID"
	CodeGenesisInvalid            = "GENESIS_INVALID"
	CodeGenesisMismatch           = "GENESIS_MISMATCH"
	CodeGrantInvalid              = "GRANT_INVALID"
	CodeGrantExpired              = "GRANT_EXPIRED"
	CodeGrantMismatch             = "GRANT_MISMATCH"
	CodeNotFound                  = "NOT_FOUND"
)

// enUSCatalog is the compiled-in fallback when no embedded catalog is usable.
// The embedded locales/en-US/errors.yaml remains the canonical source.
var enUSCatalog = &Catalog{
	locale: "en-US",
	messages: map[Code]string{
		CodeUnknown: "An unexpected error occurred",

		// Balances errors
		CodeBalancesInsufficientFunds: "Insufficient funds to complete the transfer",
		CodeBalancesOverflow:          "Transfer would overflow the recipient balance",

		// Proof-of-existence errors
		CodePOEAlreadyClaimed: "Content is already claimed",
		CodePOEClaimNotFound:  "No claim exists for this content",
		CodePOENotClaimOwner:  "Only the claim holder can revoke this claim",

		// Chain execution errors
		CodeChainBlockNumberMismatch: "Block number {{.Got}} does not match expected {{.Want}}",
		CodeChainUnknownCall:         "The call cannot be routed to any module",

		// Envelope and genesis errors
		CodeCallInvalid:     "The call payload is invalid",
		CodeGenesisInvalid:  "The genesis document is invalid",
		CodeGenesisMismatch: "The genesis document does not match the journal",

		// Producer grant errors
		CodeGrantInvalid:  "Producer grant is invalid",
		CodeGrantExpired:  "Producer grant has expired",
		CodeGrantMismatch: "Producer grant {{.Field}} does not match",

		// Storage errors
		CodeNotFound: "The requested resource was not found",
	},
}
