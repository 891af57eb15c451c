package domain

// ChainHeadInput represents the MCP tool input for reading the chain head.
type ChainHeadInput struct{}

// ChainHeadResult represents the MCP tool output for the chain head.
type ChainHeadResult struct {
	Height      uint64 `json:"height" jsonschema:"current chain height"`
	GenesisHash string `json:"genesis_hash" jsonschema:"hex hash of the genesis document"`
}

// AccountGetInput represents the MCP tool input for reading an account.
type AccountGetInput struct {
	ID string `json:"id" jsonschema:"account identifier"`
}

// AccountGetResult represents the MCP tool output for an account.
type AccountGetResult struct {
	ID      string `json:"id" jsonschema:"account identifier"`
	Balance string `json:"balance" jsonschema:"balance as a base-10 string"`
	Nonce   uint64 `json:"nonce" jsonschema:"number of extrinsics processed for the account"`
}

// ClaimGetInput represents the MCP tool input for reading a content claim.
type ClaimGetInput struct {
	Content string `json:"content" jsonschema:"claimed content text"`
}

// ClaimGetResult represents the MCP tool output for a content claim.
type ClaimGetResult struct {
	Content string `json:"content" jsonschema:"claimed content text"`
	Holder  string `json:"holder,omitempty" jsonschema:"account holding the claim, empty when unclaimed"`
	Claimed bool   `json:"claimed" jsonschema:"whether the content is currently claimed"`
}

// BlockSubmitExtrinsic represents one extrinsic in a block submission.
type BlockSubmitExtrinsic struct {
	Caller string         `json:"caller" jsonschema:"account submitting the call"`
	Module string         `json:"module" jsonschema:"target module (balances, proof_of_existence)"`
	Method string         `json:"method" jsonschema:"module method (transfer, create_claim, revoke_claim)"`
	Params map[string]any `json:"params,omitempty" jsonschema:"method parameters"`
}

// BlockSubmitInput represents the MCP tool input for submitting a block.
type BlockSubmitInput struct {
	Height     *uint64                `json:"height,omitempty" jsonschema:"optional pinned block height (defaults to the next height)"`
	Extrinsics []BlockSubmitExtrinsic `json:"extrinsics" jsonschema:"ordered extrinsics to execute"`
}

// BlockSubmitResult represents the MCP tool output for a block submission.
type BlockSubmitResult struct {
	Receipt BlockReceiptEntry `json:"receipt" jsonschema:"execution receipt for the submitted block"`
	Error   *BlockErrorEntry  `json:"error,omitempty" jsonschema:"execution error when the block was rejected"`
}

// BlockErrorEntry represents a chain error surfaced in MCP responses.
type BlockErrorEntry struct {
	Code    string `json:"code" jsonschema:"stable error code"`
	Message string `json:"message" jsonschema:"human-readable error message"`
}

// BlockReceiptEntry represents a journaled block receipt in MCP responses.
type BlockReceiptEntry struct {
	Height         uint64                  `json:"height" jsonschema:"chain height consumed by the block"`
	HeaderNumber   uint64                  `json:"header_number" jsonschema:"block number the submission claimed"`
	Status         string                  `json:"status" jsonschema:"accepted or rejected"`
	ErrorCode      string                  `json:"error_code,omitempty" jsonschema:"rejection error code"`
	ExtrinsicCount int                     `json:"extrinsic_count" jsonschema:"number of extrinsics in the block"`
	FailedCount    int                     `json:"failed_count" jsonschema:"number of extrinsics that failed"`
	SubmittedBy    string                  `json:"submitted_by,omitempty" jsonschema:"producer grant subject that submitted the block"`
	RequestID      string                  `json:"request_id,omitempty" jsonschema:"request correlation identifier"`
	CreatedAt      string                  `json:"created_at" jsonschema:"RFC3339 timestamp when the receipt was journaled"`
	Extrinsics     []ExtrinsicReceiptEntry `json:"extrinsics,omitempty" jsonschema:"per-extrinsic outcomes"`
}

// ExtrinsicReceiptEntry represents a per-extrinsic outcome in MCP responses.
type ExtrinsicReceiptEntry struct {
	Index        int    `json:"index" jsonschema:"position of the extrinsic inside the block"`
	Caller       string `json:"caller" jsonschema:"account that submitted the call"`
	Module       string `json:"module" jsonschema:"target module"`
	Method       string `json:"method" jsonschema:"module method"`
	Status       string `json:"status" jsonschema:"applied or failed"`
	ErrorCode    string `json:"error_code,omitempty" jsonschema:"failure error code"`
	ErrorMessage string `json:"error_message,omitempty" jsonschema:"failure error message"`
}

// ReceiptsListInput represents the MCP tool input for listing block receipts.
type ReceiptsListInput struct {
	AfterHeight uint64 `json:"after_height,omitempty" jsonschema:"list receipts above this height"`
	Limit       int    `json:"limit,omitempty" jsonschema:"maximum number of receipts to return"`
}

// ReceiptsListResult represents the MCP tool output for listing block receipts.
type ReceiptsListResult struct {
	Receipts []BlockReceiptEntry `json:"receipts" jsonschema:"receipts ordered by ascending height"`
}
