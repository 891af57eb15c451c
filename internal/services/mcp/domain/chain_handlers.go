package domain

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/louisbranch/cairn/internal/platform/timeouts"
	"github.com/louisbranch/cairn/internal/services/chain/api"
	"github.com/louisbranch/cairn/internal/services/chain/client"
	"github.com/louisbranch/cairn/internal/services/chain/codec"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// nodeCallTimeout caps a single chain node request made on behalf of an
// MCP tool call.
const nodeCallTimeout = timeouts.HTTPRequest

// ChainHeadTool defines the MCP tool schema for reading the chain head.
func ChainHeadTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "chain_head",
		Description: "Reads the current chain height and genesis hash",
	}
}

// ChainHeadHandler executes a chain head request.
func ChainHeadHandler(node *client.Client) mcp.ToolHandlerFor[ChainHeadInput, ChainHeadResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, _ ChainHeadInput) (*mcp.CallToolResult, ChainHeadResult, error) {
		callCtx, cancel := context.WithTimeout(ctx, nodeCallTimeout)
		defer cancel()

		head, err := node.Head(callCtx)
		if err != nil {
			return nil, ChainHeadResult{}, fmt.Errorf("chain head failed: %w", err)
		}
		return nil, ChainHeadResult{
			Height:      head.Height,
			GenesisHash: head.GenesisHash,
		}, nil
	}
}

// AccountGetTool defines the MCP tool schema for reading an account.
func AccountGetTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "account_get",
		Description: "Reads the balance and nonce of an account",
	}
}

// AccountGetHandler executes an account read request.
func AccountGetHandler(node *client.Client) mcp.ToolHandlerFor[AccountGetInput, AccountGetResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input AccountGetInput) (*mcp.CallToolResult, AccountGetResult, error) {
		id := strings.TrimSpace(input.ID)
		if id == "" {
			return nil, AccountGetResult{}, fmt.Errorf("account id is required")
		}

		callCtx, cancel := context.WithTimeout(ctx, nodeCallTimeout)
		defer cancel()

		account, err := node.Account(callCtx, id)
		if err != nil {
			return nil, AccountGetResult{}, fmt.Errorf("account get failed: %w", err)
		}
		return nil, AccountGetResult{
			ID:      account.ID,
			Balance: account.Balance,
			Nonce:   account.Nonce,
		}, nil
	}
}

// ClaimGetTool defines the MCP tool schema for reading a content claim.
func ClaimGetTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "claim_get",
		Description: "Reads the current holder of a content claim",
	}
}

// ClaimGetHandler executes a claim read request.
func ClaimGetHandler(node *client.Client) mcp.ToolHandlerFor[ClaimGetInput, ClaimGetResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input ClaimGetInput) (*mcp.CallToolResult, ClaimGetResult, error) {
		if input.Content == "" {
			return nil, ClaimGetResult{}, fmt.Errorf("claim content is required")
		}

		callCtx, cancel := context.WithTimeout(ctx, nodeCallTimeout)
		defer cancel()

		claim, err := node.Claim(callCtx, input.Content)
		if err != nil {
			return nil, ClaimGetResult{}, fmt.Errorf("claim get failed: %w", err)
		}
		return nil, ClaimGetResult{
			Content: claim.Content,
			Holder:  claim.Holder,
			Claimed: claim.Claimed,
		}, nil
	}
}

// BlockSubmitTool defines the MCP tool schema for submitting a block.
func BlockSubmitTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "block_submit",
		Description: "Submits a block of extrinsics for execution and returns its receipt",
	}
}

// BlockSubmitHandler executes a block submission. A block the chain
// rejects still yields a receipt; only transport and validation failures
// surface as tool errors.
func BlockSubmitHandler(node *client.Client) mcp.ToolHandlerFor[BlockSubmitInput, BlockSubmitResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input BlockSubmitInput) (*mcp.CallToolResult, BlockSubmitResult, error) {
		request := api.SubmitBlockRequest{Height: input.Height}
		for i, ext := range input.Extrinsics {
			if strings.TrimSpace(ext.Caller) == "" {
				return nil, BlockSubmitResult{}, fmt.Errorf("extrinsic %d: caller is required", i)
			}
			if ext.Module == "" || ext.Method == "" {
				return nil, BlockSubmitResult{}, fmt.Errorf("extrinsic %d: module and method are required", i)
			}
			envelope := codec.CallEnvelope{Module: ext.Module, Method: ext.Method}
			if len(ext.Params) > 0 {
				params, err := json.Marshal(ext.Params)
				if err != nil {
					return nil, BlockSubmitResult{}, fmt.Errorf("extrinsic %d: encode params: %w", i, err)
				}
				envelope.Params = params
			}
			request.Extrinsics = append(request.Extrinsics, api.SubmitExtrinsic{
				Caller: ext.Caller,
				Call:   envelope,
			})
		}

		callCtx, cancel := context.WithTimeout(ctx, nodeCallTimeout)
		defer cancel()

		response, err := node.SubmitBlock(callCtx, request)
		if err != nil && response.Receipt.Status == "" {
			return nil, BlockSubmitResult{}, fmt.Errorf("block submit failed: %w", err)
		}

		result := BlockSubmitResult{Receipt: receiptEntryFromAPI(response.Receipt)}
		if response.Error != nil {
			result.Error = &BlockErrorEntry{Code: response.Error.Code, Message: response.Error.Message}
		}
		return nil, result, nil
	}
}

// ReceiptsListTool defines the MCP tool schema for listing block receipts.
func ReceiptsListTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "receipts_list",
		Description: "Lists journaled block receipts by ascending height",
	}
}

// ReceiptsListHandler executes a receipt listing request.
func ReceiptsListHandler(node *client.Client) mcp.ToolHandlerFor[ReceiptsListInput, ReceiptsListResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input ReceiptsListInput) (*mcp.CallToolResult, ReceiptsListResult, error) {
		if input.Limit < 0 {
			return nil, ReceiptsListResult{}, fmt.Errorf("limit must not be negative")
		}

		callCtx, cancel := context.WithTimeout(ctx, nodeCallTimeout)
		defer cancel()

		receipts, err := node.Blocks(callCtx, input.AfterHeight, input.Limit)
		if err != nil {
			return nil, ReceiptsListResult{}, fmt.Errorf("receipts list failed: %w", err)
		}

		result := ReceiptsListResult{Receipts: make([]BlockReceiptEntry, 0, len(receipts))}
		for _, receipt := range receipts {
			result.Receipts = append(result.Receipts, receiptEntryFromAPI(receipt))
		}
		return nil, result, nil
	}
}

func receiptEntryFromAPI(receipt api.BlockReceipt) BlockReceiptEntry {
	entry := BlockReceiptEntry{
		Height:         receipt.Height,
		HeaderNumber:   receipt.HeaderNumber,
		Status:         receipt.Status,
		ErrorCode:      receipt.ErrorCode,
		ExtrinsicCount: receipt.ExtrinsicCount,
		FailedCount:    receipt.FailedCount,
		SubmittedBy:    receipt.SubmittedBy,
		RequestID:      receipt.RequestID,
		CreatedAt:      formatTimestamp(receipt.CreatedAt),
	}
	for _, ext := range receipt.Extrinsics {
		entry.Extrinsics = append(entry.Extrinsics, ExtrinsicReceiptEntry{
			Index:        ext.Index,
			Caller:       ext.Caller,
			Module:       ext.Module,
			Method:       ext.Method,
			Status:       ext.Status,
			ErrorCode:    ext.ErrorCode,
			ErrorMessage: ext.ErrorMessage,
		})
	}
	return entry
}

// formatTimestamp renders a timestamp as RFC3339, or empty when unset.
func formatTimestamp(ts time.Time) string {
	if ts.IsZero() {
		return ""
	}
	return ts.Format(time.RFC3339)
}
