package runtime

import (
	"github.com/louisbranch/cairn/internal/services/chain/domain/balances"
	"github.com/louisbranch/cairn/internal/services/chain/domain/ledger"
	"github.com/louisbranch/cairn/internal/services/chain/domain/poe"
)

// Header carries the block number a block claims to occupy.
type Header struct {
	BlockNumber ledger.BlockNumber
}

// Extrinsic is one caller-attributed call inside a block.
type Extrinsic struct {
	Caller ledger.AccountID
	Call   Call
}

// Block is a header plus an ordered list of extrinsics.
type Block struct {
	Header     Header
	Extrinsics []Extrinsic
}

// Call is a module-level call envelope routed by the runtime.
type Call interface {
	isCall()
	// Method returns the fully qualified dispatch name.
	Method() string
}

// BalancesCall wraps a balances pallet call.
type BalancesCall struct {
	Call balances.Call
}

func (BalancesCall) isCall() {}

// Method implements Call.
func (c BalancesCall) Method() string {
	if c.Call == nil {
		return "balances"
	}
	return c.Call.Method()
}

// ProofOfExistenceCall wraps a proof-of-existence pallet call.
type ProofOfExistenceCall struct {
	Call poe.Call
}

func (ProofOfExistenceCall) isCall() {}

// Method implements Call.
func (c ProofOfExistenceCall) Method() string {
	if c.Call == nil {
		return "proof_of_existence"
	}
	return c.Call.Method()
}

func callMethod(c Call) string {
	if c == nil {
		return ""
	}
	return c.Method()
}
