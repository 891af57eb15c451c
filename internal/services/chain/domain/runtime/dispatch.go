package runtime

import (
	apperrors "github.com/louisbranch/cairn/internal/platform/errors"
	"github.com/louisbranch/cairn/internal/services/chain/domain/balances"
	"github.com/louisbranch/cairn/internal/services/chain/domain/ledger"
	"github.com/louisbranch/cairn/internal/services/chain/domain/poe"
)

var (
	// ErrBlockNumberMismatch indicates a block header out of sequence with
	// the chain height.
	ErrBlockNumberMismatch = apperrors.New(apperrors.CodeChainBlockNumberMismatch, "block number does not match chain height")
	// ErrUnknownCall indicates a call the runtime cannot route to a pallet.
	ErrUnknownCall = apperrors.New(apperrors.CodeChainUnknownCall, "call cannot be routed")
)

// Dispatch routes call to its pallet with caller injected as the acting
// account. The outer switch picks the pallet envelope; the pallet switch
// picks the method.
func (r *Runtime) Dispatch(caller ledger.AccountID, call Call) error {
	switch c := call.(type) {
	case BalancesCall:
		return r.dispatchBalances(caller, c.Call)
	case ProofOfExistenceCall:
		return r.dispatchProofOfExistence(caller, c.Call)
	default:
		return unknownCall(callMethod(call))
	}
}

func (r *Runtime) dispatchBalances(caller ledger.AccountID, call balances.Call) error {
	switch c := call.(type) {
	case balances.Transfer:
		return r.balances.Transfer(caller, c.To, c.Amount)
	default:
		return unknownCall("balances")
	}
}

func (r *Runtime) dispatchProofOfExistence(caller ledger.AccountID, call poe.Call) error {
	switch c := call.(type) {
	case poe.CreateClaim:
		return r.poe.CreateClaim(caller, c.Content)
	case poe.RevokeClaim:
		return r.poe.RevokeClaim(caller, c.Content)
	default:
		return unknownCall("proof_of_existence")
	}
}

func unknownCall(method string) error {
	return apperrors.WithMetadata(apperrors.CodeChainUnknownCall,
		"call cannot be routed", map[string]string{"Method": method})
}
