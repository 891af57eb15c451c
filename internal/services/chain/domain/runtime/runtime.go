// Package runtime wires the chain pallets together and drives block
// execution.
package runtime

import (
	"strconv"

	apperrors "github.com/louisbranch/cairn/internal/platform/errors"
	"github.com/louisbranch/cairn/internal/services/chain/domain/balances"
	"github.com/louisbranch/cairn/internal/services/chain/domain/poe"
	"github.com/louisbranch/cairn/internal/services/chain/domain/system"
)

// Runtime owns the pallet state and applies blocks to it. It is not safe
// for concurrent use; callers serialize access.
type Runtime struct {
	system    *system.Pallet
	balances  *balances.Pallet
	poe       *poe.Pallet
	observers Observers
}

// Option configures a Runtime.
type Option func(*Runtime)

// WithObserver registers an observer notified after each extrinsic.
func WithObserver(obs Observer) Option {
	return func(r *Runtime) {
		r.observers = append(r.observers, obs)
	}
}

// New returns a runtime with empty pallet state at height zero.
func New(opts ...Option) *Runtime {
	r := &Runtime{
		system:   system.NewPallet(),
		balances: balances.NewPallet(),
		poe:      poe.NewPallet(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// System returns the system pallet.
func (r *Runtime) System() *system.Pallet { return r.system }

// Balances returns the balances pallet.
func (r *Runtime) Balances() *balances.Pallet { return r.balances }

// ProofOfExistence returns the proof-of-existence pallet.
func (r *Runtime) ProofOfExistence() *poe.Pallet { return r.poe }

// ExecuteBlock applies block to the runtime state.
//
// The chain height is advanced before the header is checked, so a rejected
// block still consumes its height. A header out of sequence rejects the
// whole block before any extrinsic runs. Each extrinsic burns the caller
// nonce before dispatch; dispatch failures are reported to observers and
// execution continues with the next extrinsic. Every state change made
// along the way survives, including those of failed blocks and extrinsics.
func (r *Runtime) ExecuteBlock(block Block) error {
	r.system.IncBlockNumber()

	if got, want := block.Header.BlockNumber, r.system.BlockNumber(); got != want {
		return apperrors.WithMetadata(apperrors.CodeChainBlockNumberMismatch,
			"block number does not match chain height", map[string]string{
				"Got":  strconv.FormatUint(uint64(got), 10),
				"Want": strconv.FormatUint(uint64(want), 10),
			})
	}

	for i, ext := range block.Extrinsics {
		r.system.IncNonce(ext.Caller)
		err := r.Dispatch(ext.Caller, ext.Call)
		r.observers.ExtrinsicApplied(Report{
			Block:  r.system.BlockNumber(),
			Index:  i,
			Caller: ext.Caller,
			Method: callMethod(ext.Call),
			Err:    err,
		})
	}
	return nil
}
