// Package system tracks chain-level execution state: the current block
// number and a per-account extrinsic nonce.
package system

import (
	"math"

	"github.com/louisbranch/cairn/internal/services/chain/domain/ledger"
)

// Pallet holds the block height and nonce bookkeeping.
type Pallet struct {
	blockNumber ledger.BlockNumber
	nonces      map[ledger.AccountID]ledger.Nonce
}

// NewPallet returns a system pallet at height zero with no recorded nonces.
func NewPallet() *Pallet {
	return &Pallet{nonces: make(map[ledger.AccountID]ledger.Nonce)}
}

// BlockNumber returns the current chain height.
func (p *Pallet) BlockNumber() ledger.BlockNumber {
	return p.blockNumber
}

// IncBlockNumber advances the chain height by one. It panics if the height
// would wrap around.
func (p *Pallet) IncBlockNumber() {
	if p.blockNumber == math.MaxUint64 {
		panic("system: block number overflow")
	}
	p.blockNumber++
}

// Nonce returns the nonce recorded for id. Accounts that never submitted an
// extrinsic report zero without being added to the pallet.
func (p *Pallet) Nonce(id ledger.AccountID) ledger.Nonce {
	return p.nonces[id]
}

// IncNonce advances the nonce for id. The counter wraps around silently on
// overflow.
func (p *Pallet) IncNonce(id ledger.AccountID) {
	p.nonces[id]++
}
