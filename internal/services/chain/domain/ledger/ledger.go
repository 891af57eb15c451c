// Package ledger defines the primitive types shared by the chain pallets.
package ledger

import (
	"fmt"

	"github.com/holiman/uint256"
)

// AccountID identifies an account by its plain-text name.
type AccountID string

// BlockNumber is the height of a block in the chain.
type BlockNumber uint64

// Nonce counts the extrinsics submitted by an account.
type Nonce uint64

// Content is the raw text covered by a proof-of-existence claim.
type Content string

// Balance is a 256-bit unsigned token amount. It is an alias so the
// arithmetic helpers of uint256.Int stay available, and a plain value so
// pallet maps hold copies instead of shared pointers.
type Balance = uint256.Int

// NewBalance returns a balance holding v.
func NewBalance(v uint64) Balance {
	return *uint256.NewInt(v)
}

// ParseBalance parses a base-10 balance string.
func ParseBalance(s string) (Balance, error) {
	v, err := uint256.FromDecimal(s)
	if err != nil {
		return Balance{}, fmt.Errorf("parse balance %q: %w", s, err)
	}
	return *v, nil
}

// FormatBalance renders a balance as a base-10 string.
func FormatBalance(b Balance) string {
	return b.Dec()
}
