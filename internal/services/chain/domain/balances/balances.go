// Package balances implements the token ledger pallet.
package balances

import (
	apperrors "github.com/louisbranch/cairn/internal/platform/errors"
	"github.com/louisbranch/cairn/internal/services/chain/domain/ledger"
)

var (
	// ErrInsufficientFunds indicates the caller balance cannot cover a transfer.
	ErrInsufficientFunds = apperrors.New(apperrors.CodeBalancesInsufficientFunds, "caller balance cannot cover transfer")
	// ErrBalanceOverflow indicates a transfer would overflow the recipient balance.
	ErrBalanceOverflow = apperrors.New(apperrors.CodeBalancesOverflow, "transfer overflows recipient balance")
)

// Pallet holds token balances keyed by account.
type Pallet struct {
	balances map[ledger.AccountID]ledger.Balance
}

// NewPallet returns a balances pallet with no funded accounts.
func NewPallet() *Pallet {
	return &Pallet{balances: make(map[ledger.AccountID]ledger.Balance)}
}

// SetBalance overwrites the balance for id.
func (p *Pallet) SetBalance(id ledger.AccountID, amount ledger.Balance) {
	p.balances[id] = amount
}

// Balance returns the balance for id. Accounts that were never funded
// report zero without being added to the pallet.
func (p *Pallet) Balance(id ledger.AccountID) ledger.Balance {
	return p.balances[id]
}

// Transfer moves amount from caller to to.
//
// Both post-transfer balances are computed from the pre-transfer state
// before either is written, and the recipient write lands last. A transfer
// to the caller itself therefore leaves the caller holding its pre-transfer
// balance plus amount.
func (p *Pallet) Transfer(caller, to ledger.AccountID, amount ledger.Balance) error {
	callerBalance := p.balances[caller]
	toBalance := p.balances[to]

	var newCaller ledger.Balance
	if _, underflow := newCaller.SubOverflow(&callerBalance, &amount); underflow {
		return apperrors.WithMetadata(apperrors.CodeBalancesInsufficientFunds,
			"caller balance cannot cover transfer", map[string]string{
				"Caller": string(caller),
				"Amount": ledger.FormatBalance(amount),
			})
	}

	var newTo ledger.Balance
	if _, overflow := newTo.AddOverflow(&toBalance, &amount); overflow {
		return apperrors.WithMetadata(apperrors.CodeBalancesOverflow,
			"transfer overflows recipient balance", map[string]string{
				"To":     string(to),
				"Amount": ledger.FormatBalance(amount),
			})
	}

	p.balances[caller] = newCaller
	p.balances[to] = newTo
	return nil
}
