package balances

import "github.com/louisbranch/cairn/internal/services/chain/domain/ledger"

// Call is a dispatchable balances operation.
type Call interface {
	isCall()
	// Method returns the fully qualified dispatch name.
	Method() string
}

// Transfer moves tokens from the calling account to To.
type Transfer struct {
	To     ledger.AccountID
	Amount ledger.Balance
}

func (Transfer) isCall() {}

// Method implements Call.
func (Transfer) Method() string { return "balances.transfer" }
