package poe

import "github.com/louisbranch/cairn/internal/services/chain/domain/ledger"

// Call is a dispatchable proof-of-existence operation.
type Call interface {
	isCall()
	// Method returns the fully qualified dispatch name.
	Method() string
}

// CreateClaim claims Content for the calling account.
type CreateClaim struct {
	Content ledger.Content
}

func (CreateClaim) isCall() {}

// Method implements Call.
func (CreateClaim) Method() string { return "proof_of_existence.create_claim" }

// RevokeClaim releases the claim the calling account holds on Content.
type RevokeClaim struct {
	Content ledger.Content
}

func (RevokeClaim) isCall() {}

// Method implements Call.
func (RevokeClaim) Method() string { return "proof_of_existence.revoke_claim" }
