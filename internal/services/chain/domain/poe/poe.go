// Package poe implements the proof-of-existence pallet, a registry of
// content claims owned by accounts.
package poe

import (
	apperrors "github.com/louisbranch/cairn/internal/platform/errors"
	"github.com/louisbranch/cairn/internal/services/chain/domain/ledger"
)

var (
	// ErrAlreadyClaimed indicates the content already has a holder.
	ErrAlreadyClaimed = apperrors.New(apperrors.CodePOEAlreadyClaimed, "content is already claimed")
	// ErrClaimNotFound indicates no claim exists for the content.
	ErrClaimNotFound = apperrors.New(apperrors.CodePOEClaimNotFound, "claim does not exist")
	// ErrNotClaimOwner indicates the caller does not hold the claim.
	ErrNotClaimOwner = apperrors.New(apperrors.CodePOENotClaimOwner, "caller does not hold claim")
)

// Pallet holds content claims keyed by the claimed content itself.
type Pallet struct {
	claims map[ledger.Content]ledger.AccountID
}

// NewPallet returns a proof-of-existence pallet with no claims.
func NewPallet() *Pallet {
	return &Pallet{claims: make(map[ledger.Content]ledger.AccountID)}
}

// ClaimHolder returns the account holding a claim on content.
func (p *Pallet) ClaimHolder(content ledger.Content) (ledger.AccountID, bool) {
	holder, ok := p.claims[content]
	return holder, ok
}

// CreateClaim records caller as the holder of content. Claimed content is
// rejected even when caller already holds it.
func (p *Pallet) CreateClaim(caller ledger.AccountID, content ledger.Content) error {
	if holder, ok := p.claims[content]; ok {
		return apperrors.WithMetadata(apperrors.CodePOEAlreadyClaimed,
			"content is already claimed", map[string]string{
				"Holder": string(holder),
			})
	}
	p.claims[content] = caller
	return nil
}

// RevokeClaim removes the claim on content held by caller.
func (p *Pallet) RevokeClaim(caller ledger.AccountID, content ledger.Content) error {
	holder, ok := p.claims[content]
	if !ok {
		return ErrClaimNotFound
	}
	if holder != caller {
		return apperrors.WithMetadata(apperrors.CodePOENotClaimOwner,
			"caller does not hold claim", map[string]string{
				"Holder": string(holder),
			})
	}
	delete(p.claims, content)
	return nil
}
