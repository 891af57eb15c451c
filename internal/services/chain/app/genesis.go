package app

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"

	apperrors "github.com/louisbranch/cairn/internal/platform/errors"
	"github.com/louisbranch/cairn/internal/services/chain/domain/ledger"
	"github.com/louisbranch/cairn/internal/services/chain/domain/runtime"
)

// Genesis is the balance allocation a chain starts from.
type Genesis struct {
	Balances map[ledger.AccountID]ledger.Balance
}

type genesisDocument struct {
	Balances map[string]string `json:"balances"`
}

// ParseGenesis parses a genesis JSON document of the form
// {"balances": {"alice": "100"}}. Amounts are base-10 strings.
func ParseGenesis(raw []byte) (Genesis, error) {
	var doc genesisDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return Genesis{}, apperrors.Wrap(apperrors.CodeGenesisInvalid, "genesis document is not valid JSON", err)
	}

	genesis := Genesis{Balances: make(map[ledger.AccountID]ledger.Balance, len(doc.Balances))}
	for account, amount := range doc.Balances {
		if account == "" {
			return Genesis{}, apperrors.New(apperrors.CodeGenesisInvalid, "genesis account id is empty")
		}
		balance, err := ledger.ParseBalance(amount)
		if err != nil {
			return Genesis{}, apperrors.WrapWithMetadata(apperrors.CodeGenesisInvalid,
				"genesis balance is invalid", map[string]string{"Account": account}, err)
		}
		genesis.Balances[ledger.AccountID(account)] = balance
	}
	return genesis, nil
}

// Apply seeds rt with the genesis balances.
func (g Genesis) Apply(rt *runtime.Runtime) {
	for account, balance := range g.Balances {
		rt.Balances().SetBalance(account, balance)
	}
}

// Hash returns a canonical digest of the allocation. It is computed over
// the sorted account and amount pairs, so formatting or key-order
// differences between two documents do not change it.
func (g Genesis) Hash() string {
	accounts := make([]string, 0, len(g.Balances))
	for account := range g.Balances {
		accounts = append(accounts, string(account))
	}
	sort.Strings(accounts)

	h := sha256.New()
	for _, account := range accounts {
		balance := g.Balances[ledger.AccountID(account)]
		h.Write([]byte(account))
		h.Write([]byte{0})
		h.Write([]byte(ledger.FormatBalance(balance)))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}
