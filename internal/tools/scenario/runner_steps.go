package scenario

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/louisbranch/cairn/internal/services/chain/codec"
	"github.com/louisbranch/cairn/internal/services/chain/domain/ledger"
	"github.com/louisbranch/cairn/internal/services/chain/domain/runtime"
)

func (r *Runner) runStep(step Step) error {
	switch step.Kind {
	case "genesis":
		return r.runGenesisStep(step)
	case "block":
		return r.runBlockStep(step)
	case "expect_balance":
		return r.runExpectBalanceStep(step)
	case "expect_nonce":
		return r.runExpectNonceStep(step)
	case "expect_holder":
		return r.runExpectHolderStep(step)
	case "expect_height":
		return r.runExpectHeightStep(step)
	default:
		return r.failf("unknown step kind %q", step.Kind)
	}
}

// runGenesisStep seeds account balances. Genesis must precede the first
// block so every script starts from a well-defined allocation.
func (r *Runner) runGenesisStep(step Step) error {
	if !r.genesisOK {
		return r.failf("genesis must precede the first block")
	}
	allocation, ok := step.Args["balances"].(map[string]any)
	if !ok {
		return r.failf("genesis balances are required")
	}
	for account, raw := range allocation {
		amount, err := balanceValue(raw)
		if err != nil {
			return r.failf("genesis balance for %q: %v", account, err)
		}
		r.rt.Balances().SetBalance(ledger.AccountID(account), amount)
	}
	return nil
}

// runBlockStep executes the scripted calls as one block. The header
// number defaults to the next height; `number` pins it and `rejected`
// expects the whole block to be rejected.
func (r *Runner) runBlockStep(step Step) error {
	r.genesisOK = false

	calls, ok := step.Args["calls"].([]any)
	if !ok {
		return r.failf("block calls are required")
	}
	extrinsics := make([]runtime.Extrinsic, 0, len(calls))
	for i, raw := range calls {
		ext, err := extrinsicFromCall(raw)
		if err != nil {
			return r.failf("block call %d: %v", i+1, err)
		}
		extrinsics = append(extrinsics, ext)
	}

	header := r.rt.System().BlockNumber() + 1
	if number, ok := readInt(step.Args, "number"); ok {
		if number < 0 {
			return r.failf("block number must not be negative")
		}
		header = ledger.BlockNumber(number)
	}

	err := r.rt.ExecuteBlock(runtime.Block{
		Header:     runtime.Header{BlockNumber: header},
		Extrinsics: extrinsics,
	})
	if optionalBool(step.Args, "rejected", false) {
		if err == nil {
			return r.assertf("block %d: expected rejection", header)
		}
		r.logf("block %d rejected as expected: %v", header, err)
		return nil
	}
	if err != nil {
		return r.failf("execute block %d: %v", header, err)
	}
	return nil
}

func (r *Runner) runExpectBalanceStep(step Step) error {
	account := requiredString(step.Args, "account")
	if account == "" {
		return r.failf("expect_balance account is required")
	}
	want, err := balanceValue(step.Args["amount"])
	if err != nil {
		return r.failf("expect_balance amount: %v", err)
	}
	got := r.rt.Balances().Balance(ledger.AccountID(account))
	if got != want {
		return r.assertf("balance of %s = %s, want %s",
			account, ledger.FormatBalance(got), ledger.FormatBalance(want))
	}
	return nil
}

func (r *Runner) runExpectNonceStep(step Step) error {
	account := requiredString(step.Args, "account")
	if account == "" {
		return r.failf("expect_nonce account is required")
	}
	want, ok := readInt(step.Args, "nonce")
	if !ok || want < 0 {
		return r.failf("expect_nonce nonce is required")
	}
	if got := r.rt.System().Nonce(ledger.AccountID(account)); got != ledger.Nonce(want) {
		return r.assertf("nonce of %s = %d, want %d", account, got, want)
	}
	return nil
}

// runExpectHolderStep checks the holder of a claim. An empty holder
// expects the content to be unclaimed.
func (r *Runner) runExpectHolderStep(step Step) error {
	content := requiredString(step.Args, "content")
	if content == "" {
		return r.failf("expect_holder content is required")
	}
	want := optionalString(step.Args, "holder", "")

	holder, claimed := r.rt.ProofOfExistence().ClaimHolder(ledger.Content(content))
	if want == "" {
		if claimed {
			return r.assertf("claim on %q held by %s, want unclaimed", content, holder)
		}
		return nil
	}
	if !claimed {
		return r.assertf("claim on %q is unclaimed, want holder %s", content, want)
	}
	if holder != ledger.AccountID(want) {
		return r.assertf("claim on %q held by %s, want %s", content, holder, want)
	}
	return nil
}

func (r *Runner) runExpectHeightStep(step Step) error {
	want, ok := readInt(step.Args, "height")
	if !ok || want < 0 {
		return r.failf("expect_height height is required")
	}
	if got := r.rt.System().BlockNumber(); got != ledger.BlockNumber(want) {
		return r.assertf("height = %d, want %d", got, want)
	}
	return nil
}

// extrinsicFromCall converts a scripted call table into a typed
// extrinsic. Calls travel through the wire codec so scripts exercise
// the same decoding path as API submissions.
func extrinsicFromCall(raw any) (runtime.Extrinsic, error) {
	call, ok := raw.(map[string]any)
	if !ok {
		return runtime.Extrinsic{}, errors.New("call must be a table")
	}
	caller := requiredString(call, "caller")
	if caller == "" {
		return runtime.Extrinsic{}, errors.New("caller is required")
	}
	module := requiredString(call, "module")
	method := requiredString(call, "method")
	if module == "" || method == "" {
		return runtime.Extrinsic{}, errors.New("module and method are required")
	}

	params := make(map[string]string)
	for key, value := range call {
		switch key {
		case "caller", "module", "method":
			continue
		}
		text, ok := value.(string)
		if !ok {
			return runtime.Extrinsic{}, fmt.Errorf("param %q must be a string", key)
		}
		params[key] = text
	}
	rawParams, err := json.Marshal(params)
	if err != nil {
		return runtime.Extrinsic{}, fmt.Errorf("encode params: %w", err)
	}

	typed, err := codec.Decode(codec.CallEnvelope{Module: module, Method: method, Params: rawParams})
	if err != nil {
		return runtime.Extrinsic{}, err
	}
	return runtime.Extrinsic{Caller: ledger.AccountID(caller), Call: typed}, nil
}

// balanceValue parses a scripted balance, which is a Lua number or a
// base-10 string for amounts beyond number precision.
func balanceValue(raw any) (ledger.Balance, error) {
	switch typed := raw.(type) {
	case string:
		return ledger.ParseBalance(typed)
	case int:
		if typed < 0 {
			return ledger.Balance{}, errors.New("balance must not be negative")
		}
		return ledger.NewBalance(uint64(typed)), nil
	default:
		return ledger.Balance{}, fmt.Errorf("balance must be a string or number, got %T", raw)
	}
}

func requiredString(args map[string]any, key string) string {
	value, ok := args[key]
	if !ok {
		return ""
	}
	text, ok := value.(string)
	if ok && text != "" {
		return text
	}
	return ""
}

func optionalString(args map[string]any, key, fallback string) string {
	value, ok := args[key]
	if !ok {
		return fallback
	}
	text, ok := value.(string)
	if ok && text != "" {
		return text
	}
	return fallback
}

func readInt(args map[string]any, key string) (int, bool) {
	value, ok := args[key]
	if !ok {
		return 0, false
	}
	switch typed := value.(type) {
	case int:
		return typed, true
	case float64:
		return int(typed), true
	default:
		return 0, false
	}
}

func optionalBool(args map[string]any, key string, fallback bool) bool {
	value, ok := args[key]
	if !ok {
		return fallback
	}
	typed, ok := value.(bool)
	if !ok {
		return fallback
	}
	return typed
}
