// Package codec translates between wire call envelopes and typed runtime
// calls. The wire form names a module, a method, and a JSON params object;
// the typed form is what the runtime dispatches.
package codec

import (
	"encoding/json"

	apperrors "github.com/louisbranch/cairn/internal/platform/errors"
	"github.com/louisbranch/cairn/internal/services/chain/domain/balances"
	"github.com/louisbranch/cairn/internal/services/chain/domain/ledger"
	"github.com/louisbranch/cairn/internal/services/chain/domain/poe"
	"github.com/louisbranch/cairn/internal/services/chain/domain/runtime"
)

// Module names on the wire.
const (
	ModuleBalances         = "balances"
	ModuleProofOfExistence = "proof_of_existence"
)

// Method names on the wire.
const (
	MethodTransfer    = "transfer"
	MethodCreateClaim = "create_claim"
	MethodRevokeClaim = "revoke_claim"
)

// CallEnvelope is the JSON form of a runtime call.
type CallEnvelope struct {
	Module string          `json:"module"`
	Method string          `json:"method"`
	Params json.RawMessage `json:"params,omitempty"`
}

type transferParams struct {
	To     string `json:"to"`
	Amount string `json:"amount"`
}

type claimParams struct {
	Content string `json:"content"`
}

// Encode renders a typed runtime call as a wire envelope. Balance amounts
// are rendered as base-10 strings.
func Encode(call runtime.Call) (CallEnvelope, error) {
	switch c := call.(type) {
	case runtime.BalancesCall:
		return encodeBalances(c.Call)
	case runtime.ProofOfExistenceCall:
		return encodeProofOfExistence(c.Call)
	default:
		return CallEnvelope{}, apperrors.New(apperrors.CodeCallInvalid, "call has no wire form")
	}
}

func encodeBalances(call balances.Call) (CallEnvelope, error) {
	switch c := call.(type) {
	case balances.Transfer:
		return newEnvelope(ModuleBalances, MethodTransfer, transferParams{
			To:     string(c.To),
			Amount: ledger.FormatBalance(c.Amount),
		})
	default:
		return CallEnvelope{}, apperrors.New(apperrors.CodeCallInvalid, "balances call has no wire form")
	}
}

func encodeProofOfExistence(call poe.Call) (CallEnvelope, error) {
	switch c := call.(type) {
	case poe.CreateClaim:
		return newEnvelope(ModuleProofOfExistence, MethodCreateClaim, claimParams{Content: string(c.Content)})
	case poe.RevokeClaim:
		return newEnvelope(ModuleProofOfExistence, MethodRevokeClaim, claimParams{Content: string(c.Content)})
	default:
		return CallEnvelope{}, apperrors.New(apperrors.CodeCallInvalid, "proof-of-existence call has no wire form")
	}
}

func newEnvelope(module, method string, params any) (CallEnvelope, error) {
	raw, err := json.Marshal(params)
	if err != nil {
		return CallEnvelope{}, apperrors.Wrap(apperrors.CodeCallInvalid, "encode call params", err)
	}
	return CallEnvelope{Module: module, Method: method, Params: raw}, nil
}

// Decode parses a wire envelope into a typed runtime call.
func Decode(env CallEnvelope) (runtime.Call, error) {
	switch env.Module {
	case ModuleBalances:
		return decodeBalances(env)
	case ModuleProofOfExistence:
		return decodeProofOfExistence(env)
	default:
		return nil, apperrors.WithMetadata(apperrors.CodeCallInvalid,
			"unknown call module", map[string]string{"Module": env.Module})
	}
}

func decodeBalances(env CallEnvelope) (runtime.Call, error) {
	switch env.Method {
	case MethodTransfer:
		var params transferParams
		if err := unmarshalParams(env.Params, &params); err != nil {
			return nil, err
		}
		if params.To == "" {
			return nil, apperrors.New(apperrors.CodeCallInvalid, "transfer requires a recipient")
		}
		amount, err := ledger.ParseBalance(params.Amount)
		if err != nil {
			return nil, apperrors.Wrap(apperrors.CodeCallInvalid, "transfer amount is not a valid balance", err)
		}
		return runtime.BalancesCall{Call: balances.Transfer{
			To:     ledger.AccountID(params.To),
			Amount: amount,
		}}, nil
	default:
		return nil, unknownMethod(env)
	}
}

func decodeProofOfExistence(env CallEnvelope) (runtime.Call, error) {
	var params claimParams
	if err := unmarshalParams(env.Params, &params); err != nil {
		return nil, err
	}
	if params.Content == "" {
		return nil, apperrors.New(apperrors.CodeCallInvalid, "claim requires content")
	}

	switch env.Method {
	case MethodCreateClaim:
		return runtime.ProofOfExistenceCall{Call: poe.CreateClaim{Content: ledger.Content(params.Content)}}, nil
	case MethodRevokeClaim:
		return runtime.ProofOfExistenceCall{Call: poe.RevokeClaim{Content: ledger.Content(params.Content)}}, nil
	default:
		return nil, unknownMethod(env)
	}
}

func unmarshalParams(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		return apperrors.New(apperrors.CodeCallInvalid, "call params are required")
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return apperrors.Wrap(apperrors.CodeCallInvalid, "call params are not valid JSON", err)
	}
	return nil
}

func unknownMethod(env CallEnvelope) error {
	return apperrors.WithMetadata(apperrors.CodeCallInvalid,
		"unknown call method", map[string]string{
			"Module": env.Module,
			"Method": env.Method,
		})
}
