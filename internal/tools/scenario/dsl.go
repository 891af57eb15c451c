// Package scenario runs Lua-scripted chain scenarios against an
// in-process runtime. Scripts build a Scenario value out of genesis
// allocations, blocks of extrinsics, and expectations over the resulting
// state; the runner executes the steps in order.
package scenario

import (
	"fmt"
	"math"
	"path/filepath"
	"strings"

	"github.com/Shopify/go-lua"
)

const scenarioTypeName = "scenario"

// Scenario is an ordered list of steps produced by a Lua script.
type Scenario struct {
	Name  string
	Steps []Step
}

// Step is one scripted action: a genesis allocation, a block, or an
// expectation.
type Step struct {
	Kind string
	Args map[string]any
}

// LoadScenarioFromFile runs a Lua script and returns the Scenario it
// builds. The script must return the Scenario value.
func LoadScenarioFromFile(path string) (*Scenario, error) {
	state := lua.NewState()
	lua.OpenLibraries(state)

	registerLuaTypes(state)

	if err := lua.LoadFile(state, path, ""); err != nil {
		return nil, fmt.Errorf("load lua: %w", err)
	}
	if err := state.ProtectedCall(0, 1, 0); err != nil {
		return nil, fmt.Errorf("run lua: %w", err)
	}

	if state.TypeOf(-1) != lua.TypeUserData {
		state.Pop(1)
		return nil, fmt.Errorf("scenario script must return Scenario")
	}
	ud := state.ToUserData(-1)
	state.Pop(1)
	scenario, ok := ud.(*Scenario)
	if !ok || scenario == nil {
		return nil, fmt.Errorf("scenario script returned invalid Scenario")
	}
	if strings.TrimSpace(scenario.Name) == "" {
		scenario.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return scenario, nil
}

func registerLuaTypes(state *lua.State) {
	registerScenarioType(state)
	registerScenarioConstructor(state)
	registerCallConstructors(state)
}

func registerScenarioType(state *lua.State) {
	lua.NewMetaTable(state, scenarioTypeName)
	state.NewTable()
	lua.SetFunctions(state, scenarioMethods, 0)
	state.SetField(-2, "__index")
	state.Pop(1)
}

func registerScenarioConstructor(state *lua.State) {
	state.NewTable()
	lua.SetFunctions(state, scenarioConstructor, 0)
	state.SetGlobal("Scenario")
}

// registerCallConstructors installs the bare call helpers scripts use
// inside block tables: transfer, create_claim, revoke_claim.
func registerCallConstructors(state *lua.State) {
	state.Register("transfer", transferCall)
	state.Register("create_claim", createClaimCall)
	state.Register("revoke_claim", revokeClaimCall)
}

var scenarioConstructor = []lua.RegistryFunction{
	{Name: "new", Function: scenarioNew},
}

func scenarioNew(state *lua.State) int {
	name := lua.OptString(state, 1, "")
	scenario := &Scenario{Name: name}
	state.PushUserData(scenario)
	lua.SetMetaTableNamed(state, scenarioTypeName)
	return 1
}

// transferCall builds a balances.transfer call table. The amount may be
// a Lua number or a base-10 string for amounts beyond number precision.
func transferCall(state *lua.State) int {
	caller := lua.CheckString(state, 1)
	to := lua.CheckString(state, 2)
	amount := lua.CheckString(state, 3)
	pushCallTable(state, caller, map[string]string{
		"module": "balances",
		"method": "transfer",
		"to":     to,
		"amount": amount,
	})
	return 1
}

func createClaimCall(state *lua.State) int {
	caller := lua.CheckString(state, 1)
	content := lua.CheckString(state, 2)
	pushCallTable(state, caller, map[string]string{
		"module":  "proof_of_existence",
		"method":  "create_claim",
		"content": content,
	})
	return 1
}

func revokeClaimCall(state *lua.State) int {
	caller := lua.CheckString(state, 1)
	content := lua.CheckString(state, 2)
	pushCallTable(state, caller, map[string]string{
		"module":  "proof_of_existence",
		"method":  "revoke_claim",
		"content": content,
	})
	return 1
}

func pushCallTable(state *lua.State, caller string, fields map[string]string) {
	state.NewTable()
	state.PushString(caller)
	state.SetField(-2, "caller")
	for key, value := range fields {
		state.PushString(value)
		state.SetField(-2, key)
	}
}

var scenarioMethods = []lua.RegistryFunction{
	{Name: "genesis", Function: scenarioGenesis},
	{Name: "block", Function: scenarioBlock},
	{Name: "expect_balance", Function: scenarioExpectBalance},
	{Name: "expect_nonce", Function: scenarioExpectNonce},
	{Name: "expect_holder", Function: scenarioExpectHolder},
	{Name: "expect_height", Function: scenarioExpectHeight},
}

func scenarioGenesis(state *lua.State) int {
	scenario := checkScenario(state)
	lua.CheckType(state, 2, lua.TypeTable)
	balances := tableToMap(state, 2)
	appendStep(scenario, "genesis", map[string]any{"balances": balances})
	return 0
}

// scenarioBlock collects the positional entries of the table as calls and
// the named entries as block options (number pins the header, rejected
// expects the block to be rejected).
func scenarioBlock(state *lua.State) int {
	scenario := checkScenario(state)
	lua.CheckType(state, 2, lua.TypeTable)
	calls, opts := blockTable(state, 2)
	args := map[string]any{"calls": calls}
	for key, value := range opts {
		args[key] = value
	}
	appendStep(scenario, "block", args)
	return 0
}

func scenarioExpectBalance(state *lua.State) int {
	scenario := checkScenario(state)
	account := lua.CheckString(state, 2)
	amount := lua.CheckString(state, 3)
	appendStep(scenario, "expect_balance", map[string]any{
		"account": account,
		"amount":  amount,
	})
	return 0
}

func scenarioExpectNonce(state *lua.State) int {
	scenario := checkScenario(state)
	account := lua.CheckString(state, 2)
	nonce := lua.CheckInteger(state, 3)
	appendStep(scenario, "expect_nonce", map[string]any{
		"account": account,
		"nonce":   nonce,
	})
	return 0
}

// scenarioExpectHolder expects content to be held by the named account.
// Omitting the holder expects the content to be unclaimed.
func scenarioExpectHolder(state *lua.State) int {
	scenario := checkScenario(state)
	content := lua.CheckString(state, 2)
	holder := lua.OptString(state, 3, "")
	appendStep(scenario, "expect_holder", map[string]any{
		"content": content,
		"holder":  holder,
	})
	return 0
}

func scenarioExpectHeight(state *lua.State) int {
	scenario := checkScenario(state)
	height := lua.CheckInteger(state, 2)
	appendStep(scenario, "expect_height", map[string]any{"height": height})
	return 0
}

func checkScenario(state *lua.State) *Scenario {
	ud := lua.CheckUserData(state, 1, scenarioTypeName)
	if scenario, ok := ud.(*Scenario); ok && scenario != nil {
		return scenario
	}
	lua.ArgumentError(state, 1, "scenario expected")
	return nil
}

func appendStep(scenario *Scenario, kind string, data map[string]any) {
	if scenario == nil {
		return
	}
	if data == nil {
		data = map[string]any{}
	}
	scenario.Steps = append(scenario.Steps, Step{Kind: kind, Args: data})
}

// blockTable splits a block table into its positional call entries and
// its named options. tableToMap cannot be used directly because block
// tables mix both key kinds.
func blockTable(state *lua.State, index int) ([]any, map[string]any) {
	opts := map[string]any{}
	index = state.AbsIndex(index)

	maxIndex := 0
	state.PushNil()
	for state.Next(index) {
		switch state.TypeOf(-2) {
		case lua.TypeString:
			key, _ := state.ToString(-2)
			opts[key] = luaToGo(state, -1)
		case lua.TypeNumber:
			if idx, ok := state.ToInteger(-2); ok && idx > maxIndex {
				maxIndex = idx
			}
		}
		state.Pop(1)
	}

	calls := make([]any, 0, maxIndex)
	for i := 1; i <= maxIndex; i++ {
		state.RawGetInt(index, i)
		calls = append(calls, luaToGo(state, -1))
		state.Pop(1)
	}
	return calls, opts
}

func tableToMap(state *lua.State, index int) map[string]any {
	output := map[string]any{}
	if state.TypeOf(index) != lua.TypeTable {
		return output
	}

	index = state.AbsIndex(index)
	state.PushNil()
	for state.Next(index) {
		if state.TypeOf(-2) == lua.TypeString {
			key, _ := state.ToString(-2)
			output[key] = luaToGo(state, -1)
		}
		state.Pop(1)
	}
	return output
}

func luaToGo(state *lua.State, index int) any {
	switch state.TypeOf(index) {
	case lua.TypeString:
		value, _ := state.ToString(index)
		return value
	case lua.TypeNumber:
		value, _ := state.ToNumber(index)
		return normalizeNumber(value)
	case lua.TypeBoolean:
		return state.ToBoolean(index)
	case lua.TypeTable:
		return tableToMap(state, index)
	default:
		return nil
	}
}

func normalizeNumber(value float64) any {
	if math.Mod(value, 1) == 0 {
		return int(value)
	}
	return value
}
