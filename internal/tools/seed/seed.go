// Package seed submits demo blocks to a running chain node. Fixtures
// fund their accounts through self-transfer minting, so seeding works
// against any genesis at any chain height.
package seed

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/louisbranch/cairn/internal/services/chain/api"
	"github.com/louisbranch/cairn/internal/services/chain/client"
	"github.com/louisbranch/cairn/internal/services/chain/codec"
	"github.com/louisbranch/cairn/internal/services/chain/domain/balances"
	"github.com/louisbranch/cairn/internal/services/chain/domain/ledger"
	"github.com/louisbranch/cairn/internal/services/chain/domain/poe"
	"github.com/louisbranch/cairn/internal/services/chain/domain/runtime"
	"github.com/louisbranch/cairn/internal/services/chain/storage"
)

// Config holds seed settings.
type Config struct {
	NodeURL  string
	Grant    string
	Scenario string
	Verbose  bool
}

// DefaultConfig returns default seed configuration.
func DefaultConfig() Config {
	return Config{NodeURL: "http://localhost:8080"}
}

// blockSubmitter is the slice of the node client the runner uses.
type blockSubmitter interface {
	Head(ctx context.Context) (api.HeadResponse, error)
	SubmitBlock(ctx context.Context, submission api.SubmitBlockRequest) (api.SubmitBlockResponse, error)
}

// Runner submits seed fixtures to one node.
type Runner struct {
	cfg  Config
	node blockSubmitter
	out  io.Writer
}

// NewRunner builds a runner and its node client from cfg.
func NewRunner(cfg Config) (*Runner, error) {
	var opts []client.Option
	if cfg.Grant != "" {
		opts = append(opts, client.WithProducerGrant(cfg.Grant))
	}
	node, err := client.New(cfg.NodeURL, opts...)
	if err != nil {
		return nil, err
	}
	return newRunnerWithClient(cfg, node), nil
}

func newRunnerWithClient(cfg Config, node blockSubmitter) *Runner {
	return &Runner{cfg: cfg, node: node, out: os.Stdout}
}

// Run submits the selected fixtures in order. An empty Scenario selects
// all of them.
func Run(ctx context.Context, cfg Config) error {
	runner, err := NewRunner(cfg)
	if err != nil {
		return err
	}
	return runner.Run(ctx)
}

// ListScenarios returns the fixture names in submission order.
func ListScenarios() []string {
	names := make([]string, 0, len(fixtures))
	for _, f := range fixtures {
		names = append(names, f.name)
	}
	return names
}

// Run submits the configured fixtures.
func (r *Runner) Run(ctx context.Context) error {
	selected, err := selectFixtures(r.cfg.Scenario)
	if err != nil {
		return err
	}

	head, err := r.node.Head(ctx)
	if err != nil {
		return fmt.Errorf("fetch chain head: %w", err)
	}
	r.logf("seeding node at height %d", head.Height)

	for _, f := range selected {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := r.submitFixture(ctx, f); err != nil {
			return fmt.Errorf("fixture %s: %w", f.name, err)
		}
	}
	return nil
}

func (r *Runner) submitFixture(ctx context.Context, f fixture) error {
	extrinsics, err := f.build()
	if err != nil {
		return err
	}

	resp, err := r.node.SubmitBlock(ctx, api.SubmitBlockRequest{Extrinsics: extrinsics})
	if err != nil {
		return err
	}

	receipt := resp.Receipt
	fmt.Fprintf(r.out, "%-10s block %d: %s (%d extrinsics, %d failed)\n",
		f.name, receipt.Height, receipt.Status, receipt.ExtrinsicCount, receipt.FailedCount)
	for _, ext := range receipt.Extrinsics {
		if ext.Status == storage.ExtrinsicStatusApplied {
			r.logf("  [%d] %s %s.%s applied", ext.Index, ext.Caller, ext.Module, ext.Method)
			continue
		}
		r.logf("  [%d] %s %s.%s failed: %s", ext.Index, ext.Caller, ext.Module, ext.Method, ext.ErrorCode)
	}
	return nil
}

func (r *Runner) logf(format string, args ...any) {
	if r == nil || !r.cfg.Verbose {
		return
	}
	log.Printf(format, args...)
}

// fixture is one named demo block.
type fixture struct {
	name  string
	build func() ([]api.SubmitExtrinsic, error)
}

// fixtures run in order: funding first, then the blocks that spend it.
var fixtures = []fixture{
	{name: "fund", build: fundExtrinsics},
	{name: "transfers", build: transferExtrinsics},
	{name: "claims", build: claimExtrinsics},
}

func selectFixtures(name string) ([]fixture, error) {
	if name == "" {
		return fixtures, nil
	}
	for _, f := range fixtures {
		if f.name == name {
			return []fixture{f}, nil
		}
	}
	return nil, fmt.Errorf("unknown scenario %q (available: %v)", name, ListScenarios())
}

// fundExtrinsics mints working balances. A self-transfer credits before
// it debits, so each call grows its own account by the amount.
func fundExtrinsics() ([]api.SubmitExtrinsic, error) {
	return buildExtrinsics(
		extrinsic("alice", runtime.BalancesCall{Call: balances.Transfer{To: "alice", Amount: ledger.NewBalance(1000)}}),
		extrinsic("bob", runtime.BalancesCall{Call: balances.Transfer{To: "bob", Amount: ledger.NewBalance(250)}}),
	)
}

func transferExtrinsics() ([]api.SubmitExtrinsic, error) {
	return buildExtrinsics(
		extrinsic("alice", runtime.BalancesCall{Call: balances.Transfer{To: "bob", Amount: ledger.NewBalance(75)}}),
		extrinsic("alice", runtime.BalancesCall{Call: balances.Transfer{To: "charlie", Amount: ledger.NewBalance(50)}}),
		extrinsic("bob", runtime.BalancesCall{Call: balances.Transfer{To: "dana", Amount: ledger.NewBalance(25)}}),
	)
}

// claimExtrinsics stages a contested claim: bob's first attempt fails
// while alice holds it, then succeeds after she revokes.
func claimExtrinsics() ([]api.SubmitExtrinsic, error) {
	return buildExtrinsics(
		extrinsic("alice", runtime.ProofOfExistenceCall{Call: poe.CreateClaim{Content: "cairn-field-note-001"}}),
		extrinsic("bob", runtime.ProofOfExistenceCall{Call: poe.CreateClaim{Content: "cairn-field-note-001"}}),
		extrinsic("alice", runtime.ProofOfExistenceCall{Call: poe.RevokeClaim{Content: "cairn-field-note-001"}}),
		extrinsic("bob", runtime.ProofOfExistenceCall{Call: poe.CreateClaim{Content: "cairn-field-note-001"}}),
		extrinsic("charlie", runtime.ProofOfExistenceCall{Call: poe.CreateClaim{Content: "cairn-survey-042"}}),
	)
}

type seedExtrinsic struct {
	caller string
	call   runtime.Call
}

func extrinsic(caller string, call runtime.Call) seedExtrinsic {
	return seedExtrinsic{caller: caller, call: call}
}

func buildExtrinsics(items ...seedExtrinsic) ([]api.SubmitExtrinsic, error) {
	out := make([]api.SubmitExtrinsic, 0, len(items))
	for _, item := range items {
		env, err := codec.Encode(item.call)
		if err != nil {
			return nil, err
		}
		out = append(out, api.SubmitExtrinsic{Caller: item.caller, Call: env})
	}
	return out, nil
}
