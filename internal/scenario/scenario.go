// Package scenario ties a plan, a seed, and a signer set into a generator
// of concrete, ABI-encoded transaction requests. Generation is a pure
// function of (plan, seed, instance index): equal inputs yield byte-equal
// output in any process.
package scenario

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	fnabi "github.com/gateway-fm/txforge/internal/abi"
	"github.com/gateway-fm/txforge/internal/account"
	"github.com/gateway-fm/txforge/internal/fuzz"
	"github.com/gateway-fm/txforge/internal/plan"
	"github.com/gateway-fm/txforge/internal/rpc"
	"github.com/gateway-fm/txforge/internal/storage"
	"github.com/gateway-fm/txforge/internal/template"
)

// Phase identifies one of the plan's three step kinds.
type Phase int

const (
	PhaseCreate Phase = iota
	PhaseSetup
	PhaseSpam
)

// String returns the phase name used in diagnostics and metrics labels.
func (p Phase) String() string {
	switch p {
	case PhaseCreate:
		return "create"
	case PhaseSetup:
		return "setup"
	case PhaseSpam:
		return "spam"
	}
	return "unknown"
}

// NamedTxRequest is a materialized, signable transaction. It is immutable
// once built; Name carries the originating step for diagnostics.
type NamedTxRequest struct {
	Name  string
	Phase Phase
	To    *common.Address // nil for contract deployments
	From  common.Address
	Data  []byte
	Value *big.Int

	// ContractName is set for create-phase requests: the symbolic plan name
	// the deployed address must be registered under.
	ContractName string
}

// OnBuilt is invoked once per generated request before dispatch. Returning
// an error aborts generation of the batch.
type OnBuilt func(*NamedTxRequest) error

// PlanRequest selects a phase to generate transactions for.
type PlanRequest struct {
	phase   Phase
	count   int
	onBuilt OnBuilt
}

// CreateRequest generates the create phase, one request per declaration.
func CreateRequest() PlanRequest {
	return PlanRequest{phase: PhaseCreate}
}

// SetupRequest generates the setup phase, one request per step.
func SetupRequest() PlanRequest {
	return PlanRequest{phase: PhaseSetup}
}

// SpamRequest generates exactly count spam transactions, cycling through the
// plan's spam steps. onBuilt may be nil.
func SpamRequest(count int, onBuilt OnBuilt) PlanRequest {
	return PlanRequest{phase: PhaseSpam, count: count, onBuilt: onBuilt}
}

// Config assembles a Scenario.
type Config struct {
	Plan    *plan.Config
	Seed    fuzz.Seed
	Signers []*account.Account
	DB      storage.Storage
	Client  rpc.Client
	Logger  *slog.Logger
}

// Scenario owns everything one load-test run needs: the resolved plan, the
// seed, the ordered signer set, and handles to storage and the endpoint.
type Scenario struct {
	plan    *plan.Config
	fuzzer  *fuzz.Fuzzer
	signers []*account.Account
	db      storage.Storage
	client  rpc.Client
	logger  *slog.Logger

	mu        sync.RWMutex
	contracts map[string]common.Address
}

// New creates a scenario. At least one signer is required.
func New(cfg Config) (*Scenario, error) {
	if cfg.Plan == nil {
		return nil, errors.New("scenario requires a plan")
	}
	if len(cfg.Signers) == 0 {
		return nil, errors.New("scenario requires at least one signer")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Scenario{
		plan:      cfg.Plan,
		fuzzer:    fuzz.NewFuzzer(cfg.Seed),
		signers:   cfg.Signers,
		db:        cfg.DB,
		client:    cfg.Client,
		logger:    logger,
		contracts: make(map[string]common.Address),
	}, nil
}

// Client returns the network collaborator handle.
func (s *Scenario) Client() rpc.Client {
	return s.client
}

// DB returns the storage collaborator handle.
func (s *Scenario) DB() storage.Storage {
	return s.db
}

// RegisterContract makes a deployed address resolvable by later phases under
// the create step's symbolic name, and records it in storage when present.
func (s *Scenario) RegisterContract(ctx context.Context, name string, addr common.Address, txHash common.Hash) error {
	s.mu.Lock()
	s.contracts[name] = addr
	s.mu.Unlock()

	if s.db != nil {
		if err := s.db.InsertNamedContract(ctx, name, addr.Hex(), txHash.Hex()); err != nil {
			return fmt.Errorf("failed to persist contract %s: %w", name, err)
		}
	}
	s.logger.Info("registered contract",
		slog.String("name", name),
		slog.String("address", addr.Hex()),
	)
	return nil
}

// SignerFor picks the signer for a request deterministically: the signer
// whose address matches the resolved From, else round-robin by index.
func (s *Scenario) SignerFor(req *NamedTxRequest, index int) *account.Account {
	for _, signer := range s.signers {
		if signer.Address == req.From {
			return signer
		}
	}
	return s.signers[index%len(s.signers)]
}

// Signers returns the ordered signer set.
func (s *Scenario) Signers() []*account.Account {
	return s.signers
}

// LoadTxs materializes the requested phase into an ordered sequence of
// signable transaction requests. Spam requests yield exactly count entries.
func (s *Scenario) LoadTxs(ctx context.Context, req PlanRequest) ([]*NamedTxRequest, error) {
	switch req.phase {
	case PhaseCreate:
		return s.loadCreateTxs(ctx, req)
	case PhaseSetup:
		return s.loadSetupTxs(ctx, req)
	case PhaseSpam:
		return s.loadSpamTxs(ctx, req)
	}
	return nil, fmt.Errorf("unknown plan phase %d", req.phase)
}

func (s *Scenario) loadCreateTxs(ctx context.Context, req PlanRequest) ([]*NamedTxRequest, error) {
	steps, err := s.plan.CreateSteps()
	if err != nil {
		return nil, err
	}
	mapping := s.templateMap()

	txs := make([]*NamedTxRequest, 0, len(steps))
	for i, step := range steps {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		tx, err := s.buildCreateTx(step, mapping)
		if err != nil {
			return nil, fmt.Errorf("create step %d (%s): %w", i, step.Name, err)
		}
		if req.onBuilt != nil {
			if err := req.onBuilt(tx); err != nil {
				return nil, fmt.Errorf("create step %d (%s) rejected: %w", i, step.Name, err)
			}
		}
		txs = append(txs, tx)
	}
	return txs, nil
}

func (s *Scenario) loadSetupTxs(ctx context.Context, req PlanRequest) ([]*NamedTxRequest, error) {
	steps, err := s.plan.SetupSteps()
	if err != nil {
		return nil, err
	}
	mapping := s.templateMap()

	txs := make([]*NamedTxRequest, 0, len(steps))
	for i, step := range steps {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		tx, err := s.buildCallTx(PhaseSetup, step, uint64(i), 0, mapping)
		if err != nil {
			return nil, fmt.Errorf("setup step %d: %w", i, err)
		}
		if req.onBuilt != nil {
			if err := req.onBuilt(tx); err != nil {
				return nil, fmt.Errorf("setup step %d rejected: %w", i, err)
			}
		}
		txs = append(txs, tx)
	}
	return txs, nil
}

func (s *Scenario) loadSpamTxs(ctx context.Context, req PlanRequest) ([]*NamedTxRequest, error) {
	steps, err := s.plan.SpamSteps()
	if err != nil {
		return nil, err
	}
	if len(steps) == 0 {
		return nil, plan.ErrNoSpam
	}
	mapping := s.templateMap()

	txs := make([]*NamedTxRequest, 0, req.count)
	for i := 0; i < req.count; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		stepIdx := i % len(steps)
		tx, err := s.buildCallTx(PhaseSpam, steps[stepIdx], uint64(stepIdx), uint64(i), mapping)
		if err != nil {
			return nil, fmt.Errorf("spam instance %d (step %d): %w", i, stepIdx, err)
		}
		if req.onBuilt != nil {
			if err := req.onBuilt(tx); err != nil {
				return nil, fmt.Errorf("spam instance %d rejected: %w", i, err)
			}
		}
		txs = append(txs, tx)
	}
	return txs, nil
}

// templateMap resolves the name->value mapping available to placeholders:
// env vars plus already-deployed contract addresses. A plan without an env
// table simply contributes nothing.
func (s *Scenario) templateMap() map[string]string {
	mapping := make(map[string]string)
	if env, err := s.plan.EnvVars(); err == nil {
		for k, v := range env {
			mapping[k] = v
		}
	}
	s.mu.RLock()
	for name, addr := range s.contracts {
		mapping[name] = template.EncodeAddress(addr)
	}
	s.mu.RUnlock()
	return mapping
}

// buildCallTx materializes one function-call step instance.
func (s *Scenario) buildCallTx(phase Phase, step plan.FunctionCallDefinition, stepIdx, instance uint64, mapping map[string]string) (*NamedTxRequest, error) {
	fn, err := fnabi.ParseSignature(step.Signature)
	if err != nil {
		return nil, err
	}

	fuzzed, err := s.fuzzedArgs(fn, step.Fuzz, stepIdx, instance)
	if err != nil {
		return nil, err
	}

	literals := make([]string, len(fn.Params))
	for pos := range fn.Params {
		if v, ok := fuzzed[pos]; ok {
			literals[pos] = v
			continue
		}
		if pos >= len(step.Args) {
			return nil, fmt.Errorf("missing argument %s for %s", fn.Params[pos].Name, fn.Name)
		}
		literals[pos] = template.ReplacePlaceholders(step.Args[pos], mapping)
	}

	data, err := fn.Encode(literals)
	if err != nil {
		return nil, err
	}

	to, err := resolveAddress("to", step.To, mapping)
	if err != nil {
		return nil, err
	}
	from, err := resolveAddress("from", step.From, mapping)
	if err != nil {
		return nil, err
	}
	value, err := resolveValue(step.Value, mapping)
	if err != nil {
		return nil, err
	}

	return &NamedTxRequest{
		Name:  fmt.Sprintf("%s.%s[%d]", phase, fn.Name, instance),
		Phase: phase,
		To:    &to,
		From:  from,
		Data:  data,
		Value: value,
	}, nil
}

// buildCreateTx materializes one contract deployment.
func (s *Scenario) buildCreateTx(step plan.CreateDefinition, mapping map[string]string) (*NamedTxRequest, error) {
	if step.Name == "" {
		return nil, errors.New("create step has no name")
	}
	bytecode, err := decodeBytecode(step.Bytecode)
	if err != nil {
		return nil, err
	}
	from, err := resolveAddress("from", step.From, mapping)
	if err != nil {
		return nil, err
	}
	return &NamedTxRequest{
		Name:         fmt.Sprintf("create.%s", step.Name),
		Phase:        PhaseCreate,
		From:         from,
		Data:         bytecode,
		Value:        new(big.Int),
		ContractName: step.Name,
	}, nil
}

// fuzzedArgs draws deterministic values for the step's fuzz params, keyed by
// argument position. A fuzz param naming no declared argument is a
// configuration error.
func (s *Scenario) fuzzedArgs(fn *fnabi.Function, params []plan.FuzzParam, stepIdx, instance uint64) (map[int]string, error) {
	if len(params) == 0 {
		return nil, nil
	}
	out := make(map[int]string, len(params))
	for pi, fp := range params {
		pos := fn.ParamIndex(fp.Param)
		if pos < 0 {
			return nil, fmt.Errorf("fuzz param %q does not match any argument of %s", fp.Param, fn.Name)
		}
		min, max, err := fnabi.UnsignedBounds(fn.Params[pos].Type)
		if err != nil {
			return nil, fmt.Errorf("fuzz param %q: %w", fp.Param, err)
		}
		if fp.Min != nil {
			min = fp.Min.Value()
		}
		if fp.Max != nil {
			max = fp.Max.Value()
		}
		v, err := s.fuzzer.UintInRange(stepIdx, instance, uint64(pi), min, max)
		if err != nil {
			return nil, fmt.Errorf("fuzz param %q: %w", fp.Param, err)
		}
		out[pos] = v.Dec()
	}
	return out, nil
}

func resolveAddress(field, raw string, mapping map[string]string) (common.Address, error) {
	resolved := template.ReplacePlaceholders(raw, mapping)
	if !common.IsHexAddress(resolved) {
		return common.Address{}, fmt.Errorf("invalid %s address %q (resolved from %q)", field, resolved, raw)
	}
	return common.HexToAddress(resolved), nil
}

func resolveValue(raw string, mapping map[string]string) (*big.Int, error) {
	if raw == "" {
		return new(big.Int), nil
	}
	resolved := template.ReplacePlaceholders(raw, mapping)
	v, ok := new(big.Int).SetString(resolved, 0)
	if !ok || v.Sign() < 0 {
		return nil, fmt.Errorf("invalid value %q (resolved from %q)", resolved, raw)
	}
	return v, nil
}

func decodeBytecode(raw string) ([]byte, error) {
	s := strings.TrimPrefix(raw, "0x")
	if s == "" {
		return nil, errors.New("create step has empty bytecode")
	}
	b := common.FromHex(raw)
	if len(b)*2 != len(s) {
		return nil, fmt.Errorf("invalid bytecode hex (%d chars)", len(s))
	}
	return b, nil
}
