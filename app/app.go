package app

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/rollkit/fastlane/aggregator"
	"github.com/rollkit/fastlane/bank"
	"github.com/rollkit/fastlane/merkle"
	"github.com/rollkit/fastlane/pkg/log"
	"github.com/rollkit/fastlane/pkg/store"
	"github.com/rollkit/fastlane/replay"
	"github.com/rollkit/fastlane/rootcache"
	"github.com/rollkit/fastlane/types"
	"github.com/rollkit/fastlane/verifier"
)

// Config holds the parameters of the application.
type Config struct {
	// CacheSize is the number of agreed roots kept per chain.
	CacheSize uint64
	// Quorum is the share of observed weight a root needs to be agreed.
	Quorum aggregator.Quorum
	// BaseDenom is the only denom transfers settle in.
	BaseDenom string
	// Authority may submit votes, roots and slow transfers. Empty means nobody may.
	Authority string
	// ProofScheme is the inclusion proof scheme fast transfers must use.
	ProofScheme merkle.Scheme
	// MaxRootAge rejects fast transfers proven against older roots. Zero disables the check.
	MaxRootAge uint64
	// ModuleAccount holds the liquidity pool payouts are made from.
	ModuleAccount string
}

// App executes messages against the store. Calls are serialized and each
// runs in its own transaction, committed only when the call succeeds.
type App struct {
	mu sync.Mutex

	store      *store.Store
	cfg        Config
	aggregator *aggregator.Aggregator
	// components tag their own loggers, so they get the untagged one
	baseLogger log.Logger
	logger     log.Logger
	metrics    *Metrics
}

// effects are metric updates applied once a call has committed.
type effects struct {
	acceptedRoots []string
	payout        string
	retained      bool
}

// New creates an App over s.
func New(s *store.Store, cfg Config, logger log.Logger, metrics *Metrics) (*App, error) {
	if cfg.BaseDenom == "" {
		return nil, fmt.Errorf("base denom must be set")
	}
	if cfg.ModuleAccount == "" {
		return nil, fmt.Errorf("module account must be set")
	}
	if cfg.ProofScheme == "" {
		cfg.ProofScheme = merkle.SchemeKeccak256
	}
	if !cfg.ProofScheme.Valid() {
		return nil, fmt.Errorf("unsupported proof scheme %q", cfg.ProofScheme)
	}
	if cfg.CacheSize == 0 {
		cfg.CacheSize = rootcache.DefaultCapacity
	}
	if cfg.Quorum == (aggregator.Quorum{}) {
		cfg.Quorum = aggregator.DefaultQuorum
	}
	agg, err := aggregator.New(cfg.Quorum, logger)
	if err != nil {
		return nil, err
	}
	if metrics == nil {
		metrics = NopMetrics()
	}
	return &App{
		store:      s,
		cfg:        cfg,
		aggregator: agg,
		baseLogger: logger,
		logger:     logger.With("component", "app"),
		metrics:    metrics,
	}, nil
}

// InitGenesis credits the genesis balances in a single transaction.
// Later calls on the same store are no-ops.
func (a *App) InitGenesis(ctx context.Context, balances []bank.GenesisBalance) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	txn, err := a.store.NewTransaction(ctx, false)
	if err != nil {
		return err
	}
	defer txn.Discard(ctx)

	applied, err := txn.Has(ctx, store.GenesisKey)
	if err != nil {
		return err
	}
	if applied {
		a.logger.Debug("genesis already applied")
		return nil
	}
	if err := bank.New(txn, a.baseLogger).InitGenesis(ctx, balances); err != nil {
		return err
	}
	if err := txn.Put(ctx, store.GenesisKey, []byte{1}); err != nil {
		return err
	}
	return txn.Commit(ctx)
}

// Execute runs msg on behalf of info.Sender, which the caller has already
// authenticated. Funds attached to the message move from the sender to the
// module account before the handler runs.
func (a *App) Execute(ctx context.Context, info types.MessageInfo, msg types.ExecuteMsg) (*types.Response, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	return a.run(ctx, info, msg, nil)
}

// ExecuteSigned authenticates tx and runs its message on behalf of the
// signer. The signer's sequence advances only when the call commits.
func (a *App) ExecuteSigned(ctx context.Context, tx types.SignedExecute) (*types.Response, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	sender, err := tx.Sender()
	if err != nil {
		a.metrics.Messages.With("msg", "unknown", "result", types.ErrorKind(err)).Add(1)
		a.logger.Info("signed message rejected", "kind", types.ErrorKind(err), "error", err)
		return nil, err
	}
	msg, err := types.DecodeExecuteMsg(tx.Msg)
	if err != nil {
		a.metrics.Messages.With("msg", "unknown", "result", types.ErrorKind(err)).Add(1)
		return nil, err
	}
	info := types.MessageInfo{Sender: sender, Funds: tx.Funds}
	return a.run(ctx, info, msg, func(ctx context.Context, txn store.Txn) error {
		return newSequences(txn).consume(ctx, sender, tx.Sequence)
	})
}

func (a *App) run(ctx context.Context, info types.MessageInfo, msg types.ExecuteMsg, ante func(context.Context, store.Txn) error) (*types.Response, error) {
	name := types.ExecuteMsgName(msg)
	start := time.Now()
	defer func() {
		a.metrics.ExecutionTime.With("msg", name).Observe(time.Since(start).Seconds())
	}()

	var fx effects
	resp, err := a.execute(ctx, info, msg, ante, &fx)
	if err != nil {
		a.metrics.Messages.With("msg", name, "result", types.ErrorKind(err)).Add(1)
		a.logger.Info("message rejected", "msg", name, "sender", info.Sender, "kind", types.ErrorKind(err), "error", err)
		return nil, err
	}
	a.metrics.Messages.With("msg", name, "result", "ok").Add(1)
	a.record(fx)
	return resp, nil
}

func (a *App) record(fx effects) {
	for _, chainID := range fx.acceptedRoots {
		a.metrics.AcceptedRoots.With("chain_id", chainID).Add(1)
	}
	if fx.payout != "" {
		a.metrics.Payouts.With("path", fx.payout).Add(1)
	}
	if fx.retained {
		a.metrics.RetainedTransfers.Add(1)
	}
}

func (a *App) execute(ctx context.Context, info types.MessageInfo, msg types.ExecuteMsg, ante func(context.Context, store.Txn) error, fx *effects) (*types.Response, error) {
	txn, err := a.store.NewTransaction(ctx, false)
	if err != nil {
		return nil, err
	}
	defer txn.Discard(ctx)

	if ante != nil {
		if err := ante(ctx, txn); err != nil {
			return nil, err
		}
	}

	ledger := bank.New(txn, a.baseLogger)
	for _, coin := range info.Funds {
		if err := ledger.Send(ctx, info.Sender, a.cfg.ModuleAccount, []types.Coin{coin}); err != nil {
			return nil, fmt.Errorf("attached funds: %w", err)
		}
	}

	var resp *types.Response
	switch m := msg.(type) {
	case types.SubmitVotes:
		resp, err = a.submitVotes(ctx, txn, info, m, fx)
	case types.SubmitRoot:
		resp, err = a.submitRoot(ctx, txn, info, m, fx)
	case types.FastTransfer:
		resp, err = a.fastTransfer(ctx, txn, m, fx)
	case types.SlowTransfer:
		resp, err = a.slowTransfer(ctx, txn, info, m, fx)
	default:
		err = fmt.Errorf("%w: %T", types.ErrUnknownMessage, msg)
	}
	if err != nil {
		return nil, err
	}

	for _, send := range resp.Messages {
		if err := ledger.Send(ctx, a.cfg.ModuleAccount, send.ToAddress, send.Amount); err != nil {
			return nil, fmt.Errorf("payout to %s: %w", send.ToAddress, err)
		}
	}

	if err := txn.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit: %w", err)
	}
	return resp, nil
}

func (a *App) authorize(info types.MessageInfo, action string) error {
	if a.cfg.Authority == "" || info.Sender != a.cfg.Authority {
		return fmt.Errorf("%w: %s may not %s", types.ErrUnauthorized, info.Sender, action)
	}
	return nil
}

func (a *App) rootCache(kv store.KV) *rootcache.Cache {
	return rootcache.New(kv, a.cfg.CacheSize, a.baseLogger)
}

func (a *App) submitVotes(ctx context.Context, txn store.Txn, info types.MessageInfo, m types.SubmitVotes, fx *effects) (*types.Response, error) {
	if err := a.authorize(info, "submit votes"); err != nil {
		return nil, err
	}
	reports, err := types.DecodeVotes(m.Votes)
	if err != nil {
		return nil, err
	}
	accepted, err := a.aggregator.Apply(ctx, a.rootCache(txn), reports)
	if err != nil {
		return nil, err
	}

	resp := new(types.Response).
		AddAttribute("action", "submit_votes").
		AddAttribute("reports", strconv.Itoa(len(reports)))
	for _, acc := range accepted {
		fx.acceptedRoots = append(fx.acceptedRoots, acc.ChainID)
		resp.AddAttribute("agreed_root", acc.ChainID+":"+acc.Root.String())
	}
	return resp, nil
}

func (a *App) submitRoot(ctx context.Context, txn store.Txn, info types.MessageInfo, m types.SubmitRoot, fx *effects) (*types.Response, error) {
	if err := a.authorize(info, "submit roots"); err != nil {
		return nil, err
	}
	cache := a.rootCache(txn)
	_, err := cache.Lookup(ctx, m.ChainID, m.Root)
	known := err == nil
	if err != nil && !errors.Is(err, types.ErrNotFound) {
		return nil, err
	}
	if err := cache.Write(ctx, m.ChainID, m.Root); err != nil {
		return nil, err
	}
	if !known {
		fx.acceptedRoots = append(fx.acceptedRoots, m.ChainID)
	}
	return new(types.Response).
		AddAttribute("action", "submit_root").
		AddAttribute("chain_id", m.ChainID).
		AddAttribute("root", m.Root.String()).
		AddAttribute("written", strconv.FormatBool(!known)), nil
}

func (a *App) fastTransfer(ctx context.Context, txn store.Txn, m types.FastTransfer, fx *effects) (*types.Response, error) {
	if m.Denom != a.cfg.BaseDenom {
		return nil, fmt.Errorf("%w: %q, expected %q", types.ErrInvalidDenom, m.Denom, a.cfg.BaseDenom)
	}
	if m.Recipient == "" {
		return nil, fmt.Errorf("%w: empty recipient", types.ErrMalformedInput)
	}

	v := verifier.New(a.rootCache(txn), a.baseLogger,
		verifier.WithScheme(a.cfg.ProofScheme),
		verifier.WithMaxRootAge(a.cfg.MaxRootAge))
	age, err := v.Verify(ctx, verifier.Request{
		ChainID:     m.ChainID,
		ClaimedRoot: m.ClaimedRoot,
		Proof:       m.Proof,
		Item:        m.Item,
	})
	if err != nil {
		return nil, err
	}

	resp := new(types.Response).
		AddAttribute("action", "fast_transfer").
		AddAttribute("transfer_id", strconv.FormatUint(m.TransferID, 10)).
		AddAttribute("root_age", strconv.FormatUint(age, 10))

	marked, err := replay.New(txn, a.baseLogger).MarkIfUnprocessed(ctx, m.TransferID)
	if err != nil {
		return nil, err
	}
	if !marked {
		a.logger.Warn("fast transfer already settled", "transfer_id", m.TransferID)
		return resp.AddAttribute("paid", "false"), nil
	}

	fx.payout = "fast"
	return resp.
		AddAttribute("paid", "true").
		AddMessage(types.BankSend{
			ToAddress: m.Recipient,
			Amount:    []types.Coin{{Denom: a.cfg.BaseDenom, Amount: m.Amount}},
		}), nil
}

func (a *App) slowTransfer(ctx context.Context, txn store.Txn, info types.MessageInfo, m types.SlowTransfer, fx *effects) (*types.Response, error) {
	if err := a.authorize(info, "settle slow transfers"); err != nil {
		return nil, err
	}
	if m.Recipient == "" {
		return nil, fmt.Errorf("%w: empty recipient", types.ErrMalformedInput)
	}

	resp := new(types.Response).
		AddAttribute("action", "slow_transfer").
		AddAttribute("transfer_id", strconv.FormatUint(m.TransferID, 10))

	marked, err := replay.New(txn, a.baseLogger).MarkIfUnprocessed(ctx, m.TransferID)
	if err != nil {
		return nil, err
	}
	if !marked {
		// paid by the fast path already, the funds stay in the pool
		fx.retained = true
		a.logger.Info("slow transfer retained", "transfer_id", m.TransferID)
		return resp.AddAttribute("paid", "false"), nil
	}

	fx.payout = "slow"
	return resp.
		AddAttribute("paid", "true").
		AddMessage(types.BankSend{
			ToAddress: m.Recipient,
			Amount:    []types.Coin{{Denom: a.cfg.BaseDenom, Amount: m.Amount}},
		}), nil
}

// Query answers msg from committed state.
func (a *App) Query(ctx context.Context, msg types.QueryMsg) (any, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	name := types.QueryMsgName(msg)
	resp, err := a.query(ctx, msg)
	if err != nil {
		a.metrics.Queries.With("query", name, "result", types.ErrorKind(err)).Add(1)
		return nil, err
	}
	a.metrics.Queries.With("query", name, "result", "ok").Add(1)
	return resp, nil
}

func (a *App) query(ctx context.Context, msg types.QueryMsg) (any, error) {
	txn, err := a.store.NewTransaction(ctx, true)
	if err != nil {
		return nil, err
	}
	defer txn.Discard(ctx)

	switch m := msg.(type) {
	case types.LookupRoot:
		age, err := a.rootCache(txn).Lookup(ctx, m.ChainID, m.Root)
		if err != nil {
			return nil, err
		}
		return types.LookupRootResponse{Age: age}, nil
	case types.Roots:
		h, err := a.rootCache(txn).History(ctx, m.ChainID)
		if err != nil {
			return nil, err
		}
		return types.RootsResponse{ChainID: h.ChainID, Roots: h.Roots, Capacity: h.Capacity}, nil
	case types.IsProcessed:
		processed, err := replay.New(txn, a.baseLogger).IsProcessed(ctx, m.TransferID)
		if err != nil {
			return nil, err
		}
		return types.IsProcessedResponse{Processed: processed}, nil
	case types.Balance:
		denom := m.Denom
		if denom == "" {
			denom = a.cfg.BaseDenom
		}
		coin, err := bank.New(txn, a.baseLogger).Balance(ctx, m.Address, denom)
		if err != nil {
			return nil, err
		}
		return types.BalanceResponse{Coin: coin}, nil
	case types.Account:
		seq, err := newSequences(txn).next(ctx, m.Address)
		if err != nil {
			return nil, err
		}
		return types.AccountResponse{Address: m.Address, Sequence: seq}, nil
	default:
		return nil, fmt.Errorf("%w: %T", types.ErrUnknownMessage, msg)
	}
}
