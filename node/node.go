package node

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	ds "github.com/ipfs/go-datastore"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/multierr"
	"golang.org/x/net/netutil"

	"github.com/rollkit/fastlane/app"
	"github.com/rollkit/fastlane/pkg/config"
	"github.com/rollkit/fastlane/pkg/log"
	"github.com/rollkit/fastlane/pkg/service"
	"github.com/rollkit/fastlane/pkg/store"
	"github.com/rollkit/fastlane/rpc"
)

const readHeaderTimeout = 10 * time.Second

// Node wires the application to its store, RPC server and metrics endpoint.
type Node struct {
	*service.BaseService

	App   *app.App
	Store *store.Store

	config    config.Config
	rpcServer *rpc.Server
}

// NewNode opens the application over db and applies the configured genesis
// balances if the store has not seen them yet.
func NewNode(
	ctx context.Context,
	cfg config.Config,
	db ds.Batching,
	metricsProvider MetricsProvider,
	logger log.Logger,
) (*Node, error) {
	if metricsProvider == nil {
		metricsProvider = DefaultMetricsProvider(cfg.Instrumentation)
	}

	st := store.New(db)
	application, err := app.New(st, AppConfig(cfg), logger.With("module", "app"), metricsProvider())
	if err != nil {
		return nil, fmt.Errorf("failed to create application: %w", err)
	}

	balances, err := GenesisBalances(cfg.Bank.GenesisBalances)
	if err != nil {
		return nil, err
	}
	if err := application.InitGenesis(ctx, balances); err != nil {
		return nil, fmt.Errorf("failed to apply genesis: %w", err)
	}

	rpcServer, err := rpc.NewServer(application, cfg.RPC, logger.With("module", "rpc"))
	if err != nil {
		return nil, fmt.Errorf("failed to create RPC server: %w", err)
	}

	n := &Node{
		App:       application,
		Store:     st,
		config:    cfg,
		rpcServer: rpcServer,
	}
	n.BaseService = service.NewBaseService(logger, "Node", n)
	return n, nil
}

// Run serves RPC and metrics until ctx is canceled or one of them fails.
func (n *Node) Run(parentCtx context.Context) error {
	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs error
	)
	run := func(name string, fn func(context.Context) error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := fn(ctx); err != nil && !errors.Is(err, context.Canceled) {
				mu.Lock()
				errs = multierr.Append(errs, fmt.Errorf("%s: %w", name, err))
				mu.Unlock()
				cancel()
			}
		}()
	}

	run("rpc", n.rpcServer.BaseService.Run)
	if n.config.Instrumentation.IsPrometheusEnabled() {
		run("prometheus", n.servePrometheus)
	}

	<-ctx.Done()
	n.Logger.Info("halting node")
	wg.Wait()
	return errs
}

func (n *Node) servePrometheus(ctx context.Context) error {
	cfg := n.config.Instrumentation
	listener, err := net.Listen("tcp", cfg.PrometheusListenAddr)
	if err != nil {
		return err
	}
	if cfg.MaxOpenConnections > 0 {
		listener = netutil.LimitListener(listener, cfg.MaxOpenConnections)
	}

	srv := &http.Server{
		Handler: promhttp.InstrumentMetricHandler(
			prometheus.DefaultRegisterer, promhttp.HandlerFor(
				prometheus.DefaultGatherer,
				promhttp.HandlerOpts{MaxRequestsInFlight: cfg.MaxOpenConnections},
			),
		),
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		n.Logger.Info("serving prometheus metrics", "listen address", listener.Addr())
		errCh <- srv.Serve(listener)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
