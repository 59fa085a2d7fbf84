package node

import (
	"fmt"

	"github.com/rollkit/fastlane/aggregator"
	"github.com/rollkit/fastlane/app"
	"github.com/rollkit/fastlane/bank"
	"github.com/rollkit/fastlane/merkle"
	"github.com/rollkit/fastlane/pkg/config"
	"github.com/rollkit/fastlane/types"
)

// MetricsProvider returns the application Metrics.
type MetricsProvider func() *app.Metrics

// DefaultMetricsProvider returns Metrics build using Prometheus client library
// if Prometheus is enabled. Otherwise, it returns no-op Metrics.
func DefaultMetricsProvider(cfg config.InstrumentationConfig) MetricsProvider {
	return func() *app.Metrics {
		if cfg.Prometheus {
			return app.PrometheusMetrics(cfg.Namespace)
		}
		return app.NopMetrics()
	}
}

// AppConfig maps the node configuration onto the application parameters.
func AppConfig(cfg config.Config) app.Config {
	return app.Config{
		CacheSize: cfg.LightClient.CacheSize,
		Quorum: aggregator.Quorum{
			Numerator:   cfg.LightClient.QuorumNumerator,
			Denominator: cfg.LightClient.QuorumDenominator,
		},
		BaseDenom:     cfg.FastTransfer.BaseDenom,
		Authority:     cfg.FastTransfer.Authority,
		ProofScheme:   merkle.Scheme(cfg.FastTransfer.ProofScheme),
		MaxRootAge:    cfg.FastTransfer.MaxRootAge,
		ModuleAccount: cfg.Bank.ModuleAccount,
	}
}

// GenesisBalances parses the configured genesis balances.
func GenesisBalances(balances []config.GenesisBalance) ([]bank.GenesisBalance, error) {
	out := make([]bank.GenesisBalance, 0, len(balances))
	for i, b := range balances {
		amount, err := types.ParseAmount(b.Amount)
		if err != nil {
			return nil, fmt.Errorf("genesis balance %d: %w", i, err)
		}
		out = append(out, bank.GenesisBalance{
			Address: b.Address,
			Coin:    types.Coin{Denom: b.Denom, Amount: amount},
		})
	}
	return out, nil
}
