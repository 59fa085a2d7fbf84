package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/multierr"

	"github.com/rollkit/fastlane/merkle"
	"github.com/rollkit/fastlane/types"
)

const (
	// Base configuration flags

	// FlagRootDir is a flag for specifying the root directory
	FlagRootDir = "home"
	// FlagDBPath is a flag for specifying the database path
	FlagDBPath = "fastlane.db_path"

	// Light client configuration flags

	// FlagCacheSize is a flag for specifying how many agreed roots are kept per chain
	FlagCacheSize = "fastlane.light_client.cache_size"
	// FlagQuorumNumerator is a flag for specifying the numerator of the vote quorum
	FlagQuorumNumerator = "fastlane.light_client.quorum_numerator"
	// FlagQuorumDenominator is a flag for specifying the denominator of the vote quorum
	FlagQuorumDenominator = "fastlane.light_client.quorum_denominator"

	// Fast transfer configuration flags

	// FlagBaseDenom is a flag for specifying the denom transfers settle in
	FlagBaseDenom = "fastlane.fast_transfer.base_denom"
	// FlagAuthority is a flag for specifying the address allowed to submit votes, roots and slow transfers
	FlagAuthority = "fastlane.fast_transfer.authority"
	// FlagProofScheme is a flag for specifying the inclusion proof scheme
	FlagProofScheme = "fastlane.fast_transfer.proof_scheme"
	// FlagMaxRootAge is a flag for specifying the oldest root a fast transfer may be proven against
	FlagMaxRootAge = "fastlane.fast_transfer.max_root_age"

	// Bank configuration flags

	// FlagModuleAccount is a flag for specifying the account holding the liquidity pool
	FlagModuleAccount = "fastlane.bank.module_account"

	// RPC configuration flags

	// FlagRPCAddress is a flag for specifying the RPC server address
	FlagRPCAddress = "fastlane.rpc.address"
	// FlagRPCMaxOpenConnections is a flag for limiting simultaneous RPC connections
	FlagRPCMaxOpenConnections = "fastlane.rpc.max_open_connections"
	// FlagRPCCORSAllowedOrigins is a flag for specifying the origins allowed by CORS
	FlagRPCCORSAllowedOrigins = "fastlane.rpc.cors_allowed_origins"

	// Instrumentation configuration flags

	// FlagPrometheus is a flag for enabling Prometheus metrics
	FlagPrometheus = "fastlane.instrumentation.prometheus"
	// FlagPrometheusListenAddr is a flag for specifying the Prometheus listen address
	FlagPrometheusListenAddr = "fastlane.instrumentation.prometheus_listen_addr"
	// FlagMaxOpenConnections is a flag for specifying the maximum number of open connections
	FlagMaxOpenConnections = "fastlane.instrumentation.max_open_connections"

	// Signer flags

	// FlagSignerPassphrase is a flag for specifying the passphrase of the signing key
	FlagSignerPassphrase = "fastlane.signer.passphrase"

	// Logging configuration flags

	// FlagLogLevel is a flag for specifying the log level
	FlagLogLevel = "fastlane.log.level"
	// FlagLogFormat is a flag for specifying the log format
	FlagLogFormat = "fastlane.log.format"
	// FlagLogTrace is a flag for enabling stack traces in error logs
	FlagLogTrace = "fastlane.log.trace"
)

const flagPrefix = "fastlane."

// Config stores fastlane configuration.
type Config struct {
	// Base configuration
	RootDir string `mapstructure:"-" yaml:"-" comment:"Root directory where fastlane files are located"`
	DBPath  string `mapstructure:"db_path" yaml:"db_path" comment:"Path inside the root directory where the database is located"`

	// Vote aggregation and root cache configuration
	LightClient LightClientConfig `mapstructure:"light_client" yaml:"light_client"`

	// Fast transfer settlement configuration
	FastTransfer FastTransferConfig `mapstructure:"fast_transfer" yaml:"fast_transfer"`

	// Bank configuration
	Bank BankConfig `mapstructure:"bank" yaml:"bank"`

	// RPC configuration
	RPC RPCConfig `mapstructure:"rpc" yaml:"rpc"`

	// Instrumentation configuration
	Instrumentation InstrumentationConfig `mapstructure:"instrumentation" yaml:"instrumentation"`

	// Logging configuration
	Log LogConfig `mapstructure:"log" yaml:"log"`
}

// LightClientConfig contains the vote aggregation parameters
type LightClientConfig struct {
	CacheSize         uint64 `mapstructure:"cache_size" yaml:"cache_size" comment:"Number of agreed roots kept per chain. Older roots are evicted first."`
	QuorumNumerator   uint64 `mapstructure:"quorum_numerator" yaml:"quorum_numerator" comment:"Numerator of the share of observed weight a root needs to be agreed."`
	QuorumDenominator uint64 `mapstructure:"quorum_denominator" yaml:"quorum_denominator" comment:"Denominator of the share of observed weight a root needs to be agreed."`
}

// FastTransferConfig contains the settlement parameters
type FastTransferConfig struct {
	BaseDenom   string `mapstructure:"base_denom" yaml:"base_denom" comment:"Denom every transfer settles in."`
	Authority   string `mapstructure:"authority" yaml:"authority" comment:"Address allowed to submit votes, roots and slow transfers. Empty disables those messages."`
	ProofScheme string `mapstructure:"proof_scheme" yaml:"proof_scheme" comment:"Inclusion proof scheme (keccak256, rfc6962)."`
	MaxRootAge  uint64 `mapstructure:"max_root_age" yaml:"max_root_age" comment:"Reject fast transfers proven against roots older than this age (1 = newest). Use 0 to accept any cached root."`
}

// BankConfig contains the ledger parameters
type BankConfig struct {
	ModuleAccount   string           `mapstructure:"module_account" yaml:"module_account" comment:"Account holding the liquidity pool payouts are made from."`
	GenesisBalances []GenesisBalance `mapstructure:"genesis_balances" yaml:"genesis_balances" comment:"Balances credited when the database is first created."`
}

// GenesisBalance is an initial account balance
type GenesisBalance struct {
	Address string `mapstructure:"address" yaml:"address"`
	Denom   string `mapstructure:"denom" yaml:"denom"`
	Amount  string `mapstructure:"amount" yaml:"amount"`
}

// RPCConfig contains all RPC server configuration parameters
type RPCConfig struct {
	Address            string   `mapstructure:"address" yaml:"address" comment:"Address to bind the RPC server to (host:port). Empty disables the server."`
	MaxOpenConnections int      `mapstructure:"max_open_connections" yaml:"max_open_connections" comment:"Maximum number of simultaneous RPC connections. Use 0 for no limit."`
	CORSAllowedOrigins []string `mapstructure:"cors_allowed_origins" yaml:"cors_allowed_origins" comment:"Origins allowed to make cross-origin requests. Empty disables CORS."`
}

// IsCorsEnabled returns true if cross-origin requests are allowed.
func (cfg RPCConfig) IsCorsEnabled() bool {
	return len(cfg.CORSAllowedOrigins) != 0
}

// LogConfig contains all logging configuration parameters
type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level" comment:"Log level (debug, info, warn, error)"`
	Format string `mapstructure:"format" yaml:"format" comment:"Log format (text, json)"`
	Trace  bool   `mapstructure:"trace" yaml:"trace" comment:"Enable stack traces in error logs"`
}

// AddGlobalFlags registers the basic configuration flags that are common across commands
// This includes logging configuration and root directory settings
func AddGlobalFlags(cmd *cobra.Command, appName string) {
	cmd.PersistentFlags().String(FlagLogLevel, DefaultConfig.Log.Level, "Set the log level (debug, info, warn, error)")
	cmd.PersistentFlags().String(FlagLogFormat, DefaultConfig.Log.Format, "Set the log format (text, json)")
	cmd.PersistentFlags().Bool(FlagLogTrace, DefaultConfig.Log.Trace, "Enable stack traces in error logs")
	cmd.PersistentFlags().String(FlagRootDir, DefaultRootDirWithName(appName), "Root directory for application data")
}

// AddFlags adds fastlane specific configuration options to cobra Command.
func AddFlags(cmd *cobra.Command) {
	def := DefaultConfig

	cmd.Flags().String(FlagDBPath, def.DBPath, "path for the database")

	// Light client configuration flags
	cmd.Flags().Uint64(FlagCacheSize, def.LightClient.CacheSize, "number of agreed roots kept per chain")
	cmd.Flags().Uint64(FlagQuorumNumerator, def.LightClient.QuorumNumerator, "numerator of the vote quorum")
	cmd.Flags().Uint64(FlagQuorumDenominator, def.LightClient.QuorumDenominator, "denominator of the vote quorum")

	// Fast transfer configuration flags
	cmd.Flags().String(FlagBaseDenom, def.FastTransfer.BaseDenom, "denom transfers settle in")
	cmd.Flags().String(FlagAuthority, def.FastTransfer.Authority, "address allowed to submit votes, roots and slow transfers")
	cmd.Flags().String(FlagProofScheme, def.FastTransfer.ProofScheme, "inclusion proof scheme (keccak256, rfc6962)")
	cmd.Flags().Uint64(FlagMaxRootAge, def.FastTransfer.MaxRootAge, "oldest root age accepted for fast transfers (0 for no limit)")

	// Bank configuration flags
	cmd.Flags().String(FlagModuleAccount, def.Bank.ModuleAccount, "account holding the liquidity pool")

	// RPC configuration flags
	cmd.Flags().String(FlagRPCAddress, def.RPC.Address, "RPC server address (host:port)")
	cmd.Flags().Int(FlagRPCMaxOpenConnections, def.RPC.MaxOpenConnections, "maximum number of simultaneous RPC connections")
	cmd.Flags().StringSlice(FlagRPCCORSAllowedOrigins, def.RPC.CORSAllowedOrigins, "origins allowed to make cross-origin requests")

	// Instrumentation configuration flags
	instrDef := DefaultInstrumentationConfig()
	cmd.Flags().Bool(FlagPrometheus, instrDef.Prometheus, "enable Prometheus metrics")
	cmd.Flags().String(FlagPrometheusListenAddr, instrDef.PrometheusListenAddr, "Prometheus metrics listen address")
	cmd.Flags().Int(FlagMaxOpenConnections, instrDef.MaxOpenConnections, "maximum number of simultaneous connections for metrics")
}

// Load loads the configuration in the following order of precedence:
// 1. DefaultConfig (lowest priority)
// 2. YAML configuration file in the root directory
// 3. Command line flags (highest priority)
func Load(cmd *cobra.Command) (Config, error) {
	home, _ := cmd.Flags().GetString(FlagRootDir)
	if home == "" {
		home = DefaultRootDir()
	}

	v := viper.New()
	v.SetConfigName(ConfigBaseName)
	v.SetConfigType(ConfigExtension)
	v.AddConfigPath(home)

	if err := v.ReadInConfig(); err != nil {
		var configFileNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFound) {
			return Config{}, fmt.Errorf("error reading YAML configuration: %w", err)
		}
	}

	var flagErrs error
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		flagName := strings.TrimPrefix(f.Name, flagPrefix)
		if flagName == FlagRootDir {
			return
		}
		multierr.AppendInto(&flagErrs, v.BindPFlag(flagName, f))
	})
	if flagErrs != nil {
		return Config{}, fmt.Errorf("unable to bind flags: %w", flagErrs)
	}

	// unset keys keep their default values
	config := DefaultConfig
	config.RPC.CORSAllowedOrigins = append([]string(nil), DefaultConfig.RPC.CORSAllowedOrigins...)
	config.Bank.GenesisBalances = append([]GenesisBalance(nil), DefaultConfig.Bank.GenesisBalances...)
	if err := v.Unmarshal(&config, decoderConfig); err != nil {
		return Config{}, fmt.Errorf("unable to decode configuration: %w", err)
	}
	config.RootDir = home

	return config, nil
}

func decoderConfig(c *mapstructure.DecoderConfig) {
	c.TagName = "mapstructure"
	c.DecodeHook = mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToSliceHookFunc(","),
	)
}

// Validate checks the configuration, reporting every problem found.
func (c Config) Validate() error {
	var errs error
	if c.LightClient.CacheSize == 0 {
		errs = multierr.Append(errs, errors.New("light_client.cache_size must be positive"))
	}
	if c.LightClient.QuorumNumerator == 0 || c.LightClient.QuorumDenominator == 0 ||
		c.LightClient.QuorumNumerator > c.LightClient.QuorumDenominator {
		errs = multierr.Append(errs, fmt.Errorf("light_client quorum %d/%d must satisfy 0 < numerator <= denominator",
			c.LightClient.QuorumNumerator, c.LightClient.QuorumDenominator))
	}
	if c.FastTransfer.BaseDenom == "" {
		errs = multierr.Append(errs, errors.New("fast_transfer.base_denom must be set"))
	}
	if !merkle.Scheme(c.FastTransfer.ProofScheme).Valid() {
		errs = multierr.Append(errs, fmt.Errorf("fast_transfer.proof_scheme %q is not supported", c.FastTransfer.ProofScheme))
	}
	if c.Bank.ModuleAccount == "" {
		errs = multierr.Append(errs, errors.New("bank.module_account must be set"))
	}
	for i, b := range c.Bank.GenesisBalances {
		if b.Address == "" || b.Denom == "" {
			errs = multierr.Append(errs, fmt.Errorf("bank.genesis_balances[%d] needs an address and a denom", i))
		}
		if _, err := types.ParseAmount(b.Amount); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("bank.genesis_balances[%d]: %w", i, err))
		}
	}
	if c.RPC.MaxOpenConnections < 0 {
		errs = multierr.Append(errs, errors.New("rpc.max_open_connections can't be negative"))
	}
	switch c.Log.Format {
	case "", "text", "json":
	default:
		errs = multierr.Append(errs, fmt.Errorf("log.format %q must be text or json", c.Log.Format))
	}
	return multierr.Append(errs, c.Instrumentation.ValidateBasic())
}
