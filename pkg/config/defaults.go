package config

import (
	"os"
	"path/filepath"
)

const (
	// DefaultDirPerm is the default permissions used when creating directories.
	DefaultDirPerm = 0750

	// DefaultDataDir is the default directory for data files (e.g. database).
	DefaultDataDir = "data"

	// DefaultLogLevel is the default log level for the application
	DefaultLogLevel = "info"

	// DefaultCacheSize is the default number of agreed roots kept per chain.
	DefaultCacheSize = 6

	// DefaultBaseDenom is the default settlement denom.
	DefaultBaseDenom = "uusdc"

	// DefaultModuleAccount is the default liquidity pool account.
	DefaultModuleAccount = "fastlane-pool"

	// DefaultRPCAddress is the default RPC listen address.
	DefaultRPCAddress = "127.0.0.1:7331"
)

// DefaultRootDir returns the default root directory for fastlane
func DefaultRootDir() string {
	return DefaultRootDirWithName("fastlane")
}

// DefaultRootDirWithName returns the default root directory for an application,
// based on the app name and the user's home directory
func DefaultRootDirWithName(appName string) string {
	if appName == "" {
		appName = "fastlane"
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, "."+appName)
}

// DefaultConfig keeps default values of Config
var DefaultConfig = Config{
	RootDir: DefaultRootDir(),
	DBPath:  DefaultDataDir,
	LightClient: LightClientConfig{
		CacheSize:         DefaultCacheSize,
		QuorumNumerator:   2,
		QuorumDenominator: 3,
	},
	FastTransfer: FastTransferConfig{
		BaseDenom:   DefaultBaseDenom,
		ProofScheme: "keccak256",
	},
	Bank: BankConfig{
		ModuleAccount: DefaultModuleAccount,
	},
	RPC: RPCConfig{
		Address:            DefaultRPCAddress,
		MaxOpenConnections: 100,
	},
	Instrumentation: DefaultInstrumentationConfig(),
	Log: LogConfig{
		Level:  DefaultLogLevel,
		Format: "text",
		Trace:  false,
	},
}
