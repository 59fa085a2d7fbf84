package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/rollkit/fastlane/node"
	rollconf "github.com/rollkit/fastlane/pkg/config"
	"github.com/rollkit/fastlane/pkg/log"
	"github.com/rollkit/fastlane/pkg/store"
)

// DBName is the name of the badger database inside the data directory.
const DBName = "fastlane"

// ParseConfig is an helpers that loads the node configuration and validates it.
func ParseConfig(cmd *cobra.Command) (rollconf.Config, error) {
	nodeConfig, err := rollconf.Load(cmd)
	if err != nil {
		return rollconf.Config{}, fmt.Errorf("failed to load node config: %w", err)
	}

	if err := nodeConfig.Validate(); err != nil {
		return rollconf.Config{}, fmt.Errorf("failed to validate node config: %w", err)
	}

	return nodeConfig, nil
}

// SetupLogger configures and returns a logger based on the provided configuration.
// It applies the following settings from the config:
//   - Log format (text or JSON)
//   - Log level (debug, info, warn, error)
//   - Stack traces for error logs
//
// The returned logger is already configured with the "module" field set to "main".
func SetupLogger(config rollconf.LogConfig) log.Logger {
	opts := []log.Option{
		log.LevelOption(config.Level),
		log.TraceOption(config.Trace),
	}
	if config.Format == "json" {
		opts = append(opts, log.OutputJSONOption())
	}
	return log.NewLogger(os.Stderr, opts...).With("module", "main")
}

// NewRunNodeCmd returns the command that starts the node.
func NewRunNodeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "start",
		Aliases: []string{"node", "run"},
		Short:   "Run the fastlane node",
		RunE: func(cmd *cobra.Command, args []string) error {
			nodeConfig, err := ParseConfig(cmd)
			if err != nil {
				return err
			}
			logger := SetupLogger(nodeConfig.Log)
			return StartNode(logger, cmd, nodeConfig)
		},
	}
	rollconf.AddFlags(cmd)
	return cmd
}

// StartNode handles the node startup logic
func StartNode(logger log.Logger, cmd *cobra.Command, nodeConfig rollconf.Config) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	db, err := store.NewDefaultKVStore(nodeConfig.RootDir, nodeConfig.DBPath, DBName)
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Error("failed to close database", "error", err)
		}
	}()

	fastNode, err := node.NewNode(ctx, nodeConfig, db, node.DefaultMetricsProvider(nodeConfig.Instrumentation), logger)
	if err != nil {
		return fmt.Errorf("failed to create node: %w", err)
	}

	// Run the node with graceful shutdown
	errCh := make(chan error, 1)
	go func() {
		errCh <- fastNode.Run(ctx)
	}()

	// Wait for interrupt signal to gracefully shut down the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case <-quit:
		logger.Info("shutting down node...")
		cancel()
	case err := <-errCh:
		if err != nil {
			logger.Error("node error", "error", err)
		}
		return err
	}

	// Wait for node to finish shutting down
	select {
	case <-time.After(10 * time.Second):
		logger.Info("Node shutdown timed out")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Error during shutdown", "error", err)
			return err
		}
	}

	return nil
}
