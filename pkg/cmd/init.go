package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	rollconf "github.com/rollkit/fastlane/pkg/config"
)

// InitCmd initializes a new fastlane.yaml file in the home directory
var InitCmd = &cobra.Command{
	Use:   "init",
	Short: fmt.Sprintf("Initialize a new %s file", rollconf.ConfigYaml),
	Long:  fmt.Sprintf("This command initializes a new %s file in the home directory, applying any configuration flags given.", rollconf.ConfigYaml),
	RunE: func(cmd *cobra.Command, args []string) error {
		homePath, err := cmd.Flags().GetString(rollconf.FlagRootDir)
		if err != nil {
			return fmt.Errorf("error reading home flag: %w", err)
		}
		if homePath == "" {
			return fmt.Errorf("home path is required")
		}

		configFilePath := filepath.Join(homePath, rollconf.ConfigYaml)
		if _, err := os.Stat(configFilePath); err == nil {
			return fmt.Errorf("%s file already exists in the specified directory", rollconf.ConfigYaml)
		}

		config, err := ParseConfig(cmd)
		if err != nil {
			return err
		}
		config.RootDir = homePath

		if err := rollconf.EnsureRoot(homePath); err != nil {
			return err
		}
		if err := rollconf.WriteYamlConfig(config); err != nil {
			return fmt.Errorf("error writing %s file: %w", rollconf.ConfigYaml, err)
		}

		cmd.Printf("Initialized %s file in %s\n", rollconf.ConfigYaml, homePath)
		return nil
	},
}

func init() {
	rollconf.AddFlags(InitCmd)
}
