package cmd

import (
	"github.com/spf13/cobra"

	rollcmd "github.com/rollkit/fastlane/pkg/cmd"
	rollconf "github.com/rollkit/fastlane/pkg/config"
)

const (
	// AppName is the name of the application, the name of the command, and the name of the home directory.
	AppName = "fastlane"
)

func init() {
	rollconf.AddGlobalFlags(RootCmd, AppName)
}

// RootCmd is the root command for fastlaned
var RootCmd = &cobra.Command{
	Use:   "fastlaned",
	Short: "Fastlane settles cross-chain transfers early against agreed merkle roots.",
	Long: `
Fastlane keeps a bounded history of merkle roots that the relayer set agreed on
for each external chain, pays out fast transfers proven against those roots and
settles slow transfers submitted by the authority, each transfer at most once.
If the --home flag is not specified, fastlaned stores its config and data in "~/.fastlane".
`,
	SilenceUsage: true,
}

// NewRootCmd returns the root command with every subcommand attached.
func NewRootCmd() *cobra.Command {
	RootCmd.AddCommand(
		rollcmd.InitCmd,
		rollcmd.NewRunNodeCmd(),
		rollcmd.NewQueryCmd(),
		rollcmd.NewTxCmd(),
		rollcmd.KeysCmd(),
		rollcmd.StoreUnsafeCleanCmd,
		rollcmd.VersionCmd,
	)
	return RootCmd
}
