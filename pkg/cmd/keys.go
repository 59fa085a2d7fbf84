package cmd

import (
	"encoding/hex"
	"fmt"

	"github.com/cometbft/cometbft/crypto/ed25519"
	"github.com/spf13/cobra"

	rollconf "github.com/rollkit/fastlane/pkg/config"
	"github.com/rollkit/fastlane/pkg/signer"
)

// KeysCmd returns a command for managing the signing key in the home directory.
func KeysCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keys",
		Short: "Manage the signing key",
	}

	cmd.AddCommand(addKeyCmd())
	cmd.AddCommand(showKeyCmd())
	cmd.AddCommand(exportKeyCmd())
	cmd.AddCommand(importKeyCmd())

	return cmd
}

func addKeyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Generate a new signing key",
		RunE: func(cmd *cobra.Command, args []string) error {
			home, passphrase, err := keyFlags(cmd)
			if err != nil {
				return err
			}
			s, err := signer.CreateFileSigner(home, passphrase)
			if err != nil {
				return err
			}
			cmd.Printf("address: %s\n", signer.Address(s))
			return nil
		},
	}
	addPassphraseFlag(cmd)
	return cmd
}

func showKeyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show the address and public key of the signing key",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadSigner(cmd)
			if err != nil {
				return err
			}
			cmd.Printf("address: %s\n", signer.Address(s))
			cmd.Printf("pub_key: %X\n", s.PubKey().Bytes())
			return nil
		},
	}
	addPassphraseFlag(cmd)
	return cmd
}

func exportKeyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the private key to plain text",
		Long: `Export the locally saved signing key to plain text.

WARNING: The exported key is not encrypted. Anyone holding it can sign messages on your behalf.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadSigner(cmd)
			if err != nil {
				return err
			}
			cmd.PrintErrln("WARNING: EXPORTING PRIVATE KEY. HANDLE WITH EXTREME CARE.")
			cmd.Println(hex.EncodeToString(s.PrivKey()))
			return nil
		},
	}
	addPassphraseFlag(cmd)
	return cmd
}

func importKeyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import [hex-private-key]",
		Short: "Import a private key from plain text",
		Long: fmt.Sprintf(`Import a hex encoded ed25519 private key and save it encrypted.
An existing %s is only replaced with --force.`, signer.KeyFile),
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			home, passphrase, err := keyFlags(cmd)
			if err != nil {
				return err
			}
			raw, err := hex.DecodeString(args[0])
			if err != nil {
				return fmt.Errorf("failed to decode hex private key: %w", err)
			}
			force, _ := cmd.Flags().GetBool("force")
			s, err := signer.ImportFileSigner(home, ed25519.PrivKey(raw), passphrase, force)
			if err != nil {
				return err
			}
			cmd.Printf("address: %s\n", signer.Address(s))
			return nil
		},
	}
	cmd.Flags().Bool("force", false, "Overwrite an existing key file")
	addPassphraseFlag(cmd)
	return cmd
}

func addPassphraseFlag(cmd *cobra.Command) {
	cmd.Flags().String(rollconf.FlagSignerPassphrase, "", "Passphrase of the signing key")
}

func keyFlags(cmd *cobra.Command) (string, []byte, error) {
	home, err := cmd.Flags().GetString(rollconf.FlagRootDir)
	if err != nil {
		return "", nil, fmt.Errorf("error reading home flag: %w", err)
	}
	if home == "" {
		home = rollconf.DefaultRootDir()
	}
	passphrase, err := cmd.Flags().GetString(rollconf.FlagSignerPassphrase)
	if err != nil {
		return "", nil, err
	}
	if passphrase == "" {
		return "", nil, fmt.Errorf("passphrase is required. Please provide it using the --%s flag", rollconf.FlagSignerPassphrase)
	}
	return home, []byte(passphrase), nil
}

func loadSigner(cmd *cobra.Command) (*signer.FileSigner, error) {
	home, passphrase, err := keyFlags(cmd)
	if err != nil {
		return nil, err
	}
	return signer.LoadFileSigner(home, passphrase)
}
