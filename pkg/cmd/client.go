package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	rollconf "github.com/rollkit/fastlane/pkg/config"
	"github.com/rollkit/fastlane/pkg/rpc/client"
	"github.com/rollkit/fastlane/types"
)

const (
	flagNode  = "node"
	flagFunds = "funds"
)

// NewQueryCmd returns the command that sends a query message to a running node.
func NewQueryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "query [msg]",
		Short: "Query a running node",
		Long: `Sends an externally tagged query message to a running node, e.g.
  fastlaned query '{"lookup_root":{"chain_id":"eth-1","root":"AB12"}}'`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			msg, err := types.DecodeQueryMsg([]byte(args[0]))
			if err != nil {
				return err
			}
			var out json.RawMessage
			if err := rpcClient(cmd).Query(cmd.Context(), msg, &out); err != nil {
				return err
			}
			return printJSON(cmd, out)
		},
	}
	addNodeFlag(cmd)
	return cmd
}

// NewTxCmd returns the command that signs an execute message with the key in
// the home directory and submits it to a running node.
func NewTxCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tx [msg]",
		Short: "Submit an execute message to a running node",
		Long: `Sends an externally tagged execute message to a running node, e.g.
  fastlaned tx --fastlane.signer.passphrase secret '{"slow_transfer":{"transfer_id":7,"recipient":"alice","amount":"100"}}'`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			msg, err := types.DecodeExecuteMsg([]byte(args[0]))
			if err != nil {
				return err
			}
			s, err := loadSigner(cmd)
			if err != nil {
				return err
			}
			var funds []types.Coin
			if raw, _ := cmd.Flags().GetString(flagFunds); raw != "" {
				if err := json.Unmarshal([]byte(raw), &funds); err != nil {
					return fmt.Errorf("%w: funds: %v", types.ErrMalformedInput, err)
				}
			}

			resp, err := rpcClient(cmd).Execute(cmd.Context(), s, funds, msg)
			if err != nil {
				return err
			}
			return printJSON(cmd, resp)
		},
	}
	addNodeFlag(cmd)
	addPassphraseFlag(cmd)
	cmd.Flags().String(flagFunds, "", `funds attached to the message, e.g. '[{"denom":"uusdc","amount":"10"}]'`)
	return cmd
}

func addNodeFlag(cmd *cobra.Command) {
	cmd.Flags().String(flagNode, "http://"+rollconf.DefaultRPCAddress, "RPC endpoint of the node")
}

func rpcClient(cmd *cobra.Command) *client.Client {
	endpoint, _ := cmd.Flags().GetString(flagNode)
	return client.NewClient(endpoint)
}

func printJSON(cmd *cobra.Command, v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	cmd.Println(string(out))
	return nil
}
