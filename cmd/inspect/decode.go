package main

import (
	"fmt"

	"dex-ledger-sol/internal/types"
	"dex-ledger-sol/internal/utils"

	"github.com/spf13/cobra"
	"github.com/zeromicro/go-zero/core/jsonx"
)

var (
	decodeData  string
	decodeBase  string
	decodeQuote string
)

var decodeCmd = &cobra.Command{
	Use:   "decode",
	Short: "Decode raw token account data",
	Long:  `Decode hex or base64 token account data offline. With --base and --quote the mint is classified.`,
	RunE:  runDecode,
}

func init() {
	decodeCmd.Flags().StringVar(&decodeData, "data", "", "account data (hex or base64)")
	decodeCmd.Flags().StringVar(&decodeBase, "base", "", "base mint (base58)")
	decodeCmd.Flags().StringVar(&decodeQuote, "quote", "", "quote mint (base58)")
	_ = decodeCmd.MarkFlagRequired("data")
	decodeCmd.MarkFlagsRequiredTogether("base", "quote")
	rootCmd.AddCommand(decodeCmd)
}

func runDecode(cmd *cobra.Command, args []string) error {
	data, err := decodeInput(decodeData)
	if err != nil {
		return err
	}

	var pair pairOption
	if decodeBase != "" {
		if pair.base, err = types.TryPubkeyFromBase58(decodeBase); err != nil {
			return fmt.Errorf("--base: %w", err)
		}
		if pair.quote, err = types.TryPubkeyFromBase58(decodeQuote); err != nil {
			return fmt.Errorf("--quote: %w", err)
		}
		pair.baseDec, _ = utils.KnownDecimals(pair.base)
		pair.quoteDec, _ = utils.KnownDecimals(pair.quote)
		pair.enabled = true
	}

	out, err := jsonx.MarshalToString(buildReport(data, pair))
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), out)
	return err
}
