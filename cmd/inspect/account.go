package main

import (
	"context"
	"fmt"
	"time"

	"dex-ledger-sol/internal/consts"
	"dex-ledger-sol/internal/logic/domain"
	"dex-ledger-sol/internal/logic/market"
	"dex-ledger-sol/internal/rpc"
	"dex-ledger-sol/internal/types"
	"dex-ledger-sol/pkg/utils"

	"github.com/spf13/cobra"
	"github.com/zeromicro/go-zero/core/jsonx"
)

var (
	accountRPC     string
	accountMarket  string
	accountMarkets string
	accountWorkers int
	accountTimeout time.Duration
)

var accountCmd = &cobra.Command{
	Use:   "account <address>...",
	Short: "Fetch and decode token accounts over RPC",
	Long: `Fetch token accounts in parallel, decode them and, with --market, classify
each mint against the market's base/quote pair.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAccount,
}

func init() {
	accountCmd.Flags().StringVar(&accountRPC, "rpc", "https://api.mainnet-beta.solana.com", "Solana RPC endpoint")
	accountCmd.Flags().StringVar(&accountMarket, "market", "", "market address to classify against")
	accountCmd.Flags().StringVar(&accountMarkets, "markets", "etc/markets.yaml", "markets file")
	accountCmd.Flags().IntVar(&accountWorkers, "workers", consts.CpuCount, "parallel RPC requests")
	accountCmd.Flags().DurationVar(&accountTimeout, "timeout", 10*time.Second, "per-account RPC timeout")
	rootCmd.AddCommand(accountCmd)
}

// snapshotFetcher 单账户抓取，*rpc.AccountFetcher 即满足
type snapshotFetcher interface {
	Fetch(ctx context.Context, addr types.Pubkey) (*domain.AccountSnapshot, error)
}

func runAccount(cmd *cobra.Command, args []string) error {
	addrs := make([]types.Pubkey, len(args))
	for i, a := range args {
		pk, err := types.TryPubkeyFromBase58(a)
		if err != nil {
			return err
		}
		addrs[i] = pk
	}

	var pair pairOption
	if accountMarket != "" {
		reg, err := market.LoadRegistry(accountMarkets)
		if err != nil {
			return err
		}
		addr, err := types.TryPubkeyFromBase58(accountMarket)
		if err != nil {
			return fmt.Errorf("--market: %w", err)
		}
		m, err := reg.Get(addr)
		if err != nil {
			return err
		}
		pair = pairOption{
			base: m.BaseMint, quote: m.QuoteMint,
			baseDec: m.BaseDecimals, quoteDec: m.QuoteDecimals,
			enabled: true,
		}
	}

	fetcher, err := rpc.NewAccountFetcher(accountRPC, accountTimeout)
	if err != nil {
		return err
	}
	for _, r := range inspectAccounts(cmd.Context(), fetcher, addrs, pair, accountWorkers) {
		out, err := jsonx.MarshalToString(r)
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintln(cmd.OutOrStdout(), out); err != nil {
			return err
		}
	}
	return nil
}

// inspectAccounts 并发抓取并解析，输出顺序与输入一致
func inspectAccounts(ctx context.Context, f snapshotFetcher, addrs []types.Pubkey, pair pairOption, workers int) []accountReport {
	if ctx == nil {
		ctx = context.Background()
	}
	return utils.ParallelMap(addrs, workers, func(addr types.Pubkey) accountReport {
		snap, err := f.Fetch(ctx, addr)
		if err != nil {
			return accountReport{Address: addr.String(), Error: err.Error()}
		}
		r := buildReport(snap.Data, pair)
		r.Address = addr.String()
		r.Program = snap.Program.String()
		if r.Error == "" && snap.Program != consts.TokenProgram && snap.Program != consts.TokenProgram2022 {
			r.Error = "not owned by a token program"
		}
		return r
	})
}
