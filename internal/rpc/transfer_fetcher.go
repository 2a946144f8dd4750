package rpc

import (
	"context"
	"fmt"
	"strconv"

	"dex-ledger-sol/internal/logic/domain"
	"dex-ledger-sol/internal/types"

	"github.com/blocto/solana-go-sdk/client"
	sdkrpc "github.com/blocto/solana-go-sdk/rpc"
)

// FetchTransfer 查询 confirmed 级别的交易，返回各 token 账户的前后余额。
// 交易不存在（或尚未确认）时返回 ErrTransactionNotFound。
func (f *AccountFetcher) FetchTransfer(ctx context.Context, signature string) (*domain.ConfirmedTx, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	tx, err := f.client.GetTransactionWithConfig(ctx, signature, client.GetTransactionConfig{
		Commitment: sdkrpc.CommitmentConfirmed,
	})
	if err != nil {
		return nil, fmt.Errorf("GetTransaction %s failed: %w", signature, err)
	}
	if tx == nil {
		return nil, fmt.Errorf("%w: %s", ErrTransactionNotFound, signature)
	}
	if tx.Meta == nil {
		return nil, fmt.Errorf("transaction %s has no meta", signature)
	}
	return toConfirmedTx(signature, tx)
}

func toConfirmedTx(signature string, tx *client.Transaction) (*domain.ConfirmedTx, error) {
	out := &domain.ConfirmedTx{
		Signature: signature,
		Slot:      tx.Slot,
		Failed:    tx.Meta.Err != nil,
	}

	// accountIndex → Deltas 下标；只出现在 pre 或 post 中的账户（新建/关闭）另一侧按 0 计
	index := make(map[uint64]int)
	apply := func(balances []sdkrpc.TransactionMetaTokenBalance, post bool) error {
		for _, b := range balances {
			if b.AccountIndex >= uint64(len(tx.AccountKeys)) {
				return fmt.Errorf("transaction %s: token balance index %d out of range", signature, b.AccountIndex)
			}
			amount, err := strconv.ParseUint(b.UITokenAmount.Amount, 10, 64)
			if err != nil {
				return fmt.Errorf("transaction %s: bad token amount %q: %w", signature, b.UITokenAmount.Amount, err)
			}
			mint, err := types.TryPubkeyFromBase58(b.Mint)
			if err != nil {
				return fmt.Errorf("transaction %s: %w", signature, err)
			}

			i, ok := index[b.AccountIndex]
			if !ok {
				i = len(out.Deltas)
				index[b.AccountIndex] = i
				out.Deltas = append(out.Deltas, domain.TokenDelta{
					Account: types.Pubkey(tx.AccountKeys[b.AccountIndex]),
					Mint:    mint,
				})
			}
			if post {
				out.Deltas[i].Post = amount
			} else {
				out.Deltas[i].Pre = amount
			}
		}
		return nil
	}
	if err := apply(tx.Meta.PreTokenBalances, false); err != nil {
		return nil, err
	}
	if err := apply(tx.Meta.PostTokenBalances, true); err != nil {
		return nil, err
	}
	return out, nil
}
