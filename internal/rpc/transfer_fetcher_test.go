package rpc

import (
	"context"
	"errors"
	"testing"

	"dex-ledger-sol/internal/consts"

	"github.com/blocto/solana-go-sdk/client"
	"github.com/blocto/solana-go-sdk/common"
	sdkrpc "github.com/blocto/solana-go-sdk/rpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tokenBalance(index uint64, mint, amount string) sdkrpc.TransactionMetaTokenBalance {
	return sdkrpc.TransactionMetaTokenBalance{
		AccountIndex:  index,
		Mint:          mint,
		UITokenAmount: sdkrpc.TokenAccountBalance{Amount: amount, Decimals: 6},
	}
}

func TestAccountFetcher_FetchTransfer(t *testing.T) {
	payer, src, vault, fresh := testKey(1), testKey(2), testKey(3), testKey(4)
	tx := &client.Transaction{
		Slot: 42,
		Meta: &client.TransactionMeta{
			PreTokenBalances: []sdkrpc.TransactionMetaTokenBalance{
				tokenBalance(1, consts.USDCMintStr, "1000"),
				tokenBalance(2, consts.USDCMintStr, "50"),
			},
			PostTokenBalances: []sdkrpc.TransactionMetaTokenBalance{
				tokenBalance(1, consts.USDCMintStr, "400"),
				tokenBalance(2, consts.USDCMintStr, "650"),
				tokenBalance(3, consts.USDCMintStr, "7"), // 本交易新建的账户
			},
		},
		AccountKeys: []common.PublicKey{
			common.PublicKey(payer), common.PublicKey(src), common.PublicKey(vault), common.PublicKey(fresh),
		},
	}
	f := newAccountFetcher(&fakeClient{txs: map[string]*client.Transaction{"sig-1": tx}}, 0)

	got, err := f.FetchTransfer(context.Background(), "sig-1")
	require.NoError(t, err)
	assert.Equal(t, "sig-1", got.Signature)
	assert.Equal(t, uint64(42), got.Slot)
	assert.False(t, got.Failed)
	require.Len(t, got.Deltas, 3)

	d, ok := got.Delta(src)
	require.True(t, ok)
	assert.Equal(t, consts.USDCMint, d.Mint)
	assert.Equal(t, uint64(1000), d.Pre)
	assert.Equal(t, uint64(400), d.Post)

	d, ok = got.Delta(vault)
	require.True(t, ok)
	assert.Equal(t, uint64(650), d.Post-d.Pre)

	d, ok = got.Delta(fresh)
	require.True(t, ok)
	assert.Equal(t, uint64(0), d.Pre)
	assert.Equal(t, uint64(7), d.Post)

	_, ok = got.Delta(payer)
	assert.False(t, ok)
}

func TestAccountFetcher_FetchTransferErrors(t *testing.T) {
	keys := []common.PublicKey{common.PublicKey(testKey(1))}
	fc := &fakeClient{txs: map[string]*client.Transaction{
		"failed":  {Meta: &client.TransactionMeta{Err: map[string]any{"InstructionError": []any{0, "Custom"}}}, AccountKeys: keys},
		"no-meta": {AccountKeys: keys},
		"bad-index": {Meta: &client.TransactionMeta{
			PostTokenBalances: []sdkrpc.TransactionMetaTokenBalance{tokenBalance(5, consts.USDCMintStr, "1")},
		}, AccountKeys: keys},
		"bad-amount": {Meta: &client.TransactionMeta{
			PostTokenBalances: []sdkrpc.TransactionMetaTokenBalance{tokenBalance(0, consts.USDCMintStr, "-1")},
		}, AccountKeys: keys},
	}}
	f := newAccountFetcher(fc, 0)
	ctx := context.Background()

	got, err := f.FetchTransfer(ctx, "failed")
	require.NoError(t, err)
	assert.True(t, got.Failed)

	_, err = f.FetchTransfer(ctx, "missing")
	assert.ErrorIs(t, err, ErrTransactionNotFound)

	for _, sig := range []string{"no-meta", "bad-index", "bad-amount"} {
		_, err = f.FetchTransfer(ctx, sig)
		assert.Error(t, err, sig)
		assert.False(t, errors.Is(err, ErrTransactionNotFound), sig)
	}

	_, err = newAccountFetcher(&fakeClient{err: errors.New("boom")}, 0).FetchTransfer(ctx, "x")
	assert.Error(t, err)
}
