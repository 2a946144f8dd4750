package rpc

import (
	"context"
	"errors"
	"testing"

	"dex-ledger-sol/internal/consts"
	"dex-ledger-sol/internal/types"

	"github.com/blocto/solana-go-sdk/client"
	"github.com/blocto/solana-go-sdk/common"
	sdkrpc "github.com/blocto/solana-go-sdk/rpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClient struct {
	accounts map[string]client.AccountInfo
	txs      map[string]*client.Transaction
	err      error
}

func (f *fakeClient) GetTransactionWithConfig(_ context.Context, sig string, cfg client.GetTransactionConfig) (*client.Transaction, error) {
	if f.err != nil {
		return nil, f.err
	}
	if cfg.Commitment != sdkrpc.CommitmentConfirmed {
		return nil, errors.New("unexpected commitment")
	}
	return f.txs[sig], nil
}

func (f *fakeClient) GetAccountInfo(_ context.Context, addr string) (client.AccountInfo, error) {
	if f.err != nil {
		return client.AccountInfo{}, f.err
	}
	return f.accounts[addr], nil
}

func (f *fakeClient) GetMultipleAccounts(_ context.Context, addrs []string) ([]client.AccountInfo, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([]client.AccountInfo, len(addrs))
	for i, a := range addrs {
		out[i] = f.accounts[a]
	}
	return out, nil
}

func testKey(b byte) types.Pubkey {
	var p types.Pubkey
	p[0] = b
	p[31] = b
	return p
}

func TestAccountFetcher_Fetch(t *testing.T) {
	addr := testKey(1)
	data := []byte{1, 2, 3}
	fc := &fakeClient{accounts: map[string]client.AccountInfo{
		addr.String(): {Lamports: 10, Owner: common.PublicKey(consts.TokenProgram), Data: data},
	}}
	f := newAccountFetcher(fc, 0)

	snap, err := f.Fetch(context.Background(), addr)
	require.NoError(t, err)
	assert.Equal(t, addr, snap.Address)
	assert.Equal(t, consts.TokenProgram, snap.Program)
	assert.Equal(t, data, snap.Data)

	// 返回副本
	data[0] = 99
	assert.Equal(t, byte(1), snap.Data[0])
}

func TestAccountFetcher_NotFound(t *testing.T) {
	f := newAccountFetcher(&fakeClient{accounts: map[string]client.AccountInfo{}}, 0)
	_, err := f.Fetch(context.Background(), testKey(2))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrAccountNotFound))
}

func TestAccountFetcher_RPCError(t *testing.T) {
	f := newAccountFetcher(&fakeClient{err: errors.New("boom")}, 0)
	_, err := f.Fetch(context.Background(), testKey(3))
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrAccountNotFound))
}

func TestAccountFetcher_FetchMany(t *testing.T) {
	a, b := testKey(4), testKey(5)
	fc := &fakeClient{accounts: map[string]client.AccountInfo{
		a.String(): {Lamports: 1, Owner: common.PublicKey(consts.TokenProgram2022), Data: []byte{7}},
	}}
	f := newAccountFetcher(fc, 0)

	snaps, err := f.FetchMany(context.Background(), []types.Pubkey{a, b})
	require.NoError(t, err)
	require.Len(t, snaps, 2)
	require.NotNil(t, snaps[0])
	assert.Equal(t, consts.TokenProgram2022, snaps[0].Program)
	assert.Nil(t, snaps[1])
}
