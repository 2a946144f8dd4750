package vaultmonitor

import (
	"context"
	"errors"
	"sync"
	"testing"

	"dex-ledger-sol/internal/consts"
	"dex-ledger-sol/internal/logic/classifier"
	"dex-ledger-sol/internal/logic/domain"
	"dex-ledger-sol/internal/logic/market"
	"dex-ledger-sol/internal/logic/tokenaccount"
	"dex-ledger-sol/internal/types"

	pb "github.com/rpcpool/yellowstone-grpc/examples/golang/proto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fillKey(b byte) types.Pubkey {
	var k types.Pubkey
	for i := range k {
		k[i] = b
	}
	return k
}

var (
	marketAddr = fillKey(10)
	baseVault  = fillKey(11)
	quoteVault = fillKey(12)
	authority  = fillKey(13)
)

type fakeTotals map[types.Pubkey]domain.Balance

func (f fakeTotals) Totals(m types.Pubkey) domain.Balance { return f[m] }

func newRegistry(t *testing.T) *market.Registry {
	t.Helper()
	reg := market.NewRegistry()
	require.NoError(t, reg.Add(&market.Market{
		Address:       marketAddr,
		BaseMint:      consts.WSOLMint,
		QuoteMint:     consts.USDCMint,
		BaseVault:     baseVault,
		QuoteVault:    quoteVault,
		BaseDecimals:  9,
		QuoteDecimals: 6,
		Authority:     authority,
	}))
	return reg
}

func vaultSnap(t *testing.T, addr, mint, owner types.Pubkey, amount uint64, state tokenaccount.AccountState) *domain.AccountSnapshot {
	t.Helper()
	data, err := tokenaccount.Encode(&tokenaccount.TokenAccountRecord{Mint: mint, Owner: owner, Amount: amount, State: state})
	require.NoError(t, err)
	return &domain.AccountSnapshot{Address: addr, Program: consts.TokenProgram, Slot: 100, Data: data}
}

func TestCheckVault(t *testing.T) {
	reg := newRegistry(t)
	totals := fakeTotals{marketAddr: {Base: 500, Quote: 700}}

	cases := []struct {
		name string
		snap *domain.AccountSnapshot
		want AlertKind // 空表示无告警
	}{
		{"healthy base", vaultSnap(t, baseVault, consts.WSOLMint, authority, 500, tokenaccount.StateInitialized), ""},
		{"healthy quote", vaultSnap(t, quoteVault, consts.USDCMint, authority, 1000, tokenaccount.StateInitialized), ""},
		{"undercollateralized", vaultSnap(t, quoteVault, consts.USDCMint, authority, 699, tokenaccount.StateInitialized), AlertUndercollateralized},
		{"base vault holds quote mint", vaultSnap(t, baseVault, consts.USDCMint, authority, 500, tokenaccount.StateInitialized), AlertMintMismatch},
		{"foreign mint", vaultSnap(t, baseVault, consts.USDTMint, authority, 500, tokenaccount.StateInitialized), AlertMintMismatch},
		{"owner mismatch", vaultSnap(t, baseVault, consts.WSOLMint, fillKey(99), 500, tokenaccount.StateInitialized), AlertOwnerMismatch},
		{"frozen", vaultSnap(t, baseVault, consts.WSOLMint, authority, 500, tokenaccount.StateFrozen), AlertFrozen},
		{"truncated", &domain.AccountSnapshot{Address: baseVault, Program: consts.TokenProgram, Data: make([]byte, 20)}, AlertInvalidData},
		{"wrong program", &domain.AccountSnapshot{Address: baseVault, Program: consts.SystemProgram}, AlertInvalidData},
		{"unknown vault", &domain.AccountSnapshot{Address: fillKey(77), Program: consts.TokenProgram}, AlertUnknownVault},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			alert := CheckVault(reg, totals, c.snap)
			if c.want == "" {
				assert.Nil(t, alert)
				return
			}
			require.NotNil(t, alert)
			assert.Equal(t, c.want, alert.Kind)
			assert.Equal(t, c.snap.Address, alert.Vault)
		})
	}
}

func TestCheckVault_AlertFields(t *testing.T) {
	reg := newRegistry(t)
	alert := CheckVault(reg, fakeTotals{marketAddr: {Quote: 700}},
		vaultSnap(t, quoteVault, consts.USDCMint, authority, 10, tokenaccount.StateInitialized))
	require.NotNil(t, alert)
	assert.Equal(t, marketAddr, alert.Market)
	assert.Equal(t, classifier.Quote, alert.Side)
	assert.Equal(t, uint64(10), alert.VaultAmount)
	assert.Equal(t, uint64(700), alert.LedgerTotal)
	assert.Equal(t, uint64(100), alert.Slot)
}

type recordSink struct {
	mu     sync.Mutex
	alerts []*Alert
	err    error
}

func (s *recordSink) PublishAlert(_ context.Context, a *Alert) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.alerts = append(s.alerts, a)
	return s.err
}

func TestMonitor_HandleAccount(t *testing.T) {
	reg := newRegistry(t)
	sink := &recordSink{}
	mon := NewMonitor(reg, fakeTotals{marketAddr: {Base: 100}}, sink)
	ctx := context.Background()

	bad := vaultSnap(t, baseVault, consts.WSOLMint, authority, 1, tokenaccount.StateInitialized)
	require.NotNil(t, mon.HandleAccount(ctx, bad))
	require.Len(t, sink.alerts, 1)

	// 更旧的 slot 被忽略
	stale := vaultSnap(t, baseVault, consts.WSOLMint, authority, 1, tokenaccount.StateInitialized)
	stale.Slot = 50
	assert.Nil(t, mon.HandleAccount(ctx, stale))
	assert.Len(t, sink.alerts, 1)

	good := vaultSnap(t, baseVault, consts.WSOLMint, authority, 100, tokenaccount.StateInitialized)
	good.Slot = 101
	assert.Nil(t, mon.HandleAccount(ctx, good))
	assert.Len(t, sink.alerts, 1)
}

func TestMonitor_SinkErrorDoesNotPanic(t *testing.T) {
	reg := newRegistry(t)
	mon := NewMonitor(reg, fakeTotals{}, &recordSink{err: errors.New("kafka down")})
	alert := mon.HandleAccount(context.Background(), &domain.AccountSnapshot{Address: fillKey(55)})
	require.NotNil(t, alert)
	assert.Equal(t, AlertUnknownVault, alert.Kind)
}

func TestBuildSubscribeRequest(t *testing.T) {
	req := BuildSubscribeRequest([]string{baseVault.String(), quoteVault.String()})
	require.Contains(t, req.Accounts, "vaults")
	assert.ElementsMatch(t, []string{baseVault.String(), quoteVault.String()}, req.Accounts["vaults"].Account)
	assert.Equal(t, pb.CommitmentLevel_CONFIRMED, req.GetCommitment())
}

func TestSnapshotFromUpdate(t *testing.T) {
	data := []byte{1, 2, 3}
	update := &pb.SubscribeUpdate{
		UpdateOneof: &pb.SubscribeUpdate_Account{Account: &pb.SubscribeUpdateAccount{
			Slot: 42,
			Account: &pb.SubscribeUpdateAccountInfo{
				Pubkey: baseVault[:],
				Owner:  consts.TokenProgram[:],
				Data:   data,
			},
		}},
	}
	snap := SnapshotFromUpdate(update)
	require.NotNil(t, snap)
	assert.Equal(t, baseVault, snap.Address)
	assert.Equal(t, consts.TokenProgram, snap.Program)
	assert.Equal(t, uint64(42), snap.Slot)
	data[0] = 9
	assert.Equal(t, byte(1), snap.Data[0])

	ping := &pb.SubscribeUpdate{UpdateOneof: &pb.SubscribeUpdate_Ping{Ping: &pb.SubscribeUpdatePing{}}}
	assert.Nil(t, SnapshotFromUpdate(ping))

	badKey := &pb.SubscribeUpdate{UpdateOneof: &pb.SubscribeUpdate_Account{Account: &pb.SubscribeUpdateAccount{
		Account: &pb.SubscribeUpdateAccountInfo{Pubkey: []byte{1}, Owner: consts.TokenProgram[:]},
	}}}
	assert.Nil(t, SnapshotFromUpdate(badKey))
}
