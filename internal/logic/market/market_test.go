package market

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"dex-ledger-sol/internal/consts"
	"dex-ledger-sol/internal/logic/classifier"
	"dex-ledger-sol/internal/types"

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

func testMarket() *Market {
	return &Market{
		Address:       fillKey(10),
		Name:          "SOL/USDC",
		BaseMint:      consts.WSOLMint,
		QuoteMint:     consts.USDCMint,
		BaseVault:     fillKey(11),
		QuoteVault:    fillKey(12),
		BaseDecimals:  9,
		QuoteDecimals: 6,
		Authority:     fillKey(13),
	}
}

func TestMarket_Validate(t *testing.T) {
	require.NoError(t, testMarket().Validate())

	m := testMarket()
	m.QuoteMint = m.BaseMint
	assert.ErrorIs(t, m.Validate(), ErrInvalidMarket)

	m = testMarket()
	m.QuoteVault = m.BaseVault
	assert.ErrorIs(t, m.Validate(), ErrInvalidMarket)

	m = testMarket()
	m.Address = types.Pubkey{}
	assert.ErrorIs(t, m.Validate(), ErrInvalidMarket)

	// USDC 精度固定为 6
	m = testMarket()
	m.QuoteDecimals = 9
	assert.ErrorIs(t, m.Validate(), ErrInvalidMarket)
}

func TestMarket_SideSelectors(t *testing.T) {
	m := testMarket()
	assert.Equal(t, m.BaseVault, m.Vault(classifier.Base))
	assert.Equal(t, m.QuoteVault, m.Vault(classifier.Quote))
	assert.Equal(t, uint8(9), m.Decimals(classifier.Base))
	assert.Equal(t, uint8(6), m.Decimals(classifier.Quote))
	assert.Equal(t, consts.USDCMint, m.Mint(classifier.Quote))

	side, ok := m.VaultSide(m.QuoteVault)
	assert.True(t, ok)
	assert.Equal(t, classifier.Quote, side)
	_, ok = m.VaultSide(fillKey(99))
	assert.False(t, ok)
}

func TestRegistry(t *testing.T) {
	reg := NewRegistry()
	m := testMarket()
	require.NoError(t, reg.Add(m))
	assert.ErrorIs(t, reg.Add(testMarket()), ErrInvalidMarket)

	got, err := reg.Get(m.Address)
	require.NoError(t, err)
	assert.Same(t, m, got)

	_, err = reg.Get(fillKey(77))
	assert.ErrorIs(t, err, ErrUnknownMarket)

	byVault, ok := reg.ByVault(m.BaseVault)
	assert.True(t, ok)
	assert.Same(t, m, byVault)
	assert.ElementsMatch(t, []string{m.BaseVault.String(), m.QuoteVault.String()}, reg.Vaults())
	assert.Len(t, reg.All(), 1)

	other := testMarket()
	other.Address = fillKey(20)
	assert.ErrorIs(t, reg.Add(other), ErrInvalidMarket, "vault reuse must be rejected")
}

func TestLoadRegistry(t *testing.T) {
	m := testMarket()
	content := fmt.Sprintf(`markets:
  - address: %s
    name: SOL/USDC
    base_mint: %s
    quote_mint: %s
    base_vault: %s
    quote_vault: %s
    base_decimals: 9
    quote_decimals: 6
    authority: %s
`, m.Address, m.BaseMint, m.QuoteMint, m.BaseVault, m.QuoteVault, m.Authority)

	path := filepath.Join(t.TempDir(), "markets.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	reg, err := LoadRegistry(path)
	require.NoError(t, err)
	got, err := reg.Get(m.Address)
	require.NoError(t, err)
	assert.Equal(t, m, got)

	_, err = LoadRegistry(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestParseRegistry_Invalid(t *testing.T) {
	_, err := ParseRegistry([]byte("markets:\n  - address: bad!\n"))
	assert.Error(t, err)

	m := testMarket()
	same := fmt.Sprintf("markets:\n  - address: %s\n    base_mint: %s\n    quote_mint: %s\n    base_vault: %s\n    quote_vault: %s\n",
		m.Address, m.BaseMint, m.BaseMint, m.BaseVault, m.QuoteVault)
	_, err = ParseRegistry([]byte(same))
	assert.ErrorIs(t, err, ErrInvalidMarket)
}
