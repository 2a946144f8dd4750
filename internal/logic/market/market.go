package market

import (
	"errors"
	"fmt"
	"sync"

	"dex-ledger-sol/internal/logic/classifier"
	"dex-ledger-sol/internal/types"
	"dex-ledger-sol/internal/utils"
)

var (
	ErrInvalidMarket = errors.New("invalid market")
	ErrUnknownMarket = errors.New("unknown market")
)

// Market 描述一个 base/quote 交易对及其金库
type Market struct {
	Address       types.Pubkey `yaml:"address"`
	Name          string       `yaml:"name"`
	BaseMint      types.Pubkey `yaml:"base_mint"`
	QuoteMint     types.Pubkey `yaml:"quote_mint"`
	BaseVault     types.Pubkey `yaml:"base_vault"`
	QuoteVault    types.Pubkey `yaml:"quote_vault"`
	BaseDecimals  uint8        `yaml:"base_decimals"`
	QuoteDecimals uint8        `yaml:"quote_decimals"`
	Authority     types.Pubkey `yaml:"authority"` // 金库转出签名方
}

// Validate 校验字段完整且 base/quote 不重复
func (m *Market) Validate() error {
	switch {
	case m.Address.IsZero():
		return fmt.Errorf("%w: empty address", ErrInvalidMarket)
	case m.BaseMint.IsZero() || m.QuoteMint.IsZero():
		return fmt.Errorf("%w: market %s: empty mint", ErrInvalidMarket, m.Address)
	case m.BaseMint == m.QuoteMint:
		return fmt.Errorf("%w: market %s: base mint equals quote mint", ErrInvalidMarket, m.Address)
	case m.BaseVault.IsZero() || m.QuoteVault.IsZero():
		return fmt.Errorf("%w: market %s: empty vault", ErrInvalidMarket, m.Address)
	case m.BaseVault == m.QuoteVault:
		return fmt.Errorf("%w: market %s: base vault equals quote vault", ErrInvalidMarket, m.Address)
	}
	// 常见 mint 的精度是确定的，配置写错会导致 UI 数量和结算指令都出错
	for _, side := range []classifier.MintClassification{classifier.Base, classifier.Quote} {
		if want, ok := utils.KnownDecimals(m.Mint(side)); ok && want != m.Decimals(side) {
			return fmt.Errorf("%w: market %s: %s decimals %d, want %d", ErrInvalidMarket, m.Address, side, m.Decimals(side), want)
		}
	}
	return nil
}

func (m *Market) Mint(side classifier.MintClassification) types.Pubkey {
	if side == classifier.Base {
		return m.BaseMint
	}
	return m.QuoteMint
}

func (m *Market) Vault(side classifier.MintClassification) types.Pubkey {
	if side == classifier.Base {
		return m.BaseVault
	}
	return m.QuoteVault
}

func (m *Market) Decimals(side classifier.MintClassification) uint8 {
	if side == classifier.Base {
		return m.BaseDecimals
	}
	return m.QuoteDecimals
}

// VaultSide 返回 vault 对应的一侧，非本市场金库时 ok=false
func (m *Market) VaultSide(vault types.Pubkey) (classifier.MintClassification, bool) {
	switch vault {
	case m.BaseVault:
		return classifier.Base, true
	case m.QuoteVault:
		return classifier.Quote, true
	}
	return 0, false
}

// Registry 市场注册表，加载后只读，并发安全
type Registry struct {
	mu      sync.RWMutex
	markets map[types.Pubkey]*Market
	vaults  map[types.Pubkey]*Market
}

func NewRegistry() *Registry {
	return &Registry{
		markets: make(map[types.Pubkey]*Market),
		vaults:  make(map[types.Pubkey]*Market),
	}
}

// Add 校验并注册市场，地址或金库重复时报错
func (r *Registry) Add(m *Market) error {
	if err := m.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.markets[m.Address]; ok {
		return fmt.Errorf("%w: duplicate market %s", ErrInvalidMarket, m.Address)
	}
	for _, v := range []types.Pubkey{m.BaseVault, m.QuoteVault} {
		if other, ok := r.vaults[v]; ok {
			return fmt.Errorf("%w: vault %s already used by market %s", ErrInvalidMarket, v, other.Address)
		}
	}
	r.markets[m.Address] = m
	r.vaults[m.BaseVault] = m
	r.vaults[m.QuoteVault] = m
	return nil
}

func (r *Registry) Get(addr types.Pubkey) (*Market, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.markets[addr]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownMarket, addr)
	}
	return m, nil
}

// ByVault 通过金库地址查找市场
func (r *Registry) ByVault(vault types.Pubkey) (*Market, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.vaults[vault]
	return m, ok
}

// Vaults 返回所有金库地址的 base58 形式，用于订阅过滤
func (r *Registry) Vaults() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.vaults))
	for v := range r.vaults {
		out = append(out, v.String())
	}
	return out
}

func (r *Registry) All() []*Market {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Market, 0, len(r.markets))
	for _, m := range r.markets {
		out = append(out, m)
	}
	return out
}
