package tokenaccount

import "dex-ledger-sol/internal/types"

// AccountState 表示 SPL Token 账户状态字节
type AccountState uint8

const (
	StateUninitialized AccountState = iota
	StateInitialized
	StateFrozen
)

func (s AccountState) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateInitialized:
		return "initialized"
	case StateFrozen:
		return "frozen"
	default:
		return "unknown"
	}
}

// TokenAccountRecord 是经过长度与状态校验后的 TokenAccount。
// 只能由 Parse 构造，业务代码不得再对原始字节按偏移取值。
type TokenAccountRecord struct {
	Mint            types.Pubkey  // Token mint 地址
	Owner           types.Pubkey  // 账户所有者
	Amount          uint64        // 余额（最小单位）
	Delegate        *types.Pubkey // 可选：授权代理
	State           AccountState  // 账户状态
	IsNative        *uint64       // 可选：WSOL 账户的 rent-exempt 储备
	DelegatedAmount uint64        // 授权额度
	CloseAuthority  *types.Pubkey // 可选：关闭权限
	IsExtended      bool          // 是否为带扩展的 Token-2022 布局（长度 > 165）
}

func (r *TokenAccountRecord) IsFrozen() bool {
	return r.State == StateFrozen
}

func (r *TokenAccountRecord) IsNativeAccount() bool {
	return r.IsNative != nil
}
