package domain

import "dex-ledger-sol/internal/types"

// TokenDelta 交易前后某个 token 账户的余额（最小单位）
type TokenDelta struct {
	Account types.Pubkey
	Mint    types.Pubkey
	Pre     uint64
	Post    uint64
}

// ConfirmedTx 已确认交易中与 token 余额相关的部分，用于核对充值转账
type ConfirmedTx struct {
	Signature string
	Slot      uint64
	Failed    bool // 交易执行失败（meta.err 非空）
	Deltas    []TokenDelta
}

// Delta 查找指定账户的余额变化
func (tx *ConfirmedTx) Delta(account types.Pubkey) (TokenDelta, bool) {
	for _, d := range tx.Deltas {
		if d.Account == account {
			return d, true
		}
	}
	return TokenDelta{}, false
}
