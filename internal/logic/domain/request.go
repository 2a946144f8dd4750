package domain

import (
	"errors"
	"fmt"

	"dex-ledger-sol/internal/types"
)

var ErrInvalidRequest = errors.New("invalid request")

// RequestKind 请求类型
type RequestKind string

const (
	KindDeposit  RequestKind = "deposit"
	KindWithdraw RequestKind = "withdraw"
)

// Request 表示一次充值或提现请求
type Request struct {
	ID           string       // 幂等 ID（交易签名或客户端生成）
	Kind         RequestKind  // deposit / withdraw
	Market       types.Pubkey // 市场地址
	Trader       types.Pubkey // 交易者钱包
	TokenAccount types.Pubkey // 交易者的 TokenAccount
	Amount       uint64       // 数量（最小单位）
	Signature    string       // 充值：trader → vault 转账的交易签名
}

func (r *Request) Validate() error {
	if r.ID == "" {
		return fmt.Errorf("%w: empty id", ErrInvalidRequest)
	}
	switch r.Kind {
	case KindDeposit, KindWithdraw:
	default:
		return fmt.Errorf("%w: %s: unknown kind %q", ErrInvalidRequest, r.ID, r.Kind)
	}
	if r.Market.IsZero() || r.Trader.IsZero() || r.TokenAccount.IsZero() {
		return fmt.Errorf("%w: %s: missing market/trader/token_account", ErrInvalidRequest, r.ID)
	}
	return nil
}
