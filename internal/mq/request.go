package mq

import (
	"fmt"

	"dex-ledger-sol/internal/logic/domain"
	"dex-ledger-sol/internal/types"

	"github.com/zeromicro/go-zero/core/jsonx"
)

// requestMessage 是请求 topic 中的 JSON 消息体
type requestMessage struct {
	ID           string `json:"id"`
	Kind         string `json:"kind"`
	Market       string `json:"market"`
	Trader       string `json:"trader"`
	TokenAccount string `json:"token_account"`
	Amount       uint64 `json:"amount"`
	Signature    string `json:"signature,omitempty"`
}

// DecodeRequest 解析请求消息，地址必须是合法 base58 公钥
func DecodeRequest(raw []byte) (*domain.Request, error) {
	var m requestMessage
	if err := jsonx.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidRequest, err)
	}

	req := &domain.Request{
		ID:        m.ID,
		Kind:      domain.RequestKind(m.Kind),
		Amount:    m.Amount,
		Signature: m.Signature,
	}
	fields := []struct {
		name string
		src  string
		dst  *types.Pubkey
	}{
		{"market", m.Market, &req.Market},
		{"trader", m.Trader, &req.Trader},
		{"token_account", m.TokenAccount, &req.TokenAccount},
	}
	for _, f := range fields {
		pk, err := types.TryPubkeyFromBase58(f.src)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: bad %s %q", domain.ErrInvalidRequest, m.ID, f.name, f.src)
		}
		*f.dst = pk
	}

	if m.Signature != "" && !types.IsSignature(m.Signature) {
		return nil, fmt.Errorf("%w: %s: bad signature %q", domain.ErrInvalidRequest, m.ID, m.Signature)
	}

	if err := req.Validate(); err != nil {
		return nil, err
	}
	return req, nil
}

// EncodeRequest 把请求编码为 JSON 消息，供测试和工具使用
func EncodeRequest(req *domain.Request) ([]byte, error) {
	return jsonx.Marshal(requestMessage{
		ID:           req.ID,
		Kind:         string(req.Kind),
		Market:       req.Market.String(),
		Trader:       req.Trader.String(),
		TokenAccount: req.TokenAccount.String(),
		Amount:       req.Amount,
		Signature:    req.Signature,
	})
}
