package main

import (
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"dex-ledger-sol/internal/logic/classifier"
	"dex-ledger-sol/internal/logic/tokenaccount"
	"dex-ledger-sol/internal/types"
	"dex-ledger-sol/internal/utils"
)

// accountReport 是单个账户的输出格式
type accountReport struct {
	Address         string `json:"address,omitempty"`
	Program         string `json:"program,omitempty"`
	Mint            string `json:"mint,omitempty"`
	Owner           string `json:"owner,omitempty"`
	Amount          string `json:"amount,omitempty"`
	UIAmount        string `json:"ui_amount,omitempty"`
	State           string `json:"state,omitempty"`
	Delegate        string `json:"delegate,omitempty"`
	DelegatedAmount string `json:"delegated_amount,omitempty"`
	IsNative        bool   `json:"is_native,omitempty"`
	CloseAuthority  string `json:"close_authority,omitempty"`
	Extended        bool   `json:"extended,omitempty"`
	QuoteToken      bool   `json:"quote_token,omitempty"`
	Class           string `json:"class,omitempty"`
	Error           string `json:"error,omitempty"`
}

// pairOption 可选的 base/quote 分类参数
type pairOption struct {
	base, quote       types.Pubkey
	baseDec, quoteDec uint8
	enabled           bool
}

// decodeInput 接受 hex（可带 0x 前缀）或 base64
func decodeInput(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, errors.New("empty data")
	}
	trimmed := strings.TrimPrefix(s, "0x")
	if b, err := hex.DecodeString(trimmed); err == nil {
		return b, nil
	}
	if b, err := base64.StdEncoding.DecodeString(s); err == nil {
		return b, nil
	}
	return nil, fmt.Errorf("data is neither hex nor base64")
}

// buildReport 解析并（可选）分类，错误写入报告而不是中断
func buildReport(data []byte, pair pairOption) accountReport {
	rec, err := tokenaccount.Parse(data)
	if err != nil {
		return accountReport{Error: err.Error()}
	}

	r := accountReport{
		Mint:            rec.Mint.String(),
		Owner:           rec.Owner.String(),
		Amount:          utils.FormatUint(rec.Amount),
		State:           rec.State.String(),
		DelegatedAmount: utils.FormatUint(rec.DelegatedAmount),
		IsNative:        rec.IsNativeAccount(),
		Extended:        rec.IsExtended,
		QuoteToken:      utils.IsQuoteToken(rec.Mint),
	}
	if rec.Delegate != nil {
		r.Delegate = rec.Delegate.String()
	}
	if rec.CloseAuthority != nil {
		r.CloseAuthority = rec.CloseAuthority.String()
	}
	if d, ok := utils.KnownDecimals(rec.Mint); ok {
		r.UIAmount = utils.UIAmountString(rec.Amount, d)
	}

	if !pair.enabled {
		return r
	}
	class, err := classifier.Classify(rec, pair.base, pair.quote)
	if err != nil {
		r.Error = err.Error()
		return r
	}
	r.Class = class.String()
	dec := pair.baseDec
	if class == classifier.Quote {
		dec = pair.quoteDec
	}
	r.UIAmount = utils.UIAmountString(rec.Amount, dec)
	return r
}
