package tokenaccount

import (
	"fmt"

	"dex-ledger-sol/internal/consts"
	"dex-ledger-sol/internal/types"

	"github.com/near/borsh-go"
)

// Parse 将不可信的账户数据解析为 TokenAccountRecord。
// 这是唯一允许按偏移读取 TokenAccount 原始字节的入口：长度校验先于任何字段读取。
func Parse(data []byte) (*TokenAccountRecord, error) {
	return ParseWithMinLength(data, consts.TokenAccountSize)
}

// ParseWithMinLength 同 Parse，但允许调用方要求更长的最小长度（如必须带扩展）。
// minLen 小于基础布局长度时按基础布局长度处理。
func ParseWithMinLength(data []byte, minLen int) (*TokenAccountRecord, error) {
	if minLen < consts.TokenAccountSize {
		minLen = consts.TokenAccountSize
	}
	n := len(data)
	if n < minLen {
		return nil, fmt.Errorf("%w: data length %d < %d", ErrInvalidTokenAccount, n, minLen)
	}

	extended := n > consts.TokenAccountSize
	if extended {
		// Token-2022：multisig 与 account 通过长度区分，扩展账户通过 AccountType 区分
		if n == consts.MultisigAccountSize {
			return nil, fmt.Errorf("%w: data length %d matches multisig layout", ErrInvalidTokenAccount, n)
		}
		if t := data[consts.AccountTypeOffset]; t != consts.AccountTypeAccount {
			return nil, fmt.Errorf("%w: account type %d, want %d", ErrInvalidTokenAccount, t, consts.AccountTypeAccount)
		}
	}

	raw, err := decodeRaw(data[:consts.TokenAccountSize])
	if err != nil {
		return nil, err
	}
	return fromRaw(&raw, extended)
}

// MintOf 返回账户的 mint，内部仍走完整解析
func MintOf(data []byte) (types.Pubkey, error) {
	rec, err := Parse(data)
	if err != nil {
		return types.Pubkey{}, err
	}
	return rec.Mint, nil
}

func fromRaw(raw *rawTokenAccount, extended bool) (*TokenAccountRecord, error) {
	state := AccountState(raw.State)
	switch state {
	case StateInitialized, StateFrozen:
	case StateUninitialized:
		return nil, fmt.Errorf("%w: account is uninitialized", ErrInvalidTokenAccount)
	default:
		return nil, fmt.Errorf("%w: unknown state %d", ErrInvalidTokenAccount, raw.State)
	}

	rec := &TokenAccountRecord{
		Mint:            raw.Mint,
		Owner:           raw.Owner,
		Amount:          raw.Amount,
		State:           state,
		DelegatedAmount: raw.DelegatedAmount,
		IsExtended:      extended,
	}

	var err error
	if rec.Delegate, err = optionalPubkey("delegate", raw.DelegateOption, raw.Delegate); err != nil {
		return nil, err
	}
	if rec.CloseAuthority, err = optionalPubkey("close_authority", raw.CloseAuthorityOption, raw.CloseAuthority); err != nil {
		return nil, err
	}
	switch raw.IsNativeOption {
	case optionNone:
	case optionSome:
		v := raw.IsNative
		rec.IsNative = &v
	default:
		return nil, fmt.Errorf("%w: is_native option tag %d", ErrInvalidTokenAccount, raw.IsNativeOption)
	}
	return rec, nil
}

func optionalPubkey(field string, tag uint32, key types.Pubkey) (*types.Pubkey, error) {
	switch tag {
	case optionNone:
		return nil, nil
	case optionSome:
		k := key
		return &k, nil
	default:
		return nil, fmt.Errorf("%w: %s option tag %d", ErrInvalidTokenAccount, field, tag)
	}
}

// Encode 按基础布局编码记录，主要用于构造测试数据与 CLI 回显。
func Encode(rec *TokenAccountRecord) ([]byte, error) {
	raw := rawTokenAccount{
		Mint:                 rec.Mint,
		Owner:                rec.Owner,
		Amount:               rec.Amount,
		DelegateOption:       optionTag(rec.Delegate != nil),
		State:                uint8(rec.State),
		IsNativeOption:       optionTag(rec.IsNative != nil),
		DelegatedAmount:      rec.DelegatedAmount,
		CloseAuthorityOption: optionTag(rec.CloseAuthority != nil),
	}
	if rec.Delegate != nil {
		raw.Delegate = *rec.Delegate
	}
	if rec.IsNative != nil {
		raw.IsNative = *rec.IsNative
	}
	if rec.CloseAuthority != nil {
		raw.CloseAuthority = *rec.CloseAuthority
	}
	data, err := borsh.Serialize(raw)
	if err != nil {
		return nil, fmt.Errorf("encode token account: %w", err)
	}
	if len(data) != consts.TokenAccountSize {
		return nil, fmt.Errorf("encode token account: got %d bytes, want %d", len(data), consts.TokenAccountSize)
	}
	return data, nil
}
