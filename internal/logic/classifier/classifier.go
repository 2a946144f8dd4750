package classifier

import (
	"errors"
	"fmt"

	"dex-ledger-sol/internal/logic/tokenaccount"
	"dex-ledger-sol/internal/types"
)

// ErrUnrecognizedMint 记录的 mint 既不是 base 也不是 quote
var ErrUnrecognizedMint = errors.New("unrecognized mint")

// MintClassification 表示 TokenAccount 在交易对中的一侧
type MintClassification uint8

const (
	Base MintClassification = iota + 1
	Quote
)

func (c MintClassification) String() string {
	switch c {
	case Base:
		return "base"
	case Quote:
		return "quote"
	default:
		return "unknown"
	}
}

// Classify 判断已解析记录的 mint 属于 base 还是 quote。
// 只接受 Parse 产出的记录，不接触原始字节。
func Classify(rec *tokenaccount.TokenAccountRecord, baseMint, quoteMint types.Pubkey) (MintClassification, error) {
	if rec == nil {
		return 0, fmt.Errorf("%w: nil record", tokenaccount.ErrInvalidTokenAccount)
	}
	switch rec.Mint {
	case baseMint:
		return Base, nil
	case quoteMint:
		return Quote, nil
	}
	return 0, fmt.Errorf("%w: %s (base=%s, quote=%s)", ErrUnrecognizedMint, rec.Mint, baseMint, quoteMint)
}

// ParseAndClassify 是 Parse + Classify 的组合，供只持有原始数据的调用方使用
func ParseAndClassify(data []byte, baseMint, quoteMint types.Pubkey) (*tokenaccount.TokenAccountRecord, MintClassification, error) {
	rec, err := tokenaccount.Parse(data)
	if err != nil {
		return nil, 0, err
	}
	class, err := Classify(rec, baseMint, quoteMint)
	if err != nil {
		return rec, 0, err
	}
	return rec, class, nil
}
