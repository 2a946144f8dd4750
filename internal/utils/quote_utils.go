package utils

import (
	"dex-ledger-sol/internal/consts"
	"dex-ledger-sol/internal/types"
)

const (
	WSOLDecimals = 9
	USDCDecimals = 6
	USDTDecimals = 6
)

// QuoteTokenDecimals 常见报价币的链上精度，用于校验市场配置
var QuoteTokenDecimals = map[types.Pubkey]uint8{
	consts.WSOLMint: WSOLDecimals,
	consts.USDCMint: USDCDecimals,
	consts.USDTMint: USDTDecimals,
}

// KnownDecimals 返回已知 mint 的精度
func KnownDecimals(mint types.Pubkey) (uint8, bool) {
	d, ok := QuoteTokenDecimals[mint]
	return d, ok
}

// IsQuoteToken 判断 mint 是否为常见报价币
func IsQuoteToken(mint types.Pubkey) bool {
	_, ok := QuoteTokenDecimals[mint]
	return ok
}
