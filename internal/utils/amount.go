package utils

import (
	"math/big"
	"strconv"

	"github.com/shopspring/decimal"
)

// UIAmount 把最小单位数量按精度换算为可读数量，例如 1500000 / 6 位 → 1.5
func UIAmount(raw uint64, decimals uint8) decimal.Decimal {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(raw), -int32(decimals))
}

// UIAmountString 返回不带多余尾零的字符串形式
func UIAmountString(raw uint64, decimals uint8) string {
	return UIAmount(raw, decimals).String()
}

// FormatUint u64 的十进制字符串形式（事件字段中避免 float64 丢精度）
func FormatUint(v uint64) string {
	return strconv.FormatUint(v, 10)
}
