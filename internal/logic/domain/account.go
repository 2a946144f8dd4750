package domain

import "dex-ledger-sol/internal/types"

// AccountSnapshot 表示某一时刻抓取到的链上账户。
// Data 是调用方独占的副本，解析期间不会被其他协程修改。
type AccountSnapshot struct {
	Address types.Pubkey // 账户地址
	Program types.Pubkey // 所属程序（owner program）
	Slot    uint64       // 抓取时的 slot，未知时为 0
	Data    []byte       // 原始账户数据（不可信）
}
