package domain

// Balance 表示某个交易者在一个市场中的可提余额（最小单位）。
type Balance struct {
	Base  uint64
	Quote uint64
}
