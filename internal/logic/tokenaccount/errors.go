package tokenaccount

import "errors"

// ErrInvalidTokenAccount 数据过短，或结构非法（未初始化、Option 标签错误、非 Account 类型）
var ErrInvalidTokenAccount = errors.New("invalid token account")
