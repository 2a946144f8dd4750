package consts

// SPL Token 账户布局
// Reference: https://github.com/solana-labs/solana-program-library/blob/master/token/program/src/state.rs
const (
	TokenAccountSize    = 165 // 基础布局长度，Token-2022 扩展账户只会更长
	MultisigAccountSize = 355 // Multisig 账户长度，Token-2022 用它区分账户类型

	// Token-2022 扩展账户中，偏移 165 处为 AccountType
	AccountTypeOffset = TokenAccountSize
)

// Token-2022 AccountType 取值
const (
	AccountTypeUninitialized byte = 0
	AccountTypeMint          byte = 1
	AccountTypeAccount       byte = 2
)
