package domain

import "dex-ledger-sol/internal/types"

// AccountMeta 指令中的账户及其读写/签名属性
type AccountMeta struct {
	Pubkey     types.Pubkey
	IsSigner   bool
	IsWritable bool
}

// Instruction 表示一条待提交的链上指令（目前仅用于提现结算）。
type Instruction struct {
	ProgramID types.Pubkey  // 所调用的程序地址（TokenProgram 或 Token-2022）
	Accounts  []AccountMeta // 指令涉及的账户列表，保持原始顺序
	Data      []byte        // 指令数据
}
