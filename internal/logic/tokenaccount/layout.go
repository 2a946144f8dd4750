package tokenaccount

import (
	"fmt"
	"runtime/debug"

	"dex-ledger-sol/internal/types"
	"dex-ledger-sol/pkg/logger"

	"github.com/near/borsh-go"
)

// COption 标签（SPL Token 使用 4 字节小端 u32 作为 Option 标签，而非 borsh 的 1 字节）
const (
	optionNone uint32 = 0
	optionSome uint32 = 1
)

// rawTokenAccount 与链上 165 字节布局一一对应：
//
//	[0..32)    mint
//	[32..64)   owner
//	[64..72)   amount
//	[72..76)   delegate option tag, [76..108) delegate
//	[108]      state
//	[109..113) is_native option tag, [113..121) is_native
//	[121..129) delegated_amount
//	[129..133) close_authority option tag, [133..165) close_authority
type rawTokenAccount struct {
	Mint                 types.Pubkey
	Owner                types.Pubkey
	Amount               uint64
	DelegateOption       uint32
	Delegate             types.Pubkey
	State                uint8
	IsNativeOption       uint32
	IsNative             uint64
	DelegatedAmount      uint64
	CloseAuthorityOption uint32
	CloseAuthority       types.Pubkey
}

// decodeRaw 反序列化基础布局。调用方必须保证 len(window) 恰为 TokenAccountSize。
func decodeRaw(window []byte) (raw rawTokenAccount, err error) {
	defer func() {
		if r := recover(); r != nil {
			logger.Errorf("[tokenaccount] borsh.Deserialize panic: %v, stack=%s", r, debug.Stack())
			err = fmt.Errorf("%w: decode panic: %v", ErrInvalidTokenAccount, r)
		}
	}()
	if err = borsh.Deserialize(&raw, window); err != nil {
		return raw, fmt.Errorf("%w: %v", ErrInvalidTokenAccount, err)
	}
	return raw, nil
}

func optionTag(present bool) uint32 {
	if present {
		return optionSome
	}
	return optionNone
}
