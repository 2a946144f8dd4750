package ledger

import (
	"fmt"

	"dex-ledger-sol/internal/logic/classifier"
	"dex-ledger-sol/internal/logic/domain"
	"dex-ledger-sol/internal/logic/market"
	"dex-ledger-sol/internal/types"

	"github.com/blocto/solana-go-sdk/common"
	sdktoken "github.com/blocto/solana-go-sdk/program/token"
)

// BuildSettlement 构造 vault → dest 的 TransferChecked 指令，由市场 authority 签名。
// program 为金库所属 token program（Token 或 Token-2022）。
func BuildSettlement(
	program types.Pubkey,
	m *market.Market,
	side classifier.MintClassification,
	dest types.Pubkey,
	amount uint64,
) (*domain.Instruction, error) {
	if m.Authority.IsZero() {
		return nil, fmt.Errorf("%w: market %s has no vault authority", market.ErrInvalidMarket, m.Address)
	}
	if !IsTokenProgram(program) {
		return nil, fmt.Errorf("%w: %s", ErrInvalidTokenProgram, program)
	}

	ix := sdktoken.TransferChecked(sdktoken.TransferCheckedParam{
		From:     common.PublicKey(m.Vault(side)),
		To:       common.PublicKey(dest),
		Mint:     common.PublicKey(m.Mint(side)),
		Auth:     common.PublicKey(m.Authority),
		Signers:  []common.PublicKey{},
		Amount:   amount,
		Decimals: m.Decimals(side),
	})

	out := &domain.Instruction{
		ProgramID: program, // sdk 默认 Tokenkeg，这里以金库实际 program 为准
		Accounts:  make([]domain.AccountMeta, 0, len(ix.Accounts)),
		Data:      ix.Data,
	}
	for _, a := range ix.Accounts {
		out.Accounts = append(out.Accounts, domain.AccountMeta{
			Pubkey:     types.Pubkey(a.PubKey),
			IsSigner:   a.IsSigner,
			IsWritable: a.IsWritable,
		})
	}
	return out, nil
}
