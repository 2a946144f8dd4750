package vaultmonitor

import (
	"errors"
	"fmt"

	"dex-ledger-sol/internal/logic/classifier"
	"dex-ledger-sol/internal/logic/domain"
	"dex-ledger-sol/internal/logic/ledger"
	"dex-ledger-sol/internal/logic/market"
	"dex-ledger-sol/internal/types"
)

// AlertKind 告警类别
type AlertKind string

const (
	AlertUnknownVault        AlertKind = "unknown_vault"        // 推送了未登记的账户
	AlertInvalidData         AlertKind = "invalid_data"         // 不是合法 TokenAccount 或 program 不对
	AlertMintMismatch        AlertKind = "mint_mismatch"        // 金库 mint 与市场该侧不一致
	AlertOwnerMismatch       AlertKind = "owner_mismatch"       // 金库 owner 不是市场 authority
	AlertFrozen              AlertKind = "frozen"               // 金库被冻结
	AlertUndercollateralized AlertKind = "undercollateralized" // 金库余额 < 账本该侧总额
)

// Alert 一次金库对账异常
type Alert struct {
	Kind        AlertKind
	Market      types.Pubkey
	Vault       types.Pubkey
	Side        classifier.MintClassification
	Slot        uint64
	VaultAmount uint64 // 仅解析成功时有效
	LedgerTotal uint64
	Detail      string
}

// VaultIndex 按金库地址查找市场，*market.Registry 即满足
type VaultIndex interface {
	ByVault(vault types.Pubkey) (*market.Market, bool)
}

// TotalsSource 提供账本汇总，*ledger.Ledger 即满足
type TotalsSource interface {
	Totals(market types.Pubkey) domain.Balance
}

// CheckVault 校验一次金库账户快照，无异常返回 nil
func CheckVault(markets VaultIndex, totals TotalsSource, snap *domain.AccountSnapshot) *Alert {
	m, ok := markets.ByVault(snap.Address)
	if !ok {
		return &Alert{Kind: AlertUnknownVault, Vault: snap.Address, Slot: snap.Slot}
	}
	side, _ := m.VaultSide(snap.Address)
	alert := &Alert{Market: m.Address, Vault: snap.Address, Side: side, Slot: snap.Slot}

	if !ledger.IsTokenProgram(snap.Program) {
		alert.Kind = AlertInvalidData
		alert.Detail = fmt.Sprintf("owned by %s", snap.Program)
		return alert
	}

	rec, got, err := classifier.ParseAndClassify(snap.Data, m.BaseMint, m.QuoteMint)
	switch {
	case errors.Is(err, classifier.ErrUnrecognizedMint):
		alert.Kind = AlertMintMismatch
		alert.Detail = fmt.Sprintf("mint %s", rec.Mint)
		return alert
	case err != nil:
		alert.Kind = AlertInvalidData
		alert.Detail = err.Error()
		return alert
	case got != side:
		alert.Kind = AlertMintMismatch
		alert.Detail = fmt.Sprintf("%s vault holds %s mint %s", side, got, rec.Mint)
		return alert
	}

	alert.VaultAmount = rec.Amount
	alert.LedgerTotal = sideTotal(totals.Totals(m.Address), side)

	switch {
	case !m.Authority.IsZero() && rec.Owner != m.Authority:
		alert.Kind = AlertOwnerMismatch
		alert.Detail = fmt.Sprintf("owner %s, want %s", rec.Owner, m.Authority)
	case rec.IsFrozen():
		alert.Kind = AlertFrozen
	case rec.Amount < alert.LedgerTotal:
		alert.Kind = AlertUndercollateralized
		alert.Detail = fmt.Sprintf("vault %d < ledger %d", rec.Amount, alert.LedgerTotal)
	default:
		return nil
	}
	return alert
}

func sideTotal(b domain.Balance, side classifier.MintClassification) uint64 {
	if side == classifier.Base {
		return b.Base
	}
	return b.Quote
}
