package dispatcher

import (
	"encoding/base64"
	"errors"
	"time"

	"dex-ledger-sol/internal/consts"
	"dex-ledger-sol/internal/logic/classifier"
	"dex-ledger-sol/internal/logic/domain"
	"dex-ledger-sol/internal/logic/ledger"
	"dex-ledger-sol/internal/logic/market"
	"dex-ledger-sol/internal/logic/tokenaccount"
	"dex-ledger-sol/internal/logic/vaultmonitor"
	"dex-ledger-sol/internal/rpc"
	"dex-ledger-sol/internal/utils"
)

// BuildResultEvent 把成功的充值/提现结果转换为事件，按 trader 分区
func BuildResultEvent(res *ledger.Result) *domain.Event {
	req := res.Request
	fields := baseFields(req)
	fields["side"] = res.Side.String()
	fields["mint"] = res.Mint.String()
	fields["vault"] = res.Vault.String()
	fields["decimals"] = float64(res.Decimals)
	fields["ui_amount"] = utils.UIAmountString(req.Amount, res.Decimals)
	fields["new_balance"] = utils.FormatUint(res.NewBalance)
	fields["ui_new_balance"] = utils.UIAmountString(res.NewBalance, res.Decimals)

	eventType := domain.EventTypeDeposit
	if req.Kind == domain.KindWithdraw {
		eventType = domain.EventTypeWithdraw
	}
	if res.Settlement != nil {
		accounts := make([]any, len(res.Settlement.Accounts))
		for i, a := range res.Settlement.Accounts {
			accounts[i] = map[string]any{
				"pubkey":      a.Pubkey.String(),
				"is_signer":   a.IsSigner,
				"is_writable": a.IsWritable,
			}
		}
		fields["settlement"] = map[string]any{
			"program_id": res.Settlement.ProgramID.String(),
			"accounts":   accounts,
			"data":       base64.StdEncoding.EncodeToString(res.Settlement.Data),
		}
	}

	return &domain.Event{
		EventType: eventType,
		Key:       keyOf(req.Trader[:]),
		Fields:    fields,
	}
}

// BuildRejectedEvent 描述一次被拒绝的请求，reason 为错误类别，detail 为完整错误
func BuildRejectedEvent(req *domain.Request, err error) *domain.Event {
	fields := baseFields(req)
	fields["reason"] = RejectReason(err)
	fields["detail"] = err.Error()
	return &domain.Event{
		EventType: domain.EventTypeRejected,
		Key:       keyOf(req.Trader[:]),
		Fields:    fields,
	}
}

// BuildVaultAlertEvent 金库对账告警，按 vault 分区
func BuildVaultAlertEvent(alert *vaultmonitor.Alert) *domain.Event {
	fields := map[string]any{
		"chain_id":     float64(consts.ChainIDSolana),
		"kind":         string(alert.Kind),
		"market":       alert.Market.String(),
		"vault":        alert.Vault.String(),
		"slot":         utils.FormatUint(alert.Slot),
		"vault_amount": utils.FormatUint(alert.VaultAmount),
		"ledger_total": utils.FormatUint(alert.LedgerTotal),
		"detail":       alert.Detail,
		"ts":           float64(time.Now().Unix()),
	}
	if alert.Side != 0 {
		fields["side"] = alert.Side.String()
	}
	return &domain.Event{
		EventType: domain.EventTypeVaultAlert,
		Key:       keyOf(alert.Vault[:]),
		Fields:    fields,
	}
}

// ReasonInternal 非确定性错误（RPC、网络等），请求应重试而不是拒绝
const ReasonInternal = "internal"

// RejectReason 把校验错误归类为稳定的原因码，供下游统计
func RejectReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrInvalidRequest):
		return "invalid_request"
	case errors.Is(err, tokenaccount.ErrInvalidTokenAccount):
		return "invalid_token_account"
	case errors.Is(err, classifier.ErrUnrecognizedMint):
		return "unrecognized_mint"
	case errors.Is(err, market.ErrUnknownMarket):
		return "unknown_market"
	case errors.Is(err, ledger.ErrInvalidAmount):
		return "invalid_amount"
	case errors.Is(err, ledger.ErrInvalidTokenProgram):
		return "invalid_token_program"
	case errors.Is(err, ledger.ErrOwnerMismatch):
		return "owner_mismatch"
	case errors.Is(err, ledger.ErrWrongVault):
		return "wrong_vault"
	case errors.Is(err, ledger.ErrAccountFrozen):
		return "account_frozen"
	case errors.Is(err, ledger.ErrInsufficientFunds):
		return "insufficient_funds"
	case errors.Is(err, ledger.ErrBalanceOverflow):
		return "balance_overflow"
	case errors.Is(err, ledger.ErrTransferMismatch):
		return "transfer_mismatch"
	case errors.Is(err, ledger.ErrDuplicateDeposit):
		return "duplicate_deposit"
	case errors.Is(err, rpc.ErrAccountNotFound):
		return "account_not_found"
	case errors.Is(err, rpc.ErrTransactionNotFound):
		return "transfer_not_found"
	default:
		return ReasonInternal
	}
}

func baseFields(req *domain.Request) map[string]any {
	fields := map[string]any{
		"chain_id":      float64(consts.ChainIDSolana),
		"id":            req.ID,
		"kind":          string(req.Kind),
		"market":        req.Market.String(),
		"trader":        req.Trader.String(),
		"token_account": req.TokenAccount.String(),
		"amount":        utils.FormatUint(req.Amount), // u64 超出 float64 精度，用字符串
		"ts":            float64(time.Now().Unix()),
	}
	if req.Signature != "" {
		fields["signature"] = req.Signature
	}
	return fields
}

func keyOf(b []byte) []byte {
	return append([]byte(nil), b...)
}
