package ledger

import (
	"context"
	"fmt"

	"dex-ledger-sol/internal/consts"
	"dex-ledger-sol/internal/logic/classifier"
	"dex-ledger-sol/internal/logic/domain"
	"dex-ledger-sol/internal/logic/market"
	"dex-ledger-sol/internal/logic/tokenaccount"
	"dex-ledger-sol/internal/types"
	"dex-ledger-sol/pkg/logger"
)

// AccountSource 提供链上账户快照（RPC、缓存或测试桩）
type AccountSource interface {
	Fetch(ctx context.Context, addr types.Pubkey) (*domain.AccountSnapshot, error)
}

// TransferSource 按签名查询已确认交易的 token 余额变化（RPC 或测试桩）
type TransferSource interface {
	FetchTransfer(ctx context.Context, signature string) (*domain.ConfirmedTx, error)
}

// MarketSource 按地址查找市场，*market.Registry 即满足
type MarketSource interface {
	Get(addr types.Pubkey) (*market.Market, error)
}

// Result 表示一次成功的充值/提现
type Result struct {
	Request    *domain.Request
	Side       classifier.MintClassification
	Mint       types.Pubkey
	Vault      types.Pubkey
	Decimals   uint8
	NewBalance uint64              // 交易者该侧的新余额
	Settlement *domain.Instruction // 仅提现：vault → trader 的 TransferChecked
}

// Processor 处理充值/提现。所有校验（解析、分类、金库、转账、余额）都先于账本修改完成，
// 任一校验失败都不会留下部分修改。
type Processor struct {
	markets   MarketSource
	accounts  AccountSource
	transfers TransferSource
	ledger    *Ledger
}

func NewProcessor(markets MarketSource, accounts AccountSource, transfers TransferSource, ledger *Ledger) *Processor {
	return &Processor{markets: markets, accounts: accounts, transfers: transfers, ledger: ledger}
}

func (p *Processor) Ledger() *Ledger {
	return p.ledger
}

// Process 根据请求类型分发
func (p *Processor) Process(ctx context.Context, req *domain.Request) (*Result, error) {
	if req == nil {
		return nil, fmt.Errorf("%w: nil request", domain.ErrInvalidRequest)
	}
	switch req.Kind {
	case domain.KindDeposit:
		return p.Deposit(ctx, req)
	case domain.KindWithdraw:
		return p.Withdraw(ctx, req)
	default:
		return nil, fmt.Errorf("%w: unknown kind %q", domain.ErrInvalidRequest, req.Kind)
	}
}

// checked 是校验通过后的中间结果
type checked struct {
	market  *market.Market
	side    classifier.MintClassification
	trader  *tokenaccount.TokenAccountRecord
	vault   *tokenaccount.TokenAccountRecord
	program types.Pubkey
}

// Deposit 只按链上已确认的 trader → vault 转账入账：
// 请求必须携带转账签名，交易中 token account 减少、本侧金库增加均不少于 amount，
// 同一签名只入账一次。
func (p *Processor) Deposit(ctx context.Context, req *domain.Request) (*Result, error) {
	if !types.IsSignature(req.Signature) {
		return nil, fmt.Errorf("%w: deposit %s: bad transfer signature %q", domain.ErrInvalidRequest, req.ID, req.Signature)
	}
	if p.ledger.Deposited(req.Signature) {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateDeposit, req.Signature)
	}
	c, err := p.check(ctx, req)
	if err != nil {
		return nil, err
	}

	tx, err := p.transfers.FetchTransfer(ctx, req.Signature)
	if err != nil {
		return nil, fmt.Errorf("fetch deposit transfer %s: %w", req.Signature, err)
	}
	if err := verifyTransfer(tx, req.TokenAccount, c.market.Vault(c.side), c.market.Mint(c.side), req.Amount); err != nil {
		return nil, err
	}

	newBalance, err := p.ledger.creditDeposit(req.Signature, req.Market, req.Trader, c.side, req.Amount)
	if err != nil {
		return nil, err
	}
	logger.Infof("[ledger] deposit id=%s sig=%s market=%s trader=%s side=%s amount=%d balance=%d",
		req.ID, req.Signature, req.Market, req.Trader, c.side, req.Amount, newBalance)
	return p.result(req, c, newBalance), nil
}

// verifyTransfer 核对交易中 from 流出、to 流入的数量都不少于 amount，且 mint 一致
func verifyTransfer(tx *domain.ConfirmedTx, from, to, mint types.Pubkey, amount uint64) error {
	if tx.Failed {
		return fmt.Errorf("%w: transaction %s failed", ErrTransferMismatch, tx.Signature)
	}
	src, ok := tx.Delta(from)
	if !ok || src.Mint != mint || src.Post > src.Pre || src.Pre-src.Post < amount {
		return fmt.Errorf("%w: transaction %s does not debit %d %s from %s", ErrTransferMismatch, tx.Signature, amount, mint, from)
	}
	dst, ok := tx.Delta(to)
	if !ok || dst.Mint != mint || dst.Pre > dst.Post || dst.Post-dst.Pre < amount {
		return fmt.Errorf("%w: transaction %s does not credit %d %s to vault %s", ErrTransferMismatch, tx.Signature, amount, mint, to)
	}
	return nil
}

func (p *Processor) Withdraw(ctx context.Context, req *domain.Request) (*Result, error) {
	c, err := p.check(ctx, req)
	if err != nil {
		return nil, err
	}
	if c.vault.Amount < req.Amount {
		return nil, fmt.Errorf("%w: vault %s holds %d < %d",
			ErrInsufficientFunds, c.market.Vault(c.side), c.vault.Amount, req.Amount)
	}
	if bal := p.ledger.Balance(req.Market, req.Trader); *sideOf(&bal, c.side) < req.Amount {
		return nil, fmt.Errorf("%w: %s %s balance %d < %d",
			ErrInsufficientFunds, req.Trader, c.side, *sideOf(&bal, c.side), req.Amount)
	}

	// 结算指令先构造好，再扣账
	settlement, err := BuildSettlement(c.program, c.market, c.side, req.TokenAccount, req.Amount)
	if err != nil {
		return nil, err
	}
	newBalance, err := p.ledger.debit(req.Market, req.Trader, c.side, req.Amount)
	if err != nil {
		return nil, err
	}
	logger.Infof("[ledger] withdraw id=%s market=%s trader=%s side=%s amount=%d balance=%d",
		req.ID, req.Market, req.Trader, c.side, req.Amount, newBalance)

	res := p.result(req, c, newBalance)
	res.Settlement = settlement
	return res, nil
}

func (p *Processor) result(req *domain.Request, c *checked, newBalance uint64) *Result {
	return &Result{
		Request:    req,
		Side:       c.side,
		Mint:       c.market.Mint(c.side),
		Vault:      c.market.Vault(c.side),
		Decimals:   c.market.Decimals(c.side),
		NewBalance: newBalance,
	}
}

// check 完成全部只读校验：请求 → 市场 → 交易者 TokenAccount（解析 + 分类）→ 金库
func (p *Processor) check(ctx context.Context, req *domain.Request) (*checked, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if req.Amount == 0 {
		return nil, fmt.Errorf("%w: request %s amount is zero", ErrInvalidAmount, req.ID)
	}
	m, err := p.markets.Get(req.Market)
	if err != nil {
		return nil, err
	}

	// 1. 交易者 TokenAccount
	snap, err := p.accounts.Fetch(ctx, req.TokenAccount)
	if err != nil {
		return nil, fmt.Errorf("fetch token account %s: %w", req.TokenAccount, err)
	}
	if !IsTokenProgram(snap.Program) {
		return nil, fmt.Errorf("%w: %s owned by %s", ErrInvalidTokenProgram, req.TokenAccount, snap.Program)
	}
	traderRec, side, err := classifier.ParseAndClassify(snap.Data, m.BaseMint, m.QuoteMint)
	if err != nil {
		return nil, fmt.Errorf("token account %s: %w", req.TokenAccount, err)
	}
	if traderRec.Owner != req.Trader {
		return nil, fmt.Errorf("%w: %s owned by %s, want %s", ErrOwnerMismatch, req.TokenAccount, traderRec.Owner, req.Trader)
	}
	if traderRec.IsFrozen() {
		return nil, fmt.Errorf("%w: %s", ErrAccountFrozen, req.TokenAccount)
	}

	// 2. 金库：必须是本侧金库，mint 一致，同一 token program
	vaultAddr := m.Vault(side)
	if req.TokenAccount == vaultAddr {
		return nil, fmt.Errorf("%w: token account %s is the market vault", ErrWrongVault, vaultAddr)
	}
	vaultSnap, err := p.accounts.Fetch(ctx, vaultAddr)
	if err != nil {
		return nil, fmt.Errorf("fetch vault %s: %w", vaultAddr, err)
	}
	if vaultSnap.Program != snap.Program {
		return nil, fmt.Errorf("%w: vault %s program %s, token account program %s",
			ErrWrongVault, vaultAddr, vaultSnap.Program, snap.Program)
	}
	vaultRec, err := tokenaccount.Parse(vaultSnap.Data)
	if err != nil {
		return nil, fmt.Errorf("vault %s: %w", vaultAddr, err)
	}
	if vaultRec.Mint != m.Mint(side) {
		return nil, fmt.Errorf("%w: vault %s mint %s, want %s", ErrWrongVault, vaultAddr, vaultRec.Mint, m.Mint(side))
	}
	if !m.Authority.IsZero() && vaultRec.Owner != m.Authority {
		return nil, fmt.Errorf("%w: vault %s owner %s, want %s", ErrWrongVault, vaultAddr, vaultRec.Owner, m.Authority)
	}
	if vaultRec.IsFrozen() {
		return nil, fmt.Errorf("%w: vault %s", ErrAccountFrozen, vaultAddr)
	}

	return &checked{market: m, side: side, trader: traderRec, vault: vaultRec, program: snap.Program}, nil
}

// IsTokenProgram 判断 program 是否为 SPL Token 或 Token-2022
func IsTokenProgram(program types.Pubkey) bool {
	return program == consts.TokenProgram || program == consts.TokenProgram2022
}
