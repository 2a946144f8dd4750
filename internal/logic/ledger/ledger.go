package ledger

import (
	"fmt"
	"math/bits"
	"sync"

	"dex-ledger-sol/internal/logic/classifier"
	"dex-ledger-sol/internal/logic/domain"
	"dex-ledger-sol/internal/types"
)

type seatKey struct {
	market types.Pubkey
	trader types.Pubkey
}

// Ledger 维护每个市场内每个交易者的可提余额，以及市场维度的汇总（用于金库对账）。
// deposits 记录已入账的转账签名，同一笔转账只能入账一次。
type Ledger struct {
	mu       sync.RWMutex
	seats    map[seatKey]*domain.Balance
	totals   map[types.Pubkey]*domain.Balance
	deposits map[string]struct{}
}

func NewLedger() *Ledger {
	return &Ledger{
		seats:    make(map[seatKey]*domain.Balance),
		totals:   make(map[types.Pubkey]*domain.Balance),
		deposits: make(map[string]struct{}),
	}
}

func (l *Ledger) Balance(market, trader types.Pubkey) domain.Balance {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if b, ok := l.seats[seatKey{market, trader}]; ok {
		return *b
	}
	return domain.Balance{}
}

// Totals 返回市场内所有交易者余额之和
func (l *Ledger) Totals(market types.Pubkey) domain.Balance {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if b, ok := l.totals[market]; ok {
		return *b
	}
	return domain.Balance{}
}

func sideOf(b *domain.Balance, side classifier.MintClassification) *uint64 {
	if side == classifier.Base {
		return &b.Base
	}
	return &b.Quote
}

// Deposited 判断转账签名是否已入账
func (l *Ledger) Deposited(signature string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.deposits[signature]
	return ok
}

// creditDeposit 以转账签名为凭证入账，同一签名重复入账返回 ErrDuplicateDeposit
func (l *Ledger) creditDeposit(signature string, market, trader types.Pubkey, side classifier.MintClassification, amount uint64) (uint64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.deposits[signature]; ok {
		return 0, fmt.Errorf("%w: %s", ErrDuplicateDeposit, signature)
	}
	newSeat, err := l.creditLocked(market, trader, side, amount)
	if err != nil {
		return newSeat, err
	}
	l.deposits[signature] = struct{}{}
	return newSeat, nil
}

// creditLocked 增加余额，返回新余额。seat 与 total 同时校验溢出，任一溢出都不修改。
func (l *Ledger) creditLocked(market, trader types.Pubkey, side classifier.MintClassification, amount uint64) (uint64, error) {
	seat := l.seatLocked(market, trader)
	total := l.totalLocked(market)
	seatVal, totalVal := sideOf(seat, side), sideOf(total, side)

	newSeat, c1 := bits.Add64(*seatVal, amount, 0)
	newTotal, c2 := bits.Add64(*totalVal, amount, 0)
	if c1 != 0 || c2 != 0 {
		return *seatVal, fmt.Errorf("%w: %s %s + %d", ErrBalanceOverflow, trader, side, amount)
	}
	*seatVal, *totalVal = newSeat, newTotal
	return newSeat, nil
}

// debit 扣减余额，余额不足时不修改
func (l *Ledger) debit(market, trader types.Pubkey, side classifier.MintClassification, amount uint64) (uint64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	seat := l.seatLocked(market, trader)
	seatVal := sideOf(seat, side)
	if *seatVal < amount {
		return *seatVal, fmt.Errorf("%w: %s %s balance %d < %d", ErrInsufficientFunds, trader, side, *seatVal, amount)
	}
	totalVal := sideOf(l.totalLocked(market), side)
	*seatVal -= amount
	*totalVal -= amount
	return *seatVal, nil
}

func (l *Ledger) seatLocked(market, trader types.Pubkey) *domain.Balance {
	k := seatKey{market, trader}
	b, ok := l.seats[k]
	if !ok {
		b = &domain.Balance{}
		l.seats[k] = b
	}
	return b
}

func (l *Ledger) totalLocked(market types.Pubkey) *domain.Balance {
	b, ok := l.totals[market]
	if !ok {
		b = &domain.Balance{}
		l.totals[market] = b
	}
	return b
}
