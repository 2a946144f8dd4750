package vaultmonitor

import (
	"context"
	"sync"

	"dex-ledger-sol/internal/logic/domain"
	"dex-ledger-sol/internal/types"
	"dex-ledger-sol/pkg/logger"
)

// AlertSink 接收告警（例如发送到 Kafka）
type AlertSink interface {
	PublishAlert(ctx context.Context, alert *Alert) error
}

// Monitor 对每次金库更新做对账，并按 slot 去掉乱序的旧快照
type Monitor struct {
	markets VaultIndex
	totals  TotalsSource
	sink    AlertSink // 可为 nil，仅记录日志

	mu       sync.Mutex
	lastSlot map[types.Pubkey]uint64
}

func NewMonitor(markets VaultIndex, totals TotalsSource, sink AlertSink) *Monitor {
	return &Monitor{
		markets:  markets,
		totals:   totals,
		sink:     sink,
		lastSlot: make(map[types.Pubkey]uint64),
	}
}

// HandleAccount 处理一次账户快照，返回产生的告警（无异常或快照过旧时为 nil）
func (m *Monitor) HandleAccount(ctx context.Context, snap *domain.AccountSnapshot) *Alert {
	if snap.Slot > 0 {
		m.mu.Lock()
		if last := m.lastSlot[snap.Address]; snap.Slot < last {
			m.mu.Unlock()
			return nil
		}
		m.lastSlot[snap.Address] = snap.Slot
		m.mu.Unlock()
	}

	alert := CheckVault(m.markets, m.totals, snap)
	if alert == nil {
		logger.Debugf("[VaultMonitor] vault %s ok at slot %d", snap.Address, snap.Slot)
		return nil
	}

	logger.Warnf("[VaultMonitor] %s: market=%s vault=%s side=%s slot=%d vault_amount=%d ledger_total=%d %s",
		alert.Kind, alert.Market, alert.Vault, alert.Side, alert.Slot, alert.VaultAmount, alert.LedgerTotal, alert.Detail)
	if m.sink != nil {
		if err := m.sink.PublishAlert(ctx, alert); err != nil {
			logger.Errorf("[VaultMonitor] publish alert failed: %v", err)
		}
	}
	return alert
}
