package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"dex-ledger-sol/internal/logic/domain"
	"dex-ledger-sol/internal/logic/vaultmonitor"
	"dex-ledger-sol/internal/types"
	"dex-ledger-sol/pkg/logger"
)

// SnapshotFetcher 批量抓取账户，*rpc.AccountFetcher 即满足
type SnapshotFetcher interface {
	FetchMany(ctx context.Context, addrs []types.Pubkey) ([]*domain.AccountSnapshot, error)
}

// VaultStream 金库推送流，*vaultmonitor.VaultStreamManager 即满足
type VaultStream interface {
	Start()
	Stop()
}

// VaultMonitorService 启动时先用 RPC 做一次全量对账，之后依赖 gRPC 推送增量对账
type VaultMonitorService struct {
	monitor *vaultmonitor.Monitor
	fetcher SnapshotFetcher
	stream  VaultStream // 可为 nil，仅做启动对账
	vaults  []types.Pubkey
	ctx     context.Context
	cancel  func(err error)
}

func NewVaultMonitorService(monitor *vaultmonitor.Monitor, fetcher SnapshotFetcher, stream VaultStream, vaults []types.Pubkey) *VaultMonitorService {
	ctx, cancel := context.WithCancelCause(context.Background())
	return &VaultMonitorService{
		monitor: monitor,
		fetcher: fetcher,
		stream:  stream,
		vaults:  vaults,
		ctx:     ctx,
		cancel:  cancel,
	}
}

func (s *VaultMonitorService) Start() {
	const retryCount = 3
	for i := 0; i <= retryCount; i++ {
		n, err := s.InitialCheck(s.ctx)
		if err == nil {
			logger.Infof("[VaultMonitorService] 初始对账完成, 金库数: %d, 告警数: %d", len(s.vaults), n)
			break
		}
		logger.Warnf("[VaultMonitorService] 第 %d 次初始对账失败: %v", i+1, err)
		select {
		case <-s.ctx.Done():
			return
		case <-time.After(2 * time.Second):
		}
	}
	if s.stream != nil {
		s.stream.Start()
	}
}

// InitialCheck 通过 RPC 抓取所有金库并对账，返回告警数
func (s *VaultMonitorService) InitialCheck(ctx context.Context) (int, error) {
	snaps, err := s.fetcher.FetchMany(ctx, s.vaults)
	if err != nil {
		return 0, fmt.Errorf("fetch vaults: %w", err)
	}
	alerts := 0
	for i, snap := range snaps {
		if snap == nil {
			// 金库不存在，按无效数据告警
			snap = &domain.AccountSnapshot{Address: s.vaults[i]}
		}
		if s.monitor.HandleAccount(ctx, snap) != nil {
			alerts++
		}
	}
	return alerts, nil
}

func (s *VaultMonitorService) Stop() {
	s.cancel(errors.New("VaultMonitorService stop"))
	if s.stream != nil {
		s.stream.Stop()
	}
}
