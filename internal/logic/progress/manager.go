package progress

import (
	"context"
	"time"

	"dex-ledger-sol/pkg/logger"
)

// ProgressManager 统一封装 Redis + DB + 缓存，控制请求判重与写入
type ProgressManager struct {
	status StatusStore
	db     RecordStore // 可为 nil（未配置 Postgres）
	buffer *recordBuffer
}

func NewProgressManager(status StatusStore, db RecordStore) *ProgressManager {
	return &ProgressManager{
		status: status,
		db:     db,
		buffer: newRecordBuffer(),
	}
}

// ShouldProcess 判断请求是否仍需处理：
// - Redis 中已是终态或被他人认领，跳过
// - 已完成但尚未落库（仍在缓冲区），跳过
// - 否则 fallback 到 DB，DB 中已存在则回填 Redis 并跳过
func (pm *ProgressManager) ShouldProcess(ctx context.Context, id string) (bool, error) {
	status, err := pm.status.GetStatus(ctx, id)
	if err != nil {
		return false, err
	}
	if status != StatusUnknown {
		return false, nil
	}
	if pm.buffer.Has(id) {
		_ = pm.status.MarkStatus(ctx, id, StatusProcessed)
		return false, nil
	}

	if pm.db != nil {
		exists, err := pm.db.CheckRequestExists(ctx, id)
		if err != nil {
			return false, err
		}
		if exists {
			_ = pm.status.MarkStatus(ctx, id, StatusProcessed)
			return false, nil
		}
	}
	return true, nil
}

// Claim 在 ShouldProcess 通过后用 SETNX 认领，保证多实例下只有一个处理者
func (pm *ProgressManager) Claim(ctx context.Context, id string) (bool, error) {
	ok, err := pm.ShouldProcess(ctx, id)
	if err != nil || !ok {
		return false, err
	}
	return pm.status.TryClaim(ctx, id)
}

// Complete 记录最终状态（已处理/已拒绝）。
// 先写缓冲区（供后续批量写入 DB），再更新 Redis；Redis 失败时记录仍会落库，
// 调用方可用 MarkStatus 重试状态写入。
func (pm *ProgressManager) Complete(ctx context.Context, record *RequestRecord) error {
	if !record.Status.IsFinal() {
		return nil // Unknown / Pending 不参与记录
	}
	if record.UpdatedAt.IsZero() {
		record.UpdatedAt = time.Now()
	}
	pm.buffer.Add(record)
	return pm.status.MarkStatus(ctx, record.ID, record.Status)
}

// MarkStatus 只更新 Redis 中的状态
func (pm *ProgressManager) MarkStatus(ctx context.Context, id string, status RequestStatus) error {
	return pm.status.MarkStatus(ctx, id, status)
}

// Release 放弃认领（例如 RPC 暂时失败），请求可被重新消费
func (pm *ProgressManager) Release(ctx context.Context, id string) error {
	return pm.status.Release(ctx, id)
}

// Pending 返回尚未落库的记录数
func (pm *ProgressManager) Pending() int {
	return pm.buffer.Len()
}

// Flush 立即把缓冲区写入 DB；未配置 DB 时直接丢弃
func (pm *ProgressManager) Flush(ctx context.Context) error {
	flushed := pm.buffer.Flush()
	if len(flushed) == 0 || pm.db == nil {
		return nil
	}
	if err := pm.db.BatchInsertRecords(ctx, flushed); err != nil {
		// 写失败的记录放回缓冲区，下一轮重试
		for _, r := range flushed {
			pm.buffer.Add(r)
		}
		return err
	}
	return nil
}

// StartFlushLoop 启动后台定时 flush，ctx 取消时做最后一次 flush
func (pm *ProgressManager) StartFlushLoop(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			finalCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			if err := pm.Flush(finalCtx); err != nil {
				logger.Errorf("[progress] final flush failed, %d records lost: %v", pm.Pending(), err)
			}
			cancel()
			return
		case <-ticker.C:
			if err := pm.Flush(ctx); err != nil {
				logger.Warnf("[progress] flush failed, will retry: %v", err)
			}
		}
	}
}
