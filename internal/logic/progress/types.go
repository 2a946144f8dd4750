package progress

import (
	"context"
	"time"
)

// RequestStatus 表示请求的处理状态（统一 Redis 与 DB 编码）
type RequestStatus int

const (
	StatusUnknown   RequestStatus = 0 // Redis 不存在
	StatusProcessed RequestStatus = 1 // ✅ 已处理成功
	StatusRejected  RequestStatus = 2 // ❌ 校验失败，确定性拒绝
	StatusPending   RequestStatus = 3 // 🕒 已被某个 worker 认领，暂未完成（仅 Redis 用）
)

func (s RequestStatus) String() string {
	switch s {
	case StatusProcessed:
		return "processed"
	case StatusRejected:
		return "rejected"
	case StatusPending:
		return "pending"
	default:
		return "unknown"
	}
}

// IsFinal 已处理或已拒绝的请求不会再次处理
func (s RequestStatus) IsFinal() bool {
	return s == StatusProcessed || s == StatusRejected
}

// RequestRecord 表示一条待写入 DB 的请求记录
type RequestRecord struct {
	ID        string        // 请求幂等 ID
	Kind      string        // deposit / withdraw
	Market    string        // 市场地址（base58）
	Trader    string        // 交易者（base58）
	Amount    uint64        // 数量（最小单位）
	Status    RequestStatus // 1=已处理，2=已拒绝
	Reason    string        // 拒绝原因，成功时为空
	UpdatedAt time.Time
}

// StatusStore 高频判重存储（Redis / 内存）
type StatusStore interface {
	GetStatus(ctx context.Context, id string) (RequestStatus, error)
	MarkStatus(ctx context.Context, id string, status RequestStatus) error
	// TryClaim 原子地把 Unknown 置为 Pending，返回是否认领成功
	TryClaim(ctx context.Context, id string) (bool, error)
	Release(ctx context.Context, id string) error
}

// RecordStore 持久化存储（Postgres），只做 fallback 查询与批量写入
type RecordStore interface {
	CheckRequestExists(ctx context.Context, id string) (bool, error)
	BatchInsertRecords(ctx context.Context, records []*RequestRecord) error
}
