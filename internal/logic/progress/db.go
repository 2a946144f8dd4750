package progress

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"dex-ledger-sol/pkg/logger"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DBProgressStore 管理请求记录的 DB 存储
// 写入用于持久记录处理结果，服务恢复后可用
// 不做高频幂等判重，只 fallback 使用
type DBProgressStore struct {
	pool *pgxpool.Pool
}

const schemaSQL = `
CREATE TABLE IF NOT EXISTS progress_request (
	id         TEXT PRIMARY KEY,
	kind       TEXT        NOT NULL,
	market     TEXT        NOT NULL,
	trader     TEXT        NOT NULL,
	amount     NUMERIC(20) NOT NULL,
	status     SMALLINT    NOT NULL,
	reason     TEXT        NOT NULL DEFAULT '',
	updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
)`

func NewDBProgressStore(pool *pgxpool.Pool) *DBProgressStore {
	return &DBProgressStore{pool: pool}
}

// EnsureSchema 建表（幂等）
func (d *DBProgressStore) EnsureSchema(ctx context.Context) error {
	if _, err := d.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create progress_request table: %w", err)
	}
	return nil
}

// CheckRequestExists 判定某请求是否已存在于 DB 中
func (d *DBProgressStore) CheckRequestExists(ctx context.Context, id string) (bool, error) {
	var dummy int
	err := d.pool.QueryRow(ctx, `SELECT 1 FROM progress_request WHERE id = $1`, id).Scan(&dummy)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check request exists error: %w", err)
	}
	return true, nil
}

// BatchInsertRecords 批量插入请求记录，按 batchLimit 分批写入数据库。
// 如果 id 冲突，交由 insertChunk 中的 ON CONFLICT 策略处理。
func (d *DBProgressStore) BatchInsertRecords(ctx context.Context, records []*RequestRecord) error {
	if len(records) == 0 {
		return nil
	}

	const batchLimit = 1000
	for i := 0; i < len(records); i += batchLimit {
		end := min(i+batchLimit, len(records))
		if err := d.insertChunk(ctx, records[i:end]); err != nil {
			return err
		}
	}
	return nil
}

// insertChunk 插入一批请求记录（最多 1000 条）。
// 若主键冲突，仅更新 status、reason 和 updated_at 字段。
func (d *DBProgressStore) insertChunk(ctx context.Context, records []*RequestRecord) error {
	const cols = 7
	var sb strings.Builder
	sb.WriteString(`INSERT INTO progress_request (id, kind, market, trader, amount, status, reason, updated_at) VALUES `)
	args := make([]any, 0, len(records)*cols)

	for i, r := range records {
		if i > 0 {
			sb.WriteByte(',')
		}
		n := i * cols
		fmt.Fprintf(&sb, "($%d,$%d,$%d,$%d,$%d,$%d,$%d,CURRENT_TIMESTAMP)", n+1, n+2, n+3, n+4, n+5, n+6, n+7)
		args = append(args, r.ID, r.Kind, r.Market, r.Trader, strconv.FormatUint(r.Amount, 10), int16(r.Status), r.Reason)
	}
	sb.WriteString(` ON CONFLICT (id) DO UPDATE SET
	status = EXCLUDED.status,
	reason = EXCLUDED.reason,
	updated_at = CURRENT_TIMESTAMP`)

	if _, err := d.pool.Exec(ctx, sb.String(), args...); err != nil {
		return fmt.Errorf("insert %d request records: %w", len(records), err)
	}
	return nil
}

// DeleteOldRecords 删除 retain 之前的记录（用于进度 GC）。
// 为防止锁表和长事务，采用分批删除（每批最多 1000 条）。
func (d *DBProgressStore) DeleteOldRecords(ctx context.Context, retain time.Duration) error {
	cutoff := time.Now().Add(-retain)
	const batchSize = 1000
	for {
		tag, err := d.pool.Exec(ctx,
			`DELETE FROM progress_request WHERE id IN (
				SELECT id FROM progress_request WHERE updated_at < $1 LIMIT $2)`,
			cutoff, batchSize,
		)
		if err != nil {
			return fmt.Errorf("delete old requests failed: %w", err)
		}

		// 没有更多记录可删，提前退出
		n := tag.RowsAffected()
		if n == 0 {
			return nil
		}
		logger.Infof("[GC] deleted %d old progress rows", n)
	}
}
