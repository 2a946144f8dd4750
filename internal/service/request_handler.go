package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"dex-ledger-sol/internal/logic/dispatcher"
	"dex-ledger-sol/internal/logic/domain"
	"dex-ledger-sol/internal/logic/ledger"
	"dex-ledger-sol/internal/logic/progress"
	"dex-ledger-sol/internal/mq"
	"dex-ledger-sol/pkg/logger"
)

// EventPublisher 发送业务事件，*dispatcher.KafkaPublisher 即满足
type EventPublisher interface {
	Publish(ctx context.Context, events ...*domain.Event) error
}

// RequestProcessor 执行充值/提现，*ledger.Processor 即满足
type RequestProcessor interface {
	Process(ctx context.Context, req *domain.Request) (*ledger.Result, error)
}

const (
	publishRetries = 3
	statusRetries  = 3
)

// RequestHandler 处理单条请求消息：解码 → 认领 → 执行 → 记录状态 → 发送事件。
// 返回错误表示暂时性失败，调用方应稍后重试同一条消息。
type RequestHandler struct {
	processor RequestProcessor
	progress  *progress.ProgressManager
	publisher EventPublisher
	timeout   time.Duration
}

func NewRequestHandler(processor RequestProcessor, pm *progress.ProgressManager, publisher EventPublisher, timeout time.Duration) *RequestHandler {
	return &RequestHandler{processor: processor, progress: pm, publisher: publisher, timeout: timeout}
}

func (h *RequestHandler) Handle(ctx context.Context, raw []byte) error {
	req, err := mq.DecodeRequest(raw)
	if err != nil {
		// 格式错误的消息无法重试成功，直接丢弃
		logger.Warnf("[RequestHandler] drop malformed request: %v", err)
		return nil
	}

	claimed, err := h.progress.Claim(ctx, req.ID)
	if err != nil {
		return fmt.Errorf("claim %s: %w", req.ID, err)
	}
	if !claimed {
		logger.Debugf("[RequestHandler] skip duplicate request %s", req.ID)
		return nil
	}

	procCtx, cancel := context.WithTimeout(ctx, h.timeout)
	res, procErr := h.processor.Process(procCtx, req)
	cancel()

	record := &progress.RequestRecord{
		ID:     req.ID,
		Kind:   string(req.Kind),
		Market: req.Market.String(),
		Trader: req.Trader.String(),
		Amount: req.Amount,
	}

	var event *domain.Event
	switch {
	case procErr == nil:
		record.Status = progress.StatusProcessed
		event = dispatcher.BuildResultEvent(res)
	case dispatcher.RejectReason(procErr) == dispatcher.ReasonInternal:
		// 暂时性失败（RPC 超时等），放弃认领，交给重试
		if err := h.progress.Release(ctx, req.ID); err != nil {
			logger.Errorf("[RequestHandler] release %s failed: %v", req.ID, err)
		}
		return fmt.Errorf("process %s: %w", req.ID, procErr)
	default:
		record.Status = progress.StatusRejected
		record.Reason = dispatcher.RejectReason(procErr)
		event = dispatcher.BuildRejectedEvent(req, procErr)
		logger.Infof("[RequestHandler] reject %s: %v", req.ID, procErr)
	}

	// 账本已修改，必须先落状态，避免重复执行。
	// Complete 失败时记录已进入落库缓冲区，这里只需重试 Redis 状态。
	statusErr := h.progress.Complete(ctx, record)
	if statusErr != nil {
		statusErr = h.retryMarkStatus(ctx, record.ID, record.Status, statusErr)
	}
	h.publish(ctx, req.ID, event)
	if statusErr != nil {
		// 不提交该消息；重投时 ShouldProcess 会在缓冲区或 DB 中找到记录而跳过
		return fmt.Errorf("mark %s %s: %w", req.ID, record.Status, statusErr)
	}
	return nil
}

func (h *RequestHandler) retryMarkStatus(ctx context.Context, id string, status progress.RequestStatus, err error) error {
	for i := 0; i < statusRetries; i++ {
		logger.Warnf("[RequestHandler] mark %s %s failed (attempt %d): %v", id, status, i+1, err)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(i+1) * 100 * time.Millisecond):
		}
		if err = h.progress.MarkStatus(ctx, id, status); err == nil {
			return nil
		}
	}
	logger.Errorf("[RequestHandler] mark %s %s failed: %v", id, status, err)
	return err
}

// publish 有限次重试；最终失败只记录日志，不回滚账本
func (h *RequestHandler) publish(ctx context.Context, id string, event *domain.Event) {
	var err error
	for i := 0; i < publishRetries; i++ {
		if err = h.publisher.Publish(ctx, event); err == nil {
			return
		}
		if errors.Is(err, context.Canceled) {
			break
		}
		logger.Warnf("[RequestHandler] publish event for %s failed (attempt %d): %v", id, i+1, err)
		time.Sleep(time.Duration(i+1) * 100 * time.Millisecond)
	}
	logger.Errorf("[RequestHandler] event for %s lost: %v", id, err)
}
