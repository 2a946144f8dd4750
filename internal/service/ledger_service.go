package service

import (
	"context"
	"errors"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"dex-ledger-sol/pkg/logger"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
)

// RequestSource 请求消息来源，*mq.RequestConsumer 即满足
type RequestSource interface {
	Poll(timeout time.Duration) (*kafka.Message, error)
	Commit(msg *kafka.Message) error
	Close() error
}

const (
	minRetryBackoff = 200 * time.Millisecond
	maxRetryBackoff = 10 * time.Second
)

// LedgerService 顺序消费请求 topic，每条消息处理成功（或确定性拒绝）后才提交 offset
type LedgerService struct {
	source      RequestSource
	handler     *RequestHandler
	pollTimeout time.Duration
	ctx         context.Context
	cancel      func(err error)
	done        chan struct{}
	started     atomic.Bool
	stopOnce    sync.Once
}

func NewLedgerService(source RequestSource, handler *RequestHandler, pollTimeout time.Duration) *LedgerService {
	ctx, cancel := context.WithCancelCause(context.Background())
	return &LedgerService{
		source:      source,
		handler:     handler,
		pollTimeout: pollTimeout,
		ctx:         ctx,
		cancel:      cancel,
		done:        make(chan struct{}),
	}
}

func (s *LedgerService) Start() {
	if !s.started.CompareAndSwap(false, true) {
		return
	}
	defer close(s.done)
	logger.Infof("[LedgerService] started")

	for s.ctx.Err() == nil {
		msg, err := s.source.Poll(s.pollTimeout)
		if err != nil {
			logger.Warnf("[LedgerService] poll error: %v", err)
			s.sleep(minRetryBackoff)
			continue
		}
		if msg == nil {
			continue
		}
		if !s.handleWithRetry(msg) {
			return // 已停止，不提交
		}
		if err := s.source.Commit(msg); err != nil {
			logger.Warnf("[LedgerService] commit offset %v failed: %v", msg.TopicPartition, err)
		}
	}
}

// handleWithRetry 对暂时性错误指数退避重试，直到成功或服务停止
func (s *LedgerService) handleWithRetry(msg *kafka.Message) bool {
	backoff := minRetryBackoff
	for {
		err := s.safeHandle(msg.Value)
		if err == nil {
			return true
		}
		if s.ctx.Err() != nil {
			return false
		}
		logger.Warnf("[LedgerService] handle %v failed, retry in %v: %v", msg.TopicPartition, backoff, err)
		if !s.sleep(backoff) {
			return false
		}
		backoff = min(backoff*2, maxRetryBackoff)
	}
}

func (s *LedgerService) safeHandle(raw []byte) (err error) {
	defer func() {
		if r := recover(); r != nil {
			// 必现的 panic 重试无意义，丢弃该消息
			logger.Errorf("[LedgerService] handle panic, drop message: %v\n%s", r, debug.Stack())
			err = nil
		}
	}()
	return s.handler.Handle(s.ctx, raw)
}

func (s *LedgerService) sleep(d time.Duration) bool {
	select {
	case <-s.ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}

func (s *LedgerService) Stop() {
	s.stopOnce.Do(func() {
		s.cancel(errors.New("LedgerService stop"))
		if s.started.Load() {
			<-s.done
		}
		if err := s.source.Close(); err != nil {
			logger.Warnf("[LedgerService] close consumer: %v", err)
		}
		logger.Infof("[LedgerService] stopped")
	})
}
