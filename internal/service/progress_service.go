package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"dex-ledger-sol/internal/logic/progress"
	"dex-ledger-sol/pkg/logger"
)

// RecordCleaner 清理过期的请求记录，*progress.DBProgressStore 即满足
type RecordCleaner interface {
	DeleteOldRecords(ctx context.Context, retain time.Duration) error
}

// ProgressService 定时把请求记录落库，并每小时清理过期记录
type ProgressService struct {
	pm            *progress.ProgressManager
	cleaner       RecordCleaner // 可为 nil
	flushInterval time.Duration
	retain        time.Duration
	ctx           context.Context
	cancel        func(err error)
	wg            sync.WaitGroup
}

func NewProgressService(pm *progress.ProgressManager, cleaner RecordCleaner, flushInterval, retain time.Duration) *ProgressService {
	ctx, cancel := context.WithCancelCause(context.Background())
	return &ProgressService{
		pm:            pm,
		cleaner:       cleaner,
		flushInterval: flushInterval,
		retain:        retain,
		ctx:           ctx,
		cancel:        cancel,
	}
}

func (s *ProgressService) Start() {
	s.wg.Add(1)
	defer s.wg.Done()

	if s.cleaner != nil {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.gcLoop()
		}()
	}
	s.pm.StartFlushLoop(s.ctx, s.flushInterval)
}

func (s *ProgressService) gcLoop() {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			if err := s.cleaner.DeleteOldRecords(s.ctx, s.retain); err != nil {
				logger.Warnf("[ProgressService] gc failed: %v", err)
			}
		}
	}
}

// Stop 需在 LedgerService 之后调用，保证最后一批记录被写入
func (s *ProgressService) Stop() {
	s.cancel(errors.New("ProgressService stop"))
	s.wg.Wait()
}
