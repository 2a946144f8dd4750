package progress

import (
	"context"
	"sync"
)

// MemoryStatusStore 进程内状态存储，用于未配置 Redis 的单实例部署和测试
type MemoryStatusStore struct {
	mu     sync.Mutex
	status map[string]RequestStatus
}

func NewMemoryStatusStore() *MemoryStatusStore {
	return &MemoryStatusStore{status: make(map[string]RequestStatus)}
}

func (m *MemoryStatusStore) GetStatus(_ context.Context, id string) (RequestStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status[id], nil
}

func (m *MemoryStatusStore) MarkStatus(_ context.Context, id string, status RequestStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if status == StatusUnknown {
		delete(m.status, id)
		return nil
	}
	m.status[id] = status
	return nil
}

func (m *MemoryStatusStore) TryClaim(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.status[id]; ok {
		return false, nil
	}
	m.status[id] = StatusPending
	return true, nil
}

func (m *MemoryStatusStore) Release(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.status, id)
	return nil
}
