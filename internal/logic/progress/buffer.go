package progress

import (
	"sync"
)

type recordBuffer struct {
	mu     sync.Mutex
	buffer []*RequestRecord
}

func newRecordBuffer() *recordBuffer {
	return &recordBuffer{}
}

func (b *recordBuffer) Add(record *RequestRecord) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buffer = append(b.buffer, record)
}

// Has 判断 id 是否在待落库记录中
func (b *recordBuffer) Has(id string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, r := range b.buffer {
		if r.ID == id {
			return true
		}
	}
	return false
}

func (b *recordBuffer) Flush() []*RequestRecord {
	b.mu.Lock()
	defer b.mu.Unlock()

	flushed := b.buffer
	b.buffer = nil // reset
	return flushed
}

func (b *recordBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.buffer)
}
