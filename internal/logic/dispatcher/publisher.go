package dispatcher

import (
	"context"
	"fmt"
	"time"

	"dex-ledger-sol/internal/logic/domain"
	"dex-ledger-sol/internal/logic/vaultmonitor"
	"dex-ledger-sol/internal/mq"
)

// KafkaPublisher 把事件编码后发送到事件 topic，同时实现 vaultmonitor.AlertSink
type KafkaPublisher struct {
	producer   mq.MessageProducer
	topic      string
	partitions int
	timeout    time.Duration // 单条消息等待 ack 的超时
}

func NewKafkaPublisher(producer mq.MessageProducer, topic string, partitions int, timeout time.Duration) *KafkaPublisher {
	return &KafkaPublisher{producer: producer, topic: topic, partitions: partitions, timeout: timeout}
}

// Publish 发送事件并等待全部确认，任一失败返回错误
func (p *KafkaPublisher) Publish(ctx context.Context, events ...*domain.Event) error {
	jobs, err := BuildKafkaJobs(p.topic, p.partitions, events)
	if err != nil {
		return err
	}
	_, failed := mq.SendKafkaJobs(ctx, p.producer, jobs, p.timeout)
	if len(failed) > 0 {
		return fmt.Errorf("%d/%d events failed, first: %w", len(failed), len(jobs), failed[0].Err)
	}
	return nil
}

func (p *KafkaPublisher) PublishAlert(ctx context.Context, alert *vaultmonitor.Alert) error {
	return p.Publish(ctx, BuildVaultAlertEvent(alert))
}
