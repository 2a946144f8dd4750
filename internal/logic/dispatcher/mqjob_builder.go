package dispatcher

import (
	"fmt"

	"dex-ledger-sol/internal/logic/domain"
	"dex-ledger-sol/internal/mq"
	"dex-ledger-sol/internal/utils"
)

// BuildKafkaJobs 把事件编码为 KafkaJob，分区由事件 Key 决定，
// 同一 trader（或 vault）的事件总是进入同一分区，保证顺序。
// 构建后的 []*mq.KafkaJob 可直接传入 mq.SendKafkaJobs 发送。
func BuildKafkaJobs(topic string, partitions int, events []*domain.Event) ([]*mq.KafkaJob, error) {
	if partitions <= 0 {
		partitions = 1
	}
	jobs := make([]*mq.KafkaJob, 0, len(events))
	for _, evt := range events {
		value, err := utils.EncodeFieldsEvent(evt.EventType, evt.Fields)
		if err != nil {
			return nil, fmt.Errorf("encode event type %d: %w", evt.EventType, err)
		}
		jobs = append(jobs, &mq.KafkaJob{
			Topic:     topic,
			Partition: int32(utils.PartitionHashBytes(evt.Key, uint32(partitions))),
			Key:       evt.Key,
			Value:     value,
		})
	}
	return jobs, nil
}
