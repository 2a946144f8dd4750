package mq

import (
	"errors"
	"fmt"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
)

type KafkaConsumerOption struct {
	Brokers string
	GroupID string
	Topics  []string
}

// RequestConsumer 从请求 topic 拉取消息，处理完成后手动提交 offset
type RequestConsumer struct {
	consumer *kafka.Consumer
}

func NewRequestConsumer(opt KafkaConsumerOption) (*RequestConsumer, error) {
	consumer, err := kafka.NewConsumer(&kafka.ConfigMap{
		"bootstrap.servers":     opt.Brokers,
		"group.id":              opt.GroupID,
		"client.id":             clientID("consumer"),
		"auto.offset.reset":     "earliest",
		"enable.auto.commit":    false, // 处理完成才提交，保证至少一次
		"session.timeout.ms":    10000,
		"heartbeat.interval.ms": 3000,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create consumer: %w", err)
	}
	if err := consumer.SubscribeTopics(opt.Topics, nil); err != nil {
		_ = consumer.Close()
		return nil, fmt.Errorf("failed to subscribe %v: %w", opt.Topics, err)
	}
	return &RequestConsumer{consumer: consumer}, nil
}

// Poll 读取一条消息；超时返回 (nil, nil)
func (c *RequestConsumer) Poll(timeout time.Duration) (*kafka.Message, error) {
	msg, err := c.consumer.ReadMessage(timeout)
	if err != nil {
		var kerr kafka.Error
		if errors.As(err, &kerr) && kerr.Code() == kafka.ErrTimedOut {
			return nil, nil
		}
		return nil, err
	}
	return msg, nil
}

func (c *RequestConsumer) Commit(msg *kafka.Message) error {
	_, err := c.consumer.CommitMessage(msg)
	return err
}

func (c *RequestConsumer) Close() error {
	return c.consumer.Close()
}
