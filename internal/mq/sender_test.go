package mq

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testTopic = "test-topic"

// fakeProducer 按 mode 模拟 broker 行为
type fakeProducer struct {
	mu   sync.Mutex
	mode string // ok / silent / reject / broker_error
	sent []*kafka.Message
}

func (f *fakeProducer) Produce(msg *kafka.Message, ch chan kafka.Event) error {
	f.mu.Lock()
	f.sent = append(f.sent, msg)
	f.mu.Unlock()

	switch f.mode {
	case "reject":
		return errors.New("queue full")
	case "silent":
		return nil
	case "broker_error":
		go func() {
			m := *msg
			m.TopicPartition.Error = kafka.NewError(kafka.ErrMsgSizeTooLarge, "too large", false)
			ch <- &m
		}()
	default:
		go func() { ch <- msg }()
	}
	return nil
}

func testJobs(n int) []*KafkaJob {
	jobs := make([]*KafkaJob, n)
	for i := range jobs {
		jobs[i] = &KafkaJob{
			Topic:     testTopic,
			Partition: int32(i % 3),
			Key:       []byte(fmt.Sprintf("k-%d", i)),
			Value:     []byte(fmt.Sprintf("test message %d", i)),
		}
	}
	return jobs
}

func TestSendKafkaJobs_OK(t *testing.T) {
	p := &fakeProducer{mode: "ok"}
	ok, failed := SendKafkaJobs(context.Background(), p, testJobs(10), time.Second)
	assert.Len(t, ok, 10)
	assert.Empty(t, failed)

	require.Len(t, p.sent, 10)
	for _, m := range p.sent {
		assert.Equal(t, testTopic, *m.TopicPartition.Topic)
		assert.NotEmpty(t, m.Key)
	}
}

func TestSendKafkaJobs_Empty(t *testing.T) {
	ok, failed := SendKafkaJobs(context.Background(), &fakeProducer{}, nil, time.Second)
	assert.Empty(t, ok)
	assert.Empty(t, failed)
}

func TestSendKafkaJobs_Timeout(t *testing.T) {
	ok, failed := SendKafkaJobs(context.Background(), &fakeProducer{mode: "silent"}, testJobs(2), 10*time.Millisecond)
	assert.Empty(t, ok)
	require.Len(t, failed, 2)
	assert.ErrorIs(t, failed[0].Err, ErrDeliveryTimeout)
}

func TestSendKafkaJobs_CtxCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	ok, failed := SendKafkaJobs(ctx, &fakeProducer{mode: "silent"}, testJobs(1), time.Second)
	assert.Empty(t, ok)
	require.Len(t, failed, 1)
	assert.ErrorIs(t, failed[0].Err, context.Canceled)
}

func TestSendKafkaJobs_Errors(t *testing.T) {
	_, failed := SendKafkaJobs(context.Background(), &fakeProducer{mode: "reject"}, testJobs(1), time.Second)
	require.Len(t, failed, 1)
	assert.Contains(t, failed[0].Err.Error(), "produce error")

	_, failed = SendKafkaJobs(context.Background(), &fakeProducer{mode: "broker_error"}, testJobs(1), time.Second)
	require.Len(t, failed, 1)
	var kerr kafka.Error
	require.ErrorAs(t, failed[0].Err, &kerr)
	assert.Equal(t, kafka.ErrMsgSizeTooLarge, kerr.Code())
}

// 需要本地 Kafka，不可用时跳过
func TestSendKafkaJobs_RealKafka(t *testing.T) {
	const brokers = "127.0.0.1:9092"
	admin, err := kafka.NewAdminClient(&kafka.ConfigMap{"bootstrap.servers": brokers})
	require.NoError(t, err)
	_, err = admin.GetMetadata(nil, false, 1000)
	admin.Close()
	if err != nil {
		t.Skipf("kafka not available: %v", err)
	}

	producer, err := kafka.NewProducer(&kafka.ConfigMap{
		"bootstrap.servers":        brokers,
		"acks":                     "all",
		"allow.auto.create.topics": true,
	})
	require.NoError(t, err)
	defer producer.Close()

	jobs := testJobs(2)
	for _, j := range jobs {
		j.Partition = kafka.PartitionAny
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	ok, failed := SendKafkaJobs(ctx, producer, jobs, 3*time.Second)
	assert.Len(t, ok, 2)
	assert.Empty(t, failed)
	producer.Flush(1000)
}
