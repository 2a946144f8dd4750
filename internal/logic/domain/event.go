package domain

// 事件类型，作为 Kafka 消息前 4 字节
const (
	EventTypeDeposit    uint32 = 1
	EventTypeWithdraw   uint32 = 2
	EventTypeRejected   uint32 = 3
	EventTypeVaultAlert uint32 = 4
)

// Event 是一条待发送的业务事件
type Event struct {
	EventType uint32         // 枚举型，表示事件类别
	Key       []byte         // Kafka 分区 key，通常为 trader 或 vault
	Fields    map[string]any // 事件内容，编码为 protobuf Struct
}
