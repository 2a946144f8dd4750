package utils

import (
	"encoding/binary"
	"errors"
	"fmt"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

const eventTypeSize = 4

// EncodeEvent 将 protobuf 消息编码为带事件类型前缀的二进制数据：
// - 前 4 字节为事件类型（uint32，小端序）
// - 后续为 protobuf 序列化数据（使用 MarshalAppend）
func EncodeEvent(eventType uint32, msg proto.Message) ([]byte, error) {
	const extraBuffer = 32 // 多预留一些空间，降低 MarshalAppend 触发扩容的概率

	buf := make([]byte, eventTypeSize, eventTypeSize+proto.Size(msg)+extraBuffer)
	binary.LittleEndian.PutUint32(buf[:eventTypeSize], eventType)

	opts := proto.MarshalOptions{Deterministic: true}
	result, err := opts.MarshalAppend(buf, msg)
	if err != nil {
		return nil, fmt.Errorf("EncodeEvent: marshal %T: %w", msg, err)
	}
	return result, nil
}

// EncodeFieldsEvent 把字段表转换为 structpb.Struct 后编码。
// 字段值只能是 structpb.NewValue 支持的类型（string、bool、数值、[]any、map[string]any）。
func EncodeFieldsEvent(eventType uint32, fields map[string]any) ([]byte, error) {
	st, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, fmt.Errorf("EncodeFieldsEvent: %w", err)
	}
	return EncodeEvent(eventType, st)
}

// DecodeFieldsEvent 是 EncodeFieldsEvent 的逆操作，供消费方与测试使用
func DecodeFieldsEvent(data []byte) (uint32, *structpb.Struct, error) {
	if len(data) < eventTypeSize {
		return 0, nil, errors.New("DecodeFieldsEvent: data too short")
	}
	eventType := binary.LittleEndian.Uint32(data[:eventTypeSize])
	st := &structpb.Struct{}
	if err := proto.Unmarshal(data[eventTypeSize:], st); err != nil {
		return 0, nil, fmt.Errorf("DecodeFieldsEvent: %w", err)
	}
	return eventType, st, nil
}
