package config

import (
	"time"

	"dex-ledger-sol/internal/logic/vaultmonitor"
	"dex-ledger-sol/internal/mq"
	"dex-ledger-sol/pkg/logger"
)

type LogConfig struct {
	Format   string `json:"format,default=console"` // 日志格式，支持 "console" 或 "json"
	LogDir   string `json:"log_dir,default=logs"`   // 日志目录（可为相对路径或绝对路径）
	Level    string `json:"level,default=info"`     // 日志级别：debug / info / warn / error
	Compress bool   `json:"compress,optional"`      // 是否压缩旧日志文件
}

func (c *LogConfig) ToLogOption() logger.LogOption {
	return logger.LogOption{
		Format:   c.Format,
		LogDir:   c.LogDir,
		Level:    c.Level,
		Compress: c.Compress,
	}
}

// KafkaConfig 表示 Kafka 生产/消费相关配置
type KafkaConfig struct {
	Brokers   string `json:"brokers"`                         // Kafka broker 地址，多个用英文逗号分隔
	GroupID   string `json:"group_id,default=dex-ledger-sol"` // 请求消费组
	BatchSize int    `json:"batch_size,optional"`             // 批处理大小（单位字节）
	LingerMs  int    `json:"linger_ms,default=5"`             // 批处理最大延迟（毫秒）

	Topics struct {
		Requests string `json:"requests"` // 充值/提现请求 topic
		Events   string `json:"events"`   // 结果与告警事件 topic
	} `json:"topics"`

	Partitions struct {
		Requests int `json:"requests,default=1"` // requests topic 的分区数
		Events   int `json:"events,default=8"`   // events topic 的分区数
	} `json:"partitions,optional"`
}

func (c *KafkaConfig) ToProducerOption() mq.KafkaProducerOption {
	return mq.KafkaProducerOption{
		Brokers:   c.Brokers,
		BatchSize: c.BatchSize,
		LingerMs:  c.LingerMs,
		Topics: []mq.TopicSpec{
			{Topic: c.Topics.Requests, Partitions: c.Partitions.Requests},
			{Topic: c.Topics.Events, Partitions: c.Partitions.Events},
		},
	}
}

func (c *KafkaConfig) ToConsumerOption() mq.KafkaConsumerOption {
	return mq.KafkaConsumerOption{
		Brokers: c.Brokers,
		GroupID: c.GroupID,
		Topics:  []string{c.Topics.Requests},
	}
}

// RedisConfig 为空地址时使用进程内判重
type RedisConfig struct {
	Addr     string `json:"addr,optional"`
	Password string `json:"password,optional"`
	DB       int    `json:"db,optional"`
}

// PostgresConfig 为空 DSN 时不落库
type PostgresConfig struct {
	DSN             string `json:"dsn,optional"`
	MaxConns        int32  `json:"max_conns,default=8"`
	RetainHours     int    `json:"retain_hours,default=720"`       // 请求记录保留时长
	FlushIntervalMs int    `json:"flush_interval_ms,default=1000"` // 缓冲区落库间隔
}

type RpcConfig struct {
	Endpoint  string `json:"endpoint"`
	TimeoutMs int    `json:"timeout_ms,default=5000"`
}

// GrpcConfig Yellowstone gRPC 配置，Endpoint 为空时不启动金库监控
type GrpcConfig struct {
	Endpoint string `json:"endpoint,optional"` // gRPC 服务端地址
	XToken   string `json:"x_token,optional"`  // x-token 认证

	StreamPingIntervalSec    int `json:"stream_ping_interval_sec,default=10"`    // 应用层 ping 心跳间隔（秒）
	KeepalivePingIntervalSec int `json:"keepalive_ping_interval_sec,default=30"` // 底层 keepalive 间隔（秒）
	KeepalivePingTimeoutSec  int `json:"keepalive_ping_timeout_sec,default=10"`  // 底层 keepalive 超时（秒）

	InitialWindowSize     int `json:"initial_window_size,optional"`      // 单流窗口大小（字节）
	InitialConnWindowSize int `json:"initial_conn_window_size,optional"` // 整体连接窗口大小（字节）
	MaxCallSendMsgSize    int `json:"max_call_send_msg_size,optional"`   // 单条消息最大发送字节数
	MaxCallRecvMsgSize    int `json:"max_call_recv_msg_size,optional"`   // 单条消息最大接收字节数

	ReconnectIntervalSec int `json:"reconnect_interval_sec,default=2"` // 重连最小间隔（秒）
	ConnectTimeoutSec    int `json:"connect_timeout_sec,default=10"`   // 连接建立超时（秒）
	SendTimeoutSec       int `json:"send_timeout_sec,default=5"`       // 发送超时（秒）
	IdleTimeoutSec       int `json:"idle_timeout_sec,default=120"`     // 无更新超时重连（秒）
}

func (c *GrpcConfig) ToStreamOption() vaultmonitor.StreamOption {
	return vaultmonitor.StreamOption{
		Endpoint:                 c.Endpoint,
		XToken:                   c.XToken,
		StreamPingIntervalSec:    c.StreamPingIntervalSec,
		KeepalivePingIntervalSec: c.KeepalivePingIntervalSec,
		KeepalivePingTimeoutSec:  c.KeepalivePingTimeoutSec,
		InitialWindowSize:        c.InitialWindowSize,
		InitialConnWindowSize:    c.InitialConnWindowSize,
		MaxCallSendMsgSize:       c.MaxCallSendMsgSize,
		MaxCallRecvMsgSize:       c.MaxCallRecvMsgSize,
		ReconnectIntervalSec:     c.ReconnectIntervalSec,
		ConnectTimeoutSec:        c.ConnectTimeoutSec,
		SendTimeoutSec:           c.SendTimeoutSec,
		IdleTimeoutSec:           c.IdleTimeoutSec,
	}
}

// TimeConfig 表示各种超时配置（单位：毫秒）
type TimeConfig struct {
	RequestTimeoutMs   int `json:"request_timeout_ms,default=10000"`   // 单个请求处理最大耗时（RPC + Redis）
	EventSendTimeoutMs int `json:"event_send_timeout_ms,default=5000"` // 单条事件发送到 Kafka 并等待 ack 的超时时间
	PollTimeoutMs      int `json:"poll_timeout_ms,default=500"`        // 拉取请求的等待时间
}

// LedgerConfig 是主配置结构体，用于驱动账本服务
type LedgerConfig struct {
	LogConf     LogConfig      `json:"logger"`
	KafkaConf   KafkaConfig    `json:"kafka"`
	RedisConf   RedisConfig    `json:"redis,optional"`
	Postgres    PostgresConfig `json:"postgres,optional"`
	Rpc         RpcConfig      `json:"rpc"`
	Grpc        GrpcConfig     `json:"grpc,optional"`
	TimeConf    TimeConfig     `json:"time_conf,optional"`
	MarketsFile string         `json:"markets_file,default=etc/markets.yaml"`
}

// ApplyDefaults 兜底 go-zero 未覆盖的零值（如测试中直接构造配置）
func (c *LedgerConfig) ApplyDefaults() {
	if c.Rpc.TimeoutMs <= 0 {
		c.Rpc.TimeoutMs = 5000
	}
	if c.TimeConf.RequestTimeoutMs <= 0 {
		c.TimeConf.RequestTimeoutMs = 10000
	}
	if c.TimeConf.EventSendTimeoutMs <= 0 {
		c.TimeConf.EventSendTimeoutMs = 5000
	}
	if c.TimeConf.PollTimeoutMs <= 0 {
		c.TimeConf.PollTimeoutMs = 500
	}
	if c.Postgres.FlushIntervalMs <= 0 {
		c.Postgres.FlushIntervalMs = 1000
	}
	if c.Postgres.RetainHours <= 0 {
		c.Postgres.RetainHours = 720
	}
	if c.KafkaConf.Partitions.Events <= 0 {
		c.KafkaConf.Partitions.Events = 8
	}
	if c.MarketsFile == "" {
		c.MarketsFile = "etc/markets.yaml"
	}
}

func Millis(ms int) time.Duration {
	return time.Duration(ms) * time.Millisecond
}
