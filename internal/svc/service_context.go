package svc

import (
	"context"
	"fmt"
	"time"

	"dex-ledger-sol/internal/config"
	"dex-ledger-sol/internal/logic/dispatcher"
	"dex-ledger-sol/internal/logic/ledger"
	"dex-ledger-sol/internal/logic/market"
	"dex-ledger-sol/internal/logic/progress"
	"dex-ledger-sol/internal/mq"
	"dex-ledger-sol/internal/rpc"
	"dex-ledger-sol/pkg/logger"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

// ServiceContext 包含账本服务运行所需的全部资源
type ServiceContext struct {
	Config          config.LedgerConfig
	Markets         *market.Registry
	Ledger          *ledger.Ledger
	Accounts        *rpc.AccountFetcher
	Processor       *ledger.Processor
	Producer        *kafka.Producer
	Consumer        *mq.RequestConsumer
	Publisher       *dispatcher.KafkaPublisher
	ProgressManager *progress.ProgressManager
	ProgressDB      *progress.DBProgressStore // 未配置 Postgres 时为 nil

	rdb  *redis.Client
	pool *pgxpool.Pool
}

// NewServiceContext 按依赖顺序初始化资源，任一步失败都会释放已创建的资源
func NewServiceContext(c config.LedgerConfig) (_ *ServiceContext, err error) {
	sc := &ServiceContext{Config: c}
	defer func() {
		if err != nil {
			sc.Close()
		}
	}()

	// 1. 市场注册表
	if sc.Markets, err = market.LoadRegistry(c.MarketsFile); err != nil {
		return nil, err
	}
	logger.Infof("已加载 %d 个市场: %s", len(sc.Markets.All()), c.MarketsFile)

	// 2. RPC 与账本
	if sc.Accounts, err = rpc.NewAccountFetcher(c.Rpc.Endpoint, config.Millis(c.Rpc.TimeoutMs)); err != nil {
		return nil, err
	}
	sc.Ledger = ledger.NewLedger()
	sc.Processor = ledger.NewProcessor(sc.Markets, sc.Accounts, sc.Accounts, sc.Ledger)

	// 3. 进度管理（Redis 判重 + Postgres 落库，均可选）
	if err = sc.initProgress(c); err != nil {
		return nil, err
	}

	// 4. Kafka
	if sc.Producer, err = mq.NewKafkaProducer(c.KafkaConf.ToProducerOption()); err != nil {
		logger.Errorf("Kafka producer 初始化失败: %v", err)
		return nil, err
	}
	if sc.Consumer, err = mq.NewRequestConsumer(c.KafkaConf.ToConsumerOption()); err != nil {
		logger.Errorf("Kafka consumer 初始化失败: %v", err)
		return nil, err
	}
	sc.Publisher = dispatcher.NewKafkaPublisher(sc.Producer, c.KafkaConf.Topics.Events,
		c.KafkaConf.Partitions.Events, config.Millis(c.TimeConf.EventSendTimeoutMs))

	logger.Infof("账本服务上下文初始化完成")
	return sc, nil
}

func (sc *ServiceContext) initProgress(c config.LedgerConfig) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var status progress.StatusStore
	if c.RedisConf.Addr != "" {
		sc.rdb = redis.NewClient(&redis.Options{
			Addr:     c.RedisConf.Addr,
			Password: c.RedisConf.Password,
			DB:       c.RedisConf.DB,
		})
		if err := sc.rdb.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis ping %s: %w", c.RedisConf.Addr, err)
		}
		status = progress.NewRedisProgressStore(sc.rdb)
	} else {
		logger.Warnf("未配置 Redis，使用进程内判重（仅适合单实例）")
		status = progress.NewMemoryStatusStore()
	}

	var records progress.RecordStore
	if c.Postgres.DSN != "" {
		poolCfg, err := pgxpool.ParseConfig(c.Postgres.DSN)
		if err != nil {
			return fmt.Errorf("parse postgres dsn: %w", err)
		}
		if c.Postgres.MaxConns > 0 {
			poolCfg.MaxConns = c.Postgres.MaxConns
		}
		if sc.pool, err = pgxpool.NewWithConfig(ctx, poolCfg); err != nil {
			return fmt.Errorf("PostgreSQL 连接失败: %w", err)
		}
		sc.ProgressDB = progress.NewDBProgressStore(sc.pool)
		if err := sc.ProgressDB.EnsureSchema(ctx); err != nil {
			return err
		}
		records = sc.ProgressDB
	}

	sc.ProgressManager = progress.NewProgressManager(status, records)
	return nil
}

// Close 关闭服务上下文中的资源
func (sc *ServiceContext) Close() {
	if sc.Consumer != nil {
		_ = sc.Consumer.Close()
	}
	if sc.Producer != nil {
		sc.Producer.Flush(5000)
		sc.Producer.Close()
	}
	if sc.rdb != nil {
		_ = sc.rdb.Close()
	}
	if sc.pool != nil {
		sc.pool.Close()
	}
}
