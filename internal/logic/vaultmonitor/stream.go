package vaultmonitor

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"dex-ledger-sol/internal/logic/domain"
	"dex-ledger-sol/internal/types"
	"dex-ledger-sol/pkg/logger"

	pb "github.com/rpcpool/yellowstone-grpc/examples/golang/proto"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/keepalive"
	"google.golang.org/grpc/metadata"
)

// StreamOption Yellowstone gRPC 连接参数（秒/字节）
type StreamOption struct {
	Endpoint string
	XToken   string

	StreamPingIntervalSec    int
	KeepalivePingIntervalSec int
	KeepalivePingTimeoutSec  int
	InitialWindowSize        int
	InitialConnWindowSize    int
	MaxCallSendMsgSize       int
	MaxCallRecvMsgSize       int
	ReconnectIntervalSec     int
	ConnectTimeoutSec        int
	SendTimeoutSec           int
	IdleTimeoutSec           int // 超过该时间未收到任何更新则重连
}

// AccountHandler 处理一次账户更新
type AccountHandler func(ctx context.Context, snap *domain.AccountSnapshot)

// VaultStreamManager 订阅所有市场金库的账户更新，断线自动重连
type VaultStreamManager struct {
	mu                sync.Mutex
	conn              *grpc.ClientConn
	client            pb.GeyserClient
	stream            pb.Geyser_SubscribeClient
	stopped           bool
	reconnectAttempts int
	opt               StreamOption
	vaults            []string
	handler           AccountHandler
	connCtx           context.Context
	connCancel        context.CancelFunc
}

func NewVaultStreamManager(opt StreamOption, vaults []string, handler AccountHandler) (*VaultStreamManager, error) {
	if len(vaults) == 0 {
		return nil, errors.New("no vaults to subscribe")
	}
	applyStreamDefaults(&opt)

	dialCtx, cancel := context.WithTimeout(context.Background(), time.Duration(opt.ConnectTimeoutSec)*time.Second)
	defer cancel()

	conn, err := grpc.DialContext(
		dialCtx,
		opt.Endpoint,
		grpc.WithTransportCredentials(credentials.NewTLS(&tls.Config{})),
		grpc.WithInitialWindowSize(int32(opt.InitialWindowSize)),
		grpc.WithInitialConnWindowSize(int32(opt.InitialConnWindowSize)),
		grpc.WithDefaultCallOptions(
			grpc.MaxCallSendMsgSize(opt.MaxCallSendMsgSize),
			grpc.MaxCallRecvMsgSize(opt.MaxCallRecvMsgSize),
		),
		grpc.WithBlock(),
		grpc.WithKeepaliveParams(keepalive.ClientParameters{
			Time:                time.Duration(opt.KeepalivePingIntervalSec) * time.Second,
			Timeout:             time.Duration(opt.KeepalivePingTimeoutSec) * time.Second,
			PermitWithoutStream: true,
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect %s: %w", opt.Endpoint, err)
	}

	return &VaultStreamManager{
		conn:    conn,
		client:  pb.NewGeyserClient(conn),
		opt:     opt,
		vaults:  vaults,
		handler: handler,
	}, nil
}

func applyStreamDefaults(opt *StreamOption) {
	setDefault := func(v *int, d int) {
		if *v <= 0 {
			*v = d
		}
	}
	setDefault(&opt.StreamPingIntervalSec, 10)
	setDefault(&opt.KeepalivePingIntervalSec, 30)
	setDefault(&opt.KeepalivePingTimeoutSec, 10)
	setDefault(&opt.InitialWindowSize, 1<<20)
	setDefault(&opt.InitialConnWindowSize, 1<<20)
	setDefault(&opt.MaxCallSendMsgSize, 4<<20)
	setDefault(&opt.MaxCallRecvMsgSize, 64<<20)
	setDefault(&opt.ReconnectIntervalSec, 2)
	setDefault(&opt.ConnectTimeoutSec, 10)
	setDefault(&opt.SendTimeoutSec, 5)
	setDefault(&opt.IdleTimeoutSec, 120)
}

func (m *VaultStreamManager) Start() {
	m.mustConnect()
}

func (m *VaultStreamManager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.stopped = true
	if m.connCancel != nil {
		m.connCancel()
		m.connCancel = nil
	}
	if m.conn != nil {
		_ = m.conn.Close()
	}
}

// mustConnect 循环直到连接成功或已停止
func (m *VaultStreamManager) mustConnect() {
	interval := time.Duration(m.opt.ReconnectIntervalSec) * time.Second
	for {
		m.mu.Lock()
		if m.stopped {
			m.mu.Unlock()
			return
		}
		attempts := m.reconnectAttempts
		m.reconnectAttempts++
		m.mu.Unlock()

		if attempts > 3 {
			time.Sleep(interval * 2)
		} else if attempts > 0 {
			time.Sleep(interval)
		}
		logger.Infof("[VaultStream] connecting, attempt %d", attempts+1)
		err := m.connect()
		if err == nil {
			return
		}
		logger.Warnf("[VaultStream] connect failed: %v, will retry", err)
	}
}

// BuildSubscribeRequest 构造金库账户订阅请求
func BuildSubscribeRequest(vaults []string) *pb.SubscribeRequest {
	accounts := map[string]*pb.SubscribeRequestFilterAccounts{
		"vaults": {Account: vaults},
	}
	commitment := pb.CommitmentLevel_CONFIRMED
	return &pb.SubscribeRequest{
		Accounts:   accounts,
		Commitment: &commitment,
	}
}

// connect 只尝试一次连接
func (m *VaultStreamManager) connect() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stopped {
		return errors.New("manager is stopped")
	}

	// 先关闭旧的 context，让旧 goroutine 退出
	if m.connCancel != nil {
		m.connCancel()
		m.connCancel = nil
	}
	m.connCtx, m.connCancel = context.WithCancel(context.Background())

	metaCtx := metadata.NewOutgoingContext(
		m.connCtx,
		metadata.New(map[string]string{"x-token": m.opt.XToken}),
	)
	stream, err := m.client.Subscribe(metaCtx)
	if err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}

	req := BuildSubscribeRequest(m.vaults)
	if err := sendWithTimeout(m.connCtx, stream.Send, req, time.Duration(m.opt.SendTimeoutSec)*time.Second); err != nil {
		return fmt.Errorf("send subscribe request: %w", err)
	}

	m.stream = stream
	m.reconnectAttempts = 0
	logger.Infof("[VaultStream] subscribed to %d vaults", len(m.vaults))

	go m.pingLoop(m.connCtx, stream)
	go m.recvLoop(m.connCtx, stream)
	return nil
}

func (m *VaultStreamManager) recvLoop(ctx context.Context, stream pb.Geyser_SubscribeClient) {
	last := time.Now()
	idle := time.Duration(m.opt.IdleTimeoutSec) * time.Second
	for {
		if ctx.Err() != nil {
			return
		}
		update, err := stream.Recv()
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			if errors.Is(err, io.EOF) {
				logger.Warnf("[VaultStream] stream closed by server (EOF), will reconnect")
				m.reconnect()
				return
			}
			logger.Warnf("[VaultStream] stream error: %v", err)
			if time.Since(last) > idle {
				logger.Warnf("[VaultStream] %v 未收到更新，触发重连", idle)
				m.reconnect()
				return
			}
			time.Sleep(100 * time.Millisecond)
			continue
		}
		last = time.Now()

		if snap := SnapshotFromUpdate(update); snap != nil && m.handler != nil {
			m.handler(ctx, snap)
		}
	}
}

// SnapshotFromUpdate 从账户推送中提取快照，非账户推送返回 nil。
// Data 会被复制，之后与 protobuf 消息无关。
func SnapshotFromUpdate(update *pb.SubscribeUpdate) *domain.AccountSnapshot {
	u, ok := update.GetUpdateOneof().(*pb.SubscribeUpdate_Account)
	if !ok {
		return nil
	}
	info := u.Account.GetAccount()
	if info == nil {
		return nil
	}
	addr, err := types.PubkeyFromBytes(info.GetPubkey())
	if err != nil {
		logger.Warnf("[VaultStream] bad account pubkey: %v", err)
		return nil
	}
	owner, err := types.PubkeyFromBytes(info.GetOwner())
	if err != nil {
		logger.Warnf("[VaultStream] bad owner pubkey for %s: %v", addr, err)
		return nil
	}
	data := make([]byte, len(info.GetData()))
	copy(data, info.GetData())
	return &domain.AccountSnapshot{
		Address: addr,
		Program: owner,
		Slot:    u.Account.GetSlot(),
		Data:    data,
	}
}

// 带超时的 Send
func sendWithTimeout[T any](ctx context.Context, sendFunc func(T) error, req T, timeout time.Duration) error {
	timeoutCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- sendFunc(req)
	}()

	select {
	case <-timeoutCtx.Done():
		return timeoutCtx.Err()
	case err := <-done:
		return err
	}
}

// 应用层心跳，防止负载均衡器断开空闲流
func (m *VaultStreamManager) pingLoop(ctx context.Context, stream pb.Geyser_SubscribeClient) {
	ticker := time.NewTicker(time.Duration(m.opt.StreamPingIntervalSec) * time.Second)
	defer ticker.Stop()
	var id int32
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			id++
			pingReq := &pb.SubscribeRequest{Ping: &pb.SubscribeRequestPing{Id: id}}
			if err := sendWithTimeout(ctx, stream.Send, pingReq, time.Duration(m.opt.SendTimeoutSec)*time.Second); err != nil {
				logger.Warnf("[VaultStream] ping failed: %v", err) // 只记录日志，不触发重连
			}
		}
	}
}

func (m *VaultStreamManager) reconnect() {
	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		return
	}
	if m.connCancel != nil {
		m.connCancel()
		m.connCancel = nil
	}
	m.mu.Unlock()

	go m.mustConnect()
}
