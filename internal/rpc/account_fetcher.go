package rpc

import (
	"context"
	"errors"
	"fmt"
	"time"

	"dex-ledger-sol/internal/logic/domain"
	"dex-ledger-sol/internal/types"
	"dex-ledger-sol/pkg/logger"

	"github.com/blocto/solana-go-sdk/client"
)

var (
	ErrAccountNotFound     = errors.New("account not found")
	ErrTransactionNotFound = errors.New("transaction not found")
)

// accountClient 是 *client.Client 中用到的方法子集，便于测试替换
type accountClient interface {
	GetAccountInfo(ctx context.Context, base58Addr string) (client.AccountInfo, error)
	GetMultipleAccounts(ctx context.Context, base58Addrs []string) ([]client.AccountInfo, error)
	GetTransactionWithConfig(ctx context.Context, txhash string, cfg client.GetTransactionConfig) (*client.Transaction, error)
}

// AccountFetcher 通过 Solana RPC 抓取账户快照
type AccountFetcher struct {
	client  accountClient
	timeout time.Duration
}

func NewAccountFetcher(endpoint string, timeout time.Duration) (*AccountFetcher, error) {
	c := client.NewClient(endpoint)
	if c == nil {
		return nil, errors.New("rpc client init failed")
	}
	return newAccountFetcher(c, timeout), nil
}

func newAccountFetcher(c accountClient, timeout time.Duration) *AccountFetcher {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &AccountFetcher{client: c, timeout: timeout}
}

// Fetch 获取单个账户；账户不存在时返回 ErrAccountNotFound。
// 返回的 Data 是独立副本。
func (f *AccountFetcher) Fetch(ctx context.Context, addr types.Pubkey) (*domain.AccountSnapshot, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	info, err := f.client.GetAccountInfo(ctx, addr.String())
	if err != nil {
		return nil, fmt.Errorf("GetAccountInfo %s failed: %w", addr, err)
	}
	return toSnapshot(addr, info)
}

// FetchMany 批量获取账户，结果与 addrs 一一对应；不存在的账户对应 nil
func (f *AccountFetcher) FetchMany(ctx context.Context, addrs []types.Pubkey) ([]*domain.AccountSnapshot, error) {
	if len(addrs) == 0 {
		return nil, nil
	}
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	keys := make([]string, len(addrs))
	for i, a := range addrs {
		keys[i] = a.String()
	}

	start := time.Now()
	infos, err := f.client.GetMultipleAccounts(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("GetMultipleAccounts failed: %w", err)
	}
	logger.Debugf("[AccountFetcher] GetMultipleAccounts 成功, 账户数: %d, 耗时: %v", len(keys), time.Since(start))

	if len(infos) != len(addrs) {
		return nil, fmt.Errorf("返回账户数与请求不一致: got=%d want=%d", len(infos), len(addrs))
	}

	result := make([]*domain.AccountSnapshot, len(addrs))
	for i, info := range infos {
		snap, err := toSnapshot(addrs[i], info)
		if errors.Is(err, ErrAccountNotFound) {
			continue
		}
		result[i] = snap
	}
	return result, nil
}

func toSnapshot(addr types.Pubkey, info client.AccountInfo) (*domain.AccountSnapshot, error) {
	owner := types.Pubkey(info.Owner)
	// RPC 对不存在的账户返回空值而非错误
	if owner.IsZero() && len(info.Data) == 0 && info.Lamports == 0 {
		return nil, fmt.Errorf("%w: %s", ErrAccountNotFound, addr)
	}
	data := make([]byte, len(info.Data))
	copy(data, info.Data)
	return &domain.AccountSnapshot{
		Address: addr,
		Program: owner,
		Data:    data,
	}, nil
}
