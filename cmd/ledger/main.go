package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"dex-ledger-sol/internal/config"
	"dex-ledger-sol/internal/logic/domain"
	"dex-ledger-sol/internal/logic/vaultmonitor"
	"dex-ledger-sol/internal/service"
	"dex-ledger-sol/internal/svc"
	"dex-ledger-sol/internal/types"
	"dex-ledger-sol/pkg/logger"

	"github.com/zeromicro/go-zero/core/conf"
	"github.com/zeromicro/go-zero/core/logx"
	zerosvc "github.com/zeromicro/go-zero/core/service"
)

var configFile = flag.String("f", "etc/ledger.yaml", "the config file")

func main() {
	defer func() {
		if r := recover(); r != nil {
			logx.Errorf("panic: %+v\nstack: %s", r, debug.Stack())
		}
	}()

	flag.Parse()

	var c config.LedgerConfig
	conf.MustLoad(*configFile, &c)
	c.ApplyDefaults()

	if err := logger.InitLogger(c.LogConf.ToLogOption()); err != nil {
		logx.Must(err)
	}
	defer logger.Sync()

	sc, err := svc.NewServiceContext(c)
	logx.Must(err)
	defer sc.Close()

	sg := zerosvc.NewServiceGroup()

	// 请求消费（需先于进度服务停止，保证最后一批记录被落库）
	handler := service.NewRequestHandler(sc.Processor, sc.ProgressManager, sc.Publisher, config.Millis(c.TimeConf.RequestTimeoutMs))
	sg.Add(service.NewLedgerService(sc.Consumer, handler, config.Millis(c.TimeConf.PollTimeoutMs)))

	var cleaner service.RecordCleaner
	if sc.ProgressDB != nil {
		cleaner = sc.ProgressDB
	}
	sg.Add(service.NewProgressService(sc.ProgressManager, cleaner,
		config.Millis(c.Postgres.FlushIntervalMs), time.Duration(c.Postgres.RetainHours)*time.Hour))

	// 金库监控
	monitor := vaultmonitor.NewMonitor(sc.Markets, sc.Ledger, sc.Publisher)
	vaults := make([]types.Pubkey, 0, 2*len(sc.Markets.All()))
	for _, m := range sc.Markets.All() {
		vaults = append(vaults, m.BaseVault, m.QuoteVault)
	}
	var stream service.VaultStream
	if c.Grpc.Endpoint != "" {
		vs, err := vaultmonitor.NewVaultStreamManager(c.Grpc.ToStreamOption(), sc.Markets.Vaults(),
			func(ctx context.Context, snap *domain.AccountSnapshot) { monitor.HandleAccount(ctx, snap) })
		logx.Must(err)
		stream = vs
	} else {
		logx.Info("grpc endpoint not configured, vault stream disabled")
	}
	sg.Add(service.NewVaultMonitorService(monitor, sc.Accounts, stream, vaults))

	logx.Infof("Starting ledger services, markets: %d", len(sc.Markets.All()))
	go sg.Start()

	// 等待退出信号
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	logx.Info("Shutting down services...")
	sg.Stop()
}
