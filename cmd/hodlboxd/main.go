package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"HODL-Box/internal/agent"
	"HODL-Box/internal/api"
	"HODL-Box/internal/config"
	"HODL-Box/internal/dca"
	"HODL-Box/internal/emotion"
	"HODL-Box/internal/llm/openai"
	"HODL-Box/internal/market"
	"HODL-Box/internal/profile"
	"HODL-Box/internal/web3"
	"HODL-Box/internal/web3/provider"
	"HODL-Box/pkg/logger"
)

// main 是 HODL Box 守护进程的入口。
func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		log.Fatalf("hodlboxd 运行失败: %v", err)
	}
}

func run(ctx context.Context) error {
	configPath := os.Getenv("HODLBOX_CONFIG")
	var cfg *config.Config
	if configPath == "" {
		if _, err := os.Stat(filepath.Join("configs", "hodlbox.json")); err == nil {
			configPath = filepath.Join("configs", "hodlbox.json")
		}
	}
	if configPath != "" {
		loaded, err := config.Load(configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	} else {
		cfg = config.Default()
	}

	if err := logger.Init(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Interaction: logger.InteractionConfig{
			Enabled: cfg.Logging.InteractionPath != "",
			Path:    cfg.Logging.InteractionPath,
		},
	}); err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	dataDir := cfg.Runtime.DataDir
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return err
	}

	// 大模型客户端。
	llmClient, err := openai.NewClient(openai.Config{
		APIKey:  cfg.LLM.APIKey,
		BaseURL: cfg.LLM.BaseURL,
		Model:   cfg.LLM.Model,
		Timeout: cfg.LLMTimeout(),
	})
	if err != nil {
		return err
	}

	// 用户画像存储。
	var profileRepo profile.Repository
	switch cfg.Storage.ProfileStore.Driver {
	case "", "memory":
		repo, err := profile.NewMemoryRepository(dataDir)
		if err != nil {
			return err
		}
		profileRepo = repo
	case "mysql":
		repo, err := profile.NewSQLRepository(ctx, cfg.Storage.ProfileStore.DSN)
		if err != nil {
			return err
		}
		defer repo.Close()
		profileRepo = repo
	default:
		return fmt.Errorf("未知的画像存储驱动: %s", cfg.Storage.ProfileStore.Driver)
	}

	// 定投存储。
	var planStore dca.Store
	switch cfg.DCA.Store.Driver {
	case "", "memory":
		planStore = dca.NewMemoryStore()
	case "mysql":
		store, err := dca.NewMySQLStore(ctx, cfg.DCA.Store.DSN)
		if err != nil {
			return err
		}
		planStore = store
	default:
		return fmt.Errorf("未知的定投存储驱动: %s", cfg.DCA.Store.Driver)
	}
	defer func() { _ = planStore.Close() }()

	// 定投队列。
	var planQueue dca.Queue
	switch cfg.DCA.Queue.Driver {
	case "", "memory":
		planQueue = dca.NewMemoryQueue(1024)
	case "redis":
		queue, err := dca.NewRedisQueue(dca.RedisQueueConfig{
			Address:  cfg.DCA.Redis.Address,
			Password: cfg.DCA.Redis.Password,
			DB:       cfg.DCA.Redis.DB,
			Queue:    cfg.DCA.Redis.Queue,
		})
		if err != nil {
			return err
		}
		planQueue = queue
	case "rabbitmq":
		queue, err := dca.NewRabbitMQQueue(dca.RabbitMQConfig{
			URL:      cfg.DCA.RabbitMQ.URL,
			Queue:    cfg.DCA.RabbitMQ.Queue,
			Prefetch: cfg.DCA.RabbitMQ.Prefetch,
			Durable:  cfg.DCA.RabbitMQ.Durable,
		})
		if err != nil {
			return err
		}
		planQueue = queue
	default:
		return fmt.Errorf("未知的队列驱动: %s", cfg.DCA.Queue.Driver)
	}
	defer func() {
		if err := planQueue.Close(); err != nil {
			logger.L().Error("关闭定投队列失败", slog.Any("error", err))
		}
	}()

	// 链客户端注册表。未启用 Web3 时交换只解析不上链，定投执行降级为记录。
	var chainGateway agent.ChainGateway
	var executor dca.Executor
	if cfg.Web3.Enabled {
		registry, err := provider.NewRegistry(ctx, cfg.Web3)
		if err != nil {
			return err
		}
		defer registry.Close()
		chainGateway = registry
		executor = newChainExecutor(registry)
	} else {
		executor = newDryRunExecutor()
	}

	// 行情数据源：真实数据优先，失败时回落到内置数据。
	var marketSource market.Source
	if cfg.Market.Mock {
		marketSource = market.NewMockSource()
	} else {
		marketSource = market.NewFallbackSource(
			market.NewCoinGeckoSource(market.Config{
				BaseURL: cfg.Market.BaseURL,
				Timeout: cfg.MarketTimeout(),
			}),
			market.NewMockSource(),
		)
	}
	if ttl := cfg.MarketCacheTTL(); ttl > 0 {
		marketSource = market.NewCachedSource(marketSource, ttl)
	}

	// 组装智能体。
	planService := dca.NewService(planStore, planQueue, cfg.DCA.MaxRetries)
	swapAgent := agent.NewSwapAgent(llmClient, chainGateway, cfg.LLMTimeout())
	dcaAgent := agent.NewDCAAgent(llmClient, planService, cfg.LLMTimeout())
	mentalAgent := agent.NewMentalAgent(llmClient, emotion.NewLibrary(), profileRepo, cfg.LLMTimeout())
	marketAgent := agent.NewMarketAgent(marketSource)
	router := agent.NewRouter(swapAgent, dcaAgent, mentalAgent, marketAgent)

	// 定投调度与执行。
	processor := dca.NewProcessor(executor, planStore, planQueue, planQueue,
		dca.WithWorkerCount(cfg.DCA.Workers),
		dca.WithProcessorLogger(logger.Named("dca")),
	)
	scheduler := dca.NewScheduler(planStore, planQueue, cfg.DCAScanInterval())

	workerCtx, workerCancel := context.WithCancel(ctx)
	defer workerCancel()

	go func() {
		if err := processor.Start(workerCtx); err != nil && !errors.Is(err, context.Canceled) {
			logger.L().Error("定投处理器异常退出", slog.Any("error", err))
		}
	}()
	go func() {
		if err := scheduler.Start(workerCtx); err != nil && !errors.Is(err, context.Canceled) {
			logger.L().Error("定投调度器异常退出", slog.Any("error", err))
		}
	}()

	server := api.NewServer(cfg.Server.Address, router, swapAgent, dcaAgent, mentalAgent, marketAgent, planService)
	logger.L().Info("hodlboxd 已启动", slog.String("address", cfg.Server.Address))

	if err := server.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// newChainExecutor 通过链客户端为每期定投准备链上交换。
func newChainExecutor(registry *provider.Registry) dca.Executor {
	return dca.ExecutorFunc(func(ctx context.Context, plan *dca.Plan) (web3.SwapTicket, error) {
		client, err := registry.ClientFor(plan.Chain)
		if err != nil {
			return web3.SwapTicket{}, err
		}
		return client.PrepareSwap(ctx, web3.SwapRequest{
			TokenIn:  plan.SourceToken,
			TokenOut: plan.TargetToken,
			AmountIn: plan.AmountPerInterval,
		})
	})
}

// newDryRunExecutor 在未配置链访问时只记录执行，不做链上准备。
func newDryRunExecutor() dca.Executor {
	return dca.ExecutorFunc(func(_ context.Context, plan *dca.Plan) (web3.SwapTicket, error) {
		return web3.SwapTicket{
			Chain:     plan.Chain,
			TokenIn:   plan.SourceToken,
			TokenOut:  plan.TargetToken,
			AmountIn:  plan.AmountPerInterval,
			Reference: fmt.Sprintf("dry-run/%s#%d@%d", plan.ID, plan.ExecutedCount+1, time.Now().Unix()),
		}, nil
	})
}
