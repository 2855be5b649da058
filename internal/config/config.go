// Package config 负责加载与校验启动配置，所有字段都有可运行的默认值。
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"
)

// Config 描述了 HODL Box 在启动阶段需要加载的核心配置。
type Config struct {
	Server  ServerConfig  `json:"server"`
	LLM     LLMConfig     `json:"llm"`
	Market  MarketConfig  `json:"market"`
	Storage StorageConfig `json:"storage"`
	DCA     DCAConfig     `json:"dca"`
	Web3    Web3Config    `json:"web3"`
	Logging LoggingConfig `json:"logging"`
	Runtime RuntimeConfig `json:"runtime"`
}

// ServerConfig 控制 API 服务的监听地址等参数。
type ServerConfig struct {
	Address string `json:"address"`
}

// LLMConfig 用于配置大模型推理的调用方式。
type LLMConfig struct {
	APIKey  string `json:"api_key"`
	BaseURL string `json:"base_url"`
	Model   string `json:"model"`
	Timeout string `json:"timeout"`
}

// MarketConfig 控制行情数据源。Mock 为真时跳过外部 API，直接使用内置数据。
type MarketConfig struct {
	BaseURL  string `json:"base_url"`
	Timeout  string `json:"timeout"`
	CacheTTL string `json:"cache_ttl"`
	Mock     bool   `json:"mock"`
}

// StorageConfig 描述用户画像存储的驱动与连接信息。
type StorageConfig struct {
	ProfileStore DriverConfig `json:"profile_store"`
}

// DriverConfig 是 memory/mysql 两种驱动的通用结构。
type DriverConfig struct {
	Driver string `json:"driver"`
	DSN    string `json:"dsn"`
}

// DCAConfig 描述定投流水线的存储、队列与执行参数。
type DCAConfig struct {
	Store        DriverConfig   `json:"store"`
	Queue        QueueConfig    `json:"queue"`
	Workers      int            `json:"workers"`
	MaxRetries   int            `json:"max_retries"`
	ScanInterval string         `json:"scan_interval"`
	Redis        RedisConfig    `json:"redis"`
	RabbitMQ     RabbitMQConfig `json:"rabbitmq"`
}

// QueueConfig 选择队列驱动：memory、redis 或 rabbitmq。
type QueueConfig struct {
	Driver string `json:"driver"`
}

// RedisConfig 描述 Redis 队列的连接参数。
type RedisConfig struct {
	Address  string `json:"address"`
	Password string `json:"password"`
	DB       int    `json:"db"`
	Queue    string `json:"queue"`
}

// RabbitMQConfig 描述 RabbitMQ 队列的连接参数。
type RabbitMQConfig struct {
	URL      string `json:"url"`
	Queue    string `json:"queue"`
	Prefetch int    `json:"prefetch"`
	Durable  bool   `json:"durable"`
}

// Web3Config 包含访问区块链节点所需的信息。
type Web3Config struct {
	Enabled      bool   `json:"enabled"`
	ChainConfig  string `json:"chain_config"`
	RPCURL       string `json:"rpc_url"`
	DefaultChain string `json:"default_chain"`
}

// LoggingConfig 控制结构化日志与交互日志的输出。
type LoggingConfig struct {
	Level           string `json:"level"`
	Format          string `json:"format"`
	InteractionPath string `json:"interaction_path"`
}

// RuntimeConfig 用于放置运行时的通用参数。
type RuntimeConfig struct {
	DataDir string `json:"data_dir"`
}

// Load 负责解析指定路径的 JSON 配置文件。
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("配置文件路径为空")
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("打开配置文件失败: %w", err)
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(content, &cfg); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	cfg.applyDefaults(filepath.Dir(path))

	return &cfg, nil
}

// Default 返回全默认值的配置，供未提供配置文件时使用。
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults(".")
	return cfg
}

// applyDefaults 在用户未填写部分字段时设置合理的默认值。
func (c *Config) applyDefaults(baseDir string) {
	if c.Server.Address == "" {
		c.Server.Address = ":8000"
	}

	if c.LLM.APIKey == "" {
		c.LLM.APIKey = os.Getenv("API_KEY")
	}
	if c.LLM.BaseURL == "" {
		c.LLM.BaseURL = os.Getenv("BASE_URL")
	}

	if c.Storage.ProfileStore.Driver == "" {
		c.Storage.ProfileStore.Driver = "memory"
	}

	if c.DCA.Store.Driver == "" {
		c.DCA.Store.Driver = "memory"
	}
	if c.DCA.Queue.Driver == "" {
		c.DCA.Queue.Driver = "memory"
	}
	if c.DCA.Workers <= 0 {
		c.DCA.Workers = 2
	}
	if c.DCA.MaxRetries <= 0 {
		c.DCA.MaxRetries = 3
	}
	if c.DCA.ScanInterval == "" {
		c.DCA.ScanInterval = "30s"
	}

	if c.Web3.ChainConfig != "" && !filepath.IsAbs(c.Web3.ChainConfig) {
		c.Web3.ChainConfig = filepath.Join(baseDir, c.Web3.ChainConfig)
	}

	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}

	if c.Runtime.DataDir == "" {
		c.Runtime.DataDir = filepath.Join(baseDir, "data")
	} else if !filepath.IsAbs(c.Runtime.DataDir) {
		c.Runtime.DataDir = filepath.Join(baseDir, c.Runtime.DataDir)
	}
}

// LLMTimeout 解析大模型超时配置，非法或缺省时返回零值。
func (c *Config) LLMTimeout() time.Duration {
	return parseDuration(c.LLM.Timeout)
}

// MarketTimeout 解析行情请求超时配置。
func (c *Config) MarketTimeout() time.Duration {
	return parseDuration(c.Market.Timeout)
}

// MarketCacheTTL 解析行情缓存的存活时间，缺省时不启用缓存。
func (c *Config) MarketCacheTTL() time.Duration {
	return parseDuration(c.Market.CacheTTL)
}

// DCAScanInterval 解析定投调度器的扫描周期。
func (c *Config) DCAScanInterval() time.Duration {
	if d := parseDuration(c.DCA.ScanInterval); d > 0 {
		return d
	}
	return 30 * time.Second
}

func parseDuration(raw string) time.Duration {
	if raw == "" {
		return 0
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0
	}
	return d
}
