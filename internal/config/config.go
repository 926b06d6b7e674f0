package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config 应用配置结构
type Config struct {
	Server       ServerConfig       `mapstructure:"server"`
	Database     DatabaseConfig     `mapstructure:"database"`
	Log          LogConfig          `mapstructure:"log"`
	Naming       NamingConfig       `mapstructure:"naming"`
	Subscription SubscriptionConfig `mapstructure:"subscription"`
	ClusterInfo  ClusterInfoConfig  `mapstructure:"cluster_info"`
	Remote       RemoteConfig       `mapstructure:"remote"`
	Feature      FeatureConfig      `mapstructure:"feature"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	Mode         string        `mapstructure:"mode"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	SQLite SQLiteConfig `mapstructure:"sqlite"`
}

// SQLiteConfig SQLite配置
type SQLiteConfig struct {
	Path            string        `mapstructure:"path"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	Output     string `mapstructure:"output"`
	FilePath   string `mapstructure:"file_path"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
	Compress   bool   `mapstructure:"compress"`
}

// NamingConfig 命名相关配置：table_id 与 bk_data_name 前缀
type NamingConfig struct {
	TableIDPrefix    string `mapstructure:"table_id_prefix"`
	TableSpacePrefix string `mapstructure:"table_space_prefix"`
	BkSupplierID     int    `mapstructure:"bk_supplier_id"`
}

// SubscriptionConfig 订阅编排相关配置
type SubscriptionConfig struct {
	// Concurrent 对节点管理远程调用的最大并发数
	Concurrent int `mapstructure:"concurrent"`
	// DefaultMaxTimeoutMS 订阅参数 max_timeout 下限（毫秒）
	DefaultMaxTimeoutMS int `mapstructure:"default_max_timeout_ms"`
	// PluginName 采集插件名
	PluginName string `mapstructure:"plugin_name"`
	// DataIDs 按协议划分的采集数据源ID
	DataIDs map[string]int `mapstructure:"data_ids"`
}

// ClusterInfoConfig 集群信息批量查询配置
type ClusterInfoConfig struct {
	// BulkLimit 单次批量查询的 result_table 数量上限
	BulkLimit int `mapstructure:"bulk_limit"`
	// CacheTTL 查询结果缓存时长
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
}

// RemoteConfig 外部服务地址配置
type RemoteConfig struct {
	NodeManURL  string        `mapstructure:"nodeman_url"`
	TransferURL string        `mapstructure:"transfer_url"`
	CMDBURL     string        `mapstructure:"cmdb_url"`
	BkDataURL   string        `mapstructure:"bkdata_url"`
	ITSMURL     string        `mapstructure:"itsm_url"`
	Timeout     time.Duration `mapstructure:"timeout"`
	AppCode     string        `mapstructure:"app_code"`
	AppSecret   string        `mapstructure:"app_secret"`
}

// FeatureConfig 功能开关：入口处读取，不往组件内部透传
type FeatureConfig struct {
	// CollectorITSM 采集项接入ITSM审批流程
	CollectorITSM bool `mapstructure:"collector_itsm"`
}

var globalConfig *Config

// Load 加载配置文件
func Load(configPath string) (*Config, error) {
	viper.SetConfigType("yaml")

	setDefaults()

	if configPath != "" {
		viper.SetConfigFile(configPath)
	} else {
		viper.SetConfigName("config")
		viper.AddConfigPath("./configs")
		viper.AddConfigPath("../configs")
		viper.AddConfigPath("../../configs")
	}

	viper.SetEnvPrefix("BK_LOG")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	globalConfig = &config
	return &config, nil
}

func setDefaults() {
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.mode", "release")
	viper.SetDefault("server.read_timeout", "30s")
	viper.SetDefault("server.write_timeout", "30s")

	viper.SetDefault("database.sqlite.path", "data/bklog.db")
	viper.SetDefault("database.sqlite.max_idle_conns", 5)
	viper.SetDefault("database.sqlite.max_open_conns", 20)
	viper.SetDefault("database.sqlite.conn_max_lifetime", "1h")

	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.format", "text")
	viper.SetDefault("log.output", "both")
	viper.SetDefault("log.file_path", "logs/server.log")
	viper.SetDefault("log.max_size", 100)
	viper.SetDefault("log.max_backups", 7)
	viper.SetDefault("log.max_age", 30)

	viper.SetDefault("naming.table_id_prefix", "bklog")
	viper.SetDefault("naming.table_space_prefix", "space")
	viper.SetDefault("naming.bk_supplier_id", 0)

	viper.SetDefault("subscription.concurrent", 10)
	viper.SetDefault("subscription.default_max_timeout_ms", 15000)
	viper.SetDefault("subscription.plugin_name", "bkmonitorbeat")

	viper.SetDefault("cluster_info.bulk_limit", 50)
	viper.SetDefault("cluster_info.cache_ttl", "1h")

	viper.SetDefault("remote.timeout", "30s")

	viper.SetDefault("feature.collector_itsm", false)
}

// Get 获取全局配置
func Get() *Config {
	return globalConfig
}
