package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm/logger"
)

// Config 全局配置结构体（完全匹配config.yaml）
type Config struct {
	Server     ServerConfig            `mapstructure:"server"`      // 服务器配置
	Database   DatabaseConfig          `mapstructure:"database"`    // PostgreSQL配置
	Log        LogConfig               `mapstructure:"log"`         // 日志配置
	Pipeline   PipelineConfig          `mapstructure:"pipeline"`    // 清洗管道参数
	Sources    map[string]SourceConfig `mapstructure:"sources"`     // 各数据源独立配置
	Kafka      KafkaConfig             `mapstructure:"kafka"`       // 可选的 Kafka 投递
	CitiesFile string                  `mapstructure:"cities_file"` // 城市列表文件
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Port int    `mapstructure:"port"` // 服务端口
	Mode string `mapstructure:"mode"` // Gin运行模式：debug/release/test
}

// DatabaseConfig PostgreSQL数据库配置
type DatabaseConfig struct {
	DSN             string        `mapstructure:"dsn"`               // 连接DSN（URL形式）
	MaxOpenConns    int           `mapstructure:"max_open_conns"`    // 最大打开连接数
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`    // 最大空闲连接数
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"` // 连接最大存活时间
	LogLevel        string        `mapstructure:"log_level"`         // GORM日志级别：silent/error/warn/info
}

// LogConfig 日志配置
type LogConfig struct {
	Level string `mapstructure:"level"` // logrus级别：debug/info/warn/error
}

// PipelineConfig 清洗管道参数
type PipelineConfig struct {
	Workers           int     `mapstructure:"workers"`             // 映射+规范化并发度
	Shards            int     `mapstructure:"shards"`              // 去重分片数
	FuzzyThreshold    float64 `mapstructure:"fuzzy_threshold"`     // 标题相似度阈值
	BatchSize         int     `mapstructure:"batch_size"`          // 落库批大小
	RequireDanceStyle bool    `mapstructure:"require_dance_style"` // 无舞种的记录是否拒绝
	DefaultTimezone   string  `mapstructure:"default_timezone"`    // 查询未给时区时的兜底
	WindowDays        int     `mapstructure:"window_days"`         // 批量城市运行的日期窗口（天），0 表示不限
}

// SourceConfig 单个数据源的独立配置
type SourceConfig struct {
	BaseURL    string   `mapstructure:"base_url"`    // API基础地址
	Timeout    int      `mapstructure:"timeout"`     // 请求超时（秒）
	RetryCount int      `mapstructure:"retry_count"` // 429/超时重试次数
	APIKey     string   `mapstructure:"api_key"`     // API Key（建议放 .env）
	Proxy      string   `mapstructure:"proxy"`       // 代理地址
	Enabled    bool     `mapstructure:"enabled"`     // 是否启用
	Feeds      []string `mapstructure:"feeds"`       // RSS 订阅地址列表
}

// KafkaConfig Kafka投递配置
type KafkaConfig struct {
	Enabled         bool     `mapstructure:"enabled"`
	Brokers         []string `mapstructure:"brokers"`
	EventsTopic     string   `mapstructure:"events_topic"`
	RejectionsTopic string   `mapstructure:"rejections_topic"`
}

// City 城市列表中的一项
type City struct {
	Name        string   `yaml:"name"`
	Country     string   `yaml:"country"`
	CountryCode string   `yaml:"country_code"`
	Timezone    string   `yaml:"timezone"`
	Language    string   `yaml:"hl"`
	Keywords    []string `yaml:"keywords"` // 为空时使用文件级 keywords
}

type citiesFile struct {
	Keywords []string `yaml:"keywords"`
	Cities   []City   `yaml:"cities"`
}

// LoadConfig 加载配置文件（config/config.yaml），敏感项从 .env 覆盖（不提交 git）
func LoadConfig() (*Config, error) {
	// 1. 加载 .env（若存在），env 中的值会覆盖 config.yaml 中同名字段
	_ = godotenv.Load() // 忽略错误（.env 可不存在）

	// 2. 读取 config.yaml
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./config")
	setDefaults(v)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("解析配置文件失败: %w", err)
	}

	// 3. 敏感字段：用 env 覆盖（优先级 env > yaml）
	overrideFromEnv(&cfg)
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "release")
	v.SetDefault("log.level", "info")
	v.SetDefault("database.log_level", "warn")
	v.SetDefault("pipeline.workers", 8)
	v.SetDefault("pipeline.shards", 4)
	v.SetDefault("pipeline.fuzzy_threshold", 0.85)
	v.SetDefault("pipeline.batch_size", 200)
	v.SetDefault("pipeline.default_timezone", "UTC")
	v.SetDefault("pipeline.window_days", 30)
	v.SetDefault("cities_file", "./config/cities.yaml")
}

// overrideFromEnv 用环境变量覆盖敏感配置
func overrideFromEnv(cfg *Config) {
	if v := os.Getenv("DATABASE_DSN"); v != "" {
		cfg.Database.DSN = v
	}
	if cfg.Sources == nil {
		cfg.Sources = make(map[string]SourceConfig)
	}
	for name, env := range map[string]string{
		"serpapi":      "SERPAPI_API_KEY",
		"ticketmaster": "TICKETMASTER_API_KEY",
	} {
		s, ok := cfg.Sources[name]
		if !ok {
			continue
		}
		if v := os.Getenv(env); v != "" {
			s.APIKey = v
		}
		cfg.Sources[name] = s
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = strings.Split(v, ",")
	}
}

// LoadCities 读取城市列表；城市未配置关键词时继承文件级关键词
func LoadCities(path string) ([]City, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取城市列表失败: %w", err)
	}
	var f citiesFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("解析城市列表失败: %w", err)
	}
	for i := range f.Cities {
		if f.Cities[i].Name == "" {
			return nil, fmt.Errorf("城市列表第%d项缺少 name", i+1)
		}
		if len(f.Cities[i].Keywords) == 0 {
			f.Cities[i].Keywords = f.Keywords
		}
	}
	return f.Cities, nil
}

// LogrusLevel 解析日志级别，非法值回落到 info
func (l LogConfig) LogrusLevel() logrus.Level {
	lvl, err := logrus.ParseLevel(l.Level)
	if err != nil {
		return logrus.InfoLevel
	}
	return lvl
}

// GORMLogLevel 获取GORM日志级别
func (d *DatabaseConfig) GORMLogLevel() logger.LogLevel {
	switch strings.ToLower(d.LogLevel) {
	case "silent":
		return logger.Silent
	case "error":
		return logger.Error
	case "info":
		return logger.Info
	default:
		return logger.Warn
	}
}
