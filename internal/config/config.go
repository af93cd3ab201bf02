package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type AppConfig struct {
	Host      string `mapstructure:"host"`
	Port      int    `mapstructure:"port"`
	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`

	// SQLite 数据库文件路径，为空时只在内存中保存游戏
	DBPath string `mapstructure:"db_path"`
	// 前端静态文件目录，为空时不托管前端
	StaticDir string `mapstructure:"static_dir"`

	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
	FinishedGameTTL time.Duration `mapstructure:"finished_game_ttl"`
}

const (
	CONFIG_FILE = "app_config"
	ENV_PREFIX  = "GTW"
)

var cfg *AppConfig

func GetConfig() *AppConfig {
	if cfg == nil {
		cfg = InitConfig()
	}

	return cfg
}

func InitConfig() *AppConfig {
	config, err := LoadConfig(CONFIG_FILE)
	if err != nil {
		panic(err)
	}

	cfg = config

	return config
}

// LoadConfig 读取 JSON 配置文件，环境变量（GTW_ 前缀）优先于文件
func LoadConfig(path string) (*AppConfig, error) {
	v := viper.New()

	v.SetDefault("host", "0.0.0.0")
	v.SetDefault("port", 8080)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "console")
	v.SetDefault("db_path", "data/games.db")
	v.SetDefault("static_dir", "")
	v.SetDefault("cleanup_interval", time.Minute)
	v.SetDefault("finished_game_ttl", 30*time.Minute)

	v.SetEnvPrefix(ENV_PREFIX)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigFile(path)
	v.SetConfigType("json")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("加载配置失败: %w", err)
	}

	var config AppConfig

	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	if config.Port <= 0 || config.Port > 65535 {
		return nil, fmt.Errorf("解析配置失败: 端口 %d 无效", config.Port)
	}

	return &config, nil
}

func (c *AppConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
