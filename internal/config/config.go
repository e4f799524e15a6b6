package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Database DatabaseConfig `mapstructure:"database"`
	Debug    DebugConfig    `mapstructure:"debug"`
	Output   OutputConfig   `mapstructure:"output"`
}

type DatabaseConfig struct {
	Path string `mapstructure:"path"`
	Key  string `mapstructure:"key"`
	Mode string `mapstructure:"mode"`
}

type DebugConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	LogFile string `mapstructure:"log_file"`
}

type OutputConfig struct {
	Format string `mapstructure:"format"`
}

// 支持的批量输出格式
var outputFormats = []string{"text", "json", "msgpack"}

// Load 读取配置文件，path 为空时在 ./configs 与 /etc/czdb 下查找 config.yaml，
// 找不到时使用默认值。CZDB_ 前缀的环境变量覆盖文件中的值，例如 CZDB_DATABASE_KEY。
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetDefault("database.path", "")
	v.SetDefault("database.key", "")
	v.SetDefault("database.mode", "btree")
	v.SetDefault("debug.enabled", false)
	v.SetDefault("debug.log_file", "")
	v.SetDefault("output.format", "text")

	v.SetEnvPrefix("CZDB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/czdb")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate 检查输出格式是否受支持
func (c *Config) Validate() error {
	c.Output.Format = strings.ToLower(c.Output.Format)
	for _, f := range outputFormats {
		if c.Output.Format == f {
			return nil
		}
	}
	return fmt.Errorf("unsupported output format %q, expected one of %s",
		c.Output.Format, strings.Join(outputFormats, ", "))
}
