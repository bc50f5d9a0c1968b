package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Duration 提供更灵活的反序列化能力，同时兼容纯秒整数与 Go Duration 字符串。
type Duration time.Duration

// UnmarshalText 使 Viper 可以识别诸如 "30s"、"5m" 或纯数字秒值等配置写法。
func (d *Duration) UnmarshalText(text []byte) error {
	raw := strings.TrimSpace(string(text))
	if raw == "" {
		*d = Duration(0)
		return nil
	}

	if parsed, err := time.ParseDuration(raw); err == nil {
		*d = Duration(parsed)
		return nil
	}

	if intVal, err := parseInt(raw); err == nil {
		*d = Duration(time.Duration(intVal) * time.Second)
		return nil
	}

	return fmt.Errorf("invalid duration value: %s", raw)
}

// DurationValue 返回真实的 time.Duration，便于调用方计算。
func (d Duration) DurationValue() time.Duration {
	return time.Duration(d)
}

// parseInt 支持十进制或 0x 前缀的十六进制字符串解析。
func parseInt(value string) (int64, error) {
	if strings.HasPrefix(value, "0x") || strings.HasPrefix(value, "0X") {
		return strconv.ParseInt(value, 0, 64)
	}
	return strconv.ParseInt(value, 10, 64)
}

// GlobalConfig 描述进程级行为：监听端口、日志以及缓存目录。
type GlobalConfig struct {
	ListenPort    int    `mapstructure:"ListenPort"`
	LogLevel      string `mapstructure:"LogLevel"`
	LogFilePath   string `mapstructure:"LogFilePath"`
	LogMaxSize    int    `mapstructure:"LogMaxSize"`
	LogMaxBackups int    `mapstructure:"LogMaxBackups"`
	LogCompress   bool   `mapstructure:"LogCompress"`
	CacheDir      string `mapstructure:"CacheDir"`
	CacheFileName string `mapstructure:"CacheFileName"`
}

// CodecovConfig 决定如何访问 Codecov API。
type CodecovConfig struct {
	BaseURL        string   `mapstructure:"BaseURL"`
	Token          string   `mapstructure:"Token"`
	Timeout        Duration `mapstructure:"Timeout"`
	MaxRetries     int      `mapstructure:"MaxRetries"`
	InitialBackoff Duration `mapstructure:"InitialBackoff"`
}

// Config 是 TOML 文件 + 环境变量合并后的整体结构，启动时解析一次并显式传递。
type Config struct {
	Global  GlobalConfig  `mapstructure:",squash"`
	Codecov CodecovConfig `mapstructure:"Codecov"`
}

// HasToken 表示是否配置了 Codecov 访问令牌。
func (c CodecovConfig) HasToken() bool {
	return strings.TrimSpace(c.Token) != ""
}

// AuthMode 输出 `token` 或 `anonymous`，供日志字段使用。
func (c CodecovConfig) AuthMode() string {
	if c.HasToken() {
		return "token"
	}
	return "anonymous"
}
