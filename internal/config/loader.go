package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"

	"github.com/codecov-cache/codecov-cache/internal/codecov"
)

const (
	// EnvToken 提供 Codecov 访问令牌。
	EnvToken = "CODECOV_OWNER_TOKEN"
	// EnvCacheDir 覆盖缓存根目录。
	EnvCacheDir = "CODECOV_CACHE_DIR"
	// EnvBaseURL 覆盖 Codecov API 地址，主要用于测试或自建实例。
	EnvBaseURL = "CODECOV_API_URL"

	// DefaultBaseURL 是 Codecov v2 API 的公共地址。
	DefaultBaseURL = codecov.DefaultBaseURL

	defaultCacheDirName = "codecov-cache"
)

// Load 读取可选的 TOML 配置文件，叠加环境变量后注入默认值并校验。
// path 为空时只使用默认值与环境变量；显式给出的文件必须存在。
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	if err := bindEnv(v); err != nil {
		return nil, err
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("读取配置失败: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(durationDecodeHook())); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	if err := applyGlobalDefaults(&cfg.Global); err != nil {
		return nil, err
	}
	applyCodecovDefaults(&cfg.Codecov)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	absCache, err := filepath.Abs(cfg.Global.CacheDir)
	if err != nil {
		return nil, fmt.Errorf("无法解析缓存目录: %w", err)
	}
	cfg.Global.CacheDir = absCache

	return &cfg, nil
}

// DefaultCacheDir 返回平台缓存目录下的 codecov-cache 子目录。
func DefaultCacheDir() (string, error) {
	base, err := os.UserCacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, defaultCacheDirName), nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ListenPort", 5080)
	v.SetDefault("LogLevel", "info")
	v.SetDefault("LogFilePath", "")
	v.SetDefault("LogMaxSize", 100)
	v.SetDefault("LogMaxBackups", 10)
	v.SetDefault("LogCompress", true)
	v.SetDefault("CacheDir", "")
	v.SetDefault("CacheFileName", "data.json")
	v.SetDefault("Codecov.BaseURL", DefaultBaseURL)
	v.SetDefault("Codecov.Token", "")
	v.SetDefault("Codecov.Timeout", "30s")
	v.SetDefault("Codecov.MaxRetries", 3)
	v.SetDefault("Codecov.InitialBackoff", "1s")
}

func bindEnv(v *viper.Viper) error {
	bindings := map[string]string{
		"Codecov.Token":   EnvToken,
		"Codecov.BaseURL": EnvBaseURL,
		"CacheDir":        EnvCacheDir,
	}
	for key, env := range bindings {
		if err := v.BindEnv(key, env); err != nil {
			return fmt.Errorf("绑定环境变量 %s 失败: %w", env, err)
		}
	}
	return nil
}

func applyGlobalDefaults(g *GlobalConfig) error {
	if g.ListenPort == 0 {
		g.ListenPort = 5080
	}
	if g.CacheFileName == "" {
		g.CacheFileName = "data.json"
	}
	if g.CacheDir == "" {
		dir, err := DefaultCacheDir()
		if err != nil {
			return newFieldError("CacheDir", fmt.Sprintf("未配置且无法推断平台缓存目录: %v", err))
		}
		g.CacheDir = dir
	}
	return nil
}

func applyCodecovDefaults(c *CodecovConfig) {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.Timeout.DurationValue() == 0 {
		c.Timeout = Duration(30 * time.Second)
	}
	if c.InitialBackoff.DurationValue() == 0 {
		c.InitialBackoff = Duration(time.Second)
	}
}

func durationDecodeHook() mapstructure.DecodeHookFunc {
	targetType := reflect.TypeOf(Duration(0))

	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != targetType {
			return data, nil
		}

		switch v := data.(type) {
		case string:
			if v == "" {
				return Duration(0), nil
			}
			if parsed, err := time.ParseDuration(v); err == nil {
				return Duration(parsed), nil
			}
			if seconds, err := strconv.ParseFloat(v, 64); err == nil {
				return Duration(time.Duration(seconds * float64(time.Second))), nil
			}
			return nil, fmt.Errorf("无法解析 Duration 字段: %s", v)
		case int:
			return Duration(time.Duration(v) * time.Second), nil
		case int64:
			return Duration(time.Duration(v) * time.Second), nil
		case float64:
			return Duration(time.Duration(v * float64(time.Second))), nil
		case time.Duration:
			return Duration(v), nil
		case Duration:
			return v, nil
		default:
			return nil, fmt.Errorf("不支持的 Duration 类型: %T", v)
		}
	}
}
