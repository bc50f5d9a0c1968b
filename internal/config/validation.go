package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/sirupsen/logrus"
)

// Validate 针对语义级别做进一步校验，防止非法配置启动服务。
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("配置为空")
	}

	g := c.Global
	if g.ListenPort <= 0 || g.ListenPort > 65535 {
		return newFieldError("ListenPort", "必须在 1-65535")
	}
	if g.LogLevel != "" {
		if _, err := logrus.ParseLevel(g.LogLevel); err != nil {
			return newFieldError("LogLevel", fmt.Sprintf("无法识别: %s", g.LogLevel))
		}
	}
	if g.LogMaxSize < 0 || g.LogMaxBackups < 0 {
		return newFieldError("LogMaxSize/LogMaxBackups", "不能为负数")
	}
	if strings.TrimSpace(g.CacheDir) == "" {
		return newFieldError("CacheDir", "不能为空")
	}
	if err := validateFileName(g.CacheFileName); err != nil {
		return newFieldError("CacheFileName", err.Error())
	}

	cc := c.Codecov
	if err := validateBaseURL(cc.BaseURL); err != nil {
		return fmt.Errorf("%s: %w", codecovField("BaseURL"), err)
	}
	if cc.Timeout.DurationValue() <= 0 {
		return newFieldError(codecovField("Timeout"), "必须大于 0")
	}
	if cc.MaxRetries < 0 {
		return newFieldError(codecovField("MaxRetries"), "不能为负数")
	}
	if cc.InitialBackoff.DurationValue() <= 0 {
		return newFieldError(codecovField("InitialBackoff"), "必须大于 0")
	}

	return nil
}

func validateFileName(name string) error {
	if name == "" {
		return errors.New("不能为空")
	}
	if name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return errors.New("必须是单层文件名")
	}
	return nil
}

func validateBaseURL(raw string) error {
	if raw == "" {
		return errors.New("缺少 API 地址")
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("仅支持 http/https，API: %s", raw)
	}
	if parsed.Host == "" {
		return fmt.Errorf("API 缺少 Host: %s", raw)
	}
	return nil
}
