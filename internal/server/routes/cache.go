package routes

import (
	"errors"
	"net/url"
	"strings"

	"github.com/gofiber/fiber/v3"
	"github.com/sirupsen/logrus"

	"github.com/codecov-cache/codecov-cache/internal/cache"
	"github.com/codecov-cache/codecov-cache/internal/server"
)

// RegisterCacheRoutes 暴露 /-/cache/<k1>/.../<kn> 诊断接口：GET/HEAD 检查条目是否存在，
// DELETE 删除条目。每个 URL 段解码后即磁盘上的 Key 段，磁盘上的 "%2F" 需写成 "%252F"。
func RegisterCacheRoutes(app *fiber.App, store cache.Store, logger *logrus.Logger) {
	if app == nil || store == nil || logger == nil {
		return
	}

	has := func(c fiber.Ctx) error {
		key := keyFromPath(c)
		if !store.Has(key) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "cache_entry_not_found"})
		}
		return c.JSON(fiber.Map{"key": []string(key), "cached": true})
	}
	app.Get("/-/cache/*", has)
	app.Head("/-/cache/*", has)

	app.Delete("/-/cache/*", func(c fiber.Ctx) error {
		key := keyFromPath(c)
		err := store.Remove(key)
		switch {
		case err == nil:
			logger.WithFields(logrus.Fields{
				"action":     "cache_remove",
				"key":        key.String(),
				"request_id": server.RequestID(c),
			}).Info("cache_entry_removed")
			return c.SendStatus(fiber.StatusNoContent)
		case cache.IsNotFound(err):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "cache_entry_not_found"})
		case errors.Is(err, cache.ErrInvalidKey):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_cache_key"})
		default:
			logger.WithError(err).WithField("key", key.String()).Warn("cache_remove_failed")
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "cache_remove_failed"})
		}
	})
}

// keyFromPath 逐段 PathUnescape；无法解码的段保持原样，由 Store 校验。
func keyFromPath(c fiber.Ctx) cache.Key {
	raw := strings.Trim(c.Params("*"), "/")
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, "/")
	key := make(cache.Key, 0, len(parts))
	for _, part := range parts {
		if decoded, err := url.PathUnescape(part); err == nil {
			part = decoded
		}
		key = append(key, part)
	}
	return key
}
