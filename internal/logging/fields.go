package logging

import "github.com/sirupsen/logrus"

// BaseFields 构建 action + 配置路径等基础字段，便于不同入口复用。
func BaseFields(action, configPath string) logrus.Fields {
	return logrus.Fields{
		"action":     action,
		"configPath": configPath,
	}
}

// QueryFields 提供 branch detail 查询的定位字段与命中状态，供 fetch/server 日志复用。
func QueryFields(service, owner, repo, branch, commitID string, cacheHit bool) logrus.Fields {
	return logrus.Fields{
		"service":   service,
		"owner":     owner,
		"repo":      repo,
		"branch":    branch,
		"commit_id": commitID,
		"cache_hit": cacheHit,
	}
}
