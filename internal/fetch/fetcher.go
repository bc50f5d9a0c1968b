package fetch

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/codecov-cache/codecov-cache/internal/cache"
	"github.com/codecov-cache/codecov-cache/internal/codecov"
	"github.com/codecov-cache/codecov-cache/internal/logging"
)

// RemoteClient 是 Fetcher 依赖的上游能力，*codecov.Client 满足该接口。
type RemoteClient interface {
	GetBranchDetail(ctx context.Context, author codecov.Author, branch string) (codecov.BranchDetailResult, error)
}

// Query 描述一次 branch detail 查询；CommitID 为空表示不走缓存。
type Query struct {
	Author   codecov.Author
	Branch   string
	CommitID string
}

// LookupKey 返回调用方已知 commit id 对应的查找 Key。
func (q Query) LookupKey() cache.Key {
	return q.keyFor(q.CommitID)
}

// CanonicalKey 用响应中解析出的 head commit id 替换查找 Key 的最后一段。
func (q Query) CanonicalKey(resolvedCommitID string) cache.Key {
	return q.keyFor(resolvedCommitID)
}

// keyFor 组装 [service, owner, repo, branch, commit]，各段只做磁盘布局必需的转义。
func (q Query) keyFor(commitID string) cache.Key {
	return cache.Key{
		escapeSegment(q.Author.Service),
		escapeSegment(q.Author.Username),
		escapeSegment(q.Author.Name),
		escapeSegment(q.Branch),
		escapeSegment(commitID),
	}
}

// segmentEscaper 只替换会被缓存拒绝的字符；"%" 一并转义以保持可逆。
var segmentEscaper = strings.NewReplacer(
	"%", "%25",
	"/", "%2F",
	"\\", "%5C",
	"\x00", "%00",
)

// escapeSegment 保留空格与非 ASCII 字符原样，"." 与 ".." 整段转义。
func escapeSegment(segment string) string {
	switch segment {
	case ".":
		return "%2E"
	case "..":
		return "%2E%2E"
	}
	return segmentEscaper.Replace(segment)
}

// Outcome 是一次 Fetch 的完整结果。
type Outcome struct {
	Result codecov.BranchDetailResult
	// CacheHit 表示结果来自磁盘缓存，未发生网络请求。
	CacheHit bool
	// Stored 表示本次回源结果已写入规范 Key。
	Stored bool
}

// Fetcher 协调“先查缓存，未命中回源，再按规范 Key 写回”的流程，可被多次查询复用。
type Fetcher struct {
	remote RemoteClient
	store  cache.Store
	writer cache.BestEffortWriter
	logger *logrus.Logger
}

// Option 调整 Fetcher 的可选行为。
type Option func(*Fetcher)

// WithFailureReporter 替换默认的写回失败处理（默认记录 warn 日志）。
func WithFailureReporter(report cache.FailureReporter) Option {
	return func(f *Fetcher) {
		f.writer = cache.NewBestEffortWriter(f.store, report)
	}
}

// NewFetcher 组装 Fetcher。store 为空时所有查询都直接回源。
func NewFetcher(remote RemoteClient, store cache.Store, logger *logrus.Logger, opts ...Option) *Fetcher {
	if logger == nil {
		logger = logging.Discard()
	}
	f := &Fetcher{
		remote: remote,
		store:  store,
		logger: logger,
	}
	f.writer = cache.NewBestEffortWriter(store, f.reportSaveFailure)
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// GetBranchDetail 是 Fetch 的便捷包装，只返回业务结果。
func (f *Fetcher) GetBranchDetail(ctx context.Context, author codecov.Author, branch, commitID string) (codecov.BranchDetailResult, error) {
	outcome, err := f.Fetch(ctx, Query{Author: author, Branch: branch, CommitID: commitID})
	if err != nil {
		return codecov.BranchDetailResult{}, err
	}
	return outcome.Result, nil
}

// Fetch 执行一次 cache-aside 查询。只有上游请求本身的失败会作为 error 返回。
func (f *Fetcher) Fetch(ctx context.Context, q Query) (Outcome, error) {
	if q.CommitID == "" {
		result, err := f.remote.GetBranchDetail(ctx, q.Author, q.Branch)
		if err != nil {
			return Outcome{}, err
		}
		return Outcome{Result: result}, nil
	}

	if detail, ok := f.loadCached(q); ok {
		f.logger.WithFields(f.fields(q, true)).Debug("branch_detail_cache_hit")
		return Outcome{Result: codecov.Found(detail), CacheHit: true}, nil
	}

	result, err := f.remote.GetBranchDetail(ctx, q.Author, q.Branch)
	if err != nil {
		return Outcome{}, err
	}

	outcome := Outcome{Result: result}
	if detail, ok := result.Success(); ok {
		outcome.Stored = f.storeDetail(q.CanonicalKey(detail.HeadCommit.CommitID), detail)
	}
	return outcome, nil
}

// loadCached 读取并解码查找 Key；任何失败都按未命中处理。
func (f *Fetcher) loadCached(q Query) (*codecov.BranchDetail, bool) {
	if f.store == nil {
		return nil, false
	}
	key := q.LookupKey()
	data, err := f.store.Load(key)
	if err != nil {
		if !cache.IsNotFound(err) {
			f.logger.WithError(err).WithFields(f.fields(q, false)).Debug("cache_load_failed")
		}
		return nil, false
	}

	var detail codecov.BranchDetail
	if err := json.Unmarshal(data, &detail); err != nil {
		f.logger.WithError(err).WithFields(f.fields(q, false)).Debug("cache_decode_failed")
		return nil, false
	}
	if err := detail.Validate(); err != nil {
		f.logger.WithError(err).WithFields(f.fields(q, false)).Debug("cache_decode_failed")
		return nil, false
	}
	return &detail, true
}

func (f *Fetcher) storeDetail(key cache.Key, detail *codecov.BranchDetail) bool {
	if !f.writer.Enabled() {
		return false
	}
	data, err := json.Marshal(detail)
	if err != nil {
		f.writer.Report(key, err)
		return false
	}
	return f.writer.Save(key, data)
}

func (f *Fetcher) reportSaveFailure(key cache.Key, err error) {
	f.logger.WithError(err).WithFields(logrus.Fields{
		"action": "cache_save",
		"key":    key.String(),
	}).Warn("cache_save_failed")
}

func (f *Fetcher) fields(q Query, cacheHit bool) logrus.Fields {
	return logging.QueryFields(q.Author.Service, q.Author.Username, q.Author.Name, q.Branch, q.CommitID, cacheHit)
}
