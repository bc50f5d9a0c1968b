package cache

import "errors"

// ErrStoreUnavailable 表示未注入缓存存储实例。
var ErrStoreUnavailable = errors.New("cache store unavailable")

// FailureReporter 接收 best-effort 写入失败；返回后错误即被丢弃。
type FailureReporter func(key Key, err error)

// BestEffortWriter 封装“写回缓存是副作用”的策略：写入失败只上报，
// 永远不会让调用方已经拿到的结果失效。
type BestEffortWriter struct {
	store  Store
	report FailureReporter
}

// NewBestEffortWriter 构造写入器；report 为空时失败被静默丢弃。
func NewBestEffortWriter(store Store, report FailureReporter) BestEffortWriter {
	return BestEffortWriter{
		store:  store,
		report: report,
	}
}

// Enabled 返回当前是否具备缓存写入能力。
func (w BestEffortWriter) Enabled() bool {
	return w.store != nil
}

// Save 尝试写入并返回是否成功，错误交给 FailureReporter。
func (w BestEffortWriter) Save(key Key, data []byte) bool {
	if w.store == nil {
		w.Report(key, ErrStoreUnavailable)
		return false
	}
	if err := w.store.Save(key, data); err != nil {
		w.Report(key, err)
		return false
	}
	return true
}

// Report 把写回前置步骤（如序列化）的失败也交给同一个 FailureReporter。
func (w BestEffortWriter) Report(key Key, err error) {
	if w.report != nil {
		w.report(key, err)
	}
}
