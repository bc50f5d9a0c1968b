package cache

import (
	"errors"
	"fmt"
)

// ErrorKind 区分可恢复的“条目不存在”与其它 I/O 失败。
type ErrorKind int

const (
	// KindNotFound 表示 Key 对应的条目不存在，调用方应回源。
	KindNotFound ErrorKind = iota + 1
	// KindIO 覆盖权限、磁盘、非法 Key 等其它失败。
	KindIO
)

func (k ErrorKind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindIO:
		return "io"
	default:
		return "unknown"
	}
}

// ErrNotFound 表示缓存不存在。errors.Is(err, ErrNotFound) 对所有 KindNotFound 错误成立。
var ErrNotFound = errors.New("cache entry not found")

// Error 是 Store 所有失败的统一类型。
type Error struct {
	Kind ErrorKind
	Op   string
	Key  Key
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("cache %s %s: %s", e.Op, e.Key, e.Kind)
	}
	return fmt.Sprintf("cache %s %s: %v", e.Op, e.Key, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is 让 errors.Is(err, ErrNotFound) 只依赖 Kind，而不关心底层 fs 错误。
func (e *Error) Is(target error) bool {
	return target == ErrNotFound && e.Kind == KindNotFound
}

// IsNotFound reports whether err marks an absent cache entry.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// KindOf 返回 err 链上第一个 *Error 的 Kind；非缓存错误返回 0。
func KindOf(err error) ErrorKind {
	var cacheErr *Error
	if errors.As(err, &cacheErr) {
		return cacheErr.Kind
	}
	return 0
}

func notFound(op string, key Key, err error) error {
	if err == nil {
		err = ErrNotFound
	}
	return &Error{Kind: KindNotFound, Op: op, Key: key, Err: err}
}

func ioFailure(op string, key Key, err error) error {
	return &Error{Kind: KindIO, Op: op, Key: key, Err: err}
}
