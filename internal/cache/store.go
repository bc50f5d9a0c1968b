package cache

import (
	"errors"
	"strings"
)

// DefaultFileName 是每个条目目录下的叶子文件名。
const DefaultFileName = "data.json"

// Store 负责磁盘缓存的读写。磁盘布局遵循：
//
//	<root>/<k1>/.../<kn>/<fileName>
//
// 所有操作都直接访问文件系统，不在进程内保留任何副本。
type Store interface {
	// Save 递归创建条目目录，并通过临时文件 + rename 覆盖写入正文。
	Save(key Key, data []byte) error

	// Load 读取完整正文。条目不存在时返回 KindNotFound 错误。
	Load(key Key) ([]byte, error)

	// Remove 仅删除叶子文件，不清理空目录。不存在时返回 KindNotFound。
	Remove(key Key) error

	// Has 只做存在性判断，从不返回错误；后续 Load 才是权威结果。
	Has(key Key) bool
}

// Key 按“从泛到具体”排列的分段序列，每段对应一层目录。
type Key []string

// ErrInvalidKey 表示 Key 为空或含有无法作为单层目录名的分段。
var ErrInvalidKey = errors.New("invalid cache key")

// Validate 检查 Key 非空，且每段都能安全地作为一层目录名。
func (k Key) Validate() error {
	if len(k) == 0 {
		return ErrInvalidKey
	}
	for _, segment := range k {
		if !validSegment(segment) {
			return ErrInvalidKey
		}
	}
	return nil
}

// Equal 逐段比较，顺序敏感。
func (k Key) Equal(other Key) bool {
	if len(k) != len(other) {
		return false
	}
	for i := range k {
		if k[i] != other[i] {
			return false
		}
	}
	return true
}

// String 以 "/" 拼接分段，仅用于日志输出。
func (k Key) String() string {
	return strings.Join(k, "/")
}

func validSegment(segment string) bool {
	if segment == "" || segment == "." || segment == ".." {
		return false
	}
	return !strings.ContainsAny(segment, `/\`) && !strings.ContainsRune(segment, 0)
}
