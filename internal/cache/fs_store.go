package cache

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"syscall"
)

// NewStore 以 root 为根目录构建磁盘缓存。root 不会在此处创建，首次 Save 时按需递归创建。
func NewStore(root, fileName string) (Store, error) {
	if root == "" {
		return nil, errors.New("cache root required")
	}
	if fileName == "" {
		fileName = DefaultFileName
	}
	if !validSegment(fileName) {
		return nil, fmt.Errorf("invalid cache file name: %q", fileName)
	}

	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve cache root: %w", err)
	}

	return &fileStore{
		root:     abs,
		fileName: fileName,
	}, nil
}

// fileStore 无状态：除根目录与叶子文件名外不保存任何数据。
type fileStore struct {
	root     string
	fileName string
}

// Root 返回缓存根目录的绝对路径。
func (s *fileStore) Root() string {
	return s.root
}

func (s *fileStore) Save(key Key, data []byte) error {
	dir, err := s.entryDir(key)
	if err != nil {
		return ioFailure("save", key, err)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return ioFailure("save", key, err)
	}

	tempFile, err := os.CreateTemp(dir, ".cache-*")
	if err != nil {
		return ioFailure("save", key, err)
	}
	tempName := tempFile.Name()

	_, err = tempFile.Write(data)
	closeErr := tempFile.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(tempName)
		return ioFailure("save", key, err)
	}

	if err := os.Rename(tempName, filepath.Join(dir, s.fileName)); err != nil {
		os.Remove(tempName)
		return ioFailure("save", key, err)
	}
	return nil
}

func (s *fileStore) Load(key Key) ([]byte, error) {
	filePath, err := s.entryPath(key)
	if err != nil {
		return nil, ioFailure("load", key, err)
	}

	info, err := os.Stat(filePath)
	if err != nil {
		if isAbsent(err) {
			return nil, notFound("load", key, err)
		}
		return nil, ioFailure("load", key, err)
	}
	if info.IsDir() {
		return nil, notFound("load", key, nil)
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		if isAbsent(err) {
			return nil, notFound("load", key, err)
		}
		return nil, ioFailure("load", key, err)
	}
	return data, nil
}

func (s *fileStore) Remove(key Key) error {
	filePath, err := s.entryPath(key)
	if err != nil {
		return ioFailure("remove", key, err)
	}

	info, err := os.Lstat(filePath)
	if err != nil {
		if isAbsent(err) {
			return notFound("remove", key, err)
		}
		return ioFailure("remove", key, err)
	}
	if info.IsDir() {
		return notFound("remove", key, nil)
	}

	if err := os.Remove(filePath); err != nil {
		if isAbsent(err) {
			return notFound("remove", key, err)
		}
		return ioFailure("remove", key, err)
	}
	return nil
}

func (s *fileStore) Has(key Key) bool {
	filePath, err := s.entryPath(key)
	if err != nil {
		return false
	}
	info, err := os.Stat(filePath)
	return err == nil && !info.IsDir()
}

// entryDir 将 Key 逐段拼接到根目录下，不做哈希或转义。
func (s *fileStore) entryDir(key Key) (string, error) {
	if err := key.Validate(); err != nil {
		return "", fmt.Errorf("%w: %q", err, []string(key))
	}
	parts := make([]string, 0, len(key)+1)
	parts = append(parts, s.root)
	parts = append(parts, key...)
	dir := filepath.Join(parts...)
	prefix := s.root
	if !strings.HasSuffix(prefix, string(filepath.Separator)) {
		prefix += string(filepath.Separator)
	}
	if !strings.HasPrefix(dir, prefix) {
		return "", fmt.Errorf("%w: escapes cache root", ErrInvalidKey)
	}
	return dir, nil
}

func (s *fileStore) entryPath(key Key) (string, error) {
	dir, err := s.entryDir(key)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, s.fileName), nil
}

// isAbsent 把“路径某一层不存在或不是目录”都视为条目缺失。
func isAbsent(err error) bool {
	return errors.Is(err, fs.ErrNotExist) || errors.Is(err, syscall.ENOTDIR)
}
