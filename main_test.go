package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/codecov-cache/codecov-cache/internal/codecov"
)

func TestParseCLIFlagsPriority(t *testing.T) {
	t.Setenv("CODECOV_CACHE_CONFIG", "/tmp/env.toml")

	opts, err := parseCLIFlags([]string{})
	if err != nil {
		t.Fatalf("解析失败: %v", err)
	}
	if opts.configPath != "/tmp/env.toml" {
		t.Fatalf("应优先使用环境变量，得到 %s", opts.configPath)
	}

	opts, err = parseCLIFlags([]string{"--config", "/tmp/flag.toml"})
	if err != nil {
		t.Fatalf("解析失败: %v", err)
	}
	if opts.configPath != "/tmp/flag.toml" {
		t.Fatalf("flag 应高于环境变量，得到 %s", opts.configPath)
	}
}

func TestParseCLIFlagsQuery(t *testing.T) {
	t.Setenv("CODECOV_CACHE_CONFIG", "")

	opts, err := parseCLIFlags([]string{"-owner", "kitsuyui", "-repo", "rust-codecov", "-branch", "main", "-commit", "abc"})
	if err != nil {
		t.Fatalf("解析失败: %v", err)
	}
	if !opts.query.enabled() || opts.query.service != "github" || opts.query.commit != "abc" {
		t.Fatalf("查询参数解析错误: %+v", opts.query)
	}
	if opts.configPath != "" {
		t.Fatalf("未提供配置时路径应为空，得到 %s", opts.configPath)
	}

	if _, err := parseCLIFlags([]string{"-commit", "abc"}); err == nil {
		t.Fatalf("仅提供 -commit 应报错")
	}
	if _, err := parseCLIFlags([]string{"-unknown"}); err == nil {
		t.Fatalf("未知参数应报错")
	}
}

func TestRunCheckConfigSuccess(t *testing.T) {
	useBufferWriters(t)
	t.Setenv("CODECOV_CACHE_DIR", t.TempDir())
	code := run(cliOptions{configPath: configFixture(t, "valid.toml"), checkOnly: true})
	if code != 0 {
		t.Fatalf("期望退出码 0，得到 %d (stderr=%s)", code, stdErrBuffer().String())
	}
}

func TestRunCheckConfigFailure(t *testing.T) {
	useBufferWriters(t)
	code := run(cliOptions{configPath: configFixture(t, "missing.toml"), checkOnly: true})
	if code == 0 {
		t.Fatalf("无效配置应返回非零退出码")
	}
	if !strings.Contains(stdErrBuffer().String(), "加载配置失败") {
		t.Fatalf("stderr 应包含失败原因")
	}
}

func TestRunVersionOutput(t *testing.T) {
	useBufferWriters(t)
	code := run(cliOptions{showVersion: true})
	if code != 0 {
		t.Fatalf("version 模式应成功退出，得到 %d", code)
	}
	if !strings.Contains(stdOutBuffer().String(), "codecov-cache") {
		t.Fatalf("version 输出应包含 codecov-cache 标识")
	}
}

func TestRunQueryCachesByResolvedCommit(t *testing.T) {
	var calls int32
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		if r.URL.Path != "/api/v2/github/kitsuyui/repos/rust-codecov/branches/main/" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(`{"name":"main","head_commit":{"commitid":"c2","message":"tip"}}`))
	}))
	defer upstream.Close()

	cacheDir := t.TempDir()
	t.Setenv("CODECOV_CACHE_DIR", cacheDir)
	t.Setenv("CODECOV_API_URL", upstream.URL+"/api/v2")
	configPath := writeConfigFile(t, `LogLevel = "error"`)

	query := queryOptions{service: "github", owner: "kitsuyui", repo: "rust-codecov", branch: "main", commit: "c1"}

	useBufferWriters(t)
	if code := run(cliOptions{configPath: configPath, query: query}); code != 0 {
		t.Fatalf("查询应成功，得到 %d (stderr=%s)", code, stdErrBuffer().String())
	}
	var detail codecov.BranchDetail
	if err := json.Unmarshal(stdOutBuffer().Bytes(), &detail); err != nil {
		t.Fatalf("输出应为 JSON: %v", err)
	}
	if detail.HeadCommit.CommitID != "c2" {
		t.Fatalf("输出的 head commit 错误: %+v", detail)
	}

	stored := filepath.Join(cacheDir, "github", "kitsuyui", "rust-codecov", "main", "c2", "data.json")
	if _, err := os.Stat(stored); err != nil {
		t.Fatalf("结果应写入规范 Key: %v", err)
	}
	if _, err := os.Stat(filepath.Join(cacheDir, "github", "kitsuyui", "rust-codecov", "main", "c1")); !os.IsNotExist(err) {
		t.Fatalf("查找 Key 不应被写入, err=%v", err)
	}

	query.commit = "c2"
	stdOutBuffer().Reset()
	if code := run(cliOptions{configPath: configPath, query: query}); code != 0 {
		t.Fatalf("缓存查询应成功，得到 %d", code)
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Fatalf("第二次查询应命中缓存，上游调用次数 %d", got)
	}
	if !bytes.Contains(stdOutBuffer().Bytes(), []byte(`"c2"`)) {
		t.Fatalf("缓存结果应输出 c2")
	}
}

func TestRunQueryRemoteFailure(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"detail":"Invalid token."}`))
	}))
	defer upstream.Close()

	cacheDir := filepath.Join(t.TempDir(), "cache")
	t.Setenv("CODECOV_CACHE_DIR", cacheDir)
	t.Setenv("CODECOV_API_URL", upstream.URL+"/api/v2")
	configPath := writeConfigFile(t, `LogLevel = "error"`)

	useBufferWriters(t)
	code := run(cliOptions{configPath: configPath, query: queryOptions{
		service: "github", owner: "u", repo: "r", branch: "main", commit: "c1",
	}})
	if code == 0 {
		t.Fatalf("上游失败应返回非零退出码")
	}
	if !strings.Contains(stdErrBuffer().String(), "Invalid token.") {
		t.Fatalf("stderr 应包含上游错误: %s", stdErrBuffer().String())
	}
	if _, err := os.Stat(cacheDir); !os.IsNotExist(err) {
		t.Fatalf("上游失败不应创建缓存目录, err=%v", err)
	}
}

func TestRunQueryRequiresRepository(t *testing.T) {
	t.Setenv("CODECOV_CACHE_DIR", t.TempDir())
	configPath := writeConfigFile(t, `LogLevel = "error"`)

	useBufferWriters(t)
	code := run(cliOptions{configPath: configPath, query: queryOptions{service: "github", branch: "main"}})
	if code != 2 {
		t.Fatalf("缺少 owner/repo 应返回 2，得到 %d", code)
	}
}
