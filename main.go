package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/codecov-cache/codecov-cache/internal/cache"
	"github.com/codecov-cache/codecov-cache/internal/codecov"
	"github.com/codecov-cache/codecov-cache/internal/config"
	"github.com/codecov-cache/codecov-cache/internal/fetch"
	"github.com/codecov-cache/codecov-cache/internal/logging"
	"github.com/codecov-cache/codecov-cache/internal/server"
	"github.com/codecov-cache/codecov-cache/internal/server/routes"
	"github.com/codecov-cache/codecov-cache/internal/version"
)

// cliOptions 汇总 CLI 标志解析后的结果，便于在测试中注入。
type cliOptions struct {
	configPath  string
	checkOnly   bool
	showVersion bool
	query       queryOptions
}

// queryOptions 描述一次性的 branch detail 查询；branch 为空时进入服务模式。
type queryOptions struct {
	service string
	owner   string
	repo    string
	branch  string
	commit  string
}

func (q queryOptions) enabled() bool {
	return q.branch != ""
}

var (
	stdOut io.Writer = os.Stdout
	stdErr io.Writer = os.Stderr
)

func main() {
	opts, err := parseCLIFlags(os.Args[1:])
	if err != nil {
		fmt.Fprintln(stdErr, err.Error())
		os.Exit(2)
	}
	os.Exit(run(opts))
}

// run 根据解析到的 CLI 选项执行业务流程，并返回退出码，方便测试。
func run(opts cliOptions) int {
	if opts.showVersion {
		printVersion()
		return 0
	}

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		fmt.Fprintf(stdErr, "加载配置失败: %v\n", err)
		return 1
	}

	logger, err := logging.InitLogger(cfg.Global)
	if err != nil {
		fmt.Fprintf(stdErr, "初始化日志失败: %v\n", err)
		return 1
	}

	if opts.checkOnly {
		fields := logging.BaseFields("check_config", opts.configPath)
		fields["cache_dir"] = cfg.Global.CacheDir
		fields["auth_mode"] = cfg.Codecov.AuthMode()
		fields["result"] = "ok"
		logger.WithFields(fields).Info("配置校验通过")
		return 0
	}

	// 启动顺序：配置 → 磁盘缓存 → Codecov client → Fetcher → 查询或 Fiber server，
	// 保证所有请求共享同一个缓存根目录与上游连接池。
	store, err := cache.NewStore(cfg.Global.CacheDir, cfg.Global.CacheFileName)
	if err != nil {
		fmt.Fprintf(stdErr, "初始化缓存目录失败: %v\n", err)
		return 1
	}

	client, err := codecov.NewClient(codecov.Options{
		BaseURL:        cfg.Codecov.BaseURL,
		Token:          cfg.Codecov.Token,
		HTTPClient:     server.NewUpstreamClient(cfg),
		MaxRetries:     cfg.Codecov.MaxRetries,
		InitialBackoff: cfg.Codecov.InitialBackoff.DurationValue(),
		Logger:         logger,
	})
	if err != nil {
		fmt.Fprintf(stdErr, "初始化 Codecov client 失败: %v\n", err)
		return 1
	}
	fetcher := fetch.NewFetcher(client, store, logger)

	if opts.query.enabled() {
		return runQuery(context.Background(), fetcher, opts.query)
	}

	fields := logging.BaseFields("startup", opts.configPath)
	fields["listen_port"] = cfg.Global.ListenPort
	fields["cache_dir"] = cfg.Global.CacheDir
	fields["auth_mode"] = cfg.Codecov.AuthMode()
	fields["version"] = version.Full()
	logger.WithFields(fields).Info("配置加载完成")

	if err := startHTTPServer(cfg, fetcher, client, store, logger); err != nil {
		fmt.Fprintf(stdErr, "HTTP 服务启动失败: %v\n", err)
		return 1
	}
	return 0
}

// runQuery 执行一次 cache-aside 查询并把 branch detail 以 JSON 输出到 stdout。
func runQuery(ctx context.Context, fetcher *fetch.Fetcher, q queryOptions) int {
	if q.service == "" || q.owner == "" || q.repo == "" {
		fmt.Fprintln(stdErr, "查询需要同时提供 -service、-owner、-repo")
		return 2
	}
	author := codecov.NewOwner(q.service, q.owner).NewAuthor(q.repo)

	result, err := fetcher.GetBranchDetail(ctx, author, q.branch, q.commit)
	if err != nil {
		fmt.Fprintf(stdErr, "查询 Codecov 失败: %v\n", err)
		return 1
	}
	detail, ok := result.Success()
	if !ok {
		fmt.Fprintf(stdErr, "分支不存在: %s\n", result.Message)
		return 1
	}

	encoder := json.NewEncoder(stdOut)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(detail); err != nil {
		fmt.Fprintf(stdErr, "输出结果失败: %v\n", err)
		return 1
	}
	return 0
}

// parseCLIFlags 解析 CLI 参数，并结合环境变量计算最终的配置路径。
func parseCLIFlags(args []string) (cliOptions, error) {
	fs := flag.NewFlagSet("codecov-cache", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	var (
		configFlag string
		checkOnly  bool
		showVer    bool
		query      queryOptions
	)

	fs.StringVar(&configFlag, "config", "", "配置文件路径（可被 CODECOV_CACHE_CONFIG 提供，缺省时只使用环境变量）")
	fs.BoolVar(&checkOnly, "check-config", false, "仅校验配置后退出")
	fs.BoolVar(&showVer, "version", false, "显示版本信息")
	fs.StringVar(&query.service, "service", "github", "代码托管服务，如 github/gitlab/bitbucket")
	fs.StringVar(&query.owner, "owner", "", "仓库所有者")
	fs.StringVar(&query.repo, "repo", "", "仓库名")
	fs.StringVar(&query.branch, "branch", "", "分支名；提供后执行一次查询而不是启动服务")
	fs.StringVar(&query.commit, "commit", "", "已知的 commit id；为空时不使用缓存")

	if err := fs.Parse(args); err != nil {
		return cliOptions{}, fmt.Errorf("解析参数失败: %w", err)
	}
	if query.commit != "" && query.branch == "" {
		return cliOptions{}, errors.New("-commit 需要与 -branch 一起使用")
	}

	path := os.Getenv("CODECOV_CACHE_CONFIG")
	if configFlag != "" {
		path = configFlag
	}

	return cliOptions{
		configPath:  path,
		checkOnly:   checkOnly,
		showVersion: showVer,
		query:       query,
	}, nil
}

func startHTTPServer(cfg *config.Config, fetcher *fetch.Fetcher, client *codecov.Client, store cache.Store, logger *logrus.Logger) error {
	port := cfg.Global.ListenPort
	app, err := server.NewApp(server.AppOptions{
		Logger:     logger,
		ListenPort: port,
	})
	if err != nil {
		return err
	}
	routes.RegisterAPIRoutes(app, routes.APIOptions{
		Logger:   logger,
		Fetcher:  fetcher,
		Upstream: client,
	})
	routes.RegisterCacheRoutes(app, store, logger)
	server.RegisterFallback(app, logger)

	logger.WithFields(logrus.Fields{
		"action": "listen",
		"port":   port,
	}).Info("Fiber 服务启动")

	return app.Listen(fmt.Sprintf(":%d", port))
}
