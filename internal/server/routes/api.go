package routes

import (
	"context"
	"net/url"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/sirupsen/logrus"

	"github.com/codecov-cache/codecov-cache/internal/codecov"
	"github.com/codecov-cache/codecov-cache/internal/fetch"
	"github.com/codecov-cache/codecov-cache/internal/logging"
	"github.com/codecov-cache/codecov-cache/internal/server"
)

// BranchFetcher 执行 cache-aside 的 branch detail 查询，*fetch.Fetcher 满足该接口。
type BranchFetcher interface {
	Fetch(ctx context.Context, q fetch.Query) (fetch.Outcome, error)
}

// Upstream 提供不走缓存的透传接口，*codecov.Client 满足该接口。
type Upstream interface {
	GetBranches(ctx context.Context, author codecov.Author) (*codecov.BranchesPage, error)
	GetCommits(ctx context.Context, author codecov.Author) (*codecov.CommitsPage, error)
	GetAllRepos(ctx context.Context, owner codecov.Owner) ([]codecov.Repo, error)
}

// APIOptions 汇总 API 路由的依赖。
type APIOptions struct {
	Logger   *logrus.Logger
	Fetcher  BranchFetcher
	Upstream Upstream
}

// RegisterAPIRoutes 以 Codecov v2 的路径形状暴露本地缓存网关。
// branch detail 使用通配段，使带 "/" 的分支名（需编码为 %2F）也能匹配。
func RegisterAPIRoutes(app *fiber.App, opts APIOptions) {
	if app == nil || opts.Fetcher == nil || opts.Upstream == nil || opts.Logger == nil {
		return
	}
	h := apiHandler{APIOptions: opts}

	app.Get("/api/v2/:service/:owner/repos", h.listRepos)
	app.Get("/api/v2/:service/:owner/repos/:repo/commits", h.listCommits)
	app.Get("/api/v2/:service/:owner/repos/:repo/branches", h.listBranches)
	app.Get("/api/v2/:service/:owner/repos/:repo/branches/*", h.branchDetail)
}

type apiHandler struct {
	APIOptions
}

func (h apiHandler) listRepos(c fiber.Ctx) error {
	repos, err := h.Upstream.GetAllRepos(requestContext(c), authorFromParams(c).Owner())
	if err != nil {
		return h.upstreamFailure(c, "list_repos", err)
	}
	return c.JSON(fiber.Map{
		"count":   len(repos),
		"results": repos,
	})
}

func (h apiHandler) listCommits(c fiber.Ctx) error {
	page, err := h.Upstream.GetCommits(requestContext(c), authorFromParams(c))
	if err != nil {
		return h.upstreamFailure(c, "list_commits", err)
	}
	return c.JSON(page)
}

func (h apiHandler) listBranches(c fiber.Ctx) error {
	page, err := h.Upstream.GetBranches(requestContext(c), authorFromParams(c))
	if err != nil {
		return h.upstreamFailure(c, "list_branches", err)
	}
	return c.JSON(page)
}

func (h apiHandler) branchDetail(c fiber.Ctx) error {
	started := time.Now()
	branch, err := url.PathUnescape(c.Params("*"))
	if err != nil || branch == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "branch_required"})
	}
	query := fetch.Query{
		Author:   authorFromParams(c),
		Branch:   branch,
		CommitID: c.Query("commit"),
	}

	outcome, err := h.Fetcher.Fetch(requestContext(c), query)
	if err != nil {
		return h.upstreamFailure(c, "branch_detail", err)
	}

	fields := logging.QueryFields(query.Author.Service, query.Author.Username, query.Author.Name, query.Branch, query.CommitID, outcome.CacheHit)
	fields["action"] = "branch_detail"
	fields["result"] = outcome.Result.Kind.String()
	fields["stored"] = outcome.Stored
	fields["request_id"] = server.RequestID(c)
	fields["elapsed_ms"] = time.Since(started).Milliseconds()
	h.Logger.WithFields(fields).Info("branch_detail_served")

	c.Set("X-Codecov-Cache-Hit", strconv.FormatBool(outcome.CacheHit))
	c.Set("X-Codecov-Cache-Stored", strconv.FormatBool(outcome.Stored))

	detail, ok := outcome.Result.Success()
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"detail": outcome.Result.Message})
	}
	return c.JSON(detail)
}

// upstreamFailure 将上游错误映射为 502；鉴权失败原样透传 401/403，
// 重试耗尽后仍为 429/5xx 的返回 503。
func (h apiHandler) upstreamFailure(c fiber.Ctx, action string, err error) error {
	status := fiber.StatusBadGateway
	switch {
	case codecov.IsUnauthorized(err):
		status = codecov.StatusCode(err)
	case codecov.IsTransient(err):
		status = fiber.StatusServiceUnavailable
	}
	h.Logger.WithError(err).WithFields(logrus.Fields{
		"action":     action,
		"path":       c.Path(),
		"status":     status,
		"request_id": server.RequestID(c),
	}).Warn("upstream_failed")
	return c.Status(status).JSON(fiber.Map{
		"error":  "upstream_failed",
		"detail": err.Error(),
	})
}

func authorFromParams(c fiber.Ctx) codecov.Author {
	return codecov.Author{
		Service:  c.Params("service"),
		Username: c.Params("owner"),
		Name:     c.Params("repo"),
	}
}

func requestContext(c fiber.Ctx) context.Context {
	ctx := c.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return ctx
}
