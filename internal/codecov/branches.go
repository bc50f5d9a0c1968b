package codecov

import (
	"context"
	"errors"
	"net/http"
)

// GetBranchDetail 获取分支详情（含 head commit）。404 返回 ResultNotFound 而不是错误，
// 其它非 2xx 状态与网络错误以 error 返回。
// https://docs.codecov.com/reference/repos_branches_retrieve
func (c *Client) GetBranchDetail(ctx context.Context, author Author, branch string) (BranchDetailResult, error) {
	if branch == "" {
		return BranchDetailResult{}, errors.New("branch name required")
	}
	rawURL := c.endpoint(nil, author.Service, author.Username, "repos", author.Name, "branches", branch)

	resp, err := c.get(ctx, rawURL)
	if err != nil {
		return BranchDetailResult{}, err
	}
	switch {
	case resp.status == http.StatusNotFound:
		return NotFound(parseDetail(resp.body)), nil
	case resp.status < 200 || resp.status >= 300:
		return BranchDetailResult{}, &APIError{StatusCode: resp.status, Detail: parseDetail(resp.body), URL: rawURL}
	}

	var detail BranchDetail
	if err := decode(resp, &detail); err != nil {
		return BranchDetailResult{}, err
	}
	return Found(&detail), nil
}

// GetBranches 返回仓库分支列表的第一页。
// https://docs.codecov.com/reference/repos_branches_list
func (c *Client) GetBranches(ctx context.Context, author Author) (*BranchesPage, error) {
	var page BranchesPage
	rawURL := c.endpoint(nil, author.Service, author.Username, "repos", author.Name, "branches")
	if err := c.getJSON(ctx, rawURL, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// GetCommits 返回仓库 commit 列表的第一页。
// https://docs.codecov.com/reference/repos_commits_list
func (c *Client) GetCommits(ctx context.Context, author Author) (*CommitsPage, error) {
	var page CommitsPage
	rawURL := c.endpoint(nil, author.Service, author.Username, "repos", author.Name, "commits")
	if err := c.getJSON(ctx, rawURL, &page); err != nil {
		return nil, err
	}
	return &page, nil
}
