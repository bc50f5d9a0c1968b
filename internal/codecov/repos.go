package codecov

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
)

const reposPageSize = 100

// GetAllRepos 沿着 next 链接读取 owner 下的全部仓库。
// https://docs.codecov.com/reference/repos_list
func (c *Client) GetAllRepos(ctx context.Context, owner Owner) ([]Repo, error) {
	query := url.Values{"page_size": []string{strconv.Itoa(reposPageSize)}}
	next := c.endpoint(query, owner.Service, owner.Username, "repos")

	var repos []Repo
	seen := map[string]struct{}{}
	for next != "" {
		if _, ok := seen[next]; ok {
			return nil, fmt.Errorf("pagination loop detected at %s", next)
		}
		seen[next] = struct{}{}

		var page ReposPage
		if err := c.getJSON(ctx, next, &page); err != nil {
			return nil, err
		}
		repos = append(repos, page.Results...)
		next = page.Next
	}
	return repos, nil
}
