package codecov

import "errors"

// Owner 标识一个 Codecov 账户（如 github/kitsuyui）。
type Owner struct {
	Service  string
	Username string
}

// NewOwner 构造 Owner。
func NewOwner(service, username string) Owner {
	return Owner{Service: service, Username: username}
}

// NewAuthor 返回 owner 名下某个仓库的 Author。
func (o Owner) NewAuthor(repo string) Author {
	return Author{Service: o.Service, Username: o.Username, Name: repo}
}

// Author 定位一个仓库：service/username/name。
type Author struct {
	Service  string
	Username string
	Name     string
}

// Owner 返回仓库所属账户。
func (a Author) Owner() Owner {
	return Owner{Service: a.Service, Username: a.Username}
}

// BranchDetail 对应 /branches/{name}/ 的响应。
type BranchDetail struct {
	Name        string `json:"name"`
	UpdateStamp string `json:"updatestamp"`
	HeadCommit  Commit `json:"head_commit"`
}

// ErrIncompleteDetail 表示 BranchDetail 缺少分支名或 head commit id。
var ErrIncompleteDetail = errors.New("branch detail missing name or head commit id")

// Validate 检查结构是否完整，缓存读回的数据必须通过此校验才会被使用。
func (b *BranchDetail) Validate() error {
	if b == nil || b.Name == "" || b.HeadCommit.CommitID == "" {
		return ErrIncompleteDetail
	}
	return nil
}

// Commit 是 Codecov commit 对象的常用字段子集。
type Commit struct {
	CommitID  string   `json:"commitid"`
	Message   string   `json:"message"`
	Timestamp string   `json:"timestamp"`
	CIPassed  *bool    `json:"ci_passed"`
	Author    *UserRef `json:"author"`
	Branch    string   `json:"branch"`
	Totals    *Totals  `json:"totals"`
	State     string   `json:"state"`
	Parent    string   `json:"parent"`
}

// UserRef 是嵌入在 commit/repo 中的账户引用。
type UserRef struct {
	Service  string `json:"service"`
	Username string `json:"username"`
	Name     string `json:"name"`
}

// Totals 描述覆盖率统计。
type Totals struct {
	Files    int     `json:"files"`
	Lines    int     `json:"lines"`
	Hits     int     `json:"hits"`
	Misses   int     `json:"misses"`
	Partials int     `json:"partials"`
	Coverage float64 `json:"coverage"`
	Branches int     `json:"branches"`
	Methods  int     `json:"methods"`
	Sessions int     `json:"sessions"`
}

// Branch 是分支列表中的条目。
type Branch struct {
	Name        string `json:"name"`
	UpdateStamp string `json:"updatestamp"`
}

// Repo 是仓库列表中的条目。
type Repo struct {
	Name        string  `json:"name"`
	Private     bool    `json:"private"`
	UpdateStamp string  `json:"updatestamp"`
	Author      UserRef `json:"author"`
	Language    string  `json:"language"`
	Branch      string  `json:"branch"`
	Active      bool    `json:"active"`
	Activated   bool    `json:"activated"`
	Totals      *Totals `json:"totals"`
}

// Page 是 Codecov 分页响应的通用外壳。
type Page[T any] struct {
	Count      int    `json:"count"`
	Next       string `json:"next"`
	Previous   string `json:"previous"`
	Results    []T    `json:"results"`
	TotalPages int    `json:"total_pages"`
}

type (
	BranchesPage = Page[Branch]
	CommitsPage  = Page[Commit]
	ReposPage    = Page[Repo]
)

// ResultKind 区分 branch detail 的成功与“不存在”两种业务结果。
type ResultKind int

const (
	ResultSuccess ResultKind = iota + 1
	ResultNotFound
)

func (k ResultKind) String() string {
	switch k {
	case ResultSuccess:
		return "success"
	case ResultNotFound:
		return "not_found"
	default:
		return "unknown"
	}
}

// BranchDetailResult 是 GetBranchDetail 的业务结果。只有 ResultSuccess 携带 Detail；
// ResultNotFound 携带 API 返回的 detail 文本。
type BranchDetailResult struct {
	Kind    ResultKind
	Detail  *BranchDetail
	Message string
}

// Found 构造成功结果。
func Found(detail *BranchDetail) BranchDetailResult {
	return BranchDetailResult{Kind: ResultSuccess, Detail: detail}
}

// NotFound 构造“分支不存在”结果。
func NotFound(message string) BranchDetailResult {
	return BranchDetailResult{Kind: ResultNotFound, Message: message}
}

// Success 仅在成功结果下返回 Detail。
func (r BranchDetailResult) Success() (*BranchDetail, bool) {
	if r.Kind != ResultSuccess || r.Detail == nil {
		return nil, false
	}
	return r.Detail, true
}
