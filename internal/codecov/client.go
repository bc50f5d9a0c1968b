package codecov

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"
	"github.com/sirupsen/logrus"
)

// DefaultBaseURL 是 Codecov v2 API 的公共地址。
const DefaultBaseURL = "https://api.codecov.io/api/v2"

const maxBodyBytes = 16 << 20

// Options 控制 Client 的上游地址、鉴权与重试行为。
type Options struct {
	BaseURL        string
	Token          string
	HTTPClient     *http.Client
	MaxRetries     int
	InitialBackoff time.Duration
	Logger         *logrus.Logger
}

// Client 访问 Codecov v2 API，所有方法都尊重 ctx 的取消与超时。
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	maxRetries int
	backoff    time.Duration
	logger     *logrus.Logger
}

// NewClient 校验 BaseURL 并填充默认值。
func NewClient(opts Options) (*Client, error) {
	base := strings.TrimSpace(opts.BaseURL)
	if base == "" {
		base = DefaultBaseURL
	}
	parsed, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("parse codecov base url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" || parsed.Host == "" {
		return nil, fmt.Errorf("invalid codecov base url: %s", base)
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	backoff := opts.InitialBackoff
	if backoff <= 0 {
		backoff = time.Second
	}
	maxRetries := opts.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}
	logger := opts.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	return &Client{
		baseURL:    strings.TrimRight(parsed.String(), "/"),
		token:      opts.Token,
		httpClient: httpClient,
		maxRetries: maxRetries,
		backoff:    backoff,
		logger:     logger,
	}, nil
}

type response struct {
	status int
	body   []byte
	url    string
}

// endpoint 按段转义后拼接路径，保留 Codecov 要求的结尾斜杠。
func (c *Client) endpoint(query url.Values, segments ...string) string {
	escaped := make([]string, len(segments))
	for i, segment := range segments {
		escaped[i] = url.PathEscape(segment)
	}
	u := c.baseURL + "/" + strings.Join(escaped, "/") + "/"
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

// get 执行 GET 请求，对传输错误、429 与 5xx 做指数退避重试。
func (c *Client) get(ctx context.Context, rawURL string) (*response, error) {
	backoff := retry.WithMaxRetries(uint64(c.maxRetries), retry.NewExponential(c.backoff))

	var result *response
	attempt := 0
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		resp, err := c.once(ctx, rawURL)
		if err != nil {
			if ctx.Err() != nil {
				return err
			}
			c.logRetry(rawURL, attempt, err)
			return retry.RetryableError(err)
		}
		if resp.status == http.StatusTooManyRequests || resp.status >= http.StatusInternalServerError {
			apiErr := &APIError{StatusCode: resp.status, Detail: parseDetail(resp.body), URL: rawURL}
			c.logRetry(rawURL, attempt, apiErr)
			return retry.RetryableError(apiErr)
		}
		result = resp
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (c *Client) once(ctx context.Context, rawURL string) (*response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rawURL, err)
	}
	return &response{status: resp.StatusCode, body: body, url: rawURL}, nil
}

// getJSON 要求 2xx 并把正文解码到 out，其它状态一律返回 *APIError。
func (c *Client) getJSON(ctx context.Context, rawURL string, out interface{}) error {
	resp, err := c.get(ctx, rawURL)
	if err != nil {
		return err
	}
	if resp.status < 200 || resp.status >= 300 {
		return &APIError{StatusCode: resp.status, Detail: parseDetail(resp.body), URL: rawURL}
	}
	return decode(resp, out)
}

func decode(resp *response, out interface{}) error {
	if err := json.Unmarshal(resp.body, out); err != nil {
		return fmt.Errorf("decode %s: %w", resp.url, err)
	}
	return nil
}

func (c *Client) logRetry(rawURL string, attempt int, err error) {
	c.logger.WithError(err).WithFields(logrus.Fields{
		"action":  "codecov_retry",
		"url":     rawURL,
		"attempt": attempt,
	}).Warn("codecov_request_failed")
}

// IsTransient reports whether err came from a retryable condition that
// persisted after every retry.
func IsTransient(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Temporary()
	}
	return false
}
