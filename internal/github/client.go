// Package github performs side-effecting pull-request operations against the
// GitHub REST API, translating remote responses into uniform results.
package github

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"git.home.luguber.info/inful/prbridge/internal/errors"
)

const defaultAPIURL = "https://api.github.com"

// Client is a bearer-token-authenticated GitHub API client scoped to
// pull-request operations.
type Client struct {
	httpClient *http.Client
	apiURL     string
	token      string
}

// Option configures a Client.
type Option func(*Client)

// WithAPIURL overrides the API base URL, mainly for tests and GitHub
// Enterprise instances.
func WithAPIURL(url string) Option {
	return func(c *Client) { c.apiURL = strings.TrimRight(url, "/") }
}

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// NewClient creates a GitHub client authenticated with token.
func NewClient(token string, opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		apiURL:     defaultAPIURL,
		token:      token,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Result reports the outcome of a merge or close operation. Remote and
// transport failures are data, never raised faults.
type Result struct {
	OK     bool   `json:"ok"`
	Detail string `json:"detail"`
}

func (r Result) String() string { return r.Detail }

// PRDetail is the subset of pull-request detail the relay consumes.
type PRDetail struct {
	Number  int    `json:"number"`
	Title   string `json:"title"`
	Body    string `json:"body"`
	State   string `json:"state"`
	Merged  bool   `json:"merged"`
	HTMLURL string `json:"html_url"`
	User    struct {
		Login string `json:"login"`
	} `json:"user"`
	Base struct {
		Ref string `json:"ref"`
	} `json:"base"`
	Head struct {
		Ref string `json:"ref"`
	} `json:"head"`
}

// MergePullRequest merges the PR via PUT …/pulls/{n}/merge. 200 means
// success; anything else is a failure result carrying the remote message.
func (c *Client) MergePullRequest(ctx context.Context, repo string, prNumber int) Result {
	endpoint := fmt.Sprintf("/repos/%s/pulls/%d/merge", repo, prNumber)
	status, body, err := c.call(ctx, http.MethodPut, endpoint, nil)
	if err != nil {
		return Result{OK: false, Detail: fmt.Sprintf("Failed to merge PR #%d in %s: %v", prNumber, repo, err)}
	}
	if status == http.StatusOK {
		return Result{OK: true, Detail: fmt.Sprintf("Successfully merged PR #%d in %s.", prNumber, repo)}
	}
	return Result{OK: false, Detail: fmt.Sprintf("Failed to merge PR #%d in %s: %s", prNumber, repo, remoteMessage(body))}
}

// ClosePullRequest closes the PR without merging via PATCH state=closed.
func (c *Client) ClosePullRequest(ctx context.Context, repo string, prNumber int) Result {
	endpoint := fmt.Sprintf("/repos/%s/pulls/%d", repo, prNumber)
	status, body, err := c.call(ctx, http.MethodPatch, endpoint, map[string]string{"state": "closed"})
	if err != nil {
		return Result{OK: false, Detail: fmt.Sprintf("Failed to close PR #%d in %s: %v", prNumber, repo, err)}
	}
	if status == http.StatusOK {
		return Result{OK: true, Detail: fmt.Sprintf("Closed pull request #%d in %s", prNumber, repo)}
	}
	return Result{OK: false, Detail: fmt.Sprintf("Failed to close PR #%d in %s: %d - %s", prNumber, repo, status, strings.TrimSpace(string(body)))}
}

// GetPullRequest fetches PR detail. Non-200 responses become a classified
// error carrying the remote status and body.
func (c *Client) GetPullRequest(ctx context.Context, repo string, prNumber int) (*PRDetail, error) {
	endpoint := fmt.Sprintf("/repos/%s/pulls/%d", repo, prNumber)
	status, body, err := c.call(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryGitHub, "failed to fetch pull request").
			WithContext("repository", repo).
			WithContext("pr_number", prNumber)
	}
	if status != http.StatusOK {
		return nil, errors.New(errors.CategoryGitHub, errors.SeverityError, "failed to get PR detail").
			WithContext("status", status).
			WithContext("body", strings.TrimSpace(string(body))).
			WithContext("repository", repo).
			WithContext("pr_number", prNumber)
	}

	var detail PRDetail
	if err := json.Unmarshal(body, &detail); err != nil {
		return nil, errors.WrapError(err, errors.CategoryGitHub, "failed to decode PR detail")
	}
	return &detail, nil
}

func (c *Client) call(ctx context.Context, method, endpoint string, payload any) (int, []byte, error) {
	var reqBody io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return 0, nil, err
		}
		reqBody = strings.NewReader(string(b))
	}

	req, err := http.NewRequestWithContext(ctx, method, c.apiURL+endpoint, reqBody)
	if err != nil {
		return 0, nil, err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("X-GitHub-Api-Version", "2022-11-28")
	req.Header.Set("User-Agent", "PRBridge/1.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return resp.StatusCode, nil, err
	}
	return resp.StatusCode, body, nil
}

// remoteMessage extracts the GitHub error message field from a response
// body, falling back to the raw body.
func remoteMessage(body []byte) string {
	var payload struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Message != "" {
		return payload.Message
	}
	if len(body) == 0 {
		return "unknown error"
	}
	return strings.TrimSpace(string(body))
}
