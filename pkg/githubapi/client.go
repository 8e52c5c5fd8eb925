// Package githubapi is a small client for the GitHub REST API covering
// the repository, content, issue and release operations the toolkit
// needs. Calls pass through a client-side rate limiter so bulk
// operations stay inside GitHub's secondary limits.
package githubapi

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	defaultBaseURL = "https://api.github.com"
	acceptHeader   = "application/vnd.github.v3+json"
	apiVersion     = "2022-11-28"

	// GitHub caps list endpoints at 100 items per page.
	pageSize = 100
)

// APIError reports a non-2xx response from GitHub.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("githubapi: github returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("githubapi: github returned status %d: %s", e.StatusCode, e.Message)
}

// Repository is the subset of GitHub's repository object the toolkit
// works with.
type Repository struct {
	Name        string `json:"name"`
	FullName    string `json:"full_name"`
	Private     bool   `json:"private"`
	Description string `json:"description"`
	HTMLURL     string `json:"html_url"`
	CloneURL    string `json:"clone_url"`
}

// User is the authenticated GitHub account.
type User struct {
	Login string `json:"login"`
	Name  string `json:"name"`
}

// Issue is a created issue.
type Issue struct {
	Number  int    `json:"number"`
	Title   string `json:"title"`
	Body    string `json:"body"`
	State   string `json:"state"`
	HTMLURL string `json:"html_url"`
}

// Release is a created release.
type Release struct {
	ID      int64  `json:"id"`
	TagName string `json:"tag_name"`
	Name    string `json:"name"`
	Body    string `json:"body"`
	Draft   bool   `json:"draft"`
	HTMLURL string `json:"html_url"`
}

// Client talks to the GitHub REST API on behalf of one token.
type Client struct {
	token   string
	baseURL string
	http    *http.Client
	limiter *rate.Limiter

	mu    sync.Mutex
	owner string
}

// Option adjusts a Client during construction.
type Option func(*Client)

// WithOwner fixes the repository owner instead of resolving it from
// the authenticated user.
func WithOwner(owner string) Option {
	return func(c *Client) { c.owner = owner }
}

// WithBaseURL points the client at a different API root, typically a
// GitHub Enterprise instance or a test server.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithRateLimit replaces the default client-side request limit.
func WithRateLimit(limit rate.Limit, burst int) Option {
	return func(c *Client) { c.limiter = rate.NewLimiter(limit, burst) }
}

// New returns a Client authenticating with the given personal access
// token.
func New(token string, opts ...Option) (*Client, error) {
	if token == "" {
		return nil, fmt.Errorf("githubapi: token must not be empty")
	}
	c := &Client{
		token:   token,
		baseURL: defaultBaseURL,
		http:    &http.Client{Timeout: 30 * time.Second},
		limiter: rate.NewLimiter(rate.Limit(10), 30),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// CreateRepo creates a repository for the authenticated user.
func (c *Client) CreateRepo(ctx context.Context, name string, private bool, description string) (*Repository, error) {
	body := map[string]any{
		"name":        name,
		"private":     private,
		"description": description,
	}
	var repo Repository
	if err := c.do(ctx, http.MethodPost, "/user/repos", nil, body, &repo); err != nil {
		return nil, err
	}
	return &repo, nil
}

// ListRepos lists the authenticated user's repositories. kind filters
// the listing (all, owner, public, private, member); empty means all.
func (c *Client) ListRepos(ctx context.Context, kind string) ([]Repository, error) {
	if kind == "" {
		kind = "all"
	}
	var repos []Repository
	q := url.Values{"type": {kind}}
	if err := c.do(ctx, http.MethodGet, "/user/repos", q, nil, &repos); err != nil {
		return nil, err
	}
	return repos, nil
}

// GetRepo fetches one repository belonging to the configured owner.
func (c *Client) GetRepo(ctx context.Context, repo string) (*Repository, error) {
	owner, err := c.resolveOwner(ctx)
	if err != nil {
		return nil, err
	}
	var out Repository
	path := "/repos/" + url.PathEscape(owner) + "/" + url.PathEscape(repo)
	if err := c.do(ctx, http.MethodGet, path, nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// OrgRepos lists every repository of an organization, following
// pagination until a short page arrives.
func (c *Client) OrgRepos(ctx context.Context, org string) ([]Repository, error) {
	var all []Repository
	for page := 1; ; page++ {
		q := url.Values{
			"per_page": {fmt.Sprint(pageSize)},
			"page":     {fmt.Sprint(page)},
		}
		var batch []Repository
		path := "/orgs/" + url.PathEscape(org) + "/repos"
		if err := c.do(ctx, http.MethodGet, path, q, nil, &batch); err != nil {
			return nil, err
		}
		all = append(all, batch...)
		if len(batch) < pageSize {
			return all, nil
		}
	}
}

// CreateFile commits a new file to a repository. An empty message
// falls back to "Add file".
func (c *Client) CreateFile(ctx context.Context, repo, path, content, message string) error {
	owner, err := c.resolveOwner(ctx)
	if err != nil {
		return err
	}
	if message == "" {
		message = "Add file"
	}
	body := map[string]any{
		"message": message,
		"content": base64.StdEncoding.EncodeToString([]byte(content)),
	}
	endpoint := "/repos/" + url.PathEscape(owner) + "/" + url.PathEscape(repo) + "/contents/" + escapePath(path)
	return c.do(ctx, http.MethodPut, endpoint, nil, body, nil)
}

// GetFile fetches a file's content from a repository.
func (c *Client) GetFile(ctx context.Context, repo, path string) (string, error) {
	owner, err := c.resolveOwner(ctx)
	if err != nil {
		return "", err
	}
	var out struct {
		Content string `json:"content"`
	}
	endpoint := "/repos/" + url.PathEscape(owner) + "/" + url.PathEscape(repo) + "/contents/" + escapePath(path)
	if err := c.do(ctx, http.MethodGet, endpoint, nil, nil, &out); err != nil {
		return "", err
	}

	// The API wraps base64 blobs at 60 columns; strip the line breaks
	// before decoding.
	cleaned := strings.NewReplacer("\n", "", "\r", "").Replace(out.Content)
	decoded, err := base64.StdEncoding.DecodeString(cleaned)
	if err != nil {
		return "", fmt.Errorf("githubapi: decoding file content: %w", err)
	}
	return string(decoded), nil
}

// CreateIssue opens an issue on a repository.
func (c *Client) CreateIssue(ctx context.Context, repo, title, body string, labels []string) (*Issue, error) {
	owner, err := c.resolveOwner(ctx)
	if err != nil {
		return nil, err
	}
	if labels == nil {
		labels = []string{}
	}
	payload := map[string]any{
		"title":  title,
		"body":   body,
		"labels": labels,
	}
	var issue Issue
	endpoint := "/repos/" + url.PathEscape(owner) + "/" + url.PathEscape(repo) + "/issues"
	if err := c.do(ctx, http.MethodPost, endpoint, nil, payload, &issue); err != nil {
		return nil, err
	}
	return &issue, nil
}

// CreateRelease publishes a release for tag. An empty name falls back
// to the tag itself.
func (c *Client) CreateRelease(ctx context.Context, repo, tag, name, body string, draft bool) (*Release, error) {
	owner, err := c.resolveOwner(ctx)
	if err != nil {
		return nil, err
	}
	if name == "" {
		name = tag
	}
	payload := map[string]any{
		"tag_name": tag,
		"name":     name,
		"body":     body,
		"draft":    draft,
	}
	var release Release
	endpoint := "/repos/" + url.PathEscape(owner) + "/" + url.PathEscape(repo) + "/releases"
	if err := c.do(ctx, http.MethodPost, endpoint, nil, payload, &release); err != nil {
		return nil, err
	}
	return &release, nil
}

// AuthenticatedUser fetches the account the token belongs to.
func (c *Client) AuthenticatedUser(ctx context.Context) (*User, error) {
	var user User
	if err := c.do(ctx, http.MethodGet, "/user", nil, nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// resolveOwner returns the configured owner, resolving and caching the
// authenticated user's login on first use.
func (c *Client) resolveOwner(ctx context.Context) (string, error) {
	c.mu.Lock()
	owner := c.owner
	c.mu.Unlock()
	if owner != "" {
		return owner, nil
	}

	user, err := c.AuthenticatedUser(ctx)
	if err != nil {
		return "", fmt.Errorf("githubapi: resolving owner: %w", err)
	}

	c.mu.Lock()
	c.owner = user.Login
	c.mu.Unlock()
	return user.Login, nil
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("githubapi: waiting for rate limiter: %w", err)
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("githubapi: encoding request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return fmt.Errorf("githubapi: building request: %w", err)
	}
	req.Header.Set("Accept", acceptHeader)
	req.Header.Set("X-GitHub-Api-Version", apiVersion)
	req.Header.Set("Authorization", "token "+c.token)
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("githubapi: sending request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return newAPIError(resp)
	}
	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("githubapi: decoding response: %w", err)
	}
	return nil
}

func newAPIError(resp *http.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode}
	var payload struct {
		Message string `json:"message"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&payload); err == nil {
		apiErr.Message = payload.Message
	}
	return apiErr
}

// escapePath escapes each segment of a repository file path while
// keeping the separators intact.
func escapePath(p string) string {
	parts := strings.Split(p, "/")
	for i, s := range parts {
		parts[i] = url.PathEscape(s)
	}
	return strings.Join(parts, "/")
}
