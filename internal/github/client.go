package github

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/goccy/go-json"
)

const (
	// DefaultAPIURL is the public GitHub REST endpoint.
	DefaultAPIURL = "https://api.github.com"

	defaultUserAgent = "findwork"
	defaultTimeout   = 30 * time.Second

	// issue lists with long bodies get large; the limit only guards against runaway responses
	maxResponseBodySize = 8 << 20 // 8MB

	// upper bound of a single page; the API is not paginated further
	issuesPerPage = 100
)

// connection pooling limits, sized for one refresh cycle hitting a handful of repositories
const (
	defaultMaxIdleConns        = 32
	defaultMaxIdleConnsPerHost = 16
	defaultIdleConnTimeout     = 90 * time.Second
)

// ErrUnknownMilestone is returned when a milestone title does not exist in a repository.
var ErrUnknownMilestone = errors.New("unknown milestone")

// StatusError is returned when the API answers with a non-success status.
type StatusError struct {
	Path       string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("github %s: unexpected status %d", e.Path, e.StatusCode)
	}
	return fmt.Sprintf("github %s: unexpected status %d: %s", e.Path, e.StatusCode, e.Body)
}

// Options configures a [Client].
type Options struct {
	// BaseURL is the API root. Defaults to [DefaultAPIURL].
	BaseURL string

	// Repository is the owner/name repository holding the structural data.
	Repository string

	// DataDir is the directory inside Repository that holds the data files.
	DataDir string

	// Username is sent as the User-Agent. Defaults to "findwork".
	Username string

	// Token is sent as "Authorization: token <Token>" when non-empty.
	Token string

	// Timeout is the per-request timeout. Defaults to 30s.
	Timeout time.Duration
}

// Client is a typed wrapper around the GitHub REST API.
//
// Client uses per-request timeouts via context rather than a global timeout,
// and limits response bodies to 8MB. It is safe for concurrent use.
type Client struct {
	httpClient *http.Client
	opts       Options
}

// NewClient creates a new [Client].
func NewClient(opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultAPIURL
	}
	opts.BaseURL = strings.TrimRight(opts.BaseURL, "/")
	if opts.Username == "" {
		opts.Username = defaultUserAgent
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}

	return &Client{
		httpClient: &http.Client{
			// no default timeout - we use per-request timeouts via context
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				MaxIdleConns:        defaultMaxIdleConns,
				MaxIdleConnsPerHost: defaultMaxIdleConnsPerHost,
				IdleConnTimeout:     defaultIdleConnTimeout,
			},
		},
		opts: opts,
	}
}

// Issues lists open issues of repo carrying all of labels.
// A milestone of zero means no milestone filter.
func (c *Client) Issues(ctx context.Context, repo string, labels []string, milestone int) ([]Issue, error) {
	q := url.Values{}
	if len(labels) > 0 {
		q.Set("labels", strings.Join(labels, ","))
	}
	if milestone > 0 {
		q.Set("milestone", strconv.Itoa(milestone))
	}
	q.Set("per_page", strconv.Itoa(issuesPerPage))

	var issues []Issue
	if err := c.get(ctx, "/repos/"+repo+"/issues", q, &issues); err != nil {
		return nil, fmt.Errorf("fetch issues for %s: %w", repo, err)
	}
	for i := range issues {
		if issues[i].Labels == nil {
			issues[i].Labels = []Label{}
		}
	}
	return issues, nil
}

// Milestones returns the milestone numbers of repo keyed by title.
func (c *Client) Milestones(ctx context.Context, repo string) (map[string]int, error) {
	var list []milestoneRecord
	if err := c.get(ctx, "/repos/"+repo+"/milestones", nil, &list); err != nil {
		return nil, fmt.Errorf("fetch milestones for %s: %w", repo, err)
	}

	out := make(map[string]int, len(list))
	for _, m := range list {
		out[m.Title] = m.Number
	}
	return out, nil
}

// ReadFile reads a structural data file from the configured repository and
// data directory.
func (c *Client) ReadFile(ctx context.Context, name string) ([]byte, error) {
	return c.FetchFile(ctx, path.Join(c.opts.DataDir, name))
}

// FetchFile reads the raw contents of a file in the configured repository.
func (c *Client) FetchFile(ctx context.Context, filePath string) ([]byte, error) {
	if c.opts.Repository == "" {
		return nil, errors.New("fetch file: no repository configured")
	}

	var f contentFile
	if err := c.get(ctx, "/repos/"+c.opts.Repository+"/contents/"+strings.TrimLeft(filePath, "/"), nil, &f); err != nil {
		return nil, fmt.Errorf("fetch file %s: %w", filePath, err)
	}
	if f.Type != "file" {
		return nil, fmt.Errorf("fetch file %s: expected file, found %s", filePath, f.Type)
	}
	if f.Encoding != "base64" {
		return nil, fmt.Errorf("fetch file %s: expected base64, found %s", filePath, f.Encoding)
	}

	// the API wraps base64 content at 60 columns
	raw := strings.NewReplacer("\n", "", "\r", "").Replace(f.Content)
	b, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return nil, fmt.Errorf("fetch file %s: decode content: %w", filePath, err)
	}
	return b, nil
}

// Close closes all idle connections in the client's connection pool.
// Safe to call multiple times.
func (c *Client) Close() {
	if c == nil || c.httpClient == nil {
		return
	}
	if transport, ok := c.httpClient.Transport.(*http.Transport); ok {
		transport.CloseIdleConnections()
	}
}

// get performs a GET request against the API and decodes the JSON answer into out.
func (c *Client) get(ctx context.Context, apiPath string, query url.Values, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
	defer cancel()

	target := c.opts.BaseURL + apiPath
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("User-Agent", c.opts.Username)
	if c.opts.Token != "" {
		req.Header.Set("Authorization", "token "+c.opts.Token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBodySize))
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &StatusError{
			Path:       apiPath,
			StatusCode: resp.StatusCode,
			Body:       snippet(body),
		}
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// snippet trims an error body for inclusion in an error message.
func snippet(body []byte) string {
	const limit = 200
	s := strings.TrimSpace(string(body))
	if len(s) > limit {
		cut := limit
		for cut > 0 && !utf8.RuneStart(s[cut]) {
			cut--
		}
		s = s[:cut] + "..."
	}
	return s
}
