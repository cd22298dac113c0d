// Package spacebridge is a client for the SpaceBridge issue aggregation REST API.
package spacebridge

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/spacebridge/spacebridge-mcp/internal/types"
)

// DefaultBaseURL is used when no API URL is configured
const DefaultBaseURL = "https://spacebridge.io"

const (
	defaultTimeout   = 30 * time.Second
	defaultCacheSize = 256
	defaultCacheTTL  = 2 * time.Minute
	maxErrorBody     = 2048
)

var (
	// ErrNoUpdateFields is returned by UpdateIssue when nothing would change
	ErrNoUpdateFields = errors.New("no fields provided for update")

	// ErrProjectRequired is returned by CreateIssue when no project is known
	ErrProjectRequired = errors.New("project name is required to create an issue")
)

// APIError is a non-2xx response from the service
type APIError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("spacebridge API %s %s returned %d: %s", e.Method, e.Path, e.StatusCode, e.Body)
}

// Config configures a Client
type Config struct {
	BaseURL    string
	APIKey     string
	Org        string        // default organization for search/create/update
	Project    string        // default project for search/create/update
	HTTPClient *http.Client  // optional
	CacheSize  int           // issues kept by GetIssue (default 256)
	CacheTTL   time.Duration // lifetime of a cached issue (default 2m)
}

// Client talks to the SpaceBridge API. It is safe for concurrent use.
type Client struct {
	baseURL    string
	apiKey     string
	org        string
	project    string
	httpClient *http.Client
	cache      *expirable.LRU[string, types.Issue]
}

// NewClient creates a client. The base URL is normalized to end in /api/v1.
func NewClient(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("SpaceBridge API key not configured (set SPACEBRIDGE_API_KEY)")
	}

	base := cfg.BaseURL
	if base == "" {
		base = DefaultBaseURL
	}
	base = normalizeBaseURL(base)
	if _, err := url.Parse(base); err != nil {
		return nil, fmt.Errorf("invalid API URL %q: %w", cfg.BaseURL, err)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	size := cfg.CacheSize
	if size <= 0 {
		size = defaultCacheSize
	}
	ttl := cfg.CacheTTL
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}

	return &Client{
		baseURL:    base,
		apiKey:     cfg.APIKey,
		org:        cfg.Org,
		project:    cfg.Project,
		httpClient: httpClient,
		cache:      expirable.NewLRU[string, types.Issue](size, nil, ttl),
	}, nil
}

func normalizeBaseURL(base string) string {
	base = strings.TrimRight(strings.TrimSpace(base), "/")
	if !strings.HasSuffix(base, "/api/v1") {
		base += "/api/v1"
	}
	return base
}

// BaseURL returns the normalized API root
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Org returns the default organization
func (c *Client) Org() string {
	return c.org
}

// Project returns the default project
func (c *Client) Project() string {
	return c.project
}

// GetIssue fetches one issue, serving recent lookups from cache
func (c *Client) GetIssue(ctx context.Context, id string) (*types.Issue, error) {
	if id == "" {
		return nil, fmt.Errorf("issue id is required")
	}
	if cached, ok := c.cache.Get(id); ok {
		return &cached, nil
	}

	var issue types.Issue
	if err := c.do(ctx, http.MethodGet, "issues/"+url.PathEscape(id), nil, nil, nil, &issue); err != nil {
		return nil, err
	}
	c.cache.Add(id, issue)
	return &issue, nil
}

// SearchRequest describes an issue search. Empty Org/Project fall back to
// the client defaults.
type SearchRequest struct {
	Query   string
	Type    types.SearchType
	Org     string
	Project string
}

// SearchIssues runs a full-text or similarity search. A response that is not
// a JSON array yields an empty result.
func (c *Client) SearchIssues(ctx context.Context, req SearchRequest) ([]types.IssueSummary, error) {
	if strings.TrimSpace(req.Query) == "" {
		return nil, fmt.Errorf("search query is required")
	}
	searchType := req.Type
	if searchType == "" {
		searchType = types.SearchSimilarity
	}
	if !searchType.IsValid() {
		return nil, fmt.Errorf("invalid search type: %q", searchType)
	}

	params := url.Values{}
	params.Set("query", req.Query)
	params.Set("search_type", string(searchType))
	if org := firstNonEmpty(req.Org, c.org); org != "" {
		params.Set("organization", org)
	}
	if project := firstNonEmpty(req.Project, c.project); project != "" {
		params.Set("project", project)
	}

	var raw json.RawMessage
	if err := c.do(ctx, http.MethodGet, "issues/search", params, nil, nil, &raw); err != nil {
		return nil, err
	}

	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		log.Printf("[SPACEBRIDGE] Unexpected search response format, treating as no results")
		return []types.IssueSummary{}, nil
	}

	var results []types.IssueSummary
	if err := json.Unmarshal(trimmed, &results); err != nil {
		return nil, fmt.Errorf("failed to decode search results: %w", err)
	}
	return results, nil
}

// FindSimilar returns similarity-search hits as duplicate candidates. A hit
// without a score is given 0.
func (c *Client) FindSimilar(ctx context.Context, query string) ([]types.CandidateIssue, error) {
	results, err := c.SearchIssues(ctx, SearchRequest{Query: query, Type: types.SearchSimilarity})
	if err != nil {
		return nil, err
	}

	candidates := make([]types.CandidateIssue, 0, len(results))
	for _, r := range results {
		score := 0.0
		if r.Score != nil {
			score = *r.Score
		}
		candidates = append(candidates, types.CandidateIssue{
			ID:              r.ID,
			Title:           r.Title,
			Description:     r.Description,
			URL:             r.URL,
			SimilarityScore: score,
		})
	}
	return candidates, nil
}

// CreateRequest describes a new issue
type CreateRequest struct {
	Title       string
	Description string
	Labels      []string
	Org         string
	Project     string
}

type createPayload struct {
	Title        string   `json:"title"`
	Description  string   `json:"description"`
	Organization string   `json:"organization"`
	Project      string   `json:"project"`
	Labels       []string `json:"labels,omitempty"`
}

// CreateIssue files a new issue. A project is required; the organization is
// sent as an empty string when unknown.
func (c *Client) CreateIssue(ctx context.Context, req CreateRequest) (*types.Issue, error) {
	project := firstNonEmpty(req.Project, c.project)
	if project == "" {
		return nil, ErrProjectRequired
	}

	payload := createPayload{
		Title:        req.Title,
		Description:  req.Description,
		Organization: firstNonEmpty(req.Org, c.org),
		Project:      project,
		Labels:       req.Labels,
	}

	var issue types.Issue
	if err := c.do(ctx, http.MethodPost, "issues", nil, nil, payload, &issue); err != nil {
		return nil, err
	}
	log.Printf("[SPACEBRIDGE] Created issue %s in %s", issue.ID, project)
	return &issue, nil
}

// UpdateRequest holds the fields to change; nil fields are left alone
type UpdateRequest struct {
	Title       *string
	Description *string
	Status      *string
	Org         string
	Project     string
}

func (r UpdateRequest) empty() bool {
	return r.Title == nil && r.Description == nil && r.Status == nil
}

type updatePayload struct {
	Title        *string `json:"title,omitempty"`
	Description  *string `json:"description,omitempty"`
	Status       *string `json:"status,omitempty"`
	Organization string  `json:"organization,omitempty"`
	Project      string  `json:"project,omitempty"`
}

// UpdateIssue changes an existing issue and drops it from the cache
func (c *Client) UpdateIssue(ctx context.Context, id string, req UpdateRequest) (*types.Issue, error) {
	if id == "" {
		return nil, fmt.Errorf("issue id is required")
	}
	if req.empty() {
		return nil, ErrNoUpdateFields
	}

	payload := updatePayload{
		Title:        req.Title,
		Description:  req.Description,
		Status:       req.Status,
		Organization: firstNonEmpty(req.Org, c.org),
		Project:      firstNonEmpty(req.Project, c.project),
	}

	c.cache.Remove(id)
	var issue types.Issue
	if err := c.do(ctx, http.MethodPut, "issues/"+url.PathEscape(id), nil, nil, payload, &issue); err != nil {
		return nil, err
	}
	if issue.ID == "" {
		issue.ID = id
	}
	return &issue, nil
}

// do sends one request and decodes a JSON body into out. A 204 leaves out untouched.
func (c *Client) do(ctx context.Context, method, path string, params url.Values, headers http.Header, body any, out any) error {
	endpoint := c.baseURL + "/" + strings.TrimLeft(path, "/")
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	for key, values := range headers {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("spacebridge API request %s %s failed: %w", method, path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{
			Method:     method,
			Path:       path,
			StatusCode: resp.StatusCode,
			Body:       truncateBody(respBody),
		}
		log.Printf("[SPACEBRIDGE] %v", apiErr)
		return apiErr
	}
	if resp.StatusCode == http.StatusNoContent || len(bytes.TrimSpace(respBody)) == 0 || out == nil {
		return nil
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to parse response from %s %s: %w", method, path, err)
	}
	return nil
}

func truncateBody(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > maxErrorBody {
		return s[:maxErrorBody] + "..."
	}
	return s
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
