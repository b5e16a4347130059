// Package jira creates issue-tracker tickets for newly sighted tasks.
package jira

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	merrors "github.com/scrum-maestro/agent/internal/errors"
)

// HTTPClient abstracts HTTP calls for testing.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Authenticator applies authentication to requests.
type Authenticator interface {
	Apply(req *http.Request) error
}

// BasicAuth authenticates with an Atlassian account email and API token.
type BasicAuth struct {
	Email    string
	APIToken string
}

func (a BasicAuth) Apply(req *http.Request) error {
	req.SetBasicAuth(a.Email, a.APIToken)
	return nil
}

// Client wraps the Jira Cloud REST API.
type Client struct {
	baseURL    string
	httpClient HTTPClient
	auth       Authenticator
	logger     zerolog.Logger
}

// NewClient creates a new Jira API client.
func NewClient(baseURL string, auth Authenticator, logger zerolog.Logger) *Client {
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
		auth:       auth,
		logger:     logger.With().Str("component", "jira").Logger(),
	}
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client) SetHTTPClient(hc HTTPClient) {
	c.httpClient = hc
}

type adfText struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type adfParagraph struct {
	Type    string    `json:"type"`
	Content []adfText `json:"content"`
}

type adfDoc struct {
	Type    string         `json:"type"`
	Version int            `json:"version"`
	Content []adfParagraph `json:"content"`
}

type issueFields struct {
	Project     struct{ Key string `json:"key"` } `json:"project"`
	Summary     string                            `json:"summary"`
	Description adfDoc                            `json:"description"`
	IssueType   struct{ Name string `json:"name"` } `json:"issuetype"`
}

type createIssueRequest struct {
	Fields issueFields `json:"fields"`
}

type createIssueResponse struct {
	ID   string `json:"id"`
	Key  string `json:"key"`
	Self string `json:"self"`
}

// CreateIssue creates a Task issue in the given project and returns its key.
func (c *Client) CreateIssue(ctx context.Context, projectKey, summary, description string) (string, error) {
	var req createIssueRequest
	req.Fields.Project.Key = projectKey
	req.Fields.Summary = summary
	req.Fields.IssueType.Name = "Task"
	req.Fields.Description = adfDoc{
		Type:    "doc",
		Version: 1,
		Content: []adfParagraph{{
			Type:    "paragraph",
			Content: []adfText{{Type: "text", Text: description}},
		}},
	}

	resp, err := c.do(ctx, http.MethodPost, "/rest/api/3/issue", req)
	if err != nil {
		return "", err
	}

	var created createIssueResponse
	if err := decodeResponse(resp, &created); err != nil {
		return "", err
	}

	c.logger.Info().Str("key", created.Key).Str("project", projectKey).Msg("created issue")
	return created.Key, nil
}

func (c *Client) do(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encoding request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	if err := c.auth.Apply(req); err != nil {
		return nil, fmt.Errorf("applying auth: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}

	if resp.StatusCode >= 400 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		resp.Body.Close()
		return nil, merrors.NewAPIError("jira", resp.StatusCode, string(respBody))
	}
	return resp, nil
}

func decodeResponse(resp *http.Response, v any) error {
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}
