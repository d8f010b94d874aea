package bitbucket

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"

	"repolist/pkg/secrets"
)

// maxErrorBody caps how much of a failed response is read for diagnostics
const maxErrorBody = 64 * 1024

// ClientConfig holds connection settings for the Bitbucket API
type ClientConfig struct {
	BaseURL    string
	Workspace  string
	PageLength int
	Timeout    time.Duration
	Retry      *RetryConfig
}

// Client lists repositories through the Bitbucket Cloud REST API
type Client struct {
	httpClient *http.Client
	config     ClientConfig
	creds      *secrets.Credentials
	log        logrus.FieldLogger
}

// NewClient creates a new Bitbucket API client for the given credentials
func NewClient(cfg ClientConfig, creds *secrets.Credentials) *Client {
	httpClient := &http.Client{Timeout: cfg.Timeout}

	if creds != nil && creds.UsesBearer() {
		ts := oauth2.StaticTokenSource(
			&oauth2.Token{AccessToken: creds.AccessToken},
		)
		httpClient = oauth2.NewClient(context.Background(), ts)
		httpClient.Timeout = cfg.Timeout
	}

	if cfg.Retry == nil {
		cfg.Retry = DefaultRetryConfig()
	}
	cfg.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")

	return &Client{
		httpClient: httpClient,
		config:     cfg,
		creds:      creds,
		log:        logrus.StandardLogger(),
	}
}

// RepositoriesURL builds the first listing URL for a project key
func (c *Client) RepositoriesURL(projectKey string) string {
	query := url.Values{}
	query.Set("q", fmt.Sprintf("project.key=%q", projectKey))
	if c.config.PageLength > 0 {
		query.Set("pagelen", strconv.Itoa(c.config.PageLength))
	}

	return fmt.Sprintf("%s/repositories/%s?%s", c.config.BaseURL, url.PathEscape(c.config.Workspace), query.Encode())
}

// FetchRepositoryNames returns the names of every repository in the project,
// in the order the API pages them
func (c *Client) FetchRepositoryNames(ctx context.Context, projectKey string) ([]string, error) {
	var names []string

	visited := make(map[string]bool)
	next := c.RepositoriesURL(projectKey)
	resource := fmt.Sprintf("project %s in workspace %s", projectKey, c.config.Workspace)

	for pageNum := 1; next != ""; pageNum++ {
		if visited[next] {
			return nil, NewError(ErrorTypeDecode, fmt.Sprintf("pagination loop detected at %s", next), nil)
		}
		visited[next] = true

		if err := c.checkSameOrigin(next); err != nil {
			return nil, err
		}

		page, err := c.fetchPage(ctx, next, resource)
		if err != nil {
			return nil, err
		}

		for _, repo := range page.Values {
			names = append(names, repo.Name)
		}

		c.log.WithFields(logrus.Fields{
			"project": projectKey,
			"page":    pageNum,
			"count":   len(page.Values),
		}).Debug("fetched repository page")

		next = page.Next
	}

	return names, nil
}

// checkSameOrigin refuses page links that leave the configured API host, so
// credentials are only ever sent to BaseURL
func (c *Client) checkSameOrigin(pageURL string) error {
	base, err := url.Parse(c.config.BaseURL)
	if err != nil {
		return NewError(ErrorTypeUnknown, fmt.Sprintf("invalid base URL %q", c.config.BaseURL), err)
	}

	page, err := url.Parse(pageURL)
	if err != nil {
		return NewError(ErrorTypeDecode, fmt.Sprintf("invalid next page URL %q", pageURL), err)
	}

	if !strings.EqualFold(page.Scheme, base.Scheme) || !strings.EqualFold(page.Host, base.Host) {
		return NewError(ErrorTypeDecode, fmt.Sprintf("next page URL %s is outside %s://%s", pageURL, base.Scheme, base.Host), nil)
	}

	return nil
}

// fetchPage retrieves and decodes one listing page, retrying transient failures
func (c *Client) fetchPage(ctx context.Context, pageURL, resource string) (*RepositoryPage, error) {
	var page *RepositoryPage

	err := WithRetry(ctx, func() error {
		var err error
		page, err = c.getPage(ctx, pageURL, resource)
		return err
	}, c.config.Retry)

	if err != nil {
		return nil, err
	}

	return page, nil
}

func (c *Client) getPage(ctx context.Context, pageURL, resource string) (*RepositoryPage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, NewError(ErrorTypeUnknown, fmt.Sprintf("invalid request URL %q", pageURL), err)
	}

	req.Header.Set("Accept", "application/json")
	if c.creds != nil && !c.creds.UsesBearer() {
		req.SetBasicAuth(c.creds.Username, c.creds.APIToken)
	}

	c.log.WithField("url", pageURL).Debug("GET")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, wrapTransportError(err, resource)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, errorFromResponse(resp, body, resource)
	}

	var page RepositoryPage
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, &Error{
			Type:       ErrorTypeDecode,
			Message:    fmt.Sprintf("failed to decode repository page: %v", err),
			Cause:      err,
			Resource:   resource,
			StatusCode: resp.StatusCode,
		}
	}

	if page.Values == nil {
		return nil, &Error{
			Type:       ErrorTypeDecode,
			Message:    "response has no values array",
			Resource:   resource,
			StatusCode: resp.StatusCode,
		}
	}

	return &page, nil
}
