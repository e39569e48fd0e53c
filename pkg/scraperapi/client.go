package scraperapi

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"mediadedup/pkg/errors"
	"mediadedup/pkg/logger"
)

// Client talks to the scraper REST interface
type Client struct {
	httpClient *http.Client
	headers    map[string]string
	baseURL    string
	logger     logger.Logger
}

// NewClient creates a new scraper API client
func NewClient(baseURL string, timeout time.Duration, log logger.Logger) *Client {
	if log == nil {
		log = logger.GetLogger()
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		headers: map[string]string{
			"Accept": "application/json",
		},
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  log,
	}
}

// SetHeader sets a custom header for the client
func (c *Client) SetHeader(key, value string) {
	c.headers[key] = value
}

// doRequest performs an HTTP request with the configured headers
func (c *Client) doRequest(req *http.Request) (*http.Response, error) {
	for key, value := range c.headers {
		req.Header.Set(key, value)
	}

	start := time.Now()
	c.logger.DebugWithFields("sending HTTP request", map[string]interface{}{
		"method": req.Method,
		"url":    req.URL.String(),
	})

	resp, err := c.httpClient.Do(req)
	duration := time.Since(start)

	if err != nil {
		c.logger.ErrorWithFields("HTTP request failed", map[string]interface{}{
			"method":   req.Method,
			"url":      req.URL.String(),
			"error":    err.Error(),
			"duration": duration,
		})
		return nil, errors.Transport(err, "request to %s failed", req.URL.String())
	}

	c.logger.DebugWithFields("HTTP request completed", map[string]interface{}{
		"method":   req.Method,
		"url":      req.URL.String(),
		"status":   resp.StatusCode,
		"duration": duration,
	})

	return resp, nil
}

// getJSON performs a GET request and decodes the JSON response
func (c *Client) getJSON(url string, target interface{}) error {
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return errors.Transport(err, "failed to create request for %s", url)
	}

	resp, err := c.doRequest(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logger.ErrorWithFields("upstream returned non-success status", map[string]interface{}{
			"url":    url,
			"status": resp.StatusCode,
		})
		return errors.Transport(nil, "upstream returned status %d for %s", resp.StatusCode, url)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Transport(err, "failed to read response body from %s", url)
	}

	if err := json.Unmarshal(body, target); err != nil {
		bodyPreview := string(body)
		if len(bodyPreview) > 200 {
			bodyPreview = bodyPreview[:200] + "..."
		}
		c.logger.ErrorWithFields("failed to parse JSON response", map[string]interface{}{
			"url":          url,
			"error":        err.Error(),
			"body_preview": bodyPreview,
		})
		return errors.Malformed(err, "failed to parse response from %s", url)
	}

	return nil
}

// Query fetches one page of scraped documents.
func (c *Client) Query(limit, offset int) (*QueryResponse, error) {
	url := QueryURL(c.baseURL, limit, offset)

	var response QueryResponse
	if err := c.getJSON(url, &response); err != nil {
		return nil, err
	}

	c.logger.DebugWithFields("query page fetched", map[string]interface{}{
		"limit":     limit,
		"offset":    offset,
		"documents": len(response.Documents),
	})

	return &response, nil
}

// Probe performs the pre-run availability check against the query endpoint.
func (c *Client) Probe() error {
	if _, err := c.Query(1, 0); err != nil {
		return err
	}
	return nil
}

// String implements fmt.Stringer for log output
func (c *Client) String() string {
	return fmt.Sprintf("scraperapi.Client(%s)", c.baseURL)
}
