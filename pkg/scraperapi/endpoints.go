package scraperapi

import (
	"fmt"
	"net/url"
)

const (
	// QueryEndpoint is the paginated query endpoint on the scraper REST interface
	QueryEndpoint = "/query"

	// DefaultBatchSize is the default number of documents requested per page
	DefaultBatchSize = 5
)

// QueryURL constructs the URL for one page of the query endpoint.
func QueryURL(baseURL string, limit, offset int) string {
	params := url.Values{}
	params.Set("limit", fmt.Sprintf("%d", limit))
	params.Set("offset", fmt.Sprintf("%d", offset))

	return fmt.Sprintf("%s%s?%s", baseURL, QueryEndpoint, params.Encode())
}

// ValidateBaseURL reports whether the scraper host URL is usable.
func ValidateBaseURL(baseURL string) error {
	u, err := url.Parse(baseURL)
	if err != nil {
		return fmt.Errorf("invalid scraper host url %q: %w", baseURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid scraper host url %q: scheme must be http or https", baseURL)
	}
	if u.Host == "" {
		return fmt.Errorf("invalid scraper host url %q: missing host", baseURL)
	}
	return nil
}
